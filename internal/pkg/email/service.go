// internal/pkg/email/service.go
package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/config"
)

// Sender delivers a rendered message
type Sender interface {
	Send(ctx context.Context, email *Email) error
}

// EmailService renders storefront emails and hands them to a Sender
type EmailService struct {
	config    *config.Config
	sender    Sender
	templates map[EmailType]*template.Template
	logger    *logrus.Logger
}

// NewEmailService creates an email service for the configured provider
func NewEmailService(cfg *config.Config, logger *logrus.Logger) *EmailService {
	var sender Sender
	switch cfg.External.Email.Provider {
	case "smtp":
		sender = NewSMTPSender(cfg.External.Email)
	default:
		sender = &LogSender{logger: logger}
	}
	return NewEmailServiceWithSender(cfg, sender, logger)
}

// NewEmailServiceWithSender creates an email service around an explicit sender
func NewEmailServiceWithSender(cfg *config.Config, sender Sender, logger *logrus.Logger) *EmailService {
	return &EmailService{
		config: cfg,
		sender: sender,
		templates: map[EmailType]*template.Template{
			EmailTypeOrderConfirmation: template.Must(template.New("order_confirmation").Parse(orderConfirmationTemplate)),
		},
		logger: logger,
	}
}

// SendOrderConfirmationEmail renders and sends the order confirmation
func (s *EmailService) SendOrderConfirmationEmail(ctx context.Context, data OrderConfirmationData) error {
	if data.UserEmail == "" {
		return fmt.Errorf("order %s has no email address", data.OrderNumber)
	}

	data.EmailTemplateData = GetBaseTemplateData(
		s.siteName(),
		s.config.Storefront.BaseURL,
		data.UserName,
		data.UserEmail,
	)

	htmlContent, err := s.renderTemplate(EmailTypeOrderConfirmation, data)
	if err != nil {
		return fmt.Errorf("failed to render order confirmation template: %w", err)
	}

	email := &Email{
		To:          []string{data.UserEmail},
		Subject:     fmt.Sprintf("Order Confirmation - %s", data.OrderNumber),
		HTMLContent: htmlContent,
		Type:        EmailTypeOrderConfirmation,
		Data: map[string]interface{}{
			"order_number": data.OrderNumber,
			"order_total":  data.OrderTotal.StringFixed(2),
		},
	}

	return s.sender.Send(ctx, email)
}

func (s *EmailService) siteName() string {
	if s.config.External.Email.FromName != "" {
		return s.config.External.Email.FromName
	}
	return s.config.App.Name
}

// renderTemplate renders an email template with data
func (s *EmailService) renderTemplate(emailType EmailType, data interface{}) (string, error) {
	tmpl, exists := s.templates[emailType]
	if !exists {
		return "", fmt.Errorf("template %s not found", emailType)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", emailType, err)
	}

	return buf.String(), nil
}

// LogSender logs messages instead of delivering them
type LogSender struct {
	logger *logrus.Logger
}

// Send logs the message envelope
func (l *LogSender) Send(_ context.Context, email *Email) error {
	l.logger.WithFields(logrus.Fields{
		"to":      email.To,
		"subject": email.Subject,
		"type":    email.Type,
	}).Info("Email not sent (noop provider)")
	return nil
}

const orderConfirmationTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.SiteName}} - Order {{.OrderNumber}}</title>
</head>
<body style="font-family: Arial, sans-serif; margin: 0; padding: 20px; background-color: #f4f4f4;">
    <div style="max-width: 600px; margin: 0 auto; background-color: white; padding: 20px; border-radius: 8px;">
        <h1 style="color: #333;">{{.SiteName}}</h1>
        <p>Hello {{.UserName}},</p>
        <p>Thank you for your order <strong>{{.OrderNumber}}</strong> placed on {{.OrderDate}}.</p>
        <table style="width: 100%; border-collapse: collapse;">
            <tr><th align="left">Item</th><th align="right">Qty</th><th align="right">Price</th><th align="right">Total</th></tr>
            {{range .Items}}
            <tr>
                <td>{{.Name}}<br><small>{{.Variant}}</small></td>
                <td align="right">{{.Quantity}}</td>
                <td align="right">{{.Price.StringFixed 2}}</td>
                <td align="right">{{.Total.StringFixed 2}}</td>
            </tr>
            {{end}}
        </table>
        <p>Subtotal: {{.Subtotal.StringFixed 2}}</p>
        {{if .CouponCode}}<p>Discount ({{.CouponCode}}): -{{.DiscountAmount.StringFixed 2}}</p>{{end}}
        <p><strong>Total: {{.OrderTotal.StringFixed 2}}</strong></p>
        <p>Payment: {{.PaymentMethod}}{{if .Paid}} (paid){{end}}</p>
        <p>Shipping to: {{.ShippingTo}}</p>
        <p><a href="{{.OrderURL}}">View your order</a></p>
        <hr>
        <p style="font-size: 12px; color: #666;">&copy; {{.Year}} {{.SiteName}}. All rights reserved.</p>
    </div>
</body>
</html>`
