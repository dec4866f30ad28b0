// internal/pkg/pdf/service.go
package pdf

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/SebastiaanKlippert/go-wkhtmltopdf"
	"github.com/your-org/storefront/internal/config"
	"github.com/your-org/storefront/internal/domain/order"
)

// Service renders order invoices
type Service struct {
	config *config.Config
	tmpl   *template.Template
}

// NewService creates a new PDF service
func NewService(cfg *config.Config) *Service {
	return &Service{
		config: cfg,
		tmpl:   template.Must(template.New("invoice").Parse(invoiceTemplate)),
	}
}

// InvoiceData represents the data passed to the invoice template
type InvoiceData struct {
	InvoiceNumber string
	InvoiceDate   string
	Order         *order.Order
	Company       CompanyInfo
}

// CompanyInfo represents company information
type CompanyInfo struct {
	Name    string
	Address string
	Phone   string
	Email   string
	Website string
}

// GenerateInvoice renders the order snapshot and converts it to PDF with wkhtmltopdf
func (s *Service) GenerateInvoice(o *order.Order) (*bytes.Buffer, error) {
	htmlContent, err := s.RenderHTML(o)
	if err != nil {
		return nil, err
	}

	pdfg, err := wkhtmltopdf.NewPDFGenerator()
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF generator: %w", err)
	}

	pdfg.Dpi.Set(300)
	pdfg.Orientation.Set(wkhtmltopdf.OrientationPortrait)
	pdfg.Grayscale.Set(false)

	page := wkhtmltopdf.NewPageReader(bytes.NewReader(htmlContent))
	page.FooterRight.Set("[page]")
	page.FooterFontSize.Set(9)
	page.Zoom.Set(0.95)
	pdfg.AddPage(page)

	if err := pdfg.Create(); err != nil {
		return nil, fmt.Errorf("failed to create PDF: %w", err)
	}

	return bytes.NewBuffer(pdfg.Bytes()), nil
}

// RenderHTML renders the invoice page for o
func (s *Service) RenderHTML(o *order.Order) ([]byte, error) {
	data := InvoiceData{
		InvoiceNumber: fmt.Sprintf("INV-%s", o.OrderNumber),
		InvoiceDate:   time.Now().Format("January 2, 2006"),
		Order:         o,
		Company: CompanyInfo{
			Name:    s.config.App.CompanyName,
			Address: s.config.App.CompanyAddress,
			Phone:   s.config.App.CompanyPhone,
			Email:   s.config.App.CompanyEmail,
			Website: s.config.App.CompanyWebsite,
		},
	}

	var buf bytes.Buffer
	if err := s.tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to generate HTML: %w", err)
	}
	return buf.Bytes(), nil
}

// wkhtmltopdf ships an old WebKit, so the layout sticks to tables.
const invoiceTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>Invoice {{.InvoiceNumber}}</title>
<style>
body { font-family: Helvetica, Arial, sans-serif; font-size: 13px; color: #222; margin: 24px; }
table { width: 100%; border-collapse: collapse; }
h1 { font-size: 20px; margin: 0 0 4px; }
.muted { color: #777; }
.right { text-align: right; }
.lines th { background: #f2f2f2; text-align: left; }
.lines th, .lines td { border-bottom: 1px solid #ddd; padding: 8px 6px; }
.sums td { padding: 4px 6px; }
.grand td { font-size: 16px; font-weight: bold; border-top: 2px solid #222; }
.badge { padding: 2px 6px; border-radius: 3px; font-size: 11px; text-transform: uppercase; }
.status-paid { background: #dcfce7; color: #166534; }
.status-pending { background: #fef3c7; color: #92400e; }
</style>
</head>
<body>
<table>
<tr>
<td>
<h1>{{.Company.Name}}</h1>
<div class="muted">{{.Company.Address}}</div>
<div class="muted">{{.Company.Email}} &middot; {{.Company.Phone}} &middot; {{.Company.Website}}</div>
</td>
<td class="right">
<h1>INVOICE {{.InvoiceNumber}}</h1>
<div>Issued {{.InvoiceDate}}</div>
<div>Order {{.Order.OrderNumber}}, placed {{.Order.CreatedAt.Format "2006-01-02"}}</div>
<div>{{.Order.PaymentMethod}} <span class="badge {{if .Order.IsPaid}}status-paid{{else}}status-pending{{end}}">{{if .Order.IsPaid}}paid{{else}}unpaid{{end}}</span> &middot; {{.Order.Status}}</div>
</td>
</tr>
</table>

<p>
<strong>Ship to</strong><br>
{{.Order.FirstName}} {{.Order.LastName}}<br>
{{.Order.Address}}, {{.Order.City}} {{.Order.PostalCode}}<br>
{{.Order.Phone}} &middot; {{.Order.Email}}
</p>

<table class="lines">
<tr><th>Item</th><th class="right">Qty</th><th class="right">Unit ({{.Order.Currency}})</th><th class="right">Line</th></tr>
{{range .Order.Items}}
<tr>
<td>{{.ProductName}}<br><span class="muted">{{.VariantTitle}}</span></td>
<td class="right">{{.Quantity}}</td>
<td class="right">{{.UnitPrice.StringFixed 2}}</td>
<td class="right">{{.LineTotal.StringFixed 2}}</td>
</tr>
{{end}}
</table>

<table class="sums">
<tr><td class="right">Subtotal</td><td class="right">{{.Order.Subtotal.StringFixed 2}}</td></tr>
{{if .Order.DiscountAmount.IsPositive}}<tr><td class="right">Discount{{if .Order.CouponCode}} ({{.Order.CouponCode}}){{end}}</td><td class="right">-{{.Order.DiscountAmount.StringFixed 2}}</td></tr>{{end}}
<tr class="grand"><td class="right">Total</td><td class="right">{{.Order.TotalPrice.StringFixed 2}}</td></tr>
</table>

<p class="muted">Questions about this invoice? Write to {{.Company.Email}}.</p>
</body>
</html>
`
