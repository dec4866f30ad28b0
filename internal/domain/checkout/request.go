// internal/domain/checkout/request.go
package checkout

import (
	"errors"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/your-org/storefront/internal/domain/order"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9 ()\-]{7,20}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("payment_method", func(fl validator.FieldLevel) bool {
		return order.PaymentMethod(fl.Field().String()).Valid()
	})
	return v
}

// Request is the checkout form
type Request struct {
	FirstName     string              `json:"first_name" form:"first_name" validate:"required,max=100"`
	LastName      string              `json:"last_name" form:"last_name" validate:"required,max=100"`
	Email         string              `json:"email" form:"email" validate:"required,email,max=255"`
	Phone         string              `json:"phone" form:"phone" validate:"required,phone"`
	Address       string              `json:"address" form:"address" validate:"required,max=255"`
	City          string              `json:"city" form:"city" validate:"required,max=100"`
	PostalCode    string              `json:"postal_code" form:"postal_code" validate:"required,max=20"`
	PaymentMethod order.PaymentMethod `json:"payment_method" form:"payment_method" validate:"required,payment_method"`
}

var fieldNames = map[string]string{
	"FirstName":     "first_name",
	"LastName":      "last_name",
	"Email":         "email",
	"Phone":         "phone",
	"Address":       "address",
	"City":          "city",
	"PostalCode":    "postal_code",
	"PaymentMethod": "payment_method",
}

// Normalize trims whitespace and lowercases the email and payment method
func (r *Request) Normalize() {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Phone = strings.TrimSpace(r.Phone)
	r.Address = strings.TrimSpace(r.Address)
	r.City = strings.TrimSpace(r.City)
	r.PostalCode = strings.TrimSpace(r.PostalCode)
	r.PaymentMethod = order.PaymentMethod(strings.ToLower(strings.TrimSpace(string(r.PaymentMethod))))
}

// Validate returns a *ValidationError naming every bad field
func (r *Request) Validate() error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	fields := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		name := fieldNames[fe.StructField()]
		if _, seen := fields[name]; seen {
			continue
		}
		fields[name] = message(fe)
	}
	return &ValidationError{Fields: fields}
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "phone":
		return "must be a valid phone number"
	case "payment_method":
		return "must be cod or card"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	default:
		return "is invalid"
	}
}
