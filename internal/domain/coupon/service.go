// internal/domain/coupon/service.go
package coupon

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/domain/buyer"
	"gorm.io/gorm"
)

var (
	// ErrInvalidCoupon is returned for unknown or inactive codes
	ErrInvalidCoupon = errors.New("invalid coupon code")
	// ErrExpiredCoupon is returned for codes past their expiry
	ErrExpiredCoupon = errors.New("coupon has expired")
)

var hundred = decimal.NewFromInt(100)

// Service handles coupon business logic
type Service struct {
	db     *gorm.DB
	store  Store
	now    func() time.Time
	logger *logrus.Logger
}

// NewService creates a new coupon service. A nil clock means time.Now.
func NewService(db *gorm.DB, store Store, clock func() time.Time, logger *logrus.Logger) *Service {
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		db:     db,
		store:  store,
		now:    clock,
		logger: logger,
	}
}

// Apply validates code and remembers it for the buyer
func (s *Service) Apply(ctx context.Context, id buyer.Identity, code string) (*AppliedCoupon, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	c, err := s.Validate(ctx, code)
	if err != nil {
		return nil, err
	}

	applied := AppliedCoupon{Code: c.Code, Type: c.Type, Value: c.Value}
	if err := s.store.Save(ctx, id, applied); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"buyer":  id.Key(),
		"coupon": c.Code,
	}).Info("Coupon applied")

	return &applied, nil
}

// Applied returns the buyer's applied coupon, or nil
func (s *Service) Applied(ctx context.Context, id buyer.Identity) (*AppliedCoupon, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	return s.store.Load(ctx, id)
}

// Remove forgets the buyer's applied coupon
func (s *Service) Remove(ctx context.Context, id buyer.Identity) error {
	if err := id.Validate(); err != nil {
		return err
	}
	return s.store.Delete(ctx, id)
}

// Validate looks up code (trimmed, case-insensitive) and checks it is usable now
func (s *Service) Validate(ctx context.Context, code string) (*Coupon, error) {
	return s.validate(s.db.WithContext(ctx), code)
}

// ValidateTx is Validate read through an open transaction
func (s *Service) ValidateTx(tx *gorm.DB, code string) (*Coupon, error) {
	return s.validate(tx, code)
}

func (s *Service) validate(db *gorm.DB, code string) (*Coupon, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrInvalidCoupon
	}

	var c Coupon
	if err := db.Where("UPPER(code) = ?", strings.ToUpper(code)).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCoupon
		}
		return nil, fmt.Errorf("failed to load coupon: %w", err)
	}

	if !c.IsActive {
		return nil, ErrInvalidCoupon
	}
	if c.IsExpired(s.now()) {
		return nil, ErrExpiredCoupon
	}
	return &c, nil
}

// Discount computes the amount a coupon takes off subtotal. It never exceeds subtotal.
func Discount(applied *AppliedCoupon, subtotal decimal.Decimal) decimal.Decimal {
	if applied == nil || !subtotal.IsPositive() {
		return decimal.Zero
	}

	var amount decimal.Decimal
	switch applied.Type {
	case TypeFixed:
		amount = applied.Value
	case TypePercent:
		amount = subtotal.Mul(applied.Value).Div(hundred).Round(2)
	default:
		return decimal.Zero
	}

	if amount.IsNegative() {
		return decimal.Zero
	}
	return decimal.Min(amount, subtotal)
}
