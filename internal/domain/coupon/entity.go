// internal/domain/coupon/entity.go
package coupon

import (
	"time"

	"github.com/shopspring/decimal"
)

// Type is the discount kind of a coupon
type Type string

const (
	TypeFixed   Type = "fixed"
	TypePercent Type = "percent"
)

// Coupon represents a discount code
type Coupon struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	Code      string          `gorm:"uniqueIndex;not null;size:50" json:"code"`
	Type      Type            `gorm:"not null;size:20" json:"type"`
	Value     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"value"`
	ExpiresAt *time.Time      `json:"expires_at,omitempty"`
	IsActive  bool            `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// TableName overrides the table name
func (Coupon) TableName() string { return "coupons" }

// IsExpired reports whether the coupon expired before t
func (c *Coupon) IsExpired(t time.Time) bool {
	return c.ExpiresAt != nil && c.ExpiresAt.Before(t)
}

// AppliedCoupon is what gets remembered for a buyer between apply and checkout
type AppliedCoupon struct {
	Code  string          `json:"code"`
	Type  Type            `json:"type"`
	Value decimal.Decimal `json:"value"`
}

// ApplyRequest represents a coupon application
type ApplyRequest struct {
	Code string `json:"code" form:"code" binding:"required"`
}
