// internal/domain/order/entity.go
package order

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderStatus represents the order status
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// PaymentMethod is how the buyer pays
type PaymentMethod string

const (
	PaymentMethodCOD  PaymentMethod = "cod"
	PaymentMethodCard PaymentMethod = "card"
)

// Valid reports whether m is a supported payment method
func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodCOD || m == PaymentMethodCard
}

// PaymentStatus represents the state of a provider payment session
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusPaid      PaymentStatus = "paid"
	PaymentStatusCancelled PaymentStatus = "cancelled"
	// PaymentStatusRefundRequired marks money captured for an order that was already cancelled
	PaymentStatusRefundRequired PaymentStatus = "refund_required"
)

// Order is the buyer's contact and shipping snapshot plus the computed totals
type Order struct {
	ID           uint    `gorm:"primaryKey" json:"id"`
	OrderNumber  string  `gorm:"uniqueIndex;not null;size:50" json:"order_number"`
	UserID       *uint   `gorm:"index" json:"user_id,omitempty"` // nil for guest orders
	SessionToken *string `gorm:"index;size:64" json:"-"`

	// Contact and shipping
	FirstName  string `gorm:"not null;size:100" json:"first_name"`
	LastName   string `gorm:"not null;size:100" json:"last_name"`
	Email      string `gorm:"not null;size:255" json:"email"`
	Phone      string `gorm:"not null;size:20" json:"phone"`
	Address    string `gorm:"not null;size:255" json:"address"`
	City       string `gorm:"not null;size:100" json:"city"`
	PostalCode string `gorm:"not null;size:20" json:"postal_code"`

	// Totals
	Subtotal       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"discount_amount"`
	TotalPrice     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_price"`
	CouponCode     string          `gorm:"size:50" json:"coupon_code,omitempty"`
	Currency       string          `gorm:"size:3;default:'usd'" json:"currency"`

	Status        OrderStatus   `gorm:"not null;size:20;default:'pending';index" json:"status"`
	PaymentMethod PaymentMethod `gorm:"not null;size:10" json:"payment_method"`
	IsPaid        bool          `gorm:"not null;default:false" json:"is_paid"`
	PaidAt        *time.Time    `json:"paid_at,omitempty"`
	CancelledAt   *time.Time    `json:"cancelled_at,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Items         []OrderItem          `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items"`
	Payments      []Payment            `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"payments,omitempty"`
	StatusHistory []OrderStatusHistory `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"status_history,omitempty"`
}

// OrderItem is an immutable copy of a cart line at purchase time.
// Names and prices are copied so later catalog edits do not rewrite history.
type OrderItem struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	OrderID        uint            `gorm:"not null;index" json:"order_id"`
	ProductID      uint            `gorm:"not null;index" json:"product_id"`
	ProductStockID uint            `gorm:"not null;index" json:"product_stock_id"`
	ProductName    string          `gorm:"not null;size:255" json:"product_name"`
	ColorName      string          `gorm:"size:50" json:"color_name"`
	SizeName       string          `gorm:"size:20" json:"size_name"`
	Quantity       int             `gorm:"not null" json:"quantity"`
	UnitPrice      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	LineTotal      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"line_total"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Payment records a hosted payment session opened for an order
type Payment struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	OrderID           uint            `gorm:"not null;index" json:"order_id"`
	Provider          string          `gorm:"not null;size:50" json:"provider"`
	ProviderSessionID string          `gorm:"size:255;index" json:"provider_session_id"`
	Amount            decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Currency          string          `gorm:"size:3" json:"currency"`
	Status            PaymentStatus   `gorm:"not null;size:20" json:"status"`
	ProcessedAt       *time.Time      `json:"processed_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// OrderStatusHistory tracks order status changes
type OrderStatusHistory struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	OrderID   uint        `gorm:"not null;index" json:"order_id"`
	Status    OrderStatus `gorm:"not null;size:20" json:"status"`
	Comment   string      `gorm:"type:text" json:"comment"`
	CreatedBy uint        `json:"created_by"` // 0 for system changes
	CreatedAt time.Time   `json:"created_at"`
}

// TableName overrides
func (Order) TableName() string              { return "orders" }
func (OrderItem) TableName() string          { return "order_items" }
func (Payment) TableName() string            { return "payments" }
func (OrderStatusHistory) TableName() string { return "order_status_history" }

// FormatOrderNumber renders ORD-YYYYMMDD-NNNNN
func FormatOrderNumber(createdAt time.Time, id uint) string {
	return fmt.Sprintf("ORD-%s-%05d", createdAt.Format("20060102"), id)
}

// FullName returns the buyer's name as entered at checkout
func (o *Order) FullName() string {
	return o.FirstName + " " + o.LastName
}

// CanBeCancelled checks if order can be cancelled
func (o *Order) CanBeCancelled() bool {
	return o.Status == OrderStatusPending || o.Status == OrderStatusProcessing
}

// IsReturnable reports whether goods have left the warehouse
func (o *Order) IsReturnable() bool {
	return o.Status == OrderStatusShipped || o.Status == OrderStatusCompleted
}

// VariantTitle returns the "color / size" label captured at purchase time
func (i *OrderItem) VariantTitle() string {
	return fmt.Sprintf("%s / %s", i.ColorName, i.SizeName)
}

// DisplayName is the line label shown on invoices and payment pages
func (i *OrderItem) DisplayName() string {
	return fmt.Sprintf("%s - %s", i.ProductName, i.VariantTitle())
}

var validTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusCompleted},
}

// CanTransition reports whether from may move to to
func CanTransition(from, to OrderStatus) bool {
	for _, status := range validTransitions[from] {
		if status == to {
			return true
		}
	}
	return false
}
