// internal/domain/inventory/entity.go
package inventory

import (
	"time"
)

// MovementType represents the direction of a stock movement
type MovementType string

const (
	MovementTypeInbound  MovementType = "inbound"  // cancellation, return, adjustment increase
	MovementTypeOutbound MovementType = "outbound" // sale, adjustment decrease
)

// MovementReason represents why stock moved
type MovementReason string

const (
	ReasonSale         MovementReason = "sale"
	ReasonCancellation MovementReason = "cancellation"
	ReasonReturn       MovementReason = "return"
	ReasonAdjustment   MovementReason = "adjustment"
)

// StockMovement is an append-only audit row written in the same transaction as the quantity change
type StockMovement struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	ProductStockID   uint           `gorm:"not null;index" json:"product_stock_id"`
	MovementType     MovementType   `gorm:"not null;size:20" json:"movement_type"`
	Reason           MovementReason `gorm:"not null;size:20" json:"reason"`
	Quantity         int            `gorm:"not null" json:"quantity"`
	PreviousQuantity int            `gorm:"not null" json:"previous_quantity"`
	NewQuantity      int            `gorm:"not null" json:"new_quantity"`
	ReferenceType    string         `gorm:"size:50;index:idx_movement_reference" json:"reference_type"` // "order", "return", "admin"
	ReferenceID      uint           `gorm:"index:idx_movement_reference" json:"reference_id"`
	Notes            string         `gorm:"type:text" json:"notes"`
	CreatedAt        time.Time      `json:"created_at"`
}

// TableName overrides the table name
func (StockMovement) TableName() string { return "stock_movements" }

// Reference ties a movement to the record that caused it
type Reference struct {
	Type string
	ID   uint
}

// Reference types
const (
	RefOrder  = "order"
	RefReturn = "return"
	RefAdmin  = "admin"
	// RefCheckout marks movements taken before the order row exists
	RefCheckout = "checkout"
)
