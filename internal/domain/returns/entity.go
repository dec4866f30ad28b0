// internal/domain/returns/entity.go
package returns

import (
	"time"
)

// Status represents the return request status
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusRefunded Status = "refunded"
)

// ReturnRequest is a buyer's request to send an order back. One per order.
type ReturnRequest struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	OrderID       uint      `gorm:"not null;uniqueIndex" json:"order_id"`
	UserID        uint      `gorm:"not null;index" json:"user_id"`
	Reason        string    `gorm:"type:text;not null" json:"reason"`
	Status        Status    `gorm:"not null;size:20;default:'pending';index" json:"status"`
	AdminResponse string    `gorm:"type:text" json:"admin_response,omitempty"`
	ReviewedBy    *uint     `json:"reviewed_by,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName overrides the table name
func (ReturnRequest) TableName() string { return "return_requests" }

// CreateRequest represents a buyer's return request
type CreateRequest struct {
	Reason string `json:"reason" form:"reason" binding:"required"`
}

// ReviewRequest represents an admin decision
type ReviewRequest struct {
	Status   Status `json:"status" binding:"required"`
	Response string `json:"response"`
}

var transitions = map[Status][]Status{
	StatusPending:  {StatusApproved, StatusRejected},
	StatusApproved: {StatusRefunded},
}

func canTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
