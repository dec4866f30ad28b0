// internal/domain/buyer/identity.go
package buyer

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrInvalidIdentity is returned when an identity carries both or neither of user and session
var ErrInvalidIdentity = errors.New("buyer identity must be exactly one of user or session")

// Identity says who is shopping: an authenticated user or an anonymous session, never both.
// It is passed explicitly into every cart, coupon and checkout operation.
type Identity struct {
	UserID       *uint
	SessionToken string
}

// ForUser returns the identity of an authenticated user
func ForUser(userID uint) Identity {
	return Identity{UserID: &userID}
}

// ForSession returns the identity of an anonymous session
func ForSession(token string) Identity {
	return Identity{SessionToken: token}
}

// Validate enforces the user XOR session rule
func (i Identity) Validate() error {
	hasUser := i.UserID != nil && *i.UserID != 0
	hasSession := i.SessionToken != ""
	if hasUser == hasSession {
		return ErrInvalidIdentity
	}
	return nil
}

// IsUser reports whether the identity is an authenticated user
func (i Identity) IsUser() bool {
	return i.UserID != nil && *i.UserID != 0
}

// Key is a stable string form used for cache keys and logs
func (i Identity) Key() string {
	if i.IsUser() {
		return fmt.Sprintf("user:%d", *i.UserID)
	}
	return "session:" + i.SessionToken
}

// Scope restricts a query on a table with user_id / session_token columns to this identity
func (i Identity) Scope(db *gorm.DB) *gorm.DB {
	if i.IsUser() {
		return db.Where("user_id = ?", *i.UserID)
	}
	return db.Where("session_token = ?", i.SessionToken)
}

// Columns returns the nullable column values to persist for this identity
func (i Identity) Columns() (*uint, *string) {
	if i.IsUser() {
		id := *i.UserID
		return &id, nil
	}
	token := i.SessionToken
	return nil, &token
}
