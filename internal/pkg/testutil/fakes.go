package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/your-org/storefront/internal/domain/buyer"
	"github.com/your-org/storefront/internal/domain/coupon"
	"github.com/your-org/storefront/internal/domain/payment"
	"github.com/your-org/storefront/internal/pkg/email"
)

// MemoryCouponStore is an in-process coupon.Store
type MemoryCouponStore struct {
	mu      sync.Mutex
	applied map[string]coupon.AppliedCoupon
	// LoadErr is returned by Load when set
	LoadErr error
}

// NewMemoryCouponStore creates an empty store
func NewMemoryCouponStore() *MemoryCouponStore {
	return &MemoryCouponStore{applied: make(map[string]coupon.AppliedCoupon)}
}

func (s *MemoryCouponStore) Save(_ context.Context, id buyer.Identity, applied coupon.AppliedCoupon) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applied[id.Key()] = applied
	return nil
}

func (s *MemoryCouponStore) Load(_ context.Context, id buyer.Identity) (*coupon.AppliedCoupon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.LoadErr != nil {
		return nil, s.LoadErr
	}
	applied, ok := s.applied[id.Key()]
	if !ok {
		return nil, nil
	}
	return &applied, nil
}

func (s *MemoryCouponStore) Delete(_ context.Context, id buyer.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.applied, id.Key())
	return nil
}

// Has reports whether a coupon is remembered for id
func (s *MemoryCouponStore) Has(id buyer.Identity) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.applied[id.Key()]
	return ok
}

// FakeGateway records session requests instead of calling a provider
type FakeGateway struct {
	mu       sync.Mutex
	Requests []payment.SessionRequest
	Expired  []string
	// Err makes CreateSession fail when set
	Err error
	// ExpireErr makes ExpireSession fail when set
	ExpireErr error
}

func (g *FakeGateway) CreateSession(_ context.Context, req payment.SessionRequest) (*payment.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return nil, g.Err
	}
	g.Requests = append(g.Requests, req)
	id := fmt.Sprintf("cs_test_%d", len(g.Requests))
	return &payment.Session{
		ID:       id,
		URL:      "https://checkout.stripe.test/pay/" + id,
		Provider: payment.ProviderStripe,
	}, nil
}

func (g *FakeGateway) ExpireSession(_ context.Context, sessionID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ExpireErr != nil {
		return g.ExpireErr
	}
	g.Expired = append(g.Expired, sessionID)
	return nil
}

// ExpiredSessions returns the session ids closed so far
func (g *FakeGateway) ExpiredSessions() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.Expired...)
}

// Calls returns how many sessions were opened
func (g *FakeGateway) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Requests)
}

// RecordingNotifier keeps every confirmation it is asked to send
type RecordingNotifier struct {
	mu   sync.Mutex
	Sent []email.OrderConfirmationData
}

func (n *RecordingNotifier) SendOrderConfirmationEmail(_ context.Context, data email.OrderConfirmationData) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Sent = append(n.Sent, data)
	return nil
}

// Count returns how many confirmations were sent
func (n *RecordingNotifier) Count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.Sent)
}
