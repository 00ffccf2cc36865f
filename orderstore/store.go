// Package orderstore owns order records and is the single enforcement point
// for the lifecycle state machine. Agents mutate orders only through
// Transition; reads return snapshots, never the owned record.
package orderstore

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"taap-agent-system/models"
)

// CreateRequest carries the validated fields for a new order.
type CreateRequest struct {
	PayerAddress string
	ServiceCode  models.ServiceCode
	Requirement  string
	Chain        string
}

// Store holds all order records in memory, keyed by id. The mutex
// serializes transitions per order so the state-and-history pair never
// observes a torn update.
type Store struct {
	mu     sync.Mutex
	orders map[string]*models.Order
}

// NewStore returns an empty order store.
func NewStore() *Store {
	return &Store{orders: make(map[string]*models.Order)}
}

// Create validates the required fields and produces a new order in RECEIVED
// with a single history entry. Order ids are never reused.
func (s *Store) Create(req CreateRequest) (*models.Order, error) {
	if req.PayerAddress == "" {
		return nil, models.NewFormatError("payer address is required")
	}
	if !models.ValidServiceCode(req.ServiceCode) {
		return nil, models.NewFormatError("invalid service code: %s", req.ServiceCode)
	}
	if req.Requirement == "" {
		return nil, models.NewFormatError("requirement is required")
	}
	if req.Chain == "" {
		return nil, models.NewFormatError("chain is required")
	}

	order := &models.Order{
		ID:           fmt.Sprintf("ADS_%s", uuid.NewString()),
		PayerAddress: req.PayerAddress,
		ServiceCode:  req.ServiceCode,
		Requirement:  req.Requirement,
		Chain:        req.Chain,
		Price:        models.ServicePrice(req.ServiceCode),
		State:        models.StateReceived,
		History: []models.StateChange{
			{State: models.StateReceived, Timestamp: time.Now()},
		},
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[order.ID] = order
	return snapshot(order), nil
}

// Get returns a snapshot of the order, or an order-not-found error.
func (s *Store) Get(orderID string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[orderID]
	if !ok {
		return nil, &models.OrderNotFoundError{OrderID: orderID}
	}
	return snapshot(order), nil
}

// Transition moves the order to target if the lifecycle table permits it,
// appending (target, now) to the history. On an illegal transition the
// order is left untouched and the error names both states.
func (s *Store) Transition(orderID string, target models.OrderState) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[orderID]
	if !ok {
		return nil, &models.OrderNotFoundError{OrderID: orderID}
	}
	if !models.IsValidTransition(order.State, target) {
		return nil, &models.InvalidTransitionError{OrderID: orderID, From: order.State, To: target}
	}

	order.State = target
	order.History = append(order.History, models.StateChange{State: target, Timestamp: time.Now()})
	return snapshot(order), nil
}

// StatusReport renders the order's history in chronological order, marking
// past states with a check and the current state with an arrow.
func (s *Store) StatusReport(orderID string) (string, error) {
	order, err := s.Get(orderID)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Order:%s", order.ID)
	for i, change := range order.History {
		symbol := "✓"
		if i == len(order.History)-1 {
			symbol = "►"
		}
		fmt.Fprintf(&b, "\n%s %s", symbol, change.State)
	}
	return b.String(), nil
}

func snapshot(order *models.Order) *models.Order {
	copied := *order
	copied.History = append([]models.StateChange(nil), order.History...)
	return &copied
}
