package notifications

import (
	"time"

	"github.com/duongph/go-order-fulfillment/internal/bus"
)

// Type tags are part of the contract with clients; bodies are presentation.
const (
	TypeOrderCreated    = "order_created"
	TypeStatusChanged   = "order_status_changed"
	TypeCourierAssigned = "courier_assigned"
	TypeOrderDelivered  = "order_delivered"
	TypeOrderCancelled  = "order_cancelled"
)

// Recipient addresses either a single user or a role group, never both.
type Recipient struct {
	UserID string
	Group  string
}

func UserRecipient(userID string) Recipient { return Recipient{UserID: userID} }

func GroupRecipient(tag string) Recipient { return Recipient{Group: tag} }

func (r Recipient) Valid() bool {
	return (r.UserID != "") != (r.Group != "")
}

func (r Recipient) Topic() string {
	if r.UserID != "" {
		return bus.UserTopic(r.UserID)
	}
	return bus.GroupTopic(r.Group)
}

type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id,omitempty"`
	Group     string    `json:"group,omitempty"`
	Type      string    `json:"type"`
	Body      string    `json:"body"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

func (n *Notification) Recipient() Recipient {
	if n.UserID != "" {
		return UserRecipient(n.UserID)
	}
	return GroupRecipient(n.Group)
}

// OrderEvent is the slice of an order a dispatch decision needs. Status and
// reason come in as plain strings to keep this package free of the order
// domain types.
type OrderEvent struct {
	OrderID     string
	BuyerID     string
	CourierID   string
	Status      string
	Reason      string
	TotalAmount int64
}
