package orders

import (
	"encoding/json"
	"time"
)

// Lifecycle events emitted to the journal after a committed write. Keyed by
// order id so one order's events keep their order.
const (
	EventOrderCreated  = "OrderCreated"
	EventStatusChanged = "OrderStatusChanged"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id"` // order_id
	Payload       json.RawMessage `json:"payload"`
}

type ItemSnapshot struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id"`
	Qty       int    `json:"qty"`
	UnitPrice int64  `json:"unit_price"`
}

type OrderCreatedPayload struct {
	OrderID     string         `json:"order_id"`
	BuyerID     string         `json:"buyer_id"`
	Items       []ItemSnapshot `json:"items"`
	TotalAmount int64          `json:"total_amount"`
	VoucherID   string         `json:"voucher_id,omitempty"`
}

type StatusChangedPayload struct {
	OrderID     string     `json:"order_id"`
	From        Status     `json:"from"`
	To          Status     `json:"to"`
	Actor       Role       `json:"actor"`
	CourierID   string     `json:"courier_id,omitempty"`
	Reason      string     `json:"reason,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
}
