package orders

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/duongph/go-order-fulfillment/internal/apperr"
	"github.com/duongph/go-order-fulfillment/internal/directory"
	"github.com/duongph/go-order-fulfillment/internal/notifications"
	"github.com/duongph/go-order-fulfillment/internal/vouchers"
)

// VoucherRedeemer is the redemption side of the discount ledger. Validate has
// no side effects; Redeem claims a slot; Release gives it back.
type VoucherRedeemer interface {
	Validate(ctx context.Context, code, buyerID string, subtotal int64) (*vouchers.Voucher, error)
	Redeem(ctx context.Context, voucherID string) error
	Release(ctx context.Context, voucherID string) error
}

// Notifier fans a committed lifecycle change out to its audiences. Called
// only after the store write succeeded; failures stay inside the notifier.
type Notifier interface {
	OrderCreated(ctx context.Context, ev notifications.OrderEvent)
	StatusChanged(ctx context.Context, ev notifications.OrderEvent)
}

// Journal records lifecycle events for downstream consumers, fire-and-forget.
type Journal interface {
	Record(eventType, orderID string, payload any)
}

// Service owns the order state machine and the checkout transaction.
type Service struct {
	store    Store
	vouchers VoucherRedeemer
	dir      directory.Client
	notifier Notifier
	journal  Journal // optional
	now      func() time.Time
}

func NewService(store Store, v VoucherRedeemer, dir directory.Client, n Notifier, j Journal) *Service {
	return &Service{store: store, vouchers: v, dir: dir, notifier: n, journal: j, now: time.Now}
}

type LineItemInput struct {
	ProductID string
	VariantID string
	Name      string
	UnitPrice int64
	Quantity  int
	ImageURL  string
}

type CreateOrderInput struct {
	BuyerID       string
	AddressID     string
	PaymentMethod PaymentMethod
	VoucherCode   string
	Items         []LineItemInput
}

func (in CreateOrderInput) validate() error {
	if in.BuyerID == "" {
		return apperr.New(apperr.CodeInvalidInput, "buyer_id required")
	}
	if in.AddressID == "" {
		return apperr.New(apperr.CodeInvalidInput, "address_id required")
	}
	if len(in.Items) == 0 {
		return apperr.New(apperr.CodeInvalidInput, "at least one line item required")
	}
	for i, it := range in.Items {
		if it.ProductID == "" {
			return apperr.Newf(apperr.CodeInvalidInput, "item %d: product_id required", i)
		}
		if it.UnitPrice <= 0 {
			return apperr.Newf(apperr.CodeInvalidInput, "item %d: unit_price must be positive", i)
		}
		if it.Quantity <= 0 {
			return apperr.Newf(apperr.CodeInvalidInput, "item %d: quantity must be positive", i)
		}
	}
	return nil
}

// CreateOrder validates input and collaborators, redeems the voucher (when
// supplied) and writes the order plus all line items atomically. The voucher
// redemption is claimed immediately before the order write; if that write
// fails the claimed slot is released again, so no redemption survives
// without its order.
func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (*Order, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	u, err := s.dir.ResolveUser(ctx, in.BuyerID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeDependencyUnavailable, "user lookup failed", err)
	}
	if u == nil {
		return nil, apperr.New(apperr.CodeNotFound, "buyer not found")
	}
	addr, err := s.dir.ResolveAddress(ctx, in.AddressID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeDependencyUnavailable, "address lookup failed", err)
	}
	if addr == nil {
		return nil, apperr.New(apperr.CodeNotFound, "address not found")
	}

	var subtotal int64
	quantity := 0
	for _, it := range in.Items {
		subtotal += it.UnitPrice * int64(it.Quantity)
		quantity += it.Quantity
	}

	var voucher *vouchers.Voucher
	if in.VoucherCode != "" {
		voucher, err = s.vouchers.Validate(ctx, in.VoucherCode, in.BuyerID, subtotal)
		if err != nil {
			return nil, err
		}
	}

	var discount int64
	if voucher != nil {
		discount = voucher.Discount(subtotal)
	}

	now := s.now().UTC()
	order := &Order{
		ID:            uuid.NewString(),
		BuyerID:       in.BuyerID,
		Status:        StatusPending,
		Quantity:      quantity,
		TotalAmount:   maxZero(subtotal - discount),
		PaymentMethod: in.PaymentMethod,
		AddressID:     in.AddressID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	for _, it := range in.Items {
		order.Items = append(order.Items, LineItem{
			ID:        uuid.NewString(),
			OrderID:   order.ID,
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			Name:      it.Name,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
			ImageURL:  it.ImageURL,
		})
	}

	if voucher != nil {
		// last step before the atomic write; both passing Validate on the
		// final slot resolves here, the loser gets "exhausted"
		if err := s.vouchers.Redeem(ctx, voucher.ID); err != nil {
			return nil, err
		}
		order.VoucherID = voucher.ID
	}

	if err := s.store.Create(ctx, order); err != nil {
		if voucher != nil {
			if rerr := s.vouchers.Release(ctx, voucher.ID); rerr != nil {
				log.Printf("orders: release voucher %s after failed create: %v", voucher.ID, rerr)
			}
		}
		return nil, apperr.Wrap(apperr.CodeStorageConflict, "order write failed", err)
	}

	s.notifier.OrderCreated(ctx, notifications.OrderEvent{
		OrderID:     order.ID,
		BuyerID:     order.BuyerID,
		Status:      string(order.Status),
		TotalAmount: order.TotalAmount,
	})
	if s.journal != nil {
		s.journal.Record(EventOrderCreated, order.ID, OrderCreatedPayload{
			OrderID:     order.ID,
			BuyerID:     order.BuyerID,
			Items:       snapshots(order.Items),
			TotalAmount: order.TotalAmount,
			VoucherID:   order.VoucherID,
		})
	}
	return order, nil
}

type TransitionInput struct {
	OrderID   string
	Actor     Role
	To        Status
	CourierID string
	Reason    string
}

// TransitionStatus validates the requested edge against the transition table
// and applies it with a compare-and-swap on the current status. A lost race
// surfaces as StorageConflict; the service never retries on its own.
func (s *Service) TransitionStatus(ctx context.Context, in TransitionInput) (*Order, error) {
	o, err := s.store.Get(ctx, in.OrderID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeDependencyUnavailable, "order lookup failed", err)
	}
	if o == nil {
		return nil, apperr.New(apperr.CodeNotFound, "order not found")
	}

	if err := CheckTransition(o.Status, in.To, in.Actor, in.CourierID, in.Reason); err != nil {
		return nil, err
	}

	upd := StatusUpdate{
		OrderID:   o.ID,
		From:      o.Status,
		To:        in.To,
		CourierID: in.CourierID,
		Reason:    in.Reason,
	}
	now := s.now().UTC()
	if in.To == StatusDelivered {
		upd.DeliveredAt = &now
	}

	swapped, err := s.store.UpdateStatus(ctx, upd)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeDependencyUnavailable, "status update failed", err)
	}
	if !swapped {
		return nil, apperr.New(apperr.CodeStorageConflict, "order changed concurrently, refresh and retry")
	}

	from := o.Status
	o.Status = in.To
	o.UpdatedAt = now
	if in.CourierID != "" {
		o.CourierID = in.CourierID
	}
	if in.To == StatusCancelled {
		o.CancelReason = in.Reason
	}
	if in.To == StatusDelivered {
		o.DeliveredAt = &now
	}

	s.notifier.StatusChanged(ctx, notifications.OrderEvent{
		OrderID:     o.ID,
		BuyerID:     o.BuyerID,
		CourierID:   o.CourierID,
		Status:      string(o.Status),
		Reason:      o.CancelReason,
		TotalAmount: o.TotalAmount,
	})
	if s.journal != nil {
		s.journal.Record(EventStatusChanged, o.ID, StatusChangedPayload{
			OrderID:     o.ID,
			From:        from,
			To:          o.Status,
			Actor:       in.Actor,
			CourierID:   in.CourierID,
			Reason:      in.Reason,
			DeliveredAt: upd.DeliveredAt,
		})
	}
	return o, nil
}

func (s *Service) GetOrder(ctx context.Context, id string) (*Order, error) {
	o, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeDependencyUnavailable, "order lookup failed", err)
	}
	if o == nil {
		return nil, apperr.New(apperr.CodeNotFound, "order not found")
	}
	return o, nil
}

type PageResult struct {
	Orders   []Order
	Total    int
	Page     int
	PageSize int
}

func (s *Service) ListOrders(ctx context.Context, f ListFilter, page, pageSize int, sortDesc bool) (*PageResult, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	out, total, err := s.store.List(ctx, f, page, pageSize, sortDesc)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeDependencyUnavailable, "order list failed", err)
	}
	return &PageResult{Orders: out, Total: total, Page: page, PageSize: pageSize}, nil
}

func snapshots(items []LineItem) []ItemSnapshot {
	out := make([]ItemSnapshot, 0, len(items))
	for _, it := range items {
		out = append(out, ItemSnapshot{
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			Qty:       it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}
	return out
}

func maxZero(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}
