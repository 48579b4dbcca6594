package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/duongph/go-order-fulfillment/internal/apperr"
	"github.com/duongph/go-order-fulfillment/internal/bus"
	"github.com/duongph/go-order-fulfillment/internal/redisx"
)

// Dispatcher turns a committed order event into durable notification records
// plus a best-effort real-time push. The record write is the contract; the
// push may be lost.
type Dispatcher struct {
	store      Store
	bus        bus.Bus
	staffGroup string
	rdb        *redis.Client // optional unread-count cache
	now        func() time.Time
}

func NewDispatcher(store Store, b bus.Bus, staffGroup string) (*Dispatcher, error) {
	if store == nil {
		return nil, errors.New("notifications: nil store")
	}
	if b == nil {
		return nil, errors.New("notifications: nil bus")
	}
	if staffGroup == "" {
		return nil, errors.New("notifications: empty staff group id")
	}
	return &Dispatcher{store: store, bus: b, staffGroup: staffGroup, now: time.Now}, nil
}

func (d *Dispatcher) SetRedisClient(rdb *redis.Client) { d.rdb = rdb }

// Notify persists the record first, then publishes the same payload on the
// recipient's topic. A publish failure is logged and swallowed; a store
// failure is returned.
func (d *Dispatcher) Notify(ctx context.Context, rcpt Recipient, typ, body string) (*Notification, error) {
	if !rcpt.Valid() {
		return nil, apperr.New(apperr.CodeInvalidInput, "recipient must be exactly one of user or group")
	}
	n := &Notification{
		ID:        uuid.NewString(),
		UserID:    rcpt.UserID,
		Group:     rcpt.Group,
		Type:      typ,
		Body:      body,
		CreatedAt: d.now().UTC(),
	}
	if err := d.store.Insert(ctx, n); err != nil {
		return nil, err
	}
	d.invalidateUnread(ctx, rcpt)

	payload, err := json.Marshal(n)
	if err == nil {
		err = d.bus.Publish(ctx, rcpt.Topic(), payload)
	}
	if err != nil {
		log.Printf("notify: push to %s dropped: %v", rcpt.Topic(), err)
	}
	return n, nil
}

// OrderCreated fans out to the buyer and to the staff group. The branches
// are independent: one failing must not cancel the other's record write, so
// no shared-cancel group here.
func (d *Dispatcher) OrderCreated(ctx context.Context, ev OrderEvent) {
	var g errgroup.Group
	g.Go(func() error {
		_, err := d.Notify(ctx, UserRecipient(ev.BuyerID), TypeOrderCreated,
			bodyOrderCreated(ev.OrderID, ev.TotalAmount))
		return err
	})
	g.Go(func() error {
		_, err := d.Notify(ctx, GroupRecipient(d.staffGroup), TypeOrderCreated,
			bodyOrderCreatedStaff(ev.OrderID, ev.TotalAmount))
		return err
	})
	if err := g.Wait(); err != nil {
		log.Printf("notify: order created fan-out for %s: %v", ev.OrderID, err)
	}
}

// StatusChanged always informs the buyer; a move into shipping additionally
// informs the newly assigned courier.
func (d *Dispatcher) StatusChanged(ctx context.Context, ev OrderEvent) {
	typ, body := statusMessage(ev)
	var g errgroup.Group
	g.Go(func() error {
		_, err := d.Notify(ctx, UserRecipient(ev.BuyerID), typ, body)
		return err
	})
	if ev.Status == "shipping" && ev.CourierID != "" {
		g.Go(func() error {
			_, err := d.Notify(ctx, UserRecipient(ev.CourierID), TypeCourierAssigned,
				bodyCourierAssigned(ev.OrderID))
			return err
		})
	}
	if err := g.Wait(); err != nil {
		log.Printf("notify: status change fan-out for %s: %v", ev.OrderID, err)
	}
}

func statusMessage(ev OrderEvent) (typ, body string) {
	switch ev.Status {
	case "delivered":
		return TypeOrderDelivered, bodyOrderDelivered(ev.OrderID)
	case "cancelled":
		return TypeOrderCancelled, bodyOrderCancelled(ev.OrderID, ev.Reason)
	default:
		return TypeStatusChanged, bodyStatusChanged(ev.OrderID, ev.Status)
	}
}

func (d *Dispatcher) List(ctx context.Context, rcpt Recipient, limit int) ([]Notification, error) {
	if !rcpt.Valid() {
		return nil, apperr.New(apperr.CodeInvalidInput, "recipient must be exactly one of user or group")
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return d.store.ListByRecipient(ctx, rcpt, limit)
}

// MarkRead is idempotent: marking an already-read notification succeeds and
// leaves the flag set. Only the recipient may mark; group membership is
// asserted by the caller, not verified here.
func (d *Dispatcher) MarkRead(ctx context.Context, id, requesterID string) (*Notification, error) {
	n, err := d.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, apperr.New(apperr.CodeNotFound, "notification not found")
	}
	if n.UserID != "" && n.UserID != requesterID {
		return nil, apperr.New(apperr.CodeUnauthorized, "not the recipient of this notification")
	}
	if n.Read {
		return n, nil
	}
	if err := d.store.MarkRead(ctx, id); err != nil {
		return nil, err
	}
	n.Read = true
	d.invalidateUnread(ctx, n.Recipient())
	return n, nil
}

func (d *Dispatcher) UnreadCount(ctx context.Context, rcpt Recipient) (int, error) {
	if !rcpt.Valid() {
		return 0, apperr.New(apperr.CodeInvalidInput, "recipient must be exactly one of user or group")
	}
	key := unreadKey(rcpt)
	if d.rdb != nil {
		if s, err := d.rdb.Get(ctx, key).Result(); err == nil {
			if n, err := strconv.Atoi(s); err == nil {
				return n, nil
			}
		}
	}
	n, err := d.store.CountUnread(ctx, rcpt)
	if err != nil {
		return 0, err
	}
	if d.rdb != nil {
		d.rdb.Set(ctx, key, strconv.Itoa(n), redisx.TTLUnreadCount)
	}
	return n, nil
}

func (d *Dispatcher) invalidateUnread(ctx context.Context, rcpt Recipient) {
	if d.rdb != nil {
		d.rdb.Del(ctx, unreadKey(rcpt))
	}
}

func unreadKey(rcpt Recipient) string {
	if rcpt.UserID != "" {
		return fmt.Sprintf(redisx.KeyUnreadUser, rcpt.UserID)
	}
	return fmt.Sprintf(redisx.KeyUnreadGroup, rcpt.Group)
}
