package notifications

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duongph/go-order-fulfillment/internal/apperr"
	"github.com/duongph/go-order-fulfillment/internal/bus"
)

type memNotifStore struct {
	mu   sync.Mutex
	recs []*Notification
}

func (m *memNotifStore) Insert(_ context.Context, n *Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *n
	m.recs = append(m.recs, &cp)
	return nil
}

func (m *memNotifStore) Get(_ context.Context, id string) (*Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.recs {
		if n.ID == id {
			cp := *n
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memNotifStore) ListByRecipient(_ context.Context, r Recipient, limit int) ([]Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Notification
	for _, n := range m.recs {
		if len(out) >= limit {
			break
		}
		if (r.UserID != "" && n.UserID == r.UserID) || (r.Group != "" && n.Group == r.Group) {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (m *memNotifStore) MarkRead(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.recs {
		if n.ID == id {
			n.Read = true
		}
	}
	return nil
}

func (m *memNotifStore) CountUnread(_ context.Context, r Recipient) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, rec := range m.recs {
		if rec.Read {
			continue
		}
		if (r.UserID != "" && rec.UserID == r.UserID) || (r.Group != "" && rec.Group == r.Group) {
			n++
		}
	}
	return n, nil
}

func (m *memNotifStore) byRecipient(r Recipient) []*Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Notification
	for _, n := range m.recs {
		if (r.UserID != "" && n.UserID == r.UserID) || (r.Group != "" && n.Group == r.Group) {
			out = append(out, n)
		}
	}
	return out
}

type memBus struct {
	mu        sync.Mutex
	published map[string][][]byte
}

func newMemBus() *memBus { return &memBus{published: map[string][][]byte{}} }

func (b *memBus) Publish(_ context.Context, topic string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published[topic] = append(b.published[topic], payload)
	return nil
}

func (b *memBus) Subscribe(context.Context, ...string) (<-chan bus.Message, func() error, error) {
	ch := make(chan bus.Message)
	close(ch)
	return ch, func() error { return nil }, nil
}

func (b *memBus) count(topic string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.published[topic])
}

type failBus struct{ memBus }

func (b *failBus) Publish(context.Context, string, []byte) error {
	return errors.New("bus down")
}

func TestNewDispatcherRequiresDeps(t *testing.T) {
	_, err := NewDispatcher(nil, newMemBus(), "admins")
	assert.Error(t, err)
	_, err = NewDispatcher(&memNotifStore{}, nil, "admins")
	assert.Error(t, err)
	_, err = NewDispatcher(&memNotifStore{}, newMemBus(), "")
	assert.Error(t, err)
}

func TestNotifyWritesRecordAndPublishes(t *testing.T) {
	store := &memNotifStore{}
	b := newMemBus()
	d, err := NewDispatcher(store, b, "admins")
	require.NoError(t, err)

	n, err := d.Notify(context.Background(), UserRecipient("user-1"), TypeOrderCreated, "hello")
	require.NoError(t, err)
	assert.NotEmpty(t, n.ID)
	assert.False(t, n.Read)
	assert.Len(t, store.recs, 1)
	assert.Equal(t, 1, b.count(bus.UserTopic("user-1")))
}

func TestNotifySurvivesBusOutage(t *testing.T) {
	store := &memNotifStore{}
	d, err := NewDispatcher(store, &failBus{}, "admins")
	require.NoError(t, err)

	// record durability is the contract; the push is best-effort
	n, err := d.Notify(context.Background(), UserRecipient("user-1"), TypeOrderCreated, "hello")
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Len(t, store.recs, 1)
}

func TestNotifyRejectsAmbiguousRecipient(t *testing.T) {
	d, err := NewDispatcher(&memNotifStore{}, newMemBus(), "admins")
	require.NoError(t, err)

	_, err = d.Notify(context.Background(), Recipient{}, TypeOrderCreated, "x")
	assert.Equal(t, apperr.CodeInvalidInput, apperr.CodeOf(err))
	_, err = d.Notify(context.Background(), Recipient{UserID: "u", Group: "g"}, TypeOrderCreated, "x")
	assert.Equal(t, apperr.CodeInvalidInput, apperr.CodeOf(err))
}

func TestOrderCreatedFansOutToBuyerAndStaff(t *testing.T) {
	store := &memNotifStore{}
	b := newMemBus()
	d, err := NewDispatcher(store, b, "admins")
	require.NoError(t, err)

	d.OrderCreated(context.Background(), OrderEvent{
		OrderID: "8ab129e4-0000-0000-0000-77aa0cd1f00d", BuyerID: "buyer-1", Status: "pending", TotalAmount: 150000,
	})

	buyerRecs := store.byRecipient(UserRecipient("buyer-1"))
	staffRecs := store.byRecipient(GroupRecipient("admins"))
	require.Len(t, buyerRecs, 1)
	require.Len(t, staffRecs, 1)
	assert.Equal(t, TypeOrderCreated, buyerRecs[0].Type)
	assert.Equal(t, TypeOrderCreated, staffRecs[0].Type)
	assert.Contains(t, buyerRecs[0].Body, "D1F00D") // order ref = uppercased id suffix
	assert.Contains(t, buyerRecs[0].Body, "150000")
	assert.Equal(t, 1, b.count(bus.UserTopic("buyer-1")))
	assert.Equal(t, 1, b.count(bus.GroupTopic("admins")))
}

func TestStatusChangedShippingNotifiesCourier(t *testing.T) {
	store := &memNotifStore{}
	b := newMemBus()
	d, err := NewDispatcher(store, b, "admins")
	require.NoError(t, err)

	d.StatusChanged(context.Background(), OrderEvent{
		OrderID: "o-1", BuyerID: "buyer-1", CourierID: "courier-7", Status: "shipping",
	})

	buyerRecs := store.byRecipient(UserRecipient("buyer-1"))
	courierRecs := store.byRecipient(UserRecipient("courier-7"))
	require.Len(t, buyerRecs, 1)
	require.Len(t, courierRecs, 1)
	assert.Equal(t, TypeStatusChanged, buyerRecs[0].Type)
	assert.Equal(t, TypeCourierAssigned, courierRecs[0].Type)
	assert.Equal(t, 1, b.count(bus.UserTopic("courier-7")))
}

func TestStatusChangedDeliveredAndCancelled(t *testing.T) {
	store := &memNotifStore{}
	d, err := NewDispatcher(store, newMemBus(), "admins")
	require.NoError(t, err)

	d.StatusChanged(context.Background(), OrderEvent{OrderID: "o-1", BuyerID: "buyer-1", Status: "delivered"})
	d.StatusChanged(context.Background(), OrderEvent{OrderID: "o-2", BuyerID: "buyer-1", Status: "cancelled", Reason: "out of stock"})

	recs := store.byRecipient(UserRecipient("buyer-1"))
	require.Len(t, recs, 2)
	assert.Equal(t, TypeOrderDelivered, recs[0].Type)
	assert.Equal(t, TypeOrderCancelled, recs[1].Type)
	assert.Contains(t, recs[1].Body, "out of stock")
}

func TestMarkReadIdempotent(t *testing.T) {
	store := &memNotifStore{}
	d, err := NewDispatcher(store, newMemBus(), "admins")
	require.NoError(t, err)

	n, err := d.Notify(context.Background(), UserRecipient("user-1"), TypeOrderCreated, "hello")
	require.NoError(t, err)

	first, err := d.MarkRead(context.Background(), n.ID, "user-1")
	require.NoError(t, err)
	assert.True(t, first.Read)

	second, err := d.MarkRead(context.Background(), n.ID, "user-1")
	require.NoError(t, err)
	assert.True(t, second.Read)
}

func TestMarkReadAuthorization(t *testing.T) {
	store := &memNotifStore{}
	d, err := NewDispatcher(store, newMemBus(), "admins")
	require.NoError(t, err)

	n, err := d.Notify(context.Background(), UserRecipient("user-1"), TypeOrderCreated, "hello")
	require.NoError(t, err)

	_, err = d.MarkRead(context.Background(), n.ID, "intruder")
	assert.Equal(t, apperr.CodeUnauthorized, apperr.CodeOf(err))

	_, err = d.MarkRead(context.Background(), "missing", "user-1")
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))

	// group broadcasts: membership is asserted by the caller, any requester may mark
	g, err := d.Notify(context.Background(), GroupRecipient("admins"), TypeOrderCreated, "hello staff")
	require.NoError(t, err)
	got, err := d.MarkRead(context.Background(), g.ID, "some-admin")
	require.NoError(t, err)
	assert.True(t, got.Read)
}

func TestUnreadCount(t *testing.T) {
	store := &memNotifStore{}
	d, err := NewDispatcher(store, newMemBus(), "admins")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := d.Notify(context.Background(), UserRecipient("user-1"), TypeOrderCreated, "hello")
		require.NoError(t, err)
	}
	n, err := d.UnreadCount(context.Background(), UserRecipient("user-1"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	recs := store.byRecipient(UserRecipient("user-1"))
	_, err = d.MarkRead(context.Background(), recs[0].ID, "user-1")
	require.NoError(t, err)

	n, err = d.UnreadCount(context.Background(), UserRecipient("user-1"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
