package vouchers

import (
	"context"
	"time"

	"github.com/duongph/go-order-fulfillment/internal/apperr"
)

// Rejection reasons, returned verbatim so the client can show the precise cause.
const (
	ReasonNotFound      = "voucher not found"
	ReasonInactive      = "voucher inactive"
	ReasonOutsideWindow = "voucher outside validity window"
	ReasonExhausted     = "exhausted"
	ReasonBuyerLimit    = "per-buyer redemption limit reached"
	ReasonMinOrderValue = "minimum order value not met"
)

// UsageCounter reports how many non-cancelled orders a buyer has already
// redeemed a given voucher on. Implemented by the order store.
type UsageCounter interface {
	CountBuyerRedemptions(ctx context.Context, buyerID, voucherID string) (int, error)
}

type Service struct {
	store Store
	usage UsageCounter
	now   func() time.Time
}

func NewService(store Store, usage UsageCounter) *Service {
	return &Service{store: store, usage: usage, now: time.Now}
}

// Validate runs the redemption checks in a fixed order so the first failing
// check determines the user-facing message. It has no side effects.
func (s *Service) Validate(ctx context.Context, code, buyerID string, subtotal int64) (*Voucher, error) {
	v, err := s.store.GetByCode(ctx, code)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeDependencyUnavailable, "voucher lookup failed", err)
	}
	if v == nil {
		return nil, apperr.New(apperr.CodeVoucherRejected, ReasonNotFound)
	}
	if !v.Active {
		return nil, apperr.New(apperr.CodeVoucherRejected, ReasonInactive)
	}
	now := s.now()
	if now.Before(v.StartsAt) || now.After(v.EndsAt) {
		return nil, apperr.New(apperr.CodeVoucherRejected, ReasonOutsideWindow)
	}
	if v.UsedQuantity >= v.Quantity {
		return nil, apperr.New(apperr.CodeVoucherRejected, ReasonExhausted)
	}
	used, err := s.usage.CountBuyerRedemptions(ctx, buyerID, v.ID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeDependencyUnavailable, "redemption count failed", err)
	}
	if v.PerBuyerLimit > 0 && used >= v.PerBuyerLimit {
		return nil, apperr.New(apperr.CodeVoucherRejected, ReasonBuyerLimit)
	}
	if subtotal < v.MinOrderValue {
		return nil, apperr.New(apperr.CodeVoucherRejected, ReasonMinOrderValue)
	}
	return v, nil
}

// Redeem claims one redemption slot. Validate passing does not guarantee
// Redeem succeeds: two checkouts can both pass Validate on the last slot and
// the ledger decides the winner here.
func (s *Service) Redeem(ctx context.Context, id string) error {
	ok, err := s.store.Redeem(ctx, id)
	if err != nil {
		return apperr.Wrap(apperr.CodeDependencyUnavailable, "voucher redeem failed", err)
	}
	if !ok {
		return apperr.New(apperr.CodeVoucherRejected, ReasonExhausted)
	}
	return nil
}

// Release compensates a redeemed slot after the order write failed.
func (s *Service) Release(ctx context.Context, id string) error {
	return s.store.Release(ctx, id)
}
