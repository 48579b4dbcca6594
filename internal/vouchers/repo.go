package vouchers

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the discount ledger. Redeem and Release are the only writers of
// used_quantity and both are single conditional updates.
type Store interface {
	// GetByCode returns nil when the code is unknown.
	GetByCode(ctx context.Context, code string) (*Voucher, error)
	// Redeem increments used_quantity iff a redemption slot is still free.
	// Returns false when the budget is exhausted.
	Redeem(ctx context.Context, id string) (bool, error)
	// Release gives one redemption slot back (compensation for an order
	// write that failed after a successful Redeem).
	Release(ctx context.Context, id string) error
}

type Repo struct{ DB *pgxpool.Pool }

var _ Store = (*Repo)(nil)

func (r *Repo) GetByCode(ctx context.Context, code string) (*Voucher, error) {
	var v Voucher
	err := r.DB.QueryRow(ctx, `
		SELECT id, code, discount_kind, discount_value, min_order_value,
		       quantity, used_quantity, per_buyer_limit,
		       starts_at, ends_at, active, created_at, updated_at
		FROM vouchers WHERE lower(code) = lower($1)`, code).
		Scan(&v.ID, &v.Code, &v.Kind, &v.Value, &v.MinOrderValue,
			&v.Quantity, &v.UsedQuantity, &v.PerBuyerLimit,
			&v.StartsAt, &v.EndsAt, &v.Active, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

func (r *Repo) Redeem(ctx context.Context, id string) (bool, error) {
	// precondition and increment in one statement; RowsAffected is the CAS result
	ct, err := r.DB.Exec(ctx, `
		UPDATE vouchers SET used_quantity = used_quantity + 1, updated_at = now()
		WHERE id = $1 AND used_quantity < quantity`, id)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

func (r *Repo) Release(ctx context.Context, id string) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE vouchers SET used_quantity = used_quantity - 1, updated_at = now()
		WHERE id = $1 AND used_quantity > 0`, id)
	return err
}
