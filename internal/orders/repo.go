package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ListFilter struct {
	Status        Status
	BuyerID       string
	PaymentMethod PaymentMethod
}

type StatusUpdate struct {
	OrderID     string
	From        Status // expected current status (CAS precondition)
	To          Status
	CourierID   string     // set when To is shipping
	Reason      string     // set when To is cancelled
	DeliveredAt *time.Time // set when To is delivered
}

// Store is the durable order collection. Create is all-or-nothing across the
// order and its line items; UpdateStatus is a compare-and-swap on the current
// status.
type Store interface {
	Create(ctx context.Context, o *Order) error
	// Get returns nil when the order does not exist.
	Get(ctx context.Context, id string) (*Order, error)
	List(ctx context.Context, f ListFilter, page, pageSize int, sortDesc bool) ([]Order, int, error)
	// UpdateStatus applies u only if the stored status still equals u.From.
	// Returns false when the swap lost to a concurrent writer.
	UpdateStatus(ctx context.Context, u StatusUpdate) (bool, error)
	CountBuyerRedemptions(ctx context.Context, buyerID, voucherID string) (int, error)
}

type Repo struct{ DB *pgxpool.Pool }

var _ Store = (*Repo)(nil)

// Create writes the order and every line item inside one transaction: either
// all records become visible or none do.
func (r *Repo) Create(ctx context.Context, o *Order) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO orders(id, buyer_id, status, quantity, total_amount, voucher_id,
		                   payment_method, address_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6,''), $7, $8, $9, $9)`,
		o.ID, o.BuyerID, o.Status, o.Quantity, o.TotalAmount, o.VoucherID,
		o.PaymentMethod, o.AddressID, o.CreatedAt)
	if err != nil {
		return err
	}

	for _, it := range o.Items {
		_, err = tx.Exec(ctx, `
			INSERT INTO order_line_items(id, order_id, product_id, variant_id, name,
			                             unit_price, quantity, image_url)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			it.ID, o.ID, it.ProductID, it.VariantID, it.Name,
			it.UnitPrice, it.Quantity, it.ImageURL)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

const orderColumns = `id, buyer_id, status, quantity, total_amount,
	COALESCE(voucher_id,''), payment_method, address_id, COALESCE(courier_id,''),
	COALESCE(cancel_reason,''), delivered_at, created_at, updated_at`

func scanOrder(row pgx.Row, o *Order) error {
	return row.Scan(&o.ID, &o.BuyerID, &o.Status, &o.Quantity, &o.TotalAmount,
		&o.VoucherID, &o.PaymentMethod, &o.AddressID, &o.CourierID,
		&o.CancelReason, &o.DeliveredAt, &o.CreatedAt, &o.UpdatedAt)
}

func (r *Repo) Get(ctx context.Context, id string) (*Order, error) {
	var o Order
	err := scanOrder(r.DB.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id), &o)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	items, err := r.loadItems(ctx, []string{o.ID})
	if err != nil {
		return nil, err
	}
	o.Items = items[o.ID]
	return &o, nil
}

func (r *Repo) List(ctx context.Context, f ListFilter, page, pageSize int, sortDesc bool) ([]Order, int, error) {
	where := ""
	args := []any{}
	add := func(cond string, v any) {
		args = append(args, v)
		if where == "" {
			where = " WHERE "
		} else {
			where += " AND "
		}
		where += fmt.Sprintf(cond, len(args))
	}
	if f.Status != "" {
		add("status=$%d", f.Status)
	}
	if f.BuyerID != "" {
		add("buyer_id=$%d", f.BuyerID)
	}
	if f.PaymentMethod != "" {
		add("payment_method=$%d", f.PaymentMethod)
	}

	var total int
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM orders`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	dir := "ASC"
	if sortDesc {
		dir = "DESC"
	}
	args = append(args, pageSize, (page-1)*pageSize)
	q := fmt.Sprintf(`SELECT %s FROM orders%s ORDER BY created_at %s LIMIT $%d OFFSET $%d`,
		orderColumns, where, dir, len(args)-1, len(args))
	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Order
	ids := make([]string, 0, pageSize)
	for rows.Next() {
		var o Order
		if err := scanOrder(rows, &o); err != nil {
			return nil, 0, err
		}
		out = append(out, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	items, err := r.loadItems(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range out {
		out[i].Items = items[out[i].ID]
	}
	return out, total, nil
}

func (r *Repo) loadItems(ctx context.Context, orderIDs []string) (map[string][]LineItem, error) {
	if len(orderIDs) == 0 {
		return nil, nil
	}
	params := ""
	args := make([]any, 0, len(orderIDs))
	for i, id := range orderIDs {
		if i > 0 {
			params += ","
		}
		params += fmt.Sprintf("$%d", i+1)
		args = append(args, id)
	}
	rows, err := r.DB.Query(ctx, `
		SELECT id, order_id, product_id, variant_id, name, unit_price, quantity, image_url
		FROM order_line_items WHERE order_id IN (`+params+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byOrder := map[string][]LineItem{}
	for rows.Next() {
		var it LineItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.VariantID,
			&it.Name, &it.UnitPrice, &it.Quantity, &it.ImageURL); err != nil {
			return nil, err
		}
		byOrder[it.OrderID] = append(byOrder[it.OrderID], it)
	}
	return byOrder, rows.Err()
}

// UpdateStatus is the one writer of orders.status: a single conditional
// UPDATE whose WHERE clause pins the expected current status. Two racing
// transitions serialize here and exactly one wins.
func (r *Repo) UpdateStatus(ctx context.Context, u StatusUpdate) (bool, error) {
	set := "status=$1, updated_at=now()"
	args := []any{u.To}
	if u.CourierID != "" {
		args = append(args, u.CourierID)
		set += fmt.Sprintf(", courier_id=$%d", len(args))
	}
	if u.Reason != "" {
		args = append(args, u.Reason)
		set += fmt.Sprintf(", cancel_reason=$%d", len(args))
	}
	if u.DeliveredAt != nil {
		args = append(args, *u.DeliveredAt)
		set += fmt.Sprintf(", delivered_at=$%d", len(args))
	}
	args = append(args, u.OrderID, u.From)
	q := fmt.Sprintf(`UPDATE orders SET %s WHERE id=$%d AND status=$%d`, set, len(args)-1, len(args))
	ct, err := r.DB.Exec(ctx, q, args...)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

// CountBuyerRedemptions counts the buyer's prior non-cancelled orders that
// redeemed the given voucher. Cancelled orders give the slot back for the
// per-buyer limit.
func (r *Repo) CountBuyerRedemptions(ctx context.Context, buyerID, voucherID string) (int, error) {
	var n int
	err := r.DB.QueryRow(ctx, `
		SELECT COUNT(*) FROM orders
		WHERE buyer_id=$1 AND voucher_id=$2 AND status <> 'cancelled'`,
		buyerID, voucherID).Scan(&n)
	return n, err
}
