package vouchers

import "time"

type DiscountKind string

const (
	DiscountPercentage DiscountKind = "percentage"
	DiscountFixed      DiscountKind = "fixed"
)

type Voucher struct {
	ID            string
	Code          string // unique, matched case-insensitively
	Kind          DiscountKind
	Value         int64 // percent for percentage, amount for fixed
	MinOrderValue int64
	Quantity      int // total redemption budget
	UsedQuantity  int
	PerBuyerLimit int
	StartsAt      time.Time
	EndsAt        time.Time
	Active        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Discount computes the amount taken off the given subtotal, capped at the
// subtotal for both kinds; a percentage is integer division on currency units.
func (v *Voucher) Discount(subtotal int64) int64 {
	switch v.Kind {
	case DiscountPercentage:
		d := subtotal * v.Value / 100
		if d > subtotal {
			return subtotal
		}
		return d
	case DiscountFixed:
		if v.Value > subtotal {
			return subtotal
		}
		return v.Value
	}
	return 0
}
