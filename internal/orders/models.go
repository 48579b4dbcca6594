package orders

import (
	"time"

	"github.com/duongph/go-order-fulfillment/internal/apperr"
)

type PaymentMethod string

const (
	PaymentCOD          PaymentMethod = "cod"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
	PaymentWallet       PaymentMethod = "wallet"
)

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch PaymentMethod(s) {
	case PaymentCOD, PaymentBankTransfer, PaymentWallet:
		return PaymentMethod(s), nil
	}
	return "", apperr.Newf(apperr.CodeInvalidInput, "unknown payment method %q", s)
}

type Order struct {
	ID            string
	BuyerID       string
	Status        Status
	Quantity      int // sum of line-item quantities
	TotalAmount   int64
	VoucherID     string // empty when no voucher was applied
	PaymentMethod PaymentMethod
	AddressID     string
	CourierID     string // set when the order entered shipping
	CancelReason  string // set iff status is cancelled
	DeliveredAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Items         []LineItem
}

// LineItem is a snapshot taken at order-creation time. Name, price and image
// are never re-read from the catalog, so historical totals do not drift.
type LineItem struct {
	ID        string
	OrderID   string
	ProductID string
	VariantID string
	Name      string
	UnitPrice int64
	Quantity  int
	ImageURL  string
}
