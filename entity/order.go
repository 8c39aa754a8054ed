package entity

import "time"

// Order payment statuses as reported by the commerce backend.
const (
	PaymentPaid    = "paid"
	PaymentSettled = "settled"
	PaymentUnpaid  = "unpaid"
)

// Order is a purchase record. Amounts are integer cents.
type Order struct {
	ID             string    `json:"id" bson:"_id"`
	UserID         string    `json:"user_id" bson:"user_id"`
	Title          string    `json:"title" bson:"title"`
	PaidAmount     int64     `json:"paid_amount" bson:"paid_amount"`
	PaymentStatus  string    `json:"payment_status" bson:"payment_status"`
	TransactionRef string    `json:"transaction_ref,omitempty" bson:"transaction_ref,omitempty"`
	Status         string    `json:"status" bson:"status"`
	CreatedAt      time.Time `json:"created_at" bson:"created_at"`
}

// Paid reports whether the order is in a settled state with a
// transaction reference to refund against.
func (o Order) Paid() bool {
	if o.TransactionRef == "" {
		return false
	}
	return o.PaymentStatus == PaymentPaid || o.PaymentStatus == PaymentSettled
}
