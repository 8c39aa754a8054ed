package entity

import "time"

// Return statuses. Success and refunded are terminal: such records are
// filtered from pending views but kept for history.
const (
	ReturnAwaitingApproval = "awaiting_approval"
	ReturnProcessing       = "processing"
	ReturnSuccess          = "success"
	ReturnRefunded         = "refunded"
	ReturnRejected         = "rejected"
)

// ReturnRecord is one refund/return case tied to an order. Amounts are
// integer cents.
type ReturnRecord struct {
	ID              string    `json:"id" bson:"_id"`
	UserID          string    `json:"user_id" bson:"user_id"`
	OrderID         string    `json:"order_id" bson:"order_id"`
	Status          string    `json:"status" bson:"status"`
	RefundStatus    string    `json:"refund_status,omitempty" bson:"refund_status,omitempty"`
	RequestedAmount int64     `json:"requested_amount" bson:"requested_amount"`
	RefundAmount    int64     `json:"refund_amount,omitempty" bson:"refund_amount,omitempty"`
	Reason          string    `json:"reason,omitempty" bson:"reason,omitempty"`
	CreatedAt       time.Time `json:"created_at" bson:"created_at"`
	OrderCreatedAt  time.Time `json:"order_created_at" bson:"order_created_at"`
	OrderPaidAmount int64     `json:"order_paid_amount" bson:"order_paid_amount"`
}

// Terminal reports whether the return has finished and should be
// excluded from pending views.
func (r ReturnRecord) Terminal() bool {
	return r.Status == ReturnSuccess || r.Status == ReturnRefunded ||
		r.RefundStatus == ReturnSuccess || r.RefundStatus == ReturnRefunded
}
