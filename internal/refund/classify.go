package refund

import (
	"time"

	"NovaCS/entity"
)

// Kind is the eligibility classification of an order.
type Kind string

const (
	AutoRefundable  Kind = "auto_refundable"
	AgentRefundable Kind = "agent_refundable"
	Blocked         Kind = "blocked"
)

// Block reasons, surfaced verbatim in every view that renders them.
const (
	ReasonAlreadyRefunded = "already refunded"
	ReasonMissingAmount   = "missing amount"
	ReasonMissingTime     = "missing order time"
	ReasonWindowExceeded  = "exceeds 30-day window"
	ReasonUnpaid          = "unpaid or no transaction reference"
)

// ReturnWindow is how long after purchase a refund may still be opened.
const ReturnWindow = 30 * 24 * time.Hour

// Classification is the evaluator's verdict. Reason is set only when
// Kind is Blocked.
type Classification struct {
	Kind   Kind
	Reason string
}

// Classify evaluates refund eligibility for an order. ret is the active
// return record for the order, nil when none exists. threshold is the
// auto-refund ceiling in cents. The function is pure: the customer
// order list, the agent sidebar and the backend all call this same code
// and must agree.
//
// Rules are evaluated strictly in order; the first hit wins.
func Classify(order entity.Order, ret *entity.ReturnRecord, threshold int64, now time.Time) Classification {
	if ret != nil && ret.Terminal() {
		return Classification{Kind: Blocked, Reason: ReasonAlreadyRefunded}
	}
	if order.PaidAmount <= 0 {
		return Classification{Kind: Blocked, Reason: ReasonMissingAmount}
	}
	if order.CreatedAt.IsZero() {
		return Classification{Kind: Blocked, Reason: ReasonMissingTime}
	}
	if now.Sub(order.CreatedAt) > ReturnWindow {
		return Classification{Kind: Blocked, Reason: ReasonWindowExceeded}
	}
	if !order.Paid() {
		return Classification{Kind: Blocked, Reason: ReasonUnpaid}
	}
	if order.PaidAmount <= threshold {
		return Classification{Kind: AutoRefundable}
	}
	return Classification{Kind: AgentRefundable}
}

// PendingReturns filters out terminal records, keeping the cases a
// pending view should show.
func PendingReturns(records []entity.ReturnRecord) []entity.ReturnRecord {
	var pending []entity.ReturnRecord
	for _, r := range records {
		if !r.Terminal() {
			pending = append(pending, r)
		}
	}
	return pending
}
