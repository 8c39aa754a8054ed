package core

import (
	"NovaCS/entity"
	"NovaCS/internal/refund"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// OrderDetail pairs an order with its active return record and the
// eligibility verdict computed from them.
type OrderDetail struct {
	Order          entity.Order          `json:"order"`
	Return         *entity.ReturnRecord  `json:"return,omitempty"`
	Classification refund.Classification `json:"classification"`
}

func (c *Core) GetOrderDetail(orderID string) (OrderDetail, error) {
	if c.repo == nil {
		return OrderDetail{}, fmt.Errorf("repository is not set")
	}

	order, err := c.repo.GetOrder(orderID)
	if err != nil {
		return OrderDetail{}, err
	}

	detail := OrderDetail{Order: order}
	ret, err := c.repo.GetActiveReturn(orderID)
	switch {
	case err == nil:
		detail.Return = &ret
	case errors.Is(err, ErrNotFound):
	default:
		return OrderDetail{}, err
	}

	detail.Classification = refund.Classify(order, detail.Return, c.autoRefundThreshold, time.Now())
	return detail, nil
}

func (c *Core) GetUserReturns(userID string) ([]entity.ReturnRecord, error) {
	if c.repo == nil {
		return nil, fmt.Errorf("repository is not set")
	}
	return c.repo.GetUserReturns(userID)
}

func (c *Core) DeleteReturn(id string) error {
	if c.repo == nil {
		return fmt.Errorf("repository is not set")
	}
	return c.repo.DeleteReturn(id)
}

// RefundOrder executes a refund against the order's active return. The
// eligibility evaluator gates it: blocked orders are rejected outright,
// and amounts above the auto threshold require the agent flag. A
// missing return record is created on the fly for auto refunds.
func (c *Core) RefundOrder(orderID string, byAgent bool) (entity.ReturnRecord, error) {
	if c.repo == nil {
		return entity.ReturnRecord{}, fmt.Errorf("repository is not set")
	}

	detail, err := c.GetOrderDetail(orderID)
	if err != nil {
		return entity.ReturnRecord{}, err
	}

	switch detail.Classification.Kind {
	case refund.Blocked:
		return entity.ReturnRecord{}, fmt.Errorf("refund blocked: %s", detail.Classification.Reason)
	case refund.AgentRefundable:
		if !byAgent {
			return entity.ReturnRecord{}, fmt.Errorf("refund requires an agent: amount above auto threshold")
		}
	}

	ret := detail.Return
	if ret == nil {
		record := entity.ReturnRecord{
			ID:              uuid.NewString(),
			UserID:          detail.Order.UserID,
			OrderID:         orderID,
			Status:          entity.ReturnProcessing,
			RequestedAmount: detail.Order.PaidAmount,
			OrderCreatedAt:  detail.Order.CreatedAt,
			OrderPaidAmount: detail.Order.PaidAmount,
		}
		if err := c.repo.SaveReturn(record); err != nil {
			return entity.ReturnRecord{}, err
		}
		ret = &record
	}

	refunded, err := c.repo.MarkReturnRefunded(ret.ID, detail.Order.PaidAmount)
	if err != nil {
		return entity.ReturnRecord{}, err
	}

	c.log.With(
		slog.String("order_id", orderID),
		slog.String("return_id", refunded.ID),
		slog.Int64("amount", refunded.RefundAmount),
		slog.Bool("by_agent", byAgent),
	).Info("order refunded")

	return refunded, nil
}
