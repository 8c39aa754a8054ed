package gateway

import (
	"context"
	"fmt"
	"net/url"

	"NovaCS/entity"
)

// OrderDetail pairs an order with its active return record, if any.
type OrderDetail struct {
	Order  entity.Order         `json:"order"`
	Return *entity.ReturnRecord `json:"return,omitempty"`
}

// GetOrder fetches one order together with its return record.
func (c *Client) GetOrder(ctx context.Context, orderID string) (OrderDetail, error) {
	var detail OrderDetail
	path := fmt.Sprintf("/orders/%s", orderID)
	if err := c.doJSON(ctx, "GET", path, nil, &detail); err != nil {
		return OrderDetail{}, err
	}
	return detail, nil
}

// ListReturns fetches the return records of one customer.
func (c *Client) ListReturns(ctx context.Context, userID string) ([]entity.ReturnRecord, error) {
	var records []entity.ReturnRecord
	path := "/returns?user_id=" + url.QueryEscape(userID)
	if err := c.doJSON(ctx, "GET", path, nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// DeleteReturn removes a return record. Administrative, best-effort.
func (c *Client) DeleteReturn(ctx context.Context, returnID string) error {
	return c.doJSON(ctx, "DELETE", "/returns/"+returnID, nil, nil)
}

// RefundOrder triggers a refund for the order's active return.
// Administrative, best-effort.
func (c *Client) RefundOrder(ctx context.Context, orderID string) (entity.ReturnRecord, error) {
	var record entity.ReturnRecord
	path := fmt.Sprintf("/orders/%s/refund", orderID)
	if err := c.doJSON(ctx, "POST", path, nil, &record); err != nil {
		return entity.ReturnRecord{}, err
	}
	return record, nil
}
