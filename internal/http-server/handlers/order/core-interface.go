package order

import (
	"NovaCS/entity"
	"NovaCS/impl/core"
)

type Core interface {
	GetOrderDetail(orderID string) (core.OrderDetail, error)
	RefundOrder(orderID string, byAgent bool) (entity.ReturnRecord, error)
}
