package returns

import (
	"NovaCS/entity"
)

type Core interface {
	GetUserReturns(userID string) ([]entity.ReturnRecord, error)
	DeleteReturn(id string) error
}
