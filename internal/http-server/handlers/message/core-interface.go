package message

import (
	"NovaCS/entity"
)

type Core interface {
	SaveMessage(msg entity.Message) (entity.Message, error)
}
