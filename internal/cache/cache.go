package cache

import "NovaCS/entity"

// Store persists the last known message list per conversation. It is
// best-effort and never authoritative: entries may vanish at any time
// and the sync engine must survive an empty cache. Each engine instance
// writes only the key of the conversation it is bound to.
type Store interface {
	Get(conversationID string) ([]entity.Message, bool)
	Put(conversationID string, msgs []entity.Message) error
	Delete(conversationID string) error
}
