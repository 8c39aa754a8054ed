package ident

import "github.com/google/uuid"

// NewMessageID mints a message identifier on the client, before the
// backend has seen the record. The backend stores it as the permanent
// id, so the same value serves as the idempotency key for retries and
// for all ingestion paths.
func NewMessageID() string {
	return uuid.NewString()
}
