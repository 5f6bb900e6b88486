package models

import (
	"time"
)

// IdempotencyKey is the durable dedupe record for at-least-once producers.
// The key row is inserted in the same transaction as the entry it guards, so
// a retry either finds SUCCEEDED and returns the recorded entry, or collides
// on the unique index while the first attempt is still in flight.
type IdempotencyKey struct {
	ID        int               `gorm:"primary_key" json:"id"`
	Key       string            `gorm:"size:100;uniqueIndex;not null" json:"key"`
	Status    IdempotencyStatus `gorm:"size:20;not null;default:'STARTED'" json:"status"`
	EntryId   *int              `json:"entry_id"`
	LastError string            `gorm:"size:500" json:"last_error"`
	CreatedAt time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}
