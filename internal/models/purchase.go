package models

import (
	"time"

	"github.com/google/uuid"
)

// Purchase is an append-only ledger record of one settled transaction.
// Price is the server-read price at settlement time, not a live join to the
// catalog. IdempotencyKey is unique across the ledger and makes retried
// commits safe.
type Purchase struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	ItemID         uuid.UUID
	Price          int64
	IdempotencyKey uuid.UUID
	CreatedAt      time.Time
}
