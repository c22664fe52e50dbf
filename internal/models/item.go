package models

import (
	"time"

	"github.com/google/uuid"
)

// Item is a purchasable catalog entry.
// Published items are immutable: price changes are new items, not updates.
type Item struct {
	ID        uuid.UUID
	Name      string
	Price     int64
	ImageURL  string
	CreatedAt time.Time
}
