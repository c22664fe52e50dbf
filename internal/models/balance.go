package models

import (
	"github.com/google/uuid"
)

// Balance is the authoritative per-user coin balance.
// Coins never go below zero; the only mutations are Debit and Credit on the
// balance repository.
type Balance struct {
	UserID uuid.UUID
	Coins  int64
}
