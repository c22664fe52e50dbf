package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/azhulin/journalmart/internal/models"
)

// Balance repository interface
type BalanceRepo interface {
	// Return the user's balance, creating a zero balance on first read
	GetOrCreateBalance(ctx context.Context, userID uuid.UUID) (models.Balance, error)

	// Atomically subtract amount from the user's balance and return the new
	// balance. The check and the write are a single statement: the debit
	// applies only if the resulting balance stays non-negative.
	// Must return apperrors.ErrInsufficientFunds if the user can't afford it
	// and apperrors.ErrUserNotFound if no balance row exists.
	Debit(ctx context.Context, userID uuid.UUID, amount int64) (models.Balance, error)

	// Add amount to the user's balance, creating the balance row if needed
	Credit(ctx context.Context, userID uuid.UUID, amount int64) (models.Balance, error)
}

// Catalog repository interface. The purchase core treats the catalog as
// read-only; CreateItem serves the administrative process and tests.
type CatalogRepo interface {
	// Must return apperrors.ErrItemNotFound if the item does not exist
	GetItem(ctx context.Context, itemID uuid.UUID) (models.Item, error)

	ListItems(ctx context.Context) ([]models.Item, error)

	CreateItem(ctx context.Context, name string, price int64, imageURL string) (models.Item, error)
}

// Purchase ledger repository interface. Append-only: no update or delete.
type PurchaseRepo interface {
	// Append one settled purchase. The idempotency key is unique across the
	// ledger; must return apperrors.ErrPurchaseDuplicate on a repeated key.
	CreatePurchase(ctx context.Context, p models.Purchase) (models.Purchase, error)

	// Return the purchase recorded for the key
	// Must return apperrors.ErrPurchaseNotFound if no purchase used the key
	GetByIdempotencyKey(ctx context.Context, key uuid.UUID) (models.Purchase, error)

	// User's purchases, newest first
	ListUserPurchases(ctx context.Context, userID uuid.UUID) ([]models.Purchase, error)
}

// Storage aggregates the repositories over one connection or transaction
type Storage interface {
	Balance() BalanceRepo
	Catalog() CatalogRepo
	Purchase() PurchaseRepo

	// Run fn with a Storage bound to a single db transaction.
	// Commits if fn returns nil, rolls back otherwise.
	InTx(ctx context.Context, fn func(Storage) error) error
}
