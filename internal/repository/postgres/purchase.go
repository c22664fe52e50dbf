package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/azhulin/journalmart/internal/apperrors"
	"github.com/azhulin/journalmart/internal/models"
)

type PurchaseRepo struct {
	DB DBTX
}

const createPurchase = `-- name: CreatePurchase
INSERT INTO purchases (id, user_id, item_id, price, idempotency_key)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, user_id, item_id, price, idempotency_key, created_at
`

func (r *PurchaseRepo) CreatePurchase(ctx context.Context, p models.Purchase) (models.Purchase, error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}

	rows, _ := r.DB.Query(ctx, createPurchase, p.ID, p.UserID, p.ItemID, p.Price, p.IdempotencyKey)
	purchase, err := pgx.CollectOneRow(rows, rowToPurchase)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return purchase, apperrors.ErrPurchaseDuplicate
		}

		return purchase, fmt.Errorf("db error: %w", err)
	}

	return purchase, nil
}

const getPurchaseByKey = `-- name: GetPurchaseByKey
SELECT id, user_id, item_id, price, idempotency_key, created_at FROM purchases
WHERE idempotency_key = $1
`

func (r *PurchaseRepo) GetByIdempotencyKey(ctx context.Context, key uuid.UUID) (models.Purchase, error) {
	rows, _ := r.DB.Query(ctx, getPurchaseByKey, key)
	purchase, err := pgx.CollectOneRow(rows, rowToPurchase)

	switch {
	case err == nil:
		return purchase, nil
	case errors.Is(err, pgx.ErrNoRows):
		return purchase, apperrors.ErrPurchaseNotFound
	default:
		return purchase, fmt.Errorf("db error: %w", err)
	}
}

const listUserPurchases = `-- name: ListUserPurchases
SELECT id, user_id, item_id, price, idempotency_key, created_at FROM purchases
WHERE user_id = $1
ORDER BY created_at DESC, id
`

func (r *PurchaseRepo) ListUserPurchases(ctx context.Context, userID uuid.UUID) ([]models.Purchase, error) {
	rows, _ := r.DB.Query(ctx, listUserPurchases, userID)
	purchases, err := pgx.CollectRows(rows, rowToPurchase)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return purchases, nil
}

func rowToPurchase(row pgx.CollectableRow) (models.Purchase, error) {
	var p models.Purchase
	err := row.Scan(&p.ID, &p.UserID, &p.ItemID, &p.Price, &p.IdempotencyKey, &p.CreatedAt)
	return p, err
}
