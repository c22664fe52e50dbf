package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/azhulin/journalmart/internal/apperrors"
	"github.com/azhulin/journalmart/internal/models"
)

type CatalogRepo struct {
	DB DBTX
}

const getItem = `-- name: GetItem
SELECT id, name, price, image_url, created_at FROM items
WHERE id = $1
`

func (r *CatalogRepo) GetItem(ctx context.Context, itemID uuid.UUID) (models.Item, error) {
	rows, _ := r.DB.Query(ctx, getItem, itemID)
	item, err := pgx.CollectOneRow(rows, rowToItem)

	switch {
	case err == nil:
		return item, nil
	case errors.Is(err, pgx.ErrNoRows):
		return item, apperrors.ErrItemNotFound
	default:
		return item, fmt.Errorf("db error: %w", err)
	}
}

const listItems = `-- name: ListItems
SELECT id, name, price, image_url, created_at FROM items
ORDER BY created_at, id
`

func (r *CatalogRepo) ListItems(ctx context.Context) ([]models.Item, error) {
	rows, _ := r.DB.Query(ctx, listItems)
	items, err := pgx.CollectRows(rows, rowToItem)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return items, nil
}

const createItem = `-- name: CreateItem
INSERT INTO items (id, name, price, image_url)
VALUES ($1, $2, $3, $4)
RETURNING id, name, price, image_url, created_at
`

func (r *CatalogRepo) CreateItem(ctx context.Context, name string, price int64, imageURL string) (models.Item, error) {
	rows, _ := r.DB.Query(ctx, createItem, uuid.New(), name, price, imageURL)
	item, err := pgx.CollectOneRow(rows, rowToItem)
	if err != nil {
		return item, fmt.Errorf("db error: %w", err)
	}

	return item, nil
}

func rowToItem(row pgx.CollectableRow) (models.Item, error) {
	var i models.Item
	err := row.Scan(&i.ID, &i.Name, &i.Price, &i.ImageURL, &i.CreatedAt)
	return i, err
}
