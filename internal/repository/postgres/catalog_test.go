package postgres

import (
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/azhulin/journalmart/internal/apperrors"
	"github.com/azhulin/journalmart/internal/repository"
	"github.com/azhulin/journalmart/internal/testutil"
)

func TestCatalog(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	inTx := func(t *testing.T, outerTx DBTX, fn func(pgx.Tx, repository.Storage)) {
		testutil.InTx(outerTx, t, func(innerTx pgx.Tx) {
			storage := NewStorage(innerTx)
			fn(innerTx, storage)
		})
	}

	t.Run("CreateItem", func(t *testing.T) {
		inTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
			item, err := storage.Catalog().CreateItem(t.Context(), "Wisdom scroll", 60, "https://img.example/scroll.png")

			require.NoError(t, err, "item should be created ok")
			require.NotEqual(t, uuid.Nil, item.ID)
			require.Equal(t, "Wisdom scroll", item.Name)
			require.Equal(t, int64(60), item.Price)
			require.Equal(t, "https://img.example/scroll.png", item.ImageURL)
			require.NotZero(t, item.CreatedAt)
		})
	})

	t.Run("GetItem", func(t *testing.T) {
		t.Run("existing item", func(t *testing.T) {
			inTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
				created, err := storage.Catalog().CreateItem(t.Context(), "Quill", 10, "")
				require.NoError(t, err)

				item, err := storage.Catalog().GetItem(t.Context(), created.ID)

				require.NoError(t, err)
				require.Equal(t, created, item)
			})
		})

		t.Run("missing item", func(t *testing.T) {
			inTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
				_, err := storage.Catalog().GetItem(t.Context(), uuid.New())

				require.Error(t, err)
				require.ErrorIs(t, err, apperrors.ErrItemNotFound, "should return well known error")
			})
		})
	})

	t.Run("ListItems", func(t *testing.T) {
		inTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
			first, err := storage.Catalog().CreateItem(t.Context(), "Quill", 10, "")
			require.NoError(t, err)
			second, err := storage.Catalog().CreateItem(t.Context(), "Ink pot", 25, "")
			require.NoError(t, err)

			items, err := storage.Catalog().ListItems(t.Context())

			require.NoError(t, err)
			require.Len(t, items, 2)
			require.Equal(t, []uuid.UUID{first.ID, second.ID}, []uuid.UUID{items[0].ID, items[1].ID}, "items should be listed in publication order")
		})
	})
}
