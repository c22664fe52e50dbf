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

func TestBalance(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	inTx := func(t *testing.T, outerTx DBTX, fn func(pgx.Tx, repository.Storage)) {
		testutil.InTx(outerTx, t, func(innerTx pgx.Tx) {
			storage := NewStorage(innerTx)
			fn(innerTx, storage)
		})
	}

	t.Run("GetOrCreateBalance", func(t *testing.T) {
		t.Run("creates zero balance on first read", func(t *testing.T) {
			inTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
				userID := uuid.New()

				balance, err := storage.Balance().GetOrCreateBalance(t.Context(), userID)

				require.NoError(t, err, "first read should create the balance")
				require.Equal(t, userID, balance.UserID)
				require.Zero(t, balance.Coins, "implicitly created balance should be zero")
			})
		})

		t.Run("keeps existing coins", func(t *testing.T) {
			inTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
				userID := uuid.New()
				_, err := storage.Balance().Credit(t.Context(), userID, 100)
				require.NoError(t, err)

				balance, err := storage.Balance().GetOrCreateBalance(t.Context(), userID)

				require.NoError(t, err)
				require.Equal(t, int64(100), balance.Coins, "read must not reset an existing balance")
			})
		})
	})

	t.Run("Credit", func(t *testing.T) {
		inTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
			userID := uuid.New()

			balance, err := storage.Balance().Credit(t.Context(), userID, 40)
			require.NoError(t, err, "credit should create the balance row if missing")
			require.Equal(t, int64(40), balance.Coins)

			balance, err = storage.Balance().Credit(t.Context(), userID, 60)
			require.NoError(t, err)
			require.Equal(t, int64(100), balance.Coins, "credits should accumulate")
		})
	})

	t.Run("Debit", func(t *testing.T) {
		t.Run("debit ok", func(t *testing.T) {
			inTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
				userID := uuid.New()
				_, err := storage.Balance().Credit(t.Context(), userID, 100)
				require.NoError(t, err)

				balance, err := storage.Balance().Debit(t.Context(), userID, 60)

				require.NoError(t, err, "debit within balance should succeed")
				require.Equal(t, int64(40), balance.Coins)
			})
		})

		t.Run("debit exact balance to zero", func(t *testing.T) {
			inTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
				userID := uuid.New()
				_, err := storage.Balance().Credit(t.Context(), userID, 60)
				require.NoError(t, err)

				balance, err := storage.Balance().Debit(t.Context(), userID, 60)

				require.NoError(t, err)
				require.Zero(t, balance.Coins)
			})
		})

		t.Run("insufficient funds", func(t *testing.T) {
			inTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
				userID := uuid.New()
				_, err := storage.Balance().Credit(t.Context(), userID, 50)
				require.NoError(t, err)

				_, err = storage.Balance().Debit(t.Context(), userID, 60)

				require.Error(t, err, "debit above balance must fail")
				require.ErrorIs(t, err, apperrors.ErrInsufficientFunds)

				balance, err := storage.Balance().GetOrCreateBalance(t.Context(), userID)
				require.NoError(t, err)
				require.Equal(t, int64(50), balance.Coins, "failed debit must not change the balance")
			})
		})

		t.Run("user not found", func(t *testing.T) {
			inTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
				_, err := storage.Balance().Debit(t.Context(), uuid.New(), 10)

				require.Error(t, err, "debit of a missing balance must fail")
				require.ErrorIs(t, err, apperrors.ErrUserNotFound)
			})
		})

		t.Run("zero price debit succeeds", func(t *testing.T) {
			inTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
				userID := uuid.New()
				_, err := storage.Balance().GetOrCreateBalance(t.Context(), userID)
				require.NoError(t, err)

				balance, err := storage.Balance().Debit(t.Context(), userID, 0)

				require.NoError(t, err, "free items are debitable at any balance")
				require.Zero(t, balance.Coins)
			})
		})
	})
}
