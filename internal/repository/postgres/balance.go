package postgres

import (
	"errors"
	"fmt"

	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/azhulin/journalmart/internal/apperrors"
	"github.com/azhulin/journalmart/internal/models"
)

type BalanceRepo struct {
	DB DBTX
}

func (r *BalanceRepo) GetOrCreateBalance(ctx context.Context, userID uuid.UUID) (models.Balance, error) {
	// Balances appear on first read: insert a zero row if missing, then read.
	// DO UPDATE instead of DO NOTHING so RETURNING yields a row either way.
	const getOrCreateBalance = `
	INSERT INTO balances (user_id, coins)
	VALUES ($1, 0)
	ON CONFLICT (user_id) DO UPDATE SET coins = balances.coins
	RETURNING user_id, coins
	`

	rows, _ := r.DB.Query(ctx, getOrCreateBalance, userID)
	balance, err := pgx.CollectOneRow(rows, rowToBalance)
	if err != nil {
		return balance, fmt.Errorf("db error: %w", err)
	}

	return balance, nil
}

func (r *BalanceRepo) Debit(ctx context.Context, userID uuid.UUID, amount int64) (models.Balance, error) {
	// Check and write in one statement, so two concurrent debits can never
	// jointly overdraft: the row lock serializes them and the second one
	// re-evaluates the condition against the committed balance.
	const debitBalance = `
	UPDATE balances
	SET coins = coins - $2
	WHERE user_id = $1
	  AND coins >= $2
	RETURNING user_id, coins
	`

	rows, _ := r.DB.Query(ctx, debitBalance, userID, amount)
	balance, err := pgx.CollectOneRow(rows, rowToBalance)

	switch {
	case err == nil:
		return balance, nil
	case errors.Is(err, pgx.ErrNoRows):
		// Zero rows means no such user or not enough coins; probe which
		return balance, r.debitFailReason(ctx, userID)
	default:
		return balance, fmt.Errorf("db error: %w", err)
	}
}

func (r *BalanceRepo) debitFailReason(ctx context.Context, userID uuid.UUID) error {
	const balanceExists = `
	SELECT EXISTS (SELECT 1 FROM balances WHERE user_id = $1)
	`

	var exists bool
	if err := r.DB.QueryRow(ctx, balanceExists, userID).Scan(&exists); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	if !exists {
		return apperrors.ErrUserNotFound
	}
	return apperrors.ErrInsufficientFunds
}

func (r *BalanceRepo) Credit(ctx context.Context, userID uuid.UUID, amount int64) (models.Balance, error) {
	const creditBalance = `
	INSERT INTO balances (user_id, coins)
	VALUES ($1, $2)
	ON CONFLICT (user_id) DO UPDATE SET coins = balances.coins + EXCLUDED.coins
	RETURNING user_id, coins
	`

	rows, _ := r.DB.Query(ctx, creditBalance, userID, amount)
	balance, err := pgx.CollectOneRow(rows, rowToBalance)
	if err != nil {
		return balance, fmt.Errorf("db error: %w", err)
	}

	return balance, nil
}

func rowToBalance(row pgx.CollectableRow) (models.Balance, error) {
	var b models.Balance
	err := row.Scan(&b.UserID, &b.Coins)
	return b, err
}
