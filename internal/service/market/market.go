package market

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/azhulin/journalmart/internal/apperrors"
	"github.com/azhulin/journalmart/internal/models"
	"github.com/azhulin/journalmart/internal/repository"
)

type MarketService struct {
	storage repository.Storage
}

func NewService(storage repository.Storage) *MarketService {
	return &MarketService{
		storage: storage,
	}
}

// PurchaseResult is the settlement outcome returned to the buyer.
// Replayed marks a retried commit that had already settled: the recorded
// purchase is returned and no second debit happened.
type PurchaseResult struct {
	Purchase models.Purchase
	Balance  models.Balance
	Replayed bool
}

// Purchase settles a purchase atomically: re-read the authoritative price,
// debit the balance, append the ledger record. All inside one db transaction,
// so the buyer either pays and owns the item or neither.
//
// The client's price snapshot is never part of the call: gating may take
// arbitrary time and the catalog is re-read here.
//
// The idempotency key makes retries safe. A key that already settled returns
// the recorded purchase with the current balance. Two in-flight retries of
// the same attempt race on the ledger's unique key; the loser rolls back its
// debit and resolves as a replay of the winner.
func (s *MarketService) Purchase(ctx context.Context, userID uuid.UUID, itemID uuid.UUID, idempotencyKey uuid.UUID) (PurchaseResult, error) {
	var result PurchaseResult

	if idempotencyKey == uuid.Nil {
		return result, errors.New("idempotency key must be set")
	}

	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		// Replay probe first: a settled attempt must never debit again
		settled, err := storage.Purchase().GetByIdempotencyKey(ctx, idempotencyKey)
		switch {
		case err == nil:
			if settled.UserID != userID {
				// Key collision across users is a client bug, not a replay
				return apperrors.ErrPurchaseDuplicate
			}

			balance, err := storage.Balance().GetOrCreateBalance(ctx, userID)
			if err != nil {
				return err
			}

			result = PurchaseResult{Purchase: settled, Balance: balance, Replayed: true}
			return nil
		case !errors.Is(err, apperrors.ErrPurchaseNotFound):
			return err
		}

		item, err := storage.Catalog().GetItem(ctx, itemID)
		if err != nil {
			return err
		}

		balance, err := storage.Balance().Debit(ctx, userID, item.Price)
		if err != nil {
			return err
		}

		purchase, err := storage.Purchase().CreatePurchase(ctx, models.Purchase{
			UserID:         userID,
			ItemID:         item.ID,
			Price:          item.Price,
			IdempotencyKey: idempotencyKey,
		})
		if err != nil {
			return err
		}

		result = PurchaseResult{Purchase: purchase, Balance: balance}
		return nil
	})

	// A concurrent retry settled the same key while we were in flight: our
	// debit is rolled back, the winner's record is the answer
	if errors.Is(err, apperrors.ErrPurchaseDuplicate) {
		return s.replayResult(ctx, userID, idempotencyKey, err)
	}
	if err != nil {
		return PurchaseResult{}, err
	}

	return result, nil
}

func (s *MarketService) replayResult(ctx context.Context, userID uuid.UUID, key uuid.UUID, raceErr error) (PurchaseResult, error) {
	settled, err := s.storage.Purchase().GetByIdempotencyKey(ctx, key)
	if err != nil {
		return PurchaseResult{}, fmt.Errorf("failed to load settled purchase after key race: %w", err)
	}
	if settled.UserID != userID {
		return PurchaseResult{}, raceErr
	}

	balance, err := s.storage.Balance().GetOrCreateBalance(ctx, userID)
	if err != nil {
		return PurchaseResult{}, err
	}

	return PurchaseResult{Purchase: settled, Balance: balance, Replayed: true}, nil
}

// GetBalance returns the user's balance, creating a zero one on first read
func (s *MarketService) GetBalance(ctx context.Context, userID uuid.UUID) (models.Balance, error) {
	return s.storage.Balance().GetOrCreateBalance(ctx, userID)
}

// Credit awards coins to the user (the journaling side calls this on earned
// rewards). Amount must be positive.
func (s *MarketService) Credit(ctx context.Context, userID uuid.UUID, amount int64) (models.Balance, error) {
	if amount <= 0 {
		return models.Balance{}, apperrors.ErrCreditInvalid
	}

	return s.storage.Balance().Credit(ctx, userID, amount)
}

func (s *MarketService) ListItems(ctx context.Context) ([]models.Item, error) {
	return s.storage.Catalog().ListItems(ctx)
}

func (s *MarketService) GetItem(ctx context.Context, itemID uuid.UUID) (models.Item, error) {
	return s.storage.Catalog().GetItem(ctx, itemID)
}

func (s *MarketService) ListPurchases(ctx context.Context, userID uuid.UUID) ([]models.Purchase, error) {
	return s.storage.Purchase().ListUserPurchases(ctx, userID)
}
