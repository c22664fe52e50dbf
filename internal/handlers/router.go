package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/azhulin/journalmart/internal/handlers/middleware"
	"github.com/azhulin/journalmart/internal/logger"
	"github.com/azhulin/journalmart/internal/models"
	"github.com/azhulin/journalmart/internal/service/market"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

func NewRouter(
	marketService marketService,
	verifier identityVerifier,
	logger logger.Logger,
) http.Handler {
	authMiddleware := middleware.AuthMiddleware(verifier)
	withAuth := func(h http.Handler) http.Handler {
		return authMiddleware(h)
	}

	apimarket := http.NewServeMux()

	// Catalog is the public storefront; everything else needs a session
	apimarket.Handle("GET /items", handleListItems(marketService, logger))
	apimarket.Handle("GET /balance", withAuth(handleBalance(marketService, logger)))
	apimarket.Handle("GET /purchases", withAuth(handleListPurchases(marketService, logger)))
	apimarket.Handle("POST /purchase", withAuth(handlePurchase(marketService, logger)))
	apimarket.Handle("POST /credit", withAuth(handleCredit(marketService, logger)))

	root := http.NewServeMux()
	root.Handle("/api/market/", http.StripPrefix("/api/market", apimarket))

	handler := chain(root,
		middleware.LoggerMiddleware(logger),
	)

	return handler
}

type marketService interface {
	// Settle a purchase atomically: authoritative price re-read, conditional
	// debit, ledger append. Known failures: apperrors.ErrInsufficientFunds,
	// ErrItemNotFound, ErrUserNotFound, ErrPurchaseDuplicate.
	Purchase(ctx context.Context, userID uuid.UUID, itemID uuid.UUID, idempotencyKey uuid.UUID) (market.PurchaseResult, error)

	// Read paths; GetBalance creates a zero balance on first read
	GetBalance(ctx context.Context, userID uuid.UUID) (models.Balance, error)
	ListItems(ctx context.Context) ([]models.Item, error)
	ListPurchases(ctx context.Context, userID uuid.UUID) ([]models.Purchase, error)

	// Award coins; must return apperrors.ErrCreditInvalid on amount <= 0
	Credit(ctx context.Context, userID uuid.UUID, amount int64) (models.Balance, error)
}

type identityVerifier interface {
	// Validate the identity provider's token and return the user id
	UserID(tokenString string) (uuid.UUID, error)
}
