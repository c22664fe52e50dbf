package e2e

import (
	"net/http/httptest"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stretchr/testify/require"

	"github.com/azhulin/journalmart/internal/handlers"
	"github.com/azhulin/journalmart/internal/identity"
	"github.com/azhulin/journalmart/internal/logger"
	"github.com/azhulin/journalmart/internal/repository"
	"github.com/azhulin/journalmart/internal/repository/postgres"
	"github.com/azhulin/journalmart/internal/service/market"
	"github.com/azhulin/journalmart/internal/testutil"
)

type Services struct {
	Market   *market.MarketService
	Verifier *identity.Verifier
	Storage  repository.Storage
}

// Create db transaction and run server with that connection (one connection cause one transaction)
// The created transaction passed to inner function: so, you can safely use testutil.InTx with it
func ServeInTx(dbpool *pgxpool.Pool, t *testing.T, fn func(tx pgx.Tx, srvURL string, services Services)) {
	testutil.InTx(dbpool, t, func(tx pgx.Tx) {
		// Initialize repositories
		storage := postgres.NewStorage(tx)

		// Initialize services
		verifier, err := identity.NewVerifier(identity.Config{Secret: "test-secret"})
		require.NoError(t, err, "identity verifier should be created without errors")

		marketService := market.NewService(storage)

		// Complete all together as router
		router := handlers.NewRouter(
			marketService,
			verifier,
			logger.NewNoOpLogger(),
		)

		// Run http server with the router in transaction
		srv := httptest.NewServer(router)
		defer srv.Close()

		fn(tx, srv.URL, Services{
			Market:   marketService,
			Verifier: verifier,
			Storage:  storage,
		})
	})
}
