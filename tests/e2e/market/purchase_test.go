package market

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/azhulin/journalmart/internal/models"
	"github.com/azhulin/journalmart/internal/testutil"
	"github.com/azhulin/journalmart/tests/e2e"
)

const (
	PurchaseURL  = "/api/market/purchase"
	PurchasesURL = "/api/market/purchases"
)

func Test_Purchase(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	type request struct {
		ItemID           uuid.UUID `json:"item_id"`
		IdempotencyToken uuid.UUID `json:"idempotency_token"`
	}

	e2e.ServeInTx(pg.Pool, t, func(tx pgx.Tx, srvURL string, s e2e.Services) {
		userID := uuid.New()

		doPurchase := func(t *testing.T, data request) *http.Response {
			t.Helper()

			d, err := json.Marshal(data)
			require.NoError(t, err, "failed to marshal purchase request")
			req, err := http.NewRequest(http.MethodPost, srvURL+PurchaseURL, bytes.NewReader(d))
			require.NoError(t, err, "failed to create request")

			// Set session token the identity provider would have issued
			token, err := s.Verifier.Mint(userID)
			require.NoError(t, err, "failed to mint session token")
			req.Header.Set("Authorization", "Bearer "+token)

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err, "failed to send request")

			return resp
		}

		newItem := func(t *testing.T, price int64) models.Item {
			t.Helper()
			item, err := s.Storage.Catalog().CreateItem(t.Context(), "Wisdom scroll", price, "")
			require.NoError(t, err)
			return item
		}

		t.Run("purchase settles", func(t *testing.T) {
			testutil.InTx(tx, t, func(_ pgx.Tx) {
				_, err := s.Storage.Balance().Credit(t.Context(), userID, 100)
				require.NoError(t, err)
				item := newItem(t, 60)

				resp := doPurchase(t, request{ItemID: item.ID, IdempotencyToken: uuid.New()})
				defer resp.Body.Close() // nolint:errcheck
				body, err := io.ReadAll(resp.Body)
				require.NoError(t, err, "failed to read response body")

				require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code, body: %s", string(body))
				require.JSONEq(t, `{
					"success": true,
					"new_balance": 40
				}`, string(body), "not expected response body")

				purchases, err := s.Market.ListPurchases(t.Context(), userID)
				require.NoError(t, err)
				require.Len(t, purchases, 1, "one ledger record per settlement")
				require.Equal(t, int64(60), purchases[0].Price)
			})
		})

		t.Run("insufficient funds rejected", func(t *testing.T) {
			testutil.InTx(tx, t, func(_ pgx.Tx) {
				_, err := s.Storage.Balance().Credit(t.Context(), userID, 50)
				require.NoError(t, err)
				item := newItem(t, 60)

				resp := doPurchase(t, request{ItemID: item.ID, IdempotencyToken: uuid.New()})
				defer resp.Body.Close() // nolint:errcheck
				body, err := io.ReadAll(resp.Body)
				require.NoError(t, err)

				require.Equalf(t, http.StatusPaymentRequired, resp.StatusCode, "not expected code, body: %s", string(body))
				require.JSONEq(t, `{
					"success": false,
					"reason": "insufficient_funds"
				}`, string(body))

				balance, err := s.Market.GetBalance(t.Context(), userID)
				require.NoError(t, err)
				require.Equal(t, int64(50), balance.Coins, "rejected purchase must not debit")
			})
		})

		t.Run("unknown item rejected", func(t *testing.T) {
			testutil.InTx(tx, t, func(_ pgx.Tx) {
				_, err := s.Storage.Balance().Credit(t.Context(), userID, 100)
				require.NoError(t, err)

				resp := doPurchase(t, request{ItemID: uuid.New(), IdempotencyToken: uuid.New()})
				defer resp.Body.Close() // nolint:errcheck
				body, err := io.ReadAll(resp.Body)
				require.NoError(t, err)

				require.Equalf(t, http.StatusNotFound, resp.StatusCode, "not expected code, body: %s", string(body))
				require.JSONEq(t, `{
					"success": false,
					"reason": "item_not_found"
				}`, string(body))
			})
		})

		t.Run("user without balance rejected", func(t *testing.T) {
			testutil.InTx(tx, t, func(_ pgx.Tx) {
				item := newItem(t, 60)

				resp := doPurchase(t, request{ItemID: item.ID, IdempotencyToken: uuid.New()})
				defer resp.Body.Close() // nolint:errcheck
				body, err := io.ReadAll(resp.Body)
				require.NoError(t, err)

				require.Equalf(t, http.StatusNotFound, resp.StatusCode, "not expected code, body: %s", string(body))
				require.JSONEq(t, `{
					"success": false,
					"reason": "user_not_found"
				}`, string(body))
			})
		})

		t.Run("retry with same token does not double debit", func(t *testing.T) {
			testutil.InTx(tx, t, func(_ pgx.Tx) {
				_, err := s.Storage.Balance().Credit(t.Context(), userID, 100)
				require.NoError(t, err)
				item := newItem(t, 60)
				token := uuid.New()

				first := doPurchase(t, request{ItemID: item.ID, IdempotencyToken: token})
				defer first.Body.Close() // nolint:errcheck
				require.Equal(t, http.StatusOK, first.StatusCode)

				// Pretend the response was lost and the client retried
				second := doPurchase(t, request{ItemID: item.ID, IdempotencyToken: token})
				defer second.Body.Close() // nolint:errcheck
				body, err := io.ReadAll(second.Body)
				require.NoError(t, err)

				require.Equalf(t, http.StatusOK, second.StatusCode, "retry should succeed, body: %s", string(body))
				require.JSONEq(t, `{
					"success": true,
					"new_balance": 40,
					"replayed": true
				}`, string(body), "retry must replay the original settlement")

				purchases, err := s.Market.ListPurchases(t.Context(), userID)
				require.NoError(t, err)
				require.Len(t, purchases, 1, "one ledger record despite two calls")

				balance, err := s.Market.GetBalance(t.Context(), userID)
				require.NoError(t, err)
				require.Equal(t, int64(40), balance.Coins, "single debit despite two calls")
			})
		})

		t.Run("missing fields rejected", func(t *testing.T) {
			testutil.InTx(tx, t, func(_ pgx.Tx) {
				resp := doPurchase(t, request{})
				defer resp.Body.Close() // nolint:errcheck

				require.Equal(t, http.StatusBadRequest, resp.StatusCode)
			})
		})

		t.Run("unauthorized request", func(t *testing.T) {
			testutil.InTx(tx, t, func(_ pgx.Tx) {
				req, err := http.NewRequest(http.MethodPost, srvURL+PurchaseURL, nil)
				require.NoError(t, err, "failed to create request")

				resp, err := http.DefaultClient.Do(req)
				require.NoError(t, err, "failed to send request")
				defer resp.Body.Close() // nolint:errcheck

				require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			})
		})
	})
}
