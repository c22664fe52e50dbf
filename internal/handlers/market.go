package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/azhulin/journalmart/internal/apperrors"
	"github.com/azhulin/journalmart/internal/handlers/render"
	"github.com/azhulin/journalmart/internal/handlers/userctx"
	"github.com/azhulin/journalmart/internal/logger"
)

// Machine-readable failure reasons of the purchase endpoint.
// The client maps these back to its own error values.
const (
	ReasonInsufficientFunds = "insufficient_funds"
	ReasonItemNotFound      = "item_not_found"
	ReasonUserNotFound      = "user_not_found"
	ReasonTransient         = "transient_error"
)

type purchaseFailure struct {
	Success bool   `json:"success"`
	Reason  string `json:"reason"`
}

func handleListItems(marketService marketService, l logger.Logger) http.Handler {
	type item struct {
		ID       uuid.UUID `json:"id"`
		Name     string    `json:"name"`
		Price    int64     `json:"price"`
		ImageURL string    `json:"image_url"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		items, err := marketService.ListItems(r.Context())
		if err != nil {
			l.Error("Failed to list items", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		response := make([]item, 0, len(items))
		for _, i := range items {
			response = append(response, item{ID: i.ID, Name: i.Name, Price: i.Price, ImageURL: i.ImageURL})
		}
		render.JSON(w, response)
	})
}

func handleBalance(marketService marketService, l logger.Logger) http.Handler {
	type response struct {
		Coins int64 `json:"coins"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
			return
		}

		balance, err := marketService.GetBalance(r.Context(), userID)
		if err != nil {
			l.Error("Failed to get balance", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, response{Coins: balance.Coins})
	})
}

func handleListPurchases(marketService marketService, l logger.Logger) http.Handler {
	type purchase struct {
		ID uuid.UUID `json:"id"`
		// Token lets the client reconcile a commit whose response was lost
		IdempotencyToken uuid.UUID `json:"idempotency_token"`
		ItemID           uuid.UUID `json:"item_id"`
		Price            int64     `json:"price"`
		PurchasedAt      time.Time `json:"purchased_at"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
			return
		}

		purchases, err := marketService.ListPurchases(r.Context(), userID)
		if err != nil {
			l.Error("Failed to list purchases", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		response := make([]purchase, 0, len(purchases))
		for _, p := range purchases {
			response = append(response, purchase{
				ID:               p.ID,
				IdempotencyToken: p.IdempotencyKey,
				ItemID:           p.ItemID,
				Price:            p.Price,
				PurchasedAt:      p.CreatedAt,
			})
		}
		render.JSON(w, response)
	})
}

func handlePurchase(marketService marketService, l logger.Logger) http.Handler {
	type request struct {
		ItemID           uuid.UUID `json:"item_id" validate:"required"`
		IdempotencyToken uuid.UUID `json:"idempotency_token" validate:"required"`
	}

	type response struct {
		Success    bool  `json:"success"`
		NewBalance int64 `json:"new_balance"`
		Replayed   bool  `json:"replayed,omitempty"`
	}

	fail := func(w http.ResponseWriter, reason string, code int) {
		render.JSONWithStatus(w, purchaseFailure{Success: false, Reason: reason}, code)
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
			return
		}

		req, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		result, err := marketService.Purchase(r.Context(), userID, req.ItemID, req.IdempotencyToken)

		switch {
		case err == nil:
			render.JSON(w, response{
				Success:    true,
				NewBalance: result.Balance.Coins,
				Replayed:   result.Replayed,
			})
		case errors.Is(err, apperrors.ErrInsufficientFunds):
			fail(w, ReasonInsufficientFunds, http.StatusPaymentRequired)
		case errors.Is(err, apperrors.ErrItemNotFound):
			fail(w, ReasonItemNotFound, http.StatusNotFound)
		case errors.Is(err, apperrors.ErrUserNotFound):
			fail(w, ReasonUserNotFound, http.StatusNotFound)
		case errors.Is(err, apperrors.ErrPurchaseDuplicate):
			// Idempotency key reused for a different purchase
			render.ServiceError(w, "Idempotency token already used", http.StatusConflict)
		default:
			l.Error("Failed to settle purchase", "error", err, "user_id", userID, "item_id", req.ItemID)
			fail(w, ReasonTransient, http.StatusInternalServerError)
		}
	})
}

func handleCredit(marketService marketService, l logger.Logger) http.Handler {
	type request struct {
		Amount int64 `json:"amount" validate:"required,gt=0"`
	}

	type response struct {
		Coins int64 `json:"coins"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
			return
		}

		req, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		balance, err := marketService.Credit(r.Context(), userID, req.Amount)

		switch {
		case err == nil:
			render.JSON(w, response{Coins: balance.Coins})
		case errors.Is(err, apperrors.ErrCreditInvalid):
			render.ServiceError(w, "Credit amount must be positive", http.StatusUnprocessableEntity)
		default:
			l.Error("Failed to credit balance", "error", err, "user_id", userID)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}
