// Package client is the typed HTTP client for the marketplace API. The
// purchase orchestrator drives it; it maps the endpoint's failure reasons
// back to the apperrors sentinels and classifies transport failures and
// server errors as transient, so callers know a re-fetch is required before
// any retry.
package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/azhulin/journalmart/internal/apperrors"
	"github.com/azhulin/journalmart/internal/models"
)

const defaultTimeout = 10 * time.Second

// Failure reasons of the purchase endpoint, mirrored from the server
const (
	reasonInsufficientFunds = "insufficient_funds"
	reasonItemNotFound      = "item_not_found"
	reasonUserNotFound      = "user_not_found"
)

type Config struct {
	// Base URL of the marketplace server, e.g. http://localhost:8000
	// Required to be set
	BaseURL string

	// Session token from the identity provider
	Token string

	// Per-call timeout bound
	// If not set than default is used
	Timeout time.Duration
}

type Client struct {
	http *resty.Client
}

func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url must not be empty")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}

	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetAuthToken(cfg.Token).
		SetHeader("Accept", "application/json")

	return &Client{http: httpClient}, nil
}

// PurchaseRecord is one row of the user's purchase history
type PurchaseRecord struct {
	ID               uuid.UUID `json:"id"`
	IdempotencyToken uuid.UUID `json:"idempotency_token"`
	ItemID           uuid.UUID `json:"item_id"`
	Price            int64     `json:"price"`
	PurchasedAt      time.Time `json:"purchased_at"`
}

// ListItems fetches the catalog
func (c *Client) ListItems(ctx context.Context) ([]models.Item, error) {
	var items []struct {
		ID       uuid.UUID `json:"id"`
		Name     string    `json:"name"`
		Price    int64     `json:"price"`
		ImageURL string    `json:"image_url"`
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&items).
		Get("/api/market/items")
	if err := classify(resp, err); err != nil {
		return nil, err
	}

	result := make([]models.Item, 0, len(items))
	for _, i := range items {
		result = append(result, models.Item{ID: i.ID, Name: i.Name, Price: i.Price, ImageURL: i.ImageURL})
	}
	return result, nil
}

// Balance fetches the authoritative coin balance
func (c *Client) Balance(ctx context.Context) (int64, error) {
	var balance struct {
		Coins int64 `json:"coins"`
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&balance).
		Get("/api/market/balance")
	if err := classify(resp, err); err != nil {
		return 0, err
	}

	return balance.Coins, nil
}

// Purchases fetches the user's purchase history, newest first
func (c *Client) Purchases(ctx context.Context) ([]PurchaseRecord, error) {
	var records []PurchaseRecord

	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&records).
		Get("/api/market/purchases")
	if err := classify(resp, err); err != nil {
		return nil, err
	}

	return records, nil
}

// HasPurchase reports whether a purchase with the idempotency token already
// settled. Used as the ground-truth probe after an ambiguous commit.
func (c *Client) HasPurchase(ctx context.Context, token uuid.UUID) (bool, error) {
	records, err := c.Purchases(ctx)
	if err != nil {
		return false, err
	}

	for _, r := range records {
		if r.IdempotencyToken == token {
			return true, nil
		}
	}
	return false, nil
}

// Purchase commits the purchase and returns the new balance. The token is
// the idempotency key: re-sending the same token can never double-charge.
func (c *Client) Purchase(ctx context.Context, itemID uuid.UUID, token uuid.UUID) (int64, error) {
	type request struct {
		ItemID           uuid.UUID `json:"item_id"`
		IdempotencyToken uuid.UUID `json:"idempotency_token"`
	}

	var result struct {
		Success    bool  `json:"success"`
		NewBalance int64 `json:"new_balance"`
	}
	var failure struct {
		Success bool   `json:"success"`
		Reason  string `json:"reason"`
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(request{ItemID: itemID, IdempotencyToken: token}).
		SetResult(&result).
		SetError(&failure).
		Post("/api/market/purchase")
	if err != nil {
		return 0, fmt.Errorf("%w: %w", apperrors.ErrTransient, err)
	}

	if resp.IsError() {
		switch failure.Reason {
		case reasonInsufficientFunds:
			return 0, apperrors.ErrInsufficientFunds
		case reasonItemNotFound:
			return 0, apperrors.ErrItemNotFound
		case reasonUserNotFound:
			return 0, apperrors.ErrUserNotFound
		default:
			return 0, fmt.Errorf("%w: purchase failed with status %d", apperrors.ErrTransient, resp.StatusCode())
		}
	}

	return result.NewBalance, nil
}

// Credit awards coins to the user and returns the new balance
func (c *Client) Credit(ctx context.Context, amount int64) (int64, error) {
	type request struct {
		Amount int64 `json:"amount"`
	}

	var balance struct {
		Coins int64 `json:"coins"`
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(request{Amount: amount}).
		SetResult(&balance).
		Post("/api/market/credit")
	if err := classify(resp, err); err != nil {
		return 0, err
	}

	return balance.Coins, nil
}

// classify folds transport errors and non-2xx responses into one error.
// Anything but a clean response is transient from the caller's point of
// view: state must be re-fetched before acting on it.
func classify(resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrTransient, err)
	}
	if resp.IsError() {
		if resp.StatusCode() == http.StatusUnauthorized {
			return fmt.Errorf("request unauthorized, status %d", resp.StatusCode())
		}
		return fmt.Errorf("%w: unexpected status %d", apperrors.ErrTransient, resp.StatusCode())
	}
	return nil
}
