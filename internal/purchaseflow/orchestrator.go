// Package purchaseflow is the client-side purchase workflow: a state machine
// that takes one purchase attempt from intent through the quiz gate to the
// server commit, holding at most one in-flight intent at a time.
//
// The client's balance and price snapshots are advisory only. Every decision
// that moves coins is re-validated server-side; the snapshots exist to refuse
// obviously hopeless attempts before bothering the user with the gate.
package purchaseflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/azhulin/journalmart/internal/apperrors"
	"github.com/azhulin/journalmart/internal/logger"
	"github.com/azhulin/journalmart/internal/models"
)

// States of the purchase orchestrator. Terminal states (Settled, Rejected,
// Abandoned) resolve back to Idle before Attempt returns; the Result carries
// which terminal state the attempt reached.
type State int

const (
	StateIdle State = iota
	StateAttemptPending
	StateGating
	StateCommitting
	StateSettled
	StateRejected
	StateAbandoned
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAttemptPending:
		return "attempt_pending"
	case StateGating:
		return "gating"
	case StateCommitting:
		return "committing"
	case StateSettled:
		return "settled"
	case StateRejected:
		return "rejected"
	case StateAbandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

// Intent is the transient record of one in-flight purchase attempt. Price is
// the catalog snapshot at attempt time and never changes while gating; the
// server re-reads the authoritative price at commit. Token is the
// idempotency key carried through to the commit call, so a retried commit of
// the same attempt can never double-charge.
type Intent struct {
	Token     uuid.UUID
	ItemID    uuid.UUID
	Price     int64
	CreatedAt time.Time
}

// Result of a finished attempt. State is one of the terminal states. Reason
// is set when Rejected. NewBalance is valid when Settled.
type Result struct {
	State      State
	Intent     Intent
	NewBalance int64
	Replayed   bool
	Reason     error
}

// marketAPI is the server surface the orchestrator drives
type marketAPI interface {
	// Commit the purchase; the token is the idempotency key.
	// Known failures: apperrors.ErrInsufficientFunds, ErrItemNotFound,
	// ErrUserNotFound, ErrTransient.
	Purchase(ctx context.Context, itemID uuid.UUID, token uuid.UUID) (newBalance int64, err error)

	// Current authoritative balance
	Balance(ctx context.Context) (int64, error)

	// Whether a purchase with the idempotency token already settled
	HasPurchase(ctx context.Context, token uuid.UUID) (bool, error)
}

type Orchestrator struct {
	api    marketAPI
	gates  *GateController
	logger logger.Logger

	mu      sync.Mutex
	state   State
	pending *Intent

	// Advisory balance cache; stale after any mutating call
	cachedBalance int64
	balanceFresh  bool
}

func New(api marketAPI, gates *GateController, l logger.Logger) *Orchestrator {
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &Orchestrator{
		api:    api,
		gates:  gates,
		logger: l,
		state:  StateIdle,
	}
}

// State returns the current state of the in-flight attempt, or Idle
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// RefreshBalance re-fetches the authoritative balance and updates the
// advisory cache
func (o *Orchestrator) RefreshBalance(ctx context.Context) (int64, error) {
	coins, err := o.api.Balance(ctx)
	if err != nil {
		return 0, err
	}

	o.mu.Lock()
	o.cachedBalance = coins
	o.balanceFresh = true
	o.mu.Unlock()

	return coins, nil
}

// Attempt runs one purchase attempt end to end: affordability guard, gate,
// commit. Exactly one attempt may be in flight; a second call while gating
// or committing fails with apperrors.ErrAttemptInFlight instead of queuing.
//
// The returned Result is terminal and the orchestrator is Idle again. A
// Rejected result is never retried automatically: the price and balance
// snapshots may be stale, so a new attempt requires a new user action.
func (o *Orchestrator) Attempt(ctx context.Context, item models.Item) (Result, error) {
	intent, err := o.acquireIntent(ctx, item)
	if err != nil {
		return Result{}, err
	}
	defer o.releaseIntent()

	o.logger.Debug("purchase attempt", "item_id", item.ID, "price", item.Price, "token", intent.Token)

	// Gate. The intent is fixed for the whole suspension; no server resource
	// is reserved, the commit re-validates everything.
	o.setState(StateGating)
	outcome, err := o.gates.Resolve(ctx, intent)
	if err != nil {
		return Result{}, fmt.Errorf("gate failed: %w", err)
	}
	if outcome == OutcomeAbandoned {
		o.setState(StateAbandoned)
		o.logger.Debug("gate abandoned", "token", intent.Token)
		return Result{State: StateAbandoned, Intent: intent}, nil
	}

	return o.commit(ctx, intent)
}

// RetryCommit re-commits an attempt whose outcome is unknown (the commit
// timed out and the first call may have settled server-side). Ground truth
// is checked first: if the token already landed in the ledger the original
// settlement is reported, otherwise the commit is re-sent with the same
// idempotency token, which the server deduplicates.
func (o *Orchestrator) RetryCommit(ctx context.Context, intent Intent) (Result, error) {
	if err := o.occupySlot(intent); err != nil {
		return Result{}, err
	}
	defer o.releaseIntent()

	settled, err := o.api.HasPurchase(ctx, intent.Token)
	if err != nil {
		return Result{}, fmt.Errorf("failed to check ledger before retry: %w", err)
	}
	if settled {
		coins, err := o.RefreshBalance(ctx)
		if err != nil {
			return Result{}, err
		}

		o.setState(StateSettled)
		return Result{State: StateSettled, Intent: intent, NewBalance: coins, Replayed: true}, nil
	}

	return o.commit(ctx, intent)
}

func (o *Orchestrator) commit(ctx context.Context, intent Intent) (Result, error) {
	o.setState(StateCommitting)

	newBalance, err := o.api.Purchase(ctx, intent.ItemID, intent.Token)
	if err != nil {
		// Every failure out of Committing is a terminal Rejected with a
		// specific reason; nothing is retried here
		o.setState(StateRejected)
		o.invalidateBalance()
		o.logger.Debug("purchase rejected", "token", intent.Token, "reason", err)
		return Result{State: StateRejected, Intent: intent, Reason: err}, nil
	}

	o.setState(StateSettled)
	o.setBalance(newBalance)
	o.logger.Debug("purchase settled", "token", intent.Token, "new_balance", newBalance)

	return Result{State: StateSettled, Intent: intent, NewBalance: newBalance}, nil
}

// acquireIntent takes the single intent slot and runs the affordability
// guard against the cached balance, refreshing it if stale
func (o *Orchestrator) acquireIntent(ctx context.Context, item models.Item) (Intent, error) {
	o.mu.Lock()
	fresh := o.balanceFresh
	o.mu.Unlock()

	if !fresh {
		if _, err := o.RefreshBalance(ctx); err != nil {
			return Intent{}, err
		}
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.pending != nil {
		return Intent{}, apperrors.ErrAttemptInFlight
	}

	// Pre-gate guard on the advisory snapshot. The server re-checks at
	// commit; this only refuses attempts that can't possibly succeed.
	if o.cachedBalance < item.Price {
		return Intent{}, apperrors.ErrInsufficientFunds
	}

	intent := Intent{
		Token:     uuid.New(),
		ItemID:    item.ID,
		Price:     item.Price,
		CreatedAt: time.Now(),
	}
	o.pending = &intent
	o.state = StateAttemptPending

	return intent, nil
}

func (o *Orchestrator) occupySlot(intent Intent) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.pending != nil {
		return apperrors.ErrAttemptInFlight
	}

	o.pending = &intent
	o.state = StateAttemptPending
	return nil
}

// releaseIntent discards the pending intent and resolves back to Idle
func (o *Orchestrator) releaseIntent() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pending = nil
	o.state = StateIdle
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = s
}

func (o *Orchestrator) setBalance(coins int64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cachedBalance = coins
	o.balanceFresh = true
}

func (o *Orchestrator) invalidateBalance() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.balanceFresh = false
}
