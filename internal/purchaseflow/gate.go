package purchaseflow

import (
	"context"
	"errors"
	"time"
)

// Gate outcomes. Exactly one terminal outcome per gated intent; abandonment
// is a normal result, not an error.
type Outcome int

const (
	OutcomePassed Outcome = iota
	OutcomeAbandoned
)

func (o Outcome) String() string {
	switch o {
	case OutcomePassed:
		return "passed"
	case OutcomeAbandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

// Gate is the comprehension check shown between intent and commit. The gate's
// internal logic (questions, scoring) is opaque here: it blocks until the
// user passes or walks away.
type Gate interface {
	Run(ctx context.Context, intent Intent) (Outcome, error)
}

// GatePolicy decides whether an intent must pass the gate before committing
type GatePolicy func(intent Intent) bool

// AlwaysGate is the current policy: every purchase attempt is gated.
// Exemptions (item categories, trusted users) are a policy swap, not a
// flow change.
func AlwaysGate(Intent) bool { return true }

const defaultGateTimeout = 10 * time.Minute

type GateConfig struct {
	// Policy deciding which intents are gated
	// If not set every intent is gated
	RequiresGate GatePolicy

	// Upper bound on how long the gate may stay open
	// If not set than default is used
	Timeout time.Duration
}

// GateController interposes the gate between a purchase intent and its
// commit. It owns the gating policy and the duration bound; it holds no
// server-side resource while the gate is open.
type GateController struct {
	gate         Gate
	requiresGate GatePolicy
	timeout      time.Duration
}

func NewGateController(cfg GateConfig, gate Gate) (*GateController, error) {
	if gate == nil {
		return nil, errors.New("gate must not be nil")
	}
	if cfg.RequiresGate == nil {
		cfg.RequiresGate = AlwaysGate
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultGateTimeout
	}

	return &GateController{
		gate:         gate,
		requiresGate: cfg.RequiresGate,
		timeout:      cfg.Timeout,
	}, nil
}

// Resolve runs the gate for the intent and returns its terminal outcome.
// Intents the policy exempts pass immediately. Hitting the timeout resolves
// as abandoned: walking away and timing out look the same to the purchase.
func (c *GateController) Resolve(ctx context.Context, intent Intent) (Outcome, error) {
	if !c.requiresGate(intent) {
		return OutcomePassed, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	outcome, err := c.gate.Run(ctx, intent)
	switch {
	case err == nil:
		return outcome, nil
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return OutcomeAbandoned, nil
	default:
		return OutcomeAbandoned, err
	}
}
