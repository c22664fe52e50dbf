// Package identity consumes sessions issued by the external identity
// provider. The only fact the marketplace needs is a stable user id, so the
// package verifies the provider's HS256 token and extracts the uid claim.
// Minting lives here too for tests and local tooling; production tokens come
// from the provider.
package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	defaultSigningMethod = "HS256"
	defaultTokenTTL      = 24 * time.Hour
)

var ErrTokenInvalid = errors.New("session token invalid")

type Claims struct {
	jwt.RegisteredClaims
	UserID uuid.UUID `json:"uid"`
}

type Config struct {
	// Shared secret of the identity provider
	// Required to be set
	Secret string

	// JWT MAC (Message Authentication Code) algorithm
	// If not set than default is used
	Alg string

	// Lifetime of minted tokens (tests and tooling only)
	TokenTTL time.Duration
}

type Verifier struct {
	key []byte
	alg jwt.SigningMethod
	ttl time.Duration
}

func NewVerifier(cfg Config) (*Verifier, error) {
	if cfg.Secret == "" {
		return nil, errors.New("identity secret must not be empty")
	}
	if cfg.Alg == "" {
		cfg.Alg = defaultSigningMethod
	}
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = defaultTokenTTL
	}

	alg := jwt.GetSigningMethod(cfg.Alg)
	if alg == nil {
		return nil, fmt.Errorf("unknown signing method %q", cfg.Alg)
	}

	return &Verifier{
		key: []byte(cfg.Secret),
		alg: alg,
		ttl: cfg.TokenTTL,
	}, nil
}

// UserID validates the token string and returns the uid claim
func (v *Verifier) UserID(tokenString string) (uuid.UUID, error) {
	var claims Claims

	_, err := jwt.ParseWithClaims(
		tokenString,
		&claims,
		func(t *jwt.Token) (any, error) { return v.key, nil },
		jwt.WithValidMethods([]string{v.alg.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	if claims.UserID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: uid claim missing", ErrTokenInvalid)
	}

	return claims.UserID, nil
}

// Mint signs a token for the user the way the identity provider would
func (v *Verifier) Mint(userID uuid.UUID) (string, error) {
	now := time.Now().Truncate(time.Second)

	token := jwt.NewWithClaims(
		v.alg,
		Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				ID:        uuid.NewString(),
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(v.ttl)),
			},
			UserID: userID,
		},
	)

	signed, err := token.SignedString(v.key)
	if err != nil {
		return "", fmt.Errorf("error while signing token. Err: %w", err)
	}

	return signed, nil
}
