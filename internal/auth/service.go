package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNoSecret     = errors.New("jwt secret is not configured")
	ErrInvalidToken = errors.New("invalid token")
)

// Verifier issues and verifies HS256 actor tokens.
type Verifier struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

func NewVerifier(secret, issuer string, ttl time.Duration) (*Verifier, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Verifier{secret: []byte(secret), issuer: issuer, ttl: ttl}, nil
}

// Issue signs a token for subject with the given role.
func (v *Verifier) Issue(subject string, role Role) (string, error) {
	if subject == "" {
		return "", fmt.Errorf("%w: empty subject", ErrInvalidToken)
	}
	now := time.Now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    v.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(v.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// Verify parses a token and returns the actor it names.
func (v *Verifier) Verify(token string) (Actor, error) {
	claims := &Claims{}
	t, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Actor{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !t.Valid || claims.Subject == "" {
		return Actor{}, ErrInvalidToken
	}
	role := claims.Role
	if role == "" {
		role = RoleCustomer
	}
	return Actor{ID: claims.Subject, Role: role}, nil
}
