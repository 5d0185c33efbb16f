package credential

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrUndecodable is wrapped by every Decoder error.
var ErrUndecodable = errors.New("credential is not decodable")

// Claims are the fields of a token the session layer cares about.
type Claims struct {
	Subject   string
	ExpiresAt time.Time // zero when the token carries no exp claim
	Extra     map[string]any
}

// Expired reports whether the token expired strictly before now.
// Tokens without an expiry never expire on the client side.
func (c *Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && c.ExpiresAt.Before(now)
}

// Decoder extracts claims from a raw bearer token.
type Decoder interface {
	Decode(ctx context.Context, raw string) (*Claims, error)
}

// JWTDecoder reads the claim set of a JWT without checking its signature.
// The client never holds the issuer's key, so only structure is validated.
type JWTDecoder struct {
	parser *jwt.Parser
}

// NewJWTDecoder creates a JWTDecoder.
func NewJWTDecoder() *JWTDecoder {
	return &JWTDecoder{parser: jwt.NewParser()}
}

// Decode parses raw as a JWT and returns its subject, expiry and remaining claims.
func (d *JWTDecoder) Decode(_ context.Context, raw string) (*Claims, error) {
	mapClaims := jwt.MapClaims{}
	if _, _, err := d.parser.ParseUnverified(raw, mapClaims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}

	sub, err := mapClaims.GetSubject()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	exp, err := mapClaims.GetExpirationTime()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}

	claims := &Claims{Subject: sub, Extra: make(map[string]any, len(mapClaims))}
	if exp != nil {
		claims.ExpiresAt = exp.Time
	}
	for k, v := range mapClaims {
		if k == "sub" || k == "exp" {
			continue
		}
		claims.Extra[k] = v
	}
	return claims, nil
}

var _ Decoder = (*JWTDecoder)(nil)
