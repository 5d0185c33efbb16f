package credential

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestJWTDecoder(t *testing.T) {
	raw := signHS256(t, jwt.MapClaims{"sub": "alice", "exp": testNow.Unix(), "name": "Alice"})

	claims, err := NewJWTDecoder().Decode(context.Background(), raw)
	require.NoError(t, err)
	require.Equal(t, "alice", claims.Subject)
	require.True(t, claims.ExpiresAt.Equal(testNow))
	require.Equal(t, "Alice", claims.Extra["name"])
	require.NotContains(t, claims.Extra, "sub")
	require.NotContains(t, claims.Extra, "exp")
}

func TestJWTDecoderIgnoresSignature(t *testing.T) {
	raw := signHS256(t, jwt.MapClaims{"sub": "alice"})
	tampered := raw[:len(raw)-4] + "AAAA"

	claims, err := NewJWTDecoder().Decode(context.Background(), tampered)
	require.NoError(t, err)
	require.Equal(t, "alice", claims.Subject)
}

func TestJWTDecoderRejectsMalformed(t *testing.T) {
	for _, raw := range []string{"", "a.b", "a.b.c", "Bearer xyz"} {
		_, err := NewJWTDecoder().Decode(context.Background(), raw)
		require.Error(t, err, raw)
		require.True(t, errors.Is(err, ErrUndecodable), raw)
	}
}

func TestClaimsExpired(t *testing.T) {
	require.False(t, (&Claims{}).Expired(testNow))
	require.False(t, (&Claims{ExpiresAt: testNow}).Expired(testNow))
	require.True(t, (&Claims{ExpiresAt: testNow.Add(-time.Nanosecond)}).Expired(testNow))
}

const testIssuer = "https://issuer.example.test"

func signRS256(t *testing.T, key *rsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func TestOIDCDecoder(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	keySet := &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&key.PublicKey}}
	decoder := NewOIDCDecoderWithKeySet(testIssuer, keySet, "")
	ctx := context.Background()

	t.Run("valid signature", func(t *testing.T) {
		raw := signRS256(t, key, jwt.MapClaims{"iss": testIssuer, "sub": "alice", "exp": time.Now().Add(time.Hour).Unix()})
		claims, err := decoder.Decode(ctx, raw)
		require.NoError(t, err)
		require.Equal(t, "alice", claims.Subject)
		require.Equal(t, testIssuer, claims.Extra["iss"])
	})

	t.Run("expired token still decodes", func(t *testing.T) {
		exp := time.Now().Add(-time.Hour).Truncate(time.Second)
		raw := signRS256(t, key, jwt.MapClaims{"iss": testIssuer, "sub": "alice", "exp": exp.Unix()})
		claims, err := decoder.Decode(ctx, raw)
		require.NoError(t, err)
		require.True(t, claims.Expired(time.Now()))
	})

	t.Run("foreign key", func(t *testing.T) {
		other, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)
		raw := signRS256(t, other, jwt.MapClaims{"iss": testIssuer, "sub": "mallory"})
		_, err = decoder.Decode(ctx, raw)
		require.ErrorIs(t, err, ErrUndecodable)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		raw := signRS256(t, key, jwt.MapClaims{"iss": "https://elsewhere", "sub": "alice"})
		_, err := decoder.Decode(ctx, raw)
		require.ErrorIs(t, err, ErrUndecodable)
	})

	t.Run("hs256 rejected", func(t *testing.T) {
		_, err := decoder.Decode(ctx, signHS256(t, jwt.MapClaims{"iss": testIssuer, "sub": "alice"}))
		require.ErrorIs(t, err, ErrUndecodable)
	})
}
