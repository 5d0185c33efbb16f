package credential

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var testNow = time.Unix(1_700_000_000, 0)

func signHS256(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func newTestStore(storage Storage) *Store {
	return NewStore(storage, nil,
		WithClock(func() time.Time { return testNow }),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

func TestResolveIdentityValidToken(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	store := newTestStore(storage)

	raw := signHS256(t, jwt.MapClaims{"sub": "alice", "exp": testNow.Add(time.Hour).Unix(), "role": "user"})
	require.NoError(t, store.Set(ctx, raw))

	identity := store.ResolveIdentity(ctx)
	require.NotNil(t, identity)
	require.Equal(t, "alice", identity.Subject)
	require.Equal(t, "user", identity.Claims.Extra["role"])

	// resolving does not consume a valid token
	stored, ok, err := store.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, raw, stored)
}

func TestResolveIdentityClearsInvalidTokens(t *testing.T) {
	cases := []struct {
		name string
		raw  func(t *testing.T) string
	}{
		{"expired", func(t *testing.T) string {
			return signHS256(t, jwt.MapClaims{"sub": "alice", "exp": testNow.Add(-time.Second).Unix()})
		}},
		{"garbage", func(*testing.T) string { return "not-a-jwt" }},
		{"bad base64 payload", func(*testing.T) string { return "eyJhbGciOiJIUzI1NiJ9.%%%.sig" }},
		{"missing subject", func(t *testing.T) string {
			return signHS256(t, jwt.MapClaims{"exp": testNow.Add(time.Hour).Unix()})
		}},
		{"non-string subject", func(t *testing.T) string {
			return signHS256(t, jwt.MapClaims{"sub": 42, "exp": testNow.Add(time.Hour).Unix()})
		}},
		{"non-numeric expiry", func(t *testing.T) string {
			return signHS256(t, jwt.MapClaims{"sub": "alice", "exp": "tomorrow"})
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			storage := NewMemoryStorage()
			store := newTestStore(storage)
			require.NoError(t, store.Set(ctx, tc.raw(t)))

			require.Nil(t, store.ResolveIdentity(ctx))
			_, ok, err := storage.Load(ctx)
			require.NoError(t, err)
			require.False(t, ok, "invalid credential must be cleared")

			// idempotent
			require.Nil(t, store.ResolveIdentity(ctx))
		})
	}
}

func TestResolveIdentityWithoutExpiry(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(NewMemoryStorage())
	require.NoError(t, store.Set(ctx, signHS256(t, jwt.MapClaims{"sub": "bob"})))

	identity := store.ResolveIdentity(ctx)
	require.NotNil(t, identity)
	require.Equal(t, "bob", identity.Subject)
	require.True(t, identity.Claims.ExpiresAt.IsZero())
}

func TestResolveIdentityExpiryBoundary(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(NewMemoryStorage())
	require.NoError(t, store.Set(ctx, signHS256(t, jwt.MapClaims{"sub": "carol", "exp": testNow.Unix()})))

	require.NotNil(t, store.ResolveIdentity(ctx), "a token expiring exactly now is still valid")
}

func TestResolveIdentityAbsent(t *testing.T) {
	store := newTestStore(NewMemoryStorage())
	require.Nil(t, store.ResolveIdentity(context.Background()))
}

func TestClearIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(NewMemoryStorage())
	require.NoError(t, store.Clear(ctx))
	require.NoError(t, store.Set(ctx, "x"))
	require.NoError(t, store.Clear(ctx))
	require.NoError(t, store.Clear(ctx))

	_, ok, err := store.Get(ctx)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSetDoesNotValidate(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	store := newTestStore(storage)

	require.NoError(t, store.Set(ctx, ""))
	_, ok, err := store.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	require.Nil(t, store.ResolveIdentity(ctx))
	_, ok, _ = storage.Load(ctx)
	require.False(t, ok)
}

type brokenStorage struct{}

func (brokenStorage) Load(context.Context) (string, bool, error) {
	return "", false, errors.New("disk on fire")
}
func (brokenStorage) Save(context.Context, string) error { return errors.New("disk on fire") }
func (brokenStorage) Delete(context.Context) error       { return errors.New("disk on fire") }

func TestResolveIdentityStorageFailure(t *testing.T) {
	store := newTestStore(brokenStorage{})
	require.NotPanics(t, func() {
		require.Nil(t, store.ResolveIdentity(context.Background()))
	})
}

type stubDecoder struct {
	claims *Claims
	err    error
}

func (d stubDecoder) Decode(context.Context, string) (*Claims, error) { return d.claims, d.err }

func TestStoreUsesInjectedDecoder(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	require.NoError(t, storage.Save(ctx, "opaque"))

	store := NewStore(storage, stubDecoder{claims: &Claims{Subject: "dave"}}, WithClock(func() time.Time { return testNow }))
	identity := store.ResolveIdentity(ctx)
	require.NotNil(t, identity)
	require.Equal(t, "dave", identity.Subject)

	store = NewStore(storage, stubDecoder{err: ErrUndecodable})
	require.Nil(t, store.ResolveIdentity(ctx))
	_, ok, _ := storage.Load(ctx)
	require.False(t, ok)
}
