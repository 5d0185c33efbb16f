package credential

import (
	"context"
	"log/slog"
	"time"
)

// Identity is the authenticated principal derived from a valid credential.
type Identity struct {
	Subject string
	Claims  *Claims
}

// Store is the single source of truth for whether a usable credential exists.
type Store struct {
	storage Storage
	decoder Decoder
	now     func() time.Time
	logger  *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// NewStore creates a Store over storage. A nil decoder selects JWTDecoder.
func NewStore(storage Storage, decoder Decoder, opts ...Option) *Store {
	if decoder == nil {
		decoder = NewJWTDecoder()
	}
	s := &Store{
		storage: storage,
		decoder: decoder,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Set persists raw as-is. Nothing is validated at write time; ResolveIdentity
// discards whatever does not decode.
func (s *Store) Set(ctx context.Context, raw string) error {
	return s.storage.Save(ctx, raw)
}

// Get returns the raw stored token, ok == false when none is stored.
func (s *Store) Get(ctx context.Context) (string, bool, error) {
	return s.storage.Load(ctx)
}

// Clear removes the stored token. It is idempotent.
func (s *Store) Clear(ctx context.Context) error {
	return s.storage.Delete(ctx)
}

// ResolveIdentity returns the identity of the stored credential, or nil when
// there is none. Corrupt, subject-less and expired tokens are cleared.
// It never fails: storage errors are logged and reported as unauthenticated.
func (s *Store) ResolveIdentity(ctx context.Context) *Identity {
	raw, ok, err := s.storage.Load(ctx)
	if err != nil {
		s.logger.Warn("failed to read credential", "error", err)
		return nil
	}
	if !ok {
		return nil
	}

	claims, err := s.decoder.Decode(ctx, raw)
	if err != nil {
		s.logger.Info("discarding undecodable credential", "error", err)
		s.discard(ctx)
		return nil
	}
	if claims.Subject == "" {
		s.logger.Info("discarding credential without subject")
		s.discard(ctx)
		return nil
	}
	if claims.Expired(s.now()) {
		s.logger.Info("discarding expired credential", "subject", claims.Subject, "expired_at", claims.ExpiresAt)
		s.discard(ctx)
		return nil
	}

	return &Identity{Subject: claims.Subject, Claims: claims}
}

func (s *Store) discard(ctx context.Context) {
	if err := s.storage.Delete(ctx); err != nil {
		s.logger.Warn("failed to clear credential", "error", err)
	}
}
