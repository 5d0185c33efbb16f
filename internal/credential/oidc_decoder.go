package credential

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
)

// OIDCDecoder verifies tokens against an OIDC issuer before exposing their claims.
// Expiry is left to Store so every decoder shares one expiry rule.
type OIDCDecoder struct {
	verifier *oidc.IDTokenVerifier
}

// NewOIDCDecoder discovers the issuer (.well-known/openid-configuration) and
// verifies token signatures with its published keys.
// An empty clientID disables the audience check.
func NewOIDCDecoder(ctx context.Context, issuer, clientID string) (*OIDCDecoder, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}

	return &OIDCDecoder{
		verifier: provider.Verifier(verifierConfig(clientID)),
	}, nil
}

// NewOIDCDecoderWithKeySet builds a decoder from a fixed key set, skipping discovery.
func NewOIDCDecoderWithKeySet(issuer string, keySet oidc.KeySet, clientID string) *OIDCDecoder {
	return &OIDCDecoder{
		verifier: oidc.NewVerifier(issuer, keySet, verifierConfig(clientID)),
	}
}

func verifierConfig(clientID string) *oidc.Config {
	return &oidc.Config{
		ClientID:          clientID,
		SkipClientIDCheck: clientID == "",
		SkipExpiryCheck:   true,
	}
}

// Decode verifies the signature and issuer of raw and extracts its claims.
func (d *OIDCDecoder) Decode(ctx context.Context, raw string) (*Claims, error) {
	idToken, err := d.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}

	extra := map[string]any{}
	if err := idToken.Claims(&extra); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	delete(extra, "sub")
	delete(extra, "exp")

	return &Claims{
		Subject:   idToken.Subject,
		ExpiresAt: idToken.Expiry,
		Extra:     extra,
	}, nil
}

var _ Decoder = (*OIDCDecoder)(nil)
