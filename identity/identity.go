package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Credential is a short-lived bearer token for deployment requests
type Credential struct {
	Token  string
	Expiry time.Time
}

// String keeps the token out of logs and error messages
func (c Credential) String() string {
	if c.Token == "" {
		return "Credential(empty)"
	}
	if c.Expiry.IsZero() {
		return "Credential(redacted)"
	}
	return fmt.Sprintf("Credential(redacted, expires %s)", c.Expiry.UTC().Format(time.RFC3339))
}

// Expired reports whether the credential is past its expiry at the given time
func (c Credential) Expired(now time.Time) bool {
	return !c.Expiry.IsZero() && !now.Before(c.Expiry)
}

// Provider supplies identity credentials
type Provider interface {
	Token(ctx context.Context) (Credential, error)
}

// AuthError means the runner refused to issue an identity token
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("failed to obtain identity token: %v", e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Hint is the remediation shown to users when token issuance fails
func (e *AuthError) Hint() string {
	return `Ensure GITHUB_TOKEN has permission "id-token: write".`
}

// TokenIssuer is the runner endpoint that mints OIDC tokens
type TokenIssuer interface {
	GetIDToken(ctx context.Context, audience string) (string, error)
}

// OIDCProvider requests an OIDC token from the Actions runner
type OIDCProvider struct {
	issuer   TokenIssuer
	audience string
}

// NewOIDCProvider creates a provider backed by the runner's token endpoint.
// An empty audience lets the runner pick its default.
func NewOIDCProvider(issuer TokenIssuer, audience string) *OIDCProvider {
	return &OIDCProvider{issuer: issuer, audience: audience}
}

// Token requests a fresh identity token
func (p *OIDCProvider) Token(ctx context.Context) (Credential, error) {
	token, err := p.issuer.GetIDToken(ctx, p.audience)
	if err != nil {
		return Credential{}, &AuthError{Err: err}
	}
	if token == "" {
		return Credential{}, &AuthError{Err: errors.New("runner returned an empty token")}
	}

	expiry, err := tokenExpiry(token)
	if err != nil {
		return Credential{}, &AuthError{Err: err}
	}

	return Credential{Token: token, Expiry: expiry}, nil
}

// tokenExpiry reads the exp claim. The signature is checked by the Pages API,
// not here.
func tokenExpiry(token string) (time.Time, error) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, fmt.Errorf("identity token is not a valid JWT: %w", err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, nil
	}
	return claims.ExpiresAt.Time, nil
}
