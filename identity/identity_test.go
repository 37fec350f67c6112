package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIssuer struct {
	token    string
	err      error
	audience string
}

func (f *fakeIssuer) GetIDToken(ctx context.Context, audience string) (string, error) {
	f.audience = audience
	return f.token, f.err
}

func signedToken(t *testing.T, expiry time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Issuer:    "https://token.actions.githubusercontent.com",
		ExpiresAt: jwt.NewNumericDate(expiry),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return token
}

func TestOIDCProviderToken(t *testing.T) {
	expiry := time.Now().Add(10 * time.Minute).Truncate(time.Second)
	issuer := &fakeIssuer{token: signedToken(t, expiry)}

	cred, err := NewOIDCProvider(issuer, "pages").Token(context.Background())
	require.NoError(t, err)

	assert.Equal(t, issuer.token, cred.Token)
	assert.True(t, expiry.Equal(cred.Expiry))
	assert.Equal(t, "pages", issuer.audience)
	assert.False(t, cred.Expired(time.Now()))
	assert.True(t, cred.Expired(expiry.Add(time.Second)))
}

func TestOIDCProviderErrors(t *testing.T) {
	tests := []struct {
		name   string
		issuer *fakeIssuer
	}{
		{"issuer refused", &fakeIssuer{err: errors.New("missing ACTIONS_ID_TOKEN_REQUEST_URL")}},
		{"empty token", &fakeIssuer{}},
		{"not a jwt", &fakeIssuer{token: "not-a-jwt"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewOIDCProvider(tt.issuer, "").Token(context.Background())
			var authErr *AuthError
			require.ErrorAs(t, err, &authErr)
			assert.Contains(t, authErr.Hint(), "id-token: write")
		})
	}
}

func TestCredentialStringRedactsToken(t *testing.T) {
	cred := Credential{Token: "super-secret-token", Expiry: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	assert.NotContains(t, cred.String(), "super-secret-token")
	assert.Contains(t, cred.String(), "2026-01-02T03:04:05Z")
	assert.Equal(t, "Credential(empty)", Credential{}.String())
}
