package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/google/go-github/v58/github"
	"github.com/rs/zerolog"

	"github.com/imranansari/deploy-pages/config"
)

const defaultAPIURL = "https://api.github.com"

// ClientFactory creates authenticated GitHub clients
type ClientFactory struct {
	config     config.GitHubConfig
	token      string
	privateKey []byte
	transport  http.RoundTripper
	logger     zerolog.Logger

	mu sync.Mutex
	// Cache for installation IDs by owner
	installationCache map[string]int64
}

// NewClientFactory creates a new GitHub client factory. A non-empty token
// takes precedence over GitHub App credentials.
func NewClientFactory(cfg config.GitHubConfig, token string, privateKey []byte, logger zerolog.Logger) *ClientFactory {
	return &ClientFactory{
		config:            cfg,
		token:             token,
		privateKey:        privateKey,
		transport:         http.DefaultTransport,
		logger:            logger,
		installationCache: make(map[string]int64),
	}
}

// CreateClientForOwner creates a GitHub client able to act on the owner's repositories
func (f *ClientFactory) CreateClientForOwner(ctx context.Context, owner string) (*github.Client, error) {
	if f.token != "" {
		return f.createTokenClient()
	}
	if f.config.AppID == 0 {
		return nil, fmt.Errorf("no token and no GitHub App configured")
	}

	installationID, err := f.installationFor(ctx, owner)
	if err != nil {
		return nil, err
	}
	return f.createInstallationClient(installationID)
}

func (f *ClientFactory) createTokenClient() (*github.Client, error) {
	client := github.NewClient(&http.Client{Transport: f.transport}).WithAuthToken(f.token)
	if err := f.applyBaseURL(client); err != nil {
		return nil, err
	}

	f.logger.Debug().
		Str("api_url", f.apiURL()).
		Msg("GitHub token client created")

	return client, nil
}

// installationFor resolves the App installation for an owner, preferring the
// configured installation ID
func (f *ClientFactory) installationFor(ctx context.Context, owner string) (int64, error) {
	if f.config.InstallationID != 0 {
		return f.config.InstallationID, nil
	}

	f.mu.Lock()
	installationID, exists := f.installationCache[owner]
	f.mu.Unlock()
	if exists {
		return installationID, nil
	}

	// Create GitHub App transport to find installations
	atr, err := ghinstallation.NewAppsTransport(f.transport, f.config.AppID, f.privateKey)
	if err != nil {
		return 0, fmt.Errorf("failed to create app transport: %w", err)
	}
	atr.BaseURL = f.apiURL()

	appClient := github.NewClient(&http.Client{Transport: atr})
	if err := f.applyBaseURL(appClient); err != nil {
		return 0, err
	}

	installations, _, err := appClient.Apps.ListInstallations(ctx, &github.ListOptions{PerPage: 100})
	if err != nil {
		return 0, fmt.Errorf("failed to list app installations: %w", err)
	}

	for _, installation := range installations {
		if installation.GetAccount().GetLogin() == owner {
			installationID = installation.GetID()
			break
		}
	}
	if installationID == 0 {
		return 0, fmt.Errorf("no installation found for owner '%s' at %s", owner, f.apiURL())
	}

	f.mu.Lock()
	f.installationCache[owner] = installationID
	f.mu.Unlock()

	f.logger.Info().
		Int64("app_id", f.config.AppID).
		Int64("installation_id", installationID).
		Str("owner", owner).
		Msg("Found GitHub App installation for owner")

	return installationID, nil
}

// createInstallationClient creates a client for a specific installation ID
func (f *ClientFactory) createInstallationClient(installationID int64) (*github.Client, error) {
	itr, err := ghinstallation.New(f.transport, f.config.AppID, installationID, f.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create installation transport: %w", err)
	}
	itr.BaseURL = f.apiURL()

	client := github.NewClient(&http.Client{Transport: itr})
	if err := f.applyBaseURL(client); err != nil {
		return nil, err
	}

	f.logger.Info().
		Int64("app_id", f.config.AppID).
		Int64("installation_id", installationID).
		Str("api_url", f.apiURL()).
		Msg("GitHub installation client created successfully")

	return client, nil
}

func (f *ClientFactory) apiURL() string {
	if f.config.APIURL == "" {
		return defaultAPIURL
	}
	return strings.TrimSuffix(f.config.APIURL, "/")
}

// applyBaseURL points the client at GHES (or a test server) when the runner
// reports a non-default API URL
func (f *ClientFactory) applyBaseURL(client *github.Client) error {
	if f.apiURL() == defaultAPIURL {
		return nil
	}
	baseURL, err := url.Parse(f.apiURL() + "/")
	if err != nil {
		return fmt.Errorf("invalid GitHub API URL %q: %w", f.config.APIURL, err)
	}
	client.BaseURL = baseURL
	return nil
}
