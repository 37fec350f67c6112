package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"

	"github.com/imranansari/deploy-pages/secrets"
)

// Config holds all configuration for the deploy step
type Config struct {
	// Action inputs, exposed by the runner as INPUT_<NAME>
	Inputs InputsConfig `envPrefix:"INPUT_"`

	// Runner-provided workflow metadata and optional App credentials
	GitHub GitHubConfig `envPrefix:"GITHUB_"`

	// Application Configuration
	App AppConfig `envPrefix:"APP_"`

	// Secrets (loaded from files)
	Secrets SecretsConfig
}

type InputsConfig struct {
	Token             string `env:"TOKEN"`
	TimeoutMillis     int    `env:"TIMEOUT" envDefault:"600000"`
	ErrorCount        int    `env:"ERROR_COUNT" envDefault:"10"`
	ReportingInterval int    `env:"REPORTING_INTERVAL" envDefault:"5000"`
	ArtifactName      string `env:"ARTIFACT_NAME" envDefault:"github-pages"`
	ArtifactID        int64  `env:"ARTIFACT_ID"`
	Preview           bool   `env:"PREVIEW" envDefault:"false"`
	Environment       string `env:"ENVIRONMENT" envDefault:"github-pages"`
	ContextSource     string `env:"CONTEXT_SOURCE" envDefault:"actions"`
}

type GitHubConfig struct {
	Repository string `env:"REPOSITORY"`
	APIURL     string `env:"API_URL" envDefault:"https://api.github.com"`
	SHA        string `env:"SHA"`
	RunID      int64  `env:"RUN_ID"`
	EventPath  string `env:"EVENT_PATH"`
	EventName  string `env:"EVENT_NAME"`
	Ref        string `env:"REF"`

	// GitHub App authentication, used when no token input is supplied
	// (e.g. replaying a deployment outside of a workflow run)
	AppID          int64  `env:"APP_ID"`
	InstallationID int64  `env:"INSTALLATION_ID"`
	PrivateKeyPath string `env:"PRIVATE_KEY_PATH"`
}

type AppConfig struct {
	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat      string `env:"LOG_FORMAT" envDefault:"console"`
	PushgatewayURL string `env:"PUSHGATEWAY_URL"`
}

type SecretsConfig struct {
	GitHubPrivateKey []byte
}

// Load loads configuration from environment variables and files
func Load() (*Config, error) {
	// Load .env file if exists (for local development)
	_ = godotenv.Load()

	return load(env.Options{})
}

// LoadFrom parses configuration from an explicit environment map instead of
// the process environment
func LoadFrom(environ map[string]string) (*Config, error) {
	return load(env.Options{Environment: environ})
}

func load(opts env.Options) (*Config, error) {
	cfg := &Config{}

	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	if err := loadSecrets(cfg); err != nil {
		return nil, fmt.Errorf("failed to load secrets: %w", err)
	}

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadSecrets loads the GitHub App private key when App auth is configured
func loadSecrets(cfg *Config) error {
	if cfg.GitHub.AppID == 0 {
		return nil
	}

	privateKeyPath := cfg.GitHub.PrivateKeyPath
	if privateKeyPath == "" {
		privateKeyPath = secrets.GetSecretPath("SECRETS_PATH", ".private") + "/github-app.private-key.pem"
	}

	privateKey, err := secrets.LoadFromFile(privateKeyPath)
	if err != nil {
		return fmt.Errorf("failed to load GitHub App private key: %w", err)
	}
	cfg.Secrets.GitHubPrivateKey = privateKey

	return nil
}

func validateConfig(cfg *Config) error {
	if _, _, err := cfg.GitHub.OwnerRepo(); err != nil {
		return err
	}
	if cfg.Inputs.Token == "" && cfg.GitHub.AppID == 0 {
		return fmt.Errorf("either the token input or a GitHub App ID is required")
	}
	if cfg.Inputs.ReportingInterval <= 0 {
		return fmt.Errorf("reporting_interval must be positive, got %d", cfg.Inputs.ReportingInterval)
	}
	if cfg.Inputs.ErrorCount <= 0 {
		return fmt.Errorf("error_count must be positive, got %d", cfg.Inputs.ErrorCount)
	}
	if !IsValidContextSource(cfg.Inputs.ContextSource) {
		return fmt.Errorf("unknown context_source %q", cfg.Inputs.ContextSource)
	}
	return nil
}

// OwnerRepo splits GITHUB_REPOSITORY into owner and name
func (g GitHubConfig) OwnerRepo() (string, string, error) {
	owner, repo, ok := strings.Cut(g.Repository, "/")
	if !ok || owner == "" || repo == "" {
		return "", "", fmt.Errorf("GITHUB_REPOSITORY must be in owner/name form, got %q", g.Repository)
	}
	return owner, repo, nil
}

// PollInterval is the wait between status checks
func (i InputsConfig) PollInterval() time.Duration {
	return time.Duration(i.ReportingInterval) * time.Millisecond
}

// Timeout is the overall deadline for the deployment to reach a terminal state
func (i InputsConfig) Timeout() time.Duration {
	return time.Duration(i.TimeoutMillis) * time.Millisecond
}

// MaxPollAttempts converts the timeout into a ceiling on status checks
func (i InputsConfig) MaxPollAttempts() int {
	interval := i.PollInterval()
	if interval <= 0 {
		return 1
	}
	attempts := int(i.Timeout() / interval)
	if attempts < 1 {
		return 1
	}
	return attempts
}
