package main

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-githubactions"

	"github.com/imranansari/deploy-pages/config"
	"github.com/imranansari/deploy-pages/deployment"
	githubClient "github.com/imranansari/deploy-pages/github"
	"github.com/imranansari/deploy-pages/identity"
	"github.com/imranansari/deploy-pages/logging"
	"github.com/imranansari/deploy-pages/metrics"
	"github.com/imranansari/deploy-pages/pages"
	"github.com/imranansari/deploy-pages/runcontext"
	"github.com/imranansari/deploy-pages/runner"
)

const (
	cancelTimeout = 30 * time.Second
	pushTimeout   = 10 * time.Second
)

func main() {
	action := githubactions.New()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		action.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logging.InitLogger(cfg.App.LogLevel, cfg.App.LogFormat)
	logger := logging.RunLogger(cfg.GitHub.RunID, uuid.NewString())

	owner, repo, _ := cfg.GitHub.OwnerRepo()

	logger.Info().
		Str("repository", cfg.GitHub.Repository).
		Str("api_url", cfg.GitHub.APIURL).
		Str("environment", cfg.Inputs.Environment).
		Bool("preview", cfg.Inputs.Preview).
		Dur("timeout", cfg.Inputs.Timeout()).
		Dur("reporting_interval", cfg.Inputs.PollInterval()).
		Int("error_count", cfg.Inputs.ErrorCount).
		Msg("Starting Pages deployment")

	ctx := context.Background()

	// Create GitHub client
	factory := githubClient.NewClientFactory(cfg.GitHub, cfg.Inputs.Token, cfg.Secrets.GitHubPrivateKey, logging.GitHubLogger())
	gh, err := factory.CreateClientForOwner(ctx, owner)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create GitHub client")
		action.Fatalf("Failed to create GitHub client: %v", err)
	}
	api := pages.NewClient(gh, owner, repo, logging.GitHubLogger())

	recorder := metrics.NewRecorder()
	orchestrator := deployment.New(api, deployment.Options{
		PollInterval:    cfg.Inputs.PollInterval(),
		MaxPollAttempts: cfg.Inputs.MaxPollAttempts(),
		ErrorCeiling:    cfg.Inputs.ErrorCount,
		Recorder:        recorder,
	}, logging.DeploymentLogger())

	// Register signal handlers for workflow cancellation
	stopSignals := runner.WatchSignals(orchestrator, cancelTimeout, os.Exit, logger)

	r := runner.New(
		newResolver(cfg, action),
		identity.NewOIDCProvider(action, ""),
		api,
		orchestrator,
		action,
		runner.Settings{
			RunID:        cfg.GitHub.RunID,
			ArtifactID:   cfg.Inputs.ArtifactID,
			ArtifactName: cfg.Inputs.ArtifactName,
		},
		logger,
	)
	result := r.Run(ctx)
	stopSignals()

	pushCtx, cancel := context.WithTimeout(ctx, pushTimeout)
	if err := recorder.Push(pushCtx, cfg.App.PushgatewayURL, cfg.GitHub.Repository); err != nil {
		logger.Warn().Err(err).Msg("Failed to push deployment metrics")
	}
	cancel()

	if !result.Succeeded() {
		os.Exit(1)
	}
}

func newResolver(cfg *config.Config, action *githubactions.Action) runcontext.Resolver {
	settings := runcontext.Settings{
		Preview:      cfg.Inputs.Preview,
		Environment:  cfg.Inputs.Environment,
		Repository:   cfg.GitHub.Repository,
		BuildVersion: cfg.GitHub.SHA,
		Ref:          cfg.GitHub.Ref,
		EventName:    cfg.GitHub.EventName,
	}
	if cfg.Inputs.ContextSource == config.ContextSourceEventFile {
		return runcontext.NewEventFileResolver(cfg.GitHub.EventPath, settings)
	}
	return runcontext.NewActionsResolver(action, settings)
}
