package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/imranansari/deploy-pages/config"
	"github.com/imranansari/deploy-pages/deployment"
	githubClient "github.com/imranansari/deploy-pages/github"
	"github.com/imranansari/deploy-pages/identity"
	"github.com/imranansari/deploy-pages/logging"
	"github.com/imranansari/deploy-pages/pages"
)

func main() {
	// Parse command line flags
	var (
		id       = flag.String("id", "", "Pages deployment ID")
		cancel   = flag.Bool("cancel", false, "Cancel the deployment instead of showing its status")
		watch    = flag.Bool("watch", false, "Poll until the deployment reaches a terminal status")
		interval = flag.Duration("interval", 5*time.Second, "Polling interval with -watch")
	)
	flag.Parse()

	if *id == "" {
		log.Fatal("Deployment ID is required")
	}

	// Load configuration (.env is honoured for local use)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logging.InitLogger(cfg.App.LogLevel, cfg.App.LogFormat)
	logger := logging.GitHubLogger().With().Str("component", "pages-status").Logger()

	ctx := context.Background()
	owner, repo, _ := cfg.GitHub.OwnerRepo()

	factory := githubClient.NewClientFactory(cfg.GitHub, cfg.Inputs.Token, cfg.Secrets.GitHubPrivateKey, logger)
	gh, err := factory.CreateClientForOwner(ctx, owner)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create GitHub client")
	}
	api := pages.NewClient(gh, owner, repo, logger)

	if *cancel {
		if err := api.Cancel(ctx, *id, identity.Credential{}); err != nil {
			logger.Fatal().Err(err).Str("deployment_id", *id).Msg("Failed to cancel deployment")
		}
		logger.Info().Str("deployment_id", *id).Msg("Deployment cancelled")
		return
	}

	for {
		status, err := api.Status(ctx, *id, identity.Credential{})
		if err != nil {
			logger.Fatal().Err(err).Str("deployment_id", *id).Msg("Failed to get deployment status")
		}
		logger.Info().
			Str("deployment_id", *id).
			Str("status", string(status)).
			Msg("Deployment status")

		if !*watch || status.Terminal() {
			if status != deployment.StatusSucceeded && status.Terminal() {
				logger.Warn().Msgf("Deployment finished with status: %s", status)
			}
			return
		}
		time.Sleep(*interval)
	}
}
