package runner

import (
	"context"
	"errors"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/imranansari/deploy-pages/deployment"
	"github.com/imranansari/deploy-pages/identity"
	"github.com/imranansari/deploy-pages/runcontext"
	"github.com/imranansari/deploy-pages/secrets"
)

// OutputPageURL is the step output carrying the deployed URL
const OutputPageURL = "page_url"

// Deployer is the lifecycle surface of the deployment orchestrator
type Deployer interface {
	Create(ctx context.Context, req deployment.Request) (deployment.Record, error)
	Check(ctx context.Context) (deployment.Status, error)
}

// ArtifactResolver finds the uploaded Pages artifact of a workflow run
type ArtifactResolver interface {
	ResolveArtifact(ctx context.Context, runID int64, name string) (string, error)
}

// Outputs is the runner's reporting channel (step outputs, log annotations)
type Outputs interface {
	SetOutput(name, value string)
	AddMask(value string)
	Infof(msg string, args ...any)
	Errorf(msg string, args ...any)
}

// Settings identify the artifact to deploy
type Settings struct {
	RunID        int64
	ArtifactID   int64
	ArtifactName string
}

// Result is the outcome of one run
type Result struct {
	PageURL string
	Status  deployment.Status
	Err     error
}

// Succeeded reports whether the deployment finished successfully
func (r Result) Succeeded() bool {
	return r.Err == nil
}

// Runner sequences one deploy step
type Runner struct {
	resolver  runcontext.Resolver
	identity  identity.Provider
	artifacts ArtifactResolver
	deployer  Deployer
	outputs   Outputs
	settings  Settings
	logger    zerolog.Logger
}

// New creates a runner
func New(resolver runcontext.Resolver, provider identity.Provider, artifacts ArtifactResolver, deployer Deployer, outputs Outputs, settings Settings, logger zerolog.Logger) *Runner {
	return &Runner{
		resolver:  resolver,
		identity:  provider,
		artifacts: artifacts,
		deployer:  deployer,
		outputs:   outputs,
		settings:  settings,
		logger:    logger,
	}
}

// Run resolves the context, creates the deployment and waits for it. Failures
// are reported through Outputs and returned in the Result.
func (r *Runner) Run(ctx context.Context) Result {
	rc, err := r.resolver.Resolve(ctx)
	if err != nil {
		return r.fail(Result{}, err, "")
	}

	r.logger.Info().
		Str("ref", rc.TriggeringRef).
		Str("event", rc.EventName).
		Str("environment", rc.TargetEnvironment).
		Bool("preview", rc.IsPreview).
		Msg("Resolved run context")

	advice := runcontext.Advise(rc)
	r.outputs.Infof("%s", advice.Message)
	r.logger.Info().
		Bool("deployable", advice.Deployable).
		Str("before", rc.Before).
		Str("after", rc.After).
		Msg(advice.Message)

	cred, err := r.identity.Token(ctx)
	if err != nil {
		hint := ""
		var authErr *identity.AuthError
		if errors.As(err, &authErr) {
			hint = authErr.Hint()
		}
		return r.fail(Result{}, err, hint)
	}
	r.outputs.AddMask(cred.Token)
	r.logger.Debug().
		Str("token", secrets.Redact(cred.Token)).
		Time("expires_at", cred.Expiry).
		Msg("Obtained identity token")

	artifactRef, err := r.artifactRef(ctx)
	if err != nil {
		return r.fail(Result{}, err, "")
	}

	record, err := r.deployer.Create(ctx, deployment.Request{
		Credential:  cred,
		Context:     rc,
		ArtifactRef: artifactRef,
	})
	if err != nil {
		return r.fail(Result{}, err, "")
	}

	result := Result{PageURL: record.URL(rc.IsPreview)}
	r.outputs.SetOutput(OutputPageURL, result.PageURL)
	r.logger.Info().
		Str("deployment_id", record.ID).
		Str(OutputPageURL, result.PageURL).
		Msg("Published page_url output")

	result.Status, err = r.deployer.Check(ctx)
	if err != nil {
		return r.fail(result, err, "")
	}

	r.logger.Info().
		Str("deployment_id", record.ID).
		Str("status", string(result.Status)).
		Msg("Deployment completed")
	return result
}

func (r *Runner) artifactRef(ctx context.Context) (string, error) {
	if r.settings.ArtifactID != 0 {
		return strconv.FormatInt(r.settings.ArtifactID, 10), nil
	}
	if r.artifacts == nil {
		return "", errors.New("no artifact id given and no artifact lookup configured")
	}
	return r.artifacts.ResolveArtifact(ctx, r.settings.RunID, r.settings.ArtifactName)
}

// fail records a run failure; it never terminates the process
func (r *Runner) fail(result Result, err error, hint string) Result {
	result.Err = err
	r.logger.Error().Err(err).Msg("Deployment run failed")
	if hint != "" {
		r.outputs.Errorf("%s", hint)
	} else {
		r.outputs.Errorf("%s", err.Error())
	}
	return result
}
