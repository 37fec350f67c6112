package deployment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/imranansari/deploy-pages/identity"
)

const (
	DefaultPollInterval    = 5 * time.Second
	DefaultMaxPollAttempts = 120
	DefaultErrorCeiling    = 10
	DefaultInitialBackoff  = time.Second
	DefaultMaxBackoff      = 30 * time.Second
)

// Options tune the polling loop
type Options struct {
	// PollInterval is the fixed wait between status checks of a running deployment
	PollInterval time.Duration
	// MaxPollAttempts bounds the total number of status checks
	MaxPollAttempts int
	// ErrorCeiling bounds consecutive failed status checks
	ErrorCeiling int
	// InitialBackoff and MaxBackoff shape the retry delay after a failed check
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	Recorder Recorder
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.MaxPollAttempts <= 0 {
		o.MaxPollAttempts = DefaultMaxPollAttempts
	}
	if o.ErrorCeiling <= 0 {
		o.ErrorCeiling = DefaultErrorCeiling
	}
	if o.InitialBackoff <= 0 {
		o.InitialBackoff = DefaultInitialBackoff
	}
	if o.MaxBackoff < o.InitialBackoff {
		o.MaxBackoff = DefaultMaxBackoff
		if o.MaxBackoff < o.InitialBackoff {
			o.MaxBackoff = o.InitialBackoff
		}
	}
	if o.Recorder == nil {
		o.Recorder = nopRecorder{}
	}
	return o
}

// Orchestrator drives one deployment through create, poll and cancel.
// Create and Check are called from a single goroutine; Cancel may be called
// from any goroutine at any time.
type Orchestrator struct {
	api    API
	opts   Options
	logger zerolog.Logger

	// cancelled is the cancellation token observed by the poll loop
	cancelled context.Context
	signal    context.CancelFunc

	mu        sync.Mutex
	state     State
	attempted bool
	record    Record
	cred      identity.Credential
	// creating is closed once the creation request has settled
	creating chan struct{}
}

// New creates an orchestrator for a single run
func New(api API, opts Options, logger zerolog.Logger) *Orchestrator {
	cancelled, signal := context.WithCancel(context.Background())
	return &Orchestrator{
		api:       api,
		opts:      opts.withDefaults(),
		logger:    logger,
		cancelled: cancelled,
		signal:    signal,
		state:     StateIdle,
	}
}

// State returns the current lifecycle state
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Record returns the deployment record, if one was created
func (o *Orchestrator) Record() (Record, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.record, o.record.ID != ""
}

// Create issues the run's single deployment-creation request, built from the
// credential and the resolved run context
func (o *Orchestrator) Create(ctx context.Context, req Request) (Record, error) {
	o.mu.Lock()
	if o.state != StateIdle || o.attempted {
		state := o.state
		o.mu.Unlock()
		return Record{}, &InvalidStateError{Op: "create", State: state}
	}
	o.attempted = true
	o.cred = req.Credential
	creating := make(chan struct{})
	o.creating = creating
	o.mu.Unlock()
	defer close(creating)

	o.logger.Info().
		Str("environment", req.Context.TargetEnvironment).
		Bool("preview", req.Context.IsPreview).
		Str("artifact", req.ArtifactRef).
		Msg("Creating Pages deployment")

	resp, err := o.api.Create(ctx, req)
	if err == nil && resp.ID == "" {
		err = errors.New("response did not include a deployment id")
	}
	if err != nil {
		o.logger.Error().Err(err).Msg("Failed to create Pages deployment")
		return Record{}, &CreationError{Err: err, AuthRejected: errors.Is(err, ErrUnauthorized)}
	}

	record := Record{
		ID:         resp.ID,
		Status:     StatusQueued,
		PageURL:    resp.PageURL,
		PreviewURL: resp.PreviewURL,
	}

	o.mu.Lock()
	o.record = record
	if o.state == StateCancelled {
		// Cancel arrived while the request was in flight and had no id to cancel.
		o.mu.Unlock()
		o.cancelRemote(ctx, record.ID, req.Credential)
		return record, ErrCancelled
	}
	o.state = StateCreated
	o.mu.Unlock()

	o.logger.Info().
		Str("deployment_id", record.ID).
		Str("page_url", record.PageURL).
		Str("preview_url", record.PreviewURL).
		Msg("Created Pages deployment")

	return record, nil
}

// Check polls the created deployment until it reaches a terminal status, the
// attempt ceiling is hit, or Cancel is called
func (o *Orchestrator) Check(ctx context.Context) (Status, error) {
	o.mu.Lock()
	switch o.state {
	case StateCreated:
		o.state = StatePolling
	case StatePolling:
	default:
		state := o.state
		o.mu.Unlock()
		return "", &InvalidStateError{Op: "check", State: state}
	}
	id, cred := o.record.ID, o.cred
	o.mu.Unlock()

	logger := o.logger.With().Str("deployment_id", id).Logger()

	// In-flight status requests are abandoned as soon as Cancel is called.
	pollCtx, stopPoll := context.WithCancel(ctx)
	defer stopPoll()
	stop := context.AfterFunc(o.cancelled, stopPoll)
	defer stop()

	retry := o.newBackOff()
	last := StatusQueued

	for attempt := 1; ; attempt++ {
		if o.cancelRequested() {
			return StatusCancelled, ErrCancelled
		}
		if attempt > o.opts.MaxPollAttempts {
			logger.Error().Int("attempts", attempt-1).Msg("Timeout reached, aborting deployment")
			if !o.finish(StateErrored, last) {
				return StatusCancelled, ErrCancelled
			}
			o.cancelRemote(ctx, id, cred)
			return last, &PollingExhaustedError{DeploymentID: id, Attempts: attempt - 1, LastStatus: last}
		}

		status, err := o.api.Status(pollCtx, id, cred)
		o.opts.Recorder.ObservePoll(status, err)
		if err != nil {
			if o.cancelRequested() {
				return StatusCancelled, ErrCancelled
			}
			if ctx.Err() != nil {
				o.finish(StateErrored, last)
				return last, fmt.Errorf("polling deployment %s stopped: %w", id, ctx.Err())
			}

			delay := retry.NextBackOff()
			if delay == backoff.Stop {
				logger.Error().Err(err).Int("attempts", attempt).Msg("Too many errors, aborting deployment")
				if !o.finish(StateErrored, last) {
					return StatusCancelled, ErrCancelled
				}
				return last, &PollingExhaustedError{DeploymentID: id, Attempts: attempt, LastStatus: last, Err: err}
			}

			logger.Warn().Err(err).
				Int("attempt", attempt).
				Dur("retry_in", delay).
				Msg("Failed to get deployment status, retrying")

			if err := o.wait(ctx, delay); err != nil {
				return o.interrupted(id, last, err)
			}
			continue
		}

		retry.Reset()
		last = status
		o.setStatus(status)

		switch status {
		case StatusSucceeded:
			if !o.finish(StateSucceeded, status) {
				return StatusCancelled, ErrCancelled
			}
			logger.Info().Msg("Deployment reported success")
			return status, nil
		case StatusFailed, StatusCancelled, StatusError:
			if !o.finish(stateFor(status), status) {
				return StatusCancelled, ErrCancelled
			}
			logger.Error().Str("status", string(status)).Msg("Deployment did not succeed")
			return status, &DeploymentFailedError{DeploymentID: id, Status: status}
		}

		logger.Info().Str("status", string(status)).Int("attempt", attempt).Msg("Current deployment status")

		if err := o.wait(ctx, o.opts.PollInterval); err != nil {
			return o.interrupted(id, last, err)
		}
	}
}

// Cancel stops polling and asks the API to cancel the active deployment. The
// local state becomes cancelled whether or not the remote call succeeds.
// When a creation request is in flight, Cancel waits for it to settle (bounded
// by ctx) so the new deployment is cancelled too.
// Calling it again, or after a terminal state, does nothing.
func (o *Orchestrator) Cancel(ctx context.Context) error {
	o.mu.Lock()
	if o.state.Terminal() {
		o.mu.Unlock()
		return nil
	}
	o.state = StateCancelled
	if o.record.ID != "" {
		o.record.Status = StatusCancelled
	}
	id, cred, creating := o.record.ID, o.cred, o.creating
	o.cred = identity.Credential{}
	o.mu.Unlock()

	o.signal()
	o.opts.Recorder.ObserveOutcome(StateCancelled)

	if id == "" {
		if creating == nil {
			o.logger.Info().Msg("Cancelled before a deployment was created")
			return nil
		}
		// Create sees the cancelled state and cancels what it created.
		select {
		case <-creating:
			return nil
		case <-ctx.Done():
			o.logger.Warn().Err(ctx.Err()).Msg("Gave up waiting for in-flight deployment creation")
			return ctx.Err()
		}
	}

	o.cancelRemote(ctx, id, cred)
	return nil
}

// cancelRemote issues a best-effort cancellation request
func (o *Orchestrator) cancelRemote(ctx context.Context, id string, cred identity.Credential) {
	logger := o.logger.With().Str("deployment_id", id).Logger()
	if err := o.api.Cancel(ctx, id, cred); err != nil {
		logger.Warn().Err(err).Msg("Failed to cancel deployment")
		return
	}
	logger.Info().Msg("Deployment cancelled")
}

// finish moves to a terminal state unless Cancel got there first
func (o *Orchestrator) finish(state State, status Status) bool {
	o.mu.Lock()
	if o.state.Terminal() {
		o.mu.Unlock()
		return false
	}
	o.state = state
	o.record.Status = status
	o.cred = identity.Credential{}
	o.mu.Unlock()

	o.opts.Recorder.ObserveOutcome(state)
	return true
}

// stateFor maps a terminal remote status to the orchestrator's final state
func stateFor(status Status) State {
	switch status {
	case StatusSucceeded:
		return StateSucceeded
	case StatusCancelled:
		return StateCancelled
	case StatusError:
		return StateErrored
	}
	return StateFailed
}

func (o *Orchestrator) setStatus(status Status) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.state.Terminal() {
		o.record.Status = status
	}
}

func (o *Orchestrator) cancelRequested() bool {
	return o.cancelled.Err() != nil
}

// wait sleeps for d, returning early with ErrCancelled or the context error
func (o *Orchestrator) wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-o.cancelled.Done():
		return ErrCancelled
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Orchestrator) interrupted(id string, last Status, err error) (Status, error) {
	if errors.Is(err, ErrCancelled) {
		return StatusCancelled, ErrCancelled
	}
	o.finish(StateErrored, last)
	return last, fmt.Errorf("polling deployment %s stopped: %w", id, err)
}

func (o *Orchestrator) newBackOff() backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = o.opts.InitialBackoff
	eb.MaxInterval = o.opts.MaxBackoff
	eb.MaxElapsedTime = 0

	// The ceiling-th consecutive failure ends polling.
	b := backoff.WithMaxRetries(eb, uint64(o.opts.ErrorCeiling-1))
	b.Reset()
	return b
}
