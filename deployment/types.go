package deployment

import (
	"context"

	"github.com/imranansari/deploy-pages/identity"
	"github.com/imranansari/deploy-pages/runcontext"
)

// Status is the remote deployment status as reported by the Pages API
type Status string

const (
	StatusQueued    Status = "queued"
	StatusBuilding  Status = "building"
	StatusDeploying Status = "deploying"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
	StatusError     Status = "error"
)

// Terminal reports whether no further transition follows this status
func (s Status) Terminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusCancelled, StatusError:
		return true
	}
	return false
}

// State is the orchestrator's lifecycle state
type State string

const (
	StateIdle      State = "idle"
	StateCreated   State = "created"
	StatePolling   State = "polling"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
	StateErrored   State = "errored"
)

// Terminal reports whether the orchestrator has finished
func (s State) Terminal() bool {
	switch s {
	case StateSucceeded, StateFailed, StateCancelled, StateErrored:
		return true
	}
	return false
}

// Request is the one deployment-creation request of a run
type Request struct {
	Credential  identity.Credential
	Context     runcontext.RunContext
	ArtifactRef string
}

// CreateResponse is what the API returns for a created deployment
type CreateResponse struct {
	ID         string
	PageURL    string
	PreviewURL string
}

// Record is the live deployment held by the orchestrator
type Record struct {
	ID         string `json:"id"`
	Status     Status `json:"status"`
	PageURL    string `json:"page_url"`
	PreviewURL string `json:"preview_url,omitempty"`
}

// URL returns the address to publish for this run
func (r Record) URL(preview bool) string {
	if preview && r.PreviewURL != "" {
		return r.PreviewURL
	}
	return r.PageURL
}

// API is the remote deployment service
type API interface {
	Create(ctx context.Context, req Request) (CreateResponse, error)
	Status(ctx context.Context, id string, cred identity.Credential) (Status, error)
	Cancel(ctx context.Context, id string, cred identity.Credential) error
}

// Recorder observes orchestrator activity, e.g. for metrics
type Recorder interface {
	ObservePoll(status Status, err error)
	ObserveOutcome(state State)
}

type nopRecorder struct{}

func (nopRecorder) ObservePoll(Status, error) {}
func (nopRecorder) ObserveOutcome(State)      {}
