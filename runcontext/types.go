package runcontext

import "context"

// RunContext is the metadata of the workflow run that triggered the deploy
type RunContext struct {
	IsPreview         bool   `json:"is_preview"`
	TargetEnvironment string `json:"target_environment"`
	TriggeringRef     string `json:"triggering_ref"`

	EventName    string `json:"event_name,omitempty"`
	Repository   string `json:"repository,omitempty"`
	BuildVersion string `json:"build_version,omitempty"`
	Before       string `json:"before,omitempty"`
	After        string `json:"after,omitempty"`
}

// Resolver derives a RunContext from runner-provided event and environment data
type Resolver interface {
	Resolve(ctx context.Context) (RunContext, error)
}

// Settings are the inputs a resolver combines with the event payload
type Settings struct {
	Preview      bool
	Environment  string
	Repository   string
	BuildVersion string
	Ref          string
	EventName    string
}

// ContextError reports missing or malformed triggering metadata
type ContextError struct {
	Source string
	Err    error
}

func (e *ContextError) Error() string {
	return "invalid run context from " + e.Source + ": " + e.Err.Error()
}

func (e *ContextError) Unwrap() error {
	return e.Err
}
