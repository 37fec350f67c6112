package runcontext

import (
	"context"

	"github.com/sethvargo/go-githubactions"
)

// ActionsResolver reads the run context through the go-githubactions context
// provider, which also parses the event payload
type ActionsResolver struct {
	action   *githubactions.Action
	settings Settings
}

// NewActionsResolver creates a resolver backed by the Actions context provider
func NewActionsResolver(action *githubactions.Action, settings Settings) *ActionsResolver {
	return &ActionsResolver{action: action, settings: settings}
}

// Resolve loads the Actions context and derives the run context
func (r *ActionsResolver) Resolve(ctx context.Context) (RunContext, error) {
	const source = "actions context"

	ghCtx, err := r.action.Context()
	if err != nil {
		return RunContext{}, &ContextError{Source: source, Err: err}
	}

	settings := r.settings
	if settings.Ref == "" {
		settings.Ref = ghCtx.Ref
	}
	if settings.EventName == "" {
		settings.EventName = ghCtx.EventName
	}
	if settings.Repository == "" {
		settings.Repository = ghCtx.Repository
	}
	if settings.BuildVersion == "" {
		settings.BuildVersion = ghCtx.SHA
	}

	return fromPayload(source, settings, ghCtx.Event)
}
