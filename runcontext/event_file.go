package runcontext

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// EventFileResolver reads the webhook payload straight from GITHUB_EVENT_PATH
type EventFileResolver struct {
	Path     string
	Settings Settings
}

// NewEventFileResolver creates a resolver backed by the raw event file
func NewEventFileResolver(path string, settings Settings) *EventFileResolver {
	return &EventFileResolver{Path: path, Settings: settings}
}

// Resolve parses the event file and derives the run context
func (r *EventFileResolver) Resolve(ctx context.Context) (RunContext, error) {
	const source = "event file"

	if r.Path == "" {
		return RunContext{}, &ContextError{Source: source, Err: errors.New("GITHUB_EVENT_PATH is not set")}
	}

	data, err := os.ReadFile(r.Path)
	if err != nil {
		return RunContext{}, &ContextError{Source: source, Err: fmt.Errorf("failed to read %s: %w", r.Path, err)}
	}

	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return RunContext{}, &ContextError{Source: source, Err: fmt.Errorf("failed to parse %s: %w", r.Path, err)}
	}

	return fromPayload(source, r.Settings, payload)
}
