package runcontext

import (
	"errors"
	"fmt"
	"strings"

	"github.com/imranansari/deploy-pages/config"
)

// fromPayload combines the decoded webhook payload with run settings
func fromPayload(source string, settings Settings, payload map[string]any) (RunContext, error) {
	if len(payload) == 0 {
		return RunContext{}, &ContextError{Source: source, Err: errors.New("event payload is empty")}
	}

	before, beforeOK, err := stringField(payload, "before")
	if err != nil {
		return RunContext{}, &ContextError{Source: source, Err: err}
	}
	after, afterOK, err := stringField(payload, "after")
	if err != nil {
		return RunContext{}, &ContextError{Source: source, Err: err}
	}
	if (!beforeOK || !afterOK) && !isPullRequestEvent(settings.EventName) {
		return RunContext{}, &ContextError{Source: source, Err: errors.New("event payload is missing before/after commit references")}
	}

	ref := settings.Ref
	if ref == "" {
		ref, _, _ = stringField(payload, "ref")
	}

	environment := settings.Environment
	if environment == "" {
		environment = config.EnvironmentGitHubPages
	}

	rc := RunContext{
		TargetEnvironment: environment,
		TriggeringRef:     ref,
		EventName:         settings.EventName,
		Repository:        settings.Repository,
		BuildVersion:      settings.BuildVersion,
		Before:            before,
		After:             after,
	}
	if rc.BuildVersion == "" {
		rc.BuildVersion = after
	}
	rc.IsPreview = settings.Preview && !onDefaultBranch(settings.EventName, ref, defaultBranch(payload))

	return rc, nil
}

func stringField(payload map[string]any, key string) (string, bool, error) {
	raw, ok := payload[key]
	if !ok || raw == nil {
		return "", false, nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", false, fmt.Errorf("event field %q must be a string, got %T", key, raw)
	}
	return s, true, nil
}

func defaultBranch(payload map[string]any) string {
	repo, ok := payload["repository"].(map[string]any)
	if !ok {
		return ""
	}
	branch, _ := repo["default_branch"].(string)
	return branch
}

func isPullRequestEvent(eventName string) bool {
	return eventName == "pull_request" || eventName == "pull_request_target"
}

// onDefaultBranch reports whether the run deploys the production site. An
// unknown default branch counts as production unless the event is a pull request.
func onDefaultBranch(eventName, ref, branch string) bool {
	if isPullRequestEvent(eventName) {
		return false
	}
	if branch == "" || ref == "" {
		return true
	}
	return strings.TrimPrefix(ref, "refs/heads/") == branch
}
