package config

// Deployment environments as constants to prevent typos
const (
	// EnvironmentGitHubPages is the default Pages deployment environment
	EnvironmentGitHubPages = "github-pages"
)

// Context sources select how run metadata is read from the runner
const (
	// ContextSourceActions reads metadata through the Actions context provider
	ContextSourceActions = "actions"

	// ContextSourceEventFile reads the raw webhook payload from GITHUB_EVENT_PATH
	ContextSourceEventFile = "event-file"
)

// ValidContextSources returns a list of all valid context source names
func ValidContextSources() []string {
	return []string{
		ContextSourceActions,
		ContextSourceEventFile,
	}
}

// IsValidContextSource checks if the given context source name is valid
func IsValidContextSource(source string) bool {
	for _, valid := range ValidContextSources() {
		if source == valid {
			return true
		}
	}
	return false
}
