package pages

import "github.com/imranansari/deploy-pages/deployment"

// statusMap translates Pages API deployment statuses
var statusMap = map[string]deployment.Status{
	"deployment_queued":         deployment.StatusQueued,
	"syncing_files":             deployment.StatusBuilding,
	"finished_file_sync":        deployment.StatusBuilding,
	"deployment_in_progress":    deployment.StatusBuilding,
	"updating_pages":            deployment.StatusDeploying,
	"purging_cdn":               deployment.StatusDeploying,
	"succeed":                   deployment.StatusSucceeded,
	"deployment_failed":         deployment.StatusFailed,
	"deployment_content_failed": deployment.StatusFailed,
	"deployment_lost":           deployment.StatusFailed,
	"deployment_cancelled":      deployment.StatusCancelled,
	"deployment_perms_error":    deployment.StatusError,
	"deployment_attempt_error":  deployment.StatusError,
}

// MapStatus converts a Pages API status. Unknown statuses are treated as
// still building so polling continues.
func MapStatus(raw string) deployment.Status {
	if status, ok := statusMap[raw]; ok {
		return status
	}
	return deployment.StatusBuilding
}
