package pages

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/go-github/v58/github"
)

// ResolveArtifact finds the id of the named artifact uploaded by the workflow run
func (c *Client) ResolveArtifact(ctx context.Context, runID int64, name string) (string, error) {
	opts := &github.ListOptions{PerPage: 100}

	var matches []*github.Artifact
	for {
		list, resp, err := c.gh.Actions.ListWorkflowRunArtifacts(ctx, c.owner, c.repo, runID, opts)
		if err != nil {
			return "", fmt.Errorf("failed to list artifacts for run %d: %w", runID, classify(err))
		}
		for _, artifact := range list.Artifacts {
			if artifact.GetName() == name {
				matches = append(matches, artifact)
			}
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("no artifact named %q found for run %d; ensure the artifact was uploaded", name, runID)
	case 1:
	default:
		return "", fmt.Errorf("multiple artifacts named %q found for run %d; give each artifact a unique name", name, runID)
	}

	c.logger.Info().
		Int64("artifact_id", matches[0].GetID()).
		Str("artifact_name", name).
		Int64("size_bytes", matches[0].GetSizeInBytes()).
		Msg("Resolved Pages artifact")

	return strconv.FormatInt(matches[0].GetID(), 10), nil
}
