package pages

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/go-github/v58/github"
	"github.com/rs/zerolog"

	"github.com/imranansari/deploy-pages/deployment"
	"github.com/imranansari/deploy-pages/identity"
)

// Client talks to the GitHub Pages deployments API for one repository
type Client struct {
	gh     *github.Client
	owner  string
	repo   string
	logger zerolog.Logger
}

// NewClient creates a Pages API client. The GitHub client carries the
// repository token; the OIDC credential travels in the creation body.
func NewClient(gh *github.Client, owner, repo string, logger zerolog.Logger) *Client {
	return &Client{
		gh:     gh,
		owner:  owner,
		repo:   repo,
		logger: logger,
	}
}

type createDeploymentRequest struct {
	ArtifactID        int64  `json:"artifact_id,omitempty"`
	ArtifactURL       string `json:"artifact_url,omitempty"`
	PagesBuildVersion string `json:"pages_build_version"`
	OIDCToken         string `json:"oidc_token"`
	Environment       string `json:"environment,omitempty"`
	Preview           bool   `json:"preview,omitempty"`
}

type createDeploymentResponse struct {
	ID         deploymentID `json:"id"`
	StatusURL  string       `json:"status_url"`
	PageURL    string       `json:"page_url"`
	PreviewURL string       `json:"preview_url"`
}

type deploymentStatusResponse struct {
	Status string `json:"status"`
}

// deploymentID accepts both numeric and string ids
type deploymentID string

func (d *deploymentID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*d = deploymentID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("invalid deployment id %s: %w", b, err)
	}
	*d = deploymentID(n.String())
	return nil
}

// Create starts a Pages deployment for the artifact
func (c *Client) Create(ctx context.Context, req deployment.Request) (deployment.CreateResponse, error) {
	body := createDeploymentRequest{
		PagesBuildVersion: req.Context.BuildVersion,
		OIDCToken:         req.Credential.Token,
		Environment:       req.Context.TargetEnvironment,
		Preview:           req.Context.IsPreview,
	}
	if id, err := strconv.ParseInt(req.ArtifactRef, 10, 64); err == nil {
		body.ArtifactID = id
	} else {
		body.ArtifactURL = req.ArtifactRef
	}

	httpReq, err := c.gh.NewRequest(http.MethodPost, c.path(""), body)
	if err != nil {
		return deployment.CreateResponse{}, fmt.Errorf("failed to build request: %w", err)
	}

	var out createDeploymentResponse
	if _, err := c.gh.Do(ctx, httpReq, &out); err != nil {
		return deployment.CreateResponse{}, classify(err)
	}

	c.logger.Debug().
		Str("deployment_id", string(out.ID)).
		Str("status_url", out.StatusURL).
		Msg("Pages API accepted deployment")

	return deployment.CreateResponse{
		ID:         string(out.ID),
		PageURL:    out.PageURL,
		PreviewURL: out.PreviewURL,
	}, nil
}

// Status fetches the current status of a deployment. The repository token
// on the GitHub client authenticates the call.
func (c *Client) Status(ctx context.Context, id string, _ identity.Credential) (deployment.Status, error) {
	httpReq, err := c.gh.NewRequest(http.MethodGet, c.path(id), nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}

	var out deploymentStatusResponse
	if _, err := c.gh.Do(ctx, httpReq, &out); err != nil {
		return "", classify(err)
	}
	if out.Status == "" {
		return "", errors.New("status response did not include a status")
	}

	c.logger.Debug().
		Str("deployment_id", id).
		Str("remote_status", out.Status).
		Msg("Fetched Pages deployment status")

	return MapStatus(out.Status), nil
}

// Cancel asks the Pages API to cancel a deployment
func (c *Client) Cancel(ctx context.Context, id string, _ identity.Credential) error {
	httpReq, err := c.gh.NewRequest(http.MethodPost, c.path(id)+"/cancel", nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if _, err := c.gh.Do(ctx, httpReq, nil); err != nil {
		return classify(err)
	}
	return nil
}

func (c *Client) path(id string) string {
	p := fmt.Sprintf("repos/%v/%v/pages/deployments", c.owner, c.repo)
	if id != "" {
		p += "/" + id
	}
	return p
}

// classify marks credential rejections so callers can tell them apart from
// transport failures
func classify(err error) error {
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		switch ghErr.Response.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %v", deployment.ErrUnauthorized, err)
		}
	}
	return err
}
