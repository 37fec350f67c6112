package pages

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/go-github/v58/github"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imranansari/deploy-pages/deployment"
	"github.com/imranansari/deploy-pages/identity"
	"github.com/imranansari/deploy-pages/runcontext"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	gh := github.NewClient(nil).WithAuthToken("repo-token")
	baseURL, err := url.Parse(server.URL + "/")
	require.NoError(t, err)
	gh.BaseURL = baseURL

	return NewClient(gh, "octo", "site", zerolog.Nop())
}

func TestCreate(t *testing.T) {
	var got createDeploymentRequest
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octo/site/pages/deployments", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer repo-token", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id": 4815, "status_url": "https://api/status", "page_url": "https://x.example/", "preview_url": "https://pr-1.x.example/"}`))
	})
	client := newTestClient(t, mux)

	resp, err := client.Create(context.Background(), deployment.Request{
		Credential: identity.Credential{Token: "oidc"},
		Context: runcontext.RunContext{
			IsPreview:         true,
			TargetEnvironment: "github-pages",
			BuildVersion:      "abc123",
		},
		ArtifactRef: "99",
	})
	require.NoError(t, err)

	assert.Equal(t, deployment.CreateResponse{
		ID:         "4815",
		PageURL:    "https://x.example/",
		PreviewURL: "https://pr-1.x.example/",
	}, resp)
	assert.Equal(t, int64(99), got.ArtifactID)
	assert.Empty(t, got.ArtifactURL)
	assert.Equal(t, "oidc", got.OIDCToken)
	assert.Equal(t, "abc123", got.PagesBuildVersion)
	assert.True(t, got.Preview)
}

func TestCreateWithArtifactURLAndStringID(t *testing.T) {
	var got createDeploymentRequest
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octo/site/pages/deployments", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"id": "abc123", "page_url": "https://x.example/"}`))
	})
	client := newTestClient(t, mux)

	resp, err := client.Create(context.Background(), deployment.Request{ArtifactRef: "https://artifacts.example/1"})
	require.NoError(t, err)
	assert.Equal(t, "abc123", resp.ID)
	assert.Empty(t, resp.PreviewURL)
	assert.Equal(t, "https://artifacts.example/1", got.ArtifactURL)
	assert.Zero(t, got.ArtifactID)
}

func TestCreateUnauthorized(t *testing.T) {
	for _, code := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		mux := http.NewServeMux()
		mux.HandleFunc("/repos/octo/site/pages/deployments", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(code)
			_, _ = w.Write([]byte(`{"message": "Bad credentials"}`))
		})
		client := newTestClient(t, mux)

		_, err := client.Create(context.Background(), deployment.Request{ArtifactRef: "1"})
		assert.ErrorIs(t, err, deployment.ErrUnauthorized, "status %d", code)
	}
}

func TestCreateServerError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octo/site/pages/deployments", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	client := newTestClient(t, mux)

	_, err := client.Create(context.Background(), deployment.Request{ArtifactRef: "1"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, deployment.ErrUnauthorized)
}

func TestStatus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octo/site/pages/deployments/4815", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		_, _ = w.Write([]byte(`{"status": "updating_pages"}`))
	})
	mux.HandleFunc("/repos/octo/site/pages/deployments/empty", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})
	client := newTestClient(t, mux)

	status, err := client.Status(context.Background(), "4815", identity.Credential{})
	require.NoError(t, err)
	assert.Equal(t, deployment.StatusDeploying, status)

	_, err = client.Status(context.Background(), "empty", identity.Credential{})
	assert.Error(t, err)
}

func TestCancel(t *testing.T) {
	called := false
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octo/site/pages/deployments/4815/cancel", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		called = true
		w.WriteHeader(http.StatusNoContent)
	})
	client := newTestClient(t, mux)

	require.NoError(t, client.Cancel(context.Background(), "4815", identity.Credential{}))
	assert.True(t, called)
}

func TestMapStatus(t *testing.T) {
	tests := map[string]deployment.Status{
		"deployment_queued":         deployment.StatusQueued,
		"deployment_in_progress":    deployment.StatusBuilding,
		"syncing_files":             deployment.StatusBuilding,
		"purging_cdn":               deployment.StatusDeploying,
		"succeed":                   deployment.StatusSucceeded,
		"deployment_content_failed": deployment.StatusFailed,
		"deployment_lost":           deployment.StatusFailed,
		"deployment_cancelled":      deployment.StatusCancelled,
		"deployment_attempt_error":  deployment.StatusError,
		"something_new":             deployment.StatusBuilding,
	}
	for raw, want := range tests {
		assert.Equal(t, want, MapStatus(raw), raw)
	}
}

func TestResolveArtifact(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octo/site/actions/runs/7/artifacts", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"total_count": 3, "artifacts": [
			{"id": 11, "name": "github-pages", "size_in_bytes": 2048},
			{"id": 12, "name": "coverage"},
			{"id": 13, "name": "dupe"},
			{"id": 14, "name": "dupe"}
		]}`))
	})
	client := newTestClient(t, mux)

	id, err := client.ResolveArtifact(context.Background(), 7, "github-pages")
	require.NoError(t, err)
	assert.Equal(t, "11", id)

	_, err = client.ResolveArtifact(context.Background(), 7, "missing")
	assert.ErrorContains(t, err, "no artifact named")

	_, err = client.ResolveArtifact(context.Background(), 7, "dupe")
	assert.ErrorContains(t, err, "multiple artifacts")
}
