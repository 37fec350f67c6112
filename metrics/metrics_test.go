package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imranansari/deploy-pages/deployment"
)

func TestRecorderCounts(t *testing.T) {
	r := NewRecorder()
	r.ObservePoll(deployment.StatusQueued, nil)
	r.ObservePoll("", errors.New("timeout"))
	r.ObservePoll(deployment.StatusSucceeded, nil)
	r.ObserveOutcome(deployment.StateSucceeded)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.polls.WithLabelValues("queued")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.polls.WithLabelValues("transport_error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.outcomes.WithLabelValues("succeeded")))

	families, err := r.Gatherer().Gather()
	require.NoError(t, err)
	assert.Len(t, families, 3)
}

func TestPush(t *testing.T) {
	var path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	r := NewRecorder()
	r.ObserveOutcome(deployment.StateFailed)

	require.NoError(t, r.Push(context.Background(), server.URL, "octo/site"))
	assert.True(t, strings.HasPrefix(path, "/metrics/job/deploy_pages/repository"), path)

	assert.NoError(t, r.Push(context.Background(), "", "octo/site"))
}
