package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/imranansari/deploy-pages/deployment"
)

var durationBuckets = []float64{5, 10, 30, 60, 120, 300, 600}

// Recorder collects deployment metrics for one run and implements
// deployment.Recorder
type Recorder struct {
	registry *prometheus.Registry
	started  time.Time

	polls    *prometheus.CounterVec
	outcomes *prometheus.CounterVec
	duration prometheus.Histogram
}

// NewRecorder creates a recorder with its own registry
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		started:  time.Now(),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "deploy_pages",
			Name:      "status_checks_total",
			Help:      "Count of deployment status checks by reported status",
		}, []string{"status"}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "deploy_pages",
			Name:      "outcomes_total",
			Help:      "Number of deployment runs by final state",
		}, []string{"state"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "deploy_pages",
			Name:      "duration_seconds",
			Help:      "Time from start of run to a final deployment state",
			Buckets:   durationBuckets,
		}),
	}
	r.registry.MustRegister(r.polls, r.outcomes, r.duration)
	return r
}

// ObservePoll counts one status check
func (r *Recorder) ObservePoll(status deployment.Status, err error) {
	label := string(status)
	if err != nil {
		label = "transport_error"
	}
	r.polls.With(prometheus.Labels{"status": label}).Inc()
}

// ObserveOutcome records the final state of the run
func (r *Recorder) ObserveOutcome(state deployment.State) {
	r.outcomes.With(prometheus.Labels{"state": string(state)}).Inc()
	r.duration.Observe(time.Since(r.started).Seconds())
}

// Gatherer exposes the collected metrics
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Push sends the collected metrics to a Pushgateway, grouped by repository
func (r *Recorder) Push(ctx context.Context, url, repository string) error {
	if url == "" {
		return nil
	}
	err := push.New(url, "deploy_pages").
		Gatherer(r.registry).
		Grouping("repository", repository).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to push metrics: %w", err)
	}
	return nil
}
