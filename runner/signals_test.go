package runner

import (
	"context"
	"os"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imranansari/deploy-pages/deployment"
	"github.com/imranansari/deploy-pages/identity"
)

type fakeCanceller struct {
	called chan struct{}
}

func (f *fakeCanceller) Cancel(ctx context.Context) error {
	close(f.called)
	return nil
}

// heldCreateAPI blocks Create until released and records remote cancels
type heldCreateAPI struct {
	started chan struct{}
	release chan struct{}

	mu        sync.Mutex
	cancelled []string
}

func (a *heldCreateAPI) Create(ctx context.Context, req deployment.Request) (deployment.CreateResponse, error) {
	close(a.started)
	<-a.release
	return deployment.CreateResponse{ID: "d7", PageURL: "https://x.example/"}, nil
}

func (a *heldCreateAPI) Status(ctx context.Context, id string, cred identity.Credential) (deployment.Status, error) {
	return deployment.StatusBuilding, nil
}

func (a *heldCreateAPI) Cancel(ctx context.Context, id string, cred identity.Credential) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cancelled = append(a.cancelled, id)
	return nil
}

func (a *heldCreateAPI) cancels() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.cancelled...)
}

func TestWatchSignalDuringCreateCancelsBeforeExit(t *testing.T) {
	api := &heldCreateAPI{started: make(chan struct{}), release: make(chan struct{})}
	o := deployment.New(api, deployment.Options{}, zerolog.Nop())

	sigChan := make(chan os.Signal, 1)
	exited := make(chan int, 1)
	stop := watch(sigChan, o, time.Second, func(code int) { exited <- code }, zerolog.Nop())
	defer stop()

	go func() {
		_, _ = o.Create(context.Background(), deployment.Request{ArtifactRef: "1"})
	}()
	<-api.started

	sigChan <- syscall.SIGINT
	select {
	case <-exited:
		t.Fatal("exit called before creation settled")
	case <-time.After(20 * time.Millisecond):
	}

	close(api.release)
	select {
	case code := <-exited:
		assert.Equal(t, 130, code)
	case <-time.After(time.Second):
		t.Fatal("exit was not called")
	}
	assert.Equal(t, []string{"d7"}, api.cancels())
	assert.Equal(t, deployment.StateCancelled, o.State())
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 130, ExitCode(syscall.SIGINT))
	assert.Equal(t, 143, ExitCode(syscall.SIGTERM))
	assert.Equal(t, 1, ExitCode(os.Signal(nil)))
}

func TestWatchCancelsThenExits(t *testing.T) {
	sigChan := make(chan os.Signal, 1)
	canceller := &fakeCanceller{called: make(chan struct{})}
	exited := make(chan int, 1)

	stop := watch(sigChan, canceller, time.Second, func(code int) { exited <- code }, zerolog.Nop())
	defer stop()

	sigChan <- syscall.SIGTERM

	select {
	case code := <-exited:
		assert.Equal(t, 143, code)
	case <-time.After(time.Second):
		t.Fatal("exit was not called")
	}
	select {
	case <-canceller.called:
	default:
		t.Fatal("Cancel was not called before exit")
	}
}

func TestWatchStop(t *testing.T) {
	sigChan := make(chan os.Signal, 1)
	canceller := &fakeCanceller{called: make(chan struct{})}

	stop := watch(sigChan, canceller, time.Second, func(int) { t.Error("unexpected exit") }, zerolog.Nop())
	stop()
	stop()

	sigChan <- syscall.SIGINT
	select {
	case <-canceller.called:
		t.Fatal("Cancel called after stop")
	default:
	}
	require.Len(t, sigChan, 1)
}
