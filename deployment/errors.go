package deployment

import (
	"errors"
	"fmt"
)

var (
	// ErrCancelled is returned by Check when Cancel interrupts polling
	ErrCancelled = errors.New("deployment cancelled")

	// ErrUnauthorized marks API errors caused by a rejected credential
	ErrUnauthorized = errors.New("credential rejected")
)

// CreationError means the deployment could not be created. It is never retried.
type CreationError struct {
	Err          error
	AuthRejected bool
}

func (e *CreationError) Error() string {
	if e.AuthRejected {
		return fmt.Sprintf("failed to create deployment: authentication rejected: %v", e.Err)
	}
	return fmt.Sprintf("failed to create deployment: %v", e.Err)
}

func (e *CreationError) Unwrap() error {
	return e.Err
}

// PollingExhaustedError means the deployment never reached a terminal status
// within the attempt ceiling
type PollingExhaustedError struct {
	DeploymentID string
	Attempts     int
	LastStatus   Status
	Err          error
}

func (e *PollingExhaustedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("deployment %s: gave up after %d status checks: %v", e.DeploymentID, e.Attempts, e.Err)
	}
	return fmt.Sprintf("deployment %s: timeout reached after %d status checks, last status %q", e.DeploymentID, e.Attempts, e.LastStatus)
}

func (e *PollingExhaustedError) Unwrap() error {
	return e.Err
}

// InvalidStateError reports an operation called in the wrong lifecycle state
type InvalidStateError struct {
	Op    string
	State State
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s deployment in state %q", e.Op, e.State)
}

// DeploymentFailedError reports a deployment that finished unsuccessfully
type DeploymentFailedError struct {
	DeploymentID string
	Status       Status
}

func (e *DeploymentFailedError) Error() string {
	return fmt.Sprintf("deployment %s finished with status %q", e.DeploymentID, e.Status)
}
