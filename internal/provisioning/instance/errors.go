package instance

import "errors"

var (
	// ErrInstanceFailed is returned when the control plane reports ERROR.
	ErrInstanceFailed = errors.New("instance entered ERROR state")

	// ErrBootTimeout is returned when an instance does not become ACTIVE in time.
	ErrBootTimeout = errors.New("timed out waiting for instance to become ACTIVE")

	// ErrDeleteTimeout is returned when a deletion is not confirmed in time.
	ErrDeleteTimeout = errors.New("timed out waiting for instance deletion")

	// ErrUnreachable is returned when an instance does not accept SSH in time.
	ErrUnreachable = errors.New("instance not reachable over ssh")
)
