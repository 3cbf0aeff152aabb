package hub

import "errors"

var (
	// ErrPodLimitReached means the global cap on concurrent workshop pods
	// was hit and no new session can start.
	ErrPodLimitReached = errors.New("workshop pod limit reached")

	// ErrPodNotReady means a freshly created pod did not reach the Running
	// phase within the startup deadline.
	ErrPodNotReady = errors.New("workshop pod failed to become ready in time")
)
