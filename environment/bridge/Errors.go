package bridge

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout is returned when no fresh observation arrives before
	// a wait deadline.
	ErrTimeout = errors.New("no fresh observation before deadline")

	// ErrResetTimeout is returned by Reset when no post-reset
	// observation arrives within the configured reset timeout.
	ErrResetTimeout = fmt.Errorf("reset: %w", ErrTimeout)

	// ErrStepTimeout is returned by Step when no observation arrives
	// within the configured step timeout. The episode is forced to
	// Terminal and must be Reset before stepping again.
	ErrStepTimeout = fmt.Errorf("step: %w", ErrTimeout)

	// ErrInvalidState is returned when Step is called outside a
	// running episode, e.g. before the first Reset or after done.
	ErrInvalidState = errors.New("episode is not running")

	// ErrRateLimited is returned by TryDispatch when a dispatch
	// arrives before the minimum inter-dispatch interval has elapsed.
	ErrRateLimited = errors.New("dispatch rate limit exceeded")

	// ErrNotAvailable is returned by Current before any observation
	// has arrived.
	ErrNotAvailable = errors.New("no observation has arrived yet")

	// ErrDisconnected is returned by a blocking wait once the
	// transport has permanently stopped delivering messages.
	ErrDisconnected = errors.New("transport disconnected")

	// ErrClosed is returned once the environment has been closed.
	ErrClosed = errors.New("environment closed")

	// ErrConcurrentWait is returned when a second goroutine waits on
	// the observation buffer; the bridge is a single-consumer
	// protocol.
	ErrConcurrentWait = errors.New("concurrent wait on observation buffer")
)
