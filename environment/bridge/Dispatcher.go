package bridge

import (
	"fmt"
	"log/slog"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/roboenv/transport"
)

// Dispatcher validates caller-supplied actions, encodes them into
// transport messages, and publishes them, pacing successive dispatches
// so that the transport is never overrun.
//
// Dispatch blocks until the minimum inter-dispatch interval has
// elapsed. Blocking was chosen over rejection because step cadence is
// normally paced by observation arrival anyway, and it keeps the
// strictly alternating dispatch/wait protocol free of caller-side retry
// loops. TryDispatch exists for callers that would rather fail fast.
//
// The rate-limit timer is touched only by the foreground goroutine, so
// the Dispatcher needs no locking.
type Dispatcher struct {
	trans    transport.Transport
	validate func(*mat.VecDense) error
	encode   func(*mat.VecDense) (topic string, payload []byte, err error)
	logger   *slog.Logger

	minInterval time.Duration
	last        time.Time
}

// NewDispatcher returns a Dispatcher that validates actions with
// validate, encodes them with encode, and enforces minInterval between
// publishes. A zero minInterval disables pacing.
func NewDispatcher(trans transport.Transport,
	validate func(*mat.VecDense) error,
	encode func(*mat.VecDense) (string, []byte, error),
	minInterval time.Duration, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		trans:       trans,
		validate:    validate,
		encode:      encode,
		logger:      logger,
		minInterval: minInterval,
	}
}

// Dispatch validates, encodes, and publishes action, sleeping first if
// the previous dispatch was less than the minimum interval ago. quit
// aborts a pending sleep with ErrClosed. The action is not retained.
func (d *Dispatcher) Dispatch(action *mat.VecDense,
	quit <-chan struct{}) error {
	if err := d.validate(action); err != nil {
		return fmt.Errorf("dispatch: invalid action: %w", err)
	}

	if wait := d.eligibleIn(); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-quit:
			return ErrClosed
		}
	}

	return d.send(action)
}

// TryDispatch is the non-blocking variant of Dispatch: a call arriving
// before the minimum interval has elapsed fails with ErrRateLimited and
// publishes nothing.
func (d *Dispatcher) TryDispatch(action *mat.VecDense) error {
	if err := d.validate(action); err != nil {
		return fmt.Errorf("dispatch: invalid action: %w", err)
	}
	if d.eligibleIn() > 0 {
		return ErrRateLimited
	}
	return d.send(action)
}

// ClearTimer discards the rate-limit timer so the next dispatch is
// immediately eligible. Called on reset: pacing is per-episode, not
// across episode boundaries.
func (d *Dispatcher) ClearTimer() {
	d.last = time.Time{}
}

// eligibleIn returns how long until the next dispatch is eligible
func (d *Dispatcher) eligibleIn() time.Duration {
	if d.minInterval <= 0 || d.last.IsZero() {
		return 0
	}
	return d.minInterval - time.Since(d.last)
}

func (d *Dispatcher) send(action *mat.VecDense) error {
	topic, payload, err := d.encode(action)
	if err != nil {
		return fmt.Errorf("dispatch: could not encode action: %w", err)
	}

	if err := d.trans.Publish(topic, payload); err != nil {
		return fmt.Errorf("dispatch: could not publish action: %w", err)
	}
	d.last = time.Now()
	d.logger.Debug("dispatched action", "topic", topic)
	return nil
}
