package bridge

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/roboenv/transport"
)

// Observation is a timestamped snapshot of environment state. It is
// immutable once constructed: the buffer hands out the vector it
// decoded and never writes to it again, so consumers may read it
// without copying.
//
// Seq is assigned by the buffer, starts at 1, and increases by one per
// accepted message for the lifetime of the buffer. It is never reset
// between episodes, so "newer than the last pre-reset observation" is a
// plain comparison.
type Observation struct {
	Vec  *mat.VecDense
	Seq  uint64
	Time time.Time
}

// DecodeFunc decodes a raw transport message into an observation
// vector. A non-nil error drops the message.
type DecodeFunc func(transport.Message) (*mat.VecDense, error)

// Buffer holds the single most recent validated observation.
//
// Updates are total replacements (latest-wins): bursts of messages cost
// no memory and a consumer always decides from the freshest state. One
// transport goroutine calls Publish and Fail; exactly one consumer
// goroutine calls WaitNext. The current-value slot is the only state
// shared between the two and every access holds mu.
type Buffer struct {
	decode DecodeFunc
	logger *slog.Logger

	onDecodeError func() // metrics hook, may be nil

	mu         sync.Mutex
	cond       *sync.Cond
	cur        Observation
	hasCur     bool
	lastMsgSeq uint64
	failure    error
	waiting    bool
}

// NewBuffer returns a Buffer that decodes inbound messages with decode
// and logs dropped messages to logger.
func NewBuffer(decode DecodeFunc, logger *slog.Logger) *Buffer {
	b := &Buffer{decode: decode, logger: logger}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Publish decodes msg and installs it as the current observation,
// waking any blocked waiter. Malformed messages are logged and dropped,
// never surfaced to the transport goroutine: the buffer's contract is
// "latest valid observation", not "every message". Messages whose
// transport sequence number regresses are also dropped so that the
// current observation never moves backwards in time.
func (b *Buffer) Publish(msg transport.Message) {
	vec, err := b.decode(msg)
	if err != nil {
		b.logger.Warn("dropping undecodable message",
			"topic", msg.Topic, "err", err)
		if b.onDecodeError != nil {
			b.onDecodeError()
		}
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if msg.Seq != 0 && msg.Seq <= b.lastMsgSeq {
		b.logger.Warn("dropping out-of-order message",
			"topic", msg.Topic, "seq", msg.Seq, "lastSeq", b.lastMsgSeq)
		return
	}
	if msg.Seq != 0 {
		b.lastMsgSeq = msg.Seq
	}

	arrived := msg.Time
	if arrived.IsZero() {
		arrived = time.Now()
	}

	b.cur = Observation{Vec: vec, Seq: b.cur.Seq + 1, Time: arrived}
	b.hasCur = true
	b.cond.Broadcast()
}

// Fail marks the buffer's transport as permanently gone. The pending
// wait, and every wait after it, returns ErrDisconnected wrapping
// cause. A nil cause still fails the buffer.
func (b *Buffer) Fail(cause error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failure != nil {
		return
	}
	if cause == nil {
		b.failure = ErrDisconnected
	} else {
		b.failure = fmt.Errorf("%w: %v", ErrDisconnected, cause)
	}
	b.cond.Broadcast()
}

// Failed returns the recorded transport failure wrapping
// ErrDisconnected, or nil while the transport is still live.
func (b *Buffer) Failed() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failure
}

// Current returns the latest observation without blocking, or
// ErrNotAvailable if none has arrived yet.
func (b *Buffer) Current() (Observation, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.hasCur {
		return Observation{}, ErrNotAvailable
	}
	return b.cur, nil
}

// LatestSeq returns the sequence number of the current observation, or
// zero if none has arrived. Used to establish a staleness baseline
// before issuing a reset command.
func (b *Buffer) LatestSeq() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cur.Seq
}

// WaitNext blocks until an observation with sequence number strictly
// greater than after is current, then returns it. It returns ErrTimeout
// if timeout elapses first, ErrClosed if quit is closed, and
// ErrDisconnected once the transport has failed. The wait never
// busy-polls: it parks on a condition variable that Publish, Fail, the
// deadline timer, and cancellation all signal.
//
// The buffer is single-consumer; a second concurrent WaitNext returns
// ErrConcurrentWait.
func (b *Buffer) WaitNext(after uint64, timeout time.Duration,
	quit <-chan struct{}) (Observation, error) {
	deadline := time.Now().Add(timeout)
	timer := time.AfterFunc(timeout, func() {
		b.mu.Lock()
		b.cond.Broadcast()
		b.mu.Unlock()
	})
	defer timer.Stop()

	// Forward cancellation into the condition variable.
	waitDone := make(chan struct{})
	defer close(waitDone)
	if quit != nil {
		go func() {
			select {
			case <-quit:
				b.mu.Lock()
				b.cond.Broadcast()
				b.mu.Unlock()
			case <-waitDone:
			}
		}()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.waiting {
		return Observation{}, ErrConcurrentWait
	}
	b.waiting = true
	defer func() { b.waiting = false }()

	for {
		// Cancellation wins over every other outcome so that Close
		// reports ErrClosed, not the disconnect that closing the
		// transport also causes.
		select {
		case <-quit:
			return Observation{}, ErrClosed
		default:
		}
		if b.failure != nil {
			return Observation{}, b.failure
		}
		if b.hasCur && b.cur.Seq > after {
			return b.cur, nil
		}
		if !time.Now().Before(deadline) {
			return Observation{}, ErrTimeout
		}
		b.cond.Wait()
	}
}
