// Package bridge converts the push-based, arbitrarily-timed state
// messages of a robot control network into the blocking, deterministic
// reset/step contract a training loop needs.
//
// A Bridge composes three pieces: a Buffer holding the single most
// recent validated observation, an Episode tracking lifecycle and step
// counts, and a Dispatcher pacing outgoing actions. Step is a strictly
// alternating request/response protocol: one action dispatched, one
// fresh observation awaited, never pipelined. The blocking wait is what
// guarantees a causally consistent trajectory; without it a caller
// could observe stale state that predates its own action.
//
// Concurrency model: the transport delivers messages on its own
// goroutine; exactly one foreground goroutine calls Reset and Step. The
// buffer's current-observation slot is the only state the two share.
package bridge

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"gonum.org/v1/gonum/mat"

	env "github.com/samuelfneumann/roboenv/environment"
	ts "github.com/samuelfneumann/roboenv/timestep"
	"github.com/samuelfneumann/roboenv/transport"
)

// Bridge is the synchronous episode interface over an asynchronous
// transport. Construct one with New; the zero value is not usable.
type Bridge struct {
	domain     Domain
	trans      transport.Transport
	buffer     *Buffer
	episode    *Episode
	dispatcher *Dispatcher
	stepLimit  env.StepLimit
	config     Config
	logger     *slog.Logger
	metrics    *Metrics

	// Foreground-owned step state.
	lastSeq     uint64
	prevObs     *mat.VecDense
	currentStep ts.TimeStep

	quit      chan struct{}
	closeOnce sync.Once
}

// Option configures optional Bridge collaborators
type Option func(*Bridge)

// WithLogger directs the bridge's logging to logger
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) { b.logger = logger }
}

// WithMetrics instruments the bridge with m
func WithMetrics(m *Metrics) Option {
	return func(b *Bridge) { b.metrics = m }
}

// New constructs a Bridge for domain over trans and subscribes to the
// domain's state topic. The caller retains ownership of trans only
// until New returns; Close closes it.
func New(domain Domain, trans transport.Transport, config Config,
	opts ...Option) (*Bridge, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	b := &Bridge{
		domain:    domain,
		trans:     trans,
		episode:   NewEpisode(),
		stepLimit: env.NewStepLimit(config.MaxEpisodeSteps),
		config:    config,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		quit:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With("environment", domain.Name())

	b.buffer = NewBuffer(domain.Decode, b.logger)
	if b.metrics != nil {
		b.buffer.onDecodeError = b.metrics.DecodeFailures.Inc
	}
	b.dispatcher = NewDispatcher(trans, domain.ValidateAction,
		domain.EncodeAction, config.MinDispatchInterval, b.logger)

	if err := trans.Subscribe(domain.StateTopic(), b.buffer.Publish); err != nil {
		return nil, fmt.Errorf("bridge: could not subscribe to %v: %w",
			domain.StateTopic(), err)
	}
	trans.NotifyClosed(b.buffer.Fail)

	return b, nil
}

// Reset begins a new episode. It discards the dispatcher's rate-limit
// timer, sends the domain's reset command if it has one, and blocks
// until an observation strictly newer than anything seen before the
// command arrives, or the reset timeout elapses. Reset is legal from
// any state; resetting a running episode abandons it.
func (b *Bridge) Reset() (ts.TimeStep, error) {
	b.dispatcher.ClearTimer()

	// Everything at or below this sequence number predates the reset.
	baseline := b.buffer.LatestSeq()

	if topic, payload, ok := b.domain.ResetMessage(); ok {
		if err := b.trans.Publish(topic, payload); err != nil {
			// A publish on a dead transport reports the disconnect, not
			// the transport's own close error.
			if cause := b.buffer.Failed(); cause != nil {
				return ts.TimeStep{}, cause
			}
			return ts.TimeStep{}, fmt.Errorf(
				"reset: could not send reset command: %w", err)
		}
	}

	obs, err := b.buffer.WaitNext(baseline, b.config.ResetTimeout, b.quit)
	if err != nil {
		if errors.Is(err, ErrTimeout) {
			err = ErrResetTimeout
		}
		return ts.TimeStep{}, err
	}

	b.episode.Begin()
	b.lastSeq = obs.Seq
	b.prevObs = obs.Vec

	step := ts.New(ts.First, 0, b.config.Discount, obs.Vec, 0)
	step.Seq = obs.Seq
	step.Info["episode"] = b.episode.ID().String()
	step.Info["episode_number"] = b.episode.Number()
	b.currentStep = step

	if b.metrics != nil {
		b.metrics.Episodes.Inc()
	}
	b.logger.Info("episode started",
		"episode", b.episode.ID(), "number", b.episode.Number())

	return step, nil
}

// Step dispatches action and blocks until the next fresh observation,
// then scores the transition with the domain's reward and done hooks.
//
// Step requires a running episode; after done, or after a step timeout,
// it fails with ErrInvalidState until Reset. A step timeout forces the
// episode to Terminal: the observation stream has stalled, so the
// trajectory cannot be trusted to continue.
func (b *Bridge) Step(action *mat.VecDense) (ts.TimeStep, bool, error) {
	if err := b.episode.CheckStep(); err != nil {
		return ts.TimeStep{}, false, err
	}

	if err := b.dispatcher.Dispatch(action, b.quit); err != nil {
		// A publish on a dead transport reports the disconnect, not
		// the transport's own close error.
		if cause := b.buffer.Failed(); cause != nil {
			err = cause
		}
		return ts.TimeStep{}, false, err
	}

	waitStart := time.Now()
	obs, err := b.buffer.WaitNext(b.lastSeq, b.config.StepTimeout, b.quit)
	waited := time.Since(waitStart)
	if b.metrics != nil {
		b.metrics.WaitSeconds.Observe(waited.Seconds())
	}
	if err != nil {
		if errors.Is(err, ErrTimeout) {
			return ts.TimeStep{}, true, b.stepTimedOut(action, waited)
		}
		return ts.TimeStep{}, false, err
	}

	reward := b.domain.Reward(b.prevObs, action, obs.Vec)
	done := b.domain.Done(b.prevObs, action, obs.Vec)
	b.episode.Advance(reward, done)

	step := ts.New(ts.Mid, reward, b.config.Discount, obs.Vec,
		b.episode.Steps())
	step.Seq = obs.Seq
	step.Info["episode"] = b.episode.ID().String()
	step.Info["wait_ms"] = waited.Milliseconds()

	if done {
		step.SetEnd(ts.TerminalStateEnd)
	} else if b.stepLimit.End(&step) {
		// Step budget exhausted: a cutoff, not a terminal state.
		done = true
		b.episode.Fault()
	}

	b.lastSeq = obs.Seq
	b.prevObs = obs.Vec
	b.currentStep = step

	if b.metrics != nil {
		b.metrics.Steps.Inc()
	}
	if done {
		b.logger.Info("episode ended",
			"episode", b.episode.ID(), "steps", b.episode.Steps(),
			"totalReward", b.episode.TotalReward(), "end", step.EndType)
	}

	return step, done, nil
}

// stepTimedOut records an environment fault: the episode is forced to
// Terminal, the current timestep is marked as a fault for callers that
// inspect it, and ErrStepTimeout is returned.
func (b *Bridge) stepTimedOut(action *mat.VecDense,
	waited time.Duration) error {
	b.episode.Fault()

	step := ts.New(ts.Last, 0, b.config.Discount, b.prevObs,
		b.episode.Steps())
	step.EndType = ts.FaultEnd
	step.Seq = b.lastSeq
	step.Info["episode"] = b.episode.ID().String()
	step.Info["fault"] = "step_timeout"
	step.Info["wait_ms"] = waited.Milliseconds()
	b.currentStep = step

	if b.metrics != nil {
		b.metrics.StepTimeouts.Inc()
	}
	b.logger.Warn("step timed out waiting for observation",
		"episode", b.episode.ID(), "timeout", b.config.StepTimeout)

	return ErrStepTimeout
}

// CurrentTimeStep returns the last timestep produced by Reset or Step.
// After a step timeout it carries the fault diagnostics.
func (b *Bridge) CurrentTimeStep() ts.TimeStep {
	return b.currentStep
}

// EpisodeState returns the current lifecycle state
func (b *Bridge) EpisodeState() State {
	return b.episode.State()
}

// ObservationSpec returns the domain's observation specification
func (b *Bridge) ObservationSpec() env.Spec {
	return b.domain.ObservationSpec()
}

// ActionSpec returns the domain's action specification
func (b *Bridge) ActionSpec() env.Spec {
	return b.domain.ActionSpec()
}

// DiscountSpec returns the discounting specification
func (b *Bridge) DiscountSpec() env.Spec {
	shape := mat.NewVecDense(1, nil)
	bound := mat.NewVecDense(1, []float64{b.config.Discount})

	return env.NewSpec(shape, env.Discount, bound, bound, env.Continuous)
}

// Close aborts any pending wait and closes the transport. Safe to call
// more than once.
func (b *Bridge) Close() error {
	var err error
	b.closeOnce.Do(func() {
		close(b.quit)
		err = b.trans.Close()
	})
	return err
}
