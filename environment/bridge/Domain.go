package bridge

import (
	"gonum.org/v1/gonum/mat"

	env "github.com/samuelfneumann/roboenv/environment"
	"github.com/samuelfneumann/roboenv/transport"
)

// Domain supplies everything environment-specific to a Bridge: wire
// codecs, action validation, and the reward and termination semantics.
// Reward and Done must be pure functions of the transition; the bridge
// calls them exactly once per step.
type Domain interface {
	// Name identifies the domain in logs and metrics
	Name() string

	// StateTopic is the transport topic carrying state messages
	StateTopic() string

	// Decode converts a raw state message into an observation vector.
	// Errors cause the message to be logged and dropped.
	Decode(msg transport.Message) (*mat.VecDense, error)

	// EncodeAction converts a validated action into an outgoing
	// message.
	EncodeAction(action *mat.VecDense) (topic string, payload []byte,
		err error)

	// ValidateAction rejects actions outside the domain's bounds
	// before they are dispatched.
	ValidateAction(action *mat.VecDense) error

	// ResetMessage returns the command that asks the backend to start
	// a new episode. Domains whose backend free-runs return ok ==
	// false and the bridge sends nothing.
	ResetMessage() (topic string, payload []byte, ok bool)

	// Reward scores the transition (prev, action, next)
	Reward(prev, action, next *mat.VecDense) float64

	// Done reports whether next ends the episode in a terminal state
	Done(prev, action, next *mat.VecDense) bool

	ObservationSpec() env.Spec
	ActionSpec() env.Spec
}
