// Package transport abstracts the asynchronous, topic-based messaging
// systems that environments are bridged over.
//
// A Transport delivers inbound messages by invoking subscriber handlers
// from a transport-owned goroutine and accepts outbound messages via
// Publish. Implementations must not assume anything about what handlers
// do beyond returning promptly.
package transport

import (
	"errors"
	"time"
)

// ErrClosed is returned by operations on a transport that has been
// closed, either locally or by the remote peer.
var ErrClosed = errors.New("transport closed")

// Message is a single inbound message from a transport. Seq is a
// transport-assigned delivery sequence number used to detect reordered
// messages; transports that cannot number deliveries leave it zero, in
// which case consumers must assume in-order delivery.
type Message struct {
	Topic   string
	Payload []byte
	Seq     uint64
	Time    time.Time
}

// Handler consumes an inbound Message. Handlers are invoked from the
// transport's delivery goroutine and must not block.
type Handler func(Message)

// Transport is a topic-based publish/subscribe messaging connection.
//
// Each environment owns its own Transport instance; nothing in this
// module shares a transport process-wide, so independent environments
// can run side by side without cross-talk.
type Transport interface {
	// Publish sends payload on topic. Returns ErrClosed after the
	// transport has closed.
	Publish(topic string, payload []byte) error

	// Subscribe registers h to receive every message arriving on
	// topic. At most one handler per topic is supported.
	Subscribe(topic string, h Handler) error

	// NotifyClosed registers fn to be called exactly once when the
	// transport stops delivering messages, with the cause (nil for a
	// local Close).
	NotifyClosed(fn func(error))

	// Close shuts the transport down. Safe to call more than once.
	Close() error
}
