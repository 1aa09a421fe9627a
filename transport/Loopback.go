package transport

import (
	"sync"
	"time"
)

// Loopback is an in-process Transport that delivers published messages
// directly to the matching subscriber in the caller's goroutine.
// Delivery is synchronous and in publish order, which makes tests and
// in-process simulators deterministic: by the time Publish returns, the
// subscriber has seen the message.
type Loopback struct {
	mu       sync.Mutex
	handlers map[string]Handler
	onClosed []func(error)
	seq      uint64
	closed   bool
}

// NewLoopback returns a new, open Loopback transport
func NewLoopback() *Loopback {
	return &Loopback{handlers: make(map[string]Handler)}
}

// Publish delivers payload to the handler subscribed to topic, if any.
// Messages published to topics with no subscriber are dropped.
func (l *Loopback) Publish(topic string, payload []byte) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	l.seq++
	msg := Message{
		Topic:   topic,
		Payload: payload,
		Seq:     l.seq,
		Time:    time.Now(),
	}
	h := l.handlers[topic]
	l.mu.Unlock()

	if h != nil {
		h(msg)
	}
	return nil
}

// Subscribe registers h as the handler for topic, replacing any prior
// handler for the same topic.
func (l *Loopback) Subscribe(topic string, h Handler) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}
	l.handlers[topic] = h
	return nil
}

// NotifyClosed registers fn to run when the transport closes
func (l *Loopback) NotifyClosed(fn func(error)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		go fn(nil)
		return
	}
	l.onClosed = append(l.onClosed, fn)
}

// Close closes the transport. Subsequent publishes fail with ErrClosed.
func (l *Loopback) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	notify := l.onClosed
	l.onClosed = nil
	l.mu.Unlock()

	for _, fn := range notify {
		fn(nil)
	}
	return nil
}

// Fail closes the transport as if the connection dropped with cause
// err, notifying close listeners with the cause. It exists so tests and
// simulators can exercise disconnection handling.
func (l *Loopback) Fail(err error) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	notify := l.onClosed
	l.onClosed = nil
	l.mu.Unlock()

	for _, fn := range notify {
		fn(err)
	}
}
