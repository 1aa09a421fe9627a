// Package rosbridge implements the transport.Transport interface over
// the rosbridge v2 JSON protocol, giving environments access to ROS
// topics through a rosbridge_server websocket endpoint.
package rosbridge

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/samuelfneumann/roboenv/transport"
)

// envelope is a rosbridge v2 protocol frame. Only the fields used by
// the subscribe/advertise/publish ops are modelled.
type envelope struct {
	Op    string          `json:"op"`
	ID    string          `json:"id,omitempty"`
	Topic string          `json:"topic,omitempty"`
	Type  string          `json:"type,omitempty"`
	Msg   json.RawMessage `json:"msg,omitempty"`
}

// Client is a transport.Transport over a rosbridge websocket
// connection. A single reader goroutine owns inbound frames and
// dispatches them to subscriber handlers; writes are serialized by a
// mutex since gorilla/websocket permits only one concurrent writer.
type Client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex

	mu         sync.Mutex
	handlers   map[string]transport.Handler
	advertised map[string]bool
	onClosed   []func(error)
	seq        uint64
	closed     bool
}

// Dial connects to a rosbridge_server endpoint, e.g.
// "ws://localhost:9090", and starts the read pump.
func Dial(url string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("rosbridge: could not dial %v: %w", url, err)
	}

	c := &Client{
		conn:       conn,
		handlers:   make(map[string]transport.Handler),
		advertised: make(map[string]bool),
	}
	go c.readPump()

	return c, nil
}

// readPump owns all reads from the websocket. It exits, closing the
// transport with the read error as cause, when the connection drops.
func (c *Client) readPump() {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.fail(err)
			return
		}

		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			// Not a protocol frame; nothing to dispatch.
			continue
		}
		if env.Op != "publish" {
			continue
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return
		}
		h := c.handlers[env.Topic]
		c.seq++
		msg := transport.Message{
			Topic:   env.Topic,
			Payload: []byte(env.Msg),
			Seq:     c.seq,
			Time:    time.Now(),
		}
		c.mu.Unlock()

		if h != nil {
			h(msg)
		}
	}
}

// Advertise announces that this client will publish messages of the
// given ROS type on topic. Publishing to a topic that was never
// advertised is legal at the protocol level but some rosbridge
// deployments drop such messages, so environments advertise their
// action and reset topics up front.
func (c *Client) Advertise(topic, rosType string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return transport.ErrClosed
	}
	c.advertised[topic] = true
	c.mu.Unlock()

	return c.writeJSON(envelope{Op: "advertise", Topic: topic, Type: rosType})
}

// Publish sends payload, which must be a JSON-encoded ROS message body,
// on topic.
func (c *Client) Publish(topic string, payload []byte) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return transport.ErrClosed
	}
	c.mu.Unlock()

	return c.writeJSON(envelope{
		Op:    "publish",
		Topic: topic,
		Msg:   json.RawMessage(payload),
	})
}

// Subscribe registers h for topic and issues the protocol subscription
func (c *Client) Subscribe(topic string, h transport.Handler) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return transport.ErrClosed
	}
	c.handlers[topic] = h
	c.mu.Unlock()

	return c.writeJSON(envelope{Op: "subscribe", Topic: topic})
}

// NotifyClosed registers fn to run once when the connection ends
func (c *Client) NotifyClosed(fn func(error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		go fn(nil)
		return
	}
	c.onClosed = append(c.onClosed, fn)
}

// Close shuts the connection down locally
func (c *Client) Close() error {
	c.fail(nil)
	return nil
}

// fail marks the client closed with the given cause, closes the socket,
// and notifies close listeners. Only the first cause wins.
func (c *Client) fail(cause error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	notify := c.onClosed
	c.onClosed = nil
	c.mu.Unlock()

	c.conn.Close()
	for _, fn := range notify {
		fn(cause)
	}
}

func (c *Client) writeJSON(env envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("rosbridge: could not encode %v frame: %w",
			env.Op, err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("rosbridge: could not write %v frame: %w",
			env.Op, err)
	}
	return nil
}
