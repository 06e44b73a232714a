// bus.go
package bus

import (
	"context"
	"strings"
	"sync"
)

// -----------------------------------------------------------------------------
// Topics
// -----------------------------------------------------------------------------

// Wildcard tokens, valid in subscriptions only.
const (
	AnyOne  = "+" // exactly one level
	AnyRest = "#" // zero or more trailing levels
)

// Topic is a sequence of path tokens.
type Topic []string

// T builds a topic from tokens.
func T(tokens ...string) Topic { return Topic(tokens) }

func (t Topic) Len() int        { return len(t) }
func (t Topic) At(i int) string { return t[i] }
func (t Topic) String() string  { return strings.Join(t, "/") }

func (t Topic) Equal(o Topic) bool {
	if len(t) != len(o) {
		return false
	}
	for i := range t {
		if t[i] != o[i] {
			return false
		}
	}
	return true
}

// Append returns a new topic; t is never modified.
func (t Topic) Append(tokens ...string) Topic {
	out := make(Topic, 0, len(t)+len(tokens))
	out = append(out, t...)
	return append(out, tokens...)
}

// Matches reports whether a concrete topic matches the filter f.
func (f Topic) Matches(topic Topic) bool {
	for i, tok := range f {
		if tok == AnyRest {
			return true
		}
		if i >= len(topic) {
			return false
		}
		if tok != AnyOne && tok != topic[i] {
			return false
		}
	}
	return len(f) == len(topic)
}

// -----------------------------------------------------------------------------
// Message
// -----------------------------------------------------------------------------

type Message struct {
	Topic    Topic
	Payload  any
	Retained bool
}

// -----------------------------------------------------------------------------
// Subscription
// -----------------------------------------------------------------------------

// Subscription owns a bounded queue. The channel is never closed; consumers
// select on Done (or their own context) to stop.
type Subscription struct {
	topic Topic
	ch    chan *Message
	done  chan struct{}
	once  sync.Once
	conn  *Connection
}

func (s *Subscription) Topic() Topic             { return s.topic }
func (s *Subscription) Channel() <-chan *Message { return s.ch }
func (s *Subscription) Done() <-chan struct{}    { return s.done }
func (s *Subscription) Unsubscribe()             { s.conn.Unsubscribe(s) }

func (s *Subscription) closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// offer delivers without blocking. When the queue is full the oldest queued
// message is discarded.
func (s *Subscription) offer(m *Message) bool {
	if s.closed() {
		return false
	}
	select {
	case s.ch <- m:
		return true
	default:
	}
	select {
	case <-s.ch:
	default:
	}
	select {
	case s.ch <- m:
		return true
	default:
		return false
	}
}

// -----------------------------------------------------------------------------
// Trie node
// -----------------------------------------------------------------------------

type node struct {
	children map[string]*node
	subs     []*Subscription
}

// -----------------------------------------------------------------------------
// Bus
// -----------------------------------------------------------------------------

type Bus struct {
	mu       sync.RWMutex
	root     *node
	retained map[string]*Message
	qLen     int
}

// NewBus creates a new bus with the given default subscription queue length.
func NewBus(queueLen int) *Bus {
	if queueLen <= 0 {
		queueLen = 8
	}
	return &Bus{
		root:     &node{},
		retained: make(map[string]*Message),
		qLen:     queueLen,
	}
}

func (b *Bus) NewMessage(t Topic, payload any, retained bool) *Message {
	return &Message{Topic: t, Payload: payload, Retained: retained}
}

// addSubscription inserts a subscription into the trie and replays every
// retained message its filter matches.
func (b *Bus) addSubscription(sub *Subscription) {
	b.mu.Lock()
	n := b.root
	for _, tok := range sub.topic {
		if n.children == nil {
			n.children = make(map[string]*node)
		}
		child, ok := n.children[tok]
		if !ok {
			child = &node{}
			n.children[tok] = child
		}
		n = child
	}
	n.subs = append(n.subs, sub)

	var replay []*Message
	for _, m := range b.retained {
		if sub.topic.Matches(m.Topic) {
			replay = append(replay, m)
		}
	}
	b.mu.Unlock()

	for _, m := range replay {
		sub.offer(m)
	}
}

// collect stores or clears the retained copy and returns the matching subscribers.
func (b *Bus) collect(msg *Message) []*Subscription {
	if msg.Retained {
		b.mu.Lock()
		key := msg.Topic.String()
		if msg.Payload == nil {
			delete(b.retained, key)
		} else {
			b.retained[key] = msg
		}
		b.mu.Unlock()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []*Subscription
	match(b.root, msg.Topic, &out)
	return out
}

func match(n *node, topic Topic, out *[]*Subscription) {
	if n.children != nil {
		if h := n.children[AnyRest]; h != nil {
			*out = append(*out, h.subs...)
		}
	}
	if len(topic) == 0 {
		*out = append(*out, n.subs...)
		return
	}
	if n.children == nil {
		return
	}
	if c := n.children[topic[0]]; c != nil {
		match(c, topic[1:], out)
	}
	if c := n.children[AnyOne]; c != nil {
		match(c, topic[1:], out)
	}
}

// Publish delivers a message to all matching subscribers without blocking.
// Full queues drop their oldest entry.
func (b *Bus) Publish(msg *Message) {
	for _, sub := range b.collect(msg) {
		sub.offer(msg)
	}
}

// PublishWait delivers a message to all matching subscribers, waiting for
// queue space instead of dropping. Delivery to one producer's messages keeps
// publish order. Returns ctx.Err() if the context ends first.
func (b *Bus) PublishWait(ctx context.Context, msg *Message) error {
	for _, sub := range b.collect(msg) {
		select {
		case sub.ch <- msg:
		case <-sub.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// unsubscribe removes a subscription from the trie.
func (b *Bus) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.root
	stack := make([]*node, 0, len(sub.topic))
	for _, t := range sub.topic {
		if n.children == nil {
			return
		}
		child, ok := n.children[t]
		if !ok {
			return
		}
		stack = append(stack, n)
		n = child
	}

	for i, s := range n.subs {
		if s == sub {
			n.subs = append(n.subs[:i], n.subs[i+1:]...)
			break
		}
	}

	// Prune empty nodes.
	for i := len(sub.topic) - 1; i >= 0; i-- {
		parent := stack[i]
		key := sub.topic[i]
		child := parent.children[key]
		if len(child.subs) == 0 && len(child.children) == 0 {
			delete(parent.children, key)
		} else {
			break
		}
	}
}

// -----------------------------------------------------------------------------
// Connection
// -----------------------------------------------------------------------------

type Connection struct {
	bus  *Bus
	subs []*Subscription
	mu   sync.Mutex
	id   string
}

// NewConnection creates a new connection bound to this bus.
func (b *Bus) NewConnection(id string) *Connection {
	return &Connection{bus: b, id: id}
}

func (c *Connection) ID() string { return c.id }

func (c *Connection) NewMessage(t Topic, payload any, retained bool) *Message {
	return c.bus.NewMessage(t, payload, retained)
}

// Publish sends a message via the bus.
func (c *Connection) Publish(msg *Message) { c.bus.Publish(msg) }

// PublishWait sends a message via the bus, waiting for queue space.
func (c *Connection) PublishWait(ctx context.Context, msg *Message) error {
	return c.bus.PublishWait(ctx, msg)
}

// Subscribe registers a subscription with the bus default queue length.
func (c *Connection) Subscribe(topic Topic) *Subscription {
	return c.SubscribeN(topic, c.bus.qLen)
}

// SubscribeN registers a subscription with its own queue length. A length of
// one turns the subscription into a latest-value signal.
func (c *Connection) SubscribeN(topic Topic, queueLen int) *Subscription {
	if queueLen <= 0 {
		queueLen = c.bus.qLen
	}
	sub := &Subscription{
		topic: topic,
		ch:    make(chan *Message, queueLen),
		done:  make(chan struct{}),
		conn:  c,
	}
	c.bus.addSubscription(sub)
	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
	return sub
}

// Unsubscribe removes a subscription owned by this connection.
func (c *Connection) Unsubscribe(sub *Subscription) {
	c.bus.unsubscribe(sub)
	c.mu.Lock()
	for i, s := range c.subs {
		if s == sub {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			break
		}
	}
	c.mu.Unlock()
	sub.once.Do(func() { close(sub.done) })
}

// Disconnect drops all subscriptions owned by this connection.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	for _, sub := range subs {
		c.bus.unsubscribe(sub)
		sub.once.Do(func() { close(sub.done) })
	}
}
