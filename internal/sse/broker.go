// Package sse streams journal changes to browsers as Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// Refresh tells clients that record lists or tag groups they display may
// be stale. It is emitted at most once per refresh interval.
const Refresh = "journal.refresh"

// Event is one message on the stream. ID is assigned by the broker.
type Event struct {
	ID   uint64 `json:"-"`
	Type string `json:"type"`
	Data any    `json:"data"`
}

// topic is the part of an event type before the first dot.
func (e Event) topic() string {
	topic, _, _ := strings.Cut(e.Type, ".")
	return topic
}

func (e Event) frame() ([]byte, error) {
	payload, err := json.Marshal(e.Data)
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", e.ID, e.Type, payload)), nil
}

// Option configures a Broker.
type Option func(*Broker)

// WithRefreshInterval sets the minimum spacing of Refresh events.
func WithRefreshInterval(d time.Duration) Option {
	return func(b *Broker) {
		if d > 0 {
			b.refreshMin = d
		}
	}
}

// WithHistory keeps the last n events for clients that reconnect with
// Last-Event-ID.
func WithHistory(n int) Option {
	return func(b *Broker) {
		if n >= 0 {
			b.historyLen = n
		}
	}
}

// WithHeartbeat sets how often idle streams receive a comment line.
func WithHeartbeat(d time.Duration) Option {
	return func(b *Broker) { b.heartbeat = d }
}

type client struct {
	ch     chan []byte
	topics map[string]bool
}

func (c *client) wants(e Event) bool {
	return len(c.topics) == 0 || c.topics[e.topic()]
}

type subscribeReq struct {
	client *client
	after  uint64
}

// Broker fans journal changes out to connected streams.
//
// One loop goroutine owns the clients, the history ring and the event
// sequence. Public methods only talk to it through channels.
type Broker struct {
	refreshMin time.Duration
	historyLen int
	heartbeat  time.Duration

	subscribeCh   chan subscribeReq
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker starts a broker loop. Close stops it.
func NewBroker(opts ...Option) *Broker {
	b := &Broker{
		refreshMin:    2 * time.Second,
		historyLen:    128,
		heartbeat:     30 * time.Second,
		subscribeCh:   make(chan subscribeReq),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]*client)
	var (
		seq         uint64
		history     []Event
		lastRefresh time.Time
	)

	send := func(c *client, e Event) {
		if !c.wants(e) {
			return
		}
		msg, err := e.frame()
		if err != nil {
			return
		}
		select {
		case c.ch <- msg:
		default:
			// Slow client; it can resync with Last-Event-ID.
		}
	}

	emit := func(e Event) {
		seq++
		e.ID = seq
		if b.historyLen > 0 {
			history = append(history, e)
			if len(history) > b.historyLen {
				history = history[len(history)-b.historyLen:]
			}
		}
		for _, c := range clients {
			send(c, e)
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case req := <-b.subscribeCh:
			clients[req.client.ch] = req.client
			if req.after == 0 {
				continue
			}
			for _, e := range history {
				if e.ID > req.after {
					send(req.client, e)
				}
			}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case e := <-b.publishCh:
			emit(e)
			if !invalidatesLists(e.Type) {
				continue
			}
			if now := time.Now(); now.Sub(lastRefresh) >= b.refreshMin {
				lastRefresh = now
				emit(Event{Type: Refresh, Data: map[string]string{"cause": e.Type}})
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// invalidatesLists reports whether an event of the given type can change
// what a record list or tag group shows.
func invalidatesLists(kind string) bool {
	return strings.HasPrefix(kind, "record.") || strings.HasPrefix(kind, "tag.")
}

// Close stops the loop and closes every client channel.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe registers a client for the given topics (all when empty) and
// replays retained events newer than after.
func (b *Broker) Subscribe(after uint64, topics ...string) chan []byte {
	c := &client{ch: make(chan []byte, 64)}
	if len(topics) > 0 {
		c.topics = make(map[string]bool, len(topics))
		for _, t := range topics {
			c.topics[t] = true
		}
	}
	if b.closed.Load() {
		close(c.ch)
		return c.ch
	}

	select {
	case b.subscribeCh <- subscribeReq{client: c, after: after}:
	case <-b.stopped:
		close(c.ch)
	}
	return c.ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// PublishChange broadcasts a journal change. Record and tag changes are
// followed by a throttled Refresh.
func (b *Broker) PublishChange(kind string, data any) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- Event{Type: kind, Data: data}:
	case <-b.stopped:
	}
}

// ServeHTTP streams events to one client (GET /events). The optional
// topics parameter is a comma separated list such as "record,award".
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	after, _ := strconv.ParseUint(r.Header.Get("Last-Event-ID"), 10, 64)
	var topics []string
	for _, t := range strings.Split(r.URL.Query().Get("topics"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			topics = append(topics, t)
		}
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe(after, topics...)
	defer b.Unsubscribe(ch)

	var beat <-chan time.Time
	if b.heartbeat > 0 {
		ticker := time.NewTicker(b.heartbeat)
		defer ticker.Stop()
		beat = ticker.C
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-beat:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
