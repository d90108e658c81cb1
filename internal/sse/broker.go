// Package sse streams record change events to browsers over Server-Sent Events.
package sse

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// ListChanged is the event telling clients to refetch the record list.
const ListChanged = "records.changed"

const (
	clientBuffer     = 64
	defaultThrottle  = 2 * time.Second
	defaultHeartbeat = 15 * time.Second
	// retryMillis is the reconnect delay suggested to EventSource clients.
	retryMillis = 3000
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Option configures a Broker.
type Option func(*Broker)

// WithHeartbeat sets how often an idle stream gets a keep-alive comment.
func WithHeartbeat(d time.Duration) Option {
	return func(b *Broker) {
		if d > 0 {
			b.heartbeat = d
		}
	}
}

// hub is the state owned by the broker goroutine.
type hub struct {
	clients  map[chan []byte]struct{}
	seq      uint64
	throttle time.Duration
	lastList time.Time
	// pending fires at the end of a throttle window that saw a change.
	pending <-chan time.Time
}

// Broker fans record events out to connected streams.
//
// Every operation is a closure run by a single goroutine, so the hub needs no
// locking. records.changed is sent on the first change and at most once more
// per throttle window.
type Broker struct {
	heartbeat time.Duration

	ops       chan func(*hub)
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

// NewBroker starts a broker that sends at most one records.changed event per
// listThrottle, plus a trailing one for changes that arrived inside a window.
func NewBroker(listThrottle time.Duration, opts ...Option) *Broker {
	if listThrottle <= 0 {
		listThrottle = defaultThrottle
	}
	b := &Broker{
		heartbeat: defaultHeartbeat,
		ops:       make(chan func(*hub), 256),
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	h := &hub{clients: make(map[chan []byte]struct{}), throttle: listThrottle}
	go b.loop(h)
	return b
}

func (b *Broker) loop(h *hub) {
	defer close(b.stopped)
	for {
		select {
		case <-b.done:
			for ch := range h.clients {
				close(ch)
			}
			return
		case op := <-b.ops:
			op(h)
		case now := <-h.pending:
			h.listChanged(now)
		}
	}
}

// do hands op to the broker goroutine. It reports false once the broker is closed.
func (b *Broker) do(op func(*hub)) bool {
	select {
	case <-b.done:
		return false
	default:
	}
	select {
	case b.ops <- op:
		return true
	case <-b.done:
		return false
	}
}

// call runs op on the broker goroutine and waits for it to finish.
func (b *Broker) call(op func(*hub)) bool {
	ran := make(chan struct{})
	if !b.do(func(h *hub) { op(h); close(ran) }) {
		return false
	}
	select {
	case <-ran:
		return true
	case <-b.stopped:
		// op may have run just before the loop exited
		select {
		case <-ran:
			return true
		default:
			return false
		}
	}
}

func (h *hub) send(e Event) {
	h.seq++
	msg, err := encode(h.seq, e)
	if err != nil {
		return
	}
	for ch := range h.clients {
		select {
		case ch <- msg:
		default:
			// the client is behind; it catches up on the next records.changed
		}
	}
}

func (h *hub) listChanged(now time.Time) {
	h.lastList = now
	h.pending = nil
	h.send(Event{Type: ListChanged, Data: map[string]string{}})
}

func (h *hub) recordChanged(kind, name string, now time.Time) {
	switch kind {
	case "created", "updated", "deleted":
	default:
		return
	}
	h.send(Event{Type: "record." + kind, Data: map[string]string{"name": name}})
	if wait := h.throttle - now.Sub(h.lastList); wait <= 0 {
		h.listChanged(now)
	} else if h.pending == nil {
		h.pending = time.After(wait)
	}
}

// encode renders one event frame.
func encode(id uint64, e Event) ([]byte, error) {
	payload, err := json.Marshal(e.Data)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 0, len(payload)+len(e.Type)+32)
	buf = append(buf, "id: "...)
	buf = strconv.AppendUint(buf, id, 10)
	buf = append(buf, "\nevent: "...)
	buf = append(buf, e.Type...)
	buf = append(buf, "\ndata: "...)
	buf = append(buf, payload...)
	buf = append(buf, "\n\n"...)
	return buf, nil
}

// Close stops the broker and closes every subscriber channel.
func (b *Broker) Close() {
	b.closeOnce.Do(func() { close(b.done) })
	<-b.stopped
}

// Subscribe registers a new stream. The channel is closed by Unsubscribe or Close.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, clientBuffer)
	if !b.call(func(h *hub) { h.clients[ch] = struct{}{} }) {
		close(ch)
	}
	return ch
}

// Unsubscribe removes a stream and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	b.call(func(h *hub) {
		if _, ok := h.clients[ch]; ok {
			delete(h.clients, ch)
			close(ch)
		}
	})
}

// ClientCount returns the number of connected streams.
func (b *Broker) ClientCount() int {
	n := 0
	b.call(func(h *hub) { n = len(h.clients) })
	return n
}

// Publish sends an event to every stream.
func (b *Broker) Publish(e Event) {
	b.do(func(h *hub) { h.send(e) })
}

// PublishRecordEvent publishes record.<kind> for name, followed by a throttled
// records.changed. kind is one of created, updated or deleted; anything else
// is ignored.
func (b *Broker) PublishRecordEvent(kind, name string) {
	now := time.Now()
	b.do(func(h *hub) { h.recordChanged(kind, name, now) })
}

// ServeHTTP is the SSE endpoint handler (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("retry: " + strconv.Itoa(retryMillis) + "\n\n"))
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ticker := time.NewTicker(b.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
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
