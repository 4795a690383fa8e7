// Package streaming fans encounter snapshots out to subscribed viewers.
package streaming

import (
	"bytes"
	"encoding/json"
	"sync"
	"time"

	"github.com/critfumble/encounter-api/internal/entities"
	"github.com/critfumble/encounter-api/internal/pkg/clock"
)

// Event types carried inside each payload's "type" field
const (
	EventConnection      = "connection"
	EventEncounterUpdate = "encounter_update"
	EventHeartbeat       = "heartbeat"
	EventError           = "error"
)

const (
	defaultHeartbeatInterval = 30 * time.Second
	defaultBufferSize        = 16
)

// errorPayload is the fixed degradation payload for serialization failures
var errorPayload = []byte(`{"type":"error"}`)

// Config holds the dependencies and tuning for a Broadcaster
type Config struct {
	// HeartbeatInterval is the cadence of keep-alive events per subscriber
	HeartbeatInterval time.Duration
	// BufferSize bounds each subscriber's outbound queue; a full queue drops
	// events for that subscriber instead of stalling the publisher
	BufferSize int
	Clock      clock.Clock
}

// Broadcaster maintains one push channel per subscribed viewer per encounter.
// Publish is fire-and-forget: a slow or gone subscriber never blocks the
// mutation path.
type Broadcaster struct {
	mu   sync.RWMutex
	subs map[string]map[*Subscription]struct{}

	heartbeat time.Duration
	buffer    int
	clock     clock.Clock
}

// New creates a Broadcaster
func New(cfg *Config) *Broadcaster {
	if cfg == nil {
		cfg = &Config{}
	}
	hb := cfg.HeartbeatInterval
	if hb <= 0 {
		hb = defaultHeartbeatInterval
	}
	buf := cfg.BufferSize
	if buf <= 0 {
		buf = defaultBufferSize
	}
	c := cfg.Clock
	if c == nil {
		c = clock.New()
	}

	return &Broadcaster{
		subs:      make(map[string]map[*Subscription]struct{}),
		heartbeat: hb,
		buffer:    buf,
		clock:     c,
	}
}

// Subscription is one viewer's connection to an encounter's event stream.
// It owns its heartbeat timer; Close cancels the timer, deregisters the
// subscription, and is safe to call more than once.
type Subscription struct {
	encounterID string
	ch          chan []byte
	done        chan struct{}
	closeOnce   sync.Once
	broadcaster *Broadcaster
}

// Subscribe registers a viewer for an encounter's events. The returned
// subscription has a connection event already queued and a running heartbeat.
func (b *Broadcaster) Subscribe(encounterID string) *Subscription {
	sub := &Subscription{
		encounterID: encounterID,
		ch:          make(chan []byte, b.buffer),
		done:        make(chan struct{}),
		broadcaster: b,
	}

	b.mu.Lock()
	set, ok := b.subs[encounterID]
	if !ok {
		set = make(map[*Subscription]struct{})
		b.subs[encounterID] = set
	}
	set[sub] = struct{}{}
	b.mu.Unlock()

	sub.push(encode(connectionEvent{
		Type:        EventConnection,
		EncounterID: encounterID,
		Timestamp:   b.clock.Now().UTC(),
	}))

	go sub.heartbeatLoop(b.heartbeat)

	return sub
}

// Publish delivers a fresh encounter snapshot to every subscriber of that
// encounter. Non-blocking; subscribers with full buffers miss this event.
func (b *Broadcaster) Publish(encounterID string, enc *entities.Encounter) {
	payload := encode(updateEvent{
		Type:      EventEncounterUpdate,
		Encounter: enc,
	})

	b.mu.RLock()
	targets := make([]*Subscription, 0, len(b.subs[encounterID]))
	for sub := range b.subs[encounterID] {
		targets = append(targets, sub)
	}
	b.mu.RUnlock()

	for _, sub := range targets {
		sub.push(payload)
	}
}

// SubscriberCount reports the number of live subscriptions for an encounter
func (b *Broadcaster) SubscriberCount(encounterID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[encounterID])
}

func (b *Broadcaster) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	set, ok := b.subs[sub.encounterID]
	if !ok {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(b.subs, sub.encounterID)
	}
}

// Deliver queues an encounter snapshot for this subscriber only. Used for the
// initial snapshot right after subscribing.
func (s *Subscription) Deliver(enc *entities.Encounter) {
	s.push(encode(updateEvent{
		Type:      EventEncounterUpdate,
		Encounter: enc,
	}))
}

// Events returns the subscriber's outbound queue. Each element is one
// sanitized JSON payload, never containing a literal newline.
func (s *Subscription) Events() <-chan []byte {
	return s.ch
}

// Done is closed when the subscription has been closed
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Close cancels the heartbeat timer and removes the subscriber from the
// fan-out set. Idempotent; every transport exit path must reach it.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.broadcaster.remove(s)
	})
}

func (s *Subscription) push(payload []byte) {
	select {
	case <-s.done:
		return
	default:
	}

	select {
	case s.ch <- payload:
	default:
		// Buffer full; drop for this subscriber rather than block.
	}
}

// heartbeatLoop owns the subscription's timer. The ticker stops when the
// loop exits, which happens exactly when Close runs.
func (s *Subscription) heartbeatLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.push(encode(heartbeatEvent{
				Type:      EventHeartbeat,
				Timestamp: s.broadcaster.clock.Now().UTC(),
			}))
		}
	}
}

type connectionEvent struct {
	Type        string    `json:"type"`
	EncounterID string    `json:"encounterId"`
	Timestamp   time.Time `json:"timestamp"`
}

type updateEvent struct {
	Type      string              `json:"type"`
	Encounter *entities.Encounter `json:"encounter"`
}

type heartbeatEvent struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// encode serializes an event payload to a single sanitized line. Markup
// characters are escaped, embedded newlines become \n escapes, and a marshal
// failure degrades to the fixed error payload instead of killing the stream.
func encode(v any) []byte {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(true)
	if err := enc.Encode(v); err != nil {
		return errorPayload
	}

	line := bytes.TrimRight(buf.Bytes(), "\n")
	// Encoded JSON strings cannot contain raw newlines, but the framing must
	// never emit one regardless.
	line = bytes.ReplaceAll(line, []byte("\n"), nil)
	return line
}
