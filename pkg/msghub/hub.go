// Package msghub fans captured message notifications out to live observers.
package msghub

import (
	"container/ring"
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/smtpsink/smtpsink/pkg/message"
)

// Length of the hub operation queue.
const opChanLen = 100

// Listener receives serialized message payloads, the contents of the history
// buffer first, followed by new messages.  Receive must not block; a
// listener that cannot accept a payload returns an error and is removed.
type Listener interface {
	Receive(payload []byte) error
}

// Hub relays newly captured messages to its listeners.  All state is owned
// by a single goroutine consuming opChan, so every listener observes
// notifications in insertion order without external locking.
type Hub struct {
	// history buffer, points next payload to write.  Preceding non-nil entry is oldest.
	history   *ring.Ring
	listeners map[Listener]struct{}
	opChan    chan func(h *Hub)
}

// New constructs a Hub which will cache historyLen payloads in memory for
// playback to future listeners.
func New(historyLen int) *Hub {
	return &Hub{
		history:   ring.New(historyLen),
		listeners: make(map[Listener]struct{}),
		opChan:    make(chan func(h *Hub), opChanLen),
	}
}

// Start runs the Hub processing loop until the context is canceled.
func (hub *Hub) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(hub.opChan)
			return
		case op := <-hub.opChan:
			op(hub)
		}
	}
}

// MessageAdded implements the store's record-added listener by queueing the
// message for broadcast.
func (hub *Hub) MessageAdded(msg *message.StoredMessage) {
	hub.Dispatch(msg)
}

// Dispatch queues a message for broadcast.  The message is serialized once,
// placed into the history buffer, and relayed to all registered listeners.
// A message that cannot be serialized is logged and skipped; a listener that
// fails to receive is removed.
func (hub *Hub) Dispatch(msg *message.StoredMessage) {
	hub.opChan <- func(h *Hub) {
		payload, err := json.Marshal(msg)
		if err != nil {
			log.Error().Str("module", "msghub").Str("id", msg.ID).Err(err).
				Msg("Failed to serialize message for broadcast")
			return
		}
		if h.history != nil {
			h.history.Value = payload
			h.history = h.history.Next()
		}
		for l := range h.listeners {
			if err := l.Receive(payload); err != nil {
				delete(h.listeners, l)
			}
		}
	}
}

// AddListener registers a listener to receive broadcasts, replaying the
// history buffer to it first.
func (hub *Hub) AddListener(l Listener) {
	hub.opChan <- func(h *Hub) {
		if h.history != nil {
			h.history.Do(func(v interface{}) {
				if v != nil {
					_ = l.Receive(v.([]byte))
				}
			})
		}
		h.listeners[l] = struct{}{}
	}
}

// RemoveListener deletes a listener registration, it will cease to receive
// messages.
func (hub *Hub) RemoveListener(l Listener) {
	hub.opChan <- func(h *Hub) {
		delete(h.listeners, l)
	}
}

// Sync blocks until the hub has processed its queue up to this point, useful
// for unit tests.
func (hub *Hub) Sync() {
	done := make(chan struct{})
	hub.opChan <- func(h *Hub) {
		close(done)
	}
	<-done
}
