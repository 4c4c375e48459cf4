// Package mem implements an in-memory message store.  Contents are lost on
// restart by design.
package mem

import (
	"sync"

	"github.com/smtpsink/smtpsink/pkg/message"
	"github.com/smtpsink/smtpsink/pkg/storage"
)

// Store holds captured messages in insertion order plus an ID index.  Reads
// take only the read lock so the query surface never waits on ingestion for
// long.
type Store struct {
	sync.RWMutex
	messages []*message.StoredMessage // insertion order, oldest first
	index    map[string]*message.StoredMessage
	listener storage.Listener
}

var _ storage.Store = &Store{}

// New returns an empty store.  The listener may be nil; when present it is
// invoked synchronously after each Add, outside the store lock.
func New(listener storage.Listener) *Store {
	return &Store{
		messages: make([]*message.StoredMessage, 0),
		index:    make(map[string]*message.StoredMessage),
		listener: listener,
	}
}

// Add stores the message as the most recently received and notifies the
// listener once the message is visible to concurrent readers.
func (s *Store) Add(msg *message.StoredMessage) *message.StoredMessage {
	s.Lock()
	s.messages = append(s.messages, msg)
	s.index[msg.ID] = msg
	s.Unlock()
	if s.listener != nil {
		s.listener.MessageAdded(msg)
	}
	return msg
}

// All returns a snapshot slice of stored messages, newest first.  Mutating
// the returned slice does not affect the store.
func (s *Store) All() []*message.StoredMessage {
	s.RLock()
	defer s.RUnlock()
	n := len(s.messages)
	out := make([]*message.StoredMessage, n)
	for i, m := range s.messages {
		out[n-1-i] = m
	}
	return out
}

// Get returns the message with the given ID, or nil.
func (s *Store) Get(id string) *message.StoredMessage {
	s.RLock()
	defer s.RUnlock()
	return s.index[id]
}

// Attachment looks up the owning message, then scans its attachments.
func (s *Store) Attachment(messageID, attachmentID string) *message.Attachment {
	msg := s.Get(messageID)
	if msg == nil {
		return nil
	}
	for _, att := range msg.Attachments {
		if att.ID == attachmentID {
			return att
		}
	}
	return nil
}

// Remove deletes the identified message if present.
func (s *Store) Remove(id string) {
	s.Lock()
	defer s.Unlock()
	if _, ok := s.index[id]; !ok {
		return
	}
	delete(s.index, id)
	for i, m := range s.messages {
		if m.ID == id {
			s.messages = append(s.messages[:i], s.messages[i+1:]...)
			break
		}
	}
}

// Clear removes all messages.
func (s *Store) Clear() {
	s.Lock()
	defer s.Unlock()
	s.messages = s.messages[:0]
	s.index = make(map[string]*message.StoredMessage)
}
