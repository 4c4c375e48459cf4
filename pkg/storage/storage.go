// Package storage defines the contract between the message store and the
// components that read from it or react to it.
package storage

import (
	"github.com/smtpsink/smtpsink/pkg/message"
)

// Listener is notified after each message becomes visible in the store.  The
// notification is synchronous with the Add call, so a listener may re-query
// the store and find the record immediately.
type Listener interface {
	MessageAdded(msg *message.StoredMessage)
}

// Store is an ordered repository of captured messages.  Lookups that find
// nothing return nil; that is a normal outcome, not an error.
type Store interface {
	// Add stores a message as the most recently received.
	Add(msg *message.StoredMessage) *message.StoredMessage

	// All returns a snapshot of the stored messages, newest first.
	All() []*message.StoredMessage

	// Get returns the message with the given ID, or nil.
	Get(id string) *message.StoredMessage

	// Attachment returns an attachment by owning message ID and attachment
	// ID, or nil when either does not match.
	Attachment(messageID, attachmentID string) *message.Attachment

	// Remove deletes the identified message; unknown IDs are a no-op.
	Remove(id string)

	// Clear removes all messages.
	Clear()
}
