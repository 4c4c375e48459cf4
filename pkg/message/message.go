// Package message defines the captured message model and the decomposition
// engine that builds it from raw SMTP payloads.
package message

import (
	"time"
)

// StoredMessage is one captured email.  It is created once by Decompose and
// immutable afterwards.  The struct doubles as the wire representation for
// the REST API and the monitor WebSocket; attachment payloads are excluded
// from JSON and fetched through the attachment download endpoint instead.
type StoredMessage struct {
	ID          string        `json:"id"`
	From        string        `json:"from,omitempty"`
	To          []string      `json:"to"`
	Cc          []string      `json:"cc"`
	Bcc         []string      `json:"bcc"`
	Subject     string        `json:"subject"`
	Body        string        `json:"body"`
	ReceivedAt  time.Time     `json:"receivedAt"`
	RawMessage  string        `json:"rawMessage"`
	Attachments []*Attachment `json:"attachments"`
}

// Attachment is one non-body part of a captured message.  Attachments are
// owned by their parent StoredMessage and have no independent lifetime.
type Attachment struct {
	ID          string `json:"id"`
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
	Data        []byte `json:"-"`
}
