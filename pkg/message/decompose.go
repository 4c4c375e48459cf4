package message

import (
	"bytes"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhillyerd/enmime/v2"
)

// ErrMalformed indicates the raw payload could not be parsed as a mail
// document at all.  No partial record is produced in that case.
var ErrMalformed = errors.New("malformed message")

// Decompose converts a raw message payload into a StoredMessage, walking the
// MIME part tree to select a human readable body and collect attachments.
// Failures within individual parts do not abort the decomposition; only a
// document level parse failure returns an error.
func Decompose(raw []byte) (*StoredMessage, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrMalformed)
	}
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	c := &composer{attachments: make([]*Attachment, 0)}
	c.walk(buildTree(env.Root))

	return &StoredMessage{
		ID:          uuid.NewString(),
		From:        firstAddress(env, "From"),
		To:          addressList(env, "To"),
		Cc:          addressList(env, "Cc"),
		Bcc:         addressList(env, "Bcc"),
		Subject:     env.GetHeader("Subject"),
		Body:        c.body,
		ReceivedAt:  time.Now(),
		RawMessage:  string(raw),
		Attachments: c.attachments,
	}, nil
}

// composer accumulates body and attachment state during a depth-first walk
// of one message's part tree.
type composer struct {
	body        string
	plainBody   bool // body came from a non-blank text/plain part
	attachments []*Attachment
}

// walk classifies each leaf of the part tree.  Disposition hints are checked
// first, then named non-text parts, then body candidates in order of
// preference: plain text, HTML, any remaining text value.  Whatever is left
// carrying binary content becomes an attachment.
func (c *composer) walk(p *Part) {
	if p.Composite {
		for _, child := range p.Children {
			c.walk(child)
		}
		return
	}

	plain := p.ContentType == "text/plain" || p.ContentType == ""
	html := p.ContentType == "text/html"
	attach := strings.EqualFold(p.Disposition, "attachment") ||
		(strings.EqualFold(p.Disposition, "inline") && p.FileName != "")
	if attach || (p.FileName != "" && !plain && !html) {
		c.addAttachment(p)
		return
	}

	if plain {
		// The first non-blank plain text part wins permanently; it also
		// displaces a previously selected HTML or fallback body.
		if c.blankBody() || (!c.plainBody && !blank(p.Text)) {
			c.body = p.Text
			c.plainBody = !blank(p.Text)
		}
		return
	}
	if html && c.blankBody() {
		c.body = p.Text
		return
	}
	if !p.Binary && c.blankBody() {
		c.body = p.Text
	} else if p.Binary {
		c.addAttachment(p)
	}
}

func (c *composer) addAttachment(p *Part) {
	name := p.FileName
	if name == "" {
		name = fmt.Sprintf("attachment-%d", len(c.attachments)+1)
	}
	data := p.Data
	if !p.Binary {
		data = []byte(p.Text)
	}
	if data == nil {
		data = []byte{}
	}
	c.attachments = append(c.attachments, &Attachment{
		ID:          uuid.NewString(),
		FileName:    name,
		ContentType: p.Declared,
		Size:        int64(len(data)),
		Data:        data,
	})
}

func (c *composer) blankBody() bool {
	return blank(c.body)
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// firstAddress returns the first address of the named header, or empty when
// the header is absent or unparseable.
func firstAddress(env *enmime.Envelope, key string) string {
	addrs, err := env.AddressList(key)
	if err != nil || len(addrs) == 0 {
		return ""
	}
	return stringAddress(addrs[0])
}

// addressList returns the named address list header split into individual
// address strings in header order.  Absent or unparseable headers yield an
// empty slice, never an error.
func addressList(env *enmime.Envelope, key string) []string {
	addrs, err := env.AddressList(key)
	if err != nil {
		return []string{}
	}
	return stringAddresses(addrs)
}

func stringAddresses(addrs []*mail.Address) []string {
	out := make([]string, len(addrs))
	for i, a := range addrs {
		out[i] = stringAddress(a)
	}
	return out
}

// stringAddress renders a bare address when there is no display name, to
// keep recipient strings free of angle bracket noise.
func stringAddress(a *mail.Address) string {
	if a.Name == "" {
		return a.Address
	}
	return a.String()
}
