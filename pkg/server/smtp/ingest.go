// Package smtp accepts inbound mail and feeds it to the message store.  The
// protocol engine itself is emersion/go-smtp; this package supplies the
// accept predicate and the deliver callback it drives.
package smtp

import (
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/smtpsink/smtpsink/pkg/message"
	"github.com/smtpsink/smtpsink/pkg/storage"
)

// Ingester turns raw message payloads handed over by the protocol engine
// into stored records.
type Ingester struct {
	store storage.Store
}

// NewIngester returns an Ingester backed by the given store.
func NewIngester(store storage.Store) *Ingester {
	return &Ingester{store: store}
}

// Accept is the sender/recipient predicate; capture never filters.
func (in *Ingester) Accept(from, recipient string) bool {
	return true
}

// Deliver decomposes the payload and stores the result.  A malformed
// message is logged and dropped; it never appears in the store or to
// observers, and ingestion continues for subsequent messages.
func (in *Ingester) Deliver(from, recipient string, raw []byte) {
	msg, err := message.Decompose(raw)
	if err != nil {
		if errors.Is(err, message.ErrMalformed) {
			log.Warn().Str("module", "smtp").Str("from", from).Err(err).
				Msg("Dropping unparseable message")
			return
		}
		log.Error().Str("module", "smtp").Str("from", from).Err(err).
			Msg("Failed to process incoming message")
		return
	}
	in.store.Add(msg)
	log.Info().Str("module", "smtp").Str("id", msg.ID).Str("from", msg.From).
		Str("subject", msg.Subject).Msg("Captured message")
}
