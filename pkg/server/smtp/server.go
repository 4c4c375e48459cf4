package smtp

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/rs/zerolog/log"

	"github.com/smtpsink/smtpsink/pkg/config"
)

// Server wraps the go-smtp server with our backend and lifecycle handling.
type Server struct {
	server *smtp.Server
}

// NewServer configures the protocol engine for the given config.
func NewServer(cfg config.SMTP, ingester *Ingester) *Server {
	s := smtp.NewServer(&backend{ingester: ingester})
	s.Addr = cfg.Addr
	s.Domain = cfg.Domain
	s.MaxMessageBytes = cfg.MaxMessageBytes
	s.MaxRecipients = cfg.MaxRecipients
	s.ReadTimeout = 300 * time.Second
	s.WriteTimeout = 300 * time.Second
	if cfg.Debug {
		s.Debug = os.Stdout
	}
	return &Server{server: s}
}

// Start listens for SMTP connections until the context is canceled.
func (s *Server) Start(ctx context.Context) {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			log.Error().Str("module", "smtp").Err(err).Msg("SMTP shutdown failed")
		}
	}()
	log.Info().Str("module", "smtp").Str("addr", s.server.Addr).Msg("SMTP listening")
	if err := s.server.ListenAndServe(); err != nil && ctx.Err() == nil {
		log.Error().Str("module", "smtp").Err(err).Msg("SMTP server failed")
	}
}

// backend hands each connection a fresh capture session.
type backend struct {
	ingester *Ingester
}

func (b *backend) NewSession(c *smtp.Conn) (smtp.Session, error) {
	return &session{ingester: b.ingester}, nil
}

// session spools one transaction's envelope and payload.  The payload is
// delivered once per accepted recipient, so each stored record reflects one
// recipient of the transfer.
type session struct {
	ingester   *Ingester
	from       string
	recipients []string
}

func (s *session) Mail(from string, opts *smtp.MailOptions) error {
	s.from = from
	return nil
}

func (s *session) Rcpt(to string, opts *smtp.RcptOptions) error {
	if !s.ingester.Accept(s.from, to) {
		return &smtp.SMTPError{
			Code:         550,
			EnhancedCode: smtp.EnhancedCode{5, 1, 1},
			Message:      "Recipient not accepted",
		}
	}
	s.recipients = append(s.recipients, to)
	return nil
}

func (s *session) Data(r io.Reader) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	for _, recipient := range s.recipients {
		s.ingester.Deliver(s.from, recipient, raw)
	}
	return nil
}

func (s *session) Reset() {
	s.from = ""
	s.recipients = nil
}

func (s *session) Logout() error {
	return nil
}
