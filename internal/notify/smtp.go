package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"

	"emailscore/internal/platform/config"
)

const defaultDialTimeout = 10 * time.Second

// SMTPSender relays messages through a submission server. PLAIN auth is
// used when a username is configured.
type SMTPSender struct {
	addr        string
	from        string
	auth        sasl.Client
	hostname    string
	dialTimeout time.Duration
	logger      *slog.Logger
}

type SMTPOption func(*SMTPSender)

func WithHostname(name string) SMTPOption {
	return func(s *SMTPSender) {
		if name != "" {
			s.hostname = name
		}
	}
}

func WithDialTimeout(d time.Duration) SMTPOption {
	return func(s *SMTPSender) {
		if d > 0 {
			s.dialTimeout = d
		}
	}
}

func WithSMTPLogger(logger *slog.Logger) SMTPOption {
	return func(s *SMTPSender) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewSMTPSender(cfg config.SMTP, opts ...SMTPOption) (*SMTPSender, error) {
	if cfg.Addr == "" {
		return nil, errors.New("smtp address is required")
	}
	if cfg.From == "" {
		return nil, errors.New("smtp from address is required")
	}
	s := &SMTPSender{
		addr:        cfg.Addr,
		from:        cfg.From,
		hostname:    "localhost",
		dialTimeout: defaultDialTimeout,
		logger:      slog.Default(),
	}
	if cfg.Username != "" {
		s.auth = sasl.NewPlainClient("", cfg.Username, cfg.Password)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Send runs one SMTP transaction. The connection deadline follows ctx.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return errors.New("notification recipient is required")
	}

	dialer := &net.Dialer{Timeout: s.dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("connect to smtp relay: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			_ = conn.Close()
			return fmt.Errorf("set smtp deadline: %w", err)
		}
	}

	c := smtp.NewClient(conn)
	defer c.Close()

	if err := c.Hello(s.hostname); err != nil {
		return fmt.Errorf("EHLO failed: %w", err)
	}
	if s.auth != nil {
		if err := c.Auth(s.auth); err != nil {
			return fmt.Errorf("smtp auth failed: %w", err)
		}
	}
	if err := c.Mail(s.from, nil); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}
	if err := c.Rcpt(msg.To, nil); err != nil {
		return fmt.Errorf("RCPT TO failed: %w", err)
	}

	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA command failed: %w", err)
	}
	if _, err := wc.Write(s.compose(msg, time.Now())); err != nil {
		_ = wc.Close()
		return fmt.Errorf("write message: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("close message: %w", err)
	}

	if err := c.Quit(); err != nil {
		s.logger.WarnContext(ctx, "smtp QUIT failed", "error", err)
	}
	return nil
}

func (s *SMTPSender) compose(msg Message, now time.Time) []byte {
	var b strings.Builder
	b.WriteString("From: " + s.from + "\r\n")
	b.WriteString("To: " + msg.To + "\r\n")
	b.WriteString("Subject: " + msg.Subject + "\r\n")
	b.WriteString("Date: " + now.UTC().Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	b.WriteString("\r\n")
	return []byte(b.String())
}
