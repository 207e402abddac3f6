package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emailscore/internal/platform/config"
)

type captured struct {
	from string
	to   []string
	data string
	user string
}

type captureBackend struct {
	mu       sync.Mutex
	messages []captured
	password string
}

func (b *captureBackend) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &captureSession{backend: b}, nil
}

func (b *captureBackend) received() []captured {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]captured(nil), b.messages...)
}

type captureSession struct {
	backend *captureBackend
	current captured
}

func (s *captureSession) AuthMechanisms() []string {
	return []string{sasl.Plain}
}

func (s *captureSession) Auth(_ string) (sasl.Server, error) {
	return sasl.NewPlainServer(func(_, username, password string) error {
		if password != s.backend.password {
			return errors.New("invalid credentials")
		}
		s.current.user = username
		return nil
	}), nil
}

func (s *captureSession) Mail(from string, _ *smtp.MailOptions) error {
	s.current.from = from
	return nil
}

func (s *captureSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.current.to = append(s.current.to, to)
	return nil
}

func (s *captureSession) Data(r io.Reader) error {
	body, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.current.data = string(body)
	s.backend.mu.Lock()
	s.backend.messages = append(s.backend.messages, s.current)
	s.backend.mu.Unlock()
	return nil
}

func (s *captureSession) Reset() {
	s.current = captured{user: s.current.user}
}

func (s *captureSession) Logout() error { return nil }

func startServer(t *testing.T, backend *captureBackend) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := smtp.NewServer(backend)
	srv.Domain = "localhost"
	srv.AllowInsecureAuth = true
	srv.ReadTimeout = 5 * time.Second
	srv.WriteTimeout = 5 * time.Second
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = srv.Close() })
	return ln.Addr().String()
}

func TestSMTPSender_Send(t *testing.T) {
	backend := &captureBackend{}
	addr := startServer(t, backend)

	sender, err := NewSMTPSender(config.SMTP{Addr: addr, From: "no-reply@emailscore.test"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = sender.Send(ctx, Message{
		To:      "owner@acme.test",
		Subject: "List verified",
		Body:    "deliverable: 1\nundeliverable: 2",
	})
	require.NoError(t, err)

	msgs := backend.received()
	require.Len(t, msgs, 1)
	assert.Equal(t, "no-reply@emailscore.test", msgs[0].from)
	assert.Equal(t, []string{"owner@acme.test"}, msgs[0].to)
	assert.Contains(t, msgs[0].data, "Subject: List verified\r\n")
	assert.Contains(t, msgs[0].data, "deliverable: 1\r\nundeliverable: 2")
}

func TestSMTPSender_PlainAuth(t *testing.T) {
	backend := &captureBackend{password: "hunter2"}
	addr := startServer(t, backend)
	ctx := context.Background()

	t.Run("valid credentials", func(t *testing.T) {
		sender, err := NewSMTPSender(config.SMTP{Addr: addr, From: "a@b.test", Username: "relay", Password: "hunter2"})
		require.NoError(t, err)
		require.NoError(t, sender.Send(ctx, Message{To: "x@y.test", Subject: "s", Body: "b"}))

		msgs := backend.received()
		require.Len(t, msgs, 1)
		assert.Equal(t, "relay", msgs[0].user)
	})

	t.Run("wrong password", func(t *testing.T) {
		sender, err := NewSMTPSender(config.SMTP{Addr: addr, From: "a@b.test", Username: "relay", Password: "nope"})
		require.NoError(t, err)
		err = sender.Send(ctx, Message{To: "x@y.test", Subject: "s", Body: "b"})
		require.Error(t, err)
		assert.True(t, strings.Contains(err.Error(), "smtp auth failed"))
	})
}

func TestSMTPSender_Validation(t *testing.T) {
	_, err := NewSMTPSender(config.SMTP{From: "a@b.test"})
	assert.Error(t, err)
	_, err = NewSMTPSender(config.SMTP{Addr: "localhost:25"})
	assert.Error(t, err)

	sender, err := NewSMTPSender(config.SMTP{Addr: "127.0.0.1:1", From: "a@b.test"})
	require.NoError(t, err)
	assert.Error(t, sender.Send(context.Background(), Message{}))
}

func TestSMTPSender_Unreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	sender, err := NewSMTPSender(config.SMTP{Addr: addr, From: "a@b.test"}, WithDialTimeout(time.Second))
	require.NoError(t, err)

	err = sender.Send(context.Background(), Message{To: "x@y.test"})
	assert.ErrorContains(t, err, "connect to smtp relay")
}

func TestLogSender(t *testing.T) {
	var buf strings.Builder
	sender := NewLogSender(slog.New(slog.NewTextHandler(&buf, nil)))

	require.NoError(t, sender.Send(context.Background(), Message{To: "owner@acme.test", Subject: "done"}))
	assert.Contains(t, buf.String(), "to=owner@acme.test")
	assert.Contains(t, buf.String(), "subject=done")
}
