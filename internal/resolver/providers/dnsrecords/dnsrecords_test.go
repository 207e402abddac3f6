package dnsrecords

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emailscore/internal/resolver/models"
	"emailscore/internal/resolver/providers"
)

func newProvider(t *testing.T, status int, body string) *Provider {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key-123", r.Header.Get("X-Api-Key"))
		assert.Equal(t, "example.com", r.URL.Query().Get("domain"))
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	return New(srv.URL,
		WithAPIKey("key-123"),
		WithHTTPClient(srv.Client()),
		WithRateLimit(0),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

func TestResolve(t *testing.T) {
	t.Run("ns records decide status", func(t *testing.T) {
		p := newProvider(t, http.StatusOK, `[
			{"record_type":"NS","value":"ns1.cloudflare.com."},
			{"record_type":"MX","value":"backup.example.com.","priority":20},
			{"record_type":"MX","value":"primary.example.com.","priority":5}
		]`)

		info, err := p.Resolve(context.Background(), "example.com")
		require.NoError(t, err)
		assert.Equal(t, models.DomainInfo{Status: models.StatusActive, MXRecord: "primary.example.com"}, info)
	})

	t.Run("a record without ns is active", func(t *testing.T) {
		p := newProvider(t, http.StatusOK, `[{"record_type":"A","value":"1.2.3.4"}]`)

		info, err := p.Resolve(context.Background(), "example.com")
		require.NoError(t, err)
		assert.Equal(t, models.StatusActive, info.Status)
	})

	t.Run("empty answer is inactive", func(t *testing.T) {
		p := newProvider(t, http.StatusOK, `[]`)

		info, err := p.Resolve(context.Background(), "example.com")
		require.NoError(t, err)
		assert.Equal(t, models.DomainInfo{Status: models.StatusInactive}, info)
	})

	t.Run("errors become unknown", func(t *testing.T) {
		p := newProvider(t, http.StatusBadRequest, `{"error":"bad"}`)

		info, err := p.Resolve(context.Background(), "example.com")
		require.NoError(t, err)
		assert.Equal(t, models.Unknown(), info)
	})
}

func TestInterpret_Parked(t *testing.T) {
	info := interpret([]record{
		{RecordType: "ns", Value: "ns1.parkingcrew.net"},
		{RecordType: "A", Value: "1.2.3.4"},
	}, providers.NewParkingDetector(nil))

	assert.Equal(t, models.StatusParked, info.Status)
}

func TestResolve_CanceledWhileRateLimited(t *testing.T) {
	p := New("http://127.0.0.1:0", WithRateLimit(0.001),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	// burn the single token
	_ = p.limiter.Allow()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	info, err := p.Resolve(ctx, "example.com")
	require.NoError(t, err)
	assert.Equal(t, models.Unknown(), info)
}
