package providers

//go:generate mockgen -source=provider.go -destination=mocks/mocks.go -package=mocks Provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emailscore/internal/resolver/models"
)

func TestParkingDetector(t *testing.T) {
	d := NewParkingDetector(nil)

	assert.True(t, d.IsParked([]string{"ns1.example.net", "NS2.SedoParking.com."}))
	assert.False(t, d.IsParked([]string{"ns1.google.com", "ns2.google.com"}))
	assert.False(t, d.IsParked(nil))

	var nilDetector *ParkingDetector
	assert.False(t, nilDetector.IsParked([]string{"ns1.sedoparking.com"}))
}

func TestParkingDetector_CustomList(t *testing.T) {
	d := NewParkingDetector([]string{"parkme.io"})

	assert.True(t, d.IsParked([]string{"a.ns.parkme.io"}))
	assert.False(t, d.IsParked([]string{"ns1.sedoparking.com"}))
}

func TestStatusFromNameservers(t *testing.T) {
	d := NewParkingDetector(nil)

	assert.Equal(t, models.StatusInactive, StatusFromNameservers(nil, d))
	assert.Equal(t, models.StatusParked, StatusFromNameservers([]string{"ns1.bodis.com"}, d))
	assert.Equal(t, models.StatusActive, StatusFromNameservers([]string{"ns1.cloudflare.com"}, d))
}

func TestNormalizeHost(t *testing.T) {
	assert.Equal(t, "mail.example.com", NormalizeHost(" Mail.Example.COM. "))
	assert.Equal(t, "", NormalizeHost("."))
}

func TestGetJSON(t *testing.T) {
	t.Run("decodes 2xx body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "secret", r.Header.Get("X-Key"))
			_, _ = w.Write([]byte(`{"value":"ok"}`))
		}))
		defer srv.Close()

		var out struct{ Value string }
		err := GetJSON(context.Background(), srv.Client(), "test", srv.URL, map[string]string{"X-Key": "secret"}, &out)
		require.NoError(t, err)
		assert.Equal(t, "ok", out.Value)
	})

	cases := []struct {
		status int
		want   ErrorCategory
	}{
		{http.StatusUnauthorized, ErrorAuthentication},
		{http.StatusTooManyRequests, ErrorRateLimited},
		{http.StatusBadGateway, ErrorProviderOutage},
		{http.StatusNotFound, ErrorBadData},
	}
	for _, tc := range cases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
			}))
			defer srv.Close()

			var out map[string]any
			err := GetJSON(context.Background(), srv.Client(), "test", srv.URL, nil, &out)
			require.Error(t, err)
			assert.Equal(t, tc.want, GetCategory(err))
		})
	}

	t.Run("malformed body is bad data", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{not json`))
		}))
		defer srv.Close()

		var out map[string]any
		err := GetJSON(context.Background(), srv.Client(), "test", srv.URL, nil, &out)
		assert.Equal(t, ErrorBadData, GetCategory(err))
	})

	t.Run("canceled context is not held against the provider", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
		defer srv.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		var out map[string]any
		err := GetJSON(ctx, srv.Client(), "test", srv.URL, nil, &out)
		assert.Equal(t, ErrorCanceled, GetCategory(err))
		assert.False(t, CountsAgainstProvider(err))
	})
}

func TestGetCategory_Default(t *testing.T) {
	assert.Equal(t, ErrorInternal, GetCategory(errors.New("plain")))
	assert.False(t, CountsAgainstProvider(nil))
}
