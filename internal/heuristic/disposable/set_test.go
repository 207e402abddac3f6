package disposable

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestSet_LoadsOnceUnderConcurrency(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("# comment\n\nTempMail.com\n mailinator.com \n"))
	}))
	defer srv.Close()

	set := New(WithURL(srv.URL), WithLogger(quietLogger()))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.True(t, set.Contains(context.Background(), "tempmail.com"))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), hits.Load())
	assert.True(t, set.Contains(context.Background(), "MAILINATOR.com"))
	assert.False(t, set.Contains(context.Background(), "gmail.com"))
	assert.Equal(t, 2, set.Len(context.Background()))
	require.NoError(t, set.Err())
}

func TestSet_FailsOpenAndDoesNotRetry(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	set := New(WithURL(srv.URL), WithLogger(quietLogger()))

	assert.False(t, set.Contains(context.Background(), "tempmail.com"))
	assert.False(t, set.Contains(context.Background(), "tempmail.com"))
	assert.Equal(t, 0, set.Len(context.Background()))
	assert.Error(t, set.Err())
	assert.Equal(t, int32(1), hits.Load())
}

func TestSet_SeedSurvivesFetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	set := New(WithURL(srv.URL), WithSeed("yopmail.com"), WithLogger(quietLogger()))
	assert.True(t, set.Contains(context.Background(), "yopmail.com"))
}

func TestSet_CancelledCallerDoesNotPoisonLoad(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("tempmail.com\n"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	set := New(WithURL(srv.URL), WithLogger(quietLogger()))
	assert.True(t, set.Contains(ctx, "tempmail.com"))
}

func TestNewStatic(t *testing.T) {
	set := NewStatic("tempmail.com", "Guerrillamail.com.")
	assert.True(t, set.Contains(context.Background(), "guerrillamail.com"))
	assert.Equal(t, 2, set.Len(context.Background()))
}
