package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emailscore/pkg/domain"
	"emailscore/pkg/platform/sentinel"
)

func TestStore_DeductNeverGoesNegative(t *testing.T) {
	ctx := context.Background()
	s := New()
	ws := domain.WorkspaceID(uuid.New())
	_, err := s.Grant(ctx, ws, 5)
	require.NoError(t, err)

	remaining, err := s.Deduct(ctx, ws, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(0), remaining)

	_, err = s.Deduct(ctx, ws, 1)
	assert.ErrorIs(t, err, sentinel.ErrInsufficient)

	balance, err := s.Balance(ctx, ws)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)
}

func TestStore_UnknownWorkspace(t *testing.T) {
	s := New()
	ws := domain.WorkspaceID(uuid.New())

	_, err := s.Balance(context.Background(), ws)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	_, err = s.Deduct(context.Background(), ws, 1)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

// TestStore_CompetingDeductions verifies two submissions that each need the
// whole balance cannot both succeed.
func TestStore_CompetingDeductions(t *testing.T) {
	ctx := context.Background()
	s := New()
	ws := domain.WorkspaceID(uuid.New())
	_, err := s.Grant(ctx, ws, 10)
	require.NoError(t, err)

	var wg sync.WaitGroup
	var successes, rejections atomic.Int32
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Deduct(ctx, ws, 10); err == nil {
				successes.Add(1)
			} else if err == sentinel.ErrInsufficient {
				rejections.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), successes.Load())
	assert.Equal(t, int32(1), rejections.Load())
}
