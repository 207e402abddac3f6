//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"emailscore/internal/credits/store/postgres"
	"emailscore/pkg/domain"
	"emailscore/pkg/platform/sentinel"
	"emailscore/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *postgres.Store
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = postgres.New(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "api_keys", "users", "workspaces"))
}

func (s *PostgresStoreSuite) createWorkspace(credits int64) domain.WorkspaceID {
	id := uuid.New()
	_, err := s.postgres.DB.ExecContext(context.Background(),
		`INSERT INTO workspaces (id, name, available_credits) VALUES ($1, $2, $3)`,
		id, "ws-"+id.String()[:8], credits)
	s.Require().NoError(err)
	return domain.WorkspaceID(id)
}

func (s *PostgresStoreSuite) TestDeductAndGrant() {
	ctx := context.Background()
	ws := s.createWorkspace(10)

	remaining, err := s.store.Deduct(ctx, ws, 4)
	s.Require().NoError(err)
	s.Equal(int64(6), remaining)

	balance, err := s.store.Grant(ctx, ws, 10)
	s.Require().NoError(err)
	s.Equal(int64(16), balance)
}

func (s *PostgresStoreSuite) TestDeduct_Insufficient() {
	ctx := context.Background()
	ws := s.createWorkspace(3)

	_, err := s.store.Deduct(ctx, ws, 4)
	s.ErrorIs(err, sentinel.ErrInsufficient)

	balance, err := s.store.Balance(ctx, ws)
	s.Require().NoError(err)
	s.Equal(int64(3), balance)
}

func (s *PostgresStoreSuite) TestDeduct_UnknownWorkspace() {
	_, err := s.store.Deduct(context.Background(), domain.WorkspaceID(uuid.New()), 1)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

// TestConcurrentDeductions verifies the conditional update admits exactly as
// many deductions as the balance covers.
func (s *PostgresStoreSuite) TestConcurrentDeductions() {
	ctx := context.Background()
	ws := s.createWorkspace(10)
	const goroutines = 20

	var wg sync.WaitGroup
	var successes atomic.Int32
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.Deduct(ctx, ws, 1)
			if err == nil {
				successes.Add(1)
				return
			}
			s.True(errors.Is(err, sentinel.ErrInsufficient))
		}()
	}
	wg.Wait()

	s.Equal(int32(10), successes.Load())
	balance, err := s.store.Balance(ctx, ws)
	s.Require().NoError(err)
	s.Equal(int64(0), balance)
}
