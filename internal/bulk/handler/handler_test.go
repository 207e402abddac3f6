package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"emailscore/internal/bulk/models"
	"emailscore/internal/bulk/service"
	"emailscore/internal/bulk/store/memory"
	creditsvc "emailscore/internal/credits/service"
	creditmem "emailscore/internal/credits/store/memory"
	scoring "emailscore/internal/scoring/models"
	"emailscore/pkg/domain"
	dErrors "emailscore/pkg/domain-errors"
	"emailscore/pkg/testutil"
)

var fixedTime = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

type recordingDispatcher struct {
	mu    sync.Mutex
	tasks []models.Task
}

func (d *recordingDispatcher) Name() string { return "test" }

func (d *recordingDispatcher) Dispatch(_ context.Context, task models.Task) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tasks = append(d.tasks, task)
	return nil
}

type HandlerSuite struct {
	suite.Suite
	router     chi.Router
	store      *memory.Store
	credits    *creditsvc.Service
	dispatcher *recordingDispatcher
	workspace  domain.WorkspaceID
	user       domain.UserID
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	credits, err := creditsvc.New(creditmem.New(), creditsvc.WithLogger(logger))
	s.Require().NoError(err)
	s.credits = credits
	s.store = memory.New()
	s.dispatcher = &recordingDispatcher{}

	svc, err := service.New(s.store, credits, s.dispatcher, service.WithLogger(logger))
	s.Require().NoError(err)

	s.workspace = domain.WorkspaceID(uuid.New())
	s.user = domain.UserID(uuid.New())

	s.router = chi.NewRouter()
	s.router.Route("/v1", New(svc, logger).Register)
}

func (s *HandlerSuite) authed(req *http.Request) *http.Request {
	return testutil.WithWorkspace(req, s.workspace, s.user)
}

func (s *HandlerSuite) submitBody(n int) map[string]any {
	data := make([]map[string]any, 0, n)
	for i := range n {
		data = append(data, map[string]any{"Email": "user" + strconv.Itoa(i) + "@example.com"})
	}
	return map[string]any{"data": data, "emailColumn": "Email"}
}

// =============================================================================
// Submit
// =============================================================================

func (s *HandlerSuite) TestSubmit() {
	testutil.Given(s.T(), "a workspace with 10 credits", func(t *testing.T) {
		_, err := s.credits.Grant(context.Background(), s.workspace, 10)
		require.NoError(t, err)

		testutil.When(t, "a three row list is submitted", func(t *testing.T) {
			req := s.authed(testutil.NewJSONRequest(t, http.MethodPost, "/v1/lists", s.submitBody(3)))
			rr := testutil.DoRequest(s.router, req)

			testutil.Then(t, "the list is accepted and dispatched", func(t *testing.T) {
				testutil.AssertStatus(t, rr, http.StatusAccepted)
				resp := testutil.UnmarshalResponse[submitResponse](t, rr)
				assert.False(t, resp.ListID.IsNil())

				require.Len(t, s.dispatcher.tasks, 1)
				assert.Equal(t, resp.ListID, s.dispatcher.tasks[0].ListID)
				assert.Equal(t, s.user, s.dispatcher.tasks[0].UserID)
				assert.Len(t, s.dispatcher.tasks[0].Data, 3)
			})

			testutil.Then(t, "credits are reserved for every row", func(t *testing.T) {
				balance, err := s.credits.Balance(context.Background(), s.workspace)
				require.NoError(t, err)
				assert.EqualValues(t, 7, balance)
			})
		})
	})
}

func (s *HandlerSuite) TestSubmit_Unauthenticated() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/v1/lists", s.submitBody(1))
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, dErrors.CodeUnauthorized)
}

func (s *HandlerSuite) TestSubmit_InsufficientCredits() {
	_, err := s.credits.Grant(context.Background(), s.workspace, 2)
	s.Require().NoError(err)

	req := s.authed(testutil.NewJSONRequest(s.T(), http.MethodPost, "/v1/lists", s.submitBody(3)))
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, dErrors.CodeInsufficientCredits)
	s.Empty(s.dispatcher.tasks)
}

func (s *HandlerSuite) TestSubmit_Validation() {
	s.Run("missing email column", func() {
		body := map[string]any{"data": []map[string]any{{"Email": "a@example.com"}}}
		rr := testutil.DoRequest(s.router, s.authed(testutil.NewJSONRequest(s.T(), http.MethodPost, "/v1/lists", body)))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, dErrors.CodeValidation)
	})

	s.Run("empty data", func() {
		body := map[string]any{"data": []map[string]any{}, "emailColumn": "Email"}
		rr := testutil.DoRequest(s.router, s.authed(testutil.NewJSONRequest(s.T(), http.MethodPost, "/v1/lists", body)))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, dErrors.CodeValidation)
	})

	s.Run("malformed json", func() {
		req := s.authed(testutil.NewRequestWithBody(s.T(), http.MethodPost, "/v1/lists", `{"data":`))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	})
}

// =============================================================================
// Get
// =============================================================================

func (s *HandlerSuite) TestGet() {
	_, err := s.credits.Grant(context.Background(), s.workspace, 5)
	s.Require().NoError(err)
	rr := testutil.DoRequest(s.router, s.authed(testutil.NewJSONRequest(s.T(), http.MethodPost, "/v1/lists", s.submitBody(2))))
	s.Require().Equal(http.StatusAccepted, rr.Code)
	listID := testutil.UnmarshalResponse[submitResponse](s.T(), rr).ListID

	rr = testutil.DoRequest(s.router, s.authed(testutil.NewRequest(s.T(), http.MethodGet, "/v1/lists/"+listID.String())))

	testutil.AssertStatusOK(s.T(), rr)
	resp := testutil.UnmarshalResponse[listResponse](s.T(), rr)
	s.Equal(listID, resp.ListID)
	s.Equal(models.ListStatusProcessing, resp.Status)
	s.Equal(2, resp.Size)
	s.Nil(resp.Summary)
}

func (s *HandlerSuite) TestGet_NotFound() {
	s.Run("unknown list", func() {
		path := "/v1/lists/" + domain.NewListID().String()
		rr := testutil.DoRequest(s.router, s.authed(testutil.NewRequest(s.T(), http.MethodGet, path)))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, dErrors.CodeNotFound)
	})

	s.Run("list owned by another workspace", func() {
		list := s.completedList(domain.WorkspaceID(uuid.New()))
		rr := testutil.DoRequest(s.router, s.authed(testutil.NewRequest(s.T(), http.MethodGet, "/v1/lists/"+list.ID.String())))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, dErrors.CodeNotFound)
	})
}

func (s *HandlerSuite) TestGet_BadID() {
	rr := testutil.DoRequest(s.router, s.authed(testutil.NewRequest(s.T(), http.MethodGet, "/v1/lists/not-a-uuid")))

	testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
}

// =============================================================================
// Records
// =============================================================================

func (s *HandlerSuite) TestRecords_Paging() {
	testutil.Given(s.T(), "a completed list with five records", func(t *testing.T) {
		list := s.completedList(s.workspace)

		testutil.When(t, "the second page of two is requested", func(t *testing.T) {
			path := "/v1/lists/" + list.ID.String() + "/records?limit=2&offset=2"
			rr := testutil.DoRequest(s.router, s.authed(testutil.NewRequest(t, http.MethodGet, path)))

			testutil.Then(t, "records three and four are returned in order", func(t *testing.T) {
				testutil.AssertStatusOK(t, rr)
				resp := testutil.UnmarshalResponse[recordsResponse](t, rr)
				assert.Equal(t, 2, resp.Limit)
				assert.Equal(t, 2, resp.Offset)
				require.Len(t, resp.Records, 2)
				assert.Equal(t, "user2@example.com", resp.Records[0].Email)
				assert.Equal(t, "user3@example.com", resp.Records[1].Email)
				assert.Equal(t, "2", resp.Records[0].CustomFields["row"])
			})
		})
	})
}

func (s *HandlerSuite) TestRecords_DefaultsAndCaps() {
	list := s.completedList(s.workspace)

	s.Run("no limit uses the default page", func() {
		rr := testutil.DoRequest(s.router, s.authed(testutil.NewRequest(s.T(), http.MethodGet, "/v1/lists/"+list.ID.String()+"/records")))
		testutil.AssertStatusOK(s.T(), rr)
		resp := testutil.UnmarshalResponse[recordsResponse](s.T(), rr)
		s.Equal(service.DefaultPageSize, resp.Limit)
		s.Len(resp.Records, 5)
	})

	s.Run("oversized limit is capped", func() {
		path := "/v1/lists/" + list.ID.String() + "/records?limit=999999"
		rr := testutil.DoRequest(s.router, s.authed(testutil.NewRequest(s.T(), http.MethodGet, path)))
		testutil.AssertStatusOK(s.T(), rr)
		s.Equal(service.MaxPageSize, testutil.UnmarshalResponse[recordsResponse](s.T(), rr).Limit)
	})

	s.Run("offset past the end is empty", func() {
		path := "/v1/lists/" + list.ID.String() + "/records?offset=50"
		rr := testutil.DoRequest(s.router, s.authed(testutil.NewRequest(s.T(), http.MethodGet, path)))
		testutil.AssertStatusOK(s.T(), rr)
		s.Empty(testutil.UnmarshalResponse[recordsResponse](s.T(), rr).Records)
	})

	s.Run("negative offset is rejected", func() {
		path := "/v1/lists/" + list.ID.String() + "/records?offset=-1"
		rr := testutil.DoRequest(s.router, s.authed(testutil.NewRequest(s.T(), http.MethodGet, path)))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, dErrors.CodeValidation)
	})

	s.Run("non-numeric limit is rejected", func() {
		path := "/v1/lists/" + list.ID.String() + "/records?limit=ten"
		rr := testutil.DoRequest(s.router, s.authed(testutil.NewRequest(s.T(), http.MethodGet, path)))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, dErrors.CodeValidation)
	})
}

func (s *HandlerSuite) completedList(workspaceID domain.WorkspaceID) *models.List {
	ctx := context.Background()
	list, err := models.NewList(domain.NewListID(), workspaceID, s.user, 5, fixedTime)
	s.Require().NoError(err)
	s.Require().NoError(list.MarkProcessing("test:"+list.ID.String(), fixedTime))

	summary := models.Summary{}
	records := make([]models.Record, 0, 5)
	for i := range 5 {
		rec := scoring.EmailRecord{
			Email:  "user" + strconv.Itoa(i) + "@example.com",
			Status: scoring.StatusDeliverable,
			Score:  80,
		}
		summary.Add(rec.Status)
		records = append(records, models.Record{
			EmailRecord:  rec,
			ListID:       list.ID,
			WorkspaceID:  workspaceID,
			CustomFields: map[string]any{"row": strconv.Itoa(i)},
		})
	}
	s.Require().NoError(list.Complete(summary, fixedTime))

	s.Require().NoError(s.store.CreateList(ctx, list))
	s.Require().NoError(s.store.InsertRecords(ctx, records))
	return list
}
