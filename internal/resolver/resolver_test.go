package resolver

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"emailscore/internal/resolver/metrics"
	"emailscore/internal/resolver/models"
	"emailscore/internal/resolver/providers"
	"emailscore/internal/resolver/providers/mocks"
	"emailscore/pkg/platform/circuit"
)

type ResolverSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	primary   *mocks.MockProvider
	secondary *mocks.MockProvider
	terminal  *mocks.MockProvider
	metrics   *metrics.Metrics
	resolver  *Resolver
}

func TestResolverSuite(t *testing.T) {
	suite.Run(t, new(ResolverSuite))
}

func (s *ResolverSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.primary = mocks.NewMockProvider(s.ctrl)
	s.secondary = mocks.NewMockProvider(s.ctrl)
	s.terminal = mocks.NewMockProvider(s.ctrl)
	s.primary.EXPECT().ID().Return("primary").AnyTimes()
	s.secondary.EXPECT().ID().Return("secondary").AnyTimes()
	s.terminal.EXPECT().ID().Return("terminal").AnyTimes()

	s.metrics = metrics.New(prometheus.NewRegistry())
	s.resolver = New([]Link{
		Guarded(s.primary, 2, time.Hour),
		Guarded(s.secondary, 2, time.Hour),
		Terminal(s.terminal),
	},
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMetrics(s.metrics),
	)
}

func (s *ResolverSuite) TearDownTest() {
	s.ctrl.Finish()
}

func outage(id string) error {
	return providers.NewProviderError(providers.ErrorProviderOutage, id, "boom", nil)
}

// =============================================================================
// Chain order
// =============================================================================

func (s *ResolverSuite) TestPrimaryAnswers() {
	want := models.DomainInfo{Status: models.StatusActive, MXRecord: "mx.example.com"}
	s.primary.EXPECT().Resolve(gomock.Any(), "example.com").Return(want, nil)

	got := s.resolver.Resolve(context.Background(), "example.com")

	s.Equal(want, got)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Resolutions.WithLabelValues("active")))
}

func (s *ResolverSuite) TestFallsThroughToSecondary() {
	want := models.DomainInfo{Status: models.StatusInactive}
	gomock.InOrder(
		s.primary.EXPECT().Resolve(gomock.Any(), "example.com").Return(models.DomainInfo{}, outage("primary")),
		s.secondary.EXPECT().Resolve(gomock.Any(), "example.com").Return(want, nil),
	)

	got := s.resolver.Resolve(context.Background(), "example.com")

	s.Equal(want, got)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.ProviderCalls.WithLabelValues("primary", metrics.OutcomeFailure)))
}

func (s *ResolverSuite) TestTerminalUnknownWhenEverythingFails() {
	s.primary.EXPECT().Resolve(gomock.Any(), "example.com").Return(models.DomainInfo{}, outage("primary"))
	s.secondary.EXPECT().Resolve(gomock.Any(), "example.com").Return(models.DomainInfo{}, outage("secondary"))
	s.terminal.EXPECT().Resolve(gomock.Any(), "example.com").Return(models.Unknown(), nil)

	got := s.resolver.Resolve(context.Background(), "example.com")

	s.Equal(models.StatusUnknown, got.Status)
	s.False(got.HasMX())
}

func (s *ResolverSuite) TestUnknownWhenTerminalErrors() {
	s.primary.EXPECT().Resolve(gomock.Any(), gomock.Any()).Return(models.DomainInfo{}, outage("primary"))
	s.secondary.EXPECT().Resolve(gomock.Any(), gomock.Any()).Return(models.DomainInfo{}, outage("secondary"))
	s.terminal.EXPECT().Resolve(gomock.Any(), gomock.Any()).Return(models.DomainInfo{}, outage("terminal"))

	got := s.resolver.Resolve(context.Background(), "example.com")

	s.Equal(models.Unknown(), got)
}

func (s *ResolverSuite) TestInvalidStatusNormalizedToUnknown() {
	s.primary.EXPECT().Resolve(gomock.Any(), gomock.Any()).
		Return(models.DomainInfo{Status: "weird", MXRecord: "mx.example.com"}, nil)

	got := s.resolver.Resolve(context.Background(), "example.com")

	s.Equal(models.StatusUnknown, got.Status)
	s.Equal("mx.example.com", got.MXRecord)
}

// =============================================================================
// Breakers
// =============================================================================

func (s *ResolverSuite) TestOpenBreakerSkipsProvider() {
	s.primary.EXPECT().Resolve(gomock.Any(), gomock.Any()).
		Return(models.DomainInfo{}, outage("primary")).Times(2)
	s.secondary.EXPECT().Resolve(gomock.Any(), gomock.Any()).
		Return(models.DomainInfo{Status: models.StatusActive}, nil).Times(3)

	for range 3 {
		got := s.resolver.Resolve(context.Background(), "example.com")
		s.Equal(models.StatusActive, got.Status)
	}

	s.Equal(1.0, testutil.ToFloat64(s.metrics.ProviderCalls.WithLabelValues("primary", metrics.OutcomeSkipped)))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.BreakerOpenTotal.WithLabelValues("primary")))
}

func (s *ResolverSuite) TestCanceledCallDoesNotTripBreaker() {
	breaker := circuit.New("primary", circuit.WithFailureThreshold(1), circuit.WithCooldown(time.Hour))
	r := New([]Link{{Provider: s.primary, Breaker: breaker}, Terminal(s.terminal)},
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	s.primary.EXPECT().Resolve(gomock.Any(), gomock.Any()).
		Return(models.DomainInfo{}, providers.NewProviderError(providers.ErrorCanceled, "primary", "canceled", context.Canceled))
	s.terminal.EXPECT().Resolve(gomock.Any(), gomock.Any()).Return(models.Unknown(), nil)

	r.Resolve(context.Background(), "example.com")

	s.False(breaker.IsOpen())
}

// =============================================================================
// Context
// =============================================================================

func (s *ResolverSuite) TestCanceledContextShortCircuits() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := s.resolver.Resolve(ctx, "example.com")

	s.Equal(models.Unknown(), got)
}

func (s *ResolverSuite) TestContextCanceledMidChainStops() {
	ctx, cancel := context.WithCancel(context.Background())
	s.primary.EXPECT().Resolve(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, string) (models.DomainInfo, error) {
			cancel()
			return models.DomainInfo{}, outage("primary")
		})

	got := s.resolver.Resolve(ctx, "example.com")

	s.Equal(models.Unknown(), got)
}
