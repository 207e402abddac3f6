// Package di assembles the server's object graph with go.uber.org/dig.
package di

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/dig"

	bulkhandler "emailscore/internal/bulk/handler"
	"emailscore/internal/bulk/job"
	bulkmetrics "emailscore/internal/bulk/metrics"
	bulkservice "emailscore/internal/bulk/service"
	bulkmem "emailscore/internal/bulk/store/memory"
	bulkpg "emailscore/internal/bulk/store/postgres"
	credithandler "emailscore/internal/credits/handler"
	creditmetrics "emailscore/internal/credits/metrics"
	creditsvc "emailscore/internal/credits/service"
	creditmem "emailscore/internal/credits/store/memory"
	creditpg "emailscore/internal/credits/store/postgres"
	"emailscore/internal/domaincache"
	cachemetrics "emailscore/internal/domaincache/metrics"
	cachemem "emailscore/internal/domaincache/store/memory"
	cachepg "emailscore/internal/domaincache/store/postgres"
	cacheredis "emailscore/internal/domaincache/store/redis"
	"emailscore/internal/heuristic"
	"emailscore/internal/heuristic/disposable"
	jwttoken "emailscore/internal/jwt_token"
	"emailscore/internal/notify"
	"emailscore/internal/platform/config"
	"emailscore/internal/platform/httpserver"
	"emailscore/internal/platform/kafka"
	httpmetrics "emailscore/internal/platform/metrics"
	"emailscore/internal/platform/postgres"
	redisclient "emailscore/internal/platform/redis"
	"emailscore/internal/resolver"
	resolvermetrics "emailscore/internal/resolver/metrics"
	"emailscore/internal/resolver/providers"
	"emailscore/internal/resolver/providers/dnsinfo"
	"emailscore/internal/resolver/providers/dnsrecords"
	"emailscore/internal/resolver/providers/doh"
	"emailscore/internal/resolver/providers/native"
	"emailscore/internal/scoring"
	scoringhandler "emailscore/internal/scoring/handler"
	scoringmetrics "emailscore/internal/scoring/metrics"
	httptransport "emailscore/internal/transport/http"
	workspacesvc "emailscore/internal/workspace/service"
	workspacemem "emailscore/internal/workspace/store/memory"
	workspacepg "emailscore/internal/workspace/store/postgres"
)

// Infra holds the external connections. Each field is nil when its section
// is not configured.
type Infra struct {
	DB       *sql.DB
	Redis    *redisclient.Client
	Producer *kafka.Producer
}

// Close releases every open connection.
func (i *Infra) Close() {
	if i.Producer != nil {
		i.Producer.Close()
	}
	if i.Redis != nil {
		_ = i.Redis.Close()
	}
	if i.DB != nil {
		_ = i.DB.Close()
	}
}

// BulkStore is the union of what the submission service and the job need.
type BulkStore interface {
	bulkservice.Store
	job.Store
}

// App is everything main needs to run the process.
type App struct {
	dig.In

	Config     *config.Config
	Logger     *slog.Logger
	Infra      *Infra
	Server     *http.Server
	Disposable *disposable.Set
	Workspaces *workspacesvc.Service
	Dispatcher bulkservice.Dispatcher
	Refresher  *domaincache.Refresher `optional:"true"`
	Worker     *kafka.Consumer        `optional:"true"`
}

// BuildContainer registers every constructor. Connections are opened lazily
// when App is first resolved.
func BuildContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*dig.Container, error) {
	c := dig.New()

	ctors := []any{
		func() *config.Config { return cfg },
		func() *slog.Logger { return logger },
		newRegistry,
		func(reg *prometheus.Registry) prometheus.Registerer { return reg },
		func(reg *prometheus.Registry) prometheus.Gatherer { return reg },
		func(cfg *config.Config, logger *slog.Logger) (*Infra, error) { return newInfra(ctx, cfg, logger) },

		resolvermetrics.New,
		cachemetrics.New,
		scoringmetrics.New,
		creditmetrics.New,
		bulkmetrics.New,
		httpmetrics.New,

		newDisposableSet,
		newValidator,
		newResolver,
		newCacheStore,
		newCache,
		newVerifier,
		newCreditService,
		newWorkspaceService,
		newSender,
		newBulkStore,
		newJob,
		newRunner,
		newDispatcher,
		newBulkService,
		newRouter,
		newServer,
	}
	for _, ctor := range ctors {
		if err := c.Provide(ctor); err != nil {
			return nil, fmt.Errorf("register provider: %w", err)
		}
	}

	if cfg.Cache.RefreshInterval > 0 {
		if err := c.Provide(newRefresher); err != nil {
			return nil, fmt.Errorf("register refresher: %w", err)
		}
	}
	if cfg.Bulk.Worker {
		if err := c.Provide(newWorker); err != nil {
			return nil, fmt.Errorf("register worker: %w", err)
		}
	}
	return c, nil
}

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func newInfra(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Infra, error) {
	infra := &Infra{}

	if cfg.Database.URL != "" {
		db, err := postgres.Open(ctx, cfg.Database.URL, postgres.Options{
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		})
		if err != nil {
			return nil, err
		}
		infra.DB = db
		if cfg.Database.Migrate {
			if err := postgres.Migrate(ctx, db, logger); err != nil {
				infra.Close()
				return nil, fmt.Errorf("migrate: %w", err)
			}
		}
	}

	client, err := redisclient.New(ctx, cfg.Redis)
	if err != nil {
		infra.Close()
		return nil, err
	}
	infra.Redis = client

	if cfg.Bulk.Dispatcher == "kafka" {
		producer, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
		if err != nil {
			infra.Close()
			return nil, err
		}
		infra.Producer = producer
		if err := producer.EnsureTopic(ctx, cfg.Kafka.Topic, cfg.Kafka.Partitions, cfg.Kafka.ReplicationFactor); err != nil {
			infra.Close()
			return nil, err
		}
	}
	return infra, nil
}

func newDisposableSet(cfg *config.Config, logger *slog.Logger) *disposable.Set {
	return disposable.New(
		disposable.WithURL(cfg.Disposable.ListURL),
		disposable.WithFetchTimeout(cfg.Disposable.FetchTimeout),
		disposable.WithLogger(logger),
	)
}

func newValidator(set *disposable.Set) *heuristic.Validator {
	return heuristic.New(set)
}

func newResolver(cfg *config.Config, logger *slog.Logger, m *resolvermetrics.Metrics) *resolver.Resolver {
	rc := cfg.Resolver
	client := providers.NewHTTPClient(rc.HTTPTimeout)
	parking := providers.NewParkingDetector(rc.ParkingNameserver)

	links := []resolver.Link{
		resolver.Guarded(dnsinfo.New(rc.DNSInfoURL, client, parking), rc.BreakerFailures, rc.BreakerCooldown),
		resolver.Guarded(doh.New(rc.DoHURL, client), rc.BreakerFailures, rc.BreakerCooldown),
	}
	if rc.NativeEnabled {
		links = append(links, resolver.Guarded(native.New(rc.NativeServer, rc.HTTPTimeout, parking), rc.BreakerFailures, rc.BreakerCooldown))
	}
	links = append(links, resolver.Terminal(dnsrecords.New(rc.DNSRecordsURL,
		dnsrecords.WithAPIKey(rc.DNSRecordsAPIKey),
		dnsrecords.WithHTTPClient(client),
		dnsrecords.WithRateLimit(rc.DNSRecordsRPS),
		dnsrecords.WithParkingDetector(parking),
		dnsrecords.WithLogger(logger),
	)))

	return resolver.New(links, resolver.WithLogger(logger), resolver.WithMetrics(m))
}

func newCacheStore(cfg *config.Config, infra *Infra) (domaincache.Store, error) {
	switch cfg.Cache.Backend {
	case "postgres":
		if infra.DB == nil {
			return nil, errors.New("postgres cache backend needs a database connection")
		}
		return cachepg.New(infra.DB), nil
	case "redis":
		if infra.Redis == nil {
			return nil, errors.New("redis cache backend needs a redis connection")
		}
		return cacheredis.New(infra.Redis.Client, cacheredis.WithRetention(2*cfg.Cache.TTL)), nil
	default:
		return cachemem.New(2*cfg.Cache.TTL, cfg.Cache.TTL), nil
	}
}

func newCache(store domaincache.Store, cfg *config.Config, logger *slog.Logger, m *cachemetrics.Metrics) (*domaincache.Cache, error) {
	return domaincache.New(store,
		domaincache.WithTTL(cfg.Cache.TTL),
		domaincache.WithLogger(logger),
		domaincache.WithMetrics(m),
	)
}

func newRefresher(cache *domaincache.Cache, store domaincache.Store, res *resolver.Resolver, cfg *config.Config, logger *slog.Logger, m *cachemetrics.Metrics) (*domaincache.Refresher, error) {
	lister, ok := store.(domaincache.StaleLister)
	if !ok {
		logger.Warn("cache backend cannot list stale entries; refresher disabled", "backend", cfg.Cache.Backend)
		return nil, nil
	}
	return domaincache.NewRefresher(cache, lister, res, cfg.Cache.RefreshInterval,
		domaincache.WithRefreshBatch(cfg.Cache.RefreshBatch),
		domaincache.WithRefresherLogger(logger),
		domaincache.WithRefresherMetrics(m),
	)
}

func newVerifier(v *heuristic.Validator, cache *domaincache.Cache, res *resolver.Resolver, cfg *config.Config, logger *slog.Logger, m *scoringmetrics.Metrics) (*scoring.Verifier, error) {
	return scoring.NewVerifier(v, cache, res,
		scoring.WithLiveLookupDelay(cfg.Bulk.LiveLookupDelay),
		scoring.WithLogger(logger),
		scoring.WithMetrics(m),
	)
}

func newCreditService(infra *Infra, logger *slog.Logger, m *creditmetrics.Metrics) (*creditsvc.Service, error) {
	var store creditsvc.Store = creditmem.New()
	if infra.DB != nil {
		store = creditpg.New(infra.DB)
	}
	return creditsvc.New(store, creditsvc.WithLogger(logger), creditsvc.WithMetrics(m))
}

func newWorkspaceService(infra *Infra, credits *creditsvc.Service, logger *slog.Logger) (*workspacesvc.Service, error) {
	var store workspacesvc.Store = workspacemem.New()
	if infra.DB != nil {
		store = workspacepg.New(infra.DB)
	}
	return workspacesvc.New(store,
		workspacesvc.WithLogger(logger),
		workspacesvc.WithCreditGranter(credits),
	)
}

func newSender(cfg *config.Config, logger *slog.Logger) (notify.Sender, error) {
	if cfg.SMTP.Addr == "" {
		return notify.NewLogSender(logger), nil
	}
	return notify.NewSMTPSender(cfg.SMTP, notify.WithSMTPLogger(logger))
}

func newBulkStore(infra *Infra) BulkStore {
	if infra.DB != nil {
		return bulkpg.New(infra.DB)
	}
	return bulkmem.New()
}

func newJob(
	store BulkStore,
	verifier *scoring.Verifier,
	cache *domaincache.Cache,
	credits *creditsvc.Service,
	workspaces *workspacesvc.Service,
	sender notify.Sender,
	cfg *config.Config,
	logger *slog.Logger,
	m *bulkmetrics.Metrics,
) (*job.Job, error) {
	return job.New(store, verifier, cache, credits,
		job.WithChunkSize(cfg.Bulk.ChunkSize),
		job.WithNotifier(workspaces, sender),
		job.WithLogger(logger),
		job.WithMetrics(m),
	)
}

func newRunner(j *job.Job, cfg *config.Config, logger *slog.Logger) (*job.Runner, error) {
	return job.NewRunner(j,
		job.WithTimeout(cfg.Bulk.JobTimeout),
		job.WithRunnerLogger(logger),
	)
}

func newDispatcher(runner *job.Runner, infra *Infra, cfg *config.Config, logger *slog.Logger) (bulkservice.Dispatcher, error) {
	if cfg.Bulk.Dispatcher == "kafka" {
		return job.NewKafkaDispatcher(infra.Producer, cfg.Kafka.Topic)
	}
	return job.NewInlineDispatcher(runner, logger)
}

func newWorker(runner *job.Runner, cfg *config.Config, logger *slog.Logger) (*kafka.Consumer, error) {
	worker, err := job.NewWorker(runner, logger)
	if err != nil {
		return nil, err
	}
	return kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.Topic, worker, logger)
}

func newBulkService(store BulkStore, credits *creditsvc.Service, dispatcher bulkservice.Dispatcher, logger *slog.Logger, m *bulkmetrics.Metrics) (*bulkservice.Service, error) {
	return bulkservice.New(store, credits, dispatcher,
		bulkservice.WithLogger(logger),
		bulkservice.WithMetrics(m),
	)
}

type routerParams struct {
	dig.In

	Config     *config.Config
	Logger     *slog.Logger
	Registry   *prometheus.Registry
	Metrics    *httpmetrics.Metrics
	Infra      *Infra
	Verifier   *scoring.Verifier
	Credits    *creditsvc.Service
	Workspaces *workspacesvc.Service
	Bulk       *bulkservice.Service
}

func newRouter(p routerParams) http.Handler {
	credits := credithandler.New(p.Credits, p.Logger)
	jwt := jwttoken.NewJWTService(p.Config.Server.JWTSigningKey, p.Config.Server.JWTIssuer)

	health := map[string]httptransport.HealthCheck{}
	if p.Infra.DB != nil {
		health["postgres"] = p.Infra.DB.PingContext
	}
	if p.Infra.Redis != nil {
		health["redis"] = p.Infra.Redis.Health
	}
	if p.Infra.Producer != nil {
		health["kafka"] = p.Infra.Producer.Health
	}

	return httptransport.NewRouter(httptransport.Deps{
		Logger:     p.Logger,
		Metrics:    p.Metrics,
		Gatherer:   p.Registry,
		Tokens:     jwttoken.NewJWTServiceAdapter(jwt),
		APIKeys:    p.Workspaces,
		AdminToken: p.Config.Server.AdminToken,
		API: []httptransport.Registrar{
			scoringhandler.New(p.Verifier, p.Credits, p.Logger),
			bulkhandler.New(p.Bulk, p.Logger),
			credits,
		},
		Admin:  []httptransport.AdminRegistrar{credits},
		Health: health,
	})
}

func newServer(cfg *config.Config, handler http.Handler) *http.Server {
	return httpserver.New(cfg.Server.Addr, handler, cfg.Server.ReadHeaderTimeout)
}
