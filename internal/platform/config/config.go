package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "EMAILSCORE"

// Config is the full runtime configuration. Every key can be set in
// config.yaml or through EMAILSCORE_<SECTION>_<KEY> environment variables.
type Config struct {
	Server     Server     `mapstructure:"server"`
	Log        Log        `mapstructure:"log"`
	Database   Database   `mapstructure:"database"`
	Redis      Redis      `mapstructure:"redis"`
	Kafka      Kafka      `mapstructure:"kafka"`
	Cache      Cache      `mapstructure:"cache"`
	Resolver   Resolver   `mapstructure:"resolver"`
	Disposable Disposable `mapstructure:"disposable"`
	Bulk       Bulk       `mapstructure:"bulk"`
	SMTP       SMTP       `mapstructure:"smtp"`
	Seed       Seed       `mapstructure:"seed"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr              string        `mapstructure:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	JWTSigningKey     string        `mapstructure:"jwt_signing_key"`
	JWTIssuer         string        `mapstructure:"jwt_issuer"`
	AdminToken        string        `mapstructure:"admin_token"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Database is optional; an empty URL selects in-memory stores.
type Database struct {
	URL             string        `mapstructure:"url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	Migrate         bool          `mapstructure:"migrate"`
}

// Redis is optional; an empty URL disables the Redis cache backend.
type Redis struct {
	URL          string        `mapstructure:"url"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type Kafka struct {
	Brokers           []string `mapstructure:"brokers"`
	Topic             string   `mapstructure:"topic"`
	GroupID           string   `mapstructure:"group_id"`
	Partitions        int32    `mapstructure:"partitions"`
	ReplicationFactor int16    `mapstructure:"replication_factor"`
}

type Cache struct {
	// Backend is one of memory, postgres, redis.
	Backend         string        `mapstructure:"backend"`
	TTL             time.Duration `mapstructure:"ttl"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	RefreshBatch    int           `mapstructure:"refresh_batch"`
}

type Resolver struct {
	DNSInfoURL        string        `mapstructure:"dnsinfo_url"`
	DoHURL            string        `mapstructure:"doh_url"`
	DNSRecordsURL     string        `mapstructure:"dnsrecords_url"`
	DNSRecordsAPIKey  string        `mapstructure:"dnsrecords_api_key"`
	DNSRecordsRPS     float64       `mapstructure:"dnsrecords_rps"`
	HTTPTimeout       time.Duration `mapstructure:"http_timeout"`
	NativeEnabled     bool          `mapstructure:"native_enabled"`
	NativeServer      string        `mapstructure:"native_server"`
	BreakerFailures   int           `mapstructure:"breaker_failures"`
	BreakerCooldown   time.Duration `mapstructure:"breaker_cooldown"`
	ParkingNameserver []string      `mapstructure:"parking_nameservers"`
}

type Disposable struct {
	ListURL      string        `mapstructure:"list_url"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
}

type Bulk struct {
	ChunkSize       int           `mapstructure:"chunk_size"`
	LiveLookupDelay time.Duration `mapstructure:"live_lookup_delay"`
	JobTimeout      time.Duration `mapstructure:"job_timeout"`
	// Dispatcher is inline or kafka.
	Dispatcher string `mapstructure:"dispatcher"`
	Worker     bool   `mapstructure:"worker"`
}

// SMTP is optional; an empty Addr logs notifications instead of sending them.
type SMTP struct {
	Addr     string `mapstructure:"addr"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

// Seed bootstraps one workspace at startup when WorkspaceName is set and
// prints its API key, for deployments without an operator console.
type Seed struct {
	WorkspaceName string `mapstructure:"workspace_name"`
	UserEmail     string `mapstructure:"user_email"`
	Credits       int64  `mapstructure:"credits"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_header_timeout", 5*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.jwt_signing_key", "dev-secret-key-change-in-production")
	v.SetDefault("server.jwt_issuer", "emailscore")
	v.SetDefault("server.admin_token", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("database.migrate", true)

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.read_timeout", 3*time.Second)
	v.SetDefault("redis.write_timeout", 3*time.Second)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "emailscore.bulk-jobs")
	v.SetDefault("kafka.group_id", "emailscore-bulk-worker")
	v.SetDefault("kafka.partitions", 3)
	v.SetDefault("kafka.replication_factor", 1)

	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.ttl", 24*time.Hour)
	v.SetDefault("cache.refresh_interval", time.Duration(0))
	v.SetDefault("cache.refresh_batch", 200)

	v.SetDefault("resolver.dnsinfo_url", "https://networkcalc.com/api/dns/lookup")
	v.SetDefault("resolver.doh_url", "https://dns.google/resolve")
	v.SetDefault("resolver.dnsrecords_url", "https://api.api-ninjas.com/v1/dnslookup")
	v.SetDefault("resolver.dnsrecords_api_key", "")
	v.SetDefault("resolver.dnsrecords_rps", 5.0)
	v.SetDefault("resolver.http_timeout", 5*time.Second)
	v.SetDefault("resolver.native_enabled", false)
	v.SetDefault("resolver.native_server", "1.1.1.1:53")
	v.SetDefault("resolver.breaker_failures", 5)
	v.SetDefault("resolver.breaker_cooldown", 30*time.Second)
	v.SetDefault("resolver.parking_nameservers", []string{})

	v.SetDefault("disposable.list_url",
		"https://raw.githubusercontent.com/disposable-email-domains/disposable-email-domains/master/disposable_email_blocklist.conf")
	v.SetDefault("disposable.fetch_timeout", 10*time.Second)

	v.SetDefault("bulk.chunk_size", 250)
	v.SetDefault("bulk.live_lookup_delay", 500*time.Millisecond)
	v.SetDefault("bulk.job_timeout", 5*time.Minute)
	v.SetDefault("bulk.dispatcher", "inline")
	v.SetDefault("bulk.worker", false)

	v.SetDefault("smtp.addr", "")
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from", "no-reply@emailscore.local")

	v.SetDefault("seed.workspace_name", "")
	v.SetDefault("seed.user_email", "")
	v.SetDefault("seed.credits", 1000)
}

// Load reads defaults, an optional config file and the environment.
// path may be empty, in which case ./config.yaml is used when present.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects combinations the server cannot start with.
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case "memory":
	case "postgres":
		if c.Database.URL == "" {
			return errors.New("cache.backend=postgres requires database.url")
		}
	case "redis":
		if c.Redis.URL == "" {
			return errors.New("cache.backend=redis requires redis.url")
		}
	default:
		return fmt.Errorf("unknown cache.backend %q", c.Cache.Backend)
	}

	switch c.Bulk.Dispatcher {
	case "inline":
	case "kafka":
		if len(c.Kafka.Brokers) == 0 {
			return errors.New("bulk.dispatcher=kafka requires kafka.brokers")
		}
	default:
		return fmt.Errorf("unknown bulk.dispatcher %q", c.Bulk.Dispatcher)
	}
	if c.Bulk.Worker && len(c.Kafka.Brokers) == 0 {
		return errors.New("bulk.worker requires kafka.brokers")
	}

	if c.Seed.WorkspaceName != "" && c.Seed.UserEmail == "" {
		return errors.New("seed.workspace_name requires seed.user_email")
	}

	if c.Cache.TTL <= 0 {
		return errors.New("cache.ttl must be positive")
	}
	if c.Bulk.ChunkSize <= 0 {
		return errors.New("bulk.chunk_size must be positive")
	}
	return nil
}
