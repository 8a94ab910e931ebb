package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	HTTP         HTTPConfig
	Bays         BaysConfig
	Broker       BrokerConfig
	NATS         NATSConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	WebSocket    WebSocketConfig
	Redis        RedisConfig
	DB           DBConfig
	Catalog      CatalogConfig
	Widgets      WidgetsConfig
	Eventing     EventingConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.Bays.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New()

// Validate checks cross-field rules envconfig cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	switch c.Broker.Kind {
	case BrokerNATS:
		if strings.TrimSpace(c.NATS.URL) == "" {
			return fmt.Errorf("%s is required for broker kind %q", EnvNATSURL, c.Broker.Kind)
		}
	case BrokerPubSub:
		if strings.TrimSpace(c.GCP.ProjectID) == "" {
			return fmt.Errorf("%s is required for broker kind %q", EnvGCPProjectID, c.Broker.Kind)
		}
		if strings.TrimSpace(c.PubSub.StoreEventsSubscription) == "" {
			return fmt.Errorf("%s is required for broker kind %q", EnvPubSubStoreEventsSub, c.Broker.Kind)
		}
	case BrokerWebSocket:
		if strings.TrimSpace(c.WebSocket.URL) == "" {
			return fmt.Errorf("%s is required for broker kind %q", EnvWebSocketURL, c.Broker.Kind)
		}
	}
	switch c.Catalog.Source {
	case CatalogSourceHTTP:
		if strings.TrimSpace(c.Catalog.BaseURL) == "" {
			return fmt.Errorf("%s is required for catalog source %q", EnvCatalogBaseURL, c.Catalog.Source)
		}
	case CatalogSourceDB:
		if strings.TrimSpace(c.DB.DSN) == "" {
			return fmt.Errorf("%s is required for catalog source %q", EnvDBDSN, c.Catalog.Source)
		}
	}
	if c.Eventing.Dedup && !c.Redis.Enabled() {
		return fmt.Errorf("%s requires %s or %s", EnvEventingDedup, EnvRedisURL, EnvRedisAddr)
	}
	return nil
}

type AppConfig struct {
	Env          string `envconfig:"BAYSTATUS_APP_ENV" required:"true"`
	LogLevel     string `envconfig:"BAYSTATUS_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"BAYSTATUS_LOG_FORMAT" default:"json" validate:"oneof=json console"`
	LogWarnStack bool   `envconfig:"BAYSTATUS_LOG_WARN_STACK" default:"false"`
	InstanceID   string `envconfig:"BAYSTATUS_INSTANCE_ID"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type HTTPConfig struct {
	Port              string        `envconfig:"BAYSTATUS_HTTP_PORT" default:"8080"`
	ReadHeaderTimeout time.Duration `envconfig:"BAYSTATUS_HTTP_READ_HEADER_TIMEOUT" default:"5s"`
	ShutdownTimeout   time.Duration `envconfig:"BAYSTATUS_HTTP_SHUTDOWN_TIMEOUT" default:"10s"`
	CORSOrigins       []string      `envconfig:"BAYSTATUS_HTTP_CORS_ORIGINS" default:"http://localhost:3000"`
}

// BaysConfig lists the physical bays this instance renders status for.
type BaysConfig struct {
	IDs []string `envconfig:"BAYSTATUS_BAYS" required:"true" validate:"min=1,dive,required"`
}

func (b *BaysConfig) normalize() {
	ids := make([]string, 0, len(b.IDs))
	seen := map[string]struct{}{}
	for _, id := range b.IDs {
		trimmed := strings.TrimSpace(id)
		if trimmed == "" {
			continue
		}
		if _, dup := seen[trimmed]; dup {
			continue
		}
		seen[trimmed] = struct{}{}
		ids = append(ids, trimmed)
	}
	b.IDs = ids
}

type BrokerConfig struct {
	Kind        string `envconfig:"BAYSTATUS_BROKER_KIND" default:"memory" validate:"oneof=memory nats pubsub websocket"`
	Destination string `envconfig:"BAYSTATUS_BROKER_DESTINATION" default:"/store-events" validate:"startswith=/"`
}

type NATSConfig struct {
	URL           string        `envconfig:"BAYSTATUS_NATS_URL" default:"nats://127.0.0.1:4222"`
	Name          string        `envconfig:"BAYSTATUS_NATS_CLIENT_NAME" default:"baystatus"`
	ReconnectWait time.Duration `envconfig:"BAYSTATUS_NATS_RECONNECT_WAIT" default:"2s"`
	MaxReconnects int           `envconfig:"BAYSTATUS_NATS_MAX_RECONNECTS" default:"-1"`
	PingInterval  time.Duration `envconfig:"BAYSTATUS_NATS_PING_INTERVAL" default:"20s"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"BAYSTATUS_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"BAYSTATUS_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	StoreEventsTopic        string `envconfig:"BAYSTATUS_PUBSUB_STORE_EVENTS_TOPIC" default:"store-events"`
	StoreEventsSubscription string `envconfig:"BAYSTATUS_PUBSUB_STORE_EVENTS_SUBSCRIPTION"`
}

type WebSocketConfig struct {
	URL              string        `envconfig:"BAYSTATUS_WS_URL"`
	HandshakeTimeout time.Duration `envconfig:"BAYSTATUS_WS_HANDSHAKE_TIMEOUT" default:"10s"`
	ReconnectMin     time.Duration `envconfig:"BAYSTATUS_WS_RECONNECT_MIN" default:"1s"`
	ReconnectMax     time.Duration `envconfig:"BAYSTATUS_WS_RECONNECT_MAX" default:"30s"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BAYSTATUS_REDIS_URL"`
	Address      string        `envconfig:"BAYSTATUS_REDIS_ADDR"`
	Password     string        `envconfig:"BAYSTATUS_REDIS_PASSWORD"`
	DB           int           `envconfig:"BAYSTATUS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BAYSTATUS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BAYSTATUS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BAYSTATUS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BAYSTATUS_REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"BAYSTATUS_REDIS_WRITE_TIMEOUT" default:"3s"`
}

// Enabled reports whether a redis endpoint is configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type DBConfig struct {
	DSN    string `envconfig:"BAYSTATUS_DB_DSN"`
	Driver string `envconfig:"BAYSTATUS_DB_DRIVER" default:"postgres" validate:"oneof=postgres sqlite"`

	MaxOpenConns    int           `envconfig:"BAYSTATUS_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"BAYSTATUS_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"BAYSTATUS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BAYSTATUS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"BAYSTATUS_DB_SLOW_QUERY" default:"200ms"`
}

type CatalogConfig struct {
	Source   string        `envconfig:"BAYSTATUS_CATALOG_SOURCE" default:"http" validate:"oneof=http db"`
	BaseURL  string        `envconfig:"BAYSTATUS_CATALOG_BASE_URL"`
	APIKey   string        `envconfig:"BAYSTATUS_CATALOG_API_KEY"`
	Timeout  time.Duration `envconfig:"BAYSTATUS_CATALOG_TIMEOUT" default:"10s"`
	CacheTTL time.Duration `envconfig:"BAYSTATUS_CATALOG_CACHE_TTL" default:"10m"`
	Retries  int           `envconfig:"BAYSTATUS_CATALOG_RETRIES" default:"2" validate:"gte=0,lte=5"`
}

type WidgetsConfig struct {
	Kinds         []string      `envconfig:"BAYSTATUS_WIDGETS" default:"air_filter,cabin_air_filter,oil_filter,oil_filter_change"`
	LookupTimeout time.Duration `envconfig:"BAYSTATUS_WIDGET_LOOKUP_TIMEOUT" default:"15s"`
	Locale        string        `envconfig:"BAYSTATUS_WIDGET_LOCALE" default:"en"`
}

type EventingConfig struct {
	Dedup    bool          `envconfig:"BAYSTATUS_EVENTING_DEDUP" default:"false"`
	DedupTTL time.Duration `envconfig:"BAYSTATUS_EVENTING_DEDUP_TTL" default:"1h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"BAYSTATUS_AUTO_MIGRATE" default:"false"`
}
