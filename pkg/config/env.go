package config

const EnvPrefix = "BAYSTATUS"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	BrokerMemory    = "memory"
	BrokerNATS      = "nats"
	BrokerPubSub    = "pubsub"
	BrokerWebSocket = "websocket"
)

const (
	CatalogSourceHTTP = "http"
	CatalogSourceDB   = "db"
)

const (
	EnvAppEnv               = "BAYSTATUS_APP_ENV"
	EnvBays                 = "BAYSTATUS_BAYS"
	EnvBrokerKind           = "BAYSTATUS_BROKER_KIND"
	EnvBrokerDestination    = "BAYSTATUS_BROKER_DESTINATION"
	EnvNATSURL              = "BAYSTATUS_NATS_URL"
	EnvGCPProjectID         = "BAYSTATUS_GCP_PROJECT_ID"
	EnvPubSubStoreEventsSub = "BAYSTATUS_PUBSUB_STORE_EVENTS_SUBSCRIPTION"
	EnvWebSocketURL         = "BAYSTATUS_WS_URL"
	EnvRedisURL             = "BAYSTATUS_REDIS_URL"
	EnvRedisAddr            = "BAYSTATUS_REDIS_ADDR"
	EnvDBDSN                = "BAYSTATUS_DB_DSN"
	EnvCatalogSource        = "BAYSTATUS_CATALOG_SOURCE"
	EnvCatalogBaseURL       = "BAYSTATUS_CATALOG_BASE_URL"
	EnvWidgets              = "BAYSTATUS_WIDGETS"
	EnvEventingDedup        = "BAYSTATUS_EVENTING_DEDUP"
	EnvWidgetLookupTimeout  = "BAYSTATUS_WIDGET_LOOKUP_TIMEOUT"
	EnvCatalogCacheTTL      = "BAYSTATUS_CATALOG_CACHE_TTL"
	EnvCatalogRetries       = "BAYSTATUS_CATALOG_RETRIES"
	EnvHTTPCORSOrigins      = "BAYSTATUS_HTTP_CORS_ORIGINS"
)
