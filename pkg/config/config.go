package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	BigQuery     BigQueryConfig
	Commerce     CommerceConfig
	Payment      PaymentConfig
	Cache        CacheConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string `envconfig:"STOREFRONT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
	// CORSOrigins is a comma separated list of allowed browser origins.
	CORSOrigins []string `envconfig:"STOREFRONT_CORS_ORIGINS" default:"http://localhost:3000"`
	// TrustedProxies lists the load balancer addresses or CIDRs whose
	// forwarding headers are honoured. Empty means the socket peer is the client.
	TrustedProxies []string      `envconfig:"STOREFRONT_TRUSTED_PROXIES"`
	RequestTimeout time.Duration `envconfig:"STOREFRONT_REQUEST_TIMEOUT" default:"15s"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Name string `envconfig:"STOREFRONT_SERVICE_NAME" default:"storefront-api"`
	Kind string `envconfig:"STOREFRONT_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"STOREFRONT_DB_DSN"`
	Driver string `envconfig:"STOREFRONT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"STOREFRONT_DB_HOST"`
	LegacyPort     int    `envconfig:"STOREFRONT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"STOREFRONT_DB_USER"`
	LegacyPassword string `envconfig:"STOREFRONT_DB_PASSWORD"`
	LegacyName     string `envconfig:"STOREFRONT_DB_NAME"`
	LegacySSLMode  string `envconfig:"STOREFRONT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	QueryTimeout    time.Duration `envconfig:"STOREFRONT_DB_QUERY_TIMEOUT" default:"10s"`
}

// IsSQLite reports whether the sqlite driver was selected.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(db.Driver, DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"STOREFRONT_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"STOREFRONT_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"STOREFRONT_JWT_EXPIRATION_MINUTES" default:"60"`
}

// Expiration returns the access token lifetime.
func (j JWTConfig) Expiration() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type RateLimitConfig struct {
	Window time.Duration `envconfig:"STOREFRONT_RATE_LIMIT_WINDOW" default:"15m"`
	Limit  int           `envconfig:"STOREFRONT_RATE_LIMIT_MAX" default:"300"`

	IPNWindow time.Duration `envconfig:"STOREFRONT_IPN_RATE_LIMIT_WINDOW" default:"1m"`
	IPNLimit  int           `envconfig:"STOREFRONT_IPN_RATE_LIMIT_MAX" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite      bool `envconfig:"STOREFRONT_USE_SQLITE" default:"false"`
	AutoMigrate    bool `envconfig:"STOREFRONT_AUTO_MIGRATE" default:"false"`
	EnablePubSub   bool `envconfig:"STOREFRONT_ENABLE_PUBSUB" default:"false"`
	EnableBigQuery bool `envconfig:"STOREFRONT_ENABLE_BIGQUERY" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"STOREFRONT_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"STOREFRONT_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"STOREFRONT_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	NotificationTopic string        `envconfig:"STOREFRONT_PUBSUB_NOTIFICATION_TOPIC" default:"storefront-notifications"`
	PublishTimeout    time.Duration `envconfig:"STOREFRONT_PUBSUB_PUBLISH_TIMEOUT" default:"10s"`
}

type BigQueryConfig struct {
	Dataset         string `envconfig:"STOREFRONT_BIGQUERY_DATASET" default:"storefront"`
	CartEventsTable string `envconfig:"STOREFRONT_BIGQUERY_CART_EVENTS_TABLE" default:"cart_events"`
}

type CommerceConfig struct {
	LowStockThreshold int           `envconfig:"STOREFRONT_LOW_STOCK_THRESHOLD" default:"10"`
	CartRetention     time.Duration `envconfig:"STOREFRONT_CART_RETENTION" default:"720h"`
	OrderCounterTTL   time.Duration `envconfig:"STOREFRONT_ORDER_COUNTER_TTL" default:"48h"`
}

type PaymentConfig struct {
	VNPayTMNCode    string        `envconfig:"STOREFRONT_VNPAY_TMN_CODE"`
	VNPayHashSecret string        `envconfig:"STOREFRONT_VNPAY_HASH_SECRET"`
	VNPayURL        string        `envconfig:"STOREFRONT_VNPAY_URL" default:"https://sandbox.vnpayment.vn/paymentv2/vpcpay.html"`
	VNPayAPIURL     string        `envconfig:"STOREFRONT_VNPAY_API_URL" default:"https://sandbox.vnpayment.vn/merchant_webapi/api/transaction"`
	VNPayReturnURL  string        `envconfig:"STOREFRONT_VNPAY_RETURN_URL" default:"http://localhost:8080/api/v1/payments/vnpay/return"`
	FrontendURL     string        `envconfig:"STOREFRONT_FRONTEND_URL" default:"http://localhost:3000"`
	GatewayTimeout  time.Duration `envconfig:"STOREFRONT_PAYMENT_GATEWAY_TIMEOUT" default:"15s"`
	PendingStaleAge time.Duration `envconfig:"STOREFRONT_PAYMENT_PENDING_STALE_AGE" default:"20m"`
	PendingExpiry   time.Duration `envconfig:"STOREFRONT_PAYMENT_PENDING_EXPIRY" default:"24h"`
}

type CacheConfig struct {
	ProductTTL time.Duration `envconfig:"STOREFRONT_CACHE_PRODUCT_TTL" default:"60s"`
}

type CronConfig struct {
	Tick              time.Duration `envconfig:"STOREFRONT_CRON_TICK" default:"1m"`
	LockTTL           time.Duration `envconfig:"STOREFRONT_CRON_LOCK_TTL" default:"10m"`
	CartPurgeEvery    time.Duration `envconfig:"STOREFRONT_CRON_CART_PURGE_EVERY" default:"1h"`
	PaymentSweepEvery time.Duration `envconfig:"STOREFRONT_CRON_PAYMENT_SWEEP_EVERY" default:"5m"`
	LowStockEvery     time.Duration `envconfig:"STOREFRONT_CRON_LOW_STOCK_EVERY" default:"6h"`
	BatchSize         int           `envconfig:"STOREFRONT_CRON_BATCH_SIZE" default:"200"`
	JobTimeout        time.Duration `envconfig:"STOREFRONT_CRON_JOB_TIMEOUT" default:"5m"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if useSQLite {
		db.Driver = DBDriverSQLite
	}
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		db.DSN = defaultSQLiteDSN
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
