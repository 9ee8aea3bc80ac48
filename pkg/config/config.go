package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App      AppConfig
	Service  ServiceConfig
	DB       DBConfig
	Redis    RedisConfig
	JWT      JWTConfig
	APIKeys  APIKeyConfig
	Routing  RoutingConfig
	Webhooks WebhookConfig
	Cron     CronConfig
	Realtime RealtimeConfig
	Push     PushConfig
	Features FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"DISPATCH_APP_ENV" required:"true"`
	Port         string   `envconfig:"DISPATCH_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"DISPATCH_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"DISPATCH_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"DISPATCH_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"DISPATCH_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"DISPATCH_DB_DSN"`
	Driver string `envconfig:"DISPATCH_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"DISPATCH_DB_HOST"`
	LegacyPort     int    `envconfig:"DISPATCH_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"DISPATCH_DB_USER"`
	LegacyPassword string `envconfig:"DISPATCH_DB_PASSWORD"`
	LegacyName     string `envconfig:"DISPATCH_DB_NAME"`
	LegacySSLMode  string `envconfig:"DISPATCH_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"DISPATCH_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"DISPATCH_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"DISPATCH_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"DISPATCH_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"DISPATCH_REDIS_URL" required:"true"`
	Address      string        `envconfig:"DISPATCH_REDIS_ADDR"`
	Password     string        `envconfig:"DISPATCH_REDIS_PASSWORD"`
	DB           int           `envconfig:"DISPATCH_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"DISPATCH_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"DISPATCH_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"DISPATCH_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"DISPATCH_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"DISPATCH_REDIS_WRITE_TIMEOUT" default:"5s"`

	DriverPositionTTL time.Duration `envconfig:"DISPATCH_REDIS_DRIVER_POSITION_TTL" default:"1h"`
}

type JWTConfig struct {
	Secret            string `envconfig:"DISPATCH_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"DISPATCH_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"DISPATCH_JWT_EXPIRATION_MINUTES" default:"1440"`
}

// Expiration returns the access token lifetime.
func (j JWTConfig) Expiration() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type APIKeyConfig struct {
	ArgonMemoryKB    int `envconfig:"DISPATCH_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"DISPATCH_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"DISPATCH_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"DISPATCH_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"DISPATCH_ARGON_KEY_LEN" default:"32"`
}

type RoutingConfig struct {
	OSRMBaseURL string        `envconfig:"DISPATCH_OSRM_BASE_URL" default:"https://router.project-osrm.org"`
	Timeout     time.Duration `envconfig:"DISPATCH_OSRM_TIMEOUT" default:"5s"`
}

type WebhookConfig struct {
	Timeout   time.Duration `envconfig:"DISPATCH_WEBHOOK_TIMEOUT" default:"10s"`
	QueueSize int           `envconfig:"DISPATCH_WEBHOOK_QUEUE_SIZE" default:"256"`
}

type CronConfig struct {
	SweepInterval     time.Duration `envconfig:"DISPATCH_CRON_SWEEP_INTERVAL" default:"60s"`
	LockTTL           time.Duration `envconfig:"DISPATCH_CRON_LOCK_TTL" default:"55s"`
	LocationRetention time.Duration `envconfig:"DISPATCH_CRON_LOCATION_RETENTION" default:"720h"`
}

type RealtimeConfig struct {
	SubscriberBuffer int `envconfig:"DISPATCH_REALTIME_SUBSCRIBER_BUFFER" default:"32"`
}

type PushConfig struct {
	ServerKey string `envconfig:"DISPATCH_PUSH_SERVER_KEY"`
	Endpoint  string `envconfig:"DISPATCH_PUSH_ENDPOINT" default:"https://fcm.googleapis.com/fcm/send"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"DISPATCH_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
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
