package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Mongo         MongoConfig
	Store         StoreConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	Realtime      RealtimeConfig
	Notifications NotificationsConfig
	Content       ContentConfig
	Cron          CronConfig
	FeatureFlags  FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Store.validate(); err != nil {
		return nil, err
	}
	if cfg.Store.UsesSQL() && !cfg.FeatureFlags.UseSQLite {
		if err := cfg.DB.ensureDSN(); err != nil {
			return nil, err
		}
	}
	if cfg.Store.UsesMongo() && strings.TrimSpace(cfg.Mongo.URI) == "" {
		return nil, fmt.Errorf("%s is required when %s=%s", EnvMongoURI, EnvStoreBackend, StoreBackendMongo)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"BLOGQNA_APP_ENV" required:"true"`
	Port         string `envconfig:"BLOGQNA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"BLOGQNA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BLOGQNA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type DBConfig struct {
	DSN    string `envconfig:"BLOGQNA_DB_DSN"`
	Driver string `envconfig:"BLOGQNA_DB_DRIVER" default:"postgres"`

	SQLitePath string `envconfig:"BLOGQNA_SQLITE_PATH" default:"file:blogqna.db?cache=shared"`

	LegacyHost     string `envconfig:"BLOGQNA_DB_HOST"`
	LegacyPort     int    `envconfig:"BLOGQNA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BLOGQNA_DB_USER"`
	LegacyPassword string `envconfig:"BLOGQNA_DB_PASSWORD"`
	LegacyName     string `envconfig:"BLOGQNA_DB_NAME"`
	LegacySSLMode  string `envconfig:"BLOGQNA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BLOGQNA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BLOGQNA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BLOGQNA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BLOGQNA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type MongoConfig struct {
	URI            string        `envconfig:"BLOGQNA_MONGO_URI"`
	Database       string        `envconfig:"BLOGQNA_MONGO_DATABASE" default:"blogqna"`
	ConnectTimeout time.Duration `envconfig:"BLOGQNA_MONGO_CONNECT_TIMEOUT" default:"10s"`
	MaxPoolSize    uint64        `envconfig:"BLOGQNA_MONGO_MAX_POOL_SIZE" default:"50"`
}

// StoreConfig selects which persistence backend serves users, posts, comments and notifications.
type StoreConfig struct {
	Backend string `envconfig:"BLOGQNA_STORE_BACKEND" default:"sql"`
}

func (s StoreConfig) UsesSQL() bool {
	return strings.EqualFold(strings.TrimSpace(s.Backend), StoreBackendSQL)
}

func (s StoreConfig) UsesMongo() bool {
	return strings.EqualFold(strings.TrimSpace(s.Backend), StoreBackendMongo)
}

func (s StoreConfig) validate() error {
	if s.UsesSQL() || s.UsesMongo() {
		return nil
	}
	return fmt.Errorf("%s must be %q or %q, got %q", EnvStoreBackend, StoreBackendSQL, StoreBackendMongo, s.Backend)
}

type RedisConfig struct {
	URL          string        `envconfig:"BLOGQNA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"BLOGQNA_REDIS_ADDR"`
	Password     string        `envconfig:"BLOGQNA_REDIS_PASSWORD"`
	DB           int           `envconfig:"BLOGQNA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BLOGQNA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BLOGQNA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BLOGQNA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BLOGQNA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BLOGQNA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"BLOGQNA_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"BLOGQNA_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"BLOGQNA_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"BLOGQNA_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// AccessTTL returns the access token lifetime.
func (j JWTConfig) AccessTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"BLOGQNA_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"BLOGQNA_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"BLOGQNA_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"BLOGQNA_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"BLOGQNA_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow      time.Duration `envconfig:"BLOGQNA_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit  int           `envconfig:"BLOGQNA_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit     int           `envconfig:"BLOGQNA_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	SignupWindow     time.Duration `envconfig:"BLOGQNA_AUTH_RATE_LIMIT_SIGNUP_WINDOW" default:"5m"`
	SignupEmailLimit int           `envconfig:"BLOGQNA_AUTH_RATE_LIMIT_SIGNUP_EMAIL_LIMIT" default:"3"`
	SignupIPLimit    int           `envconfig:"BLOGQNA_AUTH_RATE_LIMIT_SIGNUP_IP_LIMIT" default:"20"`
	ConnectWindow    time.Duration `envconfig:"BLOGQNA_AUTH_RATE_LIMIT_CONNECT_WINDOW" default:"1m"`
	ConnectIPLimit   int           `envconfig:"BLOGQNA_AUTH_RATE_LIMIT_CONNECT_IP_LIMIT" default:"30"`
}

// RealtimeConfig tunes the websocket transport.
type RealtimeConfig struct {
	CookieName      string        `envconfig:"BLOGQNA_REALTIME_COOKIE_NAME" default:"token"`
	SendBuffer      int           `envconfig:"BLOGQNA_REALTIME_SEND_BUFFER" default:"16"`
	WriteTimeout    time.Duration `envconfig:"BLOGQNA_REALTIME_WRITE_TIMEOUT" default:"10s"`
	PongWait        time.Duration `envconfig:"BLOGQNA_REALTIME_PONG_WAIT" default:"60s"`
	PingPeriod      time.Duration `envconfig:"BLOGQNA_REALTIME_PING_PERIOD" default:"54s"`
	MaxMessageBytes int64         `envconfig:"BLOGQNA_REALTIME_MAX_MESSAGE_BYTES" default:"4096"`
	AllowedOrigins  []string      `envconfig:"BLOGQNA_REALTIME_ALLOWED_ORIGINS"`
}

type NotificationsConfig struct {
	BroadcastConcurrency int           `envconfig:"BLOGQNA_NOTIFICATIONS_BROADCAST_CONCURRENCY" default:"8"`
	DeliverTimeout       time.Duration `envconfig:"BLOGQNA_NOTIFICATIONS_DELIVER_TIMEOUT" default:"10s"`
	SnippetLength        int           `envconfig:"BLOGQNA_NOTIFICATIONS_SNIPPET_LENGTH" default:"120"`
	RetentionDays        int           `envconfig:"BLOGQNA_NOTIFICATIONS_RETENTION_DAYS" default:"90"`
}

// ContentConfig bounds comment thread reads.
type ContentConfig struct {
	ThreadMaxDepth int `envconfig:"BLOGQNA_THREAD_MAX_DEPTH" default:"32"`
	ThreadMaxNodes int `envconfig:"BLOGQNA_THREAD_MAX_NODES" default:"2000"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"BLOGQNA_CRON_INTERVAL" default:"24h"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"BLOGQNA_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"BLOGQNA_AUTO_MIGRATE" default:"false"`
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
