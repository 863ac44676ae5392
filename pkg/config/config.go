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
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Password     PasswordConfig
	Storage      StorageConfig
	Backend      BackendConfig
	Cart         CartConfig
	RateLimit    RateLimitConfig
	Maintenance  MaintenanceConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags); err != nil {
		return nil, err
	}
	if err := cfg.Storage.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"WANTERIO_APP_ENV" required:"true"`
	Port         string `envconfig:"WANTERIO_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"WANTERIO_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"WANTERIO_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"WANTERIO_LOG_WARN_STACK" default:"false"`

	CORSOrigins     []string      `envconfig:"WANTERIO_CORS_ORIGINS" default:"http://localhost:3000"`
	ShutdownTimeout time.Duration `envconfig:"WANTERIO_SHUTDOWN_TIMEOUT" default:"15s"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"WANTERIO_DB_DSN"`
	Driver string `envconfig:"WANTERIO_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"WANTERIO_DB_HOST"`
	Port     int    `envconfig:"WANTERIO_DB_PORT" default:"5432"`
	User     string `envconfig:"WANTERIO_DB_USER"`
	Password string `envconfig:"WANTERIO_DB_PASSWORD"`
	Name     string `envconfig:"WANTERIO_DB_NAME"`
	SSLMode  string `envconfig:"WANTERIO_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"WANTERIO_SQLITE_PATH" default:"wanterio.db"`

	MaxOpenConns    int           `envconfig:"WANTERIO_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"WANTERIO_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"WANTERIO_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"WANTERIO_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"WANTERIO_DB_SLOW_QUERY" default:"500ms"`
}

// Configured reports whether a real datastore is reachable by configuration.
// The placeholder DSN shipped in .env.example counts as unconfigured.
func (db DBConfig) Configured(flags FeatureFlagsConfig) bool {
	if flags.UseSQLite {
		return strings.TrimSpace(db.SQLitePath) != ""
	}
	dsn := strings.TrimSpace(db.DSN)
	return dsn != "" && dsn != PlaceholderDSN
}

type RedisConfig struct {
	URL          string        `envconfig:"WANTERIO_REDIS_URL"`
	Address      string        `envconfig:"WANTERIO_REDIS_ADDR"`
	Password     string        `envconfig:"WANTERIO_REDIS_PASSWORD"`
	DB           int           `envconfig:"WANTERIO_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"WANTERIO_REDIS_POOL_SIZE" default:"5"`
	MinIdleConns int           `envconfig:"WANTERIO_REDIS_MIN_IDLE_CONNS" default:"1"`
	DialTimeout  time.Duration `envconfig:"WANTERIO_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"WANTERIO_REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"WANTERIO_REDIS_WRITE_TIMEOUT" default:"3s"`
}

func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Address != ""
}

type JWTConfig struct {
	Secret            string `envconfig:"WANTERIO_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"WANTERIO_JWT_ISSUER" default:"wanterio"`
	ExpirationMinutes int    `envconfig:"WANTERIO_JWT_EXPIRATION_MINUTES" default:"60"`
}

// TTL returns the access token lifetime.
func (j JWTConfig) TTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"WANTERIO_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"WANTERIO_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"WANTERIO_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"WANTERIO_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"WANTERIO_ARGON_KEY_LEN" default:"32"`
	MinLength        int `envconfig:"WANTERIO_PASSWORD_MIN_LENGTH" default:"6"`
}

// StorageConfig selects where the client-local state (cart, auth token) lives.
type StorageConfig struct {
	Driver   string `envconfig:"WANTERIO_STORAGE_DRIVER" default:"file"`
	Dir      string `envconfig:"WANTERIO_STORAGE_DIR" default:".wanterio"`
	Profile  string `envconfig:"WANTERIO_STORAGE_PROFILE" default:"default"`
	MaxBytes int64  `envconfig:"WANTERIO_STORAGE_MAX_BYTES" default:"5242880"`
}

func (s StorageConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(s.Driver)) {
	case StorageDriverFile, StorageDriverRedis, StorageDriverMemory:
	default:
		return fmt.Errorf("unsupported storage driver %q", s.Driver)
	}
	if strings.TrimSpace(s.Profile) == "" {
		return fmt.Errorf("%s is required", EnvStorageProfile)
	}
	return nil
}

type BackendConfig struct {
	Timeout time.Duration `envconfig:"WANTERIO_BACKEND_TIMEOUT" default:"10s"`
}

type CartConfig struct {
	RemoteSync bool `envconfig:"WANTERIO_CART_REMOTE_SYNC" default:"true"`
}

// RateLimitConfig throttles the sign-in and sign-up endpoints. It is only
// enforced when Redis is configured.
type RateLimitConfig struct {
	Window     time.Duration `envconfig:"WANTERIO_AUTH_RATE_LIMIT_WINDOW" default:"1m"`
	IPLimit    int           `envconfig:"WANTERIO_AUTH_RATE_LIMIT_IP" default:"20"`
	EmailLimit int           `envconfig:"WANTERIO_AUTH_RATE_LIMIT_EMAIL" default:"5"`
}

// MaintenanceConfig drives the cron worker.
type MaintenanceConfig struct {
	Interval             time.Duration `envconfig:"WANTERIO_CRON_INTERVAL" default:"24h"`
	CartRetention        time.Duration `envconfig:"WANTERIO_CRON_CART_RETENTION" default:"720h"`
	AppointmentGraceDays int           `envconfig:"WANTERIO_CRON_APPOINTMENT_GRACE_DAYS" default:"1"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"WANTERIO_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"WANTERIO_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN(flags FeatureFlagsConfig) error {
	if db.DSN != "" || flags.UseSQLite {
		return nil
	}
	// Missing connection settings are a supported state: the app runs in demo mode.
	if db.Host == "" || db.User == "" || db.Name == "" {
		return nil
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
