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
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	CORS          CORSConfig
	GCP           GCPConfig
	GCS           GCSConfig
	Media         MediaConfig
	Sendgrid      SendgridConfig
	Cart          CartConfig
	Reconcile     ReconcileConfig
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
	Env           string `envconfig:"CIRCLEMART_APP_ENV" required:"true"`
	Port          string `envconfig:"CIRCLEMART_APP_PORT" required:"true"`
	LogLevel      string `envconfig:"CIRCLEMART_LOG_LEVEL" default:"info"`
	LogWarnStack  bool   `envconfig:"CIRCLEMART_LOG_WARN_STACK" default:"false"`
	PublicBaseURL string `envconfig:"CIRCLEMART_PUBLIC_BASE_URL" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev) || strings.EqualFold(a.Env, "development")
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type DBConfig struct {
	DSN    string `envconfig:"CIRCLEMART_DB_DSN"`
	Driver string `envconfig:"CIRCLEMART_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"CIRCLEMART_DB_HOST"`
	Port     int    `envconfig:"CIRCLEMART_DB_PORT" default:"5432"`
	User     string `envconfig:"CIRCLEMART_DB_USER"`
	Password string `envconfig:"CIRCLEMART_DB_PASSWORD"`
	Name     string `envconfig:"CIRCLEMART_DB_NAME"`
	SSLMode  string `envconfig:"CIRCLEMART_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CIRCLEMART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CIRCLEMART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CIRCLEMART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CIRCLEMART_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the embedded driver was selected.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"CIRCLEMART_REDIS_URL" required:"true"`
	Address      string        `envconfig:"CIRCLEMART_REDIS_ADDR"`
	Password     string        `envconfig:"CIRCLEMART_REDIS_PASSWORD"`
	DB           int           `envconfig:"CIRCLEMART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CIRCLEMART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CIRCLEMART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CIRCLEMART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CIRCLEMART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CIRCLEMART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"CIRCLEMART_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"CIRCLEMART_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"CIRCLEMART_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"CIRCLEMART_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"CIRCLEMART_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"CIRCLEMART_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"CIRCLEMART_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"CIRCLEMART_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"CIRCLEMART_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"CIRCLEMART_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"CIRCLEMART_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"CIRCLEMART_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"CIRCLEMART_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"CIRCLEMART_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"CIRCLEMART_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"CIRCLEMART_AUTO_MIGRATE" default:"false"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"CIRCLEMART_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"CIRCLEMART_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"CIRCLEMART_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"CIRCLEMART_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName    string `envconfig:"CIRCLEMART_GCS_BUCKET_NAME" required:"true"`
	PublicBaseURL string `envconfig:"CIRCLEMART_GCS_PUBLIC_BASE_URL" default:"https://storage.googleapis.com"`
	RootFolder    string `envconfig:"CIRCLEMART_GCS_ROOT_FOLDER" default:"circlemart"`
}

type MediaConfig struct {
	MaxUploadMB    int `envconfig:"CIRCLEMART_MAX_UPLOAD_MB" default:"10"`
	MaxGallerySize int `envconfig:"CIRCLEMART_MEDIA_MAX_GALLERY_SIZE" default:"10"`
}

// MaxUploadBytes returns the per-file limit in bytes.
func (m MediaConfig) MaxUploadBytes() int64 {
	if m.MaxUploadMB <= 0 {
		return 10 << 20
	}
	return int64(m.MaxUploadMB) << 20
}

type SendgridConfig struct {
	APIKey      string        `envconfig:"CIRCLEMART_SENDGRID_API_KEY"`
	DefaultFrom string        `envconfig:"CIRCLEMART_SENDGRID_FROM_EMAIL" default:"no-reply@circlemart.local"`
	FromName    string        `envconfig:"CIRCLEMART_SENDGRID_FROM_NAME" default:"CircleMart"`
	SendTimeout time.Duration `envconfig:"CIRCLEMART_SENDGRID_SEND_TIMEOUT" default:"10s"`
}

type CartConfig struct {
	DecrementStockOnApproval bool          `envconfig:"CIRCLEMART_CART_DECREMENT_STOCK_ON_APPROVAL" default:"false"`
	IdempotencyTTL           time.Duration `envconfig:"CIRCLEMART_CART_IDEMPOTENCY_TTL" default:"24h"`
}

type ReconcileConfig struct {
	Schedule string        `envconfig:"CIRCLEMART_RECONCILE_SCHEDULE" default:"*/15 * * * *"`
	LockTTL  time.Duration `envconfig:"CIRCLEMART_RECONCILE_LOCK_TTL" default:"10m"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		db.DSN = "file:circlemart.db?cache=shared"
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range discreteDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
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
