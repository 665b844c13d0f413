package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Config captures the runtime configuration for the risk console service.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Upstream      UpstreamConfig      `mapstructure:"upstream"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Refresh       RefreshConfig       `mapstructure:"refresh"`
	Sessions      SessionConfig       `mapstructure:"sessions"`
	Scanner       ScannerConfig       `mapstructure:"scanner"`
	Cache         CacheConfig         `mapstructure:"cache"`
	Health        HealthConfig        `mapstructure:"health"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type ServerConfig struct {
	ListenAddr            string        `mapstructure:"listen_addr"`
	BodyLimitMB           int           `mapstructure:"body_limit_mb"`
	ReadTimeout           time.Duration `mapstructure:"read_timeout"`
	IdleTimeout           time.Duration `mapstructure:"idle_timeout"`
	GracefulShutdownDelay time.Duration `mapstructure:"graceful_shutdown_delay"`
}

// UpstreamConfig points the console at the remote risk API.
type UpstreamConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	RunMigrations   bool          `mapstructure:"run_migrations"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

type RedisConfig struct {
	URL      string `mapstructure:"url"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type AuthConfig struct {
	JWTSecret        string           `mapstructure:"jwt_secret"`
	SessionTTL       time.Duration    `mapstructure:"session_ttl"`
	CookieName       string           `mapstructure:"cookie_name"`
	LoginsPerMinute  int              `mapstructure:"logins_per_minute"`
	Operators        []OperatorConfig `mapstructure:"operators"`
}

// OperatorConfig declares one console operator with a pre-hashed credential.
type OperatorConfig struct {
	Email        string `mapstructure:"email"`
	Name         string `mapstructure:"name"`
	PasswordHash string `mapstructure:"password_hash"`
}

// RefreshConfig holds system defaults for per-view auto refresh. Operator
// preferences stored in redis take priority over these values.
type RefreshConfig struct {
	LeaderboardSeconds  int `mapstructure:"leaderboard_seconds"`
	IPMonitoringSeconds int `mapstructure:"ip_monitoring_seconds"`
}

type SessionConfig struct {
	IdleTimeout   time.Duration `mapstructure:"idle_timeout"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// ScannerConfig bounds the local connectivity probe for the AI scanner setup.
type ScannerConfig struct {
	ProbeTimeout time.Duration `mapstructure:"probe_timeout"`
	ProbePrompt  string        `mapstructure:"probe_prompt"`
}

type CacheConfig struct {
	LeaderboardTTL time.Duration `mapstructure:"leaderboard_ttl"`
}

type HealthConfig struct {
	CheckInterval time.Duration `mapstructure:"check_interval"`
	ProbeTimeout  time.Duration `mapstructure:"probe_timeout"`
}

type ObservabilityConfig struct {
	EnableOTLP    bool   `mapstructure:"enable_otlp"`
	EnableMetrics bool   `mapstructure:"enable_metrics"`
	OTLPEndpoint  string `mapstructure:"otlp_endpoint"`
}

// Options tweak configuration loading, primarily for tests.
type Options struct {
	ConfigFile string
	EnvFile    string
}

// Load returns the merged configuration sourced from YAML and environment variables.
func Load(opts Options) (*Config, error) {
	if opts.EnvFile != "" {
		_ = godotenv.Load(opts.EnvFile)
	} else {
		_ = godotenv.Load()
	}

	v := viper.New()
	setDefaults(v)

	explicitFile := false
	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		explicitFile = true
	} else {
		if cfg := os.Getenv("CONSOLE_CONFIG_FILE"); cfg != "" {
			v.SetConfigFile(cfg)
			explicitFile = true
		}
	}

	if !explicitFile {
		// Allow standard lookup locations when no explicit file is provided.
		v.SetConfigName("console")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix("CONSOLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(timeStringToDurationHook())); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate ensures required values are set and folds in fallbacks.
func (c *Config) Validate() error {
	var missing []string

	if strings.TrimSpace(c.Upstream.BaseURL) == "" {
		missing = append(missing, "CONSOLE_UPSTREAM_BASE_URL")
	}
	if strings.TrimSpace(c.Redis.URL) == "" {
		missing = append(missing, "CONSOLE_REDIS_URL")
	}
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		missing = append(missing, "CONSOLE_AUTH_JWT_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	if c.Database.RunMigrations && c.Database.URL == "" {
		return fmt.Errorf("database.url must be provided when run_migrations is true")
	}
	if c.Database.MaxConns < 0 {
		return fmt.Errorf("database.max_conns must be >= 0")
	}
	if c.Redis.PoolSize < 0 {
		return fmt.Errorf("redis.pool_size must be >= 0")
	}
	if c.Refresh.LeaderboardSeconds < 0 || c.Refresh.IPMonitoringSeconds < 0 {
		return fmt.Errorf("refresh intervals must be >= 0")
	}
	if c.Auth.SessionTTL <= 0 {
		c.Auth.SessionTTL = 12 * time.Hour
	}
	if c.Auth.LoginsPerMinute <= 0 {
		c.Auth.LoginsPerMinute = 10
	}
	for i, op := range c.Auth.Operators {
		if strings.TrimSpace(op.Email) == "" {
			return fmt.Errorf("auth.operators[%d].email is required", i)
		}
		if strings.TrimSpace(op.PasswordHash) == "" {
			return fmt.Errorf("auth.operators[%d].password_hash is required", i)
		}
	}
	if c.Upstream.Timeout <= 0 {
		c.Upstream.Timeout = 30 * time.Second
	}
	if c.Sessions.IdleTimeout <= 0 {
		c.Sessions.IdleTimeout = 30 * time.Minute
	}
	if c.Sessions.SweepInterval <= 0 {
		c.Sessions.SweepInterval = time.Minute
	}
	if c.Scanner.ProbeTimeout <= 0 {
		c.Scanner.ProbeTimeout = 15 * time.Second
	}
	if c.Cache.LeaderboardTTL <= 0 {
		c.Cache.LeaderboardTTL = 30 * time.Second
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.listen_addr", ":8090")
	v.SetDefault("server.body_limit_mb", 4)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.graceful_shutdown_delay", "5s")

	v.SetDefault("upstream.timeout", "30s")

	v.SetDefault("database.run_migrations", false)

	v.SetDefault("auth.session_ttl", "12h")
	v.SetDefault("auth.cookie_name", "risk_console_session")
	v.SetDefault("auth.logins_per_minute", 10)

	v.SetDefault("refresh.leaderboard_seconds", 60)
	v.SetDefault("refresh.ip_monitoring_seconds", 60)

	v.SetDefault("sessions.idle_timeout", "30m")
	v.SetDefault("sessions.sweep_interval", "1m")

	v.SetDefault("scanner.probe_timeout", "15s")
	v.SetDefault("scanner.probe_prompt", "Reply with the single word pong.")

	v.SetDefault("cache.leaderboard_ttl", "30s")

	v.SetDefault("health.check_interval", "60s")
	v.SetDefault("health.probe_timeout", "5s")

	v.SetDefault("observability.enable_otlp", false)
	v.SetDefault("observability.enable_metrics", true)
	v.SetDefault("observability.otlp_endpoint", "http://localhost:4317")
}

func timeStringToDurationHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case time.Duration:
			return v, nil
		case string:
			d, err := time.ParseDuration(v)
			if err != nil {
				return nil, err
			}
			return d, nil
		default:
			return nil, fmt.Errorf("cannot decode %T into time.Duration", data)
		}
	}
}
