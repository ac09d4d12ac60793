package config

import (
	"fmt"
	"time"

	"domainwatch/pkg/registry"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config represents the application configuration structure.
// It contains settings for the environment, logging, the ops HTTP server,
// database and cache connections, the registry client, the checker and the
// notification channels.
type Config struct {
	// Environment specifies the current running environment (development, production, etc.)
	Environment string `env:"ENVIRONMENT" env-default:"development" yaml:"environment"`

	Log struct {
		// File receives a copy of every log line. Empty disables file logging.
		File string `env:"LOG_FILE" env-default:"" yaml:"file"`
	} `yaml:"log"`

	// HTTP configures the ops server exposing metrics, health and pprof.
	HTTP struct {
		// Addr is the address and port the HTTP server will listen on
		Addr string `env:"HTTP_ADDR" env-default:":8080" yaml:"addr"`
		// ReadHeaderTimeout is the amount of time allowed to read request headers
		ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT" env-default:"10s" yaml:"readHeaderTimeout"`
		// WriteTimeout is the maximum duration before timing out writes of the response
		WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" env-default:"2m" yaml:"writeTimeout"`
		// IdleTimeout is the maximum amount of time to wait for the next request when keep-alives are enabled
		IdleTimeout time.Duration `env:"HTTP_IDLE_TIMEOUT" env-default:"2m" yaml:"idleTimeout"`
		// MetricsPath defines the URL path where metrics are exposed
		MetricsPath string `env:"HTTP_METRICS_PATH" env-default:"/metrics" yaml:"metricsPath"`
		// EnablePprof mounts net/http/pprof under /debug/pprof/
		EnablePprof bool `env:"HTTP_ENABLE_PPROF" env-default:"false" yaml:"enablePprof"`
	} `yaml:"http"`

	// Database contains all database connection related configurations
	Database struct {
		// Username for database authentication
		Username string `env:"DATABASE_USERNAME" env-default:"myuser" yaml:"username"`
		// Password for database authentication
		Password string `env:"DATABASE_PASSWORD" env-default:"mypassword" yaml:"password"`
		// Host is the database server hostname or IP address
		Host string `env:"DATABASE_HOST" env-default:"localhost" yaml:"host"`
		// Port is the database server port number
		Port int `env:"DATABASE_PORT" env-default:"5432" yaml:"port"`
		// SslMode defines the SSL mode for the database connection
		SslMode string `env:"DATABASE_SSL_MODE" env-default:"disable" yaml:"sslMode"`
		// DatabaseName is the name of the database to connect to
		DatabaseName string `env:"DATABASE_NAME" env-default:"domainwatch" yaml:"name"`
		// MaxOpenConnections limits the number of open connections to the database
		MaxOpenConnections int `env:"DATABASE_MAX_OPEN_CONNECTIONS" env-default:"10" yaml:"maxOpenConnections"`
		// MaxIdleConnections limits the number of connections in the idle connection pool
		MaxIdleConnections int `env:"DATABASE_MAX_IDLE_CONNECTIONS" env-default:"8" yaml:"maxIdleConnections"`
		// ConnMaxLifetime is the maximum amount of time a connection may be reused
		ConnMaxLifetime time.Duration `env:"DATABASE_CONNECTION_MAX_LIFETIME" env-default:"3m" yaml:"connMaxLifetime"`
		// ConnMaxIdleTime is the maximum amount of time a connection may be idle
		ConnMaxIdleTime time.Duration `env:"DATABASE_CONNECTION_MAX_IDLE_TIME" env-default:"3m" yaml:"connMaxIdleTime"`
	} `yaml:"database"`

	Redis struct {
		// URL of a Redis server sharing the registry route cache, e.g.
		// redis://localhost:6379/0. Empty keeps the cache in memory.
		URL string `env:"REDIS_URL" env-default:"" yaml:"url"`
	} `yaml:"redis"`

	Registry struct {
		// Timeout bounds a single WHOIS or RDAP query.
		Timeout time.Duration `env:"REGISTRY_TIMEOUT" env-default:"15s" yaml:"timeout"`
		// UserAgent is sent with RDAP and webhook requests.
		UserAgent string `env:"REGISTRY_USER_AGENT" env-default:"domainwatch/1.0" yaml:"userAgent"`
		// Overrides pin the route of a TLD and win over discovery.
		Overrides []registry.Route `yaml:"overrides"`
		// DisableBootstrap skips IANA RDAP bootstrap discovery.
		DisableBootstrap bool `env:"REGISTRY_DISABLE_BOOTSTRAP" env-default:"false" yaml:"disableBootstrap"`
	} `yaml:"registry"`

	Checker struct {
		// Thresholds are the days-left values that trigger an expiring notification.
		Thresholds []int `env:"CHECKER_THRESHOLDS" env-default:"30,14,7,3,1" yaml:"thresholds"`
		// ExpiringSoonWindow is how close to expiration a domain turns expiring_soon.
		ExpiringSoonWindow time.Duration `env:"CHECKER_EXPIRING_SOON_WINDOW" env-default:"720h" yaml:"expiringSoonWindow"`
		// MaxRetries is the number of retry passes after the main loop.
		MaxRetries int `env:"CHECKER_MAX_RETRIES" env-default:"3" yaml:"maxRetries"`
		// RetryDelays are waited before retry passes 2, 3 and so on (the last
		// entry repeats). Pass 1 starts right after the main loop.
		RetryDelays []time.Duration `env:"CHECKER_RETRY_DELAYS" env-default:"60s,120s" yaml:"retryDelays"`
		// GroupCooldown separates TLD groups inside a retry pass.
		GroupCooldown time.Duration `env:"CHECKER_GROUP_COOLDOWN" env-default:"5s" yaml:"groupCooldown"`
		// DomainPacing separates lookups against the same registry.
		DomainPacing time.Duration `env:"CHECKER_DOMAIN_PACING" env-default:"1s" yaml:"domainPacing"`
		// SuppressionWindow is how long a delivered notification type is not repeated.
		SuppressionWindow time.Duration `env:"CHECKER_SUPPRESSION_WINDOW" env-default:"23h" yaml:"suppressionWindow"`
		// MaxPreservedChecks bounds how many failed checks in a row keep a good
		// status before it turns error. 0 never forces it.
		MaxPreservedChecks int `env:"CHECKER_MAX_PRESERVED_CHECKS" env-default:"0" yaml:"maxPreservedChecks"`
		// Concurrency above 1 checks that many TLD groups in parallel.
		Concurrency int `env:"CHECKER_CONCURRENCY" env-default:"1" yaml:"concurrency"`
	} `yaml:"checker"`

	Notify struct {
		// Attempts per delivery, including the first.
		Attempts uint `env:"NOTIFY_ATTEMPTS" env-default:"3" yaml:"attempts"`
		// RetryDelay is the base backoff between delivery attempts.
		RetryDelay time.Duration `env:"NOTIFY_RETRY_DELAY" env-default:"2s" yaml:"retryDelay"`
		// Timeout bounds a single delivery request.
		Timeout time.Duration `env:"NOTIFY_TIMEOUT" env-default:"20s" yaml:"timeout"`
		// PushoverRetry and PushoverExpire tune emergency priority messages.
		PushoverRetry  time.Duration `env:"NOTIFY_PUSHOVER_RETRY" env-default:"60s" yaml:"pushoverRetry"`
		PushoverExpire time.Duration `env:"NOTIFY_PUSHOVER_EXPIRE" env-default:"1h" yaml:"pushoverExpire"`
	} `yaml:"notify"`

	Scheduler struct {
		// Interval between periodic check runs in serve mode.
		Interval time.Duration `env:"SCHEDULER_INTERVAL" env-default:"24h" yaml:"interval"`
		// RunOnStart enqueues a run as soon as the scheduler starts.
		RunOnStart bool `env:"SCHEDULER_RUN_ON_START" env-default:"true" yaml:"runOnStart"`
		// JobTimeout bounds a whole check run.
		JobTimeout time.Duration `env:"SCHEDULER_JOB_TIMEOUT" env-default:"6h" yaml:"jobTimeout"`
	} `yaml:"scheduler"`

	// GracefulShutdownTimeout is the maximum duration to wait for ongoing work to complete during shutdown
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_TIMEOUT" env-default:"30s" yaml:"gracefulShutdownTimeout"` //nolint: lll
}

// Load receives the path for yaml config file and returns a filled Config struct.
func Load(configPath string) (*Config, error) {
	var cfg Config
	err := cleanenv.ReadConfig(configPath, &cfg)
	if err != nil {
		return nil, fmt.Errorf("could not read config: %w", err)
	}

	return &cfg, nil
}

// LoadEnv fills a Config from environment variables and defaults only. It is
// used when the config file does not exist.
func LoadEnv() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("could not read config from env: %w", err)
	}

	return &cfg, nil
}
