package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Artifacts  ArtifactsConfig
	Sampler    SamplerConfig
	Kubernetes KubernetesConfig
	Catalog    CatalogConfig
	Logger     LoggerConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DSN returns the postgres connection string
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

// ArtifactsConfig locates the emulator artifact store on disk
type ArtifactsConfig struct {
	Dir   string
	Watch bool
}

// SamplerConfig sets the defaults applied to runs that do not override them,
// and bounds the in-process run pool
type SamplerConfig struct {
	Workers   int
	NLive     int
	Walks     int
	DLogZ     float64
	LogLScale float64
}

// KubernetesConfig enables offloading sampling runs to cluster jobs
type KubernetesConfig struct {
	Enabled        bool
	InCluster      bool
	KubeConfigPath string
	Namespace      string
	WorkerImage    string
	JobTTLSeconds  int
}

// CatalogConfig points at the external star observation catalog
type CatalogConfig struct {
	Enabled bool
	URL     string
	Timeout time.Duration
}

type LoggerConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "pitchfork")
	v.SetDefault("DB_PASSWORD", "pitchfork")
	v.SetDefault("DB_NAME", "pitchfork")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 2)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "30m")

	v.SetDefault("ARTIFACTS_DIR", "./artifacts")
	v.SetDefault("ARTIFACTS_WATCH", true)

	v.SetDefault("SAMPLER_WORKERS", 2)
	v.SetDefault("SAMPLER_NLIVE", 500)
	v.SetDefault("SAMPLER_WALKS", 25)
	v.SetDefault("SAMPLER_DLOGZ", 0.01)
	v.SetDefault("SAMPLER_LOGL_SCALE", 0.001)

	v.SetDefault("KUBERNETES_ENABLED", false)
	v.SetDefault("KUBERNETES_IN_CLUSTER", false)
	v.SetDefault("KUBERNETES_KUBECONFIG", "")
	v.SetDefault("KUBERNETES_NAMESPACE", "pitchfork")
	v.SetDefault("KUBERNETES_WORKER_IMAGE", "ghcr.io/ojscutt/sl-pitchfork:latest")
	v.SetDefault("KUBERNETES_JOB_TTL_SECONDS", 3600)

	v.SetDefault("CATALOG_ENABLED", false)
	v.SetDefault("CATALOG_URL", "http://localhost:8085")
	v.SetDefault("CATALOG_TIMEOUT", "30s")

	v.SetDefault("LOGGER_LEVEL", "info")
	v.SetDefault("LOGGER_FORMAT", "json")

	// Env
	v.AutomaticEnv()

	connLifetime, err := time.ParseDuration(v.GetString("DB_CONN_MAX_LIFETIME"))
	if err != nil {
		connLifetime = 30 * time.Minute
	}
	catalogTimeout, err := time.ParseDuration(v.GetString("CATALOG_TIMEOUT"))
	if err != nil {
		catalogTimeout = 30 * time.Second
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: v.GetString("SERVER_HOST"),
			Port: v.GetInt("SERVER_PORT"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("DB_HOST"),
			Port:            v.GetInt("DB_PORT"),
			User:            v.GetString("DB_USER"),
			Password:        v.GetString("DB_PASSWORD"),
			Name:            v.GetString("DB_NAME"),
			SSLMode:         v.GetString("DB_SSLMODE"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: connLifetime,
		},
		Artifacts: ArtifactsConfig{
			Dir:   v.GetString("ARTIFACTS_DIR"),
			Watch: v.GetBool("ARTIFACTS_WATCH"),
		},
		Sampler: SamplerConfig{
			Workers:   v.GetInt("SAMPLER_WORKERS"),
			NLive:     v.GetInt("SAMPLER_NLIVE"),
			Walks:     v.GetInt("SAMPLER_WALKS"),
			DLogZ:     v.GetFloat64("SAMPLER_DLOGZ"),
			LogLScale: v.GetFloat64("SAMPLER_LOGL_SCALE"),
		},
		Kubernetes: KubernetesConfig{
			Enabled:        v.GetBool("KUBERNETES_ENABLED"),
			InCluster:      v.GetBool("KUBERNETES_IN_CLUSTER"),
			KubeConfigPath: v.GetString("KUBERNETES_KUBECONFIG"),
			Namespace:      v.GetString("KUBERNETES_NAMESPACE"),
			WorkerImage:    v.GetString("KUBERNETES_WORKER_IMAGE"),
			JobTTLSeconds:  v.GetInt("KUBERNETES_JOB_TTL_SECONDS"),
		},
		Catalog: CatalogConfig{
			Enabled: v.GetBool("CATALOG_ENABLED"),
			URL:     v.GetString("CATALOG_URL"),
			Timeout: catalogTimeout,
		},
		Logger: LoggerConfig{
			Level:  v.GetString("LOGGER_LEVEL"),
			Format: v.GetString("LOGGER_FORMAT"),
		},
	}

	return cfg, nil
}
