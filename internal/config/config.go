package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bassista/go_gym/internal/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
)

const (
	envPrefix         = "GO_GYM"
	defaultConfigPath = "./config"
	defaultEnvFile    = ".env"

	// remoteCallsPerAppend is the longest remote chain of one append: a fetch,
	// a commit, then the refetch and commit of the single conflict retry.
	remoteCallsPerAppend = 4
)

// Config is the whole application configuration.
type Config struct {
	Server ServerConfig
	Data   DataConfig
	Remote RemoteConfig
	Misc   MiscConfig
}

type ServerConfig struct {
	Port               int
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
	ShutDownTimeout    time.Duration
	RequestTimeout     time.Duration
	CORSAllowedOrigins string
}

type DataConfig struct {
	// FilePath is the local fallback copy of the progress document.
	FilePath string
	// PlanFilePath points to the weekly plan YAML. Empty means built-in plan.
	PlanFilePath string
}

// RemoteConfig describes the repository file that holds the progress document.
type RemoteConfig struct {
	Token      string
	Owner      string
	Repo       string
	Branch     string
	Path       string
	APIBaseURL string
	Timeout    time.Duration
}

type MiscConfig struct {
	LogLevel string
	LogFile  string
	GinMode  string
}

// IsConfigured reports whether every input needed for remote sync is present.
func (r RemoteConfig) IsConfigured() bool {
	return r.Token != "" && r.Owner != "" && r.Repo != "" && r.Branch != "" && r.Path != ""
}

// AppendBudget is the worst-case time one append spends on the remote,
// each call being bounded by Timeout.
func (r RemoteConfig) AppendBudget() time.Duration {
	return remoteCallsPerAppend * r.Timeout
}

// LoadConfig reads .env, config.yaml and GO_GYM_* env vars, in increasing priority.
func LoadConfig() (*Config, error) {
	envFile := getEnvOrDefault("GO_GYM_ENV_FILE", defaultEnvFile)
	if err := godotenv.Load(envFile); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file %s: %w", envFile, err)
		}
		logger.WithComponent("config").Debugf("no env file at %s", envFile)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getEnvOrDefault("GO_GYM_CONFIG_PATH", defaultConfigPath))

	setDefaults(v)

	// Environment variables like GO_GYM_REMOTE_TOKEN override remote.token
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config file error: %w", err)
		}
		logger.WithComponent("config").Info("no config file found, using defaults and env vars")
	}

	port, err := getEnvOrViperPort(v, "PORT", "server.port")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:               port,
			ReadTimeout:        v.GetDuration("server.read_timeout"),
			WriteTimeout:       v.GetDuration("server.write_timeout"),
			IdleTimeout:        v.GetDuration("server.idle_timeout"),
			ShutDownTimeout:    v.GetDuration("server.shutdown_timeout"),
			RequestTimeout:     v.GetDuration("server.request_timeout"),
			CORSAllowedOrigins: v.GetString("server.cors_allowed_origins"),
		},
		Data: DataConfig{
			FilePath:     v.GetString("data.file_path"),
			PlanFilePath: v.GetString("data.plan_file_path"),
		},
		Remote: RemoteConfig{
			// GITHUB_TOKEN is accepted as well since that is where most people keep it.
			Token:      firstNonEmpty(v.GetString("remote.token"), os.Getenv("GITHUB_TOKEN")),
			Owner:      v.GetString("remote.owner"),
			Repo:       v.GetString("remote.repo"),
			Branch:     v.GetString("remote.branch"),
			Path:       v.GetString("remote.path"),
			APIBaseURL: strings.TrimRight(v.GetString("remote.api_base_url"), "/"),
			Timeout:    v.GetDuration("remote.timeout"),
		},
		Misc: MiscConfig{
			LogLevel: v.GetString("misc.log_level"),
			LogFile:  v.GetString("misc.log_file"),
			GinMode:  v.GetString("misc.gin_mode"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 70*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("server.request_timeout", 65*time.Second)
	v.SetDefault("server.cors_allowed_origins", "*")

	v.SetDefault("data.file_path", "gym_progress.json")
	v.SetDefault("data.plan_file_path", "")

	v.SetDefault("remote.token", "")
	v.SetDefault("remote.owner", "")
	v.SetDefault("remote.repo", "")
	v.SetDefault("remote.branch", "main")
	v.SetDefault("remote.path", "gym_progress.json")
	v.SetDefault("remote.api_base_url", "https://api.github.com")
	v.SetDefault("remote.timeout", 15*time.Second)

	v.SetDefault("misc.log_level", "info")
	v.SetDefault("misc.log_file", "")
	v.SetDefault("misc.gin_mode", "release")
}

func (c *Config) validate() error {
	var err error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		err = multierr.Append(err, fmt.Errorf("server port out of range: %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		err = multierr.Append(err, errors.New("server read timeout must be positive"))
	}
	if c.Server.WriteTimeout <= 0 {
		err = multierr.Append(err, errors.New("server write timeout must be positive"))
	}
	if c.Server.IdleTimeout <= 0 {
		err = multierr.Append(err, errors.New("server idle timeout must be positive"))
	}
	if c.Server.ShutDownTimeout <= 0 {
		err = multierr.Append(err, errors.New("server shutdown timeout must be positive"))
	}
	if c.Server.RequestTimeout <= 0 {
		err = multierr.Append(err, errors.New("server request timeout must be positive"))
	}
	if c.Data.FilePath == "" {
		err = multierr.Append(err, errors.New("data file path is required"))
	}
	if c.Remote.Timeout <= 0 {
		err = multierr.Append(err, errors.New("remote timeout must be positive"))
	}
	if c.Remote.APIBaseURL == "" {
		err = multierr.Append(err, errors.New("remote api base url is required"))
	}
	if c.Server.RequestTimeout > 0 && c.Remote.Timeout > 0 && c.Server.RequestTimeout < c.Remote.AppendBudget() {
		err = multierr.Append(err, fmt.Errorf("server request timeout %s is shorter than %d remote calls of %s",
			c.Server.RequestTimeout, remoteCallsPerAppend, c.Remote.Timeout))
	}
	if c.Server.WriteTimeout > 0 && c.Server.WriteTimeout < c.Server.RequestTimeout {
		err = multierr.Append(err, fmt.Errorf("server write timeout %s is shorter than request timeout %s",
			c.Server.WriteTimeout, c.Server.RequestTimeout))
	}
	return err
}

// getEnvOrDefault returns the env value for key, or def when unset or empty.
func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getEnvOrViperPort lets a bare env var (PORT on most PaaS) win over viper.
func getEnvOrViperPort(v *viper.Viper, envKey, viperKey string) (int, error) {
	if raw := os.Getenv(envKey); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil {
			return 0, fmt.Errorf("invalid %s %q: %w", envKey, raw, err)
		}
		return port, nil
	}
	return v.GetInt(viperKey), nil
}

func firstNonEmpty(values ...string) string {
	for _, s := range values {
		if s != "" {
			return s
		}
	}
	return ""
}
