package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultModelVersion is the Replicate IDM-VTON model version used for 2D try-on.
const DefaultModelVersion = "0513734a452173b8173e907e3a59d19a36266e55b48528559432bd21c7d7e985"

// DefaultDependencyCheck is the snippet run by the interpreter before PIFuHD is spawned.
const DefaultDependencyCheck = `import torch, cv2, trimesh, numpy, dill; print("Dependencies OK")`

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	Replicate ReplicateConfig
	PIFuHD    PIFuHDConfig
	Storage   StorageConfig
	R2        R2Config
	RateLimit RateLimitConfig
	Cleanup   CleanupConfig
	History   HistoryConfig
}

type ServerConfig struct {
	Port              string `validate:"required"`
	Env               string `validate:"required"`
	LogLevel          string
	ApiDomain         string
	BodyLimitMB       int           `validate:"gte=1"`
	RequestTimeout    time.Duration `validate:"gt=0"`
	ExposeDiagnostics bool
}

type RedisConfig struct {
	Addr     string `validate:"required"`
	Password string
	DB       int
}

// ReplicateConfig configures the remote prediction executor. APIToken is
// sent as a bearer token; an empty token leaves the 2D flow unconfigured.
// SubmitRetries is opt-in: creation is not idempotent, so 0 means a single
// failed create ends the request.
type ReplicateConfig struct {
	APIToken      string
	BaseURL       string `validate:"required,url"`
	ModelVersion  string `validate:"required"`
	Category      string `validate:"required,oneof=upper_body lower_body dresses"`
	PollInterval  time.Duration `validate:"gt=0"`
	MaxWait       time.Duration `validate:"gt=0"`
	SubmitRetries int           `validate:"gte=0"`
}

// PIFuHDConfig configures the local-process executor. PythonPath overrides
// the interpreter used for both the dependency check and the script.
type PIFuHDConfig struct {
	PythonPath      string `validate:"required"`
	ScriptPath      string `validate:"required"`
	DependencyCheck string
}

type StorageConfig struct {
	UploadDir      string `validate:"required"`
	ModelsDir      string `validate:"required"`
	ModelsBasePath string `validate:"required,startswith=/"`
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicURL       string
}

type RateLimitConfig struct {
	TryOnPerHour       int `validate:"gte=0"`
	ReconstructPerHour int `validate:"gte=0"`
}

type CleanupConfig struct {
	UploadRetention time.Duration `validate:"gte=0"`
}

type HistoryConfig struct {
	MaxItems int `validate:"gte=1"`
	TTL      time.Duration
}

// IsProduction reports whether the service runs outside development.
func (c *Config) IsProduction() bool {
	return !strings.EqualFold(c.Server.Env, "development")
}

// Validate checks the loaded configuration for values the service cannot run with.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func Load() (*Config, error) {
	// Optional .env for local development; real env vars take precedence
	_ = godotenv.Load()

	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("REPLICATE_API_TOKEN")
	readSecret("R2_ACCOUNT_ID")
	readSecret("R2_ACCESS_KEY_ID")
	readSecret("R2_SECRET_ACCESS_KEY")

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.AutomaticEnv()

	// Bind environment variables with underscores to nested config keys
	_ = v.BindEnv("server.port", "SERVER_PORT")
	_ = v.BindEnv("server.env", "SERVER_ENV")
	_ = v.BindEnv("server.log_level", "LOG_LEVEL")
	_ = v.BindEnv("server.api_domain", "API_DOMAIN")
	_ = v.BindEnv("server.body_limit_mb", "BODY_LIMIT_MB")
	_ = v.BindEnv("server.request_timeout_seconds", "REQUEST_TIMEOUT_SECONDS")
	_ = v.BindEnv("server.expose_diagnostics", "EXPOSE_DIAGNOSTICS")
	_ = v.BindEnv("redis.addr", "REDIS_ADDR")
	_ = v.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = v.BindEnv("redis.db", "REDIS_DB")
	_ = v.BindEnv("replicate.api_token", "REPLICATE_API_TOKEN")
	_ = v.BindEnv("replicate.base_url", "REPLICATE_BASE_URL")
	_ = v.BindEnv("replicate.model_version", "REPLICATE_MODEL_VERSION")
	_ = v.BindEnv("replicate.category", "REPLICATE_CATEGORY")
	_ = v.BindEnv("replicate.poll_interval_ms", "REPLICATE_POLL_INTERVAL_MS")
	_ = v.BindEnv("replicate.max_wait_seconds", "REPLICATE_MAX_WAIT_SECONDS")
	_ = v.BindEnv("replicate.submit_retries", "REPLICATE_SUBMIT_RETRIES")
	_ = v.BindEnv("pifuhd.python_path", "PYTHON_PATH")
	_ = v.BindEnv("pifuhd.script_path", "PIFUHD_SCRIPT_PATH")
	_ = v.BindEnv("pifuhd.dependency_check", "PIFUHD_DEPENDENCY_CHECK")
	_ = v.BindEnv("storage.upload_dir", "UPLOAD_DIR")
	_ = v.BindEnv("storage.models_dir", "MODELS_DIR")
	_ = v.BindEnv("storage.models_base_path", "MODELS_BASE_PATH")
	_ = v.BindEnv("r2.account_id", "R2_ACCOUNT_ID")
	_ = v.BindEnv("r2.access_key_id", "R2_ACCESS_KEY_ID")
	_ = v.BindEnv("r2.secret_access_key", "R2_SECRET_ACCESS_KEY")
	_ = v.BindEnv("r2.bucket_name", "R2_BUCKET_NAME")
	_ = v.BindEnv("r2.public_url", "R2_PUBLIC_URL")
	_ = v.BindEnv("ratelimit.tryon_per_hour", "RATELIMIT_TRYON_PER_HOUR")
	_ = v.BindEnv("ratelimit.reconstruct_per_hour", "RATELIMIT_RECONSTRUCT_PER_HOUR")
	_ = v.BindEnv("cleanup.upload_retention_hours", "UPLOAD_RETENTION_HOURS")
	_ = v.BindEnv("history.max_items", "HISTORY_MAX_ITEMS")
	_ = v.BindEnv("history.ttl_hours", "HISTORY_TTL_HOURS")

	// Defaults
	v.SetDefault("server.port", "3000")
	v.SetDefault("server.env", "development")
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.body_limit_mb", 25)
	v.SetDefault("server.request_timeout_seconds", 900)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// Replicate defaults
	v.SetDefault("replicate.base_url", "https://api.replicate.com/v1")
	v.SetDefault("replicate.model_version", DefaultModelVersion)
	v.SetDefault("replicate.category", "upper_body")
	v.SetDefault("replicate.poll_interval_ms", 2000)
	v.SetDefault("replicate.max_wait_seconds", 600)
	v.SetDefault("replicate.submit_retries", 0)

	// PIFuHD defaults
	v.SetDefault("pifuhd.python_path", "python")
	v.SetDefault("pifuhd.script_path", "pifuhd/run_pifuhd.py")
	v.SetDefault("pifuhd.dependency_check", DefaultDependencyCheck)

	// Storage defaults mirror the public/ layout served as static files
	v.SetDefault("storage.upload_dir", "public/uploads")
	v.SetDefault("storage.models_dir", "public/models")
	v.SetDefault("storage.models_base_path", "/models")

	v.SetDefault("ratelimit.tryon_per_hour", 30)
	v.SetDefault("ratelimit.reconstruct_per_hour", 10)
	v.SetDefault("cleanup.upload_retention_hours", 24)
	v.SetDefault("history.max_items", 50)
	v.SetDefault("history.ttl_hours", 720)

	// Try to read config file (optional)
	_ = v.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:              v.GetString("server.port"),
			Env:               v.GetString("server.env"),
			LogLevel:          v.GetString("server.log_level"),
			ApiDomain:         v.GetString("server.api_domain"),
			BodyLimitMB:       v.GetInt("server.body_limit_mb"),
			RequestTimeout:    time.Duration(v.GetInt("server.request_timeout_seconds")) * time.Second,
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Replicate: ReplicateConfig{
			APIToken:      v.GetString("replicate.api_token"),
			BaseURL:       strings.TrimRight(v.GetString("replicate.base_url"), "/"),
			ModelVersion:  v.GetString("replicate.model_version"),
			Category:      v.GetString("replicate.category"),
			PollInterval:  time.Duration(v.GetInt("replicate.poll_interval_ms")) * time.Millisecond,
			MaxWait:       time.Duration(v.GetInt("replicate.max_wait_seconds")) * time.Second,
			SubmitRetries: v.GetInt("replicate.submit_retries"),
		},
		PIFuHD: PIFuHDConfig{
			PythonPath:      v.GetString("pifuhd.python_path"),
			ScriptPath:      v.GetString("pifuhd.script_path"),
			DependencyCheck: v.GetString("pifuhd.dependency_check"),
		},
		Storage: StorageConfig{
			UploadDir:      v.GetString("storage.upload_dir"),
			ModelsDir:      v.GetString("storage.models_dir"),
			ModelsBasePath: strings.TrimRight(v.GetString("storage.models_base_path"), "/"),
		},
		R2: R2Config{
			AccountID:       v.GetString("r2.account_id"),
			AccessKeyID:     v.GetString("r2.access_key_id"),
			SecretAccessKey: v.GetString("r2.secret_access_key"),
			BucketName:      v.GetString("r2.bucket_name"),
			PublicURL:       v.GetString("r2.public_url"),
		},
		RateLimit: RateLimitConfig{
			TryOnPerHour:       v.GetInt("ratelimit.tryon_per_hour"),
			ReconstructPerHour: v.GetInt("ratelimit.reconstruct_per_hour"),
		},
		Cleanup: CleanupConfig{
			UploadRetention: time.Duration(v.GetInt("cleanup.upload_retention_hours")) * time.Hour,
		},
		History: HistoryConfig{
			MaxItems: v.GetInt("history.max_items"),
			TTL:      time.Duration(v.GetInt("history.ttl_hours")) * time.Hour,
		},
	}

	// Diagnostics follow the environment unless set explicitly
	cfg.Server.ExposeDiagnostics = !cfg.IsProduction()
	if v.IsSet("server.expose_diagnostics") {
		cfg.Server.ExposeDiagnostics = v.GetBool("server.expose_diagnostics")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
