package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// EnvPrefix prefixes every environment override, e.g. REVIEWSENSE_SERVER_PORT
	EnvPrefix = "REVIEWSENSE"

	// ConfigPathEnv points at an optional YAML configuration file
	ConfigPathEnv = "REVIEWSENSE_CONFIG"
)

// Config holds the complete service configuration
type Config struct {
	Server     ServerConfig     `yaml:"server" env:"SERVER"`
	Log        LogConfig        `yaml:"log" env:"LOG"`
	Database   DatabaseConfig   `yaml:"database" env:"DATABASE"`
	Redis      RedisConfig      `yaml:"redis" env:"REDIS"`
	Classifier ClassifierConfig `yaml:"classifier" env:"CLASSIFIER"`
	Inference  InferenceConfig  `yaml:"inference" env:"INFERENCE"`
	Cache      CacheConfig      `yaml:"cache" env:"CACHE"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit" env:"RATE_LIMIT"`
	Dataset    DatasetConfig    `yaml:"dataset" env:"DATASET"`
	Metrics    MetricsConfig    `yaml:"metrics" env:"METRICS"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host            string        `yaml:"host" env:"HOST"`
	Port            int           `yaml:"port" env:"PORT"`
	Mode            string        `yaml:"mode" env:"MODE"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes" env:"MAX_UPLOAD_BYTES"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
	Output string `yaml:"output" env:"OUTPUT"`
}

// DatabaseConfig holds PostgreSQL settings
type DatabaseConfig struct {
	Enabled      bool   `yaml:"enabled" env:"ENABLED"`
	Host         string `yaml:"host" env:"HOST"`
	Port         int    `yaml:"port" env:"PORT"`
	User         string `yaml:"user" env:"USER"`
	Password     string `yaml:"password" env:"PASSWORD"`
	DBName       string `yaml:"dbname" env:"DBNAME"`
	SSLMode      string `yaml:"sslmode" env:"SSLMODE"`
	MaxIdleConns int    `yaml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	MaxOpenConns int    `yaml:"max_open_conns" env:"MAX_OPEN_CONNS"`
}

// RedisConfig holds Redis settings
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled" env:"ENABLED"`
	Host     string `yaml:"host" env:"HOST"`
	Port     int    `yaml:"port" env:"PORT"`
	Password string `yaml:"password" env:"PASSWORD"`
	DB       int    `yaml:"db" env:"DB"`
}

// Addr returns the host:port address of the Redis server
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// Classifier backends
const (
	ClassifierHTTP    = "http"
	ClassifierLexicon = "lexicon"
)

// ClassifierConfig selects and configures the classifier adapter
type ClassifierConfig struct {
	Backend           string        `yaml:"backend" env:"BACKEND"`
	URL               string        `yaml:"url" env:"URL"`
	Timeout           time.Duration `yaml:"timeout" env:"TIMEOUT"`
	ConcurrentSafe    bool          `yaml:"concurrent_safe" env:"CONCURRENT_SAFE"`
	MaxSequenceLength int           `yaml:"max_sequence_length" env:"MAX_SEQUENCE_LENGTH"`
	ModelName         string        `yaml:"model_name" env:"MODEL_NAME"`
}

// InferenceConfig holds batching and ingestion limits
type InferenceConfig struct {
	BatchSize     int `yaml:"batch_size" env:"BATCH_SIZE"`
	MaxTextLength int `yaml:"max_text_length" env:"MAX_TEXT_LENGTH"`
	ChunkSize     int `yaml:"chunk_size" env:"CHUNK_SIZE"`
}

// CacheConfig holds cache TTLs
type CacheConfig struct {
	MetricsTTL time.Duration `yaml:"metrics_ttl" env:"METRICS_TTL"`
	InfoTTL    time.Duration `yaml:"info_ttl" env:"INFO_TTL"`
}

// Rate limiter backends
const (
	RateLimitMemory = "memory"
	RateLimitRedis  = "redis"
)

// RateLimitConfig holds fixed-window admission settings
type RateLimitConfig struct {
	Backend        string        `yaml:"backend" env:"BACKEND"`
	Window         time.Duration `yaml:"window" env:"WINDOW"`
	DefaultLimit   int           `yaml:"default_limit" env:"DEFAULT_LIMIT"`
	InferenceLimit int           `yaml:"inference_limit" env:"INFERENCE_LIMIT"`
}

// Dataset providers
const (
	DatasetCSV      = "csv"
	DatasetPostgres = "postgres"
	DatasetDemo     = "demo"
)

// DatasetConfig selects where labelled data comes from
type DatasetConfig struct {
	Provider       string `yaml:"provider" env:"PROVIDER"`
	Dir            string `yaml:"dir" env:"DIR"`
	TrainFile      string `yaml:"train_file" env:"TRAIN_FILE"`
	ValidationFile string `yaml:"validation_file" env:"VALIDATION_FILE"`
	TestFile       string `yaml:"test_file" env:"TEST_FILE"`
	DemoFallback   bool   `yaml:"demo_fallback" env:"DEMO_FALLBACK"`
	SampleSize     int    `yaml:"sample_size" env:"SAMPLE_SIZE"`
	SampleSeed     int64  `yaml:"sample_seed" env:"SAMPLE_SEED"`
}

// MetricsConfig holds Prometheus settings
type MetricsConfig struct {
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
}

// Load builds the configuration from defaults, the optional YAML file and environment overrides
func Load() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv(ConfigPathEnv); path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(reflect.ValueOf(cfg).Elem(), EnvPrefix); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			Mode:            "debug",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    120 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxUploadBytes:  50 << 20,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Database: DatabaseConfig{
			Host:         "localhost",
			Port:         5432,
			User:         "reviewsense",
			Password:     "reviewsense",
			DBName:       "reviewsense",
			SSLMode:      "disable",
			MaxIdleConns: 10,
			MaxOpenConns: 100,
		},
		Redis: RedisConfig{
			Host: "localhost",
			Port: 6379,
		},
		Classifier: ClassifierConfig{
			Backend:           ClassifierHTTP,
			URL:               "http://localhost:8000",
			Timeout:           60 * time.Second,
			MaxSequenceLength: 256,
			ModelName:         "distilbert-base-uncased-sentiment",
		},
		Inference: InferenceConfig{
			BatchSize:     32,
			MaxTextLength: 10000,
			ChunkSize:     500,
		},
		Cache: CacheConfig{
			MetricsTTL: 600 * time.Second,
			InfoTTL:    3600 * time.Second,
		},
		RateLimit: RateLimitConfig{
			Backend:        RateLimitMemory,
			Window:         60 * time.Second,
			DefaultLimit:   60,
			InferenceLimit: 10,
		},
		Dataset: DatasetConfig{
			Provider:       DatasetCSV,
			Dir:            "data",
			TrainFile:      "train.csv",
			ValidationFile: "val_small.csv",
			TestFile:       "test.csv",
			SampleSize:     5,
			SampleSeed:     42,
		},
		Metrics: MetricsConfig{
			Namespace: "reviewsense",
		},
	}
}

// Validate rejects settings the service cannot run with
func (c *Config) Validate() error {
	var errs []error

	if c.Inference.BatchSize < 1 {
		errs = append(errs, errors.New("inference.batch_size must be positive"))
	}
	if c.Inference.ChunkSize < 1 {
		errs = append(errs, errors.New("inference.chunk_size must be positive"))
	}
	if c.Inference.MaxTextLength < 1 {
		errs = append(errs, errors.New("inference.max_text_length must be positive"))
	}
	if c.Cache.MetricsTTL <= 0 || c.Cache.InfoTTL <= 0 {
		errs = append(errs, errors.New("cache ttls must be positive"))
	}
	if c.RateLimit.Window <= 0 || c.RateLimit.DefaultLimit < 1 || c.RateLimit.InferenceLimit < 1 {
		errs = append(errs, errors.New("rate_limit window and limits must be positive"))
	}
	if c.Server.MaxUploadBytes < 1 {
		errs = append(errs, errors.New("server.max_upload_bytes must be positive"))
	}

	switch c.Classifier.Backend {
	case ClassifierHTTP, ClassifierLexicon:
	default:
		errs = append(errs, fmt.Errorf("unknown classifier.backend %q", c.Classifier.Backend))
	}
	switch c.RateLimit.Backend {
	case RateLimitMemory:
	case RateLimitRedis:
		if !c.Redis.Enabled {
			errs = append(errs, errors.New("rate_limit.backend redis requires redis.enabled"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown rate_limit.backend %q", c.RateLimit.Backend))
	}
	switch c.Dataset.Provider {
	case DatasetCSV, DatasetDemo:
	case DatasetPostgres:
		if !c.Database.Enabled {
			errs = append(errs, errors.New("dataset.provider postgres requires database.enabled"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown dataset.provider %q", c.Dataset.Provider))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

var durationType = reflect.TypeOf(time.Duration(0))

func applyEnv(v reflect.Value, prefix string) error {
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		tag := t.Field(i).Tag.Get("env")
		if tag == "" || tag == "-" {
			continue
		}

		key := prefix + "_" + tag
		if field.Kind() == reflect.Struct {
			if err := applyEnv(field, key); err != nil {
				return err
			}
			continue
		}

		raw, ok := os.LookupEnv(key)
		if !ok || raw == "" {
			continue
		}
		if err := setField(field, strings.TrimSpace(raw)); err != nil {
			return fmt.Errorf("invalid value for %s: %w", key, err)
		}
	}
	return nil
}

func setField(field reflect.Value, raw string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int64:
		if field.Type() == durationType {
			d, err := time.ParseDuration(raw)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
			return nil
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Float64:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)
	default:
		return fmt.Errorf("unsupported kind %s", field.Kind())
	}
	return nil
}
