// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Corpus, Index, Query, Postgres, Kafka, Redis, etc.).
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Corpus source kinds.
const (
	SourceDir      = "dir"
	SourcePostgres = "postgres"
	SourceKafka    = "kafka"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Corpus   CorpusConfig   `yaml:"corpus"`
	Index    IndexConfig    `yaml:"index"`
	Query    QueryConfig    `yaml:"query"`
	Postgres PostgresConfig `yaml:"postgres"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`

	// CORSOrigins lists browser origins allowed to call the API; "*" allows
	// any. Empty disables CORS headers.
	CORSOrigins []string `yaml:"corsOrigins"`
}

// CorpusConfig selects where documents come from.
type CorpusConfig struct {
	Source   string        `yaml:"source"`
	Dir      string        `yaml:"dir"`
	Watch    bool          `yaml:"watch"`
	Debounce time.Duration `yaml:"debounce"`
}

// IndexConfig controls how the inverted index is built.
type IndexConfig struct {
	Workers            int           `yaml:"workers"`
	BuildTimeoutPerDoc time.Duration `yaml:"buildTimeoutPerDoc"`
	MinBuildTimeout    time.Duration `yaml:"minBuildTimeout"`
}

// BuildTimeout returns the deadline for building an index over docCount
// documents.
func (c IndexConfig) BuildTimeout(docCount int) time.Duration {
	if c.BuildTimeoutPerDoc <= 0 && c.MinBuildTimeout <= 0 {
		return 0
	}
	timeout := time.Duration(docCount) * c.BuildTimeoutPerDoc
	if timeout < c.MinBuildTimeout {
		timeout = c.MinBuildTimeout
	}
	return timeout
}

// QueryConfig holds query defaults.
type QueryConfig struct {
	DefaultProximity int `yaml:"defaultProximity"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	Documents string `yaml:"documents"`
}

// RedisConfig holds Redis connection and caching parameters. An empty Addr
// disables the result cache.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load starts from the defaults, overlays the YAML file at path when path is
// non-empty, then applies IR_* environment overrides and validates the
// result. Unknown YAML keys are an error.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		if err := decodeFile(path, cfg); err != nil {
			return nil, err
		}
	}
	if err := applyEnvOverrides(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

// Default returns the built-in configuration without reading any file or
// environment variable.
func Default() *Config {
	return defaultConfig()
}

// Validate reports every setting the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}
	switch c.Corpus.Source {
	case SourceDir:
		check(c.Corpus.Dir != "", "corpus.dir is required for source %q", SourceDir)
	case SourceKafka:
		check(c.Kafka.Topics.Documents != "", "kafka.topics.documents is required for source %q", SourceKafka)
		check(len(c.Kafka.Brokers) > 0, "kafka.brokers is required for source %q", SourceKafka)
	case SourcePostgres:
	default:
		check(false, "unknown corpus source %q", c.Corpus.Source)
	}
	check(c.Index.Workers >= 0, "index.workers must not be negative, got %d", c.Index.Workers)
	check(c.Index.BuildTimeoutPerDoc >= 0 && c.Index.MinBuildTimeout >= 0, "index build timeouts must not be negative")
	check(c.Query.DefaultProximity >= 0, "query.defaultProximity must not be negative, got %d", c.Query.DefaultProximity)
	return errors.Join(errs...)
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Corpus: CorpusConfig{
			Source:   SourceDir,
			Dir:      "data",
			Watch:    true,
			Debounce: 400 * time.Millisecond,
		},
		Index: IndexConfig{
			Workers:            4,
			BuildTimeoutPerDoc: 10 * time.Millisecond,
			MinBuildTimeout:    5 * time.Second,
		},
		Query: QueryConfig{
			DefaultProximity: 1,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "retrieval",
			User:            "retrieval",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "retrieval-group",
			Topics: KafkaTopics{
				Documents: "corpus-documents",
			},
		},
		Redis: RedisConfig{
			Addr:     "",
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// envBinding copies one IR_* variable into a config field.
type envBinding struct {
	name string
	set  func(v string) error
}

func str(dst *string) func(string) error {
	return func(v string) error { *dst = v; return nil }
}

func list(dst *[]string) func(string) error {
	return func(v string) error { *dst = strings.Split(v, ","); return nil }
}

func integer(dst *int) func(string) error {
	return func(v string) error {
		n, err := strconv.Atoi(v)
		if err == nil {
			*dst = n
		}
		return err
	}
}

func boolean(dst *bool) func(string) error {
	return func(v string) error {
		b, err := strconv.ParseBool(v)
		if err == nil {
			*dst = b
		}
		return err
	}
}

func (c *Config) envBindings() []envBinding {
	return []envBinding{
		{"IR_SERVER_PORT", integer(&c.Server.Port)},
		{"IR_SERVER_CORS_ORIGINS", list(&c.Server.CORSOrigins)},
		{"IR_CORPUS_SOURCE", str(&c.Corpus.Source)},
		{"IR_CORPUS_DIR", str(&c.Corpus.Dir)},
		{"IR_CORPUS_WATCH", boolean(&c.Corpus.Watch)},
		{"IR_INDEX_WORKERS", integer(&c.Index.Workers)},
		{"IR_QUERY_DEFAULT_PROXIMITY", integer(&c.Query.DefaultProximity)},
		{"IR_POSTGRES_HOST", str(&c.Postgres.Host)},
		{"IR_POSTGRES_PORT", integer(&c.Postgres.Port)},
		{"IR_POSTGRES_DATABASE", str(&c.Postgres.Database)},
		{"IR_POSTGRES_USER", str(&c.Postgres.User)},
		{"IR_POSTGRES_PASSWORD", str(&c.Postgres.Password)},
		{"IR_POSTGRES_SSLMODE", str(&c.Postgres.SSLMode)},
		{"IR_KAFKA_BROKERS", list(&c.Kafka.Brokers)},
		{"IR_KAFKA_TOPIC_DOCUMENTS", str(&c.Kafka.Topics.Documents)},
		{"IR_REDIS_ADDR", str(&c.Redis.Addr)},
		{"IR_REDIS_PASSWORD", str(&c.Redis.Password)},
		{"IR_LOGGING_LEVEL", str(&c.Logging.Level)},
		{"IR_LOGGING_FORMAT", str(&c.Logging.Format)},
	}
}

// applyEnvOverrides sets every bound field whose variable is non-empty. A
// value that does not parse is an error naming the variable.
func applyEnvOverrides(cfg *Config, lookup func(string) (string, bool)) error {
	var errs []error
	for _, b := range cfg.envBindings() {
		v, ok := lookup(b.name)
		if !ok || v == "" {
			continue
		}
		if err := b.set(v); err != nil {
			errs = append(errs, fmt.Errorf("%s=%q: %w", b.name, v, err))
		}
	}
	return errors.Join(errs...)
}
