package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"kujisan/application/ports"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Branch sources
const (
	SourceSanity   = "sanity"
	SourceDynamoDB = "dynamodb"
	SourceFixture  = "fixture"
)

// Branch cache modes
const (
	BranchCacheRefetch = "refetch"
	BranchCacheCache   = "cache"
)


// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Address         string        `yaml:"address" validate:"required"`
	ReadTimeout     time.Duration `yaml:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gt=0"`
}

// AWSConfig holds AWS resource names
type AWSConfig struct {
	Region        string `yaml:"region"`
	DynamoDBTable string `yaml:"dynamodb_table"`
	RootIndexName string `yaml:"root_index_name"`
	EventBusName  string `yaml:"event_bus_name"`
	Endpoint      string `yaml:"endpoint"`
}

// CMSConfig holds the headless CMS query API settings
type CMSConfig struct {
	ProjectID        string        `yaml:"project_id"`
	Dataset          string        `yaml:"dataset" validate:"required"`
	APIVersion       string        `yaml:"api_version" validate:"required"`
	Token            string        `yaml:"token"`
	UseCDN           bool          `yaml:"use_cdn"`
	BaseURL          string        `yaml:"base_url"`
	Timeout          time.Duration `yaml:"timeout" validate:"gt=0"`
	MaxRetries       int           `yaml:"max_retries" validate:"gte=0,lte=10"`
	RetryBackoff     time.Duration `yaml:"retry_backoff" validate:"gte=0"`
	BreakerFailures  uint32        `yaml:"breaker_failures" validate:"gte=1"`
	BreakerOpenDelay time.Duration `yaml:"breaker_open_delay" validate:"gt=0"`
}

// SourceConfig selects the branch fetcher
type SourceConfig struct {
	Kind        string `yaml:"kind" validate:"oneof=sanity dynamodb fixture"`
	FixturePath string `yaml:"fixture_path"`
}

// TreeConfig holds tree session behaviour
type TreeConfig struct {
	BranchCache     string        `yaml:"branch_cache" validate:"oneof=refetch cache"`
	BranchCacheTTL  time.Duration `yaml:"branch_cache_ttl" validate:"gte=0"`
	BranchCacheSize int           `yaml:"branch_cache_size" validate:"gte=1"`
	SessionTTL      time.Duration `yaml:"session_ttl" validate:"gt=0"`
	MaxSessions     int           `yaml:"max_sessions" validate:"gte=1"`
	FetchTimeout    time.Duration `yaml:"fetch_timeout" validate:"gt=0"`
}

// FeaturesConfig holds feature flags
type FeaturesConfig struct {
	EnableMetrics bool     `yaml:"enable_metrics"`
	EnableTracing bool     `yaml:"enable_tracing"`
	EnableEvents  bool     `yaml:"enable_events"`
	EnableCORS    bool     `yaml:"enable_cors"`
	CORSOrigins   []string `yaml:"cors_origins"`
}

// Config holds all application configuration
type Config struct {
	Environment     string               `yaml:"environment" validate:"oneof=development staging production test"`
	LogLevel        string               `yaml:"log_level" validate:"oneof=debug info warn error"`
	ServiceName     string               `yaml:"service_name" validate:"required"`
	TracingEndpoint string               `yaml:"tracing_endpoint"`
	IsLambda        bool                 `yaml:"-"`
	Server          ServerConfig         `yaml:"server"`
	AWS             AWSConfig            `yaml:"aws"`
	CMS             CMSConfig            `yaml:"cms"`
	Source          SourceConfig         `yaml:"source"`
	Tree            TreeConfig           `yaml:"tree"`
	Layout          ports.LayoutSettings `yaml:"layout"`
	Features        FeaturesConfig       `yaml:"features"`

	// LoadedFrom lists the sources applied, lowest priority first
	LoadedFrom []string `yaml:"-"`
}

// Default returns the configuration used when nothing else is set
func Default() *Config {
	return &Config{
		Environment: "development",
		LogLevel:    "info",
		ServiceName: "kujisan-tree",
		Server: ServerConfig{
			Address:         ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		AWS: AWSConfig{
			Region:        "us-east-1",
			DynamoDBTable: "kujisan",
			RootIndexName: "GenerationIndex",
			EventBusName:  "kujisan-events",
		},
		CMS: CMSConfig{
			Dataset:          "production",
			APIVersion:       "2023-05-03",
			UseCDN:           false,
			Timeout:          10 * time.Second,
			MaxRetries:       2,
			RetryBackoff:     200 * time.Millisecond,
			BreakerFailures:  5,
			BreakerOpenDelay: 30 * time.Second,
		},
		Source: SourceConfig{
			Kind:        SourceFixture,
			FixturePath: "config/fixtures/family.yaml",
		},
		Tree: TreeConfig{
			BranchCache:     BranchCacheRefetch,
			BranchCacheTTL:  5 * time.Minute,
			BranchCacheSize: 500,
			SessionTTL:      30 * time.Minute,
			MaxSessions:     1000,
			FetchTimeout:    10 * time.Second,
		},
		Layout: ports.DefaultLayoutSettings(),
		Features: FeaturesConfig{
			EnableMetrics: true,
			EnableCORS:    true,
			CORSOrigins:   []string{"*"},
		},
	}
}

// LoadConfig loads configuration from defaults, then the optional YAML file
// named by CONFIG_FILE, then environment variables.
func LoadConfig() (*Config, error) {
	cfg := Default()
	cfg.LoadedFrom = []string{"defaults"}

	path := getEnv("CONFIG_FILE", "config/tree.yaml")
	if err := cfg.mergeFile(path); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	} else {
		cfg.LoadedFrom = append(cfg.LoadedFrom, path)
	}

	cfg.applyEnv()
	cfg.LoadedFrom = append(cfg.LoadedFrom, "environment")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Load is an alias for LoadConfig
func Load() (*Config, error) {
	return LoadConfig()
}

// LoadFile reads a YAML file over the defaults without consulting the
// environment
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.mergeFile(path); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Environment = getEnv("ENVIRONMENT", c.Environment)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.ServiceName = getEnv("SERVICE_NAME", c.ServiceName)
	c.TracingEndpoint = getEnv("TRACING_ENDPOINT", c.TracingEndpoint)
	c.IsLambda = getEnv("AWS_LAMBDA_FUNCTION_NAME", "") != ""

	c.Server.Address = getEnv("SERVER_ADDRESS", c.Server.Address)

	c.AWS.Region = getEnv("AWS_REGION", c.AWS.Region)
	c.AWS.DynamoDBTable = getEnv("TABLE_NAME", getEnv("DYNAMODB_TABLE", c.AWS.DynamoDBTable))
	c.AWS.RootIndexName = getEnv("ROOT_INDEX_NAME", c.AWS.RootIndexName)
	c.AWS.EventBusName = getEnv("EVENT_BUS_NAME", c.AWS.EventBusName)
	c.AWS.Endpoint = getEnv("AWS_ENDPOINT_URL", c.AWS.Endpoint)

	c.CMS.ProjectID = getEnv("SANITY_PROJECT_ID", c.CMS.ProjectID)
	c.CMS.Dataset = getEnv("SANITY_DATASET", c.CMS.Dataset)
	c.CMS.APIVersion = getEnv("SANITY_API_VERSION", c.CMS.APIVersion)
	c.CMS.Token = getEnv("SANITY_TOKEN", c.CMS.Token)
	c.CMS.UseCDN = getEnvBool("SANITY_USE_CDN", c.CMS.UseCDN)
	c.CMS.BaseURL = getEnv("SANITY_BASE_URL", c.CMS.BaseURL)
	c.CMS.MaxRetries = getEnvInt("SANITY_MAX_RETRIES", c.CMS.MaxRetries)

	c.Source.Kind = getEnv("BRANCH_SOURCE", c.Source.Kind)
	c.Source.FixturePath = getEnv("FIXTURE_PATH", c.Source.FixturePath)

	c.Tree.BranchCache = getEnv("BRANCH_CACHE", c.Tree.BranchCache)
	c.Tree.BranchCacheTTL = getEnvDuration("BRANCH_CACHE_TTL", c.Tree.BranchCacheTTL)
	c.Tree.SessionTTL = getEnvDuration("SESSION_TTL", c.Tree.SessionTTL)
	c.Tree.MaxSessions = getEnvInt("MAX_SESSIONS", c.Tree.MaxSessions)

	c.Layout.Placement = getEnv("LAYOUT_PLACEMENT", c.Layout.Placement)
	c.Layout.NodeSpacing = getEnvFloat("LAYOUT_NODE_SPACING", c.Layout.NodeSpacing)
	c.Layout.LayerSpacing = getEnvFloat("LAYOUT_LAYER_SPACING", c.Layout.LayerSpacing)

	c.Features.EnableMetrics = getEnvBool("ENABLE_METRICS", c.Features.EnableMetrics)
	c.Features.EnableTracing = getEnvBool("ENABLE_TRACING", c.Features.EnableTracing)
	c.Features.EnableEvents = getEnvBool("ENABLE_EVENTS", c.Features.EnableEvents)
	c.Features.EnableCORS = getEnvBool("ENABLE_CORS", c.Features.EnableCORS)
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		c.Features.CORSOrigins = strings.Split(origins, ",")
	}
}

// Validate checks struct constraints and cross-field rules
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	switch c.Source.Kind {
	case SourceSanity:
		if c.CMS.ProjectID == "" && c.CMS.BaseURL == "" {
			return fmt.Errorf("SANITY_PROJECT_ID is required for the sanity source")
		}
	case SourceDynamoDB:
		if c.AWS.DynamoDBTable == "" {
			return fmt.Errorf("DYNAMODB_TABLE is required for the dynamodb source")
		}
	case SourceFixture:
		if c.Source.FixturePath == "" {
			return fmt.Errorf("FIXTURE_PATH is required for the fixture source")
		}
		if c.IsProduction() {
			return fmt.Errorf("the fixture source cannot be used in production")
		}
	}

	if c.Features.EnableEvents && c.AWS.EventBusName == "" {
		return fmt.Errorf("EVENT_BUS_NAME is required when events are enabled")
	}
	if c.Features.EnableTracing && c.TracingEndpoint == "" {
		return fmt.Errorf("TRACING_ENDPOINT is required when tracing is enabled")
	}

	return nil
}

// FilePath returns the YAML file the configuration was read from, or "" when
// only defaults and the environment applied
func (c *Config) FilePath() string {
	for _, source := range c.LoadedFrom {
		if source != "defaults" && source != "environment" {
			return source
		}
	}
	return ""
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat gets a float environment variable with a default value
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

// getEnvDuration gets a duration environment variable with a default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
