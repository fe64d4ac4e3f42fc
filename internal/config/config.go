// Package config loads and validates the coordinator's runtime
// configuration: the region it serves, where its adapters read datasets
// from, how it reaches the Extractor and external router collaborators,
// and its ambient logging/metrics/notification settings.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration document, loaded from YAML and then
// overlaid with environment variables.
type Config struct {
	Server    ServerConfig           `yaml:"server"`
	Extractor ExtractorConfig        `yaml:"extractor"`
	Region    RegionConfig           `yaml:"region"`
	Pipeline  PipelineConfig         `yaml:"pipeline"`
	Sources   []SourceWeightOverride `yaml:"sources"`
	Logging   LoggingConfig          `yaml:"logging"`
	Notify    NotifyConfig           `yaml:"notify"`
	Adapters  AdapterPathsConfig     `yaml:"adapters"`
	Router    RouterConfig           `yaml:"router"`
	Cache     CacheConfig            `yaml:"cache"`
}

// ServerConfig configures the internal metrics/health HTTP server.
type ServerConfig struct {
	MetricsPort string `yaml:"metrics_port"`
	HealthPort  string `yaml:"health_port"`
}

// ExtractorConfig configures the LLM-backed query-parsing and
// conflict-reconciliation collaborator.
type ExtractorConfig struct {
	Endpoint    string        `yaml:"endpoint"`
	Model       string        `yaml:"model"`
	Timeout     time.Duration `yaml:"timeout"`
	RetryCount  int           `yaml:"retry_count"`
	Provider    string        `yaml:"provider"`
	Temperature float32       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	APIKey      string        `yaml:"api_key"`
}

// RegionConfig names the operational region and its default bounding box.
type RegionConfig struct {
	Name        string            `yaml:"name"`
	BoundingBox BoundingBoxConfig `yaml:"bounding_box"`
}

// BoundingBoxConfig is a west/south/east/north extent in decimal degrees.
type BoundingBoxConfig struct {
	West  float64 `yaml:"west"`
	South float64 `yaml:"south"`
	East  float64 `yaml:"east"`
	North float64 `yaml:"north"`
}

// PipelineConfig controls the query pipeline's admission and concurrency behaviour.
type PipelineConfig struct {
	DryRun                bool          `yaml:"dry_run"`
	MaxConcurrentAdapters int           `yaml:"max_concurrent_adapters"`
	QueryTimeout          time.Duration `yaml:"query_timeout"`
	AdmissionQueueBound   int           `yaml:"admission_queue_bound"`
}

// SourceWeightOverride overrides a source's reliability prior (spec §4.1).
type SourceWeightOverride struct {
	Source string  `yaml:"source"`
	Weight float64 `yaml:"weight"`
}

// LoggingConfig controls logrus output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// NotifyConfig controls the critical-urgency Slack notification path.
type NotifyConfig struct {
	SlackWebhookURL string `yaml:"slack_webhook_url"`
	Channel         string `yaml:"channel"`
}

// AdapterPathsConfig names the dataset file each source adapter reads from.
type AdapterPathsConfig struct {
	Satellite   string `yaml:"satellite"`
	SocialMedia string `yaml:"social_media"`
	Official    string `yaml:"official"`
	Shelters    string `yaml:"shelters"`
	RoadNetwork string `yaml:"road_network"`
}

// RouterConfig configures the external routing collaborator (C6 tier 2).
type RouterConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

// CacheConfig configures the Redis-backed tick cache.
type CacheConfig struct {
	RedisAddr string        `yaml:"redis_addr"`
	TTL       time.Duration `yaml:"ttl"`
}

// Load reads path, parses it as YAML, applies defaults, overlays
// environment variables, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	setDefaults(config)

	if err := loadFromEnv(config); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}

	if err := validate(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return config, nil
}

func setDefaults(config *Config) {
	if config.Region.Name == "" {
		config.Region.Name = "default"
	}
	if config.Pipeline.MaxConcurrentAdapters == 0 {
		config.Pipeline.MaxConcurrentAdapters = 5
	}
	if config.Extractor.Provider == "" {
		config.Extractor.Provider = "anthropic"
	}
}

// validate checks required fields and, where the teacher's original
// behaviour was to backfill a default rather than fail, does the same.
func validate(config *Config) error {
	switch config.Extractor.Provider {
	case "anthropic", "fallback":
		// ok
	default:
		return fmt.Errorf("unsupported extractor provider: %s", config.Extractor.Provider)
	}

	if config.Extractor.Endpoint == "" {
		config.Extractor.Endpoint = "https://api.anthropic.com"
	}

	if config.Extractor.Provider == "anthropic" && config.Extractor.Model == "" {
		return fmt.Errorf("extractor model is required for anthropic provider")
	}

	if config.Extractor.Temperature < 0.0 || config.Extractor.Temperature > 1.0 {
		return fmt.Errorf("extractor temperature must be between 0.0 and 1.0")
	}

	if config.Extractor.MaxTokens <= 0 {
		return fmt.Errorf("extractor max tokens must be greater than 0")
	}

	if config.Region.Name == "" {
		return fmt.Errorf("region name is required")
	}

	if config.Pipeline.MaxConcurrentAdapters <= 0 {
		return fmt.Errorf("max concurrent adapters must be greater than 0")
	}

	return nil
}

// loadFromEnv overlays environment variables onto config, for deployment
// environments that prefer env vars over a mounted file.
func loadFromEnv(config *Config) error {
	if v := os.Getenv("EXTRACTOR_ENDPOINT"); v != "" {
		config.Extractor.Endpoint = v
	}
	if v := os.Getenv("EXTRACTOR_MODEL"); v != "" {
		config.Extractor.Model = v
	}
	if v := os.Getenv("EXTRACTOR_PROVIDER"); v != "" {
		config.Extractor.Provider = v
	}
	if v := os.Getenv("EXTRACTOR_API_KEY"); v != "" {
		config.Extractor.APIKey = v
	}
	if v := os.Getenv("METRICS_PORT"); v != "" {
		config.Server.MetricsPort = v
	}
	if v := os.Getenv("HEALTH_PORT"); v != "" {
		config.Server.HealthPort = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv("DRY_RUN"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid DRY_RUN value: %w", err)
		}
		config.Pipeline.DryRun = b
	}
	if v := os.Getenv("ROUTER_BASE_URL"); v != "" {
		config.Router.BaseURL = v
	}
	if v := os.Getenv("ROUTER_API_KEY"); v != "" {
		config.Router.APIKey = v
	}
	if v := os.Getenv("CACHE_REDIS_ADDR"); v != "" {
		config.Cache.RedisAddr = v
	}
	if v := os.Getenv("SLACK_WEBHOOK_URL"); v != "" {
		config.Notify.SlackWebhookURL = v
	}
	return nil
}
