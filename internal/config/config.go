package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	telemetry "atmotube-export/internal/telemetry/domain"
)

// DefaultPath is read when no config path is given.
const DefaultPath = "config.json"

var (
	// ErrMissingKey is returned when a required key is absent or empty.
	ErrMissingKey = errors.New("config: missing required key")
)

// Config is the exporter configuration.
type Config struct {
	URL          string   `yaml:"url"`
	APIKey       string   `yaml:"api_key"`
	MACAddresses []string `yaml:"atmotube_mac_addresses"`
	StartDate    string   `yaml:"start_date"`

	OutputRoot string        `yaml:"output_root"`
	Formats    []string      `yaml:"formats"`
	Storage    StorageConfig `yaml:"storage"`
	Notify     NotifyConfig  `yaml:"notify"`
	Metrics    MetricsConfig `yaml:"metrics"`
}

// StorageConfig configures the S3-compatible artifact mirror.
type StorageConfig struct {
	Endpoint      string `yaml:"endpoint"`
	Bucket        string `yaml:"bucket"`
	Prefix        string `yaml:"prefix"`
	Region        string `yaml:"region"`
	AccessKey     string `yaml:"access_key"`
	SecretKey     string `yaml:"secret_key"`
	AccessKeyFile string `yaml:"access_key_file"`
	SecretKeyFile string `yaml:"secret_key_file"`
}

// Enabled reports whether a mirror is configured.
func (s StorageConfig) Enabled() bool {
	return s.Endpoint != "" && s.Bucket != ""
}

// NotifyConfig configures export notifications.
type NotifyConfig struct {
	WebhookURL string     `yaml:"webhook_url"`
	MQTT       MQTTConfig `yaml:"mqtt"`
}

// MQTTConfig configures the MQTT export event publisher.
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	Topic    string `yaml:"topic"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MetricsConfig configures the Pushgateway push at the end of a run.
type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgateway_url"`
	Job            string `yaml:"job"`
}

// Load reads the config file at path, applies environment overrides and
// validates required keys.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes config data. JSON is a subset of YAML, so one decoder
// serves config.json and config.yaml alike.
func Parse(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the required keys.
func (c Config) Validate() error {
	if strings.TrimSpace(c.URL) == "" {
		return fmt.Errorf("%w: url", ErrMissingKey)
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: api_key", ErrMissingKey)
	}
	if len(c.MACAddresses) == 0 {
		return fmt.Errorf("%w: atmotube_mac_addresses", ErrMissingKey)
	}
	for i, mac := range c.MACAddresses {
		if strings.TrimSpace(mac) == "" {
			return fmt.Errorf("config: atmotube_mac_addresses[%d] is empty", i)
		}
	}
	if strings.TrimSpace(c.StartDate) == "" {
		return fmt.Errorf("%w: start_date", ErrMissingKey)
	}
	if _, err := telemetry.ParseDate(c.StartDate); err != nil {
		return fmt.Errorf("config: start_date: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.URL = getenvDefault("ATMOTUBE_URL", cfg.URL)
	cfg.APIKey = getenvDefault("ATMOTUBE_API_KEY", cfg.APIKey)
	cfg.OutputRoot = getenvDefault("ATMOTUBE_OUTPUT_ROOT", cfg.OutputRoot)
	cfg.Notify.WebhookURL = getenvDefault("ATMOTUBE_WEBHOOK_URL", cfg.Notify.WebhookURL)
	cfg.Notify.MQTT.Broker = getenvDefault("ATMOTUBE_MQTT_BROKER", cfg.Notify.MQTT.Broker)
	cfg.Metrics.PushgatewayURL = getenvDefault("ATMOTUBE_PUSHGATEWAY_URL", cfg.Metrics.PushgatewayURL)
	if macs := splitCSV(os.Getenv("ATMOTUBE_MACS")); len(macs) > 0 {
		cfg.MACAddresses = macs
	}
	if formats := splitCSV(os.Getenv("ATMOTUBE_FORMATS")); len(formats) > 0 {
		cfg.Formats = formats
	}
}

func applyDefaults(cfg *Config) {
	if cfg.OutputRoot == "" {
		cfg.OutputRoot = "."
	}
	if cfg.Storage.Prefix == "" {
		cfg.Storage.Prefix = "atmotube"
	}
	if cfg.Notify.MQTT.Topic == "" {
		cfg.Notify.MQTT.Topic = "atmotube/exports"
	}
	if cfg.Notify.MQTT.ClientID == "" {
		cfg.Notify.MQTT.ClientID = "atmotube-export"
	}
	if cfg.Metrics.Job == "" {
		cfg.Metrics.Job = "atmotube_export"
	}
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func splitCSV(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	var result []string
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			result = append(result, part)
		}
	}
	return result
}
