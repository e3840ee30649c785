package config

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"go.yaml.in/yaml/v4"
)

// EnvPrefix namespaces environment overrides, e.g. SHIPBRIDGE_DATABASE_PASSWORD.
const EnvPrefix = "SHIPBRIDGE"

type Config struct {
	Database   DatabaseConfig   `yaml:"database" envconfig:"database"`
	Kafka      KafkaConfig      `yaml:"kafka" envconfig:"kafka"`
	Redis      RedisConfig      `yaml:"redis" envconfig:"redis"`
	Shiprocket ShiprocketConfig `yaml:"shiprocket" envconfig:"shiprocket"`
	ShipBridge ShipBridgeConfig `yaml:"shipbridge" envconfig:"shipbridge"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host" envconfig:"host"`
	Port     int    `yaml:"port" envconfig:"port"`
	Username string `yaml:"username" envconfig:"username"`
	Password string `yaml:"password" envconfig:"password"`
	DBName   string `yaml:"name" envconfig:"name"`
	SSLMode  string `yaml:"ssl_mode" envconfig:"ssl_mode"`
}

// DSN renders a pgx connection string; ssl_mode defaults to disable.
func (d DatabaseConfig) DSN() string {
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.Username, d.Password, d.Host, d.Port, d.DBName, sslMode)
}

type KafkaConfig struct {
	Host                    string `yaml:"host" envconfig:"host"`
	Port                    int    `yaml:"port" envconfig:"port"`
	ShipmentStatusTopicName string `yaml:"shipment_status_topic_name" envconfig:"shipment_status_topic_name"`
}

// Enabled is false when no broker host is configured; events are then skipped.
func (k KafkaConfig) Enabled() bool { return k.Host != "" }

func (k KafkaConfig) Brokers() []string {
	return []string{fmt.Sprintf("%s:%d", k.Host, k.Port)}
}

type RedisConfig struct {
	Host string `yaml:"host" envconfig:"host"`
	Port int    `yaml:"port" envconfig:"port"`
}

// Enabled is false when no host is set; tokens then live in process memory.
func (r RedisConfig) Enabled() bool { return r.Host != "" }

func (r RedisConfig) Addr() string { return fmt.Sprintf("%s:%d", r.Host, r.Port) }

type ShiprocketConfig struct {
	BaseURL         string `yaml:"base_url" envconfig:"base_url"`
	TimeoutSeconds  int    `yaml:"timeout_seconds" envconfig:"timeout_seconds"`
	TokenTTLSeconds int    `yaml:"token_ttl_seconds" envconfig:"token_ttl_seconds"`
	CompanyName     string `yaml:"company_name" envconfig:"company_name"`
	// CredentialKey is a hex encoded 32 byte key sealing stored secrets.
	// Empty stores secrets as given.
	CredentialKey string `yaml:"credential_key" envconfig:"credential_key"`
}

type ShipBridgeConfig struct {
	HTTPAddr string `yaml:"http_addr" envconfig:"http_addr"`
	LogLevel string `yaml:"log_level" envconfig:"log_level"`

	WorkerHTTPAddr            string `yaml:"worker_http_addr" envconfig:"worker_http_addr"`
	WorkerPollIntervalSeconds int    `yaml:"worker_poll_interval_seconds" envconfig:"worker_poll_interval_seconds"`
	WorkerConcurrency         int    `yaml:"worker_concurrency" envconfig:"worker_concurrency"`
	WorkerRateLimitPerMinute  int    `yaml:"worker_rate_limit_per_minute" envconfig:"worker_rate_limit_per_minute"`
}

// LoadConfig reads the YAML file and then applies SHIPBRIDGE_* environment
// overrides on top.
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, &config); err != nil {
		return nil, fmt.Errorf("failed to apply env overrides: %w", err)
	}

	return &config, nil
}
