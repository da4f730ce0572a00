package config

import (
	"fmt"
	"os"

	"github.com/BearBump/ShipSync/internal/models"
	"go.yaml.in/yaml/v4"
)

const (
	ProviderModeAfterShip = "aftership"
	ProviderModeFake      = "fake"
)

type Config struct {
	Notion    NotionConfig    `yaml:"notion"`
	AfterShip AfterShipConfig `yaml:"aftership"`
	Database  DatabaseConfig  `yaml:"database"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Redis     RedisConfig     `yaml:"redis"`
	ShipSync  ShipSyncConfig  `yaml:"shipsync"`
}

type NotionConfig struct {
	Token      string `yaml:"token"`
	DatabaseID string `yaml:"database_id"`
	PageSize   int    `yaml:"page_size"`
}

type AfterShipConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	Mode           string `yaml:"mode"` // "aftership" | "fake"
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// DatabaseConfig описывает Postgres для журнала запусков. Пустой host — журнал выключен.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

type KafkaConfig struct {
	Host                    string `yaml:"host"`
	Port                    int    `yaml:"port"`
	ShipmentSyncedTopicName string `yaml:"shipment_synced_topic_name"`
}

type RedisConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type ShipSyncConfig struct {
	DefaultCarrier string `yaml:"default_carrier"`

	IntervalSeconds    int `yaml:"interval_seconds"`
	RateLimitPerMinute int `yaml:"rate_limit_per_minute"`
	LockTTLSeconds     int `yaml:"lock_ttl_seconds"`

	HTTPAddr    string `yaml:"http_addr"`
	GRPCAddr    string `yaml:"grpc_addr"`
	SwaggerPath string `yaml:"swagger_path"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

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

	return &config, nil
}

// Load reads the optional YAML file, applies env overrides and defaults.
// An empty filename means "env only".
func Load(filename string, getenv func(string) string) (*Config, error) {
	cfg := &Config{}
	if filename != "" {
		var err error
		cfg, err = LoadConfig(filename)
		if err != nil {
			return nil, err
		}
	}
	if getenv == nil {
		getenv = os.Getenv
	}
	cfg.ApplyEnv(getenv)
	cfg.WithDefaults()
	return cfg, nil
}

// ApplyEnv overrides secrets and the database id from the environment.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("AFTERSHIP_KEY"); v != "" {
		c.AfterShip.APIKey = v
	}
	if v := getenv("NOTION_TOKEN"); v != "" {
		c.Notion.Token = v
	}
	if v := getenv("NOTION_DB_ID"); v != "" {
		c.Notion.DatabaseID = v
	}
}

func (c *Config) WithDefaults() *Config {
	if c.Notion.PageSize <= 0 || c.Notion.PageSize > 100 {
		c.Notion.PageSize = 100
	}
	if c.AfterShip.BaseURL == "" {
		c.AfterShip.BaseURL = "https://api.aftership.com/v4"
	}
	if c.AfterShip.Mode == "" {
		c.AfterShip.Mode = ProviderModeAfterShip
	}
	if c.AfterShip.TimeoutSeconds <= 0 {
		c.AfterShip.TimeoutSeconds = 10
	}
	if c.Kafka.ShipmentSyncedTopicName == "" {
		c.Kafka.ShipmentSyncedTopicName = "shipment.synced"
	}
	if c.ShipSync.DefaultCarrier == "" {
		c.ShipSync.DefaultCarrier = models.DefaultCarrierSlug
	}
	if c.ShipSync.IntervalSeconds <= 0 {
		c.ShipSync.IntervalSeconds = 900
	}
	if c.ShipSync.RateLimitPerMinute <= 0 {
		c.ShipSync.RateLimitPerMinute = 600
	}
	if c.ShipSync.LockTTLSeconds <= 0 {
		c.ShipSync.LockTTLSeconds = 1800
	}
	if c.ShipSync.HTTPAddr == "" {
		c.ShipSync.HTTPAddr = ":8082"
	}
	if c.ShipSync.LogLevel == "" {
		c.ShipSync.LogLevel = "info"
	}
	if c.ShipSync.LogFormat == "" {
		c.ShipSync.LogFormat = "text"
	}
	return c
}

func (c *Config) Validate() error {
	if c.Notion.Token == "" {
		return fmt.Errorf("notion token is required (NOTION_TOKEN)")
	}
	if c.Notion.DatabaseID == "" {
		return fmt.Errorf("notion database id is required (NOTION_DB_ID)")
	}
	if c.AfterShip.Mode == ProviderModeAfterShip && c.AfterShip.APIKey == "" {
		return fmt.Errorf("aftership api key is required (AFTERSHIP_KEY)")
	}
	return nil
}

// PostgresDSN returns "" when the journal database is not configured.
func (c *Config) PostgresDSN() string {
	if c.Database.Host == "" {
		return ""
	}
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.Username, c.Database.Password, c.Database.Host, c.Database.Port, c.Database.DBName, sslMode)
}

func (c *Config) KafkaBrokers() []string {
	if c.Kafka.Host == "" {
		return nil
	}
	return []string{fmt.Sprintf("%s:%d", c.Kafka.Host, c.Kafka.Port)}
}

func (c *Config) RedisAddr() string {
	if c.Redis.Host == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}
