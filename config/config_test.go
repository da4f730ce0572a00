package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "cfg.yaml")
	require.NoError(t, os.WriteFile(p, []byte(`
notion:
  token: "secret_x"
  database_id: "db1"
aftership:
  api_key: "as"
  mode: "aftership"
database:
  host: "localhost"
  port: 5432
  username: "u"
  password: "p"
  name: "db"
kafka:
  host: "localhost"
  port: 9092
  shipment_synced_topic_name: "shipments"
redis:
  host: "localhost"
  port: 6379
shipsync:
  http_addr: ":8080"
  interval_seconds: 60
`), 0o600))

	cfg, err := LoadConfig(p)
	require.NoError(t, err)
	require.Equal(t, "u", cfg.Database.Username)
	require.Equal(t, "shipments", cfg.Kafka.ShipmentSyncedTopicName)
	require.Equal(t, 6379, cfg.Redis.Port)
	require.Equal(t, ":8080", cfg.ShipSync.HTTPAddr)
	require.Equal(t, "db1", cfg.Notion.DatabaseID)
}

func TestLoad_EnvOverridesAndDefaults(t *testing.T) {
	env := map[string]string{
		"AFTERSHIP_KEY": "k",
		"NOTION_TOKEN":  "t",
		"NOTION_DB_ID":  "d",
	}
	cfg, err := Load("", func(k string) string { return env[k] })
	require.NoError(t, err)
	require.Equal(t, "k", cfg.AfterShip.APIKey)
	require.Equal(t, "t", cfg.Notion.Token)
	require.Equal(t, "d", cfg.Notion.DatabaseID)

	require.Equal(t, "tnt", cfg.ShipSync.DefaultCarrier)
	require.Equal(t, 100, cfg.Notion.PageSize)
	require.Equal(t, "https://api.aftership.com/v4", cfg.AfterShip.BaseURL)
	require.Equal(t, ProviderModeAfterShip, cfg.AfterShip.Mode)
	require.Equal(t, "shipment.synced", cfg.Kafka.ShipmentSyncedTopicName)
	require.NoError(t, cfg.Validate())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := (&Config{}).WithDefaults()
	require.ErrorContains(t, cfg.Validate(), "NOTION_TOKEN")

	cfg.Notion.Token = "t"
	require.ErrorContains(t, cfg.Validate(), "NOTION_DB_ID")

	cfg.Notion.DatabaseID = "d"
	require.ErrorContains(t, cfg.Validate(), "AFTERSHIP_KEY")

	cfg.AfterShip.Mode = ProviderModeFake
	require.NoError(t, cfg.Validate())
}

func TestAddrHelpers(t *testing.T) {
	cfg := &Config{}
	require.Empty(t, cfg.PostgresDSN())
	require.Nil(t, cfg.KafkaBrokers())
	require.Empty(t, cfg.RedisAddr())

	cfg.Database = DatabaseConfig{Host: "h", Port: 5432, Username: "u", Password: "p", DBName: "n"}
	cfg.Kafka = KafkaConfig{Host: "k", Port: 9092}
	cfg.Redis = RedisConfig{Host: "r", Port: 6379}
	require.Equal(t, "postgres://u:p@h:5432/n?sslmode=disable", cfg.PostgresDSN())
	require.Equal(t, []string{"k:9092"}, cfg.KafkaBrokers())
	require.Equal(t, "r:6379", cfg.RedisAddr())
}

func TestLoadConfig_Example(t *testing.T) {
	cfg, err := Load("shipsync.example.yaml", func(string) string { return "" })
	require.NoError(t, err)
	require.Equal(t, ProviderModeAfterShip, cfg.AfterShip.Mode)
	require.Equal(t, "tnt", cfg.ShipSync.DefaultCarrier)
	require.Equal(t, "localhost:6379", cfg.RedisAddr())
	require.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers())
}
