// Package config loads the irrad-data service configuration from the environment.
package config

import (
	"os"
	"strconv"
	"time"

	commoncfg "irrad-data/internal/common/config"
)

type Config struct {
	HTTP struct {
		Addr string
	}
	DBEnabled bool
	Database  commoncfg.DatabaseConfig
	Redis     commoncfg.RedisConfig
	Log       struct {
		Level  string
		Format string
	}
	InforEAM InforEAMConfig `yaml:"infoream"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Blob     BlobConfig     `yaml:"blob"`
	Notify   NotifyConfig   `yaml:"notify"`
	DevUser  DevUserConfig  `yaml:"dev_user"`
	// SecRefreshInterval drives the background SEC refresh of irradiations in beam, 0 disables it.
	SecRefreshInterval time.Duration `yaml:"sec_refresh_interval"`
}

// InforEAMConfig points at the inforEAM REST gateway.
type InforEAMConfig struct {
	BaseURL  string        `yaml:"base_url"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	Timeout  time.Duration `yaml:"timeout"`
	CacheTTL time.Duration `yaml:"cache_ttl"` // read cache, 0 disables
	// Simulate answers every call locally; used on development machines.
	Simulate bool `yaml:"simulate"`
}

// MQTTConfig configures the SEC reading subscription.
type MQTTConfig struct {
	Enabled bool   `yaml:"enabled"`
	Topic   string `yaml:"topic"`
	commoncfg.MQTTConfig
}

// BlobConfig selects where experiment attachments are stored.
type BlobConfig struct {
	Driver    string `yaml:"driver"` // fs, memory or s3
	Dir       string `yaml:"dir"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`
}

// NotifyConfig names the Redis stream that carries notification events.
type NotifyConfig struct {
	Enabled bool   `yaml:"enabled"`
	Stream  string `yaml:"stream"`
	MaxLen  int64  `yaml:"max_len"`
	From    string `yaml:"from"`
}

// DevUserConfig is the identity used when the SSO headers are absent.
type DevUserConfig struct {
	Enabled bool   `yaml:"enabled"`
	Email   string `yaml:"email"`
	Name    string `yaml:"name"`
	Surname string `yaml:"surname"`
}

func Load() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	// if the database is unreachable the service falls back to in-memory repositories
	cfg.DBEnabled = getEnv("DB_ENABLED", "true") == "true"
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "irrad")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = parseInt(getEnv("DB_MAX_CONNS", "20"), 20)
	cfg.Database.MaxIdle = parseInt(getEnv("DB_MAX_IDLE", "5"), 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = parseInt(getEnv("REDIS_DB", "0"), 0)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	cfg.InforEAM.BaseURL = getEnv("INFOREAM_BASE_URL", "http://localhost:8090/infoream")
	cfg.InforEAM.Username = getEnv("INFOREAM_USERNAME", "")
	cfg.InforEAM.Password = getEnv("INFOREAM_PASSWORD", "")
	cfg.InforEAM.Timeout = parseDuration(getEnv("INFOREAM_TIMEOUT", "30s"), 30*time.Second)
	cfg.InforEAM.CacheTTL = parseDuration(getEnv("INFOREAM_CACHE_TTL", "30s"), 30*time.Second)
	cfg.InforEAM.Simulate = getEnv("INFOREAM_SIMULATE", "false") == "true"

	cfg.MQTT.Enabled = getEnv("MQTT_ENABLED", "false") == "true"
	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "irrad-data-sec")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.Topic = getEnv("MQTT_TOPIC", "irrad/sec")
	cfg.MQTT.QoS = byte(parseInt(getEnv("MQTT_QOS", "1"), 1))

	cfg.SecRefreshInterval = parseDuration(getEnv("SEC_REFRESH_INTERVAL", "60s"), time.Minute)

	cfg.Blob.Driver = getEnv("BLOB_DRIVER", "fs")
	cfg.Blob.Dir = getEnv("BLOB_DIR", "./data/attachments")
	cfg.Blob.Bucket = getEnv("BLOB_BUCKET", "")
	cfg.Blob.Region = getEnv("BLOB_REGION", "us-east-1")
	cfg.Blob.Endpoint = getEnv("BLOB_ENDPOINT", "")
	cfg.Blob.PathStyle = getEnv("BLOB_PATH_STYLE", "false") == "true"

	cfg.Notify.Enabled = getEnv("NOTIFY_ENABLED", "true") == "true"
	cfg.Notify.Stream = getEnv("NOTIFY_STREAM", "irrad:notifications")
	cfg.Notify.MaxLen = int64(parseInt(getEnv("NOTIFY_MAX_LEN", "10000"), 10000))
	cfg.Notify.From = getEnv("NOTIFY_FROM", "irrad.facility@cern.ch")

	cfg.DevUser.Enabled = getEnv("DEV_USER_ENABLED", "true") == "true"
	cfg.DevUser.Email = getEnv("DEV_USER_EMAIL", "dev.user@cern.ch")
	cfg.DevUser.Name = getEnv("DEV_USER_NAME", "Dev")
	cfg.DevUser.Surname = getEnv("DEV_USER_SURNAME", "User")

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
