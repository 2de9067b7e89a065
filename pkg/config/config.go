package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	View        struct {
		Port            int           `yaml:"port" default:"8090"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		CORS            bool          `yaml:"cors" default:"true"`
	} `yaml:"view"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Gateway struct {
		BaseURL     string        `yaml:"base_url"`
		Timeout     time.Duration `yaml:"timeout" default:"15s"`
		SignalLimit int           `yaml:"signal_limit" default:"20"`
	} `yaml:"gateway"`
	Stream struct {
		URL               string        `yaml:"url"`
		KeepaliveInterval time.Duration `yaml:"keepalive_interval" default:"30s"`
		DeadPeerTimeout   time.Duration `yaml:"dead_peer_timeout" default:"60s"`
		ReconnectDelay    time.Duration `yaml:"reconnect_delay" default:"3s"`
		FrameBuffer       int           `yaml:"frame_buffer" default:"256"`
	} `yaml:"stream"`
	Poll struct {
		Interval       time.Duration `yaml:"interval" default:"30s"`
		HealthInterval time.Duration `yaml:"health_interval" default:"10s"`
	} `yaml:"poll"`
	Reconcile struct {
		Signals   time.Duration `yaml:"signals" default:"1s"`
		Positions time.Duration `yaml:"positions" default:"500ms"`
		Stats     time.Duration `yaml:"stats" default:"1500ms"`
	} `yaml:"reconcile"`
	Audit struct {
		Backend string `yaml:"backend" default:"none"` // none, kafka, clickhouse
		Buffer  int    `yaml:"buffer" default:"1000"`
		Kafka   struct {
			Brokers      []string      `yaml:"brokers"`
			Topic        string        `yaml:"topic" default:"signaldeck.events"`
			RequiredAcks int           `yaml:"required_acks" default:"-1"`
			Compression  string        `yaml:"compression" default:"gzip"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		} `yaml:"kafka"`
		ClickHouse struct {
			Host        string        `yaml:"host"`
			Port        int           `yaml:"port" default:"9000"`
			Database    string        `yaml:"database" default:"signaldeck"`
			Table       string        `yaml:"table" default:"signal_events"`
			User        string        `yaml:"user" default:"default"`
			Password    string        `yaml:"password"`
			DialTimeout time.Duration `yaml:"dial_timeout" default:"5s"`
		} `yaml:"clickhouse"`
	} `yaml:"audit"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Prefs struct {
		Path string `yaml:"path" default:"signaldeck_prefs.json"`
	} `yaml:"prefs"`
	Logger struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"logger"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("GATEWAY_BASE_URL"); v != "" {
		c.Gateway.BaseURL = v
	}
	if v := os.Getenv("STREAM_URL"); v != "" {
		c.Stream.URL = v
	}
	if v := os.Getenv("VIEW_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.View.Port = p
		}
	}
	if v := os.Getenv("AUDIT_BACKEND"); v != "" {
		c.Audit.Backend = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Gateway.BaseURL == "" {
		return fmt.Errorf("gateway.base_url is required")
	}
	if c.Stream.URL == "" {
		return fmt.Errorf("stream.url is required")
	}
	switch c.Audit.Backend {
	case "none", "kafka", "clickhouse":
	default:
		return fmt.Errorf("audit.backend must be 'none', 'kafka' or 'clickhouse', got '%s'", c.Audit.Backend)
	}
	if c.Audit.Backend == "kafka" && len(c.Audit.Kafka.Brokers) == 0 {
		return fmt.Errorf("audit.kafka.brokers cannot be empty")
	}
	if c.Audit.Backend == "clickhouse" && c.Audit.ClickHouse.Host == "" {
		return fmt.Errorf("audit.clickhouse.host is required")
	}
	if c.Stream.KeepaliveInterval <= 0 || c.Stream.DeadPeerTimeout <= 0 {
		return fmt.Errorf("stream keepalive/dead_peer intervals must be positive")
	}
	return nil
}
