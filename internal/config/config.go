package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	MQTT        MQTTConfig        `mapstructure:"mqtt"`
	Recognition RecognitionConfig `mapstructure:"recognition"`
	Images      ImagesConfig      `mapstructure:"images"`
	Cameras     []CameraConfig    `mapstructure:"cameras"`
	Barriers    []BarrierConfig   `mapstructure:"barriers"`
}

type ServerConfig struct {
	Addr      string `mapstructure:"addr"`
	JWTSecret string `mapstructure:"jwt_secret"`
}

type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

type MQTTConfig struct {
	Broker        string        `mapstructure:"broker"`
	ClientID      string        `mapstructure:"client_id"`
	CommandTopic  string        `mapstructure:"command_topic"`
	StatusTopic   string        `mapstructure:"status_topic"`
	StatsTopic    string        `mapstructure:"stats_topic"`
	StatsInterval time.Duration `mapstructure:"stats_interval"`
}

type RecognitionConfig struct {
	Binary              string        `mapstructure:"binary"`
	Country             string        `mapstructure:"country"`
	Region              string        `mapstructure:"region"`
	ConfigFile          string        `mapstructure:"config_file"`
	ConfidenceThreshold float64       `mapstructure:"confidence_threshold"`
	ProcessInterval     time.Duration `mapstructure:"process_interval"`
	Timeout             time.Duration `mapstructure:"timeout"`
	Cooldown            time.Duration `mapstructure:"cooldown"`
	TopN                int           `mapstructure:"top_n"`
}

type ImagesConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	StoragePath string `mapstructure:"storage_path"`
}

type CameraConfig struct {
	Key       string `mapstructure:"key"`
	Name      string `mapstructure:"name"`
	Device    string `mapstructure:"device"`
	Width     int    `mapstructure:"width"`
	Height    int    `mapstructure:"height"`
	FPS       int    `mapstructure:"fps"`
	EventType string `mapstructure:"event_type"`
	Barrier   string `mapstructure:"barrier"`
}

type BarrierConfig struct {
	Key          string        `mapstructure:"key"`
	Name         string        `mapstructure:"name"`
	RelayPin     int           `mapstructure:"relay_pin"`
	SensorPin    int           `mapstructure:"sensor_pin"`
	OpenDuration time.Duration `mapstructure:"open_duration"`
	Timeout      time.Duration `mapstructure:"timeout"`
	SafetyCheck  bool          `mapstructure:"safety_check"`
}

// Load reads the YAML config file and applies ALPR_* environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.addr", ":8090")
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.client_id", "alprd")
	v.SetDefault("mqtt.command_topic", "barrier_commands")
	v.SetDefault("mqtt.status_topic", "barrier_status")
	v.SetDefault("mqtt.stats_topic", "alpr_service_stats")
	v.SetDefault("mqtt.stats_interval", 5*time.Second)
	v.SetDefault("recognition.binary", "alpr")
	v.SetDefault("recognition.country", "us")
	v.SetDefault("recognition.config_file", "/etc/openalpr/openalpr.conf")
	v.SetDefault("recognition.confidence_threshold", 80.0)
	v.SetDefault("recognition.process_interval", 500*time.Millisecond)
	v.SetDefault("recognition.timeout", 5*time.Second)
	v.SetDefault("recognition.cooldown", 5*time.Second)
	v.SetDefault("recognition.top_n", 3)
	v.SetDefault("images.enabled", true)
	v.SetDefault("images.storage_path", "/var/alpr-system/images")

	v.SetEnvPrefix("ALPR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/alprd")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	for i := range cfg.Cameras {
		c := &cfg.Cameras[i]
		if c.Width == 0 {
			c.Width = 1920
		}
		if c.Height == 0 {
			c.Height = 1080
		}
		if c.FPS == 0 {
			c.FPS = 30
		}
	}
	for i := range cfg.Barriers {
		b := &cfg.Barriers[i]
		if b.OpenDuration == 0 {
			b.OpenDuration = 5 * time.Second
		}
		if b.Timeout == 0 {
			b.Timeout = 10 * time.Second
		}
	}

	return &cfg, cfg.validate()
}

func (c *Config) validate() error {
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	seen := map[string]bool{}
	for _, cam := range c.Cameras {
		if cam.Key == "" {
			return fmt.Errorf("camera key is required")
		}
		if seen[cam.Key] {
			return fmt.Errorf("duplicate camera key %q", cam.Key)
		}
		seen[cam.Key] = true
		if cam.EventType != "entry" && cam.EventType != "exit" {
			return fmt.Errorf("camera %q: event_type must be entry or exit", cam.Key)
		}
	}
	return nil
}
