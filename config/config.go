package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/talaikis/qbook/pkg/notify"
)

// Config represents the application configuration
type Config struct {
	Server struct {
		HTTPAddr    string `yaml:"http_addr"`
		LogLevel    string `yaml:"log_level"`
		LogFormat   string `yaml:"log_format"`
		DepthLevels int    `yaml:"depth_levels"`
	} `yaml:"server"`

	Instruments []string `yaml:"instruments"`

	Feed struct {
		Brokers []string `yaml:"brokers"`
		Topic   string   `yaml:"topic"`
		GroupID string   `yaml:"group_id"`
	} `yaml:"feed"`

	Notify struct {
		Enabled    bool   `yaml:"enabled"`
		BrokerAddr string `yaml:"broker_addr"`
		Topic      string `yaml:"topic"`
	} `yaml:"notify"`

	Snapshot struct {
		Enabled  bool          `yaml:"enabled"`
		Addr     string        `yaml:"addr"`
		Interval time.Duration `yaml:"interval"`
	} `yaml:"snapshot"`

	Otel struct {
		CollectorEnabled bool   `yaml:"collector_enabled"`
		Endpoint         string `yaml:"endpoint"`
	} `yaml:"otel"`
}

var (
	configFile  = flag.String("config", "", "Path to config file (YAML)")
	httpPort    = flag.Int("http_port", 8080, "The HTTP server port")
	logLevel    = flag.String("log_level", "info", "Log level: debug, info, warn, error")
	logFormat   = flag.String("log_format", "pretty", "Log format: json, pretty")
	depthLevels = flag.Int("depth_levels", 5, "Depth levels carried by updates and snapshots")
)

// LoadConfig loads the configuration from command line flags, optionally from
// a config file, with QBOOK_* environment variables taking precedence. It
// also pushes the notify broker settings into their package variables.
func LoadConfig() (*Config, error) {
	flag.Parse()

	config := defaults()

	if *configFile != "" {
		yamlFile, err := os.ReadFile(*configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(yamlFile, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnv(config)

	if err := config.validate(); err != nil {
		return nil, err
	}

	notify.SetBrokerList(strings.Split(config.Notify.BrokerAddr, ","))
	notify.SetTopic(config.Notify.Topic)

	return config, nil
}

func defaults() *Config {
	config := &Config{}
	config.Server.HTTPAddr = fmt.Sprintf(":%d", *httpPort)
	config.Server.LogLevel = *logLevel
	config.Server.LogFormat = *logFormat
	config.Server.DepthLevels = *depthLevels
	config.Instruments = []string{"PETR4"}
	config.Feed.Brokers = []string{"localhost:9092"}
	config.Feed.Topic = "order-events"
	config.Feed.GroupID = "qbook"
	config.Notify.BrokerAddr = "localhost:9092"
	config.Notify.Topic = "qbook-updates"
	config.Snapshot.Addr = "localhost:6379"
	config.Snapshot.Interval = 5 * time.Second
	config.Otel.Endpoint = "localhost:4317"
	return config
}

// applyEnv overlays QBOOK_* environment variables, e.g. QBOOK_FEED_TOPIC or
// QBOOK_SERVER_HTTP_ADDR.
func applyEnv(config *Config) {
	v := viper.New()
	v.SetEnvPrefix("QBOOK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if s := v.GetString("server.http_addr"); s != "" {
		config.Server.HTTPAddr = s
	}
	if s := v.GetString("server.log_level"); s != "" {
		config.Server.LogLevel = s
	}
	if s := v.GetString("server.log_format"); s != "" {
		config.Server.LogFormat = s
	}
	if s := v.GetString("instruments"); s != "" {
		config.Instruments = strings.Split(s, ",")
	}
	if s := v.GetString("feed.brokers"); s != "" {
		config.Feed.Brokers = strings.Split(s, ",")
	}
	if s := v.GetString("feed.topic"); s != "" {
		config.Feed.Topic = s
	}
	if s := v.GetString("feed.group_id"); s != "" {
		config.Feed.GroupID = s
	}
	if s := v.GetString("notify.broker_addr"); s != "" {
		config.Notify.BrokerAddr = s
	}
	if s := v.GetString("notify.topic"); s != "" {
		config.Notify.Topic = s
	}
	if s := v.GetString("snapshot.addr"); s != "" {
		config.Snapshot.Addr = s
	}
	if v.IsSet("snapshot.enabled") {
		config.Snapshot.Enabled = v.GetBool("snapshot.enabled")
	}
	if v.IsSet("notify.enabled") {
		config.Notify.Enabled = v.GetBool("notify.enabled")
	}
	if s := v.GetString("otel.endpoint"); s != "" {
		config.Otel.Endpoint = s
	}
}

func (c *Config) validate() error {
	if len(c.Instruments) == 0 {
		return fmt.Errorf("at least one instrument is required")
	}
	if c.Server.DepthLevels <= 0 {
		return fmt.Errorf("depth_levels must be positive, got %d", c.Server.DepthLevels)
	}
	if len(c.Feed.Brokers) == 0 {
		return fmt.Errorf("at least one feed broker is required")
	}
	if c.Snapshot.Enabled && c.Snapshot.Interval <= 0 {
		return fmt.Errorf("snapshot interval must be positive, got %s", c.Snapshot.Interval)
	}
	return nil
}
