package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

type Config struct {
	ConfigFile string        `yaml:"-"`
	LogLevel   zerolog.Level `yaml:"-"`

	Site      SiteConfig      `yaml:"site"`
	Storage   StorageConfig   `yaml:"storage"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Water     WaterConfig     `yaml:"water"`
	API       APIConfig       `yaml:"api"`
	Logging   LoggingConfig   `yaml:"logging"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Datadog   DatadogConfig   `yaml:"datadog"`
	Ntfy      NtfyConfig      `yaml:"ntfy"`
	Seed      SeedConfig      `yaml:"seed"`
}

type SiteConfig struct {
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone"`
}

type StorageConfig struct {
	// Driver is "memory" or "sqlite".
	Driver       string `yaml:"driver"`
	SQLitePath   string `yaml:"sqlite_path"`
	SnapshotFile string `yaml:"snapshot_file"`
}

type SchedulerConfig struct {
	SimulatorIntervalSeconds int   `yaml:"simulator_interval_seconds"`
	EvaluatorIntervalSeconds int   `yaml:"evaluator_interval_seconds"`
	ManualWateringMinutes    int   `yaml:"manual_watering_minutes"`
	RandomSeed               int64 `yaml:"random_seed"`
}

type WaterConfig struct {
	LitersPerMinute float64 `yaml:"liters_per_minute"`
}

type APIConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"`
	Port        int    `yaml:"port"`
	ClientID    string `yaml:"client_id"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	TopicPrefix string `yaml:"topic_prefix"`
	QoS         int    `yaml:"qos"`
}

type InfluxDBConfig struct {
	Enabled         bool   `yaml:"enabled"`
	URL             string `yaml:"url"`
	Token           string `yaml:"token"`
	Org             string `yaml:"org"`
	Bucket          string `yaml:"bucket"`
	BatchSize       int    `yaml:"batch_size"`
	FlushIntervalMS int    `yaml:"flush_interval_ms"`
}

type DatadogConfig struct {
	Enabled   bool     `yaml:"enabled"`
	AgentAddr string   `yaml:"agent_addr"`
	Namespace string   `yaml:"namespace"`
	Tags      []string `yaml:"tags"`
}

type NtfyConfig struct {
	Server string `yaml:"server"`
	Topic  string `yaml:"topic"`
}

// Load parses flags and the config file. Invalid configuration is fatal.
func Load() Config {
	var configFile, logLevel string

	flag.StringVar(&configFile, "config-file", "config.yaml", "Path to controller config file")
	flag.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides the config file")
	flag.Parse()

	cfg, err := LoadFile(configFile)
	if err != nil {
		panic("Failed to load config: " + err.Error())
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
		cfg.LogLevel = parseLogLevel(logLevel)
	}
	return cfg
}

// LoadFile reads path over the defaults, applies environment overrides and
// validates the result.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	cfg.ConfigFile = path

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(&cfg)
	cfg.LogLevel = parseLogLevel(cfg.Logging.Level)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func Default() Config {
	return Config{
		LogLevel: zerolog.InfoLevel,
		Site: SiteConfig{
			Name:     "Greenhouse",
			Timezone: "Local",
		},
		Storage: StorageConfig{
			Driver:       "memory",
			SQLitePath:   "data/greenhouse.db",
			SnapshotFile: "data/greenhouse.json",
		},
		Scheduler: SchedulerConfig{
			SimulatorIntervalSeconds: 30,
			EvaluatorIntervalSeconds: 60,
			ManualWateringMinutes:    10,
		},
		Water: WaterConfig{LitersPerMinute: 8},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		MQTT: MQTTConfig{
			Broker:      "localhost",
			Port:        1883,
			ClientID:    "greenhouse-controller",
			TopicPrefix: "greenhouse",
			QoS:         1,
		},
		InfluxDB: InfluxDBConfig{
			URL:             "http://localhost:8086",
			Bucket:          "greenhouse",
			BatchSize:       100,
			FlushIntervalMS: 1000,
		},
		Datadog: DatadogConfig{
			AgentAddr: "127.0.0.1:8125",
			Namespace: "greenhouse.",
		},
		Ntfy: NtfyConfig{
			Server: "https://ntfy.sh",
		},
		Seed: DefaultSeed(),
	}
}

func applyEnvOverrides(cfg *Config) {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	setString("GREENHOUSE_TIMEZONE", &cfg.Site.Timezone)
	setString("GREENHOUSE_STORAGE_DRIVER", &cfg.Storage.Driver)
	setString("GREENHOUSE_SQLITE_PATH", &cfg.Storage.SQLitePath)
	setString("GREENHOUSE_LOG_LEVEL", &cfg.Logging.Level)
	setString("GREENHOUSE_MQTT_BROKER", &cfg.MQTT.Broker)
	setString("GREENHOUSE_MQTT_USERNAME", &cfg.MQTT.Username)
	setString("GREENHOUSE_MQTT_PASSWORD", &cfg.MQTT.Password)
	setString("GREENHOUSE_INFLUXDB_URL", &cfg.InfluxDB.URL)
	setString("GREENHOUSE_INFLUXDB_TOKEN", &cfg.InfluxDB.Token)
	setString("GREENHOUSE_DD_AGENT_ADDR", &cfg.Datadog.AgentAddr)
	setString("GREENHOUSE_NTFY_TOPIC", &cfg.Ntfy.Topic)

	if v, ok := os.LookupEnv("GREENHOUSE_API_PORT"); ok {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}
}

func parseLogLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Location is the site timezone that schedules are evaluated in.
func (cfg *Config) Location() *time.Location {
	loc, err := time.LoadLocation(cfg.Site.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func (cfg *Config) SimulatorInterval() time.Duration {
	return time.Duration(cfg.Scheduler.SimulatorIntervalSeconds) * time.Second
}

func (cfg *Config) EvaluatorInterval() time.Duration {
	return time.Duration(cfg.Scheduler.EvaluatorIntervalSeconds) * time.Second
}

func (cfg *Config) ManualWateringWindow() time.Duration {
	return time.Duration(cfg.Scheduler.ManualWateringMinutes) * time.Minute
}

func (cfg *Config) validate() error {
	var problems []string

	if _, err := time.LoadLocation(cfg.Site.Timezone); err != nil {
		problems = append(problems, fmt.Sprintf("site.timezone %q: %v", cfg.Site.Timezone, err))
	}

	switch cfg.Storage.Driver {
	case "memory":
	case "sqlite":
		if cfg.Storage.SQLitePath == "" {
			problems = append(problems, "storage.sqlite_path is required for the sqlite driver")
		}
	default:
		problems = append(problems, fmt.Sprintf("storage.driver %q must be memory or sqlite", cfg.Storage.Driver))
	}

	if cfg.Scheduler.SimulatorIntervalSeconds <= 0 {
		problems = append(problems, "scheduler.simulator_interval_seconds must be positive")
	}
	// Schedules match on an exact minute, so every minute must be evaluated.
	if s := cfg.Scheduler.EvaluatorIntervalSeconds; s <= 0 || s > 60 || 60%s != 0 {
		problems = append(problems, "scheduler.evaluator_interval_seconds must divide 60")
	}
	if cfg.Scheduler.ManualWateringMinutes <= 0 {
		problems = append(problems, "scheduler.manual_watering_minutes must be positive")
	}
	if cfg.Water.LitersPerMinute < 0 {
		problems = append(problems, "water.liters_per_minute must not be negative")
	}
	if cfg.API.Port <= 0 || cfg.API.Port > 65535 {
		problems = append(problems, fmt.Sprintf("api.port %d out of range", cfg.API.Port))
	}

	if cfg.MQTT.Enabled {
		if cfg.MQTT.Broker == "" {
			problems = append(problems, "mqtt.broker is required when mqtt is enabled")
		}
		if cfg.MQTT.QoS < 0 || cfg.MQTT.QoS > 2 {
			problems = append(problems, "mqtt.qos must be 0, 1 or 2")
		}
	}
	if cfg.InfluxDB.Enabled {
		if cfg.InfluxDB.URL == "" || cfg.InfluxDB.Org == "" || cfg.InfluxDB.Bucket == "" {
			problems = append(problems, "influxdb.url, influxdb.org and influxdb.bucket are required when influxdb is enabled")
		}
	}

	problems = append(problems, cfg.Seed.problems()...)

	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}
