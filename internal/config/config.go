package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration struct
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Relay    RelayConfig    `mapstructure:"relay"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
}

// ServerConfig holds the listen addresses for the two edges
type ServerConfig struct {
	RestAddr string `mapstructure:"restAddr"`
	WSAddr   string `mapstructure:"wsAddr"`
	WSPath   string `mapstructure:"wsPath"`
}

// StorageConfig holds the durable peer store settings
type StorageConfig struct {
	Path string `mapstructure:"path"`
}

// RelayConfig holds relay payload limits
type RelayConfig struct {
	// MaxDecodedBytes is the decoded payload ceiling; the encoded (base64)
	// ceiling is twice this value.
	MaxDecodedBytes int `mapstructure:"maxDecodedBytes"`
}

// ScheduleConfig holds background task intervals
type ScheduleConfig struct {
	LivenessSweep   time.Duration `mapstructure:"livenessSweep"`
	LivenessTimeout time.Duration `mapstructure:"livenessTimeout"`
	MetricsSummary  time.Duration `mapstructure:"metricsSummary"`
}

// Load reads configuration from file and environment
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.restAddr", "0.0.0.0:8080")
	v.SetDefault("server.wsAddr", "0.0.0.0:8081")
	v.SetDefault("server.wsPath", "/ws")
	v.SetDefault("storage.path", "/var/lib/gview/peers")
	v.SetDefault("relay.maxDecodedBytes", 512*1024)
	v.SetDefault("schedule.livenessSweep", 30*time.Second)
	v.SetDefault("schedule.livenessTimeout", 60*time.Second)
	v.SetDefault("schedule.metricsSummary", 5*time.Second)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
