package main

import (
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Config represents the mptable configuration file
// (~/.config/mptable/config.yaml). Values only apply when the matching
// flag was not given.
type Config struct {
	Image          string `yaml:"image"`
	Origin         string `yaml:"origin"`
	Pointer        string `yaml:"pointer"`
	Table          string `yaml:"table"`
	WindowStart    string `yaml:"window_start"`
	WindowSize     string `yaml:"window_size"`
	StrictChecksum *bool  `yaml:"strict_checksum"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	ServerAddress string   `yaml:"server_address"`
	ReloadRate    *float64 `yaml:"reload_rate"`
}

func configPath() string {
	if p := os.Getenv("MPTABLE_CONFIG"); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "mptable", "config.yaml")
}

// LoadConfig reads the config file. Returns a zero Config if the file doesn't exist.
func LoadConfig() Config {
	path := configPath()
	if path == "" {
		return Config{}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}
	}
	return parseConfig(data)
}

func parseConfig(data []byte) Config {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}
	}
	return cfg
}

func applySourceConfig(c *cli.Command, cfg Config, o *sourceOptions) {
	if cfg.Image != "" && !c.IsSet("image") {
		o.image = cfg.Image
	}
	if cfg.Origin != "" && !c.IsSet("origin") {
		o.origin = cfg.Origin
	}
	// An explicit --table overrides a configured pointer and vice versa.
	if cfg.Pointer != "" && !c.IsSet("pointer") && !c.IsSet("table") {
		o.pointer = cfg.Pointer
	}
	if cfg.Table != "" && !c.IsSet("table") && !c.IsSet("pointer") {
		o.table = cfg.Table
	}
	if cfg.WindowStart != "" && !c.IsSet("window-start") {
		o.windowStart = cfg.WindowStart
	}
	if cfg.WindowSize != "" && !c.IsSet("window-size") {
		o.windowSize = cfg.WindowSize
	}
	if cfg.StrictChecksum != nil && !c.IsSet("strict") {
		o.strict = *cfg.StrictChecksum
	}
}

func applyLoggingConfig(c *cli.Command, cfg Config) {
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
}

func applyServeConfig(c *cli.Command, cfg Config, addr *string, reloadRate *float64) {
	if cfg.ServerAddress != "" && !c.IsSet("addr") {
		*addr = cfg.ServerAddress
	}
	if cfg.ReloadRate != nil && !c.IsSet("reload-rate") {
		*reloadRate = *cfg.ReloadRate
	}
}
