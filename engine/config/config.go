// Package config loads runtime settings with viper.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory
const FileName = "rts.cfg.json"

// Config is the typed view of the loaded settings
type Config struct {
	TickRate   float64 `mapstructure:"tickRate"`
	InputDelay int     `mapstructure:"inputDelay"`

	Selection SelectionConfig `mapstructure:"selection"`
	Net       NetConfig       `mapstructure:"net"`
	Log       LogConfig       `mapstructure:"log"`

	MapPath     string `mapstructure:"mapPath"`
	ReplayPath  string `mapstructure:"replayPath"`
	ArchivePath string `mapstructure:"archivePath"`
	LocalPlayer int    `mapstructure:"localPlayer"`
	// AI drives the other seats when playing offline
	AI bool `mapstructure:"ai"`
}

// SelectionConfig tunes the selection resolver
type SelectionConfig struct {
	PointRadius    float64 `mapstructure:"pointRadius"`
	PointCap       int     `mapstructure:"pointCap"`
	ClickEpsilonSq float64 `mapstructure:"clickEpsilonSq"`
}

// NetConfig selects and addresses the transport
type NetConfig struct {
	Mode string `mapstructure:"mode"` // "", "udp" or "ws"
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// Serve runs this process as the host (udp) or relay (ws)
	Serve bool `mapstructure:"serve"`
}

// LogConfig configures the rolling log file
type LogConfig struct {
	File       string `mapstructure:"file"`
	Level      string `mapstructure:"level"`
	MaxSizeMB  int    `mapstructure:"maxSizeMB"`
	MaxBackups int    `mapstructure:"maxBackups"`
	MaxAgeDays int    `mapstructure:"maxAgeDays"`
}

// SetDefaults installs default values
func SetDefaults() {
	viper.SetDefault("tickRate", 20.0)
	viper.SetDefault("inputDelay", 2)

	viper.SetDefault("selection.pointRadius", 1.0)
	viper.SetDefault("selection.pointCap", 5)
	viper.SetDefault("selection.clickEpsilonSq", 0.01)

	viper.SetDefault("net.mode", "")
	viper.SetDefault("net.host", "localhost")
	viper.SetDefault("net.port", 7777)
	viper.SetDefault("net.serve", false)

	viper.SetDefault("log.file", "rts.log")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.maxSizeMB", 10)
	viper.SetDefault("log.maxBackups", 3)
	viper.SetDefault("log.maxAgeDays", 7)

	viper.SetDefault("mapPath", "")
	viper.SetDefault("replayPath", "")
	viper.SetDefault("archivePath", "")
	viper.SetDefault("localPlayer", 0)
	viper.SetDefault("ai", true)
}

// Load sets defaults and reads rts.cfg.json from configDir. A missing file
// is not an error; defaults apply. RTS_* environment variables override.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(FileName)
	viper.SetConfigType("json")
	viper.AddConfigPath(configDir)
	viper.SetEnvPrefix("rts")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

// Get returns the typed config from the global viper instance
func Get() (Config, error) {
	var c Config
	if err := viper.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if c.TickRate <= 0 {
		return Config{}, fmt.Errorf("tickRate must be positive, got %v", c.TickRate)
	}
	if c.LocalPlayer < 0 || c.LocalPlayer >= 64 {
		return Config{}, fmt.Errorf("localPlayer out of range: %d", c.LocalPlayer)
	}
	switch c.Net.Mode {
	case "", "udp", "ws":
	default:
		return Config{}, fmt.Errorf("unknown net.mode %q", c.Net.Mode)
	}
	return c, nil
}
