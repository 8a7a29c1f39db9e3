// Package config provides YAML-based configuration with environment
// overrides.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const envPrefix = "F1VIS"

// Config holds all runtime settings.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Provider ProviderConfig `mapstructure:"provider" yaml:"provider"`
	Storage  StorageConfig  `mapstructure:"storage" yaml:"storage"`
	Sessions SessionsConfig `mapstructure:"sessions" yaml:"sessions"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port         int    `mapstructure:"port" yaml:"port"`
	BindAddress  string `mapstructure:"bindAddress" yaml:"bindAddress"`
	ReadTimeout  int    `mapstructure:"readTimeoutSeconds" yaml:"readTimeoutSeconds"`
	WriteTimeout int    `mapstructure:"writeTimeoutSeconds" yaml:"writeTimeoutSeconds"`
	IdleTimeout  int    `mapstructure:"idleTimeoutSeconds" yaml:"idleTimeoutSeconds"`
	EnableCORS   bool   `mapstructure:"enableCors" yaml:"enableCors"`
	AllowOrigins string `mapstructure:"allowOrigins" yaml:"allowOrigins"`
	BodyLimit    string `mapstructure:"bodyLimit" yaml:"bodyLimit"`
}

// ProviderConfig contains upstream telemetry API settings.
type ProviderConfig struct {
	BaseURL  string `mapstructure:"baseUrl" yaml:"baseUrl"`
	Timeout  int    `mapstructure:"timeoutSeconds" yaml:"timeoutSeconds"`
	CacheDir string `mapstructure:"cacheDir" yaml:"cacheDir"`
}

// StorageConfig contains artifact and temp directory settings.
type StorageConfig struct {
	DataDir      string `mapstructure:"dataDir" yaml:"dataDir"`
	ArtifactsDir string `mapstructure:"artifactsDir" yaml:"artifactsDir"`
	TempDir      string `mapstructure:"tempDir" yaml:"tempDir"`
}

// SessionsConfig contains analysis session lifecycle settings.
type SessionsConfig struct {
	MaxSessions     int `mapstructure:"maxSessions" yaml:"maxSessions"`
	TimeoutMinutes  int `mapstructure:"timeoutMinutes" yaml:"timeoutMinutes"`
	CleanupMinutes  int `mapstructure:"cleanupIntervalMinutes" yaml:"cleanupIntervalMinutes"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8099)
	v.SetDefault("server.bindAddress", "0.0.0.0")
	v.SetDefault("server.readTimeoutSeconds", 30)
	v.SetDefault("server.writeTimeoutSeconds", 60)
	v.SetDefault("server.idleTimeoutSeconds", 120)
	v.SetDefault("server.enableCors", true)
	v.SetDefault("server.allowOrigins", "*")
	v.SetDefault("server.bodyLimit", "4M")

	v.SetDefault("provider.baseUrl", "https://api.openf1.org/v1")
	v.SetDefault("provider.timeoutSeconds", 30)
	v.SetDefault("provider.cacheDir", "./data/cache")

	v.SetDefault("storage.dataDir", "./data")
	v.SetDefault("storage.artifactsDir", "./data/artifacts")
	v.SetDefault("storage.tempDir", "./data/temp")

	v.SetDefault("sessions.maxSessions", 10)
	v.SetDefault("sessions.timeoutMinutes", 30)
	v.SetDefault("sessions.cleanupIntervalMinutes", 5)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Load reads configuration from the given file (optional) plus F1VIS_*
// environment variables, falling back to defaults.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", cfgFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return &cfg, nil
}

// Default returns the built-in defaults without reading any file.
func Default() *Config {
	cfg, _ := Load("")
	return cfg
}

// WriteDefault writes the default configuration as YAML to path.
func WriteDefault(path string) error {
	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("marshaling defaults: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// EnsureDirectories creates all configured data directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Storage.DataDir, c.Storage.ArtifactsDir, c.Storage.TempDir, c.Provider.CacheDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}
	return nil
}

// ServerAddr returns the host:port the HTTP server listens on.
func (c *Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}
