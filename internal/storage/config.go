package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Lin-Jiong-HDU/slashcmd/internal/core/security"
)

const (
	ConfigFileName = "config"
	ConfigFileType = "yaml"
	DirName        = ".slashcmd"
	EnvPrefix      = "SLASHCMD"
)

var config *Config

// Config holds the application configuration
type Config struct {
	AI       AIConfig                `mapstructure:"ai" yaml:"ai"`
	Edge     EdgeConfig              `mapstructure:"edge" yaml:"edge"`
	Source   string                  `mapstructure:"source" yaml:"source"`
	Daemon   DaemonConfig            `mapstructure:"daemon" yaml:"daemon"`
	UI       UIConfig                `mapstructure:"ui" yaml:"ui"`
	Security security.SecurityPolicy `mapstructure:"security" yaml:"security"`
	History  HistoryConfig           `mapstructure:"history" yaml:"history"`
	Log      LogConfig               `mapstructure:"log" yaml:"log"`
}

// AIConfig holds the direct backends
type AIConfig struct {
	GroqAPIKey   string  `mapstructure:"groq_api_key" yaml:"groq_api_key"`
	GroqModel    string  `mapstructure:"groq_model" yaml:"groq_model"`
	GroqBaseURL  string  `mapstructure:"groq_base_url" yaml:"groq_base_url"`
	GeminiAPIKey string  `mapstructure:"gemini_api_key" yaml:"gemini_api_key"`
	GeminiModel  string  `mapstructure:"gemini_model" yaml:"gemini_model"`
	Timeout      int     `mapstructure:"timeout" yaml:"timeout"`
	MaxTokens    int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature  float64 `mapstructure:"temperature" yaml:"temperature"`
}

// EdgeConfig holds the hosted proxy settings
type EdgeConfig struct {
	URL   string `mapstructure:"url" yaml:"url"`
	Token string `mapstructure:"token" yaml:"token"`
}

// DaemonConfig holds the background process settings
type DaemonConfig struct {
	Socket            string `mapstructure:"socket" yaml:"socket"`
	IdleTimeout       int    `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	KeepAliveInterval int    `mapstructure:"keepalive_interval" yaml:"keepalive_interval"`
	PollQuantumMs     int    `mapstructure:"poll_quantum_ms" yaml:"poll_quantum_ms"`
	AutoSpawn         bool   `mapstructure:"autospawn" yaml:"autospawn"`
}

// UIConfig holds the interactive session settings
type UIConfig struct {
	Style          string `mapstructure:"style" yaml:"style"`
	ReservedLines  int    `mapstructure:"reserved_lines" yaml:"reserved_lines"`
	PollIntervalMs int    `mapstructure:"poll_interval_ms" yaml:"poll_interval_ms"`
	ResolveTimeout int    `mapstructure:"resolve_timeout" yaml:"resolve_timeout"`
}

// HistoryConfig holds the invocation history settings
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// TimeoutDuration returns the backend call timeout
func (c AIConfig) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// GetConfigDir returns the slashcmd config directory path
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, DirName), nil
}

// ConfigPath returns the config file path
func ConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName+"."+ConfigFileType), nil
}

// DefaultSocketPath is the per-user daemon endpoint
func DefaultSocketPath() string {
	return filepath.Join(os.TempDir(), fmt.Sprintf("slashcmd-%d.sock", os.Getuid()))
}

func setDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("ai.groq_api_key", "")
	v.SetDefault("ai.groq_model", "moonshotai/kimi-k2-instruct-0905")
	v.SetDefault("ai.groq_base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("ai.gemini_api_key", "")
	v.SetDefault("ai.gemini_model", "gemini-2.5-flash")
	v.SetDefault("ai.timeout", 30)
	v.SetDefault("ai.max_tokens", 500)
	v.SetDefault("ai.temperature", 0.3)

	v.SetDefault("edge.url", "")
	v.SetDefault("edge.token", "")
	v.SetDefault("source", "direct")

	v.SetDefault("daemon.socket", DefaultSocketPath())
	v.SetDefault("daemon.idle_timeout", 300)
	v.SetDefault("daemon.keepalive_interval", 30)
	v.SetDefault("daemon.poll_quantum_ms", 10)
	v.SetDefault("daemon.autospawn", true)

	v.SetDefault("ui.style", "typescript")
	v.SetDefault("ui.reserved_lines", 15)
	v.SetDefault("ui.poll_interval_ms", 100)
	v.SetDefault("ui.resolve_timeout", 30)

	// Security defaults
	v.SetDefault("security.command_level", "dangerous")
	v.SetDefault("security.dangerous_commands", []string{})

	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", filepath.Join(configDir, "history.db"))

	v.SetDefault("log.level", "info")
}

func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// well-known provider variables
	_ = v.BindEnv("ai.groq_api_key", EnvPrefix+"_AI_GROQ_API_KEY", "GROQ_API_KEY")
	_ = v.BindEnv("ai.gemini_api_key", EnvPrefix+"_AI_GEMINI_API_KEY", "GEMINI_API_KEY")
	_ = v.BindEnv("edge.token", EnvPrefix+"_EDGE_TOKEN")
}

// InitConfig initializes the configuration
func InitConfig() (*Config, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return nil, err
	}

	// Create config directory if not exists
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName(ConfigFileName)
	v.SetConfigType(ConfigFileType)
	v.AddConfigPath(configDir)

	setDefaults(v, configDir)
	bindEnv(v)

	// Read config file (ignore if not exists)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	config = &cfg
	return config, nil
}

// GetConfig returns the loaded config
func GetConfig() *Config {
	return config
}

// Validate checks values that would otherwise fail later and far away.
func (c *Config) Validate() error {
	switch c.Source {
	case "direct":
	case "proxied":
		if c.Edge.URL == "" {
			return errors.New("source 'proxied' requires edge.url")
		}
	default:
		return fmt.Errorf("invalid source %q (want direct or proxied)", c.Source)
	}

	switch c.Security.CommandLevel {
	case security.ConfirmAlways, security.ConfirmDangerous:
	default:
		return fmt.Errorf("invalid security.command_level %q (want always or dangerous)", c.Security.CommandLevel)
	}
	return nil
}

// Redacted returns a copy with secrets masked, for display.
func (c *Config) Redacted() Config {
	r := *c
	r.AI.GroqAPIKey = mask(r.AI.GroqAPIKey)
	r.AI.GeminiAPIKey = mask(r.AI.GeminiAPIKey)
	r.Edge.Token = mask(r.Edge.Token)
	return r
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + "****" + secret[len(secret)-4:]
}

// SaveConfig writes cfg as the config file
func SaveConfig(cfg *Config) error {
	configDir, err := GetConfigDir()
	if err != nil {
		return err
	}

	// Create config directory if not exists
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigType(ConfigFileType)

	v.Set("ai.groq_api_key", cfg.AI.GroqAPIKey)
	v.Set("ai.groq_model", cfg.AI.GroqModel)
	v.Set("ai.groq_base_url", cfg.AI.GroqBaseURL)
	v.Set("ai.gemini_api_key", cfg.AI.GeminiAPIKey)
	v.Set("ai.gemini_model", cfg.AI.GeminiModel)
	v.Set("ai.timeout", cfg.AI.Timeout)
	v.Set("ai.max_tokens", cfg.AI.MaxTokens)
	v.Set("ai.temperature", cfg.AI.Temperature)

	v.Set("edge.url", cfg.Edge.URL)
	v.Set("edge.token", cfg.Edge.Token)
	v.Set("source", cfg.Source)

	v.Set("daemon.socket", cfg.Daemon.Socket)
	v.Set("daemon.idle_timeout", cfg.Daemon.IdleTimeout)
	v.Set("daemon.keepalive_interval", cfg.Daemon.KeepAliveInterval)
	v.Set("daemon.poll_quantum_ms", cfg.Daemon.PollQuantumMs)
	v.Set("daemon.autospawn", cfg.Daemon.AutoSpawn)

	v.Set("ui.style", cfg.UI.Style)
	v.Set("ui.reserved_lines", cfg.UI.ReservedLines)
	v.Set("ui.poll_interval_ms", cfg.UI.PollIntervalMs)
	v.Set("ui.resolve_timeout", cfg.UI.ResolveTimeout)

	// Save security config
	v.Set("security.command_level", string(cfg.Security.CommandLevel))
	v.Set("security.dangerous_commands", cfg.Security.DangerousCommands)

	v.Set("history.enabled", cfg.History.Enabled)
	v.Set("history.path", cfg.History.Path)
	v.Set("log.level", cfg.Log.Level)

	configPath := filepath.Join(configDir, ConfigFileName+"."+ConfigFileType)
	return v.WriteConfigAs(configPath)
}

// SetValue writes one key to the config file. Only values from the file
// itself are rewritten; environment overrides are never persisted.
func SetValue(key, value string) error {
	configDir, err := GetConfigDir()
	if err != nil {
		return err
	}

	known := viper.New()
	setDefaults(known, configDir)
	if !known.IsSet(key) {
		return fmt.Errorf("unknown config key %q", key)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	configPath := filepath.Join(configDir, ConfigFileName+"."+ConfigFileType)

	v := viper.New()
	v.SetConfigFile(configPath)
	if _, err := os.Stat(configPath); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	switch known.Get(key).(type) {
	case []string:
		var items []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		v.Set(key, items)
	default:
		v.Set(key, value)
	}

	if err := v.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
