package merge

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable read by LoadConfig,
// e.g. FINIQUITO_LOG_LEVEL or FINIQUITO_OVERLAY_FONT.
const EnvPrefix = "FINIQUITO"

// Config contains all configuration options for the generator
type Config struct {
	// LogLevel controls the verbosity of logging (debug, info, warn, error, off)
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
	// LogFormat selects the console or json encoder
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
	// StrictMode turns placeholders left in a document into a record error
	StrictMode bool `mapstructure:"strict_mode" yaml:"strict_mode"`
	// Workers is the number of records rendered concurrently
	Workers int `mapstructure:"workers" yaml:"workers"`
	// CacheTTL is the time-to-live for cached templates. 0 means no expiration.
	CacheTTL time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`

	Overlay OverlayConfig `mapstructure:"overlay" yaml:"overlay"`
	Sheet   SheetConfig   `mapstructure:"sheet" yaml:"sheet"`
	Output  OutputConfig  `mapstructure:"output" yaml:"output"`
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	History HistoryConfig `mapstructure:"history" yaml:"history"`
}

// OverlayConfig is the formatting forced onto every rewritten run
type OverlayConfig struct {
	Font string `mapstructure:"font" yaml:"font"`
	// Size is in points
	Size float64 `mapstructure:"size" yaml:"size"`
	Bold bool    `mapstructure:"bold" yaml:"bold"`
}

// SheetConfig locates the records inside the workbook
type SheetConfig struct {
	Name string `mapstructure:"name" yaml:"name"`
	// HeaderRow is 1-based, as shown in spreadsheet software
	HeaderRow int    `mapstructure:"header_row" yaml:"header_row"`
	NameField string `mapstructure:"name_field" yaml:"name_field"`
}

// OutputConfig holds where generated documents go on the command line
type OutputConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr         string `mapstructure:"addr" yaml:"addr"`
	UploadDir    string `mapstructure:"upload_dir" yaml:"upload_dir"`
	ProcessedDir string `mapstructure:"processed_dir" yaml:"processed_dir"`
	// MaxUploadMB limits the multipart form size
	MaxUploadMB int `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`
}

// HistoryConfig holds the generation history database settings
type HistoryConfig struct {
	// Path of the sqlite file; empty disables history
	Path string `mapstructure:"path" yaml:"path"`
}

var (
	globalConfig      *Config
	globalConfigMutex sync.RWMutex
	configOnce        sync.Once
)

func ensureGlobalConfig() {
	configOnce.Do(func() {
		cfg := ConfigFromEnvironment()
		globalConfigMutex.Lock()
		if globalConfig == nil {
			globalConfig = cfg
		}
		globalConfigMutex.Unlock()
	})
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		LogLevel:   "info",
		LogFormat:  "console",
		StrictMode: false,
		Workers:    1,
		CacheTTL:   10 * time.Minute,
		Overlay: OverlayConfig{
			Font: DefaultOverlayFont,
			Size: float64(DefaultOverlaySize) / 2,
			Bold: true,
		},
		Sheet: SheetConfig{
			Name:      "CALCULO",
			HeaderRow: 6,
			NameField: FieldName,
		},
		Output: OutputConfig{
			Dir: "finiquitos",
		},
		Server: ServerConfig{
			Addr:         ":5000",
			UploadDir:    "uploads",
			ProcessedDir: "processed",
			MaxUploadMB:  32,
		},
		History: HistoryConfig{
			Path: "data/finiquitos.db",
		},
	}
}

// setDefaults registers every key with viper so environment variables are
// picked up for keys absent from the config file.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)
	v.SetDefault("strict_mode", d.StrictMode)
	v.SetDefault("workers", d.Workers)
	v.SetDefault("cache_ttl", d.CacheTTL)

	v.SetDefault("overlay.font", d.Overlay.Font)
	v.SetDefault("overlay.size", d.Overlay.Size)
	v.SetDefault("overlay.bold", d.Overlay.Bold)

	v.SetDefault("sheet.name", d.Sheet.Name)
	v.SetDefault("sheet.header_row", d.Sheet.HeaderRow)
	v.SetDefault("sheet.name_field", d.Sheet.NameField)

	v.SetDefault("output.dir", d.Output.Dir)

	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.upload_dir", d.Server.UploadDir)
	v.SetDefault("server.processed_dir", d.Server.ProcessedDir)
	v.SetDefault("server.max_upload_mb", d.Server.MaxUploadMB)

	v.SetDefault("history.path", d.History.Path)
}

// NewViper returns a viper instance with defaults and environment binding in
// place. The CLI binds its flags onto the same instance.
func NewViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadConfig loads configuration from an optional YAML file and the
// environment. Environment variables win over the file.
func LoadConfig(path string) (*Config, error) {
	v := NewViper()
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return ConfigFromViper(v)
}

// ConfigFromViper decodes and validates the configuration held by v.
func ConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// ConfigFromEnvironment creates a configuration from environment variables.
// Invalid values fall back to the defaults.
func ConfigFromEnvironment() *Config {
	cfg, err := LoadConfig("")
	if err != nil {
		return DefaultConfig()
	}
	return cfg
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"off":   true,
	}
	if !validLogLevels[c.LogLevel] {
		return errors.New("invalid log level: " + c.LogLevel)
	}

	if c.LogFormat != "console" && c.LogFormat != "json" {
		return errors.New("invalid log format: " + c.LogFormat)
	}

	if c.Workers < 1 {
		return errors.New("workers must be at least 1")
	}

	if c.CacheTTL < 0 {
		return errors.New("cache TTL cannot be negative")
	}

	if strings.TrimSpace(c.Overlay.Font) == "" {
		return errors.New("overlay font cannot be empty")
	}

	if c.Overlay.Size <= 0 {
		return errors.New("overlay size must be positive")
	}

	if c.Sheet.HeaderRow < 1 {
		return errors.New("sheet header row must be at least 1")
	}

	if strings.TrimSpace(c.Sheet.NameField) == "" {
		return errors.New("sheet name field cannot be empty")
	}

	return nil
}

// FormattingOverlay converts the overlay settings into the rewriter's form.
func (c *Config) FormattingOverlay() Overlay {
	return Overlay{
		Bold:           c.Overlay.Bold,
		Font:           c.Overlay.Font,
		SizeHalfPoints: int(c.Overlay.Size*2 + 0.5),
	}
}

// GetGlobalConfig returns the global configuration
func GetGlobalConfig() *Config {
	ensureGlobalConfig()
	globalConfigMutex.RLock()
	defer globalConfigMutex.RUnlock()

	if globalConfig == nil {
		return DefaultConfig()
	}

	// Return a copy to prevent modification
	configCopy := *globalConfig
	return &configCopy
}

// SetGlobalConfig sets the global configuration
func SetGlobalConfig(config *Config) {
	ensureGlobalConfig()
	globalConfigMutex.Lock()
	globalConfig = config
	globalConfigMutex.Unlock()

	// Update logger based on new config (outside the lock to avoid deadlock)
	UpdateLoggerFromConfig()
}
