// Package config loads repomap settings from file, environment, and
// defaults.
//
// Settings come from a repomap.yaml found in the working directory or
// the state directory (~/.repomap), overridable through environment
// variables. A missing config file is not an error: every setting has
// a usable default.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/repomap/repomap/internal/analyze"
	"github.com/repomap/repomap/internal/scan"
	"github.com/repomap/repomap/internal/store"
	"github.com/repomap/repomap/internal/tracker"
	"github.com/repomap/repomap/internal/watch"
)

// ConfigName is the config file base name (without extension).
const ConfigName = "repomap"

// Settings is the resolved application configuration.
type Settings struct {
	// DebounceInterval is the quiet period before a filesystem change
	// triggers re-analysis.
	DebounceInterval time.Duration `mapstructure:"debounce_interval"`

	// MaxDepth and MaxFiles bound the tree scan.
	MaxDepth int `mapstructure:"max_depth"`
	MaxFiles int `mapstructure:"max_files"`

	// MaxAnalyzableFileSize is the per-file ceiling for AI analysis.
	MaxAnalyzableFileSize int64 `mapstructure:"max_analyzable_file_size"`

	// MaxAnalyzedFiles caps files sent to the AI per run.
	MaxAnalyzedFiles int `mapstructure:"max_analyzed_files"`

	// FileTimeout bounds each AI call.
	FileTimeout time.Duration `mapstructure:"file_timeout"`

	// Model selects the Anthropic model for content analysis.
	Model string `mapstructure:"model"`

	// APIKey authenticates with the Anthropic API. Usually supplied
	// through the ANTHROPIC_API_KEY environment variable.
	APIKey string `mapstructure:"api_key"`

	// DashboardPort is the WebSocket dashboard listen port.
	DashboardPort int `mapstructure:"dashboard_port"`

	// StateDir holds the database and log files. Defaults to
	// ~/.repomap.
	StateDir string `mapstructure:"state_dir"`

	// LogFile is the daemon log path. Empty means stderr only.
	LogFile string `mapstructure:"log_file"`
}

// Defaults returns the built-in settings.
func Defaults() *Settings {
	return &Settings{
		DebounceInterval:      watch.DefaultDebounceInterval,
		MaxDepth:              scan.DefaultMaxDepth,
		MaxFiles:              scan.DefaultMaxFiles,
		MaxAnalyzableFileSize: analyze.DefaultMaxAnalyzableFileSize,
		MaxAnalyzedFiles:      analyze.DefaultMaxAnalyzedFiles,
		FileTimeout:           analyze.DefaultFileTimeout,
		Model:                 "",
		DashboardPort:         8090,
		StateDir:              defaultStateDir(),
	}
}

func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".repomap"
	}
	return filepath.Join(home, ".repomap")
}

// Load resolves settings from the given config file, or from the
// standard search paths when cfgFile is empty.
func Load(cfgFile string) (*Settings, error) {
	v := viper.New()
	defaults := Defaults()

	v.SetDefault("debounce_interval", defaults.DebounceInterval)
	v.SetDefault("max_depth", defaults.MaxDepth)
	v.SetDefault("max_files", defaults.MaxFiles)
	v.SetDefault("max_analyzable_file_size", defaults.MaxAnalyzableFileSize)
	v.SetDefault("max_analyzed_files", defaults.MaxAnalyzedFiles)
	v.SetDefault("file_timeout", defaults.FileTimeout)
	v.SetDefault("model", defaults.Model)
	v.SetDefault("api_key", "")
	v.SetDefault("dashboard_port", defaults.DashboardPort)
	v.SetDefault("state_dir", defaults.StateDir)
	v.SetDefault("log_file", "")

	v.AutomaticEnv()
	_ = v.BindEnv("api_key", "ANTHROPIC_API_KEY", "REPOMAP_API_KEY")
	_ = v.BindEnv("model", "REPOMAP_MODEL")
	_ = v.BindEnv("state_dir", "REPOMAP_STATE_DIR")
	_ = v.BindEnv("dashboard_port", "REPOMAP_DASHBOARD_PORT")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", cfgFile, err)
		}
	} else {
		v.SetConfigName(ConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(defaults.StateDir)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
			// No file anywhere: defaults and environment apply.
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &s, nil
}

// ScanLimits converts the settings into scanner limits.
func (s *Settings) ScanLimits() scan.Limits {
	limits := scan.DefaultLimits()
	if s.MaxDepth > 0 {
		limits.MaxDepth = s.MaxDepth
	}
	if s.MaxFiles > 0 {
		limits.MaxFiles = s.MaxFiles
	}
	return limits
}

// StorePath returns the database file path under the state directory.
func (s *Settings) StorePath() string {
	return filepath.Join(s.StateDir, store.DefaultFileName)
}

// AnalyzerConfig builds an analyzer configuration from the settings.
func (s *Settings) AnalyzerConfig() *analyze.Config {
	cfg := analyze.DefaultConfig()
	cfg.Limits = s.ScanLimits()
	if s.MaxAnalyzableFileSize > 0 {
		cfg.MaxAnalyzableFileSize = s.MaxAnalyzableFileSize
	}
	if s.MaxAnalyzedFiles > 0 {
		cfg.MaxAnalyzedFiles = s.MaxAnalyzedFiles
	}
	if s.FileTimeout > 0 {
		cfg.FileTimeout = s.FileTimeout
	}
	return cfg
}

// TrackerConfig builds a tracker configuration from the settings.
func (s *Settings) TrackerConfig() *tracker.Config {
	cfg := tracker.DefaultConfig()
	if s.DebounceInterval > 0 {
		cfg.DebounceInterval = s.DebounceInterval
	}
	return cfg
}
