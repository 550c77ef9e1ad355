package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. SUMTREE_HASH_MATCH.
const EnvPrefix = "SUMTREE"

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Daily      bool   `mapstructure:"daily"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level      string            `mapstructure:"level"`
	Path       string            `mapstructure:"path"`
	Rotation   RotationConfig    `mapstructure:"rotation"`
	Components map[string]string `mapstructure:"components"`
}

// HashConfig configures manifest generation.
type HashConfig struct {
	Match          string `mapstructure:"match"`
	FollowSymlinks bool   `mapstructure:"follow_symlinks"`
	Workers        int    `mapstructure:"workers"`
}

// VerifyConfig configures verification.
type VerifyConfig struct {
	// ErrorLogName is a pattern with {manifest} and {ts} placeholders.
	ErrorLogName string `mapstructure:"error_log_name"`
}

// CacheConfig configures the digest cache used by hash --cache.
type CacheConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// JournalConfig configures the operation journal.
type JournalConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Path          string `mapstructure:"path"`
	RetentionDays int    `mapstructure:"retention_days"`
}

// Config represents the application configuration.
type Config struct {
	Algorithm string        `mapstructure:"algorithm"`
	Exclude   []string      `mapstructure:"exclude"`
	Output    string        `mapstructure:"output"`
	Hash      HashConfig    `mapstructure:"hash"`
	Verify    VerifyConfig  `mapstructure:"verify"`
	Cache     CacheConfig   `mapstructure:"cache"`
	Journal   JournalConfig `mapstructure:"journal"`
	Logging   LoggingConfig `mapstructure:"logging"`
}

// Setup prepares v to read sumtree configuration: search paths (or the
// explicit file), the SUMTREE_ environment prefix and all defaults.
func Setup(v *viper.Viper, file string) {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		for _, dir := range searchDirs() {
			v.AddConfigPath(dir)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	SetDefaults(v)
}

// SetDefaults registers every default value on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("algorithm", DefaultAlgorithm)
	v.SetDefault("exclude", []string{})
	v.SetDefault("output", DefaultOutput)

	v.SetDefault("hash.match", DefaultMatch)
	v.SetDefault("hash.follow_symlinks", false)
	v.SetDefault("hash.workers", DefaultWorkers)

	v.SetDefault("verify.error_log_name", DefaultErrorLogName)

	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.path", DefaultCachePath())

	v.SetDefault("journal.enabled", true)
	v.SetDefault("journal.path", DefaultJournalPath())
	v.SetDefault("journal.retention_days", DefaultRetentionDays)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "") // empty means logging.DefaultLogPath
	v.SetDefault("logging.rotation.max_size", "10MB")
	v.SetDefault("logging.rotation.max_age", 30)
	v.SetDefault("logging.rotation.max_backups", 5)
	v.SetDefault("logging.rotation.daily", true)
	v.SetDefault("logging.components", map[string]string{})
}

// Read loads the config file into v. A missing file in the search path is
// not an error; a missing explicit file is.
func Read(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// Decode unmarshals v into a Config and expands ~ in paths.
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	for _, p := range []*string{&cfg.Cache.Path, &cfg.Journal.Path, &cfg.Logging.Path} {
		expanded, err := ExpandPath(*p)
		if err != nil {
			return nil, err
		}
		*p = expanded
	}
	return &cfg, nil
}

// Load reads configuration from file and environment into a fresh viper
// instance. file may be empty to use the search path:
//   - $XDG_CONFIG_HOME/sumtree/config.yaml
//   - $HOME/.config/sumtree/config.yaml
func Load(file string) (*Config, error) {
	v := viper.New()
	Setup(v, file)
	if err := Read(v); err != nil {
		return nil, err
	}
	return Decode(v)
}

func searchDirs() []string {
	var dirs []string
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		dirs = append(dirs, filepath.Join(xdgConfigHome, "sumtree"))
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(homeDir, ".config", "sumtree"))
	}
	return dirs
}

// ConfigDir returns the configuration directory path.
func ConfigDir() (string, error) {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, "sumtree"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", "sumtree"), nil
}

// ConfigPath returns the path of the default config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// EnsureConfigDir creates the config directory if it doesn't exist.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return nil
}

// WriteDefault writes a default config file if none exists and returns its
// path. An existing file is left alone.
func WriteDefault() (string, error) {
	if err := EnsureConfigDir(); err != nil {
		return "", err
	}

	configPath, err := ConfigPath()
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(configPath); err == nil {
		return configPath, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to check config file: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(defaultFile()), 0o644); err != nil {
		return "", fmt.Errorf("failed to write default config: %w", err)
	}

	return configPath, nil
}

func defaultFile() string {
	return fmt.Sprintf(`# sumtree configuration

# Digest algorithm when --algorithm is not given: md5 or sha256
algorithm: %s

# Report format: pretty, plain, json, jsonl, yaml, template, tsv, csv, markdown, paths, null
output: %s

# Patterns skipped when hashing a tree (doublestar globs; a trailing / skips
# a directory). Nothing is skipped unless listed here or given with --exclude.
exclude: []
#  - .git/
#  - .DS_Store

hash:
  # How --append decides a file is already listed: basename or path
  match: %s
  follow_symlinks: false
  # Directory walk parallelism (0 = automatic); files are hashed one at a time
  workers: 0

verify:
  # Error log name next to the manifest; {manifest} and {ts} are replaced
  error_log_name: "%s"

# Digest cache used by hash --cache (never by verify)
cache:
  enabled: false
  path: %s

# Record of hash, verify and import runs
journal:
  enabled: true
  path: %s
  retention_days: %d

logging:
  # Log level: debug, info, warn, error
  level: info
  # Log file path (empty means $XDG_STATE_HOME/sumtree/sumtree.log)
  path: ""
  rotation:
    max_size: 10MB
    max_age: 30       # days
    max_backups: 5
    daily: true
  # Per-component log levels, e.g. engine: debug
  components: {}
`, DefaultAlgorithm, DefaultOutput, DefaultMatch, DefaultErrorLogName,
		DefaultCachePath(), DefaultJournalPath(), DefaultRetentionDays)
}

// ExpandPath expands ~ in a path to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, path[1:]), nil
}

// DataDir returns $XDG_DATA_HOME/sumtree/ for the journal.
func DataDir() string {
	return filepath.Join(xdg.DataHome, "sumtree")
}

// StateDir returns $XDG_STATE_HOME/sumtree/ for log files.
func StateDir() string {
	return filepath.Join(xdg.StateHome, "sumtree")
}

// CacheDir returns $XDG_CACHE_HOME/sumtree/.
func CacheDir() string {
	return filepath.Join(xdg.CacheHome, "sumtree")
}

// DefaultCachePath returns the default digest cache directory.
func DefaultCachePath() string {
	return filepath.Join(CacheDir(), "digests")
}

// DefaultJournalPath returns the default journal directory.
func DefaultJournalPath() string {
	return filepath.Join(DataDir(), "journal")
}

// DefaultLogPath returns the default log file path.
func DefaultLogPath() string {
	return filepath.Join(StateDir(), "sumtree.log")
}

// EnsureStateDir creates the state directory if it doesn't exist.
func EnsureStateDir() error {
	if err := os.MkdirAll(StateDir(), 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	return nil
}
