package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Source configures where files come from and in which order they leave.
type Source struct {
	// Directory is a path or a text/template evaluated on every scan,
	// e.g. "/data/in/{{ .Now.Format \"2006-01-02\" }}".
	Directory           string   `toml:"directory"`
	AutoCreateDirectory bool     `toml:"auto_create_directory"`
	ScanEachPoll        bool     `toml:"scan_each_poll"`
	Recursive           bool     `toml:"recursive"`
	Order               string   `toml:"order"` // name, oldest, newest
	IgnoreDirs          []string `toml:"ignore_dirs"`
}

// Watch configures the event-driven scanner.
type Watch struct {
	Enabled        bool     `toml:"enabled"`
	Events         []string `toml:"events"` // create, modify, delete
	MaxDepth       int      `toml:"max_depth"`
	SkipHiddenDirs bool     `toml:"skip_hidden_dirs"`
	BufferSize     int      `toml:"buffer_size"`
}

// Filter configures which listed files are eligible.
type Filter struct {
	Pattern            string   `toml:"pattern"`
	Regex              string   `toml:"regex"`
	NameContains       []string `toml:"name_contains"` // keep names containing any of these
	NameExcludes       []string `toml:"name_excludes"` // drop names containing any of these
	IgnoreHidden       bool     `toml:"ignore_hidden"`
	AcceptOnce         bool     `toml:"accept_once"`
	AcceptOnceCapacity int      `toml:"accept_once_capacity"`
	MinAgeSeconds      int      `toml:"min_age_seconds"`
	Persistent         bool     `toml:"persistent"`
	StorePath          string   `toml:"store_path"`
	KeyPrefix          string   `toml:"key_prefix"`
}

// Locker configures claim locking.
type Locker struct {
	Enabled bool `toml:"enabled"`
}

// Daemon configures the daemon transports.
type Daemon struct {
	SocketPath string `toml:"socket_path"` // empty derives one from the directory
	HTTPBind   string `toml:"http_bind"`   // empty disables HTTP
}

// Logging contains configuration for log output.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // text or json
}

// Config encapsulates all configuration values for intake.
//
// Configuration sections by subsystem:
//   - Source: directory, ordering and scan cadence
//   - Watch: filesystem notification settings
//   - Filter: name patterns, minimum age and accept-once memory
//   - Locker: advisory claim locks
//   - Daemon: socket and HTTP endpoints
//   - Logging: log format and level
type Config struct {
	Source  Source  `toml:"source"`
	Watch   Watch   `toml:"watch"`
	Filter  Filter  `toml:"filter"`
	Locker  Locker  `toml:"locker"`
	Daemon  Daemon  `toml:"daemon"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/intake/config.toml")
}

// Load locates, parses, and validates a configuration file. It returns the
// config, the path it resolved to and whether that file existed. A missing
// file is not an error: defaults apply.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// Parse decodes, normalizes and validates TOML from memory.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Encode renders cfg as TOML.
func Encode(cfg *Config) ([]byte, error) {
	return toml.Marshal(cfg)
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("intake.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// IsTemplate reports whether the source directory is evaluated per scan.
func (c *Config) IsTemplate() bool {
	return strings.Contains(c.Source.Directory, "{{")
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
