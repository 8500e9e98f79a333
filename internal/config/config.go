// Package config provides configuration management for the daemon.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"sync"
)

// Config represents the application configuration
type Config struct {
	// General contains general application settings
	General GeneralConfig `json:"general"`

	// Mover tunes the idle mouse nudging behavior
	Mover MoverConfig `json:"mover"`

	// Bridge tunes keyboard bridge emission
	Bridge BridgeConfig `json:"bridge"`

	// Logger configures log output
	Logger LoggerConfig `json:"logger"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	// ListenAddr is the host:port the API and link endpoint bind to
	ListenAddr string `json:"listen_addr"`

	// APIToken is an optional authentication token for API and link requests
	APIToken string `json:"api_token,omitempty"`

	// DeviceName is the label the virtual HID device registers under
	DeviceName string `json:"device_name"`

	// TrayEnabled shows the system tray status presenter
	TrayEnabled bool `json:"tray_enabled"`

	// HIDBackend selects the injection backend: "uinput" or "null"
	HIDBackend string `json:"hid_backend,omitempty"`
}

// MoverConfig tunes the idle mouse mover
type MoverConfig struct {
	// MinDelayMS is the lower bound of the random move interval
	MinDelayMS int `json:"min_delay_ms"`

	// MaxDelayMS is the upper bound of the random move interval
	MaxDelayMS int `json:"max_delay_ms"`
}

// BridgeConfig tunes keyboard bridge emission
type BridgeConfig struct {
	// CharIntervalMS is the pacing between emitted characters
	CharIntervalMS int `json:"char_interval_ms"`

	// QueueCapacity is the size of the text receive queue in bytes
	QueueCapacity int `json:"queue_capacity"`
}

// LoggerConfig configures log output
type LoggerConfig struct {
	// Level is the minimum level: "debug", "info", "warn", "error"
	Level string `json:"level"`

	// LogFile enables rotated JSON file output when set
	LogFile string `json:"log_file,omitempty"`

	// MaxSizeMB is the rotation threshold per log file
	MaxSizeMB int `json:"max_size_mb"`

	// MaxBackups is the number of rotated files to keep
	MaxBackups int `json:"max_backups"`

	// MaxAgeDays is the retention of rotated files in days
	MaxAgeDays int `json:"max_age_days"`

	// Compress gzips rotated files
	Compress bool `json:"compress"`
}

// DefaultConfig returns a new Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		General: GeneralConfig{
			ListenAddr:  "0.0.0.0:18089",
			DeviceName:  "keybridge",
			TrayEnabled: true,
			HIDBackend:  "uinput",
		},
		Mover: MoverConfig{
			MinDelayMS: 7000,
			MaxDelayMS: 60000,
		},
		Bridge: BridgeConfig{
			CharIntervalMS: 2,
			QueueCapacity:  4096,
		},
		Logger: LoggerConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 14,
		},
	}
}

// Manager handles loading and saving configuration
type Manager struct {
	mu         sync.Mutex
	configPath string
	config     *Config
}

// NewManager creates a configuration manager. An empty path selects the
// per-user default location.
func NewManager(path string) (*Manager, error) {
	if path == "" {
		var err error
		path, err = defaultConfigPath()
		if err != nil {
			return nil, err
		}
	}

	return &Manager{
		configPath: path,
		config:     DefaultConfig(),
	}, nil
}

// defaultConfigPath returns the per-user configuration file path
func defaultConfigPath() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "keybridge")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		configDir = filepath.Join(appData, "keybridge")
	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, ".config", "keybridge")
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", err
	}

	return filepath.Join(configDir, "config.json"), nil
}

// Path returns the configuration file path in use.
func (m *Manager) Path() string {
	return m.configPath
}

// Load reads the configuration from disk. A missing file keeps the defaults.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(m.configPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, m.config); err != nil {
		return err
	}
	m.normalizeLocked()
	return nil
}

// Save writes the configuration to disk
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := json.MarshalIndent(m.config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(m.configPath, data, 0644)
}

// Get returns the current configuration
func (m *Manager) Get() *Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config
}

// Set updates the configuration
func (m *Manager) Set(config *Config) {
	m.mu.Lock()
	m.config = config
	m.normalizeLocked()
	m.mu.Unlock()
}

// normalizeLocked clamps values a hand-edited file may have broken. Callers
// hold m.mu.
func (m *Manager) normalizeLocked() {
	c := m.config
	if c.General.ListenAddr == "" {
		c.General.ListenAddr = "0.0.0.0:18089"
	}
	if c.General.DeviceName == "" {
		c.General.DeviceName = "keybridge"
	}
	if c.Mover.MinDelayMS <= 0 || c.Mover.MaxDelayMS < c.Mover.MinDelayMS {
		c.Mover.MinDelayMS = 7000
		c.Mover.MaxDelayMS = 60000
	}
	if c.Bridge.CharIntervalMS <= 0 {
		c.Bridge.CharIntervalMS = 2
	}
	if c.Bridge.QueueCapacity <= 0 {
		c.Bridge.QueueCapacity = 4096
	}
	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}
}
