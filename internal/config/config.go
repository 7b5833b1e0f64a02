// Package config provides configuration management for refda-agent.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the agent process configuration.
type Config struct {
	Service   ServiceConfig   `toml:"service"`
	API       APIConfig       `toml:"api"`
	Transport TransportConfig `toml:"transport"`
	Agent     AgentConfig     `toml:"agent"`
	Logging   LoggingConfig   `toml:"logging"`
	Security  SecurityConfig  `toml:"security"`
}

// ServiceConfig contains process-level settings for the observability
// HTTP server and daemon lifecycle.
type ServiceConfig struct {
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	DataDir         string `toml:"data_dir"`
	PIDFile         string `toml:"pid_file"`
	ShutdownTimeout int    `toml:"shutdown_timeout_seconds"`
}

// APIConfig contains settings for the read-only observability API
// (health, counters, namespace listing; never ARI exchange, which goes
// over the transports configured in TransportConfig).
type APIConfig struct {
	Enabled        bool     `toml:"enabled"`
	APIKey         string   `toml:"api_key"`
	AllowedOrigins []string `toml:"allowed_origins"`
	RequestTimeout int      `toml:"request_timeout_seconds"`
}

// TransportConfig selects and configures the agent's ARI transports, per
// spec.md §6. The Unix datagram socket is the agent's one backing
// transport.SenderReceiver and must stay enabled; ProxyStdioEnabled layers
// an MCP-over-stdio proxy on top of it for an MCP-capable manager, dialing
// the same socket rather than replacing it.
type TransportConfig struct {
	UnixSocketEnabled bool   `toml:"unix_socket_enabled"`
	UnixSocketPath    string `toml:"unix_socket_path"`
	ProxyStdioEnabled bool   `toml:"proxy_stdio_enabled"`
}

// AgentConfig tunes the execution engine, report history, and alarm index,
// mirroring pkg/agent.Config.
type AgentConfig struct {
	ExecQueueDepth            int `toml:"exec_queue_depth"`
	ReportHistoryDepth        int `toml:"report_history_depth"`
	AlarmMaxHistory           int `toml:"alarm_max_history"`
	AlarmCompressWindowMillis int `toml:"alarm_compress_window_millis"`
}

// AlarmCompressWindow returns AlarmCompressWindowMillis as a time.Duration.
func (c AgentConfig) AlarmCompressWindow() time.Duration {
	return time.Duration(c.AlarmCompressWindowMillis) * time.Millisecond
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level      string      `toml:"level"`
	Format     string      `toml:"format"`
	Output     StringSlice `toml:"output"`
	TimeFormat string      `toml:"time_format"`
	MaxSizeMB  int         `toml:"max_size_mb"`
	MaxBackups int         `toml:"max_backups"`
	MaxAgeDays int         `toml:"max_age_days"`
	Compress   bool        `toml:"compress"`
}

// StringSlice is a custom type that can unmarshal from either a string or []string.
type StringSlice []string

// UnmarshalTOML implements toml.Unmarshaler for flexible config parsing.
func (s *StringSlice) UnmarshalTOML(data interface{}) error {
	switch v := data.(type) {
	case string:
		*s = []string{v}
	case []interface{}:
		result := make([]string, len(v))
		for i, item := range v {
			str, ok := item.(string)
			if !ok {
				return fmt.Errorf("expected string in array, got %T", item)
			}
			result[i] = str
		}
		*s = result
	default:
		return fmt.Errorf("expected string or array, got %T", data)
	}
	return nil
}

// SecurityConfig contains security settings for the observability API.
type SecurityConfig struct {
	TLSEnabled  bool   `toml:"tls_enabled"`
	TLSCertFile string `toml:"tls_cert_file"`
	TLSKeyFile  string `toml:"tls_key_file"`
	CORSEnabled bool   `toml:"cors_enabled"`
}

// DefaultConfig returns the default configuration with all values set.
// Environment variables REFDA_HOST and REFDA_PORT can override defaults.
func DefaultConfig() *Config {
	dataDir := DefaultDataDir()

	host := "127.0.0.1"
	if envHost := os.Getenv("REFDA_HOST"); envHost != "" {
		host = envHost
	}

	port := 8420
	if envPort := os.Getenv("REFDA_PORT"); envPort != "" {
		if p, err := strconv.Atoi(envPort); err == nil {
			port = p
		}
	}

	return &Config{
		Service: ServiceConfig{
			Host:            host,
			Port:            port,
			DataDir:         dataDir,
			PIDFile:         filepath.Join(dataDir, "refda-agent.pid"),
			ShutdownTimeout: 30,
		},
		API: APIConfig{
			Enabled:        true,
			APIKey:         "",
			AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
			RequestTimeout: 60,
		},
		Transport: TransportConfig{
			UnixSocketEnabled: true,
			UnixSocketPath:    filepath.Join(dataDir, "refda-agent.sock"),
			ProxyStdioEnabled: false,
		},
		Agent: AgentConfig{
			ExecQueueDepth:            64,
			ReportHistoryDepth:        1000,
			AlarmMaxHistory:           50,
			AlarmCompressWindowMillis: 60000,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     StringSlice{"file"},
			TimeFormat: "15:04:05.000",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 30,
			Compress:   true,
		},
		Security: SecurityConfig{
			TLSEnabled:  false,
			TLSCertFile: "",
			TLSKeyFile:  "",
			CORSEnabled: true,
		},
	}
}

// DefaultDataDir returns the default data directory based on OS.
func DefaultDataDir() string {
	switch runtime.GOOS {
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "refda-agent")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "AppData", "Roaming", "refda-agent")
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "refda-agent")
	default: // linux and others
		xdgData := os.Getenv("XDG_DATA_HOME")
		if xdgData != "" {
			return filepath.Join(xdgData, "refda-agent")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".refda-agent")
	}
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultDataDir(), "config.toml")
}

// Load loads configuration from a file, merging with defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	if _, err := toml.Decode(expanded, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg.expandPaths()

	return cfg, nil
}

// LoadFromString loads configuration from a TOML string, merging with defaults.
func LoadFromString(tomlStr string) (*Config, error) {
	cfg := DefaultConfig()

	expanded := os.ExpandEnv(tomlStr)

	if _, err := toml.Decode(expanded, cfg); err != nil {
		return nil, fmt.Errorf("parse config string: %w", err)
	}

	cfg.expandPaths()
	return cfg, nil
}

// expandPaths expands tilde in path fields.
func (c *Config) expandPaths() {
	home, _ := os.UserHomeDir()

	expandTilde := func(path string) string {
		if strings.HasPrefix(path, "~/") {
			return filepath.Join(home, path[2:])
		}
		return path
	}

	c.Service.DataDir = expandTilde(c.Service.DataDir)
	c.Service.PIDFile = expandTilde(c.Service.PIDFile)
	c.Transport.UnixSocketPath = expandTilde(c.Transport.UnixSocketPath)
	c.Security.TLSCertFile = expandTilde(c.Security.TLSCertFile)
	c.Security.TLSKeyFile = expandTilde(c.Security.TLSKeyFile)
}

// Save saves the configuration to a file in TOML format.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create config file: %w", err)
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	return nil
}

// WriteExampleConfig writes an example config file with comments.
func WriteExampleConfig(path string) error {
	example := `# refda-agent configuration file
# All values shown are defaults - uncomment and modify as needed

[service]
# Host to bind the observability HTTP server to
host = "127.0.0.1"
# Port to listen on
port = 8420
# Directory for agent data (socket, PID file, logs)
# data_dir = "~/.refda-agent"
# PID file location
# pid_file = "~/.refda-agent/refda-agent.pid"
# Graceful shutdown timeout in seconds
shutdown_timeout_seconds = 30

[api]
# Enable the observability HTTP API (health, counters, namespaces)
enabled = true
# API key for authentication (empty = no auth for any client)
api_key = ""
# Allowed CORS origins
allowed_origins = ["http://localhost:*", "http://127.0.0.1:*"]
# Request timeout in seconds
request_timeout_seconds = 60

[transport]
# Accept ARI EXECSETs over a Unix datagram socket
unix_socket_enabled = true
# unix_socket_path = "~/.refda-agent/refda-agent.sock"
# Serve submit-execset/poll-reports as MCP tools over stdio
proxy_stdio_enabled = false

[agent]
# Depth of the pending-execset queue between ingress and the execution worker
exec_queue_depth = 64
# Number of RPTSETs retained for poll-reports history
report_history_depth = 1000
# Maximum severity transitions retained per alarm entry
alarm_max_history = 50
# Consecutive same-severity transitions within this window are compressed
alarm_compress_window_millis = 60000

[logging]
# Log level: debug, info, warn, error
level = "info"
# Log format: json, text
format = "text"
# Output destinations: "file", "stdout", or both
output = ["file"]
# Time format for log timestamps (Go time format)
time_format = "15:04:05.000"
# Maximum log file size in MB before rotation
max_size_mb = 100
# Number of backup log files to keep
max_backups = 5
# Maximum age of log files in days
max_age_days = 30
# Compress rotated log files
compress = true

[security]
# Enable TLS/HTTPS on the observability API
tls_enabled = false
# Path to TLS certificate file
# tls_cert_file = "/path/to/cert.pem"
# Path to TLS key file
# tls_key_file = "/path/to/key.pem"
# Enable CORS
cors_enabled = true
`

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	return os.WriteFile(path, []byte(example), 0644)
}

// Address returns the full address string for the observability HTTP server.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Service.Host, c.Service.Port)
}

// LogPath returns the path to the agent log file.
func (c *Config) LogPath() string {
	return filepath.Join(c.Service.DataDir, "logs", "agent.log")
}

// PIDPath returns the path to the PID file.
func (c *Config) PIDPath() string {
	if c.Service.PIDFile != "" {
		return c.Service.PIDFile
	}
	return filepath.Join(c.Service.DataDir, "refda-agent.pid")
}

// EnsureDirectories creates all necessary directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Service.DataDir,
		filepath.Dir(c.LogPath()),
	}
	if c.Transport.UnixSocketEnabled {
		dirs = append(dirs, filepath.Dir(c.Transport.UnixSocketPath))
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	return nil
}

// InstanceHash generates a unique, stable identifier for a data directory.
// Returns the first 16 characters of the SHA256 hash.
func InstanceHash(path string) string {
	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}
	absPath = filepath.Clean(absPath)

	h := sha256.Sum256([]byte(absPath))
	return hex.EncodeToString(h[:])[:16]
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	if c.Service.Port < 1 || c.Service.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be 1-65535)", c.Service.Port)
	}

	if c.Service.ShutdownTimeout < 1 {
		return fmt.Errorf("shutdown_timeout_seconds must be at least 1")
	}

	if c.Agent.ExecQueueDepth < 1 {
		return fmt.Errorf("exec_queue_depth must be at least 1")
	}

	if c.Agent.ReportHistoryDepth < 1 {
		return fmt.Errorf("report_history_depth must be at least 1")
	}

	if !c.Transport.UnixSocketEnabled {
		return fmt.Errorf("unix_socket_enabled must be true: the agent's ingress/egress loops always run over it, even when proxy_stdio_enabled also submits through a loopback dial")
	}

	if c.Security.TLSEnabled {
		if c.Security.TLSCertFile == "" || c.Security.TLSKeyFile == "" {
			return fmt.Errorf("TLS enabled but cert/key files not specified")
		}
	}

	return nil
}

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c

	clone.API.AllowedOrigins = make([]string, len(c.API.AllowedOrigins))
	copy(clone.API.AllowedOrigins, c.API.AllowedOrigins)

	clone.Logging.Output = make(StringSlice, len(c.Logging.Output))
	copy(clone.Logging.Output, c.Logging.Output)

	return &clone
}
