package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/a3tai/mcp-lab-forms/internal/fieldstore"
	"github.com/a3tai/mcp-lab-forms/internal/form"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"

	// Default values
	DefaultPort         = 8080
	DefaultHost         = "127.0.0.1"
	DefaultLogLevel     = "info"
	DefaultMaxFileSize  = 100 * 1024 * 1024 // 100MB
	DefaultCacheEntries = 16
	DefaultZoomMask     = 500 * time.Millisecond
	DefaultLockPolicy   = "strict"

	// Directory permissions
	DefaultDirPerm = 0o750
)

// Config holds all configuration for the lab forms MCP server
type Config struct {
	// Server configuration
	Mode string // "server" or "stdio"
	Host string
	Port int

	// Storage configuration
	DataDirectory   string // template documents and local PDFs
	OutputDirectory string // exported PDFs; empty means DataDirectory/exports
	StoreURL        string // remote document store; empty means DataDirectory

	// Document handling
	MaxFileSize  int64 // Maximum PDF file size in bytes
	CacheEntries int

	// Editing configuration
	EditScale  form.ScaleRange
	FillScale  form.ScaleRange
	ZoomMask   time.Duration
	LockPolicy string

	// Application configuration
	Version    string
	ServerName string
	LogLevel   string
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		// Fallback to current directory if working directory cannot be determined
		currentDir = "."
	}

	return &Config{
		Mode:          ModeStdio, // Default to stdio mode for MCP compatibility
		Host:          DefaultHost,
		Port:          DefaultPort,
		DataDirectory: currentDir,
		MaxFileSize:   DefaultMaxFileSize,
		CacheEntries:  DefaultCacheEntries,
		EditScale:     form.EditScaleRange,
		FillScale:     form.FillScaleRange,
		ZoomMask:      DefaultZoomMask,
		LockPolicy:    DefaultLockPolicy,
		Version:       "1.0.0",
		ServerName:    "mcp-lab-forms",
		LogLevel:      DefaultLogLevel,
	}
}

// LoadFromFlags parses command line flags and returns a configuration
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	// Check for version flag before parsing
	if err := checkVersionFlag(); err != nil {
		return nil, err
	}

	pflag.Parse()

	populateConfigFromViper(cfg)

	// Expand paths if needed
	for _, dir := range []*string{&cfg.DataDirectory, &cfg.OutputDirectory} {
		if *dir != "" {
			if expandedPath, err := filepath.Abs(*dir); err == nil {
				*dir = expandedPath
			}
		}
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

var configKeys = []string{
	"mode", "host", "port", "dir", "outdir", "storeurl", "loglevel", "maxfilesize",
	"cacheentries", "editscalemin", "editscalemax", "fillscalemin", "fillscalemax",
	"zoommask", "lockpolicy",
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	// Set environment variable prefix
	viper.SetEnvPrefix("LAB_FORMS")
	viper.AutomaticEnv()

	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("dir", cfg.DataDirectory)
	viper.SetDefault("outdir", cfg.OutputDirectory)
	viper.SetDefault("storeurl", cfg.StoreURL)
	viper.SetDefault("loglevel", cfg.LogLevel)
	viper.SetDefault("maxfilesize", cfg.MaxFileSize)
	viper.SetDefault("cacheentries", cfg.CacheEntries)
	viper.SetDefault("editscalemin", cfg.EditScale.Min)
	viper.SetDefault("editscalemax", cfg.EditScale.Max)
	viper.SetDefault("fillscalemin", cfg.FillScale.Min)
	viper.SetDefault("fillscalemax", cfg.FillScale.Max)
	viper.SetDefault("zoommask", cfg.ZoomMask)
	viper.SetDefault("lockpolicy", cfg.LockPolicy)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode, "Server mode: 'stdio' for MCP standard I/O, 'server' for HTTP server")
	pflag.String("host", cfg.Host, "Server host address (server mode only)")
	pflag.Int("port", cfg.Port, "Server port (server mode only)")
	pflag.String("dir", cfg.DataDirectory, "Data directory holding templates and local PDF files")
	pflag.String("outdir", cfg.OutputDirectory, "Directory exported PDFs are written to (default: <dir>/exports)")
	pflag.String("storeurl", cfg.StoreURL, "Base URL of a remote template store (default: use the data directory)")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.Int64("maxfilesize", cfg.MaxFileSize, "Maximum PDF file size in bytes")
	pflag.Int("cacheentries", cfg.CacheEntries, "Number of PDF documents kept in memory")
	pflag.Float64("editscalemin", cfg.EditScale.Min, "Minimum editor zoom")
	pflag.Float64("editscalemax", cfg.EditScale.Max, "Maximum editor zoom")
	pflag.Float64("fillscalemin", cfg.FillScale.Min, "Minimum filler and reviewer zoom")
	pflag.Float64("fillscalemax", cfg.FillScale.Max, "Maximum filler and reviewer zoom")
	pflag.Duration("zoommask", cfg.ZoomMask, "How long the overlay stays hidden after a zoom")
	pflag.String("lockpolicy", cfg.LockPolicy, "Published template lock: 'strict' or 'advisory'")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	for _, key := range configKeys {
		_ = viper.BindPFlag(key, pflag.Lookup(key))
	}
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nMCP Lab Forms - A Model Context Protocol server for PDF lab form templates\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                          "+
			"# stdio mode, current directory (default)\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --dir=/srv/labs                          "+
			"# stdio mode with custom data directory\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=server --dir=/srv/labs            # server mode\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --storeurl=https://labs.example/api      # remote template store\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  LAB_FORMS_MODE          Server mode\n")
		fmt.Fprintf(os.Stderr, "  LAB_FORMS_HOST          Server host\n")
		fmt.Fprintf(os.Stderr, "  LAB_FORMS_PORT          Server port\n")
		fmt.Fprintf(os.Stderr, "  LAB_FORMS_DIR           Data directory\n")
		fmt.Fprintf(os.Stderr, "  LAB_FORMS_OUTDIR        Export directory\n")
		fmt.Fprintf(os.Stderr, "  LAB_FORMS_STOREURL      Remote template store\n")
		fmt.Fprintf(os.Stderr, "  LAB_FORMS_LOGLEVEL      Log level\n")
		fmt.Fprintf(os.Stderr, "  LAB_FORMS_MAXFILESIZE   Maximum file size\n")
		fmt.Fprintf(os.Stderr, "  LAB_FORMS_LOCKPOLICY    Published template lock\n")
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag() error {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return fmt.Errorf("version requested")
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.DataDirectory = viper.GetString("dir")
	cfg.OutputDirectory = viper.GetString("outdir")
	cfg.StoreURL = viper.GetString("storeurl")
	cfg.LogLevel = viper.GetString("loglevel")
	cfg.MaxFileSize = viper.GetInt64("maxfilesize")
	cfg.CacheEntries = viper.GetInt("cacheentries")
	cfg.EditScale = form.ScaleRange{Min: viper.GetFloat64("editscalemin"), Max: viper.GetFloat64("editscalemax")}
	cfg.FillScale = form.ScaleRange{Min: viper.GetFloat64("fillscalemin"), Max: viper.GetFloat64("fillscalemax")}
	cfg.ZoomMask = viper.GetDuration("zoommask")
	cfg.LockPolicy = viper.GetString("lockpolicy")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate mode
	if c.Mode != ModeStdio && c.Mode != ModeServer {
		return errors.New("mode must be either 'stdio' or 'server'")
	}

	// Validate port range (only for server mode)
	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	// Validate directories, creating them when missing
	if c.DataDirectory == "" {
		return errors.New("data directory cannot be empty")
	}
	if err := ensureDir(c.DataDirectory); err != nil {
		return err
	}

	if c.StoreURL != "" {
		u, err := url.Parse(c.StoreURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("store URL must be an absolute http(s) URL: %s", c.StoreURL)
		}
	}

	// Validate max file size
	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}
	if c.CacheEntries < 1 {
		return errors.New("cache entries must be at least 1")
	}

	if !c.EditScale.Valid() {
		return fmt.Errorf("invalid editor zoom range [%g, %g]", c.EditScale.Min, c.EditScale.Max)
	}
	if !c.FillScale.Valid() {
		return fmt.Errorf("invalid filler zoom range [%g, %g]", c.FillScale.Min, c.FillScale.Max)
	}
	if c.ZoomMask < 0 {
		return errors.New("zoom mask window cannot be negative")
	}
	if _, err := fieldstore.ParseLockPolicy(c.LockPolicy); err != nil {
		return err
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

func ensureDir(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create directory %s: %w", dir, err)
		}
	} else if err != nil {
		return fmt.Errorf("cannot access directory %s: %w", dir, err)
	}
	return nil
}

// ExportDirectory returns where exported PDFs are written
func (c *Config) ExportDirectory() string {
	if c.OutputDirectory != "" {
		return c.OutputDirectory
	}
	return filepath.Join(c.DataDirectory, "exports")
}

// Lock returns the parsed lock policy
func (c *Config) Lock() fieldstore.LockPolicy {
	policy, _ := fieldstore.ParseLockPolicy(c.LockPolicy)
	return policy
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, DataDirectory: %s, OutputDirectory: %s, "+
		"StoreURL: %s, LogLevel: %s, MaxFileSize: %d, LockPolicy: %s}",
		c.Mode, c.Host, c.Port, c.DataDirectory, c.ExportDirectory(),
		c.StoreURL, c.LogLevel, c.MaxFileSize, c.LockPolicy)
}

// IsServerMode returns true if the server is running in HTTP server mode
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the server is running in stdio mode
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}
