package config

import (
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"chainHTTP/pkg/version"
)

// Config holds the CLI configuration
type Config struct {
	InputFile          string
	OutputFile         string
	MaxRedirects       int
	Timeout            time.Duration // per-hop timeout
	ChainTimeout       time.Duration // whole-chain timeout, 0 disables it
	Concurrency        int
	Method             string
	Silent             bool
	Debug              bool
	UserAgent          string
	InsecureSkipVerify bool
	HTTP3              bool  // probe https hops over QUIC
	MaxBodySize        int64 // per-hop body capture cap in bytes
	RateLimit          int   // requests per second per host
	RateLimitTimeout   time.Duration
	DebugLogFile       string
	Version            bool
	// Hop enrichment
	Fingerprint bool
	TechDetect  bool
	// Storage and response inclusion
	StoreResponse    bool
	StoreResponseDir string
	IncludeResponse  bool
	// Server mode
	ListenAddr string

	Logger          *slog.Logger
	DebugLogger     *slog.Logger
	debugFileHandle *os.File
}

// New creates a new Config with default values
func New() *Config {
	return &Config{
		MaxRedirects:     20,
		Timeout:          10 * time.Second,
		Concurrency:      20,
		Method:           http.MethodHead,
		MaxBodySize:      1 << 20, // 1 MiB
		RateLimit:        10,
		RateLimitTimeout: 60 * time.Second,
		StoreResponseDir: "output",
		Logger:           slog.New(slog.DiscardHandler),
	}
}

// ParseFlags parses command-line flags into the config
func ParseFlags() (*Config, error) {
	cfg := New()

	formatter := RegisterFlags(cfg)
	flag.Usage = func() {
		formatter.PrintUsage(os.Stderr)
	}

	flag.Parse()

	if cfg.Version {
		fmt.Println(version.GetVersion())
		os.Exit(0)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logLevel := slog.LevelInfo
	if cfg.Debug {
		logLevel = slog.LevelDebug
	}
	if cfg.Silent {
		logLevel = slog.LevelError
	}

	cfg.Logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))

	if cfg.DebugLogFile != "" {
		debugFile, err := os.Create(cfg.DebugLogFile)
		if err != nil {
			return nil, fmt.Errorf("failed to create debug log file: %w", err)
		}
		cfg.debugFileHandle = debugFile
		cfg.DebugLogger = slog.New(slog.NewTextHandler(debugFile, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		cfg.Logger.Info("debug logging enabled", "file", cfg.DebugLogFile)
	}

	return cfg, nil
}

// Validate checks option combinations and normalizes the probe method.
func (c *Config) Validate() error {
	c.Method = strings.ToUpper(strings.TrimSpace(c.Method))
	if c.Method != http.MethodHead && c.Method != http.MethodGet {
		return fmt.Errorf("-m/--method must be HEAD or GET, got %q", c.Method)
	}
	if c.MaxRedirects < 0 {
		return fmt.Errorf("-maxr/--max-redirects must not be negative")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("-t/--timeout must be positive")
	}
	if c.ChainTimeout < 0 {
		return fmt.Errorf("--chain-timeout must not be negative")
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("-c/--concurrency must be at least 1")
	}
	if c.MaxBodySize < 0 {
		return fmt.Errorf("--max-body-size must not be negative")
	}
	if c.RateLimit < 1 {
		return fmt.Errorf("--rate-limit must be at least 1")
	}
	if c.TechDetect {
		c.Fingerprint = true
	}
	return nil
}

// Close cleans up the config's resources
func (c *Config) Close() error {
	if c.debugFileHandle != nil {
		return c.debugFileHandle.Close()
	}
	return nil
}

// HasPipedData checks if there is data being piped to stdin
func HasPipedData() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) == 0
}
