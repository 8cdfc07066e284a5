// Package config provides the armterm configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mahlburgc/armterm/internal/arm"
	"github.com/mahlburgc/armterm/internal/session"
)

const (
	DirName  = "armterm"
	FileName = "config.json"

	DefaultListen   = "127.0.0.1:8080"
	DefaultLogLines = 1000
)

// Config holds all application configuration. Nothing is written back at
// runtime.
type Config struct {
	Port      string
	Joints    int
	Labels    []string
	Cooldown  time.Duration
	Listen    string
	Timestamp bool
	LogLines  int
	SerialLog string
}

// fileConfig is the JSON layout of config.json. Absent keys keep the
// value from the defaults.
type fileConfig struct {
	Port       *string  `json:"port"`
	Joints     *int     `json:"joints"`
	Labels     []string `json:"labels"`
	CooldownMs *int     `json:"cooldown_ms"`
	Listen     *string  `json:"listen"`
	Timestamp  *bool    `json:"timestamp"`
	LogLines   *int     `json:"log_lines"`
	SerialLog  *string  `json:"serial_log"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Port:     DefaultPort(),
		Joints:   arm.DefaultJoints,
		Labels:   arm.DefaultLabels(),
		Cooldown: session.DefaultCooldown,
		Listen:   DefaultListen,
		LogLines: DefaultLogLines,
	}
}

// DefaultPort is where a Pico usually shows up on this platform.
func DefaultPort() string {
	switch runtime.GOOS {
	case "windows":
		return "COM3"
	case "darwin":
		return "/dev/tty.usbmodem0001"
	default:
		return "/dev/ttyACM0"
	}
}

// DefaultPath returns ~/.config/armterm/config.json.
func DefaultPath() (string, error) {
	homedir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homedir, ".config", DirName, FileName), nil
}

// Load builds the configuration from the defaults, the JSON file at path
// (a missing file is fine), a .env file in the working directory and the
// ARMTERM_* environment variables, in that order. An empty path selects
// DefaultPath.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, fmt.Errorf("config path: %w", err)
		}
		path = p
	}
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	// .env is optional
	_ = godotenv.Load()
	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var f fileConfig
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	setIf(&c.Port, f.Port)
	setIf(&c.Listen, f.Listen)
	setIf(&c.Timestamp, f.Timestamp)
	setIf(&c.LogLines, f.LogLines)
	setIf(&c.SerialLog, f.SerialLog)
	if f.Joints != nil && *f.Joints != c.Joints {
		c.Joints = *f.Joints
		c.Labels = nil
	}
	if f.Labels != nil {
		c.Labels = f.Labels
	}
	if f.CooldownMs != nil {
		c.Cooldown = time.Duration(*f.CooldownMs) * time.Millisecond
	}
	return nil
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func (c *Config) loadEnv() error {
	c.Port = getEnv("ARMTERM_PORT", c.Port)
	c.Listen = getEnv("ARMTERM_LISTEN", c.Listen)
	c.SerialLog = getEnv("ARMTERM_SERIAL_LOG", c.SerialLog)
	c.Timestamp = getEnvBool("ARMTERM_TIMESTAMP", c.Timestamp)
	c.LogLines = getEnvInt("ARMTERM_LOG_LINES", c.LogLines)

	if v, ok := os.LookupEnv("ARMTERM_JOINTS"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("ARMTERM_JOINTS: %w", err)
		}
		if n != c.Joints {
			// labels for the old count no longer apply
			c.Labels = nil
			c.Joints = n
		}
	}
	if v, ok := os.LookupEnv("ARMTERM_LABELS"); ok {
		c.Labels = splitList(v)
	}
	if v, ok := os.LookupEnv("ARMTERM_COOLDOWN"); ok {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("ARMTERM_COOLDOWN: %w", err)
		}
		c.Cooldown = d
	}
	return nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("serial port cannot be empty")
	}
	if c.Joints < 1 {
		return fmt.Errorf("joint count must be > 0, got %d", c.Joints)
	}
	if len(c.Labels) > 0 && len(c.Labels) != c.Joints {
		return fmt.Errorf("%d labels for %d joints", len(c.Labels), c.Joints)
	}
	if c.Cooldown < 0 {
		return fmt.Errorf("cooldown cannot be negative")
	}
	if c.LogLines < 1 {
		return fmt.Errorf("log line limit must be > 0")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		out = append(out, strings.TrimSpace(part))
	}
	return out
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}
