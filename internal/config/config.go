package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Upload method names accepted in UploadConfig.Method.
const (
	MethodImageBed = "imagebed"
	MethodWebDAV   = "webdav"
)

// DefaultMaxFileSize caps attachment size when maxFileSize is not configured.
const DefaultMaxFileSize = 20 * 1024 * 1024 // 20 MiB

// Config is the root configuration for RelayBot.
type Config struct {
	BotToken      string  `json:"botToken" yaml:"botToken"`
	WebhookSecret string  `json:"webhookSecret,omitempty" yaml:"webhookSecret,omitempty"`
	AllowedUsers  []int64 `json:"allowedUsers,omitempty" yaml:"allowedUsers,omitempty"` // user or chat IDs; empty = allow all
	AdminChatID   int64   `json:"adminChatId,omitempty" yaml:"adminChatId,omitempty"`
	MaxFileSize   int64   `json:"maxFileSize,omitempty" yaml:"maxFileSize,omitempty"` // bytes
	LogLevel      string  `json:"logLevel,omitempty" yaml:"logLevel,omitempty"`

	Listen    ListenConfig    `json:"listen" yaml:"listen"`
	Upload    UploadConfig    `json:"upload" yaml:"upload"`
	RateLimit RateLimitConfig `json:"rateLimit,omitempty" yaml:"rateLimit,omitempty"`
	Stats     StatsConfig     `json:"stats,omitempty" yaml:"stats,omitempty"`
}

type ListenConfig struct {
	Host string `json:"host,omitempty" yaml:"host,omitempty"`
	Port int    `json:"port" yaml:"port"`
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

type UploadConfig struct {
	Method      string       `json:"method,omitempty" yaml:"method,omitempty"` // "imagebed" | "webdav"
	ImageBedURL string       `json:"imageBedUrl,omitempty" yaml:"imageBedUrl,omitempty"`
	AuthCode    string       `json:"authCode,omitempty" yaml:"authCode,omitempty"`
	WebDAV      WebDAVConfig `json:"webdav,omitempty" yaml:"webdav,omitempty"`
}

type WebDAVConfig struct {
	URL       string `json:"url,omitempty" yaml:"url,omitempty"`
	Username  string `json:"username,omitempty" yaml:"username,omitempty"`
	Password  string `json:"password,omitempty" yaml:"password,omitempty"`
	Path      string `json:"path,omitempty" yaml:"path,omitempty"`           // sub-directory on the server
	PublicURL string `json:"publicUrl,omitempty" yaml:"publicUrl,omitempty"` // overrides the upload path in returned links
}

// RateLimitConfig selects the counter store backing per-user rate limiting.
// An empty Store disables rate limiting entirely (fail-open).
type RateLimitConfig struct {
	Store         string `json:"store,omitempty" yaml:"store,omitempty"` // "" | "memory" | "redis"
	RedisAddr     string `json:"redisAddr,omitempty" yaml:"redisAddr,omitempty"`
	RedisPassword string `json:"redisPassword,omitempty" yaml:"redisPassword,omitempty"`
	RedisDB       int    `json:"redisDb,omitempty" yaml:"redisDb,omitempty"`
}

// StatsConfig enables the SQLite upload log behind /stats.
type StatsConfig struct {
	DBPath string `json:"dbPath,omitempty" yaml:"dbPath,omitempty"`
}

// Defaults returns a config with sane defaults and no credentials.
func Defaults() *Config {
	return &Config{
		MaxFileSize: DefaultMaxFileSize,
		LogLevel:    "info",
		Listen: ListenConfig{
			Port: 8080,
			Path: "/webhook",
		},
		Upload: UploadConfig{
			Method: MethodImageBed,
		},
	}
}

// DefaultConfigDir returns ~/.relaybot.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".relaybot"
	}
	return filepath.Join(home, ".relaybot")
}

// DefaultConfigPath returns ~/.relaybot/config.json.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

// Load reads a config file. YAML is used for .yaml/.yml extensions, JSON
// otherwise. Zero-valued fields are filled from Defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Defaults()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = DefaultMaxFileSize
	}
	if cfg.Listen.Port == 0 {
		cfg.Listen.Port = 8080
	}
	if cfg.Listen.Path == "" {
		cfg.Listen.Path = "/webhook"
	}
	if cfg.Upload.Method == "" {
		cfg.Upload.Method = MethodImageBed
	}
	return cfg, nil
}

// Save writes the config as indented JSON.
func Save(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}

// MissingFieldsError reports every required field absent from the config.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return "missing required config field(s): " + strings.Join(e.Fields, ", ")
}

// Validate checks required fields and URL shapes. It collects all problems
// rather than stopping at the first, so operators fix the config in one pass.
func (c *Config) Validate() error {
	var missing []string

	if c.BotToken == "" {
		missing = append(missing, "botToken")
	}

	switch c.Upload.Method {
	case MethodImageBed:
		if c.Upload.ImageBedURL == "" {
			missing = append(missing, "upload.imageBedUrl")
		} else if !isHTTPURL(c.Upload.ImageBedURL) {
			missing = append(missing, "upload.imageBedUrl (not a valid http(s) URL)")
		}
	case MethodWebDAV:
		if c.Upload.WebDAV.URL == "" {
			missing = append(missing, "upload.webdav.url")
		} else if !isHTTPURL(c.Upload.WebDAV.URL) {
			missing = append(missing, "upload.webdav.url (not a valid http(s) URL)")
		}
	default:
		missing = append(missing, fmt.Sprintf("upload.method (unknown method %q)", c.Upload.Method))
	}

	if c.RateLimit.Store == "redis" && c.RateLimit.RedisAddr == "" {
		missing = append(missing, "rateLimit.redisAddr")
	}

	if len(missing) > 0 {
		return &MissingFieldsError{Fields: missing}
	}
	return nil
}

// IsAllowed reports whether the sender or chat is in the allow list.
// An empty list allows everyone.
func (c *Config) IsAllowed(userID, chatID int64) bool {
	if len(c.AllowedUsers) == 0 {
		return true
	}
	for _, id := range c.AllowedUsers {
		if id == userID || id == chatID {
			return true
		}
	}
	return false
}

func isHTTPURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
