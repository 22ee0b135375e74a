package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// ErrMissingConfig is returned by Validate when a required setting is absent.
var ErrMissingConfig = errors.New("missing configuration")

// Config represents the main configuration for docdesk.
type Config struct {
	BaseDir  string         `toml:"base_dir" env:"DOCDESK_HOME"`
	LogDir   string         `toml:"log_dir" env:"DOCDESK_LOG_DIR"`
	Log      LogConfig      `toml:"log"`
	Endpoint EndpointConfig `toml:"endpoint"`
	Sheets   SheetsConfig   `toml:"sheets"`
	Upload   UploadConfig   `toml:"upload"`
	Store    StoreConfig    `toml:"store"`
	Session  SessionConfig  `toml:"session"`
	Share    ShareConfig    `toml:"share"`
}

// LogConfig selects the log encoding and minimum level.
type LogConfig struct {
	Level  string `toml:"level" env:"DOCDESK_LOG_LEVEL"`   // debug, info, warn, error
	Format string `toml:"format" env:"DOCDESK_LOG_FORMAT"` // "text" (default) or "json"
}

// EndpointConfig represents the remote scripting endpoint.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type EndpointConfig struct {
	Type           string `toml:"type" env:"DOCDESK_ENDPOINT_TYPE"` // "script"; "memory" is for tests and is refused without an injected endpoint
	URL            string `toml:"url,omitempty" env:"DOCDESK_ENDPOINT_URL"`
	TimeoutSeconds int    `toml:"timeout_seconds,omitempty"`
}

// SheetsConfig names the sheets the endpoint exposes.
type SheetsConfig struct {
	Login     string `toml:"login"`
	Documents string `toml:"documents"`
	Master    string `toml:"master"`
	ShareLog  string `toml:"share_log,omitempty"`
}

// UploadConfig represents where attachments are stored and how uploads are paced.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type UploadConfig struct {
	Type     string `toml:"type" env:"DOCDESK_UPLOAD_TYPE"` // "script", "s3" or "filesystem"
	FolderID string `toml:"folder_id,omitempty" env:"DOCDESK_UPLOAD_FOLDER_ID"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket   string `toml:"s3_bucket,omitempty"`
	S3Prefix   string `toml:"s3_prefix,omitempty"`
	S3Region   string `toml:"s3_region,omitempty"`
	S3Endpoint string `toml:"s3_endpoint,omitempty" env:"DOCDESK_S3_ENDPOINT"`
	S3KeyID    string `toml:"s3_key_id,omitempty" env:"DOCDESK_S3_KEY_ID"`
	S3Secret   string `toml:"s3_secret,omitempty" env:"DOCDESK_S3_SECRET"`

	// Filesystem-specific fields (only used when Type == "filesystem")
	FSRoot string `toml:"fs_root,omitempty"`

	Pacing         string  `toml:"pacing"`                    // "interval" (default), "token_bucket" or "none"
	IntervalMillis int     `toml:"interval_millis,omitempty"` // spacing between upload starts
	RatePerSecond  float64 `toml:"rate_per_second,omitempty"` // only used for pacing=token_bucket
	Burst          int     `toml:"burst,omitempty"`           // only used for pacing=token_bucket
}

// StoreConfig represents configuration for the local cache.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type StoreConfig struct {
	Type    string `toml:"type"`                                      // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty" env:"DOCDESK_DATA_DIR"` // only used for type=sqlite
}

// SessionConfig holds where the signed-in user and its encryption key live.
type SessionConfig struct {
	Path        string `toml:"path"`
	KeyPath     string `toml:"key_path"`
	Unencrypted bool   `toml:"unencrypted,omitempty"`
}

// ShareConfig holds the values used when composing shares.
type ShareConfig struct {
	ExpiryDays         int    `toml:"expiry_days"`
	DefaultCountryCode string `toml:"default_country_code" env:"DOCDESK_COUNTRY_CODE"`
	SenderName         string `toml:"sender_name" env:"DOCDESK_SENDER_NAME"`
}

// NewConfig creates a new Config with the provided endpoint URL, the upload
// folder the endpoint stores attachments in, and default paths under baseDir.
func NewConfig(endpointURL, folderID, baseDir string) *Config {
	return &Config{
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Endpoint: EndpointConfig{
			Type:           "script",
			URL:            endpointURL,
			TimeoutSeconds: 60,
		},
		Sheets: SheetsConfig{
			Login:     "Login",
			Documents: "Documents",
			Master:    "Master",
			ShareLog:  "Share Log",
		},
		Upload: UploadConfig{
			Type:           "script",
			FolderID:       folderID,
			Pacing:         "interval",
			IntervalMillis: 1000,
		},
		Store: StoreConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "data"),
		},
		Session: SessionConfig{
			Path:    filepath.Join(baseDir, "session.age"),
			KeyPath: filepath.Join(baseDir, "keys", "session.key"),
		},
		Share: ShareConfig{
			ExpiryDays:         7,
			DefaultCountryCode: "91",
		},
	}
}

// Validate checks every setting the selected components need. It is called
// once at startup, before any flow runs.
func (c *Config) Validate() error {
	var missing []string
	need := func(ok bool, name string) {
		if !ok {
			missing = append(missing, name)
		}
	}

	switch c.Endpoint.Type {
	case "script":
		need(c.Endpoint.URL != "", "endpoint.url")
	case "memory":
	case "":
		need(false, "endpoint.type")
	default:
		return fmt.Errorf("unknown endpoint type: %q", c.Endpoint.Type)
	}

	need(c.Sheets.Login != "", "sheets.login")
	need(c.Sheets.Documents != "", "sheets.documents")
	need(c.Sheets.Master != "", "sheets.master")

	switch c.Upload.Type {
	case "script":
		need(c.Upload.FolderID != "", "upload.folder_id")
	case "s3":
		need(c.Upload.S3Bucket != "", "upload.s3_bucket")
		need(c.Upload.S3Region != "", "upload.s3_region")
	case "filesystem":
		need(c.Upload.FSRoot != "", "upload.fs_root")
	case "":
		need(false, "upload.type")
	default:
		return fmt.Errorf("unknown upload type: %q", c.Upload.Type)
	}

	switch c.Upload.Pacing {
	case "", "interval", "none":
	case "token_bucket":
		need(c.Upload.RatePerSecond > 0, "upload.rate_per_second")
	default:
		return fmt.Errorf("unknown upload pacing: %q", c.Upload.Pacing)
	}

	switch c.Store.Type {
	case "sqlite":
		need(c.Store.DataDir != "", "store.data_dir")
	case "memory":
	case "":
		need(false, "store.type")
	default:
		return fmt.Errorf("unknown store type: %q", c.Store.Type)
	}

	need(c.Session.Path != "", "session.path")
	need(c.Session.Unencrypted || c.Session.KeyPath != "", "session.key_path")

	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log format: %q", c.Log.Format)
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingConfig, strings.Join(missing, ", "))
	}
	return nil
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ApplyEnv overlays environment variables onto cfg. A .env file in the
// working directory is loaded first when present; variables already set in
// the environment win over it.
func ApplyEnv(cfg *Config) error {
	_ = godotenv.Load()
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("reading environment: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// Load reads the file at path, applies the environment overlay and validates
// the result.
func Load(path string) (*Config, error) {
	cfg, err := ReadFromFile(path)
	if err != nil {
		return nil, err
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// The file may carry object-store credentials.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
