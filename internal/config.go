package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/lumen/internal/notes"
)

// DefaultPublicURLTemplate is the public bucket URL used for images the API
// returns without a signed URL.
const DefaultPublicURLTemplate = "https://notes-images-bucket-sph.s3.ap-southeast-1.amazonaws.com/{key}"

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	API     APIConfig         `yaml:"api"`
	Images  ImagesConfig      `yaml:"images"`
	FakeAPI FakeAPIConfig     `yaml:"fake_api"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.API.Validate(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if err := c.Images.Validate(); err != nil {
		return fmt.Errorf("images: %w", err)
	}
	if err := c.FakeAPI.Validate(); err != nil {
		return fmt.Errorf("fake_api: %w", err)
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
//
// LogFile receives logs in interactive and MCP modes, where stdout belongs
// to the terminal or the protocol. It rotates at LogMaxSizeMB.
type ApplicationConfig struct {
	LogLevel      slog.Level `yaml:"log_level"`
	LogFile       string     `yaml:"log_file"`
	LogMaxSizeMB  int        `yaml:"log_max_size_mb"`
	LogMaxBackups int        `yaml:"log_max_backups"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.LogFile, validation.Required),
		validation.Field(&c.LogMaxSizeMB, validation.Min(1)),
		validation.Field(&c.LogMaxBackups, validation.Min(0)),
	)
}

// APIConfig points the client at the notes API.
type APIConfig struct {
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
}

// Validate validates the API configuration.
func (c *APIConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required, is.URL),
		validation.Field(&c.Timeout, validation.Required, validation.Min(time.Second)),
	)
}

// ImagesConfig controls how images are displayed.
//
// PublicURLTemplate builds a URL for images that come back without a signed
// URL; "{key}" is replaced by the image key. An empty template disables the
// fallback.
type ImagesConfig struct {
	PublicURLTemplate string `yaml:"public_url_template"`
}

// Validate validates the images configuration.
func (c *ImagesConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.PublicURLTemplate, validation.By(validTemplate)),
	)
}

func validTemplate(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	u, err := url.Parse(strings.ReplaceAll(s, notes.KeyPlaceholder, "key"))
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("must be an http or https URL")
	}
	return nil
}

// FakeAPIConfig configures the local stand-in for the notes API.
type FakeAPIConfig struct {
	HTTP      HTTPConfig `yaml:"http"`
	DataDir   string     `yaml:"data_dir"`
	PublicURL string     `yaml:"public_url"`
}

// Validate validates the fake API configuration.
func (c *FakeAPIConfig) Validate() error {
	if err := c.HTTP.Validate(); err != nil {
		return err
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.DataDir, validation.Required),
		validation.Field(&c.PublicURL, is.URL),
	)
}

// BaseURL returns the address clients use to reach the fake API.
func (c *FakeAPIConfig) BaseURL() string {
	if c.PublicURL != "" {
		return strings.TrimSuffix(c.PublicURL, "/")
	}
	return fmt.Sprintf("http://localhost:%d", c.HTTP.Port)
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel:      slog.LevelInfo,
			LogFile:       "./lumen.log",
			LogMaxSizeMB:  10,
			LogMaxBackups: 3,
		},
		API: APIConfig{
			BaseURL:   "http://localhost:8000",
			Timeout:   30 * time.Second,
			UserAgent: "lumen",
		},
		Images: ImagesConfig{
			PublicURLTemplate: DefaultPublicURLTemplate,
		},
		FakeAPI: FakeAPIConfig{
			HTTP: HTTPConfig{
				Port: 8000,
			},
			DataDir: "./fake-api-data",
		},
	}
}
