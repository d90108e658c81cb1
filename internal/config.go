package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/adrctl/internal/adr"
	"github.com/starford/adrctl/internal/adrservice"
	"github.com/starford/adrctl/internal/templaterepo"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App          ApplicationConfig  `yaml:"app"`
	Records      RecordsConfig      `yaml:"records"`
	TemplateRepo TemplateRepoConfig `yaml:"template_repo"`
	Auth         AuthConfig         `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Records.Validate(); err != nil {
		return err
	}
	if err := c.TemplateRepo.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
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

// RecordsConfig locates the records and their templates.
//
// DateLayout is a Go time layout used for every date written into records. Its
// output may only hold letters, digits, blanks and commas.
type RecordsConfig struct {
	Path         string `yaml:"path"`
	TemplatePath string `yaml:"template_path"`
	DateLayout   string `yaml:"date_layout"`
}

// Validate validates the records configuration.
func (c *RecordsConfig) Validate() error {
	if c.DateLayout == "" {
		c.DateLayout = adr.DefaultDateLayout
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.TemplatePath, validation.Required),
		validation.Field(&c.DateLayout, validation.By(func(any) error {
			return adr.CheckLayout(c.DateLayout)
		})),
	)
}

// Layout returns the directory pair the record service works on.
func (c *RecordsConfig) Layout() adrservice.Layout {
	return adrservice.Layout{RecordsDir: c.Path, TemplateDir: c.TemplatePath}
}

// Clock returns a clock formatting dates with DateLayout.
func (c *RecordsConfig) Clock() adr.Clock {
	return adr.NewClock(c.DateLayout)
}

// TemplateRepoConfig names the git repository templates are synced from.
// An empty URL turns syncing off.
type TemplateRepoConfig struct {
	URL    string `yaml:"url"`
	Branch string `yaml:"branch"`
}

// Validate validates the template repository configuration.
func (c *TemplateRepoConfig) Validate() error {
	if c.Branch == "" {
		c.Branch = templaterepo.DefaultBranch
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Branch, validation.Required),
	)
}

// Syncer returns the template syncer, or nil when no URL is configured.
func (c *TemplateRepoConfig) Syncer(logger *slog.Logger) adrservice.TemplateSyncer {
	if c.URL == "" {
		return nil
	}
	return &templaterepo.Syncer{URL: c.URL, Branch: c.Branch, Logger: logger}
}

// AuthConfig holds authentication configuration for the HTTP API.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local use.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Records: RecordsConfig{
			Path:         "./doc/adr",
			TemplatePath: "./doc/adr-template",
			DateLayout:   adr.DefaultDateLayout,
		},
		TemplateRepo: TemplateRepoConfig{
			Branch: templaterepo.DefaultBranch,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
