package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrConfigNotFound is returned when an explicitly named config file is missing.
var ErrConfigNotFound = errors.New("config file not found")

// FileName is the workspace-level config file looked up when --config is not given.
const FileName = ".skills.yaml"

// Config holds all skills CLI configuration.
type Config struct {
	// SkillsDir is the directory (relative to the workspace) holding skill folders.
	SkillsDir string `yaml:"skills_dir"`

	Dist       DistConfig       `yaml:"dist"`
	Publish    PublishConfig    `yaml:"publish"`
	Serve      ServeConfig      `yaml:"serve"`
	Board      BoardConfig      `yaml:"board"`
	SharePoint SharePointConfig `yaml:"sharepoint"`
	Convert    ConvertConfig    `yaml:"convert"`
	Lint       LintConfig       `yaml:"lint"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// DistConfig configures archive packaging.
type DistConfig struct {
	OutputDir        string `yaml:"output_dir"`
	ArchivePrefix    string `yaml:"archive_prefix"`
	CompressionLevel int    `yaml:"compression_level"`
	Workers          int    `yaml:"workers"`
}

// PublishConfig configures uploads to an S3-compatible bucket.
type PublishConfig struct {
	Endpoint     string `yaml:"endpoint"`
	Bucket       string `yaml:"bucket"`
	Region       string `yaml:"region"`
	Prefix       string `yaml:"prefix"`
	AccessKey    string `yaml:"access_key"`
	SecretKey    string `yaml:"secret_key"`
	UsePathStyle bool   `yaml:"use_path_style"`
}

// ServeConfig configures the catalog HTTP server.
type ServeConfig struct {
	Address         string `yaml:"address"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
}

// BoardConfig configures agile board integrations.
type BoardConfig struct {
	ZenHubEndpoint string `yaml:"zenhub_endpoint"`
	ZenHubMCPURL   string `yaml:"zenhub_mcp_url"`
	// APIToken is only ever sourced from the environment.
	APIToken string `yaml:"-"`
}

// SharePointConfig configures Microsoft Graph access.
type SharePointConfig struct {
	GraphBaseURL string `yaml:"graph_base_url"`
	Resource     string `yaml:"resource"`
}

// ConvertConfig configures document conversion.
type ConvertConfig struct {
	Workers int `yaml:"workers"`
}

// LintConfig configures skill validation.
type LintConfig struct {
	AllowedModels  []string `yaml:"allowed_models"`
	MaxDescription int      `yaml:"max_description"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		SkillsDir: "skills",
		Dist: DistConfig{
			OutputDir:        "dist",
			ArchivePrefix:    "claude-code-skills",
			CompressionLevel: 6,
			Workers:          4,
		},
		Publish: PublishConfig{
			Region: "us-east-1",
			Prefix: "skills",
		},
		Serve: ServeConfig{
			Address:         "127.0.0.1:8787",
			ShutdownTimeout: "5s",
		},
		Board: BoardConfig{
			ZenHubEndpoint: "https://api.zenhub.com/public/graphql",
			ZenHubMCPURL:   "https://api.zenhub.com/mcp",
		},
		SharePoint: SharePointConfig{
			GraphBaseURL: "https://graph.microsoft.com/v1.0",
			Resource:     "https://graph.microsoft.com",
		},
		Convert: ConvertConfig{
			Workers: 4,
		},
		Lint: LintConfig{
			AllowedModels:  []string{"opus", "sonnet", "haiku", "inherit"},
			MaxDescription: 1024,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields defaults.
// Environment overrides are applied in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
			// defaults
		default:
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadExplicit loads a config file the user named. Unlike Load, a missing
// file is an error.
func LoadExplicit(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config file %s: %w", path, ErrConfigNotFound)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Load(path)
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SKILLS_DIR"); v != "" {
		c.SkillsDir = v
	}
	if v := os.Getenv("SKILLS_DIST_DIR"); v != "" {
		c.Dist.OutputDir = v
	}

	if v := os.Getenv("SKILLS_S3_ENDPOINT"); v != "" {
		c.Publish.Endpoint = v
	}
	if v := os.Getenv("SKILLS_S3_BUCKET"); v != "" {
		c.Publish.Bucket = v
	}
	if v := os.Getenv("SKILLS_S3_REGION"); v != "" {
		c.Publish.Region = v
	}
	if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
		c.Publish.AccessKey = v
	}
	if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
		c.Publish.SecretKey = v
	}

	if v := os.Getenv("SKILLS_SERVE_ADDR"); v != "" {
		c.Serve.Address = v
	}

	if v := os.Getenv("ZENHUB_API_TOKEN"); v != "" {
		c.Board.APIToken = v
	}
	if v := os.Getenv("ZENHUB_GRAPHQL_URL"); v != "" {
		c.Board.ZenHubEndpoint = v
	}

	if v := os.Getenv("SKILLS_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.SkillsDir) == "" {
		return fmt.Errorf("skills_dir must not be empty")
	}
	if c.Dist.CompressionLevel < -1 || c.Dist.CompressionLevel > 9 {
		return fmt.Errorf("dist.compression_level must be between -1 and 9, got %d", c.Dist.CompressionLevel)
	}
	if c.Dist.Workers < 0 {
		return fmt.Errorf("dist.workers must not be negative")
	}
	if c.Convert.Workers < 0 {
		return fmt.Errorf("convert.workers must not be negative")
	}
	if c.Lint.MaxDescription < 0 {
		return fmt.Errorf("lint.max_description must not be negative")
	}
	if _, err := time.ParseDuration(c.Serve.ShutdownTimeout); c.Serve.ShutdownTimeout != "" && err != nil {
		return fmt.Errorf("serve.shutdown_timeout: %w", err)
	}
	return nil
}

// GetShutdownTimeout returns the serve shutdown timeout as a duration.
func (c *Config) GetShutdownTimeout() time.Duration {
	d, err := time.ParseDuration(c.Serve.ShutdownTimeout)
	if err != nil || d <= 0 {
		return 5 * time.Second
	}
	return d
}

// ResolvePath returns p joined to workspace unless p is already absolute.
func ResolvePath(workspace, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(workspace, p)
}

// PublishEnabled reports whether a bucket is configured.
func (c *Config) PublishEnabled() bool {
	return c.Publish.Bucket != ""
}
