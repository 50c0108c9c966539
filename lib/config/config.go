// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"slices"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// FileName is the configuration file looked up in the site root.
const FileName = "ftl.yaml"

// EnvFileName is the site-local override file.
const EnvFileName = ".env"

// Compression selects how out-of-line blobs are stored in the cache.
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionLZ4  Compression = "lz4"
	CompressionZstd Compression = "zstd"
	// CompressionAuto tries zstd and keeps the raw bytes when
	// compression does not shrink them.
	CompressionAuto Compression = "auto"
)

// Config is the build configuration for one site.
type Config struct {
	// Site is the absolute site root. Not read from the file.
	Site string `yaml:"-"`

	Paths    PathsConfig    `yaml:"paths"`
	Build    BuildConfig    `yaml:"build"`
	Content  ContentConfig  `yaml:"content"`
	Database DatabaseConfig `yaml:"database"`
	Render   RenderConfig   `yaml:"render"`
}

// PathsConfig locates the source tree and the engine's state.
type PathsConfig struct {
	// Source is the directory walked for input files.
	// Default: ${SITE}/src
	Source string `yaml:"source"`

	// State holds the content database and the blob cache.
	// Default: ${SITE}/.ftl
	State string `yaml:"state"`
}

// BuildConfig tunes the build phases.
type BuildConfig struct {
	// Workers bounds the goroutines used for walking, parsing and
	// rendering. Default: runtime.NumCPU().
	Workers int `yaml:"workers"`

	// TemplateDepth caps template inclusion chains. Default: 255.
	TemplateDepth int `yaml:"template_depth"`

	// DefaultTemplate is used for pages whose frontmatter names none.
	// Default: page.html
	DefaultTemplate string `yaml:"default_template"`
}

// ContentConfig controls the content store.
type ContentConfig struct {
	// InlineExtensions lists extensions whose content is stored in the
	// database. Everything else goes to the blob cache.
	InlineExtensions []string `yaml:"inline_extensions"`

	// Compression applies to cached blobs. Default: auto.
	Compression Compression `yaml:"compression"`
}

// DatabaseConfig controls the content database.
type DatabaseConfig struct {
	// ReadPoolSize is the number of read-only connections.
	// Default: max(runtime.NumCPU(), 4).
	ReadPoolSize int `yaml:"read_pool_size"`
}

// RenderConfig controls the default rendering collaborator.
type RenderConfig struct {
	// HighlightStyle is the chroma style for fenced code.
	// Default: github
	HighlightStyle string `yaml:"highlight_style"`

	// StylesheetRoute is the route of the compiled stylesheet.
	// Default: style.css
	StylesheetRoute string `yaml:"stylesheet_route"`
}

// DefaultInlineExtensions are the extensions stored in the database.
var DefaultInlineExtensions = []string{
	"md", "html", "htm", "in", "css", "scss", "sass",
	"json", "jsonc", "sublime-syntax", "tmTheme",
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			Source: "${SITE}/src",
			State:  "${SITE}/.ftl",
		},
		Build: BuildConfig{
			Workers:         runtime.NumCPU(),
			TemplateDepth:   255,
			DefaultTemplate: "page.html",
		},
		Content: ContentConfig{
			InlineExtensions: slices.Clone(DefaultInlineExtensions),
			Compression:      CompressionAuto,
		},
		Database: DatabaseConfig{
			ReadPoolSize: max(runtime.NumCPU(), 4),
		},
		Render: RenderConfig{
			HighlightStyle:  "github",
			StylesheetRoute: "style.css",
		},
	}
}

// Load loads the configuration for the site rooted at site. explicit
// is the --config flag value and may be empty.
func Load(site, explicit string) (*Config, error) {
	root, err := filepath.Abs(site)
	if err != nil {
		return nil, fmt.Errorf("config: resolving site root %q: %w", site, err)
	}

	cfg := Default()
	cfg.Site = root

	path, err := selectFile(root, explicit)
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, fmt.Errorf("config: loading %s: %w", path, err)
		}
	}

	overrides, err := readEnvFile(filepath.Join(root, EnvFileName))
	if err != nil {
		return nil, err
	}
	if err := cfg.applyOverrides(overrides); err != nil {
		return nil, err
	}

	cfg.expandVariables()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// selectFile returns the configuration file to read, or "" for none.
func selectFile(root, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if fromEnv := os.Getenv("FTL_CONFIG"); fromEnv != "" {
		return fromEnv, nil
	}
	candidate := filepath.Join(root, FileName)
	if _, err := os.Stat(candidate); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("config: checking %s: %w", candidate, err)
	}
	return candidate, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

// readEnvFile returns the entries of a .env file, or nil if the file
// does not exist.
func readEnvFile(path string) (map[string]string, error) {
	entries, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	return entries, nil
}

// Overrides lists the .env keys applied over the file configuration.
var Overrides = []string{
	"FTL_SOURCE_DIR",
	"FTL_STATE_DIR",
	"FTL_WORKERS",
	"FTL_COMPRESSION",
	"FTL_DEFAULT_TEMPLATE",
	"FTL_HIGHLIGHT_STYLE",
}

func (c *Config) applyOverrides(entries map[string]string) error {
	for key, value := range entries {
		switch key {
		case "FTL_SOURCE_DIR":
			c.Paths.Source = value
		case "FTL_STATE_DIR":
			c.Paths.State = value
		case "FTL_WORKERS":
			workers, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("config: %s=%q: %w", key, value, err)
			}
			c.Build.Workers = workers
		case "FTL_COMPRESSION":
			c.Content.Compression = Compression(value)
		case "FTL_DEFAULT_TEMPLATE":
			c.Build.DefaultTemplate = value
		case "FTL_HIGHLIGHT_STYLE":
			c.Render.HighlightStyle = value
		}
	}
	return nil
}

func (c *Config) expandVariables() {
	vars := map[string]string{
		"SITE": c.Site,
		"HOME": os.Getenv("HOME"),
	}
	c.Paths.Source = c.resolve(expandVars(c.Paths.Source, vars))
	c.Paths.State = c.resolve(expandVars(c.Paths.State, vars))
}

func (c *Config) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Site, path)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default}. vars wins over the
// process environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		name := parts[1]
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return parts[2]
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Paths.Source == "" {
		errs = append(errs, fmt.Errorf("paths.source is required"))
	}
	if c.Paths.State == "" {
		errs = append(errs, fmt.Errorf("paths.state is required"))
	}
	if c.Build.Workers < 1 {
		errs = append(errs, fmt.Errorf("build.workers must be at least 1, got %d", c.Build.Workers))
	}
	if c.Build.TemplateDepth < 1 {
		errs = append(errs, fmt.Errorf("build.template_depth must be at least 1, got %d", c.Build.TemplateDepth))
	}
	if c.Database.ReadPoolSize < 1 {
		errs = append(errs, fmt.Errorf("database.read_pool_size must be at least 1, got %d", c.Database.ReadPoolSize))
	}
	switch c.Content.Compression {
	case CompressionNone, CompressionLZ4, CompressionZstd, CompressionAuto:
	default:
		errs = append(errs, fmt.Errorf("content.compression: unknown value %q", c.Content.Compression))
	}
	for _, extension := range c.Content.InlineExtensions {
		if extension == "" || strings.HasPrefix(extension, ".") {
			errs = append(errs, fmt.Errorf("content.inline_extensions: %q must be a bare extension", extension))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// DatabasePath is the content database file.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.State, "content.db")
}

// CacheDir is the blob cache directory.
func (c *Config) CacheDir() string {
	return filepath.Join(c.Paths.State, "cache")
}

// EnsureStateDirs creates the state and cache directories.
func (c *Config) EnsureStateDirs() error {
	for _, dir := range []string{c.Paths.State, c.CacheDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: creating %s: %w", dir, err)
		}
	}
	return nil
}
