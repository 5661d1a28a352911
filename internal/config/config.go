// Package config loads the YAML configuration files of the adoc command.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/alnah/go-adoc/internal/fileutil"
	"github.com/alnah/go-adoc/internal/yamlutil"
)

// AppName names the directory searched under the user config directory.
const AppName = "go-adoc"

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
	ErrInvalidValue    = errors.New("invalid config value")
)

// Field length limits.
const (
	MaxPathLength      = 4096
	MaxNameLength      = 100
	MaxAttributeLength = 4096
	MaxTextLength      = 500
	MaxWorkers         = 64
	MaxMarginInches    = 3.0
)

// Accepted values of enumerated fields.
var (
	SafeModes     = []string{"unsafe", "safe", "server", "secure"}
	Backends      = []string{"html5", "xhtml5", "html", "xhtml"}
	Doctypes      = []string{"article", "book", "manpage", "inline"}
	FailureLevels = []string{"info", "warn", "warning", "error", "fatal"}
	Extensions    = []string{"markdown"}
	PageSizes     = []string{"letter", "legal", "a4", "a5"}
	Positions     = []string{"left", "center", "right"}
)

var attributeNameRx = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_-]*[!@]?$`)

// Config holds the settings a config file may provide. CLI flags take
// precedence over every field.
type Config struct {
	// Attributes are document attributes. A false value unsets the
	// attribute; other scalars are formatted as strings.
	Attributes     map[string]any `yaml:"attributes"`
	SafeMode       string         `yaml:"safeMode"`
	Backend        string         `yaml:"backend"`
	Doctype        string         `yaml:"doctype"`
	BaseDir        string         `yaml:"baseDir"`
	DestinationDir string         `yaml:"destinationDir"`
	Embedded       bool           `yaml:"embedded"`
	Sourcemap      bool           `yaml:"sourcemap"`
	FailureLevel   string         `yaml:"failureLevel"`
	Workers        int            `yaml:"workers"`
	Extensions     []string       `yaml:"extensions"`
	PDF            PDFConfig      `yaml:"pdf"`
}

// PDFConfig defines the --pdf output.
type PDFConfig struct {
	Enabled bool         `yaml:"enabled"`
	Timeout string       `yaml:"timeout"` // Go duration, e.g. "45s"
	Page    PageConfig   `yaml:"page"`
	Footer  FooterConfig `yaml:"footer"`
}

// PageConfig defines PDF page settings.
type PageConfig struct {
	Size   string  `yaml:"size"`   // letter (default), legal, a4, a5
	Margin float64 `yaml:"margin"` // inches (default: 0.5)
}

// FooterConfig defines the PDF page footer.
type FooterConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Position       string `yaml:"position"` // left, center, right (default)
	ShowPageNumber bool   `yaml:"showPageNumber"`
	Text           string `yaml:"text"`
}

// Validate checks enumerated values and field lengths. LoadConfig calls
// it; callers building a Config by hand may call it too.
func (c *Config) Validate() error {
	for name, value := range c.Attributes {
		if !attributeNameRx.MatchString(name) {
			return fmt.Errorf("%w: attributes: invalid attribute name %q", ErrInvalidValue, name)
		}
		switch v := value.(type) {
		case nil, bool, int, int64, uint64, float64:
		case string:
			if err := validateFieldLength("attributes."+name, v, MaxAttributeLength); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: attributes.%s: must be a scalar, got %T", ErrInvalidValue, name, value)
		}
	}

	if err := validateOneOf("safeMode", c.SafeMode, SafeModes); err != nil {
		return err
	}
	if err := validateOneOf("backend", c.Backend, Backends); err != nil {
		return err
	}
	if err := validateOneOf("doctype", c.Doctype, Doctypes); err != nil {
		return err
	}
	if err := validateOneOf("failureLevel", c.FailureLevel, FailureLevels); err != nil {
		return err
	}
	if err := validateFieldLength("baseDir", c.BaseDir, MaxPathLength); err != nil {
		return err
	}
	if err := validateFieldLength("destinationDir", c.DestinationDir, MaxPathLength); err != nil {
		return err
	}
	if c.Workers < 0 || c.Workers > MaxWorkers {
		return fmt.Errorf("%w: workers: must be between 0 and %d, got %d", ErrInvalidValue, MaxWorkers, c.Workers)
	}
	for i, ext := range c.Extensions {
		if err := validateOneOf(fmt.Sprintf("extensions[%d]", i), ext, Extensions); err != nil {
			return err
		}
	}

	return c.PDF.validate()
}

func (p *PDFConfig) validate() error {
	if err := validateOneOf("pdf.page.size", p.Page.Size, PageSizes); err != nil {
		return err
	}
	if p.Page.Margin < 0 || p.Page.Margin > MaxMarginInches {
		return fmt.Errorf("%w: pdf.page.margin: must be between 0 and %.1f, got %.2f", ErrInvalidValue, MaxMarginInches, p.Page.Margin)
	}
	if err := validateFieldLength("pdf.timeout", p.Timeout, MaxNameLength); err != nil {
		return err
	}
	if err := validateOneOf("pdf.footer.position", p.Footer.Position, Positions); err != nil {
		return err
	}
	return validateFieldLength("pdf.footer.text", p.Footer.Text, MaxTextLength)
}

// validateFieldLength checks if a field exceeds its maximum allowed length.
func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

// validateOneOf accepts an empty value or one of allowed, ignoring case.
func validateOneOf(fieldName, value string, allowed []string) error {
	if value == "" || slices.Contains(allowed, strings.ToLower(value)) {
		return nil
	}
	return fmt.Errorf("%w: %s: %q (must be one of %s)", ErrInvalidValue, fieldName, value, strings.Join(allowed, ", "))
}

// DefaultConfig returns an empty configuration. Zero fields leave the
// library defaults in place.
func DefaultConfig() *Config {
	return &Config{Attributes: map[string]any{}}
}

// LoadConfig loads configuration from a file path or config name.
// If nameOrPath contains a path separator, it's treated as a file path.
// Otherwise, it's treated as a config name and searched in standard locations.
// Returns error if the file is not found (no silent fallback).
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	configPath := nameOrPath
	if !isFilePath(nameOrPath) {
		var err error
		if configPath, err = resolveConfigPath(nameOrPath); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := yamlutil.UnmarshalFileStrict(configPath, &cfg); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("%w: %s: %s", ErrConfigParse, configPath, yamlutil.Describe(err))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// isFilePath returns true if the string looks like a file path.
func isFilePath(s string) bool {
	return strings.ContainsAny(s, "/\\")
}

// SearchPaths lists the files tried for a config name, in order.
func SearchPaths(name string) []string {
	extensions := []string{".yaml", ".yml"}
	paths := make([]string, 0, len(extensions)*2)
	for _, ext := range extensions {
		paths = append(paths, name+ext)
	}
	if dir, err := os.UserConfigDir(); err == nil {
		for _, ext := range extensions {
			paths = append(paths, filepath.Join(dir, AppName, name+ext))
		}
	}
	return paths
}

// resolveConfigPath returns the first existing file of SearchPaths.
func resolveConfigPath(name string) (string, error) {
	tried := SearchPaths(name)
	for _, p := range tried {
		if fileutil.FileExists(p) {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(tried, ", "))
}
