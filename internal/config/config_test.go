package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if cfg.Attributes == nil {
		t.Error("Attributes = nil, want empty map")
	}
	if cfg.PDF.Enabled {
		t.Error("PDF.Enabled = true, want false")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() = %v, want nil", err)
	}
}

func TestValidateFieldLength(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		value   string
		max     int
		wantErr bool
	}{
		{"empty", "", 10, false},
		{"at limit", strings.Repeat("a", 10), 10, false},
		{"over limit", strings.Repeat("a", 11), 10, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := validateFieldLength("field", tt.value, tt.max)
			if (err != nil) != tt.wantErr {
				t.Fatalf("validateFieldLength() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrFieldTooLong) {
				t.Errorf("validateFieldLength() error = %v, want ErrFieldTooLong", err)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		wantErr error
		wantMsg string
	}{
		{
			name: "complete valid config",
			cfg: Config{
				Attributes:   map[string]any{"toc": "left", "sectnums": true, "icons!": nil, "version": uint64(2)},
				SafeMode:     "Server",
				Backend:      "xhtml5",
				Doctype:      "book",
				FailureLevel: "warn",
				Workers:      8,
				Extensions:   []string{"markdown"},
				PDF: PDFConfig{
					Enabled: true,
					Timeout: "45s",
					Page:    PageConfig{Size: "a4", Margin: 1},
					Footer:  FooterConfig{Enabled: true, Position: "center"},
				},
			},
		},
		{
			name:    "invalid attribute name",
			cfg:     Config{Attributes: map[string]any{"bad name": "x"}},
			wantErr: ErrInvalidValue,
			wantMsg: "bad name",
		},
		{
			name:    "non scalar attribute",
			cfg:     Config{Attributes: map[string]any{"list": []any{"a"}}},
			wantErr: ErrInvalidValue,
			wantMsg: "attributes.list",
		},
		{
			name:    "attribute value too long",
			cfg:     Config{Attributes: map[string]any{"big": strings.Repeat("x", MaxAttributeLength+1)}},
			wantErr: ErrFieldTooLong,
		},
		{
			name:    "unknown safe mode",
			cfg:     Config{SafeMode: "paranoid"},
			wantErr: ErrInvalidValue,
			wantMsg: "safeMode",
		},
		{
			name:    "unknown backend",
			cfg:     Config{Backend: "docbook5"},
			wantErr: ErrInvalidValue,
			wantMsg: "backend",
		},
		{
			name:    "unknown doctype",
			cfg:     Config{Doctype: "novel"},
			wantErr: ErrInvalidValue,
		},
		{
			name:    "unknown failure level",
			cfg:     Config{FailureLevel: "debug"},
			wantErr: ErrInvalidValue,
		},
		{
			name:    "negative workers",
			cfg:     Config{Workers: -1},
			wantErr: ErrInvalidValue,
			wantMsg: "workers",
		},
		{
			name:    "too many workers",
			cfg:     Config{Workers: MaxWorkers + 1},
			wantErr: ErrInvalidValue,
		},
		{
			name:    "unknown extension",
			cfg:     Config{Extensions: []string{"markdown", "diagram"}},
			wantErr: ErrInvalidValue,
			wantMsg: "extensions[1]",
		},
		{
			name:    "unknown page size",
			cfg:     Config{PDF: PDFConfig{Page: PageConfig{Size: "tabloid"}}},
			wantErr: ErrInvalidValue,
			wantMsg: "pdf.page.size",
		},
		{
			name:    "margin too large",
			cfg:     Config{PDF: PDFConfig{Page: PageConfig{Margin: 5}}},
			wantErr: ErrInvalidValue,
		},
		{
			name:    "unknown footer position",
			cfg:     Config{PDF: PDFConfig{Footer: FooterConfig{Position: "top"}}},
			wantErr: ErrInvalidValue,
		},
		{
			name:    "footer text too long",
			cfg:     Config{PDF: PDFConfig{Footer: FooterConfig{Text: strings.Repeat("x", MaxTextLength+1)}}},
			wantErr: ErrFieldTooLong,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantMsg != "" && !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Validate() error = %q, want to contain %q", err, tt.wantMsg)
			}
		})
	}
}

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("setup: %v", err)
	}
	return p
}

func TestLoadConfig(t *testing.T) {
	t.Run("empty name returns ErrEmptyConfigName", func(t *testing.T) {
		_, err := LoadConfig("")
		if !errors.Is(err, ErrEmptyConfigName) {
			t.Errorf("error = %v, want ErrEmptyConfigName", err)
		}
	})

	t.Run("valid file path loads config", func(t *testing.T) {
		p := writeConfig(t, t.TempDir(), "adoc.yaml", `attributes:
  toc: left
  sectnums: true
  icons: false
safeMode: safe
doctype: book
workers: 4
extensions: [markdown]
pdf:
  enabled: true
  page:
    size: a4
  footer:
    enabled: true
    showPageNumber: true
`)
		cfg, err := LoadConfig(p)
		if err != nil {
			t.Fatalf("LoadConfig() error = %v", err)
		}
		if cfg.SafeMode != "safe" || cfg.Doctype != "book" || cfg.Workers != 4 {
			t.Errorf("LoadConfig() = %+v, want safe mode safe, doctype book and 4 workers", cfg)
		}
		if diff := cmp.Diff([]string{"markdown"}, cfg.Extensions); diff != "" {
			t.Errorf("Extensions mismatch (-want +got):\n%s", diff)
		}
		if !cfg.PDF.Enabled || cfg.PDF.Page.Size != "a4" || !cfg.PDF.Footer.ShowPageNumber {
			t.Errorf("PDF = %+v, want enabled a4 with page numbers", cfg.PDF)
		}
		wantAttrs := map[string]any{"toc": "left", "sectnums": true, "icons": false}
		if diff := cmp.Diff(wantAttrs, cfg.Attributes); diff != "" {
			t.Errorf("Attributes mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("nonexistent file path returns ErrConfigNotFound", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("error = %v, want ErrConfigNotFound", err)
		}
	})

	t.Run("unknown field returns ErrConfigParse", func(t *testing.T) {
		p := writeConfig(t, t.TempDir(), "bad.yaml", "style: default\n")
		_, err := LoadConfig(p)
		if !errors.Is(err, ErrConfigParse) {
			t.Errorf("error = %v, want ErrConfigParse", err)
		}
	})

	t.Run("invalid value fails validation", func(t *testing.T) {
		p := writeConfig(t, t.TempDir(), "bad.yaml", "backend: docbook5\n")
		_, err := LoadConfig(p)
		if !errors.Is(err, ErrInvalidValue) {
			t.Errorf("error = %v, want ErrInvalidValue", err)
		}
	})

	t.Run("config name resolves yaml in current directory", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, "project.yaml", "doctype: book\n")
		t.Chdir(dir)

		cfg, err := LoadConfig("project")
		if err != nil {
			t.Fatalf("LoadConfig() error = %v", err)
		}
		if cfg.Doctype != "book" {
			t.Errorf("Doctype = %q, want %q", cfg.Doctype, "book")
		}
	})

	t.Run("config name resolves yml when yaml not found", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, "project.yml", "doctype: manpage\n")
		t.Chdir(dir)

		cfg, err := LoadConfig("project")
		if err != nil {
			t.Fatalf("LoadConfig() error = %v", err)
		}
		if cfg.Doctype != "manpage" {
			t.Errorf("Doctype = %q, want %q", cfg.Doctype, "manpage")
		}
	})

	t.Run("unresolved name lists searched paths", func(t *testing.T) {
		t.Chdir(t.TempDir())

		_, err := LoadConfig("nowhere")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Fatalf("error = %v, want ErrConfigNotFound", err)
		}
		if !strings.Contains(err.Error(), "nowhere.yml") {
			t.Errorf("error = %q, want searched paths", err)
		}
	})
}

func TestSearchPaths(t *testing.T) {
	t.Parallel()

	paths := SearchPaths("site")
	if len(paths) < 2 {
		t.Fatalf("SearchPaths() = %v, want at least the local candidates", paths)
	}
	if diff := cmp.Diff([]string{"site.yaml", "site.yml"}, paths[:2]); diff != "" {
		t.Errorf("SearchPaths() local candidates mismatch (-want +got):\n%s", diff)
	}
	for _, p := range paths[2:] {
		if !strings.Contains(p, AppName) {
			t.Errorf("SearchPaths() user path %q, want under %s", p, AppName)
		}
	}
}
