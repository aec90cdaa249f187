package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/vango-dev/edgerules/internal/errors"
	"github.com/vango-dev/edgerules/pkg/rules"
)

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.Output != "static" {
		t.Errorf("Output = %q, want static", cfg.Output)
	}
	if cfg.Manifest != DefaultManifest {
		t.Errorf("Manifest = %q, want %q", cfg.Manifest, DefaultManifest)
	}
	if cfg.Build.Output != DefaultOutput {
		t.Errorf("Build.Output = %q, want %q", cfg.Build.Output, DefaultOutput)
	}
	if cfg.Build.File != DefaultRulesFile {
		t.Errorf("Build.File = %q, want %q", cfg.Build.File, DefaultRulesFile)
	}
	if cfg.Preview.Port != DefaultPreviewPort {
		t.Errorf("Preview.Port = %d, want %d", cfg.Preview.Port, DefaultPreviewPort)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()

	if _, err := Load(tmpDir); !errors.HasCode(err, "E141") {
		t.Errorf("missing config error = %v, want E141", err)
	}

	configJSON := `{
  "name": "site",
  "output": "hybrid",
  "fallback": "/_render",
  "manifest": "build/routes.yaml",
  "build": {
    "output": "out",
    "format": "file",
    "json": true
  },
  "preview": {
    "port": 8080,
    "upstream": "http://localhost:3000"
  },
  "publish": {
    "bucket": "edge-config",
    "prefix": "site/"
  }
}
`
	if err := os.WriteFile(filepath.Join(tmpDir, ConfigFileName), []byte(configJSON), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Dir() != tmpDir {
		t.Errorf("Dir() = %q, want %q", cfg.Dir(), tmpDir)
	}
	if got := cfg.Options(); got != (rules.Options{Mode: rules.ModeHybrid, Format: rules.FormatFile}) {
		t.Errorf("Options() = %+v", got)
	}
	if cfg.Fallback != "/_render" {
		t.Errorf("Fallback = %q", cfg.Fallback)
	}
	if want := filepath.Join(tmpDir, "build", "routes.yaml"); cfg.ManifestPath() != want {
		t.Errorf("ManifestPath() = %q, want %q", cfg.ManifestPath(), want)
	}
	if want := filepath.Join(tmpDir, "out", DefaultRulesFile); cfg.RulesPath() != want {
		t.Errorf("RulesPath() = %q, want %q", cfg.RulesPath(), want)
	}
	if cfg.RulesJSONPath() != cfg.RulesPath()+".json" {
		t.Errorf("RulesJSONPath() = %q", cfg.RulesJSONPath())
	}
	if !cfg.Build.JSON {
		t.Error("Build.JSON should be true")
	}
	if cfg.PreviewAddress() != "localhost:8080" {
		t.Errorf("PreviewAddress() = %q", cfg.PreviewAddress())
	}
	if !cfg.PublishEnabled() || cfg.Publish.Prefix != "site/" {
		t.Errorf("Publish = %+v", cfg.Publish)
	}
	if cfg.MetricsPath() != "" {
		t.Errorf("MetricsPath() = %q, want empty", cfg.MetricsPath())
	}
	if cfg.Metrics.Namespace != DefaultMetricsNamespace {
		t.Errorf("Metrics.Namespace = %q", cfg.Metrics.Namespace)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		json string
		code string
	}{
		{"syntax", `{"output": `, "E120"},
		{"mode", `{"output": "edge"}`, "E121"},
		{"format", `{"build": {"format": "flat"}}`, "E121"},
		{"port", `{"preview": {"port": 70000}}`, "E122"},
		{"file path", `{"build": {"file": "sub/_redirects"}}`, "E122"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if err := os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(tt.json), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(dir); !errors.HasCode(err, tt.code) {
				t.Errorf("error = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestSaveAndReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)

	cfg := New()
	cfg.Name = "docs"
	cfg.Output = "server"
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo error: %v", err)
	}
	if cfg.Path() != path {
		t.Errorf("Path() = %q, want %q", cfg.Path(), path)
	}

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile error: %v", err)
	}
	if loaded.Name != "docs" || loaded.Output != "server" {
		t.Errorf("loaded = %+v", loaded)
	}

	loaded.Fallback = "/fn"
	if err := loaded.Save(); err != nil {
		t.Fatal(err)
	}
	again, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if again.Fallback != "/fn" {
		t.Errorf("Fallback = %q, want /fn", again.Fallback)
	}

	if err := New().Save(); err == nil {
		t.Error("Save without a path should fail")
	}
}

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}
	if err := New().SaveTo(filepath.Join(root, ConfigFileName)); err != nil {
		t.Fatal(err)
	}

	got, err := FindProjectRoot(nested)
	if err != nil {
		t.Fatalf("FindProjectRoot error: %v", err)
	}
	if got != root {
		t.Errorf("FindProjectRoot = %q, want %q", got, root)
	}

	if !Exists(root) || Exists(nested) {
		t.Error("Exists mismatch")
	}
}

func TestAbsolutePathsAreKept(t *testing.T) {
	cfg := New()
	abs := filepath.Join(t.TempDir(), "public")
	cfg.Build.Output = abs
	cfg.Metrics.Textfile = filepath.Join(abs, "m.prom")

	if cfg.OutputPath() != abs {
		t.Errorf("OutputPath() = %q, want %q", cfg.OutputPath(), abs)
	}
	if cfg.MetricsPath() != cfg.Metrics.Textfile {
		t.Errorf("MetricsPath() = %q", cfg.MetricsPath())
	}
}
