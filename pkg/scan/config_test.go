package scan

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "compatgrep.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
shim = "support-compat-26.1.0.aar"
reference = "android.jar"
output = "out/android.jar"

[annotation]
visible = true
`)
	got, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	want := Config{
		Shim:        "support-compat-26.1.0.aar",
		Reference:   "android.jar",
		NestedEntry: DefaultNestedEntry,
		Output:      "out/android.jar",
		Annotation: AnnotationConfig{
			Type:    DefaultAnnotationType,
			Visible: true,
			Param:   DefaultAnnotationParam,
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
	if err := got.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestLoadConfigRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, `
shim = "a.aar"
refrence = "android.jar"

[annotation]
kind = "x"
`)
	_, err := LoadConfig(path)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("LoadConfig error = %v, want ErrInvalidConfig", err)
	}
	if !strings.Contains(err.Error(), "annotation.kind, refrence") {
		t.Errorf("expected sorted unknown keys in %q", err)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("expected error for a missing file")
	}
	if _, err := LoadConfig(writeConfig(t, "shim = ")); err == nil {
		t.Fatal("expected error for invalid TOML")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty nested entry", func(c *Config) { c.NestedEntry = "" }},
		{"dotted annotation type", func(c *Config) { c.Annotation.Type = "Lcom.example.Shimmed;" }},
		{"bare annotation type", func(c *Config) { c.Annotation.Type = "com/example/Shimmed" }},
		{"primitive annotation type", func(c *Config) { c.Annotation.Type = "I" }},
		{"empty param", func(c *Config) { c.Annotation.Param = "" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("Validate error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "android.jar")
	if err := os.WriteFile(path, []byte("old"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := WriteFileAtomic(path, []byte("new"), 0o644); err != nil {
		t.Fatalf("WriteFileAtomic: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "new" {
		t.Fatalf("content = %q, want %q", got, "new")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the target file, found %d entries", len(entries))
	}

	if err := WriteFileAtomic(filepath.Join(dir, "missing", "x.jar"), nil, 0o644); err == nil {
		t.Fatal("expected error for a missing directory")
	}
}
