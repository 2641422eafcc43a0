package prefs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	p, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if p != Defaults() {
		t.Fatalf("prefs = %#v, want %#v", p, Defaults())
	}
}

func TestLoad_ReadsDefaultLocation(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".config", "synq")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	data := "theme = \"Slate\"\nhide_completed = true\nfilter = \" priority > 1 \"\n"
	if err := os.WriteFile(filepath.Join(dir, "prefs.toml"), []byte(data), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	p, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	want := Prefs{Theme: "Slate", HideCompleted: true, Filter: "priority > 1"}
	if p != want {
		t.Fatalf("prefs = %#v, want %#v", p, want)
	}
}

func TestSave_RoundTripsThroughNewDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subdir", "prefs.toml")

	in := Prefs{Theme: "Light", HideCompleted: true, Filter: "!completed"}
	if err := Save(path, in); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got != in {
		t.Fatalf("prefs = %#v, want %#v", got, in)
	}
}

func TestLoad_EmptyThemeFallsBackToDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.toml")
	if err := os.WriteFile(path, []byte("theme = \"\"\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if p.Theme != defaultTheme {
		t.Fatalf("Theme = %q, want %q", p.Theme, defaultTheme)
	}
}

func TestLoad_InvalidTOMLFallsBackToDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.toml")
	if err := os.WriteFile(path, []byte("not valid toml {{{\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if p != Defaults() {
		t.Fatalf("prefs = %#v, want defaults", p)
	}
}
