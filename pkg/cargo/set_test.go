package cargo

import (
	"path/filepath"
	"testing"
)

func TestDirectCompleteness(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Cargo.toml"), `[dependencies]
serde = "1.0"
tokio = "1"
`)

	// tokio is deliberately absent from the lockfile.
	locked := map[string]string{"serde": "1.0.210"}

	set, err := NewProject(root).Direct(locked)
	if err != nil {
		t.Fatalf("Direct error: %v", err)
	}

	if set.Len() != 2 {
		t.Fatalf("Direct should include every direct name: %v", set.Versions)
	}
	if set.Versions["serde"] != "1.0.210" {
		t.Errorf("serde version = %q, want 1.0.210", set.Versions["serde"])
	}
	if set.Versions["tokio"] != VersionUnknown {
		t.Errorf("tokio version = %q, want %q", set.Versions["tokio"], VersionUnknown)
	}
}

func TestAllCratesSources(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Cargo.toml"), `[dependencies]
serde = "1.0"
`)
	writeFile(t, filepath.Join(root, "crates", "bench", "Cargo.toml"), `[dependencies]
serde = "1.0"
rand = "0.8"
`)

	set, err := NewProject(root).AllCrates(map[string]string{"serde": "1.0.210"})
	if err != nil {
		t.Fatalf("AllCrates error: %v", err)
	}

	if set.Len() != 2 {
		t.Fatalf("AllCrates = %v", set.Versions)
	}

	serdeSources := set.Sources["serde"]
	want := []string{"Cargo.toml", filepath.Join("crates", "bench", "Cargo.toml")}
	if len(serdeSources) != len(want) {
		t.Fatalf("serde sources = %v, want %v", serdeSources, want)
	}
	for i := range want {
		if serdeSources[i] != want[i] {
			t.Errorf("serde sources[%d] = %q, want %q", i, serdeSources[i], want[i])
		}
	}

	if got := set.Sources["rand"]; len(got) != 1 || got[0] != filepath.Join("crates", "bench", "Cargo.toml") {
		t.Errorf("rand sources = %v", got)
	}
	if set.Versions["rand"] != VersionUnknown {
		t.Errorf("rand version = %q, want %q", set.Versions["rand"], VersionUnknown)
	}
}

func TestLocked(t *testing.T) {
	set := Locked(map[string]string{"serde": "1.0.210", "syn": "2.0.77"})
	if set.Len() != 2 {
		t.Fatalf("Locked = %v", set.Versions)
	}
	if set.Sources != nil {
		t.Error("Locked sets have no source tracking")
	}
}

func TestNamesSorted(t *testing.T) {
	set := DependencySet{Versions: map[string]string{"tokio": "1", "anyhow": "1", "serde": "1"}}
	names := set.Names()
	want := []string{"anyhow", "serde", "tokio"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("Names = %v, want %v", names, want)
		}
	}
}

func TestFirstParty(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Cargo.toml"), `[package]
name = "goose"

[dependencies]
serde = "1.0"
`)
	writeFile(t, filepath.Join(root, "crates", "mcp", "Cargo.toml"), `[package]
name = "goose-mcp"
`)

	names, err := NewProject(root).FirstParty()
	if err != nil {
		t.Fatalf("FirstParty error: %v", err)
	}
	want := []string{"goose", "goose-mcp"}
	if len(names) != len(want) {
		t.Fatalf("FirstParty = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("FirstParty[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}
