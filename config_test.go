package psie

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
)

func writeConfig(t *testing.T, text string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), "psie.toml")
	if err := os.WriteFile(file, []byte(text), 0644); err != nil {
		t.Fatal(err)
	}
	return file
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.K != 25 || cfg.ReadLength != 100 {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.workers() < 1 {
		t.Error("zero workers")
	}
}

func TestLoadConfig(t *testing.T) {
	file := writeConfig(t, "k = 21\nread-length = 76\njunctions = \"adjacent\"\nworkers = 3\n")
	cfg, err := LoadConfig(file)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.K != 21 || cfg.ReadLength != 76 || cfg.Junctions != "adjacent" || cfg.workers() != 3 {
		t.Errorf("loaded %+v", cfg)
	}
	// unset keys keep their defaults
	if cfg.MergePolicy != string(MergeSum) || cfg.ObservedOnly {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoadConfigRejects(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "k = 40\n"))
	var kwe *KeyWidthOverflowError
	if !errors.As(err, &kwe) || kwe.K != 40 {
		t.Errorf("k=40: got %v", err)
	}

	_, err = LoadConfig(writeConfig(t, "k = 31\nread-length = 30\n"))
	if !errors.Is(err, ErrReadLength) {
		t.Errorf("read length < k: got %v", err)
	}

	for _, text := range []string{
		"junctions = \"some\"\n",
		"merge-policy = \"max\"\n",
		"workers = -1\n",
		"k = \n",
	} {
		if _, err = LoadConfig(writeConfig(t, text)); err == nil {
			t.Errorf("%q: expected error", text)
		}
	}

	if _, err = LoadConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("missing file: expected error")
	}
}
