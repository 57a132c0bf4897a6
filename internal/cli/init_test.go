package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dailyowo/internal/config"
)

func TestSetupLoggerWritesToGivenOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupLogger(&config.Config{LogLevel: "debug", LogFormat: "json"}, &buf)
	logger.Debug("hello")
	if !strings.Contains(buf.String(), `"msg":"hello"`) {
		t.Fatalf("expected json debug record, got %q", buf.String())
	}
}

func TestLoadTaxonomy(t *testing.T) {
	tx, err := LoadTaxonomy(&config.Config{})
	if err != nil || len(tx.IDs()) == 0 {
		t.Fatalf("expected default taxonomy, got %v err=%v", tx, err)
	}

	path := filepath.Join(t.TempDir(), "taxonomy.yaml")
	if err := os.WriteFile(path, []byte("categories:\n  - id: groceries\n    name: Groceries\n"), 0644); err != nil {
		t.Fatal(err)
	}
	tx, err = LoadTaxonomy(&config.Config{TaxonomyFile: path})
	if err != nil {
		t.Fatalf("LoadTaxonomy() error = %v", err)
	}
	if _, ok := tx.Lookup("groceries"); !ok {
		t.Fatalf("expected groceries in loaded taxonomy")
	}

	if _, err := LoadTaxonomy(&config.Config{TaxonomyFile: filepath.Join(t.TempDir(), "missing.yaml")}); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
