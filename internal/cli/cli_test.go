package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/bizzlechizzle/datemine/internal/model"
)

func newTestViper(t *testing.T) *viper.Viper {
	t.Helper()
	v := viper.New()
	if err := registerDefaults(v); err != nil {
		t.Fatalf("registerDefaults: %v", err)
	}
	v.SetEnvPrefix("DATEMINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig(newTestViper(t))
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	want := model.DefaultConfig()
	if cfg.Database.Driver != want.Database.Driver || cfg.Database.DSN != want.Database.DSN {
		t.Errorf("Unexpected database config: %+v", cfg.Database)
	}
	if cfg.Learning.SnapshotTTL != want.Learning.SnapshotTTL {
		t.Errorf("Expected snapshot TTL %v, got %v", want.Learning.SnapshotTTL, cfg.Learning.SnapshotTTL)
	}
	if len(cfg.Approval.Categories) != 3 || cfg.Approval.Categories[0] != model.CategoryBuildDate {
		t.Errorf("Unexpected approval categories: %v", cfg.Approval.Categories)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("DATEMINE_DATABASE_DSN", "/tmp/other.db")
	t.Setenv("DATEMINE_APPROVAL_THRESHOLD", "0.8")
	t.Setenv("DATEMINE_HTTP_TIMEOUT", "5s")
	t.Setenv("DATEMINE_LLM_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := loadConfig(newTestViper(t))
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Database.DSN != "/tmp/other.db" {
		t.Errorf("Expected DSN from env, got %q", cfg.Database.DSN)
	}
	if cfg.Approval.Threshold != 0.8 {
		t.Errorf("Expected threshold 0.8, got %v", cfg.Approval.Threshold)
	}
	if cfg.HTTP.Timeout != 5*time.Second {
		t.Errorf("Expected 5s timeout, got %v", cfg.HTTP.Timeout)
	}
	if cfg.LLM.APIKey != "sk-test" {
		t.Errorf("Expected API key from OPENAI_API_KEY, got %q", cfg.LLM.APIKey)
	}
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "database:\n  driver: postgres\n  dsn: postgres://localhost/datemine\nparser:\n  century_bias: false\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	v := newTestViper(t)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		t.Fatalf("ReadInConfig: %v", err)
	}
	cfg, err := loadConfig(v)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Database.Driver != "postgres" || cfg.Parser.CenturyBias {
		t.Errorf("File values not applied: %+v %+v", cfg.Database, cfg.Parser)
	}
	// Keys absent from the file keep their defaults
	if cfg.Parser.MinYear != 1600 {
		t.Errorf("Expected default min year, got %d", cfg.Parser.MinYear)
	}
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".datemine", "config.yaml")
	if err := writeDefaultConfig(path); err != nil {
		t.Fatalf("writeDefaultConfig: %v", err)
	}

	v := newTestViper(t)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		t.Fatalf("written config does not parse: %v", err)
	}
	cfg, err := loadConfig(v)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Scoring != model.DefaultConfig().Scoring {
		t.Errorf("Unexpected scoring: %+v", cfg.Scoring)
	}

	if err := writeDefaultConfig(path); err == nil {
		t.Error("Expected error when the config file already exists")
	}
}

func TestDocumentFromFlags(t *testing.T) {
	reset := func() {
		sourceType, sourceID, locID, subID = string(model.SourceManual), "", "", ""
		articleDate, docURL, contentType = "", "", ""
		maxTextBytes = 1 << 20
	}

	t.Run("stdin", func(t *testing.T) {
		reset()
		sourceID, locID, articleDate = "caption-1", "loc-1", "2019-04-12"
		doc, err := documentFromFlags(strings.NewReader("Built in 1923."), []string{"-"})
		if err != nil {
			t.Fatalf("documentFromFlags: %v", err)
		}
		if doc.Text != "Built in 1923." || doc.LocID != "loc-1" || doc.SourceID != "caption-1" {
			t.Errorf("Unexpected document: %+v", doc)
		}
		if doc.ArticleDate == nil || doc.ArticleDate.Year() != 2019 {
			t.Errorf("Expected article date, got %v", doc.ArticleDate)
		}
	})

	t.Run("file", func(t *testing.T) {
		reset()
		path := filepath.Join(t.TempDir(), "page.html")
		if err := os.WriteFile(path, []byte("<p>Opened 1901</p>"), 0644); err != nil {
			t.Fatal(err)
		}
		doc, err := documentFromFlags(nil, []string{path})
		if err != nil {
			t.Fatalf("documentFromFlags: %v", err)
		}
		if doc.SourceID != path || doc.ContentType != "text/html" {
			t.Errorf("Unexpected document: %+v", doc)
		}
	})

	errCases := map[string]func() []string{
		"stdin without source id": func() []string { return []string{"-"} },
		"nothing to process":      func() []string { return nil },
		"bad source type":         func() []string { sourceType = "fax"; return []string{"-"} },
		"bad article date":        func() []string { sourceID, articleDate = "x", "12/04/2019"; return []string{"-"} },
		"file and url":            func() []string { docURL = "https://example.org"; return []string{"-"} },
	}
	for name, setup := range errCases {
		t.Run(name, func(t *testing.T) {
			reset()
			args := setup()
			if _, err := documentFromFlags(strings.NewReader("text"), args); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("built   in\n1923", 40); got != "built in 1923" {
		t.Errorf("truncate collapsed whitespace to %q", got)
	}
	if got := truncate("abcdefghij", 5); got != "abcd…" {
		t.Errorf("truncate = %q", got)
	}
}
