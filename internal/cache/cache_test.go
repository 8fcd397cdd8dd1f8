package cache

import (
	"strings"
	"testing"
	"time"
)

func TestKey_NamespacedAndStable(t *testing.T) {
	a := PageKey("https://example.com/a")
	if a != PageKey("https://example.com/a") {
		t.Error("Expected identical keys for identical URLs")
	}
	if a == PageKey("https://example.com/b") {
		t.Error("Expected different keys for different URLs")
	}
	if !strings.HasPrefix(a, "datemine_v1_page_") {
		t.Errorf("Expected page namespace prefix, got %s", a)
	}
	if Key(NamespaceWeights, "x") == Key(NamespacePage, "x") {
		t.Error("Expected namespaces to separate keys")
	}
}

func TestLayeredCache_PromotesFromDisk(t *testing.T) {
	dir := t.TempDir()
	c := NewLayeredCache(time.Minute, dir, time.Hour)

	if err := c.Set("k", []byte("v"), 0); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	// A fresh layered cache over the same dir only has the disk copy
	fresh := NewLayeredCache(time.Minute, dir, time.Hour)
	got, ok := fresh.Get("k")
	if !ok || string(got) != "v" {
		t.Fatalf("Expected disk hit, got %q %v", got, ok)
	}
	if fresh.memory.(*MemoryCache).Len() != 1 {
		t.Error("Expected value promoted to memory")
	}

	if err := fresh.Delete("k"); err != nil {
		t.Fatalf("Expected no error on delete, got %v", err)
	}
	if err := fresh.Delete("k"); err != nil {
		t.Errorf("Expected deleting a missing key to succeed, got %v", err)
	}
}

func TestDiskCache_Expiry(t *testing.T) {
	c := NewDiskCache(t.TempDir(), time.Minute)
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return clock }

	if err := c.Set("k", []byte("v"), 0); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if _, ok := c.Get("k"); !ok {
		t.Fatal("Expected hit before expiry")
	}

	clock = clock.Add(2 * time.Minute)
	if _, ok := c.Get("k"); ok {
		t.Error("Expected miss after expiry")
	}
}

func TestJSONHelpers(t *testing.T) {
	c := NewLayeredCache(time.Minute, "", 0)

	type snapshot struct {
		Weights map[string]float64 `json:"weights"`
	}
	in := snapshot{Weights: map[string]float64{"built": 1.5}}
	if err := SetJSON(c, Key(NamespaceWeights, "all"), in, 0); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	out, ok := GetJSON[snapshot](c, Key(NamespaceWeights, "all"))
	if !ok || out.Weights["built"] != 1.5 {
		t.Errorf("Expected cached snapshot, got %+v %v", out, ok)
	}

	if _, ok := GetJSON[snapshot](c, "missing"); ok {
		t.Error("Expected miss for unknown key")
	}
}
