package util

import (
	"net/http"
	"testing"
)

func TestNewProxyFunc(t *testing.T) {
	tests := []struct {
		name       string
		httpProxy  string
		httpsProxy string
		noProxy    string
		url        string
		want       string
	}{
		{"http scheme", "http://proxy:8080", "http://secure-proxy:8443", "", "http://example.org/a", "http://proxy:8080"},
		{"https scheme", "http://proxy:8080", "http://secure-proxy:8443", "", "https://example.org/a", "http://secure-proxy:8443"},
		{"https falls back to http proxy", "http://proxy:8080", "", "", "https://example.org/a", "http://proxy:8080"},
		{"no proxy host suffix", "http://proxy:8080", "", "internal.example, .corp", "https://wiki.internal.example/a", ""},
		{"no proxy leading dot", "http://proxy:8080", "", "internal.example, .corp", "http://host.corp/a", ""},
		{"no proxy with port", "http://proxy:8080", "", "archive.example:8080", "http://archive.example:8080/a", ""},
		{"no proxy other port", "http://proxy:8080", "", "archive.example:8080", "http://archive.example/a", "http://proxy:8080"},
		{"no proxy cidr", "http://proxy:8080", "", "10.0.0.0/8", "http://10.1.2.3/a", ""},
		{"no proxy wildcard", "http://proxy:8080", "", "*", "http://example.org/a", ""},
		{"suffix is not substring", "http://proxy:8080", "", "corp", "http://notcorp.example/a", "http://proxy:8080"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proxy := NewProxyFunc(tt.httpProxy, tt.httpsProxy, tt.noProxy)
			req, err := http.NewRequest(http.MethodGet, tt.url, nil)
			if err != nil {
				t.Fatal(err)
			}
			got, err := proxy(req)
			if err != nil {
				t.Fatalf("proxy(%s) failed: %v", tt.url, err)
			}
			gotStr := ""
			if got != nil {
				gotStr = got.String()
			}
			if gotStr != tt.want {
				t.Errorf("proxy(%s) = %q, want %q", tt.url, gotStr, tt.want)
			}
		})
	}
}
