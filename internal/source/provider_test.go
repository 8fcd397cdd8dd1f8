package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bizzlechizzle/datemine/internal/cache"
	"github.com/bizzlechizzle/datemine/internal/model"
)

const articlePage = `<html><head>
<meta property="article:published_time" content="2019-04-12T08:30:00Z">
</head><body><p>The depot opened in 1911.</p></body></html>`

func newSite(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, "User-agent: *\nDisallow: /private\n")
	})
	mux.HandleFunc("/depot", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = fmt.Fprint(w, articlePage)
	})
	mux.HandleFunc("/plain", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Last-Modified", "Tue, 03 Mar 2020 10:00:00 GMT")
		_, _ = fmt.Fprint(w, "<p>No meta here.</p>")
	})
	mux.HandleFunc("/private", func(w http.ResponseWriter, r *http.Request) {
		t.Error("robots.txt should have blocked /private")
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestPageProvider_FetchDocument(t *testing.T) {
	var hits atomic.Int32
	server := newSite(t, &hits)

	cfg := testConfig()
	cfg.RespectRobots = true
	provider := NewPageProvider(cfg, cache.NewMemoryCache(time.Minute, time.Minute), time.Minute, nil)

	doc, err := provider.FetchDocument(context.Background(), model.Document{URL: server.URL + "/depot", LocID: "loc-1"})
	if err != nil {
		t.Fatalf("FetchDocument failed: %v", err)
	}
	if doc.Text != articlePage {
		t.Errorf("unexpected text: %q", doc.Text)
	}
	if doc.SourceType != model.SourceWebPage {
		t.Errorf("expected web source type, got %s", doc.SourceType)
	}
	if doc.SourceID != server.URL+"/depot" {
		t.Errorf("expected URL as source id, got %s", doc.SourceID)
	}
	if doc.LocID != "loc-1" {
		t.Errorf("location lost: %s", doc.LocID)
	}
	if doc.ArticleDate == nil || !doc.ArticleDate.Equal(time.Date(2019, 4, 12, 8, 30, 0, 0, time.UTC)) {
		t.Errorf("unexpected article date: %v", doc.ArticleDate)
	}

	// Second fetch is served from the cache
	if _, err := provider.FetchDocument(context.Background(), model.Document{URL: server.URL + "/depot"}); err != nil {
		t.Fatal(err)
	}
	if hits.Load() != 1 {
		t.Errorf("expected 1 request, got %d", hits.Load())
	}
}

func TestPageProvider_KeepsCallerArticleDate(t *testing.T) {
	var hits atomic.Int32
	server := newSite(t, &hits)
	provider := NewPageProvider(testConfig(), nil, 0, nil)

	given := time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)
	doc, err := provider.FetchDocument(context.Background(), model.Document{URL: server.URL + "/depot", ArticleDate: &given})
	if err != nil {
		t.Fatal(err)
	}
	if !doc.ArticleDate.Equal(given) {
		t.Errorf("article date overwritten: %v", doc.ArticleDate)
	}
}

func TestPageProvider_RobotsDisallow(t *testing.T) {
	var hits atomic.Int32
	server := newSite(t, &hits)

	cfg := testConfig()
	cfg.RespectRobots = true
	provider := NewPageProvider(cfg, nil, 0, nil)

	_, err := provider.FetchDocument(context.Background(), model.Document{URL: server.URL + "/private"})
	if !errors.Is(err, ErrDisallowed) {
		t.Errorf("expected ErrDisallowed, got %v", err)
	}
}

func TestPageProvider_LastModifiedFallback(t *testing.T) {
	var hits atomic.Int32
	server := newSite(t, &hits)
	provider := NewPageProvider(testConfig(), nil, 0, nil)

	doc, err := provider.FetchDocument(context.Background(), model.Document{URL: server.URL + "/plain"})
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2020, 3, 3, 10, 0, 0, 0, time.UTC)
	if doc.ArticleDate == nil || !doc.ArticleDate.Equal(want) {
		t.Errorf("expected %v, got %v", want, doc.ArticleDate)
	}
}

func TestArticleDate(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{"iso date meta", `<meta name="date" content="2015-07-04">`, "2015-07-04"},
		{"schema itemprop", `<meta itemprop="datePublished" content="2012-11-30T10:00:00-05:00">`, "2012-11-30"},
		{"preference order", `<meta name="date" content="2010-01-01"><meta property="article:published_time" content="2011-02-02">`, "2011-02-02"},
		{"unparseable", `<meta name="date" content="sometime">`, ""},
		{"none", `<p>nothing</p>`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ArticleDate(tt.html, "")
			gotStr := ""
			if got != nil {
				gotStr = got.Format("2006-01-02")
			}
			if gotStr != tt.want {
				t.Errorf("ArticleDate = %q, want %q", gotStr, tt.want)
			}
		})
	}
}

func TestRobotsChecker_CrawlDelay(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, "User-agent: datemine\nCrawl-delay: 2\nDisallow: /admin\n")
	}))
	defer server.Close()

	checker := NewRobotsChecker("datemine/0.1 (+https://example.org)", time.Second)
	allowed, delay, err := checker.CanFetch(context.Background(), server.URL+"/history")
	if err != nil {
		t.Fatal(err)
	}
	if !allowed {
		t.Error("expected /history to be allowed")
	}
	if delay != 2*time.Second {
		t.Errorf("expected 2s crawl delay, got %v", delay)
	}

	allowed, _, _ = checker.CanFetch(context.Background(), server.URL+"/admin/x")
	if allowed {
		t.Error("expected /admin to be disallowed")
	}
}
