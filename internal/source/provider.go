package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/bizzlechizzle/datemine/internal/cache"
	"github.com/bizzlechizzle/datemine/internal/extract"
	"github.com/bizzlechizzle/datemine/internal/model"
)

// ErrDisallowed is returned for URLs that robots.txt forbids
var ErrDisallowed = errors.New("disallowed by robots.txt")

// articleDateKeys are the meta tags that carry a publication date, in
// order of preference
var articleDateKeys = []string{
	"article:published_time",
	"datePublished",
	"date",
	"dc.date",
	"dcterms.created",
	"pubdate",
	"article:modified_time",
}

var articleDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"January 2, 2006",
}

// PageProvider fetches web pages and yields them as pipeline documents
type PageProvider struct {
	fetcher *Fetcher
	robots  *RobotsChecker // nil when robots.txt is ignored
	cache   cache.Cache    // nil disables caching
	ttl     time.Duration
	logger  *zap.Logger
}

// NewPageProvider creates a provider. c may be nil.
func NewPageProvider(cfg model.HTTPConfig, c cache.Cache, ttl time.Duration, logger *zap.Logger) *PageProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &PageProvider{
		fetcher: NewFetcher(cfg),
		cache:   c,
		ttl:     ttl,
		logger:  logger,
	}
	if cfg.RespectRobots {
		p.robots = NewRobotsChecker(cfg.UserAgent, cfg.Timeout)
	}
	return p
}

// FetchDocument downloads doc.URL and fills in the text, content type and,
// when the caller did not supply one, the article date
func (p *PageProvider) FetchDocument(ctx context.Context, doc model.Document) (model.Document, error) {
	page, err := p.page(ctx, doc.URL)
	if err != nil {
		return doc, err
	}

	doc.Text = page.HTML
	doc.ContentType = page.ContentType
	if doc.SourceType == "" {
		doc.SourceType = model.SourceWebPage
	}
	if doc.SourceID == "" {
		doc.SourceID = page.FinalURL
	}
	if doc.ArticleDate == nil {
		doc.ArticleDate = ArticleDate(page.HTML, page.LastModified)
	}
	return doc, nil
}

func (p *PageProvider) page(ctx context.Context, rawURL string) (*FetchResult, error) {
	key := cache.PageKey(rawURL)
	if p.cache != nil {
		if page, ok := cache.GetJSON[FetchResult](p.cache, key); ok {
			p.logger.Debug("page cache hit", zap.String("url", rawURL))
			return &page, nil
		}
	}

	if p.robots != nil {
		allowed, _, err := p.robots.CanFetch(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, fmt.Errorf("%s: %w", rawURL, ErrDisallowed)
		}
	}

	page, err := p.fetcher.FetchWithRetry(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("page fetched",
		zap.String("url", rawURL),
		zap.String("final_url", page.FinalURL),
		zap.Int("bytes", len(page.HTML)),
	)

	if p.cache != nil {
		if err := cache.SetJSON(p.cache, key, page, p.ttl); err != nil {
			p.logger.Warn("cache page", zap.String("url", rawURL), zap.Error(err))
		}
	}
	return page, nil
}

// ArticleDate finds the publication date of a page from its meta tags,
// falling back to the Last-Modified header. It returns nil when neither
// yields a date.
func ArticleDate(htmlContent, lastModified string) *time.Time {
	if doc, err := html.Parse(strings.NewReader(htmlContent)); err == nil {
		if raw := extract.MetaContent(doc, articleDateKeys...); raw != "" {
			for _, layout := range articleDateLayouts {
				if t, err := time.Parse(layout, raw); err == nil {
					t = t.UTC()
					return &t
				}
			}
		}
	}
	if lastModified != "" {
		if t, err := http.ParseTime(lastModified); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
