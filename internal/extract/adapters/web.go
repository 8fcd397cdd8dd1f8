package adapters

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/bizzlechizzle/datemine/internal/extract"
	"github.com/bizzlechizzle/datemine/internal/model"
)

// WebAdapter extracts the visible text of captured web pages
type WebAdapter struct{}

// NewWebAdapter creates a new web page adapter
func NewWebAdapter() *WebAdapter {
	return &WebAdapter{}
}

// Name returns the adapter name
func (a *WebAdapter) Name() string {
	return "web"
}

// CanHandle accepts web sources whose content looks like HTML
func (a *WebAdapter) CanHandle(sourceType model.SourceType, contentType string) bool {
	if sourceType != model.SourceWebPage {
		return false
	}
	return contentType == "" || strings.Contains(contentType, "html")
}

// Text strips markup and returns one line per block element. MediaWiki
// pages are reduced to their article body.
func (a *WebAdapter) Text(content string) (string, error) {
	if !looksLikeHTML(content) {
		return collapseSpaces(content), nil
	}
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return "", err
	}
	if text, ok := mediaWikiText(doc); ok {
		return collapseSpaces(text), nil
	}
	return collapseSpaces(extract.NodeText(doc)), nil
}

func looksLikeHTML(s string) bool {
	i := strings.IndexByte(s, '<')
	return i >= 0 && strings.IndexByte(s[i:], '>') > 0
}
