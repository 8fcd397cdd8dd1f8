package adapters

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/bizzlechizzle/datemine/internal/extract"
)

// backMatter headings end the article body. Citation access dates
// ("Retrieved March 5, 2019") in these sections are not about the site.
var backMatter = map[string]bool{
	"references":      true,
	"notes":           true,
	"citations":       true,
	"sources":         true,
	"bibliography":    true,
	"further reading": true,
	"external links":  true,
	"see also":        true,
}

// skipClasses mark MediaWiki chrome that never carries article text
var skipClasses = []string{
	"reference", "references", "reflist", "mw-references-wrap",
	"navbox", "vertical-navbox", "mw-editsection", "noprint",
	"metadata", "hatnote", "toc", "catlinks", "mw-jump-link",
}

// mediaWikiText returns the article body of a MediaWiki page (Wikipedia and
// the local-history wikis built on the same software). Infoboxes are kept;
// their "Built" and "Demolished" rows are often the best dates on the page.
// ok is false when doc is not a MediaWiki page.
func mediaWikiText(doc *html.Node) (text string, ok bool) {
	content := findFirst(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "div" &&
			(hasClass(n, "mw-parser-output") || attr(n, "id") == "mw-content-text")
	})
	if content == nil {
		return "", false
	}

	prune(content)
	return extract.NodeText(content), true
}

// prune removes chrome and everything from the first back-matter heading on
func prune(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		switch {
		case isBackMatterHeading(c):
			for rest := c; rest != nil; {
				after := rest.NextSibling
				n.RemoveChild(rest)
				rest = after
			}
			return
		case isChrome(c):
			n.RemoveChild(c)
		default:
			prune(c)
		}
		c = next
	}
}

func isChrome(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	for _, class := range skipClasses {
		if hasClass(n, class) {
			return true
		}
	}
	return false
}

// isBackMatterHeading matches both <h2> and the newer <div class="mw-heading"><h2>
func isBackMatterHeading(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	var heading *html.Node
	switch {
	case n.Data == "h2":
		heading = n
	case n.Data == "div" && hasClass(n, "mw-heading"):
		heading = findFirst(n, func(c *html.Node) bool {
			return c.Type == html.ElementNode && c.Data == "h2"
		})
	}
	if heading == nil {
		return false
	}
	title := strings.ToLower(strings.TrimSpace(extract.NodeText(heading)))
	// Legacy markup keeps the "[edit]" link inside the heading
	if i := strings.IndexByte(title, '['); i >= 0 {
		title = title[:i]
	}
	return backMatter[strings.TrimSpace(title)]
}

func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	if match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, match); found != nil {
			return found
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}
