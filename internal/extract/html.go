package extract

import (
	"strings"

	"golang.org/x/net/html"
)

// blockElements end a line of visible text so sentence boundaries survive
// markup such as headings and table cells that carry no punctuation.
var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true, "td": true, "th": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"blockquote": true, "figcaption": true, "caption": true, "section": true,
	"article": true, "header": true, "footer": true, "dd": true, "dt": true,
}

// NodeText extracts text nodes under n, skipping scripts/styles
func NodeText(n *html.Node) string {
	var buf strings.Builder
	var last byte

	write := func(s string) {
		buf.WriteString(s)
		last = s[len(s)-1]
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe", "template", "head":
				return
			}
		}

		if n.Type == html.TextNode {
			text := strings.Join(strings.Fields(n.Data), " ")
			if text != "" {
				if buf.Len() > 0 && last != ' ' && last != '\n' {
					write(" ")
				}
				write(text)
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}

		if n.Type == html.ElementNode && blockElements[n.Data] && buf.Len() > 0 && last != '\n' {
			write("\n")
		}
	}

	walk(n)
	return strings.TrimSpace(buf.String())
}

// MetaContent returns the content of the first <meta> whose name or property
// matches one of keys, in key order.
func MetaContent(n *html.Node, keys ...string) string {
	found := make(map[string]string)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "meta" {
			var key, content string
			for _, a := range n.Attr {
				switch strings.ToLower(a.Key) {
				case "name", "property", "itemprop":
					key = strings.ToLower(a.Val)
				case "content":
					content = strings.TrimSpace(a.Val)
				}
			}
			if key != "" && content != "" {
				if _, ok := found[key]; !ok {
					found[key] = content
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)

	for _, k := range keys {
		if v, ok := found[strings.ToLower(k)]; ok {
			return v
		}
	}
	return ""
}
