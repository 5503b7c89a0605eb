package extractor

import (
	"bytes"
	"time"

	"github.com/araddon/dateparse"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/lucenthq/lucent/internal/agehint"
)

// publishedMetaNames lists the meta/itemprop names checked, in priority
// order, for a page's publication date.
var publishedMetaNames = []string{
	"article:published_time",
	"og:published_time",
	"datePublished",
	"publish-date",
	"date",
}

// parsePublishedDate tries, in order: meta tags in the raw page HTML, a
// <time datetime> attribute, then the search provider's free-text age
// hint (spec.md §4.4). Returns nil if none parse.
func parsePublishedDate(rawHTML []byte, providerHint string) *time.Time {
	if t := fromMetaTags(rawHTML); t != nil {
		return t
	}
	if t := fromTimeTag(rawHTML); t != nil {
		return t
	}
	if providerHint != "" {
		if t := agehint.Parse(providerHint); t != nil {
			return t
		}
	}
	return nil
}

func fromMetaTags(rawHTML []byte) *time.Time {
	doc, err := html.Parse(bytes.NewReader(rawHTML))
	if err != nil {
		return nil
	}
	values := make(map[string]string)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Meta {
			name := attr(n, "property")
			if name == "" {
				name = attr(n, "name")
			}
			if name == "" {
				name = attr(n, "itemprop")
			}
			if content := attr(n, "content"); name != "" && content != "" {
				values[name] = content
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	for _, name := range publishedMetaNames {
		if v, ok := values[name]; ok {
			if t, err := dateparse.ParseAny(v); err == nil {
				return &t
			}
		}
	}
	return nil
}

func fromTimeTag(rawHTML []byte) *time.Time {
	doc, err := html.Parse(bytes.NewReader(rawHTML))
	if err != nil {
		return nil
	}
	var found *time.Time
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found != nil {
			return
		}
		if n.Type == html.ElementNode && n.DataAtom == atom.Time {
			if dt := attr(n, "datetime"); dt != "" {
				if t, err := dateparse.ParseAny(dt); err == nil {
					found = &t
					return
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
			if found != nil {
				return
			}
		}
	}
	walk(doc)
	return found
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
