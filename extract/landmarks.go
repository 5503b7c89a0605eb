package extract

import (
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// findContentByLandmarks tries to find content in semantic HTML5 elements,
// preferred by extractDensity over density scoring when present.
func findContentByLandmarks(doc *html.Node) []*html.Node {
	landmarks := []atom.Atom{atom.Main, atom.Article}
	for _, tag := range landmarks {
		nodes := findAllByTag(doc, tag)
		if len(nodes) > 0 {
			return nodes
		}
	}
	return nil
}

// findAllByTag finds all elements with a specific tag.
func findAllByTag(root *html.Node, tag atom.Atom) []*html.Node {
	var results []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == tag {
			results = append(results, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return results
}
