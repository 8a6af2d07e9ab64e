// internal/scenario/preflight.go

package scenario

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/net/html"
)

// Issue is one preflight finding about a page.
type Issue struct {
	Subject string
	Detail  string
}

func (i Issue) String() string {
	return i.Subject + ": " + i.Detail
}

// Preflight statically checks that a local page provides the elements a
// scenario touches, without launching a browser. Only id selectors can be
// resolved this way; anything else is left to the live run.
func Preflight(sc *Scenario, pagePath string) ([]Issue, error) {
	f, err := os.Open(pagePath)
	if err != nil {
		return nil, fmt.Errorf("opening page: %w", err)
	}
	defer f.Close()

	doc, err := html.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing page: %w", err)
	}
	page := indexPage(doc)

	var issues []Issue
	for _, step := range sc.Steps {
		switch step.Kind {
		case KindClick, KindAssertValue, KindWaitTextNot:
			issues = append(issues, page.checkSelector(step.Selector)...)
		case KindSelect:
			issues = append(issues, page.checkSelectOption(step.Selector, step.Value)...)
		case KindAssertHeading:
			if !page.hasHeading(step.Name) {
				issues = append(issues, Issue{
					Subject: fmt.Sprintf("heading %q", step.Name),
					Detail:  "no heading with this text",
				})
			}
		}
	}
	return issues, nil
}

// pageIndex holds the parts of a parsed page preflight checks look at.
type pageIndex struct {
	ids      map[string]*html.Node
	headings []string
}

func indexPage(doc *html.Node) *pageIndex {
	idx := &pageIndex{ids: make(map[string]*html.Node)}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			for _, attr := range n.Attr {
				if attr.Key == "id" && attr.Val != "" {
					// First occurrence wins, like querySelector.
					if _, dup := idx.ids[attr.Val]; !dup {
						idx.ids[attr.Val] = n
					}
				}
			}
			if isHeading(n) {
				idx.headings = append(idx.headings, normalizeSpace(textOf(n)))
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return idx
}

func (p *pageIndex) checkSelector(selector string) []Issue {
	id, ok := strings.CutPrefix(selector, "#")
	if !ok {
		return nil
	}
	if _, found := p.ids[id]; !found {
		return []Issue{{Subject: selector, Detail: "no element with this id"}}
	}
	return nil
}

func (p *pageIndex) checkSelectOption(selector, value string) []Issue {
	id, ok := strings.CutPrefix(selector, "#")
	if !ok {
		return nil
	}
	node, found := p.ids[id]
	if !found {
		return []Issue{{Subject: selector, Detail: "no element with this id"}}
	}
	if node.Data != "select" {
		return []Issue{{Subject: selector, Detail: fmt.Sprintf("element is <%s>, not <select>", node.Data)}}
	}
	if !hasOptionValue(node, value) {
		return []Issue{{Subject: selector, Detail: fmt.Sprintf("select has no option with value %q", value)}}
	}
	return nil
}

func (p *pageIndex) hasHeading(name string) bool {
	want := normalizeSpace(name)
	for _, h := range p.headings {
		if h == want {
			return true
		}
	}
	return false
}

func isHeading(n *html.Node) bool {
	switch n.Data {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		return true
	}
	for _, attr := range n.Attr {
		if attr.Key == "role" && attr.Val == "heading" {
			return true
		}
	}
	return false
}

func hasOptionValue(sel *html.Node, value string) bool {
	found := false
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "option" {
			for _, attr := range n.Attr {
				if attr.Key == "value" && attr.Val == value {
					found = true
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(sel)
	return found
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
