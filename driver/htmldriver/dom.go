package htmldriver

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

// walk calls fn for every element node under root in document order.
func walk(root *html.Node, fn func(*html.Node)) {
	if root == nil {
		return
	}
	if root.Type == html.ElementNode {
		fn(root)
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			sb.WriteString(n.Data)
		case html.ElementNode:
			if n.Data == "script" || n.Data == "style" {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return strings.TrimSpace(sb.String())
}

func isFocusable(n *html.Node) bool {
	if n.Type != html.ElementNode || hasAttr(n, "disabled") {
		return false
	}

	if ti, ok := tabIndex(n); ok {
		return ti >= 0
	}

	switch n.Data {
	case "input":
		return strings.ToLower(attr(n, "type")) != "hidden"
	case "button", "select", "textarea":
		return true
	case "a":
		return hasAttr(n, "href")
	}
	return false
}

func tabIndex(n *html.Node) (int, bool) {
	if !hasAttr(n, "tabindex") {
		return 0, false
	}
	ti, err := strconv.Atoi(strings.TrimSpace(attr(n, "tabindex")))
	if err != nil {
		return 0, false
	}
	return ti, true
}

func isSubmitControl(n *html.Node) bool {
	switch n.Data {
	case "input":
		t := strings.ToLower(attr(n, "type"))
		return t == "submit" || t == "image"
	case "button":
		t := strings.ToLower(attr(n, "type"))
		return t == "" || t == "submit"
	}
	return false
}

func enclosingForm(n *html.Node) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && p.Data == "form" {
			return p
		}
	}
	return nil
}

func firstSubmitControl(form *html.Node) *html.Node {
	var found *html.Node
	walk(form, func(n *html.Node) {
		if found == nil && isSubmitControl(n) {
			found = n
		}
	})
	return found
}
