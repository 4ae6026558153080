package lmsauth

import (
	"io"

	"golang.org/x/net/html"
)

const loginFormID = "loginForm"

// findLoginFormAction locates the <form id="loginForm"> element and
// returns its action attribute
func findLoginFormAction(page io.Reader) (string, error) {
	doc, err := html.Parse(page)
	if err != nil {
		return "", newError("failed to parse login page", err)
	}

	form := findNode(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "form" && attr(n, "id") == loginFormID
	})
	if form == nil {
		return "", newError("login form not found", nil)
	}

	action := attr(form, "action")
	if action == "" {
		return "", newError("login form has no submit target", nil)
	}

	return action, nil
}

// findNode walks the node tree depth-first and returns the first match
func findNode(n *html.Node, match func(*html.Node) bool) *html.Node {
	if match(n) {
		return n
	}

	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if found := findNode(child, match); found != nil {
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
