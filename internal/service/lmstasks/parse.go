package lmstasks

import (
	"errors"
	"fmt"
	stdhtml "html"
	"io"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// Formats the LMS renders due dates in when asked for English
var dueDateLayouts = []string{
	"Monday, 2 January 2006, 15:04",
	"Monday, 2 January 2006, 3:04 PM",
	"2 January 2006, 15:04",
	"2 January 2006, 3:04 PM",
}

const dueDateHeader = "Due date"

func unescapeHTML(s string) string {
	return stdhtml.UnescapeString(s)
}

// parseAssignmentDeadline reads the due date from the assignment view
// page: a .generaltable row whose header cell says "Due date"
func parseAssignmentDeadline(page io.Reader, loc *time.Location) (time.Time, error) {
	var zero time.Time

	doc, err := html.Parse(page)
	if err != nil {
		return zero, NewError(CodeParse, fmt.Errorf("failed to parse assignment page: %w", err))
	}

	table := findNode(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "table" && hasClass(n, "generaltable")
	})
	if table == nil {
		return zero, NewError(CodeParse, errors.New("assignment info table not found"))
	}

	for _, row := range findNodes(table, isElement("tr")) {
		header := findNode(row, isElement("th"))
		data := findNode(row, isElement("td"))
		if header == nil || data == nil {
			continue
		}

		if strings.TrimSpace(nodeText(header)) != dueDateHeader {
			continue
		}

		dueAt, err := parseDueDate(nodeText(data), loc)
		if err != nil {
			return zero, err
		}
		return dueAt, nil
	}

	return zero, NewError(CodeParse, errors.New("due date row not found on assignment page"))
}

// parseQuizDeadline reads the due date from the quiz view page: one of
// the .quizinfo paragraphs reads like "This quiz will close on Monday,
// 26 September 2022, 15:30". Paragraphs are scanned last to first, the
// leading prose up to the weekday is cut at the first comma.
func parseQuizDeadline(page io.Reader, loc *time.Location) (time.Time, error) {
	var zero time.Time

	doc, err := html.Parse(page)
	if err != nil {
		return zero, NewError(CodeParse, fmt.Errorf("failed to parse quiz page: %w", err))
	}

	info := findNode(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && hasClass(n, "quizinfo")
	})
	if info == nil {
		return zero, NewError(CodeParse, errors.New("quiz info block not found"))
	}

	paragraphs := findNodes(info, isElement("p"))
	for i := len(paragraphs) - 1; i >= 0; i-- {
		_, rest, found := strings.Cut(nodeText(paragraphs[i]), ",")
		if !found {
			continue
		}

		if dueAt, err := parseDueDate(rest, loc); err == nil {
			return dueAt, nil
		}
	}

	return zero, NewError(CodeParse, errors.New("due date not found on quiz page"))
}

func parseDueDate(text string, loc *time.Location) (time.Time, error) {
	text = strings.TrimSpace(text)

	for _, layout := range dueDateLayouts {
		if dueAt, err := time.ParseInLocation(layout, text, loc); err == nil {
			return dueAt, nil
		}
	}

	return time.Time{}, NewError(CodeParse, fmt.Errorf("could not parse due date from %q", text))
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

// findNodes collects all matching nodes, document order
func findNodes(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var found []*html.Node

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if match(n) {
			found = append(found, n)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)

	return found
}

func isElement(name string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == name
	}
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(a.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}

func nodeText(n *html.Node) string {
	var sb strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)

	return sb.String()
}
