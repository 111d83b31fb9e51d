// Static widget markup checker
// Parses the widget templates and reports security and accessibility problems
// without running the server.
package main

import (
	"flag"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/net/html"

	"sequoia-server/templates"
)

// Check categories
const (
	CategoryXSS           = "XSS Prevention"
	CategoryCSRF          = "CSRF Protection"
	CategoryLinks         = "External Links"
	CategoryAccessibility = "Accessibility"
)

// Severity levels
const (
	SeverityHigh   = "high"
	SeverityMedium = "medium"
	SeverityLow    = "low"
)

// CheckResult is one failed rule.
type CheckResult struct {
	Category    string
	Rule        string
	Template    string
	Element     string
	Severity    string
	Remediation string
}

// templateAction matches {{...}} actions. Each is replaced with a placeholder
// word before parsing so dynamic text and attribute values count as present.
var templateAction = regexp.MustCompile(`\{\{.*?\}\}`)

func main() {
	verbose := flag.Bool("v", false, "Verbose output")
	flag.Parse()

	sources := map[string]string{
		"subscribe": templates.GetSubscribeTemplate(),
		"comments":  templates.GetCommentsTemplates(),
	}

	fmt.Printf("Widget Markup Checker\n")
	fmt.Printf("========================================\n")

	results := checkTemplates(sources)
	if *verbose || len(results) > 0 {
		for _, r := range results {
			fmt.Printf("[%s] %s: %s (%s) in %s\n      fix: %s\n", r.Severity, r.Category, r.Rule, r.Element, r.Template, r.Remediation)
		}
	}

	fmt.Printf("Checked %d templates, %d findings\n", len(sources), len(results))
	if len(results) > 0 {
		os.Exit(1)
	}
}

// checkTemplates runs every rule against each named template source.
// Results are ordered by template name.
func checkTemplates(sources map[string]string) []CheckResult {
	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	sort.Strings(names)

	var results []CheckResult
	for _, name := range names {
		markup := templateAction.ReplaceAllString(sources[name], "x")
		doc, err := html.Parse(strings.NewReader(markup))
		if err != nil {
			results = append(results, CheckResult{
				Category:    CategoryAccessibility,
				Rule:        "Template parses as HTML",
				Template:    name,
				Element:     err.Error(),
				Severity:    SeverityHigh,
				Remediation: "Fix the malformed markup",
			})
			continue
		}
		results = append(results, checkNode(doc, name)...)
	}
	return results
}

func checkNode(n *html.Node, tmpl string) []CheckResult {
	var results []CheckResult
	fail := func(category, rule, severity, remediation string) {
		results = append(results, CheckResult{
			Category:    category,
			Rule:        rule,
			Template:    tmpl,
			Element:     describe(n),
			Severity:    severity,
			Remediation: remediation,
		})
	}

	if n.Type == html.ElementNode {
		for _, a := range n.Attr {
			if strings.HasPrefix(strings.ToLower(a.Key), "on") {
				fail(CategoryXSS, "Avoid inline event handlers", SeverityLow, "Use h-* attributes or external scripts")
			}
			if (a.Key == "href" || a.Key == "action" || a.Key == "src") && strings.HasPrefix(strings.ToLower(strings.TrimSpace(a.Val)), "javascript:") {
				fail(CategoryXSS, "No javascript: URLs", SeverityHigh, "Link to a real URL")
			}
		}

		switch n.Data {
		case "form":
			if strings.EqualFold(attr(n, "method"), "post") && !hasCSRFField(n) {
				fail(CategoryCSRF, "POST forms include CSRF token", SeverityHigh, `Add <input type="hidden" name="csrf_token" value="{{.CSRFToken}}">`)
			}
		case "a":
			if attr(n, "target") == "_blank" && !hasToken(attr(n, "rel"), "noopener") {
				fail(CategoryLinks, "New-tab links use rel=noopener", SeverityMedium, `Add rel="noopener noreferrer"`)
			}
		case "img":
			if _, ok := lookup(n, "alt"); !ok {
				fail(CategoryAccessibility, "Images have alt text", SeverityMedium, "Add an alt attribute")
			}
		case "button":
			if attr(n, "type") == "" {
				fail(CategoryAccessibility, "Buttons declare a type", SeverityLow, `Add type="submit" or type="button"`)
			}
			if attr(n, "aria-label") == "" && strings.TrimSpace(textContent(n)) == "" {
				fail(CategoryAccessibility, "Buttons have an accessible name", SeverityMedium, "Add visible text or aria-label")
			}
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		results = append(results, checkNode(c, tmpl)...)
	}
	return results
}

func hasCSRFField(form *html.Node) bool {
	var found bool
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found {
			return
		}
		if n.Type == html.ElementNode && n.Data == "input" && attr(n, "name") == "csrf_token" {
			found = true
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(form)
	return found
}

func lookup(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func attr(n *html.Node, key string) string {
	v, _ := lookup(n, key)
	return strings.TrimSpace(v)
}

func hasToken(list, token string) bool {
	for _, t := range strings.Fields(list) {
		if strings.EqualFold(t, token) {
			return true
		}
	}
	return false
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(textContent(c))
	}
	return sb.String()
}

// describe renders a short selector-like name for n.
func describe(n *html.Node) string {
	if n.Type != html.ElementNode {
		return ""
	}
	s := n.Data
	if id := attr(n, "id"); id != "" {
		s += "#" + id
	}
	if class := attr(n, "class"); class != "" {
		s += "." + strings.Join(strings.Fields(class), ".")
	}
	return s
}
