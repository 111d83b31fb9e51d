// Package pagemeta finds the document link an embedding page declares with
// <link rel="site.standard.document" href="at://...">.
package pagemeta

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"sequoia-server/internal/util"
)

// DocumentRel is the link relation naming a page's document record.
const DocumentRel = "site.standard.document"

// maxPageSize bounds how much of an embedding page is read.
const maxPageSize = 2 << 20

// Provider answers the comments widget's question "which document is this
// page about?". An empty result means the page declares none.
type Provider interface {
	DocumentLink(ctx context.Context) string
}

// Static is a Provider with a fixed answer.
type Static string

func (s Static) DocumentLink(ctx context.Context) string {
	return string(s)
}

// None declares no document.
var None Provider = Static("")

// FromHTML scans an HTML document once and returns a Static provider with the
// result. Relative hrefs are resolved against base, which may be nil.
func FromHTML(r io.Reader, base *url.URL) (Provider, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	return Static(findDocumentLink(doc, base)), nil
}

// Remote fetches an embedding page on demand and scans it.
type Remote struct {
	client  *http.Client
	pageURL string
}

// NewRemote returns a Provider reading pageURL. A nil client selects one with
// a 5 second timeout. Redirects are only followed to public hosts.
func NewRemote(client *http.Client, pageURL string) *Remote {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &Remote{client: util.WithPublicRedirects(client), pageURL: pageURL}
}

// DocumentLink fetches the page. Fetch and parse failures are logged and
// reported as "no document", the same as a page without the link.
func (p *Remote) DocumentLink(ctx context.Context) string {
	link, err := p.fetch(ctx)
	if err != nil {
		slog.Debug("page metadata lookup failed", "page", p.pageURL, "error", err)
		return ""
	}
	return link
}

func (p *Remote) fetch(ctx context.Context) (string, error) {
	base, err := url.Parse(p.pageURL)
	if err != nil {
		return "", fmt.Errorf("invalid page URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme: %s", base.Scheme)
	}
	if util.IsPrivateHost(base.Hostname()) {
		return "", fmt.Errorf("page host is private: %s", base.Hostname())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base.String(), nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return "", fmt.Errorf("parse page: %w", err)
	}
	// Redirects change the base for relative hrefs.
	return findDocumentLink(doc, resp.Request.URL), nil
}

// findDocumentLink returns the resolved href of the first matching <link>.
func findDocumentLink(doc *html.Node, base *url.URL) string {
	var found string
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "link" && hasRel(n, DocumentRel) {
			if href := attr(n, "href"); href != "" {
				found = resolve(base, href)
				return true
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(doc)
	return found
}

func hasRel(n *html.Node, rel string) bool {
	for _, token := range strings.Fields(attr(n, "rel")) {
		if strings.EqualFold(token, rel) {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

func resolve(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil || base == nil || ref.IsAbs() {
		return href
	}
	return base.ResolveReference(ref).String()
}
