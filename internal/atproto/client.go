package atproto

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// maxResponseSize bounds record and thread responses.
const maxResponseSize = 8 << 20

// Client fetches records from PDS hosts and threads from the public AppView.
// Every call is a single attempt; nothing is cached.
type Client struct {
	http       HTTPDoer
	resolver   HostResolver
	appViewURL string
}

// NewClient builds a Client. A nil resolver selects a plain Resolver on the
// default directory; an empty appViewURL selects DefaultAppViewURL.
func NewClient(client HTTPDoer, resolver HostResolver, appViewURL string) *Client {
	if client == nil {
		client = DefaultHTTPClient
	}
	if resolver == nil {
		resolver = NewResolver(client, "")
	}
	if appViewURL == "" {
		appViewURL = DefaultAppViewURL
	}
	return &Client{
		http:       client,
		resolver:   resolver,
		appViewURL: strings.TrimRight(appViewURL, "/"),
	}
}

// GetRecord resolves the PDS of did and returns the value of the record at
// collection/rkey.
func (c *Client) GetRecord(ctx context.Context, did, collection, rkey string) (Record, error) {
	pds, err := c.resolver.ResolvePDS(ctx, did)
	if err != nil {
		return nil, err
	}

	u, err := url.Parse(strings.TrimRight(pds, "/") + "/xrpc/com.atproto.repo.getRecord")
	if err != nil {
		return nil, &Error{Kind: KindFetchFailed, Msg: fmt.Sprintf("Invalid PDS URL: %s", pds), Err: err}
	}
	q := u.Query()
	q.Set("repo", did)
	q.Set("collection", collection)
	q.Set("rkey", rkey)
	u.RawQuery = q.Encode()

	var data struct {
		URI   string          `json:"uri"`
		CID   string          `json:"cid"`
		Value json.RawMessage `json:"value"`
	}
	if err := c.getJSON(ctx, u.String(), "Failed to fetch record", &data); err != nil {
		return nil, err
	}
	return Record(data.Value), nil
}

// GetDocument fetches the site.standard.document record addressed by uri.
func (c *Client) GetDocument(ctx context.Context, uri string) (*Document, error) {
	parsed, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}

	rec, err := c.GetRecord(ctx, parsed.Authority, parsed.Collection, parsed.RecordKey)
	if err != nil {
		return nil, err
	}

	var doc Document
	if err := rec.Decode(&doc); err != nil {
		return nil, &Error{Kind: KindUnexpectedFormat, Msg: fmt.Sprintf("Malformed document record: %v", err), Err: err}
	}
	return &doc, nil
}

// GetPostThread fetches the reply tree of postURI down to depth levels.
// The root must be a post; placeholders fail with ErrNotFoundOrBlocked.
func (c *Client) GetPostThread(ctx context.Context, postURI string, depth int) (*ThreadNode, error) {
	u, err := url.Parse(c.appViewURL + "/xrpc/app.bsky.feed.getPostThread")
	if err != nil {
		return nil, &Error{Kind: KindFetchFailed, Msg: fmt.Sprintf("Invalid AppView URL: %s", c.appViewURL), Err: err}
	}
	q := u.Query()
	q.Set("uri", postURI)
	q.Set("depth", strconv.Itoa(depth))
	u.RawQuery = q.Encode()

	var data struct {
		Thread *ThreadNode `json:"thread"`
	}
	if err := c.getJSON(ctx, u.String(), "Failed to fetch post thread", &data); err != nil {
		return nil, err
	}
	if data.Thread == nil || data.Thread.Type != TypeThreadViewPost {
		return nil, newError(KindNotFoundOrBlocked, "Post not found or blocked")
	}
	return data.Thread, nil
}

// getJSON issues a GET and decodes a JSON body into v. Non-2xx statuses fail
// with ErrFetchFailed using failMsg as the message prefix.
func (c *Client) getJSON(ctx context.Context, rawURL, failMsg string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return &Error{Kind: KindFetchFailed, Msg: fmt.Sprintf("%s: %v", failMsg, err), Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return networkError(err)
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return statusError(KindFetchFailed, fmt.Sprintf("%s: %d", failMsg, resp.StatusCode), resp.StatusCode)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(v); err != nil {
		return &Error{Kind: KindUnexpectedFormat, Msg: fmt.Sprintf("%s: %v", failMsg, err), Err: err}
	}
	return nil
}
