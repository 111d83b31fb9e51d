// Package relay talks to the hosted subscribe endpoint that creates
// site.standard.graph.subscription records on a reader's behalf.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"sequoia-server/internal/atproto"
)

// DefaultCallbackURI is the hosted relay used when a widget configures none.
const DefaultCallbackURI = "https://sequoia.pub/subscribe"

const maxResponseSize = 64 * 1024

// Result is the outcome of a subscribe call that got a usable answer.
// When Unauthenticated is set the reader has to finish the flow at
// SubscribeURL; otherwise RecordURI names the created record.
type Result struct {
	Unauthenticated bool
	SubscribeURL    string
	RecordURI       string
}

// Client posts subscribe requests. The underlying http.Client should carry a
// cookie jar; the relay authenticates with cookies.
type Client struct {
	http atproto.HTTPDoer
}

// NewClient returns a Client. A nil client selects an http.Client with a
// 10 second timeout and no cookie jar.
func NewClient(client atproto.HTTPDoer) *Client {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{http: client}
}

type subscribeRequest struct {
	PublicationURI string `json:"publicationUri"`
}

type subscribeResponse struct {
	RecordURI     string `json:"recordUri"`
	Authenticated *bool  `json:"authenticated"`
	SubscribeURL  string `json:"subscribeUrl"`
	Error         string `json:"error"`
}

// Subscribe POSTs {publicationUri} to callbackURI.
//
// A 401 carrying authenticated:false is not an error: it yields a Result with
// Unauthenticated set. Any other non-2xx status fails with ErrFetchFailed using
// the relay's error message when it sent one.
func (c *Client) Subscribe(ctx context.Context, callbackURI, publicationURI string) (Result, error) {
	body, err := json.Marshal(subscribeRequest{PublicationURI: publicationURI})
	if err != nil {
		return Result{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, callbackURI, bytes.NewReader(body))
	if err != nil {
		return Result{}, &atproto.Error{Kind: atproto.KindFetchFailed, Msg: fmt.Sprintf("Invalid callback URI: %s", callbackURI), Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, &atproto.Error{Kind: atproto.KindNetwork, Msg: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	var data subscribeResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&data); err != nil {
		return Result{}, &atproto.Error{
			Kind:   atproto.KindUnexpectedFormat,
			Msg:    fmt.Sprintf("Unexpected response from subscribe service (HTTP %d)", resp.StatusCode),
			Status: resp.StatusCode,
			Err:    err,
		}
	}

	if resp.StatusCode == http.StatusUnauthorized && data.Authenticated != nil && !*data.Authenticated {
		return Result{Unauthenticated: true, SubscribeURL: data.SubscribeURL}, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := data.Error
		if msg == "" {
			msg = fmt.Sprintf("HTTP %d", resp.StatusCode)
		}
		return Result{}, &atproto.Error{Kind: atproto.KindFetchFailed, Msg: msg, Status: resp.StatusCode}
	}

	return Result{RecordURI: data.RecordURI}, nil
}
