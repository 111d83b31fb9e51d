package pagemeta

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"
)

func TestFromHTML(t *testing.T) {
	base, _ := url.Parse("https://blog.example.com/posts/hello/")

	testCases := []struct {
		name string
		page string
		want string
	}{
		{
			name: "head link",
			page: `<html><head><link rel="stylesheet" href="/s.css"><link rel="site.standard.document" href="at://did:plc:abc/site.standard.document/xyz"></head><body></body></html>`,
			want: "at://did:plc:abc/site.standard.document/xyz",
		},
		{
			name: "rel token list",
			page: `<link rel="alternate site.standard.document" href="at://did:plc:abc/site.standard.document/1">`,
			want: "at://did:plc:abc/site.standard.document/1",
		},
		{
			name: "first wins",
			page: `<link rel="site.standard.document" href="at://one"><link rel="site.standard.document" href="at://two">`,
			want: "at://one",
		},
		{
			name: "relative href",
			page: `<link rel="site.standard.document" href="../doc">`,
			want: "https://blog.example.com/posts/doc",
		},
		{
			name: "empty href skipped",
			page: `<link rel="site.standard.document" href=""><link rel="site.standard.document" href="at://later">`,
			want: "at://later",
		},
		{
			name: "absent",
			page: `<html><head><title>x</title></head></html>`,
			want: "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := FromHTML(strings.NewReader(tc.page), base)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := p.DocumentLink(context.Background()); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestRemoteRejectsPrivateHosts(t *testing.T) {
	var called bool
	client := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		called = true
		return nil, context.Canceled
	})}

	for _, page := range []string{"http://localhost/page", "http://127.0.0.1:8080/", "file:///etc/passwd", "::"} {
		if got := NewRemote(client, page).DocumentLink(context.Background()); got != "" {
			t.Errorf("%s: got %q", page, got)
		}
	}
	if called {
		t.Error("private or invalid pages must not be fetched")
	}
}

func TestRemoteFetch(t *testing.T) {
	page := `<html><head><link rel="site.standard.document" href="at://did:plc:abc/site.standard.document/r"></head></html>`
	client := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		if r.URL.String() != "https://blog.example.com/post" {
			t.Errorf("unexpected URL %s", r.URL)
		}
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": []string{"text/html"}},
			Body:       ioNopCloser(page),
			Request:    r,
		}, nil
	})}

	got := NewRemote(client, "https://blog.example.com/post").DocumentLink(context.Background())
	if got != "at://did:plc:abc/site.standard.document/r" {
		t.Errorf("got %q", got)
	}
}

func TestRemoteRefusesPrivateRedirect(t *testing.T) {
	var hops []string
	client := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		hops = append(hops, r.URL.String())
		return &http.Response{
			StatusCode: http.StatusFound,
			Header:     http.Header{"Location": []string{"http://127.0.0.1:8080/admin"}},
			Body:       ioNopCloser(""),
			Request:    r,
		}, nil
	})}

	got := NewRemote(client, "https://blog.example.com/post").DocumentLink(context.Background())
	if got != "" {
		t.Errorf("got %q", got)
	}
	if len(hops) != 1 {
		t.Errorf("requests = %v, redirect to a private host must not be followed", hops)
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func ioNopCloser(s string) io.ReadCloser {
	return io.NopCloser(strings.NewReader(s))
}
