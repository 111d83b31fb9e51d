package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"sequoia-server/internal/config"
)

func newFakeNetwork(t *testing.T) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/did:plc:author":
			json.NewEncoder(w).Encode(map[string]any{
				"id":      "did:plc:author",
				"service": []map[string]string{{"id": "#atproto_pds", "type": "AtprotoPersonalDataServer", "serviceEndpoint": srv.URL}},
			})
		case "/xrpc/com.atproto.repo.getRecord":
			io.WriteString(w, `{"uri":"at://did:plc:author/site.standard.document/d","value":{"$type":"site.standard.document","title":"Hello","bskyPostRef":{"uri":"at://did:plc:author/app.bsky.feed.post/root","cid":"bafy"}}}`)
		case "/xrpc/app.bsky.feed.getPostThread":
			io.WriteString(w, `{"thread":{"$type":"app.bsky.feed.defs#threadViewPost",
				"post":{"uri":"at://did:plc:author/app.bsky.feed.post/root","author":{"did":"did:plc:author","handle":"author.test"},"record":{"text":"root"}},
				"replies":[{"$type":"app.bsky.feed.defs#threadViewPost",
					"post":{"uri":"at://did:plc:ada/app.bsky.feed.post/r1","author":{"did":"did:plc:ada","handle":"ada.test","displayName":"Ada"},"record":{"text":"a <b> reply"}}}]}}`)
		case "/.well-known/site.standard.publication":
			io.WriteString(w, "at://did:plc:author/site.standard.publication/self\n")
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func run(t *testing.T, net *httptest.Server, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(config.DefaultServerConfig())
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--plc", net.URL, "--appview", net.URL}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestCommands(t *testing.T) {
	net := newFakeNetwork(t)

	testCases := []struct {
		name string
		args []string
		want []string
	}{
		{
			name: "resolve",
			args: []string{"resolve", "did:plc:author"},
			want: []string{net.URL},
		},
		{
			name: "record",
			args: []string{"record", "at://did:plc:author/site.standard.document/d"},
			want: []string{`"title": "Hello"`, `"bskyPostRef": {`},
		},
		{
			name: "thread",
			args: []string{"thread", "at://did:plc:author/app.bsky.feed.post/root", "--depth", "2"},
			want: []string{"1 comments", "Ada @ada.test", "a <b> reply"},
		},
		{
			name: "comments",
			args: []string{"comments", "at://did:plc:author/site.standard.document/d"},
			want: []string{
				"<!-- https://bsky.app/profile/did:plc:author/post/root -->",
				`<p data-author="ada.test">a &lt;b&gt; reply</p>`,
			},
		},
		{
			name: "publication",
			args: []string{"publication", net.URL},
			want: []string{"at://did:plc:author/site.standard.publication/self"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := run(t, net, tc.args...)
			if err != nil {
				t.Fatalf("execute: %v", err)
			}
			for _, want := range tc.want {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q\n%s", want, out)
				}
			}
		})
	}
}

func TestCommandErrors(t *testing.T) {
	net := newFakeNetwork(t)

	testCases := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "bad uri", args: []string{"record", "nope"}, wantErr: "Invalid AT URI: nope"},
		{name: "unsupported did", args: []string{"resolve", "did:key:z6Mk"}, wantErr: "Unsupported DID method: did:key:z6Mk"},
		{name: "missing argument", args: []string{"thread"}, wantErr: "accepts 1 arg(s)"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := run(t, net, tc.args...)
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error = %v, want %q", err, tc.wantErr)
			}
		})
	}
}
