package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"sequoia-server/internal/auth"
	"sequoia-server/internal/cache"
	"sequoia-server/internal/config"
)

const (
	testAuthor      = "did:plc:author"
	testPublication = "at://did:plc:author/site.standard.publication/self"
	docWithComments = "at://did:plc:author/site.standard.document/withcomments"
	docNoComments   = "at://did:plc:author/site.standard.document/nocomments"
	docMissing      = "at://did:plc:author/site.standard.document/missing"
	rootPost        = "at://did:plc:author/app.bsky.feed.post/root"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestMain(m *testing.M) {
	initTemplates()
	os.Exit(m.Run())
}

// fakeNetwork serves the PLC directory, a PDS, the AppView, a relay and a
// site's well-known endpoint from one test server.
type fakeNetwork struct {
	*httptest.Server

	mu          sync.Mutex
	relayStatus int
	relayBody   string
	relayGot    []string
	relayCookie []string
	plcCalls    int
}

func newFakeNetwork(t *testing.T) *fakeNetwork {
	t.Helper()
	n := &fakeNetwork{relayStatus: http.StatusOK, relayBody: `{"recordUri":"at://did:plc:reader/site.standard.graph.subscription/1"}`}
	n.Server = httptest.NewServer(http.HandlerFunc(n.serve))
	t.Cleanup(n.Close)
	return n
}

func (n *fakeNetwork) serve(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/"+testAuthor:
		n.mu.Lock()
		n.plcCalls++
		n.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]any{
			"id": testAuthor,
			"service": []map[string]string{
				{"id": "#atproto_pds", "type": "AtprotoPersonalDataServer", "serviceEndpoint": n.URL},
			},
		})

	case r.URL.Path == "/xrpc/com.atproto.repo.getRecord":
		switch r.URL.Query().Get("rkey") {
		case "withcomments":
			io.WriteString(w, `{"uri":"`+docWithComments+`","value":{"$type":"site.standard.document","title":"Hello","bskyPostRef":{"uri":"`+rootPost+`","cid":"bafyroot"}}}`)
		case "nocomments":
			io.WriteString(w, `{"uri":"`+docNoComments+`","value":{"$type":"site.standard.document","title":"Quiet"}}`)
		default:
			http.Error(w, `{"error":"RecordNotFound"}`, http.StatusBadRequest)
		}

	case r.URL.Path == "/xrpc/app.bsky.feed.getPostThread":
		io.WriteString(w, testThreadJSON)

	case r.URL.Path == "/subscribe" && r.Method == http.MethodPost:
		var body struct {
			PublicationURI string `json:"publicationUri"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		n.mu.Lock()
		n.relayGot = append(n.relayGot, body.PublicationURI)
		var cookie string
		if c, err := r.Cookie("session"); err == nil {
			cookie = c.Value
		}
		n.relayCookie = append(n.relayCookie, cookie)
		session := "reader-" + strconv.Itoa(len(n.relayGot))
		status, resp := n.relayStatus, n.relayBody
		n.mu.Unlock()
		http.SetCookie(w, &http.Cookie{Name: "session", Value: session, Path: "/"})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, resp)

	case r.URL.Path == "/.well-known/site.standard.publication":
		io.WriteString(w, testPublication)

	default:
		http.NotFound(w, r)
	}
}

func (n *fakeNetwork) setRelay(status int, body string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.relayStatus, n.relayBody = status, body
}

func (n *fakeNetwork) relayCalls() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.relayGot...)
}

// relayCookies returns the session cookie sent with each relay call, empty
// when none was sent.
func (n *fakeNetwork) relayCookies() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.relayCookie...)
}

// One top-level reply with a link facet and a nested reply, then a second
// top-level reply and a blocked placeholder.
var testThreadJSON = `{"thread":{
  "$type":"app.bsky.feed.defs#threadViewPost",
  "post":{"uri":"` + rootPost + `","cid":"bafyroot","author":{"did":"did:plc:author","handle":"author.test"},"record":{"text":"New post","createdAt":"2025-06-01T10:00:00Z"}},
  "replies":[
    {"$type":"app.bsky.feed.defs#threadViewPost",
     "post":{"uri":"at://did:plc:ada/app.bsky.feed.post/r1","author":{"did":"did:plc:ada","handle":"ada.test","displayName":"Ada Lovelace"},
       "record":{"text":"see example.com <3","createdAt":"2025-06-01T11:55:00Z",
         "facets":[{"index":{"byteStart":4,"byteEnd":15},"features":[{"$type":"app.bsky.richtext.facet#link","uri":"https://example.com"}]}]}},
     "replies":[
       {"$type":"app.bsky.feed.defs#threadViewPost",
        "post":{"uri":"at://did:plc:bob/app.bsky.feed.post/r2","author":{"did":"did:plc:bob","handle":"bob.test","avatar":"https://cdn.example.com/bob.jpg"},
          "record":{"text":"agreed","createdAt":"2025-06-01T09:00:00Z"}}}
     ]},
    {"$type":"app.bsky.feed.defs#blockedPost","uri":"at://did:plc:x/app.bsky.feed.post/b","blocked":true},
    {"$type":"app.bsky.feed.defs#threadViewPost",
     "post":{"uri":"at://did:plc:cy/app.bsky.feed.post/r3","author":{"did":"did:plc:cy","handle":"cy.test"},
       "record":{"text":"second","createdAt":"2025-05-01T12:00:00Z"}}}
  ]}}`

func newTestServer(t *testing.T, n *fakeNetwork) (*server, *httptest.Server) {
	t.Helper()

	cfg := config.DefaultServerConfig()
	cfg.PLCURL = n.URL
	cfg.AppViewURL = n.URL
	cfg.CallbackURI = n.URL + "/subscribe"
	cfg.WidgetTimeout = config.Duration{Duration: 5 * time.Second}
	cfg.HTTPTimeout = config.Duration{Duration: 5 * time.Second}

	store := cache.NewMemoryCache(time.Minute)
	t.Cleanup(func() { store.Close() })

	srv, err := newServer(cfg, store, auth.NewCSRFManager([]byte("test-secret"), 0))
	if err != nil {
		t.Fatal(err)
	}
	srv.allowPrivateHosts = true
	srv.now = func() time.Time { return testNow }

	ts := httptest.NewServer(srv.routes())
	t.Cleanup(func() {
		ts.Close()
		srv.instances.closeAll()
	})
	return srv, ts
}

// noRedirect keeps 303 responses visible to the test.
func noRedirect(ts *httptest.Server) *http.Client {
	c := ts.Client()
	c.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }
	return c
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func mustContain(t *testing.T, body string, wants ...string) {
	t.Helper()
	for _, want := range wants {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q\n%s", want, body)
		}
	}
}
