package atproto

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newDirectory(t *testing.T, docs map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := docs[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestResolvePDS(t *testing.T) {
	dir := newDirectory(t, map[string]string{
		"/did:plc:byid":   `{"id":"did:plc:byid","service":[{"id":"#other","type":"X","serviceEndpoint":"https://nope"},{"id":"#atproto_pds","type":"?","serviceEndpoint":"https://pds.example"}]}`,
		"/did:plc:bytype": `{"service":[{"id":"#pds","type":"AtprotoPersonalDataServer","serviceEndpoint":"https://typed.example"}]}`,
		"/did:plc:none":   `{"service":[{"id":"#labeler","type":"AtprotoLabeler","serviceEndpoint":"https://labeler"}]}`,
		"/did:plc:empty":  `{}`,
	})
	r := NewResolver(dir.Client(), dir.URL)

	testCases := []struct {
		name    string
		did     string
		want    string
		wantErr error
	}{
		{name: "service id", did: "did:plc:byid", want: "https://pds.example"},
		{name: "service type", did: "did:plc:bytype", want: "https://typed.example"},
		{name: "no matching service", did: "did:plc:none", wantErr: ErrNoHostFound},
		{name: "no service list", did: "did:plc:empty", wantErr: ErrNoHostFound},
		{name: "directory 404", did: "did:plc:missing", wantErr: ErrResolutionFailed},
		{name: "unsupported method", did: "did:key:z6Mk", wantErr: ErrUnsupportedMethod},
		{name: "not a did", did: "alice.bsky.social", wantErr: ErrUnsupportedMethod},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := r.ResolvePDS(context.Background(), tc.did)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestResolvePDSStatusMessage(t *testing.T) {
	dir := newDirectory(t, nil)
	r := NewResolver(dir.Client(), dir.URL)

	_, err := r.ResolvePDS(context.Background(), "did:plc:gone")
	var aerr *Error
	if !errors.As(err, &aerr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if aerr.Status != http.StatusNotFound {
		t.Errorf("status = %d, want 404", aerr.Status)
	}
	if aerr.Error() != "Could not fetch DID document: 404" {
		t.Errorf("unexpected message %q", aerr.Error())
	}
}

func TestResolvePDSWeb(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/.well-known/did.json" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"service":[{"id":"#atproto_pds","type":"AtprotoPersonalDataServer","serviceEndpoint":"https://web-pds.example"}]}`))
	}))
	defer srv.Close()

	r := NewResolver(srv.Client(), "")
	r.webScheme = "http"

	host := strings.TrimPrefix(srv.URL, "http://")
	did := "did:web:" + strings.ReplaceAll(host, ":", "%3A")

	got, err := r.ResolvePDS(context.Background(), did)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "https://web-pds.example" {
		t.Errorf("got %q", got)
	}
}

func TestResolvePDSCancelled(t *testing.T) {
	dir := newDirectory(t, map[string]string{"/did:plc:x": `{}`})
	r := NewResolver(dir.Client(), dir.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.ResolvePDS(ctx, "did:plc:x")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if !errors.Is(err, ErrNetwork) {
		t.Errorf("expected ErrNetwork, got %v", err)
	}
}
