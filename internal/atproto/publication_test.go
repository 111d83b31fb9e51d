package atproto

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPublicationURI(t *testing.T) {
	testCases := []struct {
		name        string
		status      int
		contentType string
		body        string
		want        string
		wantErr     error
	}{
		{name: "plain text", status: 200, contentType: "text/plain", body: "at://did:plc:abc/site.standard.publication/self\n", want: "at://did:plc:abc/site.standard.publication/self"},
		{name: "plain text bad prefix", status: 200, contentType: "text/plain", body: "https://example.com", wantErr: ErrUnexpectedFormat},
		{name: "json uri", status: 200, contentType: "application/json", body: `{"uri":"at://one","atUri":"at://two","publication":"at://three"}`, want: "at://one"},
		{name: "json atUri", status: 200, contentType: "application/json; charset=utf-8", body: `{"atUri":"at://two","publication":"at://three"}`, want: "at://two"},
		{name: "json publication", status: 200, contentType: "application/json", body: `{"publication":"at://three"}`, want: "at://three"},
		{name: "json without uri", status: 200, contentType: "application/json", body: `{"name":"x"}`, wantErr: ErrUnexpectedFormat},
		{name: "not found", status: 404, contentType: "text/plain", body: "nope", wantErr: ErrFetchFailed},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != PublicationWellKnown {
					http.NotFound(w, r)
					return
				}
				w.Header().Set("Content-Type", tc.contentType)
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			p := NewPublicationProbe(srv.Client(), srv.URL+"/")
			got, err := p.PublicationURI(context.Background())
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
