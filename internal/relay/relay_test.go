package relay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/http/cookiejar"
	"net/url"
	"testing"

	"sequoia-server/internal/atproto"
)

func TestSubscribe(t *testing.T) {
	testCases := []struct {
		name       string
		status     int
		body       string
		want       Result
		wantErr    error
		wantErrMsg string
	}{
		{
			name:   "created",
			status: http.StatusOK,
			body:   `{"recordUri":"at://did:plc:me/site.standard.graph.subscription/1"}`,
			want:   Result{RecordURI: "at://did:plc:me/site.standard.graph.subscription/1"},
		},
		{
			name:   "unauthenticated",
			status: http.StatusUnauthorized,
			body:   `{"authenticated":false,"subscribeUrl":"https://x"}`,
			want:   Result{Unauthenticated: true, SubscribeURL: "https://x"},
		},
		{
			name:       "401 without flag",
			status:     http.StatusUnauthorized,
			body:       `{"error":"session expired"}`,
			wantErr:    atproto.ErrFetchFailed,
			wantErrMsg: "session expired",
		},
		{
			name:       "server error without message",
			status:     http.StatusBadGateway,
			body:       `{}`,
			wantErr:    atproto.ErrFetchFailed,
			wantErrMsg: "HTTP 502",
		},
		{
			name:    "not json",
			status:  http.StatusInternalServerError,
			body:    `<html>oops</html>`,
			wantErr: atproto.ErrUnexpectedFormat,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var gotBody subscribeRequest
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("method = %s", r.Method)
				}
				if ct := r.Header.Get("Content-Type"); ct != "application/json" {
					t.Errorf("content-type = %q", ct)
				}
				json.NewDecoder(r.Body).Decode(&gotBody)
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			c := NewClient(srv.Client())
			got, err := c.Subscribe(context.Background(), srv.URL, "at://pub")

			if gotBody.PublicationURI != "at://pub" {
				t.Errorf("publicationUri = %q", gotBody.PublicationURI)
			}
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				if tc.wantErrMsg != "" && err.Error() != tc.wantErrMsg {
					t.Errorf("message = %q, want %q", err.Error(), tc.wantErrMsg)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestSubscribeSendsCookies(t *testing.T) {
	var gotCookie string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("session"); err == nil {
			gotCookie = c.Value
		}
		w.Write([]byte(`{"recordUri":"at://r"}`))
	}))
	defer srv.Close()

	jar, _ := cookiejar.New(nil)
	u, _ := url.Parse(srv.URL)
	jar.SetCookies(u, []*http.Cookie{{Name: "session", Value: "abc"}})

	httpClient := srv.Client()
	httpClient.Jar = jar

	if _, err := NewClient(httpClient).Subscribe(context.Background(), srv.URL, "at://pub"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotCookie != "abc" {
		t.Errorf("cookie = %q, want abc", gotCookie)
	}
}
