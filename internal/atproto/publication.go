package atproto

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// PublicationProbe reads a site's publication URI from its well-known endpoint.
type PublicationProbe struct {
	http   HTTPDoer
	origin string
}

// NewPublicationProbe returns a probe for the site at origin (scheme://host).
func NewPublicationProbe(client HTTPDoer, origin string) *PublicationProbe {
	if client == nil {
		client = DefaultHTTPClient
	}
	return &PublicationProbe{http: client, origin: strings.TrimRight(origin, "/")}
}

// Origin returns the site origin the probe reads from.
func (p *PublicationProbe) Origin() string {
	return p.origin
}

// PublicationURI fetches {origin}/.well-known/site.standard.publication.
// A JSON body is searched for uri, then atUri, then publication; any other
// body must be the at:// URI itself.
func (p *PublicationProbe) PublicationURI(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.origin+PublicationWellKnown, nil)
	if err != nil {
		return "", &Error{Kind: KindFetchFailed, Msg: fmt.Sprintf("Could not fetch publication URI: %v", err), Err: err}
	}

	resp, err := p.http.Do(req)
	if err != nil {
		return "", networkError(err)
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return "", statusError(KindFetchFailed, fmt.Sprintf("Could not fetch publication URI: %d", resp.StatusCode), resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDescriptorSize))
	if err != nil {
		return "", networkError(err)
	}

	if strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		return publicationFromJSON(body)
	}

	text := strings.TrimSpace(string(body))
	if !strings.HasPrefix(text, "at://") {
		return "", newError(KindUnexpectedFormat, fmt.Sprintf("Unexpected publication URI format: %s", text))
	}
	return text, nil
}

func publicationFromJSON(body []byte) (string, error) {
	var data struct {
		URI         string `json:"uri"`
		AtURI       string `json:"atUri"`
		Publication string `json:"publication"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return "", &Error{Kind: KindUnexpectedFormat, Msg: fmt.Sprintf("Malformed publication response: %v", err), Err: err}
	}
	for _, uri := range []string{data.URI, data.AtURI, data.Publication} {
		if uri != "" {
			return uri, nil
		}
	}
	return "", newError(KindUnexpectedFormat, "Publication response did not contain a URI")
}
