package atproto

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	methodPLC = "did:plc:"
	methodWeb = "did:web:"

	// maxDescriptorSize bounds DID documents and well-known responses.
	maxDescriptorSize = 1 << 20
)

// HostResolver resolves a DID to the URL of the PDS hosting its repository.
type HostResolver interface {
	ResolvePDS(ctx context.Context, did string) (string, error)
}

// HTTPDoer is the subset of *http.Client used by this package.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// DefaultHTTPClient is used when no client is supplied.
var DefaultHTTPClient = &http.Client{
	Timeout: 10 * time.Second,
	CheckRedirect: func(req *http.Request, via []*http.Request) error {
		if len(via) >= 3 {
			return fmt.Errorf("too many redirects")
		}
		return nil
	},
}

// Resolver resolves did:plc and did:web identifiers. It makes one request per
// call and caches nothing.
type Resolver struct {
	http   HTTPDoer
	plcURL string
	// webScheme is "https" outside of tests.
	webScheme string
}

// NewResolver returns a Resolver using plcURL as the did:plc directory.
// An empty plcURL selects DefaultPLCURL; a nil client selects DefaultHTTPClient.
func NewResolver(client HTTPDoer, plcURL string) *Resolver {
	if client == nil {
		client = DefaultHTTPClient
	}
	if plcURL == "" {
		plcURL = DefaultPLCURL
	}
	return &Resolver{
		http:      client,
		plcURL:    strings.TrimRight(plcURL, "/"),
		webScheme: "https",
	}
}

// ResolvePDS returns the PDS endpoint listed in the DID document of did.
func (r *Resolver) ResolvePDS(ctx context.Context, did string) (string, error) {
	var docURL string
	switch {
	case strings.HasPrefix(did, methodPLC):
		docURL = r.plcURL + "/" + did
	case strings.HasPrefix(did, methodWeb):
		domain := webDomain(did)
		if domain == "" {
			return "", newError(KindUnsupportedMethod, fmt.Sprintf("Unsupported DID method: %s", did))
		}
		docURL = r.webScheme + "://" + domain + "/.well-known/did.json"
	default:
		return "", newError(KindUnsupportedMethod, fmt.Sprintf("Unsupported DID method: %s", did))
	}

	doc, err := r.fetchDIDDocument(ctx, docURL)
	if err != nil {
		return "", err
	}

	endpoint := doc.PDSEndpoint()
	if endpoint == "" {
		return "", newError(KindNoHostFound, "Could not find PDS URL for user")
	}

	slog.Debug("resolved pds", "did", did, "pds", endpoint)
	return endpoint, nil
}

func (r *Resolver) fetchDIDDocument(ctx context.Context, docURL string) (*DIDDocument, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, docURL, nil)
	if err != nil {
		return nil, &Error{Kind: KindResolutionFailed, Msg: fmt.Sprintf("Could not fetch DID document: %v", err), Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.http.Do(req)
	if err != nil {
		return nil, networkError(err)
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return nil, statusError(KindResolutionFailed, fmt.Sprintf("Could not fetch DID document: %d", resp.StatusCode), resp.StatusCode)
	}

	var doc DIDDocument
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxDescriptorSize)).Decode(&doc); err != nil {
		return nil, &Error{Kind: KindResolutionFailed, Msg: fmt.Sprintf("Could not parse DID document: %v", err), Err: err}
	}
	return &doc, nil
}

// PDSEndpoint returns the endpoint of the first atproto PDS service entry.
func (d *DIDDocument) PDSEndpoint() string {
	for _, s := range d.Service {
		if s.ID == ServiceIDPDS || s.Type == ServiceTypePDS {
			return s.ServiceEndpoint
		}
	}
	return ""
}

// webDomain extracts the host of a did:web identifier, decoding a
// percent-encoded port separator.
func webDomain(did string) string {
	domain := strings.TrimPrefix(did, methodWeb)
	domain = strings.ReplaceAll(domain, "%3A", ":")
	domain = strings.ReplaceAll(domain, "%3a", ":")
	return domain
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
