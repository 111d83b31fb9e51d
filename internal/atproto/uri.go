package atproto

import (
	"fmt"
	"regexp"
)

// atURIPattern matches at://authority/collection/key. The key may contain slashes.
var atURIPattern = regexp.MustCompile(`^at://([^/]+)/([^/]+)/(.+)$`)

// ResourceURI addresses one record in a repository.
type ResourceURI struct {
	Authority  string // DID of the repository owner
	Collection string // NSID, e.g. site.standard.document
	RecordKey  string
}

// ParseURI parses an at:// URI. Anything that does not have all three parts
// fails with ErrInvalidURI.
func ParseURI(raw string) (ResourceURI, error) {
	m := atURIPattern.FindStringSubmatch(raw)
	if m == nil {
		return ResourceURI{}, newError(KindInvalidURI, fmt.Sprintf("Invalid AT URI: %s", raw))
	}
	return ResourceURI{Authority: m[1], Collection: m[2], RecordKey: m[3]}, nil
}

func (u ResourceURI) String() string {
	return "at://" + u.Authority + "/" + u.Collection + "/" + u.RecordKey
}

// AppPostURL builds the bsky.app web URL for a post URI.
func AppPostURL(postURI string) (string, error) {
	u, err := ParseURI(postURI)
	if err != nil {
		return "", newError(KindInvalidURI, fmt.Sprintf("Invalid post URI: %s", postURI))
	}
	return AppBaseURL + "/profile/" + u.Authority + "/post/" + u.RecordKey, nil
}
