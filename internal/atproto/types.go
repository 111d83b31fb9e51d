package atproto

import (
	"encoding/json"
	"time"
)

// Lexicon identifiers this package understands.
const (
	TypeDocument         = "site.standard.document"
	TypePost             = "app.bsky.feed.post"
	TypeThreadViewPost   = "app.bsky.feed.defs#threadViewPost"
	TypeNotFoundPost     = "app.bsky.feed.defs#notFoundPost"
	TypeBlockedPost      = "app.bsky.feed.defs#blockedPost"
	FeatureLink          = "app.bsky.richtext.facet#link"
	FeatureMention       = "app.bsky.richtext.facet#mention"
	FeatureTag           = "app.bsky.richtext.facet#tag"
	ServiceIDPDS         = "#atproto_pds"
	ServiceTypePDS       = "AtprotoPersonalDataServer"
	AppBaseURL           = "https://bsky.app"
	DefaultPLCURL        = "https://plc.directory"
	DefaultAppViewURL    = "https://public.api.bsky.app"
	DefaultThreadDepth   = 6
	PublicationWellKnown = "/.well-known/site.standard.publication"
)

// Record is the raw value of a repository record.
type Record json.RawMessage

// Type returns the record's $type, or "" if it has none or is not an object.
func (r Record) Type() string {
	var head struct {
		Type string `json:"$type"`
	}
	if err := json.Unmarshal(r, &head); err != nil {
		return ""
	}
	return head.Type
}

// Decode unmarshals the record into v.
func (r Record) Decode(v any) error {
	return json.Unmarshal(r, v)
}

// StrongRef points at a specific version of a record.
type StrongRef struct {
	URI string `json:"uri"`
	CID string `json:"cid"`
}

// Document is a site.standard.document record.
type Document struct {
	Type         string     `json:"$type"`
	Title        string     `json:"title"`
	Site         string     `json:"site"`
	Path         string     `json:"path"`
	TextContent  string     `json:"textContent"`
	PublishedAt  string     `json:"publishedAt"`
	CanonicalURL string     `json:"canonicalUrl,omitempty"`
	Description  string     `json:"description,omitempty"`
	Tags         []string   `json:"tags,omitempty"`
	BskyPostRef  *StrongRef `json:"bskyPostRef,omitempty"`
}

// DIDDocument is the subset of a DID document needed to find the PDS.
type DIDDocument struct {
	ID      string       `json:"id"`
	Service []DIDService `json:"service"`
}

type DIDService struct {
	ID              string `json:"id"`
	Type            string `json:"type"`
	ServiceEndpoint string `json:"serviceEndpoint"`
}

// ByteSlice is a facet's byte range into the UTF-8 text.
type ByteSlice struct {
	ByteStart int `json:"byteStart"`
	ByteEnd   int `json:"byteEnd"`
}

// Feature is one annotation of a facet. Which of URI, DID and Tag is set
// depends on Type.
type Feature struct {
	Type string `json:"$type"`
	URI  string `json:"uri,omitempty"`
	DID  string `json:"did,omitempty"`
	Tag  string `json:"tag,omitempty"`
}

type Facet struct {
	Index    ByteSlice `json:"index"`
	Features []Feature `json:"features"`
}

// ProfileViewBasic is the author block of a post view.
type ProfileViewBasic struct {
	DID         string `json:"did"`
	Handle      string `json:"handle"`
	DisplayName string `json:"displayName,omitempty"`
	Avatar      string `json:"avatar,omitempty"`
}

// Name returns the display name, falling back to the handle.
func (p ProfileViewBasic) Name() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.Handle
}

// PostRecord is the app.bsky.feed.post record embedded in a post view.
type PostRecord struct {
	Type      string  `json:"$type"`
	Text      string  `json:"text"`
	Facets    []Facet `json:"facets,omitempty"`
	CreatedAt string  `json:"createdAt"`
}

// CreatedTime parses CreatedAt; the zero time is returned if it is malformed.
func (r PostRecord) CreatedTime() time.Time {
	t, err := time.Parse(time.RFC3339Nano, r.CreatedAt)
	if err != nil {
		return time.Time{}
	}
	return t
}

type PostView struct {
	URI         string           `json:"uri"`
	CID         string           `json:"cid"`
	Author      ProfileViewBasic `json:"author"`
	Record      PostRecord       `json:"record"`
	ReplyCount  int              `json:"replyCount,omitempty"`
	RepostCount int              `json:"repostCount,omitempty"`
	LikeCount   int              `json:"likeCount,omitempty"`
	IndexedAt   string           `json:"indexedAt,omitempty"`
}

// ThreadNode is one node of a getPostThread response. It is a union keyed by
// Type: only TypeThreadViewPost nodes carry a Post; not-found, blocked and
// unknown variants must be skipped by every traversal.
type ThreadNode struct {
	Type    string        `json:"$type"`
	Post    *PostView     `json:"post,omitempty"`
	Replies []*ThreadNode `json:"replies,omitempty"`

	// Set on notFound/blocked placeholders.
	URI      string `json:"uri,omitempty"`
	NotFound bool   `json:"notFound,omitempty"`
	Blocked  bool   `json:"blocked,omitempty"`
}

// IsPost reports whether n is the post variant.
func (n *ThreadNode) IsPost() bool {
	return n != nil && n.Type == TypeThreadViewPost && n.Post != nil
}

// PostReplies returns the replies of n that are posts, in order.
func (n *ThreadNode) PostReplies() []*ThreadNode {
	if n == nil {
		return nil
	}
	var out []*ThreadNode
	for _, r := range n.Replies {
		if r.IsPost() {
			out = append(out, r)
		}
	}
	return out
}
