package widget

import (
	"context"
	"log/slog"
	"sync"

	"sequoia-server/internal/atproto"
	"sequoia-server/internal/pagemeta"
)

type CommentsStateKind string

const (
	CommentsLoading           CommentsStateKind = "loading"
	CommentsNoDocument        CommentsStateKind = "no-document"
	CommentsNoCommentsEnabled CommentsStateKind = "no-comments-enabled"
	CommentsEmpty             CommentsStateKind = "empty"
	CommentsError             CommentsStateKind = "error"
	CommentsLoaded            CommentsStateKind = "loaded"
)

// CommentsState is the current state of a comments widget. PostURL is set for
// empty and loaded, Thread for loaded, Message for error.
type CommentsState struct {
	Kind    CommentsStateKind
	Thread  *atproto.ThreadNode
	PostURL string
	Message string
}

type CommentsConfig struct {
	DocumentURI string // overrides the page's document link
	Depth       int
	Hide        bool // hide="auto": render nothing when the page has no document
}

func (c CommentsConfig) withDefaults() CommentsConfig {
	if c.Depth <= 0 {
		c.Depth = atproto.DefaultThreadDepth
	}
	return c
}

// ThreadSource reads documents and their discussion threads.
type ThreadSource interface {
	GetDocument(ctx context.Context, uri string) (*atproto.Document, error)
	GetPostThread(ctx context.Context, postURI string, depth int) (*atproto.ThreadNode, error)
}

// Comments is the comments thread state machine. Every Load starts from
// loading and settles in exactly one of the other states.
type Comments struct {
	id     string
	source ThreadSource
	page   pagemeta.Provider
	log    *slog.Logger

	mu      sync.Mutex
	cfg     CommentsConfig
	state   CommentsState
	mounted bool
	ops     ops
}

func NewComments(id string, cfg CommentsConfig, source ThreadSource, page pagemeta.Provider, logger *slog.Logger) *Comments {
	if page == nil {
		page = pagemeta.None
	}
	return &Comments{
		id:     id,
		source: source,
		page:   page,
		log:    loggerOr(logger).With("widget", "comments", "instance", id),
		cfg:    cfg.withDefaults(),
		state:  CommentsState{Kind: CommentsLoading},
	}
}

func (c *Comments) ID() string { return c.id }

func (c *Comments) State() CommentsState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Comments) Config() CommentsConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// Hidden reports whether the widget should render nothing.
func (c *Comments) Hidden() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Kind == CommentsNoDocument && c.cfg.Hide
}

// Mount attaches the widget and runs the first load.
func (c *Comments) Mount(ctx context.Context) {
	c.mu.Lock()
	c.mounted = true
	c.mu.Unlock()
	c.Load(ctx)
}

// Configure replaces the configuration and reloads when mounted.
func (c *Comments) Configure(ctx context.Context, cfg CommentsConfig) {
	c.mu.Lock()
	c.cfg = cfg.withDefaults()
	mounted := c.mounted
	c.mu.Unlock()
	if mounted {
		c.Load(ctx)
	}
}

// Load resolves the document, fetches its thread and commits the outcome.
// A newer Load or Close discards the result of this one.
func (c *Comments) Load(ctx context.Context) {
	c.mu.Lock()
	if c.ops.closed {
		c.mu.Unlock()
		return
	}
	cfg := c.cfg
	ctx, gen := c.ops.begin(ctx)
	c.state = CommentsState{Kind: CommentsLoading}
	c.mu.Unlock()

	state := c.run(ctx, cfg)

	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.ops.release(gen)
	if !c.ops.current(gen) {
		c.log.Debug("discarding superseded load", "state", state.Kind)
		return
	}
	c.state = state
}

func (c *Comments) run(ctx context.Context, cfg CommentsConfig) CommentsState {
	documentURI := cfg.DocumentURI
	if documentURI == "" {
		documentURI = c.page.DocumentLink(ctx)
	}
	if documentURI == "" {
		return CommentsState{Kind: CommentsNoDocument}
	}

	doc, err := c.source.GetDocument(ctx, documentURI)
	if err != nil {
		return c.failed(ctx, err, "document", documentURI)
	}
	if doc.BskyPostRef == nil || doc.BskyPostRef.URI == "" {
		return CommentsState{Kind: CommentsNoCommentsEnabled}
	}
	postURI := doc.BskyPostRef.URI

	postURL, err := atproto.AppPostURL(postURI)
	if err != nil {
		return c.failed(ctx, err, "post", postURI)
	}

	root, err := c.source.GetPostThread(ctx, postURI, cfg.Depth)
	if err != nil {
		return c.failed(ctx, err, "post", postURI)
	}
	if len(root.PostReplies()) == 0 {
		return CommentsState{Kind: CommentsEmpty, PostURL: postURL}
	}
	return CommentsState{Kind: CommentsLoaded, Thread: root, PostURL: postURL}
}

func (c *Comments) failed(ctx context.Context, err error, what, uri string) CommentsState {
	if ctx.Err() != nil {
		// Superseded or closed; the result is about to be discarded.
		c.log.Debug("comments load cancelled", what, uri, "error", err)
	} else {
		c.log.Warn("failed to load comments", what, uri, "error", err)
	}
	return CommentsState{Kind: CommentsError, Message: errorMessage(err, "Failed to load comments")}
}

// Close cancels any in-flight load. The widget ignores all further calls.
func (c *Comments) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ops.close()
}
