package widget

import (
	"context"
	"log/slog"
	"sync"

	"sequoia-server/internal/relay"
)

type SubscribeStateKind string

const (
	SubscribeIdle          SubscribeStateKind = "idle"
	SubscribeLoading       SubscribeStateKind = "loading"
	SubscribeSubscribed    SubscribeStateKind = "subscribed"
	SubscribeError         SubscribeStateKind = "error"
	SubscribeNoPublication SubscribeStateKind = "no-publication"
)

// SubscribeState is the current state of a subscribe button. Only the fields
// belonging to Kind are set.
type SubscribeState struct {
	Kind SubscribeStateKind

	// subscribed
	PublicationURI string
	RecordURI      string

	// error
	Message string
}

const DefaultSubscribeLabel = "Subscribe on Bluesky"

type SubscribeConfig struct {
	PublicationURI string // overrides the well-known lookup
	CallbackURI    string // relay endpoint
	Label          string
	Hide           bool // hide="auto": render nothing when there is no publication
}

func (c SubscribeConfig) withDefaults() SubscribeConfig {
	if c.CallbackURI == "" {
		c.CallbackURI = relay.DefaultCallbackURI
	}
	if c.Label == "" {
		c.Label = DefaultSubscribeLabel
	}
	return c
}

// PublicationSource finds the publication URI of the embedding site.
type PublicationSource interface {
	PublicationURI(ctx context.Context) (string, error)
}

// Relay creates subscriptions.
type Relay interface {
	Subscribe(ctx context.Context, callbackURI, publicationURI string) (relay.Result, error)
}

type SubscribeDeps struct {
	Publications PublicationSource
	Relay        Relay
	Navigator    Navigator
	Emitter      Emitter
	Logger       *slog.Logger
}

// Subscribe is the subscribe button state machine:
//
//	idle -> loading -> subscribed | error
//	idle -> no-publication (availability probe failed)
//
// error, subscribed and no-publication return to idle on Configure.
type Subscribe struct {
	id   string
	deps SubscribeDeps
	log  *slog.Logger

	mu    sync.Mutex
	cfg   SubscribeConfig
	state SubscribeState
	ops   ops
}

func NewSubscribe(id string, cfg SubscribeConfig, deps SubscribeDeps) *Subscribe {
	if deps.Navigator == nil {
		deps.Navigator = discardNavigator{}
	}
	if deps.Emitter == nil {
		deps.Emitter = discardEmitter{}
	}
	return &Subscribe{
		id:    id,
		deps:  deps,
		log:   loggerOr(deps.Logger).With("widget", "subscribe", "instance", id),
		cfg:   cfg.withDefaults(),
		state: SubscribeState{Kind: SubscribeIdle},
	}
}

func (s *Subscribe) ID() string { return s.id }

// State returns a copy of the current state.
func (s *Subscribe) State() SubscribeState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Subscribe) Config() SubscribeConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Hidden reports whether the widget should render nothing.
func (s *Subscribe) Hidden() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Kind == SubscribeNoPublication && s.cfg.Hide
}

// Mount probes the well-known publication endpoint when no publication URI is
// configured. A failed probe moves the widget to no-publication; the error
// itself is only logged.
func (s *Subscribe) Mount(ctx context.Context) {
	s.mu.Lock()
	if s.ops.closed || s.cfg.PublicationURI != "" {
		s.mu.Unlock()
		return
	}
	ctx, gen := s.ops.begin(ctx)
	s.mu.Unlock()

	_, err := s.deps.Publications.PublicationURI(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.ops.release(gen)

	if err == nil {
		return
	}
	if !s.ops.current(gen) || s.state.Kind != SubscribeIdle {
		return
	}
	s.log.Debug("publication probe failed", "error", err)
	s.state = SubscribeState{Kind: SubscribeNoPublication}
}

// Activate runs the subscribe flow. It is a no-op while loading or once
// subscribed.
func (s *Subscribe) Activate(ctx context.Context) {
	s.mu.Lock()
	if s.ops.closed || s.state.Kind == SubscribeLoading || s.state.Kind == SubscribeSubscribed {
		s.mu.Unlock()
		return
	}
	cfg := s.cfg
	ctx, gen := s.ops.begin(ctx)
	s.state = SubscribeState{Kind: SubscribeLoading}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.ops.release(gen)
		s.mu.Unlock()
	}()

	publicationURI := cfg.PublicationURI
	if publicationURI == "" {
		uri, err := s.deps.Publications.PublicationURI(ctx)
		if err != nil {
			s.fail(gen, err)
			return
		}
		publicationURI = uri
	}

	res, err := s.deps.Relay.Subscribe(ctx, cfg.CallbackURI, publicationURI)
	if err != nil {
		s.fail(gen, err)
		return
	}

	if res.Unauthenticated {
		s.mu.Lock()
		if !s.ops.current(gen) {
			s.mu.Unlock()
			return
		}
		// Navigation supersedes the flow; nothing from it may commit later.
		s.ops.retire()
		s.mu.Unlock()

		s.log.Info("subscribe requires authentication, redirecting", "url", res.SubscribeURL)
		s.deps.Navigator.Navigate(res.SubscribeURL)
		return
	}

	s.mu.Lock()
	if !s.ops.current(gen) || s.state.Kind != SubscribeLoading {
		s.mu.Unlock()
		return
	}
	s.state = SubscribeState{Kind: SubscribeSubscribed, PublicationURI: publicationURI, RecordURI: res.RecordURI}
	s.mu.Unlock()

	s.log.Info("subscribed", "publication", publicationURI, "record", res.RecordURI)
	s.deps.Emitter.Emit(Event{
		Type:     EventSubscribed,
		Instance: s.id,
		Detail:   EventDetail{PublicationURI: publicationURI, RecordURI: res.RecordURI},
	})
}

func (s *Subscribe) fail(gen uint64, err error) {
	s.mu.Lock()
	if !s.ops.current(gen) || s.state.Kind != SubscribeLoading {
		s.mu.Unlock()
		return
	}
	msg := errorMessage(err, "Failed to subscribe")
	s.state = SubscribeState{Kind: SubscribeError, Message: msg}
	s.mu.Unlock()

	s.log.Warn("subscribe failed", "error", err)
	s.deps.Emitter.Emit(Event{
		Type:     EventSubscribeError,
		Instance: s.id,
		Detail:   EventDetail{Message: msg},
	})
}

// Configure replaces the configuration. A settled error, subscribed or
// no-publication state returns to idle.
func (s *Subscribe) Configure(cfg SubscribeConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg.withDefaults()
	switch s.state.Kind {
	case SubscribeError, SubscribeSubscribed, SubscribeNoPublication:
		s.state = SubscribeState{Kind: SubscribeIdle}
	}
}

// Close cancels any in-flight operation. The widget ignores all further calls.
func (s *Subscribe) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops.close()
}
