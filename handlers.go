package main

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"sequoia-server/internal/atproto"
	"sequoia-server/internal/util"
	"sequoia-server/internal/widget"
	"sequoia-server/templates"
)

const csrfActionSubscribe = "subscribe"

func healthHandler(w http.ResponseWriter, r *http.Request) {
	util.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func stylesheetHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write([]byte(templates.GetStylesheet()))
}

// isHelmRequest reports whether the request came from a HelmJS swap rather
// than a plain form submission.
func isHelmRequest(r *http.Request) bool {
	return r.Header.Get("H-Request") == "true"
}

func (s *server) widgetContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.cfg.WidgetTimeout.Duration)
}

// =============================================================================
// Subscribe
// =============================================================================

func (s *server) subscribeGetHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if id := q.Get("instance"); id != "" {
		inst, ok := s.instances.subscribe(id)
		if !ok {
			util.RespondNotFound(w, "Unknown widget instance")
			return
		}
		s.renderSubscribe(w, r, inst)
		return
	}

	cfg, err := s.subscribeConfig(q.Get)
	if err != nil {
		util.RespondBadRequest(w, err.Error())
		return
	}

	inst, err := s.newSubscribeInstance(cfg, requestOrigin(r, q.Get("origin")))
	if err != nil {
		LoggerFromContext(r.Context()).Error("failed to create subscribe widget", "error", err)
		util.RespondInternalError(w, "Could not create the subscribe button")
		return
	}
	s.instances.add(inst)

	ctx, cancel := s.widgetContext(r)
	defer cancel()
	inst.Mount(ctx)

	s.renderSubscribe(w, r, inst)
}

func (s *server) subscribePostHandler(w http.ResponseWriter, r *http.Request) {
	inst, ok := s.authorizedSubscribe(w, r)
	if !ok {
		return
	}

	subscribeActivationsTotal.Add(1)
	ctx, cancel := s.widgetContext(r)
	defer cancel()
	inst.Activate(ctx)

	if target := inst.nav.take(); target != "" {
		// The reader finishes on the relay; this instance is done.
		s.instances.remove(inst.ID())
		LoggerFromContext(r.Context()).Info("redirecting reader to relay", "instance", inst.ID())
		if isHelmRequest(r) {
			w.Header().Set("H-Redirect", target)
			util.SetHTMLHeaders(w)
			util.WriteHTML(w, `<a class="sequoia-subscribe-button" href="`+html.EscapeString(target)+`" target="_top">Continue on Sequoia</a>`)
			return
		}
		http.Redirect(w, r, target, http.StatusSeeOther)
		return
	}

	s.renderSubscribe(w, r, inst)
}

func (s *server) subscribeConfigureHandler(w http.ResponseWriter, r *http.Request) {
	inst, ok := s.authorizedSubscribe(w, r)
	if !ok {
		return
	}

	cfg, err := s.subscribeConfig(r.PostFormValue)
	if err != nil {
		util.RespondBadRequest(w, err.Error())
		return
	}
	inst.Configure(cfg)

	s.renderSubscribe(w, r, inst)
}

// authorizedSubscribe checks the form token and looks up the instance. It
// writes the error response itself.
func (s *server) authorizedSubscribe(w http.ResponseWriter, r *http.Request) (*subscribeInstance, bool) {
	if err := r.ParseForm(); err != nil {
		util.RespondBadRequest(w, "Invalid form data")
		return nil, false
	}

	id := r.PostFormValue("instance")
	if !s.csrf.Valid(id, csrfActionSubscribe, r.PostFormValue("csrf_token")) {
		util.RespondForbidden(w, "Invalid or expired form token, please reload the page")
		return nil, false
	}

	inst, ok := s.instances.subscribe(id)
	if !ok {
		util.RespondNotFound(w, "This button has expired, please reload the page")
		return nil, false
	}
	return inst, true
}

func (s *server) subscribeConfig(get func(string) string) (widget.SubscribeConfig, error) {
	callback := strings.TrimSpace(get("callback-uri"))
	if callback == "" {
		callback = s.cfg.CallbackURI
	} else if err := s.checkRemoteURL(callback); err != nil {
		return widget.SubscribeConfig{}, fmt.Errorf("invalid callback-uri: %w", err)
	}

	return widget.SubscribeConfig{
		PublicationURI: strings.TrimSpace(get("publication-uri")),
		CallbackURI:    callback,
		Label:          strings.TrimSpace(get("label")),
		Hide:           get("hide") == "auto",
	}, nil
}

func (s *server) newSubscribeInstance(cfg widget.SubscribeConfig, origin string) (*subscribeInstance, error) {
	rc, err := s.newRelayClient()
	if err != nil {
		return nil, err
	}
	nav := &navigationSlot{}
	return &subscribeInstance{
		nav: nav,
		Subscribe: widget.NewSubscribe(newInstanceID(), cfg, widget.SubscribeDeps{
			Publications: s.publicationSource(origin),
			Relay:        rc,
			Navigator:    nav,
			Emitter:      s.events,
			Logger:       slog.Default(),
		}),
	}, nil
}

func (s *server) renderSubscribe(w http.ResponseWriter, r *http.Request, inst *subscribeInstance) {
	token := s.csrf.Token(inst.ID(), csrfActionSubscribe)
	renderFragment(w, r, "subscribe", newSubscribeView(inst, token))
}

// publicationSource resolves the publication of origin, or fails every
// lookup when the origin may not be contacted.
func (s *server) publicationSource(origin string) widget.PublicationSource {
	if err := s.checkOrigin(origin); err != nil {
		return unavailablePublication{err: err}
	}
	return s.pubs.forOrigin(origin)
}

type unavailablePublication struct {
	err error
}

func (u unavailablePublication) PublicationURI(ctx context.Context) (string, error) {
	return "", u.err
}

// =============================================================================
// Comments
// =============================================================================

func (s *server) commentsGetHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if id := q.Get("instance"); id != "" {
		c, ok := s.instances.comments(id)
		if !ok {
			util.RespondNotFound(w, "Unknown widget instance")
			return
		}
		s.renderComments(w, r, c)
		return
	}

	cfg := commentsConfig(q.Get)

	page := q.Get("page")
	if page == "" {
		page = r.Referer()
	}
	if cfg.DocumentURI == "" && page != "" {
		if err := s.checkRemoteURL(page); err != nil || !s.cfg.OriginAllowed(requestOrigin(r, page)) {
			LoggerFromContext(r.Context()).Debug("ignoring page for document lookup", "page", page)
			page = ""
		}
	}
	if cfg.DocumentURI != "" {
		page = ""
	}

	c := widget.NewComments(newInstanceID(), cfg, s.fetcher, s.pageProvider(page), slog.Default())
	s.instances.add(c)

	s.loadComments(r, c, c.Mount)
	s.renderComments(w, r, c)
}

func (s *server) commentsConfigureHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		util.RespondBadRequest(w, "Invalid form data")
		return
	}

	c, ok := s.instances.comments(r.PostFormValue("instance"))
	if !ok {
		util.RespondNotFound(w, "Unknown widget instance")
		return
	}

	cfg := commentsConfig(r.PostFormValue)
	s.loadComments(r, c, func(ctx context.Context) { c.Configure(ctx, cfg) })
	s.renderComments(w, r, c)
}

func commentsConfig(get func(string) string) widget.CommentsConfig {
	return widget.CommentsConfig{
		DocumentURI: strings.TrimSpace(get("document-uri")),
		Depth:       util.ParsePositiveInt(get("depth"), atproto.DefaultThreadDepth),
		Hide:        get("hide") == "auto",
	}
}

// loadComments runs op under the widget timeout and counts the outcome.
func (s *server) loadComments(r *http.Request, c *widget.Comments, op func(context.Context)) {
	ctx, cancel := s.widgetContext(r)
	defer cancel()

	widgetLoadsTotal.Add(1)
	op(ctx)

	if st := c.State(); st.Kind == widget.CommentsError {
		widgetLoadFailuresTotal.Add(1)
		LoggerFromContext(r.Context()).Warn("comments failed to load", "instance", c.ID(), "error", st.Message)
	}
}

func (s *server) renderComments(w http.ResponseWriter, r *http.Request, c *widget.Comments) {
	renderFragment(w, r, "comments", newCommentsView(c, s.now()))
}

// =============================================================================
// Origin and URL checks
// =============================================================================

// requestOrigin picks the embedding site's origin: the explicit parameter,
// then the Origin header, then the Referer.
func requestOrigin(r *http.Request, param string) string {
	for _, raw := range []string{param, r.Header.Get("Origin"), r.Referer()} {
		if raw == "" || raw == "null" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			continue
		}
		return u.Scheme + "://" + u.Host
	}
	return ""
}

var errNoOrigin = errors.New("Could not determine the site origin")

func (s *server) checkOrigin(origin string) error {
	if origin == "" {
		return errNoOrigin
	}
	if err := s.checkRemoteURL(origin); err != nil {
		return err
	}
	if !s.cfg.OriginAllowed(origin) {
		return fmt.Errorf("Origin %s is not allowed", origin)
	}
	return nil
}

// checkRemoteURL rejects URLs the server must not fetch on a reader's behalf.
func (s *server) checkRemoteURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return fmt.Errorf("%q is not an absolute URL", raw)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if !s.allowPrivateHosts && util.IsPrivateHost(u.Hostname()) {
		return fmt.Errorf("host %s is not reachable", u.Hostname())
	}
	return nil
}
