package main

import (
	"bytes"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"sequoia-server/internal/atproto"
	"sequoia-server/internal/richtext"
	"sequoia-server/internal/thread"
	"sequoia-server/internal/util"
	"sequoia-server/internal/widget"
	"sequoia-server/templates"
)

var widgetTemplates *template.Template

func initTemplates() {
	funcs := template.FuncMap{
		"icon": templates.Icon,
	}
	widgetTemplates = util.MustCompileTemplate("widgets", funcs,
		templates.GetSubscribeTemplate()+templates.GetCommentsTemplates())
}

// subscribeView is the data behind the "subscribe" template.
type subscribeView struct {
	ID          string
	CSRFToken   string
	State       widget.SubscribeStateKind
	Hidden      bool
	Loading     bool
	Subscribed  bool
	ButtonLabel string
	Error       string
}

func newSubscribeView(inst *subscribeInstance, csrfToken string) subscribeView {
	st := inst.State()
	cfg := inst.Config()

	v := subscribeView{
		ID:          inst.ID(),
		CSRFToken:   csrfToken,
		State:       st.Kind,
		Hidden:      inst.Hidden(),
		Loading:     st.Kind == widget.SubscribeLoading,
		Subscribed:  st.Kind == widget.SubscribeSubscribed,
		ButtonLabel: cfg.Label,
	}
	if v.Subscribed {
		v.ButtonLabel = "Subscribed"
	}
	if st.Kind == widget.SubscribeError {
		v.Error = st.Message
	}
	return v
}

// commentsView is the data behind the "comments" template.
type commentsView struct {
	ID        string
	State     widget.CommentsStateKind
	Hidden    bool
	Message   string
	PostURL   string
	Title     string
	ReloadURL string
	Threads   [][]commentView
}

type commentView struct {
	DisplayName string
	Handle      string
	ProfileURL  string
	PostURL     string
	Avatar      string
	Initials    string
	CreatedAt   string
	TimeAgo     string
	Text        template.HTML
	ThreadLine  bool
}

func newCommentsView(c *widget.Comments, now time.Time) commentsView {
	st := c.State()
	v := commentsView{
		ID:        c.ID(),
		State:     st.Kind,
		Hidden:    c.Hidden(),
		Message:   st.Message,
		PostURL:   st.PostURL,
		Title:     "Comments",
		ReloadURL: util.BuildURL("/widget/comments", map[string]string{"instance": c.ID()}),
	}
	if st.Kind != widget.CommentsLoaded {
		return v
	}

	replies := st.Thread.PostReplies()
	count := thread.CountComments(replies)
	v.Title = strconv.Itoa(count) + " Comment"
	if count != 1 {
		v.Title += "s"
	}

	for _, reply := range replies {
		entries := thread.Flatten(reply)
		comments := make([]commentView, 0, len(entries))
		for _, e := range entries {
			comments = append(comments, newCommentView(e, now))
		}
		v.Threads = append(v.Threads, comments)
	}
	return v
}

func newCommentView(e thread.Entry, now time.Time) commentView {
	p := e.Post
	name := p.Author.Name()
	created := p.Record.CreatedTime()

	cv := commentView{
		DisplayName: name,
		Handle:      p.Author.Handle,
		ProfileURL:  richtext.ProfileBaseURL + p.Author.DID,
		Avatar:      p.Author.Avatar,
		Initials:    util.Initials(name),
		TimeAgo:     util.RelativeTime(created, now),
		// Render escapes all text and only emits vetted anchors.
		Text:       template.HTML(richtext.Render(p.Record.Text, p.Record.Facets)),
		ThreadLine: e.HasMoreReplies,
	}
	if !created.IsZero() {
		cv.CreatedAt = created.UTC().Format(time.RFC3339)
	}
	if u, err := atproto.AppPostURL(p.URI); err == nil {
		cv.PostURL = u
	}
	return cv
}

// renderFragment executes a widget template into a buffer first so a
// template error never produces a half-written response.
func renderFragment(w http.ResponseWriter, r *http.Request, name string, data any) {
	var buf bytes.Buffer
	if err := widgetTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		LoggerFromContext(r.Context()).Error("failed to render widget", "template", name, "error", err)
		util.RespondInternalError(w, "Failed to render widget")
		return
	}
	util.SetHTMLHeaders(w)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Debug("client went away during render", "error", err)
	}
}
