// Package widget holds the state machines behind the subscribe button and the
// comments thread. Each widget instance is independent; its operations block
// until they settle and may be called from any goroutine.
//
// Every operation that performs I/O supersedes the previous one: it cancels
// the in-flight context and takes a new generation number. A result is only
// committed while its generation is still current, so a superseded or
// closed-over operation can never overwrite newer state.
package widget

import (
	"context"
	"log/slog"
)

// Event names emitted by the subscribe widget.
const (
	EventSubscribed     = "sequoia-subscribed"
	EventSubscribeError = "sequoia-subscribe-error"
)

// Event is a notification for observers outside the widget.
type Event struct {
	Type     string      `json:"type"`
	Instance string      `json:"instance,omitempty"`
	Detail   EventDetail `json:"detail"`
}

type EventDetail struct {
	PublicationURI string `json:"publicationUri,omitempty"`
	RecordURI      string `json:"recordUri,omitempty"`
	Message        string `json:"message,omitempty"`
}

// Emitter delivers events. Implementations must not block for long; they are
// called synchronously after a state transition.
type Emitter interface {
	Emit(Event)
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(Event)

func (f EmitterFunc) Emit(e Event) { f(e) }

type discardEmitter struct{}

func (discardEmitter) Emit(Event) {}

// Navigator sends the reader to another page. Navigation ends the widget's
// involvement in the current flow.
type Navigator interface {
	Navigate(url string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(url string)

func (f NavigatorFunc) Navigate(url string) { f(url) }

type discardNavigator struct{}

func (discardNavigator) Navigate(string) {}

// ops tracks the single in-flight operation of a widget instance.
// All methods require the owning widget's mutex.
type ops struct {
	gen    uint64
	cancel context.CancelFunc
	closed bool
}

// begin cancels the current operation and starts a new one.
func (o *ops) begin(parent context.Context) (context.Context, uint64) {
	if o.cancel != nil {
		o.cancel()
	}
	ctx, cancel := context.WithCancel(parent)
	o.gen++
	o.cancel = cancel
	return ctx, o.gen
}

// current reports whether gen may still commit state.
func (o *ops) current(gen uint64) bool {
	return !o.closed && gen == o.gen
}

// release frees the context of gen once it has settled.
func (o *ops) release(gen uint64) {
	if gen == o.gen && o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
}

// retire invalidates the current operation without starting another.
func (o *ops) retire() {
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	o.gen++
}

func (o *ops) close() {
	o.retire()
	o.closed = true
}

func loggerOr(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}

// errorMessage is the text shown for a failed operation.
func errorMessage(err error, fallback string) string {
	if err == nil || err.Error() == "" {
		return fallback
	}
	return err.Error()
}
