package main

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"sequoia-server/internal/widget"
)

// widgetInstance is what the registry stores: either widget type.
type widgetInstance interface {
	ID() string
	Close()
}

// subscribeInstance pairs a subscribe widget with the navigation it asked
// for, which the handler turns into a redirect.
type subscribeInstance struct {
	*widget.Subscribe
	nav *navigationSlot
}

// navigationSlot is the widget's Navigator on the server: it records the
// target instead of moving a browser.
type navigationSlot struct {
	mu  sync.Mutex
	url string
}

func (n *navigationSlot) Navigate(url string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.url = url
}

// take returns and clears the pending navigation.
func (n *navigationSlot) take() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	url := n.url
	n.url = ""
	return url
}

// instanceRegistry keeps widget instances between requests. Instances idle
// longer than the TTL are evicted and closed.
type instanceRegistry struct {
	store *gocache.Cache
}

func newInstanceRegistry(ttl, cleanup time.Duration) *instanceRegistry {
	store := gocache.New(ttl, cleanup)
	store.OnEvicted(func(id string, v any) {
		if w, ok := v.(widgetInstance); ok {
			w.Close()
		}
		widgetInstancesActive.Add(-1)
		slog.Debug("widget instance closed", "instance", id)
	})
	return &instanceRegistry{store: store}
}

func newInstanceID() string {
	return uuid.NewString()
}

func (r *instanceRegistry) add(w widgetInstance) {
	r.store.SetDefault(w.ID(), w)
	widgetInstancesActive.Add(1)
}

func (r *instanceRegistry) get(id string) (widgetInstance, bool) {
	v, ok := r.store.Get(id)
	if !ok {
		return nil, false
	}
	w := v.(widgetInstance)
	// Replace resets the idle timer without firing the eviction callback.
	r.store.Replace(id, w, gocache.DefaultExpiration)
	return w, true
}

func (r *instanceRegistry) subscribe(id string) (*subscribeInstance, bool) {
	w, ok := r.get(id)
	if !ok {
		return nil, false
	}
	s, ok := w.(*subscribeInstance)
	return s, ok
}

func (r *instanceRegistry) comments(id string) (*widget.Comments, bool) {
	w, ok := r.get(id)
	if !ok {
		return nil, false
	}
	c, ok := w.(*widget.Comments)
	return c, ok
}

// remove closes and forgets an instance.
func (r *instanceRegistry) remove(id string) {
	r.store.Delete(id)
}

func (r *instanceRegistry) count() int {
	return r.store.ItemCount()
}

// closeAll closes every instance; used on shutdown.
func (r *instanceRegistry) closeAll() {
	for id := range r.store.Items() {
		r.store.Delete(id)
	}
}
