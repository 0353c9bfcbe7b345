// Package events carries "analysis completed" notifications from the code that
// submits analyses to the code that displays history.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/ppiankov/newsguard/internal/model"
)

// AnalysisCompleted is published once per successful analysis,
// after the result has been returned by the client
type AnalysisCompleted struct {
	Source  string // Opaque id of the publisher
	UserID  string
	Variant model.Variant
	Result  model.PredictionResult
	At      time.Time
}

// Handler reacts to a completed analysis
type Handler func(ctx context.Context, ev AnalysisCompleted)

type subscription struct {
	id      uint64
	handler Handler
}

// Bus fans AnalysisCompleted events out to subscribers.
// Handlers run synchronously, in subscription order, on the publishing goroutine.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   []subscription
}

// NewBus creates an empty bus
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers h and returns a function that removes it.
// The returned function is idempotent.
func (b *Bus) Subscribe(h Handler) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, handler: h})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, s := range b.subs {
		if s.id == id {
			// Copy so in-flight Publish snapshots stay intact
			subs := make([]subscription, 0, len(b.subs)-1)
			subs = append(subs, b.subs[:i]...)
			subs = append(subs, b.subs[i+1:]...)
			b.subs = subs
			return
		}
	}
}

// Publish delivers ev to every current subscriber
func (b *Bus) Publish(ctx context.Context, ev AnalysisCompleted) {
	b.mu.RLock()
	subs := b.subs
	b.mu.RUnlock()

	for _, s := range subs {
		s.handler(ctx, ev)
	}
}

// Len returns the number of subscribers
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
