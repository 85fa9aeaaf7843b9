package redisx

import (
	"sync"

	"github.com/google/uuid"
)

const feedBuffer = 16

// RunFeed fans run events out to in-process subscribers. The forwarder
// feeds it from Redis so every replica's stream clients see runs from
// the whole deployment. Delivery is best-effort: a subscriber that
// stops draining loses events rather than blocking the feed.
type RunFeed struct {
	mu   sync.RWMutex
	subs map[uuid.UUID]chan RunEvent
}

func NewRunFeed() *RunFeed {
	return &RunFeed{subs: make(map[uuid.UUID]chan RunEvent)}
}

func (f *RunFeed) Subscribe() (uuid.UUID, <-chan RunEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.New()
	ch := make(chan RunEvent, feedBuffer)
	f.subs[id] = ch
	return id, ch
}

func (f *RunFeed) Unsubscribe(id uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ch, ok := f.subs[id]; ok {
		delete(f.subs, id)
		close(ch)
	}
}

func (f *RunFeed) Dispatch(ev RunEvent) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, ch := range f.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
