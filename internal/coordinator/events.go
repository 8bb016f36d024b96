package coordinator

import (
	"slices"
	"sync"

	"github.com/seantiz/sceneloader/internal/model"
)

const (
	// liveBufferSize is the channel buffer of a subscription. Live events are
	// dropped for a subscriber this far behind.
	liveBufferSize = 64

	// maxBatchHistory bounds the events kept in memory for an open batch.
	// The journal holds the full record.
	maxBatchHistory = 1024
)

// EventFeed keeps the lifecycle events of each open batch and delivers them
// to subscribers. A subscriber joining mid-batch first receives what already
// happened, then live events, with no gap or repeat between the two.
//
// Ended batches drop their history and keep only a marker; callers replay
// ended batches from the journal.
type EventFeed struct {
	mu      sync.Mutex
	batches map[string]*batchFeed
}

type batchFeed struct {
	history []model.SceneEvent
	live    map[*Subscription]chan model.SceneEvent
	ended   bool
}

// Subscription is one reader of a batch's events.
type Subscription struct {
	// Backlog holds the batch events published before the subscription.
	Backlog []model.SceneEvent

	events <-chan model.SceneEvent
	ended  bool
	cancel func()
}

// Events returns the live event channel. It is closed when the batch ends.
func (s *Subscription) Events() <-chan model.SceneEvent { return s.events }

// Ended reports whether the batch had already ended when the subscription was
// made. Such subscriptions carry no backlog.
func (s *Subscription) Ended() bool { return s.ended }

// Cancel stops delivery. It is safe to call more than once.
func (s *Subscription) Cancel() { s.cancel() }

// NewEventFeed creates an empty feed.
func NewEventFeed() *EventFeed {
	return &EventFeed{batches: make(map[string]*batchFeed)}
}

func (f *EventFeed) batchLocked(batchID string) *batchFeed {
	b, ok := f.batches[batchID]
	if !ok {
		b = &batchFeed{live: make(map[*Subscription]chan model.SceneEvent)}
		f.batches[batchID] = b
	}
	return b
}

// Subscribe joins the event feed of a batch.
func (f *EventFeed) Subscribe(batchID string) *Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()

	b := f.batchLocked(batchID)
	ch := make(chan model.SceneEvent, liveBufferSize)
	sub := &Subscription{events: ch}
	if b.ended {
		close(ch)
		sub.ended = true
		sub.cancel = func() {}
		return sub
	}

	sub.Backlog = slices.Clone(b.history)
	b.live[sub] = ch
	sub.cancel = func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(b.live, sub)
	}
	return sub
}

// Publish appends ev to its batch's history and hands it to live
// subscribers. Events without a batch, or for an ended batch, are ignored.
func (f *EventFeed) Publish(ev model.SceneEvent) {
	if ev.BatchID == "" {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	b := f.batchLocked(ev.BatchID)
	if b.ended {
		return
	}
	if len(b.history) == maxBatchHistory {
		b.history = slices.Delete(b.history, 0, 1)
	}
	b.history = append(b.history, ev)

	for _, ch := range b.live {
		select {
		case ch <- ev:
		default:
		}
	}
}

// End closes a batch's feed: live channels are closed, the history is
// released and later subscribers see an ended subscription.
func (f *EventFeed) End(batchID string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	b := f.batchLocked(batchID)
	b.ended = true
	b.history = nil
	for sub, ch := range b.live {
		close(ch)
		delete(b.live, sub)
	}
}
