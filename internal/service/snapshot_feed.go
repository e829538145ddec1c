package service

import (
	"sync"

	"gpuprices/internal/model"
	"gpuprices/pkg/interfaces"
	"gpuprices/pkg/logger"
)

const subscriberBuffer = 16

// SnapshotFeed fans committed snapshot summaries out to live subscribers.
// A subscriber that falls behind loses summaries rather than blocking ingestion.
type SnapshotFeed struct {
	mu     sync.RWMutex
	subs   map[uint64]chan model.SnapshotSummary
	nextID uint64
	closed bool
}

// NewSnapshotFeed creates an empty feed
func NewSnapshotFeed() *SnapshotFeed {
	return &SnapshotFeed{subs: make(map[uint64]chan model.SnapshotSummary)}
}

// Subscribe registers a subscriber. The returned cancel func must be called
// once the subscriber stops reading; it closes the channel.
func (f *SnapshotFeed) Subscribe() (<-chan model.SnapshotSummary, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ch := make(chan model.SnapshotSummary, subscriberBuffer)
	if f.closed {
		close(ch)
		return ch, func() {}
	}

	id := f.nextID
	f.nextID++
	f.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			if sub, ok := f.subs[id]; ok {
				delete(f.subs, id)
				close(sub)
			}
		})
	}
}

// Publish delivers summary to every subscriber without blocking
func (f *SnapshotFeed) Publish(summary model.SnapshotSummary) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for id, ch := range f.subs {
		select {
		case ch <- summary:
		default:
			logger.Warnf("snapshot feed subscriber %d is lagging, dropping summary %s", id, summary.ObservedAt)
		}
	}
}

// Subscribers returns the number of live subscribers
func (f *SnapshotFeed) Subscribers() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs)
}

// Close disconnects all subscribers
func (f *SnapshotFeed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	for id, ch := range f.subs {
		delete(f.subs, id)
		close(ch)
	}
}

// Publishers fans a summary out to several publishers, in order
type Publishers []interfaces.SnapshotPublisher

// Publish implements interfaces.SnapshotPublisher
func (p Publishers) Publish(summary model.SnapshotSummary) {
	for _, pub := range p {
		pub.Publish(summary)
	}
}
