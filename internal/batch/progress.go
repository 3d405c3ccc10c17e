package batch

import (
	"sync"
)

// Progress is a point-in-time snapshot of a running upload, pushed to
// websocket subscribers and polled via the status endpoint.
type Progress struct {
	UploadID  string `json:"upload_id"`
	Status    string `json:"status"`
	Total     int    `json:"total_records"`
	Processed int    `json:"processed_records"`
	Errors    int    `json:"error_records"`
	Done      bool   `json:"done"`
}

// Tracker fans progress snapshots out to subscribers per upload. Slow
// subscribers are skipped rather than blocking the engine.
type Tracker struct {
	mu     sync.RWMutex
	subs   map[string][]chan Progress
	latest map[string]Progress
}

// NewTracker creates a new Tracker instance
func NewTracker() *Tracker {
	return &Tracker{
		subs:   make(map[string][]chan Progress),
		latest: make(map[string]Progress),
	}
}

// Subscribe registers a channel for an upload's progress updates. The latest
// known snapshot, if any, is delivered immediately.
func (t *Tracker) Subscribe(uploadID string) chan Progress {
	ch := make(chan Progress, 16)

	t.mu.Lock()
	defer t.mu.Unlock()

	t.subs[uploadID] = append(t.subs[uploadID], ch)

	// Delivered under the lock: a concurrent final Publish closes only the
	// channels it copied out, so the send cannot race the close. The fresh
	// buffered channel never blocks here.
	if snapshot, ok := t.latest[uploadID]; ok {
		ch <- snapshot
	}

	return ch
}

// Unsubscribe removes a channel. The channel is not closed here: Publish may
// still be sending to it, and only the final snapshot closes channels.
func (t *Tracker) Unsubscribe(uploadID string, ch chan Progress) {
	t.mu.Lock()
	defer t.mu.Unlock()

	channels := t.subs[uploadID]
	for i, c := range channels {
		if c == ch {
			t.subs[uploadID] = append(channels[:i], channels[i+1:]...)
			break
		}
	}

	if len(t.subs[uploadID]) == 0 {
		delete(t.subs, uploadID)
	}
}

// Publish pushes a snapshot to all subscribers of the upload. When the
// snapshot is final the upload's channels are closed and forgotten.
func (t *Tracker) Publish(p Progress) {
	t.mu.Lock()
	t.latest[p.UploadID] = p
	channels := make([]chan Progress, len(t.subs[p.UploadID]))
	copy(channels, t.subs[p.UploadID])
	if p.Done {
		delete(t.subs, p.UploadID)
	}
	t.mu.Unlock()

	for _, ch := range channels {
		select {
		case ch <- p:
		default:
		}
		if p.Done {
			close(ch)
		}
	}
}

// Latest returns the last published snapshot for an upload
func (t *Tracker) Latest(uploadID string) (Progress, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	p, ok := t.latest[uploadID]
	return p, ok
}
