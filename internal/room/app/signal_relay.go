package app

import (
	"encoding/json"
	"sync"
	"time"

	"voicelink_service/internal/room/domain"
)

// DefaultSignalTTL pending signals older than this are dropped
const DefaultSignalTTL = 60 * time.Second

// SignalRelay process local mailbox of peer signals, keyed by room and recipient.
// Expired entries are filtered lazily on every access.
type SignalRelay struct {
	mu    sync.Mutex
	ttl   time.Duration
	rooms map[string][]domain.PendingSignal
	now   func() time.Time
}

// NewSignalRelay create a SignalRelay, now defaults to time.Now
func NewSignalRelay(ttl time.Duration, now func() time.Time) *SignalRelay {
	if ttl <= 0 {
		ttl = DefaultSignalTTL
	}
	if now == nil {
		now = time.Now
	}
	return &SignalRelay{ttl: ttl, rooms: make(map[string][]domain.PendingSignal), now: now}
}

// Enqueue queue payload for `to`. call_caption payloads replace the previous
// caption of the same (to, from, callId).
func (r *SignalRelay) Enqueue(roomID, to, from string, payload json.RawMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	pending := r.prune(roomID, now)

	entry := domain.PendingSignal{
		To:        to,
		From:      from,
		Payload:   append(json.RawMessage(nil), payload...),
		CreatedAt: now,
		CallID:    domain.CaptionCallID(payload),
	}

	if entry.CallID != "" {
		for i := range pending {
			p := pending[i]
			if p.CallID == entry.CallID && p.To == to && p.From == from {
				pending = append(pending[:i], pending[i+1:]...)
				break
			}
		}
	}

	r.rooms[roomID] = append(pending, entry)
}

// Collect 取出並移除所有寄給 `to` 的訊號
func (r *SignalRelay) Collect(roomID, to string) []domain.Signal {
	r.mu.Lock()
	defer r.mu.Unlock()

	pending := r.prune(roomID, r.now())

	var out []domain.Signal
	kept := pending[:0]
	for _, p := range pending {
		if p.To == to {
			out = append(out, domain.Signal{
				From:      p.From,
				Payload:   p.Payload,
				CreatedAt: domain.FormatTimestamp(p.CreatedAt),
			})
			continue
		}
		kept = append(kept, p)
	}

	if len(kept) == 0 {
		delete(r.rooms, roomID)
	} else {
		r.rooms[roomID] = kept
	}
	return out
}

// DropRoom forget every pending signal of the room
func (r *SignalRelay) DropRoom(roomID string) {
	r.mu.Lock()
	delete(r.rooms, roomID)
	r.mu.Unlock()
}

// Pending number of undelivered signals in the room
func (r *SignalRelay) Pending(roomID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.prune(roomID, r.now()))
}

// prune caller holds mu
func (r *SignalRelay) prune(roomID string, now time.Time) []domain.PendingSignal {
	pending := r.rooms[roomID]
	fresh := pending[:0]
	for _, p := range pending {
		if now.Sub(p.CreatedAt) <= r.ttl {
			fresh = append(fresh, p)
		}
	}
	if len(fresh) == 0 {
		delete(r.rooms, roomID)
		return nil
	}
	r.rooms[roomID] = fresh
	return fresh
}
