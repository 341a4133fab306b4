package app

import (
	"sync"
	"time"
)

// intervalGate 同一個 key 在 interval 內只放行一次
type intervalGate struct {
	mu       sync.Mutex
	interval time.Duration
	last     map[string]time.Time
}

func newIntervalGate(interval time.Duration) *intervalGate {
	return &intervalGate{interval: interval, last: make(map[string]time.Time)}
}

// allow returns false and the remaining wait when key passed less than interval ago
func (g *intervalGate) allow(key string, now time.Time) (bool, time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if last, ok := g.last[key]; ok {
		if elapsed := now.Sub(last); elapsed >= 0 && elapsed < g.interval {
			return false, g.interval - elapsed
		}
	}

	if len(g.last) > 4096 {
		for k, t := range g.last {
			if now.Sub(t) >= g.interval {
				delete(g.last, k)
			}
		}
	}
	g.last[key] = now
	return true, 0
}
