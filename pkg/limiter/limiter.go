package limiter

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"voicelink_service/pkg/logger"
)

// Decision result of one rate limit check
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Strategy 定義限流演算法
type Strategy interface {
	// Allow count one request for key within window
	Allow(ctx context.Context, key string, limit int, window time.Duration) (Decision, error)
}

// Rule per action ceiling
type Rule struct {
	Limit  int
	Window time.Duration
}

// Manager 依 action 套用不同的規則
type Manager struct {
	strategy Strategy
	rules    map[string]Rule
	fallback Rule
}

// NewManager create a Manager, actions without a rule use fallback
func NewManager(strategy Strategy, rules map[string]Rule, fallback Rule) *Manager {
	return &Manager{strategy: strategy, rules: rules, fallback: fallback}
}

// Rule returns the rule applied to action
func (m *Manager) Rule(action string) Rule {
	if r, ok := m.rules[action]; ok {
		return r
	}
	return m.fallback
}

// Allow check action for key. Backend errors fail open.
func (m *Manager) Allow(ctx context.Context, action, key string) Decision {
	rule := m.Rule(action)
	d, err := m.strategy.Allow(ctx, action+":"+key, rule.Limit, rule.Window)
	if err != nil {
		logger.Log.Warn("rate limiter unavailable, allowing request",
			zap.String("action", action),
			zap.Error(err),
		)
		return Decision{Allowed: true, Limit: rule.Limit, Remaining: rule.Limit}
	}
	return d
}

// ---- 固定窗口 (memory) ----

type window struct {
	count   int
	resetAt time.Time
}

// MemoryFixedWindow process local fixed window counter
type MemoryFixedWindow struct {
	mu        sync.Mutex
	windows   map[string]*window
	nextSweep time.Time
	now       func() time.Time
}

// NewMemoryFixedWindow create a MemoryFixedWindow, now defaults to time.Now
func NewMemoryFixedWindow(now func() time.Time) *MemoryFixedWindow {
	if now == nil {
		now = time.Now
	}
	return &MemoryFixedWindow{windows: make(map[string]*window), now: now}
}

// Allow 第一次請求或窗口過期時重新計數
func (s *MemoryFixedWindow) Allow(ctx context.Context, key string, limit int, win time.Duration) (Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweep(now, win)

	w, ok := s.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(win)}
		s.windows[key] = w
	}
	w.count++

	if w.count > limit {
		return Decision{Limit: limit, RetryAfter: w.resetAt.Sub(now)}, nil
	}
	return Decision{Allowed: true, Limit: limit, Remaining: limit - w.count}, nil
}

// sweep 清掉過期的窗口
func (s *MemoryFixedWindow) sweep(now time.Time, win time.Duration) {
	if now.Before(s.nextSweep) {
		return
	}
	for k, w := range s.windows {
		if !now.Before(w.resetAt) {
			delete(s.windows, k)
		}
	}
	s.nextSweep = now.Add(win)
}

// ---- 固定窗口 (redis) ----

// Lua 腳本：原子性執行 INCR 和 PEXPIRE，回傳 {count, pttl}
const fixedWindowScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
	ttl = tonumber(ARGV[1])
end
return {current, ttl}
`

// RedisFixedWindow fixed window counter shared by every instance
type RedisFixedWindow struct {
	rdb    *redis.Client
	script *redis.Script
	prefix string
}

// NewRedisFixedWindow create a RedisFixedWindow
func NewRedisFixedWindow(rdb *redis.Client, prefix string) *RedisFixedWindow {
	return &RedisFixedWindow{rdb: rdb, script: redis.NewScript(fixedWindowScript), prefix: prefix}
}

// Allow run the counter script
func (s *RedisFixedWindow) Allow(ctx context.Context, key string, limit int, win time.Duration) (Decision, error) {
	res, err := s.script.Run(ctx, s.rdb, []string{s.prefix + key}, win.Milliseconds()).Int64Slice()
	if err != nil {
		return Decision{}, err
	}
	count, ttl := int(res[0]), time.Duration(res[1])*time.Millisecond

	if count > limit {
		return Decision{Limit: limit, RetryAfter: ttl}, nil
	}
	return Decision{Allowed: true, Limit: limit, Remaining: limit - count}, nil
}
