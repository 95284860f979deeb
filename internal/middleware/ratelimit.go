package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/agentforge/agentforge/internal/models"
)

const (
	budgetWindow  = time.Minute
	sweepInterval = 5 * time.Minute
)

// Cost weighs a request against its client's per-minute budget.
type Cost func(r *http.Request) int

// RouteCost charges by how much work a route triggers. A stream runs the
// whole tool pipeline, execute runs one tool, registrations touch the
// store, and everything else is a read.
func RouteCost(r *http.Request) int {
	path := strings.TrimSuffix(r.URL.Path, "/")
	switch {
	case strings.HasSuffix(path, "/stream"):
		return 3
	case strings.HasSuffix(path, "/tools/execute"):
		return 2
	case r.Method == http.MethodPost:
		return 2
	default:
		return 1
	}
}

type spend struct {
	at   time.Time
	cost int
}

// budget is one client's spending over the trailing window.
type budget struct {
	mu    sync.Mutex
	spent []spend
	used  int
}

// take charges cost when it fits, otherwise reports how long until the
// oldest charge expires.
func (b *budget) take(now time.Time, cost, limit int) (remaining int, retry time.Duration, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	cutoff := now.Add(-budgetWindow)
	n := 0
	for n < len(b.spent) && !b.spent[n].at.After(cutoff) {
		b.used -= b.spent[n].cost
		n++
	}
	b.spent = b.spent[n:]

	if b.used+cost > limit {
		retry = budgetWindow
		if len(b.spent) > 0 {
			retry = b.spent[0].at.Add(budgetWindow).Sub(now)
		}
		return limit - b.used, retry, false
	}
	b.spent = append(b.spent, spend{at: now, cost: cost})
	b.used += cost
	return limit - b.used, 0, true
}

func (b *budget) idleSince(cutoff time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.spent) == 0 || b.spent[len(b.spent)-1].at.Before(cutoff)
}

// Limiter tracks a budget per client, keyed by API key or remote host.
type Limiter struct {
	mu        sync.Mutex
	budgets   map[string]*budget
	limit     int
	cost      Cost
	lastSweep time.Time
}

// NewLimiter allows limitPerMinute cost units per client. A nil cost
// charges one unit per request.
func NewLimiter(limitPerMinute int, cost Cost) *Limiter {
	if cost == nil {
		cost = func(*http.Request) int { return 1 }
	}
	return &Limiter{
		budgets:   make(map[string]*budget),
		limit:     limitPerMinute,
		cost:      cost,
		lastSweep: time.Now(),
	}
}

func clientKey(r *http.Request) string {
	if key := r.Header.Get("X-API-Key"); key != "" {
		return "key:" + key
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return "ip:" + host
	}
	return "ip:" + r.RemoteAddr
}

// budgetFor returns the client's budget, dropping idle ones on the way.
func (l *Limiter) budgetFor(key string, now time.Time) *budget {
	l.mu.Lock()
	defer l.mu.Unlock()
	if now.Sub(l.lastSweep) > sweepInterval {
		cutoff := now.Add(-budgetWindow)
		for k, b := range l.budgets {
			if b.idleSince(cutoff) {
				delete(l.budgets, k)
			}
		}
		l.lastSweep = now
	}
	b, ok := l.budgets[key]
	if !ok {
		b = &budget{}
		l.budgets[key] = b
	}
	return b
}

// Handler enforces the budget. Streams are charged once, when they open.
func (l *Limiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cost := min(max(l.cost(r), 1), l.limit)
		now := time.Now()
		remaining, retry, ok := l.budgetFor(clientKey(r), now).take(now, cost, l.limit)

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Cost", strconv.Itoa(cost))

		if !ok {
			secs := int((retry + time.Second - 1) / time.Second)
			w.Header().Set("Retry-After", strconv.Itoa(max(secs, 1)))
			models.WriteError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RateLimit allows limitPerMinute cost units per client in a sliding
// one-minute window, charging each request by cost.
func RateLimit(limitPerMinute int, cost Cost) func(http.Handler) http.Handler {
	return NewLimiter(limitPerMinute, cost).Handler
}
