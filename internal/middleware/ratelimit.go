package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"
)

const authPathPrefix = "/api/auth"

type clientLimiter struct {
	general  *rate.Limiter
	auth     *rate.Limiter
	lastSeen time.Time
}

// RateLimitMiddleware applies per-IP budgets: a general one for every
// request and a tighter one for the /api/auth endpoints. A non-positive
// generalRPM disables the general budget.
type RateLimitMiddleware struct {
	generalRPM int
	authRPM    int
	mu         sync.Mutex
	clients    map[string]*clientLimiter
}

func NewRateLimitMiddleware(generalRPM int, authRPM int) *RateLimitMiddleware {
	if authRPM <= 0 {
		authRPM = 10
	}

	return &RateLimitMiddleware{
		generalRPM: generalRPM,
		authRPM:    authRPM,
		clients:    map[string]*clientLimiter{},
	}
}

func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limiter := m.getLimiter(extractClientIP(r))

		target := limiter.general
		if strings.HasPrefix(strings.ToLower(r.URL.Path), authPathPrefix) {
			target = limiter.auth
		}

		if target != nil && !target.Allow() {
			writeTooManyRequests(w, time.Minute)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *RateLimitMiddleware) getLimiter(clientIP string) *clientLimiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	if limiter, exists := m.clients[clientIP]; exists {
		limiter.lastSeen = time.Now()
		m.gcLocked()
		return limiter
	}

	created := &clientLimiter{
		auth:     rate.NewLimiter(rate.Every(time.Minute/time.Duration(m.authRPM)), m.authRPM),
		lastSeen: time.Now(),
	}
	if m.generalRPM > 0 {
		created.general = rate.NewLimiter(rate.Every(time.Minute/time.Duration(m.generalRPM)), m.generalRPM)
	}
	m.clients[clientIP] = created
	m.gcLocked()

	return created
}

func (m *RateLimitMiddleware) gcLocked() {
	if len(m.clients) < 1000 {
		return
	}

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, limiter := range m.clients {
		if limiter.lastSeen.Before(cutoff) {
			delete(m.clients, ip)
		}
	}
}

type routeEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RouteLimiter admits burst requests per interval for each caller on each
// route. The caller is the authenticated user when present, else the client IP.
type RouteLimiter struct {
	interval time.Duration
	burst    int
	mu       sync.Mutex
	entries  map[string]*routeEntry
}

func NewRouteLimiter(interval time.Duration, burst int) *RouteLimiter {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if burst <= 0 {
		burst = 1
	}
	return &RouteLimiter{interval: interval, burst: burst, entries: map[string]*routeEntry{}}
}

func (l *RouteLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.allow(routeKey(r)) {
			writeTooManyRequests(w, l.interval)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (l *RouteLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	entry, exists := l.entries[key]
	if !exists {
		entry = &routeEntry{limiter: rate.NewLimiter(rate.Every(l.interval), l.burst)}
		l.entries[key] = entry
	}
	entry.lastSeen = now

	if len(l.entries) >= 1000 {
		cutoff := now.Add(-10 * l.interval)
		for k, e := range l.entries {
			if e.lastSeen.Before(cutoff) {
				delete(l.entries, k)
			}
		}
	}

	return entry.limiter.AllowN(now, 1)
}

func routeKey(r *http.Request) string {
	caller := "ip:" + extractClientIP(r)
	if user, ok := UserFromContext(r.Context()); ok {
		caller = "user:" + user.ID
	}

	route := r.URL.Path
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			route = pattern
		}
	}

	return caller + " " + r.Method + " " + route
}

func writeTooManyRequests(w http.ResponseWriter, retryAfter time.Duration) {
	seconds := int(retryAfter.Round(time.Second) / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(seconds))
	writeAPIError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests")
}
