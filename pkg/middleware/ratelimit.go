package middleware

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/Shahil0511/OakMirror/pkg/httputil"
)

// RateLimitConfig describes a fixed budget of requests per client IP over a
// window, e.g. 10 requests per 30 minutes. Tokens refill evenly across the
// window and a client may spend the whole budget at once.
type RateLimitConfig struct {
	Name     string
	Requests int
	Window   time.Duration
	// TrustProxy makes X-Forwarded-For and X-Real-IP authoritative for the
	// client address. Enable only behind a proxy that overwrites them.
	TrustProxy bool
	Message    string
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// visitorStore holds one token bucket per client IP. Idle buckets are swept
// on access, at most once per window.
type visitorStore struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	limit     rate.Limit
	burst     int
	ttl       time.Duration
	lastSweep time.Time
	nowFunc   func() time.Time
}

func newVisitorStore(cfg RateLimitConfig) *visitorStore {
	return &visitorStore{
		visitors: make(map[string]*visitor),
		limit:    rate.Every(cfg.Window / time.Duration(cfg.Requests)),
		burst:    cfg.Requests,
		ttl:      cfg.Window,
		nowFunc:  time.Now,
	}
}

func (s *visitorStore) now() time.Time {
	return s.nowFunc()
}

func (s *visitorStore) getVisitor(ip string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) >= s.ttl {
		s.evictIdle(now)
		s.lastSweep = now
	}

	v, exists := s.visitors[ip]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter
}

// reserve takes one token for ip. A positive duration means the request is
// over budget and the caller should retry after it.
func (s *visitorStore) reserve(ip string) time.Duration {
	limiter := s.getVisitor(ip)
	now := s.now()
	res := limiter.ReserveN(now, 1)
	if !res.OK() {
		return s.ttl
	}
	delay := res.DelayFrom(now)
	if delay > 0 {
		res.CancelAt(now)
	}
	return delay
}

func (s *visitorStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictIdle(s.now())
}

// evictIdle drops visitors idle for longer than the window; their buckets
// are full again by then. Callers hold s.mu.
func (s *visitorStore) evictIdle(now time.Time) {
	for ip, v := range s.visitors {
		if now.Sub(v.lastSeen) > s.ttl {
			delete(s.visitors, ip)
		}
	}
}

func (s *visitorStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.visitors)
}

// RateLimit returns middleware enforcing cfg per client IP. Over-budget
// requests get a 429 envelope with Retry-After in seconds.
func RateLimit(cfg RateLimitConfig, logger *slog.Logger) func(http.Handler) http.Handler {
	return rateLimit(cfg, newVisitorStore(normalizeRateLimit(cfg)), logger)
}

func normalizeRateLimit(cfg RateLimitConfig) RateLimitConfig {
	if cfg.Requests <= 0 {
		cfg.Requests = 1
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	return cfg
}

func rateLimit(cfg RateLimitConfig, store *visitorStore, logger *slog.Logger) func(http.Handler) http.Handler {
	message := cfg.Message
	if message == "" {
		message = "too many requests, please try again later"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r, cfg.TrustProxy)

			if wait := store.reserve(ip); wait > 0 {
				logger.WarnContext(r.Context(), "rate limit exceeded",
					slog.String("limiter", cfg.Name),
					slog.String("ip", ip),
					slog.String("path", r.URL.Path),
				)
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
				httputil.WriteFailure(w, http.StatusTooManyRequests, "RATE_LIMITED", message)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP returns the caller address. Forwarding headers are only consulted
// when trustProxy is set.
func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
				return ip.String()
			}
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			if ip := net.ParseIP(strings.TrimSpace(xri)); ip != nil {
				return ip.String()
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
