package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"ai-booking-assistant/pkg/response"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// limiterIdleTTL is how long a caller's bucket survives without requests.
const limiterIdleTTL = 10 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimitMiddleware keeps one token bucket per caller. Authenticated
// requests are keyed by user ID, anonymous ones by remote IP. Buckets idle
// for longer than limiterIdleTTL are swept on access.
type RateLimitMiddleware struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	limit     rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time
	log       *logrus.Logger
}

func NewRateLimitMiddleware(perMinute, burst int, log *logrus.Logger) *RateLimitMiddleware {
	if perMinute <= 0 {
		perMinute = 20
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimitMiddleware{
		visitors:  make(map[string]*visitor),
		limit:     rate.Every(time.Minute / time.Duration(perMinute)),
		burst:     burst,
		lastSweep: time.Now(),
		now:       time.Now,
		log:       log,
	}
}

func (m *RateLimitMiddleware) getLimiter(key string) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if now.Sub(m.lastSweep) >= limiterIdleTTL {
		for k, v := range m.visitors {
			if now.Sub(v.lastSeen) >= limiterIdleTTL {
				delete(m.visitors, k)
			}
		}
		m.lastSweep = now
	}

	v, exists := m.visitors[key]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(m.limit, m.burst)}
		m.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter
}

func (m *RateLimitMiddleware) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r)
		if !m.getLimiter(key).Allow() {
			m.log.WithField("client", key).Warn("Rate limit exceeded")
			response.Fail(w, http.StatusTooManyRequests, "Rate limit exceeded. Try again later.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	if userID, ok := GetUserIDFromContext(r.Context()); ok {
		return "user:" + userID.String()
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
