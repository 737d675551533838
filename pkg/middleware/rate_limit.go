package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"showings/pkg/logger"
	"showings/pkg/sanitizer"
	"sync"
	"time"
)

const ClientPhoneHeader = "X-Client-Phone"

type PhoneExtractor func(r *http.Request) string

// PhoneRateLimiter is a sliding-window limiter keyed by the requesting client's phone.
type PhoneRateLimiter struct {
	mu             sync.Mutex
	requests       map[string][]time.Time
	limit          int
	window         time.Duration
	phoneExtractor PhoneExtractor
	log            *logger.Logger
	stopCh         chan struct{}
	stopOnce       sync.Once
	now            func() time.Time
}

func NewPhoneRateLimiter(limit int, window time.Duration, extractor PhoneExtractor, log *logger.Logger) *PhoneRateLimiter {
	if extractor == nil {
		extractor = DefaultPhoneExtractor
	}
	limiter := &PhoneRateLimiter{
		requests:       make(map[string][]time.Time),
		limit:          limit,
		window:         window,
		phoneExtractor: extractor,
		log:            log,
		stopCh:         make(chan struct{}),
		now:            time.Now,
	}

	go limiter.cleanup()

	return limiter
}

func (rl *PhoneRateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.mu.Lock()
			now := rl.now()
			for phone, timestamps := range rl.requests {
				if len(timestamps) == 0 || now.Sub(timestamps[len(timestamps)-1]) > rl.window {
					delete(rl.requests, phone)
				}
			}
			rl.mu.Unlock()
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *PhoneRateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

func (rl *PhoneRateLimiter) Allow(phone string) bool {
	if phone == "" {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	valid := rl.requests[phone][:0]
	for _, ts := range rl.requests[phone] {
		if now.Sub(ts) < rl.window {
			valid = append(valid, ts)
		}
	}

	if len(valid) >= rl.limit {
		rl.requests[phone] = valid
		return false
	}

	rl.requests[phone] = append(valid, now)
	return true
}

func PhoneRateLimit(limiter *PhoneRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			phone := limiter.phoneExtractor(r)

			if !limiter.Allow(phone) {
				limiter.log.Warn("Rate limit exceeded",
					"request_id", RequestID(r.Context()),
					"phone", phone,
					"path", r.URL.Path,
				)
				w.Header().Set("Retry-After", limiter.window.String())
				writeRejection(w, http.StatusTooManyRequests, "RATE_LIMITED", "Rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// DefaultPhoneExtractor keys on the X-Client-Phone header and falls back to the
// client_phone field of a JSON request body. The body is restored for the next handler.
func DefaultPhoneExtractor(r *http.Request) string {
	if phone := sanitizer.NormalizePhone(r.Header.Get(ClientPhoneHeader)); phone != "" {
		return phone
	}
	if r.Method != http.MethodPost || r.Body == nil {
		return ""
	}

	body, err := io.ReadAll(r.Body)
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil {
		return ""
	}

	var payload struct {
		ClientPhone string `json:"client_phone"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return sanitizer.NormalizePhone(payload.ClientPhone)
}
