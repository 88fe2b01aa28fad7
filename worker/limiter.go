package worker

import (
	"sync"

	"golang.org/x/time/rate"
)

// KeyConfig defines per-key consumption behaviour such as rate limiting
// and concurrency.
type KeyConfig struct {
	// Key is the partition key this config applies to. It must be the
	// same comparable value the queue's key function produces.
	Key any

	// Rate is the maximum sustained entries per second that may be
	// consumed for this key. Zero disables rate limiting.
	Rate float64

	// RateBurst is the burst size for the token-bucket rate limiter.
	// Defaults to 1 if Rate is set but RateBurst is zero.
	RateBurst int

	// MaxInFlight limits how many entries for this key may be handled
	// simultaneously across the pool. Zero means no key-specific limit
	// (pool-wide concurrency still applies).
	MaxInFlight int
}

// keyState tracks runtime state for a single key.
type keyState struct {
	config  KeyConfig
	limiter *rate.Limiter
	active  int
}

// Limiter enforces per-key rate limits and in-flight caps at consumption
// time. It is safe for concurrent use. Keys are held as opaque
// comparable values so one Limiter serves queues of any key type.
type Limiter struct {
	mu   sync.Mutex
	keys map[any]*keyState
}

// NewLimiter creates a Limiter with the given key configurations.
// Keys not listed here have no limits.
func NewLimiter(configs ...KeyConfig) *Limiter {
	l := &Limiter{
		keys: make(map[any]*keyState, len(configs)),
	}
	for _, cfg := range configs {
		l.keys[cfg.Key] = newKeyState(cfg)
	}
	return l
}

func newKeyState(cfg KeyConfig) *keyState {
	ks := &keyState{config: cfg}
	if cfg.Rate > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		ks.limiter = rate.NewLimiter(rate.Limit(cfg.Rate), burst)
	}
	return ks
}

// Acquire checks the rate limit and in-flight cap for the given key. If
// the entry is allowed to proceed it increments the active counter and
// returns true. The caller MUST call Release when handling completes.
func (l *Limiter) Acquire(key any) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	ks := l.keys[key]
	if ks == nil {
		return true
	}
	if ks.limiter != nil && !ks.limiter.Allow() {
		return false
	}
	if ks.config.MaxInFlight > 0 && ks.active >= ks.config.MaxInFlight {
		return false
	}
	ks.active++
	return true
}

// Release decrements the active count for the key.
func (l *Limiter) Release(key any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if ks := l.keys[key]; ks != nil && ks.active > 0 {
		ks.active--
	}
}

// SetKeyConfig dynamically updates (or creates) a key configuration.
func (l *Limiter) SetKeyConfig(cfg KeyConfig) {
	l.mu.Lock()
	defer l.mu.Unlock()

	existing := l.keys[cfg.Key]
	ks := newKeyState(cfg)

	// Preserve current active count if reconfiguring.
	if existing != nil {
		ks.active = existing.active
	}
	l.keys[cfg.Key] = ks
}

// ActiveCount returns the current number of in-flight entries for a key.
func (l *Limiter) ActiveCount(key any) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if ks := l.keys[key]; ks != nil {
		return ks.active
	}
	return 0
}
