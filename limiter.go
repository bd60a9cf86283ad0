package loam

import (
	"sync"
	"time"
)

// loginLimiter rate-limits login attempts per IP address. Only failed
// attempts count against the limit.
type loginLimiter struct {
	mu     sync.Mutex
	failed map[string][]time.Time
	max    int
	window time.Duration
}

func newLoginLimiter(max int, window time.Duration) *loginLimiter {
	l := &loginLimiter{
		failed: make(map[string][]time.Time),
		max:    max,
		window: window,
	}
	go l.sweep()
	return l
}

// sweep periodically drops IPs whose attempts have all aged out, so the map
// does not grow with every visitor that ever mistyped a password.
func (l *loginLimiter) sweep() {
	ticker := time.NewTicker(l.window)
	for range ticker.C {
		cutoff := time.Now().Add(-l.window)
		l.mu.Lock()
		for ip := range l.failed {
			if kept := l.prune(ip, cutoff); len(kept) == 0 {
				delete(l.failed, ip)
			}
		}
		l.mu.Unlock()
	}
}

// prune drops expired attempts for ip and returns what remains. Caller holds
// the lock.
func (l *loginLimiter) prune(ip string, cutoff time.Time) []time.Time {
	hits := l.failed[ip]
	kept := hits[:0]
	for _, t := range hits {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	l.failed[ip] = kept
	return kept
}

// check reports whether the IP is still under the limit. It records nothing;
// call record on a failed attempt.
func (l *loginLimiter) check(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.prune(ip, time.Now().Add(-l.window))) < l.max
}

// record registers a failed login attempt for the given IP.
func (l *loginLimiter) record(ip string) {
	l.mu.Lock()
	l.failed[ip] = append(l.failed[ip], time.Now())
	l.mu.Unlock()
}
