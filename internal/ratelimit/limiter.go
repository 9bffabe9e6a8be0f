// Package ratelimit implements a process-local sliding-window limiter keyed by
// arbitrary strings (an email, an account id). State is lost on restart.
package ratelimit

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	apperrors "walletledger/internal/errors"

	"github.com/sirupsen/logrus"
)

const stripeCount = 64

// Limiter counts accepted calls per key over a trailing window. Keys hash onto
// a fixed set of stripes, each with its own lock, so unrelated keys rarely
// contend.
type Limiter struct {
	stripes [stripeCount]stripe
	now     func() time.Time
	log     *logrus.Entry
}

type stripe struct {
	mu   sync.Mutex
	keys map[string]*window
}

type window struct {
	hits   []time.Time
	length time.Duration
}

type Option func(*Limiter)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

func WithLogger(log *logrus.Entry) Option {
	return func(l *Limiter) { l.log = log }
}

func New(opts ...Option) *Limiter {
	l := &Limiter{now: time.Now}
	for i := range l.stripes {
		l.stripes[i].keys = make(map[string]*window)
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Limiter) stripeFor(key string) *stripe {
	h := fnv.New32a()
	h.Write([]byte(key))
	return &l.stripes[h.Sum32()%stripeCount]
}

// Check records a call for key unless limit calls were already accepted in the
// trailing window, in which case it returns ErrRateLimited and records nothing.
func (l *Limiter) Check(key string, limit int, length time.Duration) error {
	now := l.now()
	s := l.stripeFor(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.keys[key]
	if !ok {
		w = &window{}
		s.keys[key] = w
	}
	w.length = length
	w.prune(now)

	if len(w.hits) >= limit {
		if l.log != nil {
			l.log.WithFields(logrus.Fields{"key": key, "limit": limit, "window": length}).Debug("rate limit reached")
		}
		return fmt.Errorf("%w: %d calls per %s", apperrors.ErrRateLimited, limit, length)
	}
	w.hits = append(w.hits, now)
	return nil
}

// Allow is Check reporting a bool.
func (l *Limiter) Allow(key string, limit int, length time.Duration) bool {
	return l.Check(key, limit, length) == nil
}

// Sweep drops keys whose calls all fell out of their window and returns how
// many were removed.
func (l *Limiter) Sweep() int {
	now := l.now()
	removed := 0
	for i := range l.stripes {
		s := &l.stripes[i]
		s.mu.Lock()
		for key, w := range s.keys {
			w.prune(now)
			if len(w.hits) == 0 {
				delete(s.keys, key)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed
}

// Run sweeps every interval until ctx is done.
func (l *Limiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := l.Sweep(); n > 0 && l.log != nil {
				l.log.WithField("keys", n).Debug("pruned idle rate limit keys")
			}
		}
	}
}

// prune keeps only hits younger than the window.
func (w *window) prune(now time.Time) {
	cutoff := now.Add(-w.length)
	i := 0
	for i < len(w.hits) && !w.hits[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.hits = append(w.hits[:0], w.hits[i:]...)
	}
}
