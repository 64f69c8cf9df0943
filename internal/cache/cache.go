// Package cache provides a generic in-process LRU cache and a janitor that
// sweeps expired entries.
package cache

import (
	"context"
	"sync"
	"time"

	"smartexpense/internal/log"
)

// Cache defines a generic cache interface
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Size() int
}

// Cleaner interface for caches that support cleanup
type Cleaner interface {
	CleanExpired() int
}

// Janitor periodically sweeps registered caches until its context ends.
type Janitor struct {
	mu     sync.Mutex
	caches []Cleaner
	logger *log.Logger
}

func NewJanitor(logger *log.Logger) *Janitor {
	if logger == nil {
		logger = log.Wrap(nil, log.ComponentCache)
	}
	return &Janitor{logger: logger.WithComponent(log.ComponentCache)}
}

func (j *Janitor) Register(c Cleaner) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.caches = append(j.caches, c)
}

// Sweep cleans every registered cache once.
func (j *Janitor) Sweep() int {
	j.mu.Lock()
	caches := append([]Cleaner(nil), j.caches...)
	j.mu.Unlock()

	total := 0
	for _, c := range caches {
		total += c.CleanExpired()
	}
	return total
}

// Run sweeps every interval and returns when ctx is cancelled.
func (j *Janitor) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := j.Sweep(); n > 0 {
				j.logger.Debug("Expired cache entries removed", "count", n)
			}
		case <-ctx.Done():
			return nil
		}
	}
}
