package services

import (
	"sync"
)

// PullGuard limits how many pulls may run at once per sales channel.
// Overlapping pulls of the same channel would race on the existing-order
// check and store duplicates.
type PullGuard struct {
	mu       sync.Mutex
	limit    int
	channels map[string]chan struct{}
	active   map[string]int
}

// NewPullGuard creates a guard allowing limit concurrent pulls per channel
func NewPullGuard(limit int) *PullGuard {
	if limit < 1 {
		limit = 1
	}
	return &PullGuard{
		limit:    limit,
		channels: make(map[string]chan struct{}),
		active:   make(map[string]int),
	}
}

func (g *PullGuard) semaphore(channel string) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()

	if sem, exists := g.channels[channel]; exists {
		return sem
	}
	sem := make(chan struct{}, g.limit)
	g.channels[channel] = sem
	return sem
}

// TryAcquire takes a slot without blocking. The returned release function
// must be called when the pull is done.
func (g *PullGuard) TryAcquire(channel string) (func(), bool) {
	sem := g.semaphore(channel)
	select {
	case sem <- struct{}{}:
	default:
		return nil, false
	}

	g.mu.Lock()
	g.active[channel]++
	g.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			g.active[channel]--
			if g.active[channel] == 0 {
				delete(g.active, channel)
			}
			g.mu.Unlock()
			<-sem
		})
	}, true
}

// Active returns the number of running pulls for a channel
func (g *PullGuard) Active(channel string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active[channel]
}
