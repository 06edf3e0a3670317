package chat

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/skinmatch/chatbot/backend/internal/model/chat"
)

// DefaultSweepInterval is used when the janitor is given a non-positive interval.
const DefaultSweepInterval = 5 * time.Minute

// Janitor periodically evicts idle sessions from a store.
type Janitor struct {
	store    chat.Store
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}

	mu      sync.Mutex
	running bool
	stopped bool
}

// NewJanitor creates a janitor for store.
func NewJanitor(store chat.Store, interval time.Duration) *Janitor {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Janitor{
		store:    store,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the sweep loop. It is a no-op once started or stopped.
func (j *Janitor) Start() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.running || j.stopped {
		return
	}
	j.running = true
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("session janitor started")
}

// Stop ends the sweep loop and waits for it to exit.
func (j *Janitor) Stop() {
	j.mu.Lock()
	if j.stopped {
		j.mu.Unlock()
		return
	}
	j.stopped = true
	close(j.stopCh)
	running := j.running
	j.mu.Unlock()

	if running {
		<-j.doneCh
	}
}

func (j *Janitor) run() {
	defer close(j.doneCh)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.stopCh:
			log.Info().Msg("session janitor stopped")
			return
		case now := <-ticker.C:
			if n := j.store.Sweep(now); n > 0 {
				log.Info().Int("evicted", n).Int("remaining", j.store.Len()).Msg("evicted idle sessions")
			}
		}
	}
}
