package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"tracking/internal/event"
)

// StalenessReaper periodically checks every live trip for two conditions:
// an advisory update timeout (no location report for a while, trip keeps
// running) and hard expiry (trip older than max age, stopped with reason
// expired through the regular stop path).
type StalenessReaper struct {
	service       *TrackingService
	interval      time.Duration
	updateTimeout time.Duration
	maxAge        time.Duration

	started  atomic.Bool
	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

// NewStalenessReaper creates a reaper over the given service.
func NewStalenessReaper(svc *TrackingService, interval, updateTimeout, maxAge time.Duration) *StalenessReaper {
	return &StalenessReaper{
		service:       svc,
		interval:      interval,
		updateTimeout: updateTimeout,
		maxAge:        maxAge,
		stopCh:        make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// Start launches the sweep loop. It returns immediately; call Stop to
// shut the loop down. Subsequent calls are no-ops.
func (r *StalenessReaper) Start(ctx context.Context) {
	if !r.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer close(r.done)

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-r.stopCh:
				return
			case <-ticker.C:
				r.Sweep(ctx)
			}
		}
	}()
}

// Stop terminates the sweep loop and waits for it to exit. It returns
// immediately when the loop was never started.
func (r *StalenessReaper) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
	if r.started.Load() {
		<-r.done
	}
}

// Sweep runs one pass over all live trips. Exported so operational
// endpoints can force a sweep outside the timer.
func (r *StalenessReaper) Sweep(ctx context.Context) {
	now := time.Now()

	type timedOut struct {
		tripID     string
		lastUpdate time.Time
	}
	var advisories []timedOut

	for _, entry := range r.service.trips.List() {
		entry.Lock()
		state := entry.State
		silent := now.Sub(state.LastUpdate)
		if silent > r.updateTimeout && !state.TimeoutFlagged {
			// Advisory only: the trip keeps running. The flag re-arms when
			// the next location update lands.
			state.TimeoutFlagged = true
			advisories = append(advisories, timedOut{state.TripID, state.LastUpdate})
		}
		entry.Unlock()
	}

	for _, a := range advisories {
		r.service.publish(ctx, event.New(event.TypeTimeout, a.tripID, now, map[string]any{
			"last_update": a.lastUpdate.UTC().Format(time.RFC3339),
		}))
	}

	if stopped := r.service.CleanupExpired(ctx, r.maxAge); stopped > 0 {
		log.Info().Int("stopped", stopped).Msg("reaper expired stale trips")
	}
}
