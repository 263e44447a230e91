package services

import (
	"context"
	"time"

	"bloom-backend/internal/metrics"
	"bloom-backend/internal/repository"

	"github.com/rs/zerolog/log"
)

// RequestExpirer moves stale pending couple requests to expired
type RequestExpirer struct {
	requests repository.CoupleRequestRepository
	ttl      time.Duration
	interval time.Duration
	now      func() time.Time
}

// NewRequestExpirer creates an expirer for requests older than ttl, sweeping every interval
func NewRequestExpirer(requests repository.CoupleRequestRepository, ttl, interval time.Duration) *RequestExpirer {
	return &RequestExpirer{
		requests: requests,
		ttl:      ttl,
		interval: interval,
		now:      time.Now,
	}
}

// Run sweeps until ctx is cancelled. It blocks, so launch it in its own goroutine.
func (e *RequestExpirer) Run(ctx context.Context) {
	if e.ttl <= 0 || e.interval <= 0 {
		log.Info().Msg("Couple request expiry disabled")
		return
	}

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	log.Info().Dur("ttl", e.ttl).Dur("interval", e.interval).Msg("Couple request expirer started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Couple request expirer stopped")
			return
		case <-ticker.C:
			e.Sweep(ctx)
		}
	}
}

// Sweep expires every pending request created more than ttl ago
func (e *RequestExpirer) Sweep(ctx context.Context) int {
	n, err := e.requests.ExpirePending(ctx, e.now().Add(-e.ttl))
	if err != nil {
		log.Error().Err(err).Msg("Failed to expire couple requests")
		return 0
	}
	if n > 0 {
		metrics.ExpiredRequests.Add(float64(n))
		log.Info().Int("count", n).Msg("Expired couple requests")
	}
	return n
}
