package service

import (
	"context"
	"log"
	"time"
)

// SeatSweeper is the slice of the reservation manager the sweeper
// drives.  It also fits any housekeeping store with a bulk reclaim
// operation.
type SeatSweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

// TokenPurger optionally piggybacks refresh-token cleanup on the same
// timer.
type TokenPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Sweeper periodically reclaims seats whose reservation window has
// elapsed.  The reclaim itself is one set-based conditional update, so
// running on the timer and on demand at the same time is harmless: the
// second pass simply matches nothing.  A seat is never left expired and
// held for longer than one interval.
type Sweeper struct {
	seats    SeatSweeper
	tokens   TokenPurger
	interval time.Duration
}

// NewSweeper constructs a Sweeper.  interval values below one second
// fall back to the five-minute default; tokens may be nil.
func NewSweeper(seats SeatSweeper, tokens TokenPurger, interval time.Duration) *Sweeper {
	if interval < time.Second {
		interval = 5 * time.Minute
	}
	return &Sweeper{seats: seats, tokens: tokens, interval: interval}
}

// Run blocks, sweeping once per interval until ctx is cancelled.  Run
// it on its own goroutine.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	n, err := s.seats.SweepExpired(ctx)
	if err != nil {
		log.Printf("sweeper: reclaim expired seats failed: %v", err)
	} else if n > 0 {
		log.Printf("sweeper: reclaimed %d expired seat(s)", n)
	}
	if s.tokens != nil {
		if _, err := s.tokens.PurgeExpired(ctx); err != nil {
			log.Printf("sweeper: purge expired tokens failed: %v", err)
		}
	}
}
