package lock

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/iliyamo/bus-seat-reservation/internal/hub"
	"github.com/iliyamo/bus-seat-reservation/internal/model"
	"github.com/iliyamo/bus-seat-reservation/internal/repository"
)

// Sweeper periodically reclaims LOCKED seats whose lease has lapsed.
// It is the only recovery path for seats abandoned by disconnected or
// crashed clients, which by design keep their lease until the TTL
// runs out.  Each reclaim goes through the same conditional
// transition as an explicit release and emits the same broadcast.
type Sweeper struct {
	store    Store
	pub      Publisher
	interval time.Duration
	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewSweeper constructs a Sweeper that scans every interval.
func NewSweeper(store Store, pub Publisher, interval time.Duration) *Sweeper {
	return &Sweeper{store: store, pub: pub, interval: interval, stop: make(chan struct{})}
}

// Start launches the sweep loop in its own goroutine.  The loop runs
// unconditionally on its schedule until Stop is called.
func (s *Sweeper) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				if n, err := s.SweepOnce(ctx); err != nil {
					log.Printf("sweeper: sweep failed: %v", err)
				} else if n > 0 {
					log.Printf("sweeper: reclaimed %d expired lock(s)", n)
				}
				cancel()
			case <-s.stop:
				return
			}
		}
	}()
}

// Stop terminates the loop and waits for an in-flight sweep to end.
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	s.wg.Wait()
}

// SweepOnce performs a single pass: every LOCKED seat whose expiry
// has passed is transitioned back to AVAILABLE at its observed
// version.  A seat that was released or finalized between the scan
// and the write loses the conditional update and is skipped.  It
// returns the number of seats reclaimed.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	expired, err := s.store.ListExpiredLocks(ctx, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	reclaimed := 0
	for _, rec := range expired {
		if _, err := s.store.TryTransition(ctx, rec.TripID, rec.SeatID,
			model.SeatLocked, model.SeatAvailable, rec.Version, "", nil); err != nil {
			if err == repository.ErrConflict {
				continue
			}
			return reclaimed, err
		}
		reclaimed++
		s.pub.Publish(rec.TripID, hub.NewEvent(hub.SeatUnlocked, rec.TripID, rec.SeatID))
	}
	return reclaimed, nil
}
