package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"guruit/internal/config"
	"guruit/internal/repository"
)

// StartCheckInSweepJob periodically closes check-ins whose day has passed
// without a checkout. Interns who forget to check out would otherwise keep
// an open record forever and be locked out of the next day's check-in.
func StartCheckInSweepJob(ctx context.Context, cfg config.Config, store *repository.Store) {
	if !cfg.CheckinSweepEnable {
		return
	}
	interval := cfg.CheckinSweepEvery
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				tickCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
				closed, err := sweepOnce(tickCtx, store, time.Now().UTC())
				cancel()
				if err != nil {
					log.Printf("checkin sweep error: %v", err)
					continue
				}
				if closed > 0 {
					log.Printf("checkin sweep closed %d stale records", closed)
				}
			}
		}
	}()
}

// sweepOnce closes every open check-in that started before today. The stale
// record is closed at its own day's midnight so the stored total never
// spans days.
func sweepOnce(ctx context.Context, store *repository.Store, now time.Time) (int, error) {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	stale, err := store.ListOpenCheckInsBefore(ctx, midnight, 500)
	if err != nil {
		return 0, err
	}

	closed := 0
	for _, checkIn := range stale {
		in := checkIn.CheckInTime.UTC()
		dayEnd := time.Date(in.Year(), in.Month(), in.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
		totalTime := formatElapsed(dayEnd.Sub(in))
		if err := store.CloseCheckIn(ctx, checkIn.ID, dayEnd, totalTime); err != nil {
			return closed, err
		}
		closed++
	}
	return closed, nil
}

func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%d hrs %d mins", int(d.Hours()), int(d.Minutes())%60)
}
