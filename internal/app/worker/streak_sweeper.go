package worker

import (
	"context"
	"log"
	"time"

	"judgehub/internal/app/service"
	"judgehub/internal/domain/repository"
	"judgehub/internal/platform/cache"

	"github.com/redis/go-redis/v9"
)

const sweepLockKey = "lock:streak_sweep"

// StreakSweeper is the decay half of the streak state machine: on an interval
// it zeroes the streak of every user whose last active day predates yesterday.
// The sweep is idempotent, and a Redis leader lock keeps concurrent processes
// from running it at the same time (harmless if they did, but noisy).
type StreakSweeper struct {
	rdb      *redis.Client
	userRepo repository.UserRepository
	interval time.Duration
}

func NewStreakSweeper(rdb *redis.Client, userRepo repository.UserRepository, interval time.Duration) *StreakSweeper {
	return &StreakSweeper{rdb: rdb, userRepo: userRepo, interval: interval}
}

func (w *StreakSweeper) Start(ctx context.Context) {
	log.Printf("Streak sweeper started (interval %s).", w.interval)

	w.sweep(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Println("Streak sweeper stopping...")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *StreakSweeper) sweep(ctx context.Context) {
	ok, release, err := cache.TryAcquire(ctx, w.rdb, sweepLockKey, w.interval/2)
	if err != nil {
		log.Printf("ERROR: Failed to attempt sweep lock acquisition: %v", err)
		return
	}
	if !ok {
		log.Println("INFO: Streak sweep already running elsewhere, skipping.")
		return
	}
	defer release()

	// Anyone last active yesterday can still extend today; only older
	// last_active values decay.
	yesterday := service.TruncateToDay(time.Now()).AddDate(0, 0, -1)
	n, err := w.userRepo.ResetExpiredStreaks(ctx, yesterday)
	if err != nil {
		log.Printf("ERROR: Streak sweep failed: %v", err)
		return
	}
	if n > 0 {
		log.Printf("INFO: Streak sweep reset %d expired streak(s).", n)
	}
}
