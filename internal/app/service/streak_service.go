package service

import (
	"context"
	"database/sql"
	"log"
	"time"

	"judgehub/internal/common"
	"judgehub/internal/domain/model"
	"judgehub/internal/domain/repository"
	"judgehub/internal/platform/cache"
	"judgehub/internal/platform/config"

	"github.com/google/uuid"
)

// StreakService is the sole writer of streak/last_active and of the
// daily-activity and solved-problem records. It runs only for fully-accepted
// graded submissions. Concurrent accepted submissions for the same user are
// serialized by a per-user lock so the read-modify-write on the streak cannot
// lose an update.
type StreakService struct {
	userRepo     repository.UserRepository
	activityRepo repository.ActivityRepository
	locker       cache.Locker
	db           *sql.DB
}

func NewStreakService(
	userRepo repository.UserRepository,
	activityRepo repository.ActivityRepository,
	locker cache.Locker,
	db *sql.DB,
) *StreakService {
	return &StreakService{
		userRepo:     userRepo,
		activityRepo: activityRepo,
		locker:       locker,
		db:           db,
	}
}

// TruncateToDay drops the time-of-day component, in UTC.
func TruncateToDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// NextStreak computes the consecutive-day count for an accepted submission on
// `today`: extend by one only when the last active day was exactly yesterday,
// otherwise start over at 1. A second accepted submission on the same day also
// recomputes from lastActive, which by then equals today, so it resets to 1.
func NextStreak(lastActive *time.Time, streak int, today time.Time) int {
	if lastActive == nil {
		return 1
	}
	yesterday := today.AddDate(0, 0, -1)
	if TruncateToDay(*lastActive).Equal(yesterday) {
		return streak + 1
	}
	return 1
}

// RecordAcceptedSubmission applies the three side effects of a fully-accepted
// submission in one transaction: the daily-activity marker, the streak
// transition, and the solved-problem record.
func (s *StreakService) RecordAcceptedSubmission(ctx context.Context, userID, problemID, submissionID string) error {
	release, err := s.locker.Acquire(ctx, "lock:streak:"+userID, config.AppConfig.StreakLockTTL)
	if err != nil {
		return common.Errorf("failed to serialize streak update for user %s: %w", userID, err)
	}
	defer release()

	today := TruncateToDay(time.Now())

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return common.Errorf("failed to load user %s for streak update: %w", userID, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return common.Errorf("failed to begin streak transaction: %w", err)
	}
	defer tx.Rollback()

	activity := &model.DailyActivity{
		ID:           uuid.NewString(),
		UserID:       userID,
		ActivityDate: today,
	}
	if err := s.activityRepo.RecordDailyActivity(ctx, tx, activity); err != nil {
		return common.Errorf("failed to record daily activity: %w", err)
	}

	newStreak := NextStreak(user.LastActive, user.Streak, today)
	if err := s.userRepo.UpdateStreak(ctx, tx, userID, newStreak, today); err != nil {
		return common.Errorf("failed to update streak: %w", err)
	}

	solved := &model.ProblemSolved{
		UserID:       userID,
		ProblemID:    problemID,
		SubmissionID: submissionID,
	}
	if err := s.activityRepo.MarkProblemSolved(ctx, tx, solved); err != nil {
		return common.Errorf("failed to mark problem solved: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return common.Errorf("failed to commit streak transaction: %w", err)
	}

	log.Printf("Streak for user %s is now %d (last active %s).", userID, newStreak, today.Format("2006-01-02"))
	return nil
}
