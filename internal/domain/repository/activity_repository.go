package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"judgehub/internal/domain/model"
)

type ActivityRepository interface {
	// RecordDailyActivity inserts the (user, day) marker. A duplicate insert is
	// benign: the unique constraint plus ON CONFLICT DO NOTHING make it a no-op.
	RecordDailyActivity(ctx context.Context, tx *sql.Tx, activity *model.DailyActivity) error
	// MarkProblemSolved is idempotent per (user, problem).
	MarkProblemSolved(ctx context.Context, tx *sql.Tx, solved *model.ProblemSolved) error
	ListDailyActivity(ctx context.Context, userID string, since time.Time) ([]model.DailyActivity, error)
	CountSolvedProblems(ctx context.Context, userID string) (int, error)
	GetLeaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error)
}

type pgActivityRepository struct {
	db *sql.DB
}

func NewPgActivityRepository(db *sql.DB) ActivityRepository {
	return &pgActivityRepository{db: db}
}

func (r *pgActivityRepository) RecordDailyActivity(ctx context.Context, tx *sql.Tx, activity *model.DailyActivity) error {
	query := `INSERT INTO daily_activity (id, user_id, activity_date)
	          VALUES ($1, $2, $3)
	          ON CONFLICT (user_id, activity_date) DO NOTHING`
	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, activity.ID, activity.UserID, activity.ActivityDate)
	} else {
		_, err = r.db.ExecContext(ctx, query, activity.ID, activity.UserID, activity.ActivityDate)
	}
	if err != nil {
		return fmt.Errorf("pgActivityRepository.RecordDailyActivity: %w", err)
	}
	return nil
}

func (r *pgActivityRepository) MarkProblemSolved(ctx context.Context, tx *sql.Tx, solved *model.ProblemSolved) error {
	query := `INSERT INTO problems_solved (user_id, problem_id, submission_id)
	          VALUES ($1, $2, $3)
	          ON CONFLICT (user_id, problem_id) DO NOTHING`
	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, solved.UserID, solved.ProblemID, solved.SubmissionID)
	} else {
		_, err = r.db.ExecContext(ctx, query, solved.UserID, solved.ProblemID, solved.SubmissionID)
	}
	if err != nil {
		return fmt.Errorf("pgActivityRepository.MarkProblemSolved: %w", err)
	}
	return nil
}

func (r *pgActivityRepository) ListDailyActivity(ctx context.Context, userID string, since time.Time) ([]model.DailyActivity, error) {
	query := `SELECT id, user_id, activity_date, created_at FROM daily_activity
	          WHERE user_id = $1 AND activity_date >= $2 ORDER BY activity_date DESC`
	rows, err := r.db.QueryContext(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("pgActivityRepository.ListDailyActivity query: %w", err)
	}
	defer rows.Close()

	var activities []model.DailyActivity
	for rows.Next() {
		var a model.DailyActivity
		if err := rows.Scan(&a.ID, &a.UserID, &a.ActivityDate, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("pgActivityRepository.ListDailyActivity scan: %w", err)
		}
		activities = append(activities, a)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgActivityRepository.ListDailyActivity rows.Err: %w", err)
	}
	return activities, nil
}

func (r *pgActivityRepository) CountSolvedProblems(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM problems_solved WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("pgActivityRepository.CountSolvedProblems: %w", err)
	}
	return count, nil
}

func (r *pgActivityRepository) GetLeaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	query := `SELECT u.id, u.username, u.streak, COUNT(ps.problem_id) AS solved
	          FROM users u
	          LEFT JOIN problems_solved ps ON ps.user_id = u.id
	          GROUP BY u.id, u.username, u.streak
	          ORDER BY solved DESC, u.username ASC
	          LIMIT $1`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("pgActivityRepository.GetLeaderboard query: %w", err)
	}
	defer rows.Close()

	entries := []model.LeaderboardEntry{}
	rank := 1
	for rows.Next() {
		var e model.LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.Username, &e.Streak, &e.ProblemsSolved); err != nil {
			return nil, fmt.Errorf("pgActivityRepository.GetLeaderboard scan: %w", err)
		}
		e.Rank = rank
		rank++
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgActivityRepository.GetLeaderboard rows.Err: %w", err)
	}
	return entries, nil
}
