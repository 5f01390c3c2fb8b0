package model

import "time"

// DailyActivity marks that a user had at least one fully-accepted submission
// on a calendar day. One row per (user, day), append-only.
type DailyActivity struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	ActivityDate time.Time `json:"activity_date"` // day-truncated
	CreatedAt    time.Time `json:"created_at"`
}

// ProblemSolved records the first accepted submission per (user, problem).
// Subsequent accepted submissions are no-ops.
type ProblemSolved struct {
	UserID       string    `json:"user_id"`
	ProblemID    string    `json:"problem_id"`
	SubmissionID string    `json:"submission_id"`
	SolvedAt     time.Time `json:"solved_at"`
}
