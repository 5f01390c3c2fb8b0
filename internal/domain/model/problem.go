package model

import (
	"time"
)

type ProblemDifficulty string
type ProblemStatus string

const (
	DifficultyEasy   ProblemDifficulty = "EASY"
	DifficultyMedium ProblemDifficulty = "MEDIUM"
	DifficultyHard   ProblemDifficulty = "HARD"

	StatusDraft             ProblemStatus = "Draft"
	StatusPendingValidation ProblemStatus = "PendingValidation"
	StatusPublished         ProblemStatus = "Published"
	StatusValidationFailed  ProblemStatus = "ValidationFailed"
)

type Problem struct {
	ID                 string              `json:"id"`
	Title              string              `json:"title"`
	Slug               string              `json:"slug"`
	Description        string              `json:"description"`
	Difficulty         ProblemDifficulty   `json:"difficulty"`
	Status             ProblemStatus       `json:"status"`
	CreatedByID        *string             `json:"created_by_id,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
	Tags               []string            `json:"tags,omitempty"`
	TestCases          []TestCase          `json:"test_cases,omitempty"`          // ordered; hidden from non-admins
	ReferenceSolutions []ReferenceSolution `json:"reference_solutions,omitempty"` // admin only view
}

type TestCase struct {
	ID             string    `json:"id"`
	ProblemID      string    `json:"problem_id"`
	Input          string    `json:"input"`
	ExpectedOutput string    `json:"expected_output"`
	SortOrder      int       `json:"sort_order"`
	CreatedAt      time.Time `json:"created_at"`
}

// ReferenceSolution is the problem author's known-good solution, one per
// language. Running it against the test cases gates publication.
type ReferenceSolution struct {
	ID         string    `json:"id"`
	ProblemID  string    `json:"problem_id"`
	LanguageID int       `json:"language_id"`
	SourceCode string    `json:"source_code"`
	CreatedAt  time.Time `json:"created_at"`
}
