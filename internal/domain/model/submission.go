package model

import "time"

type SubmissionStatus string

const (
	SubmissionAccepted SubmissionStatus = "Accepted"
	SubmissionRejected SubmissionStatus = "Rejected"
)

// Submission is the persisted aggregate for one graded request. The per-test
// arrays are index-aligned with the problem's test cases and serialized as
// JSON in the store. Immutable after creation except for its owned
// TestCaseResult children.
type Submission struct {
	ID              string           `json:"id"`
	UserID          string           `json:"user_id"`
	ProblemID       string           `json:"problem_id"`
	SourceCode      string           `json:"source_code"`
	LanguageID      int              `json:"language_id"`
	Status          SubmissionStatus `json:"status"`
	Stdin           []string         `json:"stdin"`
	Stdout          []string         `json:"stdout"`
	Stderr          []string         `json:"stderr"`
	CompileOutput   []string         `json:"compile_output"`
	Memory          []string         `json:"memory"`
	Time            []string         `json:"time"`
	SubmittedAt     time.Time        `json:"submitted_at"`
	TestCaseResults []TestCaseResult `json:"test_case_results,omitempty"`
}

// TestCaseResult is one per-test row owned by exactly one Submission; created
// once, never mutated. TestIndex is 1-based.
type TestCaseResult struct {
	ID                string    `json:"id"`
	SubmissionID      string    `json:"submission_id"`
	TestIndex         int       `json:"test_index"`
	Passed            bool      `json:"passed"`
	Stdout            string    `json:"stdout"`
	Expected          string    `json:"expected"`
	Stderr            string    `json:"stderr"`
	CompileOutput     string    `json:"compile_output"`
	StatusDescription string    `json:"status_description"`
	Memory            string    `json:"memory"`
	Time              string    `json:"time"`
	CreatedAt         time.Time `json:"created_at"`
}
