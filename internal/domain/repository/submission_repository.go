package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"judgehub/internal/common"
	"judgehub/internal/domain/model"
)

type SubmissionRepository interface {
	CreateSubmission(ctx context.Context, tx *sql.Tx, sub *model.Submission) error
	CreateTestCaseResults(ctx context.Context, tx *sql.Tx, results []model.TestCaseResult) error
	GetSubmissionByID(ctx context.Context, id string) (*model.Submission, error)
	GetTestCaseResults(ctx context.Context, submissionID string) ([]model.TestCaseResult, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Submission, int, error)
}

type pgSubmissionRepository struct {
	db *sql.DB
}

func NewPgSubmissionRepository(db *sql.DB) SubmissionRepository {
	return &pgSubmissionRepository{db: db}
}

// The per-test arrays are stored as JSON text columns; marshalJSONArray and
// unmarshalJSONArray keep the model working in []string.
func marshalJSONArray(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	b, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalJSONArray(raw string, dest *[]string) error {
	if raw == "" {
		*dest = []string{}
		return nil
	}
	return json.Unmarshal([]byte(raw), dest)
}

func (r *pgSubmissionRepository) CreateSubmission(ctx context.Context, tx *sql.Tx, sub *model.Submission) error {
	arrays := [6][]string{sub.Stdin, sub.Stdout, sub.Stderr, sub.CompileOutput, sub.Memory, sub.Time}
	serialized := make([]string, len(arrays))
	for i, a := range arrays {
		s, err := marshalJSONArray(a)
		if err != nil {
			return fmt.Errorf("pgSubmissionRepository.CreateSubmission marshal: %w", err)
		}
		serialized[i] = s
	}

	query := `INSERT INTO submissions
	              (id, user_id, problem_id, source_code, language_id, status,
	               stdin, stdout, stderr, compile_output, memory, run_time)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	var err error
	args := []interface{}{
		sub.ID, sub.UserID, sub.ProblemID, sub.SourceCode, sub.LanguageID, sub.Status,
		serialized[0], serialized[1], serialized[2], serialized[3], serialized[4], serialized[5],
	}
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, args...)
	} else {
		_, err = r.db.ExecContext(ctx, query, args...)
	}
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.CreateSubmission: %w", err)
	}
	return nil
}

func (r *pgSubmissionRepository) CreateTestCaseResults(ctx context.Context, tx *sql.Tx, results []model.TestCaseResult) error {
	if len(results) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO submission_test_results
	        (id, submission_id, test_index, passed, stdout, expected, stderr, compile_output, status_description, memory, run_time)
	    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`)
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.CreateTestCaseResults prepare: %w", err)
	}
	defer stmt.Close()

	for _, res := range results {
		_, err := stmt.ExecContext(ctx, res.ID, res.SubmissionID, res.TestIndex, res.Passed,
			res.Stdout, res.Expected, res.Stderr, res.CompileOutput, res.StatusDescription, res.Memory, res.Time)
		if err != nil {
			return fmt.Errorf("pgSubmissionRepository.CreateTestCaseResults exec for test %d: %w", res.TestIndex, err)
		}
	}
	return nil
}

const submissionColumns = `id, user_id, problem_id, source_code, language_id, status,
	stdin, stdout, stderr, compile_output, memory, run_time, submitted_at`

func scanSubmission(scan func(dest ...interface{}) error) (*model.Submission, error) {
	sub := &model.Submission{}
	var rawStdin, rawStdout, rawStderr, rawCompile, rawMemory, rawTime string
	err := scan(
		&sub.ID, &sub.UserID, &sub.ProblemID, &sub.SourceCode, &sub.LanguageID, &sub.Status,
		&rawStdin, &rawStdout, &rawStderr, &rawCompile, &rawMemory, &rawTime, &sub.SubmittedAt,
	)
	if err != nil {
		return nil, err
	}
	pairs := []struct {
		raw  string
		dest *[]string
	}{
		{rawStdin, &sub.Stdin}, {rawStdout, &sub.Stdout}, {rawStderr, &sub.Stderr},
		{rawCompile, &sub.CompileOutput}, {rawMemory, &sub.Memory}, {rawTime, &sub.Time},
	}
	for _, p := range pairs {
		if err := unmarshalJSONArray(p.raw, p.dest); err != nil {
			return nil, fmt.Errorf("unmarshal submission arrays: %w", err)
		}
	}
	return sub, nil
}

func (r *pgSubmissionRepository) GetSubmissionByID(ctx context.Context, id string) (*model.Submission, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE id = $1`, id)
	sub, err := scanSubmission(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgSubmissionRepository.GetSubmissionByID: %w", err)
	}
	return sub, nil
}

func (r *pgSubmissionRepository) GetTestCaseResults(ctx context.Context, submissionID string) ([]model.TestCaseResult, error) {
	query := `SELECT id, submission_id, test_index, passed, stdout, expected, stderr,
	                 compile_output, status_description, memory, run_time, created_at
	          FROM submission_test_results WHERE submission_id = $1 ORDER BY test_index ASC`
	rows, err := r.db.QueryContext(ctx, query, submissionID)
	if err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.GetTestCaseResults query: %w", err)
	}
	defer rows.Close()

	var results []model.TestCaseResult
	for rows.Next() {
		var res model.TestCaseResult
		if err := rows.Scan(&res.ID, &res.SubmissionID, &res.TestIndex, &res.Passed, &res.Stdout, &res.Expected,
			&res.Stderr, &res.CompileOutput, &res.StatusDescription, &res.Memory, &res.Time, &res.CreatedAt); err != nil {
			return nil, fmt.Errorf("pgSubmissionRepository.GetTestCaseResults scan: %w", err)
		}
		results = append(results, res)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.GetTestCaseResults rows.Err: %w", err)
	}
	return results, nil
}

func (r *pgSubmissionRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Submission, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM submissions WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgSubmissionRepository.ListByUser count: %w", err)
	}

	query := `SELECT ` + submissionColumns + ` FROM submissions
	          WHERE user_id = $1 ORDER BY submitted_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("pgSubmissionRepository.ListByUser query: %w", err)
	}
	defer rows.Close()

	submissions := []model.Submission{}
	for rows.Next() {
		sub, err := scanSubmission(rows.Scan)
		if err != nil {
			return nil, 0, fmt.Errorf("pgSubmissionRepository.ListByUser scan: %w", err)
		}
		submissions = append(submissions, *sub)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("pgSubmissionRepository.ListByUser rows.Err: %w", err)
	}
	return submissions, total, nil
}
