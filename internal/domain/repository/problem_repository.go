package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"judgehub/internal/common"
	"judgehub/internal/domain/model"

	"github.com/jackc/pgx/v5/pgconn"
)

type ProblemRepository interface {
	CreateProblem(ctx context.Context, tx *sql.Tx, problem *model.Problem) error
	UpdateProblemStatus(ctx context.Context, tx *sql.Tx, problemID string, status model.ProblemStatus) error
	FindProblemByID(ctx context.Context, id string) (*model.Problem, error)
	FindProblemBySlug(ctx context.Context, slug string) (*model.Problem, error)
	ListProblems(ctx context.Context, limit, offset int, difficulty model.ProblemDifficulty, tags []string, status model.ProblemStatus) ([]model.Problem, int, error)

	AddTestCases(ctx context.Context, tx *sql.Tx, problemID string, testCases []model.TestCase) error
	GetTestCases(ctx context.Context, problemID string) ([]model.TestCase, error)

	AddReferenceSolutions(ctx context.Context, tx *sql.Tx, problemID string, solutions []model.ReferenceSolution) error
	GetReferenceSolutions(ctx context.Context, problemID string) ([]model.ReferenceSolution, error)

	AddTags(ctx context.Context, tx *sql.Tx, problemID string, tags []string) error
	GetTags(ctx context.Context, problemID string) ([]string, error)
}

type pgProblemRepository struct {
	db *sql.DB
}

func NewPgProblemRepository(db *sql.DB) ProblemRepository {
	return &pgProblemRepository{db: db}
}

func (r *pgProblemRepository) CreateProblem(ctx context.Context, tx *sql.Tx, p *model.Problem) error {
	query := `INSERT INTO problems (id, title, slug, description, difficulty, status, created_by)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, p.ID, p.Title, p.Slug, p.Description, p.Difficulty, p.Status, p.CreatedByID)
	} else {
		_, err = r.db.ExecContext(ctx, query, p.ID, p.Title, p.Slug, p.Description, p.Difficulty, p.Status, p.CreatedByID)
	}

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // Unique constraint for slug
			return fmt.Errorf("problem with this slug already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgProblemRepository.CreateProblem: %w", err)
	}
	return nil
}

func (r *pgProblemRepository) UpdateProblemStatus(ctx context.Context, tx *sql.Tx, problemID string, status model.ProblemStatus) error {
	query := `UPDATE problems SET status = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`
	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, status, problemID)
	} else {
		_, err = r.db.ExecContext(ctx, query, status, problemID)
	}
	if err != nil {
		return fmt.Errorf("pgProblemRepository.UpdateProblemStatus: %w", err)
	}
	return nil
}

const problemColumns = `id, title, slug, description, difficulty, status, created_by, created_at, updated_at`

func (r *pgProblemRepository) findProblem(ctx context.Context, where string, arg interface{}) (*model.Problem, error) {
	problem := &model.Problem{}
	err := r.db.QueryRowContext(ctx, `SELECT `+problemColumns+` FROM problems WHERE `+where, arg).Scan(
		&problem.ID, &problem.Title, &problem.Slug, &problem.Description, &problem.Difficulty, &problem.Status,
		&problem.CreatedByID, &problem.CreatedAt, &problem.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgProblemRepository.findProblem: %w", err)
	}
	return problem, nil
}

func (r *pgProblemRepository) FindProblemByID(ctx context.Context, id string) (*model.Problem, error) {
	return r.findProblem(ctx, "id = $1", id)
}

func (r *pgProblemRepository) FindProblemBySlug(ctx context.Context, slug string) (*model.Problem, error) {
	return r.findProblem(ctx, "slug = $1", slug)
}

func (r *pgProblemRepository) ListProblems(ctx context.Context, limit, offset int, difficulty model.ProblemDifficulty, tags []string, status model.ProblemStatus) ([]model.Problem, int, error) {
	var baseQuery strings.Builder
	baseQuery.WriteString(`SELECT DISTINCT p.id, p.title, p.slug, p.description, p.difficulty, p.status, p.created_by, p.created_at, p.updated_at FROM problems p`)

	var countQuery strings.Builder
	countQuery.WriteString(`SELECT COUNT(DISTINCT p.id) FROM problems p`)

	var conditions []string
	var args []interface{}
	argID := 1

	if len(tags) > 0 {
		baseQuery.WriteString(" JOIN problem_tags pt ON p.id = pt.problem_id")
		countQuery.WriteString(" JOIN problem_tags pt ON p.id = pt.problem_id")

		tagPlaceholders := make([]string, len(tags))
		for i := range tags {
			tagPlaceholders[i] = fmt.Sprintf("$%d", argID)
			args = append(args, tags[i])
			argID++
		}
		conditions = append(conditions, fmt.Sprintf("pt.tag IN (%s)", strings.Join(tagPlaceholders, ",")))
	}

	if difficulty != "" {
		conditions = append(conditions, fmt.Sprintf("p.difficulty = $%d", argID))
		args = append(args, difficulty)
		argID++
	}

	if status != "" { // e.g. only "Published" for non-admins
		conditions = append(conditions, fmt.Sprintf("p.status = $%d", argID))
		args = append(args, status)
		argID++
	}

	if len(conditions) > 0 {
		whereClause := " WHERE " + strings.Join(conditions, " AND ")
		baseQuery.WriteString(whereClause)
		countQuery.WriteString(whereClause)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, countQuery.String(), args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgProblemRepository.ListProblems count: %w", err)
	}

	baseQuery.WriteString(fmt.Sprintf(" ORDER BY p.created_at DESC LIMIT $%d OFFSET $%d", argID, argID+1))
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, baseQuery.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgProblemRepository.ListProblems query: %w", err)
	}
	defer rows.Close()

	problems := []model.Problem{}
	for rows.Next() {
		var p model.Problem
		if err := rows.Scan(&p.ID, &p.Title, &p.Slug, &p.Description, &p.Difficulty, &p.Status,
			&p.CreatedByID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("pgProblemRepository.ListProblems scan: %w", err)
		}
		problems = append(problems, p)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("pgProblemRepository.ListProblems rows.Err: %w", err)
	}

	return problems, total, nil
}

func (r *pgProblemRepository) AddTestCases(ctx context.Context, tx *sql.Tx, problemID string, testCases []model.TestCase) error {
	if len(testCases) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO test_cases (id, problem_id, input, expected_output, sort_order) VALUES ($1, $2, $3, $4, $5)`)
	if err != nil {
		return fmt.Errorf("pgProblemRepository.AddTestCases prepare: %w", err)
	}
	defer stmt.Close()

	for i, tc := range testCases {
		if _, err := stmt.ExecContext(ctx, tc.ID, problemID, tc.Input, tc.ExpectedOutput, i+1); err != nil {
			return fmt.Errorf("pgProblemRepository.AddTestCases exec for test case %s: %w", tc.ID, err)
		}
	}
	return nil
}

func (r *pgProblemRepository) GetTestCases(ctx context.Context, problemID string) ([]model.TestCase, error) {
	query := `SELECT id, problem_id, input, expected_output, sort_order, created_at
	          FROM test_cases WHERE problem_id = $1 ORDER BY sort_order ASC`
	rows, err := r.db.QueryContext(ctx, query, problemID)
	if err != nil {
		return nil, fmt.Errorf("pgProblemRepository.GetTestCases query: %w", err)
	}
	defer rows.Close()

	var testCases []model.TestCase
	for rows.Next() {
		var tc model.TestCase
		if err := rows.Scan(&tc.ID, &tc.ProblemID, &tc.Input, &tc.ExpectedOutput, &tc.SortOrder, &tc.CreatedAt); err != nil {
			return nil, fmt.Errorf("pgProblemRepository.GetTestCases scan: %w", err)
		}
		testCases = append(testCases, tc)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgProblemRepository.GetTestCases rows.Err: %w", err)
	}
	return testCases, nil
}

func (r *pgProblemRepository) AddReferenceSolutions(ctx context.Context, tx *sql.Tx, problemID string, solutions []model.ReferenceSolution) error {
	if len(solutions) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO reference_solutions (id, problem_id, language_id, source_code) VALUES ($1, $2, $3, $4)`)
	if err != nil {
		return fmt.Errorf("pgProblemRepository.AddReferenceSolutions prepare: %w", err)
	}
	defer stmt.Close()

	for _, sol := range solutions {
		if _, err := stmt.ExecContext(ctx, sol.ID, problemID, sol.LanguageID, sol.SourceCode); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return fmt.Errorf("duplicate reference solution language %d: %w", sol.LanguageID, common.ErrConflict)
			}
			return fmt.Errorf("pgProblemRepository.AddReferenceSolutions exec: %w", err)
		}
	}
	return nil
}

func (r *pgProblemRepository) GetReferenceSolutions(ctx context.Context, problemID string) ([]model.ReferenceSolution, error) {
	query := `SELECT id, problem_id, language_id, source_code, created_at
	          FROM reference_solutions WHERE problem_id = $1 ORDER BY language_id ASC`
	rows, err := r.db.QueryContext(ctx, query, problemID)
	if err != nil {
		return nil, fmt.Errorf("pgProblemRepository.GetReferenceSolutions query: %w", err)
	}
	defer rows.Close()

	var solutions []model.ReferenceSolution
	for rows.Next() {
		var sol model.ReferenceSolution
		if err := rows.Scan(&sol.ID, &sol.ProblemID, &sol.LanguageID, &sol.SourceCode, &sol.CreatedAt); err != nil {
			return nil, fmt.Errorf("pgProblemRepository.GetReferenceSolutions scan: %w", err)
		}
		solutions = append(solutions, sol)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgProblemRepository.GetReferenceSolutions rows.Err: %w", err)
	}
	return solutions, nil
}

func (r *pgProblemRepository) AddTags(ctx context.Context, tx *sql.Tx, problemID string, tags []string) error {
	if len(tags) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO problem_tags (problem_id, tag) VALUES ($1, $2) ON CONFLICT DO NOTHING`)
	if err != nil {
		return fmt.Errorf("pgProblemRepository.AddTags prepare: %w", err)
	}
	defer stmt.Close()

	for _, tag := range tags {
		if _, err := stmt.ExecContext(ctx, problemID, tag); err != nil {
			return fmt.Errorf("pgProblemRepository.AddTags exec for tag %s: %w", tag, err)
		}
	}
	return nil
}

func (r *pgProblemRepository) GetTags(ctx context.Context, problemID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT tag FROM problem_tags WHERE problem_id = $1 ORDER BY tag ASC`, problemID)
	if err != nil {
		return nil, fmt.Errorf("pgProblemRepository.GetTags query: %w", err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, fmt.Errorf("pgProblemRepository.GetTags scan: %w", err)
		}
		tags = append(tags, tag)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgProblemRepository.GetTags rows.Err: %w", err)
	}
	return tags, nil
}
