package service

import (
	"context"
	"database/sql"
	"log"

	"judgehub/internal/common"
	"judgehub/internal/domain/model"
	"judgehub/internal/domain/repository"
	"judgehub/internal/judge"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

type ProblemService struct {
	problemRepo repository.ProblemRepository
	judgeClient judge.Client
	db          *sql.DB // For transactions
}

func NewProblemService(problemRepo repository.ProblemRepository, judgeClient judge.Client, db *sql.DB) *ProblemService {
	return &ProblemService{problemRepo: problemRepo, judgeClient: judgeClient, db: db}
}

type CreateProblemRequest struct {
	Title       string                  `json:"title"`
	Description string                  `json:"description"`
	Difficulty  model.ProblemDifficulty `json:"difficulty"`
	Tags        []string                `json:"tags"`
	TestCases   []CreateTestCaseRequest `json:"test_cases"`
	Solutions   []CreateSolutionRequest `json:"reference_solutions"`
}

type CreateTestCaseRequest struct {
	Input          string `json:"input"`
	ExpectedOutput string `json:"expected_output"`
}

type CreateSolutionRequest struct {
	LanguageID int    `json:"language_id"`
	SourceCode string `json:"source_code"`
}

func (s *ProblemService) CreateProblem(ctx context.Context, userID string, req CreateProblemRequest) (*model.Problem, error) {
	if req.Title == "" || req.Description == "" {
		return nil, common.Errorf("title and description are required: %w", common.ErrValidation)
	}
	switch req.Difficulty {
	case model.DifficultyEasy, model.DifficultyMedium, model.DifficultyHard:
	default:
		return nil, common.Errorf("invalid difficulty %q: %w", req.Difficulty, common.ErrValidation)
	}
	if len(req.TestCases) == 0 {
		return nil, common.Errorf("at least one test case is required: %w", common.ErrValidation)
	}
	if len(req.Solutions) == 0 {
		return nil, common.Errorf("at least one reference solution is required: %w", common.ErrValidation)
	}
	for _, sol := range req.Solutions {
		if _, ok := model.LanguageByID(sol.LanguageID); !ok {
			return nil, common.Errorf("unsupported solution language_id %d: %w", sol.LanguageID, common.ErrValidation)
		}
	}

	problem := &model.Problem{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Slug:        slug.Make(req.Title),
		Description: req.Description,
		Difficulty:  req.Difficulty,
		Status:      model.StatusPendingValidation,
		CreatedByID: &userID,
		Tags:        req.Tags,
	}

	testCases := make([]model.TestCase, len(req.TestCases))
	for i, tc := range req.TestCases {
		testCases[i] = model.TestCase{
			ID:             uuid.NewString(),
			ProblemID:      problem.ID,
			Input:          tc.Input,
			ExpectedOutput: tc.ExpectedOutput,
			SortOrder:      i + 1,
		}
	}
	solutions := make([]model.ReferenceSolution, len(req.Solutions))
	for i, sol := range req.Solutions {
		solutions[i] = model.ReferenceSolution{
			ID:         uuid.NewString(),
			ProblemID:  problem.ID,
			LanguageID: sol.LanguageID,
			SourceCode: sol.SourceCode,
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, common.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.problemRepo.CreateProblem(ctx, tx, problem); err != nil {
		return nil, err
	}
	if err := s.problemRepo.AddTestCases(ctx, tx, problem.ID, testCases); err != nil {
		return nil, err
	}
	if err := s.problemRepo.AddReferenceSolutions(ctx, tx, problem.ID, solutions); err != nil {
		return nil, err
	}
	if err := s.problemRepo.AddTags(ctx, tx, problem.ID, req.Tags); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, common.Errorf("failed to commit problem transaction: %w", err)
	}

	// Validate synchronously: the problem only goes live once every reference
	// solution runs cleanly and matches the expected outputs.
	status, err := s.validateProblem(ctx, testCases, solutions)
	if err != nil {
		log.Printf("ERROR: Validation run for problem %s failed: %v", problem.ID, err)
		status = model.StatusValidationFailed
	}
	if err := s.problemRepo.UpdateProblemStatus(ctx, nil, problem.ID, status); err != nil {
		return nil, common.Errorf("failed to update problem status after validation: %w", err)
	}

	problem.Status = status
	problem.TestCases = testCases
	problem.ReferenceSolutions = solutions
	log.Printf("Problem %s (%s) created with status %s.", problem.ID, problem.Slug, status)
	return problem, nil
}

// validateProblem runs every reference solution against the problem's test
// cases. Publication requires each run to finish with a successful-run status
// (id 3) and output matching the expected output.
func (s *ProblemService) validateProblem(ctx context.Context, testCases []model.TestCase, solutions []model.ReferenceSolution) (model.ProblemStatus, error) {
	expected := make([]string, len(testCases))
	for i, tc := range testCases {
		expected[i] = tc.ExpectedOutput
	}

	for _, sol := range solutions {
		units := make([]judge.Unit, len(testCases))
		for i, tc := range testCases {
			units[i] = judge.Unit{SourceCode: sol.SourceCode, LanguageID: sol.LanguageID, Stdin: tc.Input}
		}

		tokens, err := s.judgeClient.SubmitBatch(ctx, units)
		if err != nil {
			return "", err
		}
		results, err := s.judgeClient.PollBatch(ctx, tokens)
		if err != nil {
			return "", err
		}

		for _, res := range results {
			if res.Status() != judge.StatusAccepted {
				log.Printf("WARN: Reference solution (language %d) hit %q during validation.", sol.LanguageID, res.Status().Description())
				return model.StatusValidationFailed, nil
			}
		}
		if verdict := judge.Evaluate(results, expected); !verdict.AllPassed {
			log.Printf("WARN: Reference solution (language %d) output mismatch during validation.", sol.LanguageID)
			return model.StatusValidationFailed, nil
		}
	}
	return model.StatusPublished, nil
}

func (s *ProblemService) GetProblemBySlug(ctx context.Context, problemSlug, userRole string) (*model.Problem, error) {
	problem, err := s.problemRepo.FindProblemBySlug(ctx, problemSlug)
	if err != nil {
		return nil, err
	}
	if problem.Status != model.StatusPublished && userRole != model.RoleAdmin {
		return nil, common.ErrNotFound
	}

	problem.Tags, err = s.problemRepo.GetTags(ctx, problem.ID)
	if err != nil {
		return nil, err
	}
	problem.TestCases, err = s.problemRepo.GetTestCases(ctx, problem.ID)
	if err != nil {
		return nil, err
	}
	if userRole == model.RoleAdmin {
		problem.ReferenceSolutions, err = s.problemRepo.GetReferenceSolutions(ctx, problem.ID)
		if err != nil {
			return nil, err
		}
	}
	return problem, nil
}

func (s *ProblemService) ListProblems(ctx context.Context, page, pageSize int, difficulty model.ProblemDifficulty, tags []string, userRole string) ([]model.Problem, int, error) {
	status := model.StatusPublished
	if userRole == model.RoleAdmin {
		status = "" // Admins see all statuses
	}
	offset := (page - 1) * pageSize
	return s.problemRepo.ListProblems(ctx, pageSize, offset, difficulty, tags, status)
}
