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
)

// streakRecorder applies the side effects of a fully-accepted submission.
// *StreakService is the production implementation.
type streakRecorder interface {
	RecordAcceptedSubmission(ctx context.Context, userID, problemID, submissionID string) error
}

// GradingService drives the grading pipeline: validate the request, dispatch
// the batch to the judge, poll until every run is terminal, aggregate the
// verdict, and (in graded mode) persist the outcome and update the user's
// streak state.
type GradingService struct {
	judgeClient    judge.Client
	submissionRepo repository.SubmissionRepository
	problemRepo    repository.ProblemRepository
	streak         streakRecorder
	db             *sql.DB // For transactions
}

func NewGradingService(
	judgeClient judge.Client,
	subRepo repository.SubmissionRepository,
	probRepo repository.ProblemRepository,
	streak streakRecorder,
	db *sql.DB,
) *GradingService {
	return &GradingService{
		judgeClient:    judgeClient,
		submissionRepo: subRepo,
		problemRepo:    probRepo,
		streak:         streak,
		db:             db,
	}
}

type GradeRequest struct {
	SourceCode      string   `json:"source_code"`
	LanguageID      int      `json:"language_id"`
	Stdin           []string `json:"stdin"`
	ExpectedOutputs []string `json:"expected_outputs"`
	ProblemID       *string  `json:"problemId,omitempty"`
}

// validate rejects malformed requests before any judge round trip is spent on
// them.
func (s *GradingService) validate(req GradeRequest) error {
	if req.SourceCode == "" {
		return common.Errorf("source_code is required: %w", common.ErrValidation)
	}
	if _, ok := model.LanguageByID(req.LanguageID); !ok {
		return common.Errorf("unsupported language_id %d: %w", req.LanguageID, common.ErrValidation)
	}
	if len(req.Stdin) == 0 {
		return common.Errorf("at least one test case is required: %w", common.ErrValidation)
	}
	if len(req.Stdin) != len(req.ExpectedOutputs) {
		return common.Errorf("stdin and expected_outputs length mismatch (%d vs %d): %w",
			len(req.Stdin), len(req.ExpectedOutputs), common.ErrValidation)
	}
	return nil
}

// run executes the three judge-facing stages: batch submit, poll, aggregate.
// Token order equals test-case order end to end.
func (s *GradingService) run(ctx context.Context, req GradeRequest) (*judge.Verdict, error) {
	units := make([]judge.Unit, len(req.Stdin))
	for i, stdin := range req.Stdin {
		units[i] = judge.Unit{SourceCode: req.SourceCode, LanguageID: req.LanguageID, Stdin: stdin}
	}

	tokens, err := s.judgeClient.SubmitBatch(ctx, units)
	if err != nil {
		return nil, common.Errorf("batch dispatch failed: %w", err)
	}

	results, err := s.judgeClient.PollBatch(ctx, tokens)
	if err != nil {
		return nil, common.Errorf("polling judge results failed: %w", err)
	}

	verdict := judge.Evaluate(results, req.ExpectedOutputs)
	return &verdict, nil
}

// Execute is the ungraded mode: run the pipeline and return the report without
// persisting anything.
func (s *GradingService) Execute(ctx context.Context, userID string, req GradeRequest) (*judge.Verdict, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	verdict, err := s.run(ctx, req)
	if err != nil {
		return nil, err
	}
	log.Printf("Execute for user %s: %d tests, allPassed=%v", userID, len(verdict.Reports), verdict.AllPassed)
	return verdict, nil
}

// Submit is the graded mode: run the pipeline, persist one Submission with its
// TestCaseResults in a single transaction, update streak state when everything
// passed, and return the re-read persisted aggregate. Any judge failure aborts
// before persistence; no partial Submission is ever written.
func (s *GradingService) Submit(ctx context.Context, userID string, req GradeRequest) (*model.Submission, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	if req.ProblemID == nil || *req.ProblemID == "" {
		return nil, common.Errorf("problemId is required for graded submissions: %w", common.ErrValidation)
	}

	problem, err := s.problemRepo.FindProblemByID(ctx, *req.ProblemID)
	if err != nil {
		return nil, common.Errorf("problem not found: %w", err)
	}
	if problem.Status != model.StatusPublished {
		return nil, common.Errorf("problem is not published: %w", common.ErrForbidden)
	}

	verdict, err := s.run(ctx, req)
	if err != nil {
		return nil, err
	}

	submission := buildSubmission(userID, problem.ID, req, verdict)
	testResults := buildTestCaseResults(submission.ID, verdict)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, common.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.submissionRepo.CreateSubmission(ctx, tx, submission); err != nil {
		return nil, common.Errorf("failed to create submission: %w", err)
	}
	if err := s.submissionRepo.CreateTestCaseResults(ctx, tx, testResults); err != nil {
		return nil, common.Errorf("failed to create test case results: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, common.Errorf("failed to commit submission transaction: %w", err)
	}

	if verdict.AllPassed {
		if err := s.streak.RecordAcceptedSubmission(ctx, userID, problem.ID, submission.ID); err != nil {
			// The submission row is already committed; the id in the error lets
			// the caller reconcile the missing streak state.
			return nil, common.Errorf("submission %s persisted but streak update failed: %w", submission.ID, err)
		}
	}

	persisted, err := s.submissionRepo.GetSubmissionByID(ctx, submission.ID)
	if err != nil {
		return nil, common.Errorf("failed to re-read submission %s: %w", submission.ID, err)
	}
	persisted.TestCaseResults, err = s.submissionRepo.GetTestCaseResults(ctx, submission.ID)
	if err != nil {
		return nil, common.Errorf("failed to read test case results for %s: %w", submission.ID, err)
	}

	log.Printf("Submission %s persisted with status %s (%d tests).", persisted.ID, persisted.Status, len(persisted.TestCaseResults))
	return persisted, nil
}

func (s *GradingService) GetSubmission(ctx context.Context, userID, submissionID string) (*model.Submission, error) {
	submission, err := s.submissionRepo.GetSubmissionByID(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if submission.UserID != userID {
		return nil, common.ErrForbidden
	}
	submission.TestCaseResults, err = s.submissionRepo.GetTestCaseResults(ctx, submissionID)
	if err != nil {
		return nil, common.Errorf("failed to read test case results for %s: %w", submissionID, err)
	}
	return submission, nil
}

func (s *GradingService) ListSubmissions(ctx context.Context, userID string, limit, offset int) ([]model.Submission, int, error) {
	return s.submissionRepo.ListByUser(ctx, userID, limit, offset)
}

func buildSubmission(userID, problemID string, req GradeRequest, verdict *judge.Verdict) *model.Submission {
	status := model.SubmissionRejected
	if verdict.AllPassed {
		status = model.SubmissionAccepted
	}

	sub := &model.Submission{
		ID:         uuid.NewString(),
		UserID:     userID,
		ProblemID:  problemID,
		SourceCode: req.SourceCode,
		LanguageID: req.LanguageID,
		Status:     status,
		Stdin:      req.Stdin,
	}
	for _, report := range verdict.Reports {
		sub.Stdout = append(sub.Stdout, report.Stdout)
		sub.Stderr = append(sub.Stderr, report.Stderr)
		sub.CompileOutput = append(sub.CompileOutput, report.CompileOutput)
		sub.Memory = append(sub.Memory, report.Memory)
		sub.Time = append(sub.Time, report.Time)
	}
	return sub
}

func buildTestCaseResults(submissionID string, verdict *judge.Verdict) []model.TestCaseResult {
	results := make([]model.TestCaseResult, 0, len(verdict.Reports))
	for _, report := range verdict.Reports {
		results = append(results, model.TestCaseResult{
			ID:                uuid.NewString(),
			SubmissionID:      submissionID,
			TestIndex:         report.TestCase,
			Passed:            report.Passed,
			Stdout:            report.Stdout,
			Expected:          report.Expected,
			Stderr:            report.Stderr,
			CompileOutput:     report.CompileOutput,
			StatusDescription: report.Status,
			Memory:            report.Memory,
			Time:              report.Time,
		})
	}
	return results
}
