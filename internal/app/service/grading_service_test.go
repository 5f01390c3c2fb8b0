package service

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"judgehub/internal/common"
	"judgehub/internal/domain/model"
	"judgehub/internal/domain/repository"
	"judgehub/internal/judge"
)

// fakeJudgeClient answers batch submits and polls from memory and counts how
// often each was called.
type fakeJudgeClient struct {
	submitCalls int32
	pollCalls   int32
	outputs     []string
	submitErr   error
	pollErr     error
}

func (f *fakeJudgeClient) SubmitBatch(ctx context.Context, units []judge.Unit) ([]string, error) {
	atomic.AddInt32(&f.submitCalls, 1)
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	tokens := make([]string, len(units))
	for i := range units {
		tokens[i] = fmt.Sprintf("tok-%d", i)
	}
	return tokens, nil
}

func (f *fakeJudgeClient) PollBatch(ctx context.Context, tokens []string) ([]judge.Result, error) {
	atomic.AddInt32(&f.pollCalls, 1)
	if f.pollErr != nil {
		return nil, f.pollErr
	}
	results := make([]judge.Result, len(tokens))
	for i, token := range tokens {
		out := f.outputs[i]
		results[i] = judge.Result{Token: token, Stdout: &out}
		results[i].StatusField.ID = int(judge.StatusAccepted)
		results[i].StatusField.Description = judge.StatusAccepted.Description()
	}
	return results, nil
}

func validRequest() GradeRequest {
	return GradeRequest{
		SourceCode:      "print(int(input()) + 1)",
		LanguageID:      71,
		Stdin:           []string{"1", "2", "3"},
		ExpectedOutputs: []string{"2", "3", "4"},
	}
}

func TestExecuteHappyPath(t *testing.T) {
	client := &fakeJudgeClient{outputs: []string{"2", "3", "4"}}
	svc := NewGradingService(client, nil, nil, nil, nil)

	verdict, err := svc.Execute(context.Background(), "user-1", validRequest())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !verdict.AllPassed {
		t.Error("expected allPassed=true")
	}
	if len(verdict.Reports) != 3 {
		t.Fatalf("expected 3 reports, got %d", len(verdict.Reports))
	}
	if client.submitCalls != 1 || client.pollCalls != 1 {
		t.Errorf("expected exactly one submit and one poll, got %d / %d", client.submitCalls, client.pollCalls)
	}
}

func TestExecuteWrongOutputFailsVerdict(t *testing.T) {
	client := &fakeJudgeClient{outputs: []string{"2", "99", "4"}}
	svc := NewGradingService(client, nil, nil, nil, nil)

	verdict, err := svc.Execute(context.Background(), "user-1", validRequest())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if verdict.AllPassed {
		t.Error("expected allPassed=false")
	}
	if len(verdict.Reports) != 3 {
		t.Errorf("every test must still get a report, got %d", len(verdict.Reports))
	}
}

func TestExecuteValidationRejectsBeforeDispatch(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*GradeRequest)
	}{
		{"empty source", func(r *GradeRequest) { r.SourceCode = "" }},
		{"unknown language", func(r *GradeRequest) { r.LanguageID = 999 }},
		{"no test cases", func(r *GradeRequest) { r.Stdin = nil; r.ExpectedOutputs = nil }},
		{"length mismatch", func(r *GradeRequest) { r.Stdin = []string{"1", "2"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeJudgeClient{}
			svc := NewGradingService(client, nil, nil, nil, nil)

			req := validRequest()
			tt.mutate(&req)

			_, err := svc.Execute(context.Background(), "user-1", req)
			if !errors.Is(err, common.ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
			if client.submitCalls != 0 || client.pollCalls != 0 {
				t.Errorf("judge must not be called for invalid input, got %d submits / %d polls",
					client.submitCalls, client.pollCalls)
			}
		})
	}
}

func TestExecutePropagatesDispatchFailure(t *testing.T) {
	client := &fakeJudgeClient{submitErr: common.Errorf("judge unreachable: %w", common.ErrDispatch)}
	svc := NewGradingService(client, nil, nil, nil, nil)

	_, err := svc.Execute(context.Background(), "user-1", validRequest())
	if !errors.Is(err, common.ErrDispatch) {
		t.Errorf("expected ErrDispatch, got %v", err)
	}
	if client.pollCalls != 0 {
		t.Errorf("poll must not run after a failed dispatch, got %d calls", client.pollCalls)
	}
}

func TestExecutePropagatesPollTimeout(t *testing.T) {
	client := &fakeJudgeClient{pollErr: common.Errorf("gave up waiting: %w", common.ErrPollTimeout)}
	svc := NewGradingService(client, nil, nil, nil, nil)

	_, err := svc.Execute(context.Background(), "user-1", validRequest())
	if !errors.Is(err, common.ErrPollTimeout) {
		t.Errorf("expected ErrPollTimeout, got %v", err)
	}
}

func TestSubmitRequiresProblemID(t *testing.T) {
	client := &fakeJudgeClient{outputs: []string{"2", "3", "4"}}
	svc := NewGradingService(client, nil, nil, nil, nil)

	_, err := svc.Submit(context.Background(), "user-1", validRequest())
	if !errors.Is(err, common.ErrValidation) {
		t.Errorf("expected ErrValidation for missing problemId, got %v", err)
	}
	if client.submitCalls != 0 {
		t.Errorf("judge must not be called without a problemId, got %d submits", client.submitCalls)
	}
}

func TestBuildSubmissionAggregates(t *testing.T) {
	req := validRequest()
	verdict := &judge.Verdict{
		AllPassed: false,
		Reports: []judge.TestReport{
			{TestCase: 1, Passed: true, Stdout: "2", Expected: "2", Status: "Accepted", Memory: "1024 KB", Time: "0.01 s"},
			{TestCase: 2, Passed: false, Stdout: "99", Expected: "3", Status: "Wrong Answer"},
			{TestCase: 3, Passed: true, Stdout: "4", Expected: "4", Status: "Accepted"},
		},
	}

	sub := buildSubmission("user-1", "problem-1", req, verdict)
	if sub.Status != model.SubmissionRejected {
		t.Errorf("status = %q, want Rejected", sub.Status)
	}
	if len(sub.Stdout) != 3 || sub.Stdout[1] != "99" {
		t.Errorf("unexpected stdout aggregate: %v", sub.Stdout)
	}

	results := buildTestCaseResults(sub.ID, verdict)
	if len(results) != 3 {
		t.Fatalf("expected 3 test case results, got %d", len(results))
	}
	for i, res := range results {
		if res.TestIndex != i+1 {
			t.Errorf("result %d has index %d, want %d", i, res.TestIndex, i+1)
		}
		if res.SubmissionID != sub.ID {
			t.Errorf("result %d not linked to submission", i)
		}
	}
	if results[1].Passed {
		t.Error("failing test must be recorded as failed")
	}
}

func init() {
	sql.Register("gradingstub", stubDriver{})
}

// stubDriver backs a *sql.DB whose transactions always commit; the fake
// repositories below ignore the *sql.Tx they are handed.
type stubDriver struct{}

func (stubDriver) Open(name string) (driver.Conn, error) { return stubConn{}, nil }

type stubConn struct{}

func (stubConn) Prepare(query string) (driver.Stmt, error) {
	return nil, errors.New("prepare not supported")
}
func (stubConn) Close() error              { return nil }
func (stubConn) Begin() (driver.Tx, error) { return stubTx{}, nil }

type stubTx struct{}

func (stubTx) Commit() error   { return nil }
func (stubTx) Rollback() error { return nil }

func newStubDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("gradingstub", "")
	if err != nil {
		t.Fatalf("open stub db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

type fakeSubmissionRepo struct {
	submissions map[string]*model.Submission
	results     map[string][]model.TestCaseResult
}

func newFakeSubmissionRepo() *fakeSubmissionRepo {
	return &fakeSubmissionRepo{
		submissions: map[string]*model.Submission{},
		results:     map[string][]model.TestCaseResult{},
	}
}

func (f *fakeSubmissionRepo) CreateSubmission(ctx context.Context, tx *sql.Tx, sub *model.Submission) error {
	stored := *sub
	f.submissions[sub.ID] = &stored
	return nil
}

func (f *fakeSubmissionRepo) CreateTestCaseResults(ctx context.Context, tx *sql.Tx, results []model.TestCaseResult) error {
	for _, res := range results {
		f.results[res.SubmissionID] = append(f.results[res.SubmissionID], res)
	}
	return nil
}

func (f *fakeSubmissionRepo) GetSubmissionByID(ctx context.Context, id string) (*model.Submission, error) {
	sub, ok := f.submissions[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	copied := *sub
	return &copied, nil
}

func (f *fakeSubmissionRepo) GetTestCaseResults(ctx context.Context, submissionID string) ([]model.TestCaseResult, error) {
	return f.results[submissionID], nil
}

func (f *fakeSubmissionRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Submission, int, error) {
	var out []model.Submission
	for _, sub := range f.submissions {
		if sub.UserID == userID {
			out = append(out, *sub)
		}
	}
	return out, len(out), nil
}

type fakeProblemRepo struct {
	repository.ProblemRepository
	problem *model.Problem
}

func (f *fakeProblemRepo) FindProblemByID(ctx context.Context, id string) (*model.Problem, error) {
	if f.problem != nil && f.problem.ID == id {
		return f.problem, nil
	}
	return nil, common.ErrNotFound
}

type fakeStreakRecorder struct {
	calls            int
	lastSubmissionID string
	err              error
}

func (f *fakeStreakRecorder) RecordAcceptedSubmission(ctx context.Context, userID, problemID, submissionID string) error {
	f.calls++
	f.lastSubmissionID = submissionID
	return f.err
}

func newGradedService(t *testing.T, client *fakeJudgeClient, status model.ProblemStatus) (*GradingService, *fakeSubmissionRepo, *fakeStreakRecorder) {
	t.Helper()
	subRepo := newFakeSubmissionRepo()
	probRepo := &fakeProblemRepo{problem: &model.Problem{ID: "problem-1", Status: status}}
	streak := &fakeStreakRecorder{}
	return NewGradingService(client, subRepo, probRepo, streak, newStubDB(t)), subRepo, streak
}

func gradedRequest() GradeRequest {
	req := validRequest()
	problemID := "problem-1"
	req.ProblemID = &problemID
	return req
}

func TestSubmitAcceptedPersistsAndRecordsStreak(t *testing.T) {
	client := &fakeJudgeClient{outputs: []string{"2", "3", "4"}}
	svc, subRepo, streak := newGradedService(t, client, model.StatusPublished)

	sub, err := svc.Submit(context.Background(), "user-1", gradedRequest())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if sub.Status != model.SubmissionAccepted {
		t.Errorf("status = %q, want Accepted", sub.Status)
	}
	if len(sub.TestCaseResults) != 3 {
		t.Fatalf("expected 3 persisted test case results, got %d", len(sub.TestCaseResults))
	}
	if _, ok := subRepo.submissions[sub.ID]; !ok {
		t.Error("submission was not persisted")
	}
	if streak.calls != 1 {
		t.Errorf("streak updater called %d times, want 1", streak.calls)
	}
	if streak.lastSubmissionID != sub.ID {
		t.Errorf("streak updater got submission %s, want %s", streak.lastSubmissionID, sub.ID)
	}
}

func TestSubmitRejectedSkipsStreakSideEffects(t *testing.T) {
	client := &fakeJudgeClient{outputs: []string{"2", "99", "4"}}
	svc, subRepo, streak := newGradedService(t, client, model.StatusPublished)

	sub, err := svc.Submit(context.Background(), "user-1", gradedRequest())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if sub.Status != model.SubmissionRejected {
		t.Errorf("status = %q, want Rejected", sub.Status)
	}
	if streak.calls != 0 {
		t.Errorf("streak updater must not run on a rejected submission, got %d calls", streak.calls)
	}
	results := subRepo.results[sub.ID]
	if len(results) != 3 {
		t.Fatalf("expected 3 persisted test case results, got %d", len(results))
	}
	if results[0].Passed != true || results[1].Passed != false || results[2].Passed != true {
		t.Errorf("unexpected persisted pass pattern: %+v", results)
	}
}

func TestSubmitUnpublishedProblem(t *testing.T) {
	client := &fakeJudgeClient{outputs: []string{"2", "3", "4"}}
	svc, _, streak := newGradedService(t, client, model.StatusDraft)

	_, err := svc.Submit(context.Background(), "user-1", gradedRequest())
	if !errors.Is(err, common.ErrForbidden) {
		t.Errorf("expected ErrForbidden for unpublished problem, got %v", err)
	}
	if client.submitCalls != 0 {
		t.Errorf("judge must not run for an unpublished problem, got %d submits", client.submitCalls)
	}
	if streak.calls != 0 {
		t.Errorf("streak updater must not run, got %d calls", streak.calls)
	}
}

func TestSubmitSurfacesStreakFailure(t *testing.T) {
	client := &fakeJudgeClient{outputs: []string{"2", "3", "4"}}
	svc, subRepo, streak := newGradedService(t, client, model.StatusPublished)
	streak.err = common.ErrLockNotAcquired

	_, err := svc.Submit(context.Background(), "user-1", gradedRequest())
	if !errors.Is(err, common.ErrLockNotAcquired) {
		t.Fatalf("expected the streak failure to surface, got %v", err)
	}
	// The submission commit precedes the side effects; it must survive them.
	if len(subRepo.submissions) != 1 {
		t.Errorf("expected the committed submission to remain, got %d", len(subRepo.submissions))
	}
}
