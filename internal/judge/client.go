package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"judgehub/internal/common"
)

// Unit is one test-case run to dispatch: the user's code, the language to
// compile it as, and the stdin to feed it.
type Unit struct {
	SourceCode string `json:"source_code"`
	LanguageID int    `json:"language_id"`
	Stdin      string `json:"stdin"`
}

// Result is the raw per-run outcome reported by the judge.
type Result struct {
	Token         string  `json:"token"`
	Stdout        *string `json:"stdout"`
	Stderr        *string `json:"stderr"`
	CompileOutput *string `json:"compile_output"`
	Memory        *int    `json:"memory"` // KB
	Time          *string `json:"time"`   // seconds, e.g. "0.002"
	StatusField   struct {
		ID          int    `json:"id"`
		Description string `json:"description"`
	} `json:"status"`
}

func (r Result) Status() Status {
	return Status(r.StatusField.ID)
}

// Client is the judge-facing contract the grading pipeline consumes.
// SubmitBatch and PollBatch both preserve index alignment: token i belongs to
// unit i, result i belongs to token i.
type Client interface {
	SubmitBatch(ctx context.Context, units []Unit) ([]string, error)
	PollBatch(ctx context.Context, tokens []string) ([]Result, error)
}

type HTTPClient struct {
	baseURL      string
	authHeader   string
	authToken    string
	pollInterval time.Duration
	pollTimeout  time.Duration
	httpc        *http.Client
}

func NewHTTPClient(baseURL, authHeader, authToken string, pollInterval, pollTimeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL:      strings.TrimRight(baseURL, "/"),
		authHeader:   authHeader,
		authToken:    authToken,
		pollInterval: pollInterval,
		pollTimeout:  pollTimeout,
		httpc:        &http.Client{Timeout: 15 * time.Second},
	}
}

type batchSubmitRequest struct {
	Submissions []Unit `json:"submissions"`
}

type batchSubmitEntry struct {
	Token string `json:"token"`
}

// SubmitBatch sends the whole ordered batch in one request and returns one
// token per unit, index-aligned with the input.
func (c *HTTPClient) SubmitBatch(ctx context.Context, units []Unit) ([]string, error) {
	if len(units) == 0 {
		return nil, common.Errorf("empty batch: %w", common.ErrValidation)
	}

	body, err := json.Marshal(batchSubmitRequest{Submissions: units})
	if err != nil {
		return nil, common.Errorf("failed to marshal batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/submissions/batch?base64_encoded=false", bytes.NewReader(body))
	if err != nil {
		return nil, common.Errorf("failed to build batch request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		req.Header.Set(c.authHeader, c.authToken)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, common.Errorf("judge unreachable: %v: %w", err, common.ErrDispatch)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, common.Errorf("judge returned status %d for batch submit: %w", resp.StatusCode, common.ErrDispatch)
	}

	var entries []batchSubmitEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, common.Errorf("malformed batch submit response: %v: %w", err, common.ErrDispatch)
	}
	if len(entries) != len(units) {
		return nil, common.Errorf("judge returned %d tokens for %d units: %w", len(entries), len(units), common.ErrDispatch)
	}

	tokens := make([]string, len(entries))
	for i, e := range entries {
		if e.Token == "" {
			return nil, common.Errorf("judge returned no token for unit %d: %w", i+1, common.ErrDispatch)
		}
		tokens[i] = e.Token
	}
	return tokens, nil
}

type batchPollResponse struct {
	Submissions []Result `json:"submissions"`
}

// PollBatch queries all tokens in one request per cycle and keeps polling until
// every result is terminal. It never returns a mix of terminal and queued or
// processing entries; a partially-terminal batch just means another cycle.
// The loop is bounded by the configured poll timeout and by ctx, either of
// which surfaces as ErrPollTimeout.
func (c *HTTPClient) PollBatch(ctx context.Context, tokens []string) ([]Result, error) {
	if len(tokens) == 0 {
		return nil, common.Errorf("empty token list: %w", common.ErrValidation)
	}

	ctx, cancel := context.WithTimeout(ctx, c.pollTimeout)
	defer cancel()

	for {
		results, err := c.pollOnce(ctx, tokens)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				return nil, common.Errorf("judge results did not resolve in time: %w", common.ErrPollTimeout)
			}
			return nil, err
		}

		if allTerminal(results) {
			return results, nil
		}

		select {
		case <-ctx.Done():
			return nil, common.Errorf("judge results did not resolve in time: %w", common.ErrPollTimeout)
		case <-time.After(c.pollInterval):
		}
	}
}

func (c *HTTPClient) pollOnce(ctx context.Context, tokens []string) ([]Result, error) {
	endpoint := fmt.Sprintf("%s/submissions/batch?tokens=%s&base64_encoded=false&fields=token,stdout,stderr,compile_output,memory,time,status",
		c.baseURL, url.QueryEscape(strings.Join(tokens, ",")))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, common.Errorf("failed to build poll request: %w", err)
	}
	if c.authToken != "" {
		req.Header.Set(c.authHeader, c.authToken)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, common.Errorf("judge unreachable during poll: %v: %w", err, common.ErrDispatch)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, common.Errorf("judge returned status %d for batch poll: %w", resp.StatusCode, common.ErrDispatch)
	}

	var payload batchPollResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, common.Errorf("malformed batch poll response: %v: %w", err, common.ErrDispatch)
	}
	if len(payload.Submissions) != len(tokens) {
		return nil, common.Errorf("judge returned %d results for %d tokens: %w", len(payload.Submissions), len(tokens), common.ErrDispatch)
	}
	return payload.Submissions, nil
}

func allTerminal(results []Result) bool {
	for _, r := range results {
		if !r.Status().Terminal() {
			return false
		}
	}
	return true
}
