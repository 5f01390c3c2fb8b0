package judge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"judgehub/internal/common"
)

func testUnits(n int) []Unit {
	units := make([]Unit, n)
	for i := range units {
		units[i] = Unit{SourceCode: "print(input())", LanguageID: 71, Stdin: fmt.Sprintf("input %d", i)}
	}
	return units
}

func newTestClient(baseURL string, pollTimeout time.Duration) *HTTPClient {
	return NewHTTPClient(baseURL, "X-Auth-Token", "", 5*time.Millisecond, pollTimeout)
}

func TestSubmitBatchPreservesOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		var req batchSubmitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		entries := make([]batchSubmitEntry, len(req.Submissions))
		for i := range req.Submissions {
			entries[i] = batchSubmitEntry{Token: fmt.Sprintf("token-%d", i)}
		}
		json.NewEncoder(w).Encode(entries)
	}))
	defer server.Close()

	tokens, err := newTestClient(server.URL, time.Second).SubmitBatch(context.Background(), testUnits(3))
	if err != nil {
		t.Fatalf("SubmitBatch: %v", err)
	}
	if len(tokens) != 3 {
		t.Fatalf("expected 3 tokens, got %d", len(tokens))
	}
	for i, token := range tokens {
		if token != fmt.Sprintf("token-%d", i) {
			t.Errorf("token %d out of order: %s", i, token)
		}
	}
}

func TestSubmitBatchShortTokenList(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]batchSubmitEntry{{Token: "only-one"}})
	}))
	defer server.Close()

	_, err := newTestClient(server.URL, time.Second).SubmitBatch(context.Background(), testUnits(3))
	if !errors.Is(err, common.ErrDispatch) {
		t.Errorf("expected ErrDispatch for short token list, got %v", err)
	}
}

func TestSubmitBatchUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // Closed immediately: connection refused.

	_, err := newTestClient(server.URL, time.Second).SubmitBatch(context.Background(), testUnits(1))
	if !errors.Is(err, common.ErrDispatch) {
		t.Errorf("expected ErrDispatch when judge is unreachable, got %v", err)
	}
}

func TestSubmitBatchMalformedPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"not": "an array"}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL, time.Second).SubmitBatch(context.Background(), testUnits(1))
	if !errors.Is(err, common.ErrDispatch) {
		t.Errorf("expected ErrDispatch for malformed payload, got %v", err)
	}
}

func pollResult(token string, status Status, stdout string) Result {
	r := Result{Token: token, Stdout: &stdout}
	r.StatusField.ID = int(status)
	r.StatusField.Description = status.Description()
	return r
}

func TestPollBatchWaitsForAllTerminal(t *testing.T) {
	var polls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokens := strings.Split(r.URL.Query().Get("tokens"), ",")
		n := atomic.AddInt32(&polls, 1)

		results := make([]Result, len(tokens))
		for i, token := range tokens {
			// First cycle leaves the last token still processing.
			if n == 1 && i == len(tokens)-1 {
				results[i] = pollResult(token, StatusProcessing, "")
			} else {
				results[i] = pollResult(token, StatusAccepted, "out")
			}
		}
		json.NewEncoder(w).Encode(batchPollResponse{Submissions: results})
	}))
	defer server.Close()

	tokens := []string{"t0", "t1", "t2"}
	results, err := newTestClient(server.URL, time.Second).PollBatch(context.Background(), tokens)
	if err != nil {
		t.Fatalf("PollBatch: %v", err)
	}

	if atomic.LoadInt32(&polls) < 2 {
		t.Errorf("expected at least 2 poll cycles, got %d", polls)
	}
	if len(results) != len(tokens) {
		t.Fatalf("expected %d results, got %d", len(tokens), len(results))
	}
	for i, res := range results {
		if !res.Status().Terminal() {
			t.Errorf("result %d is non-terminal: %v", i, res.Status())
		}
		if res.Token != tokens[i] {
			t.Errorf("result %d misaligned: token %s", i, res.Token)
		}
	}
}

func TestPollBatchTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokens := strings.Split(r.URL.Query().Get("tokens"), ",")
		results := make([]Result, len(tokens))
		for i, token := range tokens {
			results[i] = pollResult(token, StatusInQueue, "")
		}
		json.NewEncoder(w).Encode(batchPollResponse{Submissions: results})
	}))
	defer server.Close()

	_, err := newTestClient(server.URL, 30*time.Millisecond).PollBatch(context.Background(), []string{"t0"})
	if !errors.Is(err, common.ErrPollTimeout) {
		t.Errorf("expected ErrPollTimeout, got %v", err)
	}
}

func TestPollBatchShortResultList(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(batchPollResponse{Submissions: []Result{pollResult("t0", StatusAccepted, "x")}})
	}))
	defer server.Close()

	_, err := newTestClient(server.URL, time.Second).PollBatch(context.Background(), []string{"t0", "t1"})
	if !errors.Is(err, common.ErrDispatch) {
		t.Errorf("expected ErrDispatch for short result list, got %v", err)
	}
}
