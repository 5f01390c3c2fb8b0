package judge

import (
	"fmt"
	"strings"
)

// TestReport is one entry of the per-submission report, index-aligned with the
// test cases that were dispatched. TestCase is 1-based.
type TestReport struct {
	TestCase      int    `json:"testCase"`
	Passed        bool   `json:"passed"`
	Stdout        string `json:"stdout"`
	Expected      string `json:"expected"`
	Stderr        string `json:"stderr"`
	CompileOutput string `json:"compile_output"`
	Status        string `json:"status"`
	Memory        string `json:"memory"`
	Time          string `json:"time"`
}

type Verdict struct {
	AllPassed bool         `json:"allPassed"`
	Reports   []TestReport `json:"results"`
}

// Normalize strips every whitespace run from s. Missing output compares as the
// empty string, so a test with no expected output passes only when the actual
// output is also all-whitespace or empty.
func Normalize(s string) string {
	return strings.Join(strings.Fields(s), "")
}

// Evaluate combines index-aligned judge results and expected outputs into the
// per-test report and the overall verdict. Every test is evaluated; a failure
// never short-circuits the rest of the batch. len(expected) must equal
// len(results), which the pipeline guarantees before dispatch.
func Evaluate(results []Result, expected []string) Verdict {
	verdict := Verdict{AllPassed: true, Reports: make([]TestReport, 0, len(results))}

	for i, res := range results {
		stdout := deref(res.Stdout)
		passed := Normalize(stdout) == Normalize(expected[i])
		if !passed {
			verdict.AllPassed = false
		}

		report := TestReport{
			TestCase:      i + 1,
			Passed:        passed,
			Stdout:        strings.TrimSpace(stdout),
			Expected:      strings.TrimSpace(expected[i]),
			Stderr:        deref(res.Stderr),
			CompileOutput: deref(res.CompileOutput),
			Status:        res.Status().Description(),
		}
		if res.Memory != nil {
			report.Memory = fmt.Sprintf("%d KB", *res.Memory)
		}
		if res.Time != nil {
			report.Time = fmt.Sprintf("%s s", *res.Time)
		}
		verdict.Reports = append(verdict.Reports, report)
	}

	return verdict
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
