// Package runner executes programmatic test suites sequentially and
// classifies outcomes for the reporter.
package runner

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/life4/genesis/slices"
	"github.com/mykhaliev/agent-testkit/assertions"
	"github.com/mykhaliev/agent-testkit/logger"
	"github.com/mykhaliev/agent-testkit/model"
)

// Case is a single test. Run receives the params set for the current
// expansion, or nil when the case has no params. A returned assertion
// Failure marks the case failed with its message; any other error is
// reported as unexpected.
type Case struct {
	Name       string
	Skip       bool
	SkipReason string
	Params     []map[string]string
	Run        func(params map[string]string) error
}

// Suite is an ordered collection of cases with optional setup/teardown
// hooks around the whole run.
type Suite struct {
	Name     string
	Setup    func() error
	Teardown func() error
	Cases    []Case
}

// Run executes the suite's cases in order, one at a time. Each params set
// of a case produces an independent result. A setup error aborts the run;
// teardown always runs after the cases.
func Run(suite Suite) ([]model.TestResult, model.Summary, error) {
	start := time.Now()

	if suite.Setup != nil {
		if err := suite.Setup(); err != nil {
			return nil, model.Summary{}, fmt.Errorf("suite %q setup: %w", suite.Name, err)
		}
	}
	if suite.Teardown != nil {
		defer func() {
			if err := suite.Teardown(); err != nil {
				logger.Logger.Warn("Suite teardown failed", "suite", suite.Name, "error", err)
			}
		}()
	}

	var results []model.TestResult
	for _, c := range suite.Cases {
		if len(c.Params) == 0 {
			results = append(results, runCase(c, c.Name, nil))
			continue
		}
		for _, params := range c.Params {
			results = append(results, runCase(c, expandName(c.Name, params), params))
		}
	}

	summary := model.Summarize(results, time.Since(start))
	logger.Logger.Info("Suite finished",
		"suite", suite.Name,
		"total", summary.Total,
		"passed", summary.Passed,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
	)
	return results, summary, nil
}

func runCase(c Case, name string, params map[string]string) model.TestResult {
	result := model.TestResult{Name: name, Params: params, StartTime: time.Now()}

	if c.Skip {
		result.Status = model.StatusSkipped
		result.Message = c.SkipReason
		result.EndTime = result.StartTime
		logger.Logger.Debug("Skipped test", "name", name, "reason", c.SkipReason)
		return result
	}

	err := c.Run(params)
	result.EndTime = time.Now()
	result.DurationMs = result.EndTime.Sub(result.StartTime).Milliseconds()

	switch {
	case err == nil:
		result.Status = model.StatusPassed
	case assertions.IsFailure(err):
		result.Status = model.StatusFailed
		result.Message = err.Error()
	default:
		result.Status = model.StatusFailed
		result.Message = fmt.Sprintf("Unexpected error: %v", err)
	}

	logger.Logger.Debug("Finished test", "name", name, "status", result.Status)
	return result
}

// expandName builds the result name for one params set, e.g.
// "greeting[lang=en, tone=formal]". Keys are sorted for stable naming.
func expandName(name string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := slices.Map(keys, func(k string) string {
		return fmt.Sprintf("%s=%s", k, params[k])
	})
	return fmt.Sprintf("%s[%s]", name, strings.Join(pairs, ", "))
}

// Failed returns only the failed results.
func Failed(results []model.TestResult) []model.TestResult {
	return slices.Filter(results, func(r model.TestResult) bool {
		return r.Status == model.StatusFailed
	})
}
