// Package engine orchestrates a YAML test plan end to end: it builds the
// mock LLM from the plan's rules, executes every test against it, checks the
// success-rate criteria and emits the requested reports.
package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/life4/genesis/slices"
	"github.com/mykhaliev/agent-testkit/docs"
	"github.com/mykhaliev/agent-testkit/logger"
	"github.com/mykhaliev/agent-testkit/mock"
	"github.com/mykhaliev/agent-testkit/model"
	"github.com/mykhaliev/agent-testkit/report"
	"github.com/mykhaliev/agent-testkit/templates"
)

// Run executes the plan at planPath and generates one report per requested
// type into outputDir. The bool reports whether the plan met its criteria.
func Run(planPath string, reportTypes []string, outputDir string, verbose bool) (bool, error) {
	templates.RegisterHelpers()

	for _, rt := range reportTypes {
		if err := report.ValidateReportType(rt); err != nil {
			return false, err
		}
	}

	plan, err := model.ParsePlan(planPath)
	if err != nil {
		return false, err
	}
	if verbose || plan.Settings.Verbose {
		logger.SetupLogger(os.Stdout, true)
	}
	logger.Logger.Info("Loaded test plan", "name", plan.Name, "tests", len(plan.Tests))

	llm, err := BuildMockLLM(plan.Mock)
	if err != nil {
		return false, err
	}

	var documents []string
	if plan.Settings.DocsDir != "" {
		dir := plan.Settings.DocsDir
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(filepath.Dir(planPath), dir)
		}
		loaded, err := docs.LoadDir(dir)
		if err != nil {
			return false, err
		}
		documents = docs.Texts(loaded)
	}

	templateCtx := CreateStaticTemplateContext(planPath, plan.Variables)

	start := time.Now()
	results := runTests(plan, llm, documents, templateCtx)
	summary := model.Summarize(results, time.Since(start))

	passed, err := checkCriteria(plan.Criteria, summary)
	if err != nil {
		return false, err
	}

	generator, err := report.NewGenerator(plan.Name)
	if err != nil {
		return false, err
	}
	for _, rt := range reportTypes {
		if err := generator.Generate(results, summary, rt, reportPath(outputDir, rt)); err != nil {
			return false, err
		}
	}

	return passed, nil
}

// BuildMockLLM turns the plan's mock section into a configured resolver.
// Rules register in declaration order, so first-match-wins follows the YAML.
func BuildMockLLM(cfg model.MockConfig) (*mock.LLM, error) {
	llm := mock.NewLLM()

	if cfg.Default != nil {
		llm.SetDefault(buildResponse(*cfg.Default))
	}

	for i, rule := range cfg.Responses {
		response := buildResponse(rule.Response)
		if rule.Prompt != "" {
			llm.AddResponse(rule.Prompt, response)
			continue
		}
		if err := llm.AddPattern(rule.Pattern, response); err != nil {
			return nil, fmt.Errorf("mock rule %d: %w", i, err)
		}
	}
	return llm, nil
}

func buildResponse(mr model.MockResponse) mock.Response {
	var opts []mock.ResponseOption
	if mr.Model != "" {
		opts = append(opts, mock.WithModel(mr.Model))
	}
	if mr.TokensUsed > 0 {
		opts = append(opts, mock.WithTokensUsed(mr.TokensUsed))
	}
	if mr.Cost > 0 {
		opts = append(opts, mock.WithCost(mr.Cost))
	}
	if mr.Latency > 0 {
		opts = append(opts, mock.WithLatency(mr.Latency))
	}
	if mr.Metadata != nil {
		opts = append(opts, mock.WithMetadata(mr.Metadata))
	}
	if mr.CountTokens {
		countModel := mr.Model
		if countModel == "" {
			countModel = mock.DefaultModel
		}
		opts = append(opts, mock.WithCountedTokens(countModel))
	}
	return mock.NewResponse(mr.Content, opts...)
}

func runTests(plan *model.TestPlan, llm *mock.LLM, documents []string, templateCtx map[string]string) []model.TestResult {
	var results []model.TestResult
	for _, test := range plan.Tests {
		if test.Skip {
			logger.Logger.Debug("Skipped test", "name", test.Name, "reason", test.SkipReason)
			now := time.Now()
			results = append(results, model.TestResult{
				Name:      test.Name,
				Status:    model.StatusSkipped,
				Message:   test.SkipReason,
				StartTime: now,
				EndTime:   now,
			})
			continue
		}

		paramSets := test.Params
		if len(paramSets) == 0 {
			paramSets = []map[string]string{nil}
		}
		for _, params := range paramSets {
			results = append(results, runOne(test, params, llm, documents, templateCtx))
		}
	}
	return results
}

func runOne(test model.Test, params map[string]string, llm *mock.LLM, documents []string, templateCtx map[string]string) model.TestResult {
	ctx := MergeVariables(templateCtx, test.Variables)
	ctx = MergeVariables(ctx, params)

	name := test.Name
	kwargs := map[string]any{}
	if len(params) > 0 {
		name = expandedName(test.Name, params)
		for k, v := range params {
			kwargs[k] = v
		}
	}

	result := model.TestResult{Name: name, Params: params, StartTime: time.Now()}

	prompt := model.RenderTemplate(test.Prompt, ctx)
	response := llm.Resolve(prompt, kwargs)

	evaluator := model.NewAssertionEvaluator(response, documents, ctx)
	result.Assertions = evaluator.Evaluate(test.Assertions)

	result.EndTime = time.Now()
	result.DurationMs = result.EndTime.Sub(result.StartTime).Milliseconds()

	failed := slices.Filter(result.Assertions, func(r model.AssertionResult) bool { return !r.Passed })
	if len(failed) == 0 {
		result.Status = model.StatusPassed
	} else {
		result.Status = model.StatusFailed
		messages := slices.Map(failed, func(r model.AssertionResult) string { return r.Message })
		result.Message = strings.Join(messages, "\n")
	}

	logger.Logger.Debug("Finished test", "name", name, "status", result.Status, "assertions", len(result.Assertions))
	return result
}

func expandedName(name string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := slices.Map(keys, func(k string) string { return fmt.Sprintf("%s=%s", k, params[k]) })
	return fmt.Sprintf("%s[%s]", name, strings.Join(pairs, ", "))
}

func checkCriteria(criteria model.Criteria, summary model.Summary) (bool, error) {
	threshold, configured, err := criteria.Threshold()
	if err != nil {
		return false, err
	}
	if !configured {
		return summary.Failed == 0, nil
	}

	passed := summary.SuccessRate >= threshold
	logger.Logger.Info("Criteria check",
		"success_rate", fmt.Sprintf("%.1f%%", summary.SuccessRate*100),
		"required", fmt.Sprintf("%.1f%%", threshold*100),
		"passed", passed)
	return passed, nil
}

// CreateStaticTemplateContext seeds the template context with the process
// environment, run metadata and the plan's own variables. Variables may
// reference earlier context entries (e.g. {{PLAN_DIR}}/data).
func CreateStaticTemplateContext(planPath string, variables map[string]string) map[string]string {
	templateCtx := model.GetAllEnv()
	templateCtx["RUN_ID"] = uuid.New().String()
	templateCtx["TEMP_DIR"] = os.TempDir()

	if planPath != "" {
		if absPath, err := filepath.Abs(planPath); err == nil {
			templateCtx["PLAN_DIR"] = filepath.Dir(absPath)
		}
	}

	for k, v := range variables {
		templateCtx[k] = model.RenderTemplate(v, templateCtx)
	}
	return templateCtx
}

// MergeVariables overlays secondary onto a copy of primary.
func MergeVariables(primary, secondary map[string]string) map[string]string {
	merged := make(map[string]string, len(primary)+len(secondary))
	for k, v := range primary {
		merged[k] = v
	}
	for k, v := range secondary {
		merged[k] = v
	}
	return merged
}

func reportPath(outputDir, reportType string) string {
	if reportType == report.TypeConsole {
		return ""
	}

	ext := reportType
	if reportType == report.TypeJUnit {
		ext = "xml"
	}
	return filepath.Join(outputDir, fmt.Sprintf("report.%s", ext))
}
