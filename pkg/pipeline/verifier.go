package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"

	"github.com/kotoba-lab/tessa/pkg/constraint"
	"github.com/kotoba-lab/tessa/pkg/hardcheck"
	"github.com/kotoba-lab/tessa/pkg/llm"
	"github.com/kotoba-lab/tessa/pkg/models"
)

// VerifyResult pairs the combined issue list with the hard-check outcomes
// it was derived from, so the orchestrator can reason about critical
// failures.
type VerifyResult struct {
	Issues     []models.Issue
	HardChecks []models.HardCheckResult
	Usage      models.TokenUsage
}

// Verifier runs the hard-check engine and, when a model is wired, the LLM
// reviewer. It never fails the pair: reviewer errors and unparseable
// output yield zero LLM issues while the hard-check issues always flow.
type Verifier struct {
	engine *hardcheck.Engine
	stage  Stage
	logger *slog.Logger
}

// NewVerifier creates a verifier over the given hard-check engine.
func NewVerifier(engine *hardcheck.Engine, stage Stage, logger *slog.Logger) *Verifier {
	return &Verifier{engine: engine, stage: stage, logger: logger.With("component", "verifier")}
}

// Verify evaluates a candidate translation. Hard-check issues come first,
// reviewer issues after.
func (v *Verifier) Verify(ctx context.Context, sample *models.Sample, translation string, constraints models.Constraints) VerifyResult {
	checks := v.engine.Evaluate(sample.JA.Text, translation, constraints)
	result := VerifyResult{
		Issues:     hardcheck.Issues(checks),
		HardChecks: checks,
	}

	if !v.stage.hasModel() {
		return result
	}

	req := v.stage.request(map[string]string{
		"text":        sample.JA.Text,
		"context":     sample.JA.Context,
		"constraints": constraint.Render(constraints),
		"translation": translation,
	}, "", llm.ResponseFormatJSON)

	llmResult, err := v.stage.Gateway.Complete(ctx, v.stage.Component, req)
	if err != nil {
		v.logger.Warn("Reviewer call failed, keeping hard-check issues only", "sample_id", sample.ID, "error", err)
		return result
	}
	result.Usage = llmResult.Usage

	result.Issues = append(result.Issues, parseIssues(llmResult.Text)...)
	return result
}

// parseIssues decodes the reviewer output: the documented
// {"issues": [...]} object, or the bare JSON array some models emit
// instead.
func parseIssues(output string) []models.Issue {
	if extracted := llm.ExtractJSON(output); extracted != "" {
		var decoded struct {
			Issues []models.Issue `json:"issues"`
		}
		if err := json.Unmarshal([]byte(extracted), &decoded); err == nil && decoded.Issues != nil {
			return sanitizeIssues(decoded.Issues)
		}
	}
	if extracted := llm.ExtractJSONArray(output); extracted != "" {
		var decoded []models.Issue
		if err := json.Unmarshal([]byte(extracted), &decoded); err == nil {
			return sanitizeIssues(decoded)
		}
	}
	return nil
}

// sanitizeIssues coerces out-of-domain values instead of dropping the
// issue.
func sanitizeIssues(raw []models.Issue) []models.Issue {
	issues := make([]models.Issue, 0, len(raw))
	for _, issue := range raw {
		if !issue.Type.IsValid() {
			issue.Type = models.IssueOther
		}
		if !issue.Severity.IsValid() {
			issue.Severity = models.SeverityMinor
		}
		issue.Confidence = clamp01(issue.Confidence)
		if issue.ID == "" {
			issue.ID = issueID(issue.Type, issue.Rationale)
		}
		issues = append(issues, issue)
	}
	return issues
}

// issueID synthesizes a stable id from the issue's type and rationale.
func issueID(issueType models.IssueType, rationale string) string {
	sum := sha256.Sum256([]byte(string(issueType) + "|" + rationale))
	return "issue-" + hex.EncodeToString(sum[:])[:12]
}
