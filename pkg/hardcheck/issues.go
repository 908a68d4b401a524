package hardcheck

import "github.com/kotoba-lab/tessa/pkg/models"

// hardCheckConfidence is attached to every synthesized issue.
const hardCheckConfidence = 0.8

// Issues synthesizes one Issue per failing hard check. Severity is major
// for noDisallowedJapanese and minor otherwise; formatPreserved maps to
// FORMAT_VIOLATION, everything else to STYLE_VIOLATION.
func Issues(checks []models.HardCheckResult) []models.Issue {
	var issues []models.Issue
	for _, hc := range checks {
		if hc.Passed {
			continue
		}
		issue := models.Issue{
			ID:            "hc-" + hc.ID,
			Type:          models.IssueStyleViolation,
			Severity:      models.SeverityMinor,
			Rationale:     hc.Description,
			FixSuggestion: "Revise the translation so the failed check passes.",
			Confidence:    hardCheckConfidence,
		}
		if hc.ID == RuleFormatPreserved {
			issue.Type = models.IssueFormatViolation
		}
		if hc.ID == RuleNoDisallowedJapanese {
			issue.Severity = models.SeverityMajor
		}
		if hc.Details != "" {
			issue.Rationale = hc.Description + " (" + hc.Details + ")"
		}
		issues = append(issues, issue)
	}
	return issues
}
