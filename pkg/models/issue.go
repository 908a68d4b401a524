package models

// IssueType classifies a reviewer-found defect.
type IssueType string

const (
	IssueMistranslation    IssueType = "MISTRANSLATION"
	IssueOmission          IssueType = "OMISSION"
	IssueAddition          IssueType = "ADDITION"
	IssueTermInconsistency IssueType = "TERM_INCONSISTENCY"
	IssuePronounReference  IssueType = "PRONOUN_REFERENCE"
	IssueSpeakerMismatch   IssueType = "SPEAKER_MISMATCH"
	IssueStyleViolation    IssueType = "STYLE_VIOLATION"
	IssueFormatViolation   IssueType = "FORMAT_VIOLATION"
	IssueSafetyOrPolicy    IssueType = "SAFETY_OR_POLICY"
	IssueOther             IssueType = "OTHER"
)

// IsValid checks if the issue type is valid.
func (t IssueType) IsValid() bool {
	switch t {
	case IssueMistranslation,
		IssueOmission,
		IssueAddition,
		IssueTermInconsistency,
		IssuePronounReference,
		IssueSpeakerMismatch,
		IssueStyleViolation,
		IssueFormatViolation,
		IssueSafetyOrPolicy,
		IssueOther:
		return true
	default:
		return false
	}
}

// Severity ranks how damaging an issue is. Only critical issues keep the
// repair loop going.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityMajor    Severity = "major"
	SeverityMinor    Severity = "minor"
)

// IsValid checks if the severity is valid.
func (s Severity) IsValid() bool {
	return s == SeverityCritical || s == SeverityMajor || s == SeverityMinor
}

// Issue is one reviewer-found defect in a candidate translation, emitted by
// the verifier and consumed by the repairer.
type Issue struct {
	ID            string    `json:"id"`
	Type          IssueType `json:"type"`
	Severity      Severity  `json:"severity"`
	Rationale     string    `json:"rationale"`
	FixSuggestion string    `json:"fixSuggestion,omitempty"`
	Confidence    float64   `json:"confidence"`
}

// HardCheckResult is one deterministic rule outcome.
type HardCheckResult struct {
	ID          string `json:"id"`
	Passed      bool   `json:"passed"`
	Description string `json:"description"`
	Details     string `json:"details,omitempty"`
}

// HasCritical reports whether any issue carries critical severity.
func HasCritical(issues []Issue) bool {
	for _, issue := range issues {
		if issue.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

// AllPassed reports whether every hard check passed.
func AllPassed(checks []HardCheckResult) bool {
	for _, hc := range checks {
		if !hc.Passed {
			return false
		}
	}
	return true
}
