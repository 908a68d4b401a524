package models

// Translation is the translated payload keyed by target language.
type Translation struct {
	En string `json:"en"`
}

// Entity is one named entity extracted into narrative state.
type Entity struct {
	Name string `json:"name"`
	Desc string `json:"desc,omitempty"`
}

// State holds the facts extracted for the stateful translator.
type State struct {
	Utterance   string   `json:"utterance"`
	Speaker     string   `json:"speaker"`
	Addressee   string   `json:"addressee"`
	Entities    []Entity `json:"entities"`
	CoreMeaning string   `json:"coreMeaning"`
	Implicature string   `json:"implicature"`
}

// ScoreBreakdown is the judge rubric. Every dimension lies in [0,1].
type ScoreBreakdown struct {
	Adequacy             float64 `json:"adequacy"`
	Fluency              float64 `json:"fluency"`
	ConstraintCompliance float64 `json:"constraintCompliance"`
	StyleFit             float64 `json:"styleFit"`
	Overall              float64 `json:"overall"`
}

// TokenUsage counts tokens spent on LLM calls.
type TokenUsage struct {
	Prompt     int `json:"prompt"`
	Completion int `json:"completion"`
	Total      int `json:"total"`
}

// Add folds another usage sample into the receiver.
func (u *TokenUsage) Add(other TokenUsage) {
	u.Prompt += other.Prompt
	u.Completion += other.Completion
	u.Total += other.Total
}

// Timings records per-stage latencies in milliseconds. A stage key
// accumulates across verify/repair iterations.
type Timings struct {
	Stages           map[string]int64 `json:"stages"`
	RepairIterations int              `json:"repairIterations,omitempty"`
	TotalMs          int64            `json:"totalMs"`
}

// AddStage accumulates elapsed milliseconds under a stage key.
func (t *Timings) AddStage(stage string, ms int64) {
	if t.Stages == nil {
		t.Stages = make(map[string]int64)
	}
	t.Stages[stage] += ms
}

// TraceRef points at the recorded trace for one pair.
type TraceRef struct {
	TraceID string `json:"traceId"`
	SpanID  string `json:"spanId,omitempty"`
}

// Provenance records references to compiled prompt artifacts, keyed by
// component name. Artifact bodies are never recorded.
type Provenance struct {
	Artifacts map[string]string `json:"artifacts,omitempty"`
}

// RunStatus is the terminal status of one (sample, condition) pair.
type RunStatus string

const (
	// RunStatusOK means the final translation passed review cleanly.
	RunStatusOK RunStatus = "ok"
	// RunStatusNeedsReview flags a critical issue or a failed hard check.
	RunStatusNeedsReview RunStatus = "needs_review"
	// RunStatusError marks a pair whose execution failed.
	RunStatusError RunStatus = "error"
)

// IsValid checks if the run status is valid.
func (s RunStatus) IsValid() bool {
	return s == RunStatusOK || s == RunStatusNeedsReview || s == RunStatusError
}

// RunRecord is the full artifact for one (sample, condition) pair. Each
// record becomes exactly one line in the output JSONL.
type RunRecord struct {
	RunID                 string            `json:"runId"`
	Condition             Condition         `json:"condition"`
	SampleID              string            `json:"sampleId"`
	Draft                 Translation       `json:"draft"`
	Final                 Translation       `json:"final"`
	Issues                []Issue           `json:"issues"`
	HardChecks            []HardCheckResult `json:"hardChecks"`
	Scores                ScoreBreakdown    `json:"scores"`
	Usage                 TokenUsage        `json:"usage"`
	Timings               Timings           `json:"timings"`
	State                 *State            `json:"state,omitempty"`
	NormalizedConstraints Constraints       `json:"normalizedConstraints"`
	Trace                 *TraceRef         `json:"trace,omitempty"`
	Provenance            *Provenance       `json:"provenance,omitempty"`
	Status                RunStatus         `json:"status"`
}

// Key identifies the record uniquely within a run log.
func (r *RunRecord) Key() string {
	return r.RunID + "|" + r.SampleID + "|" + string(r.Condition)
}
