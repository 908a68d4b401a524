package runner

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kotoba-lab/tessa/pkg/constraint"
	"github.com/kotoba-lab/tessa/pkg/models"
	"github.com/kotoba-lab/tessa/pkg/trace"
)

// Stage keys for per-stage timings. Verify and repair accumulate across
// loop iterations.
const (
	stageState     = "state"
	stageTranslate = "translate"
	stageVerify    = "verify"
	stageRepair    = "repair"
	stageJudge     = "judge"
)

// runPair walks one (sample, condition) pair through the pipeline and
// always produces a record; stage errors terminate the pair with
// status=error but still emit.
func (r *Runner) runPair(ctx context.Context, job Job) *models.RunRecord {
	ctx, span := trace.StartSpan(ctx, "run.pair",
		attribute.String("sample_id", job.Sample.ID),
		attribute.String("condition", string(job.Condition)),
	)
	defer span.End()

	logger := trace.Logger(ctx, r.logger).With("sample_id", job.Sample.ID, "condition", string(job.Condition))
	flags := job.Condition.Flags()
	start := time.Now()

	record := &models.RunRecord{
		RunID:     r.opts.RunID,
		Condition: job.Condition,
		SampleID:  job.Sample.ID,
	}
	if traceID, spanID := trace.IDs(ctx); traceID != "" {
		record.Trace = &models.TraceRef{TraceID: traceID, SpanID: spanID}
	}
	if len(r.opts.Provenance) > 0 {
		record.Provenance = &models.Provenance{Artifacts: r.opts.Provenance}
	}

	constraints, err := constraint.Normalize(r.opts.Defaults, job.Sample.Constraints)
	if err != nil {
		logger.Error("Constraint normalization failed", "error", err)
		return r.finishWithError(record, err, start)
	}
	record.NormalizedConstraints = constraints

	var usage models.TokenUsage

	if flags.HasState {
		stageCtx, stageSpan := trace.StartSpan(ctx, "stage.state")
		stageStart := time.Now()
		state, stateUsage := r.pipeline.StateBuilder.Build(stageCtx, job.Sample)
		record.Timings.AddStage(stageState, time.Since(stageStart).Milliseconds())
		stageSpan.End()
		usage.Add(stateUsage)
		record.State = state
	}

	stageCtx, stageSpan := trace.StartSpan(ctx, "stage.translate")
	stageStart := time.Now()
	draft, translateUsage, err := r.pipeline.translatorFor(flags).Translate(stageCtx, job.Sample, constraints, record.State)
	record.Timings.AddStage(stageTranslate, time.Since(stageStart).Milliseconds())
	stageSpan.End()
	usage.Add(translateUsage)
	if err != nil {
		logger.Error("Translation failed", "error", err)
		record.Usage = usage
		return r.finishWithError(record, err, start)
	}
	record.Draft = models.Translation{En: draft}
	final := draft

	stageCtx, stageSpan = trace.StartSpan(ctx, "stage.verify")
	stageStart = time.Now()
	verified := r.pipeline.Verifier.Verify(stageCtx, job.Sample, final, constraints)
	record.Timings.AddStage(stageVerify, time.Since(stageStart).Milliseconds())
	stageSpan.End()
	usage.Add(verified.Usage)

	if flags.HasVerifyRepair {
		for record.Timings.RepairIterations < r.opts.MaxRepairs && needsRepair(verified.Issues, verified.HardChecks) {
			stageCtx, stageSpan = trace.StartSpan(ctx, "stage.repair")
			stageStart = time.Now()
			repaired, repairUsage, err := r.pipeline.Repairer.Repair(stageCtx, job.Sample, final, verified.Issues, constraints, record.State)
			record.Timings.AddStage(stageRepair, time.Since(stageStart).Milliseconds())
			stageSpan.End()
			usage.Add(repairUsage)
			if err != nil {
				logger.Error("Repair failed", "error", err, "iteration", record.Timings.RepairIterations)
				record.Issues = verified.Issues
				record.HardChecks = verified.HardChecks
				record.Final = models.Translation{En: final}
				record.Usage = usage
				return r.finishWithError(record, err, start)
			}
			final = repaired
			record.Timings.RepairIterations++

			stageCtx, stageSpan = trace.StartSpan(ctx, "stage.verify")
			stageStart = time.Now()
			reverified := r.pipeline.Verifier.Verify(stageCtx, job.Sample, final, constraints)
			record.Timings.AddStage(stageVerify, time.Since(stageStart).Milliseconds())
			stageSpan.End()
			usage.Add(reverified.Usage)
			verified = reverified
		}
	}
	record.Final = models.Translation{En: final}
	record.Issues = verified.Issues
	record.HardChecks = verified.HardChecks

	stageCtx, stageSpan = trace.StartSpan(ctx, "stage.judge")
	stageStart = time.Now()
	scores, judgeUsage := r.pipeline.Judge.Score(stageCtx, job.Sample, final, constraints)
	record.Timings.AddStage(stageJudge, time.Since(stageStart).Milliseconds())
	stageSpan.End()
	usage.Add(judgeUsage)
	record.Scores = scores
	record.Usage = usage

	if needsRepair(record.Issues, record.HardChecks) {
		record.Status = models.RunStatusNeedsReview
	} else {
		record.Status = models.RunStatusOK
	}
	return finish(record, start)
}

// needsRepair mirrors the review flag: a critical issue or any failed hard
// check.
func needsRepair(issues []models.Issue, checks []models.HardCheckResult) bool {
	return models.HasCritical(issues) || !models.AllPassed(checks)
}

// finishWithError closes out a pair whose execution failed: the failure is
// recorded as a critical OTHER issue and the record still flows to the
// output.
func (r *Runner) finishWithError(record *models.RunRecord, err error, start time.Time) *models.RunRecord {
	record.Issues = append(record.Issues, models.Issue{
		ID:         "pair-error",
		Type:       models.IssueOther,
		Severity:   models.SeverityCritical,
		Rationale:  err.Error(),
		Confidence: 1,
	})
	record.Status = models.RunStatusError
	return finish(record, start)
}

func finish(record *models.RunRecord, start time.Time) *models.RunRecord {
	if record.Issues == nil {
		record.Issues = []models.Issue{}
	}
	if record.HardChecks == nil {
		record.HardChecks = []models.HardCheckResult{}
	}
	record.Timings.TotalMs = time.Since(start).Milliseconds()
	return record
}
