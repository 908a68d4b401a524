// Package runner executes (sample, condition) pairs with bounded
// concurrency and streams one RunRecord per pair to the JSONL output and,
// optionally, to a store sink. Every admitted pair completes and is
// written, even when the surrounding context gets cancelled mid-run.
package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/kotoba-lab/tessa/pkg/models"
	"github.com/kotoba-lab/tessa/pkg/pipeline"
	"github.com/kotoba-lab/tessa/pkg/store"
)

// sinkBuffer bounds the store sink channel; a slow store back-pressures
// the workers instead of growing memory.
const sinkBuffer = 16

// Pipeline bundles the stages the runner drives. TranslatorWithState is
// optional; when nil, stateful conditions translate through Translator.
type Pipeline struct {
	StateBuilder        *pipeline.StateBuilder
	Translator          *pipeline.Translator
	TranslatorWithState *pipeline.Translator
	Verifier            *pipeline.Verifier
	Repairer            *pipeline.Repairer
	Judge               *pipeline.Judge
}

// translatorFor selects the translator for a condition's capabilities.
func (p *Pipeline) translatorFor(flags models.Capabilities) *pipeline.Translator {
	if flags.HasState && p.TranslatorWithState != nil {
		return p.TranslatorWithState
	}
	return p.Translator
}

// Job is one (sample, condition) pair to execute.
type Job struct {
	Sample    *models.Sample
	Condition models.Condition
}

// Options configures one run.
type Options struct {
	RunID       string
	Concurrency int
	MaxRepairs  int
	Defaults    models.ConstraintPatch
	// Provenance maps component names to the prompt artifact ids they
	// resolved from; recorded on every RunRecord when non-empty.
	Provenance map[string]string
	// Output receives one JSON line per record. A write failure is fatal
	// to the run.
	Output io.Writer
	// Sink is an optional store; failed appends are retried once and then
	// logged, never failing the run.
	Sink   store.Store
	Logger *slog.Logger
}

// Summary counts terminal statuses across the run.
type Summary struct {
	Total       int
	OK          int
	NeedsReview int
	Errors      int
}

func (s *Summary) tally(record *models.RunRecord) {
	s.Total++
	switch record.Status {
	case models.RunStatusOK:
		s.OK++
	case models.RunStatusNeedsReview:
		s.NeedsReview++
	case models.RunStatusError:
		s.Errors++
	}
}

// Runner owns the worker pool and the output plumbing for one run.
type Runner struct {
	pipeline Pipeline
	opts     Options
	logger   *slog.Logger
}

// New creates a runner. Concurrency below 1 is clamped to 1.
func New(p Pipeline, opts Options) *Runner {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		pipeline: p,
		opts:     opts,
		logger:   logger.With("component", "runner", "run_id", opts.RunID),
	}
}

// Run executes the jobs. Cancelling ctx stops admission of new pairs;
// pairs already in flight finish on a detached context and their records
// are written before Run returns. The returned error is non-nil only when
// the JSONL writer fails.
func (r *Runner) Run(ctx context.Context, jobs []Job) (Summary, error) {
	group, groupCtx := errgroup.WithContext(ctx)

	jobsCh := make(chan Job)
	records := make(chan *models.RunRecord, r.opts.Concurrency)
	writerExited := make(chan struct{})

	var sinkRecords chan *models.RunRecord
	if r.opts.Sink != nil {
		sinkRecords = make(chan *models.RunRecord, sinkBuffer)
	}

	// In-flight pairs survive cancellation so every admitted pair lands in
	// the output.
	detached := context.WithoutCancel(ctx)

	// Admission: stops on cancellation or on a writer failure, without
	// failing the group itself.
	group.Go(func() error {
		defer close(jobsCh)
		for _, job := range jobs {
			select {
			case jobsCh <- job:
			case <-groupCtx.Done():
				r.logger.Info("Stopping admission of new pairs", "reason", context.Cause(groupCtx))
				return nil
			}
		}
		return nil
	})

	// Worker pool.
	var workers sync.WaitGroup
	for i := 0; i < r.opts.Concurrency; i++ {
		workers.Add(1)
		group.Go(func() error {
			defer workers.Done()
			for job := range jobsCh {
				record := r.runPair(detached, job)
				select {
				case records <- record:
				case <-writerExited:
					// Writer already failed; the record has nowhere to go.
					return nil
				}
				if sinkRecords != nil {
					sinkRecords <- record
				}
			}
			return nil
		})
	}

	// Closer: once every worker is done, release the writer and the sink.
	group.Go(func() error {
		workers.Wait()
		close(records)
		if sinkRecords != nil {
			close(sinkRecords)
		}
		return nil
	})

	// JSONL writer: the single owner of the output. One marshalled line
	// per record; the first write error fails the run.
	var summary Summary
	group.Go(func() error {
		defer close(writerExited)
		for record := range records {
			line, err := json.Marshal(record)
			if err != nil {
				return fmt.Errorf("failed to marshal run record %s: %w", record.Key(), err)
			}
			if _, err := r.opts.Output.Write(append(line, '\n')); err != nil {
				return fmt.Errorf("failed to write run record %s: %w", record.Key(), err)
			}
			summary.tally(record)
		}
		return nil
	})

	// Store sink: best effort, one retry.
	if sinkRecords != nil {
		group.Go(func() error {
			for record := range sinkRecords {
				if err := r.opts.Sink.AppendRun(detached, record); err != nil {
					if err := r.opts.Sink.AppendRun(detached, record); err != nil {
						r.logger.Warn("Store sink failed after retry, record kept in JSONL only",
							"key", record.Key(), "error", err)
					}
				}
			}
			return nil
		})
	}

	err := group.Wait()
	return summary, err
}
