package worker

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gofhir/conformance"
)

// ValidateFunc validates one decoded document.
type ValidateFunc func(doc any, opts conformance.ValidationOptions) *conformance.Result

// BatchRunner validates jobs with bounded parallelism.
type BatchRunner struct {
	validate ValidateFunc
	workers  int
}

// NewBatchRunner creates a runner. If workers <= 0, it defaults to runtime.NumCPU().
func NewBatchRunner(validate ValidateFunc, workers int) *BatchRunner {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &BatchRunner{
		validate: validate,
		workers:  workers,
	}
}

// Workers returns the parallelism limit.
func (br *BatchRunner) Workers() int {
	return br.workers
}

// Run validates every job and returns the results in submission order.
// Jobs not yet started when ctx is cancelled are left without a result.
func (br *BatchRunner) Run(ctx context.Context, jobs []Job) *BatchResult {
	start := time.Now()
	results := make([]*JobResult, len(jobs))

	var completed, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(br.workers)

	for i := range jobs {
		if gctx.Err() != nil {
			break
		}
		job := jobs[i]
		idx := i
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			jr := br.runJob(idx, job)
			results[idx] = jr
			completed.Add(1)
			if jr.Result.Status == conformance.StatusFailed {
				failed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	return &BatchResult{
		Results:       results,
		TotalJobs:     len(jobs),
		CompletedJobs: int(completed.Load()),
		FailedJobs:    int(failed.Load()),
		TotalDuration: time.Since(start),
	}
}

// runJob isolates a job: a panic becomes a failed Result for that job only.
func (br *BatchRunner) runJob(idx int, job Job) (jr *JobResult) {
	start := time.Now()
	jr = &JobResult{ID: job.ID, Index: idx}

	defer func() {
		if r := recover(); r != nil {
			jr.Result = conformance.Failed(resourceTypeOf(job.Document),
				conformance.Fatal(conformance.CodeValidationException).
					Details(fmt.Sprintf("%v", r)).
					From(conformance.OriginEngine).
					Build())
		}
		if jr.Result == nil {
			jr.Result = conformance.Failed(resourceTypeOf(job.Document),
				conformance.Fatal(conformance.CodeValidationException).
					Details("validator returned no result").
					From(conformance.OriginEngine).
					Build())
		}
		jr.Duration = time.Since(start)
	}()

	jr.Result = br.validate(job.Document, job.Options)
	return jr
}

func resourceTypeOf(doc any) *string {
	obj, ok := doc.(map[string]any)
	if !ok {
		return nil
	}
	rt, ok := obj["resourceType"].(string)
	if !ok || rt == "" {
		return nil
	}
	return &rt
}

// ValidateBatchSimple runs docs with one worker per CPU.
func ValidateBatchSimple(ctx context.Context, validate ValidateFunc, docs []any, opts conformance.ValidationOptions) *BatchResult {
	return NewBatchRunner(validate, runtime.NumCPU()).Run(ctx, NewJobs(docs, opts))
}
