package worker

import (
	"time"

	"github.com/google/uuid"

	"github.com/gofhir/conformance"
)

// Job is a single document to validate.
type Job struct {
	// ID identifies the job in logs and responses.
	ID string

	// Document is the decoded JSON document.
	Document any

	// Options applies to this job only.
	Options conformance.ValidationOptions
}

// NewJobs wraps docs into jobs sharing opts, each with a fresh id.
func NewJobs(docs []any, opts conformance.ValidationOptions) []Job {
	jobs := make([]Job, len(docs))
	for i, doc := range docs {
		jobs[i] = Job{
			ID:       uuid.NewString(),
			Document: doc,
			Options:  opts,
		}
	}
	return jobs
}

// JobResult is the outcome of one job.
type JobResult struct {
	// ID matches the Job.ID that produced this result.
	ID string

	// Index is the position of the job in the batch.
	Index int

	// Result is the validation result; never nil for a completed job.
	Result *conformance.Result

	// Duration is the time taken by this job.
	Duration time.Duration
}

// BatchResult aggregates the results of a batch in submission order.
type BatchResult struct {
	// Results has one entry per job; entries of jobs that never ran are nil.
	Results []*JobResult

	// TotalJobs is the number of jobs submitted.
	TotalJobs int

	// CompletedJobs is the number of jobs that produced a result.
	CompletedJobs int

	// FailedJobs is the number of completed jobs whose status is failed.
	FailedJobs int

	// TotalDuration is the wall time of the batch.
	TotalDuration time.Duration
}

// HasErrors returns true if any result has blocking issues.
func (br *BatchResult) HasErrors() bool {
	for _, r := range br.Results {
		if r != nil && r.Result.HasErrors() {
			return true
		}
	}
	return false
}

// ErrorCount returns the total number of error and fatal issues.
func (br *BatchResult) ErrorCount() int {
	count := 0
	for _, r := range br.Results {
		if r != nil {
			count += r.Result.ErrorCount()
		}
	}
	return count
}

// WarningCount returns the total number of warnings.
func (br *BatchResult) WarningCount() int {
	count := 0
	for _, r := range br.Results {
		if r != nil {
			count += r.Result.WarningCount()
		}
	}
	return count
}

// ValidCount returns the number of valid results.
func (br *BatchResult) ValidCount() int {
	count := 0
	for _, r := range br.Results {
		if r != nil && r.Result.Valid {
			count++
		}
	}
	return count
}
