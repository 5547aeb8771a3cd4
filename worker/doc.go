// Package worker runs batches of independent validations in parallel.
//
// Every job gets its own Result; a job that panics is converted into a
// failed Result and never affects the other jobs of the batch.
//
// Example usage:
//
//	runner := worker.NewBatchRunner(v.Validate, 4)
//	batch := runner.Run(ctx, worker.NewJobs(docs, conformance.DefaultOptions()))
//	for _, r := range batch.Results {
//	    fmt.Println(r.ID, r.Result.Status)
//	}
package worker
