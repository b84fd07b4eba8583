package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"

	"cueforge/internal/logging"
)

// BatchResult pairs a job with its outcome.
type BatchResult struct {
	Job    Job
	Output Output
	Err    error
}

// RunBatch runs jobs concurrently, each on a worker acquired from pool.
// A failing job does not stop the others; its error is reported in its
// BatchResult. The returned error is non-nil only when a worker could not
// be acquired, for example because ctx was cancelled or the pool closed.
func (r *Runner) RunBatch(ctx context.Context, pool *Pool, jobs []Job) ([]BatchResult, error) {
	results := make([]BatchResult, len(jobs))
	var g errgroup.Group
	for i, job := range jobs {
		results[i].Job = job
		worker, err := pool.Acquire(ctx)
		if err != nil {
			for j := i; j < len(jobs); j++ {
				results[j] = BatchResult{Job: jobs[j], Err: err}
			}
			_ = g.Wait()
			return results, err
		}
		g.Go(func() error {
			defer pool.Release(worker)
			worker.Assign(job.Source)
			r.logger.Debug("worker acquired",
				logging.String("worker_id", worker.ID()),
				logging.String("source", job.Source),
			)
			out, err := r.Run(ctx, job)
			results[i] = BatchResult{Job: job, Output: out, Err: err}
			return nil
		})
	}
	return results, g.Wait()
}
