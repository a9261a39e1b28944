// Package async provides helpers for running bounded batches of work
// concurrently. It is used for reachability probing, host enrichment, and
// for running the Terraform apply alongside the task progress monitor.
package async

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Task is a named unit of concurrent work.
type Task struct {
	Name string
	Func func(context.Context) error
}

// RunParallel executes tasks concurrently, at most limit at a time
// (limit <= 0 means unbounded). It waits for every task to finish and
// returns the first error encountered, wrapped with the task name.
// Tasks whose failures should not abort the batch (per-host probes,
// per-source lookups) must record their own outcome and return nil.
func RunParallel(ctx context.Context, tasks []Task, limit int) error {
	if len(tasks) == 0 {
		return nil
	}

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}

	for _, task := range tasks {
		task := task
		g.Go(func() error {
			if err := task.Func(ctx); err != nil {
				return fmt.Errorf("%s: %w", task.Name, err)
			}
			return nil
		})
	}

	return g.Wait()
}
