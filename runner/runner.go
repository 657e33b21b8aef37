// Package runner executes conversation turns with bounded concurrency.
package runner

import (
	"context"
	"fmt"
	"sync"

	"github.com/sweetpotato0/aura/llm"
)

// Runner executes conversation turns
type Runner interface {
	// Run executes one tool-loop turn with the given parameters
	Run(ctx context.Context, params *llm.LoopParams) (*llm.Response, error)
}

// runner is the default implementation of Runner
type runner struct {
	maxConcurrency int
	semaphore      chan struct{}
}

// New creates a new runner
func New(maxConcurrency int) Runner {
	if maxConcurrency <= 0 {
		maxConcurrency = 10 // Default concurrency
	}
	return &runner{
		maxConcurrency: maxConcurrency,
		semaphore:      make(chan struct{}, maxConcurrency),
	}
}

// Run executes one tool-loop turn with the given parameters
func (r *runner) Run(ctx context.Context, params *llm.LoopParams) (*llm.Response, error) {
	// Acquire semaphore
	select {
	case r.semaphore <- struct{}{}:
		defer func() { <-r.semaphore }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	return llm.Run(ctx, params)
}

// ParallelRunner executes multiple sessions in parallel
type ParallelRunner struct {
	runner Runner
}

// NewParallelRunner creates a new parallel runner
func NewParallelRunner(maxConcurrency int) *ParallelRunner {
	return &ParallelRunner{
		runner: New(maxConcurrency),
	}
}

// Task represents one conversation turn to be executed
type Task struct {
	ID     string
	Params *llm.LoopParams
}

// Result represents the result of a task execution
type Result struct {
	TaskID   string
	Response *llm.Response
	Error    error
}

// RunParallel executes multiple tasks in parallel
func (pr *ParallelRunner) RunParallel(ctx context.Context, tasks []*Task) []*Result {
	results := make([]*Result, len(tasks))
	var wg sync.WaitGroup

	for i, task := range tasks {
		wg.Add(1)
		go func(index int, t *Task) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					results[index] = &Result{
						TaskID: t.ID,
						Error:  fmt.Errorf("panic in task %s: %v", t.ID, r),
					}
				}
			}()

			resp, err := pr.runner.Run(ctx, t.Params)
			results[index] = &Result{
				TaskID:   t.ID,
				Response: resp,
				Error:    err,
			}
		}(i, task)
	}

	wg.Wait()
	return results
}

// SequentialRunner executes turns sequentially
type SequentialRunner struct {
	runner Runner
}

// NewSequentialRunner creates a new sequential runner
func NewSequentialRunner() *SequentialRunner {
	return &SequentialRunner{
		runner: New(1), // Single concurrency for sequential execution
	}
}

// RunSequential executes tasks sequentially, feeding each response text to
// the next task as its input
func (sr *SequentialRunner) RunSequential(ctx context.Context, tasks []*Task) (*Result, error) {
	if len(tasks) == 0 {
		return nil, fmt.Errorf("no tasks to run")
	}

	var lastOutput string

	for _, task := range tasks {
		// Use previous output as input for current task (if not the first task)
		if lastOutput != "" {
			task.Params.Input = lastOutput
		}

		resp, err := sr.runner.Run(ctx, task.Params)
		if err != nil {
			return &Result{
				TaskID:   task.ID,
				Response: resp,
				Error:    err,
			}, err
		}

		lastOutput = resp.Text
	}

	return &Result{
		TaskID: tasks[len(tasks)-1].ID,
		Response: &llm.Response{
			Text: lastOutput,
		},
	}, nil
}
