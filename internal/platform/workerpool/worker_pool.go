// internal/platform/workerpool/worker_pool.go
package workerpool

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"phishtrace/internal/platform/logx"
)

// Task representa una unidad de trabajo del pool.
type Task interface {
	// Execute ejecuta la tarea
	Execute(ctx context.Context) error

	// Name retorna el nombre de la tarea (para logs)
	Name() string
}

// TaskFunc adapta una función a Task.
type TaskFunc struct {
	Label string
	Fn    func(ctx context.Context) error
}

func (t TaskFunc) Execute(ctx context.Context) error { return t.Fn(ctx) }
func (t TaskFunc) Name() string                      { return t.Label }

// TaskResult es el resultado de una tarea.
type TaskResult struct {
	Task     Task
	Error    error
	Duration time.Duration
}

// Config configura el pool.
type Config struct {
	Workers int
	Logger  logx.Logger
}

// WorkerPool ejecuta tareas independientes con concurrencia acotada.
// El fallo de una tarea no cancela a las demás.
type WorkerPool struct {
	workers int
	logger  logx.Logger

	completed atomic.Int64
	failed    atomic.Int64
}

// NewWorkerPool crea un pool.
func NewWorkerPool(cfg Config) *WorkerPool {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.Logger == nil {
		cfg.Logger = logx.NewSilent()
	}
	return &WorkerPool{
		workers: cfg.Workers,
		logger:  cfg.Logger.With("component", "worker-pool"),
	}
}

// Run ejecuta todas las tareas y espera a que terminen. results[i]
// corresponde a tasks[i]. Las tareas que aún no empezaron cuando ctx termina
// se reportan con ctx.Err() sin ejecutarse.
func (wp *WorkerPool) Run(ctx context.Context, tasks []Task) []TaskResult {
	results := make([]TaskResult, len(tasks))
	if len(tasks) == 0 {
		return results
	}

	wp.logger.Debug("running tasks", "total", len(tasks), "workers", wp.workers)

	var g errgroup.Group
	g.SetLimit(wp.workers)

	for i, task := range tasks {
		g.Go(func() error {
			results[i] = wp.execute(ctx, task)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (wp *WorkerPool) execute(ctx context.Context, task Task) TaskResult {
	if err := ctx.Err(); err != nil {
		wp.failed.Add(1)
		return TaskResult{Task: task, Error: err}
	}

	start := time.Now()
	err := task.Execute(ctx)
	duration := time.Since(start)

	if err != nil {
		wp.failed.Add(1)
		wp.logger.Debug("task failed", "task", task.Name(), "duration_ms", duration.Milliseconds(), "error", err.Error())
	} else {
		wp.completed.Add(1)
		wp.logger.Debug("task completed", "task", task.Name(), "duration_ms", duration.Milliseconds())
	}
	return TaskResult{Task: task, Error: err, Duration: duration}
}

// Stats retorna estadísticas acumuladas del pool.
func (wp *WorkerPool) Stats() WorkerPoolStats {
	return WorkerPoolStats{
		Workers:   wp.workers,
		Completed: int(wp.completed.Load()),
		Failed:    int(wp.failed.Load()),
	}
}

// WorkerPoolStats contiene estadísticas del pool.
type WorkerPoolStats struct {
	Workers   int
	Completed int
	Failed    int
}
