package attachment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	domain "github.com/erp/pdfonsubmit/internal/domain/attachment"
	"github.com/erp/pdfonsubmit/internal/domain/shared"
	"github.com/erp/pdfonsubmit/internal/infrastructure/logger"
	"github.com/erp/pdfonsubmit/internal/infrastructure/queue"
	"github.com/erp/pdfonsubmit/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Executor runs one attachment job
type Executor interface {
	Execute(ctx context.Context, payload domain.JobPayload) (*domain.FileRecord, error)
}

// Worker consumes attachment tasks from the queue and keeps the job records
// in step with the outcome.
type Worker struct {
	executor Executor
	jobs     domain.JobRepository
	metrics  JobMetrics
	logger   *zap.Logger
}

// NewWorker creates a new Worker. metrics may be nil.
func NewWorker(executor Executor, jobs domain.JobRepository, metrics JobMetrics, logger *zap.Logger) *Worker {
	if metrics == nil {
		metrics = noopJobMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{executor: executor, jobs: jobs, metrics: metrics, logger: logger}
}

// Handle is a queue.Handler
func (w *Worker) Handle(ctx context.Context, task *queue.Task) error {
	if task.Method != domain.JobMethod {
		return fmt.Errorf("unknown task method %q", task.Method)
	}

	var payload domain.JobPayload
	if err := task.Decode(&payload); err != nil {
		return err
	}

	job, err := w.loadJob(ctx, task, payload)
	if err != nil {
		return err
	}
	docType := payload.DocType.String()
	ctx, log := logger.WithJobID(ctx, w.logger, job.ID.String())
	ctx, log = logger.WithDocument(ctx, log, docType, payload.Name)

	if job.IsTerminal() {
		log.Info("job already finished, skipping", zap.String("status", job.Status.String()))
		return nil
	}

	if err := job.Start(); err != nil {
		return err
	}
	w.save(ctx, job)

	timeout := task.Timeout
	if timeout <= 0 {
		timeout = DefaultJobTimeout
	}
	w.metrics.JobStarted(docType)
	started := time.Now()

	var file *domain.FileRecord
	var execErr error
	telemetry.WithProfilingLabels(ctx, telemetry.JobLabels(domain.JobMethod, docType), func(c context.Context) {
		runCtx, cancel := context.WithTimeout(c, timeout)
		defer cancel()
		file, execErr = w.executor.Execute(runCtx, payload)
	})

	if execErr != nil {
		if errors.Is(execErr, context.DeadlineExceeded) {
			execErr = fmt.Errorf("job timed out after %s: %w", timeout, execErr)
		}
		_ = job.Fail(execErr.Error())
		w.save(ctx, job)
		w.metrics.JobFinished(docType, domain.JobStatusFailed.String(), time.Since(started))
		log.Error("attachment job failed", zap.Error(execErr))
		return execErr
	}

	if err := job.Complete(file.ID); err != nil {
		return err
	}
	w.save(ctx, job)
	w.metrics.JobFinished(docType, domain.JobStatusCompleted.String(), time.Since(started))
	log.Info("attachment job completed",
		zap.String("file_id", file.ID.String()),
		zap.Duration("duration", time.Since(started)))
	return nil
}

// loadJob returns the job record for the task, creating one when the task
// was enqueued by another producer.
func (w *Worker) loadJob(ctx context.Context, task *queue.Task, payload domain.JobPayload) (*domain.Job, error) {
	if id, err := uuid.Parse(task.ID); err == nil {
		job, err := w.jobs.FindByID(ctx, id)
		if err == nil {
			return job, nil
		}
		if !errors.Is(err, shared.ErrNotFound) {
			w.logger.Warn("failed to load job record", zap.String("job_id", task.ID), zap.Error(err))
		}
	}

	job, err := domain.NewJob(payload, task.Timeout)
	if err != nil {
		return nil, err
	}
	if id, err := uuid.Parse(task.ID); err == nil {
		job.ID = id
	}
	return job, nil
}

func (w *Worker) save(ctx context.Context, job *domain.Job) {
	if err := w.jobs.Save(ctx, job); err != nil {
		logger.FromContext(ctx).Warn("failed to save job record",
			zap.String("status", job.Status.String()),
			zap.Error(err))
	}
}
