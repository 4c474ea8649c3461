package attachment_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/erp/pdfonsubmit/internal/application/attachment"
	domain "github.com/erp/pdfonsubmit/internal/domain/attachment"
	"github.com/erp/pdfonsubmit/internal/domain/shared"
	"github.com/erp/pdfonsubmit/internal/infrastructure/logger"
	"github.com/erp/pdfonsubmit/internal/infrastructure/queue"
)

func newJobTask(t *testing.T, timeout time.Duration) (*domain.Job, *queue.Task) {
	t.Helper()
	job, err := domain.NewJob(domain.JobPayload{
		DocType: domain.DocTypeSalesInvoice, Name: "SINV-1", Party: "ACME",
	}, timeout)
	require.NoError(t, err)
	task, err := queue.NewTask(job.Method, job.Queue, job.Timeout, job.Payload)
	require.NoError(t, err)
	task.ID = job.ID.String()
	return job, task
}

func TestWorker_CompletesJob(t *testing.T) {
	executor := new(MockExecutor)
	jobs := new(MockJobRepository)
	metrics := newRecordingJobMetrics()
	w := attachment.NewWorker(executor, jobs, metrics, nil)

	job, task := newJobTask(t, 30*time.Second)
	file, err := domain.NewFileRecord("SINV-1.pdf", "Home/Sales Invoice/ACME", domain.DocTypeSalesInvoice, "SINV-1")
	require.NoError(t, err)

	jobs.On("FindByID", mock.Anything, job.ID).Return(job, nil)
	jobs.On("Save", mock.Anything, job).Return(nil)
	executor.On("Execute", mock.Anything, job.Payload).Run(func(args mock.Arguments) {
		ctx := args.Get(0).(context.Context)
		deadline, ok := ctx.Deadline()
		assert.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(30*time.Second), deadline, 2*time.Second)
	}).Return(file, nil)

	require.NoError(t, w.Handle(context.Background(), task))
	assert.Equal(t, domain.JobStatusCompleted, job.Status)
	require.NotNil(t, job.FileID)
	assert.Equal(t, file.ID, *job.FileID)
	assert.NotNil(t, job.StartedAt)
	assert.Equal(t, 1, metrics.started)
	assert.Equal(t, 1, metrics.finished[domain.JobStatusCompleted.String()])
}

func TestWorker_FailsJob(t *testing.T) {
	executor := new(MockExecutor)
	jobs := new(MockJobRepository)
	metrics := newRecordingJobMetrics()
	w := attachment.NewWorker(executor, jobs, metrics, nil)

	job, task := newJobTask(t, 30*time.Second)
	jobs.On("FindByID", mock.Anything, job.ID).Return(job, nil)
	jobs.On("Save", mock.Anything, job).Return(nil)
	executor.On("Execute", mock.Anything, job.Payload).Return(nil, errors.New("render failed"))

	err := w.Handle(context.Background(), task)
	assert.Error(t, err)
	assert.Equal(t, domain.JobStatusFailed, job.Status)
	assert.Contains(t, job.ErrorMessage, "render failed")
	assert.Equal(t, 1, metrics.finished[domain.JobStatusFailed.String()])
}

func TestWorker_TagsJobContextAndLogs(t *testing.T) {
	executor := new(MockExecutor)
	jobs := new(MockJobRepository)
	core, recorded := observer.New(zapcore.InfoLevel)
	w := attachment.NewWorker(executor, jobs, nil, zap.New(core))

	job, task := newJobTask(t, 30*time.Second)
	jobs.On("FindByID", mock.Anything, job.ID).Return(job, nil)
	jobs.On("Save", mock.Anything, job).Return(nil)
	executor.On("Execute", mock.Anything, job.Payload).Run(func(args mock.Arguments) {
		ctx := args.Get(0).(context.Context)
		assert.Equal(t, job.ID.String(), logger.GetJobID(ctx))
		ref, ok := logger.GetDocument(ctx)
		require.True(t, ok)
		assert.Equal(t, domain.DocTypeSalesInvoice.String(), ref.DocType)
		assert.Equal(t, "SINV-1", ref.Name)
	}).Return(nil, errors.New("render failed"))

	require.Error(t, w.Handle(context.Background(), task))

	entries := recorded.FilterMessage("attachment job failed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, job.ID.String(), fields["job_id"])
	assert.Equal(t, domain.DocTypeSalesInvoice.String(), fields["doctype"])
	assert.Equal(t, "SINV-1", fields["docname"])
}

func TestWorker_TimeoutFailsJob(t *testing.T) {
	executor := new(MockExecutor)
	jobs := new(MockJobRepository)
	w := attachment.NewWorker(executor, jobs, nil, nil)

	job, task := newJobTask(t, 20*time.Millisecond)
	jobs.On("FindByID", mock.Anything, job.ID).Return(job, nil)
	jobs.On("Save", mock.Anything, job).Return(nil)
	executor.On("Execute", mock.Anything, job.Payload).Run(func(args mock.Arguments) {
		<-args.Get(0).(context.Context).Done()
	}).Return(nil, context.DeadlineExceeded)

	err := w.Handle(context.Background(), task)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, domain.JobStatusFailed, job.Status)
	assert.Contains(t, job.ErrorMessage, "timed out")
}

func TestWorker_SkipsTerminalJob(t *testing.T) {
	executor := new(MockExecutor)
	jobs := new(MockJobRepository)
	w := attachment.NewWorker(executor, jobs, nil, nil)

	job, task := newJobTask(t, 30*time.Second)
	require.NoError(t, job.Complete(uuid.New()))
	jobs.On("FindByID", mock.Anything, job.ID).Return(job, nil)

	require.NoError(t, w.Handle(context.Background(), task))
	executor.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
	jobs.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestWorker_CreatesMissingJobRecord(t *testing.T) {
	executor := new(MockExecutor)
	jobs := new(MockJobRepository)
	w := attachment.NewWorker(executor, jobs, nil, nil)

	job, task := newJobTask(t, 0)
	file, err := domain.NewFileRecord("SINV-1.pdf", "Home/x/y", domain.DocTypeSalesInvoice, "SINV-1")
	require.NoError(t, err)

	jobs.On("FindByID", mock.Anything, job.ID).Return(nil, shared.ErrNotFound)
	var last *domain.Job
	jobs.On("Save", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		last = args.Get(1).(*domain.Job)
	}).Return(nil)
	executor.On("Execute", mock.Anything, job.Payload).Return(file, nil)

	require.NoError(t, w.Handle(context.Background(), task))
	require.NotNil(t, last)
	assert.Equal(t, job.ID, last.ID)
	assert.Equal(t, domain.JobStatusCompleted, last.Status)
}

func TestWorker_RejectsUnknownMethod(t *testing.T) {
	w := attachment.NewWorker(new(MockExecutor), new(MockJobRepository), nil, nil)
	task, err := queue.NewTask("other", "long", time.Second, map[string]string{})
	require.NoError(t, err)
	assert.Error(t, w.Handle(context.Background(), task))
}

func TestWorker_RejectsBadPayload(t *testing.T) {
	w := attachment.NewWorker(new(MockExecutor), new(MockJobRepository), nil, nil)
	task := &queue.Task{ID: uuid.NewString(), Method: domain.JobMethod, Payload: []byte(`{"doctype":`)}
	assert.Error(t, w.Handle(context.Background(), task))
}
