package attachment_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	domain "github.com/erp/pdfonsubmit/internal/domain/attachment"
	"github.com/erp/pdfonsubmit/internal/domain/shared"
	"github.com/erp/pdfonsubmit/internal/infrastructure/printing"
	"github.com/erp/pdfonsubmit/internal/infrastructure/queue"
)

// =============================================================================
// Mock Implementations
// =============================================================================

type MockSettingsRepository struct {
	mock.Mock
}

func (m *MockSettingsRepository) Get(ctx context.Context) (*domain.Settings, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Settings), args.Error(1)
}

func (m *MockSettingsRepository) Save(ctx context.Context, settings *domain.Settings) error {
	args := m.Called(ctx, settings)
	return args.Error(0)
}

type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) Save(ctx context.Context, doc *domain.SubmittedDocument) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockDocumentRepository) FindByName(ctx context.Context, docType domain.DocType, name string) (*domain.SubmittedDocument, error) {
	args := m.Called(ctx, docType, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SubmittedDocument), args.Error(1)
}

type MockJobRepository struct {
	mock.Mock
}

func (m *MockJobRepository) Save(ctx context.Context, job *domain.Job) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockJobRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Job), args.Error(1)
}

func (m *MockJobRepository) FindAll(ctx context.Context, filter domain.JobFilter) ([]domain.Job, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]domain.Job), args.Get(1).(int64), args.Error(2)
}

type MockFileRepository struct {
	mock.Mock
}

func (m *MockFileRepository) Save(ctx context.Context, file *domain.FileRecord) error {
	args := m.Called(ctx, file)
	return args.Error(0)
}

func (m *MockFileRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.FileRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FileRecord), args.Error(1)
}

func (m *MockFileRepository) FindByAttachment(ctx context.Context, docType domain.DocType, docName string) ([]domain.FileRecord, error) {
	args := m.Called(ctx, docType, docName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.FileRecord), args.Error(1)
}

func (m *MockFileRepository) FindByContentHash(ctx context.Context, docType domain.DocType, docName, hash string) (*domain.FileRecord, error) {
	args := m.Called(ctx, docType, docName, hash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FileRecord), args.Error(1)
}

type MockTaskQueue struct {
	mock.Mock
}

func (m *MockTaskQueue) Enqueue(ctx context.Context, task *queue.Task) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

type MockPartyLookup struct {
	mock.Mock
}

func (m *MockPartyLookup) InvoiceCustomer(ctx context.Context, invoiceName string) (string, error) {
	args := m.Called(ctx, invoiceName)
	return args.String(0), args.Error(1)
}

type MockHostClient struct {
	mock.Mock
}

func (m *MockHostClient) GetValue(ctx context.Context, docType, name, field string) (string, error) {
	args := m.Called(ctx, docType, name, field)
	return args.String(0), args.Error(1)
}

type MockDispatchMetrics struct {
	mock.Mock
}

func (m *MockDispatchMetrics) RecordDispatch(ctx context.Context, docType domain.DocType, outcome string) {
	m.Called(ctx, docType, outcome)
}

type MockExecutor struct {
	mock.Mock
}

func (m *MockExecutor) Execute(ctx context.Context, payload domain.JobPayload) (*domain.FileRecord, error) {
	args := m.Called(ctx, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FileRecord), args.Error(1)
}

// =============================================================================
// Fakes
// =============================================================================

// fakeFolderRepository keeps folders in a map keyed by path
type fakeFolderRepository struct {
	mu      sync.Mutex
	folders map[string]domain.Folder
	creates int
	err     error
}

func newFakeFolderRepository() *fakeFolderRepository {
	return &fakeFolderRepository{folders: make(map[string]domain.Folder)}
}

func (r *fakeFolderRepository) Create(_ context.Context, folder *domain.Folder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creates++
	if r.err != nil {
		return r.err
	}
	if _, ok := r.folders[folder.Path()]; ok {
		return fmt.Errorf("folder %s: %w", folder.Path(), shared.ErrAlreadyExists)
	}
	r.folders[folder.Path()] = *folder
	return nil
}

func (r *fakeFolderRepository) FindByPath(_ context.Context, path string) (*domain.Folder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.folders[path]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &f, nil
}

func (r *fakeFolderRepository) FindChildren(_ context.Context, parent string) ([]domain.Folder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Folder
	for _, f := range r.folders {
		if f.Parent == parent {
			out = append(out, f)
		}
	}
	return out, nil
}

func (r *fakeFolderRepository) has(path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.folders[path]
	return ok
}

// fakeStore is an in-memory FileStore
type fakeStore struct {
	mu        sync.Mutex
	objects   map[string][]byte
	uploadErr error
	deleted   []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string][]byte)}
}

func (s *fakeStore) Upload(_ context.Context, key string, data []byte, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.uploadErr != nil {
		return s.uploadErr
	}
	s.objects[key] = append([]byte(nil), data...)
	return nil
}

func (s *fakeStore) Download(_ context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %s: %w", key, shared.ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *fakeStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	s.deleted = append(s.deleted, key)
	return nil
}

// fakePrinter renders a trivial HTML page for any document
type fakePrinter struct {
	err     error
	printed []domain.SubmittedDocument
}

func (p *fakePrinter) Render(_ context.Context, doc *domain.SubmittedDocument) (*printing.RenderRequest, error) {
	p.printed = append(p.printed, *doc)
	if p.err != nil {
		return nil, p.err
	}
	return &printing.RenderRequest{
		HTML:  "<html><body>" + doc.Name + "</body></html>",
		Title: doc.Name,
	}, nil
}

// fakeConverter returns fixed bytes derived from the HTML
type fakeConverter struct {
	err   error
	calls int
}

func (c *fakeConverter) Render(_ context.Context, req *printing.RenderRequest) (*printing.RenderResult, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return &printing.RenderResult{PDFData: []byte("%PDF-1.4\n" + req.HTML + "\n%%EOF")}, nil
}

// fakeInspector reports one page per call
type fakeInspector struct {
	err error
}

func (i *fakeInspector) Inspect(data []byte) (*printing.PDFInfo, error) {
	if i.err != nil {
		return nil, i.err
	}
	return &printing.PDFInfo{PageCount: 1, Size: int64(len(data))}, nil
}

type staticLabeler map[domain.DocType]string

func (l staticLabeler) Label(d domain.DocType) string {
	if s, ok := l[d]; ok {
		return s
	}
	return d.String()
}

// recordingJobMetrics counts worker metric calls
type recordingJobMetrics struct {
	mu       sync.Mutex
	started  int
	finished map[string]int
}

func newRecordingJobMetrics() *recordingJobMetrics {
	return &recordingJobMetrics{finished: make(map[string]int)}
}

func (r *recordingJobMetrics) JobStarted(string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started++
}

func (r *recordingJobMetrics) JobFinished(_ string, status string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished[status]++
}
