package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/pdfonsubmit/internal/domain/attachment"
	"github.com/erp/pdfonsubmit/internal/domain/shared"
	"github.com/erp/pdfonsubmit/internal/infrastructure/config"
)

func newSQLiteDatabase(t *testing.T) *Database {
	t.Helper()
	db, err := NewDatabase(&config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate())
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSettingsRepository(t *testing.T) {
	db := newSQLiteDatabase(t)
	repo := NewGormSettingsRepository(db.DB)
	ctx := context.Background()

	settings, err := repo.Get(ctx)
	require.NoError(t, err)
	for _, d := range attachment.AllDocTypes() {
		assert.False(t, settings.Enabled(d), d)
	}

	settings.Set(attachment.DocTypeSalesInvoice, true)
	settings.Set(attachment.DocTypeDunning, true)
	require.NoError(t, repo.Save(ctx, settings))

	settings.Set(attachment.DocTypeDunning, false)
	require.NoError(t, repo.Save(ctx, settings))

	loaded, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.True(t, loaded.SalesInvoice)
	assert.False(t, loaded.Dunning)

	var count int64
	require.NoError(t, db.DB.Table("pdf_on_submit_settings").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestFolderRepository(t *testing.T) {
	db := newSQLiteDatabase(t)
	repo := NewGormFolderRepository(db.DB)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, attachment.NewHomeFolder()))
	err := repo.Create(ctx, attachment.NewHomeFolder())
	assert.True(t, errors.Is(err, shared.ErrAlreadyExists), "got %v", err)

	label, err := attachment.NewFolder("Sales Invoice", attachment.HomeFolder)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, label))

	dup, err := attachment.NewFolder("Sales Invoice", attachment.HomeFolder)
	require.NoError(t, err)
	assert.ErrorIs(t, repo.Create(ctx, dup), shared.ErrAlreadyExists)

	party, err := attachment.NewFolder("ACME", label.Path())
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, party))

	found, err := repo.FindByPath(ctx, "Home/Sales Invoice/ACME")
	require.NoError(t, err)
	assert.Equal(t, party.ID, found.ID)
	assert.Equal(t, "Home/Sales Invoice", found.Parent)

	_, err = repo.FindByPath(ctx, "Home/Nope")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	children, err := repo.FindChildren(ctx, attachment.HomeFolder)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "Sales Invoice", children[0].Name)
}

func TestFileRepository(t *testing.T) {
	db := newSQLiteDatabase(t)
	repo := NewGormFileRepository(db.DB)
	ctx := context.Background()

	file, err := attachment.NewFileRecord("SINV-1.pdf", "Home/Sales Invoice/ACME", attachment.DocTypeSalesInvoice, "SINV-1")
	require.NoError(t, err)
	file.StorageKey = "private/files/" + file.ID.String() + "/SINV-1.pdf"
	file.FileURL = "/" + file.StorageKey
	file.FileSize = 1234
	file.ContentHash = "abc123"
	file.PageCount = 2
	require.NoError(t, repo.Save(ctx, file))

	loaded, err := repo.FindByID(ctx, file.ID)
	require.NoError(t, err)
	assert.Equal(t, file.FileName, loaded.FileName)
	assert.Equal(t, file.StorageKey, loaded.StorageKey)
	assert.True(t, loaded.IsPrivate)
	assert.Equal(t, 2, loaded.PageCount)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)

	attached, err := repo.FindByAttachment(ctx, attachment.DocTypeSalesInvoice, "SINV-1")
	require.NoError(t, err)
	assert.Len(t, attached, 1)

	byHash, err := repo.FindByContentHash(ctx, attachment.DocTypeSalesInvoice, "SINV-1", "abc123")
	require.NoError(t, err)
	assert.Equal(t, file.ID, byHash.ID)

	_, err = repo.FindByContentHash(ctx, attachment.DocTypeSalesInvoice, "SINV-2", "abc123")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestDocumentRepository(t *testing.T) {
	db := newSQLiteDatabase(t)
	repo := NewGormDocumentRepository(db.DB)
	ctx := context.Background()

	doc := &attachment.SubmittedDocument{
		DocType:  attachment.DocTypeSalesInvoice,
		Name:     "SINV-1",
		Customer: "ACME",
		Fields:   map[string]string{"po_no": "PO-77"},
	}
	require.NoError(t, repo.Save(ctx, doc))

	doc.Customer = "ACME Corp"
	require.NoError(t, repo.Save(ctx, doc))

	loaded, err := repo.FindByName(ctx, attachment.DocTypeSalesInvoice, "SINV-1")
	require.NoError(t, err)
	assert.Equal(t, "ACME Corp", loaded.Customer)
	assert.Equal(t, "PO-77", loaded.Fields["po_no"])

	_, err = repo.FindByName(ctx, attachment.DocTypeDeliveryNote, "SINV-1")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestJobRepository(t *testing.T) {
	db := newSQLiteDatabase(t)
	repo := NewGormJobRepository(db.DB)
	ctx := context.Background()

	var ids []uuid.UUID
	for i, name := range []string{"SINV-1", "SINV-2", "QTN-1"} {
		docType := attachment.DocTypeSalesInvoice
		if name == "QTN-1" {
			docType = attachment.DocTypeQuotation
		}
		job, err := attachment.NewJob(attachment.JobPayload{DocType: docType, Name: name, Party: "ACME"}, 30*time.Second)
		require.NoError(t, err)
		job.CreatedAt = job.CreatedAt.Add(time.Duration(i) * time.Second)
		require.NoError(t, repo.Save(ctx, job))
		ids = append(ids, job.ID)
	}

	job, err := repo.FindByID(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, attachment.JobStatusQueued, job.Status)
	assert.Equal(t, 30*time.Second, job.Timeout)

	require.NoError(t, job.Start())
	require.NoError(t, job.Fail("render failed"))
	require.NoError(t, repo.Save(ctx, job))

	reloaded, err := repo.FindByID(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, attachment.JobStatusFailed, reloaded.Status)
	assert.Equal(t, "render failed", reloaded.ErrorMessage)
	assert.NotNil(t, reloaded.FinishedAt)

	all, total, err := repo.FindAll(ctx, attachment.JobFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, all, 3)
	assert.Equal(t, "QTN-1", all[0].Payload.Name)

	invoices, total, err := repo.FindAll(ctx, attachment.JobFilter{DocType: attachment.DocTypeSalesInvoice, PageSize: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, invoices, 1)

	failed, total, err := repo.FindAll(ctx, attachment.JobFilter{Status: attachment.JobStatusFailed})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, ids[0], failed[0].ID)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestNewDatabase_UnsupportedDriver(t *testing.T) {
	_, err := NewDatabase(&config.DatabaseConfig{Driver: "oracle"})
	assert.Error(t, err)
}
