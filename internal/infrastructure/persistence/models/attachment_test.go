package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/pdfonsubmit/internal/domain/attachment"
)

func TestTableNames(t *testing.T) {
	assert.Equal(t, "pdf_on_submit_settings", SettingsModel{}.TableName())
	assert.Equal(t, "folders", FolderModel{}.TableName())
	assert.Equal(t, "files", FileModel{}.TableName())
	assert.Equal(t, "submitted_documents", DocumentModel{}.TableName())
	assert.Equal(t, "attachment_jobs", JobModel{}.TableName())
}

func TestSettingsModel_RoundTrip(t *testing.T) {
	s := &attachment.Settings{SalesInvoice: true, Dunning: true}
	m := SettingsModelFromDomain(s)

	assert.Equal(t, attachment.SettingsID, m.ID)
	assert.False(t, m.UpdatedAt.IsZero())

	back := m.ToDomain()
	assert.True(t, back.SalesInvoice)
	assert.True(t, back.Dunning)
	assert.False(t, back.Quotation)
}

func TestFolderModel_StoresPath(t *testing.T) {
	f, err := attachment.NewFolder("ACME", "Home/Sales Invoice")
	require.NoError(t, err)

	m := FolderModelFromDomain(f)
	assert.Equal(t, "Home/Sales Invoice/ACME", m.Path)
	assert.Equal(t, f.ID, m.ID)

	root := FolderModelFromDomain(attachment.NewHomeFolder())
	assert.Equal(t, "Home", root.Path)
	assert.Equal(t, "", root.Parent)
}

func TestDocumentModel_KeepsSnapshot(t *testing.T) {
	posted := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	doc := &attachment.SubmittedDocument{
		DocType:     attachment.DocTypeSalesInvoice,
		Name:        "SINV-0001",
		Customer:    "ACME",
		PostingDate: &posted,
		GrandTotal:  decimal.RequireFromString("119.00"),
		Items: []attachment.DocumentItem{
			{ItemCode: "WIDGET", Qty: decimal.NewFromInt(2), Rate: decimal.RequireFromString("59.50"), Amount: decimal.RequireFromString("119.00")},
		},
	}

	m, err := DocumentModelFromDomain(doc)
	require.NoError(t, err)
	assert.Equal(t, "Sales Invoice", m.DocType)
	assert.Equal(t, "ACME", m.Customer)
	assert.False(t, m.SubmittedAt.IsZero())

	back, err := m.ToDomain()
	require.NoError(t, err)
	assert.Equal(t, doc.Name, back.Name)
	assert.True(t, doc.GrandTotal.Equal(back.GrandTotal))
	require.Len(t, back.Items, 1)
	assert.Equal(t, "WIDGET", back.Items[0].ItemCode)
	assert.True(t, posted.Equal(*back.PostingDate))
}

func TestJobModel_RoundTrip(t *testing.T) {
	job, err := attachment.NewJob(attachment.JobPayload{
		DocType: attachment.DocTypeDunning, Name: "DUNN-1", Party: "ACME",
	}, 30*time.Second)
	require.NoError(t, err)
	require.NoError(t, job.Complete(uuid.New()))

	m := JobModelFromDomain(job)
	assert.Equal(t, 30, m.TimeoutSeconds)
	assert.Equal(t, "completed", m.Status)

	back := m.ToDomain()
	assert.Equal(t, job.ID, back.ID)
	assert.Equal(t, job.Payload, back.Payload)
	assert.Equal(t, 30*time.Second, back.Timeout)
	assert.Equal(t, *job.FileID, *back.FileID)
}
