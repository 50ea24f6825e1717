package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/revenuehq/tax-portal-api/internal/dto"
	"github.com/revenuehq/tax-portal-api/internal/models"
	appErrors "github.com/revenuehq/tax-portal-api/pkg/errors"
	"github.com/revenuehq/tax-portal-api/pkg/storage"
)

type documentRepoStub struct {
	docs      map[string]*models.Document
	createErr error
}

func (s *documentRepoStub) Create(ctx context.Context, d *models.Document) error {
	if s.createErr != nil {
		return s.createErr
	}
	if s.docs == nil {
		s.docs = make(map[string]*models.Document)
	}
	d.ID = "doc-1"
	s.docs[d.ID] = d
	return nil
}

func (s *documentRepoStub) GetByID(ctx context.Context, id string) (*models.Document, error) {
	if d, ok := s.docs[id]; ok {
		return d, nil
	}
	return nil, sql.ErrNoRows
}

func (s *documentRepoStub) ListByTaxpayer(ctx context.Context, taxpayerID string) ([]models.Document, error) {
	var out []models.Document
	for _, d := range s.docs {
		if d.TaxpayerID == taxpayerID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (s *documentRepoStub) ListAll(ctx context.Context) ([]models.DocumentWithProfile, error) {
	var out []models.DocumentWithProfile
	for _, d := range s.docs {
		out = append(out, models.DocumentWithProfile{Document: *d})
	}
	return out, nil
}

func (s *documentRepoStub) UpdateStatus(ctx context.Context, id string, status models.DocumentStatus) (*models.Document, error) {
	if d, ok := s.docs[id]; ok {
		d.Status = status
		return d, nil
	}
	return nil, sql.ErrNoRows
}

func newDocumentFixture(t *testing.T, repo *documentRepoStub) (*DocumentService, *fanoutRecorder) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", 0)
	notifier := &fanoutRecorder{}
	svc := NewDocumentService(repo, notifier, &auditRecorder{}, store, signer, nil, nil, DocumentServiceConfig{
		MaxFileSizeBytes: 1024,
		AllowedMIMEs:     []string{"application/pdf"},
	})
	return svc, notifier
}

func TestDocumentUploadStoresFileAndNotifiesStaff(t *testing.T) {
	repo := &documentRepoStub{}
	svc, notifier := newDocumentFixture(t, repo)

	resp, err := svc.Upload(context.Background(), "tp-1", DocumentUpload{
		FileName:     "bank-statement.pdf",
		DocumentType: "Bank Statement",
		ContentType:  "application/pdf",
		Size:         100,
		Content:      strings.NewReader("%PDF-1.4 test"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.DocumentStatusPendingReview, resp.Status)
	require.NotNil(t, resp.FileURL)

	stored := repo.docs["doc-1"]
	require.NotNil(t, stored)
	assert.True(t, strings.HasPrefix(stored.StoragePath, "tp-1/Bank Statement_"))
	assert.True(t, strings.HasSuffix(stored.StoragePath, ".pdf"))

	require.Len(t, notifier.fanout, 1)
	assert.Equal(t, "New Document for Review", notifier.fanout[0])
}

func TestDocumentUploadRejectsOversizedFile(t *testing.T) {
	svc, _ := newDocumentFixture(t, &documentRepoStub{})

	_, err := svc.Upload(context.Background(), "tp-1", DocumentUpload{
		FileName:     "big.pdf",
		DocumentType: "Bank Statement",
		ContentType:  "application/pdf",
		Size:         4096,
		Content:      strings.NewReader("data"),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestDocumentUploadRejectsDisallowedMIME(t *testing.T) {
	svc, _ := newDocumentFixture(t, &documentRepoStub{})

	_, err := svc.Upload(context.Background(), "tp-1", DocumentUpload{
		FileName:     "run.exe",
		DocumentType: "Other",
		ContentType:  "application/octet-stream",
		Size:         10,
		Content:      strings.NewReader("MZ"),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestDocumentUploadCleansUpWhenRowInsertFails(t *testing.T) {
	repo := &documentRepoStub{createErr: errors.New("insert failed")}
	svc, notifier := newDocumentFixture(t, repo)

	_, err := svc.Upload(context.Background(), "tp-1", DocumentUpload{
		FileName:     "bank-statement.pdf",
		DocumentType: "Bank Statement",
		ContentType:  "application/pdf",
		Size:         100,
		Content:      strings.NewReader("%PDF-1.4 test"),
	})
	require.Error(t, err)
	assert.Empty(t, notifier.fanout, "no staff alert for a failed upload")
}

func TestDocumentReviewNotifiesOwner(t *testing.T) {
	repo := &documentRepoStub{docs: map[string]*models.Document{
		"doc-1": {ID: "doc-1", TaxpayerID: "tp-1", DocumentName: "bank-statement.pdf", Status: models.DocumentStatusPendingReview},
	}}
	svc, notifier := newDocumentFixture(t, repo)

	resp, err := svc.Review(context.Background(), "officer-1", "doc-1", dto.ReviewDocumentRequest{Status: models.DocumentStatusApproved})
	require.NoError(t, err)
	assert.Equal(t, models.DocumentStatusApproved, resp.Status)

	require.Len(t, notifier.direct, 1)
	assert.Equal(t, "tp-1", notifier.direct[0].UserID)
	assert.Equal(t, "Document Approved", notifier.direct[0].Title)
}

func TestDocumentResolveDownloadRoundTrip(t *testing.T) {
	repo := &documentRepoStub{}
	svc, _ := newDocumentFixture(t, repo)

	_, err := svc.Upload(context.Background(), "tp-1", DocumentUpload{
		FileName:     "bank-statement.pdf",
		DocumentType: "Bank Statement",
		ContentType:  "application/pdf",
		Size:         100,
		Content:      strings.NewReader("%PDF-1.4 test"),
	})
	require.NoError(t, err)
	doc := repo.docs["doc-1"]

	signer := storage.NewSignedURLSigner("test-secret", 0)
	token, _, err := signer.Generate(doc.ID, doc.StoragePath)
	require.NoError(t, err)

	path, err := svc.ResolveDownload(context.Background(), token)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, doc.StoragePath))
}

func TestDocumentResolveDownloadRejectsPathMismatch(t *testing.T) {
	repo := &documentRepoStub{docs: map[string]*models.Document{
		"doc-1": {ID: "doc-1", TaxpayerID: "tp-1", StoragePath: "tp-1/real.pdf"},
	}}
	svc, _ := newDocumentFixture(t, repo)

	signer := storage.NewSignedURLSigner("test-secret", 0)
	token, _, err := signer.Generate("doc-1", "tp-1/other.pdf")
	require.NoError(t, err)

	_, err = svc.ResolveDownload(context.Background(), token)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestDocumentReviewAllowsAnyTransition(t *testing.T) {
	repo := &documentRepoStub{docs: map[string]*models.Document{
		"doc-1": {ID: "doc-1", TaxpayerID: "tp-1", Status: models.DocumentStatusApproved},
	}}
	svc, _ := newDocumentFixture(t, repo)

	resp, err := svc.Review(context.Background(), "officer-1", "doc-1", dto.ReviewDocumentRequest{Status: models.DocumentStatusRejected})
	require.NoError(t, err)
	assert.Equal(t, models.DocumentStatusRejected, resp.Status)
}
