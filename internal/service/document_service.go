package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/revenuehq/tax-portal-api/internal/dto"
	"github.com/revenuehq/tax-portal-api/internal/models"
	appErrors "github.com/revenuehq/tax-portal-api/pkg/errors"
	"github.com/revenuehq/tax-portal-api/pkg/storage"
)

type documentRepository interface {
	Create(ctx context.Context, d *models.Document) error
	GetByID(ctx context.Context, id string) (*models.Document, error)
	ListByTaxpayer(ctx context.Context, taxpayerID string) ([]models.Document, error)
	ListAll(ctx context.Context) ([]models.DocumentWithProfile, error)
	UpdateStatus(ctx context.Context, id string, status models.DocumentStatus) (*models.Document, error)
}

type documentNotifier interface {
	Notify(ctx context.Context, userID, title, message string)
	NotifyRole(ctx context.Context, title, message string, roles ...models.UserRole)
}

type documentAuditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// DocumentUpload carries one incoming file and its declared metadata.
type DocumentUpload struct {
	FileName     string
	DocumentType string
	ContentType  string
	Size         int64
	Content      io.Reader
}

// DocumentServiceConfig bounds what taxpayers may upload.
type DocumentServiceConfig struct {
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
}

// DocumentService manages evidence uploads and officer review. The file is
// written to storage before the metadata row: an orphaned file is
// recoverable, a row pointing at nothing is not.
type DocumentService struct {
	repo      documentRepository
	notifier  documentNotifier
	audit     documentAuditLogger
	store     *storage.LocalStorage
	signer    *storage.SignedURLSigner
	validator *validator.Validate
	logger    *zap.Logger
	config    DocumentServiceConfig
}

// NewDocumentService constructs a DocumentService.
func NewDocumentService(repo documentRepository, notifier documentNotifier, audit documentAuditLogger, store *storage.LocalStorage, signer *storage.SignedURLSigner, validate *validator.Validate, logger *zap.Logger, config DocumentServiceConfig) *DocumentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentService{
		repo:      repo,
		notifier:  notifier,
		audit:     audit,
		store:     store,
		signer:    signer,
		validator: validate,
		logger:    logger,
		config:    config,
	}
}

// Upload stores a taxpayer's file and records the document as Pending
// Review, then tells the review staff about it.
func (s *DocumentService) Upload(ctx context.Context, taxpayerID string, upload DocumentUpload) (*dto.DocumentResponse, error) {
	if upload.FileName == "" || upload.DocumentType == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file name and document type are required")
	}
	if s.config.MaxFileSizeBytes > 0 && upload.Size > s.config.MaxFileSizeBytes {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("file exceeds the %d byte upload limit", s.config.MaxFileSizeBytes))
	}
	if !s.mimeAllowed(upload.ContentType) {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("file type %s is not accepted", upload.ContentType))
	}

	ext := strings.ToLower(filepath.Ext(upload.FileName))
	path := fmt.Sprintf("%s/%s_%s%s", taxpayerID, upload.DocumentType, uuid.NewString(), ext)
	if _, err := s.store.SaveStream(path, upload.Content); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store uploaded file")
	}

	doc := &models.Document{
		TaxpayerID:   taxpayerID,
		DocumentName: upload.FileName,
		DocumentType: upload.DocumentType,
		StoragePath:  path,
		Status:       models.DocumentStatusPendingReview,
	}
	if err := s.repo.Create(ctx, doc); err != nil {
		if cleanupErr := s.store.Delete(path); cleanupErr != nil {
			s.logger.Warn("failed to remove orphaned upload", zap.String("path", path), zap.Error(cleanupErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record document")
	}

	s.notifier.NotifyRole(ctx, "New Document for Review",
		fmt.Sprintf("A new %s (%s) is awaiting review.", upload.DocumentType, upload.FileName),
		models.RoleOfficer, models.RoleAdmin)

	return s.documentResponse(doc), nil
}

// Review sets a document's status and tells the owner about the outcome.
// Any status can be set from any status: officers may re-open or reverse
// an earlier decision.
func (s *DocumentService) Review(ctx context.Context, reviewerID, documentID string, req dto.ReviewDocumentRequest) (*dto.DocumentResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}

	doc, err := s.repo.UpdateStatus(ctx, documentID, req.Status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update document status")
	}

	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &reviewerID,
		Action:     models.AuditActionDocumentReview,
		Resource:   "document",
		ResourceID: &doc.ID,
		NewValues:  []byte(fmt.Sprintf(`{"status":%q}`, doc.Status)),
	}); err != nil {
		s.logger.Warn("failed to record document review audit log", zap.Error(err))
	}

	s.notifier.Notify(ctx, doc.TaxpayerID, fmt.Sprintf("Document %s", doc.Status),
		fmt.Sprintf("Your document %q is now %s.", doc.DocumentName, doc.Status))

	return s.documentResponse(doc), nil
}

// ListForTaxpayer returns the taxpayer's own documents with signed
// download links.
func (s *DocumentService) ListForTaxpayer(ctx context.Context, taxpayerID string) ([]dto.DocumentResponse, error) {
	rows, err := s.repo.ListByTaxpayer(ctx, taxpayerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list documents")
	}
	out := make([]dto.DocumentResponse, 0, len(rows))
	for i := range rows {
		out = append(out, *s.documentResponse(&rows[i]))
	}
	return out, nil
}

// ListAll returns every document joined with its owner for staff review
// queues.
func (s *DocumentService) ListAll(ctx context.Context) ([]dto.DocumentResponse, error) {
	rows, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list documents")
	}
	out := make([]dto.DocumentResponse, 0, len(rows))
	for i := range rows {
		profile := rows[i].ProfileStub
		resp := s.documentResponse(&rows[i].Document)
		resp.Profile = &profile
		out = append(out, *resp)
	}
	return out, nil
}

// ResolveDownload validates a signed token and returns the stored file
// path it references.
func (s *DocumentService) ResolveDownload(ctx context.Context, token string) (string, error) {
	docID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid download token")
	}
	doc, err := s.repo.GetByID(ctx, docID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document")
	}
	if doc.StoragePath != relPath {
		return "", appErrors.Clone(appErrors.ErrUnauthorized, "download token does not match document")
	}
	return s.store.Path(doc.StoragePath), nil
}

func (s *DocumentService) mimeAllowed(contentType string) bool {
	if len(s.config.AllowedMIMEs) == 0 {
		return true
	}
	for _, allowed := range s.config.AllowedMIMEs {
		if strings.EqualFold(allowed, contentType) {
			return true
		}
	}
	return false
}

func (s *DocumentService) documentResponse(d *models.Document) *dto.DocumentResponse {
	resp := &dto.DocumentResponse{
		ID:           d.ID,
		TaxpayerID:   d.TaxpayerID,
		DocumentName: d.DocumentName,
		DocumentType: d.DocumentType,
		Status:       d.Status,
		UploadDate:   d.UploadDate,
	}
	if s.signer != nil {
		if token, _, err := s.signer.Generate(d.ID, d.StoragePath); err == nil {
			url := fmt.Sprintf("/api/v1/documents/download?token=%s", token)
			resp.FileURL = &url
		} else {
			s.logger.Warn("failed to sign document url", zap.String("document_id", d.ID), zap.Error(err))
		}
	}
	return resp
}
