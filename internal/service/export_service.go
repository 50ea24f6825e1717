package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/revenuehq/tax-portal-api/internal/models"
	"github.com/revenuehq/tax-portal-api/pkg/export"
	"github.com/revenuehq/tax-portal-api/pkg/storage"
)

type exportAssessmentReader interface {
	ListAll(ctx context.Context) ([]models.AssessmentWithProfile, error)
	ListByTaxpayer(ctx context.Context, taxpayerID string) ([]models.Assessment, error)
}

type exportPaymentReader interface {
	ListAll(ctx context.Context) ([]models.Payment, error)
	ListByTaxpayer(ctx context.Context, taxpayerID string) ([]models.Payment, error)
}

type exportUserReader interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ReportFormat
	ExpiresAt    time.Time
}

// ExportService builds report datasets and persists rendered files.
type ExportService struct {
	assessments exportAssessmentReader
	payments    exportPaymentReader
	users       exportUserReader
	storage     fileStorage
	csv         csvRenderer
	pdf         pdfRenderer
	signer      *storage.SignedURLSigner
	logger      *zap.Logger
	cfg         ExportConfig
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// NewExportService constructs an ExportService.
func NewExportService(assessments exportAssessmentReader, payments exportPaymentReader, users exportUserReader, storage fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		assessments: assessments,
		payments:    payments,
		users:       users,
		storage:     storage,
		csv:         csv,
		pdf:         pdf,
		signer:      signer,
		logger:      logger,
		cfg:         cfg,
	}
}

// Generate builds dataset according to job definition and stores the rendered export.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	dataset, title, err := s.buildDataset(ctx, job)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch job.Params.Format {
	case models.ReportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ReportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	filename := s.buildFilename(job)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	signedURL := strings.TrimRight(s.cfg.APIPrefix, "/")
	if signedURL == "" {
		signedURL = "/api/v1"
	}
	signedURL = fmt.Sprintf("%s/export/%s", signedURL, token)

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          signedURL,
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(job *models.ReportJob) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	scope := "all"
	if job.Params.TaxpayerID != nil && *job.Params.TaxpayerID != "" {
		scope = sanitizeFilename(*job.Params.TaxpayerID)
	}
	return fmt.Sprintf("%s_%s_%s.%s", strings.ToLower(string(job.Type)), scope, timestamp, job.Params.Format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func (s *ExportService) buildDataset(ctx context.Context, job *models.ReportJob) (export.Dataset, string, error) {
	switch job.Type {
	case models.ReportTypeAssessments:
		return s.buildAssessmentDataset(ctx, job.Params)
	case models.ReportTypePayments:
		return s.buildPaymentDataset(ctx, job.Params)
	case models.ReportTypeTaxpayers:
		return s.buildTaxpayerDataset(ctx)
	default:
		return export.Dataset{}, "", fmt.Errorf("unsupported report type %s", job.Type)
	}
}

func (s *ExportService) buildAssessmentDataset(ctx context.Context, params models.ReportJobParams) (export.Dataset, string, error) {
	now := time.Now().UTC()
	var rows []models.Assessment
	if id := deref(params.TaxpayerID); id != "" {
		scoped, err := s.assessments.ListByTaxpayer(ctx, id)
		if err != nil {
			return export.Dataset{}, "", err
		}
		rows = scoped
	} else {
		all, err := s.assessments.ListAll(ctx)
		if err != nil {
			return export.Dataset{}, "", err
		}
		for i := range all {
			rows = append(rows, all[i].Assessment)
		}
	}

	period := deref(params.Period)
	dataRows := make([]map[string]string, 0, len(rows))
	for i := range rows {
		a := &rows[i]
		if period != "" && a.Period != period {
			continue
		}
		dataRows = append(dataRows, map[string]string{
			"Assessment ID": a.ID,
			"Taxpayer ID":   a.TaxpayerID,
			"Tax Type":      string(a.TaxType),
			"Period":        a.Period,
			"Income":        a.TaxableIncome.StringFixed(2),
			"Rate (%)":      a.TaxRateApplied.String(),
			"Amount Due":    a.AmountDue.StringFixed(2),
			"Due Date":      a.DueDate.UTC().Format("2006-01-02"),
			"Status":        string(a.EffectiveStatus(now)),
		})
	}
	dataset := export.Dataset{
		Headers: []string{"Assessment ID", "Taxpayer ID", "Tax Type", "Period", "Income", "Rate (%)", "Amount Due", "Due Date", "Status"},
		Rows:    dataRows,
	}
	return dataset, "Assessments Report", nil
}

func (s *ExportService) buildPaymentDataset(ctx context.Context, params models.ReportJobParams) (export.Dataset, string, error) {
	var rows []models.Payment
	var err error
	if id := deref(params.TaxpayerID); id != "" {
		rows, err = s.payments.ListByTaxpayer(ctx, id)
	} else {
		rows, err = s.payments.ListAll(ctx)
	}
	if err != nil {
		return export.Dataset{}, "", err
	}

	dataRows := make([]map[string]string, 0, len(rows))
	for i := range rows {
		p := &rows[i]
		dataRows = append(dataRows, map[string]string{
			"Payment ID":    p.ID,
			"Assessment ID": p.AssessmentID,
			"Taxpayer ID":   p.TaxpayerID,
			"Amount":        p.Amount.StringFixed(2),
			"Payment Date":  p.PaymentDate.UTC().Format(time.RFC3339),
		})
	}
	dataset := export.Dataset{
		Headers: []string{"Payment ID", "Assessment ID", "Taxpayer ID", "Amount", "Payment Date"},
		Rows:    dataRows,
	}
	return dataset, "Payments Report", nil
}

func (s *ExportService) buildTaxpayerDataset(ctx context.Context) (export.Dataset, string, error) {
	role := models.RoleTaxpayer
	users, _, err := s.users.List(ctx, models.UserFilter{Role: &role, Page: 1, PageSize: 10000})
	if err != nil {
		return export.Dataset{}, "", err
	}

	dataRows := make([]map[string]string, 0, len(users))
	for i := range users {
		u := &users[i]
		lastLogin := ""
		if u.LastLogin != nil {
			lastLogin = u.LastLogin.UTC().Format(time.RFC3339)
		}
		dataRows = append(dataRows, map[string]string{
			"Taxpayer ID": u.ID,
			"Full Name":   u.FullName,
			"TIN":         u.TIN,
			"Email":       u.Email,
			"Type":        string(u.TaxpayerType),
			"Active":      fmt.Sprintf("%t", u.Active),
			"Last Login":  lastLogin,
		})
	}
	dataset := export.Dataset{
		Headers: []string{"Taxpayer ID", "Full Name", "TIN", "Email", "Type", "Active", "Last Login"},
		Rows:    dataRows,
	}
	return dataset, "Registered Taxpayers Report", nil
}

func deref(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
