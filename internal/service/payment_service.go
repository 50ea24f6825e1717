package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/revenuehq/tax-portal-api/internal/dto"
	"github.com/revenuehq/tax-portal-api/internal/models"
	appErrors "github.com/revenuehq/tax-portal-api/pkg/errors"
	"github.com/revenuehq/tax-portal-api/pkg/export"
	"github.com/revenuehq/tax-portal-api/pkg/storage"
)

type paymentRepository interface {
	Settle(ctx context.Context, assessmentID, taxpayerID string, amount decimal.Decimal) (*models.Payment, error)
	GetByID(ctx context.Context, id string) (*models.Payment, error)
	ListByTaxpayer(ctx context.Context, taxpayerID string) ([]models.Payment, error)
	ListAll(ctx context.Context) ([]models.Payment, error)
	UpdateReceiptPath(ctx context.Context, id, path string) error
}

type paymentAssessmentReader interface {
	GetByID(ctx context.Context, id string) (*models.Assessment, error)
}

type paymentUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type paymentNotifier interface {
	Notify(ctx context.Context, userID, title, message string)
	NotifyRole(ctx context.Context, title, message string, roles ...models.UserRole)
}

type paymentAuditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type receiptStore interface {
	Save(filename string, data []byte) (string, error)
	Path(filename string) string
}

// PaymentService settles assessments and issues receipts. The settlement
// itself is atomic at the repository; everything after the commit — the
// receipt, the inbox entries, the audit trail — is best effort.
type PaymentService struct {
	repo        paymentRepository
	assessments paymentAssessmentReader
	users       paymentUserReader
	notifier    paymentNotifier
	audit       paymentAuditLogger
	receipts    *export.ReceiptRenderer
	store       receiptStore
	signer      *storage.SignedURLSigner
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewPaymentService constructs a PaymentService. A nil signer disables
// receipt URLs in responses.
func NewPaymentService(repo paymentRepository, assessments paymentAssessmentReader, users paymentUserReader, notifier paymentNotifier, audit paymentAuditLogger, receipts *export.ReceiptRenderer, store receiptStore, signer *storage.SignedURLSigner, validate *validator.Validate, logger *zap.Logger) *PaymentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if receipts == nil {
		receipts = export.NewReceiptRenderer()
	}
	return &PaymentService{
		repo:        repo,
		assessments: assessments,
		users:       users,
		notifier:    notifier,
		audit:       audit,
		receipts:    receipts,
		store:       store,
		signer:      signer,
		validator:   validate,
		logger:      logger,
	}
}

// Settle pays off an assessment. The recorded amount is the amount the
// payment channel reported, which may differ from the assessed amount;
// the assessment flips to Paid either way.
func (s *PaymentService) Settle(ctx context.Context, taxpayerID string, req dto.SettlePaymentRequest) (*dto.PaymentResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid settlement payload")
	}

	amount := req.Amount
	assessment, err := s.assessments.GetByID(ctx, req.AssessmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assessment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assessment")
	}
	if amount.IsZero() {
		amount = assessment.AmountDue
	}
	if amount.IsNegative() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "payment amount cannot be negative")
	}

	payment, err := s.repo.Settle(ctx, req.AssessmentID, taxpayerID, amount)
	if err != nil {
		return nil, err
	}

	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &taxpayerID,
		Action:     models.AuditActionPaymentSettle,
		Resource:   "payment",
		ResourceID: &payment.ID,
		NewValues:  []byte(fmt.Sprintf(`{"assessment_id":%q,"amount":%q}`, payment.AssessmentID, payment.Amount.String())),
	}); err != nil {
		s.logger.Warn("failed to record settlement audit log", zap.Error(err))
	}

	s.notifier.Notify(ctx, taxpayerID, "Payment Successful",
		fmt.Sprintf("Your payment of %s for %s (%s) was recorded.",
			payment.Amount.StringFixed(2), assessment.TaxType, assessment.Period))

	if payment.Amount.GreaterThan(models.HighValueThreshold) {
		s.notifier.NotifyRole(ctx, "High Value Transaction",
			fmt.Sprintf("A payment of %s was recorded against assessment %s.",
				payment.Amount.StringFixed(2), payment.AssessmentID),
			models.RoleAdmin)
	}

	s.issueReceipt(ctx, payment, assessment)

	return s.paymentResponse(payment), nil
}

// Get returns one payment. Taxpayers can only read their own rows; staff
// callers pass an empty taxpayerID to skip the ownership check.
func (s *PaymentService) Get(ctx context.Context, id, taxpayerID string) (*dto.PaymentResponse, error) {
	payment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment")
	}
	if taxpayerID != "" && payment.TaxpayerID != taxpayerID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "payment not found")
	}
	return s.paymentResponse(payment), nil
}

// ListForTaxpayer returns the taxpayer's own payment history.
func (s *PaymentService) ListForTaxpayer(ctx context.Context, taxpayerID string) ([]dto.PaymentResponse, error) {
	rows, err := s.repo.ListByTaxpayer(ctx, taxpayerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list payments")
	}
	return s.paymentResponses(rows), nil
}

// ListAll returns every payment for staff views.
func (s *PaymentService) ListAll(ctx context.Context) ([]dto.PaymentResponse, error) {
	rows, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list payments")
	}
	return s.paymentResponses(rows), nil
}

// issueReceipt renders and stores the PDF receipt for a settled payment.
// Failures are logged only: the payment already committed.
func (s *PaymentService) issueReceipt(ctx context.Context, payment *models.Payment, assessment *models.Assessment) {
	if s.store == nil {
		return
	}
	receipt := export.Receipt{
		ReceiptNumber: payment.ID,
		TaxType:       string(assessment.TaxType),
		Period:        assessment.Period,
		Amount:        payment.Amount.StringFixed(2),
		PaymentDate:   payment.PaymentDate.Format("2006-01-02 15:04 MST"),
	}
	if user, err := s.users.FindByID(ctx, payment.TaxpayerID); err == nil {
		receipt.TaxpayerName = user.FullName
		receipt.TIN = user.TIN
	} else {
		s.logger.Warn("failed to load taxpayer for receipt", zap.Error(err))
	}

	data, err := s.receipts.Render(receipt)
	if err != nil {
		s.logger.Warn("failed to render receipt", zap.String("payment_id", payment.ID), zap.Error(err))
		return
	}
	path := fmt.Sprintf("receipts/%s/%s.pdf", payment.TaxpayerID, payment.ID)
	if _, err := s.store.Save(path, data); err != nil {
		s.logger.Warn("failed to store receipt", zap.String("payment_id", payment.ID), zap.Error(err))
		return
	}
	if err := s.repo.UpdateReceiptPath(ctx, payment.ID, path); err != nil {
		s.logger.Warn("failed to link receipt to payment", zap.String("payment_id", payment.ID), zap.Error(err))
		return
	}
	payment.ReceiptPath = &path
}

// ResolveReceipt validates a signed receipt token and returns the
// stored PDF's path.
func (s *PaymentService) ResolveReceipt(ctx context.Context, token string) (string, error) {
	if s.signer == nil || s.store == nil {
		return "", appErrors.Clone(appErrors.ErrNotFound, "receipts are not enabled")
	}
	paymentID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid receipt token")
	}
	payment, err := s.repo.GetByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", appErrors.Clone(appErrors.ErrNotFound, "payment not found")
		}
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment")
	}
	if payment.ReceiptPath == nil || *payment.ReceiptPath != relPath {
		return "", appErrors.Clone(appErrors.ErrUnauthorized, "receipt token does not match payment")
	}
	return s.store.Path(relPath), nil
}

func (s *PaymentService) paymentResponse(p *models.Payment) *dto.PaymentResponse {
	resp := &dto.PaymentResponse{
		ID:           p.ID,
		AssessmentID: p.AssessmentID,
		TaxpayerID:   p.TaxpayerID,
		Amount:       p.Amount,
		PaymentDate:  p.PaymentDate,
	}
	if s.signer != nil && p.ReceiptPath != nil {
		if token, _, err := s.signer.Generate(p.ID, *p.ReceiptPath); err == nil {
			url := fmt.Sprintf("/api/v1/payments/receipt?token=%s", token)
			resp.ReceiptURL = &url
		} else {
			s.logger.Warn("failed to sign receipt url", zap.String("payment_id", p.ID), zap.Error(err))
		}
	}
	return resp
}

func (s *PaymentService) paymentResponses(rows []models.Payment) []dto.PaymentResponse {
	out := make([]dto.PaymentResponse, 0, len(rows))
	for i := range rows {
		out = append(out, *s.paymentResponse(&rows[i]))
	}
	return out
}
