package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// SettlePaymentRequest captures a settlement attempt against an assessment.
type SettlePaymentRequest struct {
	AssessmentID string          `json:"assessment_id" validate:"required"`
	Amount       decimal.Decimal `json:"amount"`
}

// PaymentResponse is the API shape of a recorded payment.
type PaymentResponse struct {
	ID           string          `json:"id"`
	AssessmentID string          `json:"assessment_id"`
	TaxpayerID   string          `json:"taxpayer_id"`
	Amount       decimal.Decimal `json:"amount"`
	PaymentDate  time.Time       `json:"payment_date"`
	ReceiptURL   *string         `json:"receipt_url,omitempty"`
}
