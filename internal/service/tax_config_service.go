package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/revenuehq/tax-portal-api/internal/dto"
	"github.com/revenuehq/tax-portal-api/internal/models"
	appErrors "github.com/revenuehq/tax-portal-api/pkg/errors"
)

type taxConfigRepository interface {
	List(ctx context.Context) ([]models.TaxConfiguration, error)
	Get(ctx context.Context, taxType models.TaxType) (*models.TaxConfiguration, error)
	BulkUpsert(ctx context.Context, cfgs []models.TaxConfiguration) error
}

type taxConfigAuditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

const taxConfigCacheKey = "tax_config:rates"

var (
	rateFloor   = decimal.Zero
	rateCeiling = decimal.NewFromInt(100)
)

// TaxConfigService manages the tax-type rate table that drives every
// assessment calculation.
type TaxConfigService struct {
	repo      taxConfigRepository
	audit     taxConfigAuditLogger
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	cacheTTL  time.Duration
}

// NewTaxConfigService constructs a TaxConfigService.
func NewTaxConfigService(repo taxConfigRepository, audit taxConfigAuditLogger, cache *CacheService, validate *validator.Validate, logger *zap.Logger, cacheTTL time.Duration) *TaxConfigService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaxConfigService{repo: repo, audit: audit, cache: cache, validator: validate, logger: logger, cacheTTL: cacheTTL}
}

// List returns every configured tax type and rate. The rate table is small
// and read on every assessment, so listings are served from cache when
// possible.
func (s *TaxConfigService) List(ctx context.Context) ([]models.TaxConfiguration, error) {
	if s.cache != nil && s.cache.Enabled() {
		var cached []models.TaxConfiguration
		if hit, err := s.cache.Get(ctx, taxConfigCacheKey, &cached); err == nil && hit {
			return cached, nil
		}
	}

	configs, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list tax configurations")
	}

	if s.cache != nil && s.cache.Enabled() {
		if err := s.cache.Set(ctx, taxConfigCacheKey, configs, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache tax configurations", zap.Error(err))
		}
	}
	return configs, nil
}

// Rate returns the configured rate for a tax type. A missing row means no
// administrator has configured the type yet, which callers surface as a
// configuration error rather than a not-found.
func (s *TaxConfigService) Rate(ctx context.Context, taxType models.TaxType) (decimal.Decimal, error) {
	configs, err := s.List(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	for _, cfg := range configs {
		if cfg.TaxType == taxType {
			return cfg.Rate, nil
		}
	}
	return decimal.Zero, appErrors.ErrConfigurationMissing
}

// Update overwrites rates for the submitted tax types in one transaction,
// records who changed them and drops the cached table.
func (s *TaxConfigService) Update(ctx context.Context, updatedBy string, req dto.UpdateTaxConfigurationsRequest) ([]models.TaxConfiguration, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid tax configuration payload")
	}

	cfgs := make([]models.TaxConfiguration, 0, len(req.Items))
	for _, item := range req.Items {
		if item.Rate.LessThan(rateFloor) || item.Rate.GreaterThan(rateCeiling) {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("rate for %s must be between 0 and 100", item.TaxType))
		}
		cfgs = append(cfgs, models.TaxConfiguration{
			TaxType:   item.TaxType,
			Rate:      item.Rate,
			UpdatedBy: updatedBy,
		})
	}

	if err := s.repo.BulkUpsert(ctx, cfgs); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save tax configurations")
	}

	if s.cache != nil && s.cache.Enabled() {
		if err := s.cache.Invalidate(ctx, taxConfigCacheKey); err != nil {
			s.logger.Warn("failed to invalidate tax configuration cache", zap.Error(err))
		}
	}

	newValues, _ := json.Marshal(cfgs)
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:    &updatedBy,
		Action:    models.AuditActionRateConfigUpdate,
		Resource:  "tax_configuration",
		NewValues: newValues,
	}); err != nil {
		s.logger.Warn("failed to record rate change audit log", zap.Error(err))
	}

	return s.repo.List(ctx)
}
