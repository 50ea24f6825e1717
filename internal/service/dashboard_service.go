package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/revenuehq/tax-portal-api/internal/dto"
	"github.com/revenuehq/tax-portal-api/internal/models"
	"github.com/revenuehq/tax-portal-api/internal/repository"
	appErrors "github.com/revenuehq/tax-portal-api/pkg/errors"
)

type dashboardRepository interface {
	TaxpayerTotals(ctx context.Context, taxpayerID string) (*repository.TaxpayerTotals, error)
	StaffTotals(ctx context.Context) (*repository.StaffTotals, error)
}

type dashboardDocumentCounter interface {
	CountByStatus(ctx context.Context, status models.DocumentStatus) (int, error)
}

type dashboardTccReader interface {
	GetByTaxpayer(ctx context.Context, taxpayerID string) (*models.TccRequest, error)
	CountByStatus(ctx context.Context, status models.TccStatus) (int, error)
}

type dashboardDocumentLister interface {
	ListByTaxpayer(ctx context.Context, taxpayerID string) ([]models.Document, error)
}

type dashboardUnreadCounter interface {
	CountUnread(ctx context.Context, userID string) (int, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL time.Duration
}

// DashboardService composes the taxpayer and staff dashboard payloads.
// Staff figures aggregate the whole portal and change slowly, so they are
// cached; taxpayer dashboards are personal and always fresh.
type DashboardService struct {
	repo          dashboardRepository
	documents     dashboardDocumentCounter
	taxpayerDocs  dashboardDocumentLister
	tccs          dashboardTccReader
	notifications dashboardUnreadCounter
	cache         *CacheService
	logger        *zap.Logger
	config        DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService.
func NewDashboardService(repo dashboardRepository, documents dashboardDocumentCounter, taxpayerDocs dashboardDocumentLister, tccs dashboardTccReader, notifications dashboardUnreadCounter, cache *CacheService, logger *zap.Logger, config DashboardServiceConfig) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		repo:          repo,
		documents:     documents,
		taxpayerDocs:  taxpayerDocs,
		tccs:          tccs,
		notifications: notifications,
		cache:         cache,
		logger:        logger,
		config:        config,
	}
}

// Taxpayer builds the personalised dashboard for one taxpayer.
func (s *DashboardService) Taxpayer(ctx context.Context, taxpayerID string) (*dto.TaxpayerDashboardResponse, error) {
	totals, err := s.repo.TaxpayerTotals(ctx, taxpayerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load dashboard totals")
	}

	resp := &dto.TaxpayerDashboardResponse{
		TaxpayerID:        taxpayerID,
		TotalAssessments:  totals.TotalAssessments,
		AmountOutstanding: totals.AmountOutstanding,
		AmountPaid:        totals.AmountPaid,
		OverdueCount:      totals.OverdueCount,
		TccStatus:         models.TccStatusNotRequested,
	}

	docs, err := s.taxpayerDocs.ListByTaxpayer(ctx, taxpayerID)
	if err != nil {
		s.logger.Warn("failed to count pending documents for dashboard", zap.Error(err))
	} else {
		for _, d := range docs {
			if d.Status == models.DocumentStatusPendingReview {
				resp.PendingDocuments++
			}
		}
	}

	tcc, err := s.tccs.GetByTaxpayer(ctx, taxpayerID)
	switch {
	case err == nil:
		resp.TccStatus = tcc.Status
	case errors.Is(err, sql.ErrNoRows):
		// never filed, keep Not Requested
	default:
		s.logger.Warn("failed to load clearance status for dashboard", zap.Error(err))
	}

	unread, err := s.notifications.CountUnread(ctx, taxpayerID)
	if err != nil {
		s.logger.Warn("failed to count unread notifications for dashboard", zap.Error(err))
	} else {
		resp.UnreadNotices = unread
	}

	return resp, nil
}

// Staff builds the portal-wide dashboard for officers and administrators.
func (s *DashboardService) Staff(ctx context.Context) (*dto.StaffDashboardResponse, error) {
	const cacheKey = "dashboard:staff"
	if s.cache != nil && s.cache.Enabled() {
		var cached dto.StaffDashboardResponse
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	totals, err := s.repo.StaffTotals(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load dashboard totals")
	}

	resp := &dto.StaffDashboardResponse{
		Taxpayers:         totals.Taxpayers,
		TotalAssessments:  totals.TotalAssessments,
		RevenueCollected:  totals.RevenueCollected,
		AmountOutstanding: totals.AmountOutstanding,
	}

	pendingDocs, err := s.documents.CountByStatus(ctx, models.DocumentStatusPendingReview)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count pending documents")
	}
	resp.PendingDocuments = pendingDocs

	pendingTccs, err := s.tccs.CountByStatus(ctx, models.TccStatusPending)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count pending clearance requests")
	}
	resp.PendingTccs = pendingTccs

	if s.cache != nil && s.cache.Enabled() {
		if err := s.cache.Set(ctx, cacheKey, resp, s.config.CacheTTL); err != nil {
			s.logger.Warn("failed to cache staff dashboard", zap.Error(err))
		}
	}
	return resp, nil
}

// InvalidateStaff drops the cached staff dashboard, used after writes that
// move its figures.
func (s *DashboardService) InvalidateStaff(ctx context.Context) {
	if s.cache == nil || !s.cache.Enabled() {
		return
	}
	if err := s.cache.Invalidate(ctx, "dashboard:staff"); err != nil {
		s.logger.Warn("failed to invalidate staff dashboard cache", zap.Error(err))
	}
}
