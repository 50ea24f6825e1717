package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/revenuehq/tax-portal-api/internal/dto"
	"github.com/revenuehq/tax-portal-api/internal/middleware"
	"github.com/revenuehq/tax-portal-api/internal/models"
	"github.com/revenuehq/tax-portal-api/internal/repository"
	"github.com/revenuehq/tax-portal-api/internal/service"
	"github.com/revenuehq/tax-portal-api/pkg/jobs"
	"github.com/revenuehq/tax-portal-api/pkg/storage"
)

type reportStoreFake struct {
	jobs map[string]*models.ReportJob
}

func (f *reportStoreFake) Create(_ context.Context, job *models.ReportJob) error {
	if job.ID == "" {
		job.ID = "job-1"
	}
	clone := *job
	f.jobs[job.ID] = &clone
	return nil
}

func (f *reportStoreFake) GetByID(_ context.Context, id string) (*models.ReportJob, error) {
	job, ok := f.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *job
	return &clone, nil
}

func (f *reportStoreFake) Update(_ context.Context, id string, params repository.UpdateReportJobParams) error {
	job, ok := f.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.Progress != nil {
		job.Progress = *params.Progress
	}
	if params.ResultURL != nil {
		job.ResultURL = params.ResultURL
	}
	if params.ErrorMessage != nil {
		job.ErrorMessage = params.ErrorMessage
	}
	if params.FinishedAt != nil {
		job.FinishedAt = params.FinishedAt
	}
	return nil
}

func (f *reportStoreFake) ListResumable(context.Context, int) ([]models.ReportJob, error) {
	return nil, nil
}

func (f *reportStoreFake) ListFinishedBefore(context.Context, time.Time, int) ([]models.ReportJob, error) {
	return nil, nil
}

type dispatcherFake struct {
	enqueued []jobs.Job
}

func (f *dispatcherFake) Enqueue(job jobs.Job) error {
	f.enqueued = append(f.enqueued, job)
	return nil
}

type exportReadersFake struct{}

func (exportReadersFake) ListAll(context.Context) ([]models.AssessmentWithProfile, error) {
	return nil, nil
}

func (exportReadersFake) ListByTaxpayer(context.Context, string) ([]models.Assessment, error) {
	return nil, nil
}

type exportPaymentsFake struct{}

func (exportPaymentsFake) ListAll(context.Context) ([]models.Payment, error) {
	return nil, nil
}

func (exportPaymentsFake) ListByTaxpayer(context.Context, string) ([]models.Payment, error) {
	return nil, nil
}

type exportUsersFake struct{}

func (exportUsersFake) List(context.Context, models.UserFilter) ([]models.User, int, error) {
	return nil, 0, nil
}

func (exportUsersFake) FindByID(context.Context, string) (*models.User, error) {
	return nil, sql.ErrNoRows
}

func newReportHandlerFixture(t *testing.T) (*ReportHandler, *reportStoreFake, *dispatcherFake, *service.ExportService) {
	t.Helper()

	store := &reportStoreFake{jobs: map[string]*models.ReportJob{}}
	queue := &dispatcherFake{}
	fileStore, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	exporter := service.NewExportService(
		exportReadersFake{}, exportPaymentsFake{}, exportUsersFake{},
		fileStore,
		storage.NewSignedURLSigner("handler-secret", time.Hour),
		service.ExportConfig{}, nil, nil, nil,
	)
	svc := service.NewReportService(store, queue, exporter, nil, service.ReportServiceConfig{})
	return NewReportHandler(svc), store, queue, exporter
}

func TestReportHandlerGenerateQueuesJob(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h, store, queue, _ := newReportHandlerFixture(t)

	body, _ := json.Marshal(dto.ReportRequest{
		Type:   models.ReportTypePayments,
		Format: models.ReportFormatCSV,
	})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(http.MethodPost, "/reports/generate", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "off-1", Role: models.RoleOfficer})

	h.Generate(c)

	require.Equal(t, http.StatusAccepted, w.Code)
	require.Len(t, queue.enqueued, 1)
	require.Equal(t, "off-1", store.jobs[queue.enqueued[0].ID].CreatedBy)
}

func TestReportHandlerGenerateRejectsUnknownType(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h, _, queue, _ := newReportHandlerFixture(t)

	body, _ := json.Marshal(dto.ReportRequest{
		Type:   models.ReportType("ledger"),
		Format: models.ReportFormatCSV,
	})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(http.MethodPost, "/reports/generate", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "off-1", Role: models.RoleOfficer})

	h.Generate(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Empty(t, queue.enqueued)
}

func TestReportHandlerGenerateRejectsMalformedBody(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h, _, _, _ := newReportHandlerFixture(t)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(http.MethodPost, "/reports/generate", bytes.NewReader([]byte("{")))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "off-1", Role: models.RoleOfficer})

	h.Generate(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReportHandlerStatusHidesForeignJobs(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h, store, _, _ := newReportHandlerFixture(t)
	store.jobs["job-7"] = &models.ReportJob{
		ID:        "job-7",
		Type:      models.ReportTypePayments,
		Status:    models.ReportStatusProcessing,
		CreatedBy: "off-2",
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/reports/job-7", nil)
	c.Params = gin.Params{{Key: "id", Value: "job-7"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "off-1", Role: models.RoleOfficer})

	h.Status(c)

	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestReportHandlerStatusAdminSeesAllJobs(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h, store, _, _ := newReportHandlerFixture(t)
	store.jobs["job-7"] = &models.ReportJob{
		ID:        "job-7",
		Type:      models.ReportTypePayments,
		Status:    models.ReportStatusProcessing,
		Progress:  40,
		CreatedBy: "off-2",
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/reports/job-7", nil)
	c.Params = gin.Params{{Key: "id", Value: "job-7"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "adm-1", Role: models.RoleAdmin})

	h.Status(c)

	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data dto.ReportStatusResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Equal(t, models.ReportStatusProcessing, envelope.Data.Status)
	require.Equal(t, 40, envelope.Data.Progress)
}

func TestReportHandlerDownloadStreamsFinishedExport(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h, store, _, exporter := newReportHandlerFixture(t)

	job := &models.ReportJob{
		ID:        "job-9",
		Type:      models.ReportTypePayments,
		Params:    models.ReportJobParams{Format: models.ReportFormatCSV},
		Status:    models.ReportStatusFinished,
		CreatedBy: "off-1",
	}
	result, err := exporter.Generate(context.Background(), job)
	require.NoError(t, err)

	job.ResultURL = &result.URL
	store.jobs[job.ID] = job

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/export/"+result.Token, nil)
	c.Params = gin.Params{{Key: "token", Value: result.Token}}

	h.Download(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	require.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	require.NotEmpty(t, w.Body.Bytes())
}

func TestReportHandlerDownloadRejectsGarbageToken(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h, _, _, _ := newReportHandlerFixture(t)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/export/garbage", nil)
	c.Params = gin.Params{{Key: "token", Value: "garbage"}}

	h.Download(c)

	require.Equal(t, http.StatusForbidden, w.Code)
}
