package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/revenuehq/tax-portal-api/internal/dto"
	"github.com/revenuehq/tax-portal-api/internal/models"
	appErrors "github.com/revenuehq/tax-portal-api/pkg/errors"
)

type userRepoStub struct {
	users     map[string]*models.User
	createErr error
	deleted   []string
	audits    []models.AuditLog
}

func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	if s.createErr != nil {
		return s.createErr
	}
	if s.users == nil {
		s.users = make(map[string]*models.User)
	}
	s.users[user.ID] = user
	return nil
}

func (s *userRepoStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := s.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (s *userRepoStub) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	var out []models.User
	for _, u := range s.users {
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		out = append(out, *u)
	}
	return out, len(out), nil
}

func (s *userRepoStub) Update(ctx context.Context, user *models.User) error {
	if _, ok := s.users[user.ID]; !ok {
		return sql.ErrNoRows
	}
	s.users[user.ID] = user
	return nil
}

func (s *userRepoStub) UpdateAvatar(ctx context.Context, id, avatarURL string) error {
	u, ok := s.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.AvatarURL = &avatarURL
	return nil
}

func (s *userRepoStub) Delete(ctx context.Context, id string) error {
	if _, ok := s.users[id]; !ok {
		return sql.ErrNoRows
	}
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *userRepoStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	s.audits = append(s.audits, *log)
	return nil
}

func TestAdminCreateTaxpayerRequiresTIN(t *testing.T) {
	svc := NewUserService(&userRepoStub{}, &fanoutRecorder{}, nil, nil, nil)

	_, err := svc.AdminCreate(context.Background(), "admin-1", dto.AdminCreateUserRequest{
		FullName: "Ade Taxpayer",
		Email:    "ade@example.com",
		Password: "secret1",
		Role:     models.RoleTaxpayer,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAdminCreateStaffGetsTemporaryTIN(t *testing.T) {
	repo := &userRepoStub{}
	notifier := &fanoutRecorder{}
	svc := NewUserService(repo, notifier, nil, nil, nil)

	info, err := svc.AdminCreate(context.Background(), "admin-1", dto.AdminCreateUserRequest{
		FullName: "Funke Officer",
		Email:    "funke@revenue.example",
		Password: "secret1",
		Role:     models.RoleOfficer,
	})
	require.NoError(t, err)

	created := repo.users[info.ID]
	require.NotNil(t, created)
	assert.True(t, strings.HasPrefix(created.TIN, "TEMP-"))
	assert.Len(t, created.TIN, len("TEMP-")+6)
	assert.Equal(t, models.TaxpayerTypeIndividual, created.TaxpayerType)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("secret1")))

	require.Len(t, notifier.fanout, 1)
	assert.Equal(t, "New Staff Account", notifier.fanout[0])

	require.Len(t, repo.audits, 1)
	assert.Equal(t, models.AuditActionUserCreate, repo.audits[0].Action)
}

func TestAdminCreateTaxpayerDoesNotAlertStaff(t *testing.T) {
	repo := &userRepoStub{}
	notifier := &fanoutRecorder{}
	svc := NewUserService(repo, notifier, nil, nil, nil)

	_, err := svc.AdminCreate(context.Background(), "admin-1", dto.AdminCreateUserRequest{
		FullName: "Ade Taxpayer",
		Email:    "ade@example.com",
		Password: "secret1",
		Role:     models.RoleTaxpayer,
		TIN:      "1234567890",
	})
	require.NoError(t, err)
	assert.Empty(t, notifier.fanout)
}

func TestAdminCreateDuplicateTINPropagates(t *testing.T) {
	repo := &userRepoStub{createErr: appErrors.Clone(appErrors.ErrDuplicateTIN, "TIN already registered")}
	svc := NewUserService(repo, &fanoutRecorder{}, nil, nil, nil)

	_, err := svc.AdminCreate(context.Background(), "admin-1", dto.AdminCreateUserRequest{
		FullName: "Ade Taxpayer",
		Email:    "ade@example.com",
		Password: "secret1",
		Role:     models.RoleTaxpayer,
		TIN:      "1234567890",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDuplicateTIN.Code, appErrors.FromError(err).Code)
}

func TestUpdateRoleRejectsSelfChange(t *testing.T) {
	repo := &userRepoStub{users: map[string]*models.User{
		"admin-1": {ID: "admin-1", Role: models.RoleAdmin},
	}}
	svc := NewUserService(repo, &fanoutRecorder{}, nil, nil, nil)

	_, err := svc.UpdateRole(context.Background(), "admin-1", "admin-1", dto.UpdateUserRoleRequest{Role: models.RoleOfficer})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestUpdateRolePromotesAndAudits(t *testing.T) {
	repo := &userRepoStub{users: map[string]*models.User{
		"user-1": {ID: "user-1", Role: models.RoleTaxpayer, FullName: "Ade"},
	}}
	svc := NewUserService(repo, &fanoutRecorder{}, nil, nil, nil)

	updated, err := svc.UpdateRole(context.Background(), "admin-1", "user-1", dto.UpdateUserRoleRequest{Role: models.RoleOfficer})
	require.NoError(t, err)
	assert.Equal(t, models.RoleOfficer, updated.Role)

	require.Len(t, repo.audits, 1)
	assert.Equal(t, models.AuditActionUserUpdate, repo.audits[0].Action)
}

func TestDeactivateRejectsSelf(t *testing.T) {
	repo := &userRepoStub{users: map[string]*models.User{
		"admin-1": {ID: "admin-1", Role: models.RoleAdmin},
	}}
	svc := NewUserService(repo, &fanoutRecorder{}, nil, nil, nil)

	err := svc.Deactivate(context.Background(), "admin-1", "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.deleted)
}

func TestDeactivateSoftDeletes(t *testing.T) {
	repo := &userRepoStub{users: map[string]*models.User{
		"user-1": {ID: "user-1", Role: models.RoleTaxpayer},
	}}
	svc := NewUserService(repo, &fanoutRecorder{}, nil, nil, nil)

	require.NoError(t, svc.Deactivate(context.Background(), "admin-1", "user-1"))
	assert.Equal(t, []string{"user-1"}, repo.deleted)
}

func TestGetScrubsPasswordHash(t *testing.T) {
	repo := &userRepoStub{users: map[string]*models.User{
		"user-1": {ID: "user-1", PasswordHash: "bcrypt-hash", FullName: "Ade"},
	}}
	svc := NewUserService(repo, &fanoutRecorder{}, nil, nil, nil)

	user, err := svc.Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Empty(t, user.PasswordHash)
}

func TestListClampsPagination(t *testing.T) {
	repo := &userRepoStub{users: map[string]*models.User{
		"user-1": {ID: "user-1", Role: models.RoleTaxpayer},
	}}
	svc := NewUserService(repo, &fanoutRecorder{}, nil, nil, nil)

	_, page, err := svc.List(context.Background(), models.UserFilter{Page: -3, PageSize: 500})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 20, page.PageSize)
}

func TestTemporaryTINShape(t *testing.T) {
	tin := temporaryTIN()
	assert.True(t, strings.HasPrefix(tin, "TEMP-"))
	assert.Equal(t, strings.ToUpper(tin), tin)
}
