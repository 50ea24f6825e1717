package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/revenuehq/tax-portal-api/internal/dto"
	"github.com/revenuehq/tax-portal-api/internal/models"
	appErrors "github.com/revenuehq/tax-portal-api/pkg/errors"
	"github.com/revenuehq/tax-portal-api/pkg/storage"
)

type userRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	Update(ctx context.Context, user *models.User) error
	UpdateAvatar(ctx context.Context, id, avatarURL string) error
	Delete(ctx context.Context, id string) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type userNotifier interface {
	NotifyRole(ctx context.Context, title, message string, roles ...models.UserRole)
}

// UserService manages account administration and profile self-service.
type UserService struct {
	repo      userRepository
	notifier  userNotifier
	store     *storage.LocalStorage
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService constructs a UserService.
func NewUserService(repo userRepository, notifier userNotifier, store *storage.LocalStorage, validate *validator.Validate, logger *zap.Logger) *UserService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{repo: repo, notifier: notifier, store: store, validator: validate, logger: logger}
}

// AdminCreate provisions an account on behalf of an administrator. Staff
// accounts without a TIN get a generated temporary one so the uniqueness
// constraint holds; new staff accounts are announced to administrators.
func (s *UserService) AdminCreate(ctx context.Context, adminID string, req dto.AdminCreateUserRequest) (*models.UserInfo, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}

	tin := strings.TrimSpace(req.TIN)
	if tin == "" {
		if req.Role == models.RoleTaxpayer {
			return nil, appErrors.Clone(appErrors.ErrValidation, "a TIN is required for taxpayer accounts")
		}
		tin = temporaryTIN()
	}

	taxpayerType := req.TaxpayerType
	if taxpayerType == "" {
		taxpayerType = models.TaxpayerTypeIndividual
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		PasswordHash: string(hash),
		FullName:     req.FullName,
		TIN:          tin,
		Role:         req.Role,
		TaxpayerType: taxpayerType,
		Active:       true,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if appErr := appErrors.FromError(err); appErr.Code == appErrors.ErrDuplicateTIN.Code {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	if err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &adminID,
		Action:     models.AuditActionUserCreate,
		Resource:   "user",
		ResourceID: &user.ID,
		NewValues:  []byte(fmt.Sprintf(`{"role":%q}`, user.Role)),
	}); err != nil {
		s.logger.Warn("failed to record user creation audit log", zap.Error(err))
	}

	if user.Role == models.RoleOfficer || user.Role == models.RoleAdmin {
		s.notifier.NotifyRole(ctx, "New Staff Account",
			fmt.Sprintf("A new %s account was created for %s.", user.Role, user.FullName),
			models.RoleAdmin)
	}

	info := userInfo(user)
	return &info, nil
}

// Get returns one account.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	user.PasswordHash = ""
	return user, nil
}

// List returns accounts matching the filter along with pagination
// metadata.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, models.Pagination, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, models.Pagination{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	for i := range users {
		users[i].PasswordHash = ""
	}
	return users, models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// UpdateProfile mutates the caller's own name and email.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, req dto.UpdateProfileRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	user.FullName = req.FullName
	user.Email = req.Email
	user.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update profile")
	}
	user.PasswordHash = ""
	return user, nil
}

// UpdateRole changes another account's role; admin only. Admins cannot
// change their own role, which keeps at least one administrator alive.
func (s *UserService) UpdateRole(ctx context.Context, adminID, userID string, req dto.UpdateUserRoleRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid role payload")
	}
	if adminID == userID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "administrators cannot change their own role")
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	user.Role = req.Role
	user.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update role")
	}

	if err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &adminID,
		Action:     models.AuditActionUserUpdate,
		Resource:   "user",
		ResourceID: &userID,
		NewValues:  []byte(fmt.Sprintf(`{"role":%q}`, user.Role)),
	}); err != nil {
		s.logger.Warn("failed to record role change audit log", zap.Error(err))
	}

	user.PasswordHash = ""
	return user, nil
}

// Deactivate soft-deletes an account. Admins cannot deactivate themselves.
func (s *UserService) Deactivate(ctx context.Context, adminID, userID string) error {
	if adminID == userID {
		return appErrors.Clone(appErrors.ErrForbidden, "administrators cannot deactivate themselves")
	}
	if err := s.repo.Delete(ctx, userID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate user")
	}
	if err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &adminID,
		Action:     models.AuditActionUserUpdate,
		Resource:   "user",
		ResourceID: &userID,
		NewValues:  []byte(`{"active":false}`),
	}); err != nil {
		s.logger.Warn("failed to record deactivation audit log", zap.Error(err))
	}
	return nil
}

// UploadAvatar stores a profile picture and links it to the account.
func (s *UserService) UploadAvatar(ctx context.Context, userID, fileName string, content io.Reader) (string, error) {
	if s.store == nil {
		return "", appErrors.Clone(appErrors.ErrInternal, "avatar storage is not configured")
	}
	ext := strings.ToLower(filepath.Ext(fileName))
	path := fmt.Sprintf("avatars/%s_%s%s", userID, uuid.NewString(), ext)
	if _, err := s.store.SaveStream(path, content); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store avatar")
	}
	if err := s.repo.UpdateAvatar(ctx, userID, path); err != nil {
		if cleanupErr := s.store.Delete(path); cleanupErr != nil {
			s.logger.Warn("failed to remove orphaned avatar", zap.String("path", path), zap.Error(cleanupErr))
		}
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to link avatar")
	}
	return path, nil
}

// temporaryTIN generates a placeholder TIN for staff accounts, which do
// not file as taxpayers but still occupy the unique column.
func temporaryTIN() string {
	return "TEMP-" + strings.ToUpper(uuid.NewString()[:6])
}
