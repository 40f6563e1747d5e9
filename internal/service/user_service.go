package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/MaezenDigital/Enemamar-backend/internal/domain"
	"github.com/MaezenDigital/Enemamar-backend/internal/repository"
)

// ProfileUpdate carries the editable profile fields. Nil means keep.
type ProfileUpdate struct {
	Username  *string
	FirstName *string
	LastName  *string
	Email     *string
	AvatarURL *string
}

// UserService exposes profile and administrative user operations.
type UserService struct {
	users   repository.UserRepository
	refresh repository.RefreshTokenRepository
	logger  *zap.Logger
	tracer  trace.Tracer
}

// NewUserService wires dependencies.
func NewUserService(users repository.UserRepository, refresh repository.RefreshTokenRepository, logger *zap.Logger) *UserService {
	return &UserService{
		users:   users,
		refresh: refresh,
		logger:  logger,
		tracer:  otel.Tracer("github.com/MaezenDigital/Enemamar-backend/internal/service"),
	}
}

// Get loads a user by ID. The password hash is stripped.
func (s *UserService) Get(ctx context.Context, userID int64) (domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return domain.User{}, newAPIError("not_found", "User not found.", http.StatusNotFound)
	}
	user.PasswordHash = ""
	return user, nil
}

// UpdateProfile applies the provided fields to the caller's profile.
func (s *UserService) UpdateProfile(ctx context.Context, userID int64, update ProfileUpdate) (domain.User, error) {
	ctx, span := s.tracer.Start(ctx, "UserService.UpdateProfile")
	defer span.End()

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return domain.User{}, newAPIError("not_found", "User not found.", http.StatusNotFound)
	}
	if update.Username != nil {
		user.Username = strings.TrimSpace(*update.Username)
	}
	if update.FirstName != nil {
		user.FirstName = strings.TrimSpace(*update.FirstName)
	}
	if update.LastName != nil {
		user.LastName = strings.TrimSpace(*update.LastName)
	}
	if update.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*update.Email))
		if email != "" && !emailPattern.MatchString(email) {
			return domain.User{}, newAPIError("invalid_request", "Email address is not valid.", http.StatusBadRequest)
		}
		user.Email = email
	}
	if update.AvatarURL != nil {
		user.AvatarURL = strings.TrimSpace(*update.AvatarURL)
	}

	updated, err := s.users.Update(ctx, user)
	if err != nil {
		span.RecordError(err)
		return domain.User{}, fmt.Errorf("update user: %w", err)
	}
	updated.PasswordHash = ""
	return updated, nil
}

// List returns users with pagination, optional role and active filters.
func (s *UserService) List(ctx context.Context, params repository.ListParams, role string, isActive *bool) ([]domain.User, int, error) {
	if role != "" && !domain.ValidRole(role) {
		return nil, 0, newAPIError("invalid_request", "Unknown role filter.", http.StatusBadRequest)
	}
	users, total, err := s.users.List(ctx, params, role, isActive)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	for i := range users {
		users[i].PasswordHash = ""
	}
	return users, total, nil
}

// SetActive activates or deactivates an account. Deactivating kills
// the account's sessions.
func (s *UserService) SetActive(ctx context.Context, userID int64, active bool) error {
	ctx, span := s.tracer.Start(ctx, "UserService.SetActive")
	defer span.End()

	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return newAPIError("not_found", "User not found.", http.StatusNotFound)
	}
	if err := s.users.SetActive(ctx, userID, active); err != nil {
		span.RecordError(err)
		return fmt.Errorf("set active: %w", err)
	}
	if !active {
		if err := s.refresh.DeleteForUser(ctx, userID); err != nil {
			s.logger.Warn("revoke sessions on deactivate failed", zap.Int64("user_id", userID), zap.Error(err))
		}
	}
	s.logger.Info("audit",
		zap.String("event", "user.set_active"),
		zap.Int64("user_id", userID),
		zap.Bool("active", active))
	return nil
}

// UpdateRole changes a user's role.
func (s *UserService) UpdateRole(ctx context.Context, userID int64, role string) error {
	ctx, span := s.tracer.Start(ctx, "UserService.UpdateRole")
	defer span.End()

	if !domain.ValidRole(role) {
		return newAPIError("invalid_request", "Role must be student, instructor or admin.", http.StatusBadRequest)
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return newAPIError("not_found", "User not found.", http.StatusNotFound)
	}
	if err := s.users.UpdateRole(ctx, userID, role); err != nil {
		span.RecordError(err)
		return fmt.Errorf("update role: %w", err)
	}
	s.logger.Info("audit",
		zap.String("event", "user.role_updated"),
		zap.Int64("user_id", userID),
		zap.String("role", role))
	return nil
}

// Delete removes the account and its sessions.
func (s *UserService) Delete(ctx context.Context, userID int64) error {
	ctx, span := s.tracer.Start(ctx, "UserService.Delete")
	defer span.End()

	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return newAPIError("not_found", "User not found.", http.StatusNotFound)
	}
	if err := s.refresh.DeleteForUser(ctx, userID); err != nil {
		s.logger.Warn("revoke sessions on delete failed", zap.Int64("user_id", userID), zap.Error(err))
	}
	if err := s.users.Delete(ctx, userID); err != nil {
		span.RecordError(err)
		return fmt.Errorf("delete user: %w", err)
	}
	s.logger.Info("audit", zap.String("event", "user.deleted"), zap.Int64("user_id", userID))
	return nil
}
