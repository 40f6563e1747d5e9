package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/MaezenDigital/Enemamar-backend/internal/adapter/sms"
	"github.com/MaezenDigital/Enemamar-backend/internal/config"
	"github.com/MaezenDigital/Enemamar-backend/internal/domain"
	"github.com/MaezenDigital/Enemamar-backend/internal/jwt"
	pw "github.com/MaezenDigital/Enemamar-backend/internal/password"
	"github.com/MaezenDigital/Enemamar-backend/internal/repository"
)

// TokenResponse is the token payload returned by login and refresh.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

var (
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	phonePattern = regexp.MustCompile(`^\+?[0-9]{9,15}$`)
)

// SignupInput carries the registration fields.
type SignupInput struct {
	Username  string
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Password  string
	Role      string
}

// AuthService encapsulates signup, login and credential recovery flows.
type AuthService struct {
	users     repository.UserRepository
	refresh   repository.RefreshTokenRepository
	otp       repository.OTPStore
	sms       sms.Sender
	snowflake *snowflake.Node
	jwt       *jwt.Generator
	cfg       config.Config
	logger    *zap.Logger
	tracer    trace.Tracer
}

// NewAuthService wires dependencies.
func NewAuthService(users repository.UserRepository, refresh repository.RefreshTokenRepository, otp repository.OTPStore, sender sms.Sender, snowflake *snowflake.Node, generator *jwt.Generator, cfg config.Config, logger *zap.Logger) *AuthService {
	return &AuthService{
		users:     users,
		refresh:   refresh,
		otp:       otp,
		sms:       sender,
		snowflake: snowflake,
		jwt:       generator,
		cfg:       cfg,
		logger:    logger,
		tracer:    otel.Tracer("github.com/MaezenDigital/Enemamar-backend/internal/service"),
	}
}

// Signup registers an inactive account and sends the activation code.
func (s *AuthService) Signup(ctx context.Context, input SignupInput) (domain.User, error) {
	ctx, span := s.startSpan(ctx, "AuthService.Signup")
	defer span.End()

	phone := NormalizePhone(input.Phone)
	if !phonePattern.MatchString(phone) {
		return domain.User{}, newAPIError("invalid_request", "Phone number must be 9 to 15 digits.", http.StatusBadRequest)
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email != "" && !emailPattern.MatchString(email) {
		return domain.User{}, newAPIError("invalid_request", "Email address is not valid.", http.StatusBadRequest)
	}
	if len(input.Password) < 8 {
		return domain.User{}, newAPIError("invalid_request", "Password must be at least 8 characters.", http.StatusBadRequest)
	}
	role := strings.TrimSpace(input.Role)
	if role == "" {
		role = domain.RoleStudent
	}
	if role != domain.RoleStudent && role != domain.RoleInstructor {
		return domain.User{}, newAPIError("invalid_request", "Role must be student or instructor.", http.StatusBadRequest)
	}

	if existing, err := s.users.GetByPhone(ctx, phone); err == nil && existing.ID != 0 {
		return domain.User{}, newAPIError("conflict", "An account with this phone number already exists.", http.StatusConflict)
	}
	if email != "" {
		if existing, err := s.users.GetByEmail(ctx, email); err == nil && existing.ID != 0 {
			return domain.User{}, newAPIError("conflict", "An account with this email already exists.", http.StatusConflict)
		}
	}

	hash, err := pw.Hash(input.Password)
	if err != nil {
		span.RecordError(err)
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	user := domain.User{
		ID:           s.snowflake.Generate().Int64(),
		Username:     strings.TrimSpace(input.Username),
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Email:        email,
		Phone:        phone,
		PasswordHash: hash,
		Role:         role,
		IsActive:     false,
	}
	created, err := s.users.Create(ctx, user)
	if err != nil {
		span.RecordError(err)
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}

	if err := s.SendOTP(ctx, phone); err != nil {
		// The account exists; the caller can request another code.
		s.log().Warn("activation code delivery failed", zap.Int64("user_id", created.ID), zap.Error(err))
	}

	s.audit("signup.success", "user_id", created.ID, "role", created.Role)
	created.PasswordHash = ""
	return created, nil
}

// SendOTP generates and delivers a verification code for the phone.
// At most one code per phone is sent within the configured interval.
func (s *AuthService) SendOTP(ctx context.Context, phone string) error {
	ctx, span := s.startSpan(ctx, "AuthService.SendOTP")
	defer span.End()

	phone = NormalizePhone(phone)
	if !phonePattern.MatchString(phone) {
		return newAPIError("invalid_request", "Phone number must be 9 to 15 digits.", http.StatusBadRequest)
	}
	if _, err := s.users.GetByPhone(ctx, phone); err != nil {
		return newAPIError("not_found", "No account found for this phone number.", http.StatusNotFound)
	}

	ok, err := s.otp.ReserveSend(ctx, phone, s.cfg.OTPSendInterval)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("reserve otp send: %w", err)
	}
	if !ok {
		return newAPIError("too_many_requests", "A code was sent recently. Try again shortly.", http.StatusTooManyRequests)
	}

	code, err := generateCode(s.cfg.OTPLength)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("generate otp: %w", err)
	}
	if err := s.otp.SaveCode(ctx, phone, code, s.cfg.OTPTTL); err != nil {
		span.RecordError(err)
		return fmt.Errorf("persist otp: %w", err)
	}
	if err := s.sms.SendCode(ctx, phone, code); err != nil {
		span.RecordError(err)
		return fmt.Errorf("send otp: %w", err)
	}

	s.audit("otp.sent", "phone", phone)
	return nil
}

// VerifyOTP checks the activation code, activates the account and logs
// the user in.
func (s *AuthService) VerifyOTP(ctx context.Context, phone, code string) (*TokenResponse, error) {
	ctx, span := s.startSpan(ctx, "AuthService.VerifyOTP")
	defer span.End()

	phone = NormalizePhone(phone)
	if err := s.consumeOTP(ctx, phone, code); err != nil {
		return nil, err
	}
	if err := s.users.ActivateByPhone(ctx, phone); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("activate user: %w", err)
	}
	user, err := s.users.GetByPhone(ctx, phone)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("load user: %w", err)
	}

	resp, err := s.issueTokens(ctx, user)
	if err == nil {
		s.audit("otp.verify.success", "user_id", user.ID)
	}
	return resp, err
}

// Login authenticates with email or phone plus password.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*TokenResponse, error) {
	ctx, span := s.startSpan(ctx, "AuthService.Login")
	defer span.End()

	user, err := s.lookup(ctx, identifier)
	if err != nil {
		span.RecordError(err)
		return nil, newAPIError("invalid_grant", "Wrong credentials.", http.StatusUnauthorized)
	}
	valid, err := pw.Verify(password, user.PasswordHash)
	if err != nil || !valid {
		return nil, newAPIError("invalid_grant", "Wrong credentials.", http.StatusUnauthorized)
	}
	if !user.IsActive {
		return nil, newAPIError("account_inactive", "Account is not activated. Verify your phone number first.", http.StatusForbidden)
	}

	resp, err := s.issueTokens(ctx, user)
	if err == nil {
		s.audit("login.success", "user_id", user.ID)
	} else {
		span.RecordError(err)
	}
	return resp, err
}

// Refresh rotates the refresh token and issues a new access token.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	ctx, span := s.startSpan(ctx, "AuthService.Refresh")
	defer span.End()

	if refreshToken == "" {
		return nil, newAPIError("invalid_grant", "Refresh token missing.", http.StatusUnauthorized)
	}
	stored, err := s.refresh.GetByToken(ctx, refreshToken)
	if err != nil || time.Now().After(stored.ExpiresAt) {
		if err != nil {
			span.RecordError(err)
		}
		return nil, newAPIError("invalid_grant", "Invalid refresh token.", http.StatusUnauthorized)
	}
	user, err := s.users.GetByID(ctx, stored.UserID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("refresh load user: %w", err)
	}
	if !user.IsActive {
		return nil, newAPIError("account_inactive", "Account is deactivated.", http.StatusForbidden)
	}

	next := randomToken(s.cfg.RefreshTokenBytes)
	if err := s.refresh.Rotate(ctx, stored.ID, next, time.Now().Add(s.cfg.RefreshTokenTTL)); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}
	access, err := s.jwt.GenerateAccessToken(user)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	s.audit("refresh.success", "user_id", user.ID)
	return &TokenResponse{
		AccessToken:  access,
		RefreshToken: next,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.cfg.AccessTokenTTL.Seconds()),
	}, nil
}

// Logout invalidates the refresh token. Unknown tokens are a no-op so
// logout stays idempotent.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	ctx, span := s.startSpan(ctx, "AuthService.Logout")
	defer span.End()

	if refreshToken == "" {
		return nil
	}
	stored, err := s.refresh.GetByToken(ctx, refreshToken)
	if err != nil {
		return nil
	}
	if err := s.refresh.Delete(ctx, stored.Token); err != nil {
		span.RecordError(err)
		return fmt.Errorf("delete refresh token: %w", err)
	}
	s.audit("logout.success", "user_id", stored.UserID)
	return nil
}

// ForgotPassword sends a reset code to a registered phone number.
func (s *AuthService) ForgotPassword(ctx context.Context, phone string) error {
	return s.SendOTP(ctx, phone)
}

// VerifyResetOTP exchanges a valid reset code for a short-lived reset
// token bound to the phone number.
func (s *AuthService) VerifyResetOTP(ctx context.Context, phone, code string) (string, error) {
	ctx, span := s.startSpan(ctx, "AuthService.VerifyResetOTP")
	defer span.End()

	phone = NormalizePhone(phone)
	if err := s.consumeOTP(ctx, phone, code); err != nil {
		return "", err
	}
	if _, err := s.users.GetByPhone(ctx, phone); err != nil {
		return "", newAPIError("not_found", "No account found for this phone number.", http.StatusNotFound)
	}

	token, err := s.jwt.GenerateResetToken(phone)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	s.audit("password_reset.otp_verified", "phone", phone)
	return token, nil
}

// ResetPassword sets a new password using a reset token. All refresh
// tokens for the account are revoked.
func (s *AuthService) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	ctx, span := s.startSpan(ctx, "AuthService.ResetPassword")
	defer span.End()

	phone, err := s.jwt.ValidateResetToken(resetToken)
	if err != nil {
		return newAPIError("invalid_grant", "Invalid or expired reset token.", http.StatusUnauthorized)
	}
	if len(newPassword) < 8 {
		return newAPIError("invalid_request", "Password must be at least 8 characters.", http.StatusBadRequest)
	}

	hash, err := pw.Hash(newPassword)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePasswordByPhone(ctx, phone, hash); err != nil {
		span.RecordError(err)
		return fmt.Errorf("update password: %w", err)
	}
	if user, err := s.users.GetByPhone(ctx, phone); err == nil {
		if err := s.refresh.DeleteForUser(ctx, user.ID); err != nil {
			s.log().Warn("revoke sessions after reset failed", zap.Int64("user_id", user.ID), zap.Error(err))
		}
		s.audit("password_reset.success", "user_id", user.ID)
	}
	return nil
}

func (s *AuthService) consumeOTP(ctx context.Context, phone, code string) error {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return newAPIError("invalid_grant", "Verification code required.", http.StatusBadRequest)
	}
	expected, err := s.otp.GetCode(ctx, phone)
	if err != nil {
		return fmt.Errorf("load otp: %w", err)
	}
	if expected == "" || subtle.ConstantTimeCompare([]byte(trimmed), []byte(expected)) != 1 {
		return newAPIError("invalid_grant", "Wrong or expired verification code.", http.StatusUnauthorized)
	}
	if err := s.otp.DeleteCode(ctx, phone); err != nil {
		return fmt.Errorf("consume otp: %w", err)
	}
	return nil
}

func (s *AuthService) lookup(ctx context.Context, identifier string) (domain.User, error) {
	identifier = strings.TrimSpace(identifier)
	if strings.Contains(identifier, "@") {
		return s.users.GetByEmail(ctx, strings.ToLower(identifier))
	}
	return s.users.GetByPhone(ctx, NormalizePhone(identifier))
}

func (s *AuthService) issueTokens(ctx context.Context, user domain.User) (*TokenResponse, error) {
	access, err := s.jwt.GenerateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	refreshToken := randomToken(s.cfg.RefreshTokenBytes)
	record := domain.RefreshToken{
		ID:        s.snowflake.Generate().Int64(),
		UserID:    user.ID,
		Token:     refreshToken,
		ExpiresAt: time.Now().Add(s.cfg.RefreshTokenTTL),
	}
	if _, err := s.refresh.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("persist refresh token: %w", err)
	}

	return &TokenResponse{
		AccessToken:  access,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.cfg.AccessTokenTTL.Seconds()),
	}, nil
}

func (s *AuthService) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if s == nil || s.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return s.tracer.Start(ctx, name)
}

func (s *AuthService) audit(event string, attrs ...any) {
	logger := s.log()
	if logger == nil {
		return
	}
	fields := make([]zap.Field, 0, len(attrs)/2+2)
	fields = append(fields, zap.String("event", event), zap.Time("timestamp", time.Now().UTC()))
	for i := 0; i+1 < len(attrs); i += 2 {
		key, ok := attrs[i].(string)
		if !ok {
			continue
		}
		fields = append(fields, zap.Any(key, attrs[i+1]))
	}
	logger.Info("audit", fields...)
}

func (s *AuthService) log() *zap.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return zap.L()
}

// NormalizePhone strips spaces and dashes so lookups are stable across
// input formats.
func NormalizePhone(phone string) string {
	replacer := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "")
	return replacer.Replace(strings.TrimSpace(phone))
}

func randomToken(n int) string {
	if n <= 0 {
		n = 32
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}

func generateCode(length int) (string, error) {
	if length <= 0 {
		length = 6
	}
	digits := make([]byte, length)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		digits[i] = byte('0' + n.Int64())
	}
	return string(digits), nil
}
