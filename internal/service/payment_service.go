package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/MaezenDigital/Enemamar-backend/internal/adapter/chapa"
	"github.com/MaezenDigital/Enemamar-backend/internal/config"
	"github.com/MaezenDigital/Enemamar-backend/internal/domain"
	"github.com/MaezenDigital/Enemamar-backend/internal/repository"
)

// CheckoutResponse reports the result of a payment initiation. Free
// courses enroll directly and carry no checkout URL.
type CheckoutResponse struct {
	Enrolled    bool   `json:"enrolled"`
	TxRef       string `json:"tx_ref,omitempty"`
	CheckoutURL string `json:"checkout_url,omitempty"`
}

// PaymentService drives checkout, gateway verification and settlement.
type PaymentService struct {
	payments    repository.PaymentRepository
	courses     repository.CourseRepository
	users       repository.UserRepository
	enrollments repository.EnrollmentRepository
	gateway     chapa.Gateway
	snowflake   *snowflake.Node
	cfg         config.Config
	logger      *zap.Logger
	tracer      trace.Tracer
}

// NewPaymentService wires dependencies.
func NewPaymentService(payments repository.PaymentRepository, courses repository.CourseRepository, users repository.UserRepository, enrollments repository.EnrollmentRepository, gateway chapa.Gateway, snowflake *snowflake.Node, cfg config.Config, logger *zap.Logger) *PaymentService {
	return &PaymentService{
		payments:    payments,
		courses:     courses,
		users:       users,
		enrollments: enrollments,
		gateway:     gateway,
		snowflake:   snowflake,
		cfg:         cfg,
		logger:      logger,
		tracer:      otel.Tracer("github.com/MaezenDigital/Enemamar-backend/internal/service"),
	}
}

// Initiate starts checkout for a course. Free courses enroll the user
// immediately; paid courses open a gateway checkout session and record
// a pending payment.
func (s *PaymentService) Initiate(ctx context.Context, userID, courseID int64) (*CheckoutResponse, error) {
	ctx, span := s.tracer.Start(ctx, "PaymentService.Initiate")
	defer span.End()

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, newAPIError("not_found", "User not found.", http.StatusNotFound)
	}
	course, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		return nil, newAPIError("not_found", "Course not found.", http.StatusNotFound)
	}
	if _, err := s.enrollments.Get(ctx, userID, courseID); err == nil {
		return nil, newAPIError("conflict", "Already enrolled in this course.", http.StatusConflict)
	}

	if course.Free() {
		if _, err := s.enrollments.Create(ctx, userID, courseID); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("enroll: %w", err)
		}
		s.audit("enrollment.created", "user_id", userID, "course_id", courseID)
		return &CheckoutResponse{Enrolled: true}, nil
	}

	txRef := fmt.Sprintf("tx-%d", s.snowflake.Generate().Int64())
	amount := course.EffectivePrice()
	initResp, err := s.gateway.Initialize(ctx, chapa.InitializeRequest{
		Amount:      strconv.FormatFloat(amount, 'f', 2, 64),
		Currency:    "ETB",
		Email:       user.Email,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		PhoneNumber: user.Phone,
		TxRef:       txRef,
		CallbackURL: s.callbackURL(txRef),
	})
	if err != nil {
		span.RecordError(err)
		return nil, newAPIError("gateway_error", "Payment could not be initiated.", http.StatusBadGateway)
	}

	payment := domain.Payment{
		ID:       s.snowflake.Generate().Int64(),
		UserID:   userID,
		CourseID: courseID,
		Amount:   amount,
		TxRef:    txRef,
		Status:   domain.PaymentPending,
	}
	if _, err := s.payments.Create(ctx, payment); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("persist payment: %w", err)
	}

	s.audit("payment.initiated", "user_id", userID, "course_id", courseID, "tx_ref", txRef)
	return &CheckoutResponse{TxRef: txRef, CheckoutURL: initResp.CheckoutURL}, nil
}

// Callback settles a transaction reported by the gateway redirect. The
// gateway is asked for the authoritative state before any change.
func (s *PaymentService) Callback(ctx context.Context, txRef string) (domain.Payment, error) {
	ctx, span := s.tracer.Start(ctx, "PaymentService.Callback")
	defer span.End()

	txRef = strings.TrimSpace(txRef)
	if txRef == "" {
		return domain.Payment{}, newAPIError("invalid_request", "Transaction reference required.", http.StatusBadRequest)
	}
	payment, err := s.payments.GetByTxRef(ctx, txRef)
	if err != nil {
		return domain.Payment{}, newAPIError("not_found", "Unknown transaction reference.", http.StatusNotFound)
	}
	if payment.Status == domain.PaymentSuccess {
		return payment, nil
	}

	verifyResp, err := s.gateway.Verify(ctx, txRef)
	if err != nil {
		span.RecordError(err)
		return domain.Payment{}, newAPIError("gateway_error", "Payment could not be verified.", http.StatusBadGateway)
	}
	return s.settle(ctx, payment, verifyResp.Status, verifyResp.Reference)
}

// ProcessEvent settles a transaction reported by a verified webhook
// delivery. Redeliveries for an already settled payment are a no-op.
func (s *PaymentService) ProcessEvent(ctx context.Context, event domain.PaymentEvent) (domain.Payment, error) {
	ctx, span := s.tracer.Start(ctx, "PaymentService.ProcessEvent")
	defer span.End()

	txRef := strings.TrimSpace(event.TxRef)
	if txRef == "" {
		return domain.Payment{}, newAPIError("invalid_request", "Transaction reference required.", http.StatusBadRequest)
	}
	payment, err := s.payments.GetByTxRef(ctx, txRef)
	if err != nil {
		return domain.Payment{}, newAPIError("not_found", "Unknown transaction reference.", http.StatusNotFound)
	}
	if payment.Status == domain.PaymentSuccess {
		return payment, nil
	}
	return s.settle(ctx, payment, event.Status, event.Reference)
}

// ListByUser returns a user's payments.
func (s *PaymentService) ListByUser(ctx context.Context, userID int64, params repository.ListParams) ([]domain.Payment, int, error) {
	payments, total, err := s.payments.ListByUser(ctx, userID, params)
	if err != nil {
		return nil, 0, fmt.Errorf("list payments: %w", err)
	}
	return payments, total, nil
}

// ListByCourse returns a course's payments.
func (s *PaymentService) ListByCourse(ctx context.Context, courseID int64, params repository.ListParams) ([]domain.Payment, int, error) {
	payments, total, err := s.payments.ListByCourse(ctx, courseID, params)
	if err != nil {
		return nil, 0, fmt.Errorf("list payments: %w", err)
	}
	return payments, total, nil
}

func (s *PaymentService) settle(ctx context.Context, payment domain.Payment, status, reference string) (domain.Payment, error) {
	if !settled(status) {
		updated, err := s.payments.UpdateStatus(ctx, payment.TxRef, domain.PaymentFailed, reference)
		if err != nil {
			return domain.Payment{}, fmt.Errorf("record failed payment: %w", err)
		}
		s.audit("payment.failed", "tx_ref", payment.TxRef, "user_id", payment.UserID)
		return updated, nil
	}

	updated, err := s.payments.UpdateStatus(ctx, payment.TxRef, domain.PaymentSuccess, reference)
	if err != nil {
		return domain.Payment{}, fmt.Errorf("record settled payment: %w", err)
	}
	if _, err := s.enrollments.Create(ctx, payment.UserID, payment.CourseID); err != nil {
		return domain.Payment{}, fmt.Errorf("enroll after payment: %w", err)
	}
	s.audit("payment.settled", "tx_ref", payment.TxRef, "user_id", payment.UserID, "course_id", payment.CourseID)
	return updated, nil
}

func (s *PaymentService) callbackURL(txRef string) string {
	base := strings.TrimSpace(s.cfg.PaymentCallbackURL)
	if base == "" {
		return ""
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "trx_ref=" + url.QueryEscape(txRef)
}

func (s *PaymentService) audit(event string, attrs ...any) {
	if s.logger == nil {
		return
	}
	fields := make([]zap.Field, 0, len(attrs)/2+1)
	fields = append(fields, zap.String("event", event))
	for i := 0; i+1 < len(attrs); i += 2 {
		key, ok := attrs[i].(string)
		if !ok {
			continue
		}
		fields = append(fields, zap.Any(key, attrs[i+1]))
	}
	s.logger.Info("audit", fields...)
}

func settled(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "success", "successful", "completed":
		return true
	}
	return false
}
