package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/MaezenDigital/Enemamar-backend/internal/adapter/chapa"
	"github.com/MaezenDigital/Enemamar-backend/internal/config"
	"github.com/MaezenDigital/Enemamar-backend/internal/domain"
	"github.com/MaezenDigital/Enemamar-backend/internal/http/handler"
	"github.com/MaezenDigital/Enemamar-backend/internal/repository"
	"github.com/MaezenDigital/Enemamar-backend/internal/service"
	"github.com/MaezenDigital/Enemamar-backend/internal/webhook"
)

const webhookSecret = "webhook-secret"

type stubPaymentRepo struct {
	payments map[string]domain.Payment
	updates  int
}

func (s *stubPaymentRepo) Create(_ context.Context, payment domain.Payment) (domain.Payment, error) {
	s.payments[payment.TxRef] = payment
	return payment, nil
}

func (s *stubPaymentRepo) GetByTxRef(_ context.Context, txRef string) (domain.Payment, error) {
	payment, ok := s.payments[txRef]
	if !ok {
		return domain.Payment{}, pgx.ErrNoRows
	}
	return payment, nil
}

func (s *stubPaymentRepo) UpdateStatus(_ context.Context, txRef, status, refID string) (domain.Payment, error) {
	payment, ok := s.payments[txRef]
	if !ok {
		return domain.Payment{}, pgx.ErrNoRows
	}
	payment.Status = status
	payment.RefID = refID
	s.payments[txRef] = payment
	s.updates++
	return payment, nil
}

func (s *stubPaymentRepo) ListByUser(context.Context, int64, repository.ListParams) ([]domain.Payment, int, error) {
	return nil, 0, nil
}

func (s *stubPaymentRepo) ListByCourse(context.Context, int64, repository.ListParams) ([]domain.Payment, int, error) {
	return nil, 0, nil
}

func (s *stubPaymentRepo) CourseRevenue(context.Context, int64) (float64, error) {
	return 0, nil
}

type stubEnrollmentRepo struct {
	created int
}

func (s *stubEnrollmentRepo) Create(_ context.Context, userID, courseID int64) (domain.Enrollment, error) {
	s.created++
	return domain.Enrollment{ID: 1, UserID: userID, CourseID: courseID, CreatedAt: time.Now()}, nil
}

func (s *stubEnrollmentRepo) Get(context.Context, int64, int64) (domain.Enrollment, error) {
	return domain.Enrollment{}, pgx.ErrNoRows
}

func (s *stubEnrollmentRepo) Delete(context.Context, int64, int64) error { return nil }

func (s *stubEnrollmentRepo) ListCourses(context.Context, int64, repository.ListParams) ([]domain.Course, int, error) {
	return nil, 0, nil
}

func (s *stubEnrollmentRepo) ListUsers(context.Context, int64, repository.ListParams) ([]domain.User, int, error) {
	return nil, 0, nil
}

func (s *stubEnrollmentRepo) CountForCourse(context.Context, int64) (int, error) { return 0, nil }

func (s *stubEnrollmentRepo) CountForCourseSince(context.Context, int64, time.Time) (int, error) {
	return 0, nil
}

type stubGateway struct {
	verifyStatus string
}

func (s *stubGateway) Initialize(context.Context, chapa.InitializeRequest) (*chapa.InitializeResponse, error) {
	return &chapa.InitializeResponse{CheckoutURL: "https://checkout.example/tx"}, nil
}

func (s *stubGateway) Verify(_ context.Context, _ string) (*chapa.VerifyResponse, error) {
	return &chapa.VerifyResponse{Status: s.verifyStatus, Reference: "chapa-9"}, nil
}

func newWebhookFixture(t *testing.T) (*gin.Engine, *stubPaymentRepo, *stubEnrollmentRepo, *webhook.Verifier) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	payments := &stubPaymentRepo{payments: map[string]domain.Payment{
		"tx-1": {ID: 1, UserID: 7, CourseID: 9, Amount: 100, TxRef: "tx-1", Status: domain.PaymentPending},
	}}
	enrollments := &stubEnrollmentRepo{}
	node, err := snowflake.NewNode(4)
	require.NoError(t, err)
	svc := service.NewPaymentService(payments, nil, nil, enrollments, nil, node, config.Config{}, zap.NewNop())

	verifier := webhook.NewVerifier(webhookSecret)
	h := handler.NewPaymentHandler(svc, verifier, zap.NewNop())

	r := gin.New()
	r.POST("/payments/webhook", h.Webhook)
	return r, payments, enrollments, verifier
}

func postWebhook(r *gin.Engine, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/payments/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func newCallbackFixture(t *testing.T, verifyStatus string) (*gin.Engine, *stubPaymentRepo, *stubEnrollmentRepo) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	payments := &stubPaymentRepo{payments: map[string]domain.Payment{
		"tx-1": {ID: 1, UserID: 7, CourseID: 9, Amount: 100, TxRef: "tx-1", Status: domain.PaymentPending},
	}}
	enrollments := &stubEnrollmentRepo{}
	node, err := snowflake.NewNode(4)
	require.NoError(t, err)
	svc := service.NewPaymentService(payments, nil, nil, enrollments, &stubGateway{verifyStatus: verifyStatus}, node, config.Config{}, zap.NewNop())

	h := handler.NewPaymentHandler(svc, webhook.NewVerifier(webhookSecret), zap.NewNop())

	r := gin.New()
	r.GET("/payments/callback", h.Callback)
	return r, payments, enrollments
}

func getCallback(r *gin.Engine, txRef string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/payments/callback?trx_ref="+txRef, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCallbackSettlesVerifiedPayment(t *testing.T) {
	r, payments, enrollments := newCallbackFixture(t, "success")

	w := getCallback(r, "tx-1")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, domain.PaymentSuccess, payments.payments["tx-1"].Status)
	require.Equal(t, 1, enrollments.created)
}

func TestCallbackFailedVerificationIsNotOK(t *testing.T) {
	r, payments, enrollments := newCallbackFixture(t, "failed")

	w := getCallback(r, "tx-1")
	require.Equal(t, http.StatusPaymentRequired, w.Code)
	require.Contains(t, w.Body.String(), "Payment failed.")
	require.Equal(t, domain.PaymentFailed, payments.payments["tx-1"].Status)
	require.Zero(t, enrollments.created)
}

func TestWebhookSettlesPayment(t *testing.T) {
	r, payments, enrollments, verifier := newWebhookFixture(t)

	body := []byte(`{"trx_ref":"tx-1","status":"success","reference":"chapa-9"}`)
	w := postWebhook(r, body, map[string]string{"x-chapa-signature": verifier.Sign(body)})

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, domain.PaymentSuccess, payments.payments["tx-1"].Status)
	require.Equal(t, "chapa-9", payments.payments["tx-1"].RefID)
	require.Equal(t, 1, enrollments.created)
}

func TestWebhookAcceptsLegacyHeader(t *testing.T) {
	r, payments, _, verifier := newWebhookFixture(t)

	body := []byte(`{"trx_ref":"tx-1","status":"success","reference":"chapa-9"}`)
	w := postWebhook(r, body, map[string]string{"Chapa-Signature": verifier.Sign(body)})

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, domain.PaymentSuccess, payments.payments["tx-1"].Status)
}

func TestWebhookMissingSignature(t *testing.T) {
	r, payments, enrollments, _ := newWebhookFixture(t)

	body := []byte(`{"trx_ref":"tx-1","status":"success"}`)
	w := postWebhook(r, body, nil)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Body.String(), "missing_signature")
	require.Equal(t, domain.PaymentPending, payments.payments["tx-1"].Status)
	require.Zero(t, enrollments.created)
}

func TestWebhookInvalidSignature(t *testing.T) {
	r, payments, enrollments, _ := newWebhookFixture(t)

	body := []byte(`{"trx_ref":"tx-1","status":"success"}`)
	w := postWebhook(r, body, map[string]string{"x-chapa-signature": "deadbeef"})

	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Body.String(), "invalid_signature")
	require.Equal(t, domain.PaymentPending, payments.payments["tx-1"].Status)
	require.Zero(t, enrollments.created)
}

// A signature computed over a re-encoded form of the same logical JSON
// must not authenticate the bytes actually received.
func TestWebhookSignatureBoundToRawBytes(t *testing.T) {
	r, payments, _, verifier := newWebhookFixture(t)

	received := []byte("{ \"trx_ref\" : \"tx-1\" , \"status\" : \"success\" }")

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(received, &decoded))
	reencoded, err := json.Marshal(decoded)
	require.NoError(t, err)
	require.NotEqual(t, received, reencoded)

	w := postWebhook(r, received, map[string]string{"x-chapa-signature": verifier.Sign(reencoded)})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, domain.PaymentPending, payments.payments["tx-1"].Status)

	w = postWebhook(r, received, map[string]string{"x-chapa-signature": verifier.Sign(received)})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, domain.PaymentSuccess, payments.payments["tx-1"].Status)
}

func TestWebhookRedelivery(t *testing.T) {
	r, payments, enrollments, verifier := newWebhookFixture(t)

	body := []byte(`{"trx_ref":"tx-1","status":"success","reference":"chapa-9"}`)
	first := postWebhook(r, body, map[string]string{"x-chapa-signature": verifier.Sign(body)})
	require.Equal(t, http.StatusOK, first.Code)

	second := postWebhook(r, body, map[string]string{"x-chapa-signature": verifier.Sign(body)})
	require.Equal(t, http.StatusOK, second.Code)
	require.Equal(t, 1, payments.updates)
	require.Equal(t, 1, enrollments.created)
}

func TestWebhookUnknownReference(t *testing.T) {
	r, _, enrollments, verifier := newWebhookFixture(t)

	body := []byte(`{"trx_ref":"tx-unknown","status":"success"}`)
	w := postWebhook(r, body, map[string]string{"x-chapa-signature": verifier.Sign(body)})

	require.Equal(t, http.StatusNotFound, w.Code)
	require.Zero(t, enrollments.created)
}
