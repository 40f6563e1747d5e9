package service_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/MaezenDigital/Enemamar-backend/internal/config"
	"github.com/MaezenDigital/Enemamar-backend/internal/domain"
	"github.com/MaezenDigital/Enemamar-backend/internal/service"
)

type paymentFixture struct {
	svc         *service.PaymentService
	users       *memoryUserRepo
	courses     *memoryCourseRepo
	enrollments *memoryEnrollmentRepo
	payments    *memoryPaymentRepo
	gateway     *fakeGateway
}

func newPaymentFixture(t *testing.T) *paymentFixture {
	t.Helper()
	f := &paymentFixture{
		users:       newMemoryUserRepo(),
		courses:     newMemoryCourseRepo(),
		enrollments: newMemoryEnrollmentRepo(),
		payments:    newMemoryPaymentRepo(),
		gateway:     &fakeGateway{},
	}
	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	cfg := config.Config{PaymentCallbackURL: "https://api.example/payments/callback"}
	f.svc = service.NewPaymentService(f.payments, f.courses, f.users, f.enrollments, f.gateway, node, cfg, zap.NewNop())
	return f
}

func (f *paymentFixture) seed(t *testing.T, price, discount float64) (domain.User, domain.Course) {
	t.Helper()
	user, err := f.users.Create(context.Background(), domain.User{Phone: "+251911999999", Email: "student@example.com", IsActive: true, Role: "student"})
	require.NoError(t, err)
	course, err := f.courses.Create(context.Background(), domain.Course{InstructorID: 999, Title: "Go Basics", Price: price, Discount: discount})
	require.NoError(t, err)
	return user, course
}

func TestInitiateFreeCourseEnrollsDirectly(t *testing.T) {
	ctx := context.Background()
	f := newPaymentFixture(t)
	user, course := f.seed(t, 0, 0)

	checkout, err := f.svc.Initiate(ctx, user.ID, course.ID)
	require.NoError(t, err)
	require.True(t, checkout.Enrolled)
	require.Empty(t, checkout.CheckoutURL)
	require.Empty(t, f.gateway.initCalls)

	_, err = f.enrollments.Get(ctx, user.ID, course.ID)
	require.NoError(t, err)
}

func TestInitiatePaidCourseOpensCheckout(t *testing.T) {
	ctx := context.Background()
	f := newPaymentFixture(t)
	user, course := f.seed(t, 200, 0.25)

	checkout, err := f.svc.Initiate(ctx, user.ID, course.ID)
	require.NoError(t, err)
	require.False(t, checkout.Enrolled)
	require.NotEmpty(t, checkout.TxRef)
	require.Contains(t, checkout.CheckoutURL, checkout.TxRef)

	require.Len(t, f.gateway.initCalls, 1)
	require.Equal(t, "150.00", f.gateway.initCalls[0].Amount)
	require.Contains(t, f.gateway.initCalls[0].CallbackURL, "trx_ref="+checkout.TxRef)

	payment, err := f.payments.GetByTxRef(ctx, checkout.TxRef)
	require.NoError(t, err)
	require.Equal(t, domain.PaymentPending, payment.Status)

	// No enrollment until the gateway confirms.
	_, err = f.enrollments.Get(ctx, user.ID, course.ID)
	require.Error(t, err)
}

func TestInitiateAlreadyEnrolledConflicts(t *testing.T) {
	ctx := context.Background()
	f := newPaymentFixture(t)
	user, course := f.seed(t, 100, 0)
	_, err := f.enrollments.Create(ctx, user.ID, course.ID)
	require.NoError(t, err)

	_, err = f.svc.Initiate(ctx, user.ID, course.ID)
	requireStatus(t, err, http.StatusConflict)
}

func TestInitiateGatewayFailure(t *testing.T) {
	ctx := context.Background()
	f := newPaymentFixture(t)
	user, course := f.seed(t, 100, 0)
	f.gateway.initErr = errors.New("boom")

	_, err := f.svc.Initiate(ctx, user.ID, course.ID)
	requireStatus(t, err, http.StatusBadGateway)
	require.Empty(t, f.payments.payments)
}

func TestProcessEventSettlesAndEnrolls(t *testing.T) {
	ctx := context.Background()
	f := newPaymentFixture(t)
	user, course := f.seed(t, 100, 0)

	checkout, err := f.svc.Initiate(ctx, user.ID, course.ID)
	require.NoError(t, err)

	payment, err := f.svc.ProcessEvent(ctx, domain.PaymentEvent{TxRef: checkout.TxRef, Status: "success", Reference: "chapa-1"})
	require.NoError(t, err)
	require.Equal(t, domain.PaymentSuccess, payment.Status)
	require.Equal(t, "chapa-1", payment.RefID)

	_, err = f.enrollments.Get(ctx, user.ID, course.ID)
	require.NoError(t, err)
}

func TestProcessEventRedeliveryIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newPaymentFixture(t)
	user, course := f.seed(t, 100, 0)

	checkout, err := f.svc.Initiate(ctx, user.ID, course.ID)
	require.NoError(t, err)

	first, err := f.svc.ProcessEvent(ctx, domain.PaymentEvent{TxRef: checkout.TxRef, Status: "success", Reference: "chapa-1"})
	require.NoError(t, err)

	second, err := f.svc.ProcessEvent(ctx, domain.PaymentEvent{TxRef: checkout.TxRef, Status: "success", Reference: "chapa-2"})
	require.NoError(t, err)
	require.Equal(t, first.RefID, second.RefID)
	require.Equal(t, domain.PaymentSuccess, second.Status)

	count, err := f.enrollments.CountForCourse(ctx, course.ID)
	require.NoError(t, err)
	require.Equal(t, 1, count)
	_ = user
}

func TestProcessEventFailureDoesNotEnroll(t *testing.T) {
	ctx := context.Background()
	f := newPaymentFixture(t)
	user, course := f.seed(t, 100, 0)

	checkout, err := f.svc.Initiate(ctx, user.ID, course.ID)
	require.NoError(t, err)

	payment, err := f.svc.ProcessEvent(ctx, domain.PaymentEvent{TxRef: checkout.TxRef, Status: "failed"})
	require.NoError(t, err)
	require.Equal(t, domain.PaymentFailed, payment.Status)

	_, err = f.enrollments.Get(ctx, user.ID, course.ID)
	require.Error(t, err)
}

func TestProcessEventUnknownTxRef(t *testing.T) {
	ctx := context.Background()
	f := newPaymentFixture(t)

	_, err := f.svc.ProcessEvent(ctx, domain.PaymentEvent{TxRef: "tx-nope", Status: "success"})
	requireStatus(t, err, http.StatusNotFound)
}

func TestCallbackVerifiesWithGateway(t *testing.T) {
	ctx := context.Background()
	f := newPaymentFixture(t)
	user, course := f.seed(t, 100, 0)

	checkout, err := f.svc.Initiate(ctx, user.ID, course.ID)
	require.NoError(t, err)

	payment, err := f.svc.Callback(ctx, checkout.TxRef)
	require.NoError(t, err)
	require.Equal(t, domain.PaymentSuccess, payment.Status)

	_, err = f.enrollments.Get(ctx, user.ID, course.ID)
	require.NoError(t, err)
}

func TestCallbackFailedVerification(t *testing.T) {
	ctx := context.Background()
	f := newPaymentFixture(t)
	user, course := f.seed(t, 100, 0)
	f.gateway.verifyStatus = "failed"

	checkout, err := f.svc.Initiate(ctx, user.ID, course.ID)
	require.NoError(t, err)

	payment, err := f.svc.Callback(ctx, checkout.TxRef)
	require.NoError(t, err)
	require.Equal(t, domain.PaymentFailed, payment.Status)

	_, err = f.enrollments.Get(ctx, user.ID, course.ID)
	require.Error(t, err)
}
