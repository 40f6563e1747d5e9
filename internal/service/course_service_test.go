package service_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/MaezenDigital/Enemamar-backend/internal/domain"
	"github.com/MaezenDigital/Enemamar-backend/internal/service"
)

type courseFixture struct {
	svc         *service.CourseService
	lessons     *service.LessonService
	courses     *memoryCourseRepo
	lessonRepo  *memoryLessonRepo
	enrollments *memoryEnrollmentRepo
	payments    *memoryPaymentRepo
}

func newCourseFixture(t *testing.T) *courseFixture {
	t.Helper()
	f := &courseFixture{
		courses:     newMemoryCourseRepo(),
		lessonRepo:  newMemoryLessonRepo(),
		enrollments: newMemoryEnrollmentRepo(),
		payments:    newMemoryPaymentRepo(),
	}
	node, err := snowflake.NewNode(3)
	require.NoError(t, err)
	f.svc = service.NewCourseService(f.courses, f.enrollments, f.payments, node, zap.NewNop())
	f.lessons = service.NewLessonService(f.courses, f.lessonRepo, f.enrollments, node, zap.NewNop())
	return f
}

const (
	instructorID = int64(100)
	adminID      = int64(200)
	studentID    = int64(300)
)

func TestCourseCreateOwnership(t *testing.T) {
	ctx := context.Background()
	f := newCourseFixture(t)

	created, err := f.svc.Create(ctx, instructorID, domain.RoleInstructor, 0, service.CourseInput{Title: "Go Basics", Price: 50})
	require.NoError(t, err)
	require.Equal(t, instructorID, created.InstructorID)

	// An admin can create on behalf of an instructor.
	onBehalf, err := f.svc.Create(ctx, adminID, domain.RoleAdmin, instructorID, service.CourseInput{Title: "Advanced Go", Price: 80})
	require.NoError(t, err)
	require.Equal(t, instructorID, onBehalf.InstructorID)

	// An instructor cannot reassign ownership.
	own, err := f.svc.Create(ctx, instructorID, domain.RoleInstructor, adminID, service.CourseInput{Title: "Concurrency"})
	require.NoError(t, err)
	require.Equal(t, instructorID, own.InstructorID)
}

func TestCourseUpdateForbiddenForOtherInstructor(t *testing.T) {
	ctx := context.Background()
	f := newCourseFixture(t)

	course, err := f.svc.Create(ctx, instructorID, domain.RoleInstructor, 0, service.CourseInput{Title: "Go Basics"})
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, instructorID+1, domain.RoleInstructor, course.ID, service.CourseInput{Title: "Hijacked"})
	requireStatus(t, err, http.StatusForbidden)

	// Admins always may.
	updated, err := f.svc.Update(ctx, adminID, domain.RoleAdmin, course.ID, service.CourseInput{Title: "Renamed"})
	require.NoError(t, err)
	require.Equal(t, "Renamed", updated.Title)
}

func TestCourseInputValidation(t *testing.T) {
	ctx := context.Background()
	f := newCourseFixture(t)

	_, err := f.svc.Create(ctx, instructorID, domain.RoleInstructor, 0, service.CourseInput{Title: "  "})
	requireStatus(t, err, http.StatusBadRequest)

	_, err = f.svc.Create(ctx, instructorID, domain.RoleInstructor, 0, service.CourseInput{Title: "X", Price: -1})
	requireStatus(t, err, http.StatusBadRequest)

	_, err = f.svc.Create(ctx, instructorID, domain.RoleInstructor, 0, service.CourseInput{Title: "X", Discount: 1.5})
	requireStatus(t, err, http.StatusBadRequest)
}

func TestEnrollFreeCourse(t *testing.T) {
	ctx := context.Background()
	f := newCourseFixture(t)

	course, err := f.svc.Create(ctx, instructorID, domain.RoleInstructor, 0, service.CourseInput{Title: "Free Course"})
	require.NoError(t, err)

	enrollment, err := f.svc.Enroll(ctx, studentID, course.ID)
	require.NoError(t, err)
	require.Equal(t, studentID, enrollment.UserID)

	enrolled, err := f.svc.IsEnrolled(ctx, studentID, course.ID)
	require.NoError(t, err)
	require.True(t, enrolled)

	// Re-enrolling returns the existing enrollment.
	again, err := f.svc.Enroll(ctx, studentID, course.ID)
	require.NoError(t, err)
	require.Equal(t, enrollment.ID, again.ID)
}

func TestEnrollPaidCourseRequiresPayment(t *testing.T) {
	ctx := context.Background()
	f := newCourseFixture(t)

	course, err := f.svc.Create(ctx, instructorID, domain.RoleInstructor, 0, service.CourseInput{Title: "Paid Course", Price: 100})
	require.NoError(t, err)

	_, err = f.svc.Enroll(ctx, studentID, course.ID)
	requireStatus(t, err, http.StatusPaymentRequired)
}

func TestUnenroll(t *testing.T) {
	ctx := context.Background()
	f := newCourseFixture(t)

	course, err := f.svc.Create(ctx, instructorID, domain.RoleInstructor, 0, service.CourseInput{Title: "Free Course"})
	require.NoError(t, err)
	_, err = f.svc.Enroll(ctx, studentID, course.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.Unenroll(ctx, studentID, course.ID))
	err = f.svc.Unenroll(ctx, studentID, course.ID)
	requireStatus(t, err, http.StatusNotFound)
}

func TestLessonAccessGatedByEnrollment(t *testing.T) {
	ctx := context.Background()
	f := newCourseFixture(t)

	course, err := f.svc.Create(ctx, instructorID, domain.RoleInstructor, 0, service.CourseInput{Title: "Free Course"})
	require.NoError(t, err)
	lesson, err := f.lessons.Add(ctx, instructorID, domain.RoleInstructor, course.ID, service.LessonInput{Title: "Intro", Position: 1})
	require.NoError(t, err)

	// Not enrolled: forbidden.
	_, err = f.lessons.Get(ctx, studentID, domain.RoleStudent, course.ID, lesson.ID)
	requireStatus(t, err, http.StatusForbidden)

	// The owner and admins bypass enrollment.
	_, err = f.lessons.Get(ctx, instructorID, domain.RoleInstructor, course.ID, lesson.ID)
	require.NoError(t, err)
	_, err = f.lessons.Get(ctx, adminID, domain.RoleAdmin, course.ID, lesson.ID)
	require.NoError(t, err)

	_, err = f.svc.Enroll(ctx, studentID, course.ID)
	require.NoError(t, err)
	got, err := f.lessons.Get(ctx, studentID, domain.RoleStudent, course.ID, lesson.ID)
	require.NoError(t, err)
	require.Equal(t, "Intro", got.Title)
}

func TestLessonManageForbiddenForNonOwner(t *testing.T) {
	ctx := context.Background()
	f := newCourseFixture(t)

	course, err := f.svc.Create(ctx, instructorID, domain.RoleInstructor, 0, service.CourseInput{Title: "Free Course"})
	require.NoError(t, err)

	_, err = f.lessons.Add(ctx, instructorID+1, domain.RoleInstructor, course.ID, service.LessonInput{Title: "Intro"})
	requireStatus(t, err, http.StatusForbidden)
}

func TestCourseAnalytics(t *testing.T) {
	ctx := context.Background()
	f := newCourseFixture(t)

	course, err := f.svc.Create(ctx, instructorID, domain.RoleInstructor, 0, service.CourseInput{Title: "Free Course"})
	require.NoError(t, err)
	_, err = f.svc.Enroll(ctx, studentID, course.ID)
	require.NoError(t, err)
	_, err = f.svc.Enroll(ctx, studentID+1, course.ID)
	require.NoError(t, err)

	_, err = f.payments.Create(ctx, domain.Payment{CourseID: course.ID, Amount: 100, TxRef: "tx-a", Status: domain.PaymentSuccess})
	require.NoError(t, err)
	_, err = f.payments.Create(ctx, domain.Payment{CourseID: course.ID, Amount: 50, TxRef: "tx-b", Status: domain.PaymentFailed})
	require.NoError(t, err)

	stats, err := f.svc.Analytics(ctx, instructorID, domain.RoleInstructor, course.ID)
	require.NoError(t, err)
	require.Equal(t, 2, stats.Enrollments)
	require.Equal(t, 2, stats.RecentEnrollments)
	require.Equal(t, float64(100), stats.Revenue)

	// Analytics are hidden from non-owners.
	_, err = f.svc.Analytics(ctx, instructorID+1, domain.RoleInstructor, course.ID)
	requireStatus(t, err, http.StatusForbidden)

	totals, err := f.svc.InstructorAnalytics(ctx, instructorID)
	require.NoError(t, err)
	require.Equal(t, 1, totals.Courses)
	require.Equal(t, 2, totals.TotalEnrollments)
	require.Equal(t, float64(100), totals.TotalRevenue)
}
