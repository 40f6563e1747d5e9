package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/MaezenDigital/Enemamar-backend/internal/domain"
	"github.com/MaezenDigital/Enemamar-backend/internal/repository"
)

// CourseInput carries the editable course fields.
type CourseInput struct {
	Title        string
	Description  string
	Price        float64
	Discount     float64
	ThumbnailURL string
}

// CourseDetail is a course plus viewer-specific enrollment state.
type CourseDetail struct {
	CourseViewModel
	IsEnrolled bool `json:"is_enrolled"`
}

// CourseAnalytics aggregates enrollment and revenue numbers.
type CourseAnalytics struct {
	CourseID          int64   `json:"course_id"`
	Enrollments       int     `json:"enrollments"`
	RecentEnrollments int     `json:"recent_enrollments"`
	Revenue           float64 `json:"revenue"`
}

// InstructorAnalytics sums analytics across an instructor's courses.
type InstructorAnalytics struct {
	Courses          int               `json:"courses"`
	TotalEnrollments int               `json:"total_enrollments"`
	TotalRevenue     float64           `json:"total_revenue"`
	PerCourse        []CourseAnalytics `json:"per_course"`
}

const recentEnrollmentWindow = 30 * 24 * time.Hour

// CourseService manages the catalog, lessons and enrollment.
type CourseService struct {
	courses     repository.CourseRepository
	enrollments repository.EnrollmentRepository
	payments    repository.PaymentRepository
	snowflake   *snowflake.Node
	logger      *zap.Logger
	tracer      trace.Tracer
}

// NewCourseService wires dependencies.
func NewCourseService(courses repository.CourseRepository, enrollments repository.EnrollmentRepository, payments repository.PaymentRepository, snowflake *snowflake.Node, logger *zap.Logger) *CourseService {
	return &CourseService{
		courses:     courses,
		enrollments: enrollments,
		payments:    payments,
		snowflake:   snowflake,
		logger:      logger,
		tracer:      otel.Tracer("github.com/MaezenDigital/Enemamar-backend/internal/service"),
	}
}

// Create adds a course. Instructors own what they create; admins may
// create on behalf of an instructor.
func (s *CourseService) Create(ctx context.Context, callerID int64, callerRole string, instructorID int64, input CourseInput) (domain.Course, error) {
	ctx, span := s.tracer.Start(ctx, "CourseService.Create")
	defer span.End()

	if err := validateCourseInput(input); err != nil {
		return domain.Course{}, err
	}
	owner := callerID
	if callerRole == domain.RoleAdmin && instructorID != 0 {
		owner = instructorID
	}

	course := domain.Course{
		ID:           s.snowflake.Generate().Int64(),
		InstructorID: owner,
		Title:        strings.TrimSpace(input.Title),
		Description:  strings.TrimSpace(input.Description),
		Price:        input.Price,
		Discount:     input.Discount,
		ThumbnailURL: strings.TrimSpace(input.ThumbnailURL),
	}
	created, err := s.courses.Create(ctx, course)
	if err != nil {
		span.RecordError(err)
		return domain.Course{}, fmt.Errorf("create course: %w", err)
	}
	s.logger.Info("audit",
		zap.String("event", "course.created"),
		zap.Int64("course_id", created.ID),
		zap.Int64("instructor_id", created.InstructorID))
	return created, nil
}

// Get returns a course. When viewerID is non-zero the detail reports
// whether that viewer is enrolled.
func (s *CourseService) Get(ctx context.Context, courseID, viewerID int64) (CourseDetail, error) {
	course, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		return CourseDetail{}, newAPIError("not_found", "Course not found.", http.StatusNotFound)
	}
	detail := CourseDetail{CourseViewModel: NewCourseViewModel(course)}
	if viewerID != 0 {
		if _, err := s.enrollments.Get(ctx, viewerID, courseID); err == nil {
			detail.IsEnrolled = true
		}
	}
	return detail, nil
}

// List returns the paginated catalog.
func (s *CourseService) List(ctx context.Context, params repository.ListParams) ([]domain.Course, int, error) {
	courses, total, err := s.courses.List(ctx, params)
	if err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}
	return courses, total, nil
}

// Update edits a course. Only the owning instructor or an admin may.
func (s *CourseService) Update(ctx context.Context, callerID int64, callerRole string, courseID int64, input CourseInput) (domain.Course, error) {
	ctx, span := s.tracer.Start(ctx, "CourseService.Update")
	defer span.End()

	course, err := s.requireOwnership(ctx, callerID, callerRole, courseID)
	if err != nil {
		return domain.Course{}, err
	}
	if err := validateCourseInput(input); err != nil {
		return domain.Course{}, err
	}

	course.Title = strings.TrimSpace(input.Title)
	course.Description = strings.TrimSpace(input.Description)
	course.Price = input.Price
	course.Discount = input.Discount
	course.ThumbnailURL = strings.TrimSpace(input.ThumbnailURL)

	updated, err := s.courses.Update(ctx, course)
	if err != nil {
		span.RecordError(err)
		return domain.Course{}, fmt.Errorf("update course: %w", err)
	}
	return updated, nil
}

// Delete removes a course. Only the owning instructor or an admin may.
func (s *CourseService) Delete(ctx context.Context, callerID int64, callerRole string, courseID int64) error {
	ctx, span := s.tracer.Start(ctx, "CourseService.Delete")
	defer span.End()

	if _, err := s.requireOwnership(ctx, callerID, callerRole, courseID); err != nil {
		return err
	}
	if err := s.courses.Delete(ctx, courseID); err != nil {
		span.RecordError(err)
		return fmt.Errorf("delete course: %w", err)
	}
	s.logger.Info("audit", zap.String("event", "course.deleted"), zap.Int64("course_id", courseID))
	return nil
}

// Enroll enrolls the user in a free course. Paid courses go through
// the payment flow instead.
func (s *CourseService) Enroll(ctx context.Context, userID, courseID int64) (domain.Enrollment, error) {
	ctx, span := s.tracer.Start(ctx, "CourseService.Enroll")
	defer span.End()

	course, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		return domain.Enrollment{}, newAPIError("not_found", "Course not found.", http.StatusNotFound)
	}
	if !course.Free() {
		return domain.Enrollment{}, newAPIError("payment_required", "This course is paid. Initiate a payment to enroll.", http.StatusPaymentRequired)
	}

	enrollment, err := s.enrollments.Create(ctx, userID, courseID)
	if err != nil {
		span.RecordError(err)
		return domain.Enrollment{}, fmt.Errorf("enroll: %w", err)
	}
	s.logger.Info("audit",
		zap.String("event", "enrollment.created"),
		zap.Int64("user_id", userID),
		zap.Int64("course_id", courseID))
	return enrollment, nil
}

// Unenroll removes the user's enrollment.
func (s *CourseService) Unenroll(ctx context.Context, userID, courseID int64) error {
	if _, err := s.enrollments.Get(ctx, userID, courseID); err != nil {
		return newAPIError("not_found", "Not enrolled in this course.", http.StatusNotFound)
	}
	if err := s.enrollments.Delete(ctx, userID, courseID); err != nil {
		return fmt.Errorf("unenroll: %w", err)
	}
	s.logger.Info("audit",
		zap.String("event", "enrollment.removed"),
		zap.Int64("user_id", userID),
		zap.Int64("course_id", courseID))
	return nil
}

// IsEnrolled reports whether the user is enrolled in the course.
func (s *CourseService) IsEnrolled(ctx context.Context, userID, courseID int64) (bool, error) {
	if _, err := s.courses.GetByID(ctx, courseID); err != nil {
		return false, newAPIError("not_found", "Course not found.", http.StatusNotFound)
	}
	if _, err := s.enrollments.Get(ctx, userID, courseID); err != nil {
		return false, nil
	}
	return true, nil
}

// EnrolledCourses lists the courses the user is enrolled in.
func (s *CourseService) EnrolledCourses(ctx context.Context, userID int64, params repository.ListParams) ([]domain.Course, int, error) {
	courses, total, err := s.enrollments.ListCourses(ctx, userID, params)
	if err != nil {
		return nil, 0, fmt.Errorf("list enrolled courses: %w", err)
	}
	return courses, total, nil
}

// EnrolledUsers lists the users enrolled in a course. Only the owning
// instructor or an admin may see the roster.
func (s *CourseService) EnrolledUsers(ctx context.Context, callerID int64, callerRole string, courseID int64, params repository.ListParams) ([]domain.User, int, error) {
	if _, err := s.requireOwnership(ctx, callerID, callerRole, courseID); err != nil {
		return nil, 0, err
	}
	users, total, err := s.enrollments.ListUsers(ctx, courseID, params)
	if err != nil {
		return nil, 0, fmt.Errorf("list enrolled users: %w", err)
	}
	for i := range users {
		users[i].PasswordHash = ""
	}
	return users, total, nil
}

// Analytics returns enrollment and revenue numbers for a course. Only
// the owning instructor or an admin may read them.
func (s *CourseService) Analytics(ctx context.Context, callerID int64, callerRole string, courseID int64) (CourseAnalytics, error) {
	ctx, span := s.tracer.Start(ctx, "CourseService.Analytics")
	defer span.End()

	if _, err := s.requireOwnership(ctx, callerID, callerRole, courseID); err != nil {
		return CourseAnalytics{}, err
	}
	return s.courseAnalytics(ctx, courseID)
}

// InstructorAnalytics aggregates analytics across the caller's courses.
func (s *CourseService) InstructorAnalytics(ctx context.Context, instructorID int64) (InstructorAnalytics, error) {
	ctx, span := s.tracer.Start(ctx, "CourseService.InstructorAnalytics")
	defer span.End()

	courses, total, err := s.courses.ListByInstructor(ctx, instructorID, repository.ListParams{Page: 1, PageSize: 100})
	if err != nil {
		return InstructorAnalytics{}, fmt.Errorf("list instructor courses: %w", err)
	}

	result := InstructorAnalytics{Courses: total}
	for _, course := range courses {
		stats, err := s.courseAnalytics(ctx, course.ID)
		if err != nil {
			span.RecordError(err)
			return InstructorAnalytics{}, err
		}
		result.TotalEnrollments += stats.Enrollments
		result.TotalRevenue += stats.Revenue
		result.PerCourse = append(result.PerCourse, stats)
	}
	return result, nil
}

func (s *CourseService) courseAnalytics(ctx context.Context, courseID int64) (CourseAnalytics, error) {
	enrolled, err := s.enrollments.CountForCourse(ctx, courseID)
	if err != nil {
		return CourseAnalytics{}, fmt.Errorf("count enrollments: %w", err)
	}
	recent, err := s.enrollments.CountForCourseSince(ctx, courseID, time.Now().Add(-recentEnrollmentWindow))
	if err != nil {
		return CourseAnalytics{}, fmt.Errorf("count recent enrollments: %w", err)
	}
	revenue, err := s.payments.CourseRevenue(ctx, courseID)
	if err != nil {
		return CourseAnalytics{}, fmt.Errorf("course revenue: %w", err)
	}
	return CourseAnalytics{
		CourseID:          courseID,
		Enrollments:       enrolled,
		RecentEnrollments: recent,
		Revenue:           revenue,
	}, nil
}

// requireOwnership loads the course and checks the caller may manage it.
func (s *CourseService) requireOwnership(ctx context.Context, callerID int64, callerRole string, courseID int64) (domain.Course, error) {
	course, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		return domain.Course{}, newAPIError("not_found", "Course not found.", http.StatusNotFound)
	}
	if callerRole != domain.RoleAdmin && course.InstructorID != callerID {
		return domain.Course{}, newAPIError("forbidden", "You do not manage this course.", http.StatusForbidden)
	}
	return course, nil
}

func validateCourseInput(input CourseInput) error {
	if strings.TrimSpace(input.Title) == "" {
		return newAPIError("invalid_request", "Course title is required.", http.StatusBadRequest)
	}
	if input.Price < 0 {
		return newAPIError("invalid_request", "Price cannot be negative.", http.StatusBadRequest)
	}
	if input.Discount < 0 || input.Discount > 1 {
		return newAPIError("invalid_request", "Discount must be between 0 and 1.", http.StatusBadRequest)
	}
	return nil
}
