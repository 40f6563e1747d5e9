package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/MaezenDigital/Enemamar-backend/internal/domain"
	"github.com/MaezenDigital/Enemamar-backend/internal/repository"
)

// LessonInput carries the editable lesson fields.
type LessonInput struct {
	Title    string
	Position int
	Duration int
	VideoURL string
}

// LessonService manages lessons. Reading lesson content requires
// enrollment; the owning instructor and admins always have access.
type LessonService struct {
	courses     repository.CourseRepository
	lessons     repository.LessonRepository
	enrollments repository.EnrollmentRepository
	snowflake   *snowflake.Node
	logger      *zap.Logger
	tracer      trace.Tracer
}

// NewLessonService wires dependencies.
func NewLessonService(courses repository.CourseRepository, lessons repository.LessonRepository, enrollments repository.EnrollmentRepository, snowflake *snowflake.Node, logger *zap.Logger) *LessonService {
	return &LessonService{
		courses:     courses,
		lessons:     lessons,
		enrollments: enrollments,
		snowflake:   snowflake,
		logger:      logger,
		tracer:      otel.Tracer("github.com/MaezenDigital/Enemamar-backend/internal/service"),
	}
}

// Add creates a lesson in a course the caller manages.
func (s *LessonService) Add(ctx context.Context, callerID int64, callerRole string, courseID int64, input LessonInput) (domain.Lesson, error) {
	ctx, span := s.tracer.Start(ctx, "LessonService.Add")
	defer span.End()

	if err := s.requireManage(ctx, callerID, callerRole, courseID); err != nil {
		return domain.Lesson{}, err
	}
	if strings.TrimSpace(input.Title) == "" {
		return domain.Lesson{}, newAPIError("invalid_request", "Lesson title is required.", http.StatusBadRequest)
	}

	lesson := domain.Lesson{
		ID:       s.snowflake.Generate().Int64(),
		CourseID: courseID,
		Title:    strings.TrimSpace(input.Title),
		Position: input.Position,
		Duration: input.Duration,
		VideoURL: strings.TrimSpace(input.VideoURL),
	}
	created, err := s.lessons.Create(ctx, lesson)
	if err != nil {
		span.RecordError(err)
		return domain.Lesson{}, fmt.Errorf("create lesson: %w", err)
	}
	s.logger.Info("audit",
		zap.String("event", "lesson.created"),
		zap.Int64("course_id", courseID),
		zap.Int64("lesson_id", created.ID))
	return created, nil
}

// Update edits a lesson in a course the caller manages.
func (s *LessonService) Update(ctx context.Context, callerID int64, callerRole string, courseID, lessonID int64, input LessonInput) (domain.Lesson, error) {
	ctx, span := s.tracer.Start(ctx, "LessonService.Update")
	defer span.End()

	if err := s.requireManage(ctx, callerID, callerRole, courseID); err != nil {
		return domain.Lesson{}, err
	}
	lesson, err := s.lessons.GetByID(ctx, courseID, lessonID)
	if err != nil {
		return domain.Lesson{}, newAPIError("not_found", "Lesson not found.", http.StatusNotFound)
	}
	if strings.TrimSpace(input.Title) == "" {
		return domain.Lesson{}, newAPIError("invalid_request", "Lesson title is required.", http.StatusBadRequest)
	}

	lesson.Title = strings.TrimSpace(input.Title)
	lesson.Position = input.Position
	lesson.Duration = input.Duration
	lesson.VideoURL = strings.TrimSpace(input.VideoURL)

	updated, err := s.lessons.Update(ctx, lesson)
	if err != nil {
		span.RecordError(err)
		return domain.Lesson{}, fmt.Errorf("update lesson: %w", err)
	}
	return updated, nil
}

// Delete removes a lesson from a course the caller manages.
func (s *LessonService) Delete(ctx context.Context, callerID int64, callerRole string, courseID, lessonID int64) error {
	ctx, span := s.tracer.Start(ctx, "LessonService.Delete")
	defer span.End()

	if err := s.requireManage(ctx, callerID, callerRole, courseID); err != nil {
		return err
	}
	if _, err := s.lessons.GetByID(ctx, courseID, lessonID); err != nil {
		return newAPIError("not_found", "Lesson not found.", http.StatusNotFound)
	}
	if err := s.lessons.Delete(ctx, courseID, lessonID); err != nil {
		span.RecordError(err)
		return fmt.Errorf("delete lesson: %w", err)
	}
	s.logger.Info("audit",
		zap.String("event", "lesson.deleted"),
		zap.Int64("course_id", courseID),
		zap.Int64("lesson_id", lessonID))
	return nil
}

// List returns a course's lessons for an enrolled user or manager.
func (s *LessonService) List(ctx context.Context, callerID int64, callerRole string, courseID int64, params repository.ListParams) ([]domain.Lesson, int, error) {
	if err := s.requireAccess(ctx, callerID, callerRole, courseID); err != nil {
		return nil, 0, err
	}
	lessons, total, err := s.lessons.ListByCourse(ctx, courseID, params)
	if err != nil {
		return nil, 0, fmt.Errorf("list lessons: %w", err)
	}
	return lessons, total, nil
}

// Get returns a single lesson for an enrolled user or manager.
func (s *LessonService) Get(ctx context.Context, callerID int64, callerRole string, courseID, lessonID int64) (domain.Lesson, error) {
	if err := s.requireAccess(ctx, callerID, callerRole, courseID); err != nil {
		return domain.Lesson{}, err
	}
	lesson, err := s.lessons.GetByID(ctx, courseID, lessonID)
	if err != nil {
		return domain.Lesson{}, newAPIError("not_found", "Lesson not found.", http.StatusNotFound)
	}
	return lesson, nil
}

// requireManage allows the owning instructor and admins.
func (s *LessonService) requireManage(ctx context.Context, callerID int64, callerRole string, courseID int64) error {
	course, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		return newAPIError("not_found", "Course not found.", http.StatusNotFound)
	}
	if callerRole != domain.RoleAdmin && course.InstructorID != callerID {
		return newAPIError("forbidden", "You do not manage this course.", http.StatusForbidden)
	}
	return nil
}

// requireAccess allows enrolled users in addition to managers.
func (s *LessonService) requireAccess(ctx context.Context, callerID int64, callerRole string, courseID int64) error {
	course, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		return newAPIError("not_found", "Course not found.", http.StatusNotFound)
	}
	if callerRole == domain.RoleAdmin || course.InstructorID == callerID {
		return nil
	}
	if _, err := s.enrollments.Get(ctx, callerID, courseID); err != nil {
		return newAPIError("forbidden", "Enroll in this course to access its lessons.", http.StatusForbidden)
	}
	return nil
}
