package repository

import (
	"context"
	"time"

	"github.com/MaezenDigital/Enemamar-backend/internal/domain"
)

// ListParams carries pagination and filtering for list queries.
type ListParams struct {
	Page     int
	PageSize int
	Search   string
	Filter   string
}

// Normalize clamps page values into a usable range.
func (p ListParams) Normalize() ListParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 10
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
	return p
}

// Offset returns the SQL offset for the normalized page.
func (p ListParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// UserRepository exposes persistence for platform users.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) (domain.User, error)
	GetByID(ctx context.Context, userID int64) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	GetByPhone(ctx context.Context, phone string) (domain.User, error)
	List(ctx context.Context, params ListParams, role string, isActive *bool) ([]domain.User, int, error)
	Update(ctx context.Context, user domain.User) (domain.User, error)
	UpdateRole(ctx context.Context, userID int64, role string) error
	SetActive(ctx context.Context, userID int64, active bool) error
	ActivateByPhone(ctx context.Context, phone string) error
	UpdatePasswordByPhone(ctx context.Context, phone, passwordHash string) error
	Delete(ctx context.Context, userID int64) error
}

// RefreshTokenRepository handles refresh token persistence. Tokens are
// opaque strings; deleting one is how logout revokes a session.
type RefreshTokenRepository interface {
	Create(ctx context.Context, token domain.RefreshToken) (domain.RefreshToken, error)
	GetByToken(ctx context.Context, token string) (domain.RefreshToken, error)
	Rotate(ctx context.Context, tokenID int64, token string, expiresAt time.Time) error
	Delete(ctx context.Context, token string) error
	DeleteForUser(ctx context.Context, userID int64) error
}

// CourseRepository exposes the course catalog.
type CourseRepository interface {
	Create(ctx context.Context, course domain.Course) (domain.Course, error)
	GetByID(ctx context.Context, courseID int64) (domain.Course, error)
	List(ctx context.Context, params ListParams) ([]domain.Course, int, error)
	ListByInstructor(ctx context.Context, instructorID int64, params ListParams) ([]domain.Course, int, error)
	Update(ctx context.Context, course domain.Course) (domain.Course, error)
	Delete(ctx context.Context, courseID int64) error
}

// LessonRepository manages per-course lessons.
type LessonRepository interface {
	Create(ctx context.Context, lesson domain.Lesson) (domain.Lesson, error)
	GetByID(ctx context.Context, courseID, lessonID int64) (domain.Lesson, error)
	ListByCourse(ctx context.Context, courseID int64, params ListParams) ([]domain.Lesson, int, error)
	Update(ctx context.Context, lesson domain.Lesson) (domain.Lesson, error)
	Delete(ctx context.Context, courseID, lessonID int64) error
}

// EnrollmentRepository links users to courses.
type EnrollmentRepository interface {
	Create(ctx context.Context, userID, courseID int64) (domain.Enrollment, error)
	Get(ctx context.Context, userID, courseID int64) (domain.Enrollment, error)
	Delete(ctx context.Context, userID, courseID int64) error
	ListCourses(ctx context.Context, userID int64, params ListParams) ([]domain.Course, int, error)
	ListUsers(ctx context.Context, courseID int64, params ListParams) ([]domain.User, int, error)
	CountForCourse(ctx context.Context, courseID int64) (int, error)
	CountForCourseSince(ctx context.Context, courseID int64, since time.Time) (int, error)
}

// PaymentRepository persists checkout attempts and settlements.
type PaymentRepository interface {
	Create(ctx context.Context, payment domain.Payment) (domain.Payment, error)
	GetByTxRef(ctx context.Context, txRef string) (domain.Payment, error)
	UpdateStatus(ctx context.Context, txRef, status, refID string) (domain.Payment, error)
	ListByUser(ctx context.Context, userID int64, params ListParams) ([]domain.Payment, int, error)
	ListByCourse(ctx context.Context, courseID int64, params ListParams) ([]domain.Payment, int, error)
	CourseRevenue(ctx context.Context, courseID int64) (float64, error)
}

// OTPStore keeps short-lived OTP codes and send throttling state.
type OTPStore interface {
	SaveCode(ctx context.Context, phone, code string, ttl time.Duration) error
	GetCode(ctx context.Context, phone string) (string, error)
	DeleteCode(ctx context.Context, phone string) error
	ReserveSend(ctx context.Context, phone string, interval time.Duration) (bool, error)
}
