package service

import (
	"time"

	"github.com/MaezenDigital/Enemamar-backend/internal/domain"
)

// UserViewModel is the wire shape of a user. The password hash never
// crosses this boundary.
type UserViewModel struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username,omitempty"`
	FirstName string    `json:"first_name,omitempty"`
	LastName  string    `json:"last_name,omitempty"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone_number"`
	Role      string    `json:"role"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func NewUserViewModel(user domain.User) UserViewModel {
	return UserViewModel{
		ID:        user.ID,
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
		Phone:     user.Phone,
		Role:      user.Role,
		AvatarURL: user.AvatarURL,
		IsActive:  user.IsActive,
		CreatedAt: user.CreatedAt,
	}
}

func NewUserViewModels(users []domain.User) []UserViewModel {
	views := make([]UserViewModel, 0, len(users))
	for _, user := range users {
		views = append(views, NewUserViewModel(user))
	}
	return views
}

// CourseViewModel is the wire shape of a course. CurrentPrice carries
// the discounted price the buyer actually pays.
type CourseViewModel struct {
	ID           int64     `json:"id"`
	InstructorID int64     `json:"instructor_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	Price        float64   `json:"price"`
	Discount     float64   `json:"discount,omitempty"`
	CurrentPrice float64   `json:"current_price"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func NewCourseViewModel(course domain.Course) CourseViewModel {
	return CourseViewModel{
		ID:           course.ID,
		InstructorID: course.InstructorID,
		Title:        course.Title,
		Description:  course.Description,
		Price:        course.Price,
		Discount:     course.Discount,
		CurrentPrice: course.EffectivePrice(),
		ThumbnailURL: course.ThumbnailURL,
		CreatedAt:    course.CreatedAt,
		UpdatedAt:    course.UpdatedAt,
	}
}

func NewCourseViewModels(courses []domain.Course) []CourseViewModel {
	views := make([]CourseViewModel, 0, len(courses))
	for _, course := range courses {
		views = append(views, NewCourseViewModel(course))
	}
	return views
}

// LessonViewModel is the wire shape of a lesson.
type LessonViewModel struct {
	ID        int64     `json:"id"`
	CourseID  int64     `json:"course_id"`
	Title     string    `json:"title"`
	Position  int       `json:"position"`
	Duration  int       `json:"duration,omitempty"`
	VideoURL  string    `json:"video_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func NewLessonViewModel(lesson domain.Lesson) LessonViewModel {
	return LessonViewModel{
		ID:        lesson.ID,
		CourseID:  lesson.CourseID,
		Title:     lesson.Title,
		Position:  lesson.Position,
		Duration:  lesson.Duration,
		VideoURL:  lesson.VideoURL,
		CreatedAt: lesson.CreatedAt,
	}
}

func NewLessonViewModels(lessons []domain.Lesson) []LessonViewModel {
	views := make([]LessonViewModel, 0, len(lessons))
	for _, lesson := range lessons {
		views = append(views, NewLessonViewModel(lesson))
	}
	return views
}

// EnrollmentViewModel is the wire shape of an enrollment.
type EnrollmentViewModel struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	CourseID  int64     `json:"course_id"`
	CreatedAt time.Time `json:"created_at"`
}

func NewEnrollmentViewModel(enrollment domain.Enrollment) EnrollmentViewModel {
	return EnrollmentViewModel{
		ID:        enrollment.ID,
		UserID:    enrollment.UserID,
		CourseID:  enrollment.CourseID,
		CreatedAt: enrollment.CreatedAt,
	}
}

// PaymentViewModel is the wire shape of a payment record.
type PaymentViewModel struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	CourseID  int64     `json:"course_id"`
	Amount    float64   `json:"amount"`
	TxRef     string    `json:"tx_ref"`
	RefID     string    `json:"ref_id,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewPaymentViewModel(payment domain.Payment) PaymentViewModel {
	return PaymentViewModel{
		ID:        payment.ID,
		UserID:    payment.UserID,
		CourseID:  payment.CourseID,
		Amount:    payment.Amount,
		TxRef:     payment.TxRef,
		RefID:     payment.RefID,
		Status:    payment.Status,
		CreatedAt: payment.CreatedAt,
		UpdatedAt: payment.UpdatedAt,
	}
}

func NewPaymentViewModels(payments []domain.Payment) []PaymentViewModel {
	views := make([]PaymentViewModel, 0, len(payments))
	for _, payment := range payments {
		views = append(views, NewPaymentViewModel(payment))
	}
	return views
}
