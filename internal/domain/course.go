package domain

import "time"

// Course is a published catalog entry owned by an instructor.
type Course struct {
	ID           int64
	InstructorID int64
	Title        string
	Description  string
	Price        float64
	Discount     float64
	ThumbnailURL string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// EffectivePrice applies the course discount, if any. Discount is a
// fraction of the price, not an absolute amount.
func (c Course) EffectivePrice() float64 {
	if c.Discount > 0 {
		return c.Price - c.Discount*c.Price
	}
	return c.Price
}

// Free reports whether enrollment requires no payment.
func (c Course) Free() bool {
	return c.Price <= 0
}

// Lesson belongs to a course. VideoURL points at the CDN asset; lesson
// content is only served to enrolled users, the course owner or admins.
type Lesson struct {
	ID        int64
	CourseID  int64
	Title     string
	Position  int
	Duration  int
	VideoURL  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Enrollment links a user to a course.
type Enrollment struct {
	ID        int64
	UserID    int64
	CourseID  int64
	CreatedAt time.Time
}
