package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MaezenDigital/Enemamar-backend/internal/domain"
)

var (
	_ CourseRepository     = (*PostgresCourseRepo)(nil)
	_ LessonRepository     = (*PostgresLessonRepo)(nil)
	_ EnrollmentRepository = (*PostgresEnrollmentRepo)(nil)
)

const courseColumns = `id, instructor_id, title, description, price, discount, thumbnail_url, created_at, updated_at`

// PostgresCourseRepo implements CourseRepository.
type PostgresCourseRepo struct {
	db *pgxpool.Pool
}

func NewPostgresCourseRepo(pool *pgxpool.Pool) *PostgresCourseRepo {
	return &PostgresCourseRepo{db: pool}
}

func (r *PostgresCourseRepo) Create(ctx context.Context, course domain.Course) (domain.Course, error) {
	const query = `INSERT INTO courses (id, instructor_id, title, description, price, discount, thumbnail_url)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + courseColumns

	created, err := scanCourse(r.db.QueryRow(ctx, query,
		course.ID, course.InstructorID, course.Title, course.Description, course.Price, course.Discount, course.ThumbnailURL))
	if err != nil {
		return domain.Course{}, fmt.Errorf("create course: %w", err)
	}
	return created, nil
}

func (r *PostgresCourseRepo) GetByID(ctx context.Context, courseID int64) (domain.Course, error) {
	const query = `SELECT ` + courseColumns + ` FROM courses WHERE id = $1 LIMIT 1`
	course, err := scanCourse(r.db.QueryRow(ctx, query, courseID))
	if err != nil {
		return domain.Course{}, fmt.Errorf("get course: %w", err)
	}
	return course, nil
}

func (r *PostgresCourseRepo) List(ctx context.Context, params ListParams) ([]domain.Course, int, error) {
	return r.list(ctx, params, "TRUE", nil)
}

func (r *PostgresCourseRepo) ListByInstructor(ctx context.Context, instructorID int64, params ListParams) ([]domain.Course, int, error) {
	return r.list(ctx, params, "instructor_id = $1", []any{instructorID})
}

func (r *PostgresCourseRepo) list(ctx context.Context, params ListParams, where string, args []any) ([]domain.Course, int, error) {
	params = params.Normalize()

	if params.Search != "" {
		args = append(args, "%"+params.Search+"%")
		n := len(args)
		where += fmt.Sprintf(" AND (title ILIKE $%d OR description ILIKE $%d)", n, n)
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM courses WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}

	args = append(args, params.PageSize, params.Offset())
	query := fmt.Sprintf(`SELECT %s FROM courses WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d`,
		courseColumns, where, courseOrder(params.Filter), len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}
	defer rows.Close()

	var courses []domain.Course
	for rows.Next() {
		course, err := scanCourse(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan course: %w", err)
		}
		courses = append(courses, course)
	}
	return courses, total, rows.Err()
}

func courseOrder(filter string) string {
	switch filter {
	case "price_low":
		return "price ASC"
	case "price_high":
		return "price DESC"
	case "oldest":
		return "created_at ASC"
	default:
		return "created_at DESC"
	}
}

func (r *PostgresCourseRepo) Update(ctx context.Context, course domain.Course) (domain.Course, error) {
	const query = `UPDATE courses
SET title = $2, description = $3, price = $4, discount = $5, thumbnail_url = $6, updated_at = now()
WHERE id = $1
RETURNING ` + courseColumns

	updated, err := scanCourse(r.db.QueryRow(ctx, query,
		course.ID, course.Title, course.Description, course.Price, course.Discount, course.ThumbnailURL))
	if err != nil {
		return domain.Course{}, fmt.Errorf("update course: %w", err)
	}
	return updated, nil
}

func (r *PostgresCourseRepo) Delete(ctx context.Context, courseID int64) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM courses WHERE id = $1`, courseID); err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	return nil
}

func scanCourse(row rowScanner) (domain.Course, error) {
	var course domain.Course
	err := row.Scan(
		&course.ID,
		&course.InstructorID,
		&course.Title,
		&course.Description,
		&course.Price,
		&course.Discount,
		&course.ThumbnailURL,
		&course.CreatedAt,
		&course.UpdatedAt,
	)
	return course, err
}

const lessonColumns = `id, course_id, title, position, duration, video_url, created_at, updated_at`

// PostgresLessonRepo implements LessonRepository.
type PostgresLessonRepo struct {
	db *pgxpool.Pool
}

func NewPostgresLessonRepo(pool *pgxpool.Pool) *PostgresLessonRepo {
	return &PostgresLessonRepo{db: pool}
}

func (r *PostgresLessonRepo) Create(ctx context.Context, lesson domain.Lesson) (domain.Lesson, error) {
	const query = `INSERT INTO lessons (id, course_id, title, position, duration, video_url)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + lessonColumns

	created, err := scanLesson(r.db.QueryRow(ctx, query,
		lesson.ID, lesson.CourseID, lesson.Title, lesson.Position, lesson.Duration, lesson.VideoURL))
	if err != nil {
		return domain.Lesson{}, fmt.Errorf("create lesson: %w", err)
	}
	return created, nil
}

func (r *PostgresLessonRepo) GetByID(ctx context.Context, courseID, lessonID int64) (domain.Lesson, error) {
	const query = `SELECT ` + lessonColumns + ` FROM lessons WHERE course_id = $1 AND id = $2 LIMIT 1`
	lesson, err := scanLesson(r.db.QueryRow(ctx, query, courseID, lessonID))
	if err != nil {
		return domain.Lesson{}, fmt.Errorf("get lesson: %w", err)
	}
	return lesson, nil
}

func (r *PostgresLessonRepo) ListByCourse(ctx context.Context, courseID int64, params ListParams) ([]domain.Lesson, int, error) {
	params = params.Normalize()

	var total int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM lessons WHERE course_id = $1`, courseID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count lessons: %w", err)
	}

	query := `SELECT ` + lessonColumns + ` FROM lessons WHERE course_id = $1 ORDER BY position ASC, id ASC LIMIT $2 OFFSET $3`
	rows, err := r.db.Query(ctx, query, courseID, params.PageSize, params.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list lessons: %w", err)
	}
	defer rows.Close()

	var lessons []domain.Lesson
	for rows.Next() {
		lesson, err := scanLesson(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan lesson: %w", err)
		}
		lessons = append(lessons, lesson)
	}
	return lessons, total, rows.Err()
}

func (r *PostgresLessonRepo) Update(ctx context.Context, lesson domain.Lesson) (domain.Lesson, error) {
	const query = `UPDATE lessons
SET title = $3, position = $4, duration = $5, video_url = $6, updated_at = now()
WHERE course_id = $1 AND id = $2
RETURNING ` + lessonColumns

	updated, err := scanLesson(r.db.QueryRow(ctx, query,
		lesson.CourseID, lesson.ID, lesson.Title, lesson.Position, lesson.Duration, lesson.VideoURL))
	if err != nil {
		return domain.Lesson{}, fmt.Errorf("update lesson: %w", err)
	}
	return updated, nil
}

func (r *PostgresLessonRepo) Delete(ctx context.Context, courseID, lessonID int64) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM lessons WHERE course_id = $1 AND id = $2`, courseID, lessonID); err != nil {
		return fmt.Errorf("delete lesson: %w", err)
	}
	return nil
}

func scanLesson(row rowScanner) (domain.Lesson, error) {
	var lesson domain.Lesson
	err := row.Scan(
		&lesson.ID,
		&lesson.CourseID,
		&lesson.Title,
		&lesson.Position,
		&lesson.Duration,
		&lesson.VideoURL,
		&lesson.CreatedAt,
		&lesson.UpdatedAt,
	)
	return lesson, err
}

// PostgresEnrollmentRepo implements EnrollmentRepository.
type PostgresEnrollmentRepo struct {
	db *pgxpool.Pool
}

func NewPostgresEnrollmentRepo(pool *pgxpool.Pool) *PostgresEnrollmentRepo {
	return &PostgresEnrollmentRepo{db: pool}
}

func (r *PostgresEnrollmentRepo) Create(ctx context.Context, userID, courseID int64) (domain.Enrollment, error) {
	const query = `INSERT INTO enrollments (user_id, course_id)
VALUES ($1, $2)
ON CONFLICT (user_id, course_id) DO UPDATE SET user_id = EXCLUDED.user_id
RETURNING id, user_id, course_id, created_at`

	var enrollment domain.Enrollment
	err := r.db.QueryRow(ctx, query, userID, courseID).Scan(
		&enrollment.ID, &enrollment.UserID, &enrollment.CourseID, &enrollment.CreatedAt)
	if err != nil {
		return domain.Enrollment{}, fmt.Errorf("create enrollment: %w", err)
	}
	return enrollment, nil
}

func (r *PostgresEnrollmentRepo) Get(ctx context.Context, userID, courseID int64) (domain.Enrollment, error) {
	const query = `SELECT id, user_id, course_id, created_at FROM enrollments WHERE user_id = $1 AND course_id = $2 LIMIT 1`
	var enrollment domain.Enrollment
	err := r.db.QueryRow(ctx, query, userID, courseID).Scan(
		&enrollment.ID, &enrollment.UserID, &enrollment.CourseID, &enrollment.CreatedAt)
	if err != nil {
		return domain.Enrollment{}, fmt.Errorf("get enrollment: %w", err)
	}
	return enrollment, nil
}

func (r *PostgresEnrollmentRepo) Delete(ctx context.Context, userID, courseID int64) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM enrollments WHERE user_id = $1 AND course_id = $2`, userID, courseID); err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	return nil
}

func (r *PostgresEnrollmentRepo) ListCourses(ctx context.Context, userID int64, params ListParams) ([]domain.Course, int, error) {
	params = params.Normalize()

	where := `e.user_id = $1`
	args := []any{userID}
	if params.Search != "" {
		args = append(args, "%"+params.Search+"%")
		n := len(args)
		where += fmt.Sprintf(" AND (c.title ILIKE $%d OR c.description ILIKE $%d)", n, n)
	}

	var total int
	countQuery := `SELECT count(*) FROM enrollments e JOIN courses c ON c.id = e.course_id WHERE ` + where
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count enrolled courses: %w", err)
	}

	args = append(args, params.PageSize, params.Offset())
	query := fmt.Sprintf(`SELECT c.id, c.instructor_id, c.title, c.description, c.price, c.discount, c.thumbnail_url, c.created_at, c.updated_at
FROM enrollments e JOIN courses c ON c.id = e.course_id
WHERE %s ORDER BY e.created_at DESC LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list enrolled courses: %w", err)
	}
	defer rows.Close()

	var courses []domain.Course
	for rows.Next() {
		course, err := scanCourse(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan enrolled course: %w", err)
		}
		courses = append(courses, course)
	}
	return courses, total, rows.Err()
}

func (r *PostgresEnrollmentRepo) ListUsers(ctx context.Context, courseID int64, params ListParams) ([]domain.User, int, error) {
	params = params.Normalize()

	var total int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM enrollments WHERE course_id = $1`, courseID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count enrolled users: %w", err)
	}

	query := `SELECT u.id, u.username, u.first_name, u.last_name, u.email, u.phone_number, u.password_hash, u.role, u.avatar_url, u.is_active, u.created_at, u.updated_at
FROM enrollments e JOIN users u ON u.id = e.user_id
WHERE e.course_id = $1 ORDER BY e.created_at DESC LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, courseID, params.PageSize, params.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list enrolled users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan enrolled user: %w", err)
		}
		users = append(users, user)
	}
	return users, total, rows.Err()
}

func (r *PostgresEnrollmentRepo) CountForCourse(ctx context.Context, courseID int64) (int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM enrollments WHERE course_id = $1`, courseID).Scan(&total); err != nil {
		return 0, fmt.Errorf("count enrollments: %w", err)
	}
	return total, nil
}

func (r *PostgresEnrollmentRepo) CountForCourseSince(ctx context.Context, courseID int64, since time.Time) (int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM enrollments WHERE course_id = $1 AND created_at >= $2`, courseID, since).Scan(&total); err != nil {
		return 0, fmt.Errorf("count recent enrollments: %w", err)
	}
	return total, nil
}
