package service_test

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/MaezenDigital/Enemamar-backend/internal/adapter/chapa"
	"github.com/MaezenDigital/Enemamar-backend/internal/domain"
	"github.com/MaezenDigital/Enemamar-backend/internal/repository"
)

var fakeIDs atomic.Int64

func nextID() int64 {
	return fakeIDs.Add(1)
}

type memoryUserRepo struct {
	users map[int64]domain.User
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: make(map[int64]domain.User)}
}

func (m *memoryUserRepo) Create(_ context.Context, user domain.User) (domain.User, error) {
	if user.ID == 0 {
		user.ID = nextID()
	}
	user.CreatedAt = time.Now()
	m.users[user.ID] = user
	return user, nil
}

func (m *memoryUserRepo) GetByID(_ context.Context, userID int64) (domain.User, error) {
	user, ok := m.users[userID]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return user, nil
}

func (m *memoryUserRepo) GetByEmail(_ context.Context, email string) (domain.User, error) {
	for _, user := range m.users {
		if user.Email == email && email != "" {
			return user, nil
		}
	}
	return domain.User{}, pgx.ErrNoRows
}

func (m *memoryUserRepo) GetByPhone(_ context.Context, phone string) (domain.User, error) {
	for _, user := range m.users {
		if user.Phone == phone {
			return user, nil
		}
	}
	return domain.User{}, pgx.ErrNoRows
}

func (m *memoryUserRepo) List(_ context.Context, _ repository.ListParams, role string, isActive *bool) ([]domain.User, int, error) {
	var out []domain.User
	for _, user := range m.users {
		if role != "" && user.Role != role {
			continue
		}
		if isActive != nil && user.IsActive != *isActive {
			continue
		}
		out = append(out, user)
	}
	return out, len(out), nil
}

func (m *memoryUserRepo) Update(_ context.Context, user domain.User) (domain.User, error) {
	if _, ok := m.users[user.ID]; !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	m.users[user.ID] = user
	return user, nil
}

func (m *memoryUserRepo) UpdateRole(_ context.Context, userID int64, role string) error {
	user, ok := m.users[userID]
	if !ok {
		return pgx.ErrNoRows
	}
	user.Role = role
	m.users[userID] = user
	return nil
}

func (m *memoryUserRepo) SetActive(_ context.Context, userID int64, active bool) error {
	user, ok := m.users[userID]
	if !ok {
		return pgx.ErrNoRows
	}
	user.IsActive = active
	m.users[userID] = user
	return nil
}

func (m *memoryUserRepo) ActivateByPhone(ctx context.Context, phone string) error {
	user, err := m.GetByPhone(ctx, phone)
	if err != nil {
		return err
	}
	user.IsActive = true
	m.users[user.ID] = user
	return nil
}

func (m *memoryUserRepo) UpdatePasswordByPhone(ctx context.Context, phone, passwordHash string) error {
	user, err := m.GetByPhone(ctx, phone)
	if err != nil {
		return err
	}
	user.PasswordHash = passwordHash
	m.users[user.ID] = user
	return nil
}

func (m *memoryUserRepo) Delete(_ context.Context, userID int64) error {
	delete(m.users, userID)
	return nil
}

type memoryRefreshRepo struct {
	tokens map[int64]domain.RefreshToken
}

func newMemoryRefreshRepo() *memoryRefreshRepo {
	return &memoryRefreshRepo{tokens: make(map[int64]domain.RefreshToken)}
}

func (m *memoryRefreshRepo) Create(_ context.Context, token domain.RefreshToken) (domain.RefreshToken, error) {
	if token.ID == 0 {
		token.ID = nextID()
	}
	m.tokens[token.ID] = token
	return token, nil
}

func (m *memoryRefreshRepo) GetByToken(_ context.Context, token string) (domain.RefreshToken, error) {
	for _, stored := range m.tokens {
		if stored.Token == token {
			return stored, nil
		}
	}
	return domain.RefreshToken{}, pgx.ErrNoRows
}

func (m *memoryRefreshRepo) Rotate(_ context.Context, tokenID int64, token string, expiresAt time.Time) error {
	stored, ok := m.tokens[tokenID]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.Token = token
	stored.ExpiresAt = expiresAt
	m.tokens[tokenID] = stored
	return nil
}

func (m *memoryRefreshRepo) Delete(ctx context.Context, token string) error {
	stored, err := m.GetByToken(ctx, token)
	if err != nil {
		return err
	}
	delete(m.tokens, stored.ID)
	return nil
}

func (m *memoryRefreshRepo) DeleteForUser(_ context.Context, userID int64) error {
	for id, stored := range m.tokens {
		if stored.UserID == userID {
			delete(m.tokens, id)
		}
	}
	return nil
}

type memoryOTPStore struct {
	codes    map[string]string
	reserved map[string]bool
}

func newMemoryOTPStore() *memoryOTPStore {
	return &memoryOTPStore{codes: make(map[string]string), reserved: make(map[string]bool)}
}

func (m *memoryOTPStore) SaveCode(_ context.Context, phone, code string, _ time.Duration) error {
	m.codes[phone] = code
	return nil
}

func (m *memoryOTPStore) GetCode(_ context.Context, phone string) (string, error) {
	return m.codes[phone], nil
}

func (m *memoryOTPStore) DeleteCode(_ context.Context, phone string) error {
	delete(m.codes, phone)
	return nil
}

func (m *memoryOTPStore) ReserveSend(_ context.Context, phone string, _ time.Duration) (bool, error) {
	if m.reserved[phone] {
		return false, nil
	}
	m.reserved[phone] = true
	return true, nil
}

// release lets tests request a second code without waiting.
func (m *memoryOTPStore) release(phone string) {
	delete(m.reserved, phone)
}

type recordingSender struct {
	sent []string
}

func (r *recordingSender) SendCode(_ context.Context, phone, code string) error {
	r.sent = append(r.sent, phone+":"+code)
	return nil
}

type memoryCourseRepo struct {
	courses map[int64]domain.Course
}

func newMemoryCourseRepo() *memoryCourseRepo {
	return &memoryCourseRepo{courses: make(map[int64]domain.Course)}
}

func (m *memoryCourseRepo) Create(_ context.Context, course domain.Course) (domain.Course, error) {
	if course.ID == 0 {
		course.ID = nextID()
	}
	course.CreatedAt = time.Now()
	m.courses[course.ID] = course
	return course, nil
}

func (m *memoryCourseRepo) GetByID(_ context.Context, courseID int64) (domain.Course, error) {
	course, ok := m.courses[courseID]
	if !ok {
		return domain.Course{}, pgx.ErrNoRows
	}
	return course, nil
}

func (m *memoryCourseRepo) List(_ context.Context, _ repository.ListParams) ([]domain.Course, int, error) {
	var out []domain.Course
	for _, course := range m.courses {
		out = append(out, course)
	}
	return out, len(out), nil
}

func (m *memoryCourseRepo) ListByInstructor(_ context.Context, instructorID int64, _ repository.ListParams) ([]domain.Course, int, error) {
	var out []domain.Course
	for _, course := range m.courses {
		if course.InstructorID == instructorID {
			out = append(out, course)
		}
	}
	return out, len(out), nil
}

func (m *memoryCourseRepo) Update(_ context.Context, course domain.Course) (domain.Course, error) {
	if _, ok := m.courses[course.ID]; !ok {
		return domain.Course{}, pgx.ErrNoRows
	}
	m.courses[course.ID] = course
	return course, nil
}

func (m *memoryCourseRepo) Delete(_ context.Context, courseID int64) error {
	delete(m.courses, courseID)
	return nil
}

type memoryLessonRepo struct {
	lessons map[int64]domain.Lesson
}

func newMemoryLessonRepo() *memoryLessonRepo {
	return &memoryLessonRepo{lessons: make(map[int64]domain.Lesson)}
}

func (m *memoryLessonRepo) Create(_ context.Context, lesson domain.Lesson) (domain.Lesson, error) {
	if lesson.ID == 0 {
		lesson.ID = nextID()
	}
	m.lessons[lesson.ID] = lesson
	return lesson, nil
}

func (m *memoryLessonRepo) GetByID(_ context.Context, courseID, lessonID int64) (domain.Lesson, error) {
	lesson, ok := m.lessons[lessonID]
	if !ok || lesson.CourseID != courseID {
		return domain.Lesson{}, pgx.ErrNoRows
	}
	return lesson, nil
}

func (m *memoryLessonRepo) ListByCourse(_ context.Context, courseID int64, _ repository.ListParams) ([]domain.Lesson, int, error) {
	var out []domain.Lesson
	for _, lesson := range m.lessons {
		if lesson.CourseID == courseID {
			out = append(out, lesson)
		}
	}
	return out, len(out), nil
}

func (m *memoryLessonRepo) Update(_ context.Context, lesson domain.Lesson) (domain.Lesson, error) {
	if _, ok := m.lessons[lesson.ID]; !ok {
		return domain.Lesson{}, pgx.ErrNoRows
	}
	m.lessons[lesson.ID] = lesson
	return lesson, nil
}

func (m *memoryLessonRepo) Delete(_ context.Context, courseID, lessonID int64) error {
	lesson, ok := m.lessons[lessonID]
	if !ok || lesson.CourseID != courseID {
		return pgx.ErrNoRows
	}
	delete(m.lessons, lessonID)
	return nil
}

type enrollmentKey struct {
	userID   int64
	courseID int64
}

type memoryEnrollmentRepo struct {
	enrollments map[enrollmentKey]domain.Enrollment
}

func newMemoryEnrollmentRepo() *memoryEnrollmentRepo {
	return &memoryEnrollmentRepo{enrollments: make(map[enrollmentKey]domain.Enrollment)}
}

func (m *memoryEnrollmentRepo) Create(_ context.Context, userID, courseID int64) (domain.Enrollment, error) {
	key := enrollmentKey{userID, courseID}
	if existing, ok := m.enrollments[key]; ok {
		return existing, nil
	}
	enrollment := domain.Enrollment{ID: nextID(), UserID: userID, CourseID: courseID, CreatedAt: time.Now()}
	m.enrollments[key] = enrollment
	return enrollment, nil
}

func (m *memoryEnrollmentRepo) Get(_ context.Context, userID, courseID int64) (domain.Enrollment, error) {
	enrollment, ok := m.enrollments[enrollmentKey{userID, courseID}]
	if !ok {
		return domain.Enrollment{}, pgx.ErrNoRows
	}
	return enrollment, nil
}

func (m *memoryEnrollmentRepo) Delete(_ context.Context, userID, courseID int64) error {
	delete(m.enrollments, enrollmentKey{userID, courseID})
	return nil
}

func (m *memoryEnrollmentRepo) ListCourses(_ context.Context, userID int64, _ repository.ListParams) ([]domain.Course, int, error) {
	return nil, 0, nil
}

func (m *memoryEnrollmentRepo) ListUsers(_ context.Context, courseID int64, _ repository.ListParams) ([]domain.User, int, error) {
	return nil, 0, nil
}

func (m *memoryEnrollmentRepo) CountForCourse(_ context.Context, courseID int64) (int, error) {
	count := 0
	for key := range m.enrollments {
		if key.courseID == courseID {
			count++
		}
	}
	return count, nil
}

func (m *memoryEnrollmentRepo) CountForCourseSince(_ context.Context, courseID int64, since time.Time) (int, error) {
	count := 0
	for key, enrollment := range m.enrollments {
		if key.courseID == courseID && enrollment.CreatedAt.After(since) {
			count++
		}
	}
	return count, nil
}

type memoryPaymentRepo struct {
	payments map[string]domain.Payment
}

func newMemoryPaymentRepo() *memoryPaymentRepo {
	return &memoryPaymentRepo{payments: make(map[string]domain.Payment)}
}

func (m *memoryPaymentRepo) Create(_ context.Context, payment domain.Payment) (domain.Payment, error) {
	if payment.ID == 0 {
		payment.ID = nextID()
	}
	payment.CreatedAt = time.Now()
	m.payments[payment.TxRef] = payment
	return payment, nil
}

func (m *memoryPaymentRepo) GetByTxRef(_ context.Context, txRef string) (domain.Payment, error) {
	payment, ok := m.payments[txRef]
	if !ok {
		return domain.Payment{}, pgx.ErrNoRows
	}
	return payment, nil
}

func (m *memoryPaymentRepo) UpdateStatus(_ context.Context, txRef, status, refID string) (domain.Payment, error) {
	payment, ok := m.payments[txRef]
	if !ok {
		return domain.Payment{}, pgx.ErrNoRows
	}
	payment.Status = status
	payment.RefID = refID
	payment.UpdatedAt = time.Now()
	m.payments[txRef] = payment
	return payment, nil
}

func (m *memoryPaymentRepo) ListByUser(_ context.Context, userID int64, _ repository.ListParams) ([]domain.Payment, int, error) {
	var out []domain.Payment
	for _, payment := range m.payments {
		if payment.UserID == userID {
			out = append(out, payment)
		}
	}
	return out, len(out), nil
}

func (m *memoryPaymentRepo) ListByCourse(_ context.Context, courseID int64, _ repository.ListParams) ([]domain.Payment, int, error) {
	var out []domain.Payment
	for _, payment := range m.payments {
		if payment.CourseID == courseID {
			out = append(out, payment)
		}
	}
	return out, len(out), nil
}

func (m *memoryPaymentRepo) CourseRevenue(_ context.Context, courseID int64) (float64, error) {
	var total float64
	for _, payment := range m.payments {
		if payment.CourseID == courseID && payment.Status == domain.PaymentSuccess {
			total += payment.Amount
		}
	}
	return total, nil
}

type fakeGateway struct {
	initCalls    []chapa.InitializeRequest
	verifyStatus string
	initErr      error
}

func (f *fakeGateway) Initialize(_ context.Context, req chapa.InitializeRequest) (*chapa.InitializeResponse, error) {
	if f.initErr != nil {
		return nil, f.initErr
	}
	f.initCalls = append(f.initCalls, req)
	return &chapa.InitializeResponse{CheckoutURL: "https://checkout.example/" + req.TxRef}, nil
}

func (f *fakeGateway) Verify(_ context.Context, txRef string) (*chapa.VerifyResponse, error) {
	status := f.verifyStatus
	if status == "" {
		status = "success"
	}
	return &chapa.VerifyResponse{Status: status, Reference: "ref-" + txRef}, nil
}
