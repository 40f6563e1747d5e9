package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MaezenDigital/Enemamar-backend/internal/http/middleware"
	"github.com/MaezenDigital/Enemamar-backend/internal/service"
)

// CourseHandler exposes catalog, enrollment, lesson and analytics
// endpoints.
type CourseHandler struct {
	Courses *service.CourseService
	Lessons *service.LessonService
}

// NewCourseHandler wires dependencies.
func NewCourseHandler(courses *service.CourseService, lessons *service.LessonService) *CourseHandler {
	return &CourseHandler{Courses: courses, Lessons: lessons}
}

type courseRequest struct {
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	Price        float64 `json:"price"`
	Discount     float64 `json:"discount"`
	ThumbnailURL string  `json:"thumbnail_url"`
	InstructorID int64   `json:"instructor_id"`
}

func (h *CourseHandler) List(c *gin.Context) {
	params := listParams(c)
	courses, total, err := h.Courses.List(c.Request.Context(), params)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, service.NewCourseViewModels(courses), total, params)
}

func (h *CourseHandler) Get(c *gin.Context) {
	courseID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var viewerID int64
	if identity, ok := middleware.GetIdentity(c); ok {
		viewerID = identity.UserID
	}
	detail, err := h.Courses.Get(c.Request.Context(), courseID, viewerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": detail})
}

func (h *CourseHandler) Create(c *gin.Context) {
	identity, _ := middleware.GetIdentity(c)
	var req courseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidPayload(c)
		return
	}
	course, err := h.Courses.Create(c.Request.Context(), identity.UserID, identity.Role, req.InstructorID, service.CourseInput{
		Title:        req.Title,
		Description:  req.Description,
		Price:        req.Price,
		Discount:     req.Discount,
		ThumbnailURL: req.ThumbnailURL,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"detail": "Course created.", "data": service.NewCourseViewModel(course)})
}

func (h *CourseHandler) Update(c *gin.Context) {
	identity, _ := middleware.GetIdentity(c)
	courseID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req courseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidPayload(c)
		return
	}
	course, err := h.Courses.Update(c.Request.Context(), identity.UserID, identity.Role, courseID, service.CourseInput{
		Title:        req.Title,
		Description:  req.Description,
		Price:        req.Price,
		Discount:     req.Discount,
		ThumbnailURL: req.ThumbnailURL,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": "Course updated.", "data": service.NewCourseViewModel(course)})
}

func (h *CourseHandler) Delete(c *gin.Context) {
	identity, _ := middleware.GetIdentity(c)
	courseID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.Courses.Delete(c.Request.Context(), identity.UserID, identity.Role, courseID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": "Course deleted."})
}

func (h *CourseHandler) Enroll(c *gin.Context) {
	identity, _ := middleware.GetIdentity(c)
	courseID, ok := pathID(c, "id")
	if !ok {
		return
	}
	enrollment, err := h.Courses.Enroll(c.Request.Context(), identity.UserID, courseID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"detail": "Enrolled.", "data": service.NewEnrollmentViewModel(enrollment)})
}

func (h *CourseHandler) Unenroll(c *gin.Context) {
	identity, _ := middleware.GetIdentity(c)
	courseID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.Courses.Unenroll(c.Request.Context(), identity.UserID, courseID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": "Unenrolled."})
}

func (h *CourseHandler) IsEnrolled(c *gin.Context) {
	identity, _ := middleware.GetIdentity(c)
	courseID, ok := pathID(c, "id")
	if !ok {
		return
	}
	enrolled, err := h.Courses.IsEnrolled(c.Request.Context(), identity.UserID, courseID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"is_enrolled": enrolled}})
}

func (h *CourseHandler) Enrolled(c *gin.Context) {
	identity, _ := middleware.GetIdentity(c)
	params := listParams(c)
	courses, total, err := h.Courses.EnrolledCourses(c.Request.Context(), identity.UserID, params)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, service.NewCourseViewModels(courses), total, params)
}

func (h *CourseHandler) EnrolledUsers(c *gin.Context) {
	identity, _ := middleware.GetIdentity(c)
	courseID, ok := pathID(c, "id")
	if !ok {
		return
	}
	params := listParams(c)
	users, total, err := h.Courses.EnrolledUsers(c.Request.Context(), identity.UserID, identity.Role, courseID, params)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, service.NewUserViewModels(users), total, params)
}

type lessonRequest struct {
	Title    string `json:"title"`
	Position int    `json:"position"`
	Duration int    `json:"duration"`
	VideoURL string `json:"video_url"`
}

func (h *CourseHandler) ListLessons(c *gin.Context) {
	identity, _ := middleware.GetIdentity(c)
	courseID, ok := pathID(c, "id")
	if !ok {
		return
	}
	params := listParams(c)
	lessons, total, err := h.Lessons.List(c.Request.Context(), identity.UserID, identity.Role, courseID, params)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, service.NewLessonViewModels(lessons), total, params)
}

func (h *CourseHandler) GetLesson(c *gin.Context) {
	identity, _ := middleware.GetIdentity(c)
	courseID, ok := pathID(c, "id")
	if !ok {
		return
	}
	lessonID, ok := pathID(c, "lesson_id")
	if !ok {
		return
	}
	lesson, err := h.Lessons.Get(c.Request.Context(), identity.UserID, identity.Role, courseID, lessonID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": service.NewLessonViewModel(lesson)})
}

func (h *CourseHandler) AddLesson(c *gin.Context) {
	identity, _ := middleware.GetIdentity(c)
	courseID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req lessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidPayload(c)
		return
	}
	lesson, err := h.Lessons.Add(c.Request.Context(), identity.UserID, identity.Role, courseID, service.LessonInput{
		Title:    req.Title,
		Position: req.Position,
		Duration: req.Duration,
		VideoURL: req.VideoURL,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"detail": "Lesson created.", "data": service.NewLessonViewModel(lesson)})
}

func (h *CourseHandler) UpdateLesson(c *gin.Context) {
	identity, _ := middleware.GetIdentity(c)
	courseID, ok := pathID(c, "id")
	if !ok {
		return
	}
	lessonID, ok := pathID(c, "lesson_id")
	if !ok {
		return
	}
	var req lessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidPayload(c)
		return
	}
	lesson, err := h.Lessons.Update(c.Request.Context(), identity.UserID, identity.Role, courseID, lessonID, service.LessonInput{
		Title:    req.Title,
		Position: req.Position,
		Duration: req.Duration,
		VideoURL: req.VideoURL,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": "Lesson updated.", "data": service.NewLessonViewModel(lesson)})
}

func (h *CourseHandler) DeleteLesson(c *gin.Context) {
	identity, _ := middleware.GetIdentity(c)
	courseID, ok := pathID(c, "id")
	if !ok {
		return
	}
	lessonID, ok := pathID(c, "lesson_id")
	if !ok {
		return
	}
	if err := h.Lessons.Delete(c.Request.Context(), identity.UserID, identity.Role, courseID, lessonID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": "Lesson deleted."})
}

func (h *CourseHandler) Analytics(c *gin.Context) {
	identity, _ := middleware.GetIdentity(c)
	courseID, ok := pathID(c, "id")
	if !ok {
		return
	}
	stats, err := h.Courses.Analytics(c.Request.Context(), identity.UserID, identity.Role, courseID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": stats})
}

func (h *CourseHandler) InstructorAnalytics(c *gin.Context) {
	identity, _ := middleware.GetIdentity(c)
	stats, err := h.Courses.InstructorAnalytics(c.Request.Context(), identity.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": stats})
}
