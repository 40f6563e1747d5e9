package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/MaezenDigital/Enemamar-backend/internal/config"
	"github.com/MaezenDigital/Enemamar-backend/internal/http/handler"
	httpmiddleware "github.com/MaezenDigital/Enemamar-backend/internal/http/middleware"
	"github.com/MaezenDigital/Enemamar-backend/internal/middleware"
)

// RouterParams bundles the router dependencies.
type RouterParams struct {
	Config   config.Config
	Logger   *zap.Logger
	Auth     *httpmiddleware.Auth
	AuthH    *handler.AuthHandler
	UserH    *handler.UserHandler
	CourseH  *handler.CourseHandler
	PaymentH *handler.PaymentHandler
}

// NewRouter builds the gin engine and mounts all routes.
func NewRouter(p RouterParams) *gin.Engine {
	if p.Config.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(p.Config.ServiceName))
	r.Use(middleware.CORS(p.Config))
	r.Use(p.Auth.OptionalAuth)
	r.Use(httpmiddleware.RequestLogger(p.Logger))
	r.Use(middleware.NewRateLimiter(p.Config.RateLimitRPM).Handler())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	auth := r.Group("/auth")
	{
		auth.POST("/signup", p.AuthH.Signup)
		auth.POST("/login", p.AuthH.Login)
		auth.POST("/refresh", p.AuthH.Refresh)
		auth.POST("/logout", p.AuthH.Logout)
		auth.POST("/otp/send", p.AuthH.SendOTP)
		auth.POST("/otp/verify", p.AuthH.VerifyOTP)
		auth.POST("/forgot-password", p.AuthH.ForgotPassword)
		auth.POST("/verify-reset-otp", p.AuthH.VerifyResetOTP)
		auth.POST("/reset-password", p.AuthH.ResetPassword)
	}

	users := r.Group("/users")
	users.Use(p.Auth.RequireAuth)
	{
		users.GET("/me", p.UserH.Me)
		users.PATCH("/me", p.UserH.UpdateMe)
	}

	courses := r.Group("/courses")
	{
		courses.GET("", p.CourseH.List)
		courses.GET("/enrolled", p.Auth.RequireAuth, p.CourseH.Enrolled)
		courses.GET("/:id", p.CourseH.Get)

		manage := courses.Group("")
		manage.Use(p.Auth.RequireAdminOrInstructor())
		{
			manage.POST("", p.CourseH.Create)
			manage.PUT("/:id", p.CourseH.Update)
			manage.DELETE("/:id", p.CourseH.Delete)
			manage.POST("/:id/lessons", p.CourseH.AddLesson)
			manage.PUT("/:id/lessons/:lesson_id", p.CourseH.UpdateLesson)
			manage.DELETE("/:id/lessons/:lesson_id", p.CourseH.DeleteLesson)
			manage.GET("/:id/users", p.CourseH.EnrolledUsers)
		}

		enrolled := courses.Group("")
		enrolled.Use(p.Auth.RequireAuth)
		{
			enrolled.POST("/:id/enroll", p.CourseH.Enroll)
			enrolled.DELETE("/:id/enroll", p.CourseH.Unenroll)
			enrolled.GET("/:id/is_enrolled", p.CourseH.IsEnrolled)
			enrolled.GET("/:id/lessons", p.CourseH.ListLessons)
			enrolled.GET("/:id/lessons/:lesson_id", p.CourseH.GetLesson)
		}
	}

	analytics := r.Group("/analytics")
	analytics.Use(p.Auth.RequireAdminOrInstructor())
	{
		analytics.GET("/courses/:id", p.CourseH.Analytics)
		analytics.GET("/instructor", p.CourseH.InstructorAnalytics)
	}

	payments := r.Group("/payments")
	{
		payments.GET("/callback", p.PaymentH.Callback)
		payments.POST("/webhook", p.PaymentH.Webhook)
		payments.POST("/:course_id/initiate", p.Auth.RequireAuth, p.PaymentH.Initiate)
	}

	admin := r.Group("/admin")
	admin.Use(p.Auth.RequireAdmin())
	{
		admin.GET("/users", p.UserH.List)
		admin.POST("/users/:id/activate", p.UserH.Activate)
		admin.POST("/users/:id/deactivate", p.UserH.Deactivate)
		admin.PATCH("/users/:id/role", p.UserH.UpdateRole)
		admin.DELETE("/users/:id", p.UserH.Delete)
		admin.GET("/payments/user/:id", p.PaymentH.ListByUser)
		admin.GET("/payments/course/:id", p.PaymentH.ListByCourse)
	}

	return r
}
