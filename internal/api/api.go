package api

import (
	"github.com/gin-contrib/cors"
	"github.com/wb-go/wbf/ginext"

	"campushub/cmd/middleware"
	"campushub/internal/service"
)

type Routers struct {
	Service   *service.Service
	JWTSecret string
	KioskKey  string
}

func NewRouters(r *Routers) *ginext.Engine {
	app := ginext.New("release")

	app.Use(middleware.LoggingMiddleware())
	app.Use(cors.Default())

	v1 := app.Group("/v1")
	v1.Use(middleware.AuthMiddleware(r.JWTSecret))

	v1.POST("/organizations", r.Service.CreateOrganization)
	v1.POST("/accounts", r.Service.CreateAccount)
	v1.DELETE("/accounts/:id", r.Service.DeleteAccount)
	v1.POST("/accounts/:id/deactivate", r.Service.DeactivateAccount)

	v1.POST("/events", r.Service.CreateEvent)
	v1.GET("/events", r.Service.ListEvents)
	v1.GET("/events/:id", r.Service.GetEvent)
	v1.DELETE("/events/:id", r.Service.DeleteEvent)

	v1.POST("/events/:id/register", r.Service.Register)
	v1.POST("/events/:id/cancel", r.Service.CancelRegistration)
	v1.POST("/events/:id/checkin", r.Service.CheckIn)
	v1.POST("/events/:id/feedback", r.Service.SubmitFeedback)
	v1.GET("/events/:id/feedback", r.Service.EventFeedback)

	v1.GET("/reports/top-participants", r.Service.TopParticipants)
	v1.GET("/reports/event-types", r.Service.EventTypeBreakdown)
	v1.GET("/reports/attendance/:id", r.Service.AttendanceReport)
	v1.GET("/reports/registrations", r.Service.RegistrationsReport)

	// Trusted integrations only (on-site kiosks): API key instead of a
	// session token, relaxed check-in rules.
	kiosk := app.Group("/kiosk")
	kiosk.Use(middleware.KioskMiddleware(r.KioskKey))
	kiosk.POST("/checkin", r.Service.TrustedCheckIn)

	return app
}
