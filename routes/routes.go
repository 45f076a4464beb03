package routes

import (
	"net/http"
	"time"

	"salonflow/handlers"
	"salonflow/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterDraftRoutes registers draft reservation endpoints.
func RegisterDraftRoutes(r *gin.Engine) {
	api := r.Group("/api/drafts")
	{
		api.POST("", handlers.CreateDraft)
		api.GET("/:draftID", handlers.GetDraft)

		api.POST("/:draftID/verification", handlers.StartVerification)
		api.GET("/:draftID/verification", handlers.VerificationStatus)
		api.DELETE("/:draftID/verification", handlers.CancelVerification)
	}
}

// RegisterAuthRoutes registers the OAuth callback and handoff confirmation.
func RegisterAuthRoutes(r *gin.Engine) {
	r.GET("/auth/google/callback", handlers.GoogleCallback)
	r.POST("/api/booking/confirm", handlers.ConfirmHandoff)
}

// RegisterAppointmentRoutes registers appointment and payment endpoints.
func RegisterAppointmentRoutes(r *gin.Engine) {
	api := r.Group("/api/appointments")
	{
		api.GET("/:appointmentID", handlers.GetAppointment)
		api.GET("/:appointmentID/calendar.ics", handlers.AppointmentCalendar)

		api.POST("/:appointmentID/payment/method", handlers.SelectPaymentMethod)
		api.GET("/:appointmentID/payment", handlers.PaymentStatus)
		api.POST("/:appointmentID/payment/onsite", handlers.ConfirmOnsitePayment)
		api.POST("/:appointmentID/payment/success", handlers.PaymentSucceeded)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, utils.GetHealthStatus())
	})
}

// RegisterRoutes wires all route groups.
func RegisterRoutes(r *gin.Engine) {
	// Setup global middleware (e.g., CORS) here.
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	RegisterDraftRoutes(r)
	RegisterAuthRoutes(r)
	RegisterAppointmentRoutes(r)
	RegisterHealthRoute(r)
}
