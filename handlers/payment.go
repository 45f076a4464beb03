package handlers

import (
	"errors"
	"net/http"

	appointmentRepo "salonflow/database/repository/appointment"
	"salonflow/services/payment"
	"salonflow/utils"

	"github.com/gin-gonic/gin"
)

var (
	PaymentFlows *payment.Registry
	// FlowFactory builds a wired payment flow for an appointment; set during
	// startup.
	FlowFactory  func(appointmentID string) *payment.Flow
	Appointments appointmentRepo.AppointmentRepository
)

func flowFor(c *gin.Context) (*payment.Flow, bool) {
	id := c.Param("appointmentID")
	if _, err := Appointments.GetByID(id); err != nil {
		if errors.Is(err, appointmentRepo.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "appointment not found"})
			return nil, false
		}
		utils.JSONError(c, http.StatusInternalServerError, "failed to fetch appointment", err.Error())
		return nil, false
	}
	return PaymentFlows.GetOrCreate(id, func() *payment.Flow { return FlowFactory(id) }), true
}

// SelectPaymentMethod chooses or switches the payment method for an
// appointment.
func SelectPaymentMethod(c *gin.Context) {
	var input struct {
		Method string `json:"method" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	flow, ok := flowFor(c)
	if !ok {
		return
	}

	intent, err := flow.SelectMethod(c.Request.Context(), input.Method)
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrUnknownMethod):
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown payment method"})
		case errors.Is(err, payment.ErrPaymentSettled):
			c.JSON(http.StatusConflict, gin.H{"error": "payment already settled"})
		default:
			utils.JSONError(c, http.StatusBadGateway, "failed to prepare payment", err.Error())
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"state": flow.State(), "intent": intent})
}

// ConfirmOnsitePayment settles the flow with payment due at the salon.
func ConfirmOnsitePayment(c *gin.Context) {
	flow, ok := flowFor(c)
	if !ok {
		return
	}

	if err := flow.ConfirmOnsite(c.Request.Context()); err != nil {
		if errors.Is(err, payment.ErrInvalidTransition) || errors.Is(err, payment.ErrPaymentSettled) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		utils.JSONError(c, http.StatusInternalServerError, "failed to confirm onsite payment", err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"state": flow.State()})
}

// PaymentSucceeded settles a stripe or paypal flow after the provider
// reported completion. Duplicate signals are absorbed.
func PaymentSucceeded(c *gin.Context) {
	flow, ok := flowFor(c)
	if !ok {
		return
	}

	if err := flow.HandleSuccess(c.Request.Context()); err != nil {
		if errors.Is(err, payment.ErrInvalidTransition) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		utils.JSONError(c, http.StatusInternalServerError, "failed to settle payment", err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"state": flow.State()})
}

// PaymentStatus reports the flow state and current intent.
func PaymentStatus(c *gin.Context) {
	flow, ok := flowFor(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": flow.State(), "intent": flow.Intent()})
}

// AppointmentCalendar exports the appointment as an iCalendar file once its
// payment settled.
func AppointmentCalendar(c *gin.Context) {
	flow, ok := flowFor(c)
	if !ok {
		return
	}

	ics, err := flow.CalendarICS(c.Request.Context())
	if err != nil {
		if errors.Is(err, payment.ErrInvalidTransition) {
			c.JSON(http.StatusConflict, gin.H{"error": "calendar export is available after payment"})
			return
		}
		utils.JSONError(c, http.StatusInternalServerError, "failed to export calendar", err.Error())
		return
	}

	c.Header("Content-Disposition", `attachment; filename="appointment.ics"`)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(ics))
}
