package handlers

import (
	"errors"
	"net/http"

	appointmentRepo "salonflow/database/repository/appointment"
	"salonflow/utils"

	"github.com/gin-gonic/gin"
)

// GetAppointment returns a confirmed appointment.
func GetAppointment(c *gin.Context) {
	appt, err := Appointments.GetByID(c.Param("appointmentID"))
	if err != nil {
		if errors.Is(err, appointmentRepo.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "appointment not found"})
			return
		}
		utils.JSONError(c, http.StatusInternalServerError, "failed to fetch appointment", err.Error())
		return
	}
	c.JSON(http.StatusOK, appt)
}
