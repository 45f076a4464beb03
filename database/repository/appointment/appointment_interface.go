package appointmentRepo

import (
	"time"

	"salonflow/models"
)

// AppointmentRepository defines methods for confirmed appointment data access.
type AppointmentRepository interface {
	// Create inserts a new appointment record.
	Create(appt *models.Appointment) error
	// GetByID retrieves an appointment by its unique ID.
	GetByID(id string) (*models.Appointment, error)
	// GetByDraftID retrieves the appointment promoted from the given draft, if any.
	GetByDraftID(draftID string) (*models.Appointment, error)
	// HasOverlap reports whether the master already has an appointment
	// intersecting the [start, end) range.
	HasOverlap(masterID string, start, end time.Time) (bool, error)
	// UpdatePayment records the payment method and status on an appointment.
	UpdatePayment(id, method, status string) error
}
