package tasks

import (
	"encoding/json"
	"fmt"
	"time"

	"salonflow/config"
	"salonflow/models"

	"github.com/hibiken/asynq"
)

const TypeSendReminder = "reminder:send"

// Reminder lead time before the appointment starts.
const reminderLead = 24 * time.Hour

// ReminderPayload is the queued reminder for one appointment.
type ReminderPayload struct {
	AppointmentID string `json:"appointmentId"`
	Phone         string `json:"phone"`
	Message       string `json:"message"`
	FireDate      string `json:"fireDate"`
}

// NewReminderTask wraps the payload into an asynq task scheduled at fireAt.
func NewReminderTask(payload ReminderPayload, fireAt time.Time) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeSendReminder, b)
	opts := []asynq.Option{asynq.ProcessAt(fireAt)}

	return task, opts, nil
}

// ReminderScheduler enqueues appointment reminders on the Redis-backed queue.
type ReminderScheduler struct {
	client *asynq.Client
}

// NewReminderScheduler connects to the reminder queue.
func NewReminderScheduler() *ReminderScheduler {
	client := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisReminderQueueDB,
	})
	return &ReminderScheduler{client: client}
}

// ScheduleAppointmentReminder queues an SMS reminder a day before the
// appointment. Appointments starting sooner than the lead time get no
// reminder.
func (s *ReminderScheduler) ScheduleAppointmentReminder(appt *models.Appointment) error {
	fireAt := appt.Start.Add(-reminderLead)
	if time.Until(fireAt) <= 0 {
		return nil
	}

	payload := ReminderPayload{
		AppointmentID: appt.ID,
		Phone:         appt.ClientPhone,
		Message: fmt.Sprintf("Reminder: your %s appointment is tomorrow at %s.",
			appt.ServiceTitle, appt.Start.Format("15:04")),
		FireDate: fireAt.Format(time.RFC3339),
	}

	task, opts, err := NewReminderTask(payload, fireAt)
	if err != nil {
		return fmt.Errorf("failed to build reminder task: %w", err)
	}
	if _, err := s.client.Enqueue(task, opts...); err != nil {
		return fmt.Errorf("failed to enqueue reminder: %w", err)
	}
	return nil
}

// Close releases the queue connection.
func (s *ReminderScheduler) Close() error {
	return s.client.Close()
}
