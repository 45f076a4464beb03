package models

import "time"

// Payment methods.
const (
	PayOnsite = "onsite"
	PayStripe = "stripe"
	PayPayPal = "paypal"
)

// PaymentIntent statuses.
const (
	IntentPending   = "pending"
	IntentConfirmed = "confirmed" // onsite terminal state
	IntentSucceeded = "succeeded" // stripe / paypal terminal state
)

// PaymentIntent tracks one payment attempt for an appointment. It is
// discarded and recreated whenever the client switches methods.
type PaymentIntent struct {
	IntentID      string    `json:"intentId"`
	AppointmentID string    `json:"appointmentId"`
	Method        string    `json:"method"`
	Amount        float64   `json:"amount"`
	Currency      string    `json:"currency"`
	ClientSecret  string    `json:"clientSecret,omitempty"` // stripe only
	ApproveURL    string    `json:"approveUrl,omitempty"`   // paypal only
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
}
