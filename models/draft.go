package models

import "time"

// Draft is a server-held, not-yet-finalized booking awaiting identity
// verification. It lives in the cache with a TTL and is consumed by exactly
// one promotion.
type Draft struct {
	DraftID   string           `json:"draftId"`
	Selection BookingSelection `json:"selection"`
	Contact   ContactDraft     `json:"contact"`
	Locale    string           `json:"locale,omitempty"`
	CreatedAt time.Time        `json:"createdAt"`
}

// Verification channels.
const (
	ChannelGoogle   = "google"
	ChannelTelegram = "telegram"
	ChannelSMS      = "sms"
	ChannelManual   = "manual"
)

// Verification request statuses.
const (
	VerificationPending  = "pending"
	VerificationVerified = "verified"
	VerificationFailed   = "failed"
)

// VerificationRequest represents one in-flight identity proof for a draft.
// At most one request is active per draft; starting a new channel invalidates
// any prior one.
type VerificationRequest struct {
	RequestID     string    `json:"requestId"`
	DraftID       string    `json:"draftId"`
	Channel       string    `json:"channel"`
	Status        string    `json:"status"`
	AppointmentID string    `json:"appointmentId,omitempty"`
	Error         string    `json:"error,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}
