package models

// Referral sources offered on the client-info step.
const (
	ReferralGoogle    = "google"
	ReferralFacebook  = "facebook"
	ReferralInstagram = "instagram"
	ReferralFriends   = "friends"
	ReferralOther     = "other"
)

// ContactDraft carries the client-info step of the wizard. BirthDate uses
// the "2006-01-02" layout; ReferralOther is required when Referral is "other".
type ContactDraft struct {
	Name          string `json:"name" binding:"required"`
	Phone         string `json:"phone" binding:"required"`
	Email         string `json:"email" binding:"required"`
	BirthDate     string `json:"birthDate" binding:"required"`
	Referral      string `json:"referral" binding:"required"`
	ReferralOther string `json:"referralOther,omitempty"`
	Notes         string `json:"notes,omitempty"`
}
