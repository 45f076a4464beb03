package draft

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"salonflow/models"
)

const minClientAge = 16

var (
	emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	phoneRe = regexp.MustCompile(`^\+?[0-9][0-9\s\-()]{6,18}$`)
)

// ValidationError marks input the user can fix before resubmission. It never
// results in a network or store call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func validateSelection(sel models.BookingSelection) error {
	if len(sel.ServiceIDs) == 0 {
		return invalid("serviceIds", "at least one service must be selected")
	}
	for _, id := range sel.ServiceIDs {
		if strings.TrimSpace(id) == "" {
			return invalid("serviceIds", "service id must not be empty")
		}
	}
	if strings.TrimSpace(sel.MasterID) == "" {
		return invalid("masterId", "master must be selected")
	}
	if sel.Start.IsZero() || sel.End.IsZero() {
		return invalid("timeRange", "start and end are required")
	}
	if !sel.Start.Before(sel.End) {
		return invalid("timeRange", "start must be before end")
	}
	return nil
}

func validateContact(contact models.ContactDraft, now time.Time) error {
	if strings.TrimSpace(contact.Name) == "" {
		return invalid("name", "name is required")
	}
	if !phoneRe.MatchString(strings.TrimSpace(contact.Phone)) {
		return invalid("phone", "phone number is malformed")
	}
	if !emailRe.MatchString(strings.TrimSpace(contact.Email)) {
		return invalid("email", "email address is malformed")
	}

	birth, err := time.Parse("2006-01-02", contact.BirthDate)
	if err != nil {
		return invalid("birthDate", "birth date must use the 2006-01-02 layout")
	}
	if age(birth, now) < minClientAge {
		return invalid("birthDate", fmt.Sprintf("client must be at least %d years old", minClientAge))
	}

	switch contact.Referral {
	case models.ReferralGoogle, models.ReferralFacebook, models.ReferralInstagram, models.ReferralFriends:
	case models.ReferralOther:
		if strings.TrimSpace(contact.ReferralOther) == "" {
			return invalid("referralOther", "referral details are required for \"other\"")
		}
	default:
		return invalid("referral", "unknown referral source")
	}
	return nil
}

func age(birth, now time.Time) int {
	years := now.Year() - birth.Year()
	if now.YearDay() < birth.YearDay() {
		years--
	}
	return years
}
