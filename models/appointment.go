package models

import "time"

// Appointment payment statuses.
const (
	PaymentStatusUnpaid = "unpaid"
	PaymentStatusOnsite = "pay_onsite"
	PaymentStatusPaid   = "paid"
)

// Appointment is a confirmed booking derived from exactly one draft.
type Appointment struct {
	ID            string    `bson:"_id" json:"id"`
	DraftID       string    `bson:"draftId" json:"draftId"`
	ServiceIDs    []string  `bson:"serviceIds" json:"serviceIds"`
	ServiceTitle  string    `bson:"serviceTitle" json:"serviceTitle"`
	MasterID      string    `bson:"masterId" json:"masterId"`
	MasterName    string    `bson:"masterName,omitempty" json:"masterName,omitempty"`
	ClientName    string    `bson:"clientName" json:"clientName"`
	ClientPhone   string    `bson:"clientPhone" json:"clientPhone"`
	ClientEmail   string    `bson:"clientEmail" json:"clientEmail"`
	Start         time.Time `bson:"start" json:"startAt"`
	End           time.Time `bson:"end" json:"endAt"`
	Date          string    `bson:"date" json:"date"`
	TotalPrice    float64   `bson:"totalPrice" json:"totalPrice"`
	PaymentStatus string    `bson:"paymentStatus" json:"paymentStatus"`
	PaymentMethod string    `bson:"paymentMethod,omitempty" json:"paymentMethod,omitempty"`
	CreatedAt     time.Time `bson:"createdAt" json:"createdAt"`
}

// Duration reports the appointment length in minutes.
func (a *Appointment) Duration() int {
	return int(a.End.Sub(a.Start).Minutes())
}
