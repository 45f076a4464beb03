package payment

import (
	"fmt"
	"strings"

	"salonflow/models"
)

const icsTimeLayout = "20060102T150405Z"

// BuildICS renders a single-event iCalendar file for a paid appointment so
// the client can add it to their calendar.
func BuildICS(appt *models.Appointment) string {
	var b strings.Builder
	b.WriteString("BEGIN:VCALENDAR\r\n")
	b.WriteString("VERSION:2.0\r\n")
	b.WriteString("PRODID:-//salonflow//booking//EN\r\n")
	b.WriteString("BEGIN:VEVENT\r\n")
	fmt.Fprintf(&b, "UID:%s@salonflow\r\n", appt.ID)
	fmt.Fprintf(&b, "DTSTAMP:%s\r\n", appt.CreatedAt.UTC().Format(icsTimeLayout))
	fmt.Fprintf(&b, "DTSTART:%s\r\n", appt.Start.UTC().Format(icsTimeLayout))
	fmt.Fprintf(&b, "DTEND:%s\r\n", appt.End.UTC().Format(icsTimeLayout))
	fmt.Fprintf(&b, "SUMMARY:%s\r\n", icsEscape(summaryFor(appt)))
	if appt.MasterName != "" {
		fmt.Fprintf(&b, "DESCRIPTION:%s\r\n", icsEscape("Master: "+appt.MasterName))
	}
	b.WriteString("END:VEVENT\r\n")
	b.WriteString("END:VCALENDAR\r\n")
	return b.String()
}

func summaryFor(appt *models.Appointment) string {
	if appt.ServiceTitle != "" {
		return appt.ServiceTitle
	}
	return "Salon appointment"
}

// icsEscape escapes text per RFC 5545.
func icsEscape(s string) string {
	r := strings.NewReplacer("\\", "\\\\", ";", "\\;", ",", "\\,", "\n", "\\n")
	return r.Replace(s)
}
