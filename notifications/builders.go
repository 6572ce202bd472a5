package notifications

import (
	"encoding/json"
	"fmt"
	"time"

	"gatedesk/models"
	"gatedesk/visits"
)

const eventDateLayout = "Mon, Jan 2"

// NewGuestScheduled builds the entry for a live new-guest event.
func NewGuestScheduled(ev models.NewGuestEvent, loc *time.Location) models.Notification {
	name := ev.Name
	if name == "" {
		name = "A visitor"
	}

	date := "an unknown date"
	if d, ok := visits.ParseDate(ev.Date, loc); ok {
		date = d.Format(eventDateLayout)
	}

	data, _ := json.Marshal(ev)

	return models.Notification{
		Type:    models.NotificationNewGuest,
		Title:   "New Guest Scheduled",
		Message: fmt.Sprintf("%s is scheduled to arrive on %s at %s", name, date, visits.NormalizeTime(ev.ArrivalTime.String(), loc)),
		Details: []models.NotificationDetail{
			{Label: "Resident ID", Value: orNA(ev.ResidentID)},
			{Label: "Transport", Value: orNA(ev.TransportNumber)},
			{Label: "Access Code", Value: orNA(ev.Code)},
		},
		Data: data,
	}
}

// CheckedIn builds the entry appended after a successful check-in from this console.
func CheckedIn(guest models.RawGuest, operator models.Identity, arrivedAt string) models.Notification {
	name := guest.Name
	if name == "" {
		name = "A visitor"
	}
	return models.Notification{
		Type:    models.NotificationCheckIn,
		Title:   "Guest Checked In",
		Message: fmt.Sprintf("%s was checked in by %s at %s", name, orNA(operator.Name), orNA(arrivedAt)),
		Details: []models.NotificationDetail{
			{Label: "Access Code", Value: orNA(guest.Code)},
			{Label: "Host", Value: orNA(guest.HostName)},
			{Label: "Guard Code", Value: orNA(operator.Code)},
		},
	}
}

func orNA(s string) string {
	if s == "" {
		return models.NotAvailable
	}
	return s
}
