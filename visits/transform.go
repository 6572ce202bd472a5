package visits

import (
	"time"

	"gatedesk/models"
)

const (
	unknownVisitor = "Unknown"
	defaultPurpose = "Visit"
)

// ToVisit maps one upstream guest record to its display view. It is pure and total:
// missing text fields become "N/A" ("Unknown" for the visitor name) and an unparseable
// date leaves ScheduledAt zero.
func ToVisit(g models.RawGuest, loc *time.Location) models.Visit {
	status := models.StatusUpcoming
	if g.Arrived() {
		status = models.StatusArrived
	}

	scheduledAt, _ := ParseDate(g.ScheduledDate, loc)

	return models.Visit{
		ID:            g.Code,
		VisitorName:   orDefault(g.Name, unknownVisitor),
		HostName:      orDefault(g.HostName, models.NotAvailable),
		HostAddress:   orDefault(g.HostAddress, models.NotAvailable),
		Purpose:       orDefault(g.IDCard, defaultPurpose),
		ScheduledAt:   scheduledAt,
		ScheduledTime: NormalizeTime(g.ArrivalTimeCode.String(), loc),
		Status:        status,
		ContactInfo:   orDefault(g.TransportNumber, models.NotAvailable),
		ArrivedAt:     g.ArrivedAt,
		ReceivedBy:    g.ReceivedBy,
		ImageID:       g.IDImageRef.String(),
		Image:         g.IDImageBase64,
	}
}

// ToVisits maps every record with ToVisit.
func ToVisits(guests []models.RawGuest, loc *time.Location) []models.Visit {
	out := make([]models.Visit, 0, len(guests))
	for _, g := range guests {
		out = append(out, ToVisit(g, loc))
	}
	return out
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
