// models.go
// Defines the core data structures shared by the dashboard agent: upstream guest and guard records,
// derived visit views, overlay entries, notifications and session identity.

package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// NotAvailable is the display placeholder for missing textual fields.
const NotAvailable = "N/A"

// FlexString accepts a JSON string, number, boolean or null and keeps its textual form.
// The upstream API is not consistent about how it encodes codes and times.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexString(n.String())
		return nil
	}
	var b bool
	if err := json.Unmarshal(data, &b); err != nil {
		return err
	}
	*f = FlexString(strconv.FormatBool(b))
	return nil
}

// String returns the raw text.
func (f FlexString) String() string {
	return string(f)
}

// RawGuest is a guest record exactly as the upstream visitor API returns it.
// Code is the natural key; duplicates are not rejected.
type RawGuest struct {
	Code            string     `json:"U_Code"`
	Name            string     `json:"U_Name"`
	IDCard          string     `json:"U_ID"`
	ScheduledDate   string     `json:"U_Date"`
	TransportNumber string     `json:"U_TNum"`
	IsArrived       string     `json:"U_isArrived"`
	ArrivalTimeCode FlexString `json:"U_arrival_time"`
	Host            string     `json:"U_Host"`
	HostAddress     string     `json:"U_Host_Address"`
	HostName        string     `json:"U_Host_Name"`
	ArrivedAt       string     `json:"U_arrivedAt"`
	ReceivedBy      string     `json:"U_receivedBy"`
	IDImageRef      FlexString `json:"U_ID_Picture,omitempty"`
	IDImageBase64   string     `json:"base64Image,omitempty"`
}

// Arrived reports whether the upstream flags the guest as arrived.
func (g RawGuest) Arrived() bool {
	return g.IsArrived == "Y"
}

// VisitStatus is the display status of a visit.
type VisitStatus string

const (
	StatusUpcoming  VisitStatus = "Upcoming"
	StatusArrived   VisitStatus = "Arrived"
	StatusCompleted VisitStatus = "completed"
	StatusCancelled VisitStatus = "cancelled"
)

// Visit is the normalized view of one guest record. It is recomputed on every fetch and never mutated.
type Visit struct {
	ID            string      `json:"id"`
	VisitorName   string      `json:"visitorName"`
	HostName      string      `json:"hostName"`
	HostAddress   string      `json:"hostAddress"`
	Purpose       string      `json:"purpose"`
	ScheduledAt   time.Time   `json:"scheduledAt,omitzero"`
	ScheduledTime string      `json:"scheduledTime"`
	Status        VisitStatus `json:"status"`
	ContactInfo   string      `json:"contactInfo"`
	ArrivedAt     string      `json:"arrivedAt,omitempty"`
	ReceivedBy    string      `json:"receivedBy,omitempty"`
	GuardName     string      `json:"guardName,omitempty"`
	ImageID       string      `json:"imageId,omitempty"`
	Image         string      `json:"image,omitempty"`
}

// Guard is a member of the guard roster.
type Guard struct {
	Code     string     `json:"code"`
	Name     string     `json:"name"`
	Email    string     `json:"email"`
	IDCard   string     `json:"idCard"`
	Address  string     `json:"address"`
	IsActive FlexString `json:"isActive"`
}

// Active interprets the roster's activity flag.
func (g Guard) Active() bool {
	switch strings.ToLower(strings.TrimSpace(g.IsActive.String())) {
	case "y", "yes", "true", "1", "active":
		return true
	}
	return false
}

// DutyStatus is computed at runtime, never read from the upstream.
type DutyStatus string

const (
	DutyOn  DutyStatus = "on-duty"
	DutyOff DutyStatus = "off-duty"
)

// RosterGuard is a guard with its runtime duty status.
type RosterGuard struct {
	Guard
	Status DutyStatus `json:"status"`
}

// CheckInReceipt is what the upstream returns for a successful check-in.
type CheckInReceipt struct {
	ArrivedAt string `json:"arrivedAt"`
}

// CheckInOverlayEntry records who checked a guest in, and when, from this console.
type CheckInOverlayEntry struct {
	GuardCode  string    `json:"guardCode"`
	GuardName  string    `json:"guardName"`
	ArrivedAt  string    `json:"arrivedAt"`
	CapturedAt time.Time `json:"capturedAt,omitzero"`
	Confirmed  bool      `json:"confirmed,omitempty"`
}

// ArrivalDisplay holds the arrival fields shown for an arrived visit.
type ArrivalDisplay struct {
	GuardName string `json:"guardName"`
	ArrivedAt string `json:"arrivedAt"`
}

// ChartSeries is the trailing seven day arrival histogram. Labels and Counts always have length 7.
type ChartSeries struct {
	Labels []string `json:"labels"`
	Counts []int    `json:"counts"`
}

// NotificationType categorizes notification entries.
type NotificationType string

const (
	NotificationNewGuest NotificationType = "new-guest"
	NotificationCheckIn  NotificationType = "check-in"
	NotificationCheckOut NotificationType = "check-out"
	NotificationOther    NotificationType = "other"
)

// NotificationDetail is one labelled line of a notification.
type NotificationDetail struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Notification is an entry of the notification log.
type Notification struct {
	ID        string               `json:"id"`
	Type      NotificationType     `json:"type"`
	Title     string               `json:"title"`
	Message   string               `json:"message"`
	Details   []NotificationDetail `json:"details"`
	Data      json.RawMessage      `json:"data,omitempty"`
	Timestamp time.Time            `json:"timestamp"`
	Read      bool                 `json:"read"`
}

// Identity is the operator currently signed in at this console.
type Identity struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Operator is a console login account as persisted in durable storage.
// Handlers return Identity, never Operator.
type Operator struct {
	Code         string    `json:"code"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"password_hash"`
	LastLogin    time.Time `json:"last_login,omitzero"`
}

// NewGuestEvent is the payload of a live "new-guest" event.
type NewGuestEvent struct {
	Code            string     `json:"code"`
	Name            string     `json:"name"`
	Date            string     `json:"date"`
	ArrivalTime     FlexString `json:"arrivalTime"`
	ResidentID      string     `json:"residentId"`
	TransportNumber string     `json:"transportNumber"`
}
