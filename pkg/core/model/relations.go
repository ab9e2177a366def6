package model

import "time"

// VolunteerStatus tracks how far along contacting a volunteer is
type VolunteerStatus string

const (
	VolunteerPossible      VolunteerStatus = "Possible"
	VolunteerLeftVoicemail VolunteerStatus = "Left Voicemail"
	VolunteerEmailed       VolunteerStatus = "Emailed"
	VolunteerAssigned      VolunteerStatus = "Assigned"
	VolunteerUnavailable   VolunteerStatus = "Unavailable"
)

// ClientRelation attaches a client to a booking
type ClientRelation struct {
	BookingID int64  `json:"booking_id"`
	ClientID  string `json:"client_id"`
	IsPrimary bool   `json:"is_primary"`
}

// VolunteerRelation attaches a volunteer to a booking
type VolunteerRelation struct {
	BookingID   int64           `json:"booking_id"`
	VolunteerID string          `json:"volunteer_id"`
	Status      VolunteerStatus `json:"status"`
}

// EventAttendee is someone attending an event booking.
// Exactly one of UserID and ExternalName is set.
type EventAttendee struct {
	BookingID    int64  `json:"event_booking_id"`
	UserID       string `json:"user_id,omitempty"`
	ExternalName string `json:"external_name,omitempty"`
	UserType     string `json:"user_type"`
}

// Key identifies the attendee within its booking
func (a EventAttendee) Key() string {
	if a.UserID != "" {
		return "user:" + a.UserID
	}
	return "external:" + a.ExternalName
}

// HistoryEntry is one line of a booking's audit trail
type HistoryEntry struct {
	ID        string    `json:"history_id"`
	BookingID int64     `json:"booking_id"`
	UserID    string    `json:"user_id"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

// ClientRelationsFor builds relations for clientIDs; the first client is primary.
// Duplicate ids are dropped.
func ClientRelationsFor(bookingID int64, clientIDs []string) []ClientRelation {
	seen := make(map[string]bool, len(clientIDs))
	rels := make([]ClientRelation, 0, len(clientIDs))
	for _, id := range clientIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		rels = append(rels, ClientRelation{
			BookingID: bookingID,
			ClientID:  id,
			IsPrimary: len(rels) == 0,
		})
	}
	return rels
}

// RebindClients copies relations onto another booking, keeping primary flags
func RebindClients(bookingID int64, rels []ClientRelation) []ClientRelation {
	out := make([]ClientRelation, len(rels))
	for i, r := range rels {
		out[i] = ClientRelation{BookingID: bookingID, ClientID: r.ClientID, IsPrimary: r.IsPrimary}
	}
	return out
}

// AnyAssigned reports whether a volunteer has been assigned
func AnyAssigned(rels []VolunteerRelation) bool {
	for _, r := range rels {
		if r.Status == VolunteerAssigned {
			return true
		}
	}
	return false
}
