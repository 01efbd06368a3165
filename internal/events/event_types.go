package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/clinic-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventPatientCreated        EventType = "patient_created"
	EventPatientAssigned       EventType = "patient_assigned"
	EventConsultationScheduled EventType = "consultation_scheduled"
	EventConsultationUpdated   EventType = "consultation_updated"
	EventConsultationShared    EventType = "consultation_shared"
)

// AllTypes lists every event type in publication order of a typical flow.
var AllTypes = []EventType{
	EventPatientCreated,
	EventPatientAssigned,
	EventConsultationScheduled,
	EventConsultationUpdated,
	EventConsultationShared,
}

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	EntityID  int64       `json:"entity_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// New stamps an event with a fresh id and the current time.
func New(eventType EventType, entityID int64, caller domain.Caller, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		EntityID:  entityID,
		Actor:     Actor{Email: caller.Email, Role: caller.Role},
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// PatientCreatedPayload payload.
type PatientCreatedPayload struct {
	Name string `json:"name"`
}

// PatientAssignedPayload payload.
type PatientAssignedPayload struct {
	OldDoctorEmail *string `json:"old_doctor_email,omitempty"`
	NewDoctorEmail string  `json:"new_doctor_email"`
}

// ConsultationScheduledPayload payload.
type ConsultationScheduledPayload struct {
	PatientID   int64      `json:"patient_id"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
	VideoURL    string     `json:"video_url"`
}

// ConsultationUpdatedPayload payload.
type ConsultationUpdatedPayload struct {
	OldStatus    domain.ConsultationStatus `json:"old_status"`
	NewStatus    domain.ConsultationStatus `json:"new_status"`
	NotesChanged bool                      `json:"notes_changed"`
}

// ConsultationSharedPayload payload.
type ConsultationSharedPayload struct {
	PatientID int64  `json:"patient_id"`
	Channel   string `json:"channel"`
	Link      string `json:"link"`
}
