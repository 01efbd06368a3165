package dto

import (
	"time"

	"github.com/spec-kit/clinic-service/internal/domain"
)

// CreatePatientRequest payload.
type CreatePatientRequest struct {
	Name    string  `json:"name" validate:"required,max=120"`
	Age     *int    `json:"age" validate:"omitempty,min=0,max=150"`
	Contact *string `json:"contact" validate:"omitempty,max=50"`
	Notes   *string `json:"notes" validate:"omitempty,max=255"`
}

// AssignPatientRequest payload.
type AssignPatientRequest struct {
	PatientID   int64  `json:"patient_id" validate:"required,gt=0"`
	DoctorEmail string `json:"doctor_email" validate:"required,email"`
}

// PatientResponse is the public view of a patient.
type PatientResponse struct {
	ID                  int64     `json:"id"`
	Name                string    `json:"name"`
	Age                 *int      `json:"age"`
	Contact             *string   `json:"contact"`
	Notes               *string   `json:"notes"`
	CreatedBy           string    `json:"created_by"`
	AssignedDoctorEmail *string   `json:"assigned_doctor_email"`
	CreatedAt           time.Time `json:"created_at"`
}

// NewPatientResponse maps a domain patient.
func NewPatientResponse(p *domain.Patient) PatientResponse {
	return PatientResponse{
		ID:                  p.ID,
		Name:                p.Name,
		Age:                 p.Age,
		Contact:             p.Contact,
		Notes:               p.Notes,
		CreatedBy:           p.CreatedBy,
		AssignedDoctorEmail: p.AssignedDoctorEmail,
		CreatedAt:           p.CreatedAt,
	}
}

// ScheduleConsultationRequest payload. ScheduledAt accepts RFC3339 or a bare
// ISO-8601 local timestamp, read as UTC.
type ScheduleConsultationRequest struct {
	PatientID   int64   `json:"patient_id" validate:"required,gt=0"`
	ScheduledAt *string `json:"scheduled_at"`
}

// ConsultationShareRequest payload shared by the message and link endpoints.
// PhoneE164 is validated after '+' and spaces are stripped.
type ConsultationShareRequest struct {
	ConsultationID int64  `json:"consultation_id" validate:"required,gt=0"`
	PhoneE164      string `json:"phone_e164" validate:"omitempty,numeric,min=6,max=15"`
}

// UpdateConsultationRequest payload. Absent fields are left untouched.
type UpdateConsultationRequest struct {
	Notes  *string `json:"notes"`
	Status *string `json:"status"`
}

// ConsultationResponse is the public view of a consultation.
type ConsultationResponse struct {
	ID          int64                     `json:"id"`
	PatientID   int64                     `json:"patient_id"`
	ScheduledAt *time.Time                `json:"scheduled_at"`
	VideoURL    string                    `json:"video_url"`
	CreatedBy   string                    `json:"created_by"`
	Status      domain.ConsultationStatus `json:"status"`
	DoctorNotes *string                   `json:"doctor_notes"`
	CreatedAt   time.Time                 `json:"created_at"`
}

// NewConsultationResponse maps a domain consultation.
func NewConsultationResponse(c *domain.Consultation) ConsultationResponse {
	return ConsultationResponse{
		ID:          c.ID,
		PatientID:   c.PatientID,
		ScheduledAt: c.ScheduledAt,
		VideoURL:    c.VideoURL,
		CreatedBy:   c.CreatedBy,
		Status:      c.Status,
		DoctorNotes: c.DoctorNotes,
		CreatedAt:   c.CreatedAt,
	}
}

// ShareMessageResponse carries the rendered message.
type ShareMessageResponse struct {
	Message string `json:"message"`
}

// WhatsAppLinkResponse carries the deep link.
type WhatsAppLinkResponse struct {
	WALink string `json:"wa_link"`
}

var scheduleLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
}

// ParseScheduledAt parses an optional schedule timestamp. Empty input means unscheduled.
func ParseScheduledAt(raw *string) (*time.Time, bool) {
	if raw == nil || *raw == "" {
		return nil, true
	}
	for _, layout := range scheduleLayouts {
		if t, err := time.Parse(layout, *raw); err == nil {
			t = t.UTC()
			return &t, true
		}
	}
	return nil, false
}
