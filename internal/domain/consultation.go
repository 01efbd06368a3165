package domain

import (
	"fmt"
	"strings"
	"time"
)

// ConsultationStatus enumerates consultation lifecycle states.
type ConsultationStatus string

const (
	ConsultationStatusPending   ConsultationStatus = "pending"
	ConsultationStatusCompleted ConsultationStatus = "completed"
)

// ParseConsultationStatus validates a raw status value.
func ParseConsultationStatus(raw string) (ConsultationStatus, error) {
	status := ConsultationStatus(strings.ToLower(strings.TrimSpace(raw)))
	switch status {
	case ConsultationStatusPending, ConsultationStatusCompleted:
		return status, nil
	}
	return "", fmt.Errorf("unknown consultation status %q", raw)
}

// Consultation is a video consultation for a patient. VideoURL never changes after creation.
type Consultation struct {
	ID          int64
	PatientID   int64
	ScheduledAt *time.Time
	VideoURL    string
	CreatedBy   string
	Status      ConsultationStatus
	DoctorNotes *string
	CreatedAt   time.Time
}
