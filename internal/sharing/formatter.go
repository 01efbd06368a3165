package sharing

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/clinic-service/internal/config"
	"github.com/spec-kit/clinic-service/internal/domain"
	apperrors "github.com/spec-kit/clinic-service/pkg/util/errorutil"
)

const (
	unassignedDoctor = "TBD"
	unscheduledTime  = "Now"
	roomTokenLength  = 12
)

// Formatter renders share messages, messaging deep links and meeting room URLs.
type Formatter struct {
	videoBaseURL    string
	roomPrefix      string
	whatsAppBaseURL string
}

// NewFormatter builds a formatter from share settings.
func NewFormatter(cfg config.ShareConfig) *Formatter {
	return &Formatter{
		videoBaseURL:    strings.TrimRight(cfg.VideoBaseURL, "/"),
		roomPrefix:      cfg.RoomPrefix,
		whatsAppBaseURL: strings.TrimRight(cfg.WhatsAppBaseURL, "/"),
	}
}

// NewRoomURL returns a fresh meeting URL. Each call yields a different room.
func (f *Formatter) NewRoomURL() string {
	token := strings.ReplaceAll(uuid.NewString(), "-", "")[:roomTokenLength]
	room := token
	if f.roomPrefix != "" {
		room = f.roomPrefix + "-" + token
	}
	return f.videoBaseURL + "/" + room
}

// Message renders the human-readable share text signed by sender.
func (f *Formatter) Message(consultation *domain.Consultation, patient *domain.Patient, sender string) string {
	doctor, when := details(consultation, patient)
	return fmt.Sprintf(
		"Hello %s, your video consultation is scheduled.\n"+
			"🔗 Link: %s\n"+
			"👨‍⚕️ Doctor: %s\n"+
			"🕒 Time: %s\n"+
			"— Sent by %s",
		patient.Name, consultation.VideoURL, doctor, when, sender,
	)
}

// WhatsAppLink builds a wa.me deep link pre-filled with the consultation details.
// The override phone wins over the patient's contact.
func (f *Formatter) WhatsAppLink(consultation *domain.Consultation, patient *domain.Patient, overridePhone string) (string, error) {
	phone := ResolvePhone(patient, overridePhone)
	if phone == "" {
		return "", apperrors.NewValidationError("no phone provided and patient contact empty", map[string]any{
			"patient_id": patient.ID,
		})
	}
	return fmt.Sprintf("%s/%s?text=%s", f.whatsAppBaseURL, phone, url.QueryEscape(linkBody(consultation, patient))), nil
}

// ResolvePhone picks the destination number for a deep link, or "" if none.
// Both sources have '+' and spaces stripped.
func ResolvePhone(patient *domain.Patient, overridePhone string) string {
	if phone := NormalizePhone(overridePhone); phone != "" {
		return phone
	}
	if patient.Contact == nil {
		return ""
	}
	return NormalizePhone(*patient.Contact)
}

// NormalizePhone strips '+' and whitespace from a phone number.
func NormalizePhone(phone string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(phone, "+", "")), "")
}

func linkBody(consultation *domain.Consultation, patient *domain.Patient) string {
	doctor, when := details(consultation, patient)
	return fmt.Sprintf(
		"Hello %s, your video consultation is scheduled.\n"+
			"Link: %s\n"+
			"Doctor: %s\n"+
			"Time: %s",
		patient.Name, consultation.VideoURL, doctor, when,
	)
}

func details(consultation *domain.Consultation, patient *domain.Patient) (doctor, when string) {
	doctor = unassignedDoctor
	if patient.AssignedDoctorEmail != nil && *patient.AssignedDoctorEmail != "" {
		doctor = *patient.AssignedDoctorEmail
	}
	when = unscheduledTime
	if consultation.ScheduledAt != nil {
		when = consultation.ScheduledAt.Format(time.RFC3339)
	}
	return doctor, when
}
