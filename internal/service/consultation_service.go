package service

import (
	"context"
	"strings"
	"time"

	"github.com/spec-kit/clinic-service/internal/domain"
	"github.com/spec-kit/clinic-service/internal/events"
	"github.com/spec-kit/clinic-service/internal/policy"
	"github.com/spec-kit/clinic-service/internal/repository"
	"github.com/spec-kit/clinic-service/internal/sharing"
	apperrors "github.com/spec-kit/clinic-service/pkg/util/errorutil"
)

const shareChannelWhatsApp = "whatsapp"

// ConsultationService schedules, lists, shares and updates consultations.
type ConsultationService struct {
	consultations repository.ConsultationRepository
	patients      repository.PatientRepository
	formatter     *sharing.Formatter
	dispatcher    events.Dispatcher
}

// ConsultationDependencies bundles repositories and collaborators.
type ConsultationDependencies struct {
	ConsultationRepo repository.ConsultationRepository
	PatientRepo      repository.PatientRepository
	Formatter        *sharing.Formatter
	Dispatcher       events.Dispatcher
}

// NewConsultationService creates the service.
func NewConsultationService(deps ConsultationDependencies) *ConsultationService {
	return &ConsultationService{
		consultations: deps.ConsultationRepo,
		patients:      deps.PatientRepo,
		formatter:     deps.Formatter,
		dispatcher:    deps.Dispatcher,
	}
}

// ConsultationUpdateInput carries a partial update. Nil fields are left untouched;
// an empty Notes clears the stored notes.
type ConsultationUpdateInput struct {
	Notes  *string
	Status *string
}

// ScheduleConsultation creates a consultation with a freshly generated video room.
// A nil scheduledAt means the consultation is unscheduled ("now").
func (s *ConsultationService) ScheduleConsultation(ctx context.Context, caller domain.Caller, patientID int64, scheduledAt *time.Time) (*domain.Consultation, error) {
	patient, err := s.getPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if err := policy.CanSchedule(caller, patient); err != nil {
		return nil, err
	}

	consultation := &domain.Consultation{
		PatientID:   patient.ID,
		ScheduledAt: scheduledAt,
		VideoURL:    s.formatter.NewRoomURL(),
		CreatedBy:   caller.Email,
		Status:      domain.ConsultationStatusPending,
	}
	if err := s.consultations.Create(ctx, consultation); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publish(ctx, events.New(events.EventConsultationScheduled, consultation.ID, caller, events.ConsultationScheduledPayload{
		PatientID:   patient.ID,
		ScheduledAt: consultation.ScheduledAt,
		VideoURL:    consultation.VideoURL,
	}))
	return consultation, nil
}

// ListConsultations returns the consultations visible to the caller, newest first.
func (s *ConsultationService) ListConsultations(ctx context.Context, caller domain.Caller) ([]domain.Consultation, error) {
	scope, err := policy.ConsultationScope(caller)
	if err != nil {
		return nil, err
	}
	filter := repository.ConsultationFilter{}
	if scope == policy.ScopeAssigned {
		email := caller.Email
		filter.AssignedDoctorEmail = &email
	}
	consultations, err := s.consultations.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return consultations, nil
}

// ShareMessage renders the share text for a consultation, signed by the caller.
func (s *ConsultationService) ShareMessage(ctx context.Context, caller domain.Caller, consultationID int64) (string, error) {
	consultation, patient, err := s.accessible(ctx, caller, consultationID)
	if err != nil {
		return "", err
	}
	return s.formatter.Message(consultation, patient, caller.Email), nil
}

// WhatsAppLink builds the deep link for a consultation.
func (s *ConsultationService) WhatsAppLink(ctx context.Context, caller domain.Caller, consultationID int64, overridePhone string) (string, error) {
	consultation, patient, err := s.accessible(ctx, caller, consultationID)
	if err != nil {
		return "", err
	}
	return s.formatter.WhatsAppLink(consultation, patient, overridePhone)
}

// SendWhatsApp builds the deep link and announces the share as a domain event.
func (s *ConsultationService) SendWhatsApp(ctx context.Context, caller domain.Caller, consultationID int64, overridePhone string) (string, error) {
	consultation, patient, err := s.accessible(ctx, caller, consultationID)
	if err != nil {
		return "", err
	}
	link, err := s.formatter.WhatsAppLink(consultation, patient, overridePhone)
	if err != nil {
		return "", err
	}
	s.publish(ctx, events.New(events.EventConsultationShared, consultation.ID, caller, events.ConsultationSharedPayload{
		PatientID: patient.ID,
		Channel:   shareChannelWhatsApp,
		Link:      link,
	}))
	return link, nil
}

// UpdateConsultation applies a partial status/notes update. Only the fields
// present in input are written, so concurrent updates to the other field survive.
func (s *ConsultationService) UpdateConsultation(ctx context.Context, caller domain.Caller, consultationID int64, input ConsultationUpdateInput) (*domain.Consultation, error) {
	consultation, _, err := s.accessible(ctx, caller, consultationID)
	if err != nil {
		return nil, err
	}

	var patch repository.ConsultationPatch
	if input.Status != nil {
		status, err := domain.ParseConsultationStatus(*input.Status)
		if err != nil {
			return nil, apperrors.NewValidationError("invalid status", map[string]any{
				"status":  *input.Status,
				"allowed": []domain.ConsultationStatus{domain.ConsultationStatusPending, domain.ConsultationStatusCompleted},
			})
		}
		patch.Status = &status
	}
	if input.Notes != nil {
		patch.NotesSet = true
		if notes := strings.TrimSpace(*input.Notes); notes != "" {
			patch.Notes = &notes
		}
	}

	updated, err := s.consultations.Update(ctx, consultationID, patch)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("consultation", map[string]any{"consultation_id": consultationID})
		}
		return nil, apperrors.MapError(err)
	}
	s.publish(ctx, events.New(events.EventConsultationUpdated, updated.ID, caller, events.ConsultationUpdatedPayload{
		OldStatus:    consultation.Status,
		NewStatus:    updated.Status,
		NotesChanged: patch.NotesSet,
	}))
	return updated, nil
}

// accessible loads a consultation and its patient and checks the caller may act on it.
func (s *ConsultationService) accessible(ctx context.Context, caller domain.Caller, consultationID int64) (*domain.Consultation, *domain.Patient, error) {
	consultation, err := s.consultations.GetByID(ctx, consultationID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, nil, apperrors.NewNotFound("consultation", map[string]any{"consultation_id": consultationID})
		}
		return nil, nil, apperrors.MapError(err)
	}
	patient, err := s.getPatient(ctx, consultation.PatientID)
	if err != nil {
		return nil, nil, err
	}
	if err := policy.CanAccessConsultation(caller, patient); err != nil {
		return nil, nil, err
	}
	return consultation, patient, nil
}

func (s *ConsultationService) getPatient(ctx context.Context, id int64) (*domain.Patient, error) {
	patient, err := s.patients.GetByID(ctx, id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("patient", map[string]any{"patient_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return patient, nil
}

func (s *ConsultationService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, event)
}
