package service

import (
	"context"
	"strings"

	"github.com/spec-kit/clinic-service/internal/domain"
	"github.com/spec-kit/clinic-service/internal/events"
	"github.com/spec-kit/clinic-service/internal/policy"
	"github.com/spec-kit/clinic-service/internal/repository"
	apperrors "github.com/spec-kit/clinic-service/pkg/util/errorutil"
)

// PatientService handles patient registration, listing and doctor assignment.
type PatientService struct {
	patients   repository.PatientRepository
	users      repository.UserRepository
	dispatcher events.Dispatcher
}

// PatientDependencies bundles repositories.
type PatientDependencies struct {
	PatientRepo repository.PatientRepository
	UserRepo    repository.UserRepository
	Dispatcher  events.Dispatcher
}

// NewPatientService creates the service.
func NewPatientService(deps PatientDependencies) *PatientService {
	return &PatientService{
		patients:   deps.PatientRepo,
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
	}
}

// PatientCreateInput describes a new patient.
type PatientCreateInput struct {
	Name    string
	Age     *int
	Contact *string
	Notes   *string
}

// CreatePatient registers a patient on behalf of a sales caller.
func (s *PatientService) CreatePatient(ctx context.Context, caller domain.Caller, input PatientCreateInput) (*domain.Patient, error) {
	if err := policy.CanCreatePatient(caller); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewValidationError("name required", nil)
	}
	if input.Age != nil && *input.Age < 0 {
		return nil, apperrors.NewValidationError("age must not be negative", map[string]any{"age": *input.Age})
	}

	patient := &domain.Patient{
		Name:      name,
		Age:       input.Age,
		Contact:   input.Contact,
		Notes:     input.Notes,
		CreatedBy: caller.Email,
	}
	if err := s.patients.Create(ctx, patient); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publish(ctx, events.New(events.EventPatientCreated, patient.ID, caller, events.PatientCreatedPayload{Name: patient.Name}))
	return patient, nil
}

// ListPatients returns the patients visible to the caller, newest first.
func (s *PatientService) ListPatients(ctx context.Context, caller domain.Caller) ([]domain.Patient, error) {
	scope, err := policy.PatientScope(caller)
	if err != nil {
		return nil, err
	}
	filter := repository.PatientFilter{}
	if scope == policy.ScopeAssigned {
		email := caller.Email
		filter.AssignedDoctorEmail = &email
	}
	patients, err := s.patients.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return patients, nil
}

// AssignPatient links a patient to a doctor. The target email must belong to a
// user whose role is doctor at assignment time.
func (s *PatientService) AssignPatient(ctx context.Context, caller domain.Caller, patientID int64, doctorEmail string) (*domain.Patient, error) {
	if err := policy.CanAssignPatient(caller); err != nil {
		return nil, err
	}
	patient, err := s.getPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}

	doctorEmail = domain.NormalizeEmail(doctorEmail)
	doctor, err := s.users.GetByEmail(ctx, doctorEmail)
	if err != nil && !apperrors.IsNotFound(err) {
		return nil, apperrors.MapError(err)
	}
	if doctor == nil || doctor.Role != domain.RoleDoctor {
		return nil, apperrors.NewValidationError("doctor email invalid or not a doctor", map[string]any{"doctor_email": doctorEmail})
	}

	oldDoctor := patient.AssignedDoctorEmail
	updated, err := s.patients.AssignDoctor(ctx, patient.ID, doctor.Email)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("patient", map[string]any{"patient_id": patientID})
		}
		return nil, apperrors.MapError(err)
	}
	s.publish(ctx, events.New(events.EventPatientAssigned, updated.ID, caller, events.PatientAssignedPayload{
		OldDoctorEmail: oldDoctor,
		NewDoctorEmail: doctor.Email,
	}))
	return updated, nil
}

func (s *PatientService) getPatient(ctx context.Context, id int64) (*domain.Patient, error) {
	patient, err := s.patients.GetByID(ctx, id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("patient", map[string]any{"patient_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return patient, nil
}

func (s *PatientService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, event)
}
