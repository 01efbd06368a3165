// Package memory is an in-process registry used when no Postgres DSN is configured.
// It mirrors the Postgres repositories' contract: ids are monotonic, lookups that
// find nothing return pgx.ErrNoRows and duplicate emails fail like a unique index.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/clinic-service/internal/domain"
	"github.com/spec-kit/clinic-service/internal/repository"
)

// Store holds users, patients and consultations behind a single lock so the
// doctor-scoped consultation listing sees a consistent patient table.
type Store struct {
	mu sync.RWMutex

	users         map[int64]domain.User
	usersByEmail  map[string]int64
	patients      map[int64]domain.Patient
	consultations map[int64]domain.Consultation

	nextUserID         int64
	nextPatientID      int64
	nextConsultationID int64

	now func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		users:         make(map[int64]domain.User),
		usersByEmail:  make(map[string]int64),
		patients:      make(map[int64]domain.Patient),
		consultations: make(map[int64]domain.Consultation),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Users returns the user repository view.
func (s *Store) Users() repository.UserRepository { return userRepo{s} }

// Patients returns the patient repository view.
func (s *Store) Patients() repository.PatientRepository { return patientRepo{s} }

// Consultations returns the consultation repository view.
func (s *Store) Consultations() repository.ConsultationRepository { return consultationRepo{s} }

type userRepo struct{ s *Store }

func (r userRepo) Create(_ context.Context, user *domain.User) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usersByEmail[user.Email]; exists {
		return &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key", Message: "duplicate key value violates unique constraint"}
	}
	s.nextUserID++
	user.ID = s.nextUserID
	user.CreatedAt = s.now()
	s.users[user.ID] = *user
	s.usersByEmail[user.Email] = user.ID
	return nil
}

func (r userRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usersByEmail[email]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	user := s.users[id]
	return &user, nil
}

func (r userRepo) List(_ context.Context, filter repository.UserFilter) ([]domain.User, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.User, 0, len(s.users))
	for _, user := range s.users {
		if filter.Role != nil && user.Role != *filter.Role {
			continue
		}
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID > users[j].ID })
	return users, nil
}

type patientRepo struct{ s *Store }

func (r patientRepo) Create(_ context.Context, patient *domain.Patient) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextPatientID++
	patient.ID = s.nextPatientID
	patient.CreatedAt = s.now()
	s.patients[patient.ID] = clonePatient(*patient)
	return nil
}

func (r patientRepo) GetByID(_ context.Context, id int64) (*domain.Patient, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	patient, ok := s.patients[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := clonePatient(patient)
	return &out, nil
}

func (r patientRepo) List(_ context.Context, filter repository.PatientFilter) ([]domain.Patient, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	patients := make([]domain.Patient, 0, len(s.patients))
	for _, patient := range s.patients {
		if filter.AssignedDoctorEmail != nil && !patient.AssignedTo(*filter.AssignedDoctorEmail) {
			continue
		}
		patients = append(patients, clonePatient(patient))
	}
	sort.Slice(patients, func(i, j int) bool { return patients[i].ID > patients[j].ID })
	return patients, nil
}

func (r patientRepo) AssignDoctor(_ context.Context, id int64, doctorEmail string) (*domain.Patient, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	patient, ok := s.patients[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	patient.AssignedDoctorEmail = &doctorEmail
	s.patients[id] = patient
	out := clonePatient(patient)
	return &out, nil
}

type consultationRepo struct{ s *Store }

func (r consultationRepo) Create(_ context.Context, consultation *domain.Consultation) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.patients[consultation.PatientID]; !ok {
		return &pgconn.PgError{Code: "23503", ConstraintName: "consultations_patient_id_fkey", Message: "insert violates foreign key constraint"}
	}
	s.nextConsultationID++
	consultation.ID = s.nextConsultationID
	consultation.CreatedAt = s.now()
	s.consultations[consultation.ID] = cloneConsultation(*consultation)
	return nil
}

func (r consultationRepo) GetByID(_ context.Context, id int64) (*domain.Consultation, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	consultation, ok := s.consultations[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := cloneConsultation(consultation)
	return &out, nil
}

func (r consultationRepo) List(_ context.Context, filter repository.ConsultationFilter) ([]domain.Consultation, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	consultations := make([]domain.Consultation, 0, len(s.consultations))
	for _, consultation := range s.consultations {
		if filter.AssignedDoctorEmail != nil {
			patient, ok := s.patients[consultation.PatientID]
			if !ok || !patient.AssignedTo(*filter.AssignedDoctorEmail) {
				continue
			}
		}
		consultations = append(consultations, cloneConsultation(consultation))
	}
	sort.Slice(consultations, func(i, j int) bool { return consultations[i].ID > consultations[j].ID })
	return consultations, nil
}

func (r consultationRepo) Update(_ context.Context, id int64, patch repository.ConsultationPatch) (*domain.Consultation, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.consultations[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if patch.Status != nil {
		stored.Status = *patch.Status
	}
	if patch.NotesSet {
		stored.DoctorNotes = cloneString(patch.Notes)
	}
	s.consultations[id] = stored
	out := cloneConsultation(stored)
	return &out, nil
}

func clonePatient(p domain.Patient) domain.Patient {
	if p.Age != nil {
		age := *p.Age
		p.Age = &age
	}
	p.Contact = cloneString(p.Contact)
	p.Notes = cloneString(p.Notes)
	p.AssignedDoctorEmail = cloneString(p.AssignedDoctorEmail)
	return p
}

func cloneConsultation(c domain.Consultation) domain.Consultation {
	if c.ScheduledAt != nil {
		at := *c.ScheduledAt
		c.ScheduledAt = &at
	}
	c.DoctorNotes = cloneString(c.DoctorNotes)
	return c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
