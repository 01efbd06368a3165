package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/clinic-service/internal/domain"
)

// PatientFilter narrows patient listings. A nil AssignedDoctorEmail lists all patients.
type PatientFilter struct {
	AssignedDoctorEmail *string
}

// PatientRepository persists patients. Patients are never deleted.
type PatientRepository interface {
	Create(ctx context.Context, patient *domain.Patient) error
	GetByID(ctx context.Context, id int64) (*domain.Patient, error)
	List(ctx context.Context, filter PatientFilter) ([]domain.Patient, error)
	AssignDoctor(ctx context.Context, id int64, doctorEmail string) (*domain.Patient, error)
}

type patientRepository struct {
	pool *pgxpool.Pool
}

// NewPatientRepository returns a Postgres-backed implementation.
func NewPatientRepository(pool *pgxpool.Pool) PatientRepository {
	return &patientRepository{pool: pool}
}

const patientColumns = `id, name, age, contact, notes, created_by, assigned_doctor_email, created_at`

func (r *patientRepository) Create(ctx context.Context, patient *domain.Patient) error {
	const query = `
        INSERT INTO patients (name, age, contact, notes, created_by)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at`

	return r.pool.QueryRow(ctx, query,
		patient.Name,
		patient.Age,
		patient.Contact,
		patient.Notes,
		patient.CreatedBy,
	).Scan(&patient.ID, &patient.CreatedAt)
}

func (r *patientRepository) GetByID(ctx context.Context, id int64) (*domain.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE id=$1`
	return scanPatient(r.pool.QueryRow(ctx, query, id))
}

func (r *patientRepository) List(ctx context.Context, filter PatientFilter) ([]domain.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients`
	args := []any{}
	if filter.AssignedDoctorEmail != nil {
		query += ` WHERE assigned_doctor_email=$1`
		args = append(args, *filter.AssignedDoctorEmail)
	}
	query += ` ORDER BY id DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	patients := make([]domain.Patient, 0)
	for rows.Next() {
		patient, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		patients = append(patients, *patient)
	}
	return patients, rows.Err()
}

func (r *patientRepository) AssignDoctor(ctx context.Context, id int64, doctorEmail string) (*domain.Patient, error) {
	query := `
        UPDATE patients SET assigned_doctor_email=$1
        WHERE id=$2
        RETURNING ` + patientColumns
	return scanPatient(r.pool.QueryRow(ctx, query, doctorEmail, id))
}

func scanPatient(row pgx.Row) (*domain.Patient, error) {
	var patient domain.Patient
	if err := row.Scan(
		&patient.ID,
		&patient.Name,
		&patient.Age,
		&patient.Contact,
		&patient.Notes,
		&patient.CreatedBy,
		&patient.AssignedDoctorEmail,
		&patient.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &patient, nil
}
