package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/clinic-service/internal/domain"
)

// ConsultationFilter narrows consultation listings. AssignedDoctorEmail filters on the
// consultation's patient.
type ConsultationFilter struct {
	AssignedDoctorEmail *string
}

// ConsultationPatch lists the columns an update writes. Nil Status leaves the
// status alone; Notes is written only when NotesSet, and a nil Notes clears it.
type ConsultationPatch struct {
	Status   *domain.ConsultationStatus
	NotesSet bool
	Notes    *string
}

// ConsultationRepository persists consultations. Consultations are never deleted.
type ConsultationRepository interface {
	Create(ctx context.Context, consultation *domain.Consultation) error
	GetByID(ctx context.Context, id int64) (*domain.Consultation, error)
	List(ctx context.Context, filter ConsultationFilter) ([]domain.Consultation, error)
	Update(ctx context.Context, id int64, patch ConsultationPatch) (*domain.Consultation, error)
}

type consultationRepository struct {
	pool *pgxpool.Pool
}

// NewConsultationRepository returns a Postgres-backed implementation.
func NewConsultationRepository(pool *pgxpool.Pool) ConsultationRepository {
	return &consultationRepository{pool: pool}
}

const consultationColumns = `c.id, c.patient_id, c.scheduled_at, c.video_url, c.created_by, c.status, c.doctor_notes, c.created_at`

func (r *consultationRepository) Create(ctx context.Context, consultation *domain.Consultation) error {
	const query = `
        INSERT INTO consultations (patient_id, scheduled_at, video_url, created_by, status)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at`

	return r.pool.QueryRow(ctx, query,
		consultation.PatientID,
		consultation.ScheduledAt,
		consultation.VideoURL,
		consultation.CreatedBy,
		consultation.Status,
	).Scan(&consultation.ID, &consultation.CreatedAt)
}

func (r *consultationRepository) GetByID(ctx context.Context, id int64) (*domain.Consultation, error) {
	query := `SELECT ` + consultationColumns + ` FROM consultations c WHERE c.id=$1`
	return scanConsultation(r.pool.QueryRow(ctx, query, id))
}

func (r *consultationRepository) List(ctx context.Context, filter ConsultationFilter) ([]domain.Consultation, error) {
	query := `SELECT ` + consultationColumns + ` FROM consultations c`
	args := []any{}
	if filter.AssignedDoctorEmail != nil {
		query += ` JOIN patients p ON p.id = c.patient_id WHERE p.assigned_doctor_email=$1`
		args = append(args, *filter.AssignedDoctorEmail)
	}
	query += ` ORDER BY c.id DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	consultations := make([]domain.Consultation, 0)
	for rows.Next() {
		consultation, err := scanConsultation(rows)
		if err != nil {
			return nil, err
		}
		consultations = append(consultations, *consultation)
	}
	return consultations, rows.Err()
}

// Update writes only the patched columns and returns the stored row.
func (r *consultationRepository) Update(ctx context.Context, id int64, patch ConsultationPatch) (*domain.Consultation, error) {
	query := `
        UPDATE consultations c
        SET status=COALESCE($1, c.status),
            doctor_notes=CASE WHEN $2 THEN $3 ELSE c.doctor_notes END
        WHERE c.id=$4
        RETURNING ` + consultationColumns

	return scanConsultation(r.pool.QueryRow(ctx, query,
		patch.Status,
		patch.NotesSet,
		patch.Notes,
		id,
	))
}

func scanConsultation(row pgx.Row) (*domain.Consultation, error) {
	var consultation domain.Consultation
	if err := row.Scan(
		&consultation.ID,
		&consultation.PatientID,
		&consultation.ScheduledAt,
		&consultation.VideoURL,
		&consultation.CreatedBy,
		&consultation.Status,
		&consultation.DoctorNotes,
		&consultation.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &consultation, nil
}
