package domain

import "time"

// Patient is created by sales and optionally assigned to one doctor.
type Patient struct {
	ID                  int64
	Name                string
	Age                 *int
	Contact             *string
	Notes               *string
	CreatedBy           string
	AssignedDoctorEmail *string
	CreatedAt           time.Time
}

// AssignedTo reports whether the patient is assigned to the given doctor email.
func (p *Patient) AssignedTo(email string) bool {
	return p != nil && p.AssignedDoctorEmail != nil && *p.AssignedDoctorEmail == email
}
