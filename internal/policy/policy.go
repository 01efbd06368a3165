// Package policy decides which patients and consultations a caller may see or change.
//
// Decisions are pure: they only look at the caller and the records handed in,
// and are re-evaluated on every request. The admin role is recognised but is
// granted nothing here.
package policy

import (
	"github.com/spec-kit/clinic-service/internal/domain"
	apperrors "github.com/spec-kit/clinic-service/pkg/util/errorutil"
)

// Scope is the visibility a caller has over a listing.
type Scope int

const (
	// ScopeNone means the caller may not list at all.
	ScopeNone Scope = iota
	// ScopeAll means every row is visible.
	ScopeAll
	// ScopeAssigned restricts rows to patients assigned to the caller.
	ScopeAssigned
)

// CanCreatePatient allows sales only.
func CanCreatePatient(caller domain.Caller) error {
	if caller.Role != domain.RoleSales {
		return apperrors.NewForbidden("only sales role can create patients")
	}
	return nil
}

// CanAssignPatient allows sales only.
func CanAssignPatient(caller domain.Caller) error {
	if caller.Role != domain.RoleSales {
		return apperrors.NewForbidden("only sales can assign patients")
	}
	return nil
}

// PatientScope returns the patient rows visible to the caller.
func PatientScope(caller domain.Caller) (Scope, error) {
	return listScope(caller)
}

// ConsultationScope returns the consultation rows visible to the caller.
// Doctors see consultations whose patient is assigned to them.
func ConsultationScope(caller domain.Caller) (Scope, error) {
	return listScope(caller)
}

func listScope(caller domain.Caller) (Scope, error) {
	switch caller.Role {
	case domain.RoleSales:
		return ScopeAll, nil
	case domain.RoleDoctor:
		return ScopeAssigned, nil
	default:
		return ScopeNone, apperrors.NewForbidden("role not permitted")
	}
}

// CanSchedule checks whether the caller may schedule a consultation for patient.
func CanSchedule(caller domain.Caller, patient *domain.Patient) error {
	switch caller.Role {
	case domain.RoleSales:
		return nil
	case domain.RoleDoctor:
		if !patient.AssignedTo(caller.Email) {
			return apperrors.NewForbidden("doctor not assigned to this patient")
		}
		return nil
	default:
		return apperrors.NewForbidden("not allowed to schedule consultations")
	}
}

// CanAccessConsultation checks view, share and update access to a consultation
// through its patient.
func CanAccessConsultation(caller domain.Caller, patient *domain.Patient) error {
	switch caller.Role {
	case domain.RoleSales:
		return nil
	case domain.RoleDoctor:
		if !patient.AssignedTo(caller.Email) {
			return apperrors.NewForbidden("not allowed to access this consultation")
		}
		return nil
	default:
		return apperrors.NewForbidden("role not permitted")
	}
}

// VisiblePatient reports whether a single patient falls inside scope for caller.
func VisiblePatient(caller domain.Caller, scope Scope, patient *domain.Patient) bool {
	switch scope {
	case ScopeAll:
		return true
	case ScopeAssigned:
		return patient.AssignedTo(caller.Email)
	default:
		return false
	}
}
