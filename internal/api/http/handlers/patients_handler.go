package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/clinic-service/internal/api/dto"
	"github.com/spec-kit/clinic-service/internal/auth"
	"github.com/spec-kit/clinic-service/internal/domain"
	"github.com/spec-kit/clinic-service/internal/service"
	apperrors "github.com/spec-kit/clinic-service/pkg/util/errorutil"
)

// PatientsHandler manages patient endpoints.
type PatientsHandler struct {
	service *service.PatientService
}

// NewPatientsHandler constructs handler.
func NewPatientsHandler(patientService *service.PatientService) *PatientsHandler {
	return &PatientsHandler{service: patientService}
}

// Create POST /patients/create.
func (h *PatientsHandler) Create(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	var req dto.CreatePatientRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	patient, err := h.service.CreatePatient(c.UserContext(), caller, service.PatientCreateInput{
		Name:    req.Name,
		Age:     req.Age,
		Contact: req.Contact,
		Notes:   req.Notes,
	})
	if err != nil {
		return err
	}
	return c.JSON(dto.NewPatientResponse(patient))
}

// List GET /patients/list.
func (h *PatientsHandler) List(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	patients, err := h.service.ListPatients(c.UserContext(), caller)
	if err != nil {
		return err
	}
	items := make([]dto.PatientResponse, 0, len(patients))
	for i := range patients {
		items = append(items, dto.NewPatientResponse(&patients[i]))
	}
	return c.JSON(items)
}

// Assign POST /patients/assign.
func (h *PatientsHandler) Assign(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	var req dto.AssignPatientRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	patient, err := h.service.AssignPatient(c.UserContext(), caller, req.PatientID, req.DoctorEmail)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewPatientResponse(patient))
}

func callerFrom(c *fiber.Ctx) (domain.Caller, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return domain.Caller{}, apperrors.NewUnauthorized("authentication required")
	}
	return principal.Caller(), nil
}
