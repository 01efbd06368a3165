package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/clinic-service/internal/api/dto"
	"github.com/spec-kit/clinic-service/internal/service"
	"github.com/spec-kit/clinic-service/internal/sharing"
	apperrors "github.com/spec-kit/clinic-service/pkg/util/errorutil"
)

// ConsultationsHandler manages consultation scheduling, sharing and updates.
type ConsultationsHandler struct {
	service *service.ConsultationService
}

// NewConsultationsHandler constructs handler.
func NewConsultationsHandler(consultationService *service.ConsultationService) *ConsultationsHandler {
	return &ConsultationsHandler{service: consultationService}
}

// Schedule POST /consultations/schedule.
func (h *ConsultationsHandler) Schedule(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	var req dto.ScheduleConsultationRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	scheduledAt, ok := dto.ParseScheduledAt(req.ScheduledAt)
	if !ok {
		return apperrors.NewValidationError("scheduled_at must be an ISO-8601 timestamp", map[string]any{"scheduled_at": *req.ScheduledAt})
	}

	consultation, err := h.service.ScheduleConsultation(c.UserContext(), caller, req.PatientID, scheduledAt)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewConsultationResponse(consultation))
}

// List GET /consultations/list.
func (h *ConsultationsHandler) List(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	consultations, err := h.service.ListConsultations(c.UserContext(), caller)
	if err != nil {
		return err
	}
	items := make([]dto.ConsultationResponse, 0, len(consultations))
	for i := range consultations {
		items = append(items, dto.NewConsultationResponse(&consultations[i]))
	}
	return c.JSON(items)
}

// ShareMessage POST /consultations/share-message.
func (h *ConsultationsHandler) ShareMessage(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	req, err := parseShareRequest(c)
	if err != nil {
		return err
	}
	msg, err := h.service.ShareMessage(c.UserContext(), caller, req.ConsultationID)
	if err != nil {
		return err
	}
	return c.JSON(dto.ShareMessageResponse{Message: msg})
}

// WhatsAppLink POST /consultations/whatsapp-link.
func (h *ConsultationsHandler) WhatsAppLink(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	req, err := parseShareRequest(c)
	if err != nil {
		return err
	}
	link, err := h.service.WhatsAppLink(c.UserContext(), caller, req.ConsultationID, req.PhoneE164)
	if err != nil {
		return err
	}
	return c.JSON(dto.WhatsAppLinkResponse{WALink: link})
}

// SendWhatsApp POST /consultations/send-whatsapp.
func (h *ConsultationsHandler) SendWhatsApp(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	req, err := parseShareRequest(c)
	if err != nil {
		return err
	}
	link, err := h.service.SendWhatsApp(c.UserContext(), caller, req.ConsultationID, req.PhoneE164)
	if err != nil {
		return err
	}
	return c.JSON(dto.WhatsAppLinkResponse{WALink: link})
}

// Update PATCH /consultations/update?consultation_id=.
func (h *ConsultationsHandler) Update(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	id, err := strconv.ParseInt(c.Query("consultation_id"), 10, 64)
	if err != nil || id <= 0 {
		return apperrors.NewValidationError("consultation_id query parameter required", nil)
	}
	var req dto.UpdateConsultationRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}

	consultation, err := h.service.UpdateConsultation(c.UserContext(), caller, id, service.ConsultationUpdateInput{
		Notes:  req.Notes,
		Status: req.Status,
	})
	if err != nil {
		return err
	}
	return c.JSON(dto.NewConsultationResponse(consultation))
}

func parseShareRequest(c *fiber.Ctx) (dto.ConsultationShareRequest, error) {
	var req dto.ConsultationShareRequest
	if err := c.BodyParser(&req); err != nil {
		return req, apperrors.NewValidationError("invalid payload", nil)
	}
	req.PhoneE164 = sharing.NormalizePhone(req.PhoneE164)
	if err := dto.Validate(req); err != nil {
		return req, err
	}
	return req, nil
}
