package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/case-service/internal/service"
)

// HistoryHandler serves the case audit trail.
type HistoryHandler struct {
	service *service.CaseService
}

// NewHistoryHandler constructs handler.
func NewHistoryHandler(caseService *service.CaseService) *HistoryHandler {
	return &HistoryHandler{service: caseService}
}

// ListHistory GET /history?caseId=.
func (h *HistoryHandler) ListHistory(c *fiber.Ctx) error {
	events, err := h.service.ListHistory(c.UserContext(), c.Query("caseId"))
	if err != nil {
		return err
	}
	return c.JSON(events)
}
