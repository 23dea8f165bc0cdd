package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/case-service/internal/api/dto"
	"github.com/spec-kit/case-service/internal/service"
	apperrors "github.com/spec-kit/case-service/pkg/util/errorutil"
)

// CasesHandler manages case endpoints.
type CasesHandler struct {
	service *service.CaseService
}

// NewCasesHandler constructs handler.
func NewCasesHandler(caseService *service.CaseService) *CasesHandler {
	return &CasesHandler{service: caseService}
}

// ListCases GET /cases.
func (h *CasesHandler) ListCases(c *fiber.Ctx) error {
	filter, err := parseCaseQuery(c)
	if err != nil {
		return err
	}
	views, err := h.service.ListCases(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.CaseResponse, 0, len(views))
	for _, v := range views {
		items = append(items, dto.NewCaseResponse(v))
	}
	return c.JSON(items)
}

// CreateCase POST /cases.
func (h *CasesHandler) CreateCase(c *fiber.Ctx) error {
	req, err := parseCaseRequest(c)
	if err != nil {
		return err
	}
	view, err := h.service.CreateCase(c.UserContext(), req.Change())
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewCaseResponse(view))
}

// GetCase GET /cases/:id.
func (h *CasesHandler) GetCase(c *fiber.Ctx) error {
	view, err := h.service.GetCase(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewCaseResponse(view))
}

// UpdateCase PUT /cases/:id.
func (h *CasesHandler) UpdateCase(c *fiber.Ctx) error {
	req, err := parseCaseRequest(c)
	if err != nil {
		return err
	}
	view, err := h.service.UpdateCase(c.UserContext(), c.Params("id"), req.Change())
	if err != nil {
		return err
	}
	return c.JSON(dto.NewCaseResponse(view))
}

// DeleteCase DELETE /cases/:id.
func (h *CasesHandler) DeleteCase(c *fiber.Ctx) error {
	if err := h.service.DeleteCase(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(dto.DeleteResponse{OK: true})
}

// ListCategories GET /categories.
func (h *CasesHandler) ListCategories(c *fiber.Ctx) error {
	categories, err := h.service.Categories(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(categories)
}

func parseCaseRequest(c *fiber.Ctx) (dto.CaseRequest, error) {
	var req dto.CaseRequest
	if len(c.Body()) == 0 {
		return req, nil
	}
	if err := c.BodyParser(&req); err != nil {
		return req, apperrors.NewValidationError("invalid payload", map[string]any{"reason": err.Error()})
	}
	return req, nil
}

func parseCaseQuery(c *fiber.Ctx) (service.CaseFilter, error) {
	filter := service.CaseFilter{
		Query:    c.Query("q"),
		Category: c.Query("category"),
		Status:   c.Query("status"),
	}
	raw := strings.TrimSpace(c.Query("escalated"))
	switch strings.ToLower(raw) {
	case "", "all", "todos", "todas":
		return filter, nil
	}
	v, ok := dto.ParseFlag(raw)
	if !ok {
		return filter, apperrors.NewValidationError("invalid escalated filter", map[string]any{"field": "escalated", "value": raw})
	}
	filter.Escalated = &v
	return filter, nil
}
