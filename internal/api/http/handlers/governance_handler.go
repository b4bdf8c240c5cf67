package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sla-governance/internal/api/dto"
	"github.com/spec-kit/sla-governance/internal/auth"
	"github.com/spec-kit/sla-governance/internal/service"
)

// GovernanceHandler serves oversight reports.
type GovernanceHandler struct {
	service *service.GovernanceService
}

// NewGovernanceHandler constructs handler.
func NewGovernanceHandler(governanceService *service.GovernanceService) *GovernanceHandler {
	return &GovernanceHandler{service: governanceService}
}

// Report GET /governance/report.
func (h *GovernanceHandler) Report(c *fiber.Ctx) error {
	actor, err := auth.Actor(c)
	if err != nil {
		return err
	}
	report, err := h.service.Report(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewGovernanceReportResponse(report)})
}

// TechnicianPerformance GET /governance/technicians/:id.
func (h *GovernanceHandler) TechnicianPerformance(c *fiber.Ctx) error {
	actor, err := auth.Actor(c)
	if err != nil {
		return err
	}
	perf, err := h.service.TechnicianPerformance(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": perf})
}
