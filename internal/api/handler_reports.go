package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"device-allocation-backend/internal/store"
)

// DashboardReport handles GET /api/reports/dashboard.
func (h *Handler) DashboardReport(c *gin.Context) {
	dash, err := h.reports.Dashboard(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dash)
}

// MachineReport handles GET /api/reports/machines. It takes the same
// filters as the machine listing.
func (h *Handler) MachineReport(c *gin.Context) {
	var q machineQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBindError(c, err)
		return
	}
	rep, err := h.reports.Machines(c.Request.Context(), store.MachineFilter{
		Status:       q.Status,
		Type:         q.Type,
		Manufacturer: q.Manufacturer,
		Search:       q.Search,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

// AssignmentReport handles GET /api/reports/assignments.
func (h *Handler) AssignmentReport(c *gin.Context) {
	f, ok := h.assignmentFilter(c)
	if !ok {
		return
	}
	rep, err := h.reports.Assignments(c.Request.Context(), f)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

// DistributorReport handles GET /api/reports/distributors.
func (h *Handler) DistributorReport(c *gin.Context) {
	rows, err := h.reports.Distributors(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"distributors": rows, "total": len(rows)})
}

// RetailerReport handles GET /api/reports/retailers.
func (h *Handler) RetailerReport(c *gin.Context) {
	rows, err := h.reports.Retailers(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"retailers": rows, "total": len(rows)})
}
