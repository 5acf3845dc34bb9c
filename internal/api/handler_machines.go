package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"device-allocation-backend/internal/model"
	"device-allocation-backend/internal/report"
	"device-allocation-backend/internal/store"
)

type machineQuery struct {
	Status       model.MachineStatus `form:"status" binding:"omitempty,oneof=AVAILABLE ASSIGNED MAINTENANCE"`
	Type         model.MachineType   `form:"type" binding:"omitempty,oneof=POS SOUNDBOX"`
	Manufacturer string              `form:"manufacturer"`
	Search       string              `form:"search"`
}

// ListMachines handles GET /api/machines.
func (h *Handler) ListMachines(c *gin.Context) {
	var q machineQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBindError(c, err)
		return
	}

	machines, err := h.store.ListMachines(c.Request.Context(), store.MachineFilter{
		Status:       q.Status,
		Type:         q.Type,
		Manufacturer: q.Manufacturer,
		Search:       q.Search,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"machines": machines,
		"stats":    report.CountMachines(machines),
		"total":    len(machines),
	})
}

// GetMachine handles GET /api/machines/:id.
func (h *Handler) GetMachine(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	machine, err := h.store.GetMachine(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, machine)
}

// MachineHistory handles GET /api/machines/:id/assignments.
func (h *Handler) MachineHistory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	history, err := h.store.MachineHistory(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"assignments": history, "total": len(history)})
}

type createMachineRequest struct {
	SerialNumber string            `json:"serialNumber" binding:"required"`
	MID          string            `json:"mid"`
	TID          string            `json:"tid"`
	Type         model.MachineType `json:"type" binding:"required,oneof=POS SOUNDBOX"`
	Model        string            `json:"model"`
	Manufacturer string            `json:"manufacturer"`
	PartnerType  model.PartnerType `json:"partnerType" binding:"omitempty,oneof=B2B B2C"`
	Notes        string            `json:"notes"`
}

// CreateMachine handles POST /api/machines.
func (h *Handler) CreateMachine(c *gin.Context) {
	var req createMachineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	machine, err := h.store.CreateMachine(c.Request.Context(), store.MachineInput{
		SerialNumber: req.SerialNumber,
		MID:          req.MID,
		TID:          req.TID,
		Type:         req.Type,
		Model:        req.Model,
		Manufacturer: req.Manufacturer,
		PartnerType:  req.PartnerType,
		Notes:        req.Notes,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, machine)
}

type updateMachineRequest struct {
	SerialNumber *string              `json:"serialNumber"`
	MID          *string              `json:"mid"`
	TID          *string              `json:"tid"`
	Type         *model.MachineType   `json:"type" binding:"omitempty,oneof=POS SOUNDBOX"`
	Model        *string              `json:"model"`
	Manufacturer *string              `json:"manufacturer"`
	Status       *model.MachineStatus `json:"status"`
	Notes        *string              `json:"notes"`
}

// UpdateMachine handles PUT /api/machines/:id. Only the fields present in
// the body change.
func (h *Handler) UpdateMachine(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req updateMachineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	machine, previous, err := h.store.UpdateMachine(c.Request.Context(), id, store.MachineUpdate{
		SerialNumber: req.SerialNumber,
		MID:          req.MID,
		TID:          req.TID,
		Type:         req.Type,
		Model:        req.Model,
		Manufacturer: req.Manufacturer,
		Status:       req.Status,
		Notes:        req.Notes,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	if previous != model.MachineAvailable && machine.Status == model.MachineAvailable {
		h.backInStock(machine.ID)
	}
	c.JSON(http.StatusOK, machine)
}

// DeleteMachine handles DELETE /api/machines/:id.
func (h *Handler) DeleteMachine(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.store.DeleteMachine(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
