package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"device-allocation-backend/internal/model"
	"device-allocation-backend/internal/store"
)

type assignmentQuery struct {
	Status model.AssignmentStatus `form:"status" binding:"omitempty,oneof=ACTIVE REASSIGNED RETURNED INACTIVE"`
	Limit  int                    `form:"limit" binding:"omitempty,min=1,max=1000"`
}

// ListAssignments handles GET /api/assignments.
func (h *Handler) ListAssignments(c *gin.Context) {
	f, ok := h.assignmentFilter(c)
	if !ok {
		return
	}
	assignments, err := h.store.ListAssignments(c.Request.Context(), f)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"assignments": assignments, "total": len(assignments)})
}

func (h *Handler) assignmentFilter(c *gin.Context) (store.AssignmentFilter, bool) {
	var q assignmentQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBindError(c, err)
		return store.AssignmentFilter{}, false
	}
	f := store.AssignmentFilter{Status: q.Status, Limit: q.Limit}

	var ok bool
	if f.DistributorID, ok = queryID(c, "distributorId"); !ok {
		return f, false
	}
	if f.RetailerID, ok = queryID(c, "retailerId"); !ok {
		return f, false
	}
	if f.MachineID, ok = queryID(c, "machineId"); !ok {
		return f, false
	}
	return f, true
}

// GetAssignment handles GET /api/assignments/:id.
func (h *Handler) GetAssignment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	a, err := h.store.GetAssignment(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

type createAssignmentRequest struct {
	MachineIDs     []string   `json:"machineIds" binding:"required,min=1,dive,uuid"`
	DistributorID  string     `json:"distributorId" binding:"required,uuid"`
	RetailerID     *string    `json:"retailerId" binding:"omitempty,uuid"`
	AssignedBy     string     `json:"assignedBy"`
	AssignedByRole string     `json:"assignedByRole"`
	ValidFrom      *Timestamp `json:"validFrom"`
	ValidTo        *Timestamp `json:"validTo"`
	Notes          string     `json:"notes"`
	Reassign       bool       `json:"reassign"`
}

// CreateAssignments handles POST /api/assignments. Every listed machine is
// assigned or none is.
func (h *Handler) CreateAssignments(c *gin.Context) {
	var req createAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	machineIDs := make([]uuid.UUID, len(req.MachineIDs))
	for i, raw := range req.MachineIDs {
		machineIDs[i] = uuid.MustParse(raw)
	}
	retailerID, err := optionalID(req.RetailerID)
	if err != nil {
		invalidField(c, "retailerId", "must be a UUID")
		return
	}

	in := store.AssignmentInput{
		MachineIDs:    machineIDs,
		DistributorID: uuid.MustParse(req.DistributorID),
		RetailerID:    retailerID,
		ValidTo:       req.ValidTo.ptr(),
		Notes:         req.Notes,
		Reassign:      req.Reassign,
	}
	if from := req.ValidFrom.ptr(); from != nil {
		in.ValidFrom = *from
	}
	in.AssignedBy, in.AssignedByRole = actor(c, req.AssignedBy, req.AssignedByRole)

	assignments, err := h.store.BulkCreateAssignments(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"assignments": assignments})
}

type updateAssignmentStatusRequest struct {
	Status model.AssignmentStatus `json:"status" binding:"required,oneof=ACTIVE REASSIGNED RETURNED INACTIVE"`
	Notes  *string                `json:"notes"`
}

// UpdateAssignmentStatus handles PUT /api/assignments/:id/status.
func (h *Handler) UpdateAssignmentStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req updateAssignmentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	a, released, err := h.store.UpdateAssignmentStatus(c.Request.Context(), id, req.Status, req.Notes)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if released {
		h.backInStock(a.MachineID)
	}
	c.JSON(http.StatusOK, a)
}

// DeleteAssignment handles DELETE /api/assignments/:id.
func (h *Handler) DeleteAssignment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	a, err := h.store.DeleteAssignment(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if a.Status == model.AssignmentActive {
		h.backInStock(a.MachineID)
	}
	c.Status(http.StatusNoContent)
}
