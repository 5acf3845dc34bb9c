package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"device-allocation-backend/internal/model"
	"device-allocation-backend/internal/store"
)

type orderQuery struct {
	Status model.OrderStatus `form:"status" binding:"omitempty,oneof=PENDING APPROVED IN_PROGRESS DELIVERED CANCELLED"`
}

// ListOrders handles GET /api/orders.
func (h *Handler) ListOrders(c *gin.Context) {
	var q orderQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBindError(c, err)
		return
	}
	f := store.OrderFilter{Status: q.Status}
	var ok bool
	if f.DistributorID, ok = queryID(c, "distributorId"); !ok {
		return
	}

	orders, err := h.store.ListOrders(c.Request.Context(), f)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "total": len(orders)})
}

// GetOrder handles GET /api/orders/:id.
func (h *Handler) GetOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	order, err := h.store.GetOrder(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

type createOrderRequest struct {
	DistributorID        string            `json:"distributorId" binding:"required,uuid"`
	RetailerID           *string           `json:"retailerId" binding:"omitempty,uuid"`
	MachineType          model.MachineType `json:"machineType" binding:"required,oneof=POS SOUNDBOX"`
	Quantity             int               `json:"quantity" binding:"required,min=1"`
	DeliveryAddress      string            `json:"deliveryAddress"`
	ContactPerson        string            `json:"contactPerson"`
	ContactPhone         string            `json:"contactPhone"`
	ExpectedDeliveryDate *Timestamp        `json:"expectedDeliveryDate"`
	Notes                string            `json:"notes"`
	CreatedBy            string            `json:"createdBy"`
}

// CreateOrder handles POST /api/orders. Orders start PENDING and do not
// assign machines by themselves.
func (h *Handler) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	retailerID, err := optionalID(req.RetailerID)
	if err != nil {
		invalidField(c, "retailerId", "must be a UUID")
		return
	}
	createdBy, _ := actor(c, req.CreatedBy, "")

	order, err := h.store.CreateOrder(c.Request.Context(), store.OrderInput{
		DistributorID:        uuid.MustParse(req.DistributorID),
		RetailerID:           retailerID,
		MachineType:          req.MachineType,
		Quantity:             req.Quantity,
		DeliveryAddress:      req.DeliveryAddress,
		ContactPerson:        req.ContactPerson,
		ContactPhone:         req.ContactPhone,
		ExpectedDeliveryDate: req.ExpectedDeliveryDate.ptr(),
		Notes:                req.Notes,
		CreatedBy:            createdBy,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

type updateOrderStatusRequest struct {
	Status model.OrderStatus `json:"status" binding:"required,oneof=PENDING APPROVED IN_PROGRESS DELIVERED CANCELLED"`
	Notes  *string           `json:"notes"`
}

// UpdateOrderStatus handles PUT /api/orders/:id/status.
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req updateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	order, err := h.store.UpdateOrderStatus(c.Request.Context(), id, req.Status, req.Notes)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// DeleteOrder handles DELETE /api/orders/:id.
func (h *Handler) DeleteOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.store.DeleteOrder(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
