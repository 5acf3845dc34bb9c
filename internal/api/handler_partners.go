package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"device-allocation-backend/internal/model"
	"device-allocation-backend/internal/store"
)

type partnerQuery struct {
	Status model.PartnerStatus `form:"status" binding:"omitempty,oneof=ACTIVE INACTIVE"`
	Search string              `form:"search"`
}

type contactRequest struct {
	Name          string              `json:"name" binding:"required"`
	CompanyName   string              `json:"companyName"`
	ContactPerson string              `json:"contactPerson"`
	Email         string              `json:"email" binding:"required,email"`
	Phone         string              `json:"phone"`
	Address       string              `json:"address"`
	City          string              `json:"city"`
	State         string              `json:"state"`
	GSTNumber     string              `json:"gstNumber"`
	Status        model.PartnerStatus `json:"status" binding:"omitempty,oneof=ACTIVE INACTIVE"`
}

func (r contactRequest) contact() model.Contact {
	return model.Contact{
		Name:          r.Name,
		CompanyName:   r.CompanyName,
		ContactPerson: r.ContactPerson,
		Email:         r.Email,
		Phone:         r.Phone,
		Address:       r.Address,
		City:          r.City,
		State:         r.State,
		GSTNumber:     r.GSTNumber,
	}
}

func bindPartnerQuery(c *gin.Context) (store.PartnerFilter, bool) {
	var q partnerQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBindError(c, err)
		return store.PartnerFilter{}, false
	}
	return store.PartnerFilter{Status: q.Status, Search: q.Search}, true
}

// ListDistributors handles GET /api/distributors.
func (h *Handler) ListDistributors(c *gin.Context) {
	f, ok := bindPartnerQuery(c)
	if !ok {
		return
	}
	distributors, err := h.store.ListDistributors(c.Request.Context(), f)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"distributors": distributors, "total": len(distributors)})
}

// GetDistributor handles GET /api/distributors/:id.
func (h *Handler) GetDistributor(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	d, err := h.store.GetDistributor(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// CreateDistributor handles POST /api/distributors.
func (h *Handler) CreateDistributor(c *gin.Context) {
	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	d, err := h.store.CreateDistributor(c.Request.Context(), store.DistributorInput{
		Contact: req.contact(),
		Status:  req.Status,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

// UpdateDistributor handles PUT /api/distributors/:id.
func (h *Handler) UpdateDistributor(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	d, err := h.store.UpdateDistributor(c.Request.Context(), id, store.DistributorInput{
		Contact: req.contact(),
		Status:  req.Status,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// DeleteDistributor handles DELETE /api/distributors/:id.
func (h *Handler) DeleteDistributor(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.store.DeleteDistributor(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type retailerRequest struct {
	contactRequest
	DistributorID *string `json:"distributorId" binding:"omitempty,uuid"`
}

func (r retailerRequest) input() (store.RetailerInput, error) {
	distributorID, err := optionalID(r.DistributorID)
	if err != nil {
		return store.RetailerInput{}, err
	}
	return store.RetailerInput{
		Contact:       r.contact(),
		DistributorID: distributorID,
		Status:        r.Status,
	}, nil
}

// ListRetailers handles GET /api/retailers.
func (h *Handler) ListRetailers(c *gin.Context) {
	f, ok := bindPartnerQuery(c)
	if !ok {
		return
	}
	if f.DistributorID, ok = queryID(c, "distributorId"); !ok {
		return
	}
	retailers, err := h.store.ListRetailers(c.Request.Context(), f)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"retailers": retailers, "total": len(retailers)})
}

// GetRetailer handles GET /api/retailers/:id.
func (h *Handler) GetRetailer(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	r, err := h.store.GetRetailer(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// CreateRetailer handles POST /api/retailers.
func (h *Handler) CreateRetailer(c *gin.Context) {
	var req retailerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	in, err := req.input()
	if err != nil {
		invalidField(c, "distributorId", "must be a UUID")
		return
	}
	r, err := h.store.CreateRetailer(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

// UpdateRetailer handles PUT /api/retailers/:id.
func (h *Handler) UpdateRetailer(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req retailerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	in, err := req.input()
	if err != nil {
		invalidField(c, "distributorId", "must be a UUID")
		return
	}
	r, err := h.store.UpdateRetailer(c.Request.Context(), id, in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// DeleteRetailer handles DELETE /api/retailers/:id.
func (h *Handler) DeleteRetailer(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.store.DeleteRetailer(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
