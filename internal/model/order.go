package model

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus is the fulfilment state of an allocation order.
type OrderStatus string

const (
	OrderPending    OrderStatus = "PENDING"
	OrderApproved   OrderStatus = "APPROVED"
	OrderInProgress OrderStatus = "IN_PROGRESS"
	OrderDelivered  OrderStatus = "DELIVERED"
	OrderCancelled  OrderStatus = "CANCELLED"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:    {OrderApproved, OrderCancelled},
	OrderApproved:   {OrderInProgress, OrderCancelled},
	OrderInProgress: {OrderDelivered, OrderCancelled},
}

// CanTransition reports whether an order in status s may move to next.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Order records a requested allocation of machines to a partner.
type Order struct {
	Base
	OrderNumber          string      `gorm:"uniqueIndex;size:32;not null" json:"orderNumber"`
	DistributorID        uuid.UUID   `gorm:"type:uuid;not null;index" json:"distributorId"`
	RetailerID           *uuid.UUID  `gorm:"type:uuid;index" json:"retailerId"`
	MachineType          MachineType `gorm:"size:16;not null" json:"machineType"`
	Quantity             int         `gorm:"not null" json:"quantity"`
	DeliveryAddress      string      `gorm:"type:text" json:"deliveryAddress"`
	ContactPerson        string      `gorm:"size:256" json:"contactPerson"`
	ContactPhone         string      `gorm:"size:32" json:"contactPhone"`
	ExpectedDeliveryDate *time.Time  `json:"expectedDeliveryDate"`
	Notes                string      `gorm:"type:text" json:"notes,omitempty"`
	CreatedBy            string      `gorm:"size:128" json:"createdBy"`
	Status               OrderStatus `gorm:"size:16;not null;index" json:"status"`

	// Associations
	Distributor *Distributor `gorm:"constraint:OnDelete:RESTRICT" json:"distributor,omitempty"`
	Retailer    *Retailer    `gorm:"constraint:OnDelete:SET NULL" json:"retailer,omitempty"`
}
