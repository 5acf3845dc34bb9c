package store

import (
	"time"

	"github.com/google/uuid"

	"device-allocation-backend/internal/model"
)

// MachineFilter narrows a machine listing. Zero values match everything.
type MachineFilter struct {
	Status       model.MachineStatus
	Type         model.MachineType
	Manufacturer string
	Search       string
}

// MachineInput describes a new machine.
type MachineInput struct {
	SerialNumber string
	MID          string
	TID          string
	Type         model.MachineType
	Model        string
	Manufacturer string
	PartnerType  model.PartnerType
	Notes        string
}

// MachineUpdate carries the fields to change; nil fields are left untouched.
type MachineUpdate struct {
	SerialNumber *string
	MID          *string
	TID          *string
	Type         *model.MachineType
	Model        *string
	Manufacturer *string
	Status       *model.MachineStatus
	Notes        *string
}

// PartnerFilter narrows distributor and retailer listings.
type PartnerFilter struct {
	Status        model.PartnerStatus
	Search        string
	DistributorID *uuid.UUID // retailers only
}

// DistributorInput describes a distributor to create or replace.
type DistributorInput struct {
	model.Contact
	Status model.PartnerStatus
}

// RetailerInput describes a retailer to create or replace.
type RetailerInput struct {
	model.Contact
	DistributorID *uuid.UUID
	Status        model.PartnerStatus
}

// AssignmentFilter narrows an assignment listing.
type AssignmentFilter struct {
	Status        model.AssignmentStatus
	DistributorID *uuid.UUID
	RetailerID    *uuid.UUID
	MachineID     *uuid.UUID
	Limit         int
}

// AssignmentInput describes the assignment of one or more machines.
// Reassign lets an already ASSIGNED machine be handed to a new holder,
// superseding its active assignment; without it only AVAILABLE machines qualify.
type AssignmentInput struct {
	MachineIDs     []uuid.UUID
	DistributorID  uuid.UUID
	RetailerID     *uuid.UUID
	AssignedBy     string
	AssignedByRole string
	ValidFrom      time.Time
	ValidTo        *time.Time
	Notes          string
	Reassign       bool
}

// OrderFilter narrows an order listing.
type OrderFilter struct {
	Status        model.OrderStatus
	DistributorID *uuid.UUID
}

// OrderInput describes a new allocation order.
type OrderInput struct {
	DistributorID        uuid.UUID
	RetailerID           *uuid.UUID
	MachineType          model.MachineType
	Quantity             int
	DeliveryAddress      string
	ContactPerson        string
	ContactPhone         string
	ExpectedDeliveryDate *time.Time
	Notes                string
	CreatedBy            string
}
