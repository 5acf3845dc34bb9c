package model

import (
	"time"

	"github.com/google/uuid"
)

// AssignmentStatus is the lifecycle state of an assignment row.
type AssignmentStatus string

const (
	AssignmentActive     AssignmentStatus = "ACTIVE"
	AssignmentReassigned AssignmentStatus = "REASSIGNED"
	AssignmentReturned   AssignmentStatus = "RETURNED"
	AssignmentInactive   AssignmentStatus = "INACTIVE"
)

// Releases reports whether moving an assignment into s frees its machine.
func (s AssignmentStatus) Releases() bool {
	return s == AssignmentReturned || s == AssignmentInactive
}

// Assignment binds one machine to a distributor, and optionally one of its
// retailers, for a validity period.
type Assignment struct {
	Base
	MachineID      uuid.UUID        `gorm:"type:uuid;not null;index" json:"machineId"`
	DistributorID  uuid.UUID        `gorm:"type:uuid;not null;index" json:"distributorId"`
	RetailerID     *uuid.UUID       `gorm:"type:uuid;index" json:"retailerId"`
	Status         AssignmentStatus `gorm:"size:16;not null;index" json:"status"`
	ValidFrom      time.Time        `gorm:"not null" json:"validFrom"`
	ValidTo        *time.Time       `json:"validTo"`
	AssignedBy     string           `gorm:"size:128" json:"assignedBy"`
	AssignedByRole string           `gorm:"size:32" json:"assignedByRole"`
	Notes          string           `gorm:"type:text" json:"notes,omitempty"`

	// Associations
	Machine     *Machine     `gorm:"constraint:OnDelete:CASCADE" json:"machine,omitempty"`
	Distributor *Distributor `gorm:"constraint:OnDelete:RESTRICT" json:"distributor,omitempty"`
	Retailer    *Retailer    `gorm:"constraint:OnDelete:SET NULL" json:"retailer,omitempty"`
}
