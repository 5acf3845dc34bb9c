package model

import "github.com/google/uuid"

// PartnerStatus marks whether a distributor or retailer is still trading.
type PartnerStatus string

const (
	PartnerActive   PartnerStatus = "ACTIVE"
	PartnerInactive PartnerStatus = "INACTIVE"
)

// Contact holds the company and contact details shared by partners.
type Contact struct {
	Name          string `gorm:"size:256;not null" json:"name"`
	CompanyName   string `gorm:"size:256" json:"companyName"`
	ContactPerson string `gorm:"size:256" json:"contactPerson"`
	Email         string `gorm:"uniqueIndex;size:256;not null" json:"email"`
	Phone         string `gorm:"size:32" json:"phone"`
	Address       string `gorm:"type:text" json:"address"`
	City          string `gorm:"size:128" json:"city"`
	State         string `gorm:"size:128" json:"state"`
	GSTNumber     string `gorm:"column:gst_number;size:32" json:"gstNumber"`
}

// Distributor receives machines wholesale.
type Distributor struct {
	Base
	Contact
	Status PartnerStatus `gorm:"size:16;not null;default:ACTIVE" json:"status"`

	// Associations
	Retailers []Retailer `gorm:"foreignKey:DistributorID" json:"retailers,omitempty"`
}

// Retailer is an end customer, optionally served through a distributor.
type Retailer struct {
	Base
	Contact
	DistributorID *uuid.UUID    `gorm:"type:uuid;index" json:"distributorId"`
	Status        PartnerStatus `gorm:"size:16;not null;default:ACTIVE" json:"status"`

	// Associations
	Distributor *Distributor `gorm:"constraint:OnDelete:SET NULL" json:"distributor,omitempty"`
}
