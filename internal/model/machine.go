package model

// MachineType distinguishes card terminals from payment soundboxes.
type MachineType string

const (
	MachineTypePOS      MachineType = "POS"
	MachineTypeSoundbox MachineType = "SOUNDBOX"
)

// MachineStatus is the inventory state of a machine.
type MachineStatus string

const (
	MachineAvailable   MachineStatus = "AVAILABLE"
	MachineAssigned    MachineStatus = "ASSIGNED"
	MachineMaintenance MachineStatus = "MAINTENANCE"
)

// PartnerType labels the current holder of a machine as wholesale or end customer.
type PartnerType string

const (
	PartnerB2B PartnerType = "B2B"
	PartnerB2C PartnerType = "B2C"
)

// InStockPartner is the partner label of a machine nobody holds.
const InStockPartner = "In stock"

// Machine is a POS terminal or soundbox tracked in inventory.
// Partner and PartnerType mirror the holder of the machine's active assignment.
type Machine struct {
	Base
	SerialNumber string        `gorm:"uniqueIndex;size:64;not null" json:"serialNumber"`
	MID          string        `gorm:"column:mid;size:32;index" json:"mid"`
	TID          string        `gorm:"column:tid;size:32;index" json:"tid"`
	Type         MachineType   `gorm:"size:16;not null;index" json:"type"`
	Model        string        `gorm:"size:128" json:"model"`
	Manufacturer string        `gorm:"size:128;index" json:"manufacturer"`
	Status       MachineStatus `gorm:"size:16;not null;index" json:"status"`
	Partner      string        `gorm:"size:256;not null" json:"partner"`
	PartnerType  PartnerType   `gorm:"size:8;not null" json:"partnerType"`
	Notes        string        `gorm:"type:text" json:"notes,omitempty"`
}

// Release puts the machine back in stock.
func (m *Machine) Release() {
	m.Status = MachineAvailable
	m.Partner = InStockPartner
	m.PartnerType = PartnerB2C
}
