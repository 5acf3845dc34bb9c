package model

import "time"

// PushSubscription holds the information for a browser push subscription
// watching a set of machines for their return to stock.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey" json:"endpoint"`
	P256DH    string    `gorm:"column:p256dh;not null" json:"p256dh"`
	Auth      string    `gorm:"not null" json:"auth"`
	CreatedAt time.Time `gorm:"not null" json:"createdAt"`

	// Associations
	Machines []*Machine `gorm:"many2many:subscription_machine_mapping;" json:"machines,omitempty"`
}
