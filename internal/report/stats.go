// Package report computes summary counts over fetched inventory rows.
package report

import (
	"github.com/google/uuid"

	"device-allocation-backend/internal/model"
)

// MachineStats counts machines by type and status.
// Total always equals POS+Soundbox and Available+Assigned+Maintenance.
type MachineStats struct {
	Total          int            `json:"total"`
	POS            int            `json:"pos"`
	Soundbox       int            `json:"soundbox"`
	Available      int            `json:"available"`
	Assigned       int            `json:"assigned"`
	Maintenance    int            `json:"maintenance"`
	ByManufacturer map[string]int `json:"byManufacturer"`
}

// AssignmentStats counts assignments by status.
type AssignmentStats struct {
	Total      int `json:"total"`
	Active     int `json:"active"`
	Reassigned int `json:"reassigned"`
	Returned   int `json:"returned"`
	Inactive   int `json:"inactive"`
}

// PartnerStats counts distributors and retailers.
type PartnerStats struct {
	Distributors       int `json:"distributors"`
	ActiveDistributors int `json:"activeDistributors"`
	Retailers          int `json:"retailers"`
	ActiveRetailers    int `json:"activeRetailers"`
	UnlinkedRetailers  int `json:"unlinkedRetailers"`
}

// OrderStats counts orders by status.
type OrderStats struct {
	Total    int                       `json:"total"`
	ByStatus map[model.OrderStatus]int `json:"byStatus"`
}

// CountMachines reduces machines to MachineStats. Rows with a type or status
// outside the known set are left out of every count, including Total.
func CountMachines(machines []model.Machine) MachineStats {
	st := MachineStats{ByManufacturer: map[string]int{}}
	for _, m := range machines {
		if !knownType(m.Type) || !knownStatus(m.Status) {
			continue
		}
		st.Total++

		switch m.Type {
		case model.MachineTypePOS:
			st.POS++
		case model.MachineTypeSoundbox:
			st.Soundbox++
		}

		switch m.Status {
		case model.MachineAvailable:
			st.Available++
		case model.MachineAssigned:
			st.Assigned++
		case model.MachineMaintenance:
			st.Maintenance++
		}

		maker := m.Manufacturer
		if maker == "" {
			maker = "Unknown"
		}
		st.ByManufacturer[maker]++
	}
	return st
}

// CountAssignments reduces assignments to AssignmentStats.
func CountAssignments(assignments []model.Assignment) AssignmentStats {
	var st AssignmentStats
	for _, a := range assignments {
		st.Total++
		switch a.Status {
		case model.AssignmentActive:
			st.Active++
		case model.AssignmentReassigned:
			st.Reassigned++
		case model.AssignmentReturned:
			st.Returned++
		case model.AssignmentInactive:
			st.Inactive++
		}
	}
	return st
}

// CountPartners reduces distributors and retailers to PartnerStats.
func CountPartners(distributors []model.Distributor, retailers []model.Retailer) PartnerStats {
	st := PartnerStats{Distributors: len(distributors), Retailers: len(retailers)}
	for _, d := range distributors {
		if d.Status == model.PartnerActive {
			st.ActiveDistributors++
		}
	}
	for _, r := range retailers {
		if r.Status == model.PartnerActive {
			st.ActiveRetailers++
		}
		if r.DistributorID == nil {
			st.UnlinkedRetailers++
		}
	}
	return st
}

// CountOrders reduces orders to OrderStats.
func CountOrders(orders []model.Order) OrderStats {
	st := OrderStats{Total: len(orders), ByStatus: map[model.OrderStatus]int{
		model.OrderPending:    0,
		model.OrderApproved:   0,
		model.OrderInProgress: 0,
		model.OrderDelivered:  0,
		model.OrderCancelled:  0,
	}}
	for _, o := range orders {
		st.ByStatus[o.Status]++
	}
	return st
}

// activeHoldings counts ACTIVE assignments per key.
func activeHoldings(assignments []model.Assignment, key func(model.Assignment) *uuid.UUID) map[uuid.UUID]int {
	out := map[uuid.UUID]int{}
	for _, a := range assignments {
		if a.Status != model.AssignmentActive {
			continue
		}
		if id := key(a); id != nil {
			out[*id]++
		}
	}
	return out
}

func knownType(t model.MachineType) bool {
	return t == model.MachineTypePOS || t == model.MachineTypeSoundbox
}

func knownStatus(s model.MachineStatus) bool {
	return s == model.MachineAvailable || s == model.MachineAssigned || s == model.MachineMaintenance
}
