package report

import (
	"context"

	"github.com/google/uuid"

	"device-allocation-backend/internal/model"
	"device-allocation-backend/internal/store"
)

const recentAssignments = 5

// Source is the subset of the store the reports read from.
type Source interface {
	ListMachines(ctx context.Context, f store.MachineFilter) ([]model.Machine, error)
	ListAssignments(ctx context.Context, f store.AssignmentFilter) ([]model.Assignment, error)
	ListDistributors(ctx context.Context, f store.PartnerFilter) ([]model.Distributor, error)
	ListRetailers(ctx context.Context, f store.PartnerFilter) ([]model.Retailer, error)
	ListOrders(ctx context.Context, f store.OrderFilter) ([]model.Order, error)
}

// Service loads full result sets and reduces them in memory.
type Service struct {
	src Source
}

// NewService creates a report service reading from src.
func NewService(src Source) *Service {
	return &Service{src: src}
}

// Dashboard is the landing page summary.
type Dashboard struct {
	Machines          MachineStats       `json:"machines"`
	Assignments       AssignmentStats    `json:"assignments"`
	Partners          PartnerStats       `json:"partners"`
	Orders            OrderStats         `json:"orders"`
	RecentAssignments []model.Assignment `json:"recentAssignments"`
}

// MachineReport lists machines with their counts.
type MachineReport struct {
	Machines []model.Machine `json:"machines"`
	Stats    MachineStats    `json:"stats"`
}

// AssignmentReport lists assignments with their counts.
type AssignmentReport struct {
	Assignments []model.Assignment `json:"assignments"`
	Stats       AssignmentStats    `json:"stats"`
}

// DistributorRow is one line of the distributor report.
type DistributorRow struct {
	model.Distributor
	RetailerCount  int `json:"retailerCount"`
	ActiveMachines int `json:"activeMachines"`
}

// RetailerRow is one line of the retailer report.
type RetailerRow struct {
	model.Retailer
	ActiveMachines int `json:"activeMachines"`
}

func (s *Service) MachineStats(ctx context.Context) (MachineStats, error) {
	machines, err := s.src.ListMachines(ctx, store.MachineFilter{})
	if err != nil {
		return MachineStats{}, err
	}
	return CountMachines(machines), nil
}

func (s *Service) AssignmentStats(ctx context.Context) (AssignmentStats, error) {
	assignments, err := s.src.ListAssignments(ctx, store.AssignmentFilter{})
	if err != nil {
		return AssignmentStats{}, err
	}
	return CountAssignments(assignments), nil
}

func (s *Service) PartnerStats(ctx context.Context) (PartnerStats, error) {
	distributors, err := s.src.ListDistributors(ctx, store.PartnerFilter{})
	if err != nil {
		return PartnerStats{}, err
	}
	retailers, err := s.src.ListRetailers(ctx, store.PartnerFilter{})
	if err != nil {
		return PartnerStats{}, err
	}
	return CountPartners(distributors, retailers), nil
}

func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	machines, err := s.MachineStats(ctx)
	if err != nil {
		return nil, err
	}
	assignments, err := s.src.ListAssignments(ctx, store.AssignmentFilter{})
	if err != nil {
		return nil, err
	}
	partners, err := s.PartnerStats(ctx)
	if err != nil {
		return nil, err
	}
	orders, err := s.src.ListOrders(ctx, store.OrderFilter{})
	if err != nil {
		return nil, err
	}

	recent := assignments
	if len(recent) > recentAssignments {
		recent = recent[:recentAssignments]
	}
	return &Dashboard{
		Machines:          machines,
		Assignments:       CountAssignments(assignments),
		Partners:          partners,
		Orders:            CountOrders(orders),
		RecentAssignments: recent,
	}, nil
}

func (s *Service) Machines(ctx context.Context, f store.MachineFilter) (*MachineReport, error) {
	machines, err := s.src.ListMachines(ctx, f)
	if err != nil {
		return nil, err
	}
	return &MachineReport{Machines: machines, Stats: CountMachines(machines)}, nil
}

func (s *Service) Assignments(ctx context.Context, f store.AssignmentFilter) (*AssignmentReport, error) {
	assignments, err := s.src.ListAssignments(ctx, f)
	if err != nil {
		return nil, err
	}
	return &AssignmentReport{Assignments: assignments, Stats: CountAssignments(assignments)}, nil
}

func (s *Service) Distributors(ctx context.Context) ([]DistributorRow, error) {
	distributors, err := s.src.ListDistributors(ctx, store.PartnerFilter{})
	if err != nil {
		return nil, err
	}
	retailers, err := s.src.ListRetailers(ctx, store.PartnerFilter{})
	if err != nil {
		return nil, err
	}
	assignments, err := s.src.ListAssignments(ctx, store.AssignmentFilter{Status: model.AssignmentActive})
	if err != nil {
		return nil, err
	}

	retailerCount := map[uuid.UUID]int{}
	for _, r := range retailers {
		if r.DistributorID != nil {
			retailerCount[*r.DistributorID]++
		}
	}
	holdings := activeHoldings(assignments, func(a model.Assignment) *uuid.UUID { return &a.DistributorID })

	rows := make([]DistributorRow, 0, len(distributors))
	for _, d := range distributors {
		rows = append(rows, DistributorRow{
			Distributor:    d,
			RetailerCount:  retailerCount[d.ID],
			ActiveMachines: holdings[d.ID],
		})
	}
	return rows, nil
}

func (s *Service) Retailers(ctx context.Context) ([]RetailerRow, error) {
	retailers, err := s.src.ListRetailers(ctx, store.PartnerFilter{})
	if err != nil {
		return nil, err
	}
	assignments, err := s.src.ListAssignments(ctx, store.AssignmentFilter{Status: model.AssignmentActive})
	if err != nil {
		return nil, err
	}

	holdings := activeHoldings(assignments, func(a model.Assignment) *uuid.UUID { return a.RetailerID })

	rows := make([]RetailerRow, 0, len(retailers))
	for _, r := range retailers {
		rows = append(rows, RetailerRow{Retailer: r, ActiveMachines: holdings[r.ID]})
	}
	return rows, nil
}
