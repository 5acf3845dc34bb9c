package store

import (
	"context"
	"fmt"

	"device-allocation-backend/internal/model"
)

// SeedResult counts the rows created by Seed.
type SeedResult struct {
	Distributors int
	Retailers    int
	Machines     int
}

// Seed fills an empty database with sample partners and inventory.
// It does nothing when any machine already exists.
func Seed(ctx context.Context, s Store) (SeedResult, error) {
	var res SeedResult

	existing, err := s.ListMachines(ctx, MachineFilter{})
	if err != nil {
		return res, err
	}
	if len(existing) > 0 {
		return res, nil
	}

	distributors := []DistributorInput{
		{Contact: model.Contact{Name: "Northern Payments", CompanyName: "Northern Payments Pvt Ltd", ContactPerson: "Asha Rao", Email: "ops@northernpay.example", Phone: "+91-9800000001", City: "Delhi", State: "Delhi"}},
		{Contact: model.Contact{Name: "Coastal Devices", CompanyName: "Coastal Devices LLP", ContactPerson: "Ravi Menon", Email: "hello@coastal.example", Phone: "+91-9800000002", City: "Kochi", State: "Kerala"}},
	}
	var created []*model.Distributor
	for _, in := range distributors {
		d, err := s.CreateDistributor(ctx, in)
		if err != nil {
			return res, fmt.Errorf("seed distributor %s: %w", in.Name, err)
		}
		created = append(created, d)
		res.Distributors++
	}

	retailers := []RetailerInput{
		{Contact: model.Contact{Name: "Sharma General Store", Email: "sharma@store.example", City: "Delhi", State: "Delhi"}, DistributorID: &created[0].ID},
		{Contact: model.Contact{Name: "Marine Drive Cafe", Email: "cafe@marine.example", City: "Kochi", State: "Kerala"}, DistributorID: &created[1].ID},
	}
	for _, in := range retailers {
		if _, err := s.CreateRetailer(ctx, in); err != nil {
			return res, fmt.Errorf("seed retailer %s: %w", in.Name, err)
		}
		res.Retailers++
	}

	for i := 1; i <= 5; i++ {
		machines := []MachineInput{
			{SerialNumber: fmt.Sprintf("PAX-A920-%04d", i), MID: fmt.Sprintf("MID%06d", i), TID: fmt.Sprintf("TID%05d", i), Type: model.MachineTypePOS, Model: "A920", Manufacturer: "PAX"},
			{SerialNumber: fmt.Sprintf("SBX-Q10-%04d", i), MID: fmt.Sprintf("MID%06d", 100+i), TID: fmt.Sprintf("TID%05d", 100+i), Type: model.MachineTypeSoundbox, Model: "Q10", Manufacturer: "Ingenico"},
		}
		for _, in := range machines {
			if _, err := s.CreateMachine(ctx, in); err != nil {
				return res, fmt.Errorf("seed machine %s: %w", in.SerialNumber, err)
			}
			res.Machines++
		}
	}
	return res, nil
}
