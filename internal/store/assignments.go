package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"device-allocation-backend/internal/model"
)

func (s *gormStore) ListAssignments(ctx context.Context, f AssignmentFilter) ([]model.Assignment, error) {
	q := s.db.WithContext(ctx).Model(&model.Assignment{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.DistributorID != nil {
		q = q.Where("distributor_id = ?", *f.DistributorID)
	}
	if f.RetailerID != nil {
		q = q.Where("retailer_id = ?", *f.RetailerID)
	}
	if f.MachineID != nil {
		q = q.Where("machine_id = ?", *f.MachineID)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var assignments []model.Assignment
	if err := withParties(q).Order("created_at DESC").Find(&assignments).Error; err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	return assignments, nil
}

func (s *gormStore) GetAssignment(ctx context.Context, id uuid.UUID) (*model.Assignment, error) {
	var assignment model.Assignment
	if err := withParties(s.db.WithContext(ctx)).First(&assignment, "id = ?", id).Error; err != nil {
		return nil, translate(err, "assignment", id)
	}
	return &assignment, nil
}

// CreateAssignment hands one machine to a distributor (and optionally one of
// its retailers). Any ACTIVE assignment on the machine is superseded, the new
// ACTIVE row is inserted and the machine is marked ASSIGNED, all in one
// transaction.
func (s *gormStore) CreateAssignment(ctx context.Context, machineID uuid.UUID, in AssignmentInput) (*model.Assignment, error) {
	var created *model.Assignment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.now()
		if err := checkValidity(&in, now); err != nil {
			return err
		}
		distributor, retailer, err := resolveParties(tx, in.DistributorID, in.RetailerID)
		if err != nil {
			return err
		}
		created, err = assign(tx, machineID, in, distributor, retailer, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// BulkCreateAssignments assigns every listed machine to the same holder.
// Either all machines are assigned or, on the first failure, none are.
func (s *gormStore) BulkCreateAssignments(ctx context.Context, in AssignmentInput) ([]model.Assignment, error) {
	if len(in.MachineIDs) == 0 {
		return nil, invalid("machineIds", "at least one machine is required")
	}
	seen := make(map[uuid.UUID]struct{}, len(in.MachineIDs))
	for _, id := range in.MachineIDs {
		if _, dup := seen[id]; dup {
			return nil, invalid("machineIds", fmt.Sprintf("machine %s is listed twice", id))
		}
		seen[id] = struct{}{}
	}

	created := make([]model.Assignment, 0, len(in.MachineIDs))
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.now()
		if err := checkValidity(&in, now); err != nil {
			return err
		}
		distributor, retailer, err := resolveParties(tx, in.DistributorID, in.RetailerID)
		if err != nil {
			return err
		}
		for _, machineID := range in.MachineIDs {
			a, err := assign(tx, machineID, in, distributor, retailer, now)
			if err != nil {
				return err
			}
			created = append(created, *a)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateAssignmentStatus moves an assignment to status. Closing an ACTIVE row
// as RETURNED or INACTIVE puts the machine back in stock, ACTIVE marks it
// ASSIGNED again, REASSIGNED leaves the machine untouched. A closed row may
// only be reactivated; moving it to another closed status is refused.
// released reports whether this call put the machine back in stock.
func (s *gormStore) UpdateAssignmentStatus(ctx context.Context, id uuid.UUID, status model.AssignmentStatus, notes *string) (*model.Assignment, bool, error) {
	switch status {
	case model.AssignmentActive, model.AssignmentInactive, model.AssignmentReturned, model.AssignmentReassigned:
	default:
		return nil, false, invalid("status", "must be one of ACTIVE, INACTIVE, RETURNED, REASSIGNED")
	}

	var released bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var a model.Assignment
		if err := forUpdate(tx).First(&a, "id = ?", id).Error; err != nil {
			return translate(err, "assignment", id)
		}
		var machine model.Machine
		if err := forUpdate(tx).First(&machine, "id = ?", a.MachineID).Error; err != nil {
			return translate(err, "machine", a.MachineID)
		}

		if a.Status != model.AssignmentActive && status != model.AssignmentActive && status != a.Status {
			return invalid("status", fmt.Sprintf("assignment is already %s", a.Status))
		}

		now := s.now()
		updates := map[string]any{"status": status}
		if notes != nil {
			updates["notes"] = *notes
		}

		switch {
		case status == model.AssignmentActive && a.Status != model.AssignmentActive:
			others, err := countActive(tx, "machine_id = ? AND id <> ?", a.MachineID, a.ID)
			if err != nil {
				return err
			}
			if others > 0 {
				return fmt.Errorf("machine %s already has an active assignment: %w", machine.SerialNumber, ErrConflict)
			}
			if machine.Status == model.MachineMaintenance {
				return fmt.Errorf("machine %s is under maintenance: %w", machine.SerialNumber, ErrConflict)
			}
			distributor, retailer, err := loadParties(tx, a.DistributorID, a.RetailerID)
			if err != nil {
				return err
			}
			updates["valid_to"] = nil
			if err := markAssigned(tx, &machine, distributor, retailer); err != nil {
				return err
			}

		case status.Releases() && a.Status == model.AssignmentActive:
			if a.ValidTo == nil {
				updates["valid_to"] = now
			}
			others, err := countActive(tx, "machine_id = ? AND id <> ?", a.MachineID, a.ID)
			if err != nil {
				return err
			}
			if others == 0 && machine.Status == model.MachineAssigned {
				if err := release(tx, &machine); err != nil {
					return err
				}
				released = true
			}

		case status == model.AssignmentReassigned && a.ValidTo == nil:
			updates["valid_to"] = now
		}

		if err := tx.Model(&a).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update assignment %s: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	a, err := s.GetAssignment(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return a, released, nil
}

// DeleteAssignment removes an assignment row. The machine is put back in
// stock only when the deleted row was its active assignment; the deleted row
// is returned so callers can tell.
func (s *gormStore) DeleteAssignment(ctx context.Context, id uuid.UUID) (*model.Assignment, error) {
	var a model.Assignment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).First(&a, "id = ?", id).Error; err != nil {
			return translate(err, "assignment", id)
		}
		if err := tx.Delete(&a).Error; err != nil {
			return fmt.Errorf("failed to delete assignment %s: %w", id, err)
		}
		if a.Status != model.AssignmentActive {
			return nil
		}

		var machine model.Machine
		err := forUpdate(tx).First(&machine, "id = ?", a.MachineID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return release(tx, &machine)
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// assign runs the three writes of an assignment inside tx.
func assign(tx *gorm.DB, machineID uuid.UUID, in AssignmentInput, distributor *model.Distributor, retailer *model.Retailer, now time.Time) (*model.Assignment, error) {
	var machine model.Machine
	if err := forUpdate(tx).First(&machine, "id = ?", machineID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invalid("machineIds", fmt.Sprintf("machine %s does not exist", machineID))
		}
		return nil, err
	}

	switch {
	case machine.Status == model.MachineAvailable:
	case machine.Status == model.MachineAssigned && in.Reassign:
	default:
		return nil, invalid("machineIds", fmt.Sprintf("machine %s is %s, not AVAILABLE", machine.SerialNumber, machine.Status))
	}

	if err := tx.Model(&model.Assignment{}).
		Where("machine_id = ? AND status = ?", machineID, model.AssignmentActive).
		Updates(map[string]any{"status": model.AssignmentReassigned, "valid_to": now}).Error; err != nil {
		return nil, fmt.Errorf("failed to supersede assignments of machine %s: %w", machineID, err)
	}

	a := model.Assignment{
		MachineID:      machineID,
		DistributorID:  distributor.ID,
		Status:         model.AssignmentActive,
		ValidFrom:      in.ValidFrom,
		ValidTo:        in.ValidTo,
		AssignedBy:     in.AssignedBy,
		AssignedByRole: in.AssignedByRole,
		Notes:          in.Notes,
	}
	if retailer != nil {
		a.RetailerID = &retailer.ID
	}
	if err := tx.Omit("Machine", "Distributor", "Retailer").Create(&a).Error; err != nil {
		return nil, fmt.Errorf("failed to create assignment for machine %s: %w", machineID, err)
	}

	if err := markAssigned(tx, &machine, distributor, retailer); err != nil {
		return nil, err
	}

	a.Machine = &machine
	a.Distributor = distributor
	a.Retailer = retailer
	return &a, nil
}

// markAssigned attributes the machine to the retailer (B2C) when there is one,
// otherwise to the distributor (B2B).
func markAssigned(tx *gorm.DB, machine *model.Machine, distributor *model.Distributor, retailer *model.Retailer) error {
	machine.Status = model.MachineAssigned
	if retailer != nil {
		machine.Partner, machine.PartnerType = retailer.Name, model.PartnerB2C
	} else {
		machine.Partner, machine.PartnerType = distributor.Name, model.PartnerB2B
	}
	return saveHolder(tx, machine)
}

func release(tx *gorm.DB, machine *model.Machine) error {
	machine.Release()
	return saveHolder(tx, machine)
}

func saveHolder(tx *gorm.DB, machine *model.Machine) error {
	err := tx.Model(machine).Updates(map[string]any{
		"status":       machine.Status,
		"partner":      machine.Partner,
		"partner_type": machine.PartnerType,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to update machine %s: %w", machine.ID, err)
	}
	return nil
}

// resolveParties checks the holder of a new assignment: the distributor must
// exist and be active, and a retailer, when given, must belong to it.
func resolveParties(tx *gorm.DB, distributorID uuid.UUID, retailerID *uuid.UUID) (*model.Distributor, *model.Retailer, error) {
	if distributorID == uuid.Nil {
		return nil, nil, invalid("distributorId", "is required")
	}
	var distributor model.Distributor
	if err := tx.First(&distributor, "id = ?", distributorID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, invalid("distributorId", fmt.Sprintf("distributor %s does not exist", distributorID))
		}
		return nil, nil, err
	}
	if distributor.Status == model.PartnerInactive {
		return nil, nil, invalid("distributorId", fmt.Sprintf("distributor %s is inactive", distributor.Name))
	}

	if retailerID == nil {
		return &distributor, nil, nil
	}
	var retailer model.Retailer
	if err := tx.First(&retailer, "id = ?", *retailerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, invalid("retailerId", fmt.Sprintf("retailer %s does not exist", *retailerID))
		}
		return nil, nil, err
	}
	if retailer.DistributorID == nil || *retailer.DistributorID != distributor.ID {
		return nil, nil, invalid("retailerId", fmt.Sprintf("retailer %s does not belong to distributor %s", retailer.Name, distributor.Name))
	}
	if retailer.Status == model.PartnerInactive {
		return nil, nil, invalid("retailerId", fmt.Sprintf("retailer %s is inactive", retailer.Name))
	}
	return &distributor, &retailer, nil
}

// loadParties fetches the holder of an existing assignment without the
// checks applied to new ones.
func loadParties(tx *gorm.DB, distributorID uuid.UUID, retailerID *uuid.UUID) (*model.Distributor, *model.Retailer, error) {
	var distributor model.Distributor
	if err := tx.First(&distributor, "id = ?", distributorID).Error; err != nil {
		return nil, nil, translate(err, "distributor", distributorID)
	}
	if retailerID == nil {
		return &distributor, nil, nil
	}
	var retailer model.Retailer
	if err := tx.First(&retailer, "id = ?", *retailerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &distributor, nil, nil
		}
		return nil, nil, err
	}
	return &distributor, &retailer, nil
}

func checkValidity(in *AssignmentInput, now time.Time) error {
	if in.ValidFrom.IsZero() {
		in.ValidFrom = now
	}
	if in.ValidTo != nil && !in.ValidTo.After(in.ValidFrom) {
		return invalid("validTo", "must be after validFrom")
	}
	return nil
}

func withParties(q *gorm.DB) *gorm.DB {
	return q.Preload("Machine").Preload("Distributor").Preload("Retailer")
}
