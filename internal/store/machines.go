package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"device-allocation-backend/internal/model"
	"device-allocation-backend/internal/parse"
)

func (s *gormStore) ListMachines(ctx context.Context, f MachineFilter) ([]model.Machine, error) {
	q := s.db.WithContext(ctx).Model(&model.Machine{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.Manufacturer != "" {
		q = q.Where("LOWER(manufacturer) = ?", strings.ToLower(f.Manufacturer))
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		p := likePattern(strings.ToLower(search))
		q = q.Where("LOWER(serial_number) LIKE ? OR LOWER(mid) LIKE ? OR LOWER(tid) LIKE ? OR LOWER(model) LIKE ?", p, p, p, p)
	}

	var machines []model.Machine
	if err := q.Order("created_at DESC").Find(&machines).Error; err != nil {
		return nil, fmt.Errorf("failed to list machines: %w", err)
	}
	return machines, nil
}

func (s *gormStore) GetMachine(ctx context.Context, id uuid.UUID) (*model.Machine, error) {
	var machine model.Machine
	if err := s.db.WithContext(ctx).First(&machine, "id = ?", id).Error; err != nil {
		return nil, translate(err, "machine", id)
	}
	return &machine, nil
}

// CreateMachine normalizes identifiers and inserts an AVAILABLE machine.
func (s *gormStore) CreateMachine(ctx context.Context, in MachineInput) (*model.Machine, error) {
	ids, err := parse.ParseIdentifiers(in.SerialNumber, in.MID, in.TID)
	if err != nil {
		return nil, fieldError(err)
	}
	if err := validMachineType(in.Type); err != nil {
		return nil, err
	}

	partnerType := in.PartnerType
	if partnerType == "" {
		partnerType = model.PartnerB2C
	}
	if partnerType != model.PartnerB2B && partnerType != model.PartnerB2C {
		return nil, invalid("partnerType", "must be B2B or B2C")
	}

	machine := model.Machine{
		SerialNumber: ids.Serial,
		MID:          ids.MID,
		TID:          ids.TID,
		Type:         in.Type,
		Model:        strings.TrimSpace(in.Model),
		Manufacturer: strings.TrimSpace(in.Manufacturer),
		Status:       model.MachineAvailable,
		Partner:      model.InStockPartner,
		PartnerType:  partnerType,
		Notes:        in.Notes,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureSerialFree(tx, machine.SerialNumber, uuid.Nil); err != nil {
			return err
		}
		if err := tx.Create(&machine).Error; err != nil {
			return duplicate(err, "serialNumber", "serial number already exists")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &machine, nil
}

// UpdateMachine applies a partial update and returns the machine together with
// the status it had before, read under the same row lock. Status may only move
// between AVAILABLE and MAINTENANCE here; ASSIGNED is owned by the assignment
// lifecycle.
func (s *gormStore) UpdateMachine(ctx context.Context, id uuid.UUID, in MachineUpdate) (*model.Machine, model.MachineStatus, error) {
	var machine model.Machine
	var previous model.MachineStatus
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).First(&machine, "id = ?", id).Error; err != nil {
			return translate(err, "machine", id)
		}
		previous = machine.Status

		updates := map[string]any{}
		if in.SerialNumber != nil {
			serial, err := parse.Serial(*in.SerialNumber)
			if err != nil {
				return fieldError(err)
			}
			if serial != machine.SerialNumber {
				if err := ensureSerialFree(tx, serial, machine.ID); err != nil {
					return err
				}
				updates["serial_number"] = serial
			}
		}
		if in.MID != nil {
			mid, err := parse.Code("mid", *in.MID)
			if err != nil {
				return fieldError(err)
			}
			updates["mid"] = mid
		}
		if in.TID != nil {
			tid, err := parse.Code("tid", *in.TID)
			if err != nil {
				return fieldError(err)
			}
			updates["tid"] = tid
		}
		if in.Type != nil {
			if err := validMachineType(*in.Type); err != nil {
				return err
			}
			updates["type"] = *in.Type
		}
		if in.Model != nil {
			updates["model"] = strings.TrimSpace(*in.Model)
		}
		if in.Manufacturer != nil {
			updates["manufacturer"] = strings.TrimSpace(*in.Manufacturer)
		}
		if in.Notes != nil {
			updates["notes"] = *in.Notes
		}
		if in.Status != nil && *in.Status != machine.Status {
			if err := checkManualStatus(machine, *in.Status); err != nil {
				return err
			}
			updates["status"] = *in.Status
		}

		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&machine).Updates(updates).Error; err != nil {
			return duplicate(err, "serialNumber", "serial number already exists")
		}
		return tx.First(&machine, "id = ?", id).Error
	})
	if err != nil {
		return nil, "", err
	}
	return &machine, previous, nil
}

// DeleteMachine removes a machine and its assignment history. A machine that
// is still out with a holder must be returned first.
func (s *gormStore) DeleteMachine(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var machine model.Machine
		if err := forUpdate(tx).First(&machine, "id = ?", id).Error; err != nil {
			return translate(err, "machine", id)
		}

		active, err := countActive(tx, "machine_id = ?", id)
		if err != nil {
			return err
		}
		if active > 0 {
			return fmt.Errorf("machine %s has an active assignment: %w", machine.SerialNumber, ErrConflict)
		}

		if err := tx.Where("machine_id = ?", id).Delete(&model.Assignment{}).Error; err != nil {
			return fmt.Errorf("failed to delete assignment history of machine %s: %w", id, err)
		}
		if err := tx.Exec("DELETE FROM subscription_machine_mapping WHERE machine_id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete subscriptions of machine %s: %w", id, err)
		}
		return tx.Delete(&machine).Error
	})
}

// MachineHistory returns every assignment of a machine, newest first.
func (s *gormStore) MachineHistory(ctx context.Context, id uuid.UUID) ([]model.Assignment, error) {
	if _, err := s.GetMachine(ctx, id); err != nil {
		return nil, err
	}
	return s.ListAssignments(ctx, AssignmentFilter{MachineID: &id})
}

func ensureSerialFree(tx *gorm.DB, serial string, except uuid.UUID) error {
	var count int64
	if err := tx.Model(&model.Machine{}).
		Where("serial_number = ? AND id <> ?", serial, except).
		Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check serial number: %w", err)
	}
	if count > 0 {
		return invalid("serialNumber", fmt.Sprintf("serial number %s already exists", serial))
	}
	return nil
}

func validMachineType(t model.MachineType) error {
	if t != model.MachineTypePOS && t != model.MachineTypeSoundbox {
		return invalid("type", "must be POS or SOUNDBOX")
	}
	return nil
}

func checkManualStatus(machine model.Machine, next model.MachineStatus) error {
	switch next {
	case model.MachineAvailable, model.MachineMaintenance:
	case model.MachineAssigned:
		return invalid("status", "machines are assigned through assignments")
	default:
		return invalid("status", "must be AVAILABLE or MAINTENANCE")
	}
	if machine.Status == model.MachineAssigned {
		return fmt.Errorf("machine %s is assigned; return it first: %w", machine.SerialNumber, ErrConflict)
	}
	return nil
}

func countActive(tx *gorm.DB, query string, args ...any) (int64, error) {
	var count int64
	err := tx.Model(&model.Assignment{}).
		Where("status = ?", model.AssignmentActive).
		Where(query, args...).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count active assignments: %w", err)
	}
	return count, nil
}
