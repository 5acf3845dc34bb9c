package store

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"device-allocation-backend/internal/model"
)

func (s *gormStore) ListDistributors(ctx context.Context, f PartnerFilter) ([]model.Distributor, error) {
	q := partnerQuery(s.db.WithContext(ctx).Model(&model.Distributor{}), f)

	var distributors []model.Distributor
	if err := q.Order("name ASC").Find(&distributors).Error; err != nil {
		return nil, fmt.Errorf("failed to list distributors: %w", err)
	}
	return distributors, nil
}

func (s *gormStore) GetDistributor(ctx context.Context, id uuid.UUID) (*model.Distributor, error) {
	var distributor model.Distributor
	if err := s.db.WithContext(ctx).Preload("Retailers").First(&distributor, "id = ?", id).Error; err != nil {
		return nil, translate(err, "distributor", id)
	}
	return &distributor, nil
}

func (s *gormStore) CreateDistributor(ctx context.Context, in DistributorInput) (*model.Distributor, error) {
	contact, status, err := cleanPartner(in.Contact, in.Status)
	if err != nil {
		return nil, err
	}
	distributor := model.Distributor{Contact: contact, Status: status}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureEmailFree(tx, &model.Distributor{}, contact.Email, uuid.Nil); err != nil {
			return err
		}
		if err := tx.Create(&distributor).Error; err != nil {
			return duplicate(err, "email", "email already exists")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &distributor, nil
}

func (s *gormStore) UpdateDistributor(ctx context.Context, id uuid.UUID, in DistributorInput) (*model.Distributor, error) {
	contact, status, err := cleanPartner(in.Contact, in.Status)
	if err != nil {
		return nil, err
	}

	var distributor model.Distributor
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&distributor, "id = ?", id).Error; err != nil {
			return translate(err, "distributor", id)
		}
		if err := ensureEmailFree(tx, &model.Distributor{}, contact.Email, id); err != nil {
			return err
		}
		distributor.Contact = contact
		distributor.Status = status
		if err := tx.Save(&distributor).Error; err != nil {
			return duplicate(err, "email", "email already exists")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &distributor, nil
}

// DeleteDistributor refuses while machines are still assigned to the
// distributor; its retailers are unlinked, not deleted.
func (s *gormStore) DeleteDistributor(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var distributor model.Distributor
		if err := tx.First(&distributor, "id = ?", id).Error; err != nil {
			return translate(err, "distributor", id)
		}

		active, err := countActive(tx, "distributor_id = ?", id)
		if err != nil {
			return err
		}
		if active > 0 {
			return fmt.Errorf("distributor %s holds %d assigned machines: %w", distributor.Name, active, ErrConflict)
		}

		var orders int64
		if err := tx.Model(&model.Order{}).Where("distributor_id = ?", id).Count(&orders).Error; err != nil {
			return err
		}
		if orders > 0 {
			return fmt.Errorf("distributor %s has %d orders: %w", distributor.Name, orders, ErrConflict)
		}

		if err := tx.Model(&model.Retailer{}).Where("distributor_id = ?", id).
			Update("distributor_id", nil).Error; err != nil {
			return fmt.Errorf("failed to unlink retailers of distributor %s: %w", id, err)
		}
		if err := tx.Where("distributor_id = ?", id).Delete(&model.Assignment{}).Error; err != nil {
			return fmt.Errorf("failed to delete assignment history of distributor %s: %w", id, err)
		}
		return tx.Delete(&distributor).Error
	})
}

func (s *gormStore) ListRetailers(ctx context.Context, f PartnerFilter) ([]model.Retailer, error) {
	q := partnerQuery(s.db.WithContext(ctx).Model(&model.Retailer{}), f)
	if f.DistributorID != nil {
		q = q.Where("distributor_id = ?", *f.DistributorID)
	}

	var retailers []model.Retailer
	if err := q.Preload("Distributor").Order("name ASC").Find(&retailers).Error; err != nil {
		return nil, fmt.Errorf("failed to list retailers: %w", err)
	}
	return retailers, nil
}

func (s *gormStore) GetRetailer(ctx context.Context, id uuid.UUID) (*model.Retailer, error) {
	var retailer model.Retailer
	if err := s.db.WithContext(ctx).Preload("Distributor").First(&retailer, "id = ?", id).Error; err != nil {
		return nil, translate(err, "retailer", id)
	}
	return &retailer, nil
}

// CreateRetailer rejects a distributorId that does not reference an existing distributor.
func (s *gormStore) CreateRetailer(ctx context.Context, in RetailerInput) (*model.Retailer, error) {
	contact, status, err := cleanPartner(in.Contact, in.Status)
	if err != nil {
		return nil, err
	}
	retailer := model.Retailer{Contact: contact, DistributorID: in.DistributorID, Status: status}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureDistributorExists(tx, in.DistributorID); err != nil {
			return err
		}
		if err := ensureEmailFree(tx, &model.Retailer{}, contact.Email, uuid.Nil); err != nil {
			return err
		}
		if err := tx.Create(&retailer).Error; err != nil {
			return duplicate(err, "email", "email already exists")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &retailer, nil
}

// UpdateRetailer refuses to move a retailer to another distributor, or to
// unlink it, while machines are still assigned to it.
func (s *gormStore) UpdateRetailer(ctx context.Context, id uuid.UUID, in RetailerInput) (*model.Retailer, error) {
	contact, status, err := cleanPartner(in.Contact, in.Status)
	if err != nil {
		return nil, err
	}

	var retailer model.Retailer
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&retailer, "id = ?", id).Error; err != nil {
			return translate(err, "retailer", id)
		}
		if err := ensureDistributorExists(tx, in.DistributorID); err != nil {
			return err
		}
		if !sameID(retailer.DistributorID, in.DistributorID) {
			active, err := countActive(tx, "retailer_id = ?", id)
			if err != nil {
				return err
			}
			if active > 0 {
				return fmt.Errorf("retailer %s holds %d assigned machines: %w", retailer.Name, active, ErrConflict)
			}
		}
		if err := ensureEmailFree(tx, &model.Retailer{}, contact.Email, id); err != nil {
			return err
		}
		retailer.Contact = contact
		retailer.DistributorID = in.DistributorID
		retailer.Status = status
		if err := tx.Save(&retailer).Error; err != nil {
			return duplicate(err, "email", "email already exists")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &retailer, nil
}

// DeleteRetailer refuses while machines are still assigned to the retailer.
func (s *gormStore) DeleteRetailer(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var retailer model.Retailer
		if err := tx.First(&retailer, "id = ?", id).Error; err != nil {
			return translate(err, "retailer", id)
		}

		active, err := countActive(tx, "retailer_id = ?", id)
		if err != nil {
			return err
		}
		if active > 0 {
			return fmt.Errorf("retailer %s holds %d assigned machines: %w", retailer.Name, active, ErrConflict)
		}

		if err := tx.Model(&model.Assignment{}).Where("retailer_id = ?", id).
			Update("retailer_id", nil).Error; err != nil {
			return fmt.Errorf("failed to unlink assignments of retailer %s: %w", id, err)
		}
		if err := tx.Model(&model.Order{}).Where("retailer_id = ?", id).
			Update("retailer_id", nil).Error; err != nil {
			return fmt.Errorf("failed to unlink orders of retailer %s: %w", id, err)
		}
		return tx.Delete(&retailer).Error
	})
}

func partnerQuery(q *gorm.DB, f PartnerFilter) *gorm.DB {
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		p := likePattern(strings.ToLower(search))
		q = q.Where("LOWER(name) LIKE ? OR LOWER(company_name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(city) LIKE ?", p, p, p, p)
	}
	return q
}

func cleanPartner(c model.Contact, status model.PartnerStatus) (model.Contact, model.PartnerStatus, error) {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))

	fields := map[string]string{}
	if c.Name == "" {
		fields["name"] = "is required"
	}
	if c.Email == "" {
		fields["email"] = "is required"
	} else if _, err := mail.ParseAddress(c.Email); err != nil {
		fields["email"] = "is not a valid email address"
	}

	switch status {
	case "":
		status = model.PartnerActive
	case model.PartnerActive, model.PartnerInactive:
	default:
		fields["status"] = "must be ACTIVE or INACTIVE"
	}

	if len(fields) > 0 {
		return c, status, &ValidationError{Fields: fields}
	}
	return c, status, nil
}

func ensureEmailFree(tx *gorm.DB, table any, email string, except uuid.UUID) error {
	var count int64
	if err := tx.Model(table).Where("email = ? AND id <> ?", email, except).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check email: %w", err)
	}
	if count > 0 {
		return invalid("email", fmt.Sprintf("email %s already exists", email))
	}
	return nil
}

func ensureDistributorExists(tx *gorm.DB, id *uuid.UUID) error {
	if id == nil {
		return nil
	}
	var count int64
	if err := tx.Model(&model.Distributor{}).Where("id = ?", *id).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check distributor: %w", err)
	}
	if count == 0 {
		return invalid("distributorId", fmt.Sprintf("distributor %s does not exist", *id))
	}
	return nil
}

func sameID(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
