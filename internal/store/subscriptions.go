package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"device-allocation-backend/internal/model"
)

func (s *gormStore) GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	if err := s.db.WithContext(ctx).Preload("Machines").First(&sub, "endpoint = ?", endpoint).Error; err != nil {
		return nil, translate(err, "subscription", endpoint)
	}
	return &sub, nil
}

// PutSubscription creates or replaces a subscription and its watch list.
func (s *gormStore) PutSubscription(ctx context.Context, sub model.PushSubscription, machineIDs []uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub.Machines = nil
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "endpoint"}},
			DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth"}),
		}).Create(&sub).Error; err != nil {
			return err
		}

		machines := []*model.Machine{}
		if len(machineIDs) > 0 {
			if err := tx.Where("id IN ?", machineIDs).Find(&machines).Error; err != nil {
				return err
			}
			if len(machines) != len(machineIDs) {
				return invalid("machines", "one or more machines do not exist")
			}
		}

		if err := tx.Model(&sub).Association("Machines").Replace(machines); err != nil {
			return fmt.Errorf("failed to replace watched machines: %w", err)
		}
		return nil
	})
}

func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub := model.PushSubscription{Endpoint: endpoint}
		if err := tx.Model(&sub).Association("Machines").Clear(); err != nil {
			return err
		}
		return tx.Delete(&sub).Error
	})
}

// SubscriptionsForMachine returns every subscription watching the machine.
func (s *gormStore) SubscriptionsForMachine(ctx context.Context, machineID uuid.UUID) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	err := s.db.WithContext(ctx).
		Joins("JOIN subscription_machine_mapping smm ON smm.push_subscription_endpoint = push_subscriptions.endpoint").
		Where("smm.machine_id = ?", machineID).
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch subscriptions for machine %s: %w", machineID, err)
	}
	return subs, nil
}
