package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"device-allocation-backend/internal/model"
)

func (s *gormStore) ListOrders(ctx context.Context, f OrderFilter) ([]model.Order, error) {
	q := s.db.WithContext(ctx).Model(&model.Order{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.DistributorID != nil {
		q = q.Where("distributor_id = ?", *f.DistributorID)
	}

	var orders []model.Order
	if err := q.Preload("Distributor").Preload("Retailer").Order("created_at DESC").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

func (s *gormStore) GetOrder(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var order model.Order
	if err := s.db.WithContext(ctx).Preload("Distributor").Preload("Retailer").First(&order, "id = ?", id).Error; err != nil {
		return nil, translate(err, "order", id)
	}
	return &order, nil
}

// CreateOrder records a PENDING allocation request. Assigning the ordered
// machines is a separate step.
func (s *gormStore) CreateOrder(ctx context.Context, in OrderInput) (*model.Order, error) {
	if err := validMachineType(in.MachineType); err != nil {
		return nil, invalid("machineType", "must be POS or SOUNDBOX")
	}
	if in.Quantity <= 0 {
		return nil, invalid("quantity", "must be greater than zero")
	}

	now := s.now()
	order := model.Order{
		OrderNumber:          orderNumber(now),
		DistributorID:        in.DistributorID,
		RetailerID:           in.RetailerID,
		MachineType:          in.MachineType,
		Quantity:             in.Quantity,
		DeliveryAddress:      strings.TrimSpace(in.DeliveryAddress),
		ContactPerson:        strings.TrimSpace(in.ContactPerson),
		ContactPhone:         strings.TrimSpace(in.ContactPhone),
		ExpectedDeliveryDate: in.ExpectedDeliveryDate,
		Notes:                in.Notes,
		CreatedBy:            in.CreatedBy,
		Status:               model.OrderPending,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, _, err := resolveParties(tx, in.DistributorID, in.RetailerID); err != nil {
			return err
		}
		return tx.Omit("Distributor", "Retailer").Create(&order).Error
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateOrderStatus advances an order along PENDING → APPROVED → IN_PROGRESS
// → DELIVERED; any non-terminal order may be CANCELLED.
func (s *gormStore) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus, notes *string) (*model.Order, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order model.Order
		if err := forUpdate(tx).First(&order, "id = ?", id).Error; err != nil {
			return translate(err, "order", id)
		}
		if !order.Status.CanTransition(status) {
			return invalid("status", fmt.Sprintf("cannot move order from %s to %s", order.Status, status))
		}

		updates := map[string]any{"status": status}
		if notes != nil {
			updates["notes"] = *notes
		}
		return tx.Model(&order).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}
	return s.GetOrder(ctx, id)
}

func (s *gormStore) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Delete(&model.Order{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete order %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound("order", id)
	}
	return nil
}

func orderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("ORD-%s-%s", now.Format("20060102"), suffix)
}
