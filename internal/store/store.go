package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"device-allocation-backend/internal/model"
)

// Store defines the interface for all database operations.
type Store interface {
	DB() *gorm.DB

	ListMachines(ctx context.Context, f MachineFilter) ([]model.Machine, error)
	GetMachine(ctx context.Context, id uuid.UUID) (*model.Machine, error)
	CreateMachine(ctx context.Context, in MachineInput) (*model.Machine, error)
	UpdateMachine(ctx context.Context, id uuid.UUID, in MachineUpdate) (*model.Machine, model.MachineStatus, error)
	DeleteMachine(ctx context.Context, id uuid.UUID) error
	MachineHistory(ctx context.Context, id uuid.UUID) ([]model.Assignment, error)

	ListDistributors(ctx context.Context, f PartnerFilter) ([]model.Distributor, error)
	GetDistributor(ctx context.Context, id uuid.UUID) (*model.Distributor, error)
	CreateDistributor(ctx context.Context, in DistributorInput) (*model.Distributor, error)
	UpdateDistributor(ctx context.Context, id uuid.UUID, in DistributorInput) (*model.Distributor, error)
	DeleteDistributor(ctx context.Context, id uuid.UUID) error

	ListRetailers(ctx context.Context, f PartnerFilter) ([]model.Retailer, error)
	GetRetailer(ctx context.Context, id uuid.UUID) (*model.Retailer, error)
	CreateRetailer(ctx context.Context, in RetailerInput) (*model.Retailer, error)
	UpdateRetailer(ctx context.Context, id uuid.UUID, in RetailerInput) (*model.Retailer, error)
	DeleteRetailer(ctx context.Context, id uuid.UUID) error

	ListAssignments(ctx context.Context, f AssignmentFilter) ([]model.Assignment, error)
	GetAssignment(ctx context.Context, id uuid.UUID) (*model.Assignment, error)
	CreateAssignment(ctx context.Context, machineID uuid.UUID, in AssignmentInput) (*model.Assignment, error)
	BulkCreateAssignments(ctx context.Context, in AssignmentInput) ([]model.Assignment, error)
	UpdateAssignmentStatus(ctx context.Context, id uuid.UUID, status model.AssignmentStatus, notes *string) (*model.Assignment, bool, error)
	DeleteAssignment(ctx context.Context, id uuid.UUID) (*model.Assignment, error)

	ListOrders(ctx context.Context, f OrderFilter) ([]model.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*model.Order, error)
	CreateOrder(ctx context.Context, in OrderInput) (*model.Order, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus, notes *string) (*model.Order, error)
	DeleteOrder(ctx context.Context, id uuid.UUID) error

	GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error)
	PutSubscription(ctx context.Context, sub model.PushSubscription, machineIDs []uuid.UUID) error
	DeleteSubscription(ctx context.Context, endpoint string) error
	SubscriptionsForMachine(ctx context.Context, machineID uuid.UUID) ([]model.PushSubscription, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// DB exposes the underlying connection for health checks and migrations.
func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// forUpdate row-locks the selected rows on dialects that support it.
// SQLite serializes writers on its own.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

func likePattern(search string) string {
	return "%" + search + "%"
}
