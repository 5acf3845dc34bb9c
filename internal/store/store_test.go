package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"device-allocation-backend/internal/db"
	"device-allocation-backend/internal/model"
)

// newTestStore opens a private in-memory SQLite database with every table migrated.
func newTestStore(t *testing.T) (*gormStore, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(gormDB))
	return NewGormStore(gormDB).(*gormStore), gormDB
}

// newMockDB is a helper function to create a mock database connection.
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: sqlDB,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	return gormDB, mock
}

func mustMachine(t *testing.T, s Store, serial string, typ model.MachineType) *model.Machine {
	t.Helper()
	m, err := s.CreateMachine(context.Background(), MachineInput{
		SerialNumber: serial, Type: typ, Model: "A920", Manufacturer: "PAX",
	})
	require.NoError(t, err)
	return m
}

func mustDistributor(t *testing.T, s Store, name string) *model.Distributor {
	t.Helper()
	d, err := s.CreateDistributor(context.Background(), DistributorInput{
		Contact: model.Contact{Name: name, Email: fmt.Sprintf("%s@example.com", uuid.NewString()[:8])},
	})
	require.NoError(t, err)
	return d
}

func mustRetailer(t *testing.T, s Store, name string, distributorID *uuid.UUID) *model.Retailer {
	t.Helper()
	r, err := s.CreateRetailer(context.Background(), RetailerInput{
		Contact:       model.Contact{Name: name, Email: fmt.Sprintf("%s@example.com", uuid.NewString()[:8])},
		DistributorID: distributorID,
	})
	require.NoError(t, err)
	return r
}

func assignmentCount(t *testing.T, gormDB *gorm.DB, machineID uuid.UUID, status model.AssignmentStatus) int64 {
	t.Helper()
	q := gormDB.Model(&model.Assignment{}).Where("machine_id = ?", machineID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var n int64
	require.NoError(t, q.Count(&n).Error)
	return n
}

func TestAssignmentLifecycle(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	m1 := mustMachine(t, s, "PAX-A920-0001", model.MachineTypePOS)
	d1 := mustDistributor(t, s, "Northern Payments")
	d2 := mustDistributor(t, s, "Coastal Devices")

	var a1 *model.Assignment
	t.Run("first assignment activates and marks machine assigned", func(t *testing.T) {
		var err error
		a1, err = s.CreateAssignment(ctx, m1.ID, AssignmentInput{DistributorID: d1.ID, AssignedBy: "admin"})
		require.NoError(t, err)
		assert.Equal(t, model.AssignmentActive, a1.Status)
		assert.False(t, a1.ValidFrom.IsZero(), "validFrom should default to now")

		m, err := s.GetMachine(ctx, m1.ID)
		require.NoError(t, err)
		assert.Equal(t, model.MachineAssigned, m.Status)
		assert.Equal(t, "Northern Payments", m.Partner)
		assert.Equal(t, model.PartnerB2B, m.PartnerType)
	})

	var a2 *model.Assignment
	t.Run("reassignment supersedes the active row", func(t *testing.T) {
		var err error
		a2, err = s.CreateAssignment(ctx, m1.ID, AssignmentInput{DistributorID: d2.ID, Reassign: true})
		require.NoError(t, err)
		assert.Equal(t, model.AssignmentActive, a2.Status)

		prev, err := s.GetAssignment(ctx, a1.ID)
		require.NoError(t, err)
		assert.Equal(t, model.AssignmentReassigned, prev.Status)
		assert.NotNil(t, prev.ValidTo)

		m, err := s.GetMachine(ctx, m1.ID)
		require.NoError(t, err)
		assert.Equal(t, model.MachineAssigned, m.Status)
		assert.Equal(t, "Coastal Devices", m.Partner)
	})

	t.Run("return puts the machine back in stock", func(t *testing.T) {
		got, released, err := s.UpdateAssignmentStatus(ctx, a2.ID, model.AssignmentReturned, nil)
		require.NoError(t, err)
		assert.True(t, released)
		assert.Equal(t, model.AssignmentReturned, got.Status)
		assert.NotNil(t, got.ValidTo)

		m, err := s.GetMachine(ctx, m1.ID)
		require.NoError(t, err)
		assert.Equal(t, model.MachineAvailable, m.Status)
		assert.Equal(t, model.PartnerB2C, m.PartnerType)
		assert.Equal(t, model.InStockPartner, m.Partner)
	})
}

func TestCreateAssignment_SingleActivePerMachine(t *testing.T) {
	s, gormDB := newTestStore(t)
	ctx := context.Background()

	m := mustMachine(t, s, "SBX-Q10-0001", model.MachineTypeSoundbox)
	distributors := []*model.Distributor{
		mustDistributor(t, s, "D1"), mustDistributor(t, s, "D2"), mustDistributor(t, s, "D3"),
	}

	for i, d := range distributors {
		_, err := s.CreateAssignment(ctx, m.ID, AssignmentInput{DistributorID: d.ID, Reassign: i > 0})
		require.NoError(t, err)
		assert.Equal(t, int64(1), assignmentCount(t, gormDB, m.ID, model.AssignmentActive))
	}
	assert.Equal(t, int64(2), assignmentCount(t, gormDB, m.ID, model.AssignmentReassigned))
}

func TestCreateAssignment_Rejections(t *testing.T) {
	ctx := context.Background()

	testCases := []struct {
		name  string
		setup func(t *testing.T, s *gormStore) (uuid.UUID, AssignmentInput)
		field string
	}{
		{
			name: "machine already assigned",
			setup: func(t *testing.T, s *gormStore) (uuid.UUID, AssignmentInput) {
				m := mustMachine(t, s, "PAX-0001", model.MachineTypePOS)
				d := mustDistributor(t, s, "D1")
				_, err := s.CreateAssignment(ctx, m.ID, AssignmentInput{DistributorID: d.ID})
				require.NoError(t, err)
				return m.ID, AssignmentInput{DistributorID: d.ID}
			},
			field: "machineIds",
		},
		{
			name: "machine under maintenance",
			setup: func(t *testing.T, s *gormStore) (uuid.UUID, AssignmentInput) {
				m := mustMachine(t, s, "PAX-0002", model.MachineTypePOS)
				status := model.MachineMaintenance
				_, _, err := s.UpdateMachine(ctx, m.ID, MachineUpdate{Status: &status})
				require.NoError(t, err)
				d := mustDistributor(t, s, "D1")
				return m.ID, AssignmentInput{DistributorID: d.ID, Reassign: true}
			},
			field: "machineIds",
		},
		{
			name: "unknown machine",
			setup: func(t *testing.T, s *gormStore) (uuid.UUID, AssignmentInput) {
				d := mustDistributor(t, s, "D1")
				return uuid.New(), AssignmentInput{DistributorID: d.ID}
			},
			field: "machineIds",
		},
		{
			name: "unknown distributor",
			setup: func(t *testing.T, s *gormStore) (uuid.UUID, AssignmentInput) {
				m := mustMachine(t, s, "PAX-0003", model.MachineTypePOS)
				return m.ID, AssignmentInput{DistributorID: uuid.New()}
			},
			field: "distributorId",
		},
		{
			name: "retailer of another distributor",
			setup: func(t *testing.T, s *gormStore) (uuid.UUID, AssignmentInput) {
				m := mustMachine(t, s, "PAX-0004", model.MachineTypePOS)
				d1 := mustDistributor(t, s, "D1")
				d2 := mustDistributor(t, s, "D2")
				r := mustRetailer(t, s, "R2", &d2.ID)
				return m.ID, AssignmentInput{DistributorID: d1.ID, RetailerID: &r.ID}
			},
			field: "retailerId",
		},
		{
			name: "validTo before validFrom",
			setup: func(t *testing.T, s *gormStore) (uuid.UUID, AssignmentInput) {
				m := mustMachine(t, s, "PAX-0005", model.MachineTypePOS)
				d := mustDistributor(t, s, "D1")
				now := s.now()
				before := now.Add(-1)
				return m.ID, AssignmentInput{DistributorID: d.ID, ValidFrom: now, ValidTo: &before}
			},
			field: "validTo",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s, gormDB := newTestStore(t)
			machineID, in := tc.setup(t, s)
			before := assignmentCount(t, gormDB, machineID, "")

			_, err := s.CreateAssignment(ctx, machineID, in)

			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Contains(t, ve.Fields, tc.field)
			assert.Equal(t, before, assignmentCount(t, gormDB, machineID, ""), "no rows should be written")
		})
	}
}

func TestCreateAssignment_RetailerIsB2C(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	m := mustMachine(t, s, "SBX-0001", model.MachineTypeSoundbox)
	d := mustDistributor(t, s, "Northern Payments")
	r := mustRetailer(t, s, "Sharma General Store", &d.ID)

	a, err := s.CreateAssignment(ctx, m.ID, AssignmentInput{DistributorID: d.ID, RetailerID: &r.ID})
	require.NoError(t, err)
	require.NotNil(t, a.RetailerID)
	assert.Equal(t, r.ID, *a.RetailerID)

	got, err := s.GetMachine(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sharma General Store", got.Partner)
	assert.Equal(t, model.PartnerB2C, got.PartnerType)
}

func TestBulkCreateAssignments_AllOrNothing(t *testing.T) {
	s, gormDB := newTestStore(t)
	ctx := context.Background()

	free := mustMachine(t, s, "PAX-0001", model.MachineTypePOS)
	busy := mustMachine(t, s, "PAX-0002", model.MachineTypePOS)
	d := mustDistributor(t, s, "D1")
	_, err := s.CreateAssignment(ctx, busy.ID, AssignmentInput{DistributorID: d.ID})
	require.NoError(t, err)

	_, err = s.BulkCreateAssignments(ctx, AssignmentInput{MachineIDs: []uuid.UUID{free.ID, busy.ID}, DistributorID: d.ID})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)

	m, err := s.GetMachine(ctx, free.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MachineAvailable, m.Status, "first machine must be rolled back")
	assert.Equal(t, int64(0), assignmentCount(t, gormDB, free.ID, ""))

	t.Run("duplicate ids are rejected", func(t *testing.T) {
		_, err := s.BulkCreateAssignments(ctx, AssignmentInput{MachineIDs: []uuid.UUID{free.ID, free.ID}, DistributorID: d.ID})
		require.ErrorAs(t, err, &ve)
	})

	t.Run("every machine assigned on success", func(t *testing.T) {
		other := mustMachine(t, s, "PAX-0003", model.MachineTypePOS)
		created, err := s.BulkCreateAssignments(ctx, AssignmentInput{MachineIDs: []uuid.UUID{free.ID, other.ID}, DistributorID: d.ID})
		require.NoError(t, err)
		assert.Len(t, created, 2)
		for _, a := range created {
			assert.Equal(t, model.AssignmentActive, a.Status)
			assert.Equal(t, model.MachineAssigned, a.Machine.Status)
		}
	})
}

func TestUpdateAssignmentStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("inactive releases the machine", func(t *testing.T) {
		s, _ := newTestStore(t)
		m := mustMachine(t, s, "PAX-0001", model.MachineTypePOS)
		d := mustDistributor(t, s, "D1")
		a, err := s.CreateAssignment(ctx, m.ID, AssignmentInput{DistributorID: d.ID})
		require.NoError(t, err)

		notes := "closed by ops"
		got, _, err := s.UpdateAssignmentStatus(ctx, a.ID, model.AssignmentInactive, &notes)
		require.NoError(t, err)
		assert.Equal(t, "closed by ops", got.Notes)
		assert.Equal(t, model.MachineAvailable, got.Machine.Status)
	})

	t.Run("reactivation is refused while another row is active", func(t *testing.T) {
		s, _ := newTestStore(t)
		m := mustMachine(t, s, "PAX-0001", model.MachineTypePOS)
		d := mustDistributor(t, s, "D1")
		a1, err := s.CreateAssignment(ctx, m.ID, AssignmentInput{DistributorID: d.ID})
		require.NoError(t, err)
		_, err = s.CreateAssignment(ctx, m.ID, AssignmentInput{DistributorID: d.ID, Reassign: true})
		require.NoError(t, err)

		_, _, err = s.UpdateAssignmentStatus(ctx, a1.ID, model.AssignmentActive, nil)
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("reactivation marks the machine assigned", func(t *testing.T) {
		s, _ := newTestStore(t)
		m := mustMachine(t, s, "PAX-0001", model.MachineTypePOS)
		d := mustDistributor(t, s, "D1")
		a, err := s.CreateAssignment(ctx, m.ID, AssignmentInput{DistributorID: d.ID})
		require.NoError(t, err)
		_, _, err = s.UpdateAssignmentStatus(ctx, a.ID, model.AssignmentReturned, nil)
		require.NoError(t, err)

		got, _, err := s.UpdateAssignmentStatus(ctx, a.ID, model.AssignmentActive, nil)
		require.NoError(t, err)
		assert.Nil(t, got.ValidTo)
		assert.Equal(t, model.MachineAssigned, got.Machine.Status)
		assert.Equal(t, "D1", got.Machine.Partner)
	})

	t.Run("closed rows cannot move to another closed status", func(t *testing.T) {
		s, _ := newTestStore(t)
		m := mustMachine(t, s, "PAX-0001", model.MachineTypePOS)
		d := mustDistributor(t, s, "D1")
		a1, err := s.CreateAssignment(ctx, m.ID, AssignmentInput{DistributorID: d.ID})
		require.NoError(t, err)
		a2, err := s.CreateAssignment(ctx, m.ID, AssignmentInput{DistributorID: d.ID, Reassign: true})
		require.NoError(t, err)

		_, _, err = s.UpdateAssignmentStatus(ctx, a1.ID, model.AssignmentReturned, nil)
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Contains(t, ve.Fields, "status")

		got, err := s.GetMachine(ctx, m.ID)
		require.NoError(t, err)
		assert.Equal(t, model.MachineAssigned, got.Status, "the current holder keeps the machine")

		_, released, err := s.UpdateAssignmentStatus(ctx, a2.ID, model.AssignmentReturned, nil)
		require.NoError(t, err)
		assert.True(t, released)

		_, _, err = s.UpdateAssignmentStatus(ctx, a2.ID, model.AssignmentInactive, nil)
		assert.ErrorAs(t, err, &ve)
	})

	t.Run("repeating a closed status only updates notes", func(t *testing.T) {
		s, _ := newTestStore(t)
		m := mustMachine(t, s, "PAX-0001", model.MachineTypePOS)
		d := mustDistributor(t, s, "D1")
		a, err := s.CreateAssignment(ctx, m.ID, AssignmentInput{DistributorID: d.ID})
		require.NoError(t, err)
		_, released, err := s.UpdateAssignmentStatus(ctx, a.ID, model.AssignmentReturned, nil)
		require.NoError(t, err)
		require.True(t, released)

		notes := "late paperwork"
		got, released, err := s.UpdateAssignmentStatus(ctx, a.ID, model.AssignmentReturned, &notes)
		require.NoError(t, err)
		assert.False(t, released)
		assert.Equal(t, "late paperwork", got.Notes)
	})

	t.Run("unknown status and id", func(t *testing.T) {
		s, _ := newTestStore(t)
		_, _, err := s.UpdateAssignmentStatus(ctx, uuid.New(), "LOST", nil)
		var ve *ValidationError
		assert.ErrorAs(t, err, &ve)

		_, _, err = s.UpdateAssignmentStatus(ctx, uuid.New(), model.AssignmentReturned, nil)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestDeleteAssignment(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	m := mustMachine(t, s, "PAX-0001", model.MachineTypePOS)
	d := mustDistributor(t, s, "D1")
	a1, err := s.CreateAssignment(ctx, m.ID, AssignmentInput{DistributorID: d.ID})
	require.NoError(t, err)
	a2, err := s.CreateAssignment(ctx, m.ID, AssignmentInput{DistributorID: d.ID, Reassign: true})
	require.NoError(t, err)

	deleted, err := s.DeleteAssignment(ctx, a1.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AssignmentReassigned, deleted.Status)
	got, err := s.GetMachine(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MachineAssigned, got.Status, "deleting history must not free the machine")

	deleted, err = s.DeleteAssignment(ctx, a2.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AssignmentActive, deleted.Status)
	got, err = s.GetMachine(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MachineAvailable, got.Status)

	_, err = s.DeleteAssignment(ctx, a2.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMachines(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	t.Run("identifiers are normalized and serials unique", func(t *testing.T) {
		m, err := s.CreateMachine(ctx, MachineInput{SerialNumber: "pax a920 0009", MID: " m1 ", Type: model.MachineTypePOS})
		require.NoError(t, err)
		assert.Equal(t, "PAXA9200009", m.SerialNumber)
		assert.Equal(t, "M1", m.MID)
		assert.Equal(t, model.MachineAvailable, m.Status)
		assert.Equal(t, model.InStockPartner, m.Partner)

		_, err = s.CreateMachine(ctx, MachineInput{SerialNumber: "PAXA9200009", Type: model.MachineTypeSoundbox})
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Contains(t, ve.Fields, "serialNumber")
	})

	t.Run("invalid type", func(t *testing.T) {
		_, err := s.CreateMachine(ctx, MachineInput{SerialNumber: "XYZ-1", Type: "PRINTER"})
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Contains(t, ve.Fields, "type")
	})

	t.Run("filters", func(t *testing.T) {
		mustMachine(t, s, "SBX-Q10-0001", model.MachineTypeSoundbox)
		mustMachine(t, s, "PAX-A920-0001", model.MachineTypePOS)

		all, err := s.ListMachines(ctx, MachineFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 3)

		sb, err := s.ListMachines(ctx, MachineFilter{Type: model.MachineTypeSoundbox})
		require.NoError(t, err)
		require.Len(t, sb, 1)
		assert.Equal(t, "SBX-Q10-0001", sb[0].SerialNumber)

		found, err := s.ListMachines(ctx, MachineFilter{Search: "a920-0001"})
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "PAX-A920-0001", found[0].SerialNumber)

		byMaker, err := s.ListMachines(ctx, MachineFilter{Manufacturer: "pax"})
		require.NoError(t, err)
		assert.Len(t, byMaker, 2)
	})

	t.Run("assigned machines cannot be deleted or sent to maintenance", func(t *testing.T) {
		m := mustMachine(t, s, "PAX-A920-0100", model.MachineTypePOS)
		d := mustDistributor(t, s, "D1")
		_, err := s.CreateAssignment(ctx, m.ID, AssignmentInput{DistributorID: d.ID})
		require.NoError(t, err)

		assert.ErrorIs(t, s.DeleteMachine(ctx, m.ID), ErrConflict)

		status := model.MachineMaintenance
		_, _, err = s.UpdateMachine(ctx, m.ID, MachineUpdate{Status: &status})
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("update and delete", func(t *testing.T) {
		m := mustMachine(t, s, "PAX-A920-0200", model.MachineTypePOS)
		newModel := "A920 Pro"
		got, _, err := s.UpdateMachine(ctx, m.ID, MachineUpdate{Model: &newModel})
		require.NoError(t, err)
		assert.Equal(t, "A920 Pro", got.Model)

		require.NoError(t, s.DeleteMachine(ctx, m.ID))
		_, err = s.GetMachine(ctx, m.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("update reports the previous status", func(t *testing.T) {
		m := mustMachine(t, s, "PAX-A920-0300", model.MachineTypePOS)
		maintenance, available := model.MachineMaintenance, model.MachineAvailable

		got, previous, err := s.UpdateMachine(ctx, m.ID, MachineUpdate{Status: &maintenance})
		require.NoError(t, err)
		assert.Equal(t, model.MachineAvailable, previous)
		assert.Equal(t, model.MachineMaintenance, got.Status)

		got, previous, err = s.UpdateMachine(ctx, m.ID, MachineUpdate{Status: &available})
		require.NoError(t, err)
		assert.Equal(t, model.MachineMaintenance, previous)
		assert.Equal(t, model.MachineAvailable, got.Status)

		_, previous, err = s.UpdateMachine(ctx, m.ID, MachineUpdate{Status: &available})
		require.NoError(t, err)
		assert.Equal(t, model.MachineAvailable, previous)
	})
}

func TestPartners(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	t.Run("retailer with unknown distributor is rejected", func(t *testing.T) {
		missing := uuid.New()
		_, err := s.CreateRetailer(ctx, RetailerInput{
			Contact:       model.Contact{Name: "Orphan", Email: "orphan@example.com"},
			DistributorID: &missing,
		})
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Contains(t, ve.Fields, "distributorId")
	})

	t.Run("duplicate email is rejected case-insensitively", func(t *testing.T) {
		_, err := s.CreateDistributor(ctx, DistributorInput{Contact: model.Contact{Name: "A", Email: "sales@acme.example"}})
		require.NoError(t, err)
		_, err = s.CreateDistributor(ctx, DistributorInput{Contact: model.Contact{Name: "B", Email: "Sales@ACME.example"}})
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Contains(t, ve.Fields, "email")
	})

	t.Run("missing name and bad email", func(t *testing.T) {
		_, err := s.CreateDistributor(ctx, DistributorInput{Contact: model.Contact{Email: "not-an-email"}})
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Contains(t, ve.Fields, "name")
		assert.Contains(t, ve.Fields, "email")
	})

	t.Run("distributor holding machines cannot be deleted", func(t *testing.T) {
		d := mustDistributor(t, s, "Holder")
		r := mustRetailer(t, s, "Shop", &d.ID)
		m := mustMachine(t, s, "PAX-0001", model.MachineTypePOS)
		a, err := s.CreateAssignment(ctx, m.ID, AssignmentInput{DistributorID: d.ID})
		require.NoError(t, err)

		assert.ErrorIs(t, s.DeleteDistributor(ctx, d.ID), ErrConflict)

		_, _, err = s.UpdateAssignmentStatus(ctx, a.ID, model.AssignmentReturned, nil)
		require.NoError(t, err)
		require.NoError(t, s.DeleteDistributor(ctx, d.ID))

		got, err := s.GetRetailer(ctx, r.ID)
		require.NoError(t, err)
		assert.Nil(t, got.DistributorID, "retailers are unlinked, not deleted")
	})

	t.Run("retailer holding machines keeps its distributor", func(t *testing.T) {
		d1 := mustDistributor(t, s, "Mover One")
		d2 := mustDistributor(t, s, "Mover Two")
		r := mustRetailer(t, s, "Moving Shop", &d1.ID)
		m := mustMachine(t, s, "PAX-0900", model.MachineTypePOS)
		a, err := s.CreateAssignment(ctx, m.ID, AssignmentInput{DistributorID: d1.ID, RetailerID: &r.ID})
		require.NoError(t, err)

		_, err = s.UpdateRetailer(ctx, r.ID, RetailerInput{Contact: r.Contact, DistributorID: &d2.ID})
		assert.ErrorIs(t, err, ErrConflict)
		_, err = s.UpdateRetailer(ctx, r.ID, RetailerInput{Contact: r.Contact})
		assert.ErrorIs(t, err, ErrConflict, "unlinking is a move too")

		renamed := r.Contact
		renamed.City = "Pune"
		got, err := s.UpdateRetailer(ctx, r.ID, RetailerInput{Contact: renamed, DistributorID: &d1.ID})
		require.NoError(t, err)
		assert.Equal(t, "Pune", got.City)

		_, _, err = s.UpdateAssignmentStatus(ctx, a.ID, model.AssignmentReturned, nil)
		require.NoError(t, err)
		got, err = s.UpdateRetailer(ctx, r.ID, RetailerInput{Contact: r.Contact, DistributorID: &d2.ID})
		require.NoError(t, err)
		require.NotNil(t, got.DistributorID)
		assert.Equal(t, d2.ID, *got.DistributorID)
	})

	t.Run("list retailers by distributor", func(t *testing.T) {
		d := mustDistributor(t, s, "Lister")
		mustRetailer(t, s, "Linked", &d.ID)
		mustRetailer(t, s, "Loose", nil)

		linked, err := s.ListRetailers(ctx, PartnerFilter{DistributorID: &d.ID})
		require.NoError(t, err)
		require.Len(t, linked, 1)
		assert.Equal(t, "Linked", linked[0].Name)
		require.NotNil(t, linked[0].Distributor)
		assert.Equal(t, "Lister", linked[0].Distributor.Name)
	})
}

func TestOrders(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	d := mustDistributor(t, s, "D1")

	order, err := s.CreateOrder(ctx, OrderInput{DistributorID: d.ID, MachineType: model.MachineTypeSoundbox, Quantity: 10})
	require.NoError(t, err)
	assert.Equal(t, model.OrderPending, order.Status)
	assert.Regexp(t, regexp.MustCompile(`^ORD-\d{8}-[0-9A-F]{6}$`), order.OrderNumber)

	steps := []struct {
		to      model.OrderStatus
		wantErr bool
	}{
		{model.OrderDelivered, true},
		{model.OrderApproved, false},
		{model.OrderInProgress, false},
		{model.OrderDelivered, false},
		{model.OrderCancelled, true},
	}
	for _, step := range steps {
		got, err := s.UpdateOrderStatus(ctx, order.ID, step.to, nil)
		if step.wantErr {
			var ve *ValidationError
			assert.ErrorAs(t, err, &ve, "moving to %s", step.to)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, step.to, got.Status)
	}

	t.Run("quantity must be positive", func(t *testing.T) {
		_, err := s.CreateOrder(ctx, OrderInput{DistributorID: d.ID, MachineType: model.MachineTypePOS})
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Contains(t, ve.Fields, "quantity")
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, s.DeleteOrder(ctx, order.ID))
		assert.ErrorIs(t, s.DeleteOrder(ctx, order.ID), ErrNotFound)
	})
}

func TestSubscriptions(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	m := mustMachine(t, s, "PAX-0001", model.MachineTypePOS)

	sub := model.PushSubscription{Endpoint: "https://push.example/abc", P256DH: "key", Auth: "auth"}
	require.NoError(t, s.PutSubscription(ctx, sub, []uuid.UUID{m.ID}))

	subs, err := s.SubscriptionsForMachine(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "https://push.example/abc", subs[0].Endpoint)

	err = s.PutSubscription(ctx, sub, []uuid.UUID{uuid.New()})
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)

	require.NoError(t, s.DeleteSubscription(ctx, sub.Endpoint))
	_, err = s.GetSubscription(ctx, sub.Endpoint)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSeed(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	res, err := Seed(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, SeedResult{Distributors: 2, Retailers: 2, Machines: 10}, res)

	again, err := Seed(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, SeedResult{}, again, "seeding twice must be a no-op")
}

func TestListMachines_QueryError(t *testing.T) {
	gormDB, mock := newMockDB(t)
	s := NewGormStore(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "machines"`)).
		WillReturnError(errors.New("connection reset"))

	_, err := s.ListMachines(context.Background(), MachineFilter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list machines")
	assert.NoError(t, mock.ExpectationsWereMet())
}
