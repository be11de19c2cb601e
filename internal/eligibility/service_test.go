package eligibility

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-rental-go/internal/store"
)

func newGate(t *testing.T) (*Gate, *store.MemoryRemote) {
	t.Helper()
	remote := store.NewMemoryRemote()
	adapter := store.NewAdapter(remote, store.NewMemoryLocal(), zap.NewNop().Sugar(), store.WithTimeout(50*time.Millisecond))
	return NewGate(adapter, zap.NewNop().Sugar(), nil), remote
}

func seedUnit(t *testing.T, r *store.MemoryRemote, id, status string) {
	t.Helper()
	require.NoError(t, r.Seed(store.EquipmentUnits, id, Unit{ID: id, Name: "Excavator 3t", MaintenanceStatus: status}))
}

func seedWorkOrder(t *testing.T, r *store.MemoryRemote, wo WorkOrder) {
	t.Helper()
	require.NoError(t, r.Seed(store.WorkOrders, wo.ID, wo))
}

func TestBlockingMaintenanceStatuses(t *testing.T) {
	for _, status := range []string{MaintenanceOverdue, MaintenanceCritical, MaintenanceInRepair} {
		t.Run(status, func(t *testing.T) {
			g, remote := newGate(t)
			seedUnit(t, remote, "u1", status)

			d := g.Check(context.Background(), "u1")

			assert.False(t, d.Allowed)
			assert.Equal(t, status, d.MaintenanceStatus)
			assert.Contains(t, d.Reason, status)
		})
	}
}

func TestAllowedStatuses(t *testing.T) {
	for _, status := range []string{MaintenanceReady, MaintenanceDueSoon} {
		t.Run(status, func(t *testing.T) {
			g, remote := newGate(t)
			seedUnit(t, remote, "u1", status)
			seedWorkOrder(t, remote, WorkOrder{ID: "w1", UnitID: "u1", Status: WorkOrderOpen, Priority: PriorityLow})
			seedWorkOrder(t, remote, WorkOrder{ID: "w2", UnitID: "u1", Status: WorkOrderClosed, Priority: PriorityCritical})
			seedWorkOrder(t, remote, WorkOrder{ID: "w3", UnitID: "u2", Status: WorkOrderOpen, Priority: PriorityCritical})

			d := g.Check(context.Background(), "u1")

			assert.True(t, d.Allowed)
			assert.Empty(t, d.Reason)
			assert.Equal(t, status, d.MaintenanceStatus)
		})
	}
}

func TestUnitNotFound(t *testing.T) {
	g, _ := newGate(t)

	d := g.Check(context.Background(), "ghost")

	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonUnitNotFound, d.Reason)
}

func TestUrgentOpenWorkOrderBlocks(t *testing.T) {
	for _, st := range []string{WorkOrderOpen, WorkOrderInProgress, WorkOrderWaitingParts} {
		for _, pr := range []string{PriorityHigh, PriorityCritical} {
			t.Run(st+"/"+pr, func(t *testing.T) {
				g, remote := newGate(t)
				seedUnit(t, remote, "u1", MaintenanceReady)
				seedWorkOrder(t, remote, WorkOrder{ID: "w1", UnitID: "u1", Status: st, Priority: pr})

				d := g.Check(context.Background(), "u1")

				assert.False(t, d.Allowed)
				assert.Equal(t, ReasonCriticalWorkOrder, d.Reason)
				assert.Equal(t, MaintenanceInRepair, d.MaintenanceStatus)
			})
		}
	}
}

func TestStoreErrorsFailClosed(t *testing.T) {
	t.Run("unavailable", func(t *testing.T) {
		g, remote := newGate(t)
		seedUnit(t, remote, "u1", MaintenanceReady)
		remote.SetFailure(errors.New("connection refused"))

		d := g.Check(context.Background(), "u1")
		assert.False(t, d.Allowed)
		assert.Equal(t, ReasonSystemError, d.Reason)
	})

	t.Run("timeout", func(t *testing.T) {
		g, remote := newGate(t)
		seedUnit(t, remote, "u1", MaintenanceReady)
		remote.SetHang(true)

		d := g.Check(context.Background(), "u1")
		assert.False(t, d.Allowed)
		assert.Equal(t, ReasonSystemError, d.Reason)
	})

	t.Run("undecodable unit", func(t *testing.T) {
		g, remote := newGate(t)
		require.NoError(t, remote.Seed(store.EquipmentUnits, "u1", "not an object"))

		d := g.Check(context.Background(), "u1")
		assert.False(t, d.Allowed)
		assert.Equal(t, ReasonSystemError, d.Reason)
	})
}
