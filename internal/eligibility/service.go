package eligibility

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-rental-go/internal/store"
	"github.com/ovaphlow/pitchfork/service-rental-go/pkg/metrics"
)

// Gate decides whether a new rental may begin on a unit. It fails closed.
type Gate struct {
	store   *store.Adapter
	logger  *zap.SugaredLogger
	metrics *metrics.Metrics
}

func NewGate(s *store.Adapter, logger *zap.SugaredLogger, m *metrics.Metrics) *Gate {
	return &Gate{store: s, logger: logger, metrics: m}
}

// Check evaluates the unit's maintenance standing and its open work orders.
func (g *Gate) Check(ctx context.Context, unitID string) Decision {
	d, err := g.check(ctx, unitID)
	if err != nil {
		g.logger.Warnw("eligibility check failed closed", "unit_id", unitID, "err", err)
		d = Decision{Allowed: false, Reason: ReasonSystemError}
	}
	if !d.Allowed {
		g.metrics.Denied(d.Reason)
	}
	return d
}

func (g *Gate) check(ctx context.Context, unitID string) (Decision, error) {
	doc, err := g.store.GetChecked(ctx, store.EquipmentUnits, unitID)
	if errors.Is(err, store.ErrNotFound) {
		return Decision{Allowed: false, Reason: ReasonUnitNotFound}, nil
	}
	if err != nil {
		return Decision{}, err
	}
	unit, err := store.Decode[Unit](doc)
	if err != nil {
		return Decision{}, err
	}

	if contains(blockingStatuses, unit.MaintenanceStatus) {
		return Decision{
			Allowed:           false,
			Reason:            "unit maintenance status is " + unit.MaintenanceStatus,
			MaintenanceStatus: unit.MaintenanceStatus,
		}, nil
	}

	docs, err := g.store.QueryChecked(ctx, store.WorkOrders,
		store.Eq("unit_id", unitID),
		store.In("status", openWorkOrders...),
	)
	if err != nil {
		return Decision{}, err
	}
	for _, wd := range docs {
		wo, err := store.Decode[WorkOrder](wd)
		if err != nil {
			return Decision{}, err
		}
		if contains(urgentPriorities, wo.Priority) {
			g.logger.Debugw("unit blocked by work order", "unit_id", unitID, "work_order_id", wo.ID, "priority", wo.Priority)
			return Decision{
				Allowed:           false,
				Reason:            ReasonCriticalWorkOrder,
				MaintenanceStatus: MaintenanceInRepair,
			}, nil
		}
	}

	return Decision{Allowed: true, MaintenanceStatus: unit.MaintenanceStatus}, nil
}
