package eligibility

// Maintenance statuses of an equipment unit.
const (
	MaintenanceReady    = "Ready"
	MaintenanceDueSoon  = "Due-Soon"
	MaintenanceOverdue  = "Overdue"
	MaintenanceCritical = "Critical"
	MaintenanceInRepair = "In-Repair"
)

// Work order statuses and priorities.
const (
	WorkOrderOpen         = "Open"
	WorkOrderInProgress   = "In-Progress"
	WorkOrderWaitingParts = "Waiting-Parts"
	WorkOrderClosed       = "Closed"

	PriorityLow      = "Low"
	PriorityMedium   = "Medium"
	PriorityHigh     = "High"
	PriorityCritical = "Critical"
)

// Denial reasons.
const (
	ReasonUnitNotFound      = "unit not found"
	ReasonCriticalWorkOrder = "active critical work order"
	ReasonSystemError       = "system error during eligibility check"
)

// Unit is an equipment unit as read from the unit directory.
type Unit struct {
	ID                string `json:"id"`
	Name              string `json:"name,omitempty"`
	MaintenanceStatus string `json:"maintenance_status"`
}

// WorkOrder is a maintenance job against a unit.
type WorkOrder struct {
	ID       string `json:"id"`
	UnitID   string `json:"unit_id"`
	Status   string `json:"status"`
	Priority string `json:"priority"`
}

// Decision is the result of an eligibility check.
type Decision struct {
	Allowed           bool   `json:"allowed"`
	Reason            string `json:"reason,omitempty"`
	MaintenanceStatus string `json:"maintenance_status,omitempty"`
}

var (
	blockingStatuses = []string{MaintenanceOverdue, MaintenanceCritical, MaintenanceInRepair}
	openWorkOrders   = []string{WorkOrderOpen, WorkOrderInProgress, WorkOrderWaitingParts}
	urgentPriorities = []string{PriorityHigh, PriorityCritical}
)

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
