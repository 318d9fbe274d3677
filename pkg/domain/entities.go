// Package domain defines the core persistent entities, value types, and
// rule evaluation primitives used by fieldroster.
package domain

import "time"

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityPersonnel identifies an individual worker record.
	EntityPersonnel EntityType = "personnel"
	// EntityTeam identifies a team record.
	EntityTeam EntityType = "team"
	// EntityWorkOrder identifies a work order record.
	EntityWorkOrder EntityType = "work_order"
)

// HelmetColor tags a worker for display and as a role signal.
type HelmetColor string

// Recognised helmet colors. Blue marks a foreman-equivalent role on some sites.
const (
	HelmetWhite         HelmetColor = "white"
	HelmetBlue          HelmetColor = "blue"
	HelmetBass          HelmetColor = "bass"
	HelmetRiggansvarlig HelmetColor = "riggansvarling"
)

// WorkStatus enumerates the shared progress states for teams and work orders.
type WorkStatus string

// Canonical progress statuses.
const (
	StatusNotStarted WorkStatus = "Not started"
	StatusInProgress WorkStatus = "In progress"
	StatusDone       WorkStatus = "Done"
	StatusOnHold     WorkStatus = "On hold"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Base contains common fields for all domain records.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Personnel represents an individual field worker.
type Personnel struct {
	Base
	Name        string      `json:"name"`
	Phone       *string     `json:"phone"`
	Discipline  string      `json:"discipline"`
	HelmetColor HelmetColor `json:"helmet_color"`
	// TeamID references the worker's team; nil means unassigned. The
	// coordinator is the only writer once a record exists.
	TeamID *string `json:"team_id"`
}

// Team represents a named crew, optionally attached to one work order.
type Team struct {
	Base
	Name       string     `json:"name"`
	Date       string     `json:"date"` // YYYY-MM-DD
	TeamLeader string     `json:"team_leader"`
	Location   string     `json:"location"`
	Tasks      string     `json:"tasks"`
	Notes      string     `json:"notes"`
	Status     WorkStatus `json:"status"`
	// WorkOrderID references the owning work order; nil means unattached.
	WorkOrderID *string `json:"work_order_id"`
	// LegacyWorkOrder carries the retired inline 4-digit work order number
	// from pre-migration snapshots. Consumed by the one-time migration.
	LegacyWorkOrder *string `json:"work_order,omitempty"`
}

// WorkOrder represents one job/contract grouping teams.
type WorkOrder struct {
	Base
	WorkOrderNumber string     `json:"work_order_number"` // 4-digit code
	Owner           string     `json:"owner"`
	Location        string     `json:"location"`
	Date            string     `json:"date"` // YYYY-MM-DD
	Status          WorkStatus `json:"status"`
	Notes           string     `json:"notes"`
}

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported CRUD operations captured in audit trail.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return "transaction blocked by rules"
}
