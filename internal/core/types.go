// Package core exposes the roster coordination service: transactional CRUD,
// cross-entity reassignment and cascade operations, referential-integrity
// rules, storage driver selection, and the legacy work order migration.
package core

import "fieldroster/pkg/domain"

// Aliases keep service signatures concise while exposing domain types.
type (
	// Personnel aliases domain.Personnel.
	Personnel = domain.Personnel
	// Team aliases domain.Team.
	Team = domain.Team
	// WorkOrder aliases domain.WorkOrder.
	WorkOrder = domain.WorkOrder
	// TeamWithMembers aliases domain.TeamWithMembers.
	TeamWithMembers = domain.TeamWithMembers
	// Change aliases domain.Change.
	Change = domain.Change
	// Result aliases domain.Result.
	Result = domain.Result
	// Violation aliases domain.Violation.
	Violation = domain.Violation
	// RulesEngine aliases domain.RulesEngine.
	RulesEngine = domain.RulesEngine
	// EntityType aliases domain.EntityType.
	EntityType = domain.EntityType
	// Transaction aliases domain.Transaction.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView.
	TransactionView = domain.TransactionView
	// PersistentStore aliases domain.PersistentStore.
	PersistentStore = domain.PersistentStore
)

// Re-exported entity identifiers.
const (
	EntityPersonnel = domain.EntityPersonnel
	EntityTeam      = domain.EntityTeam
	EntityWorkOrder = domain.EntityWorkOrder
)

// NewRulesEngine constructs an empty rules engine.
func NewRulesEngine() *RulesEngine { return domain.NewRulesEngine() }
