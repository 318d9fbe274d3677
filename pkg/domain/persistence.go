package domain

import "context"

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope.
type Transaction interface {
	Snapshot() TransactionView
	CreatePersonnel(Personnel) (Personnel, error)
	UpdatePersonnel(id string, mutator func(*Personnel) error) (Personnel, error)
	DeletePersonnel(id string) error
	CreateTeam(Team) (Team, error)
	UpdateTeam(id string, mutator func(*Team) error) (Team, error)
	DeleteTeam(id string) error
	CreateWorkOrder(WorkOrder) (WorkOrder, error)
	UpdateWorkOrder(id string, mutator func(*WorkOrder) error) (WorkOrder, error)
	DeleteWorkOrder(id string) error
	FindPersonnel(id string) (Personnel, bool)
	FindTeam(id string) (Team, bool)
	FindWorkOrder(id string) (WorkOrder, bool)
	// RecordLocation pushes a free-text location onto the most-recent-first
	// history list. Duplicates move to the front; the list is capped.
	RecordLocation(location string)
	LocationHistory() []string
	// MarkWorkOrdersMigrated sets the persisted one-time migration flag.
	MarkWorkOrdersMigrated()
	WorkOrdersMigrated() bool
}

// TransactionView provides read-only access to snapshot data for rules.
type TransactionView interface {
	ListPersonnel() []Personnel
	ListTeams() []Team
	ListWorkOrders() []WorkOrder
	FindPersonnel(id string) (Personnel, bool)
	FindTeam(id string) (Team, bool)
	FindWorkOrder(id string) (WorkOrder, bool)
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetPersonnel(id string) (Personnel, bool)
	ListPersonnel() []Personnel
	GetTeam(id string) (Team, bool)
	ListTeams() []Team
	GetWorkOrder(id string) (WorkOrder, bool)
	ListWorkOrders() []WorkOrder
	LocationHistory() []string
	WorkOrdersMigrated() bool
}
