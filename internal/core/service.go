package core

import (
	"context"
	"fmt"
	"time"

	"fieldroster/internal/infra/persistence/memory"
	"fieldroster/pkg/domain"
)

// Service exposes higher-level transactional operations over the roster
// store. All cross-entity coordination (reassignment, cascades) runs inside a
// single store transaction so readers never observe a dangling reference.
type Service struct {
	store   PersistentStore
	logger  Logger
	audit   AuditRecorder
	metrics MetricsRecorder
	tracer  Tracer
}

// NewService constructs a service backed by the supplied store.
func NewService(store PersistentStore, opts ...ServiceOption) *Service {
	s := &Service{
		store:   store,
		logger:  noopLogger{},
		audit:   noopAuditRecorder{},
		metrics: noopMetricsRecorder{},
		tracer:  noopTracer{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewInMemoryService creates a service and in-memory store with the given rules engine.
func NewInMemoryService(engine *RulesEngine, opts ...ServiceOption) *Service {
	return NewService(memory.NewStore(engine), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() PersistentStore {
	return s.store
}

// ErrNotFound is returned when reference validation fails within transactional helpers.
type ErrNotFound struct {
	Entity EntityType
	ID     string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// run wraps a store transaction with tracing, metrics, audit, and logging.
// entityID is read after fn completes so create operations can report the
// generated identifier.
func (s *Service) run(ctx context.Context, op string, entity EntityType, entityID *string, fn func(Transaction) error) (Result, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, op)
	res, err := s.store.RunInTransaction(ctx, fn)
	span.End(err)
	s.metrics.Observe(ctx, op, err == nil, time.Since(start))

	var id string
	if entityID != nil {
		id = *entityID
	}
	status := AuditStatusSuccess
	if err != nil {
		status = AuditStatusError
		s.logger.Warn("roster operation failed", "operation", op, "entity", string(entity), "id", id, "error", err)
	} else {
		s.logger.Debug("roster operation", "operation", op, "entity", string(entity), "id", id)
	}
	s.audit.Record(ctx, AuditEntry{
		Operation: op,
		Status:    status,
		Entity:    entity,
		EntityID:  id,
		At:        time.Now().UTC(),
	})
	return res, err
}

// CreatePersonnel persists a new personnel record. The team reference is
// always nil at creation; assignment goes through MovePersonnel.
func (s *Service) CreatePersonnel(ctx context.Context, person Personnel) (Personnel, Result, error) {
	var created Personnel
	person.TeamID = nil
	res, err := s.run(ctx, "create_personnel", EntityPersonnel, &created.ID, func(tx Transaction) error {
		var err error
		created, err = tx.CreatePersonnel(person)
		return err
	})
	return created, res, err
}

// UpdatePersonnel mutates a personnel record using the provided mutator.
func (s *Service) UpdatePersonnel(ctx context.Context, id string, mutator func(*Personnel) error) (Personnel, Result, error) {
	var updated Personnel
	res, err := s.run(ctx, "update_personnel", EntityPersonnel, &id, func(tx Transaction) error {
		var err error
		updated, err = tx.UpdatePersonnel(id, mutator)
		return err
	})
	return updated, res, err
}

// DeletePersonnel removes a personnel record. Membership is a forward
// reference on the record itself, so no cascade is required.
func (s *Service) DeletePersonnel(ctx context.Context, id string) (Result, error) {
	return s.run(ctx, "delete_personnel", EntityPersonnel, &id, func(tx Transaction) error {
		return tx.DeletePersonnel(id)
	})
}

// MovePersonnel sets a worker's team reference. A nil teamID unassigns the
// worker; a non-nil target is validated inside the transaction and the move
// is rejected when the team does not exist.
func (s *Service) MovePersonnel(ctx context.Context, personID string, teamID *string) (Personnel, Result, error) {
	var updated Personnel
	res, err := s.run(ctx, "move_personnel", EntityPersonnel, &personID, func(tx Transaction) error {
		if teamID != nil {
			if _, ok := tx.FindTeam(*teamID); !ok {
				return ErrNotFound{Entity: EntityTeam, ID: *teamID}
			}
		}
		var err error
		updated, err = tx.UpdatePersonnel(personID, func(p *Personnel) error {
			p.TeamID = teamID
			return nil
		})
		return err
	})
	return updated, res, err
}

// CreateTeam persists a new team.
func (s *Service) CreateTeam(ctx context.Context, team Team) (Team, Result, error) {
	var created Team
	res, err := s.run(ctx, "create_team", EntityTeam, &created.ID, func(tx Transaction) error {
		var err error
		created, err = tx.CreateTeam(team)
		return err
	})
	return created, res, err
}

func (s *Service) updateTeamField(ctx context.Context, op, id string, mutator func(*Team) error) (Team, Result, error) {
	var updated Team
	res, err := s.run(ctx, op, EntityTeam, &id, func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateTeam(id, mutator)
		return err
	})
	return updated, res, err
}

// UpdateTeamName renames a team.
func (s *Service) UpdateTeamName(ctx context.Context, id, name string) (Team, Result, error) {
	return s.updateTeamField(ctx, "update_team_name", id, func(t *Team) error {
		t.Name = name
		return nil
	})
}

// UpdateTeamTasks replaces the team's task description.
func (s *Service) UpdateTeamTasks(ctx context.Context, id, tasks string) (Team, Result, error) {
	return s.updateTeamField(ctx, "update_team_tasks", id, func(t *Team) error {
		t.Tasks = tasks
		return nil
	})
}

// UpdateTeamLeader replaces the team leader.
func (s *Service) UpdateTeamLeader(ctx context.Context, id, leader string) (Team, Result, error) {
	return s.updateTeamField(ctx, "update_team_leader", id, func(t *Team) error {
		t.TeamLeader = leader
		return nil
	})
}

// UpdateTeamStatus replaces the team's progress status.
func (s *Service) UpdateTeamStatus(ctx context.Context, id string, status domain.WorkStatus) (Team, Result, error) {
	return s.updateTeamField(ctx, "update_team_status", id, func(t *Team) error {
		t.Status = status
		return nil
	})
}

// UpdateTeamDate replaces the team's scheduled date.
func (s *Service) UpdateTeamDate(ctx context.Context, id, date string) (Team, Result, error) {
	return s.updateTeamField(ctx, "update_team_date", id, func(t *Team) error {
		t.Date = date
		return nil
	})
}

// UpdateTeamNotes replaces the team's notes.
func (s *Service) UpdateTeamNotes(ctx context.Context, id, notes string) (Team, Result, error) {
	return s.updateTeamField(ctx, "update_team_notes", id, func(t *Team) error {
		t.Notes = notes
		return nil
	})
}

// UpdateTeamLocation replaces the team's location and records it in the
// most-recent-first location history.
func (s *Service) UpdateTeamLocation(ctx context.Context, id, location string) (Team, Result, error) {
	var updated Team
	res, err := s.run(ctx, "update_team_location", EntityTeam, &id, func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateTeam(id, func(t *Team) error {
			t.Location = location
			return nil
		})
		if err != nil {
			return err
		}
		tx.RecordLocation(location)
		return nil
	})
	return updated, res, err
}

// AttachTeamToWorkOrder sets a team's work order reference. A nil workOrderID
// detaches the team; a non-nil target is validated inside the transaction.
func (s *Service) AttachTeamToWorkOrder(ctx context.Context, teamID string, workOrderID *string) (Team, Result, error) {
	var updated Team
	res, err := s.run(ctx, "attach_team_work_order", EntityTeam, &teamID, func(tx Transaction) error {
		if workOrderID != nil {
			if _, ok := tx.FindWorkOrder(*workOrderID); !ok {
				return ErrNotFound{Entity: EntityWorkOrder, ID: *workOrderID}
			}
		}
		var err error
		updated, err = tx.UpdateTeam(teamID, func(t *Team) error {
			t.WorkOrderID = workOrderID
			return nil
		})
		return err
	})
	return updated, res, err
}

// DeleteTeamCascade removes a team after unassigning every member in the same
// transaction, so no reader ever observes a dangling membership.
func (s *Service) DeleteTeamCascade(ctx context.Context, teamID string) (Result, error) {
	return s.run(ctx, "delete_team", EntityTeam, &teamID, func(tx Transaction) error {
		if _, ok := tx.FindTeam(teamID); !ok {
			return ErrNotFound{Entity: EntityTeam, ID: teamID}
		}
		for _, person := range tx.Snapshot().ListPersonnel() {
			if person.TeamID == nil || *person.TeamID != teamID {
				continue
			}
			if _, err := tx.UpdatePersonnel(person.ID, func(p *Personnel) error {
				p.TeamID = nil
				return nil
			}); err != nil {
				return err
			}
		}
		return tx.DeleteTeam(teamID)
	})
}

// CreateTeamWithMembers creates a team and assigns the given members to it in
// one transaction. Unknown member ids are skipped; members already on another
// team are reassigned.
func (s *Service) CreateTeamWithMembers(ctx context.Context, team Team, memberIDs []string) (Team, Result, error) {
	var created Team
	res, err := s.run(ctx, "create_team_with_members", EntityTeam, &created.ID, func(tx Transaction) error {
		var err error
		created, err = tx.CreateTeam(team)
		if err != nil {
			return err
		}
		for _, memberID := range memberIDs {
			if _, ok := tx.FindPersonnel(memberID); !ok {
				continue
			}
			if _, err := tx.UpdatePersonnel(memberID, func(p *Personnel) error {
				p.TeamID = &created.ID
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	return created, res, err
}

// SwitchTeam moves every member of the from team onto the to team, then
// deletes the from team. Membership moves, so no orphan step is needed.
func (s *Service) SwitchTeam(ctx context.Context, fromTeamID, toTeamID string) (Result, error) {
	return s.run(ctx, "switch_team", EntityTeam, &fromTeamID, func(tx Transaction) error {
		if _, ok := tx.FindTeam(fromTeamID); !ok {
			return ErrNotFound{Entity: EntityTeam, ID: fromTeamID}
		}
		if _, ok := tx.FindTeam(toTeamID); !ok {
			return ErrNotFound{Entity: EntityTeam, ID: toTeamID}
		}
		for _, person := range tx.Snapshot().ListPersonnel() {
			if person.TeamID == nil || *person.TeamID != fromTeamID {
				continue
			}
			if _, err := tx.UpdatePersonnel(person.ID, func(p *Personnel) error {
				p.TeamID = &toTeamID
				return nil
			}); err != nil {
				return err
			}
		}
		return tx.DeleteTeam(fromTeamID)
	})
}

// CreateWorkOrder persists a new work order.
func (s *Service) CreateWorkOrder(ctx context.Context, order WorkOrder) (WorkOrder, Result, error) {
	var created WorkOrder
	res, err := s.run(ctx, "create_work_order", EntityWorkOrder, &created.ID, func(tx Transaction) error {
		var err error
		created, err = tx.CreateWorkOrder(order)
		return err
	})
	return created, res, err
}

func (s *Service) updateWorkOrderField(ctx context.Context, op, id string, mutator func(*WorkOrder) error) (WorkOrder, Result, error) {
	var updated WorkOrder
	res, err := s.run(ctx, op, EntityWorkOrder, &id, func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateWorkOrder(id, mutator)
		return err
	})
	return updated, res, err
}

// UpdateWorkOrderNumber replaces the work order number.
func (s *Service) UpdateWorkOrderNumber(ctx context.Context, id, number string) (WorkOrder, Result, error) {
	return s.updateWorkOrderField(ctx, "update_work_order_number", id, func(w *WorkOrder) error {
		w.WorkOrderNumber = number
		return nil
	})
}

// UpdateWorkOrderOwner replaces the responsible owner.
func (s *Service) UpdateWorkOrderOwner(ctx context.Context, id, owner string) (WorkOrder, Result, error) {
	return s.updateWorkOrderField(ctx, "update_work_order_owner", id, func(w *WorkOrder) error {
		w.Owner = owner
		return nil
	})
}

// UpdateWorkOrderDate replaces the scheduled date.
func (s *Service) UpdateWorkOrderDate(ctx context.Context, id, date string) (WorkOrder, Result, error) {
	return s.updateWorkOrderField(ctx, "update_work_order_date", id, func(w *WorkOrder) error {
		w.Date = date
		return nil
	})
}

// UpdateWorkOrderStatus replaces the progress status.
func (s *Service) UpdateWorkOrderStatus(ctx context.Context, id string, status domain.WorkStatus) (WorkOrder, Result, error) {
	return s.updateWorkOrderField(ctx, "update_work_order_status", id, func(w *WorkOrder) error {
		w.Status = status
		return nil
	})
}

// UpdateWorkOrderNotes replaces the work order notes.
func (s *Service) UpdateWorkOrderNotes(ctx context.Context, id, notes string) (WorkOrder, Result, error) {
	return s.updateWorkOrderField(ctx, "update_work_order_notes", id, func(w *WorkOrder) error {
		w.Notes = notes
		return nil
	})
}

// UpdateWorkOrderLocation replaces the location and records it in the
// location history.
func (s *Service) UpdateWorkOrderLocation(ctx context.Context, id, location string) (WorkOrder, Result, error) {
	var updated WorkOrder
	res, err := s.run(ctx, "update_work_order_location", EntityWorkOrder, &id, func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateWorkOrder(id, func(w *WorkOrder) error {
			w.Location = location
			return nil
		})
		if err != nil {
			return err
		}
		tx.RecordLocation(location)
		return nil
	})
	return updated, res, err
}

// DeleteWorkOrderCascade removes a work order after detaching every team
// still pointing at it, all within one transaction.
func (s *Service) DeleteWorkOrderCascade(ctx context.Context, workOrderID string) (Result, error) {
	return s.run(ctx, "delete_work_order", EntityWorkOrder, &workOrderID, func(tx Transaction) error {
		if _, ok := tx.FindWorkOrder(workOrderID); !ok {
			return ErrNotFound{Entity: EntityWorkOrder, ID: workOrderID}
		}
		for _, team := range tx.Snapshot().ListTeams() {
			if team.WorkOrderID == nil || *team.WorkOrderID != workOrderID {
				continue
			}
			if _, err := tx.UpdateTeam(team.ID, func(t *Team) error {
				t.WorkOrderID = nil
				return nil
			}); err != nil {
				return err
			}
		}
		return tx.DeleteWorkOrder(workOrderID)
	})
}

// Roster is the derived read model: teams with their members plus the pool of
// unassigned personnel.
type Roster struct {
	Teams      []TeamWithMembers `json:"teams"`
	Unassigned []Personnel       `json:"unassigned"`
}

// Roster projects the current membership view from a consistent snapshot.
func (s *Service) Roster(ctx context.Context) (Roster, error) {
	var roster Roster
	err := s.store.View(ctx, func(view TransactionView) error {
		personnel := view.ListPersonnel()
		roster.Teams = domain.ProjectTeams(personnel, view.ListTeams())
		roster.Unassigned = domain.UnassignedPersonnel(personnel)
		return nil
	})
	return roster, err
}

// LocationHistory returns the most-recent-first location list.
func (s *Service) LocationHistory() []string {
	return s.store.LocationHistory()
}
