// Package memory provides an in-memory implementation of the roster
// persistence store used for tests and ephemeral environments.
package memory

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fieldroster/pkg/domain"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain persistence interfaces.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Personnel aliases domain.Personnel for in-memory persistence operations.
	Personnel = domain.Personnel
	// Team aliases domain.Team.
	Team = domain.Team
	// WorkOrder aliases domain.WorkOrder.
	WorkOrder = domain.WorkOrder
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
	// PersistentStore aliases domain.PersistentStore abstraction.
	PersistentStore = domain.PersistentStore
)

// locationHistoryLimit caps the most-recent-first location list.
const locationHistoryLimit = 20

type memoryState struct {
	personnel  map[string]Personnel
	teams      map[string]Team
	workOrders map[string]WorkOrder
	locations  []string
	meta       Meta
}

// Meta carries snapshot-level flags persisted alongside the entity buckets.
type Meta struct {
	WorkOrdersMigrated bool `json:"work_orders_migrated"`
}

// Snapshot captures a point-in-time clone of the store state.
type Snapshot struct {
	Personnel  map[string]Personnel `json:"personnel"`
	Teams      map[string]Team      `json:"teams"`
	WorkOrders map[string]WorkOrder `json:"work_orders"`
	Locations  []string             `json:"locations"`
	Meta       Meta                 `json:"meta"`
}

func newMemoryState() memoryState {
	return memoryState{
		personnel:  make(map[string]Personnel),
		teams:      make(map[string]Team),
		workOrders: make(map[string]WorkOrder),
	}
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	s := Snapshot{
		Personnel:  make(map[string]Personnel, len(state.personnel)),
		Teams:      make(map[string]Team, len(state.teams)),
		WorkOrders: make(map[string]WorkOrder, len(state.workOrders)),
		Locations:  append([]string(nil), state.locations...),
		Meta:       state.meta,
	}
	for k, v := range state.personnel {
		s.Personnel[k] = clonePersonnel(v)
	}
	for k, v := range state.teams {
		s.Teams[k] = cloneTeam(v)
	}
	for k, v := range state.workOrders {
		s.WorkOrders[k] = cloneWorkOrder(v)
	}
	return s
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := newMemoryState()
	for k, v := range s.Personnel {
		state.personnel[k] = clonePersonnel(v)
	}
	for k, v := range s.Teams {
		state.teams[k] = cloneTeam(v)
	}
	for k, v := range s.WorkOrders {
		state.workOrders[k] = cloneWorkOrder(v)
	}
	state.locations = append([]string(nil), s.Locations...)
	state.meta = s.Meta
	return state
}

// migrateSnapshot repairs legacy persisted state on import: nil maps become
// empty maps, dangling team and work order references are clamped to nil, and
// the location history is deduplicated and capped.
func migrateSnapshot(snapshot Snapshot) Snapshot {
	if snapshot.Personnel == nil {
		snapshot.Personnel = map[string]Personnel{}
	}
	if snapshot.Teams == nil {
		snapshot.Teams = map[string]Team{}
	}
	if snapshot.WorkOrders == nil {
		snapshot.WorkOrders = map[string]WorkOrder{}
	}

	teamExists := func(id string) bool {
		_, ok := snapshot.Teams[id]
		return ok
	}
	workOrderExists := func(id string) bool {
		_, ok := snapshot.WorkOrders[id]
		return ok
	}

	for id, person := range snapshot.Personnel {
		if person.TeamID != nil && !teamExists(*person.TeamID) {
			person.TeamID = nil
		}
		snapshot.Personnel[id] = person
	}

	for id, team := range snapshot.Teams {
		if team.WorkOrderID != nil && !workOrderExists(*team.WorkOrderID) {
			team.WorkOrderID = nil
		}
		if team.Status == "" {
			team.Status = domain.StatusNotStarted
		}
		snapshot.Teams[id] = team
	}

	snapshot.Locations = normalizeLocations(snapshot.Locations)
	return snapshot
}

// normalizeLocations drops empties, deduplicates keeping the first
// occurrence, and caps the list.
func normalizeLocations(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
		if len(out) == locationHistoryLimit {
			break
		}
	}
	return out
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for k, v := range s.personnel {
		cloned.personnel[k] = clonePersonnel(v)
	}
	for k, v := range s.teams {
		cloned.teams[k] = cloneTeam(v)
	}
	for k, v := range s.workOrders {
		cloned.workOrders[k] = cloneWorkOrder(v)
	}
	cloned.locations = append([]string(nil), s.locations...)
	cloned.meta = s.meta
	return cloned
}

func clonePersonnel(p Personnel) Personnel {
	cp := p
	if p.Phone != nil {
		v := *p.Phone
		cp.Phone = &v
	}
	if p.TeamID != nil {
		v := *p.TeamID
		cp.TeamID = &v
	}
	return cp
}

func cloneTeam(t Team) Team {
	cp := t
	if t.WorkOrderID != nil {
		v := *t.WorkOrderID
		cp.WorkOrderID = &v
	}
	if t.LegacyWorkOrder != nil {
		v := *t.LegacyWorkOrder
		cp.LegacyWorkOrder = &v
	}
	return cp
}

func cloneWorkOrder(w WorkOrder) WorkOrder { return w }

// Store provides an in-memory transactional store for the roster domain.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) newID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b[:])
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(migrateSnapshot(snapshot))
}

// RulesEngine exposes the currently configured engine for integration points.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// SetNowFunc overrides the time provider. Intended for tests.
func (s *Store) SetNowFunc(fn func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nowFn = fn
}

// NowFunc returns the time provider used by the in-memory store.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

type transaction struct {
	store   *Store
	state   memoryState
	changes []Change
	now     time.Time
}

type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return transactionView{state: state}
}

// ListPersonnel returns all personnel in the snapshot, sorted by name.
func (v transactionView) ListPersonnel() []Personnel {
	return sortedPersonnel(v.state)
}

// ListTeams returns all teams in the snapshot, sorted by name.
func (v transactionView) ListTeams() []Team {
	return sortedTeams(v.state)
}

// ListWorkOrders returns all work orders, sorted by work order number.
func (v transactionView) ListWorkOrders() []WorkOrder {
	return sortedWorkOrders(v.state)
}

// FindPersonnel retrieves a personnel record by ID from the snapshot.
func (v transactionView) FindPersonnel(id string) (Personnel, bool) {
	p, ok := v.state.personnel[id]
	if !ok {
		return Personnel{}, false
	}
	return clonePersonnel(p), true
}

// FindTeam retrieves a team by ID from the snapshot.
func (v transactionView) FindTeam(id string) (Team, bool) {
	t, ok := v.state.teams[id]
	if !ok {
		return Team{}, false
	}
	return cloneTeam(t), true
}

// FindWorkOrder retrieves a work order by ID from the snapshot.
func (v transactionView) FindWorkOrder(id string) (WorkOrder, bool) {
	w, ok := v.state.workOrders[id]
	if !ok {
		return WorkOrder{}, false
	}
	return cloneWorkOrder(w), true
}

func sortedPersonnel(state *memoryState) []Personnel {
	out := make([]Personnel, 0, len(state.personnel))
	for _, p := range state.personnel {
		out = append(out, clonePersonnel(p))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func sortedTeams(state *memoryState) []Team {
	out := make([]Team, 0, len(state.teams))
	for _, t := range state.teams {
		out = append(out, cloneTeam(t))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func sortedWorkOrders(state *memoryState) []WorkOrder {
	out := make([]WorkOrder, 0, len(state.workOrders))
	for _, w := range state.workOrders {
		out = append(out, cloneWorkOrder(w))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].WorkOrderNumber != out[j].WorkOrderNumber {
			return out[i].WorkOrderNumber < out[j].WorkOrderNumber
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// RunInTransaction executes fn within a transactional copy of the store state.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := newTransactionView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	view := newTransactionView(&snapshot)
	return fn(view)
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state)
}

// FindPersonnel exposes personnel lookup within the transaction scope.
func (tx *transaction) FindPersonnel(id string) (Personnel, bool) {
	p, ok := tx.state.personnel[id]
	if !ok {
		return Personnel{}, false
	}
	return clonePersonnel(p), true
}

// FindTeam exposes team lookup within the transaction scope.
func (tx *transaction) FindTeam(id string) (Team, bool) {
	t, ok := tx.state.teams[id]
	if !ok {
		return Team{}, false
	}
	return cloneTeam(t), true
}

// FindWorkOrder exposes work order lookup within the transaction scope.
func (tx *transaction) FindWorkOrder(id string) (WorkOrder, bool) {
	w, ok := tx.state.workOrders[id]
	if !ok {
		return WorkOrder{}, false
	}
	return cloneWorkOrder(w), true
}

// RecordLocation pushes a location onto the most-recent-first history.
func (tx *transaction) RecordLocation(location string) {
	if location == "" {
		return
	}
	tx.state.locations = normalizeLocations(append([]string{location}, tx.state.locations...))
}

// LocationHistory returns the location history within the transaction.
func (tx *transaction) LocationHistory() []string {
	return append([]string(nil), tx.state.locations...)
}

// MarkWorkOrdersMigrated sets the one-time migration flag.
func (tx *transaction) MarkWorkOrdersMigrated() {
	tx.state.meta.WorkOrdersMigrated = true
}

// WorkOrdersMigrated reports the migration flag within the transaction.
func (tx *transaction) WorkOrdersMigrated() bool {
	return tx.state.meta.WorkOrdersMigrated
}

// CreatePersonnel stores a new personnel record within the transaction.
func (tx *transaction) CreatePersonnel(p Personnel) (Personnel, error) {
	if p.ID == "" {
		p.ID = tx.store.newID()
	}
	if _, exists := tx.state.personnel[p.ID]; exists {
		return Personnel{}, fmt.Errorf("personnel %q already exists", p.ID)
	}
	if p.Name == "" {
		return Personnel{}, errors.New("personnel requires a name")
	}
	p.CreatedAt = tx.now
	p.UpdatedAt = tx.now
	tx.state.personnel[p.ID] = clonePersonnel(p)
	tx.recordChange(Change{Entity: domain.EntityPersonnel, Action: domain.ActionCreate, After: clonePersonnel(p)})
	return clonePersonnel(p), nil
}

// UpdatePersonnel mutates a personnel record using the provided mutator.
func (tx *transaction) UpdatePersonnel(id string, mutator func(*Personnel) error) (Personnel, error) {
	current, ok := tx.state.personnel[id]
	if !ok {
		return Personnel{}, fmt.Errorf("personnel %q not found", id)
	}
	before := clonePersonnel(current)
	if err := mutator(&current); err != nil {
		return Personnel{}, err
	}
	if current.Name == "" {
		return Personnel{}, errors.New("personnel requires a name")
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.personnel[id] = clonePersonnel(current)
	tx.recordChange(Change{Entity: domain.EntityPersonnel, Action: domain.ActionUpdate, Before: before, After: clonePersonnel(current)})
	return clonePersonnel(current), nil
}

// DeletePersonnel removes a personnel record from the transaction state.
func (tx *transaction) DeletePersonnel(id string) error {
	current, ok := tx.state.personnel[id]
	if !ok {
		return fmt.Errorf("personnel %q not found", id)
	}
	delete(tx.state.personnel, id)
	tx.recordChange(Change{Entity: domain.EntityPersonnel, Action: domain.ActionDelete, Before: clonePersonnel(current)})
	return nil
}

// CreateTeam stores a new team. Status defaults to "Not started" and the date
// defaults to the transaction clock's current day when unset.
func (tx *transaction) CreateTeam(t Team) (Team, error) {
	if t.ID == "" {
		t.ID = tx.store.newID()
	}
	if _, exists := tx.state.teams[t.ID]; exists {
		return Team{}, fmt.Errorf("team %q already exists", t.ID)
	}
	if t.Name == "" {
		return Team{}, errors.New("team requires a name")
	}
	if t.Status == "" {
		t.Status = domain.StatusNotStarted
	}
	if t.Date == "" {
		t.Date = tx.now.Format("2006-01-02")
	}
	t.CreatedAt = tx.now
	t.UpdatedAt = tx.now
	tx.state.teams[t.ID] = cloneTeam(t)
	tx.recordChange(Change{Entity: domain.EntityTeam, Action: domain.ActionCreate, After: cloneTeam(t)})
	return cloneTeam(t), nil
}

// UpdateTeam mutates an existing team.
func (tx *transaction) UpdateTeam(id string, mutator func(*Team) error) (Team, error) {
	current, ok := tx.state.teams[id]
	if !ok {
		return Team{}, fmt.Errorf("team %q not found", id)
	}
	before := cloneTeam(current)
	if err := mutator(&current); err != nil {
		return Team{}, err
	}
	if current.Name == "" {
		return Team{}, errors.New("team requires a name")
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.teams[id] = cloneTeam(current)
	tx.recordChange(Change{Entity: domain.EntityTeam, Action: domain.ActionUpdate, Before: before, After: cloneTeam(current)})
	return cloneTeam(current), nil
}

// DeleteTeam removes a team from the transaction state. Members still
// pointing at the team must be reassigned in the same transaction or the
// commit is blocked by the reference rule.
func (tx *transaction) DeleteTeam(id string) error {
	current, ok := tx.state.teams[id]
	if !ok {
		return fmt.Errorf("team %q not found", id)
	}
	delete(tx.state.teams, id)
	tx.recordChange(Change{Entity: domain.EntityTeam, Action: domain.ActionDelete, Before: cloneTeam(current)})
	return nil
}

// CreateWorkOrder stores a new work order.
func (tx *transaction) CreateWorkOrder(w WorkOrder) (WorkOrder, error) {
	if w.ID == "" {
		w.ID = tx.store.newID()
	}
	if _, exists := tx.state.workOrders[w.ID]; exists {
		return WorkOrder{}, fmt.Errorf("work order %q already exists", w.ID)
	}
	if w.WorkOrderNumber == "" {
		return WorkOrder{}, errors.New("work order requires a number")
	}
	if w.Status == "" {
		w.Status = domain.StatusNotStarted
	}
	if w.Date == "" {
		w.Date = tx.now.Format("2006-01-02")
	}
	w.CreatedAt = tx.now
	w.UpdatedAt = tx.now
	tx.state.workOrders[w.ID] = cloneWorkOrder(w)
	tx.recordChange(Change{Entity: domain.EntityWorkOrder, Action: domain.ActionCreate, After: cloneWorkOrder(w)})
	return cloneWorkOrder(w), nil
}

// UpdateWorkOrder mutates an existing work order.
func (tx *transaction) UpdateWorkOrder(id string, mutator func(*WorkOrder) error) (WorkOrder, error) {
	current, ok := tx.state.workOrders[id]
	if !ok {
		return WorkOrder{}, fmt.Errorf("work order %q not found", id)
	}
	before := cloneWorkOrder(current)
	if err := mutator(&current); err != nil {
		return WorkOrder{}, err
	}
	if current.WorkOrderNumber == "" {
		return WorkOrder{}, errors.New("work order requires a number")
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.workOrders[id] = cloneWorkOrder(current)
	tx.recordChange(Change{Entity: domain.EntityWorkOrder, Action: domain.ActionUpdate, Before: before, After: cloneWorkOrder(current)})
	return cloneWorkOrder(current), nil
}

// DeleteWorkOrder removes a work order from the transaction state.
func (tx *transaction) DeleteWorkOrder(id string) error {
	current, ok := tx.state.workOrders[id]
	if !ok {
		return fmt.Errorf("work order %q not found", id)
	}
	delete(tx.state.workOrders, id)
	tx.recordChange(Change{Entity: domain.EntityWorkOrder, Action: domain.ActionDelete, Before: cloneWorkOrder(current)})
	return nil
}

// GetPersonnel retrieves a personnel record by ID.
func (s *Store) GetPersonnel(id string) (Personnel, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.state.personnel[id]
	if !ok {
		return Personnel{}, false
	}
	return clonePersonnel(p), true
}

// ListPersonnel returns all personnel sorted by name.
func (s *Store) ListPersonnel() []Personnel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedPersonnel(&s.state)
}

// GetTeam retrieves a team by ID.
func (s *Store) GetTeam(id string) (Team, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.state.teams[id]
	if !ok {
		return Team{}, false
	}
	return cloneTeam(t), true
}

// ListTeams returns all teams sorted by name.
func (s *Store) ListTeams() []Team {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedTeams(&s.state)
}

// GetWorkOrder retrieves a work order by ID.
func (s *Store) GetWorkOrder(id string) (WorkOrder, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.state.workOrders[id]
	if !ok {
		return WorkOrder{}, false
	}
	return cloneWorkOrder(w), true
}

// ListWorkOrders returns all work orders sorted by work order number.
func (s *Store) ListWorkOrders() []WorkOrder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedWorkOrders(&s.state)
}

// LocationHistory returns the most-recent-first location list.
func (s *Store) LocationHistory() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.state.locations...)
}

// WorkOrdersMigrated reports whether the legacy work order migration ran.
func (s *Store) WorkOrdersMigrated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.meta.WorkOrdersMigrated
}
