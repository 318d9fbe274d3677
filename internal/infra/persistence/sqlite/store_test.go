package sqlite

import (
	"context"
	"fieldroster/pkg/domain"
	"path/filepath"
	"testing"
)

func TestStateSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.db")

	store, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	var teamID string
	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		team, err := tx.CreateTeam(domain.Team{Name: "Rig 4"})
		if err != nil {
			return err
		}
		teamID = team.ID
		if _, err := tx.CreatePersonnel(domain.Personnel{Name: "Anna", TeamID: &team.ID}); err != nil {
			return err
		}
		tx.RecordLocation("Dock A")
		tx.MarkWorkOrdersMigrated()
		return nil
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer func() { _ = reopened.Close() }()

	if team, ok := reopened.GetTeam(teamID); !ok || team.Name != "Rig 4" {
		t.Fatalf("team lost across reopen: %+v ok=%v", team, ok)
	}
	people := reopened.ListPersonnel()
	if len(people) != 1 || people[0].TeamID == nil || *people[0].TeamID != teamID {
		t.Fatalf("personnel lost across reopen: %+v", people)
	}
	if history := reopened.LocationHistory(); len(history) != 1 || history[0] != "Dock A" {
		t.Fatalf("location history lost: %v", history)
	}
	if !reopened.WorkOrdersMigrated() {
		t.Fatalf("migration flag lost across reopen")
	}
}

func TestLoadRepairsDanglingReferencesFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.db")

	store, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	// Write a snapshot with a dangling team reference straight into the state
	// table, bypassing the rules engine.
	payload := []byte(`{"p1":{"id":"p1","created_at":"2024-01-01T00:00:00Z","updated_at":"2024-01-01T00:00:00Z","name":"Anna","phone":null,"discipline":"","helmet_color":"white","team_id":"ghost"}}`)
	if _, err := store.DB().Exec(`INSERT INTO state(bucket,payload) VALUES('personnel',?)`, payload); err != nil {
		t.Fatalf("inject state: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer func() { _ = reopened.Close() }()

	person, ok := reopened.GetPersonnel("p1")
	if !ok {
		t.Fatalf("personnel missing after load")
	}
	if person.TeamID != nil {
		t.Fatalf("expected dangling reference cleared on load, got %v", *person.TeamID)
	}
}

func TestBlockedTransactionDoesNotPersist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.db")

	engine := domain.NewRulesEngine()
	engine.Register(blockCreates{})
	store, err := NewStore(path, engine)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.CreateTeam(domain.Team{Name: "Rig 4"})
		return err
	}); err == nil {
		t.Fatalf("expected blocked transaction")
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer func() { _ = reopened.Close() }()
	if got := reopened.ListTeams(); len(got) != 0 {
		t.Fatalf("blocked transaction leaked to disk: %+v", got)
	}
}

type blockCreates struct{}

func (blockCreates) Name() string { return "block_creates" }

func (blockCreates) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	for _, c := range changes {
		if c.Action == domain.ActionCreate {
			return domain.Result{Violations: []domain.Violation{{Rule: "block_creates", Severity: domain.SeverityBlock}}}, nil
		}
	}
	return domain.Result{}, nil
}
