package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"fieldroster/internal/core"
	"fieldroster/internal/infra/persistence/memory"
	"fieldroster/internal/infra/persistence/sqlite"
)

func TestCLIHealthyStore(t *testing.T) {
	t.Setenv("FIELDROSTER_STORAGE_DRIVER", "memory")
	var stdout, stderr bytes.Buffer
	if code := cli(nil, &stdout, &stderr); code != 0 {
		t.Fatalf("expected exit 0, got %d (stderr %q)", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "no rule violations") {
		t.Fatalf("unexpected output %q", stdout.String())
	}
}

func TestCLIJSONOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.db")
	t.Setenv("FIELDROSTER_STORAGE_DRIVER", "sqlite")
	t.Setenv("FIELDROSTER_SQLITE_PATH", path)

	store, err := sqlite.NewStore(path, core.NewDefaultRulesEngine())
	if err != nil {
		t.Fatalf("seed store: %v", err)
	}
	svc := core.NewService(store)
	ctx := context.Background()
	person, _, err := svc.CreatePersonnel(ctx, core.Personnel{Name: "Ada"})
	if err != nil {
		t.Fatalf("create personnel: %v", err)
	}
	team, _, err := svc.CreateTeam(ctx, core.Team{Name: "Crew1"})
	if err != nil {
		t.Fatalf("create team: %v", err)
	}
	if _, _, err := svc.MovePersonnel(ctx, person.ID, &team.ID); err != nil {
		t.Fatalf("move personnel: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	var stdout, stderr bytes.Buffer
	if code := cli([]string{"-json"}, &stdout, &stderr); code != 0 {
		t.Fatalf("expected exit 0, got %d (stderr %q)", code, stderr.String())
	}
	var report checkReport
	if err := json.Unmarshal(stdout.Bytes(), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Personnel != 1 || report.Teams != 1 || report.Unassigned != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
	if report.Blocking {
		t.Fatalf("healthy store flagged as blocking: %+v", report)
	}
}

func TestCheckStoreReportsDanglingReference(t *testing.T) {
	// An empty rules engine lets the seed transaction commit a reference the
	// default rules would reject.
	store := memory.NewStore(core.NewRulesEngine())
	ghost := "no-such-team"
	if _, err := store.RunInTransaction(context.Background(), func(tx core.Transaction) error {
		_, err := tx.CreatePersonnel(core.Personnel{Name: "Ada", TeamID: &ghost})
		return err
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	report, err := checkStore(context.Background(), store)
	if err != nil {
		t.Fatalf("check store: %v", err)
	}
	if !report.Blocking || len(report.Violations) != 1 {
		t.Fatalf("expected one blocking violation, got %+v", report)
	}
	if report.Violations[0].Rule != "team_reference" {
		t.Fatalf("unexpected rule %q", report.Violations[0].Rule)
	}
}

func TestCLIBadFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := cli([]string{"-bogus"}, &stdout, &stderr); code != 2 {
		t.Fatalf("expected exit 2, got %d", code)
	}
}
