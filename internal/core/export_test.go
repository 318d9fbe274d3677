package core

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"fieldroster/internal/blob"
)

func TestExportSnapshot(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	person := mustCreatePersonnel(t, svc, "Ada")
	team := mustCreateTeam(t, svc, "Crew1")
	if _, _, err := svc.MovePersonnel(ctx, person.ID, &team.ID); err != nil {
		t.Fatalf("move personnel: %v", err)
	}
	if _, _, err := svc.UpdateTeamLocation(ctx, team.ID, "North yard"); err != nil {
		t.Fatalf("update location: %v", err)
	}

	store := blob.NewMemory()
	info, err := svc.ExportSnapshot(ctx, store, "backups/2026-01-10.json")
	if err != nil {
		t.Fatalf("export snapshot: %v", err)
	}
	if info.Size == 0 || info.ContentType != "application/json" {
		t.Fatalf("unexpected blob info %+v", info)
	}
	if info.Metadata["personnel_count"] != "1" || info.Metadata["team_count"] != "1" {
		t.Fatalf("unexpected metadata %v", info.Metadata)
	}

	_, rc, err := store.Get(ctx, "backups/2026-01-10.json")
	if err != nil {
		t.Fatalf("get blob: %v", err)
	}
	defer rc.Close()
	payload, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read blob: %v", err)
	}
	var snapshot RosterSnapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if len(snapshot.Personnel) != 1 || snapshot.Personnel[0].ID != person.ID {
		t.Fatalf("unexpected personnel %+v", snapshot.Personnel)
	}
	if len(snapshot.Teams) != 1 || snapshot.Teams[0].ID != team.ID {
		t.Fatalf("unexpected teams %+v", snapshot.Teams)
	}
	if len(snapshot.Locations) != 1 || snapshot.Locations[0] != "North yard" {
		t.Fatalf("unexpected locations %v", snapshot.Locations)
	}
	if snapshot.ExportedAt.IsZero() {
		t.Fatalf("expected export timestamp")
	}
}

func TestExportSnapshotIsCreateOnly(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	store := blob.NewMemory()

	if _, err := svc.ExportSnapshot(ctx, store, "backup.json"); err != nil {
		t.Fatalf("first export: %v", err)
	}
	if _, err := svc.ExportSnapshot(ctx, store, "backup.json"); err == nil {
		t.Fatalf("expected second export to the same key to fail")
	}
}

func TestExportSnapshotRejectsBadArguments(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	if _, err := svc.ExportSnapshot(ctx, nil, "backup.json"); err == nil {
		t.Fatalf("expected error for nil store")
	}
	if _, err := svc.ExportSnapshot(ctx, blob.NewMemory(), ""); err == nil {
		t.Fatalf("expected error for empty key")
	}
}
