package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"fieldroster/internal/blob"
)

// RosterSnapshot is the JSON document written by ExportSnapshot.
type RosterSnapshot struct {
	ExportedAt time.Time   `json:"exported_at"`
	Personnel  []Personnel `json:"personnel"`
	Teams      []Team      `json:"teams"`
	WorkOrders []WorkOrder `json:"work_orders"`
	Locations  []string    `json:"locations"`
}

// ExportSnapshot serializes the current roster state and writes it to the
// blob store under key. Writes are create-only: exporting to an existing key
// fails rather than overwriting a previous backup.
func (s *Service) ExportSnapshot(ctx context.Context, store blob.Store, key string) (blob.Info, error) {
	if store == nil {
		return blob.Info{}, fmt.Errorf("blob store required")
	}
	if key == "" {
		return blob.Info{}, fmt.Errorf("export key required")
	}

	snapshot := RosterSnapshot{ExportedAt: time.Now().UTC()}
	if err := s.store.View(ctx, func(view TransactionView) error {
		snapshot.Personnel = view.ListPersonnel()
		snapshot.Teams = view.ListTeams()
		snapshot.WorkOrders = view.ListWorkOrders()
		return nil
	}); err != nil {
		return blob.Info{}, err
	}
	snapshot.Locations = s.store.LocationHistory()

	payload, err := json.Marshal(snapshot)
	if err != nil {
		return blob.Info{}, fmt.Errorf("encode snapshot: %w", err)
	}
	info, err := store.Put(ctx, key, bytes.NewReader(payload), blob.PutOptions{
		ContentType: "application/json",
		Metadata: map[string]string{
			"personnel_count":  fmt.Sprint(len(snapshot.Personnel)),
			"team_count":       fmt.Sprint(len(snapshot.Teams)),
			"work_order_count": fmt.Sprint(len(snapshot.WorkOrders)),
		},
	})
	if err != nil {
		s.logger.Warn("roster snapshot export failed", "key", key, "error", err)
		return blob.Info{}, err
	}
	s.logger.Info("roster snapshot exported", "key", key, "bytes", info.Size)
	return info, nil
}
