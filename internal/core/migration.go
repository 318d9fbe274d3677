package core

import (
	"context"
)

// MigrationReport summarizes a legacy work order migration run.
type MigrationReport struct {
	AlreadyMigrated   bool
	WorkOrdersCreated int
	TeamsLinked       int
}

// MigrateLegacyWorkOrders converts retired inline 4-digit work order numbers
// on teams into first-class work order records and links the teams to them.
// The run is guarded by a persisted flag, not by transform idempotence:
// running the transform twice would duplicate work orders, so the flag makes
// a second run a no-op.
//
// For each distinct 4-digit number (teams scanned in name order) one work
// order is created; the first team encountered supplies location, date,
// status, and notes, and the owner is left empty. Teams without a valid
// number are untouched.
func (s *Service) MigrateLegacyWorkOrders(ctx context.Context) (MigrationReport, error) {
	var report MigrationReport
	_, err := s.run(ctx, "migrate_legacy_work_orders", EntityWorkOrder, nil, func(tx Transaction) error {
		if tx.WorkOrdersMigrated() {
			report.AlreadyMigrated = true
			return nil
		}
		createdByNumber := make(map[string]string)
		for _, team := range tx.Snapshot().ListTeams() {
			if team.LegacyWorkOrder == nil || !isFourDigit(*team.LegacyWorkOrder) {
				continue
			}
			number := *team.LegacyWorkOrder
			orderID, ok := createdByNumber[number]
			if !ok {
				order, err := tx.CreateWorkOrder(WorkOrder{
					WorkOrderNumber: number,
					Location:        team.Location,
					Date:            team.Date,
					Status:          team.Status,
					Notes:           team.Notes,
				})
				if err != nil {
					return err
				}
				orderID = order.ID
				createdByNumber[number] = orderID
				report.WorkOrdersCreated++
			}
			id := orderID
			if _, err := tx.UpdateTeam(team.ID, func(t *Team) error {
				t.WorkOrderID = &id
				return nil
			}); err != nil {
				return err
			}
			report.TeamsLinked++
		}
		tx.MarkWorkOrdersMigrated()
		return nil
	})
	if err != nil {
		return MigrationReport{}, err
	}
	return report, nil
}

func isFourDigit(s string) bool {
	if len(s) != 4 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
