package core

import (
	"context"
	"fmt"

	"fieldroster/pkg/domain"
)

// WorkOrderReferenceRule blocks commits that leave a team pointing at a work
// order that does not exist.
func WorkOrderReferenceRule() domain.Rule {
	return workOrderReferenceRule{}
}

type workOrderReferenceRule struct{}

func (workOrderReferenceRule) Name() string { return "work_order_reference" }

func (workOrderReferenceRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, team := range view.ListTeams() {
		if team.WorkOrderID == nil {
			continue
		}
		if _, ok := view.FindWorkOrder(*team.WorkOrderID); !ok {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "work_order_reference",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("team %s references missing work order %s", team.ID, *team.WorkOrderID),
				Entity:   domain.EntityTeam,
				EntityID: team.ID,
			})
		}
	}
	return res, nil
}
