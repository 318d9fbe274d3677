package core

import (
	"context"
	"fmt"

	"fieldroster/pkg/domain"
)

// TeamReferenceRule blocks commits that leave a worker pointing at a team
// that does not exist.
func TeamReferenceRule() domain.Rule {
	return teamReferenceRule{}
}

type teamReferenceRule struct{}

func (teamReferenceRule) Name() string { return "team_reference" }

func (teamReferenceRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, person := range view.ListPersonnel() {
		if person.TeamID == nil {
			continue
		}
		if _, ok := view.FindTeam(*person.TeamID); !ok {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "team_reference",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("personnel %s references missing team %s", person.ID, *person.TeamID),
				Entity:   domain.EntityPersonnel,
				EntityID: person.ID,
			})
		}
	}
	return res, nil
}
