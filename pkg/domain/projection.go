package domain

import "sort"

// TeamWithMembers pairs a team with the personnel currently assigned to it.
type TeamWithMembers struct {
	Team
	Members []Personnel `json:"members"`
}

// ProjectTeams derives the team membership view from flat personnel and team
// lists. Teams are returned sorted by name ascending; Members preserves the
// input order of the personnel slice. Inputs are never mutated.
func ProjectTeams(personnel []Personnel, teams []Team) []TeamWithMembers {
	byTeam := make(map[string][]Personnel)
	for _, p := range personnel {
		if p.TeamID == nil {
			continue
		}
		byTeam[*p.TeamID] = append(byTeam[*p.TeamID], p)
	}
	out := make([]TeamWithMembers, 0, len(teams))
	for _, t := range teams {
		out = append(out, TeamWithMembers{Team: t, Members: byTeam[t.ID]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// UnassignedPersonnel returns the personnel without a team, in input order.
func UnassignedPersonnel(personnel []Personnel) []Personnel {
	var out []Personnel
	for _, p := range personnel {
		if p.TeamID == nil {
			out = append(out, p)
		}
	}
	return out
}

// TeamsForWorkOrder returns the teams attached to the given work order,
// sorted by name ascending.
func TeamsForWorkOrder(teams []Team, workOrderID string) []Team {
	var out []Team
	for _, t := range teams {
		if t.WorkOrderID != nil && *t.WorkOrderID == workOrderID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
