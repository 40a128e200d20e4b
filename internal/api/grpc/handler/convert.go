package handler

import (
	"github.com/latoalla/roster-server/internal/api/grpc/rosterapi"
	"github.com/latoalla/roster-server/internal/model"
	"github.com/latoalla/roster-server/internal/roster"
	"github.com/latoalla/roster-server/internal/service"
)

func convertMeals(m rosterapi.Meals) model.MealFlags {
	return model.MealFlags{Lunch: m.Lunch, Midday: m.Midday, Dinner: m.Dinner}
}

func convertModelMeals(m model.MealFlags) rosterapi.Meals {
	return rosterapi.Meals{Lunch: m.Lunch, Midday: m.Midday, Dinner: m.Dinner}
}

func convertBuffer(buf service.EditBuffer) *rosterapi.EditBuffer {
	return &rosterapi.EditBuffer{
		ID:            buf.ID.String(),
		Meals:         convertModelMeals(buf.Fields.Meals),
		Adults:        buf.Fields.Adults,
		Children:      buf.Fields.Children,
		BaseVersion:   buf.BaseVersion,
		RemoteVersion: buf.RemoteVersion,
	}
}

// convertRoster marks the rows the viewer owns so clients can offer edit
// and delete on them.
func convertRoster(r roster.Roster, viewer model.Identity) *rosterapi.Roster {
	out := &rosterapi.Roster{
		Category:      string(r.Category),
		Version:       r.Version,
		Stale:         r.Stale,
		Groups:        make([]rosterapi.Group, 0, len(r.Groups)),
		TotalAdults:   r.TotalAdults,
		TotalChildren: r.TotalChildren,
		Count:         r.Count,
	}
	for _, g := range r.Groups {
		group := rosterapi.Group{
			Date:          g.Date,
			Rows:          make([]rosterapi.Row, 0, len(g.Rows)),
			TotalAdults:   g.TotalAdults,
			TotalChildren: g.TotalChildren,
			Count:         g.Count,
		}
		for _, row := range g.Rows {
			group.Rows = append(group.Rows, rosterapi.Row{
				ID:       row.ID.String(),
				Label:    row.Label,
				Own:      row.OwnerID != "" && row.OwnerID == viewer.OwnerID,
				Meals:    row.Meals,
				Adults:   row.Adults,
				Children: row.Children,
			})
		}
		out.Groups = append(out.Groups, group)
	}
	return out
}
