package roster

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/latoalla/roster-server/internal/model"
)

// UndatedKey groups signups that carry no date.
const UndatedKey = "undated"

// AnonymousLabel is shown for signups with neither display name nor email.
const AnonymousLabel = "anonymous"

// Row is one signup as presented in a roster.
type Row struct {
	ID        uuid.UUID       `json:"id"`
	OwnerID   string          `json:"owner_id,omitempty"`
	Label     string          `json:"label"`
	Meals     []string        `json:"meals"`
	MealFlags model.MealFlags `json:"meal_flags"`
	Adults    int             `json:"adults"`
	Children  int             `json:"children"`
}

// Group is the set of rows sharing a date.
type Group struct {
	Date          string `json:"date"`
	Rows          []Row  `json:"rows"`
	TotalAdults   int    `json:"total_adults"`
	TotalChildren int    `json:"total_children"`
	Count         int    `json:"count"`
}

// Roster is the projection of a snapshot for one category.
type Roster struct {
	Category      model.Category `json:"category"`
	Version       uint64         `json:"version"`
	Stale         bool           `json:"stale"`
	Groups        []Group        `json:"groups"`
	TotalAdults   int            `json:"total_adults"`
	TotalChildren int            `json:"total_children"`
	Count         int            `json:"count"`
}

// Project filters the snapshot by category, groups by date ascending and
// computes totals. Rows keep snapshot order within a group.
func Project(snap *Snapshot, category model.Category) Roster {
	roster := Roster{Category: category, Groups: []Group{}}
	if snap == nil {
		return roster
	}
	roster.Version = snap.Version()

	groups := make(map[string]*Group)
	var keys []string
	for _, s := range snap.signups {
		if !s.Categories.Has(category) {
			continue
		}
		key := s.Date
		if key == "" {
			key = UndatedKey
		}
		g, ok := groups[key]
		if !ok {
			g = &Group{Date: key}
			groups[key] = g
			keys = append(keys, key)
		}
		g.Rows = append(g.Rows, newRow(s))
		g.TotalAdults += s.Adults
		g.TotalChildren += s.Children
		g.Count++
	}

	sort.Strings(keys)
	for _, key := range keys {
		g := groups[key]
		roster.Groups = append(roster.Groups, *g)
		roster.TotalAdults += g.TotalAdults
		roster.TotalChildren += g.TotalChildren
		roster.Count += g.Count
	}
	return roster
}

func newRow(s model.Signup) Row {
	return Row{
		ID:        s.ID,
		OwnerID:   s.OwnerID,
		Label:     Label(s),
		Meals:     s.Meals.Labels(),
		MealFlags: s.Meals,
		Adults:    s.Adults,
		Children:  s.Children,
	}
}

// Label returns the presentation name: display name, else the local part of
// the owner email, else AnonymousLabel.
func Label(s model.Signup) string {
	if name := strings.TrimSpace(s.DisplayName); name != "" {
		return name
	}
	if local, _, _ := strings.Cut(s.OwnerEmail, "@"); local != "" {
		return local
	}
	return AnonymousLabel
}
