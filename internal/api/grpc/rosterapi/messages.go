package rosterapi

// Meals are the meal selections of a signup.
type Meals struct {
	Lunch  bool `json:"lunch"`
	Midday bool `json:"midday"`
	Dinner bool `json:"dinner"`
}

type SubmitRequest struct {
	Date     string `json:"date"`
	Category string `json:"category"`
	Meals    Meals  `json:"meals"`
	Adults   int    `json:"adults"`
	Children int    `json:"children"`
}

type SubmitResponse struct {
	ID string `json:"id"`
}

// SignupRequest addresses one signup.
type SignupRequest struct {
	ID string `json:"id"`
}

type UpdateFieldRequest struct {
	ID    string `json:"id"`
	Field string `json:"field"`
	Value string `json:"value"`
}

// EditBuffer is the pending state of a signup being edited.
type EditBuffer struct {
	ID            string `json:"id"`
	Meals         Meals  `json:"meals"`
	Adults        int    `json:"adults"`
	Children      int    `json:"children"`
	BaseVersion   uint64 `json:"base_version"`
	RemoteVersion uint64 `json:"remote_version,omitempty"`
}

type Empty struct{}

type RosterRequest struct {
	Category string `json:"category"`
}

type Row struct {
	ID       string   `json:"id"`
	Label    string   `json:"label"`
	Own      bool     `json:"own"`
	Meals    []string `json:"meals"`
	Adults   int      `json:"adults"`
	Children int      `json:"children"`
}

type Group struct {
	Date          string `json:"date"`
	Rows          []Row  `json:"rows"`
	TotalAdults   int    `json:"total_adults"`
	TotalChildren int    `json:"total_children"`
	Count         int    `json:"count"`
}

type Roster struct {
	Category      string  `json:"category"`
	Version       uint64  `json:"version"`
	Stale         bool    `json:"stale"`
	Groups        []Group `json:"groups"`
	TotalAdults   int     `json:"total_adults"`
	TotalChildren int     `json:"total_children"`
	Count         int     `json:"count"`
}

type ExportResponse struct {
	Key string `json:"key"`
}

type FetchExportRequest struct {
	Key string `json:"key"`
}

type ExportDocument struct {
	ExportedAt int64  `json:"exported_at"`
	Roster     Roster `json:"roster"`
}
