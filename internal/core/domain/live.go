package domain

// LiveUpdate is what observers of the active run receive. ID is empty when
// no run is active.
type LiveUpdate struct {
	ID       string   `json:"id"`
	Progress int      `json:"progress"`
	Lines    []string `json:"lines"`
}

func (u LiveUpdate) Active() bool {
	return u.ID != ""
}
