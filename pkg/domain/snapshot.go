package domain

import "time"

// Snapshot is a point-in-time copy of a render session.
// List slices and the scalar map are copies; the values in them are shared.
//
// Snapshots are for inspection, not restore. The file and redis stores encode them as
// JSON, so a snapshot loaded from them carries JSON types: numbers come back as
// float64, structs as map[string]any.
type Snapshot struct {
	ID                  string           `json:"id"`
	CreatedAt           time.Time        `json:"created_at"`
	AgeSeconds          int64            `json:"age_seconds"`
	Sequence            int              `json:"sequence"`
	LastQueriedSequence int              `json:"last_queried_sequence"`
	Lists               map[string][]any `json:"lists"`
	Scalars             map[string]any   `json:"scalars"`
}

// Clone copies the maps and list slices of s.
func (s *Snapshot) Clone() *Snapshot {
	c := *s
	c.Lists = make(map[string][]any, len(s.Lists))
	for name, list := range s.Lists {
		cp := make([]any, len(list))
		copy(cp, list)
		c.Lists[name] = cp
	}
	c.Scalars = make(map[string]any, len(s.Scalars))
	for name, v := range s.Scalars {
		c.Scalars[name] = v
	}
	return &c
}
