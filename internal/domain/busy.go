package domain

import "time"

type Transparency string

const (
	TransparencyOpaque      Transparency = "opaque"
	TransparencyTransparent Transparency = "transparent"
)

// BusyInterval is a span reported by a calendar source. An empty
// Transparency is treated as opaque.
type BusyInterval struct {
	Start        time.Time    `json:"start"`
	End          time.Time    `json:"end"`
	Transparency Transparency `json:"transparency,omitempty"`
	Source       string       `json:"source,omitempty"`
}

func (b BusyInterval) Blocking() bool {
	return b.Transparency != TransparencyTransparent
}
