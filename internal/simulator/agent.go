package simulator

import (
	"math/rand"

	"github.com/chrisdamba/cleanbotsim/internal/grid"
)

// AgentKind tags the concrete variant behind an Agent
type AgentKind int

const (
	KindCleaner AgentKind = iota
	KindDirtySpot
)

func (k AgentKind) String() string {
	switch k {
	case KindCleaner:
		return "cleaner"
	case KindDirtySpot:
		return "dirty_spot"
	default:
		return "unknown"
	}
}

// Agent is anything the scheduler activates once per tick
type Agent interface {
	ID() int
	Kind() AgentKind
	Activate(tick int)
}

// world is the read side of the model an agent may consult while activating.
type world interface {
	Grid() *grid.MultiGrid
	Rand() *rand.Rand
	DirtySpotsAt(pos grid.Position) []*DirtySpot
}

// AgentState is a read-only view of one agent for display layers
type AgentState struct {
	ID        int           `json:"id"`
	Kind      string        `json:"kind"`
	Position  grid.Position `json:"position"`
	Clean     bool          `json:"clean,omitempty"`
	Vacuuming bool          `json:"vacuuming,omitempty"`
	Moves     int           `json:"moves,omitempty"`
	Name      string        `json:"name,omitempty"`
}
