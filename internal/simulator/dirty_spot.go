package simulator

import "github.com/chrisdamba/cleanbotsim/internal/grid"

// DirtySpot is a stationary agent that stays clean once a cleaner has visited it
type DirtySpot struct {
	id        int
	pos       grid.Position
	isClean   bool
	cleanedBy int
	cleanedAt int
}

func NewDirtySpot(id int, pos grid.Position) *DirtySpot {
	return &DirtySpot{id: id, pos: pos, cleanedBy: -1}
}

func (d *DirtySpot) ID() int                 { return d.id }
func (d *DirtySpot) Kind() AgentKind         { return KindDirtySpot }
func (d *DirtySpot) Position() grid.Position { return d.pos }
func (d *DirtySpot) IsClean() bool           { return d.isClean }

// Activate does nothing, dirty spots never act on their own.
func (d *DirtySpot) Activate(int) {}

// Clean marks the spot clean and records who cleaned it and when.
// It reports false if the spot was already clean.
func (d *DirtySpot) Clean(cleanerID, tick int) bool {
	if d.isClean {
		return false
	}
	d.isClean = true
	d.cleanedBy = cleanerID
	d.cleanedAt = tick
	return true
}

// CleanedBy returns the cleaner id and tick of the cleaning, if it happened.
func (d *DirtySpot) CleanedBy() (cleanerID, tick int, ok bool) {
	if !d.isClean {
		return 0, 0, false
	}
	return d.cleanedBy, d.cleanedAt, true
}
