package simulator

import (
	"github.com/chrisdamba/cleanbotsim/internal/grid"
	"github.com/chrisdamba/cleanbotsim/internal/models"
)

// Cleaner is a mobile agent that random-walks the Moore neighborhood and
// vacuums any dirty spot it lands on.
//
// An idle cleaner moves, then cleans its new cell; finding dirt switches it to
// vacuuming, which costs the following tick: the cleaner re-scans its cell in
// place and goes back to idle whether or not anything was left to clean.
type Cleaner struct {
	id        int
	world     world
	vacuuming bool
	moves     int
	profile   models.RobotProfile
}

func NewCleaner(id int, w world, profile models.RobotProfile) *Cleaner {
	return &Cleaner{id: id, world: w, profile: profile}
}

func (c *Cleaner) ID() int                      { return c.id }
func (c *Cleaner) Kind() AgentKind              { return KindCleaner }
func (c *Cleaner) Vacuuming() bool              { return c.vacuuming }
func (c *Cleaner) MoveCount() int               { return c.moves }
func (c *Cleaner) Profile() models.RobotProfile { return c.profile }

// Position is the cleaner's cell, or the zero position once it is off the grid.
func (c *Cleaner) Position() grid.Position {
	pos, _ := c.world.Grid().PositionOf(c.id)
	return pos
}

func (c *Cleaner) Activate(tick int) {
	if c.vacuuming {
		c.clean(tick)
		c.vacuuming = false
		return
	}
	c.move()
	if c.clean(tick) {
		c.vacuuming = true
	}
}

// move steps to a uniformly chosen neighbor. A cleaner with no neighbors
// (a 1x1 grid) stays put and its move count is unchanged.
func (c *Cleaner) move() bool {
	g := c.world.Grid()
	pos, ok := g.PositionOf(c.id)
	if !ok {
		return false
	}
	neighbors, err := g.Neighborhood(pos.X, pos.Y, false)
	if err != nil || len(neighbors) == 0 {
		return false
	}
	next := neighbors[c.world.Rand().Intn(len(neighbors))]
	if err := g.Move(c.id, next.X, next.Y); err != nil {
		return false
	}
	c.moves++
	return true
}

// clean marks every unclean spot sharing the cleaner's cell and reports whether any was found.
func (c *Cleaner) clean(tick int) bool {
	pos, ok := c.world.Grid().PositionOf(c.id)
	if !ok {
		return false
	}
	found := false
	for _, spot := range c.world.DirtySpotsAt(pos) {
		if spot.Clean(c.id, tick) {
			found = true
		}
	}
	return found
}
