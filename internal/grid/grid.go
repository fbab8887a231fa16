package grid

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidDimensions = errors.New("grid dimensions must be positive")
	ErrAlreadyPlaced     = errors.New("agent is already placed on the grid")
	ErrNotPlaced         = errors.New("agent is not placed on the grid")
)

// OutOfBoundsError is returned by any grid operation addressing a cell outside [0,W)x[0,H).
type OutOfBoundsError struct {
	X, Y          int
	Width, Height int
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("position (%d, %d) is out of bounds for %dx%d grid", e.X, e.Y, e.Width, e.Height)
}

// Position is a cell coordinate
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// MultiGrid is a bounded 2D grid where any number of agents may share a cell.
// Agents are tracked by integer identifier; occupants of a cell keep insertion order.
type MultiGrid struct {
	width     int
	height    int
	torus     bool
	cells     [][]int
	positions map[int]Position
}

// New creates a width x height grid. With torus set, neighborhoods wrap around the edges;
// otherwise they are clipped.
func New(width, height int, torus bool) (*MultiGrid, error) {
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("%w: got %dx%d", ErrInvalidDimensions, width, height)
	}
	return &MultiGrid{
		width:     width,
		height:    height,
		torus:     torus,
		cells:     make([][]int, width*height),
		positions: make(map[int]Position),
	}, nil
}

func (g *MultiGrid) Width() int  { return g.width }
func (g *MultiGrid) Height() int { return g.height }
func (g *MultiGrid) Torus() bool { return g.torus }

// InBounds reports whether (x, y) addresses a cell of the grid.
func (g *MultiGrid) InBounds(x, y int) bool {
	return x >= 0 && x < g.width && y >= 0 && y < g.height
}

func (g *MultiGrid) checkBounds(x, y int) error {
	if !g.InBounds(x, y) {
		return &OutOfBoundsError{X: x, Y: y, Width: g.width, Height: g.height}
	}
	return nil
}

func (g *MultiGrid) index(x, y int) int {
	return y*g.width + x
}

// Place inserts the agent into the occupant set of cell (x, y).
func (g *MultiGrid) Place(id, x, y int) error {
	if err := g.checkBounds(x, y); err != nil {
		return err
	}
	if _, ok := g.positions[id]; ok {
		return fmt.Errorf("%w: agent %d", ErrAlreadyPlaced, id)
	}
	i := g.index(x, y)
	g.cells[i] = append(g.cells[i], id)
	g.positions[id] = Position{X: x, Y: y}
	return nil
}

// Move removes the agent from its current cell and inserts it into (x, y).
// The grid is left untouched when the destination is invalid.
func (g *MultiGrid) Move(id, x, y int) error {
	if err := g.checkBounds(x, y); err != nil {
		return err
	}
	if _, ok := g.positions[id]; !ok {
		return fmt.Errorf("%w: agent %d", ErrNotPlaced, id)
	}
	g.detach(id)
	i := g.index(x, y)
	g.cells[i] = append(g.cells[i], id)
	g.positions[id] = Position{X: x, Y: y}
	return nil
}

// Remove takes the agent off the grid.
func (g *MultiGrid) Remove(id int) error {
	if _, ok := g.positions[id]; !ok {
		return fmt.Errorf("%w: agent %d", ErrNotPlaced, id)
	}
	g.detach(id)
	delete(g.positions, id)
	return nil
}

func (g *MultiGrid) detach(id int) {
	pos := g.positions[id]
	i := g.index(pos.X, pos.Y)
	cell := g.cells[i]
	for j, occupant := range cell {
		if occupant == id {
			g.cells[i] = append(cell[:j:j], cell[j+1:]...)
			return
		}
	}
}

// PositionOf returns the cell the agent currently occupies.
func (g *MultiGrid) PositionOf(id int) (Position, bool) {
	pos, ok := g.positions[id]
	return pos, ok
}

// OccupantsAt returns a copy of the identifiers occupying (x, y), possibly empty.
func (g *MultiGrid) OccupantsAt(x, y int) ([]int, error) {
	if err := g.checkBounds(x, y); err != nil {
		return nil, err
	}
	cell := g.cells[g.index(x, y)]
	occupants := make([]int, len(cell))
	copy(occupants, cell)
	return occupants, nil
}

// IsCellEmpty reports whether no agent occupies (x, y).
func (g *MultiGrid) IsCellEmpty(x, y int) bool {
	return g.InBounds(x, y) && len(g.cells[g.index(x, y)]) == 0
}

// Neighborhood returns the Moore neighborhood of (x, y) without duplicates.
// On a torus, coordinates wrap and a wrapped coordinate that lands back on the
// centre is only kept when includeCenter is set. On a clipped grid, cells past the
// edge are dropped, so a 1x1 grid has an empty neighborhood.
func (g *MultiGrid) Neighborhood(x, y int, includeCenter bool) ([]Position, error) {
	if err := g.checkBounds(x, y); err != nil {
		return nil, err
	}
	center := Position{X: x, Y: y}
	seen := make(map[Position]struct{}, 9)
	neighbors := make([]Position, 0, 9)
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 && !includeCenter {
				continue
			}
			nx, ny := x+dx, y+dy
			if g.torus {
				nx, ny = g.wrap(nx, ny)
			} else if !g.InBounds(nx, ny) {
				continue
			}
			p := Position{X: nx, Y: ny}
			if p == center && !includeCenter {
				continue
			}
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}
			neighbors = append(neighbors, p)
		}
	}
	return neighbors, nil
}

func (g *MultiGrid) wrap(x, y int) (int, int) {
	x %= g.width
	if x < 0 {
		x += g.width
	}
	y %= g.height
	if y < 0 {
		y += g.height
	}
	return x, y
}
