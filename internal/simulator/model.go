package simulator

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/chrisdamba/cleanbotsim/internal/grid"
	"github.com/chrisdamba/cleanbotsim/internal/models"
)

var ErrNilRand = errors.New("simulation requires a random source")

// Model owns the grid, the cleaners, the dirty spots and the scheduler.
// It advances one tick per Step call until every spot is clean or the step
// budget is spent.
type Model struct {
	params   models.SimulationParams
	grid     *grid.MultiGrid
	rng      *rand.Rand
	schedule *RandomActivation

	cleaners   []*Cleaner
	dirtySpots []*DirtySpot
	spotsByID  map[int]*DirtySpot
	kinds      map[int]AgentKind

	currentStep int
	running     bool
	stopReason  string
	startTime   time.Time
	elapsed     time.Duration

	now       func() time.Time
	profileFn func(id int) models.RobotProfile
	collector *DataCollector
}

type ModelOption func(*Model)

// WithClock replaces the wall clock used for elapsed time.
func WithClock(now func() time.Time) ModelOption {
	return func(m *Model) { m.now = now }
}

// WithRobotProfiles assigns each cleaner the profile returned for its id.
func WithRobotProfiles(fn func(id int) models.RobotProfile) ModelOption {
	return func(m *Model) { m.profileFn = fn }
}

// NewModel validates params and builds a running model. Cleaners all start at
// (0,0); each dirty spot lands on an independently drawn random cell. Every
// random draw, then and later, comes from rng.
func NewModel(params models.SimulationParams, rng *rand.Rand, opts ...ModelOption) (*Model, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, ErrNilRand
	}

	g, err := grid.New(params.Width, params.Height, params.Torus)
	if err != nil {
		return nil, fmt.Errorf("failed to create grid: %w", err)
	}

	m := &Model{
		params:     params,
		grid:       g,
		rng:        rng,
		schedule:   NewRandomActivation(rng),
		cleaners:   make([]*Cleaner, 0, params.Robots),
		dirtySpots: make([]*DirtySpot, 0, params.DirtyCells),
		spotsByID:  make(map[int]*DirtySpot, params.DirtyCells),
		kinds:      make(map[int]AgentKind, params.Robots+params.DirtyCells),
		now:        time.Now,
		collector:  NewDataCollector(),
	}
	for _, opt := range opts {
		opt(m)
	}

	for id := 0; id < params.Robots; id++ {
		var profile models.RobotProfile
		if m.profileFn != nil {
			profile = m.profileFn(id)
		}
		c := NewCleaner(id, m, profile)
		if err := g.Place(id, 0, 0); err != nil {
			return nil, fmt.Errorf("failed to place cleaner %d: %w", id, err)
		}
		m.cleaners = append(m.cleaners, c)
		m.kinds[id] = KindCleaner
		m.schedule.Add(c)
	}

	for id := params.Robots; id < params.Robots+params.DirtyCells; id++ {
		pos := grid.Position{X: rng.Intn(params.Width), Y: rng.Intn(params.Height)}
		spot := NewDirtySpot(id, pos)
		if err := g.Place(id, pos.X, pos.Y); err != nil {
			return nil, fmt.Errorf("failed to place dirty spot %d: %w", id, err)
		}
		m.dirtySpots = append(m.dirtySpots, spot)
		m.spotsByID[id] = spot
		m.kinds[id] = KindDirtySpot
		m.schedule.Add(spot)
	}

	m.running = true
	m.startTime = m.now()
	return m, nil
}

func (m *Model) Grid() *grid.MultiGrid           { return m.grid }
func (m *Model) Rand() *rand.Rand                { return m.rng }
func (m *Model) Params() models.SimulationParams { return m.params }
func (m *Model) Running() bool                   { return m.running }
func (m *Model) CurrentStep() int                { return m.currentStep }
func (m *Model) MaxSteps() int                   { return m.params.MaxSteps }
func (m *Model) StopReason() string              { return m.stopReason }
func (m *Model) StartTime() time.Time            { return m.startTime }
func (m *Model) Dimensions() (width, height int) { return m.grid.Width(), m.grid.Height() }
func (m *Model) Collector() *DataCollector       { return m.collector }
func (m *Model) Cleaners() []*Cleaner            { return append([]*Cleaner(nil), m.cleaners...) }
func (m *Model) DirtySpots() []*DirtySpot        { return append([]*DirtySpot(nil), m.dirtySpots...) }

// DirtySpotsAt returns the dirty spots (clean or not) occupying pos.
func (m *Model) DirtySpotsAt(pos grid.Position) []*DirtySpot {
	occupants, err := m.grid.OccupantsAt(pos.X, pos.Y)
	if err != nil {
		return nil
	}
	var spots []*DirtySpot
	for _, id := range occupants {
		if m.kinds[id] != KindDirtySpot {
			continue
		}
		spots = append(spots, m.spotsByID[id])
	}
	return spots
}

// Step runs one tick: snapshot, activate every agent, count, check termination.
// It does nothing once the model has stopped.
func (m *Model) Step() {
	if !m.running {
		return
	}
	m.collector.snapshotAgents(m.currentStep, m.Agents())
	m.schedule.Step()
	m.currentStep++
	m.collector.record(m.stepMetrics())

	switch {
	case m.AllDirtyClean():
		m.finish(models.StopReasonAllClean)
	case m.currentStep >= m.params.MaxSteps:
		m.finish(models.StopReasonStepBudget)
	}
}

func (m *Model) finish(reason string) {
	m.running = false
	m.stopReason = reason
	m.elapsed = m.now().Sub(m.startTime)
	m.collector.snapshotAgents(m.currentStep, m.Agents())

	log.Printf("Simulation ended after steps: %d (%s)", m.currentStep, reason)
	log.Printf("Percentage of clean cells: %.2f", m.CleanPercentage())
	log.Printf("Total moves made by all agents: %d", m.TotalMoves())
}

// AllDirtyClean reports whether every dirty spot is clean; true when there are none.
func (m *Model) AllDirtyClean() bool {
	for _, spot := range m.dirtySpots {
		if !spot.IsClean() {
			return false
		}
	}
	return true
}

func (m *Model) CleanCount() int {
	n := 0
	for _, spot := range m.dirtySpots {
		if spot.IsClean() {
			n++
		}
	}
	return n
}

// CleanPercentage is 100 * clean spots / total spots. With no dirty spots at
// all it returns 0 rather than dividing by zero.
func (m *Model) CleanPercentage() float64 {
	total := len(m.dirtySpots)
	if total == 0 {
		return 0
	}
	return 100 * float64(m.CleanCount()) / float64(total)
}

// TotalMoves sums the move counts of all cleaners.
func (m *Model) TotalMoves() int {
	total := 0
	for _, c := range m.cleaners {
		total += c.MoveCount()
	}
	return total
}

// ElapsedTime is the wall time from construction to termination; unset while running.
func (m *Model) ElapsedTime() (time.Duration, bool) {
	if m.running {
		return 0, false
	}
	return m.elapsed, true
}

// Agents returns a view of every agent in registration order.
func (m *Model) Agents() []AgentState {
	states := make([]AgentState, 0, len(m.cleaners)+len(m.dirtySpots))
	for _, c := range m.cleaners {
		states = append(states, AgentState{
			ID:        c.ID(),
			Kind:      KindCleaner.String(),
			Position:  c.Position(),
			Vacuuming: c.Vacuuming(),
			Moves:     c.MoveCount(),
			Name:      c.Profile().Name,
		})
	}
	for _, spot := range m.dirtySpots {
		states = append(states, AgentState{
			ID:       spot.ID(),
			Kind:     KindDirtySpot.String(),
			Position: spot.Position(),
			Clean:    spot.IsClean(),
		})
	}
	return states
}

// Cleaning records one dirty spot being cleaned.
type Cleaning struct {
	Tick      int
	SpotID    int
	CleanerID int
	Position  grid.Position
}

// CleaningsAt returns the cleanings that happened during the given tick.
func (m *Model) CleaningsAt(tick int) []Cleaning {
	var out []Cleaning
	for _, spot := range m.dirtySpots {
		cleanerID, at, ok := spot.CleanedBy()
		if !ok || at != tick {
			continue
		}
		out = append(out, Cleaning{Tick: at, SpotID: spot.ID(), CleanerID: cleanerID, Position: spot.Position()})
	}
	return out
}

func (m *Model) stepMetrics() models.StepMetrics {
	clean := m.CleanCount()
	return models.StepMetrics{
		Step:            m.currentStep,
		CleanPercentage: m.CleanPercentage(),
		TotalMoves:      m.TotalMoves(),
		CleanSpots:      clean,
		DirtySpots:      len(m.dirtySpots) - clean,
	}
}
