package simulator

import (
	"time"

	"github.com/chrisdamba/cleanbotsim/internal/models"
)

// Metrics is the read-only surface a display or reporting layer consumes.
type Metrics interface {
	Running() bool
	CurrentStep() int
	CleanPercentage() float64
	TotalMoves() int
	ElapsedTime() (time.Duration, bool)
	Dimensions() (width, height int)
	Agents() []AgentState
}

var _ Metrics = (*Model)(nil)

// DataCollector keeps the latest agent snapshot and one counter record per step.
type DataCollector struct {
	snapshotStep int
	snapshot     []AgentState
	history      []models.StepMetrics
}

func NewDataCollector() *DataCollector {
	return &DataCollector{history: make([]models.StepMetrics, 0)}
}

func (dc *DataCollector) snapshotAgents(step int, agents []AgentState) {
	dc.snapshotStep = step
	dc.snapshot = agents
}

func (dc *DataCollector) record(m models.StepMetrics) {
	dc.history = append(dc.history, m)
}

// Snapshot returns the most recent agent snapshot and the step it was taken at.
func (dc *DataCollector) Snapshot() (int, []AgentState) {
	out := make([]AgentState, len(dc.snapshot))
	copy(out, dc.snapshot)
	return dc.snapshotStep, out
}

// History returns the counters recorded after each completed step.
func (dc *DataCollector) History() []models.StepMetrics {
	out := make([]models.StepMetrics, len(dc.history))
	copy(out, dc.history)
	return out
}

// Latest returns the counters of the last completed step.
func (dc *DataCollector) Latest() (models.StepMetrics, bool) {
	if len(dc.history) == 0 {
		return models.StepMetrics{}, false
	}
	return dc.history[len(dc.history)-1], true
}
