package models

import "time"

// RobotProfile is the cosmetic identity a display layer shows for a cleaner
type RobotProfile struct {
	Name         string `json:"name"`
	ModelCode    string `json:"modelCode"`
	SerialNumber string `json:"serialNumber"`
}

// StepMetrics are the per-step counters recorded after every tick
type StepMetrics struct {
	Step            int     `json:"step"`
	CleanPercentage float64 `json:"cleanPercentage"`
	TotalMoves      int     `json:"totalMoves"`
	CleanSpots      int     `json:"cleanSpots"`
	DirtySpots      int     `json:"dirtySpots"`
}

// RunSummary is the final record of a simulation run
type RunSummary struct {
	RunID           string        `json:"runId"`
	Seed            int64         `json:"seed"`
	Robots          int           `json:"robots"`
	DirtyCells      int           `json:"dirtyCells"`
	Width           int           `json:"width"`
	Height          int           `json:"height"`
	Torus           bool          `json:"torus"`
	MaxSteps        int           `json:"maxSteps"`
	Steps           int           `json:"steps"`
	CleanPercentage float64       `json:"cleanPercentage"`
	TotalMoves      int           `json:"totalMoves"`
	StopReason      string        `json:"stopReason"`
	Elapsed         time.Duration `json:"elapsed"`
	StartedAt       time.Time     `json:"startedAt"`
	FinishedAt      time.Time     `json:"finishedAt"`
}
