package simulator

import (
	"fmt"
	"log"
	"time"

	"github.com/chrisdamba/cleanbotsim/internal/models"
	"github.com/xitongsys/parquet-go/schema"
)

// StepMetricsEvent carries the counters recorded after one tick
type StepMetricsEvent struct {
	Timestamp       int64   `json:"timestamp" parquet:"name=timestamp,type=INT64"`
	EventType       string  `json:"eventType" parquet:"name=eventType,type=BYTE_ARRAY,convertedtype=UTF8"`
	RunID           string  `json:"runId" parquet:"name=runId,type=BYTE_ARRAY,convertedtype=UTF8"`
	Step            int64   `json:"step" parquet:"name=step,type=INT64"`
	CleanPercentage float64 `json:"cleanPercentage" parquet:"name=cleanPercentage,type=DOUBLE"`
	TotalMoves      int64   `json:"totalMoves" parquet:"name=totalMoves,type=INT64"`
	CleanSpots      int64   `json:"cleanSpots" parquet:"name=cleanSpots,type=INT64"`
	DirtySpots      int64   `json:"dirtySpots" parquet:"name=dirtySpots,type=INT64"`
}

// AgentPositionEvent is one agent's state at the end of a tick
type AgentPositionEvent struct {
	Timestamp int64  `json:"timestamp" parquet:"name=timestamp,type=INT64"`
	EventType string `json:"eventType" parquet:"name=eventType,type=BYTE_ARRAY,convertedtype=UTF8"`
	RunID     string `json:"runId" parquet:"name=runId,type=BYTE_ARRAY,convertedtype=UTF8"`
	Step      int64  `json:"step" parquet:"name=step,type=INT64"`
	AgentID   int64  `json:"agentId" parquet:"name=agentId,type=INT64"`
	Kind      string `json:"kind" parquet:"name=kind,type=BYTE_ARRAY,convertedtype=UTF8"`
	X         int64  `json:"x" parquet:"name=x,type=INT64"`
	Y         int64  `json:"y" parquet:"name=y,type=INT64"`
	Clean     bool   `json:"clean" parquet:"name=clean,type=BOOLEAN"`
	Vacuuming bool   `json:"vacuuming" parquet:"name=vacuuming,type=BOOLEAN"`
	Moves     int64  `json:"moves" parquet:"name=moves,type=INT64"`
	Name      string `json:"name" parquet:"name=name,type=BYTE_ARRAY,convertedtype=UTF8"`
}

// SpotCleanedEvent records a cleaner vacuuming a dirty spot
type SpotCleanedEvent struct {
	Timestamp int64  `json:"timestamp" parquet:"name=timestamp,type=INT64"`
	EventType string `json:"eventType" parquet:"name=eventType,type=BYTE_ARRAY,convertedtype=UTF8"`
	RunID     string `json:"runId" parquet:"name=runId,type=BYTE_ARRAY,convertedtype=UTF8"`
	Step      int64  `json:"step" parquet:"name=step,type=INT64"`
	SpotID    int64  `json:"spotId" parquet:"name=spotId,type=INT64"`
	CleanerID int64  `json:"cleanerId" parquet:"name=cleanerId,type=INT64"`
	X         int64  `json:"x" parquet:"name=x,type=INT64"`
	Y         int64  `json:"y" parquet:"name=y,type=INT64"`
}

// RunSummaryEvent is emitted once when the simulation stops
type RunSummaryEvent struct {
	Timestamp       int64   `json:"timestamp" parquet:"name=timestamp,type=INT64"`
	EventType       string  `json:"eventType" parquet:"name=eventType,type=BYTE_ARRAY,convertedtype=UTF8"`
	RunID           string  `json:"runId" parquet:"name=runId,type=BYTE_ARRAY,convertedtype=UTF8"`
	Step            int64   `json:"step" parquet:"name=step,type=INT64"`
	Seed            int64   `json:"seed" parquet:"name=seed,type=INT64"`
	Robots          int64   `json:"robots" parquet:"name=robots,type=INT64"`
	DirtyCells      int64   `json:"dirtyCells" parquet:"name=dirtyCells,type=INT64"`
	Width           int64   `json:"width" parquet:"name=width,type=INT64"`
	Height          int64   `json:"height" parquet:"name=height,type=INT64"`
	Torus           bool    `json:"torus" parquet:"name=torus,type=BOOLEAN"`
	MaxSteps        int64   `json:"maxSteps" parquet:"name=maxSteps,type=INT64"`
	CleanPercentage float64 `json:"cleanPercentage" parquet:"name=cleanPercentage,type=DOUBLE"`
	TotalMoves      int64   `json:"totalMoves" parquet:"name=totalMoves,type=INT64"`
	StopReason      string  `json:"stopReason" parquet:"name=stopReason,type=BYTE_ARRAY,convertedtype=UTF8"`
	ElapsedMs       int64   `json:"elapsedMs" parquet:"name=elapsedMs,type=INT64"`
}

// newRecord returns a pointer to an empty record for the topic
func newRecord(topic string) (interface{}, error) {
	switch topic {
	case models.TopicStepMetrics:
		return new(StepMetricsEvent), nil
	case models.TopicAgentPositions:
		return new(AgentPositionEvent), nil
	case models.TopicSpotCleaned:
		return new(SpotCleanedEvent), nil
	case models.TopicRunSummary:
		return new(RunSummaryEvent), nil
	default:
		return nil, fmt.Errorf("unknown event topic: %s", topic)
	}
}

func GetSchema(topic string) (*schema.SchemaHandler, error) {
	rec, err := newRecord(topic)
	if err != nil {
		return nil, err
	}
	sh, err := schema.NewSchemaHandlerFromStruct(rec)
	if err != nil {
		log.Printf("Error creating schema for %s: %v", topic, err)
		return nil, fmt.Errorf("error creating schema for %s: %w", topic, err)
	}
	return sh, nil
}

func timestampOf(t time.Time) int64 {
	return t.UnixMilli()
}
