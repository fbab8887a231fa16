package simulator

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/chrisdamba/cleanbotsim/internal/factories"
	"github.com/chrisdamba/cleanbotsim/internal/models"
	"github.com/chrisdamba/cleanbotsim/internal/repositories"
	"github.com/lucsky/cuid"
	"github.com/schollz/progressbar/v3"
)

// Simulator drives a Model to completion and streams what happens on every
// tick to the configured output.
type Simulator struct {
	Config     *models.Config
	RunID      string
	Seed       int64
	Rng        *rand.Rand
	Model      *Model
	EventQueue *models.EventQueue

	runs         repositories.RunRepository
	output       OutputDestination
	cloudWriters CloudWriterFactoryFunc
	now          func() time.Time
}

// NewSimulator builds the model for cfg. A zero seed is replaced with one
// drawn from the wall clock; the seed actually used is kept on the simulator.
func NewSimulator(cfg *models.Config, opts ...ModelOption) (*Simulator, error) {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	profiles := factories.NewRobotFactory(seed)
	opts = append([]ModelOption{WithRobotProfiles(profiles.ProfileFunc())}, opts...)
	model, err := NewModel(cfg.Simulation, rng, opts...)
	if err != nil {
		return nil, err
	}

	return &Simulator{
		Config:     cfg,
		RunID:      cuid.New(),
		Seed:       seed,
		Rng:        rng,
		Model:      model,
		EventQueue: models.NewEventQueue(),
		now:        time.Now,
	}, nil
}

// SetOutput overrides the destination chosen from the config
func (s *Simulator) SetOutput(out OutputDestination) { s.output = out }

// SetCloudWriterFactory overrides how parquet objects reach cloud storage
func (s *Simulator) SetCloudWriterFactory(fn CloudWriterFactoryFunc) { s.cloudWriters = fn }

// SetRunRepository makes Run store its summary when it stops
func (s *Simulator) SetRunRepository(runs repositories.RunRepository) { s.runs = runs }

// Run steps the model until it stops or ctx is cancelled. Cancellation is only
// observed between ticks; the partial summary is returned with ctx.Err().
func (s *Simulator) Run(ctx context.Context) (*models.RunSummary, error) {
	output := s.output
	if output == nil {
		var err error
		output, err = s.determineOutputDestination(ctx)
		if err != nil {
			return nil, err
		}
	}
	defer func() {
		if err := output.Close(); err != nil {
			log.Printf("Failed to close output: %v", err)
		}
	}()

	params := s.Config.Simulation
	log.Printf("Simulation %s starts: %dx%d grid (torus=%t), %d robots, %d dirty cells, seed %d",
		s.RunID, params.Width, params.Height, params.Torus, params.Robots, params.DirtyCells, s.Seed)

	bar := s.newProgressBar()

	var ticks <-chan time.Time
	if s.Config.StepInterval > 0 {
		ticker := time.NewTicker(s.Config.StepInterval)
		defer ticker.Stop()
		ticks = ticker.C
	}

	var eventsCount int
	if s.Config.RecordPositions {
		s.enqueuePositions(0)
		eventsCount += s.flush(output, 0)
	}

	for s.Model.Running() {
		if ticks != nil {
			select {
			case <-ctx.Done():
				return s.stop(ctx, output, models.StopReasonCancelled, ctx.Err())
			case <-ticks:
			}
		} else if err := ctx.Err(); err != nil {
			return s.stop(ctx, output, models.StopReasonCancelled, err)
		}

		s.Model.Step()
		step := s.Model.CurrentStep()
		s.enqueueStep(step)
		eventsCount += s.flush(output, step)

		if bar != nil {
			_ = bar.Add(1)
		}
		s.showProgress(step, eventsCount)
	}

	if bar != nil {
		_ = bar.Finish()
	}
	return s.stop(ctx, output, s.Model.StopReason(), nil)
}

func (s *Simulator) newProgressBar() *progressbar.ProgressBar {
	if !s.Config.ShowProgress {
		return nil
	}
	return progressbar.NewOptions(s.Model.MaxSteps(),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("cleaning"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

// stop emits and stores the run summary
func (s *Simulator) stop(ctx context.Context, output OutputDestination, reason string, runErr error) (*models.RunSummary, error) {
	summary := s.summary(reason)
	if reason == models.StopReasonCancelled {
		log.Printf("Simulation %s cancelled at step %d", s.RunID, summary.Steps)
	}

	s.EventQueue.Enqueue(&models.Event{
		Step: summary.Steps,
		Time: summary.FinishedAt,
		Type: models.EventRunSummary,
		Data: RunSummaryEvent{
			Timestamp:       timestampOf(summary.FinishedAt),
			EventType:       models.EventRunSummary,
			RunID:           summary.RunID,
			Step:            int64(summary.Steps),
			Seed:            summary.Seed,
			Robots:          int64(summary.Robots),
			DirtyCells:      int64(summary.DirtyCells),
			Width:           int64(summary.Width),
			Height:          int64(summary.Height),
			Torus:           summary.Torus,
			MaxSteps:        int64(summary.MaxSteps),
			CleanPercentage: summary.CleanPercentage,
			TotalMoves:      int64(summary.TotalMoves),
			StopReason:      summary.StopReason,
			ElapsedMs:       summary.Elapsed.Milliseconds(),
		},
	})
	s.flush(output, summary.Steps)

	if s.runs != nil {
		// a cancelled run is still worth recording
		if err := s.runs.Create(context.WithoutCancel(ctx), summary); err != nil {
			log.Printf("Failed to store run %s: %v", s.RunID, err)
			if runErr == nil {
				runErr = fmt.Errorf("failed to store run summary: %w", err)
			}
		}
	}

	return summary, runErr
}

func (s *Simulator) summary(reason string) *models.RunSummary {
	finished := s.now()
	elapsed, ok := s.Model.ElapsedTime()
	if !ok {
		elapsed = finished.Sub(s.Model.StartTime())
	}
	params := s.Model.Params()

	return &models.RunSummary{
		RunID:           s.RunID,
		Seed:            s.Seed,
		Robots:          params.Robots,
		DirtyCells:      params.DirtyCells,
		Width:           params.Width,
		Height:          params.Height,
		Torus:           params.Torus,
		MaxSteps:        params.MaxSteps,
		Steps:           s.Model.CurrentStep(),
		CleanPercentage: s.Model.CleanPercentage(),
		TotalMoves:      s.Model.TotalMoves(),
		StopReason:      reason,
		Elapsed:         elapsed,
		StartedAt:       s.Model.StartTime(),
		FinishedAt:      finished,
	}
}

func (s *Simulator) enqueueStep(step int) {
	now := s.now()

	if metrics, ok := s.Model.Collector().Latest(); ok {
		s.EventQueue.Enqueue(&models.Event{
			Step: step,
			Time: now,
			Type: models.EventStepMetrics,
			Data: StepMetricsEvent{
				Timestamp:       timestampOf(now),
				EventType:       models.EventStepMetrics,
				RunID:           s.RunID,
				Step:            int64(metrics.Step),
				CleanPercentage: metrics.CleanPercentage,
				TotalMoves:      int64(metrics.TotalMoves),
				CleanSpots:      int64(metrics.CleanSpots),
				DirtySpots:      int64(metrics.DirtySpots),
			},
		})
	}

	for _, c := range s.Model.CleaningsAt(step) {
		s.EventQueue.Enqueue(&models.Event{
			Step: step,
			Time: now,
			Type: models.EventSpotCleaned,
			Data: SpotCleanedEvent{
				Timestamp: timestampOf(now),
				EventType: models.EventSpotCleaned,
				RunID:     s.RunID,
				Step:      int64(step),
				SpotID:    int64(c.SpotID),
				CleanerID: int64(c.CleanerID),
				X:         int64(c.Position.X),
				Y:         int64(c.Position.Y),
			},
		})
	}

	if s.Config.RecordPositions {
		s.enqueuePositions(step)
	}
}

func (s *Simulator) enqueuePositions(step int) {
	now := s.now()
	for _, a := range s.Model.Agents() {
		s.EventQueue.Enqueue(&models.Event{
			Step: step,
			Time: now,
			Type: models.EventAgentPosition,
			Data: AgentPositionEvent{
				Timestamp: timestampOf(now),
				EventType: models.EventAgentPosition,
				RunID:     s.RunID,
				Step:      int64(step),
				AgentID:   int64(a.ID),
				Kind:      a.Kind,
				X:         int64(a.Position.X),
				Y:         int64(a.Position.Y),
				Clean:     a.Clean,
				Vacuuming: a.Vacuuming,
				Moves:     int64(a.Moves),
				Name:      a.Name,
			},
		})
	}
}

// flush writes every queued event up to step. Write failures are logged and
// do not stop the run.
func (s *Simulator) flush(output OutputDestination, step int) int {
	var written int
	for _, event := range s.EventQueue.DequeueThrough(step) {
		eventMsg, err := s.serializeEvent(*event)
		if err != nil {
			log.Printf("Error serializing event: %v", err)
			continue
		}
		if err := writeEvent(output, eventMsg); err != nil {
			log.Printf("Failed to write message: %v", err)
			continue
		}
		written++
	}
	return written
}

func writeEvent(output OutputDestination, eventMsg models.EventMessage) error {
	if keyed, ok := output.(KeyedOutputDestination); ok {
		return keyed.WriteKeyedMessage(eventMsg.Topic, eventMsg.Key, eventMsg.Message)
	}
	return output.WriteMessage(eventMsg.Topic, eventMsg.Message)
}

func (s *Simulator) showProgress(step, eventsCount int) {
	if step%100 == 0 {
		log.Printf("Step %d, clean %.2f%%, events written: %d", step, s.Model.CleanPercentage(), eventsCount)
	}
}

func (s *Simulator) serializeEvent(event models.Event) (models.EventMessage, error) {
	var topic string
	switch event.Type {
	case models.EventStepMetrics:
		topic = models.TopicStepMetrics
	case models.EventAgentPosition:
		topic = models.TopicAgentPositions
	case models.EventSpotCleaned:
		topic = models.TopicSpotCleaned
	case models.EventRunSummary:
		topic = models.TopicRunSummary
	default:
		return models.EventMessage{}, fmt.Errorf("unknown event type: %s", event.Type)
	}

	jsonData, err := json.Marshal(event.Data)
	if err != nil {
		return models.EventMessage{}, fmt.Errorf("error marshaling %s event: %w", event.Type, err)
	}

	return models.EventMessage{
		Topic:   topic,
		Key:     s.RunID,
		Message: jsonData,
	}, nil
}
