package models

import (
	"container/heap"
	"sync"
	"time"
)

const (
	EventStepMetrics   = "StepMetrics"
	EventAgentPosition = "AgentPosition"
	EventSpotCleaned   = "SpotCleaned"
	EventRunSummary    = "RunSummary"
)

// Event represents something observed during a simulation tick
type Event struct {
	Step int
	Seq  uint64
	Time time.Time
	Type string
	Data interface{}
}

// EventMessage is a serialized event ready to be written to an output topic
type EventMessage struct {
	Topic   string
	Key     string
	Message []byte
}

// EventQueue is a priority queue of events ordered by step, then by enqueue order
type EventQueue struct {
	events []*Event
	seq    uint64
	mutex  sync.Mutex
}

// eventHeap implements heap.Interface and holds Events
type eventHeap []*Event

func (h eventHeap) Len() int { return len(h) }
func (h eventHeap) Less(i, j int) bool {
	if h[i].Step != h[j].Step {
		return h[i].Step < h[j].Step
	}
	return h[i].Seq < h[j].Seq
}
func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x interface{}) {
	*h = append(*h, x.(*Event))
}

func (h *eventHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*h = old[0 : n-1]
	return x
}

// NewEventQueue creates a new EventQueue
func NewEventQueue() *EventQueue {
	return &EventQueue{events: make([]*Event, 0)}
}

// Enqueue adds an event to the queue and stamps its sequence number
func (eq *EventQueue) Enqueue(event *Event) {
	eq.mutex.Lock()
	defer eq.mutex.Unlock()
	eq.seq++
	event.Seq = eq.seq
	heap.Push((*eventHeap)(&eq.events), event)
}

// DequeueThrough removes and returns, in order, every event recorded at or before step
func (eq *EventQueue) DequeueThrough(step int) []*Event {
	eq.mutex.Lock()
	defer eq.mutex.Unlock()

	var batch []*Event
	for len(eq.events) > 0 && eq.events[0].Step <= step {
		batch = append(batch, heap.Pop((*eventHeap)(&eq.events)).(*Event))
	}
	return batch
}
