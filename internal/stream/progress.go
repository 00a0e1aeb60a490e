// Package stream carries analysis progress to clients. Progress is an
// explicit state machine over the pipeline stages; events flow through
// a single producer so their order on the wire matches the order of
// emission.
package stream

import (
	"errors"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// EventType discriminates progress events.
type EventType string

const (
	EventStart           EventType = "start"
	EventProgress        EventType = "progress"
	EventCompetitorFound EventType = "competitor-found"
	EventCredits         EventType = "credits"
	EventComplete        EventType = "complete"
	EventError           EventType = "error"
)

// Stage is a pipeline stage name as seen by clients.
type Stage string

const (
	StageCredits      Stage = "credits"
	StageInitializing Stage = "initializing"
	StageIdentifying  Stage = "identifying-competitors"
	StageGenerating   Stage = "generating-prompts"
	StageAnalyzing    Stage = "analyzing"
	StageFinalizing   Stage = "finalizing"
	StageComplete     Stage = "complete"
	StageError        Stage = "error"
)

// stageOrder defines the only legal forward progression.
var stageOrder = map[Stage]int{
	StageInitializing: 0,
	StageIdentifying:  1,
	StageGenerating:   2,
	StageAnalyzing:    3,
	StageFinalizing:   4,
}

// Event is one progress frame.
type Event struct {
	Type      EventType `json:"type"`
	Stage     Stage     `json:"stage"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// StageData is the payload of start/progress events.
type StageData struct {
	Message   string `json:"message,omitempty"`
	Completed int    `json:"completed,omitempty"`
	Total     int    `json:"total,omitempty"`
}

// CreditsData is the payload of the credits event.
type CreditsData struct {
	Remaining int `json:"remaining"`
	Cost      int `json:"cost"`
}

// CompleteData is the payload of the terminal complete event.
type CompleteData struct {
	Analysis any `json:"analysis"`
}

// ErrorData is the payload of the terminal error event.
type ErrorData struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ErrTerminated is returned for any emission after complete or error.
var ErrTerminated = errors.New("stream: progress already terminated")

// Progress is the state machine that orders and emits events. Methods
// are safe for concurrent use; emission order equals call order.
type Progress struct {
	mu       sync.Mutex
	send     func(Event) error
	now      func() time.Time
	stage    Stage
	started  bool
	terminal bool
}

// NewProgress wraps a transport send function.
func NewProgress(send func(Event) error) *Progress {
	return &Progress{send: send, now: time.Now}
}

func (p *Progress) emit(t EventType, stage Stage, data any) error {
	return p.send(Event{Type: t, Stage: stage, Data: data, Timestamp: p.now().UTC()})
}

// Credits reports the credit charge. Allowed once, before Begin.
func (p *Progress) Credits(data CreditsData) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.terminal {
		return ErrTerminated
	}
	if p.started {
		return eris.New("stream: credits must precede start")
	}
	return p.emit(EventCredits, StageCredits, data)
}

// Begin enters the initializing stage and emits the start event.
func (p *Progress) Begin() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.terminal {
		return ErrTerminated
	}
	if p.started {
		return eris.New("stream: already started")
	}
	p.started = true
	p.stage = StageInitializing
	return p.emit(EventStart, StageInitializing, StageData{Message: "Starting analysis"})
}

// Advance moves to a later stage and emits a progress event. Moving
// backwards, or to an unknown stage, is rejected.
func (p *Progress) Advance(stage Stage, data StageData) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.terminal {
		return ErrTerminated
	}
	if !p.started {
		return eris.New("stream: advance before start")
	}
	next, ok := stageOrder[stage]
	if !ok {
		return eris.Errorf("stream: unknown stage %q", stage)
	}
	if next <= stageOrder[p.stage] {
		return eris.Errorf("stream: cannot advance from %q to %q", p.stage, stage)
	}
	p.stage = stage
	return p.emit(EventProgress, stage, data)
}

// Step emits a progress tick within the current stage.
func (p *Progress) Step(data StageData) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.terminal {
		return ErrTerminated
	}
	if !p.started {
		return eris.New("stream: step before start")
	}
	return p.emit(EventProgress, p.stage, data)
}

// CompetitorFound emits a competitor-found event. Only legal while the
// identifying stage is current.
func (p *Progress) CompetitorFound(data any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.terminal {
		return ErrTerminated
	}
	if p.stage != StageIdentifying {
		return eris.Errorf("stream: competitor-found outside identifying stage (current %q)", p.stage)
	}
	return p.emit(EventCompetitorFound, StageIdentifying, data)
}

// Complete emits the terminal complete event. Nothing may follow.
func (p *Progress) Complete(data CompleteData) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.terminal {
		return ErrTerminated
	}
	p.terminal = true
	return p.emit(EventComplete, StageComplete, data)
}

// Fail emits the terminal error event. Nothing may follow. An error
// preempts completion regardless of the current stage.
func (p *Progress) Fail(data ErrorData) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.terminal {
		return ErrTerminated
	}
	p.terminal = true
	return p.emit(EventError, StageError, data)
}

// Terminated reports whether a terminal event has been emitted.
func (p *Progress) Terminated() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.terminal
}
