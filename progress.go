package scribd2pdf

import (
	"sync"

	"go.uber.org/zap"
)

// Stage labels reported in pipeline order.
const (
	StageLaunching  = "launching"
	StageScrolling  = "scrolling"
	StageSanitizing = "sanitizing"
	StagePrinting   = "printing"
	StageDone       = "done"
)

// Reporter receives progress events from a conversion. Calls arrive from the
// goroutine running Convert, in order.
type Reporter interface {
	Stage(label string)
	Progress(fraction float64)
}

// Resetter is implemented by reporters that can clear partial progress.
// Convert calls Reset when a conversion fails.
type Resetter interface {
	Reset()
}

// NopReporter discards all events.
type NopReporter struct{}

func (NopReporter) Stage(string)     {}
func (NopReporter) Progress(float64) {}
func (NopReporter) Reset()           {}

var (
	_ Reporter = NopReporter{}
	_ Reporter = (*LogReporter)(nil)
	_ Resetter = (*LogReporter)(nil)
	_ Reporter = (*RecordingReporter)(nil)
	_ Resetter = (*RecordingReporter)(nil)
)

// LogReporter writes progress events to a zap logger. Fractions are logged
// in 10% steps to keep long documents readable.
type LogReporter struct {
	log  *zap.Logger
	last int
}

// NewLogReporter returns a Reporter backed by log. A nil logger discards events.
func NewLogReporter(log *zap.Logger) *LogReporter {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogReporter{log: log, last: -1}
}

func (r *LogReporter) Stage(label string) {
	r.log.Info("stage", zap.String("stage", label))
}

func (r *LogReporter) Progress(fraction float64) {
	bucket := int(fraction * 10)
	if bucket == r.last {
		return
	}
	r.last = bucket
	r.log.Debug("progress", zap.Float64("fraction", fraction))
}

func (r *LogReporter) Reset() {
	r.last = -1
	r.log.Info("progress reset")
}

// Event is one recorded progress call.
type Event struct {
	Stage    string
	Fraction float64
	Reset    bool
}

// RecordingReporter stores every event. It is safe for concurrent use and
// serves tests and callers that render progress after the fact.
type RecordingReporter struct {
	mu     sync.Mutex
	events []Event
}

func (r *RecordingReporter) Stage(label string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Stage: label})
}

func (r *RecordingReporter) Progress(fraction float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Fraction: fraction})
}

func (r *RecordingReporter) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Reset: true})
}

// Events returns a copy of the recorded events.
func (r *RecordingReporter) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Stages returns the recorded stage labels in order.
func (r *RecordingReporter) Stages() []string {
	var stages []string
	for _, e := range r.Events() {
		if e.Stage != "" {
			stages = append(stages, e.Stage)
		}
	}
	return stages
}

// Fractions returns the recorded progress fractions in order.
func (r *RecordingReporter) Fractions() []float64 {
	var fractions []float64
	for _, e := range r.Events() {
		if e.Stage == "" && !e.Reset {
			fractions = append(fractions, e.Fraction)
		}
	}
	return fractions
}
