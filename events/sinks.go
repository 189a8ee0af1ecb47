package events

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/ruteri/reserve-attestation-registry/interfaces"
)

// LogSink writes an audit log line for every event.
type LogSink struct {
	log *slog.Logger
	now func() time.Time
}

// NewLogSink creates a sink logging every event at Info level.
func NewLogSink(log *slog.Logger) *LogSink {
	if log == nil {
		log = slog.Default()
	}
	return &LogSink{log: log, now: time.Now}
}

// Emit logs event with its name and asset code.
func (s *LogSink) Emit(ctx context.Context, event interfaces.Event) {
	env := NewEnvelope(event, s.now())
	attrs := []any{
		slog.String("event_id", env.ID.String()),
		slog.String("event", env.Name),
	}
	if env.AssetCode != "" {
		attrs = append(attrs, slog.String("asset_code", env.AssetCode))
	}
	attrs = append(attrs, slog.Any("payload", event))
	s.log.InfoContext(ctx, "Registry event", attrs...)
}

// Recorder keeps every emitted event in memory, in emission order.
type Recorder struct {
	mu     sync.RWMutex
	events []interfaces.Event
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Emit appends event to the recording.
func (r *Recorder) Emit(_ context.Context, event interfaces.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns a snapshot of everything recorded so far.
func (r *Recorder) Events() []interfaces.Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.events)
}

// Names returns the recorded event names in order.
func (r *Recorder) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.events))
	for i, event := range r.events {
		names[i] = event.EventName()
	}
	return names
}

// ForAsset returns the events concerning a single asset, in order.
func (r *Recorder) ForAsset(code interfaces.AssetCode) []interfaces.Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []interfaces.Event
	for _, event := range r.events {
		if scoped, ok := event.(interfaces.AssetScoped); ok && scoped.AssetCode() == code {
			out = append(out, event)
		}
	}
	return out
}

// Reset discards everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// Fanout delivers each event to every sink in order.
type Fanout []interfaces.EventSink

// Emit forwards event to every sink in order.
func (f Fanout) Emit(ctx context.Context, event interfaces.Event) {
	for _, sink := range f {
		if sink != nil {
			sink.Emit(ctx, event)
		}
	}
}
