// Package progress carries the per-bundle narration emitted by the ingest
// pipeline to whoever is listening.
package progress

import (
	"context"
	"log/slog"
	"sync"

	"lumina-backend/internal/models"
)

const (
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Sink receives progress events. Implementations must be safe for
// concurrent use.
type Sink interface {
	Emit(ctx context.Context, event models.ProgressEvent)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(ctx context.Context, event models.ProgressEvent)

func (f SinkFunc) Emit(ctx context.Context, event models.ProgressEvent) {
	f(ctx, event)
}

// Discard drops every event.
var Discard Sink = SinkFunc(func(context.Context, models.ProgressEvent) {})

// LogSink writes each event as a structured log record.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger.With("component", "progress")}
}

func (s *LogSink) Emit(ctx context.Context, event models.ProgressEvent) {
	level := slog.LevelInfo
	switch event.Level {
	case LevelWarn:
		level = slog.LevelWarn
	case LevelError:
		level = slog.LevelError
	}
	s.logger.Log(ctx, level, event.Message,
		"bundle_id", event.BundleID.String(),
		"filename", event.Filename,
		"state", string(event.State),
	)
}

// Collector keeps every event in memory, in arrival order.
type Collector struct {
	mu     sync.Mutex
	events []models.ProgressEvent
}

func (c *Collector) Emit(_ context.Context, event models.ProgressEvent) {
	c.mu.Lock()
	c.events = append(c.events, event)
	c.mu.Unlock()
}

// Events returns a copy of the collected events.
func (c *Collector) Events() []models.ProgressEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.ProgressEvent, len(c.events))
	copy(out, c.events)
	return out
}

// States returns the state of each collected event.
func (c *Collector) States() []models.BundleState {
	events := c.Events()
	out := make([]models.BundleState, 0, len(events))
	for _, e := range events {
		out = append(out, e.State)
	}
	return out
}

// Multi fans an event out to every non-nil sink.
func Multi(sinks ...Sink) Sink {
	filtered := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			filtered = append(filtered, s)
		}
	}
	return SinkFunc(func(ctx context.Context, event models.ProgressEvent) {
		for _, s := range filtered {
			s.Emit(ctx, event)
		}
	})
}
