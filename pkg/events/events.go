// Package events publishes notifications about finished tool runs and parse
// batches so other services can pick up new reports.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// DefaultChannel is the pub/sub channel events are published on.
const DefaultChannel = "webscan:reports"

// Event types.
const (
	TypeToolFinished  = "tool.finished"
	TypeBatchFinished = "batch.finished"
)

// Event is a notification payload.
type Event interface {
	EventType() string
}

// ToolEvent describes one tool invocation of a scan run.
type ToolEvent struct {
	RunID      string    `json:"run_id"`
	Tool       string    `json:"tool"`
	Target     string    `json:"target"`
	Command    []string  `json:"command,omitempty"`
	Status     string    `json:"status"`
	ExitCode   int       `json:"exit_code"`
	ReportPath string    `json:"report_path,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

func (ToolEvent) EventType() string { return TypeToolFinished }

// BatchEvent describes one resparse batch.
type BatchEvent struct {
	Directory  string    `json:"directory"`
	Files      int       `json:"files"`
	Records    int       `json:"records"`
	Persisted  int       `json:"persisted"`
	Driver     string    `json:"driver"`
	DurationMs int64     `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

func (BatchEvent) EventType() string { return TypeBatchFinished }

// Envelope is the wire format of a published event.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Encode wraps e in an Envelope and marshals it.
func Encode(e Event) ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal %s event: %w", e.EventType(), err)
	}
	return json.Marshal(Envelope{Type: e.EventType(), Data: data})
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// NopPublisher discards all events.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, e Event) error { return nil }
func (NopPublisher) Close() error                                { return nil }

var _ Publisher = NopPublisher{}
