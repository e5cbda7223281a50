// Package telemetry is the fire-and-forget event sink. Emissions never fail
// the calling operation.
package telemetry

import (
	"encoding/json"
	"log"
)

// Sink receives one event with free-form fields.
type Sink interface {
	Emit(event string, fields map[string]any)
}

// LogSink writes events as single JSON lines via the standard logger.
type LogSink struct{}

func NewLogSink() LogSink { return LogSink{} }

func (LogSink) Emit(event string, fields map[string]any) {
	payload, err := json.Marshal(fields)
	if err != nil {
		log.Printf(`{"event":%q}`, event)
		return
	}
	log.Printf(`{"event":%q,"fields":%s}`, event, payload)
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) Emit(string, map[string]any) {}
