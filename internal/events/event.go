package events

import (
	"context"
	"encoding/json"
	"time"
)

// Event types published by the file coordinator.
const (
	TypeFileUploaded = "file.uploaded"
	TypeFileDeleted  = "file.deleted"
)

// Event describes one completed lifecycle change. The storage key is not
// included; consumers address files by id.
type Event struct {
	Type         string    `json:"type"`
	FileID       string    `json:"fileId"`
	OriginalName string    `json:"originalName"`
	ContentType  string    `json:"contentType,omitempty"`
	SizeBytes    int64     `json:"size,omitempty"`
	OccurredAt   time.Time `json:"occurredAt"`
	Version      int       `json:"version"`
}

// Publisher delivers events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Encode returns the JSON representation of an event.
func Encode(ev Event) ([]byte, error) {
	return json.Marshal(ev)
}

// Decode parses a JSON payload into an Event.
func Decode(payload []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return Event{}, err
	}
	return ev, nil
}
