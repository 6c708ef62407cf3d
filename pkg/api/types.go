package api

import (
	"encoding/json"
	"time"

	"github.com/open-teleop/dronectl/domain/control"
	"github.com/open-teleop/dronectl/pkg/journal"
	"github.com/open-teleop/dronectl/pkg/processing"
	"github.com/open-teleop/dronectl/pkg/remote"
)

// StateResponse is the body of GET /api/v1/state. State is null until the
// first poll succeeds.
type StateResponse struct {
	State       *remote.VehicleState `json:"state"`
	Seq         uint64               `json:"seq,omitempty"`
	FetchedAt   *time.Time           `json:"fetched_at,omitempty"`
	Age         string               `json:"age,omitempty"`
	Permissions control.Permissions  `json:"permissions"`
}

// ActionResponse acknowledges an accepted action.
type ActionResponse struct {
	Action control.Action `json:"action"`
	Status string         `json:"status"`
}

// StatsResponse is the body of GET /api/v1/dispatch/stats.
type StatsResponse struct {
	Dispatch control.DispatchStats   `json:"dispatch"`
	Poller   control.PollerStats     `json:"poller"`
	InFlight bool                    `json:"in_flight"`
	Events   *processing.PoolMetrics `json:"events,omitempty"`
	Topics   []processing.TopicInfo  `json:"topics,omitempty"`
}

// JournalEntry renders a journal.Entry; JSON payloads are inlined, others
// are base64 encoded.
type JournalEntry struct {
	ID          int64           `json:"id"`
	Topic       string          `json:"topic"`
	ContentType string          `json:"content_type"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	RecordedAt  time.Time       `json:"recorded_at"`
}

func newJournalEntry(e journal.Entry) JournalEntry {
	view := JournalEntry{
		ID:          e.ID,
		Topic:       e.Topic,
		ContentType: e.ContentType,
		RecordedAt:  e.RecordedAt,
	}
	if e.ContentType == processing.ContentTypeJSON && json.Valid(e.Payload) {
		view.Payload = e.Payload
	} else if len(e.Payload) > 0 {
		view.Payload, _ = json.Marshal(e.Payload)
	}
	return view
}
