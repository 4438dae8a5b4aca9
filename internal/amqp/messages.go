package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"wastedash/internal/core"
)

// SnapshotRequest asks the worker to render and store a dashboard snapshot.
// Only the filter travels; the worker loads the dataset itself.
type SnapshotRequest struct {
	ID            string    `json:"id"`
	From          int       `json:"from"`
	To            int       `json:"to"`
	Categories    []string  `json:"categories"`
	AllCategories bool      `json:"all_categories"`
	RequestedAt   time.Time `json:"requested_at"`
}

// NewSnapshotRequest creates a request with a fresh random ID.
func NewSnapshotRequest(years core.YearRange, categories []string, all bool) *SnapshotRequest {
	return &SnapshotRequest{
		ID:            uuid.NewString(),
		From:          years.Min,
		To:            years.Max,
		Categories:    categories,
		AllCategories: all,
		RequestedAt:   time.Now().UTC(),
	}
}

// Years returns the requested year range.
func (m *SnapshotRequest) Years() core.YearRange {
	return core.YearRange{Min: m.From, Max: m.To}
}

// Validate checks the fields a worker relies on.
func (m *SnapshotRequest) Validate() error {
	if _, err := uuid.Parse(m.ID); err != nil {
		return fmt.Errorf("invalid snapshot id %q: %w", m.ID, err)
	}
	return nil
}

// ToJSON converts the message to JSON bytes
func (m *SnapshotRequest) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SnapshotRequestFromJSON decodes and validates a message.
func SnapshotRequestFromJSON(data []byte) (*SnapshotRequest, error) {
	var msg SnapshotRequest
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
