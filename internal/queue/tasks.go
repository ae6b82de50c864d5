// Package queue schedules background feed refreshes over asynq.
package queue

import (
	"encoding/json"
	"fmt"
)

// Task types
const (
	TypeRefreshFeed = "feed:refresh"
)

// RefreshFeedPayload is the payload for feed refresh tasks.
type RefreshFeedPayload struct {
	UserID   string                 `json:"user_id"`
	Reason   string                 `json:"reason"`
	Metadata map[string]interface{} `json:"metadata"`
}

// NewRefreshFeedTask creates a feed refresh task payload.
func NewRefreshFeedTask(userID, reason string, metadata map[string]interface{}) (*RefreshFeedPayload, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}

	if metadata == nil {
		metadata = make(map[string]interface{})
	}

	return &RefreshFeedPayload{
		UserID:   userID,
		Reason:   reason,
		Metadata: metadata,
	}, nil
}

// Marshal serializes the payload to JSON.
func (p *RefreshFeedPayload) Marshal() ([]byte, error) {
	return json.Marshal(p)
}

// UnmarshalRefreshFeedPayload deserializes JSON to payload.
func UnmarshalRefreshFeedPayload(data []byte) (*RefreshFeedPayload, error) {
	var payload RefreshFeedPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return &payload, nil
}
