package sinks

import (
	"time"

	"github.com/inklet-hq/syndicator/internal/domain"
)

// Trigger names what initiated the publish pass carried by an event.
type Trigger string

const (
	TriggerImmediate Trigger = "immediate"
	TriggerScheduled Trigger = "scheduled"
	TriggerUpdate    Trigger = "update"
)

// Event is the payload delivered downstream after a publish pass settles:
// one entry per requested platform, success or failure.
type Event struct {
	ArticleID  string                 `json:"article_id"`
	UserID     string                 `json:"user_id"`
	Trigger    Trigger                `json:"trigger"`
	Results    []domain.PublishResult `json:"results"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// NewEvent constructs an Event for the given article and results.
func NewEvent(articleID, userID string, trigger Trigger, results []domain.PublishResult) Event {
	return Event{
		ArticleID:  articleID,
		UserID:     userID,
		Trigger:    trigger,
		Results:    results,
		OccurredAt: time.Now().UTC(),
	}
}

// Succeeded counts the successful per-platform results.
func (e Event) Succeeded() int {
	n := 0
	for _, r := range e.Results {
		if r.Success {
			n++
		}
	}
	return n
}
