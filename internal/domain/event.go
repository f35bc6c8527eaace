package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType names a published event.
type EventType string

const (
	// EventAssessmentScored follows every create or update that rescored a site.
	EventAssessmentScored EventType = "assessment.scored"
	// EventAreaAlert is raised by the sweep for areas at or above the alert level.
	EventAreaAlert EventType = "area.alert"
)

// Event is the envelope written to the events topic. Exactly one of
// Assessment and Area is set, matching Type.
type Event struct {
	ID          string           `json:"id"`
	Type        EventType        `json:"type"`
	Key         string           `json:"key"`
	PublishedAt time.Time        `json:"publishedAt"`
	Assessment  *Assessment      `json:"assessment,omitempty"`
	Area        *AreaCorrelation `json:"area,omitempty"`
}

// NewAssessmentScoredEvent wraps a persisted assessment, keyed by its id.
func NewAssessmentScoredEvent(a Assessment) Event {
	return Event{
		ID:          uuid.NewString(),
		Type:        EventAssessmentScored,
		Key:         a.ID,
		PublishedAt: Now(),
		Assessment:  &a,
	}
}

// NewAreaAlertEvent wraps one area of a correlation pass, keyed by area id.
func NewAreaAlertEvent(area AreaCorrelation) Event {
	return Event{
		ID:          uuid.NewString(),
		Type:        EventAreaAlert,
		Key:         area.AreaID,
		PublishedAt: Now(),
		Area:        &area,
	}
}

// AlertsAtOrAbove returns alert events for the areas whose risk level ranks
// at or above level, in the correlation's ranked order.
func AlertsAtOrAbove(c Correlation, level RiskLevel) []Event {
	var events []Event
	for _, area := range c.AreaCorrelations {
		if area.RiskLevel.Rank() >= level.Rank() {
			events = append(events, NewAreaAlertEvent(area))
		}
	}
	return events
}
