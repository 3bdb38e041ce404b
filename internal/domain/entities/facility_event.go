package entities

import (
	"time"

	"github.com/google/uuid"
)

// FacilityEventType represents the type of facility change
type FacilityEventType string

const (
	FacilityEventTypeCreated FacilityEventType = "created"
	FacilityEventTypeUpdated FacilityEventType = "updated"
	FacilityEventTypeDeleted FacilityEventType = "deleted"
	FacilityEventTypeRated   FacilityEventType = "rated"
)

// FacilityEvent is published whenever a facility record changes.
type FacilityEvent struct {
	ID         string            `json:"id"`
	FacilityID int64             `json:"facility_id"`
	EventType  FacilityEventType `json:"event_type"`
	Name       string            `json:"name,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}

// NewFacilityEvent creates a new facility event
func NewFacilityEvent(facilityID int64, eventType FacilityEventType, name string) *FacilityEvent {
	return &FacilityEvent{
		ID:         uuid.NewString(),
		FacilityID: facilityID,
		EventType:  eventType,
		Name:       name,
		Timestamp:  time.Now(),
	}
}
