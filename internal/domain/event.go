package domain

import "time"

type EventCategory string

const (
	CategoryUsage         EventCategory = "usage"
	CategoryMaintenance   EventCategory = "maintenance"
	CategoryModification  EventCategory = "modification"
	CategoryAlert         EventCategory = "alert"
	CategoryFinancial     EventCategory = "financial"
	CategoryDocumentation EventCategory = "documentation"
)

type EventSeverity string

const (
	SeverityInfo     EventSeverity = "info"
	SeverityWarning  EventSeverity = "warning"
	SeverityError    EventSeverity = "error"
	SeverityCritical EventSeverity = "critical"
)

type EventVisibility string

const (
	VisibilityOwnerOnly      EventVisibility = "owner_only"
	VisibilityLinkedEntities EventVisibility = "linked_entities"
	VisibilityPublic         EventVisibility = "public"
)

// Source tables tracked by the event log.
const (
	SourceRefuels   = "vehicle_refuels"
	SourceMileage   = "mileage_records"
	SourceClaims    = "vehicle_claims"
	SourcePlates    = "plates"
	SourceLinks     = "links"
	SourceOdometers = "odometers"
	SourceColors    = "vehicle_colors"
	SourceCovers    = "vehicle_covers"
	SourceActions   = "actions"
)

// VehicleEvent is one immutable entry in a vehicle's timeline, derived from a
// write to a source table. At most one event exists per
// (SourceTable, SourceRecordID) pair.
type VehicleEvent struct {
	ID             string
	VehicleID      string
	EntityID       string
	Category       EventCategory
	Type           string
	Timestamp      time.Time
	Severity       EventSeverity
	Title          string
	Description    string
	Data           map[string]any
	SourceTable    string
	SourceRecordID string
	Tags           []string
	Visibility     EventVisibility
	CreatedAt      time.Time
}

func ValidCategory(c EventCategory) bool {
	switch c {
	case CategoryUsage, CategoryMaintenance, CategoryModification,
		CategoryAlert, CategoryFinancial, CategoryDocumentation:
		return true
	}
	return false
}

func ValidSeverity(s EventSeverity) bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityError, SeverityCritical:
		return true
	}
	return false
}

func ValidVisibility(v EventVisibility) bool {
	switch v {
	case VisibilityOwnerOnly, VisibilityLinkedEntities, VisibilityPublic:
		return true
	}
	return false
}
