package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jedmesilva/mobistory-backend/internal/domain"
)

// Projector re-expresses as application code what the original schema did with
// table triggers: every tracked source write fans in to at most one derived
// timeline event. All methods are idempotent through the event log's source
// key, so retried invocations for the same record are harmless.
type Projector struct {
	Events *EventService
}

func NewProjector(events *EventService) *Projector {
	return &Projector{Events: events}
}

type ChangeOp string

const (
	OpInsert ChangeOp = "insert"
	OpUpdate ChangeOp = "update"
)

type RefuelChange struct {
	RecordID      string
	VehicleID     string
	EntityID      string
	Date          time.Time
	Liters        float64
	PricePerLiter float64
	TotalPrice    float64
	OdometerKM    int
	FullTank      bool
	Observations  string
}

func (p *Projector) RefuelRecorded(ctx context.Context, c RefuelChange) (domain.VehicleEvent, bool, error) {
	return p.record(ctx, RecordInput{
		VehicleID:   c.VehicleID,
		EntityID:    c.EntityID,
		Category:    domain.CategoryUsage,
		Type:        "refuel",
		Timestamp:   c.Date,
		Title:       fmt.Sprintf("Refuel: %gL", c.Liters),
		Description: "Refuel recorded",
		Data: map[string]any{
			"liters":           c.Liters,
			"price_per_liter":  c.PricePerLiter,
			"total_price":      c.TotalPrice,
			"odometer_reading": c.OdometerKM,
			"full_tank":        c.FullTank,
			"observations":     c.Observations,
		},
		SourceTable:    domain.SourceRefuels,
		SourceRecordID: c.RecordID,
		Tags:           []string{"refuel", "fuel"},
	})
}

type MileageChange struct {
	RecordID        string
	VehicleID       string
	OdometerID      string
	RecordedAt      time.Time
	Mileage         int
	PreviousMileage int
}

func (p *Projector) MileageRecorded(ctx context.Context, c MileageChange) (domain.VehicleEvent, bool, error) {
	return p.record(ctx, RecordInput{
		VehicleID:   c.VehicleID,
		Category:    domain.CategoryUsage,
		Type:        "mileage_update",
		Timestamp:   c.RecordedAt,
		Title:       fmt.Sprintf("Mileage updated: %d km", c.Mileage),
		Description: "Mileage recorded",
		Data: map[string]any{
			"mileage":          c.Mileage,
			"odometer_id":      c.OdometerID,
			"previous_mileage": c.PreviousMileage,
			"difference":       c.Mileage - c.PreviousMileage,
		},
		SourceTable:    domain.SourceMileage,
		SourceRecordID: c.RecordID,
		Tags:           []string{"mileage", "odometer"},
	})
}

type ClaimChange struct {
	RecordID        string
	VehicleID       string
	ClaimType       string
	Severity        string
	Date            time.Time
	ClaimKM         int
	LocationLat     float64
	LocationLng     float64
	Address         string
	PoliceReport    string
	InsuranceStatus string
	TotalRepairCost float64
	Status          string
	Description     string
}

// ClaimSeverity maps a claim's own severity scale onto the event log's.
// Unknown values degrade to warning rather than dropping the alert.
func ClaimSeverity(claimSeverity string) domain.EventSeverity {
	switch claimSeverity {
	case "minor":
		return domain.SeverityWarning
	case "moderate":
		return domain.SeverityError
	case "severe", "total_loss":
		return domain.SeverityCritical
	default:
		return domain.SeverityWarning
	}
}

// ClaimReported fires on both insert and update of a claim; the source key
// keeps the repeated firings to a single event.
func (p *Projector) ClaimReported(ctx context.Context, c ClaimChange) (domain.VehicleEvent, bool, error) {
	claimType := c.ClaimType
	if claimType == "" {
		claimType = "unspecified"
	}
	description := c.Description
	if description == "" {
		description = "Claim recorded"
	}
	return p.record(ctx, RecordInput{
		VehicleID:   c.VehicleID,
		Category:    domain.CategoryAlert,
		Type:        "claim_reported",
		Timestamp:   c.Date,
		Severity:    ClaimSeverity(c.Severity),
		Title:       "Claim: " + claimType,
		Description: description,
		Data: map[string]any{
			"claim_type": c.ClaimType,
			"severity":   c.Severity,
			"claim_km":   c.ClaimKM,
			"location": map[string]any{
				"lat":     c.LocationLat,
				"lng":     c.LocationLng,
				"address": c.Address,
			},
			"police_report":     c.PoliceReport,
			"insurance_status":  c.InsuranceStatus,
			"total_repair_cost": c.TotalRepairCost,
			"status":            c.Status,
			"description":       c.Description,
		},
		SourceTable:    domain.SourceClaims,
		SourceRecordID: c.RecordID,
		Tags:           []string{"claim", "accident", c.ClaimType},
	})
}

type PlateChange struct {
	Op             ChangeOp
	RecordID       string
	VehicleID      string
	EntityID       string
	PlateNumber    string
	State          string
	City           string
	LicensingStart *time.Time
	LicensingEnd   *time.Time
	Status         string
	PrevStatus     string
}

// PlateChanged emits on insert only when the plate is ACTIVE, and on update
// only when the status actually changed.
func (p *Projector) PlateChanged(ctx context.Context, c PlateChange) (domain.VehicleEvent, bool, error) {
	var eventType, title string
	switch c.Op {
	case OpInsert:
		if c.Status != "ACTIVE" {
			return domain.VehicleEvent{}, false, nil
		}
		eventType = "plate_added"
		title = "Plate added: " + c.PlateNumber
	case OpUpdate:
		if c.Status == c.PrevStatus {
			return domain.VehicleEvent{}, false, nil
		}
		eventType = "plate_changed"
		title = "Plate changed: " + c.PlateNumber
	default:
		return domain.VehicleEvent{}, false, nil
	}
	timestamp := time.Time{}
	if c.LicensingStart != nil {
		timestamp = *c.LicensingStart
	}
	return p.record(ctx, RecordInput{
		VehicleID:   c.VehicleID,
		EntityID:    c.EntityID,
		Category:    domain.CategoryModification,
		Type:        eventType,
		Timestamp:   timestamp,
		Title:       title,
		Description: "Vehicle plate change",
		Data: map[string]any{
			"plate_number":         c.PlateNumber,
			"state":                c.State,
			"city":                 c.City,
			"licensing_start_date": c.LicensingStart,
			"licensing_end_date":   c.LicensingEnd,
			"status":               c.Status,
		},
		SourceTable:    domain.SourcePlates,
		SourceRecordID: c.RecordID,
		Tags:           []string{"plate", "documentation"},
	})
}

type OdometerChange struct {
	Op               ChangeOp
	RecordID         string
	VehicleID        string
	Brand            string
	Model            string
	PartNumber       string
	InstallationDate *time.Time
	RemovalDate      *time.Time
	PrevRemovalDate  *time.Time
	Cost             float64
	WarrantyMonths   int
	ReasonForChange  string
	DamageType       string
}

// OdometerChanged emits on install, and on update only when the removal date
// was newly set.
func (p *Projector) OdometerChanged(ctx context.Context, c OdometerChange) (domain.VehicleEvent, bool, error) {
	var eventType, title string
	var severity domain.EventSeverity
	var timestamp time.Time
	switch {
	case c.Op == OpInsert:
		eventType = "odometer_installed"
		title = "Odometer installed: " + c.Brand + " " + c.Model
		if c.DamageType != "" {
			severity = domain.SeverityWarning
		}
		if c.InstallationDate != nil {
			timestamp = *c.InstallationDate
		}
	case c.Op == OpUpdate && c.RemovalDate != nil && c.PrevRemovalDate == nil:
		eventType = "odometer_removed"
		title = "Odometer removed"
		severity = domain.SeverityInfo
		timestamp = *c.RemovalDate
	default:
		return domain.VehicleEvent{}, false, nil
	}
	description := c.ReasonForChange
	if description == "" {
		description = "Odometer maintenance"
	}
	return p.record(ctx, RecordInput{
		VehicleID:   c.VehicleID,
		Category:    domain.CategoryMaintenance,
		Type:        eventType,
		Timestamp:   timestamp,
		Severity:    severity,
		Title:       title,
		Description: description,
		Data: map[string]any{
			"brand":             c.Brand,
			"model":             c.Model,
			"part_number":       c.PartNumber,
			"installation_date": c.InstallationDate,
			"removal_date":      c.RemovalDate,
			"cost":              c.Cost,
			"warranty_months":   c.WarrantyMonths,
			"reason_for_change": c.ReasonForChange,
			"damage_type":       c.DamageType,
		},
		SourceTable:    domain.SourceOdometers,
		SourceRecordID: c.RecordID,
		Tags:           []string{"odometer", "maintenance"},
	})
}

type ColorChange struct {
	RecordID  string
	VehicleID string
	ColorID   string
	ColorName string
	Primary   bool
	At        time.Time
}

// PrimaryColorSet emits only for rows marked primary.
func (p *Projector) PrimaryColorSet(ctx context.Context, c ColorChange) (domain.VehicleEvent, bool, error) {
	if !c.Primary {
		return domain.VehicleEvent{}, false, nil
	}
	colorName := c.ColorName
	if colorName == "" {
		colorName = "unspecified color"
	}
	return p.record(ctx, RecordInput{
		VehicleID:   c.VehicleID,
		Category:    domain.CategoryModification,
		Type:        "color_change",
		Timestamp:   c.At,
		Title:       "Color changed to " + colorName,
		Description: "Vehicle color change",
		Data: map[string]any{
			"color_id":   c.ColorID,
			"color_name": c.ColorName,
			"is_primary": c.Primary,
		},
		SourceTable:    domain.SourceColors,
		SourceRecordID: c.RecordID,
		Tags:           []string{"color", "customization"},
	})
}

type CoverChange struct {
	RecordID     string
	VehicleID    string
	FileID       string
	FileURL      string
	Primary      bool
	DisplayOrder int
	At           time.Time
}

// PrimaryCoverSet emits only for rows marked primary.
func (p *Projector) PrimaryCoverSet(ctx context.Context, c CoverChange) (domain.VehicleEvent, bool, error) {
	if !c.Primary {
		return domain.VehicleEvent{}, false, nil
	}
	return p.record(ctx, RecordInput{
		VehicleID:   c.VehicleID,
		Category:    domain.CategoryModification,
		Type:        "cover_changed",
		Timestamp:   c.At,
		Title:       "Cover photo updated",
		Description: "Vehicle cover image changed",
		Data: map[string]any{
			"file_id":       c.FileID,
			"file_url":      c.FileURL,
			"is_primary":    c.Primary,
			"display_order": c.DisplayOrder,
		},
		SourceTable:    domain.SourceCovers,
		SourceRecordID: c.RecordID,
		Tags:           []string{"photo", "cover"},
	})
}

type ActionChange struct {
	RecordID     string
	VehicleID    string
	EntityID     string
	Status       string
	PrevStatus   string
	ActionTypeID string
	Title        string
	Description  string
	Priority     string
	ScheduledFor *time.Time
	ExecutedAt   *time.Time
}

// ActionCompleted emits only on the transition into completed.
func (p *Projector) ActionCompleted(ctx context.Context, c ActionChange) (domain.VehicleEvent, bool, error) {
	if c.Status != "completed" || c.PrevStatus == "completed" {
		return domain.VehicleEvent{}, false, nil
	}
	title := c.Title
	if title == "" {
		title = "untitled"
	}
	description := c.Description
	if description == "" {
		description = "Action completed"
	}
	timestamp := time.Time{}
	if c.ExecutedAt != nil {
		timestamp = *c.ExecutedAt
	}
	return p.record(ctx, RecordInput{
		VehicleID:   c.VehicleID,
		EntityID:    c.EntityID,
		Category:    domain.CategoryDocumentation,
		Type:        "action_executed",
		Timestamp:   timestamp,
		Title:       "Action executed: " + title,
		Description: description,
		Data: map[string]any{
			"action_type_id":        c.ActionTypeID,
			"title":                 c.Title,
			"description":           c.Description,
			"status":                c.Status,
			"priority":              c.Priority,
			"scheduled_for":         c.ScheduledFor,
			"executed_at":           c.ExecutedAt,
			"executed_by_entity_id": c.EntityID,
		},
		SourceTable:    domain.SourceActions,
		SourceRecordID: c.RecordID,
		Tags:           []string{"action", "task"},
	})
}

func (p *Projector) record(ctx context.Context, input RecordInput) (domain.VehicleEvent, bool, error) {
	event, created, err := p.Events.Record(ctx, input)
	if err != nil {
		return domain.VehicleEvent{}, false, err
	}
	return event, created, nil
}

// Link events are built here but persisted by the link repository inside the
// same transaction as the link write itself.

func linkEventSeverity(to domain.LinkStatus) domain.EventSeverity {
	switch to {
	case domain.LinkSuspended:
		return domain.SeverityWarning
	case domain.LinkTerminated:
		return domain.SeverityError
	default:
		return domain.SeverityInfo
	}
}

func linkEventData(link domain.Link, prev domain.LinkStatus) map[string]any {
	return map[string]any{
		"link_code":       link.Code,
		"entity_id":       link.EntityID,
		"link_type_id":    link.LinkTypeID,
		"status":          string(link.Status),
		"previous_status": string(prev),
		"start_date":      link.StartDate,
		"end_date":        link.EndDate,
	}
}

func linkCreatedEvent(link domain.Link, at time.Time) *domain.VehicleEvent {
	return &domain.VehicleEvent{
		ID:             uuid.NewString(),
		VehicleID:      link.VehicleID,
		EntityID:       link.EntityID,
		Category:       domain.CategoryModification,
		Type:           "link_created",
		Timestamp:      at,
		Severity:       domain.SeverityInfo,
		Title:          "Link created",
		Description:    "Entity link change",
		Data:           linkEventData(link, ""),
		SourceTable:    domain.SourceLinks,
		SourceRecordID: link.ID,
		Tags:           []string{"link", "access"},
		Visibility:     domain.VisibilityOwnerOnly,
		CreatedAt:      at,
	}
}

func linkEndScheduledEvent(link domain.Link, endDate, at time.Time) *domain.VehicleEvent {
	scheduled := link
	scheduled.EndDate = &endDate
	return &domain.VehicleEvent{
		ID:             uuid.NewString(),
		VehicleID:      link.VehicleID,
		EntityID:       link.EntityID,
		Category:       domain.CategoryModification,
		Type:           "link_terminated",
		Timestamp:      at,
		Severity:       domain.SeverityWarning,
		Title:          "Link end date set: " + endDate.Format("2006-01-02"),
		Description:    "Entity link change",
		Data:           linkEventData(scheduled, link.Status),
		SourceTable:    domain.SourceLinks,
		SourceRecordID: link.ID + ":end:" + endDate.Format("2006-01-02"),
		Tags:           []string{"link", "access"},
		Visibility:     domain.VisibilityOwnerOnly,
		CreatedAt:      at,
	}
}

func linkStatusChangedEvent(link domain.Link, from, to domain.LinkStatus, at time.Time) *domain.VehicleEvent {
	changed := link
	changed.Status = to
	return &domain.VehicleEvent{
		ID:             uuid.NewString(),
		VehicleID:      link.VehicleID,
		EntityID:       link.EntityID,
		Category:       domain.CategoryModification,
		Type:           "link_status_changed",
		Timestamp:      at,
		Severity:       linkEventSeverity(to),
		Title:          fmt.Sprintf("Link status changed: %s -> %s", from, to),
		Description:    "Entity link change",
		Data:           linkEventData(changed, from),
		SourceTable:    domain.SourceLinks,
		SourceRecordID: link.ID + ":" + string(to),
		Tags:           []string{"link", "access"},
		Visibility:     domain.VisibilityOwnerOnly,
		CreatedAt:      at,
	}
}
