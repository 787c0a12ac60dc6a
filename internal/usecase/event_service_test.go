package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jedmesilva/mobistory-backend/internal/domain"
)

func TestRecordIdempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	vehicle := f.addVehicle()

	input := RecordInput{
		VehicleID:      vehicle.ID,
		Category:       domain.CategoryUsage,
		Type:           "refuel",
		Title:          "Refuel: 40L",
		SourceTable:    domain.SourceRefuels,
		SourceRecordID: "refuel-1",
	}
	first, created, err := f.eventSvc.Record(ctx, input)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if !created {
		t.Fatal("first record reported not created")
	}

	second, created, err := f.eventSvc.Record(ctx, input)
	if err != nil {
		t.Fatalf("repeat record: %v", err)
	}
	if created {
		t.Fatal("repeat record created a second row")
	}
	if second.ID != first.ID {
		t.Fatalf("repeat returned id %s, want existing %s", second.ID, first.ID)
	}
	if len(f.events.events) != 1 {
		t.Fatalf("stored events = %d, want 1", len(f.events.events))
	}
}

func TestRecordAmendedTimestampStillDedupes(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	vehicle := f.addVehicle()

	input := RecordInput{
		VehicleID:      vehicle.ID,
		Category:       domain.CategoryAlert,
		Type:           "claim_reported",
		Severity:       domain.SeverityError,
		Title:          "Claim: collision",
		Timestamp:      time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		SourceTable:    domain.SourceClaims,
		SourceRecordID: "claim-1",
	}
	first, created, err := f.eventSvc.Record(ctx, input)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if !created {
		t.Fatal("first record reported not created")
	}

	// The source row's date was corrected and the change refired. The pair
	// already has an event, so nothing new may land even though the amended
	// timestamp would slip past the storage unique index.
	input.Timestamp = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	second, created, err := f.eventSvc.Record(ctx, input)
	if err != nil {
		t.Fatalf("refire: %v", err)
	}
	if created {
		t.Fatal("refire with amended timestamp created a second row")
	}
	if second.ID != first.ID {
		t.Fatalf("refire returned id %s, want existing %s", second.ID, first.ID)
	}
	if len(f.events.events) != 1 {
		t.Fatalf("stored events = %d, want 1", len(f.events.events))
	}
}

func TestRecordValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	vehicle := f.addVehicle()

	base := RecordInput{
		VehicleID:      vehicle.ID,
		Category:       domain.CategoryUsage,
		Type:           "refuel",
		Title:          "Refuel",
		SourceTable:    domain.SourceRefuels,
		SourceRecordID: "r-1",
	}

	tests := []struct {
		name   string
		mutate func(*RecordInput)
	}{
		{"missing vehicle", func(in *RecordInput) { in.VehicleID = "" }},
		{"missing source table", func(in *RecordInput) { in.SourceTable = "" }},
		{"missing source record", func(in *RecordInput) { in.SourceRecordID = "" }},
		{"unknown category", func(in *RecordInput) { in.Category = "gossip" }},
		{"missing type", func(in *RecordInput) { in.Type = "" }},
		{"missing title", func(in *RecordInput) { in.Title = "" }},
		{"alert without severity", func(in *RecordInput) { in.Category = domain.CategoryAlert }},
		{"unknown severity", func(in *RecordInput) { in.Severity = "mild" }},
		{"unknown visibility", func(in *RecordInput) { in.Visibility = "secret" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := base
			tt.mutate(&input)
			if _, _, err := f.eventSvc.Record(ctx, input); !errors.Is(err, domain.ErrInvalidArgument) {
				t.Fatalf("err = %v, want ErrInvalidArgument", err)
			}
		})
	}
}

func TestRecordDefaults(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	vehicle := f.addVehicle()

	event, _, err := f.eventSvc.Record(ctx, RecordInput{
		VehicleID:      vehicle.ID,
		Category:       domain.CategoryMaintenance,
		Type:           "odometer_installed",
		Title:          "Odometer installed",
		SourceTable:    domain.SourceOdometers,
		SourceRecordID: "odo-1",
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if event.Visibility != domain.VisibilityOwnerOnly {
		t.Fatalf("visibility = %s, want owner_only default", event.Visibility)
	}
	if !event.Timestamp.Equal(f.now) {
		t.Fatalf("timestamp = %v, want clock default %v", event.Timestamp, f.now)
	}
}

func TestTimelineVisibility(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	owner := f.addEntity()
	driver := f.addEntity()
	stranger := f.addEntity()
	vehicle := f.addVehicle()
	f.addLink(owner.ID, vehicle.ID, domain.LinkOwner, domain.LinkActive)
	f.addLink(driver.ID, vehicle.ID, domain.LinkAuthorizedDriver, domain.LinkActive)

	seed := []struct {
		recordID   string
		visibility domain.EventVisibility
	}{
		{"e-owner", domain.VisibilityOwnerOnly},
		{"e-linked", domain.VisibilityLinkedEntities},
		{"e-public", domain.VisibilityPublic},
	}
	for i, s := range seed {
		if _, _, err := f.eventSvc.Record(ctx, RecordInput{
			VehicleID:      vehicle.ID,
			Category:       domain.CategoryUsage,
			Type:           "refuel",
			Timestamp:      f.now.Add(time.Duration(i) * time.Minute),
			Title:          "Refuel",
			SourceTable:    domain.SourceRefuels,
			SourceRecordID: s.recordID,
			Visibility:     s.visibility,
		}); err != nil {
			t.Fatalf("seed %s: %v", s.recordID, err)
		}
	}

	tests := []struct {
		name   string
		caller string
		want   int
	}{
		{"owner sees all", owner.ID, 3},
		{"driver sees linked and public", driver.ID, 2},
		{"stranger sees public", stranger.ID, 1},
		{"anonymous sees public", "", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, _, err := f.eventSvc.Timeline(ctx, vehicle.ID, TimelineFilter{}, tt.caller)
			if err != nil {
				t.Fatalf("timeline: %v", err)
			}
			if len(events) != tt.want {
				t.Fatalf("events = %d, want %d", len(events), tt.want)
			}
		})
	}
}

func TestTimelineNewestFirst(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	owner := f.addEntity()
	vehicle := f.addVehicle()
	f.addLink(owner.ID, vehicle.ID, domain.LinkOwner, domain.LinkActive)

	for i := 0; i < 3; i++ {
		if _, _, err := f.eventSvc.Record(ctx, RecordInput{
			VehicleID:      vehicle.ID,
			Category:       domain.CategoryUsage,
			Type:           "mileage_update",
			Timestamp:      f.now.Add(time.Duration(i) * time.Hour),
			Title:          "Mileage updated",
			SourceTable:    domain.SourceMileage,
			SourceRecordID: string(rune('a' + i)),
		}); err != nil {
			t.Fatalf("seed %d: %v", i, err)
		}
	}

	events, _, err := f.eventSvc.Timeline(ctx, vehicle.ID, TimelineFilter{}, owner.ID)
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	for i := 1; i < len(events); i++ {
		if events[i].Timestamp.After(events[i-1].Timestamp) {
			t.Fatalf("timeline not newest-first at %d: %v then %v", i, events[i-1].Timestamp, events[i].Timestamp)
		}
	}
}
