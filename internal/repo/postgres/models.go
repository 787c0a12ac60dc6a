package postgres

import "time"

type EntityTypeModel struct {
	ID              string `gorm:"type:uuid;primaryKey"`
	Code            string `gorm:"uniqueIndex;not null"`
	Name            string
	RequiresLegalID bool      `gorm:"column:requires_legal_id;not null;default:false"`
	LegalIDFormat   string    `gorm:"column:legal_id_format"`
	Active          bool      `gorm:"not null;default:true"`
	CreatedAt       time.Time `gorm:"not null"`
}

func (EntityTypeModel) TableName() string { return "entity_types" }

type EntityModel struct {
	ID           string `gorm:"type:uuid;primaryKey"`
	Code         string `gorm:"uniqueIndex;not null"`
	EntityTypeID string `gorm:"type:uuid;index;not null"`
	LegalID      string `gorm:"column:legal_id"`
	Active       bool   `gorm:"not null;default:true"`
	Verified     bool   `gorm:"not null;default:false"`
	Anonymous    bool   `gorm:"not null;default:false"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (EntityModel) TableName() string { return "entities" }

type EntityNameModel struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	EntityID  string `gorm:"type:uuid;index:idx_entity_names_entity;not null"`
	NameType  string `gorm:"index:idx_entity_names_entity;not null"`
	Value     string `gorm:"not null"`
	IsCurrent bool   `gorm:"not null;default:true"`
	StartDate time.Time
	EndDate   *time.Time
	Reason    string
	ChangedBy string
	CreatedAt time.Time
}

func (EntityNameModel) TableName() string { return "entity_names" }

type EntityContactModel struct {
	ID          string `gorm:"type:uuid;primaryKey"`
	EntityID    string `gorm:"type:uuid;index:idx_entity_contacts_entity;not null"`
	ContactType string `gorm:"index:idx_entity_contacts_entity;not null"`
	Value       string `gorm:"not null"`
	IsCurrent   bool   `gorm:"not null;default:true"`
	Verified    bool   `gorm:"not null;default:false"`
	StartDate   time.Time
	EndDate     *time.Time
	CreatedAt   time.Time
}

func (EntityContactModel) TableName() string { return "entity_contacts" }

type VehicleModel struct {
	ID         string `gorm:"type:uuid;primaryKey"`
	VIN        string `gorm:"column:vin;index"`
	Renavam    string
	BrandID    string
	ModelID    string
	VersionID  string
	Visibility string `gorm:"not null;default:private"`
	Active     bool   `gorm:"not null;default:true"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (VehicleModel) TableName() string { return "vehicles" }

type LinkTypeModel struct {
	ID          string `gorm:"type:uuid;primaryKey"`
	Code        string `gorm:"uniqueIndex;not null"`
	Name        string
	Description string
	Active      bool `gorm:"not null;default:true"`
	CreatedAt   time.Time
}

func (LinkTypeModel) TableName() string { return "link_types" }

type LinkModel struct {
	ID            string `gorm:"type:uuid;primaryKey"`
	Code          string `gorm:"uniqueIndex;not null"`
	EntityID      string `gorm:"type:uuid;index:idx_links_entity_vehicle;not null"`
	VehicleID     string `gorm:"type:uuid;index:idx_links_entity_vehicle;index;not null"`
	LinkTypeID    string `gorm:"type:uuid;index;not null"`
	Status        string `gorm:"index;not null"`
	DocumentProof string
	RequestedBy   string
	ValidatedAt   *time.Time
	ValidatedBy   string
	StartDate     time.Time
	EndDate       *time.Time
	Observations  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (LinkModel) TableName() string { return "links" }

type LinkStatusModel struct {
	ID             string `gorm:"type:uuid;primaryKey"`
	LinkID         string `gorm:"type:uuid;index;not null"`
	PreviousStatus string
	NewStatus      string `gorm:"not null"`
	ChangedBy      string
	Reason         string
	CreatedAt      time.Time `gorm:"not null"`
}

func (LinkStatusModel) TableName() string { return "link_status" }

type PermissionModel struct {
	ID          string `gorm:"type:uuid;primaryKey"`
	Code        string `gorm:"uniqueIndex;not null"`
	Name        string
	Description string
	Category    string
	Active      bool `gorm:"not null;default:true"`
	CreatedAt   time.Time
}

func (PermissionModel) TableName() string { return "permissions" }

type LinkTypePermissionModel struct {
	LinkTypeID   string `gorm:"type:uuid;primaryKey"`
	PermissionID string `gorm:"type:uuid;primaryKey"`
	CreatedAt    time.Time
}

func (LinkTypePermissionModel) TableName() string { return "link_type_permissions" }

// VehicleEventModel maps the partitioned vehicle_events table. The table
// itself is created by raw DDL in migrate.go; AutoMigrate must not touch it.
type VehicleEventModel struct {
	ID             string `gorm:"type:uuid"`
	VehicleID      string `gorm:"type:uuid;not null"`
	EntityID       string
	EventCategory  string `gorm:"not null"`
	EventType      string `gorm:"not null"`
	EventTimestamp time.Time
	Severity       string
	Title          string `gorm:"not null"`
	Description    string
	EventData      []byte `gorm:"type:jsonb"`
	SourceTable    string `gorm:"not null"`
	SourceRecordID string `gorm:"not null"`
	Tags           []byte `gorm:"type:jsonb"`
	Visibility     string `gorm:"not null"`
	CreatedAt      time.Time
}

func (VehicleEventModel) TableName() string { return "vehicle_events" }
