package domain

import "time"

const (
	PermVehicleView            = "vehicle.view"
	PermVehicleEdit            = "vehicle.edit"
	PermVehicleDelete          = "vehicle.delete"
	PermVehicleGrantAccess     = "vehicle.grant_access"
	PermVehicleViewHistory     = "vehicle.view_history"
	PermVehicleManageDocuments = "vehicle.manage_documents"
)

type Permission struct {
	ID          string
	Code        string
	Name        string
	Description string
	Category    string
	Active      bool
	CreatedAt   time.Time
}

// LinkTypePermission is the catalog row defining the default permission set of
// a link type. The effective permissions of a link type are exactly the active
// permissions joined through this table.
type LinkTypePermission struct {
	LinkTypeID   string
	PermissionID string
	CreatedAt    time.Time
}
