package domain

import "time"

type LinkStatus string

const (
	LinkPendingRequest    LinkStatus = "pending_request"
	LinkPendingValidation LinkStatus = "pending_validation"
	LinkActive            LinkStatus = "active"
	LinkSuspended         LinkStatus = "suspended"
	LinkRejected          LinkStatus = "rejected"
	LinkTerminated        LinkStatus = "terminated"
	LinkRevoked           LinkStatus = "revoked"
)

type LinkTypeCode string

const (
	LinkOwner            LinkTypeCode = "owner"
	LinkCoOwner          LinkTypeCode = "co_owner"
	LinkRenter           LinkTypeCode = "renter"
	LinkAuthorizedDriver LinkTypeCode = "authorized_driver"
	LinkManager          LinkTypeCode = "manager"
	LinkMechanic         LinkTypeCode = "mechanic"
)

type LinkType struct {
	ID          string
	Code        LinkTypeCode
	Name        string
	Description string
	Active      bool
	CreatedAt   time.Time
}

// Link connects one entity to one vehicle via one link type. Status moves
// through the transition table below; every change is recorded in the
// link_status history.
type Link struct {
	ID            string
	Code          string
	EntityID      string
	VehicleID     string
	LinkTypeID    string
	LinkTypeCode  LinkTypeCode
	Status        LinkStatus
	DocumentProof string
	// RequestedBy is the entity that opened the link when it began as a
	// request or claim; empty for direct grants.
	RequestedBy  string
	ValidatedAt  *time.Time
	ValidatedBy  string
	StartDate    time.Time
	EndDate      *time.Time
	Observations string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

var linkTransitions = map[LinkStatus]map[LinkStatus]bool{
	LinkPendingRequest: {
		LinkActive:   true,
		LinkRejected: true,
	},
	LinkPendingValidation: {
		LinkActive:   true,
		LinkRejected: true,
	},
	LinkActive: {
		LinkSuspended:  true,
		LinkTerminated: true,
		LinkRevoked:    true,
	},
	LinkSuspended: {
		LinkActive:     true,
		LinkTerminated: true,
		LinkRevoked:    true,
	},
}

// CanTransition reports whether the status machine permits from -> to.
// Terminal statuses (rejected, terminated, revoked) permit nothing.
func CanTransition(from, to LinkStatus) bool {
	return linkTransitions[from][to]
}

func (s LinkStatus) Terminal() bool {
	return s == LinkRejected || s == LinkTerminated || s == LinkRevoked
}

// CurrentlyValid reports whether the link grants permissions on the given day:
// active status, started, and not past its end date. An expired link keeps its
// status but stops granting.
func (l Link) CurrentlyValid(today time.Time) bool {
	if l.Status != LinkActive {
		return false
	}
	day := today.Truncate(24 * time.Hour)
	if l.StartDate.After(today) {
		return false
	}
	if l.EndDate != nil && l.EndDate.Before(day) {
		return false
	}
	return true
}

func (c LinkTypeCode) Ownership() bool {
	return c == LinkOwner || c == LinkCoOwner
}

// LinkStatusChange is one immutable row of the transition audit trail.
type LinkStatusChange struct {
	ID        string
	LinkID    string
	From      LinkStatus
	To        LinkStatus
	ChangedBy string
	Reason    string
	CreatedAt time.Time
}
