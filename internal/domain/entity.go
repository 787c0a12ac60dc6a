package domain

import (
	"strings"
	"time"
	"unicode"
)

type EntityTypeCode string

const (
	EntityPerson  EntityTypeCode = "person"
	EntityCompany EntityTypeCode = "company"
	EntityDevice  EntityTypeCode = "device"
)

// LegalIDFormat identifies the national document format an entity type requires.
type LegalIDFormat string

const (
	LegalIDNone LegalIDFormat = ""
	LegalIDCPF  LegalIDFormat = "cpf"
	LegalIDCNPJ LegalIDFormat = "cnpj"
)

type EntityType struct {
	ID              string
	Code            EntityTypeCode
	Name            string
	RequiresLegalID bool
	LegalIDFormat   LegalIDFormat
	Active          bool
	CreatedAt       time.Time
}

type Entity struct {
	ID        string
	Code      string
	TypeCode  EntityTypeCode
	LegalID   string
	Active    bool
	Verified  bool
	Anonymous bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

const (
	NameTypeLegal    = "legal_name"
	NameTypeDisplay  = "display_name"
	NameTypeNickname = "nickname"
	NameTypeTrade    = "trade_name"
)

const (
	ContactEmail       = "email"
	ContactPhone       = "phone"
	ContactWhatsApp    = "whatsapp"
	ContactFingerprint = "device_fingerprint"
)

// EntityName is one row of the append-only name history. At most one row per
// (entity, name type) has Current set.
type EntityName struct {
	ID        string
	EntityID  string
	NameType  string
	Value     string
	Current   bool
	StartDate time.Time
	EndDate   *time.Time
	Reason    string
	ChangedBy string
	CreatedAt time.Time
}

// EntityContact is one row of the append-only contact history. At most one row
// per (entity, contact type) has Current set.
type EntityContact struct {
	ID          string
	EntityID    string
	ContactType string
	Value       string
	Current     bool
	Verified    bool
	StartDate   time.Time
	EndDate     *time.Time
	CreatedAt   time.Time
}

// ValidateLegalID checks the digit shape of a CPF (11 digits) or CNPJ
// (14 digits). Punctuation is tolerated; check digits are not verified here.
func ValidateLegalID(format LegalIDFormat, value string) error {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, value)
	switch format {
	case LegalIDCPF:
		if len(digits) != 11 {
			return ErrInvalidArgument
		}
	case LegalIDCNPJ:
		if len(digits) != 14 {
			return ErrInvalidArgument
		}
	case LegalIDNone:
		if strings.TrimSpace(value) == "" {
			return ErrInvalidArgument
		}
	default:
		return ErrInvalidArgument
	}
	return nil
}
