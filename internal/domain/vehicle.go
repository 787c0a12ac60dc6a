package domain

import "time"

type Vehicle struct {
	ID         string
	VIN        string
	Renavam    string
	BrandID    string
	ModelID    string
	VersionID  string
	Visibility string
	Active     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
