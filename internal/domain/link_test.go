package domain

import (
	"testing"
	"time"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from LinkStatus
		to   LinkStatus
		want bool
	}{
		{"approve request", LinkPendingRequest, LinkActive, true},
		{"reject request", LinkPendingRequest, LinkRejected, true},
		{"validate claim approved", LinkPendingValidation, LinkActive, true},
		{"validate claim rejected", LinkPendingValidation, LinkRejected, true},
		{"terminate active", LinkActive, LinkTerminated, true},
		{"revoke active", LinkActive, LinkRevoked, true},
		{"suspend active", LinkActive, LinkSuspended, true},
		{"reactivate suspended", LinkSuspended, LinkActive, true},
		{"terminate suspended", LinkSuspended, LinkTerminated, true},
		{"terminate terminated", LinkTerminated, LinkTerminated, false},
		{"revive terminated", LinkTerminated, LinkActive, false},
		{"revive revoked", LinkRevoked, LinkActive, false},
		{"revive rejected", LinkRejected, LinkActive, false},
		{"request straight to terminated", LinkPendingRequest, LinkTerminated, false},
		{"claim straight to revoked", LinkPendingValidation, LinkRevoked, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to); got != tt.want {
				t.Fatalf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestTerminalStatuses(t *testing.T) {
	for _, s := range []LinkStatus{LinkRejected, LinkTerminated, LinkRevoked} {
		if !s.Terminal() {
			t.Fatalf("expected %s terminal", s)
		}
	}
	for _, s := range []LinkStatus{LinkPendingRequest, LinkPendingValidation, LinkActive, LinkSuspended} {
		if s.Terminal() {
			t.Fatalf("expected %s non-terminal", s)
		}
	}
}

func TestCurrentlyValid(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	yesterday := now.AddDate(0, 0, -1)
	tomorrow := now.AddDate(0, 0, 1)
	lastWeek := now.AddDate(0, 0, -7)

	tests := []struct {
		name string
		link Link
		want bool
	}{
		{"active open-ended", Link{Status: LinkActive, StartDate: yesterday}, true},
		{"active ends tomorrow", Link{Status: LinkActive, StartDate: yesterday, EndDate: &tomorrow}, true},
		{"active expired", Link{Status: LinkActive, StartDate: lastWeek, EndDate: &yesterday}, false},
		{"active not started", Link{Status: LinkActive, StartDate: tomorrow}, false},
		{"suspended", Link{Status: LinkSuspended, StartDate: yesterday}, false},
		{"terminated", Link{Status: LinkTerminated, StartDate: yesterday}, false},
		{"pending request", Link{Status: LinkPendingRequest, StartDate: yesterday}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.link.CurrentlyValid(now); got != tt.want {
				t.Fatalf("CurrentlyValid = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidateLegalID(t *testing.T) {
	tests := []struct {
		name    string
		format  LegalIDFormat
		value   string
		wantErr bool
	}{
		{"cpf plain", LegalIDCPF, "12345678901", false},
		{"cpf punctuated", LegalIDCPF, "123.456.789-01", false},
		{"cpf short", LegalIDCPF, "1234567890", true},
		{"cnpj plain", LegalIDCNPJ, "12345678000195", false},
		{"cnpj punctuated", LegalIDCNPJ, "12.345.678/0001-95", false},
		{"cnpj wrong length", LegalIDCNPJ, "12345678901", true},
		{"free-form empty", LegalIDNone, "  ", true},
		{"free-form ok", LegalIDNone, "serial-9f", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLegalID(tt.format, tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateLegalID(%s, %q) err = %v, wantErr %v", tt.format, tt.value, err, tt.wantErr)
			}
		})
	}
}
