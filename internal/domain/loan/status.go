package loan

import (
	"fmt"
	"strings"
)

type Status string

const (
	StatusAwaitingSignatures Status = "awaiting_signatures"
	StatusActive             Status = "active"
	StatusPartialDefault     Status = "partial_default"
	StatusFullDefault        Status = "full_default"
	StatusClosed             Status = "closed"
)

// legacyStatuses maps status strings found in previously persisted rows
// (the old system stored free-form Spanish labels, compared
// case-insensitively) onto the closed enum.
var legacyStatuses = map[string]Status{
	"pendiente de firma": StatusAwaitingSignatures,
	"pendiente":          StatusAwaitingSignatures,
	"activo":             StatusActive,
	"vigente":            StatusActive,
	"en mora":            StatusPartialDefault,
	"atrasado":           StatusPartialDefault,
	"vencido":            StatusFullDefault,
	"incumplido":         StatusFullDefault,
	"cerrado":            StatusClosed,
	"liquidado":          StatusClosed,
}

// ParseStatus maps a persisted status string onto the enum, accepting both
// canonical values and legacy labels. Unknown values are an error, not a
// silent default.
func ParseStatus(raw string) (Status, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	switch Status(normalized) {
	case StatusAwaitingSignatures, StatusActive, StatusPartialDefault, StatusFullDefault, StatusClosed:
		return Status(normalized), nil
	}
	if s, ok := legacyStatuses[normalized]; ok {
		return s, nil
	}
	return "", fmt.Errorf("unknown loan status %q", raw)
}

func (s Status) String() string {
	return string(s)
}
