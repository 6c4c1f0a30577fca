package loan

import "testing"

func TestParseStatusCanonical(t *testing.T) {
	for _, s := range []Status{StatusAwaitingSignatures, StatusActive, StatusPartialDefault, StatusFullDefault, StatusClosed} {
		got, err := ParseStatus(string(s))
		if err != nil {
			t.Fatalf("parse %q: %v", s, err)
		}
		if got != s {
			t.Fatalf("parse %q = %s", s, got)
		}
	}
}

func TestParseStatusLegacyLabels(t *testing.T) {
	cases := map[string]Status{
		"Pendiente de Firma": StatusAwaitingSignatures,
		"activo":             StatusActive,
		"VIGENTE":            StatusActive,
		"en mora":            StatusPartialDefault,
		"  atrasado  ":       StatusPartialDefault,
		"vencido":            StatusFullDefault,
		"incumplido":         StatusFullDefault,
		"Cerrado":            StatusClosed,
		"liquidado":          StatusClosed,
	}
	for raw, want := range cases {
		got, err := ParseStatus(raw)
		if err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
		if got != want {
			t.Fatalf("parse %q = %s, want %s", raw, got, want)
		}
	}
}

func TestParseStatusUnknown(t *testing.T) {
	if _, err := ParseStatus("quimera"); err == nil {
		t.Fatalf("expected error for unknown status")
	}
	if _, err := ParseStatus(""); err == nil {
		t.Fatalf("expected error for empty status")
	}
}
