package instance

import (
	"strings"
	"testing"
)

func TestIDPrefersConfiguredValue(t *testing.T) {
	if got := ID("  bay-kiosk-3 "); got != "bay-kiosk-3" {
		t.Fatalf("unexpected id %q", got)
	}
}

func TestIDFallsBackToHostname(t *testing.T) {
	a, b := ID(""), ID("")
	if a == "" || a == b {
		t.Fatalf("expected unique generated ids, got %q and %q", a, b)
	}
	if !strings.Contains(a, "-") {
		t.Fatalf("expected host-suffix form, got %q", a)
	}
}
