package enums

import "testing"

func TestEventTypesClosedSet(t *testing.T) {
	types := EventTypes()
	if len(types) != 14 {
		t.Fatalf("expected 14 event types, got %d", len(types))
	}
	for _, et := range types {
		if !et.IsValid() {
			t.Fatalf("%s should be valid", et)
		}
		parsed, err := ParseEventType(et.String())
		if err != nil || parsed != et {
			t.Fatalf("ParseEventType(%q) = %q, %v", et, parsed, err)
		}
	}
	if EventType("vehicle_updated").IsValid() {
		t.Fatalf("event types are case sensitive")
	}
	if _, err := ParseEventType("FOO"); err == nil {
		t.Fatalf("expected error for unknown event type")
	}
}

func TestParsePartTypeAcceptsConfigForm(t *testing.T) {
	got, err := ParsePartType("cabin_air_filter")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != PartTypeCabinAirFilter {
		t.Fatalf("expected cabin air filter, got %s", got)
	}
	if _, err := ParsePartType("wiper_blade"); err == nil {
		t.Fatalf("expected error for unknown part type")
	}
	if len(PartTypes()) != 4 {
		t.Fatalf("expected four part types")
	}
}
