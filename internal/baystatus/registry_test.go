package baystatus

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/baystatus/internal/transport"
	"github.com/angelmondragon/baystatus/pkg/enums"
)

func TestRegistryRoutesFramesToMatchingBay(t *testing.T) {
	broker := transport.NewMemory()
	reg, err := NewRegistry([]string{"1", "2", "1"}, Deps{
		Subscriber:  broker,
		Lookup:      partsByType(),
		WidgetKinds: []enums.PartType{enums.PartTypeOilFilter},
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if got := strings.Join(reg.BayIDs(), ","); got != "1,2" {
		t.Fatalf("unexpected bays %q", got)
	}
	if err := reg.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer reg.Stop()

	if err := broker.Publish(context.Background(), transport.StoreEventsDestination, []byte(sampleFrame)); err != nil {
		t.Fatalf("publish: %v", err)
	}

	one, _ := reg.Get("1")
	two, ok := reg.Get(" 2 ")
	if !ok {
		t.Fatalf("bay 2 missing")
	}
	waitWidgets(one)
	if _, ok := one.Status(); !ok {
		t.Fatalf("bay 1 should have a status")
	}
	if _, ok := two.Status(); ok {
		t.Fatalf("bay 2 must not receive bay 1 events")
	}
	if _, ok := reg.Get("9"); ok {
		t.Fatalf("unknown bay should not resolve")
	}
}

func TestRegistryRunStopsOnCancel(t *testing.T) {
	broker := transport.NewMemory()
	reg, err := NewRegistry([]string{"3"}, Deps{Subscriber: broker})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- reg.Run(ctx) }()

	deadline := time.Now().Add(time.Second)
	for broker.SubscriberCount(transport.StoreEventsDestination) != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("registry did not subscribe")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Run did not return after cancel")
	}
	if broker.SubscriberCount(transport.StoreEventsDestination) != 0 {
		t.Fatalf("registry should unsubscribe on stop")
	}
}

func TestRegistryStartFailureStopsStartedPages(t *testing.T) {
	broker := transport.NewMemory()
	reg, err := NewRegistry([]string{"1", "2"}, Deps{Subscriber: broker})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if err := broker.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := reg.Start(context.Background()); err == nil {
		t.Fatalf("expected start to fail on closed broker")
	}
}

func TestParseWidgetKinds(t *testing.T) {
	kinds, err := ParseWidgetKinds([]string{"air_filter", " OIL_FILTER ", "", "air_filter"})
	if err != nil {
		t.Fatalf("ParseWidgetKinds: %v", err)
	}
	if len(kinds) != 2 || kinds[0] != enums.PartTypeAirFilter || kinds[1] != enums.PartTypeOilFilter {
		t.Fatalf("unexpected kinds %v", kinds)
	}
	if _, err := ParseWidgetKinds([]string{"wiper_blade"}); err == nil {
		t.Fatalf("expected error for unknown widget")
	}
}
