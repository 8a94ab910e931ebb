package widgets

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/baystatus/internal/baystatus/distributor"
	"github.com/angelmondragon/baystatus/internal/catalog"
	"github.com/angelmondragon/baystatus/internal/storeevents"
	"github.com/angelmondragon/baystatus/pkg/enums"
	pkgerrors "github.com/angelmondragon/baystatus/pkg/errors"
)

func vehicleUpdated(id string, vehicleID *int) *storeevents.Event {
	return &storeevents.Event{
		EventID:                 id,
		EventTime:               "2010-11-12T13:14:15Z",
		EventType:               enums.EventVehicleUpdated,
		BayType:                 "W",
		BayNumber:               1,
		VisitID:                 123,
		VisitGUID:               "813fe038-eb2e-4f75-958e-b6c54777fe2b",
		StoreNumber:             "123",
		VehicleToEngineConfigID: vehicleID,
	}
}

func otherEvent(id string, eventType enums.EventType) *storeevents.Event {
	event := vehicleUpdated(id, nil)
	event.EventType = eventType
	return event
}

func intPtr(v int) *int { return &v }

type recordedCall struct {
	id       string
	partType enums.PartType
}

type stubLookup struct {
	mu    sync.Mutex
	calls []recordedCall
	parts []catalog.Part
	err   error
}

func (s *stubLookup) GetPartsByVehicleToEngineConfigIDAndPartType(_ context.Context, id string, partType enums.PartType) ([]catalog.Part, error) {
	s.mu.Lock()
	s.calls = append(s.calls, recordedCall{id: id, partType: partType})
	s.mu.Unlock()
	return s.parts, s.err
}

func newActiveReactor(t *testing.T, partType enums.PartType, lookup catalog.Lookup, src Source, opts ...Option) *Reactor {
	t.Helper()
	r, err := New(partType, lookup, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := r.Activate(context.Background(), src); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	t.Cleanup(r.Deactivate)
	return r
}

func TestFailingWidgetDoesNotAffectSibling(t *testing.T) {
	dist := distributor.New("1")
	failing := &stubLookup{err: errors.New("catalog unavailable")}
	part := catalog.Part{ID: 9, Part: "PH7317", Notes: []catalog.Note{{ID: 1, Value: "Use new gasket"}}, Qualifier: "Standard", Type: "OIL_FILTER"}
	working := &stubLookup{parts: []catalog.Part{part}}

	a := newActiveReactor(t, enums.PartTypeAirFilter, failing, dist)
	b := newActiveReactor(t, enums.PartTypeOilFilter, working, dist)

	dist.Publish(vehicleUpdated("e1", intPtr(312)))
	a.Wait()
	b.Wait()

	stateA := a.State()
	if !stateA.Error || stateA.ErrorMessage == "" {
		t.Fatalf("widget A should show its error state, got %+v", stateA)
	}
	if stateA.Loading {
		t.Fatalf("widget A should stop loading")
	}

	stateB := b.State()
	if stateB.Error {
		t.Fatalf("widget B should not be in error, got %+v", stateB)
	}
	if stateB.Title != part.Part {
		t.Fatalf("widget B title = %q, want %q", stateB.Title, part.Part)
	}
	if len(working.calls) != 1 || working.calls[0].id != "312" || working.calls[0].partType != enums.PartTypeOilFilter {
		t.Fatalf("unexpected lookup calls %+v", working.calls)
	}
	if len(failing.calls) != 1 || failing.calls[0].partType != enums.PartTypeAirFilter {
		t.Fatalf("unexpected failing lookup calls %+v", failing.calls)
	}
}

func TestNextEventResetsErrorState(t *testing.T) {
	dist := distributor.New("1")
	lookup := &stubLookup{err: errors.New("boom")}
	r := newActiveReactor(t, enums.PartTypeOilFilter, lookup, dist)

	dist.Publish(vehicleUpdated("e1", intPtr(312)))
	r.Wait()
	if !r.State().Error {
		t.Fatalf("expected error state")
	}

	dist.Publish(otherEvent("e2", enums.EventInvoiceLocked))
	state := r.State()
	if state.Error || state.ErrorMessage != "" {
		t.Fatalf("error should be reset by the next event, got %+v", state)
	}
	if state.LastEventType != enums.EventInvoiceLocked {
		t.Fatalf("unexpected last event type %q", state.LastEventType)
	}
	if len(lookup.calls) != 1 {
		t.Fatalf("non vehicle events must not trigger lookups, got %d calls", len(lookup.calls))
	}
}

func TestVehicleUpdatedWithoutIDIsNoop(t *testing.T) {
	dist := distributor.New("1")
	lookup := &stubLookup{}
	r := newActiveReactor(t, enums.PartTypeAirFilter, lookup, dist)

	dist.Publish(vehicleUpdated("e1", nil))
	r.Wait()
	if len(lookup.calls) != 0 {
		t.Fatalf("expected no lookup without vehicle id")
	}
	if r.State().Loading {
		t.Fatalf("widget should not be loading")
	}
}

func TestReactorReplaysLatestOnActivate(t *testing.T) {
	dist := distributor.New("1")
	dist.Publish(vehicleUpdated("e1", intPtr(111)))

	lookup := &stubLookup{parts: []catalog.Part{{ID: 1, Part: "CA10755"}}}
	r := newActiveReactor(t, enums.PartTypeAirFilter, lookup, dist)
	r.Wait()

	state := r.State()
	if state.Title != "CA10755" {
		t.Fatalf("expected replayed event to load parts, got %+v", state)
	}
	if state.VehicleToEngineConfigID == nil || *state.VehicleToEngineConfigID != 111 {
		t.Fatalf("unexpected vehicle id %v", state.VehicleToEngineConfigID)
	}
}

type gatedLookup struct {
	mu      sync.Mutex
	gates   map[string]chan struct{}
	started chan string
}

func newGatedLookup() *gatedLookup {
	return &gatedLookup{gates: map[string]chan struct{}{}, started: make(chan string, 4)}
}

func (g *gatedLookup) gate(id string) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.gates[id]
	if !ok {
		ch = make(chan struct{})
		g.gates[id] = ch
	}
	return ch
}

func (g *gatedLookup) GetPartsByVehicleToEngineConfigIDAndPartType(ctx context.Context, id string, _ enums.PartType) ([]catalog.Part, error) {
	gate := g.gate(id)
	g.started <- id
	select {
	case <-gate:
		return []catalog.Part{{ID: 1, Part: "part-for-" + id}}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func waitStarted(t *testing.T, g *gatedLookup, want string) {
	t.Helper()
	select {
	case got := <-g.started:
		if got != want {
			t.Fatalf("lookup started for %s, want %s", got, want)
		}
	case <-time.After(time.Second):
		t.Fatalf("lookup for %s did not start", want)
	}
}

func TestStaleLookupIsDiscarded(t *testing.T) {
	dist := distributor.New("1")
	lookup := newGatedLookup()
	r := newActiveReactor(t, enums.PartTypeOilFilter, lookup, dist)

	dist.Publish(vehicleUpdated("e1", intPtr(1)))
	waitStarted(t, lookup, "1")
	dist.Publish(vehicleUpdated("e2", intPtr(2)))
	waitStarted(t, lookup, "2")

	close(lookup.gate("2"))
	close(lookup.gate("1"))
	r.Wait()

	state := r.State()
	if state.Title != "part-for-2" {
		t.Fatalf("older lookup overwrote newer result: %+v", state)
	}
	if state.VehicleToEngineConfigID == nil || *state.VehicleToEngineConfigID != 2 {
		t.Fatalf("unexpected vehicle id %v", state.VehicleToEngineConfigID)
	}
}

func TestDeactivateCancelsInFlightLookup(t *testing.T) {
	dist := distributor.New("1")
	lookup := newGatedLookup()
	r, err := New(enums.PartTypeCabinAirFilter, lookup)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := r.Activate(context.Background(), dist); err != nil {
		t.Fatalf("Activate: %v", err)
	}

	dist.Publish(vehicleUpdated("e1", intPtr(5)))
	waitStarted(t, lookup, "5")

	done := make(chan struct{})
	go func() {
		r.Deactivate()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Deactivate did not cancel the lookup")
	}

	state := r.State()
	if state.Error || state.Title != "" {
		t.Fatalf("cancelled lookup must not update state, got %+v", state)
	}
	if dist.SubscriberCount() != 0 {
		t.Fatalf("reactor should unsubscribe from distributor")
	}

	dist.Publish(vehicleUpdated("e2", intPtr(6)))
	select {
	case id := <-lookup.started:
		t.Fatalf("lookup %s started after deactivation", id)
	default:
	}
}

func TestLookupPanicBecomesErrorState(t *testing.T) {
	dist := distributor.New("1")
	lookup := catalog.LookupFunc(func(context.Context, string, enums.PartType) ([]catalog.Part, error) {
		panic("nil map")
	})
	sibling := &stubLookup{parts: []catalog.Part{{Part: "CF10134"}}}
	r := newActiveReactor(t, enums.PartTypeOilFilterChange, lookup, dist)
	s := newActiveReactor(t, enums.PartTypeCabinAirFilter, sibling, dist)

	dist.Publish(vehicleUpdated("e1", intPtr(312)))
	r.Wait()
	s.Wait()

	if !r.State().Error {
		t.Fatalf("panic in lookup should set error state")
	}
	if s.State().Title != "CF10134" {
		t.Fatalf("sibling widget should still load")
	}
}

func TestOnChangeReceivesTransitions(t *testing.T) {
	dist := distributor.New("1")
	var mu sync.Mutex
	var states []State
	lookup := &stubLookup{parts: []catalog.Part{{Part: "PH7317"}}}
	r := newActiveReactor(t, enums.PartTypeOilFilter, lookup, dist, WithOnChange(func(s State) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	}))

	dist.Publish(vehicleUpdated("e1", intPtr(312)))
	r.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(states) != 2 {
		t.Fatalf("expected loading and loaded transitions, got %d", len(states))
	}
	if !states[0].Loading || states[1].Loading || states[1].Title != "PH7317" {
		t.Fatalf("unexpected transitions %+v", states)
	}
}

func TestErrorMessagesAreLocalized(t *testing.T) {
	notFound := pkgerrors.New(pkgerrors.CodeNotFound, "missing")
	cases := []struct {
		locale string
		err    error
		want   string
	}{
		{"en", errors.New("x"), "Unable to load oil filter details."},
		{"", notFound, "No oil filter found for this vehicle."},
		{"es-MX", errors.New("x"), "No se pudo cargar la información del filtro de aceite."},
		{"de", errors.New("x"), "Unable to load oil filter details."},
	}
	for _, tc := range cases {
		if got := errorMessage(tc.locale, enums.PartTypeOilFilter, tc.err); got != tc.want {
			t.Fatalf("locale %q: got %q want %q", tc.locale, got, tc.want)
		}
	}
}

func TestNewValidatesArguments(t *testing.T) {
	if _, err := New(enums.PartType("WIPER"), &stubLookup{}); err == nil {
		t.Fatalf("expected error for unknown part type")
	}
	if _, err := New(enums.PartTypeAirFilter, nil); err == nil {
		t.Fatalf("expected error without lookup")
	}
	r, err := New(enums.PartTypeAirFilter, &stubLookup{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if r.Name() != "air_filter" {
		t.Fatalf("unexpected name %q", r.Name())
	}
	dist := distributor.New("1")
	if err := r.Activate(context.Background(), dist); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if err := r.Activate(context.Background(), dist); !errors.Is(err, ErrAlreadyActive) {
		t.Fatalf("expected ErrAlreadyActive, got %v", err)
	}
	r.Deactivate()
	if err := r.Activate(context.Background(), dist); err != nil {
		t.Fatalf("reactivate: %v", err)
	}
	r.Deactivate()
}
