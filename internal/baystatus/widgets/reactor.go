// Package widgets implements the bay-status widget reactors. Each reactor
// listens to a bay's distributor and refreshes its catalog parts when the
// vehicle on the bay changes.
package widgets

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/baystatus/internal/baystatus/distributor"
	"github.com/angelmondragon/baystatus/internal/catalog"
	"github.com/angelmondragon/baystatus/internal/storeevents"
	"github.com/angelmondragon/baystatus/pkg/enums"
	pkgerrors "github.com/angelmondragon/baystatus/pkg/errors"
	"github.com/angelmondragon/baystatus/pkg/logger"
	"github.com/angelmondragon/baystatus/pkg/metrics"
)

const defaultLookupTimeout = 15 * time.Second

var ErrAlreadyActive = errors.New("widget already active")

// Source is the distributor surface a reactor needs.
type Source interface {
	Subscribe(handler distributor.Handler) *distributor.Subscription
}

// State is what a widget currently displays.
type State struct {
	Widget                  string          `json:"widget"`
	PartType                enums.PartType  `json:"partType"`
	Title                   string          `json:"title"`
	Parts                   []catalog.Part  `json:"parts"`
	Loading                 bool            `json:"loading"`
	Error                   bool            `json:"error"`
	ErrorMessage            string          `json:"errorMessage,omitempty"`
	VehicleToEngineConfigID *int            `json:"vehicleToEngineConfigId,omitempty"`
	LastEventType           enums.EventType `json:"lastEventType,omitempty"`
	UpdatedAt               time.Time       `json:"updatedAt"`
}

func (s State) clone() State {
	out := s
	if s.Parts != nil {
		out.Parts = append([]catalog.Part(nil), s.Parts...)
	}
	if s.VehicleToEngineConfigID != nil {
		id := *s.VehicleToEngineConfigID
		out.VehicleToEngineConfigID = &id
	}
	return out
}

// Reactor keeps one widget's State in step with its bay's events.
type Reactor struct {
	partType enums.PartType
	name     string
	lookup   catalog.Lookup
	logg     *logger.Logger
	metrics  *metrics.WidgetMetrics
	timeout  time.Duration
	locale   string
	onChange func(State)
	now      func() time.Time

	mu         sync.Mutex
	state      State
	generation uint64
	ctx        context.Context
	cancel     context.CancelFunc
	sub        *distributor.Subscription
	inflight   sync.WaitGroup
}

type Option func(*Reactor)

func WithLogger(logg *logger.Logger) Option {
	return func(r *Reactor) {
		if logg != nil {
			r.logg = logg
		}
	}
}

func WithMetrics(m *metrics.WidgetMetrics) Option {
	return func(r *Reactor) {
		r.metrics = m
	}
}

// WithLookupTimeout bounds each catalog lookup.
func WithLookupTimeout(timeout time.Duration) Option {
	return func(r *Reactor) {
		if timeout > 0 {
			r.timeout = timeout
		}
	}
}

// WithLocale selects the language of error messages.
func WithLocale(locale string) Option {
	return func(r *Reactor) {
		r.locale = normalizeLocale(locale)
	}
}

// WithOnChange registers a callback invoked with a snapshot after every
// state transition. It runs outside the reactor lock.
func WithOnChange(fn func(State)) Option {
	return func(r *Reactor) {
		r.onChange = fn
	}
}

func New(partType enums.PartType, lookup catalog.Lookup, opts ...Option) (*Reactor, error) {
	if !partType.IsValid() {
		return nil, fmt.Errorf("unknown widget part type %q", partType)
	}
	if lookup == nil {
		return nil, fmt.Errorf("catalog lookup required for %s widget", partType)
	}
	name := strings.ToLower(partType.String())
	r := &Reactor{
		partType: partType,
		name:     name,
		lookup:   lookup,
		logg:     logger.Nop(),
		timeout:  defaultLookupTimeout,
		locale:   DefaultLocale,
		now:      time.Now,
		state: State{
			Widget:   name,
			PartType: partType,
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func (r *Reactor) Name() string {
	return r.name
}

func (r *Reactor) PartType() enums.PartType {
	return r.partType
}

// State returns a snapshot of the widget.
func (r *Reactor) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.clone()
}

// Activate subscribes to src. ctx bounds every lookup the reactor starts.
func (r *Reactor) Activate(ctx context.Context, src Source) error {
	if src == nil {
		return errors.New("status source required")
	}
	r.mu.Lock()
	if r.ctx != nil {
		r.mu.Unlock()
		return ErrAlreadyActive
	}
	r.ctx, r.cancel = context.WithCancel(ctx)
	r.mu.Unlock()

	// Subscribe may replay the latest event into handle, which takes r.mu.
	sub := src.Subscribe(r.handle)

	r.mu.Lock()
	r.sub = sub
	r.mu.Unlock()
	return nil
}

// Deactivate unsubscribes, cancels in-flight lookups and waits for them.
func (r *Reactor) Deactivate() {
	r.mu.Lock()
	sub, cancel := r.sub, r.cancel
	if cancel != nil {
		cancel()
	}
	r.sub, r.ctx, r.cancel = nil, nil, nil
	r.mu.Unlock()

	sub.Unsubscribe()
	r.inflight.Wait()
}

// Wait blocks until every started lookup has finished.
func (r *Reactor) Wait() {
	r.inflight.Wait()
}

func (r *Reactor) handle(event *storeevents.Event) {
	r.mu.Lock()
	if r.ctx == nil || r.ctx.Err() != nil {
		r.mu.Unlock()
		return
	}
	r.state.Error = false
	r.state.ErrorMessage = ""
	r.state.LastEventType = event.EventType

	var start func()
	switch event.EventType {
	case enums.EventVehicleUpdated:
		if id, ok := event.VehicleConfigID(); ok {
			r.generation++
			r.state.Loading = true
			r.state.VehicleToEngineConfigID = &id
			r.inflight.Add(1)
			ctx, generation := r.ctx, r.generation
			start = func() { go r.refresh(ctx, generation, id, event.EventID) }
		}
	}
	r.state.UpdatedAt = r.now()
	snapshot := r.state.clone()
	r.mu.Unlock()

	r.notify(snapshot)
	if start != nil {
		start()
	}
}

func (r *Reactor) refresh(ctx context.Context, generation uint64, vehicleID int, eventID string) {
	defer r.inflight.Done()

	logCtx := r.logg.WithFields(r.logg.WithWidget(ctx, r.name), map[string]any{
		"event_id":                    eventID,
		"vehicle_to_engine_config_id": vehicleID,
		"generation":                  generation,
	})

	started := r.now()
	parts, err := r.fetch(ctx, vehicleID)
	elapsed := r.now().Sub(started)

	r.mu.Lock()
	if generation != r.generation || ctx.Err() != nil {
		r.mu.Unlock()
		r.metrics.ObserveLookup(r.name, metrics.LookupResultStale, elapsed)
		r.logg.Debug(logCtx, "discarding superseded parts lookup")
		return
	}
	r.state.Loading = false
	if err != nil {
		r.state.Error = true
		r.state.ErrorMessage = errorMessage(r.locale, r.partType, err)
		r.state.Title = ""
		r.state.Parts = nil
	} else {
		r.state.Parts = parts
		r.state.Title = ""
		if len(parts) > 0 {
			r.state.Title = parts[0].Part
		}
	}
	r.state.UpdatedAt = r.now()
	snapshot := r.state.clone()
	r.mu.Unlock()

	if err != nil {
		r.metrics.ObserveLookup(r.name, metrics.LookupResultFailure, elapsed)
		r.logg.WarnErr(logCtx, "parts lookup failed", err)
	} else {
		r.metrics.ObserveLookup(r.name, metrics.LookupResultSuccess, elapsed)
	}
	r.notify(snapshot)
}

// fetch runs the lookup with the configured timeout and turns a panic in the
// lookup into an error.
func (r *Reactor) fetch(ctx context.Context, vehicleID int) (parts []catalog.Part, err error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	defer func() {
		if rec := recover(); rec != nil {
			parts = nil
			err = pkgerrors.Newf(pkgerrors.CodeLookupFailed, "lookup panicked: %v", rec)
		}
	}()
	return r.lookup.GetPartsByVehicleToEngineConfigIDAndPartType(ctx, strconv.Itoa(vehicleID), r.partType)
}

func (r *Reactor) notify(state State) {
	if r.onChange == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.logg.Error(r.logg.WithWidget(context.Background(), r.name), "widget change callback panicked", fmt.Errorf("panic: %v", rec))
		}
	}()
	r.onChange(state)
}
