// Package receiver binds one physical bay to the shared store-event stream.
package receiver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/angelmondragon/baystatus/internal/storeevents"
	"github.com/angelmondragon/baystatus/internal/transport"
	"github.com/angelmondragon/baystatus/pkg/enums"
	"github.com/angelmondragon/baystatus/pkg/logger"
	"github.com/angelmondragon/baystatus/pkg/metrics"
)

// Publisher receives events accepted for the bay.
type Publisher interface {
	Publish(event *storeevents.Event)
}

type deduplicator interface {
	CheckAndMark(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
}

var (
	ErrAlreadyActive = errors.New("receiver already active")
	ErrBayIDRequired = errors.New("bay id required")
)

// Receiver filters frames from the shared destination down to one bay and
// forwards accepted events to its Publisher.
type Receiver struct {
	sub     transport.Subscriber
	dist    Publisher
	logg    *logger.Logger
	metrics *metrics.IngestMetrics
	dedup   deduplicator
	dest    string

	// frameMu serialises frame handling so one frame is fully dispatched
	// before the next starts.
	frameMu sync.Mutex

	mu           sync.Mutex
	bayID        string
	subscription transport.Subscription
	eventType    enums.EventType
	vehicleID    *int
}

type Option func(*Receiver)

// WithDeduplicator drops frames whose eventId this bay already accepted.
func WithDeduplicator(d deduplicator) Option {
	return func(r *Receiver) {
		r.dedup = d
	}
}

func WithMetrics(m *metrics.IngestMetrics) Option {
	return func(r *Receiver) {
		r.metrics = m
	}
}

// WithDestination overrides the shared store-events destination.
func WithDestination(destination string) Option {
	return func(r *Receiver) {
		if strings.TrimSpace(destination) != "" {
			r.dest = destination
		}
	}
}

func New(bayID string, sub transport.Subscriber, dist Publisher, logg *logger.Logger, opts ...Option) (*Receiver, error) {
	if sub == nil {
		return nil, fmt.Errorf("transport subscriber required")
	}
	if dist == nil {
		return nil, fmt.Errorf("status publisher required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	r := &Receiver{
		bayID: strings.TrimSpace(bayID),
		sub:   sub,
		dist:  dist,
		logg:  logg,
		dest:  transport.StoreEventsDestination,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// SetBayID rebinds the receiver before activation.
func (r *Receiver) SetBayID(bayID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.subscription != nil {
		return ErrAlreadyActive
	}
	r.bayID = strings.TrimSpace(bayID)
	return nil
}

func (r *Receiver) BayID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bayID
}

// Activate subscribes to the shared destination.
func (r *Receiver) Activate(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.subscription != nil {
		return ErrAlreadyActive
	}
	if r.bayID == "" {
		return ErrBayIDRequired
	}
	subscription, err := r.sub.Subscribe(ctx, r.dest, r.handleFrame)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", r.dest, err)
	}
	r.subscription = subscription
	r.logg.Info(r.logg.WithBay(ctx, r.bayID), "bay receiver activated")
	return nil
}

// Deactivate cancels the subscription. No frame is handled after it returns.
func (r *Receiver) Deactivate() error {
	r.mu.Lock()
	subscription := r.subscription
	r.subscription = nil
	r.mu.Unlock()
	if subscription == nil {
		return nil
	}
	return subscription.Unsubscribe()
}

// Active reports whether the receiver holds a subscription.
func (r *Receiver) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.subscription != nil
}

// EventType returns the type of the last accepted event.
func (r *Receiver) EventType() (enums.EventType, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.eventType, r.eventType != ""
}

// VehicleToEngineConfigID returns the last non-null id seen on an accepted
// event. Events without an id leave the previous value in place.
func (r *Receiver) VehicleToEngineConfigID() (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.vehicleID == nil {
		return 0, false
	}
	return *r.vehicleID, true
}

func (r *Receiver) handleFrame(ctx context.Context, frame transport.Frame) {
	r.frameMu.Lock()
	defer r.frameMu.Unlock()

	bayID := r.BayID()
	ctx = r.logg.WithBay(ctx, bayID)
	if frame.ID != "" {
		ctx = r.logg.WithField(ctx, "message_id", frame.ID)
	}

	event, err := storeevents.Parse(frame.Body)
	if err != nil {
		r.metrics.ObserveFrame(bayID, storeevents.Outcome(err))
		r.logg.WarnErr(ctx, "dropping store event frame", err)
		return
	}
	ctx = r.logg.WithFields(ctx, map[string]any{
		"event_id":   event.EventID,
		"event_type": event.EventType.String(),
		"bay_number": event.BayNumber,
	})

	if !MatchesBay(event.BayNumber, bayID) {
		r.metrics.ObserveFrame(bayID, enums.FrameOtherBay)
		r.logg.Debug(ctx, "store event for another bay")
		return
	}

	if r.duplicate(ctx, bayID, event) {
		r.metrics.ObserveFrame(bayID, enums.FrameDuplicate)
		r.logg.Info(ctx, "store event already accepted")
		return
	}

	r.mu.Lock()
	r.eventType = event.EventType
	if id, ok := event.VehicleConfigID(); ok {
		r.vehicleID = &id
	}
	r.mu.Unlock()

	r.dist.Publish(event)
	r.metrics.ObserveFrame(bayID, enums.FrameAccepted)
	r.logg.Debug(ctx, "store event accepted")
}

func (r *Receiver) duplicate(ctx context.Context, bayID string, event *storeevents.Event) bool {
	if r.dedup == nil {
		return false
	}
	eventID, err := uuid.Parse(event.EventID)
	if err != nil {
		return false
	}
	already, err := r.dedup.CheckAndMark(ctx, "bay-"+bayID, eventID)
	if err != nil {
		r.logg.Error(ctx, "store event dedup check failed", err)
		return false
	}
	return already
}

// MatchesBay compares an event bay number with a configured bay id. Both
// sides are compared as numbers so "01" and " 1" match 1. A bay id that is
// empty or not numeric never matches.
func MatchesBay(bayNumber int, bayID string) bool {
	trimmed := strings.TrimSpace(bayID)
	if trimmed == "" {
		return false
	}
	want, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || math.IsNaN(want) || math.IsInf(want, 0) {
		return false
	}
	return float64(bayNumber) == want
}
