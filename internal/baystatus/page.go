// Package baystatus composes the per-bay pipeline: one distributor, one
// receiver and a set of widget reactors per configured bay.
package baystatus

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/baystatus/internal/baystatus/distributor"
	"github.com/angelmondragon/baystatus/internal/baystatus/receiver"
	"github.com/angelmondragon/baystatus/internal/baystatus/widgets"
	"github.com/angelmondragon/baystatus/internal/catalog"
	"github.com/angelmondragon/baystatus/internal/storeevents"
	"github.com/angelmondragon/baystatus/internal/transport"
	"github.com/angelmondragon/baystatus/pkg/enums"
	"github.com/angelmondragon/baystatus/pkg/logger"
	"github.com/angelmondragon/baystatus/pkg/metrics"
)

// Deduplicator remembers accepted event ids per consumer.
type Deduplicator interface {
	CheckAndMark(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
}

// Deps are the collaborators shared by every bay page.
type Deps struct {
	Subscriber  transport.Subscriber
	Lookup      catalog.Lookup
	Logger      *logger.Logger
	Destination string

	WidgetKinds   []enums.PartType
	LookupTimeout time.Duration
	Locale        string

	Dedup              Deduplicator
	IngestMetrics      *metrics.IngestMetrics
	DistributorMetrics *metrics.DistributorMetrics
	WidgetMetrics      *metrics.WidgetMetrics

	// OnWidgetChange is called with the bay id after any widget changes state.
	OnWidgetChange func(bayID string, state widgets.State)
}

func (d Deps) validate() error {
	if d.Subscriber == nil {
		return fmt.Errorf("transport subscriber required")
	}
	if d.Lookup == nil && len(d.WidgetKinds) > 0 {
		return fmt.Errorf("catalog lookup required for widgets")
	}
	return nil
}

// Page is the status display of one bay.
type Page struct {
	bayID    string
	logg     *logger.Logger
	dist     *distributor.Distributor
	receiver *receiver.Receiver
	widgets  []*widgets.Reactor

	mu      sync.Mutex
	started bool
}

func NewPage(bayID string, deps Deps) (*Page, error) {
	bayID = strings.TrimSpace(bayID)
	if bayID == "" {
		return nil, receiver.ErrBayIDRequired
	}
	if err := deps.validate(); err != nil {
		return nil, err
	}
	logg := deps.Logger
	if logg == nil {
		logg = logger.Nop()
	}

	dist := distributor.New(bayID,
		distributor.WithLogger(logg),
		distributor.WithMetrics(deps.DistributorMetrics),
	)

	recvOpts := []receiver.Option{
		receiver.WithMetrics(deps.IngestMetrics),
		receiver.WithDestination(deps.Destination),
	}
	if deps.Dedup != nil {
		recvOpts = append(recvOpts, receiver.WithDeduplicator(deps.Dedup))
	}
	recv, err := receiver.New(bayID, deps.Subscriber, dist, logg, recvOpts...)
	if err != nil {
		return nil, fmt.Errorf("bay %s receiver: %w", bayID, err)
	}

	page := &Page{
		bayID:    bayID,
		logg:     logg,
		dist:     dist,
		receiver: recv,
	}
	for _, kind := range deps.WidgetKinds {
		opts := []widgets.Option{
			widgets.WithLogger(logg),
			widgets.WithMetrics(deps.WidgetMetrics),
			widgets.WithLookupTimeout(deps.LookupTimeout),
			widgets.WithLocale(deps.Locale),
		}
		if deps.OnWidgetChange != nil {
			notify := deps.OnWidgetChange
			opts = append(opts, widgets.WithOnChange(func(state widgets.State) {
				notify(bayID, state)
			}))
		}
		reactor, err := widgets.New(kind, deps.Lookup, opts...)
		if err != nil {
			return nil, fmt.Errorf("bay %s widget: %w", bayID, err)
		}
		page.widgets = append(page.widgets, reactor)
	}
	return page, nil
}

func (p *Page) BayID() string {
	return p.bayID
}

func (p *Page) Distributor() *distributor.Distributor {
	return p.dist
}

func (p *Page) Receiver() *receiver.Receiver {
	return p.receiver
}

// Status returns the latest event distributed for the bay.
func (p *Page) Status() (*storeevents.Event, bool) {
	return p.dist.Latest()
}

// Widgets returns a snapshot of every widget in configuration order.
func (p *Page) Widgets() []widgets.State {
	states := make([]widgets.State, 0, len(p.widgets))
	for _, w := range p.widgets {
		states = append(states, w.State())
	}
	return states
}

// Start activates widgets first so they observe the first accepted event,
// then the receiver.
func (p *Page) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return nil
	}
	for i, w := range p.widgets {
		if err := w.Activate(ctx, p.dist); err != nil {
			for _, started := range p.widgets[:i] {
				started.Deactivate()
			}
			return fmt.Errorf("bay %s activate %s widget: %w", p.bayID, w.Name(), err)
		}
	}
	if err := p.receiver.Activate(ctx); err != nil {
		for _, w := range p.widgets {
			w.Deactivate()
		}
		return fmt.Errorf("bay %s activate receiver: %w", p.bayID, err)
	}
	p.started = true
	p.logg.Info(p.logg.WithFields(ctx, map[string]any{
		"bay_id":  p.bayID,
		"widgets": len(p.widgets),
	}), "bay page started")
	return nil
}

// Stop tears the page down top-down: receiver, then widgets.
func (p *Page) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return nil
	}
	p.started = false

	err := p.receiver.Deactivate()
	for _, w := range p.widgets {
		w.Deactivate()
	}
	p.logg.Info(p.logg.WithBay(context.Background(), p.bayID), "bay page stopped")
	return err
}
