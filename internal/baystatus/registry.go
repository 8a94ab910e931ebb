package baystatus

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/multierr"

	"github.com/angelmondragon/baystatus/pkg/enums"
)

// Registry owns the pages of every configured bay.
type Registry struct {
	order []string
	pages map[string]*Page
}

func NewRegistry(bayIDs []string, deps Deps) (*Registry, error) {
	if len(bayIDs) == 0 {
		return nil, fmt.Errorf("at least one bay is required")
	}
	reg := &Registry{pages: make(map[string]*Page, len(bayIDs))}
	for _, raw := range bayIDs {
		id := strings.TrimSpace(raw)
		if _, dup := reg.pages[id]; dup {
			continue
		}
		page, err := NewPage(id, deps)
		if err != nil {
			return nil, err
		}
		reg.pages[id] = page
		reg.order = append(reg.order, id)
	}
	return reg, nil
}

// BayIDs lists the bays in configuration order.
func (r *Registry) BayIDs() []string {
	return append([]string(nil), r.order...)
}

func (r *Registry) Get(bayID string) (*Page, bool) {
	page, ok := r.pages[strings.TrimSpace(bayID)]
	return page, ok
}

// Start starts every page. When one fails the pages already started are
// stopped again.
func (r *Registry) Start(ctx context.Context) error {
	for i, id := range r.order {
		if err := r.pages[id].Start(ctx); err != nil {
			for _, started := range r.order[:i] {
				err = multierr.Append(err, r.pages[started].Stop())
			}
			return err
		}
	}
	return nil
}

// Stop stops every page and reports all failures.
func (r *Registry) Stop() error {
	var err error
	for _, id := range r.order {
		err = multierr.Append(err, r.pages[id].Stop())
	}
	return err
}

// Run starts the registry and stops it when ctx is done.
func (r *Registry) Run(ctx context.Context) error {
	if err := r.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return r.Stop()
}

// ParseWidgetKinds maps configured widget names onto part types.
func ParseWidgetKinds(kinds []string) ([]enums.PartType, error) {
	out := make([]enums.PartType, 0, len(kinds))
	seen := map[enums.PartType]struct{}{}
	for _, kind := range kinds {
		trimmed := strings.TrimSpace(kind)
		if trimmed == "" {
			continue
		}
		partType, err := enums.ParsePartType(trimmed)
		if err != nil {
			return nil, fmt.Errorf("widget kind: %w", err)
		}
		if _, dup := seen[partType]; dup {
			continue
		}
		seen[partType] = struct{}{}
		out = append(out, partType)
	}
	return out, nil
}
