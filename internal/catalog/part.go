// Package catalog resolves vehicle specification parts for a
// vehicleToEngineConfigId. Backends are a REST client, a GORM repository and
// a Redis read-through cache that wraps either.
package catalog

import (
	"context"

	"github.com/angelmondragon/baystatus/pkg/enums"
)

// Part is one catalog entry shown by a widget.
type Part struct {
	ID        int    `json:"id"`
	Part      string `json:"part"`
	Notes     []Note `json:"notes"`
	Qualifier string `json:"qualifier"`
	Type      string `json:"type"`
}

type Note struct {
	ID    int    `json:"id"`
	Value string `json:"value"`
}

// Lookup is the vehicle specification facade consumed by widget reactors.
type Lookup interface {
	GetPartsByVehicleToEngineConfigIDAndPartType(ctx context.Context, vehicleToEngineConfigID string, partType enums.PartType) ([]Part, error)
}

// LookupFunc adapts a function to Lookup.
type LookupFunc func(ctx context.Context, vehicleToEngineConfigID string, partType enums.PartType) ([]Part, error)

func (f LookupFunc) GetPartsByVehicleToEngineConfigIDAndPartType(ctx context.Context, vehicleToEngineConfigID string, partType enums.PartType) ([]Part, error) {
	return f(ctx, vehicleToEngineConfigID, partType)
}
