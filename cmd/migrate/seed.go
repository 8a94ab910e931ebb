package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/angelmondragon/baystatus/internal/catalog"
	"github.com/angelmondragon/baystatus/pkg/enums"
)

// partGroup is one entry of a catalog snapshot file.
type partGroup struct {
	VehicleToEngineConfigID int            `json:"vehicleToEngineConfigId"`
	PartType                string         `json:"partType"`
	Parts                   []catalog.Part `json:"parts"`
}

type partReplacer interface {
	ReplaceParts(ctx context.Context, vehicleToEngineConfigID int, partType enums.PartType, parts []catalog.Part) error
}

// evictFunc runs after a group is replaced, e.g. to drop cached parts.
type evictFunc func(ctx context.Context, vehicleToEngineConfigID int, partType enums.PartType)

// seedCatalog replaces every group listed in the snapshot file and returns
// how many groups were written. evict may be nil.
func seedCatalog(ctx context.Context, repo partReplacer, path string, evict evictFunc) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read snapshot: %w", err)
	}
	var groups []partGroup
	if err := json.Unmarshal(data, &groups); err != nil {
		return 0, fmt.Errorf("decode snapshot: %w", err)
	}
	for i, group := range groups {
		partType, err := enums.ParsePartType(group.PartType)
		if err != nil {
			return i, fmt.Errorf("group %d: %w", i, err)
		}
		if err := repo.ReplaceParts(ctx, group.VehicleToEngineConfigID, partType, group.Parts); err != nil {
			return i, fmt.Errorf("group %d (vehicle %d): %w", i, group.VehicleToEngineConfigID, err)
		}
		if evict != nil {
			evict(ctx, group.VehicleToEngineConfigID, partType)
		}
	}
	return len(groups), nil
}
