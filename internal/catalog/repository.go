package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/angelmondragon/baystatus/pkg/db"
	"github.com/angelmondragon/baystatus/pkg/db/models"
	"github.com/angelmondragon/baystatus/pkg/enums"
	pkgerrors "github.com/angelmondragon/baystatus/pkg/errors"
)

const notePositionConstraint = "ux_vehicle_part_notes_position"

// Repository serves parts from the local vehicle_parts tables.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) GetPartsByVehicleToEngineConfigIDAndPartType(ctx context.Context, vehicleToEngineConfigID string, partType enums.PartType) ([]Part, error) {
	if r == nil || r.db == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "catalog repository not configured")
	}
	id, err := parseVehicleID(vehicleToEngineConfigID)
	if err != nil {
		return nil, err
	}
	if !partType.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown part type %q", partType)
	}

	var rows []models.VehiclePart
	err = r.db.WithContext(ctx).
		Preload("Notes", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("position ASC, id ASC")
		}).
		Where("vehicle_to_engine_config_id = ? AND part_type = ?", id, partType.String()).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeLookupFailed, err, "query vehicle parts")
	}

	parts := make([]Part, 0, len(rows))
	for _, row := range rows {
		parts = append(parts, toPart(row))
	}
	return parts, nil
}

// ReplaceParts swaps every part of one type for a vehicle in a single
// transaction. Used to load catalog snapshots into the local database.
func (r *Repository) ReplaceParts(ctx context.Context, vehicleToEngineConfigID int, partType enums.PartType, parts []Part) error {
	if !partType.IsValid() {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "unknown part type %q", partType)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing []int
		if err := tx.Model(&models.VehiclePart{}).
			Where("vehicle_to_engine_config_id = ? AND part_type = ?", vehicleToEngineConfigID, partType.String()).
			Pluck("id", &existing).Error; err != nil {
			return fmt.Errorf("list existing parts: %w", err)
		}
		if len(existing) > 0 {
			if err := tx.Where("vehicle_part_id IN ?", existing).Delete(&models.VehiclePartNote{}).Error; err != nil {
				return fmt.Errorf("delete part notes: %w", err)
			}
			if err := tx.Where("id IN ?", existing).Delete(&models.VehiclePart{}).Error; err != nil {
				return fmt.Errorf("delete parts: %w", err)
			}
		}
		for _, part := range parts {
			row := fromPart(vehicleToEngineConfigID, partType, part)
			if err := tx.Create(&row).Error; err != nil {
				if db.IsUniqueViolation(err, notePositionConstraint) {
					return pkgerrors.Wrapf(pkgerrors.CodeConflict, err, "duplicate note position for part %q", part.Part)
				}
				return fmt.Errorf("insert part %q: %w", part.Part, err)
			}
		}
		return nil
	})
}

func parseVehicleID(value string) (int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "vehicleToEngineConfigId is required")
	}
	id, err := strconv.Atoi(trimmed)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) {
			err = numErr.Err
		}
		return 0, pkgerrors.Wrapf(pkgerrors.CodeValidation, err, "invalid vehicleToEngineConfigId %q", value)
	}
	return id, nil
}

func toPart(row models.VehiclePart) Part {
	notes := make([]Note, 0, len(row.Notes))
	for _, n := range row.Notes {
		notes = append(notes, Note{ID: n.ID, Value: n.Value})
	}
	return Part{
		ID:        row.ID,
		Part:      row.Part,
		Notes:     notes,
		Qualifier: row.Qualifier,
		Type:      row.PartType,
	}
}

func fromPart(vehicleToEngineConfigID int, partType enums.PartType, part Part) models.VehiclePart {
	notes := make([]models.VehiclePartNote, 0, len(part.Notes))
	for i, n := range part.Notes {
		notes = append(notes, models.VehiclePartNote{Position: i, Value: n.Value})
	}
	return models.VehiclePart{
		VehicleToEngineConfigID: vehicleToEngineConfigID,
		PartType:                partType.String(),
		Part:                    part.Part,
		Qualifier:               part.Qualifier,
		Notes:                   notes,
	}
}
