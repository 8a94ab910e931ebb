package models

import "time"

// VehiclePart maps to the vehicle_parts table.
type VehiclePart struct {
	ID                      int               `gorm:"primaryKey;autoIncrement"`
	VehicleToEngineConfigID int               `gorm:"column:vehicle_to_engine_config_id;not null;index:idx_vehicle_parts_lookup,priority:1"`
	PartType                string            `gorm:"column:part_type;not null;index:idx_vehicle_parts_lookup,priority:2"`
	Part                    string            `gorm:"column:part;not null"`
	Qualifier               string            `gorm:"column:qualifier;not null;default:''"`
	Notes                   []VehiclePartNote `gorm:"foreignKey:VehiclePartID;constraint:OnDelete:CASCADE"`
	CreatedAt               time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt               time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (VehiclePart) TableName() string {
	return "vehicle_parts"
}
