package models

// VehiclePartNote maps to the vehicle_part_notes table.
type VehiclePartNote struct {
	ID            int    `gorm:"primaryKey;autoIncrement"`
	VehiclePartID int    `gorm:"column:vehicle_part_id;not null;uniqueIndex:ux_vehicle_part_notes_position,priority:1"`
	Position      int    `gorm:"column:position;not null;default:0;uniqueIndex:ux_vehicle_part_notes_position,priority:2"`
	Value         string `gorm:"column:value;not null"`
}

func (VehiclePartNote) TableName() string {
	return "vehicle_part_notes"
}
