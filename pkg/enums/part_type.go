package enums

import (
	"fmt"
	"strings"
)

// PartType selects the vehicle specification category a widget renders.
type PartType string

const (
	PartTypeAirFilter       PartType = "AIR_FILTER"
	PartTypeCabinAirFilter  PartType = "CABIN_AIR_FILTER"
	PartTypeOilFilter       PartType = "OIL_FILTER"
	PartTypeOilFilterChange PartType = "OIL_FILTER_CHANGE"
)

var validPartTypes = []PartType{
	PartTypeAirFilter,
	PartTypeCabinAirFilter,
	PartTypeOilFilter,
	PartTypeOilFilterChange,
}

// PartTypes returns every known part type.
func PartTypes() []PartType {
	out := make([]PartType, len(validPartTypes))
	copy(out, validPartTypes)
	return out
}

func (p PartType) String() string {
	return string(p)
}

// IsValid reports whether the part type is known.
func (p PartType) IsValid() bool {
	for _, candidate := range validPartTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePartType accepts either the canonical value or its lower snake form
// ("air_filter") used in configuration.
func ParsePartType(value string) (PartType, error) {
	for _, candidate := range validPartTypes {
		if string(candidate) == value || string(candidate) == strings.ToUpper(value) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid part type %q", value)
}

