package enums

import "fmt"

// EventType is the discriminator carried by every store event frame.
type EventType string

const (
	EventNavigation           EventType = "NAVIGATION"
	EventValidation           EventType = "VALIDATION"
	EventBeginDay             EventType = "BEGIN_DAY"
	EventVisitAdded           EventType = "VISIT_ADDED"
	EventVisitRemoved         EventType = "VISIT_REMOVED"
	EventVisitAssignedToBay   EventType = "VISIT_ASSIGNED_TO_BAY"
	EventVisitUnassignedToBay EventType = "VISIT_UNASSIGNED_TO_BAY"
	EventServiceEdited        EventType = "SERVICE_EDITED"
	EventInvoiceFinalized     EventType = "INVOICE_FINALIZED"
	EventVehicleUpdated       EventType = "VEHICLE_UPDATED"
	EventInvoiceVoided        EventType = "INVOICE_VOIDED"
	EventInvoiceLocked        EventType = "INVOICE_LOCKED"
	EventInvoiceUnlocked      EventType = "INVOICE_UNLOCKED"
	EventCustomerTypeUpdated  EventType = "CUSTOMER_TYPE_UPDATED"
)

var validEventTypes = []EventType{
	EventNavigation,
	EventValidation,
	EventBeginDay,
	EventVisitAdded,
	EventVisitRemoved,
	EventVisitAssignedToBay,
	EventVisitUnassignedToBay,
	EventServiceEdited,
	EventInvoiceFinalized,
	EventVehicleUpdated,
	EventInvoiceVoided,
	EventInvoiceLocked,
	EventInvoiceUnlocked,
	EventCustomerTypeUpdated,
}

// EventTypes returns a copy of the closed event type set in declaration order.
func EventTypes() []EventType {
	out := make([]EventType, len(validEventTypes))
	copy(out, validEventTypes)
	return out
}

// String returns the literal string for the type.
func (e EventType) String() string {
	return string(e)
}

// IsValid reports whether the type is part of the closed set.
func (e EventType) IsValid() bool {
	for _, candidate := range validEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseEventType converts raw input into an EventType.
func ParseEventType(value string) (EventType, error) {
	for _, candidate := range validEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
