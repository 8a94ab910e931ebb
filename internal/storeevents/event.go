// Package storeevents defines the store event wire model and the parser
// that turns inbound frames into validated events.
package storeevents

import (
	"encoding/json"

	"github.com/angelmondragon/baystatus/pkg/enums"
)

// Event is one validated store event. It is built by Parse and treated as
// read-only afterwards; receivers and distributors share the same pointer.
type Event struct {
	EventID     string
	EventTime   string
	EventType   enums.EventType
	BayType     string
	BayNumber   int
	VisitID     int
	VisitGUID   string
	StoreNumber string

	VisitVehicleID          *int
	VehicleToEngineConfigID *int

	// Payload holds the fields specific to EventType. It is nil for event
	// types without extra fields.
	Payload Payload
}

// Payload is implemented by the per-type extensions of Event.
type Payload interface {
	payloadType() enums.EventType
}

// NavigationPayload extends NAVIGATION events.
type NavigationPayload struct {
	Action          *string `json:"action,omitempty"`
	FirstTimeOnPage *bool   `json:"firstTimeOnPage,omitempty"`
}

func (*NavigationPayload) payloadType() enums.EventType { return enums.EventNavigation }

// ServiceEditedPayload extends SERVICE_EDITED events.
type ServiceEditedPayload struct {
	EditType                *string `json:"editType,omitempty"`
	ServiceCode             *string `json:"serviceCode,omitempty"`
	RootServiceCategoryCode *string `json:"rootServiceCategoryCode,omitempty"`
	VisitServiceID          *int    `json:"visitServiceId,omitempty"`
	Ready                   *bool   `json:"ready,omitempty"`
}

func (*ServiceEditedPayload) payloadType() enums.EventType { return enums.EventServiceEdited }

// Navigation returns the navigation extension when the event carries one.
func (e *Event) Navigation() (*NavigationPayload, bool) {
	p, ok := e.Payload.(*NavigationPayload)
	return p, ok
}

// ServiceEdited returns the service-edit extension when the event carries one.
func (e *Event) ServiceEdited() (*ServiceEditedPayload, bool) {
	p, ok := e.Payload.(*ServiceEditedPayload)
	return p, ok
}

// VehicleConfigID returns vehicleToEngineConfigId when present.
func (e *Event) VehicleConfigID() (int, bool) {
	if e == nil || e.VehicleToEngineConfigID == nil {
		return 0, false
	}
	return *e.VehicleToEngineConfigID, true
}

// baseFields is the common wire layout shared by every event type.
type baseFields struct {
	EventID                 string          `json:"eventId"`
	EventTime               string          `json:"eventTime"`
	EventType               enums.EventType `json:"eventType"`
	BayType                 string          `json:"bayType"`
	BayNumber               int             `json:"bayNumber"`
	VisitID                 int             `json:"visitId"`
	VisitGUID               string          `json:"visitGuid"`
	StoreNumber             string          `json:"storeNumber"`
	VisitVehicleID          *int            `json:"visitVehicleId,omitempty"`
	VehicleToEngineConfigID *int            `json:"vehicleToEngineConfigId,omitempty"`
}

// wireEvent flattens the payload next to the base fields.
type wireEvent struct {
	baseFields
	*NavigationPayload
	*ServiceEditedPayload
}

func (e *Event) base() baseFields {
	return baseFields{
		EventID:                 e.EventID,
		EventTime:               e.EventTime,
		EventType:               e.EventType,
		BayType:                 e.BayType,
		BayNumber:               e.BayNumber,
		VisitID:                 e.VisitID,
		VisitGUID:               e.VisitGUID,
		StoreNumber:             e.StoreNumber,
		VisitVehicleID:          e.VisitVehicleID,
		VehicleToEngineConfigID: e.VehicleToEngineConfigID,
	}
}

func fromBase(b baseFields) *Event {
	return &Event{
		EventID:                 b.EventID,
		EventTime:               b.EventTime,
		EventType:               b.EventType,
		BayType:                 b.BayType,
		BayNumber:               b.BayNumber,
		VisitID:                 b.VisitID,
		VisitGUID:               b.VisitGUID,
		StoreNumber:             b.StoreNumber,
		VisitVehicleID:          b.VisitVehicleID,
		VehicleToEngineConfigID: b.VehicleToEngineConfigID,
	}
}

// MarshalJSON writes the flat wire layout: base fields plus payload fields.
func (e Event) MarshalJSON() ([]byte, error) {
	wire := wireEvent{baseFields: e.base()}
	switch p := e.Payload.(type) {
	case *NavigationPayload:
		wire.NavigationPayload = p
	case *ServiceEditedPayload:
		wire.ServiceEditedPayload = p
	}
	return json.Marshal(wire)
}

// UnmarshalJSON runs the full Parse pipeline, so decoding an Event enforces
// the same required fields and formats as inbound frames.
func (e *Event) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*e = *parsed
	return nil
}
