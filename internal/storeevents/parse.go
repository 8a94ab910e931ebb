package storeevents

import (
	"encoding/json"

	"github.com/angelmondragon/baystatus/pkg/enums"
	pkgerrors "github.com/angelmondragon/baystatus/pkg/errors"
)

// Parse decodes and validates one inbound frame.
//
// Failures are *pkgerrors.Error values with code PARSE_ERROR (not a JSON
// object, or a field of the wrong JSON type), VALIDATION_ERROR (missing
// required key or bad format, first failure only) or UNSUPPORTED_EVENT_TYPE.
// Required keys must be present; a null value counts as present.
func Parse(frame []byte) (*Event, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(frame, &fields); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeParse, err, "malformed store event frame")
	}
	if fields == nil {
		return nil, pkgerrors.New(pkgerrors.CodeParse, "store event frame is not a JSON object")
	}

	if err := checkRequired(fields); err != nil {
		return nil, err
	}

	var base baseFields
	if err := json.Unmarshal(frame, &base); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeParse, err, "decode store event fields")
	}

	payload, ok := newPayload(base.EventType)
	if !ok {
		return nil, pkgerrors.Newf(pkgerrors.CodeUnsupportedEventType,
			"Unsupported event type: %s", base.EventType)
	}
	if payload != nil {
		if err := json.Unmarshal(frame, payload); err != nil {
			return nil, pkgerrors.Wrapf(pkgerrors.CodeParse, err, "decode %s fields", base.EventType)
		}
	}

	event := fromBase(base)
	event.Payload = payload
	return event, nil
}

// ParseString is Parse for text frames.
func ParseString(frame string) (*Event, error) {
	return Parse([]byte(frame))
}

// newPayload resolves the payload variant for an event type. The second
// return is false for types outside the closed set.
func newPayload(t enums.EventType) (Payload, bool) {
	switch t {
	case enums.EventNavigation:
		return &NavigationPayload{}, true
	case enums.EventServiceEdited:
		return &ServiceEditedPayload{}, true
	case enums.EventValidation,
		enums.EventBeginDay,
		enums.EventVisitAdded,
		enums.EventVisitRemoved,
		enums.EventVisitAssignedToBay,
		enums.EventVisitUnassignedToBay,
		enums.EventInvoiceFinalized,
		enums.EventVehicleUpdated,
		enums.EventInvoiceVoided,
		enums.EventInvoiceLocked,
		enums.EventInvoiceUnlocked,
		enums.EventCustomerTypeUpdated:
		return nil, true
	default:
		return nil, false
	}
}

// Serialize writes the event as a flat JSON object of its own fields.
func Serialize(event *Event) ([]byte, error) {
	if event == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cannot serialize nil store event")
	}
	return json.Marshal(event)
}

// IsParseError reports whether err came from a malformed frame.
func IsParseError(err error) bool {
	return pkgerrors.IsCode(err, pkgerrors.CodeParse)
}

// IsValidationError reports whether err came from a missing or malformed field.
func IsValidationError(err error) bool {
	return pkgerrors.IsCode(err, pkgerrors.CodeValidation)
}

// IsUnsupportedEventType reports whether err names an unknown event type.
func IsUnsupportedEventType(err error) bool {
	return pkgerrors.IsCode(err, pkgerrors.CodeUnsupportedEventType)
}

// Outcome maps a Parse error onto the frame outcome label used in metrics.
func Outcome(err error) enums.FrameOutcome {
	switch {
	case err == nil:
		return enums.FrameAccepted
	case IsValidationError(err):
		return enums.FrameValidationError
	case IsUnsupportedEventType(err):
		return enums.FrameUnsupportedEvent
	default:
		return enums.FrameParseError
	}
}
