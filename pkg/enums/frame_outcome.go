package enums

// FrameOutcome labels what a bay receiver did with one inbound frame.
type FrameOutcome string

const (
	FrameAccepted         FrameOutcome = "accepted"
	FrameOtherBay         FrameOutcome = "other_bay"
	FrameDuplicate        FrameOutcome = "duplicate"
	FrameParseError       FrameOutcome = "parse_error"
	FrameValidationError  FrameOutcome = "validation_error"
	FrameUnsupportedEvent FrameOutcome = "unsupported_event_type"
)

func (f FrameOutcome) String() string {
	return string(f)
}
