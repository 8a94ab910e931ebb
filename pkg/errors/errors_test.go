package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeParse, status: http.StatusBadRequest, publicMsg: "malformed event frame", detailsOK: true},
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeUnsupportedEventType, status: http.StatusUnprocessableEntity, publicMsg: "unsupported event type", detailsOK: true},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected"},
		{code: CodeLookupFailed, status: http.StatusBadGateway, publicMsg: "vehicle specification lookup failed", retryable: true, detailsOK: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "property: eventId is required")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "property: eventId is required" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Error() != "VALIDATION_ERROR: property: eventId is required" {
		t.Fatalf("unexpected error string %q", base.Error())
	}

	cause := stdErrors.New("unexpected end of JSON input")
	wrapped := Wrap(CodeParse, cause, "malformed frame")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Error() != "PARSE_ERROR: malformed frame: unexpected end of JSON input" {
		t.Fatalf("unexpected wrapped string %q", wrapped.Error())
	}
}

func TestIsCodeFollowsWrapping(t *testing.T) {
	err := fmt.Errorf("bay 1: %w", New(CodeUnsupportedEventType, "Unsupported event type: FOO"))
	if !IsCode(err, CodeUnsupportedEventType) {
		t.Fatalf("expected IsCode to see through fmt wrapping")
	}
	if IsCode(err, CodeValidation) {
		t.Fatalf("IsCode matched the wrong code")
	}
	if IsCode(nil, CodeInternal) {
		t.Fatalf("IsCode(nil) should be false")
	}
}

func TestDumpCarriesCodeAndChain(t *testing.T) {
	err := fmt.Errorf("lookup: %w", Wrap(CodeLookupFailed, stdErrors.New("timeout"), "catalog request"))
	d := Dump(err)
	if d.Code != CodeLookupFailed {
		t.Fatalf("expected lookup code, got %s", d.Code)
	}
	if !d.Retryable {
		t.Fatalf("lookup failures should be retryable")
	}
	if len(d.Chain) != 3 {
		t.Fatalf("expected 3 chain entries, got %d: %v", len(d.Chain), d.Chain)
	}
	if _, ok := d.Fields()["pg_code"]; ok {
		t.Fatalf("pg fields should be omitted for non-postgres errors")
	}
}

func TestNewfAndWrapfFormatMessages(t *testing.T) {
	err := Newf(CodeNotFound, "bay %s is not configured", "7")
	if err.Message() != "bay 7 is not configured" {
		t.Fatalf("unexpected message %q", err.Message())
	}

	cause := stdErrors.New("connection refused")
	wrapped := Wrapf(CodeLookupFailed, cause, "lookup %d", 111)
	if wrapped.Message() != "lookup 111" || !stdErrors.Is(wrapped, cause) {
		t.Fatalf("unexpected wrapped error %v", wrapped)
	}
}

func TestRetryable(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{New(CodeParse, "bad frame"), false},
		{New(CodeLookupFailed, "timeout"), true},
		{stdErrors.New("untyped"), true},
	}
	for _, tc := range cases {
		if got := Retryable(tc.err); got != tc.want {
			t.Fatalf("Retryable(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}
