package storeevents

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"

	pkgerrors "github.com/angelmondragon/baystatus/pkg/errors"
)

const tagUUID = "isUUID"

var uuidPattern = regexp.MustCompile(`^[A-Fa-f0-9]{8}-[A-Fa-f0-9]{4}-[A-Fa-f0-9]{4}-[A-Fa-f0-9]{4}-[A-Fa-f0-9]{12}$`)

// fieldRule is one required key and the format validators run on its value.
type fieldRule struct {
	name       string
	validators []string
}

// requiredFields is checked in order; the first failure is reported.
var requiredFields = []fieldRule{
	{name: "eventId", validators: []string{tagUUID}},
	{name: "eventTime"},
	{name: "eventType"},
	{name: "bayType"},
	{name: "bayNumber"},
	{name: "visitId"},
	{name: "visitGuid", validators: []string{tagUUID}},
	{name: "storeNumber"},
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation(tagUUID, func(fl validator.FieldLevel) bool {
		return uuidPattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(fmt.Sprintf("register %s validator: %v", tagUUID, err))
	}
	return v
}

// RequiredFields lists the keys every frame must carry, in check order.
func RequiredFields() []string {
	out := make([]string, 0, len(requiredFields))
	for _, rule := range requiredFields {
		out = append(out, rule.name)
	}
	return out
}

func checkRequired(fields map[string]json.RawMessage) error {
	for _, rule := range requiredFields {
		raw, ok := fields[rule.name]
		if !ok {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "property: %s is required", rule.name)
		}
		value := rawString(raw)
		for _, tag := range rule.validators {
			if err := validate.Var(value, tag); err != nil {
				return pkgerrors.Newf(pkgerrors.CodeValidation,
					"Validation failed for property: %s, Function name: %s", rule.name, tag)
			}
		}
	}
	return nil
}

// rawString returns the decoded value of a JSON string, or the raw token text
// for any other JSON value so it is validated as written.
func rawString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
