package resource

import (
	"fmt"

	"github.com/lucent-admin/lucent/internal/store"
)

// Errors maps attribute names to validation messages. Values are either a
// message string or, for embedded fields, a nested Errors-shaped map. The
// shape mirrors the client's form state so a 422 body can be adopted as
// error state verbatim.
type Errors map[string]any

// Any reports whether at least one attribute failed validation.
func (e Errors) Any() bool { return len(e) > 0 }

// requiredMessage is the per-attribute message for a missing required
// field. The attribute key of the error map matches the payload attribute
// exactly.
func requiredMessage(attribute string) string {
	return fmt.Sprintf("The %s field is required.", attribute)
}

// Validate checks a write payload against the resource's non-computed
// fields. In partial mode (updates) only attributes present in the payload
// are checked; creates also report required attributes that are absent
// altogether. Embedded fields are validated recursively and report their
// failures as a nested map.
func Validate(res *Resource, payload store.Record, partial bool) Errors {
	return validateFieldSet(res.NonComputedFields(), payload, partial)
}

func validateFieldSet(fields []Field, payload store.Record, partial bool) Errors {
	errs := Errors{}
	for _, f := range fields {
		value, present := payload[f.Attribute]

		if f.Kind == KindHasOneEmbedded {
			nested, _ := value.(map[string]any)
			if !present && partial {
				continue
			}
			if nestedErrs := validateFieldSet(f.Fields, store.Record(nested), partial); nestedErrs.Any() {
				errs[f.Attribute] = map[string]any(nestedErrs)
			}
			continue
		}

		if !present {
			if f.Required && !partial {
				errs[f.Attribute] = requiredMessage(f.Attribute)
			}
			continue
		}
		if f.Required && isEmpty(f, value) {
			errs[f.Attribute] = requiredMessage(f.Attribute)
		}
	}
	return errs
}

// isEmpty decides per field kind whether a present value still counts as
// missing. Booleans are never empty: false is a legitimate value.
func isEmpty(f Field, value any) bool {
	switch f.Kind {
	case KindBoolean:
		return false
	case KindHasMany, KindHasManyEmbedded:
		list, ok := value.([]any)
		return !ok || len(list) == 0
	default:
		switch v := value.(type) {
		case nil:
			return true
		case string:
			return v == ""
		default:
			return false
		}
	}
}
