package pull

import "strconv"

// Object is one remote object as fetched: a mapping from field name to
// decoded value. Objects live only for the duration of one sync pass; the
// file store owns their serialized form.
type Object = map[string]any

// IncompleteField marks an object whose body retrieval failed during a
// two-step fetch. The object is kept rather than dropped so the diff still
// sees it; the flag makes the gap visible in the stored file.
const IncompleteField = "incomplete"

// FieldString returns the string form of an object field. Numeric
// identifiers (rule ids, creation timestamps) are common, so numbers are
// rendered without an exponent or trailing zeros.
func FieldString(obj Object, field string) (string, bool) {
	v, ok := obj[field]
	if !ok || v == nil {
		return "", false
	}
	switch t := v.(type) {
	case string:
		if t == "" {
			return "", false
		}
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case uint64:
		return strconv.FormatUint(t, 10), true
	default:
		return "", false
	}
}
