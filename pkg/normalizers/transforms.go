package normalizers

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/Ramsey-B/fern/pkg/models"
)

// Transform converts a single mapped value.
type Transform func(value any) (any, error)

// registry holds all registered transforms
var registry = make(map[models.TransformKind]Transform)

func init() {
	Register(models.TransformNone, Identity)
	Register(models.TransformLowercase, Lowercase)
	Register(models.TransformUppercase, Uppercase)
	Register(models.TransformTrim, Trim)
	Register(models.TransformInt, ParseInt)
	Register(models.TransformFloat, ParseFloat)
}

// Register adds a transform to the registry
func Register(kind models.TransformKind, fn Transform) {
	registry[kind] = fn
}

// Get retrieves a transform by kind
func Get(kind models.TransformKind) (Transform, bool) {
	fn, ok := registry[kind]
	return fn, ok
}

// Apply runs the named transform. Nil values and an empty kind pass through.
// On failure the original value is returned together with the error so the
// caller can decide whether to log it.
func Apply(value any, kind models.TransformKind) (any, error) {
	if value == nil || kind == "" {
		return value, nil
	}
	fn, ok := registry[models.TransformKind(strings.ToUpper(string(kind)))]
	if !ok {
		return value, fmt.Errorf("unknown transform %q", kind)
	}
	out, err := fn(value)
	if err != nil {
		return value, err
	}
	return out, nil
}

// Identity returns the value unchanged
func Identity(value any) (any, error) {
	return value, nil
}

// Lowercase lowercases the string form of the value
func Lowercase(value any) (any, error) {
	return strings.ToLower(Stringify(value)), nil
}

// Uppercase uppercases the string form of the value
func Uppercase(value any) (any, error) {
	return strings.ToUpper(Stringify(value)), nil
}

// Trim trims surrounding whitespace from the string form of the value
func Trim(value any) (any, error) {
	return strings.TrimSpace(Stringify(value)), nil
}

// ParseInt parses the string form of the value as a base-10 integer
func ParseInt(value any) (any, error) {
	n, err := strconv.Atoi(strings.TrimSpace(Stringify(value)))
	if err != nil {
		return nil, fmt.Errorf("cannot convert %q to int: %w", Stringify(value), err)
	}
	return n, nil
}

// ParseFloat parses the string form of the value as a float
func ParseFloat(value any) (any, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(Stringify(value)), 64)
	if err != nil {
		return nil, fmt.Errorf("cannot convert %q to float: %w", Stringify(value), err)
	}
	return f, nil
}

// Stringify renders a payload value the way it would read in the source
// document. Integral floats drop the fractional part, composites are JSON.
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	case fmt.Stringer:
		return v.String()
	case map[string]any, []any:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	default:
		return fmt.Sprintf("%v", v)
	}
}
