package wizard

import (
	"math"
	"strconv"
	"strings"

	"github.com/mbolis/quick-wizard/model"
)

// Evaluate reports whether the element gated by c is visible given the
// current answers. A nil condition never gates. Evaluate never panics: a
// reference to a field with no answer compares as the empty string.
func Evaluate(c *model.Condition, answers model.Answers) bool {
	if c == nil {
		return true
	}
	value := answers[c.FieldID]

	switch c.Operator {
	case model.OpEq:
		return stringify(value) == c.Value
	case model.OpNeq:
		return stringify(value) != c.Value
	case model.OpGt:
		return compareNumeric(value, c.Value, func(a, b float64) bool { return a > b })
	case model.OpLt:
		return compareNumeric(value, c.Value, func(a, b float64) bool { return a < b })
	case model.OpGte:
		return compareNumeric(value, c.Value, func(a, b float64) bool { return a >= b })
	case model.OpLte:
		return compareNumeric(value, c.Value, func(a, b float64) bool { return a <= b })
	case model.OpContains:
		return contains(value, c.Value)
	case model.OpNotContains:
		return !contains(value, c.Value)
	case model.OpEmpty:
		return isEmpty(value)
	case model.OpNotEmpty:
		return !isEmpty(value)
	}
	return false
}

func compareNumeric(value any, operand string, cmp func(float64, float64) bool) bool {
	a, ok := toFloat(value)
	if !ok {
		return false
	}
	b, ok := toFloat(operand)
	if !ok {
		return false
	}
	return cmp(a, b)
}

func contains(value any, needle string) bool {
	switch v := value.(type) {
	case nil:
		return false
	case []string:
		for _, e := range v {
			if e == needle {
				return true
			}
		}
		return false
	}
	return strings.Contains(stringify(value), needle)
}

// isEmpty is true for an absent value, the empty string and an empty list.
func isEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []string:
		return len(v) == 0
	case []any:
		return len(v) == 0
	}
	return false
}

func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	case []string:
		return strings.Join(v, ",")
	case []any:
		parts := make([]string, len(v))
		for i, e := range v {
			parts[i] = stringify(e)
		}
		return strings.Join(parts, ",")
	}
	return ""
}

// toFloat accepts numbers and numeric strings. Empty strings, booleans,
// lists, NaN and infinities are not numeric.
func toFloat(value any) (float64, bool) {
	var f float64
	switch v := value.(type) {
	case float64:
		f = v
	case int:
		f = float64(v)
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, false
		}
		var err error
		f, err = strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
