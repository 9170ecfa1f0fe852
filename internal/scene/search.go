package scene

import (
	"strconv"
	"strings"

	"drawdesk/internal/domain"
)

// Query is a conjunctive element filter: every populated criterion must hold.
type Query struct {
	Types        []string
	Fields       map[string]string
	MinWidth     *float64
	MaxWidth     *float64
	MinHeight    *float64
	MaxHeight    *float64
	TextContains string
}

// Matches reports whether the element satisfies every criterion.
func (q Query) Matches(el domain.Element) bool {
	if len(q.Types) > 0 {
		found := false
		for _, t := range q.Types {
			if string(el.Type()) == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	for key, want := range q.Fields {
		v, ok := el[key]
		if !ok {
			return false
		}
		if Stringify(v) != want {
			return false
		}
	}

	w, h := el.Width(), el.Height()
	if q.MinWidth != nil && w < *q.MinWidth {
		return false
	}
	if q.MaxWidth != nil && w > *q.MaxWidth {
		return false
	}
	if q.MinHeight != nil && h < *q.MinHeight {
		return false
	}
	if q.MaxHeight != nil && h > *q.MaxHeight {
		return false
	}

	if q.TextContains != "" {
		if !strings.Contains(strings.ToLower(el.Str("text")), strings.ToLower(q.TextContains)) {
			return false
		}
	}
	return true
}

// Stringify renders a field value the way a JS String() cast would, so query
// parameters compare stably against numbers and booleans.
func Stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case bool:
		return strconv.FormatBool(val)
	case nil:
		return "null"
	}
	return ""
}
