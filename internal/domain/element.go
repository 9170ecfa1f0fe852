package domain

// ElementType tags one drawable record on the canvas.
type ElementType string

const (
	TypeRectangle ElementType = "rectangle"
	TypeEllipse   ElementType = "ellipse"
	TypeDiamond   ElementType = "diamond"
	TypeText      ElementType = "text"
	TypeLine      ElementType = "line"
	TypeArrow     ElementType = "arrow"
	TypeFreedraw  ElementType = "freedraw"
	TypeImage     ElementType = "image"
	TypeFrame     ElementType = "frame"
)

// ElementTypes is the closed set of accepted type tags.
var ElementTypes = map[ElementType]bool{
	TypeRectangle: true,
	TypeEllipse:   true,
	TypeDiamond:   true,
	TypeText:      true,
	TypeLine:      true,
	TypeArrow:     true,
	TypeFreedraw:  true,
	TypeImage:     true,
	TypeFrame:     true,
}

// Element is one drawable record. Per-type fields live alongside the common
// ones in a single merged record, so patch and search operate uniformly and
// unknown fields round-trip through JSON untouched.
type Element map[string]any

// ID returns the element id, or "" when unset.
func (e Element) ID() string { return e.Str("id") }

// Type returns the element's type tag.
func (e Element) Type() ElementType { return ElementType(e.Str("type")) }

// IsLinear reports whether the element is point-based.
func (e Element) IsLinear() bool {
	t := e.Type()
	return t == TypeArrow || t == TypeLine || t == TypeFreedraw
}

// Str returns a string field, or "" when absent or not a string.
func (e Element) Str(key string) string {
	s, _ := e[key].(string)
	return s
}

// Num returns a numeric field as float64, tolerating the int types Go code
// writes and the float64 JSON decoding produces.
func (e Element) Num(key string) float64 {
	switch v := e[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case uint32:
		return float64(v)
	}
	return 0
}

// Has reports whether the field is present.
func (e Element) Has(key string) bool {
	_, ok := e[key]
	return ok
}

func (e Element) X() float64      { return e.Num("x") }
func (e Element) Y() float64      { return e.Num("y") }
func (e Element) Width() float64  { return e.Num("width") }
func (e Element) Height() float64 { return e.Num("height") }

// Clone deep-copies the element so snapshots and duplicates are independent
// of the live record.
func (e Element) Clone() Element {
	out, _ := copyValue(map[string]any(e)).(map[string]any)
	return Element(out)
}

// CloneElements deep-copies a slice of elements.
func CloneElements(els []Element) []Element {
	out := make([]Element, len(els))
	for i, el := range els {
		out[i] = el.Clone()
	}
	return out
}

func copyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(val))
		for k, item := range val {
			m[k] = copyValue(item)
		}
		return m
	case Element:
		return copyValue(map[string]any(val))
	case []any:
		s := make([]any, len(val))
		for i, item := range val {
			s[i] = copyValue(item)
		}
		return s
	case [][]float64:
		s := make([][]float64, len(val))
		for i, p := range val {
			s[i] = append([]float64(nil), p...)
		}
		return s
	case []float64:
		return append([]float64(nil), val...)
	case []string:
		return append([]string(nil), val...)
	default:
		return val
	}
}

// Points returns the element's polyline as coordinate pairs, decoding both
// the [][]float64 form Go code writes and the []any form JSON produces.
func (e Element) Points() [][]float64 {
	switch pts := e["points"].(type) {
	case [][]float64:
		return pts
	case []any:
		out := make([][]float64, 0, len(pts))
		for _, p := range pts {
			switch pair := p.(type) {
			case []any:
				if len(pair) >= 2 {
					out = append(out, []float64{asFloat(pair[0]), asFloat(pair[1])})
				}
			case []float64:
				if len(pair) >= 2 {
					out = append(out, []float64{pair[0], pair[1]})
				}
			}
		}
		return out
	}
	return nil
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	}
	return 0
}
