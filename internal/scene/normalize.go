package scene

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"

	"drawdesk/internal/domain"
)

// ErrInvalid marks element shapes rejected before they reach the store.
var ErrInvalid = errors.New("invalid element")

const isoFormat = "2006-01-02T15:04:05.000Z"

// NewElementID returns a fresh 20-hex-char element id.
func NewElementID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:20]
}

// Normalize validates an inbound element and fills defaults so the record is
// always renderable. It returns the same map, mutated in place.
func Normalize(el domain.Element) (domain.Element, error) {
	if el == nil {
		return nil, fmt.Errorf("%w: element is required", ErrInvalid)
	}
	t := el.Type()
	if t == "" {
		return nil, fmt.Errorf("%w: type is required", ErrInvalid)
	}
	if !domain.ElementTypes[t] {
		return nil, fmt.Errorf("%w: unknown element type %q", ErrInvalid, t)
	}
	for _, key := range []string{"start", "end"} {
		if !el.Has(key) {
			continue
		}
		ref, ok := el[key].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s must be an object with an id", ErrInvalid, key)
		}
		if _, ok := ref["id"].(string); !ok {
			return nil, fmt.Errorf("%w: %s.id must be a string", ErrInvalid, key)
		}
	}

	if el.ID() == "" {
		el["id"] = NewElementID()
	}

	setDefault(el, "x", float64(100))
	setDefault(el, "y", float64(100))
	setDefault(el, "width", float64(200))
	setDefault(el, "height", float64(100))
	setDefault(el, "angle", float64(0))
	setDefault(el, "strokeColor", "#1e1e2e")
	setDefault(el, "backgroundColor", "transparent")
	setDefault(el, "fillStyle", "hachure")
	setDefault(el, "strokeWidth", float64(2))
	setDefault(el, "strokeStyle", "solid")
	setDefault(el, "roughness", float64(1))
	setDefault(el, "opacity", float64(100))
	setDefault(el, "groupIds", []any{})
	// Tombstones are never stored; deletion removes entries outright.
	el["isDeleted"] = false
	setDefault(el, "locked", false)
	if !el.Has("boundElements") {
		el["boundElements"] = nil
	}

	switch t {
	case domain.TypeText:
		setDefault(el, "text", "")
		setDefault(el, "fontSize", float64(20))
		setDefault(el, "fontFamily", float64(1))
	case domain.TypeArrow, domain.TypeLine, domain.TypeFreedraw:
		if len(el.Points()) < 2 {
			el["points"] = [][]float64{{0, 0}, {el.Width(), 0}}
		}
	}

	now := time.Now()
	el["version"] = float64(1)
	el["versionNonce"] = float64(rand.Uint32())
	el["updated"] = float64(now.UnixMilli())
	iso := now.UTC().Format(isoFormat)
	el["createdAt"] = iso
	el["updatedAt"] = iso
	return el, nil
}

// Touch bumps the version fields after a mutation of a stored element.
func Touch(el domain.Element) {
	now := time.Now()
	v := el.Num("version")
	if v < 1 {
		v = 1
	} else {
		v++
	}
	el["version"] = v
	el["versionNonce"] = float64(rand.Uint32())
	el["updated"] = float64(now.UnixMilli())
	el["updatedAt"] = now.UTC().Format(isoFormat)
}

func setDefault(el domain.Element, key string, value any) {
	if !el.Has(key) {
		el[key] = value
	}
}
