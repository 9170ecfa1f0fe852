package scene

import (
	"math"

	"drawdesk/internal/domain"
)

// BindingGap is the uniform offset between an arrow endpoint and the edge of
// the element it binds to.
const BindingGap = 8.0

type point struct{ x, y float64 }

// ResolveBindings rewrites every arrow/line in the batch that carries raw
// start/end references into its stored form: absolute origin, two relative
// points, and startBinding/endBinding records. References resolve against the
// batch first, then the lookup (the live store), so intra-batch references
// work. Elements without references pass through untouched.
func ResolveBindings(batch []domain.Element, lookup func(id string) (domain.Element, bool)) {
	working := make(map[string]domain.Element, len(batch))
	for _, el := range batch {
		if id := el.ID(); id != "" {
			working[id] = el
		}
	}
	find := func(id string) (domain.Element, bool) {
		if el, ok := working[id]; ok {
			return el, true
		}
		if lookup != nil {
			return lookup(id)
		}
		return nil, false
	}

	for _, el := range batch {
		t := el.Type()
		if t != domain.TypeArrow && t != domain.TypeLine {
			continue
		}
		startRef := refID(el, "start")
		endRef := refID(el, "end")
		if startRef == "" && endRef == "" {
			continue
		}
		resolveArrow(el, startRef, endRef, find)
	}
}

func refID(el domain.Element, key string) string {
	ref, ok := el[key].(map[string]any)
	if !ok {
		return ""
	}
	id, _ := ref["id"].(string)
	return id
}

func resolveArrow(el domain.Element, startRef, endRef string, find func(string) (domain.Element, bool)) {
	// Straight defaults when a referenced element is missing.
	start := point{el.X(), el.Y()}
	end := point{el.X() + 100, el.Y()}

	startEl, haveStart := resolveTarget(startRef, find)
	endEl, haveEnd := resolveTarget(endRef, find)

	startCenter, endCenter := start, end
	if haveStart {
		startCenter = center(startEl)
	}
	if haveEnd {
		endCenter = center(endEl)
	}

	if haveStart {
		start = attachWithGap(startEl, endCenter)
	}
	if haveEnd {
		end = attachWithGap(endEl, startCenter)
	}

	el["x"] = start.x
	el["y"] = start.y
	el["width"] = math.Abs(end.x - start.x)
	el["height"] = math.Abs(end.y - start.y)
	el["points"] = [][]float64{{0, 0}, {end.x - start.x, end.y - start.y}}
	delete(el, "start")
	delete(el, "end")

	if haveStart {
		el["startBinding"] = map[string]any{
			"elementId": startEl.ID(),
			"focus":     float64(0),
			"gap":       BindingGap,
		}
	}
	if haveEnd {
		el["endBinding"] = map[string]any{
			"elementId": endEl.ID(),
			"focus":     float64(0),
			"gap":       BindingGap,
		}
	}
}

func resolveTarget(id string, find func(string) (domain.Element, bool)) (domain.Element, bool) {
	if id == "" {
		return nil, false
	}
	return find(id)
}

func center(el domain.Element) point {
	return point{el.X() + el.Width()/2, el.Y() + el.Height()/2}
}

// attachWithGap computes the edge-attachment point on el toward the target,
// then backs it off by the binding gap along the same direction.
func attachWithGap(el domain.Element, toward point) point {
	att := edgeAttachment(el, toward)
	c := center(el)
	dx, dy := toward.x-c.x, toward.y-c.y
	dist := math.Hypot(dx, dy)
	if dist == 0 {
		// Degenerate: target sits on the center. The attachment already
		// picked the bottom face; push straight down.
		return point{att.x, att.y + BindingGap}
	}
	return point{att.x + BindingGap*dx/dist, att.y + BindingGap*dy/dist}
}

// edgeAttachment projects the center-to-target vector onto the element's
// silhouette, type-specific.
func edgeAttachment(el domain.Element, toward point) point {
	c := center(el)
	hw, hh := el.Width()/2, el.Height()/2
	dx, dy := toward.x-c.x, toward.y-c.y
	if dx == 0 && dy == 0 {
		return point{c.x, el.Y() + el.Height()}
	}

	switch el.Type() {
	case domain.TypeEllipse:
		theta := math.Atan2(dy, dx)
		return point{c.x + hw*math.Cos(theta), c.y + hh*math.Sin(theta)}
	case domain.TypeDiamond:
		scale := 1 / (math.Abs(dx)/hw + math.Abs(dy)/hh)
		return point{c.x + dx*scale, c.y + dy*scale}
	default:
		// Bounding-box silhouette: scale so the larger normalized component
		// lands exactly on its face.
		sx, sy := math.Inf(1), math.Inf(1)
		if dx != 0 {
			sx = hw / math.Abs(dx)
		}
		if dy != 0 {
			sy = hh / math.Abs(dy)
		}
		scale := math.Min(sx, sy)
		return point{c.x + dx*scale, c.y + dy*scale}
	}
}
