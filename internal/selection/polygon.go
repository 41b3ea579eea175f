package selection

import (
	"github.com/twpayne/go-geom"

	"github.com/sells-group/appraisal-cli/internal/model"
)

// ContainsPoint reports whether a lon/lat point falls inside the polygon's
// outer ring and outside its holes. Ray cast over the polygon's flat
// coordinates; points exactly on an edge count as inside.
func ContainsPoint(poly *geom.Polygon, loc model.Location) bool {
	if poly == nil || poly.NumLinearRings() == 0 {
		return false
	}
	if !ringContains(poly.LinearRing(0), loc) {
		return false
	}
	for i := 1; i < poly.NumLinearRings(); i++ {
		if ringContains(poly.LinearRing(i), loc) {
			return false
		}
	}
	return true
}

func ringContains(ring *geom.LinearRing, loc model.Location) bool {
	coords := ring.FlatCoords()
	stride := ring.Stride()
	n := len(coords) / stride
	if n < 3 {
		return false
	}

	x, y := loc.Lon, loc.Lat
	inside := false
	j := n - 1
	for i := 0; i < n; i++ {
		xi, yi := coords[i*stride], coords[i*stride+1]
		xj, yj := coords[j*stride], coords[j*stride+1]

		if (yi > y) != (yj > y) && x < (xj-xi)*(y-yi)/(yj-yi)+xi {
			inside = !inside
		}
		j = i
	}
	return inside
}

// AnnotatePolygon stamps IsInsidePolygon on each comp against the market
// polygon. A nil polygon clears the flags.
func AnnotatePolygon(comps []model.CompProperty, poly *geom.Polygon) []model.CompProperty {
	out := make([]model.CompProperty, len(comps))
	for i, c := range comps {
		if poly == nil {
			c.IsInsidePolygon = nil
		} else {
			inside := ContainsPoint(poly, c.Location)
			c.IsInsidePolygon = &inside
		}
		out[i] = c
	}
	return out
}

// FilterByPolygon returns the comps inside the polygon when restriction is
// on; otherwise the input unchanged. Locked comps survive the filter so a
// deliberate out-of-polygon selection is never silently dropped.
func FilterByPolygon(comps []model.CompProperty, poly *geom.Polygon, sel model.CompSelection) []model.CompProperty {
	if !sel.RestrictToPolygon || poly == nil {
		return comps
	}
	out := make([]model.CompProperty, 0, len(comps))
	for _, c := range comps {
		if sel.IsLocked(c.ID) || ContainsPoint(poly, c.Location) {
			out = append(out, c)
		}
	}
	return out
}
