package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/appraisal-cli/internal/model"
)

// unitSquare returns a 1x1 degree polygon with corners at (0,0) and (1,1).
func unitSquare(t *testing.T) *geom.Polygon {
	t.Helper()
	poly := geom.NewPolygon(geom.XY)
	_, err := poly.SetCoords([][]geom.Coord{{
		{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0},
	}})
	require.NoError(t, err)
	return poly
}

func TestContainsPoint(t *testing.T) {
	poly := unitSquare(t)

	tests := []struct {
		name string
		loc  model.Location
		want bool
	}{
		{"center", model.Location{Lat: 0.5, Lon: 0.5}, true},
		{"outside east", model.Location{Lat: 0.5, Lon: 1.5}, false},
		{"outside north", model.Location{Lat: 1.5, Lon: 0.5}, false},
		{"near corner inside", model.Location{Lat: 0.01, Lon: 0.01}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ContainsPoint(poly, tt.loc))
		})
	}
}

func TestContainsPoint_Hole(t *testing.T) {
	poly := geom.NewPolygon(geom.XY)
	_, err := poly.SetCoords([][]geom.Coord{
		{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}},
		{{0.4, 0.4}, {0.6, 0.4}, {0.6, 0.6}, {0.4, 0.6}, {0.4, 0.4}},
	})
	require.NoError(t, err)

	assert.False(t, ContainsPoint(poly, model.Location{Lat: 0.5, Lon: 0.5}), "inside the hole")
	assert.True(t, ContainsPoint(poly, model.Location{Lat: 0.2, Lon: 0.2}), "outside the hole")
}

func TestContainsPoint_NilPolygon(t *testing.T) {
	assert.False(t, ContainsPoint(nil, model.Location{Lat: 0.5, Lon: 0.5}))
}

func TestFilterByPolygon(t *testing.T) {
	poly := unitSquare(t)
	comps := []model.CompProperty{
		{ID: "in", Location: model.Location{Lat: 0.5, Lon: 0.5}},
		{ID: "out", Location: model.Location{Lat: 2, Lon: 2}},
		{ID: "out-locked", Location: model.Location{Lat: 3, Lon: 3}},
	}

	sel := model.NewCompSelection()
	sel.RestrictToPolygon = true
	sel.Locked["out-locked"] = true

	filtered := FilterByPolygon(comps, poly, sel)
	require.Len(t, filtered, 2)
	assert.Equal(t, "in", filtered[0].ID)
	assert.Equal(t, "out-locked", filtered[1].ID, "locked comps survive the polygon filter")

	// Restriction off: passthrough.
	sel.RestrictToPolygon = false
	assert.Len(t, FilterByPolygon(comps, poly, sel), 3)
}

func TestAnnotatePolygon(t *testing.T) {
	poly := unitSquare(t)
	comps := []model.CompProperty{
		{ID: "in", Location: model.Location{Lat: 0.5, Lon: 0.5}},
		{ID: "out", Location: model.Location{Lat: 2, Lon: 2}},
	}

	annotated := AnnotatePolygon(comps, poly)
	require.Len(t, annotated, 2)
	require.NotNil(t, annotated[0].IsInsidePolygon)
	assert.True(t, *annotated[0].IsInsidePolygon)
	require.NotNil(t, annotated[1].IsInsidePolygon)
	assert.False(t, *annotated[1].IsInsidePolygon)

	cleared := AnnotatePolygon(annotated, nil)
	assert.Nil(t, cleared[0].IsInsidePolygon)
}
