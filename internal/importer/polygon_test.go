package importer

import (
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePolygonShapefile(t *testing.T, points []shp.Point, parts []int32) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "market.shp")

	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)

	box := shp.Box{MinX: points[0].X, MinY: points[0].Y, MaxX: points[0].X, MaxY: points[0].Y}
	for _, p := range points {
		if p.X < box.MinX {
			box.MinX = p.X
		}
		if p.Y < box.MinY {
			box.MinY = p.Y
		}
		if p.X > box.MaxX {
			box.MaxX = p.X
		}
		if p.Y > box.MaxY {
			box.MaxY = p.Y
		}
	}

	poly := shp.Polygon{
		Box:       box,
		NumParts:  int32(len(parts)),
		NumPoints: int32(len(points)),
		Parts:     parts,
		Points:    points,
	}
	w.Write(&poly)
	w.Close()

	return path
}

func TestLoadPolygon(t *testing.T) {
	points := []shp.Point{
		{X: -112.10, Y: 33.40},
		{X: -112.00, Y: 33.40},
		{X: -112.00, Y: 33.50},
		{X: -112.10, Y: 33.50},
		{X: -112.10, Y: 33.40},
	}
	path := writePolygonShapefile(t, points, []int32{0})

	poly, err := LoadPolygon(path)
	require.NoError(t, err)

	coords := poly.Coords()
	require.Len(t, coords, 1)
	require.Len(t, coords[0], 5)
	assert.InDelta(t, -112.10, coords[0][0][0], 1e-9)
	assert.InDelta(t, 33.40, coords[0][0][1], 1e-9)
}

func TestLoadPolygon_MultiRing(t *testing.T) {
	// Outer ring plus a hole, recorded as two parts.
	points := []shp.Point{
		{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}, {X: 0, Y: 0},
		{X: 4, Y: 4}, {X: 6, Y: 4}, {X: 6, Y: 6}, {X: 4, Y: 6}, {X: 4, Y: 4},
	}
	path := writePolygonShapefile(t, points, []int32{0, 5})

	poly, err := LoadPolygon(path)
	require.NoError(t, err)

	coords := poly.Coords()
	require.Len(t, coords, 2)
	assert.Len(t, coords[0], 5)
	assert.Len(t, coords[1], 5)
}

func TestLoadPolygon_MissingFile(t *testing.T) {
	_, err := LoadPolygon(filepath.Join(t.TempDir(), "nope.shp"))
	require.Error(t, err)
}
