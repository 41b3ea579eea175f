package importer

import (
	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
)

// LoadPolygon reads the first polygon record from a shapefile and returns it
// as a geom.Polygon in lon/lat order. Market polygons are drawn as single
// shapes; extra records are ignored with a warning.
func LoadPolygon(shpPath string) (*geom.Polygon, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "importer: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	var poly *geom.Polygon
	var extra int
	for reader.Next() {
		_, shape := reader.Shape()
		sp, ok := shape.(*shp.Polygon)
		if !ok {
			continue
		}
		if poly != nil {
			extra++
			continue
		}
		poly, err = toGeomPolygon(sp)
		if err != nil {
			return nil, err
		}
	}

	if poly == nil {
		return nil, eris.Errorf("importer: %s contains no polygon records", shpPath)
	}
	if extra > 0 {
		zap.L().Warn("importer: shapefile has extra polygon records",
			zap.String("path", shpPath),
			zap.Int("ignored", extra),
		)
	}

	return poly, nil
}

// toGeomPolygon converts a shapefile polygon, splitting its flat point list
// into rings at the recorded part offsets.
func toGeomPolygon(sp *shp.Polygon) (*geom.Polygon, error) {
	parts := append([]int32(nil), sp.Parts...)
	parts = append(parts, sp.NumPoints)

	rings := make([][]geom.Coord, 0, len(sp.Parts))
	for p := 0; p < len(parts)-1; p++ {
		start, end := parts[p], parts[p+1]
		ring := make([]geom.Coord, 0, end-start)
		for i := start; i < end; i++ {
			pt := sp.Points[i]
			ring = append(ring, geom.Coord{pt.X, pt.Y})
		}
		rings = append(rings, ring)
	}

	poly := geom.NewPolygon(geom.XY)
	if _, err := poly.SetCoords(rings); err != nil {
		return nil, eris.Wrap(err, "importer: build polygon")
	}
	return poly, nil
}
