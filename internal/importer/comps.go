// Package importer ingests comp pools from MLS exports (XLSX or CSV) and
// market polygons from shapefiles.
package importer

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/appraisal-cli/internal/model"
)

// ReadComps reads a comp export and returns the parsed pool. The format is
// chosen by extension: .xlsx or .csv. The first row must be a header naming
// the columns; unknown columns are ignored and missing ones read as zero.
func ReadComps(path string) ([]model.CompProperty, error) {
	var rows [][]string
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		rows, err = readXLSXRows(path)
	case ".csv":
		rows, err = readCSVRows(path)
	default:
		return nil, eris.Errorf("importer: unsupported extension %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, eris.Errorf("importer: %s has no rows", path)
	}

	header := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		header[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := header["id"]; !ok {
		return nil, eris.Errorf("importer: %s missing id column", path)
	}

	var comps []model.CompProperty
	var skipped int
	for _, row := range rows[1:] {
		comp, err := parseComp(header, row)
		if err != nil {
			skipped++
			continue
		}
		comps = append(comps, comp)
	}

	if skipped > 0 {
		zap.L().Warn("importer: skipped unparseable rows",
			zap.String("path", path),
			zap.Int("skipped", skipped),
			zap.Int("imported", len(comps)),
		)
	}

	return comps, nil
}

func readXLSXRows(path string) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "importer: open xlsx %s", path)
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("importer: %s has no sheets", path)
	}

	var rows [][]string
	for _, row := range f.Sheets[0].Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

func readCSVRows(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "importer: open csv %s", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, eris.Wrapf(err, "importer: read csv %s", path)
	}
	return rows, nil
}

// parseComp maps one export row onto a CompProperty. The id cell is
// mandatory; every other field degrades to its zero value when absent.
func parseComp(header map[string]int, row []string) (model.CompProperty, error) {
	cell := func(name string) string {
		idx, ok := header[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	id := cell("id")
	if id == "" {
		return model.CompProperty{}, eris.New("importer: row missing id")
	}

	saleType := model.SaleTypeSale
	if strings.EqualFold(cell("type"), string(model.SaleTypeListing)) {
		saleType = model.SaleTypeListing
	}

	comp := model.CompProperty{
		ID:              id,
		Address:         cell("address"),
		Type:            saleType,
		SalePrice:       parseFloat(cell("sale_price")),
		SaleDate:        cell("sale_date"),
		DistanceMiles:   parseFloat(cell("distance_miles")),
		MonthsSinceSale: parseFloat(cell("months_since_sale")),
		GLA:             parseFloat(cell("gla")),
		Beds:            parseFloat(cell("beds")),
		Baths:           parseFloat(cell("baths")),
		GarageBays:      parseFloat(cell("garage_bays")),
		LotSqft:         parseFloat(cell("lot_sqft")),
		YearBuilt:       parseInt(cell("year_built")),
		Quality:         parseInt(cell("quality")),
		Condition:       parseInt(cell("condition")),
		View:            parseInt(cell("view")),
		Pool:            parseBool(cell("pool")),
		Location: model.Location{
			Lat: parseFloat(cell("lat")),
			Lon: parseFloat(cell("lon")),
		},
	}
	return comp, nil
}

func parseFloat(s string) float64 {
	if s == "" {
		return 0
	}
	s = strings.ReplaceAll(strings.TrimPrefix(s, "$"), ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func parseInt(s string) int {
	if s == "" {
		return 0
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return int(parseFloat(s))
	}
	return v
}

func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "true", "yes", "y", "1":
		return true
	}
	return false
}
