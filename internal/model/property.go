// Package model defines the plain data records exchanged by the valuation
// pipeline. Persistence and transport are owned by collaborators; nothing in
// this package performs I/O.
package model

import "time"

// Location is a WGS84 point.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Subject is the property being appraised. Immutable for the duration of a
// valuation run.
type Subject struct {
	OrderID    string   `json:"order_id"`
	Address    string   `json:"address"`
	GLA        float64  `json:"gla"` // gross living area, sqft
	Beds       float64  `json:"beds"`
	Baths      float64  `json:"baths"`
	GarageBays float64  `json:"garage_bays"`
	LotSqft    float64  `json:"lot_sqft"`
	YearBuilt  int      `json:"year_built"`
	Quality    int      `json:"quality"`   // 1-5
	Condition  int      `json:"condition"` // 1-5
	View       int      `json:"view"`      // 0-3
	Pool       bool     `json:"pool"`
	Location   Location `json:"location"`
}

// SaleType distinguishes closed sales from active listings in the comp pool.
type SaleType string

const (
	SaleTypeSale    SaleType = "sale"
	SaleTypeListing SaleType = "listing"
)

// CompProperty is a candidate comparable. Attribute fields mirror Subject so
// the adjustment applicator can compute per-attribute deltas. The selection
// flags (Locked, IsPrimary, PrimaryIndex) are mutated only by the selection
// manager; derived valuation lines live on CompAdjustmentLine, not here.
type CompProperty struct {
	ID              string   `json:"id"`
	Address         string   `json:"address"`
	Type            SaleType `json:"type"`
	SalePrice       float64  `json:"sale_price"`
	SaleDate        string   `json:"sale_date,omitempty"` // ISO date; empty for listings
	DistanceMiles   float64  `json:"distance_miles"`
	MonthsSinceSale float64  `json:"months_since_sale"`
	GLA             float64  `json:"gla"`
	Beds            float64  `json:"beds"`
	Baths           float64  `json:"baths"`
	GarageBays      float64  `json:"garage_bays"`
	LotSqft         float64  `json:"lot_sqft"`
	YearBuilt       int      `json:"year_built"`
	Quality         int      `json:"quality"`
	Condition       int      `json:"condition"`
	View            int      `json:"view"`
	Pool            bool     `json:"pool"`
	Location        Location `json:"location"`

	IsInsidePolygon *bool `json:"is_inside_polygon,omitempty"`
	Locked          bool  `json:"locked,omitempty"`
	IsPrimary       bool  `json:"is_primary,omitempty"`
	PrimaryIndex    *int  `json:"primary_index,omitempty"` // 0-2 when primary
}

// Age returns the comp's age in years as of the given effective date.
func (c CompProperty) Age(effective time.Time) float64 {
	if c.YearBuilt <= 0 {
		return 0
	}
	return float64(effective.Year() - c.YearBuilt)
}

// SubjectAge returns the subject's age in years as of the given effective date.
func (s Subject) SubjectAge(effective time.Time) float64 {
	if s.YearBuilt <= 0 {
		return 0
	}
	return float64(effective.Year() - s.YearBuilt)
}
