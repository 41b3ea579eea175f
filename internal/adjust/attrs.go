// Package adjust computes per-attribute dollar adjustments from three
// independent engines, blends them into a chosen value per attribute, and
// applies the chosen grid to comps to produce indicated values.
package adjust

import (
	"time"

	"github.com/sells-group/appraisal-cli/internal/model"
)

// attrUnit names the dollar unit each attribute's adjustment is expressed in.
var attrUnit = map[model.AttrKey]string{
	model.AttrGLA:       "$/sqft",
	model.AttrBeds:      "$/bed",
	model.AttrBaths:     "$/bath",
	model.AttrGarage:    "$/bay",
	model.AttrLotSize:   "$/sqft",
	model.AttrAge:       "$/yr",
	model.AttrQuality:   "$/pt",
	model.AttrCondition: "$/pt",
	model.AttrView:      "$/pt",
	model.AttrPool:      "$",
}

// compAttr extracts the numeric value of an attribute from a comp. Booleans
// map to 0/1 so every engine can treat attributes uniformly.
func compAttr(c model.CompProperty, key model.AttrKey, effective time.Time) float64 {
	switch key {
	case model.AttrGLA:
		return c.GLA
	case model.AttrBeds:
		return c.Beds
	case model.AttrBaths:
		return c.Baths
	case model.AttrGarage:
		return c.GarageBays
	case model.AttrLotSize:
		return c.LotSqft
	case model.AttrAge:
		return c.Age(effective)
	case model.AttrQuality:
		return float64(c.Quality)
	case model.AttrCondition:
		return float64(c.Condition)
	case model.AttrView:
		return float64(c.View)
	case model.AttrPool:
		if c.Pool {
			return 1
		}
		return 0
	}
	return 0
}

// subjectAttr extracts the numeric value of an attribute from the subject.
func subjectAttr(s model.Subject, key model.AttrKey, effective time.Time) float64 {
	switch key {
	case model.AttrGLA:
		return s.GLA
	case model.AttrBeds:
		return s.Beds
	case model.AttrBaths:
		return s.Baths
	case model.AttrGarage:
		return s.GarageBays
	case model.AttrLotSize:
		return s.LotSqft
	case model.AttrAge:
		return s.SubjectAge(effective)
	case model.AttrQuality:
		return float64(s.Quality)
	case model.AttrCondition:
		return float64(s.Condition)
	case model.AttrView:
		return float64(s.View)
	case model.AttrPool:
		if s.Pool {
			return 1
		}
		return 0
	}
	return 0
}
