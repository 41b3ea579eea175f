package scorer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/appraisal-cli/internal/model"
)

func validWeights() model.WeightSet {
	return model.WeightSet{Distance: 8, Recency: 8, GLA: 7, Quality: 6, Condition: 6}
}

func validConstraints() model.ConstraintSet {
	return model.ConstraintSet{
		GLATolerancePct:    10,
		DistanceCapMiles:   0.5,
		MaxMonthsSinceSale: 12,
		Mode:               model.ConstraintModeFlag,
	}
}

func TestValidateWeights(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*model.WeightSet)
		wantErr string
	}{
		{"valid", func(w *model.WeightSet) {}, ""},
		{"negative distance", func(w *model.WeightSet) { w.Distance = -1 }, "distance weight"},
		{"over max gla", func(w *model.WeightSet) { w.GLA = 11 }, "gla weight"},
		{"all zero", func(w *model.WeightSet) { *w = model.WeightSet{} }, "weight sum"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := validWeights()
			tt.mutate(&w)
			errs := ValidateWeights(w)
			if tt.wantErr == "" {
				assert.Empty(t, errs)
				return
			}
			assert.NotEmpty(t, errs)
			assert.Contains(t, strings.Join(errs, "; "), tt.wantErr)
		})
	}
}

func TestValidateConstraints(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*model.ConstraintSet)
		valid  bool
	}{
		{"valid flag mode", func(c *model.ConstraintSet) {}, true},
		{"valid exclude mode", func(c *model.ConstraintSet) { c.Mode = model.ConstraintModeExclude }, true},
		{"zero distance cap", func(c *model.ConstraintSet) { c.DistanceCapMiles = 0 }, false},
		{"negative gla tolerance", func(c *model.ConstraintSet) { c.GLATolerancePct = -5 }, false},
		{"zero recency cap", func(c *model.ConstraintSet) { c.MaxMonthsSinceSale = 0 }, false},
		{"bad mode", func(c *model.ConstraintSet) { c.Mode = "clamp" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConstraints()
			tt.mutate(&c)
			errs := ValidateConstraints(c)
			if tt.valid {
				assert.Empty(t, errs)
			} else {
				assert.NotEmpty(t, errs)
			}
		})
	}
}

func TestValidate_Concatenates(t *testing.T) {
	w := validWeights()
	w.Recency = -2
	c := validConstraints()
	c.DistanceCapMiles = 0

	errs := Validate(w, c)
	assert.Len(t, errs, 2)
}
