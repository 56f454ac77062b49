package lighting

import "encoding/json"

// Recipe holds per-channel light intensity percentages in [0,100].
// A missing channel means 0.
type Recipe struct {
	CW float64 `json:"cw"` // Cool white
	WW float64 `json:"ww"` // Warm white
	BL float64 `json:"bl"` // Blue
	RD float64 `json:"rd"` // Red
}

// recipeAliases mirrors the key variants that appear in imported plan
// documents. Lowercase short names are canonical; uppercase and long-form
// colour names are accepted for compatibility with older recipe exports.
type recipeAliases struct {
	CW      *float64 `json:"cw"`
	CWUpper *float64 `json:"CW"`
	WW      *float64 `json:"ww"`
	WWUpper *float64 `json:"WW"`
	BL      *float64 `json:"bl"`
	BLUpper *float64 `json:"BL"`
	Blue    *float64 `json:"blue"`
	RD      *float64 `json:"rd"`
	RDUpper *float64 `json:"RD"`
	Red     *float64 `json:"red"`
}

// UnmarshalJSON decodes a recipe accepting the cw/CW, ww/WW, bl/BL/blue and
// rd/RD/red key aliases. The first present alias wins, in that order.
func (r *Recipe) UnmarshalJSON(data []byte) error {
	var aux recipeAliases
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	r.CW = firstChannel(aux.CW, aux.CWUpper)
	r.WW = firstChannel(aux.WW, aux.WWUpper)
	r.BL = firstChannel(aux.BL, aux.BLUpper, aux.Blue)
	r.RD = firstChannel(aux.RD, aux.RDUpper, aux.Red)
	return nil
}

// firstChannel returns the first non-nil value, or 0 when every alias is absent.
func firstChannel(values ...*float64) float64 {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return 0
}
