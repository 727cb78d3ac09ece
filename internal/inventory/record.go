// Package inventory reads the stock inventory, aggregates it into sticks by
// length and caches the result for a fixed time.
package inventory

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/piwi3910/SubTrack/internal/model"
)

// Field is one inventory attribute. The inventory export wraps some values as
// {"#text": value, "@_UOM": unit}; Field accepts that form as well as bare
// strings and numbers.
type Field struct {
	Text  string
	UOM   string
	Valid bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *Field) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	*f = Field{}
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		f.Text, f.Valid = s, true
	case '{':
		var w struct {
			Text json.RawMessage `json:"#text"`
			UOM  json.RawMessage `json:"@_UOM"`
		}
		if err := json.Unmarshal(b, &w); err != nil {
			return err
		}
		if len(w.Text) > 0 {
			if err := f.UnmarshalJSON(w.Text); err != nil {
				return err
			}
		}
		f.UOM = rawString(w.UOM)
	case '[':
		var list []Field
		if err := json.Unmarshal(b, &list); err != nil {
			return err
		}
		for _, v := range list {
			if v.Valid {
				*f = v
				break
			}
		}
	default:
		f.Text, f.Valid = string(b), true
	}
	return nil
}

// MarshalJSON writes the wrapped form when a unit is present.
func (f Field) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	if f.UOM == "" {
		return json.Marshal(f.Text)
	}
	return json.Marshal(map[string]string{"#text": f.Text, "@_UOM": f.UOM})
}

// String returns the trimmed text of the field.
func (f Field) String() string {
	return strings.TrimSpace(f.Text)
}

func rawString(b json.RawMessage) string {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return string(b)
}

// Record is one raw stock item as returned by the inventory source.
type Record struct {
	Shape      Field `json:"Shape"`
	Dimensions Field `json:"Dimensions"`
	Grade      Field `json:"Grade"`
	Length     Field `json:"Length"`
	Weight     Field `json:"Weight"`
}

// LengthInches converts the record length to inches, honoring the unit
// attribute when it names one.
func (r Record) LengthInches() (float64, bool) {
	if !r.Length.Valid {
		return 0, false
	}
	v, ok := model.ParseLengthString(r.Length.Text)
	if !ok {
		return 0, false
	}
	if strings.Contains(r.Length.Text, "'") {
		return v, true
	}
	switch strings.ToLower(r.Length.UOM) {
	case "ft", "feet", "foot":
		v *= 12
	case "mm":
		v /= 25.4
	case "cm":
		v /= 2.54
	case "m":
		v *= 39.3701
	}
	return v, true
}

// WeightLbs converts the record weight to pounds. Weights are kilograms
// unless the unit attribute says otherwise. A missing weight is nil; zero
// is kept as zero.
func (r Record) WeightLbs() *float64 {
	if !r.Weight.Valid {
		return nil
	}
	v, ok := model.ParseNumber(r.Weight.Text)
	if !ok {
		return nil
	}
	switch strings.ToLower(r.Weight.UOM) {
	case "lb", "lbs", "#":
	default:
		v *= model.LbsPerKg
	}
	return &v
}
