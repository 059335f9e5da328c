package scene

import (
	"encoding/json"
	"fmt"
)

// MarshalJSON encodes the default marker as "default" and times as numbers.
func (tc TimeCode) MarshalJSON() ([]byte, error) {
	if tc.IsDefault() {
		return []byte(`"default"`), nil
	}
	return json.Marshal(tc.value)
}

func (tc *TimeCode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != "default" {
			return fmt.Errorf("time code: unexpected string %q", s)
		}
		*tc = Default()
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("time code: %w", err)
	}
	*tc = At(v)
	return nil
}

// MarshalYAML mirrors MarshalJSON.
func (tc TimeCode) MarshalYAML() (any, error) {
	if tc.IsDefault() {
		return "default", nil
	}
	return tc.value, nil
}
