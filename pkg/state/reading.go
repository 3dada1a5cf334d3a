package state

import (
	"encoding/json"
	"fmt"
)

// Reading is one sensor slot's published value: the measured distance in
// millimeters (nil when the sensor failed to answer this cycle) and the
// derived temperature accumulator. On the wire it is the 2-element array
// the sculpture controller has always emitted: [distance|null, temperature].
type Reading struct {
	Distance    *int
	Temperature int
}

// NewReading builds a reading with a present distance.
func NewReading(distance, temperature int) Reading {
	return Reading{Distance: &distance, Temperature: temperature}
}

// MissedReading builds a reading for a sensor that failed this cycle. The
// temperature persists the last computed accumulator value.
func MissedReading(temperature int) Reading {
	return Reading{Temperature: temperature}
}

func (r Reading) clone() Reading {
	if r.Distance == nil {
		return r
	}
	d := *r.Distance
	return Reading{Distance: &d, Temperature: r.Temperature}
}

// MarshalJSON encodes the reading as [distance|null, temperature].
func (r Reading) MarshalJSON() ([]byte, error) {
	pair := [2]interface{}{nil, r.Temperature}
	if r.Distance != nil {
		pair[0] = *r.Distance
	}
	return json.Marshal(pair)
}

// UnmarshalJSON decodes the [distance|null, temperature] pair.
func (r *Reading) UnmarshalJSON(data []byte) error {
	var pair [2]*float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("reading must be a [distance, temperature] pair: %w", err)
	}
	if pair[1] == nil {
		return fmt.Errorf("reading is missing a temperature")
	}
	r.Distance = nil
	if pair[0] != nil {
		d := int(*pair[0])
		r.Distance = &d
	}
	r.Temperature = int(*pair[1])
	return nil
}

// DefaultReadings returns the boot-time placeholder slice: no distance,
// temperature zero, one slot per sensor.
func DefaultReadings(sensors int) []Reading {
	return make([]Reading, sensors)
}
