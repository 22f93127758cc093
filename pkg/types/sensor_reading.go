package types

import "encoding/json"

// SensorReading is one published measurement. It is what /latest and /ws
// serve, what goes out over MQTT and what the collector stores.
type SensorReading struct {
	// Unix seconds at which the value was received
	Timestamp int64   `json:"timestamp"`
	Sensor    string  `json:"sensor"`
	ObisCode  string  `json:"obis_code"`
	Value     float64 `json:"value"`
	Unit      string  `json:"unit,omitempty"`
}

func (r *SensorReading) ToJsonBytes() []byte {
	b, err := json.Marshal(r)
	if err != nil {
		return nil
	}
	return b
}

// Returns nil if the message is not a sensor reading
func SensorReadingFromJsonBytes(b []byte) *SensorReading {
	var r SensorReading
	if err := json.Unmarshal(b, &r); err != nil {
		return nil
	}
	if r.Sensor == "" || r.ObisCode == "" {
		return nil
	}
	return &r
}
