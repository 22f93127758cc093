package meterdb

// Values are stored as integer thousandths, see hanutils.ToMilli.
type MeterDbSensorReading struct {
	Timestamp  int64  `db:"timestamp"`
	Sensor     string `db:"sensor"`
	ObisCode   string `db:"obis_code"`
	ValueMilli int64  `db:"value_milli"`
	Unit       string `db:"unit"`
}

// Aggregate models - one row per sensor per hour
type AggregateSensorHourly struct {
	HourStart   int64  `db:"hour_start"`
	Sensor      string `db:"sensor"`
	ObisCode    string `db:"obis_code"`
	Unit        string `db:"unit"`
	AvgMilli    int64  `db:"avg_milli"`
	MinMilli    int64  `db:"min_milli"`
	MaxMilli    int64  `db:"max_milli"`
	LastMilli   int64  `db:"last_milli"`
	SampleCount uint32 `db:"sample_count"`
}
