package meterdb

import (
	"github.com/NotCoffee418/han_reader/pkg/hanutils"
	"github.com/NotCoffee418/han_reader/pkg/types"
)

func InsertSensorReading(reading *types.SensorReading) error {
	db := GetDB()

	_, err := db.Exec(
		"INSERT INTO sensor_readings (timestamp, sensor, obis_code, value_milli, unit) "+
			"VALUES (?, ?, ?, ?, ?)",
		reading.Timestamp,
		reading.Sensor,
		reading.ObisCode,
		hanutils.ToMilli(reading.Value),
		reading.Unit,
	)
	return err
}

func UpsertAggregateSensorHourly(agg *AggregateSensorHourly) error {
	db := GetDB()

	_, err := db.Exec(
		"INSERT OR REPLACE INTO aggregate_sensor_hourly "+
			"(hour_start, sensor, obis_code, unit, avg_milli, min_milli, max_milli, last_milli, sample_count) "+
			"VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		agg.HourStart,
		agg.Sensor,
		agg.ObisCode,
		agg.Unit,
		agg.AvgMilli,
		agg.MinMilli,
		agg.MaxMilli,
		agg.LastMilli,
		agg.SampleCount,
	)
	return err
}

// GetSensorReadings returns the raw readings of a sensor in [from, to], oldest first.
func GetSensorReadings(sensor string, from, to int64) ([]MeterDbSensorReading, error) {
	rows, err := GetDB().Query(
		"SELECT timestamp, sensor, obis_code, value_milli, unit FROM sensor_readings "+
			"WHERE sensor = ? AND timestamp >= ? AND timestamp <= ? ORDER BY timestamp",
		sensor, from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MeterDbSensorReading
	for rows.Next() {
		var r MeterDbSensorReading
		if err := rows.Scan(&r.Timestamp, &r.Sensor, &r.ObisCode, &r.ValueMilli, &r.Unit); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetAggregatesSensorHourly returns the hourly aggregates of a sensor in [from, to].
func GetAggregatesSensorHourly(sensor string, from, to int64) ([]AggregateSensorHourly, error) {
	rows, err := GetDB().Query(
		"SELECT hour_start, sensor, obis_code, unit, avg_milli, min_milli, max_milli, last_milli, sample_count "+
			"FROM aggregate_sensor_hourly WHERE sensor = ? AND hour_start >= ? AND hour_start <= ? ORDER BY hour_start",
		sensor, from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AggregateSensorHourly
	for rows.Next() {
		var a AggregateSensorHourly
		if err := rows.Scan(&a.HourStart, &a.Sensor, &a.ObisCode, &a.Unit,
			&a.AvgMilli, &a.MinMilli, &a.MaxMilli, &a.LastMilli, &a.SampleCount); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
