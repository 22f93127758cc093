package aggregator

import (
	"database/sql"
	"math"
	"time"

	"github.com/NotCoffee418/han_reader/pkg/meterdb"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "aggregator")

// roundToHourStart returns the Unix timestamp of the start of the hour for the given time
func roundToHourStart(t time.Time) int64 {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, time.UTC).Unix()
}

// getHourEnd returns the Unix timestamp of the last second of the hour (next hour start - 1)
func getHourEnd(hourStart int64) int64 {
	return time.Unix(hourStart, 0).Add(time.Hour).Unix() - 1
}

// aggregateSensorsHourly aggregates the readings of every sensor for a specific hour
func aggregateSensorsHourly(hourStart int64) (int, error) {
	db := meterdb.GetDB()
	hourEnd := getHourEnd(hourStart)

	// Last is the latest reading in the hour, insertion order breaks ties.
	query := `
		SELECT
			r.sensor,
			r.obis_code,
			r.unit,
			AVG(r.value_milli),
			MIN(r.value_milli),
			MAX(r.value_milli),
			(SELECT l.value_milli FROM sensor_readings l
				WHERE l.sensor = r.sensor AND l.timestamp >= ? AND l.timestamp <= ?
				ORDER BY l.timestamp DESC, l.rowid DESC LIMIT 1),
			COUNT(*)
		FROM sensor_readings r
		WHERE r.timestamp >= ? AND r.timestamp <= ?
		GROUP BY r.sensor
	`

	rows, err := db.Query(query, hourStart, hourEnd, hourStart, hourEnd)
	if err != nil {
		return 0, err
	}

	var aggregates []meterdb.AggregateSensorHourly
	for rows.Next() {
		agg := meterdb.AggregateSensorHourly{HourStart: hourStart}
		var avg float64
		if err := rows.Scan(&agg.Sensor, &agg.ObisCode, &agg.Unit, &avg,
			&agg.MinMilli, &agg.MaxMilli, &agg.LastMilli, &agg.SampleCount); err != nil {
			rows.Close()
			return 0, err
		}
		agg.AvgMilli = int64(math.Round(avg))
		aggregates = append(aggregates, agg)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for i := range aggregates {
		if err := meterdb.UpsertAggregateSensorHourly(&aggregates[i]); err != nil {
			return 0, err
		}
	}
	return len(aggregates), nil
}

// cleanupOldData removes raw readings older than the retention period if we have aggregated them
func cleanupOldData(now time.Time, retentionDays int) error {
	db := meterdb.GetDB()

	cutoff := now.UTC().AddDate(0, 0, -retentionDays)
	cutoffTimestamp := cutoff.Unix()

	// Only clean up what is covered by an aggregate
	var lastAggregateHour sql.NullInt64
	if err := db.QueryRow("SELECT MAX(hour_start) FROM aggregate_sensor_hourly").Scan(&lastAggregateHour); err != nil {
		return err
	}
	if !lastAggregateHour.Valid {
		// No aggregates yet, don't clean up
		return nil
	}
	if end := getHourEnd(lastAggregateHour.Int64) + 1; end < cutoffTimestamp {
		cutoffTimestamp = end
	}

	res, err := db.Exec("DELETE FROM sensor_readings WHERE timestamp < ?", cutoffTimestamp)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		log.Infof("Cleaned up %d readings older than %s", n, time.Unix(cutoffTimestamp, 0).UTC().Format(time.RFC3339))
	}
	return nil
}

// AggregateAndCleanup performs all aggregation and cleanup tasks
// This is the main function to call for data aggregation
func AggregateAndCleanup(retentionDays int) error {
	return aggregateAndCleanupAt(time.Now(), retentionDays)
}

func aggregateAndCleanupAt(now time.Time, retentionDays int) error {
	// Aggregate the previous hour (current hour is still ongoing)
	hourStart := roundToHourStart(now.Add(-time.Hour))

	log.Infof("Aggregating data for hour starting at %s", time.Unix(hourStart, 0).UTC().Format(time.RFC3339))

	n, err := aggregateSensorsHourly(hourStart)
	if err != nil {
		log.WithError(err).Error("Error aggregating hourly sensor readings")
		return err
	}

	if err := cleanupOldData(now, retentionDays); err != nil {
		log.WithError(err).Error("Error cleaning up old data")
		return err
	}

	log.Infof("Aggregated %d sensors", n)
	return nil
}
