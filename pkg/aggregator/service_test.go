package aggregator

import (
	"os"
	"testing"
	"time"

	"github.com/NotCoffee418/han_reader/pkg/meterdb"
	"github.com/NotCoffee418/han_reader/pkg/types"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "aggregator")
	if err != nil {
		panic(err)
	}
	os.Setenv("HAN_READER_DATA_DIR", dir)
	if err := meterdb.InitializeDatabase(); err != nil {
		panic(err)
	}
	code := m.Run()
	os.RemoveAll(dir)
	os.Exit(code)
}

var now = time.Date(2024, 6, 15, 12, 30, 0, 0, time.UTC)

func resetTables(t *testing.T) {
	t.Helper()
	db := meterdb.GetDB()
	_, err := db.Exec("DELETE FROM sensor_readings")
	require.NoError(t, err)
	_, err = db.Exec("DELETE FROM aggregate_sensor_hourly")
	require.NoError(t, err)
}

func insert(t *testing.T, at time.Time, sensor string, value float64) {
	t.Helper()
	require.NoError(t, meterdb.InsertSensorReading(&types.SensorReading{
		Timestamp: at.Unix(),
		Sensor:    sensor,
		ObisCode:  "1.0.1.7.0.255",
		Value:     value,
		Unit:      "W",
	}))
}

func TestHourBoundaries(t *testing.T) {
	start := roundToHourStart(time.Date(2024, 6, 15, 11, 59, 59, 0, time.UTC))
	require.Equal(t, time.Date(2024, 6, 15, 11, 0, 0, 0, time.UTC).Unix(), start)
	require.Equal(t, time.Date(2024, 6, 15, 11, 59, 59, 0, time.UTC).Unix(), getHourEnd(start))
}

func TestAggregatePreviousHour(t *testing.T) {
	resetTables(t)
	hour := time.Date(2024, 6, 15, 11, 0, 0, 0, time.UTC)
	insert(t, hour.Add(-time.Second), "power", 9999)
	insert(t, hour.Add(10*time.Minute), "power", 1000)
	insert(t, hour.Add(20*time.Minute), "power", 2000)
	insert(t, hour.Add(50*time.Minute), "power", 1500)
	insert(t, hour.Add(30*time.Minute), "voltage", 230.5)
	insert(t, hour.Add(time.Hour), "power", 9999)

	require.NoError(t, aggregateAndCleanupAt(now, 90))

	power, err := meterdb.GetAggregatesSensorHourly("power", 0, now.Unix())
	require.NoError(t, err)
	require.Equal(t, []meterdb.AggregateSensorHourly{{
		HourStart:   hour.Unix(),
		Sensor:      "power",
		ObisCode:    "1.0.1.7.0.255",
		Unit:        "W",
		AvgMilli:    1500000,
		MinMilli:    1000000,
		MaxMilli:    2000000,
		LastMilli:   1500000,
		SampleCount: 3,
	}}, power)

	voltage, err := meterdb.GetAggregatesSensorHourly("voltage", 0, now.Unix())
	require.NoError(t, err)
	require.Len(t, voltage, 1)
	require.Equal(t, int64(230500), voltage[0].AvgMilli)
	require.Equal(t, uint32(1), voltage[0].SampleCount)
}

func TestAggregateEmptyHour(t *testing.T) {
	resetTables(t)
	n, err := aggregateSensorsHourly(roundToHourStart(now))
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestCleanupKeepsUnaggregatedData(t *testing.T) {
	resetTables(t)
	old := now.AddDate(0, 0, -100)
	insert(t, old, "power", 1)

	require.NoError(t, cleanupOldData(now, 90))
	readings, err := meterdb.GetSensorReadings("power", 0, now.Unix())
	require.NoError(t, err)
	require.Len(t, readings, 1)
}

func TestCleanupRemovesExpiredReadings(t *testing.T) {
	resetTables(t)
	old := now.AddDate(0, 0, -100)
	insert(t, old, "power", 1)
	insert(t, now.Add(-45*time.Minute), "power", 2)

	require.NoError(t, aggregateAndCleanupAt(now, 90))

	readings, err := meterdb.GetSensorReadings("power", 0, now.Unix())
	require.NoError(t, err)
	require.Len(t, readings, 1)
	require.Equal(t, int64(2000), readings[0].ValueMilli)
}
