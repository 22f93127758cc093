// Responsible for storing the sensor readings published by han_reader.
// Depends on the han_reader API being online.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/NotCoffee418/han_reader/pkg/aggregator"
	"github.com/NotCoffee418/han_reader/pkg/config"
	"github.com/NotCoffee418/han_reader/pkg/interpreter"
	"github.com/NotCoffee418/han_reader/pkg/meterdb"
	"github.com/NotCoffee418/han_reader/pkg/pathing"
	"github.com/NotCoffee418/han_reader/pkg/types"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "meter_collector")

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if err := pathing.EnsureDirectories(); err != nil {
		log.Fatalf("Failed to create directories: %v", err)
	}
	if err := config.LoadMeterCollectorConfig(); err != nil {
		log.Fatalf("Failed to load meter collector config: %v", err)
	}
	cfg := config.ActiveMeterCollectorConfig

	// Initialize database
	if err := meterdb.InitializeDatabase(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go runAggregation(ctx, cfg.RetentionDays)

	// Subscribe to websocket with revive
	interpreter.StartListener(ctx, cfg.HANReaderHost, cfg.TLSEnabled, handleSensorReading)
}

// Handle sensor reading data
func handleSensorReading(reading *types.SensorReading) {
	if err := meterdb.InsertSensorReading(reading); err != nil {
		log.WithError(err).Errorf("Failed to store reading of %s", reading.Sensor)
	}
}

// Aggregate the previous hour shortly after every full hour
func runAggregation(ctx context.Context, retentionDays int) {
	for {
		now := time.Now()
		next := now.Truncate(time.Hour).Add(time.Hour + time.Minute)
		select {
		case <-ctx.Done():
			return
		case <-time.After(next.Sub(now)):
		}
		if err := aggregator.AggregateAndCleanup(retentionDays); err != nil {
			log.WithError(err).Error("Aggregation failed")
		}
	}
}
