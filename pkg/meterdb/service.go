// MeterDB contains the sensor readings received from the HAN port.
// This database should only be written to by meter_collector
// but can be read by any service.
package meterdb

import (
	"database/sql"
	"embed"
	"sync"

	"github.com/NotCoffee418/dbmigrator"
	"github.com/NotCoffee418/han_reader/pkg/pathing"
	"github.com/sirupsen/logrus"

	_ "modernc.org/sqlite"
)

var log = logrus.WithField("component", "meterdb")

var (
	db   *sql.DB
	once sync.Once
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// InitializeDatabase opens han-readings.db and applies the embedded
// migrations: sensor_readings holds every published value in milli-units,
// aggregate_sensor_hourly the per-sensor avg/min/max/last of each hour.
// Must be called manually on startup.
func InitializeDatabase() error {
	// Create DB before migrations
	db := GetDB()
	if _, err := db.Exec("SELECT 1;"); err != nil {
		return err
	}

	// Apply migrations
	dbmigrator.SetDatabaseType(dbmigrator.SQLite)
	<-dbmigrator.MigrateUpCh(
		db,
		migrationFS,
		"migrations",
	)
	log.Infof("Database ready at %s", pathing.GetMeterDbPath())
	return nil
}

func GetDB() *sql.DB {
	once.Do(func() {
		var err error
		db, err = sql.Open("sqlite", pathing.GetMeterDbPath())
		if err != nil {
			log.Fatal(err)
		}
		// SQLite allows a single writer
		db.SetMaxOpenConns(1)
		// Verify connection
		if err = db.Ping(); err != nil {
			log.Fatal(err)
		}
	})
	return db
}
