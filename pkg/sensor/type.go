package sensor

import (
	"sync"
	"time"

	"github.com/NotCoffee418/han_reader/pkg/obis"
	"github.com/NotCoffee418/han_reader/pkg/types"
)

// Publisher forwards readings to the outside world.
type Publisher interface {
	Publish(reading *types.SensorReading) error
}

// PublisherFunc adapts a function to the Publisher interface.
type PublisherFunc func(reading *types.SensorReading) error

func (f PublisherFunc) Publish(reading *types.SensorReading) error {
	return f(reading)
}

// ObisSensor is a listener that turns decoded values into named readings.
type ObisSensor struct {
	Name string
	Code obis.Code
	// Overrides the unit reported by the meter when set
	Unit string
	// Negative keeps full precision
	AccuracyDecimals int
	// Applied before rounding, 0 means 1
	Multiplier float64

	state      *State
	publishers []Publisher
	now        func() time.Time
}

// State holds the latest reading of every sensor.
type State struct {
	mu       sync.RWMutex
	readings map[string]types.SensorReading
	order    []string
}
