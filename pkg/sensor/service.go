package sensor

import (
	"errors"
	"fmt"
	"time"

	"github.com/NotCoffee418/han_reader/pkg/hanutils"
	"github.com/NotCoffee418/han_reader/pkg/obis"
	"github.com/NotCoffee418/han_reader/pkg/types"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "sensor")

func NewObisSensor(name string, code obis.Code, state *State, publishers ...Publisher) *ObisSensor {
	return &ObisSensor{
		Name:             name,
		Code:             code,
		AccuracyDecimals: -1,
		state:            state,
		publishers:       publishers,
		now:              time.Now,
	}
}

// OnValue publishes the value as this sensor's new state. Every publisher is
// tried; their failures are joined into the returned error.
func (s *ObisSensor) OnValue(code obis.Code, value float64, unit string) error {
	if s.Multiplier != 0 {
		value *= s.Multiplier
	}
	if s.Unit != "" {
		unit = s.Unit
	}

	reading := &types.SensorReading{
		Timestamp: s.now().Unix(),
		Sensor:    s.Name,
		ObisCode:  code.String(),
		Value:     hanutils.RoundToDecimals(value, s.AccuracyDecimals),
		Unit:      unit,
	}
	log.Debugf("%s: %v %s", s.Name, reading.Value, reading.Unit)

	if s.state != nil {
		s.state.Set(reading)
	}

	var errs []error
	for _, p := range s.publishers {
		if err := p.Publish(reading); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
		}
	}
	return errors.Join(errs...)
}

func NewState() *State {
	return &State{
		readings: make(map[string]types.SensorReading),
	}
}

func (st *State) Set(reading *types.SensorReading) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.readings[reading.Sensor]; !ok {
		st.order = append(st.order, reading.Sensor)
	}
	st.readings[reading.Sensor] = *reading
}

// Get returns the latest reading of a sensor, or nil if it has none yet.
func (st *State) Get(name string) *types.SensorReading {
	st.mu.RLock()
	defer st.mu.RUnlock()
	r, ok := st.readings[name]
	if !ok {
		return nil
	}
	return &r
}

// All returns the latest readings in the order sensors first reported.
func (st *State) All() []types.SensorReading {
	st.mu.RLock()
	defer st.mu.RUnlock()
	out := make([]types.SensorReading, 0, len(st.order))
	for _, name := range st.order {
		out = append(out, st.readings[name])
	}
	return out
}
