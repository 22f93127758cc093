package han

import (
	"fmt"
	"reflect"
	"sync/atomic"

	"github.com/NotCoffee418/han_reader/pkg/dlms"
	"github.com/NotCoffee418/han_reader/pkg/metrics"
	"github.com/NotCoffee418/han_reader/pkg/obis"
)

// Dispatcher maps OBIS codes to the listeners interested in them.
//
// Registration happens during setup; afterwards the registry is only read by
// Dispatch, which runs on the scheduler goroutine.
type Dispatcher struct {
	listeners map[obis.Code][]Listener
	order     []obis.Code
	faults    atomic.Uint64
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		listeners: make(map[obis.Code][]Listener),
	}
}

// Register adds l to the listeners of code. Registering the same listener for
// the same code again has no effect; nil listeners are ignored.
func (d *Dispatcher) Register(code obis.Code, l Listener) {
	if l == nil {
		return
	}
	existing, known := d.listeners[code]
	for _, other := range existing {
		if sameListener(other, l) {
			return
		}
	}
	if !known {
		d.order = append(d.order, code)
	}
	d.listeners[code] = append(existing, l)
}

// Dispatch hands rec to every listener registered for its code, in
// registration order, and returns how many listeners were invoked. A listener
// that fails or panics is logged and counted; the others still run.
func (d *Dispatcher) Dispatch(rec dlms.Record) int {
	listeners := d.listeners[rec.Code]
	for _, l := range listeners {
		if err := d.invoke(l, rec); err != nil {
			d.faults.Add(1)
			metrics.ListenerFaults.Inc()
			log.WithError(err).Warnf("Listener for %s failed", rec.Code)
		}
	}
	return len(listeners)
}

// Codes returns the subscribed codes in the order they were first registered.
func (d *Dispatcher) Codes() []obis.Code {
	return append([]obis.Code(nil), d.order...)
}

// Len returns the number of listeners registered for code.
func (d *Dispatcher) Len(code obis.Code) int {
	return len(d.listeners[code])
}

// Faults returns the number of failed listener invocations so far.
func (d *Dispatcher) Faults() uint64 {
	return d.faults.Load()
}

func (d *Dispatcher) invoke(l Listener, rec dlms.Record) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener panicked: %v", r)
		}
	}()
	return l.OnValue(rec.Code, rec.Value, rec.Unit)
}

// Listeners that are not comparable (e.g. ListenerFunc, or a struct with an
// interface field holding a func) are never considered equal, comparing them
// with == would panic.
func sameListener(a, b Listener) bool {
	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}
	if !reflect.ValueOf(a).Comparable() || !reflect.ValueOf(b).Comparable() {
		return false
	}
	return a == b
}
