package han

import (
	"time"

	"github.com/NotCoffee418/han_reader/pkg/obis"
)

// Listener receives values decoded for the OBIS code it was registered with.
// unit is empty when neither the frame nor the configuration declared one.
type Listener interface {
	OnValue(code obis.Code, value float64, unit string) error
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(code obis.Code, value float64, unit string) error

func (f ListenerFunc) OnValue(code obis.Code, value float64, unit string) error {
	return f(code, value, unit)
}

// ByteSource is the non-blocking read side of the meter link.
// ReadByte returns port_reader.ErrNoData (or any error) when nothing is buffered.
type ByteSource interface {
	BytesAvailable() int
	ReadByte() (byte, error)
}

// Pollable is anything the scheduler drives once per tick.
type Pollable interface {
	Poll()
}

// Options configure a Decoder. Zero values select the defaults.
type Options struct {
	MaxFrameLength  int
	MaxBytesPerPoll int
	VerifyChecksums bool
	Location        *time.Location
}

const (
	DefaultMaxBytesPerPoll = 4096
	// About 60 ticks per second.
	DefaultPollInterval = 16 * time.Millisecond
)

// Stats is a snapshot of the decoder counters.
type Stats struct {
	BytesRead      uint64 `json:"bytes_read"`
	FramesReceived uint64 `json:"frames_received"`
	FramesDecoded  uint64 `json:"frames_decoded"`
	FramesDropped  uint64 `json:"frames_dropped"`
	Resyncs        uint64 `json:"resyncs"`
	Overflows      uint64 `json:"overflows"`
	Records        uint64 `json:"records"`
	ListenerFaults uint64 `json:"listener_faults"`
	Resets         uint64 `json:"resets"`
}
