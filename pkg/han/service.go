package han

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/NotCoffee418/han_reader/pkg/dlms"
	"github.com/NotCoffee418/han_reader/pkg/hdlc"
	"github.com/NotCoffee418/han_reader/pkg/metrics"
	"github.com/NotCoffee418/han_reader/pkg/obis"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "han")

// Decoder is the HAN poll step: it drains the bytes available on the link,
// frames them, decodes complete frames and dispatches the records.
//
// Poll must be called from a single goroutine. Reset and Stats may be called
// from anywhere.
type Decoder struct {
	source          ByteSource
	framer          *hdlc.Framer
	dlms            *dlms.Decoder
	dispatcher      *Dispatcher
	maxBytesPerPoll int
	readBuf         []byte

	resetPending atomic.Bool
	framerSeen   hdlc.FramerStats

	bytesRead      atomic.Uint64
	framesReceived atomic.Uint64
	framesDecoded  atomic.Uint64
	framesDropped  atomic.Uint64
	resyncs        atomic.Uint64
	overflows      atomic.Uint64
	records        atomic.Uint64
	resets         atomic.Uint64
}

// NewDecoder wires a link to a dispatcher. A nil dispatcher gets a fresh one.
func NewDecoder(source ByteSource, dispatcher *Dispatcher, opts Options) *Decoder {
	if dispatcher == nil {
		dispatcher = NewDispatcher()
	}
	if opts.MaxBytesPerPoll <= 0 {
		opts.MaxBytesPerPoll = DefaultMaxBytesPerPoll
	}
	framer := hdlc.NewFramer(opts.MaxFrameLength)
	framer.VerifyChecksums = opts.VerifyChecksums
	return &Decoder{
		source:          source,
		framer:          framer,
		dlms:            dlms.NewDecoder(opts.VerifyChecksums, opts.Location),
		dispatcher:      dispatcher,
		maxBytesPerPoll: opts.MaxBytesPerPoll,
		readBuf:         make([]byte, 0, opts.MaxBytesPerPoll),
	}
}

// RegisterListener subscribes l to values of code.
func (d *Decoder) RegisterListener(code obis.Code, l Listener) {
	d.dispatcher.Register(code, l)
}

// SetScalerUnit declares scaling for a code whose frames carry none.
func (d *Decoder) SetScalerUnit(code obis.Code, su dlms.ScalerUnit) {
	d.dlms.SetDefault(code, su)
}

func (d *Decoder) Dispatcher() *Dispatcher {
	return d.dispatcher
}

// Reset discards the partially received frame. It takes effect at the start
// of the next Poll, so it is safe to call from a link reconnect callback.
func (d *Decoder) Reset() {
	d.resetPending.Store(true)
}

// Poll performs one bounded unit of work and never blocks: it reads at most
// the bytes available when it was called (capped at MaxBytesPerPoll), and
// decodes and dispatches the frames they complete.
func (d *Decoder) Poll() {
	if d.resetPending.Swap(false) {
		d.framer.Reset()
		d.resets.Add(1)
		log.Debug("Framer reset, partial frame discarded")
	}

	n := d.source.BytesAvailable()
	if n <= 0 {
		return
	}
	if n > d.maxBytesPerPoll {
		n = d.maxBytesPerPoll
	}

	buf := d.readBuf[:0]
	for i := 0; i < n; i++ {
		b, err := d.source.ReadByte()
		if err != nil {
			// Drained, whatever the link says. Pick up the rest next tick.
			break
		}
		buf = append(buf, b)
	}
	d.readBuf = buf
	d.bytesRead.Add(uint64(len(buf)))

	frames := d.framer.Feed(buf)
	d.syncFramerStats()

	for _, raw := range frames {
		d.handleFrame(raw)
	}
}

// Stats returns a snapshot of the counters.
func (d *Decoder) Stats() Stats {
	return Stats{
		BytesRead:      d.bytesRead.Load(),
		FramesReceived: d.framesReceived.Load(),
		FramesDecoded:  d.framesDecoded.Load(),
		FramesDropped:  d.framesDropped.Load(),
		Resyncs:        d.resyncs.Load(),
		Overflows:      d.overflows.Load(),
		Records:        d.records.Load(),
		ListenerFaults: d.dispatcher.Faults(),
		Resets:         d.resets.Load(),
	}
}

func (d *Decoder) handleFrame(raw []byte) {
	d.framesReceived.Add(1)
	metrics.FramesReceived.Inc()

	records, err := d.decode(raw)
	if err != nil {
		d.framesDropped.Add(1)
		metrics.FramesDropped.WithLabelValues(dropReason(err)).Inc()
		log.WithError(err).Debugf("Dropping %d byte frame", len(raw))
		return
	}
	d.framesDecoded.Add(1)
	log.Debugf("Decoded frame with %d records", len(records))

	for _, rec := range records {
		d.records.Add(1)
		metrics.RecordsDispatched.Inc()
		d.dispatcher.Dispatch(rec)
	}
}

func (d *Decoder) decode(raw []byte) (records []dlms.Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			records, err = nil, fmt.Errorf("%w: decoder panic: %v", dlms.ErrMalformed, r)
		}
	}()
	return d.dlms.DecodeFrame(raw)
}

func (d *Decoder) syncFramerStats() {
	s := d.framer.Stats()
	if delta := s.Resyncs - d.framerSeen.Resyncs; delta > 0 {
		d.resyncs.Add(delta)
		metrics.FramerResyncs.Add(float64(delta))
	}
	if delta := s.Overflows - d.framerSeen.Overflows; delta > 0 {
		d.overflows.Add(delta)
		metrics.FramerOverflows.Add(float64(delta))
	}
	d.framerSeen = s
}

func dropReason(err error) string {
	switch {
	case errors.Is(err, hdlc.ErrChecksum):
		return metrics.DropChecksum
	case errors.Is(err, dlms.ErrUnsupportedPDU):
		return metrics.DropUnsupported
	default:
		return metrics.DropMalformed
	}
}
