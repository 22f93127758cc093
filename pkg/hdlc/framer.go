package hdlc

import (
	"encoding/binary"
	"fmt"

	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "hdlc")

// Framer splits a continuous byte stream into HDLC frames.
//
// The framer is length aware: a 0x7E inside the frame body is data, and the
// frame is only complete when the number of bytes announced by the frame
// format field has arrived and is followed by a flag. Whenever that contract
// is broken the framer resynchronises on the next flag it has already seen,
// so a frame starting inside a corrupt one is not lost. The header is checked
// as soon as it is complete, so a false start in line noise is abandoned
// after a dozen bytes instead of consuming the length it claims.
//
// A Framer is not safe for concurrent use.
type Framer struct {
	// VerifyChecksums checks the HCS of every header. When off, headers are
	// only checked for plausible addresses and control field.
	VerifyChecksums bool

	maxLength     int
	state         State
	buf           []byte
	declared      int
	headerChecked bool
	// bytes waiting to be (re)processed after a resync
	queue []byte
	stats FramerStats
}

// NewFramer creates a framer that drops frames longer than maxLength bytes.
// A non-positive maxLength selects DefaultMaxFrameLength.
func NewFramer(maxLength int) *Framer {
	if maxLength <= 0 {
		maxLength = DefaultMaxFrameLength
	}
	return &Framer{
		VerifyChecksums: true,
		maxLength:       maxLength,
		state:           StateSeekingStart,
		buf:             make([]byte, 0, 256),
	}
}

// Feed pushes p through the state machine and returns every frame completed
// by it. Returned frames hold the bytes between the delimiting flags and are
// owned by the caller. The result does not depend on how the stream is split
// across calls.
func (f *Framer) Feed(p []byte) [][]byte {
	var frames [][]byte
	for _, b := range p {
		if frame := f.step(b); frame != nil {
			frames = append(frames, frame)
		}
		for len(f.queue) > 0 {
			c := f.queue[0]
			f.queue = f.queue[1:]
			if frame := f.step(c); frame != nil {
				frames = append(frames, frame)
			}
		}
	}
	return frames
}

// Reset drops any partially received frame and starts seeking a new flag.
// Used when the underlying link reconnects.
func (f *Framer) Reset() {
	f.state = StateSeekingStart
	f.buf = f.buf[:0]
	f.declared = 0
	f.headerChecked = false
	f.queue = nil
}

func (f *Framer) State() State {
	return f.state
}

// Buffered returns the number of bytes held for the frame in progress.
func (f *Framer) Buffered() int {
	return len(f.buf)
}

func (f *Framer) Stats() FramerStats {
	return f.stats
}

func (f *Framer) step(b byte) []byte {
	if f.state == StateSeekingStart {
		if b == Flag {
			f.begin()
		} else {
			f.stats.DiscardedBytes++
		}
		return nil
	}

	n := len(f.buf)
	switch {
	case n == 0:
		if b == Flag {
			// Two flags in a row: the first one closed the previous frame.
			return nil
		}
		f.buf = append(f.buf, b)
		if b&0xF0 != frameTypeA {
			f.resync("invalid frame format 0x%02X", b&0xF0)
		}
		return nil

	case n == 1:
		f.buf = append(f.buf, b)
		f.declared = int(f.buf[0]&0x07)<<8 | int(b)
		if f.declared > f.maxLength {
			f.stats.Overflows++
			f.resync("%v: declared %d, maximum %d", ErrFramingOverflow, f.declared, f.maxLength)
		} else if f.declared < minFrameLength {
			f.resync("declared length %d is too short", f.declared)
		}
		return nil

	case n < f.declared:
		f.buf = append(f.buf, b)
		if !f.headerChecked {
			f.checkHeader()
		}
		return nil
	}

	if b != Flag {
		f.buf = append(f.buf, b)
		f.resync("missing end flag after %d bytes", f.declared)
		return nil
	}

	f.state = StateFrameReady
	frame := make([]byte, len(f.buf))
	copy(frame, f.buf)
	f.stats.Frames++
	log.Debugf("HDLC frame received, %d bytes", len(frame))

	// The closing flag may also open the next frame.
	f.begin()
	return frame
}

func (f *Framer) begin() {
	f.state = StateAccumulating
	f.buf = f.buf[:0]
	f.declared = 0
	f.headerChecked = false
}

// checkHeader validates format, addresses and control field once they and
// the two check bytes following them are buffered. Frames without an
// information field carry their FCS there, which covers the same bytes.
func (f *Framer) checkHeader() {
	end, err := headerLength(f.buf, !f.VerifyChecksums)
	if err != nil {
		f.resync("%v", err)
		return
	}
	if end == 0 {
		return
	}
	if end+hcsSize > f.declared {
		f.resync("header of %d bytes does not fit declared length %d", end, f.declared)
		return
	}
	if len(f.buf) < end+hcsSize {
		return
	}

	if f.VerifyChecksums {
		want := binary.LittleEndian.Uint16(f.buf[end:])
		if sum := Checksum(f.buf[:end]); sum != want {
			f.resync("%v: HCS 0x%04X, computed 0x%04X", ErrChecksum, want, sum)
			return
		}
	} else if !plausibleControl(f.buf[end-1]) {
		f.resync("implausible control field 0x%02X", f.buf[end-1])
		return
	}
	f.headerChecked = true
}

// headerLength returns the length of the frame format, address and control
// fields at the start of buf, or 0 while more bytes are needed. With strict
// set a flag byte inside these fields is treated as a false start.
func headerLength(buf []byte, strict bool) (int, error) {
	pos := 2
	for range 2 {
		end := 0
		for i := pos; i < len(buf) && i < pos+maxAddressSize; i++ {
			if strict && buf[i] == Flag {
				return 0, fmt.Errorf("%w: flag inside address at offset %d", ErrMalformedFrame, i)
			}
			if buf[i]&0x01 == 0x01 {
				end = i + 1
				break
			}
		}
		if end == 0 {
			if len(buf) >= pos+maxAddressSize {
				return 0, fmt.Errorf("%w: unterminated address at offset %d", ErrMalformedFrame, pos)
			}
			return 0, nil
		}
		pos = end
	}
	if len(buf) <= pos {
		return 0, nil
	}
	if strict && buf[pos] == Flag {
		return 0, fmt.Errorf("%w: flag in control field", ErrMalformedFrame)
	}
	return pos + 1, nil
}

// plausibleControl accepts I frames, the RR/RNR/REJ supervisory frames and the
// unnumbered frames used by DLMS (UI, SNRM, DISC, UA, DM, FRMR).
func plausibleControl(c byte) bool {
	switch {
	case c&0x01 == 0:
		return true
	case c&0x03 == 0x01:
		return c&0x0C != 0x0C
	}
	switch c &^ 0x10 {
	case 0x03, 0x83, 0x43, 0x63, 0x0F, 0x87:
		return true
	}
	return false
}

// resync abandons the current frame and replays the bytes received after its
// opening flag in seeking state, so the next flag among them starts a new
// frame. Each replay starts strictly later in the stream than the previous
// opening flag, which bounds the work per input byte.
func (f *Framer) resync(format string, args ...any) {
	f.stats.Resyncs++
	log.Debugf("Resynchronising: "+format, args...)

	replay := make([]byte, 0, len(f.buf)+len(f.queue))
	replay = append(replay, f.buf...)
	replay = append(replay, f.queue...)
	f.queue = replay

	f.state = StateSeekingStart
	f.buf = f.buf[:0]
	f.declared = 0
	f.headerChecked = false
}
