package hdlc

import "errors"

const (
	Flag byte = 0x7E

	// DefaultMaxFrameLength matches the 2 KiB receive buffer of the meter side.
	// The 11 bit length field cannot describe anything larger.
	DefaultMaxFrameLength = 2048

	// format(2) + dest(1) + src(1) + control(1) + FCS(2)
	minFrameLength = 7
	frameTypeA     = 0xA0
	fcsSize        = 2
	hcsSize        = 2
	maxAddressSize = 4
)

var (
	ErrMalformedFrame  = errors.New("malformed HDLC frame")
	ErrChecksum        = errors.New("HDLC checksum mismatch")
	ErrFramingOverflow = errors.New("HDLC frame exceeds maximum length")
)

// State of the framer's receive state machine.
type State uint8

const (
	StateSeekingStart State = iota
	StateAccumulating
	StateFrameReady
)

func (s State) String() string {
	switch s {
	case StateSeekingStart:
		return "seeking_start"
	case StateAccumulating:
		return "accumulating"
	case StateFrameReady:
		return "frame_ready"
	default:
		return "unknown"
	}
}

// FramerStats are cumulative counters since the framer was created.
type FramerStats struct {
	Frames         uint64
	Resyncs        uint64
	Overflows      uint64
	DiscardedBytes uint64
}

// Frame is a decoded HDLC MAC frame (IEC 62056-46 frame format type 3).
type Frame struct {
	Segmented   bool
	Length      int
	Destination []byte
	Source      []byte
	Control     byte
	HCS         uint16
	FCS         uint16
	// Information is the MAC SDU, i.e. the LLC PDU. Empty for frames
	// without an information field.
	Information []byte
}
