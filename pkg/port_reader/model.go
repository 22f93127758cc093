package port_reader

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrNoData            = errors.New("no data available")
	ErrBridgeUnreachable = errors.New("serial bridge unreachable")
)

const (
	DefaultQueueSize = 8 * 1024
	DefaultBaudrate  = 2400

	tcpPrefix      = "tcp://"
	baseRetryDelay = 2 * time.Second
	maxRetryDelay  = 60 * time.Second

	bridgeProbeTimeout = 2 * time.Second
	bridgeDialTimeout  = 10 * time.Second
)

// Outcome of pinging a serial bridge before dialing it.
type probeResult uint8

const (
	probeAnswered probeResult = iota
	probeSilent
	// ICMP sockets are not permitted or the host does not resolve
	probeUnavailable
)

// byteQueue is the hand-over point between the blocking port reader and the
// non-blocking consumer. When full, the oldest bytes are dropped: the framer
// resynchronises on lost data, while stalling the port would lose it anyway.
type byteQueue struct {
	mu       sync.Mutex
	buf      []byte
	capacity int
	dropped  atomic.Uint64
}

// SerialLink reads a UART (or a serial-over-TCP bridge) in the background and
// exposes the received bytes through the non-blocking ByteSource contract.
type SerialLink struct {
	byteQueue

	port       string
	baudrate   uint
	serialPort io.ReadWriteCloser
	portMu     sync.Mutex

	// open and probe are replaced in tests
	open        func(ctx context.Context) (io.ReadWriteCloser, error)
	probe       func(ctx context.Context, host string) (probeResult, time.Duration, error)
	onReconnect func()
	reconnects  atomic.Uint64
	cancel      context.CancelFunc
	done        chan struct{}
}

// BufferLink is an in-memory link fed through Write.
type BufferLink struct {
	byteQueue
}
