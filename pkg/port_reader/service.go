package port_reader

import (
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/NotCoffee418/han_reader/pkg/metrics"
	"github.com/jacobsa/go-serial/serial"
	probing "github.com/prometheus-community/pro-bing"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "port_reader")

// Initialize a new link. port is a device path such as /dev/ttyUSB0, or
// tcp://host:port for a serial-over-TCP bridge.
func NewSerialLink(port string, baudrate uint, queueSize int) *SerialLink {
	if baudrate == 0 {
		baudrate = DefaultBaudrate
	}
	p := &SerialLink{
		port:     port,
		baudrate: baudrate,
	}
	p.capacity = queueSize
	p.open = p.connect
	p.probe = probeBridge
	return p
}

// OnReconnect registers fn to be called whenever the port is reopened after
// a failure. Data received before and after a reconnect do not belong to the
// same frame.
func (p *SerialLink) OnReconnect(fn func()) {
	p.onReconnect = fn
}

// Start opens the port and keeps reading it in the background until ctx is
// cancelled or Stop is called. Only the first open is reported as an error;
// later failures are retried with exponential backoff.
func (p *SerialLink) Start(ctx context.Context) error {
	conn, err := p.open(ctx)
	if err != nil {
		return err
	}

	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})
	go p.run(ctx, conn)
	return nil
}

// Stop closes the port and waits for the reader goroutine to exit.
func (p *SerialLink) Stop() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	p.disconnect()
	<-p.done
}

// Reconnects returns how many times the port was reopened.
func (p *SerialLink) Reconnects() uint64 {
	return p.reconnects.Load()
}

func (p *SerialLink) run(ctx context.Context, conn io.ReadWriteCloser) {
	defer close(p.done)

	// Close the port on cancellation so a blocked Read returns.
	go func() {
		<-ctx.Done()
		p.disconnect()
	}()

	retryCount := 0
	for {
		p.setPort(conn)
		if ctx.Err() != nil {
			p.disconnect()
			return
		}
		err := p.pump(conn)
		p.disconnect()
		if ctx.Err() != nil {
			return
		}
		log.WithError(err).Warnf("Lost connection to %s", p.port)

		for {
			retryDelay := time.Duration(1<<retryCount) * baseRetryDelay
			if retryDelay > maxRetryDelay {
				retryDelay = maxRetryDelay
			} else {
				retryCount++
			}
			log.Infof("Reopening %s in %v", p.port, retryDelay)
			select {
			case <-ctx.Done():
				return
			case <-time.After(retryDelay):
			}

			conn, err = p.open(ctx)
			if err == nil {
				break
			}
			log.WithError(err).Warnf("Failed to reopen %s", p.port)
		}

		retryCount = 0
		p.reconnects.Add(1)
		metrics.LinkReconnects.Inc()
		if p.onReconnect != nil {
			p.onReconnect()
		}
	}
}

func (p *SerialLink) pump(conn io.Reader) error {
	buf := make([]byte, 256)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			if dropped := p.push(buf[:n]); dropped > 0 {
				metrics.LinkBytesDropped.Add(float64(dropped))
			}
		}
		if err != nil {
			return err
		}
	}
}

func (p *SerialLink) setPort(conn io.ReadWriteCloser) {
	p.portMu.Lock()
	p.serialPort = conn
	p.portMu.Unlock()
}

// Open the connection to the HAN port.
func (p *SerialLink) connect(ctx context.Context) (io.ReadWriteCloser, error) {
	if strings.HasPrefix(p.port, tcpPrefix) {
		return p.connectBridge(ctx, strings.TrimPrefix(p.port, tcpPrefix))
	}

	options := serial.OpenOptions{
		PortName:        p.port,
		BaudRate:        p.baudrate,
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
	}

	port, err := serial.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port: %w", err)
	}

	log.Infof("Connected to HAN port on %s at %d baud", p.port, p.baudrate)
	return port, nil
}

// connectBridge dials a serial-over-TCP bridge. A ping is sent first so a
// powered-off bridge is reported as such instead of as a dial timeout; when
// pinging is not possible the dial alone decides.
func (p *SerialLink) connectBridge(ctx context.Context, address string) (io.ReadWriteCloser, error) {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return nil, fmt.Errorf("invalid bridge address %q: %w", address, err)
	}

	result, rtt, err := p.probe(ctx, host)
	switch result {
	case probeAnswered:
		log.Debugf("Bridge %s answered ping in %v", host, rtt)
	case probeSilent:
		log.Warnf("Bridge %s did not answer ping", host)
	default:
		log.WithError(err).Debugf("Cannot ping bridge %s, dialing directly", host)
	}

	dialer := net.Dialer{Timeout: bridgeDialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		if result == probeSilent {
			return nil, fmt.Errorf("%w: %s: %v", ErrBridgeUnreachable, address, err)
		}
		return nil, fmt.Errorf("failed to connect to serial bridge: %w", err)
	}
	log.Infof("Connected to HAN bridge on %s", address)
	return conn, nil
}

func (p *SerialLink) disconnect() {
	p.portMu.Lock()
	defer p.portMu.Unlock()
	if p.serialPort != nil {
		p.serialPort.Close()
		p.serialPort = nil
		log.Infof("Disconnected from HAN port %s", p.port)
	}
}

// probeBridge sends a single unprivileged ping to host.
func probeBridge(ctx context.Context, host string) (probeResult, time.Duration, error) {
	pinger, err := probing.NewPinger(host)
	if err != nil {
		return probeUnavailable, 0, err
	}
	pinger.Count = 1
	pinger.Timeout = bridgeProbeTimeout
	pinger.SetPrivileged(false)

	if err := pinger.RunWithContext(ctx); err != nil {
		return probeUnavailable, 0, err
	}
	if stats := pinger.Statistics(); stats.PacketsRecv > 0 {
		return probeAnswered, stats.AvgRtt, nil
	}
	return probeSilent, 0, nil
}
