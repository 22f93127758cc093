// Client side of the han_reader live stream.
package interpreter

import (
	"context"
	"net/url"
	"time"

	"github.com/NotCoffee418/han_reader/pkg/types"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "interpreter")

const (
	maxRetries     = 10
	baseRetryDelay = 2 * time.Second
	maxRetryDelay  = 60 * time.Second
	// HAN meters push a list every 2 to 10 seconds
	readTimeout  = 30 * time.Second
	pingInterval = 15 * time.Second
)

// StartListener manages the websocket connection to host and calls
// funcToCall for each reading until ctx is cancelled or reconnecting fails
// maxRetries times in a row.
func StartListener(ctx context.Context, host string, useTLS bool, funcToCall func(reading *types.SensorReading)) {
	scheme := "ws"
	if useTLS {
		scheme = "wss"
	}
	u := url.URL{Scheme: scheme, Host: host, Path: "/ws"}
	listen(ctx, u.String(), baseRetryDelay, funcToCall)
}

func listen(ctx context.Context, wsURL string, baseDelay time.Duration, funcToCall func(reading *types.SensorReading)) {
	retryCount := 0

	for {
		// Calculate retry delay with exponential backoff
		retryDelay := time.Duration(1<<retryCount) * baseDelay
		if retryDelay > maxRetryDelay {
			retryDelay = maxRetryDelay
		}

		if retryCount > 0 {
			log.Infof("Retrying connection in %v... (attempt %d/%d)", retryDelay, retryCount+1, maxRetries)
			select {
			case <-time.After(retryDelay):
			case <-ctx.Done():
				log.Info("Shutdown requested during retry wait")
				return
			}
		}

		log.Infof("Connecting to %s", wsURL)

		dialer := *websocket.DefaultDialer
		dialer.HandshakeTimeout = 10 * time.Second
		c, _, err := dialer.DialContext(ctx, wsURL, nil)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.WithError(err).Warn("Connection failed")
			retryCount++
			if retryCount >= maxRetries {
				log.Errorf("Max retries (%d) reached. Giving up.", maxRetries)
				return
			}
			continue
		}

		log.Info("Connected! Accepting sensor readings.")
		retryCount = 0

		// Handle the connection until it breaks or we're cancelled
		connectionBroken := handleConnection(ctx, c, funcToCall)
		c.Close()

		if !connectionBroken {
			return
		}

		log.Warn("Connection lost, will retry...")
		retryCount = 1
	}
}

func handleConnection(ctx context.Context, c *websocket.Conn, funcToCall func(reading *types.SensorReading)) bool {
	done := make(chan struct{})

	c.SetReadDeadline(time.Now().Add(readTimeout))
	c.SetPongHandler(func(string) error {
		return c.SetReadDeadline(time.Now().Add(readTimeout))
	})

	go func() {
		defer close(done)
		for {
			messageType, message, err := c.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.WithError(err).Warn("WebSocket error")
				} else {
					log.WithError(err).Info("Connection closed")
				}
				return
			}

			c.SetReadDeadline(time.Now().Add(readTimeout))

			if messageType != websocket.TextMessage {
				log.Debugf("Received unexpected message type: %d", messageType)
				continue
			}
			if reading := types.SensorReadingFromJsonBytes(message); reading != nil {
				funcToCall(reading)
			} else {
				log.Warnf("Failed to parse sensor reading: %s", string(message))
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return true
		case <-ticker.C:
			if err := c.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second)); err != nil {
				log.WithError(err).Warn("Failed to send ping")
			}
		case <-ctx.Done():
			err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.WithError(err).Debug("Error sending close message")
			}

			// Wait for close confirmation or timeout
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return false
		}
	}
}
