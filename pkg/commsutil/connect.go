// Package commsutil provides message bus connection helpers, subjects and the payload codec.
package commsutil

import (
	"fmt"
	"log/slog"
	"time"

	comms "github.com/nats-io/nats.go"
)

const logPrefix = "commsutil:connect"

// Connect creates a message bus connection to url identifying as name.
// The connection reconnects on its own; status changes are logged.
func Connect(url, name string) (*comms.Conn, error) {
	slog.Info(fmt.Sprintf("%s - Connecting to COMMS at %s as %s", logPrefix, url, name))

	nc, err := comms.Connect(url,
		comms.Name(name),
		comms.Timeout(10*time.Second),
		comms.ReconnectWait(2*time.Second),
		comms.MaxReconnects(-1),
		comms.DisconnectErrHandler(func(_ *comms.Conn, err error) {
			slog.Warn(fmt.Sprintf("%s - COMMS disconnected: %v", logPrefix, err))
		}),
		comms.ReconnectHandler(func(nc *comms.Conn) {
			slog.Info(fmt.Sprintf("%s - COMMS reconnected to %s", logPrefix, nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to connect to COMMS: %w", logPrefix, err)
	}

	slog.Info(fmt.Sprintf("%s - Connected to COMMS at %s", logPrefix, nc.ConnectedUrl()))
	return nc, nil
}

// Drain flushes pending publishes and closes nc, waiting at most timeout.
func Drain(nc *comms.Conn, timeout time.Duration) {
	if nc == nil {
		return
	}
	closed := make(chan struct{})
	nc.SetClosedHandler(func(*comms.Conn) { close(closed) })
	if err := nc.Drain(); err != nil {
		slog.Warn(fmt.Sprintf("%s - COMMS drain failed: %v", logPrefix, err))
		nc.Close()
		return
	}
	select {
	case <-closed:
	case <-time.After(timeout):
		slog.Warn(fmt.Sprintf("%s - COMMS drain timed out after %s", logPrefix, timeout))
		nc.Close()
	}
}
