package cliconfig

import (
	"errors"
	"fmt"
	"time"
)

// Default values.
const (
	DefaultLayout          = LayoutHorizontal
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"
	DefaultBridgeCapacity  = 100
	DefaultSendTimeout     = 200 * time.Millisecond
	DefaultPeerQueue       = 100
	DefaultResponseTimeout = 30 * time.Second
	DefaultStatus          = 200
	DefaultUDPIdleTimeout  = 2 * time.Minute
)

// NewDefault returns a Config populated with default values.
func NewDefault() *Config {
	return &Config{
		Layout: DefaultLayout,
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Bridge: BridgeConfig{
			Capacity:    DefaultBridgeCapacity,
			SendTimeout: DefaultSendTimeout,
		},
		PeerQueue: DefaultPeerQueue,
		HTTP: HTTPConfig{
			ResponseTimeout: DefaultResponseTimeout,
			DefaultStatus:   DefaultStatus,
		},
		UDP: UDPConfig{
			IdleTimeout: DefaultUDPIdleTimeout,
		},
		Sources: map[string]string{},
	}
}

// Validate reports every invalid value at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Layout != LayoutHorizontal && c.Layout != LayoutVertical {
		errs = append(errs, fmt.Errorf("layout %q must be %q or %q", c.Layout, LayoutHorizontal, LayoutVertical))
	}
	if c.Bridge.Capacity < 1 {
		errs = append(errs, fmt.Errorf("bridge.capacity %d must be positive", c.Bridge.Capacity))
	}
	if c.Bridge.SendTimeout <= 0 {
		errs = append(errs, fmt.Errorf("bridge.sendTimeout %s must be positive", c.Bridge.SendTimeout))
	}
	if c.PeerQueue < 1 {
		errs = append(errs, fmt.Errorf("peerQueue %d must be positive", c.PeerQueue))
	}
	if c.HTTP.ResponseTimeout <= 0 {
		errs = append(errs, fmt.Errorf("http.responseTimeout %s must be positive", c.HTTP.ResponseTimeout))
	}
	if c.HTTP.DefaultStatus < 100 || c.HTTP.DefaultStatus > 599 {
		errs = append(errs, fmt.Errorf("http.defaultStatus %d is out of range (100-599)", c.HTTP.DefaultStatus))
	}
	if c.UDP.IdleTimeout <= 0 {
		errs = append(errs, fmt.Errorf("udp.idleTimeout %s must be positive", c.UDP.IdleTimeout))
	}
	if (c.TLS.Cert == "") != (c.TLS.Key == "") {
		errs = append(errs, errors.New("tls.cert and tls.key must be set together"))
	}

	return errors.Join(errs...)
}
