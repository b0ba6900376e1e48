// Package network abstracts the device's network uplink.
package network

import "time"

// Link is the network layer the connectivity manager drives.
type Link interface {
	// Connect brings the link up, blocking for at most timeout.
	Connect(ssid, password string, timeout time.Duration) error

	// IsConnected reports whether the link is usable.
	IsConnected() bool
}
