package network

import (
	"context"
	"fmt"
	"log"
	"net"
	"os/exec"
	"time"
)

// InterfaceLink treats a named OS interface as the uplink. It is connected
// when the interface is up and holds a non-loopback unicast address.
// If an SSID is given and nmcli is available, Connect asks NetworkManager
// to associate first; otherwise it waits for the OS to bring the link up.
type InterfaceLink struct {
	Name string

	// PollInterval is how often Connect rechecks the interface.
	PollInterval time.Duration

	// lookup and run are replaced in tests.
	lookup func(name string) (*net.Interface, []net.Addr, error)
	run    func(ctx context.Context, name string, args ...string) error
}

// NewInterfaceLink returns a link bound to the interface name (e.g. "wlan0").
func NewInterfaceLink(name string) *InterfaceLink {
	return &InterfaceLink{
		Name:         name,
		PollInterval: time.Second,
		lookup:       lookupInterface,
		run:          runCommand,
	}
}

// IsConnected reports whether the interface is up with a usable address.
func (l *InterfaceLink) IsConnected() bool {
	iface, addrs, err := l.lookup(l.Name)
	if err != nil || iface.Flags&net.FlagUp == 0 {
		return false
	}
	for _, a := range addrs {
		ipnet, ok := a.(*net.IPNet)
		if ok && !ipnet.IP.IsLoopback() && ipnet.IP.IsGlobalUnicast() {
			return true
		}
	}
	return false
}

// Connect attempts association (when ssid is set) and waits until the link
// is connected or timeout elapses.
func (l *InterfaceLink) Connect(ssid, password string, timeout time.Duration) error {
	if l.IsConnected() {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if ssid != "" {
		args := []string{"device", "wifi", "connect", ssid, "ifname", l.Name}
		if password != "" {
			args = append(args, "password", password)
		}
		if err := l.run(ctx, "nmcli", args...); err != nil {
			log.Printf("network: nmcli connect %s: %v", ssid, err)
		}
	}

	ticker := time.NewTicker(l.PollInterval)
	defer ticker.Stop()
	for {
		if l.IsConnected() {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("link %s not up after %v", l.Name, timeout)
		case <-ticker.C:
		}
	}
}

func lookupInterface(name string) (*net.Interface, []net.Addr, error) {
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return nil, nil, err
	}
	addrs, err := iface.Addrs()
	if err != nil {
		return nil, nil, err
	}
	return iface, addrs, nil
}

func runCommand(ctx context.Context, name string, args ...string) error {
	if _, err := exec.LookPath(name); err != nil {
		return err
	}
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, out)
	}
	return nil
}
