package connectivity

import (
	"context"
	"fmt"
	"net"
	"os/exec"
	"strings"
)

// HostNetwork associates through NetworkManager and reads the association status
// from the kernel's view of the interface.
type HostNetwork struct {
	Interface string // es. wlan0

	// run esegue un comando esterno con stdin; sostituibile nei test
	run func(ctx context.Context, stdin string, name string, args ...string) ([]byte, error)
	// addrs restituisce gli indirizzi dell'interfaccia se è up e running
	addrs func(name string) ([]net.Addr, error)
}

// NewHostNetwork returns a Network bound to the given interface.
func NewHostNetwork(iface string) *HostNetwork {
	return &HostNetwork{
		Interface: iface,
		run:       runCommand,
		addrs:     interfaceAddrs,
	}
}

// Associate chiede a NetworkManager di collegarsi senza attendere l'esito
// (--wait 0); l'esito si legge con Associated. SSID vuoto = rete già gestita
// dal sistema, nessuna richiesta. La passphrase passa da stdin (--ask), mai
// dalla riga di comando.
func (n *HostNetwork) Associate(ctx context.Context, ssid, passphrase string) error {
	if ssid == "" {
		return nil
	}
	args := []string{"--wait", "0"}
	stdin := ""
	if passphrase != "" {
		args = append(args, "--ask")
		stdin = passphrase + "\n"
	}
	args = append(args, "device", "wifi", "connect", ssid)
	if n.Interface != "" {
		args = append(args, "ifname", n.Interface)
	}
	out, err := n.run(ctx, stdin, "nmcli", args...)
	if err != nil {
		return fmt.Errorf("nmcli connect %q: %w (%s)", ssid, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Associated reports true when the interface is up, running and holds a routable
// address (the Linux counterpart of "got IP").
func (n *HostNetwork) Associated(_ context.Context) bool {
	addrs, err := n.addrs(n.Interface)
	if err != nil {
		return false
	}
	for _, a := range addrs {
		ipnet, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		ip := ipnet.IP
		if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsUnspecified() {
			continue
		}
		return true
	}
	return false
}

func runCommand(ctx context.Context, stdin string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	return cmd.CombinedOutput()
}

// interfaceAddrs con nome vuoto raccoglie gli indirizzi di tutte le interfacce
// attive tranne il loopback.
func interfaceAddrs(name string) ([]net.Addr, error) {
	if name != "" {
		ifi, err := net.InterfaceByName(name)
		if err != nil {
			return nil, err
		}
		if !isUp(*ifi) {
			return nil, fmt.Errorf("interface %s is down", name)
		}
		return ifi.Addrs()
	}

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	var out []net.Addr
	for _, ifi := range ifaces {
		if !isUp(ifi) || ifi.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := ifi.Addrs()
		if err != nil {
			continue
		}
		out = append(out, addrs...)
	}
	return out, nil
}

func isUp(ifi net.Interface) bool {
	return ifi.Flags&net.FlagUp != 0 && ifi.Flags&net.FlagRunning != 0
}
