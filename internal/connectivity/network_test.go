package connectivity

import (
	"context"
	"errors"
	"net"
	"reflect"
	"testing"
)

func TestHostNetwork_AssociateArgs(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		iface      string
		ssid, pass string
		want       []string
		wantStdin  string
	}{
		{
			name: "open network",
			ssid: "Wokwi-GUEST",
			want: []string{"--wait", "0", "device", "wifi", "connect", "Wokwi-GUEST"},
		},
		{
			name:      "with passphrase and interface",
			iface:     "wlan0",
			ssid:      "sala",
			pass:      "segreta",
			want:      []string{"--wait", "0", "--ask", "device", "wifi", "connect", "sala", "ifname", "wlan0"},
			wantStdin: "segreta\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotName, gotStdin string
			var gotArgs []string
			n := NewHostNetwork(tt.iface)
			n.run = func(_ context.Context, stdin string, name string, args ...string) ([]byte, error) {
				gotName, gotStdin, gotArgs = name, stdin, args
				return nil, nil
			}
			if err := n.Associate(context.Background(), tt.ssid, tt.pass); err != nil {
				t.Fatalf("Associate() error = %v", err)
			}
			if gotName != "nmcli" {
				t.Errorf("command = %q, want nmcli", gotName)
			}
			if !reflect.DeepEqual(gotArgs, tt.want) {
				t.Errorf("args = %v, want %v", gotArgs, tt.want)
			}
			if gotStdin != tt.wantStdin {
				t.Errorf("stdin = %q, want %q", gotStdin, tt.wantStdin)
			}
			for _, a := range gotArgs {
				if tt.pass != "" && a == tt.pass {
					t.Errorf("passphrase leaked into argv: %v", gotArgs)
				}
			}
		})
	}
}

func TestHostNetwork_AssociateEmptySSIDIsNoop(t *testing.T) {
	t.Parallel()
	n := NewHostNetwork("eth0")
	n.run = func(context.Context, string, string, ...string) ([]byte, error) {
		t.Fatal("nmcli must not run without an SSID")
		return nil, nil
	}
	if err := n.Associate(context.Background(), "", ""); err != nil {
		t.Fatalf("Associate() error = %v", err)
	}
}

func TestHostNetwork_AssociateError(t *testing.T) {
	t.Parallel()
	n := NewHostNetwork("wlan0")
	n.run = func(context.Context, string, string, ...string) ([]byte, error) {
		return []byte("Error: No network with SSID 'x' found."), errors.New("exit status 10")
	}
	if err := n.Associate(context.Background(), "x", ""); err == nil {
		t.Fatal("expected error")
	}
}

func TestHostNetwork_Associated(t *testing.T) {
	t.Parallel()
	ipnet := func(s string) net.Addr {
		ip, n, err := net.ParseCIDR(s)
		if err != nil {
			t.Fatal(err)
		}
		n.IP = ip
		return n
	}
	tests := []struct {
		name  string
		addrs []net.Addr
		err   error
		want  bool
	}{
		{name: "routable ipv4", addrs: []net.Addr{ipnet("192.168.1.20/24")}, want: true},
		{name: "only link-local", addrs: []net.Addr{ipnet("169.254.3.4/16"), ipnet("fe80::1/64")}, want: false},
		{name: "no addresses", want: false},
		{name: "interface down", err: errors.New("down"), want: false},
		{name: "link-local then global v6", addrs: []net.Addr{ipnet("fe80::1/64"), ipnet("2001:db8::5/64")}, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := NewHostNetwork("wlan0")
			n.addrs = func(string) ([]net.Addr, error) { return tt.addrs, tt.err }
			if got := n.Associated(context.Background()); got != tt.want {
				t.Errorf("Associated() = %v, want %v", got, tt.want)
			}
		})
	}
}
