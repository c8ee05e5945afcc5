package entities

// ConnectionState summarizes the two link layers (network, broker).
type ConnectionState int

const (
	Disconnected ConnectionState = iota
	NetworkOnly                  // associated, no broker session
	Ready                        // associated and broker session up
)

func (s ConnectionState) String() string {
	switch s {
	case NetworkOnly:
		return "network-only"
	case Ready:
		return "ready"
	default:
		return "disconnected"
	}
}

// DeriveConnectionState enforces Ready(broker) => Ready(network): a broker
// session reported without network association is treated as Disconnected.
func DeriveConnectionState(associated, brokerConnected bool) ConnectionState {
	switch {
	case associated && brokerConnected:
		return Ready
	case associated:
		return NetworkOnly
	default:
		return Disconnected
	}
}
