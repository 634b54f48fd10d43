package enums

import "fmt"

// Network identifies the mobile carriers whose data bundles are resold.
type Network string

const (
	NetworkMTN        Network = "mtn"
	NetworkAirtelTigo Network = "airteltigo"
	NetworkTelecel    Network = "telecel"
)

var validNetworks = []Network{
	NetworkMTN,
	NetworkAirtelTigo,
	NetworkTelecel,
}

// IsValid reports whether the value matches the canonical network enum.
func (n Network) IsValid() bool {
	for _, candidate := range validNetworks {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNetwork converts the raw string to Network.
func ParseNetwork(value string) (Network, error) {
	for _, candidate := range validNetworks {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid network %q", value)
}

// Networks returns the canonical carrier list.
func Networks() []Network {
	out := make([]Network, len(validNetworks))
	copy(out, validNetworks)
	return out
}
