package status

import "os"

// pi-helper env var names (written to /run/pi-helper.env).
const (
	EnvNetworkType       = "NETWORK_TYPE"
	EnvNetworkIP         = "NETWORK_IP"
	EnvNetworkStatus     = "NETWORK_STATUS"
	EnvNetworkGateway    = "NETWORK_GATEWAY"
	EnvNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	EnvNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

// NetworkFromEnv reads network state exported by pi-helper.
// It returns nil when NETWORK_STATUS is unset.
func NetworkFromEnv() *NetworkInfo {
	s := os.Getenv(EnvNetworkStatus)
	if s == "" {
		return nil
	}
	return &NetworkInfo{
		Type:       os.Getenv(EnvNetworkType),
		IP:         os.Getenv(EnvNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(EnvNetworkGateway),
		WifiStatus: os.Getenv(EnvNetworkWifiStatus),
		SSID:       os.Getenv(EnvNetworkWifiSSID),
	}
}
