package network

// DefaultLocalAPChannel is the local AP channel used when the target
// network was not found during the scan.
const DefaultLocalAPChannel uint8 = 1

// FindAccessPoint returns the first scanned access point whose SSID matches
func FindAccessPoint(scan []AccessPoint, ssid string) (AccessPoint, bool) {
	for _, ap := range scan {
		if ap.SSID == ssid {
			return ap, true
		}
	}
	return AccessPoint{}, false
}

// BuildConfig derives the dual-role configuration from a scan result.
//
// When the target network is present its channel is used for both roles.
// Otherwise the client channel is left unknown and the local AP falls back to
// fallbackChannel (DefaultLocalAPChannel when zero).
func BuildConfig(scan []AccessPoint, creds Credentials, localAPSSID string, fallbackChannel uint8) NetworkConfig {
	if fallbackChannel == 0 {
		fallbackChannel = DefaultLocalAPChannel
	}

	cfg := NetworkConfig{
		Client: ClientConfig{
			SSID:       creds.SSID,
			Credential: creds.Credential,
		},
		LocalAP: LocalAPConfig{
			SSID:    localAPSSID,
			Channel: fallbackChannel,
		},
	}

	if ap, ok := FindAccessPoint(scan, creds.SSID); ok {
		ch := ap.Channel
		cfg.Client.Channel = &ch
		cfg.LocalAP.Channel = ch
	}

	return cfg
}
