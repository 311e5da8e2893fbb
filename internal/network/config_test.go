package network

import (
	"net/netip"
	"testing"
)

func TestBuildConfig_ChannelSelection(t *testing.T) {
	for ch := uint8(1); ch <= 13; ch++ {
		scan := []AccessPoint{{SSID: "other", Channel: 11}, {SSID: "ssid", Channel: ch}}
		cfg := BuildConfig(scan, creds, "aptest", 0)

		if cfg.Client.Channel == nil || *cfg.Client.Channel != ch {
			t.Errorf("channel %d: client channel = %s", ch, cfg.Client.ChannelString())
		}
		if cfg.LocalAP.Channel != ch {
			t.Errorf("channel %d: local AP channel = %d", ch, cfg.LocalAP.Channel)
		}
	}
}

func TestBuildConfig_Absent(t *testing.T) {
	tests := []struct {
		name     string
		scan     []AccessPoint
		fallback uint8
		wantAP   uint8
	}{
		{"empty scan", nil, 0, 1},
		{"other networks only", []AccessPoint{{SSID: "neighbour", Channel: 11}}, 0, 1},
		{"custom fallback", nil, 6, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := BuildConfig(tt.scan, creds, "aptest", tt.fallback)
			if cfg.Client.Channel != nil {
				t.Errorf("client channel = %s, want unknown", cfg.Client.ChannelString())
			}
			if cfg.LocalAP.Channel != tt.wantAP {
				t.Errorf("local AP channel = %d, want %d", cfg.LocalAP.Channel, tt.wantAP)
			}
			if cfg.LocalAP.SSID != "aptest" {
				t.Errorf("local AP SSID = %q", cfg.LocalAP.SSID)
			}
			if cfg.Client.SSID != "ssid" || cfg.Client.Credential != "password" {
				t.Errorf("client identity = %+v", cfg.Client)
			}
		})
	}
}

func TestBuildConfig_FirstMatchWins(t *testing.T) {
	scan := []AccessPoint{{SSID: "ssid", Channel: 3}, {SSID: "ssid", Channel: 9}}
	cfg := BuildConfig(scan, creds, "aptest", 0)
	if *cfg.Client.Channel != 3 {
		t.Errorf("client channel = %d, want 3", *cfg.Client.Channel)
	}
}

func TestCombinedStatus_FullyUp(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CombinedStatus)
		want   bool
	}{
		{"fully up", func(*CombinedStatus) {}, true},
		{"client stopped", func(s *CombinedStatus) { s.Client.Role = RoleStopped }, false},
		{"client connecting", func(s *CombinedStatus) { s.Client.Link = LinkConnecting }, false},
		{"client waiting for ip", func(s *CombinedStatus) { s.Client.IP = IPWaiting }, false},
		{"ap starting", func(s *CombinedStatus) { s.LocalAP.Role = RoleStarting }, false},
		{"ap ip failed", func(s *CombinedStatus) { s.LocalAP.IP = IPFailed }, false},
		{"no gateway", func(s *CombinedStatus) { s.Client.Settings.Gateway = netip.Addr{} }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := fullyUp()
			tt.mutate(&s)
			settings, ok := s.FullyUp()
			if ok != tt.want {
				t.Errorf("FullyUp() = %v, want %v (%s)", ok, tt.want, s)
			}
			if ok && settings.Gateway.String() != "192.168.1.1" {
				t.Errorf("gateway = %s", settings.Gateway)
			}
		})
	}
}

func TestCombinedStatus_String(t *testing.T) {
	want := "client{started connected ip:done addr:192.168.1.50 gw:192.168.1.1} ap{started ip:done}"
	if got := fullyUp().String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
