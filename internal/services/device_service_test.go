package services

import "testing"

func TestIsRemovableMount(t *testing.T) {
	tests := []struct {
		name     string
		mount    string
		device   string
		expected bool
	}{
		{"media mount", "/media/user/SANDISK", "/dev/sdb1", true},
		{"run media mount", "/run/media/user/stick", "/dev/sdc1", true},
		{"mnt mount", "/mnt/usb0", "/dev/sdb1", true},
		{"usb marker in device", "/volumes/player", "/dev/usb-flash", true},
		{"removable marker in mount", "/removable/disk", "/dev/sdd1", true},
		{"root filesystem", "/", "/dev/nvme0n1p2", false},
		{"home filesystem", "/home", "/dev/nvme0n1p3", false},
		{"plain data mount", "/data", "/dev/sda1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := isRemovableMount(tt.mount, tt.device)
			if result != tt.expected {
				t.Errorf("isRemovableMount(%q, %q) = %v, expected %v",
					tt.mount, tt.device, result, tt.expected)
			}
		})
	}
}

func TestDeviceID(t *testing.T) {
	tests := []struct {
		name     string
		devName  string
		mount    string
		expected string
	}{
		{"simple mount", "SANDISK", "/media/user/SANDISK", "SANDISK__media_user_SANDISK"},
		{"space in name", "My Player", "/mnt/player", "My_Player__mnt_player"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := DeviceID(tt.devName, tt.mount)
			if result != tt.expected {
				t.Errorf("DeviceID(%q, %q) = %q, expected %q",
					tt.devName, tt.mount, result, tt.expected)
			}
		})
	}
}
