package toolrunner

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jobsdonn/PenDonn/internal/core/ports"
)

// MockRunner is a scripted ports.ToolRunner used by --mock/PENDONN_MOCK: a
// stand-in for every external binary called through the Tool Adapter,
// generating bounded, plausible output. It does not cover the scan loop's
// and capture engine's own airodump-ng processes, which are spawned
// directly, nor the Interface Registry's ip/iw commands, which go through
// its own executor. Grounded on the teacher's mock.DataGenerator
// (internal/mock) for the "bounded fake data" texture, adapted here from
// device/AP generation into scripted subprocess stdout.
type MockRunner struct {
	ssid, bssid string
	channel     int
}

// NewMockRunner builds a MockRunner seeded with one fake WPA2 network.
func NewMockRunner() *MockRunner {
	return &MockRunner{
		ssid:    "MockNet-5G",
		bssid:   "DE:AD:BE:EF:00:01",
		channel: 6,
	}
}

func (m *MockRunner) HealthCheck(name string) error {
	return nil
}

func (m *MockRunner) Run(ctx context.Context, name string, args []string, timeout time.Duration, stdin []byte) (ports.ToolResult, error) {
	switch name {
	case "airodump-ng":
		return m.runAirodump(args)
	case "aireplay-ng":
		return ports.ToolResult{ExitCode: 0, Stdout: "Sending 64 directed DeAuth.\n"}, nil
	case "hcxpcapngtool", "hcx2john":
		return ports.ToolResult{ExitCode: 0, Stdout: m.mockHcxOutput(name)}, nil
	case "john":
		return m.runJohn(args)
	case "hashcat":
		return ports.ToolResult{ExitCode: 0, Stdout: "Session completed.\n"}, nil
	case "aircrack-ng":
		return ports.ToolResult{ExitCode: 0, Stdout: fmt.Sprintf("KEY FOUND! [ %s ]\n", m.mockPassword())}, nil
	case "wpa_supplicant":
		return ports.ToolResult{ExitCode: 0, Stdout: "Successfully initialized wpa_supplicant\n"}, nil
	case "dhcpcd", "dhclient":
		return ports.ToolResult{ExitCode: 0, Stdout: "bound to 192.168.50.42 -- renewal in 1800 seconds\n"}, nil
	case "ip":
		return m.runIP(args)
	case "iw":
		return m.runIw(args)
	case "nmap":
		return m.runNmap(args)
	case "curl":
		return ports.ToolResult{ExitCode: 1, Stderr: "mock: anonymous login disabled\n"}, nil
	default:
		return ports.ToolResult{ExitCode: 0}, nil
	}
}

func (m *MockRunner) runAirodump(args []string) (ports.ToolResult, error) {
	var writeBase string
	for i, a := range args {
		if a == "--write" && i+1 < len(args) {
			writeBase = args[i+1]
		}
	}
	if writeBase == "" {
		return ports.ToolResult{ExitCode: 0}, nil
	}

	csv := fmt.Sprintf(
		"BSSID, First time seen, Last time seen, channel, Speed, Privacy, Cipher, Authentication, Power, # beacons, # IV, LAN IP, ID-length, ESSID, Key\n"+
			"%s, 2026-07-31 10:00:00, 2026-07-31 10:00:10, %d, 54, WPA2, CCMP, PSK, -45, 120, 0, 0.0.0.0, 10, %s, \n"+
			"\n"+
			"Station MAC, First time seen, Last time seen, Power, # packets, BSSID, Probed ESSIDs\n"+
			"AA:BB:CC:DD:EE:01, 2026-07-31 10:00:02, 2026-07-31 10:00:09, -50, 40, %s, \n",
		m.bssid, m.channel, m.ssid, m.bssid,
	)
	_ = os.WriteFile(writeBase+"-01.csv", []byte(csv), 0o644)
	return ports.ToolResult{ExitCode: 0}, nil
}

func (m *MockRunner) mockHcxOutput(tool string) string {
	if tool == "hcx2john" {
		return fmt.Sprintf("%s:$WPAPSK$%s#...:%s:%s:...\n", m.ssid, m.ssid, m.ssid, m.bssid)
	}
	return "1 WPA handshake(s) written\n"
}

func (m *MockRunner) runJohn(args []string) (ports.ToolResult, error) {
	for _, a := range args {
		if a == "--show" {
			return ports.ToolResult{ExitCode: 0, Stdout: fmt.Sprintf("%s:%s\n\n1 password hash cracked\n", m.ssid, m.mockPassword())}, nil
		}
	}
	return ports.ToolResult{ExitCode: 0, Stdout: "1g 0:00:00:05 100.0% (ETA) 1.234g/s\nSession completed.\n"}, nil
}

func (m *MockRunner) runIP(args []string) (ports.ToolResult, error) {
	if len(args) >= 2 && args[0] == "addr" && args[1] == "show" {
		return ports.ToolResult{ExitCode: 0, Stdout: "2: mock0: <BROADCAST,MULTICAST,UP,LOWER_UP> mtu 1500\n    inet 192.168.50.42/24 brd 192.168.50.255 scope global mock0\n"}, nil
	}
	return ports.ToolResult{ExitCode: 0}, nil
}

func (m *MockRunner) runIw(args []string) (ports.ToolResult, error) {
	if len(args) >= 2 && args[1] == "link" {
		return ports.ToolResult{ExitCode: 0, Stdout: "Not connected.\n"}, nil
	}
	return ports.ToolResult{ExitCode: 0}, nil
}

func (m *MockRunner) runNmap(args []string) (ports.ToolResult, error) {
	for _, a := range args {
		if a == "-sn" {
			return ports.ToolResult{ExitCode: 0, Stdout: "Nmap scan report for 192.168.50.1\nNmap scan report for 192.168.50.77\n"}, nil
		}
	}
	return ports.ToolResult{ExitCode: 0, Stdout: "21/tcp   open  ftp     vsftpd 3.0.3\n80/tcp   open  http    lighttpd 1.4.55\nRunning: Linux 4.X\n"}, nil
}

func (m *MockRunner) mockPassword() string {
	return "correcthorsebatterystaple"
}
