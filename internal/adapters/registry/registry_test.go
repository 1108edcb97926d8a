package registry

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/jobsdonn/PenDonn/internal/core/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExecutor struct {
	ipLinkOutput string
	calls        []string
}

func (f *fakeExecutor) Execute(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, fmt.Sprintf("%s %v", name, args))
	if name == "ip" && len(args) >= 2 && args[0] == "link" && args[1] == "show" {
		return []byte(f.ipLinkOutput), nil
	}
	return []byte("ok"), nil
}

const sampleIPLink = `1: lo: <LOOPBACK,UP,LOWER_UP> mtu 65536
    link/loopback 00:00:00:00:00:00 brd 00:00:00:00:00:00
2: wlan0: <BROADCAST,MULTICAST> mtu 1500
    link/ether aa:bb:cc:dd:ee:01 brd ff:ff:ff:ff:ff:ff
3: wlan1: <BROADCAST,MULTICAST> mtu 1500
    link/ether aa:bb:cc:dd:ee:02 brd ff:ff:ff:ff:ff:ff
4: eth0: <BROADCAST,MULTICAST,UP,LOWER_UP> mtu 1500
    link/ether aa:bb:cc:dd:ee:03 brd ff:ff:ff:ff:ff:ff
`

func newTestRegistry(exec *fakeExecutor) *Registry {
	cfg := Config{
		MonitorMAC:    "aa:bb:cc:dd:ee:01",
		AttackMAC:     "aa:bb:cc:dd:ee:02",
		ManagementMAC: "aa:bb:cc:dd:ee:03",
	}
	return NewRegistry(cfg, exec, slog.Default())
}

func TestResolve_ByMAC(t *testing.T) {
	exec := &fakeExecutor{ipLinkOutput: sampleIPLink}
	reg := newTestRegistry(exec)

	require.NoError(t, reg.Resolve(context.Background()))
	assert.Equal(t, "wlan0", reg.Monitor())
	assert.Equal(t, "wlan1", reg.Attack())
	assert.Equal(t, "eth0", reg.Management())
}

func TestResolve_MissingMACWithoutFallbackFails(t *testing.T) {
	exec := &fakeExecutor{ipLinkOutput: sampleIPLink}
	cfg := Config{
		MonitorMAC:    "aa:bb:cc:dd:ee:01",
		AttackMAC:     "aa:bb:cc:dd:ee:02",
		ManagementMAC: "ff:ff:ff:ff:ff:ff", // not present
	}
	reg := NewRegistry(cfg, exec, slog.Default())

	err := reg.Resolve(context.Background())
	require.Error(t, err)
	assert.Equal(t, ports.KindHostSafety, ports.KindOf(err))
}

func TestResolve_SingleInterfaceModeFallback(t *testing.T) {
	exec := &fakeExecutor{ipLinkOutput: sampleIPLink}
	cfg := Config{
		MonitorMAC:          "aa:bb:cc:dd:ee:01",
		AttackMAC:           "aa:bb:cc:dd:ee:02",
		ManagementMAC:       "ff:ff:ff:ff:ff:ff",
		Management:          "eth0",
		SingleInterfaceMode: true,
	}
	reg := NewRegistry(cfg, exec, slog.Default())

	require.NoError(t, reg.Resolve(context.Background()))
	assert.Equal(t, "eth0", reg.Management())
}

func TestAssertNotManagement(t *testing.T) {
	exec := &fakeExecutor{ipLinkOutput: sampleIPLink}
	reg := newTestRegistry(exec)
	require.NoError(t, reg.Resolve(context.Background()))

	assert.NoError(t, reg.AssertNotManagement("wlan0"))

	err := reg.AssertNotManagement("eth0")
	require.Error(t, err)
	assert.Equal(t, ports.KindHostSafety, ports.KindOf(err))
}

func TestEnableMonitorMode_RefusesManagementNIC(t *testing.T) {
	exec := &fakeExecutor{ipLinkOutput: sampleIPLink}
	reg := newTestRegistry(exec)
	require.NoError(t, reg.Resolve(context.Background()))

	err := reg.EnableMonitorMode(context.Background(), "eth0")
	require.Error(t, err)
	assert.Equal(t, ports.KindHostSafety, ports.KindOf(err))

	for _, call := range exec.calls {
		assert.NotContains(t, call, "eth0", "must never issue ip/iw against the management NIC")
	}
}
