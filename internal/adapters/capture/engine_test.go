package capture

import (
	"context"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobsdonn/PenDonn/internal/adapters/storage"
	"github.com/jobsdonn/PenDonn/internal/core/domain"
	"github.com/jobsdonn/PenDonn/internal/core/ports"
	"github.com/jobsdonn/PenDonn/internal/core/services/scheduler"
)

// fakeRegistry implements ports.InterfaceRegistry for tests.
type fakeRegistry struct {
	monitor, attack, management string
}

func (f *fakeRegistry) Resolve(ctx context.Context) error { return nil }
func (f *fakeRegistry) Monitor() string                   { return f.monitor }
func (f *fakeRegistry) Attack() string                    { return f.attack }
func (f *fakeRegistry) Management() string                { return f.management }

func (f *fakeRegistry) AssertNotManagement(nic string) error {
	if nic == f.management {
		return ports.NewError(ports.KindHostSafety, "refusing to touch management interface", nil)
	}
	return nil
}

func (f *fakeRegistry) EnableMonitorMode(ctx context.Context, nic string) error  { return nil }
func (f *fakeRegistry) DisableMonitorMode(ctx context.Context, nic string) error { return nil }
func (f *fakeRegistry) RestoreOriginalModes(ctx context.Context) error          { return nil }

// fakeRunner scripts aireplay-ng's response; every other binary is a no-op
// success, mirroring the fakeExecutor pattern used by the registry tests.
type fakeRunner struct {
	aireplayStdout string
	aireplayErr    error
}

func (f *fakeRunner) HealthCheck(name string) error { return nil }

func (f *fakeRunner) Run(ctx context.Context, name string, args []string, timeout time.Duration, stdin []byte) (ports.ToolResult, error) {
	if name == "aireplay-ng" {
		return ports.ToolResult{ExitCode: 0, Stdout: f.aireplayStdout}, f.aireplayErr
	}
	return ports.ToolResult{ExitCode: 0}, nil
}

func newTestStore(t *testing.T) *storage.SQLiteAdapter {
	t.Helper()
	store, err := storage.NewSQLiteAdapter(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newTestEngine(t *testing.T, cfg Config, runner *fakeRunner) *Engine {
	reg := &fakeRegistry{monitor: "wlan0mon", attack: "wlan1", management: "eth0"}
	return NewEngine(cfg, reg, runner, newTestStore(t), scheduler.New(nil), nil)
}

func TestSendDeauthBurst_BSSIDNotVisible_SetsDeauthWarning(t *testing.T) {
	runner := &fakeRunner{aireplayStdout: "Waiting for beacon frame... No such BSSID available.\n"}
	e := newTestEngine(t, DefaultConfig(), runner)

	session := &domain.CaptureSession{BSSID: "aa:bb:cc:dd:ee:01", StartTime: time.Now()}
	e.sendDeauthBurst(context.Background(), session, "wlan0mon")

	assert.True(t, session.DeauthWarning)
	assert.True(t, session.DeauthSent)
	assert.Equal(t, 1, session.BurstsSent)
}

func TestSendDeauthBurst_Success_DoesNotSetDeauthWarning(t *testing.T) {
	runner := &fakeRunner{aireplayStdout: "Sending 64 directed DeAuth.\n"}
	e := newTestEngine(t, DefaultConfig(), runner)

	session := &domain.CaptureSession{BSSID: "aa:bb:cc:dd:ee:01", StartTime: time.Now()}
	e.sendDeauthBurst(context.Background(), session, "wlan0mon")

	assert.False(t, session.DeauthWarning)
	assert.True(t, session.DeauthSent)
}

// TestRun_RecomputesEffectiveTimeoutAfterDeauthLoop is a regression test for
// the bug where the verify budget was read from session.DeauthWarning
// before deauthLoop ever ran, so the 1.5x extension on a bssid-not-visible
// deauth outcome never took effect (§4.D/§8). It drives the real run()
// ordering end-to-end with a stand-in long-lived "airodump-ng" process.
func TestRun_RecomputesEffectiveTimeoutAfterDeauthLoop(t *testing.T) {
	origExec := execCommandContext
	execCommandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		return exec.CommandContext(ctx, "sleep", "5")
	}
	t.Cleanup(func() { execCommandContext = origExec })

	runner := &fakeRunner{aireplayStdout: "Waiting for beacon frame... No such BSSID available.\n"}

	cfg := DefaultConfig()
	cfg.HandshakeDir = t.TempDir()
	cfg.HandshakeTimeout = 120 * time.Millisecond
	cfg.WarmUp = 5 * time.Millisecond
	cfg.DeauthGrace = 5 * time.Millisecond
	cfg.DeauthBurstCount = 1
	cfg.VerifyInterval = 20 * time.Millisecond
	cfg.VerifyMinDelay = 0

	e := newTestEngine(t, cfg, runner)

	session := &domain.CaptureSession{
		BSSID:     "aa:bb:cc:dd:ee:01",
		SSID:      "TargetNet",
		Channel:   6,
		FilePath:  filepath.Join(cfg.HandshakeDir, "test"),
		State:     domain.CaptureStateArming,
		StartTime: time.Now(),
	}

	start := time.Now()
	e.run(context.Background(), session, "wlan0mon")
	elapsed := time.Since(start)

	require.True(t, session.DeauthWarning, "aireplay-ng's bssid-not-visible response must set DeauthWarning")
	assert.Equal(t, domain.CaptureStateTimeout, session.State)

	// Base timeout is 120ms. With the 1.5x extension actually taking
	// effect (180ms), the session must survive past the base timeout
	// before giving up. The pre-fix code read DeauthWarning's zero value
	// before deauthLoop ran, so it always timed out at ~120ms.
	assert.GreaterOrEqual(t, elapsed, 150*time.Millisecond, "budget must reflect the post-deauth 1.5x extension, not the stale pre-deauth value")
}

func TestEffectiveTimeout_DeauthWarningExtendsByHalf(t *testing.T) {
	session := &domain.CaptureSession{DeauthWarning: true}
	base := 100 * time.Millisecond
	assert.Equal(t, 150*time.Millisecond, session.EffectiveTimeout(base))

	session.DeauthWarning = false
	assert.Equal(t, base, session.EffectiveTimeout(base))
}
