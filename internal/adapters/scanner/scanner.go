// Package scanner implements the Scan Loop (§4.E): a cooperative passive
// sweep that cannot run while a capture or enumeration holds the monitor
// NIC. Grounded on the teacher's hopping.ChannelHopper ticker-driven
// loop with a pause/resume seam (internal/adapters/sniffer/hopping/hopper.go),
// repurposed here from channel-hopping into sweep/parse/upsert iterations
// gated by the Scheduler instead of a resetChan.
package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/jobsdonn/PenDonn/internal/adapters/toolrunner"
	"github.com/jobsdonn/PenDonn/internal/core/domain"
	"github.com/jobsdonn/PenDonn/internal/core/ports"
	"github.com/jobsdonn/PenDonn/internal/core/services/scheduler"
	"github.com/jobsdonn/PenDonn/internal/telemetry"
)

// execCommandContext is a package-level seam for tests.
var execCommandContext = exec.CommandContext

// Config holds the scan loop's tuning knobs.
type Config struct {
	ScanResultsDir string
	ScanWindow     time.Duration // 10s
	PollInterval   time.Duration // 1s precondition poll while a sweep runs
	RetainCSVs     int           // 5
	WhitelistSSIDs []string
}

// DefaultConfig returns the §4.E defaults.
func DefaultConfig() Config {
	return Config{
		ScanResultsDir: "./scan_results",
		ScanWindow:     10 * time.Second,
		PollInterval:   1 * time.Second,
		RetainCSVs:     5,
	}
}

// CaptureRequester is the subset of ports.CaptureEngine the scan loop
// needs to nominate a candidate.
type CaptureRequester interface {
	Start(ctx context.Context, bssid, ssid string, channel int) bool
	Active() bool
}

// Loop is the default ports.ScanLoop implementation.
type Loop struct {
	cfg       Config
	registry  ports.InterfaceRegistry
	runner    ports.ToolRunner
	store     ports.Storage
	scheduler *scheduler.Scheduler
	capture   CaptureRequester
	logger    *slog.Logger

	whitelist map[string]bool // empty => permit all

	mu      sync.Mutex
	cmd     *exec.Cmd
}

// NewLoop builds a scan Loop and registers it as the Scheduler's
// scan-interrupt callback.
func NewLoop(cfg Config, registry ports.InterfaceRegistry, runner ports.ToolRunner, store ports.Storage, sched *scheduler.Scheduler, cap CaptureRequester, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	whitelist := make(map[string]bool, len(cfg.WhitelistSSIDs))
	for _, s := range cfg.WhitelistSSIDs {
		whitelist[s] = true
	}
	l := &Loop{
		cfg:       cfg,
		registry:  registry,
		runner:    runner,
		store:     store,
		scheduler: sched,
		capture:   cap,
		logger:    logger,
		whitelist: whitelist,
	}
	sched.OnScanInterrupt(func(ctx context.Context) { l.Abort(ctx) })
	return l
}

// attackable applies the §7 whitelist policy: an empty list permits all.
func (l *Loop) attackable(ssid string) bool {
	if len(l.whitelist) == 0 {
		return true
	}
	return l.whitelist[ssid]
}

// Run drives the cooperative sweep loop until ctx is cancelled (§4.E).
func (l *Loop) Run(ctx context.Context) {
	if err := os.MkdirAll(l.cfg.ScanResultsDir, 0o755); err != nil {
		l.logger.Error("scanner: cannot create scan results dir", "error", err)
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if !l.scheduler.ScanAllowed() {
			select {
			case <-time.After(2 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		l.sweepOnce(ctx)
	}
}

// sweepOnce runs one 10-second airodump-ng sweep, parses the resulting
// CSV, upserts every observed network, and nominates a capture candidate.
func (l *Loop) sweepOnce(ctx context.Context) {
	monitor := l.registry.Monitor()
	if err := l.registry.AssertNotManagement(monitor); err != nil {
		l.logger.Error("scanner: refusing to sweep on management interface", "error", err)
		return
	}

	base := filepath.Join(l.cfg.ScanResultsDir, fmt.Sprintf("scan_%d", time.Now().UTC().Unix()))
	sweepCtx, cancel := context.WithTimeout(ctx, l.cfg.ScanWindow+5*time.Second)
	defer cancel()

	cmd := execCommandContext(sweepCtx, "airodump-ng",
		"--band", "abg",
		"--output-format", "csv",
		"--write", base,
		monitor,
	)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		l.logger.Error("scanner: failed to start airodump-ng", "error", err)
		return
	}
	l.mu.Lock()
	l.cmd = cmd
	l.mu.Unlock()

	deadline := time.Now().Add(l.cfg.ScanWindow)
	ticker := time.NewTicker(l.cfg.PollInterval)
	defer ticker.Stop()

sweepLoop:
	for {
		select {
		case <-ctx.Done():
			break sweepLoop
		case now := <-ticker.C:
			if now.After(deadline) || !l.scheduler.ScanAllowed() {
				break sweepLoop
			}
		}
	}

	l.killChild(cmd)
	l.mu.Lock()
	l.cmd = nil
	l.mu.Unlock()

	csvPath := base + "-01.csv"
	data, err := os.ReadFile(csvPath)
	if err != nil {
		l.logger.Debug("scanner: no CSV produced by sweep", "error", err)
		return
	}

	l.processCSV(ctx, string(data))
	l.retainRecent()
}

// processCSV upserts every AP row and nominates a capture candidate among
// whitelisted, attackable, capture-eligible networks (§4.D candidate
// selection, delegated here).
func (l *Loop) processCSV(ctx context.Context, csv string) {
	aps, clients := toolrunner.ParseAirodumpCSV(csv)

	clientCounts := make(map[string]int)
	for _, c := range clients {
		if c.AssociatedBSSID == "" || c.AssociatedBSSID == "(not associated)" {
			continue
		}
		clientCounts[c.AssociatedBSSID]++
	}

	type candidate struct {
		bssid, ssid string
		channel     int
		score       float64
		lastSeen    time.Time
	}
	var candidates []candidate

	for _, ap := range aps {
		whitelisted := l.attackable(ap.SSID)

		netID, err := l.store.UpsertNetwork(ctx, domain.Network{
			BSSID:          ap.BSSID,
			SSID:           ap.SSID,
			Channel:        ap.Channel,
			Encryption:     ap.Encryption,
			SignalStrength: ap.Power,
			IsWhitelisted:  whitelisted,
		})
		if err != nil {
			l.logger.Error("scanner: upsert_network failed", "bssid", ap.BSSID, "error", err)
			continue
		}
		_ = l.store.SetWhitelisted(ctx, ap.BSSID, whitelisted)
		telemetry.NetworksObserved.WithLabelValues(string(ap.Encryption)).Inc()

		if !whitelisted || !ap.Encryption.Attackable() {
			continue
		}
		if key, _ := l.store.KeyFor(ctx, ap.BSSID); key != nil {
			continue
		}

		network, err := l.store.GetNetwork(ctx, ap.BSSID)
		lastSeen := time.Now()
		if err == nil && network != nil {
			lastSeen = network.LastSeen
		}
		_ = netID

		score := 10*float64(clientCounts[ap.BSSID]) + float64(ap.Power)/10
		candidates = append(candidates, candidate{
			bssid: ap.BSSID, ssid: ap.SSID, channel: ap.Channel,
			score: score, lastSeen: lastSeen,
		})
	}

	if len(candidates) == 0 || l.capture.Active() {
		return
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].lastSeen.After(candidates[j].lastSeen)
	})

	best := candidates[0]
	l.capture.Start(ctx, best.bssid, best.ssid, best.channel)
}

// retainRecent keeps only the RetainCSVs most recent scan CSVs on disk.
func (l *Loop) retainRecent() {
	entries, err := os.ReadDir(l.cfg.ScanResultsDir)
	if err != nil {
		return
	}
	type fileInfo struct {
		name string
		mod  time.Time
	}
	var files []fileInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, fileInfo{e.Name(), info.ModTime()})
	}
	if len(files) <= l.cfg.RetainCSVs {
		return
	}
	sort.Slice(files, func(i, j int) bool { return files[i].mod.After(files[j].mod) })
	for _, f := range files[l.cfg.RetainCSVs:] {
		_ = os.Remove(filepath.Join(l.cfg.ScanResultsDir, f.name))
	}
}

func (l *Loop) killChild(cmd *exec.Cmd) {
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

// Abort terminates the in-flight airodump sweep, if any; invoked by the
// Scheduler when enumeration seizes the radio.
func (l *Loop) Abort(ctx context.Context) {
	l.mu.Lock()
	cmd := l.cmd
	l.mu.Unlock()
	if cmd == nil {
		return
	}
	l.killChild(cmd)
}

var _ ports.ScanLoop = (*Loop)(nil)
