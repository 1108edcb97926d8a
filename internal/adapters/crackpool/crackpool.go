// Package crackpool implements the Crack Pool (§4.F): a fixed worker pool
// draining a bounded queue of pending handshakes, trying each configured
// engine in order until one yields a password. Grounded on the teacher's
// wps.WPSEngine activeAttacks/cancelFuncs bookkeeping
// (internal/adapters/attack/wps/engine.go) and its health-check-then-run
// shape, generalized from a single tool (reaver) into the ordered
// john/hashcat/aircrack-ng fallback chain.
package crackpool

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jobsdonn/PenDonn/internal/adapters/toolrunner"
	"github.com/jobsdonn/PenDonn/internal/core/domain"
	"github.com/jobsdonn/PenDonn/internal/core/ports"
	"github.com/jobsdonn/PenDonn/internal/telemetry"
)

var tracer = otel.Tracer("crack-pool")

// Config holds the crack pool's tuning knobs (§4.F, §6).
type Config struct {
	Engines             []string // subset of {"john","hashcat","aircrack-ng"}, in try order
	WordlistPath        string
	MaxConcurrentCracks int
	JohnFormat          string // primary format; falls back to "wpapsk" on unknown-ciphertext
	HashcatMode         int
	IntakePollInterval  time.Duration // 10s
	FileWaitTimeout     time.Duration // 10s
	PerEngineTimeout    time.Duration // 3600s
}

// DefaultConfig returns the §4.F/§6 defaults.
func DefaultConfig() Config {
	return Config{
		Engines:             []string{"john", "hashcat", "aircrack-ng"},
		MaxConcurrentCracks: 2,
		JohnFormat:          "wpapsk-opencl",
		HashcatMode:         22000,
		IntakePollInterval:  10 * time.Second,
		FileWaitTimeout:     10 * time.Second,
		PerEngineTimeout:    3600 * time.Second,
	}
}

// Pool is the default ports.CrackPool implementation.
type Pool struct {
	cfg    Config
	runner ports.ToolRunner
	store  ports.Storage
	logger *slog.Logger

	queue    chan uint64
	mu       sync.Mutex
	inFlight map[string]bool // bssid -> in-flight, prevents re-queueing from repeated polls

	onKeyCracked func(domain.CrackedKey)
}

// OnKeyCracked registers a callback fired after a CrackedKey row is
// persisted, used by the orchestrator to trigger the enumeration phase
// (§4.H, §8 F5).
func (p *Pool) OnKeyCracked(fn func(domain.CrackedKey)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onKeyCracked = fn
}

// NewPool builds a crack Pool with a queue sized to 4x the worker count.
func NewPool(cfg Config, runner ports.ToolRunner, store ports.Storage, logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxConcurrentCracks <= 0 {
		cfg.MaxConcurrentCracks = 1
	}
	return &Pool{
		cfg:      cfg,
		runner:   runner,
		store:    store,
		logger:   logger,
		queue:    make(chan uint64, cfg.MaxConcurrentCracks*4),
		inFlight: make(map[string]bool),
	}
}

// Enqueue submits a handshake ID for cracking without blocking; if the
// queue is full the ID is dropped and a warning logged. It does not check
// whether the handshake's BSSID is already in flight.
func (p *Pool) Enqueue(id uint64) {
	select {
	case p.queue <- id:
	default:
		p.logger.Warn("crackpool: queue full, dropping handshake", "id", id)
	}
}

// Run starts the intake monitor and the worker pool, blocking until ctx
// is cancelled.
func (p *Pool) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.intakeLoop(ctx)
	}()

	for i := 0; i < p.cfg.MaxConcurrentCracks; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			p.workerLoop(ctx, worker)
		}(i)
	}

	wg.Wait()
}

// intakeLoop polls pending_handshakes() every IntakePollInterval and
// enqueues each row whose BSSID has no CrackedKey and is not already
// in-flight (§4.F Intake).
func (p *Pool) intakeLoop(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.IntakePollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pending, err := p.store.PendingHandshakes(ctx)
			if err != nil {
				p.logger.Warn("crackpool: pending_handshakes failed", "error", err)
				continue
			}
			for _, h := range pending {
				p.mu.Lock()
				already := p.inFlight[h.BSSID]
				p.mu.Unlock()
				if already {
					continue
				}
				if key, _ := p.store.KeyFor(ctx, h.BSSID); key != nil {
					continue
				}
				p.mu.Lock()
				p.inFlight[h.BSSID] = true
				p.mu.Unlock()
				p.Enqueue(h.ID)
			}
		}
	}
}

// workerLoop blocks on the queue (with a short poll period so shutdown is
// responsive) and drains one handshake at a time (§4.F worker loop).
func (p *Pool) workerLoop(ctx context.Context, worker int) {
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-p.queue:
			p.process(ctx, id)
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func (p *Pool) process(ctx context.Context, id uint64) {
	ctx, span := tracer.Start(ctx, "CrackHandshake")
	span.SetAttributes(attribute.Int64("crack.handshake_id", int64(id)))
	defer span.End()

	h, err := p.store.GetHandshake(ctx, id)
	if err != nil || h == nil {
		p.logger.Warn("crackpool: handshake not found", "id", id, "error", err)
		return
	}
	span.SetAttributes(attribute.String("crack.bssid", h.BSSID), attribute.String("crack.ssid", h.SSID))
	defer func() {
		p.mu.Lock()
		delete(p.inFlight, h.BSSID)
		p.mu.Unlock()
	}()

	if err := p.store.SetHandshakeStatus(ctx, id, domain.HandshakeStatusCracking); err != nil {
		p.logger.Warn("crackpool: pending->cracking transition failed", "id", id, "error", err)
		return
	}

	if !p.waitForCaptureFile(ctx, h.FilePath) {
		p.logger.Warn("crackpool: capture file missing or undersized, failing handshake", "id", id, "path", h.FilePath)
		_ = p.store.SetHandshakeStatus(ctx, id, domain.HandshakeStatusFailed)
		telemetry.CrackAttempts.WithLabelValues("none", "file_missing").Inc()
		return
	}

	for _, engine := range p.cfg.Engines {
		password, crackTime, ok := p.tryEngine(ctx, engine, h)
		if ok {
			key := domain.CrackedKey{
				HandshakeID:      id,
				SSID:             h.SSID,
				BSSID:            h.BSSID,
				Password:         password,
				Engine:           domain.CrackEngine(engine),
				CrackTimeSeconds: crackTime,
			}
			keyID, err := p.store.InsertCrackedKey(ctx, key)
			if err != nil {
				p.logger.Error("crackpool: failed to insert cracked key", "id", id, "error", err)
				continue
			}
			key.ID = keyID
			telemetry.CrackAttempts.WithLabelValues(engine, "success").Inc()
			p.logger.Info("crackpool: key recovered", "bssid", h.BSSID, "engine", engine)

			p.mu.Lock()
			onKeyCracked := p.onKeyCracked
			p.mu.Unlock()
			if onKeyCracked != nil {
				onKeyCracked(key)
			}
			return
		}
	}

	if err := p.store.SetHandshakeStatus(ctx, id, domain.HandshakeStatusFailed); err != nil {
		p.logger.Warn("crackpool: cracking->failed transition failed", "id", id, "error", err)
	}
}

// waitForCaptureFile waits up to FileWaitTimeout for the capture file to
// exist and exceed 1KB (§4.F step 3).
func (p *Pool) waitForCaptureFile(ctx context.Context, path string) bool {
	deadline := time.Now().Add(p.cfg.FileWaitTimeout)
	for time.Now().Before(deadline) {
		if info, err := os.Stat(path); err == nil && info.Size() >= 1024 {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(500 * time.Millisecond):
		}
	}
	info, err := os.Stat(path)
	return err == nil && info.Size() >= 1024
}

// tryEngine invokes the adapter entry for one engine (§4.F step 4) and
// reports whether a password was recovered.
func (p *Pool) tryEngine(ctx context.Context, engine string, h *domain.Handshake) (password string, crackTimeSeconds float64, ok bool) {
	ctx, span := tracer.Start(ctx, "CrackEngineAttempt")
	span.SetAttributes(attribute.String("crack.engine", engine), attribute.String("crack.bssid", h.BSSID))
	defer span.End()

	if err := p.runner.HealthCheck(engineBinary(engine)); err != nil {
		p.logger.Warn("crackpool: engine not installed, skipping", "engine", engine, "error", err)
		telemetry.CrackAttempts.WithLabelValues(engine, "tool_missing").Inc()
		return "", 0, false
	}

	start := time.Now()
	switch engine {
	case "john":
		password, ok = p.tryJohn(ctx, h)
	case "hashcat":
		password, ok = p.tryHashcat(ctx, h)
	case "aircrack-ng":
		password, ok = p.tryAircrack(ctx, h)
	default:
		p.logger.Warn("crackpool: unknown engine configured", "engine", engine)
		return "", 0, false
	}
	elapsed := time.Since(start).Seconds()

	outcome := "no_password"
	if ok {
		outcome = "success"
	}
	telemetry.CrackAttempts.WithLabelValues(engine, outcome).Inc()
	span.SetAttributes(attribute.String("crack.outcome", outcome), attribute.Float64("crack.elapsed_seconds", elapsed))
	return password, elapsed, ok
}

func engineBinary(engine string) string {
	switch engine {
	case "john":
		return "john"
	case "hashcat":
		return "hashcat"
	case "aircrack-ng":
		return "aircrack-ng"
	default:
		return engine
	}
}

// tryJohn converts via hcx2john, tries JohnFormat then falls back to
// "wpapsk" on "Unknown ciphertext format", then parses `john --show`.
func (p *Pool) tryJohn(ctx context.Context, h *domain.Handshake) (string, bool) {
	johnHash := h.FilePath + ".john"
	result, err := p.runner.Run(ctx, "hcx2john", []string{h.FilePath}, 60*time.Second, nil)
	if err != nil || !toolrunner.Hcx2JohnHasHandshake(result.Stdout) {
		p.logger.Warn("crackpool: hcx2john produced no handshake", "bssid", h.BSSID, "error", err)
		return "", false
	}
	if err := os.WriteFile(johnHash, []byte(result.Stdout), 0o644); err != nil {
		p.logger.Error("crackpool: failed to write john hash file", "error", err)
		return "", false
	}

	formats := []string{p.cfg.JohnFormat, "wpapsk"}
	for _, format := range formats {
		args := []string{fmt.Sprintf("--format=%s", format), "--wordlist=" + p.cfg.WordlistPath, johnHash}
		runResult, err := p.runner.Run(ctx, "john", args, p.cfg.PerEngineTimeout, nil)
		if err != nil && strings.Contains(strings.ToLower(runResult.Stdout+runResult.Stderr), "unknown ciphertext format") {
			continue
		}

		showResult, showErr := p.runner.Run(ctx, "john", []string{"--show", johnHash}, 30*time.Second, nil)
		if showErr != nil {
			continue
		}
		for _, r := range toolrunner.ParseJohnShow(showResult.Stdout) {
			if r.SSID == h.SSID || r.SSID == h.BSSID {
				return r.Password, true
			}
		}
		if results := toolrunner.ParseJohnShow(showResult.Stdout); len(results) > 0 {
			return results[0].Password, true
		}
		break
	}
	return "", false
}

// tryHashcat converts via hcxpcapngtool, runs hashcat -m <mode> -a 0,
// and parses the -o output file.
func (p *Pool) tryHashcat(ctx context.Context, h *domain.Handshake) (string, bool) {
	hashFile := h.FilePath + ".22000"
	crackedFile := hashFile + ".cracked"

	if _, err := p.runner.Run(ctx, "hcxpcapngtool", []string{"-o", hashFile, h.FilePath}, 60*time.Second, nil); err != nil {
		p.logger.Warn("crackpool: hcxpcapngtool conversion failed", "bssid", h.BSSID, "error", err)
		return "", false
	}
	if info, err := os.Stat(hashFile); err != nil || info.Size() == 0 {
		return "", false
	}

	args := []string{
		"-m", fmt.Sprintf("%d", p.cfg.HashcatMode), "-a", "0",
		hashFile, p.cfg.WordlistPath, "-o", crackedFile, "--force",
	}
	if _, err := p.runner.Run(ctx, "hashcat", args, p.cfg.PerEngineTimeout, nil); err != nil {
		p.logger.Debug("crackpool: hashcat exited non-zero (may just mean exhausted)", "error", err)
	}

	content, err := os.ReadFile(crackedFile)
	if err != nil {
		return "", false
	}
	return toolrunner.ParseHashcatCrackedFile(string(content))
}

// tryAircrack runs directly on the .cap; accepts either the -l file's
// contents or a "KEY FOUND! [ password ]" stdout line.
func (p *Pool) tryAircrack(ctx context.Context, h *domain.Handshake) (string, bool) {
	outFile := h.FilePath + ".aircrack.out"
	args := []string{"-w", p.cfg.WordlistPath, "-b", h.BSSID, "-l", outFile, h.FilePath}

	result, err := p.runner.Run(ctx, "aircrack-ng", args, p.cfg.PerEngineTimeout, nil)
	if err != nil {
		p.logger.Debug("crackpool: aircrack-ng exited non-zero", "error", err)
	}

	var lFileContent string
	if data, readErr := os.ReadFile(outFile); readErr == nil {
		lFileContent = string(data)
	}
	return toolrunner.ParseAircrackOutput(lFileContent, result.Stdout)
}

var _ ports.CrackPool = (*Pool)(nil)
