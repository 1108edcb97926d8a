// Package orchestrator wires every adapter into one running process and
// owns the startup/shutdown sequence. Components are built in the order
// Evidence Store -> Interface Registry -> Tool Adapter -> Scheduler ->
// Capture Engine -> Scan Loop -> Crack Pool -> Plugins -> Enumeration
// Phase -> status surfaces. On shutdown every background loop stops on the
// same context cancellation, with no ordering between them; cleanup then
// restores interface modes, closes the store and shuts down the tracer.
// Grounded on the teacher's
// app.Application facade (internal/app/app.go): its bootstrap()/Run()/
// cleanup() shape, generalized from the teacher's device-sniffing pipeline
// into PenDonn's scan/capture/crack/enumerate pipeline.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jobsdonn/PenDonn/internal/adapters/capture"
	"github.com/jobsdonn/PenDonn/internal/adapters/crackpool"
	"github.com/jobsdonn/PenDonn/internal/adapters/enumeration"
	"github.com/jobsdonn/PenDonn/internal/adapters/grpchealth"
	"github.com/jobsdonn/PenDonn/internal/adapters/plugins"
	"github.com/jobsdonn/PenDonn/internal/adapters/registry"
	"github.com/jobsdonn/PenDonn/internal/adapters/scanner"
	"github.com/jobsdonn/PenDonn/internal/adapters/statusfeed"
	"github.com/jobsdonn/PenDonn/internal/adapters/storage"
	"github.com/jobsdonn/PenDonn/internal/adapters/toolrunner"
	"github.com/jobsdonn/PenDonn/internal/config"
	"github.com/jobsdonn/PenDonn/internal/core/domain"
	"github.com/jobsdonn/PenDonn/internal/core/ports"
	"github.com/jobsdonn/PenDonn/internal/core/services/scheduler"
	"github.com/jobsdonn/PenDonn/internal/telemetry"
)

// Orchestrator is the facade tying every component together for one run.
type Orchestrator struct {
	Config *config.Config
	logger *slog.Logger

	Registry    ports.InterfaceRegistry
	Store       ports.Storage
	Runner      ports.ToolRunner
	Scheduler   *scheduler.Scheduler
	Capture     *capture.Engine
	ScanLoop    *scanner.Loop
	CrackPool   *crackpool.Pool
	Enumeration *enumeration.Phase
	Plugins     []ports.Plugin

	StatusFeed *statusfeed.Server
	GRPCHealth *grpchealth.Server

	heartbeatInterval time.Duration
	shutdownTracer    func(context.Context) error
}

// New builds an Orchestrator and bootstraps every component. Nothing is
// started yet; call Run to begin the background loops.
func New(cfg *config.Config, logger *slog.Logger) (*Orchestrator, error) {
	if logger == nil {
		logger = slog.Default()
	}

	o := &Orchestrator{
		Config:            cfg,
		logger:            logger,
		heartbeatInterval: 30 * time.Second,
	}
	if err := o.bootstrap(); err != nil {
		return nil, fmt.Errorf("orchestrator bootstrap: %w", err)
	}
	return o, nil
}

func (o *Orchestrator) bootstrap() error {
	cfg := o.Config
	telemetry.InitMetrics()

	shutdownTracer, err := telemetry.InitTracer()
	if err != nil {
		o.logger.Warn("orchestrator: tracer initialization failed, tracing disabled", "error", err)
	} else {
		o.shutdownTracer = shutdownTracer
	}

	store, err := storage.NewSQLiteAdapter(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initializing evidence store: %w", err)
	}
	o.Store = store

	reg := registry.NewRegistry(registry.Config{
		MonitorMAC:          cfg.MonitorMAC,
		AttackMAC:           cfg.AttackMAC,
		ManagementMAC:       cfg.ManagementMAC,
		MonitorInterface:    cfg.MonitorInterface,
		AttackInterface:     cfg.AttackInterface,
		Management:          cfg.ManagementInterface,
		SingleInterfaceMode: cfg.SingleInterfaceMode,
	}, nil, o.logger)
	if err := reg.Resolve(context.Background()); err != nil {
		o.logger.Warn("orchestrator: interface registry resolution failed, continuing degraded", "error", err)
	}
	o.Registry = reg

	if cfg.MockMode {
		o.logger.Info("orchestrator: running in mock mode, tool adapter calls are scripted; airodump-ng and interface commands still run for real")
		o.Runner = toolrunner.NewMockRunner()
	} else {
		o.Runner = toolrunner.NewRunner(1 << 20)
	}

	o.Scheduler = scheduler.New(o.logger)

	o.Capture = capture.NewEngine(capture.Config{
		HandshakeDir:       cfg.HandshakeDir,
		HandshakeTimeout:   time.Duration(cfg.HandshakeTimeout) * time.Second,
		CooldownSeconds:    cfg.CooldownSeconds,
		DeauthBurstSize:    cfg.DeauthBurstSize,
		DeauthBurstCount:   cfg.DeauthBurstCount,
		DeauthBurstSpacing: time.Duration(cfg.DeauthBurstSpacing) * time.Second,
		WarmUp:             2 * time.Second,
		DeauthGrace:        5 * time.Second,
		VerifyInterval:     5 * time.Second,
		VerifyMinDelay:     10 * time.Second,
	}, o.Registry, o.Runner, o.Store, o.Scheduler, o.logger)

	o.ScanLoop = scanner.NewLoop(scanner.Config{
		ScanResultsDir: cfg.ScanResultsDir,
		ScanWindow:     10 * time.Second,
		PollInterval:   1 * time.Second,
		RetainCSVs:     5,
		WhitelistSSIDs: cfg.WhitelistSSIDs,
	}, o.Registry, o.Runner, o.Store, o.Scheduler, o.Capture, o.logger)

	o.CrackPool = crackpool.NewPool(crackpool.Config{
		Engines:             cfg.CrackingEngines,
		WordlistPath:        cfg.WordlistPath,
		MaxConcurrentCracks: cfg.MaxConcurrentCracks,
		JohnFormat:          cfg.JohnFormat,
		HashcatMode:         cfg.HashcatMode,
		IntakePollInterval:  10 * time.Second,
		FileWaitTimeout:     10 * time.Second,
		PerEngineTimeout:    3600 * time.Second,
	}, o.Runner, o.Store, o.logger)

	factories := map[string]func(plugins.Descriptor) ports.Plugin{
		"smb_scanner": func(d plugins.Descriptor) ports.Plugin {
			return plugins.NewSMBScanner(d, o.Runner, o.Store, o.logger)
		},
	}
	loader := plugins.NewLoader(factories, o.logger)
	loadedPlugins, err := loader.LoadDir("./plugins")
	if err != nil {
		o.logger.Warn("orchestrator: plugin discovery failed", "error", err)
	}
	o.Plugins = loadedPlugins

	o.Enumeration = enumeration.NewPhase(enumeration.Config{
		SupplicantConfDir: "./data/wpa_supplicant",
		NmapTiming:        cfg.NmapTiming,
		PortScanRange:     cfg.PortScanRange,
		ScanTimeout:       time.Duration(cfg.ScanTimeout) * time.Second,
		DHCPTimeout:       30 * time.Second,
	}, o.Registry, o.Runner, o.Store, o.Scheduler, o.Plugins, o.logger)

	if cfg.AutoScanOnCrack && cfg.EnumerationEnabled {
		o.CrackPool.OnKeyCracked(func(key domain.CrackedKey) {
			go o.enumerateOnCrack(key)
		})
	}

	o.StatusFeed = statusfeed.New(cfg.StatusAddr, o.logger)
	o.GRPCHealth = grpchealth.New(fmt.Sprintf(":%d", cfg.GRPCPort), o.logger)

	return nil
}

// enumerateOnCrack looks up the cracked network and runs the enumeration
// phase against it, isolating any failure from the crack pool's worker
// loop (§4.G, §4.H wiring).
func (o *Orchestrator) enumerateOnCrack(key domain.CrackedKey) {
	ctx := context.Background()
	network, err := o.Store.GetNetwork(ctx, key.BSSID)
	if err != nil || network == nil {
		o.logger.Error("orchestrator: cracked key references unknown network", "bssid", key.BSSID, "error", err)
		return
	}
	if err := o.Enumeration.Run(ctx, *network, key); err != nil {
		o.logger.Error("orchestrator: enumeration phase failed", "bssid", key.BSSID, "error", err)
	}
}

// Run starts every background loop and blocks until ctx is cancelled or a
// component fails, waits for all loops to return (they stop together on
// ctx, in no particular order), then runs cleanup.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.Info("orchestrator: starting")

	var wg sync.WaitGroup
	errChan := make(chan error, 4)

	wg.Add(1)
	go func() {
		defer wg.Done()
		o.ScanLoop.Run(ctx)
	}()

	if o.Config.CrackingEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o.CrackPool.Run(ctx)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := o.StatusFeed.Run(ctx); err != nil {
			errChan <- fmt.Errorf("statusfeed: %w", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		o.GRPCHealth.SetServing(true)
		if err := o.GRPCHealth.Run(ctx); err != nil {
			errChan <- fmt.Errorf("grpc health: %w", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		o.heartbeatLoop(ctx)
	}()

	o.logger.Info("orchestrator: ready")

	select {
	case <-ctx.Done():
		o.logger.Info("orchestrator: shutdown signal received")
	case err := <-errChan:
		o.logger.Error("orchestrator: component failed", "error", err)
	}

	wg.Wait()
	return o.cleanup()
}

// heartbeatLoop publishes the §4.H 30-second heartbeat to the status feed.
func (o *Orchestrator) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(o.heartbeatInterval)
	defer ticker.Stop()

	o.publishHeartbeat(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.publishHeartbeat(ctx)
		}
	}
}

func (o *Orchestrator) publishHeartbeat(ctx context.Context) {
	stats, err := o.Store.Statistics(ctx)
	if err != nil {
		o.logger.Warn("orchestrator: failed to read statistics for heartbeat", "error", err)
		return
	}
	o.StatusFeed.Publish(statusfeed.Heartbeat{
		Timestamp:         time.Now(),
		Networks:          stats.Networks,
		Handshakes:        stats.Handshakes,
		CrackedKeys:       stats.CrackedKeys,
		Scans:             stats.Scans,
		Vulnerabilities:   stats.Vulnerabilities,
		EnumerationActive: o.Scheduler.EnumerationActive(),
		ActiveCaptures:    o.Scheduler.ActiveCaptureCount(),
	})
}

// cleanup releases everything bootstrap acquired, always running to
// completion even if individual steps fail (§4.H, grounded on the
// teacher's Application.cleanup()).
func (o *Orchestrator) cleanup() error {
	o.logger.Info("orchestrator: cleaning up")

	if err := o.Registry.RestoreOriginalModes(context.Background()); err != nil {
		o.logger.Warn("orchestrator: failed to restore original interface modes", "error", err)
	}
	if o.Store != nil {
		if err := o.Store.Close(); err != nil {
			o.logger.Warn("orchestrator: failed to close evidence store", "error", err)
		}
	}
	if o.shutdownTracer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := o.shutdownTracer(shutdownCtx); err != nil {
			o.logger.Warn("orchestrator: failed to shut down tracer provider", "error", err)
		}
	}
	return nil
}
