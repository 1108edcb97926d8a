// Package enumeration implements the Enumeration Phase (§4.G): on key
// recovery, seize the attack NIC from the radio scheduler, associate to
// the cracked network, run host discovery, port scanning, built-in
// vulnerability rules and plugins, and unconditionally restore the NIC's
// original mode. Grounded on the teacher's
// network.AttackCoordinator auto-detection-then-delegate shape
// (internal/core/services/network/attack_coordinator.go) and the
// always-run cleanup() in internal/app/app.go, generalized from
// attack-engine dispatch into the seize/associate/discover/scan/release
// pipeline.
package enumeration

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jobsdonn/PenDonn/internal/core/domain"
	"github.com/jobsdonn/PenDonn/internal/core/ports"
	"github.com/jobsdonn/PenDonn/internal/core/services/scheduler"
	"github.com/jobsdonn/PenDonn/internal/telemetry"
)

var tracer = otel.Tracer("enumeration-phase")

// Config holds the enumeration phase's tuning knobs (§4.G, §6).
type Config struct {
	SupplicantConfDir string
	NmapTiming        string // e.g. "-T4"
	PortScanRange     string // e.g. "21-23,80,139,443,445,3389,5900,8080"
	ScanTimeout       time.Duration
	DHCPTimeout       time.Duration // 30s ceiling
}

// DefaultConfig returns the §6 defaults.
func DefaultConfig() Config {
	return Config{
		SupplicantConfDir: "./data/wpa_supplicant",
		NmapTiming:        "-T4",
		PortScanRange:     "21-23,80,139,443,445,3389,5900,8080",
		ScanTimeout:       300 * time.Second,
		DHCPTimeout:       30 * time.Second,
	}
}

// Phase is the default ports.EnumerationPhase implementation.
type Phase struct {
	cfg       Config
	registry  ports.InterfaceRegistry
	runner    ports.ToolRunner
	store     ports.Storage
	scheduler *scheduler.Scheduler
	plugins   []ports.Plugin
	logger    *slog.Logger
}

// NewPhase builds an enumeration Phase.
func NewPhase(cfg Config, registry ports.InterfaceRegistry, runner ports.ToolRunner, store ports.Storage, sched *scheduler.Scheduler, plugins []ports.Plugin, logger *slog.Logger) *Phase {
	if logger == nil {
		logger = slog.Default()
	}
	return &Phase{
		cfg:       cfg,
		registry:  registry,
		runner:    runner,
		store:     store,
		scheduler: sched,
		plugins:   plugins,
		logger:    logger,
	}
}

// Run executes the full phase for network/key (§4.G). Any failure records
// a partial Scan result; NIC restoration always runs via the release step.
func (p *Phase) Run(ctx context.Context, network domain.Network, key domain.CrackedKey) error {
	ctx, span := tracer.Start(ctx, "EnumerationPhase")
	span.SetAttributes(
		attribute.String("enumeration.bssid", network.BSSID),
		attribute.String("enumeration.ssid", network.SSID),
	)
	defer span.End()

	if existing, err := p.store.GetScanForNetwork(ctx, network.ID, domain.ScanTypeEnumeration); err == nil && existing != nil {
		return nil
	}

	scanID, err := p.store.InsertScan(ctx, domain.Scan{
		NetworkID: network.ID,
		SSID:      network.SSID,
		ScanType:  domain.ScanTypeEnumeration,
		Status:    domain.ScanStatusRunning,
	})
	if err != nil {
		return fmt.Errorf("inserting scan row: %w", err)
	}

	partial := map[string]interface{}{}
	outcome := "completed"
	defer func() {
		results, _ := json.Marshal(partial)
		status := domain.ScanStatusCompleted
		if outcome != "completed" {
			status = domain.ScanStatusFailed
		}
		vulnCount, _ := partial["vulnerabilities_found"].(int)
		_ = p.store.UpdateScan(ctx, scanID, status, string(results), vulnCount)
		telemetry.EnumerationRuns.WithLabelValues(outcome).Inc()
		span.SetAttributes(attribute.String("enumeration.outcome", outcome))
	}()

	// 1. Safety: refuse if the management NIC is currently associated to
	// this SSID (§4.G step 1, §8 S6).
	if associated, ssid := p.managementAssociatedSSID(ctx); associated && ssid == network.SSID {
		partial["error"] = "safety_check"
		partial["detail"] = "management interface is associated to the target SSID"
		outcome = "safety_refused"
		p.logger.Error("enumeration: refusing to enumerate, management NIC associated to target SSID", "ssid", network.SSID)
		return ports.NewError(ports.KindHostSafety, "management interface associated to target SSID", nil)
	}

	// 2. Seize.
	if err := p.scheduler.PauseForEnumeration(ctx); err != nil {
		partial["error"] = "seize_failed"
		outcome = "failed"
		return err
	}
	telemetry.EnumerationActive.Set(1)
	defer func() {
		p.release(context.Background())
		telemetry.EnumerationActive.Set(0)
		p.scheduler.ResumeFromEnumeration()
	}()

	attackNIC := p.registry.Attack()
	if err := p.registry.AssertNotManagement(attackNIC); err != nil {
		partial["error"] = "host_safety"
		outcome = "failed"
		return err
	}
	if err := p.registry.DisableMonitorMode(ctx, attackNIC); err != nil {
		partial["error"] = "mode_switch_failed"
		outcome = "failed"
		return fmt.Errorf("switching attack nic to managed: %w", err)
	}

	// 3. Associate.
	associateCtx, associateSpan := tracer.Start(ctx, "EnumerationAssociate")
	err = p.associate(associateCtx, attackNIC, network.SSID, key.Password)
	associateSpan.End()
	if err != nil {
		partial["error"] = "association_failed"
		partial["detail"] = err.Error()
		outcome = "failed"
		return err
	}

	// 4. Discover.
	discoverCtx, discoverSpan := tracer.Start(ctx, "EnumerationDiscoverHosts")
	cidr, err := p.interfaceCIDR(discoverCtx, attackNIC)
	if err != nil {
		discoverSpan.End()
		partial["error"] = "discover_failed"
		partial["detail"] = err.Error()
		outcome = "failed"
		return err
	}
	hosts := p.discoverHosts(discoverCtx, cidr)
	discoverSpan.SetAttributes(attribute.Int("enumeration.hosts_discovered", len(hosts)))
	discoverSpan.End()
	partial["hosts_discovered"] = len(hosts)
	if len(hosts) == 0 {
		return nil
	}

	// 5. Scan hosts.
	scanCtx, scanSpan := tracer.Start(ctx, "EnumerationScanHosts")
	scanResults := make(map[string]ports.HostRecord, len(hosts))
	var hostRecords []ports.HostRecord
	for _, ip := range hosts {
		record := p.scanHost(scanCtx, ip)
		record.IP = ip
		scanResults[ip] = record
		hostRecords = append(hostRecords, record)
	}
	scanSpan.End()

	// 6. Built-in vuln rules (+anonymous FTP probe).
	vulnCount := p.applyBuiltinRules(ctx, scanID, hostRecords)

	// 7. Plugins.
	vulnCount += p.runPlugins(ctx, scanID, hostRecords, scanResults)

	partial["vulnerabilities_found"] = vulnCount
	return nil
}

// managementAssociatedSSID reports whether the management NIC currently
// carries an association and, if so, to which SSID (§4.G step 1). Uses
// `iwgetid -r` rather than `iw <nic> link`: the safety check itself must
// never issue iw/ip against the management interface (§8 S6).
func (p *Phase) managementAssociatedSSID(ctx context.Context) (bool, string) {
	management := p.registry.Management()
	result, err := p.runner.Run(ctx, "iwgetid", []string{management, "-r"}, 5*time.Second, nil)
	if err != nil {
		return false, ""
	}
	ssid := strings.TrimSpace(result.Stdout)
	if ssid == "" {
		return false, ""
	}
	return true, ssid
}

// associate writes a wpa_supplicant config, starts it, then acquires DHCP
// via dhcpcd if present else dhclient, with a 30-second ceiling. Verifies
// an inet address is present before returning (§4.G step 3).
func (p *Phase) associate(ctx context.Context, nic, ssid, psk string) error {
	if err := os.MkdirAll(p.cfg.SupplicantConfDir, 0o755); err != nil {
		return fmt.Errorf("creating supplicant conf dir: %w", err)
	}
	confPath := filepath.Join(p.cfg.SupplicantConfDir, sanitizeName(ssid)+".conf")
	conf := fmt.Sprintf("network={\n\tssid=\"%s\"\n\tpsk=\"%s\"\n}\n", escapeConf(ssid), escapeConf(psk))
	if err := os.WriteFile(confPath, []byte(conf), 0o600); err != nil {
		return fmt.Errorf("writing supplicant conf: %w", err)
	}

	if _, err := p.runner.Run(ctx, "wpa_supplicant", []string{"-B", "-i", nic, "-c", confPath}, 15*time.Second, nil); err != nil {
		return fmt.Errorf("starting wpa_supplicant: %w", err)
	}

	dhcpBin := "dhcpcd"
	if err := p.runner.HealthCheck(dhcpBin); err != nil {
		dhcpBin = "dhclient"
	}
	if _, err := p.runner.Run(ctx, dhcpBin, []string{nic}, p.cfg.DHCPTimeout, nil); err != nil {
		return fmt.Errorf("acquiring dhcp lease: %w", err)
	}

	if !p.hasInetAddress(ctx, nic) {
		return fmt.Errorf("no inet address on %s after dhcp", nic)
	}
	return nil
}

func (p *Phase) hasInetAddress(ctx context.Context, nic string) bool {
	result, err := p.runner.Run(ctx, "ip", []string{"addr", "show", nic}, 5*time.Second, nil)
	if err != nil {
		return false
	}
	return strings.Contains(result.Stdout, "inet ")
}

// interfaceCIDR parses the NIC's CIDR from `ip addr show` (§4.G step 4).
func (p *Phase) interfaceCIDR(ctx context.Context, nic string) (string, error) {
	result, err := p.runner.Run(ctx, "ip", []string{"addr", "show", nic}, 5*time.Second, nil)
	if err != nil {
		return "", err
	}
	scanner := bufio.NewScanner(strings.NewReader(result.Stdout))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "inet ") {
			fields := strings.Fields(line)
			if len(fields) >= 2 {
				ip, ipnet, err := net.ParseCIDR(fields[1])
				if err != nil {
					continue
				}
				_ = ip
				return ipnet.String(), nil
			}
		}
	}
	return "", fmt.Errorf("no inet address found on %s", nic)
}

// discoverHosts nmap ping-scans the subnet with the configured timing
// template (§4.G step 4).
func (p *Phase) discoverHosts(ctx context.Context, cidr string) []string {
	result, err := p.runner.Run(ctx, "nmap", []string{"-sn", p.cfg.NmapTiming, cidr}, p.cfg.ScanTimeout, nil)
	if err != nil {
		p.logger.Warn("enumeration: ping-scan failed", "error", err)
		return nil
	}
	return parsePingScanHosts(result.Stdout)
}

// scanHost runs nmap -sV over the configured port range for one host
// (§4.G step 5).
func (p *Phase) scanHost(ctx context.Context, ip string) ports.HostRecord {
	result, err := p.runner.Run(ctx, "nmap",
		[]string{"-sV", p.cfg.NmapTiming, "-p", p.cfg.PortScanRange, ip},
		p.cfg.ScanTimeout, nil)
	if err != nil {
		p.logger.Debug("enumeration: host scan failed", "host", ip, "error", err)
	}
	return parseHostScan(result.Stdout)
}

// applyBuiltinRules emits the fixed port -> vulnerability rows of §4.G
// step 6, plus the anonymous-FTP probe on any host with port 21 open.
func (p *Phase) applyBuiltinRules(ctx context.Context, scanID uint64, hosts []ports.HostRecord) int {
	count := 0
	for _, host := range hosts {
		for _, port := range host.Ports {
			rule, ok := builtinPortRules[port.Port]
			if !ok {
				continue
			}
			if p.insertRuleVuln(ctx, scanID, host.IP, port.Port, rule) {
				count++
			}
			if port.Port == 21 && p.probeAnonymousFTP(ctx, host.IP) {
				if p.insertRuleVuln(ctx, scanID, host.IP, port.Port, anonymousFTPRule) {
					count++
				}
			}
		}
	}
	return count
}

func (p *Phase) insertRuleVuln(ctx context.Context, scanID uint64, host string, port int, rule portRule) bool {
	portCopy := port
	_, err := p.store.InsertVulnerability(ctx, domain.Vulnerability{
		ScanID:      scanID,
		Host:        host,
		Port:        &portCopy,
		Service:     rule.service,
		VulnType:    rule.vulnType,
		Severity:    rule.severity,
		Description: rule.description,
		PluginName:  "builtin",
	})
	if err != nil {
		p.logger.Warn("enumeration: failed to insert vulnerability", "host", host, "error", err)
		return false
	}
	return true
}

// probeAnonymousFTP attempts an anonymous FTP login against host (§4.G
// step 6).
func (p *Phase) probeAnonymousFTP(ctx context.Context, host string) bool {
	url := fmt.Sprintf("ftp://anonymous:anonymous@%s/", host)
	result, err := p.runner.Run(ctx, "curl", []string{"-s", "--connect-timeout", "5", url}, 10*time.Second, nil)
	return err == nil && result.ExitCode == 0
}

// runPlugins invokes every loaded plugin, isolating panics/errors so a
// single misbehaving plugin never aborts the phase (§4.G step 7, §7).
func (p *Phase) runPlugins(ctx context.Context, scanID uint64, hosts []ports.HostRecord, scanResults map[string]ports.HostRecord) (count int) {
	for _, plugin := range p.plugins {
		if !plugin.Enabled() {
			continue
		}
		count += p.runPluginIsolated(ctx, plugin, scanID, hosts, scanResults)
	}
	return count
}

func (p *Phase) runPluginIsolated(ctx context.Context, plugin ports.Plugin, scanID uint64, hosts []ports.HostRecord, scanResults map[string]ports.HostRecord) (count int) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("enumeration: plugin panicked", "plugin", plugin.Name(), "panic", r)
		}
	}()
	result, err := plugin.Run(ctx, scanID, hosts, scanResults)
	if err != nil {
		p.logger.Warn("enumeration: plugin returned an error", "plugin", plugin.Name(), "error", err)
		return 0
	}
	return result.Vulnerabilities
}

// release always disconnects, releases DHCP, and switches the attack NIC
// back to monitor mode, falling back to legacy ifconfig/iwconfig on any
// failure (§4.G step 8).
func (p *Phase) release(ctx context.Context) {
	attackNIC := p.registry.Attack()
	if err := p.registry.AssertNotManagement(attackNIC); err != nil {
		p.logger.Error("enumeration: refusing to release management NIC", "error", err)
		return
	}

	_, _ = p.runner.Run(ctx, "pkill", []string{"-f", "wpa_supplicant.*" + attackNIC}, 5*time.Second, nil)
	_, _ = p.runner.Run(ctx, "dhcpcd", []string{"-k", attackNIC}, 5*time.Second, nil)

	if err := p.registry.EnableMonitorMode(ctx, attackNIC); err != nil {
		p.logger.Warn("enumeration: normal monitor-mode restore failed, attempting legacy fallback", "error", err)
		p.emergencyRestoreMonitorMode(ctx, attackNIC)
	}
}

// emergencyRestoreMonitorMode is the legacy ifconfig/iwconfig path used
// when the normal ip/iw restoration fails (§4.G step 8).
func (p *Phase) emergencyRestoreMonitorMode(ctx context.Context, nic string) {
	if err := p.registry.AssertNotManagement(nic); err != nil {
		return
	}
	_, _ = p.runner.Run(ctx, "ifconfig", []string{nic, "down"}, 5*time.Second, nil)
	_, _ = p.runner.Run(ctx, "iwconfig", []string{nic, "mode", "monitor"}, 5*time.Second, nil)
	_, _ = p.runner.Run(ctx, "ifconfig", []string{nic, "up"}, 5*time.Second, nil)
}

func sanitizeName(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			out = append(out, c)
		} else {
			out = append(out, '_')
		}
	}
	if len(out) == 0 {
		return "unnamed"
	}
	return string(out)
}

func escapeConf(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}

var _ ports.EnumerationPhase = (*Phase)(nil)
