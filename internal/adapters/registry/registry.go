// Package registry implements the Interface Registry (§4.A), grounded on
// the teacher's driver.WirelessDriver: a CommandExecutor seam over `iw`
// and `ip link`, generalized from single-interface monitor-mode toggling
// into MAC-keyed role resolution across three NICs.
package registry

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"

	"github.com/jobsdonn/PenDonn/internal/core/domain"
	"github.com/jobsdonn/PenDonn/internal/core/ports"
)

// CommandExecutor abstracts system command execution so tests never shell
// out to a real `iw`/`ip` binary.
type CommandExecutor interface {
	Execute(ctx context.Context, name string, args ...string) ([]byte, error)
}

// SystemCommandExecutor implements CommandExecutor using os/exec.
type SystemCommandExecutor struct{}

func (SystemCommandExecutor) Execute(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Config is the subset of the application Config the registry needs.
type Config struct {
	MonitorMAC, AttackMAC, ManagementMAC          string
	MonitorInterface, AttackInterface, Management string
	SingleInterfaceMode                           bool
}

// Registry implements ports.InterfaceRegistry.
type Registry struct {
	cfg      Config
	executor CommandExecutor
	logger   *slog.Logger

	mu         sync.RWMutex
	roles      domain.InterfaceRoleMap
	resolved   bool
	origModes  map[string]string // nic -> mode at startup, for restoration
}

// NewRegistry builds a Registry. If executor is nil, SystemCommandExecutor
// is used.
func NewRegistry(cfg Config, executor CommandExecutor, logger *slog.Logger) *Registry {
	if executor == nil {
		executor = SystemCommandExecutor{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		cfg:       cfg,
		executor:  executor,
		logger:    logger,
		origModes: make(map[string]string),
	}
}

// Resolve enumerates link-layer devices by MAC and binds each configured
// role to its current NIC name (§4.A). A legacy name-based fallback is
// permitted only when SingleInterfaceMode is set, and always logs a
// warning.
func (r *Registry) Resolve(ctx context.Context) error {
	macToName, err := r.macToNICMap(ctx)
	if err != nil {
		return ports.NewError(ports.KindToolFailure, "enumerating link-layer devices", err)
	}

	roles := domain.InterfaceRoleMap{ResolvedBy: make(map[domain.Role]string)}

	monitor, err := r.resolveRole(domain.RoleMonitor, r.cfg.MonitorMAC, r.cfg.MonitorInterface, macToName, &roles)
	if err != nil {
		return err
	}
	attack, err := r.resolveRole(domain.RoleAttack, r.cfg.AttackMAC, r.cfg.AttackInterface, macToName, &roles)
	if err != nil {
		return err
	}
	management, err := r.resolveRole(domain.RoleManagement, r.cfg.ManagementMAC, r.cfg.Management, macToName, &roles)
	if err != nil {
		return err
	}

	roles.Monitor, roles.Attack, roles.Management = monitor, attack, management

	r.mu.Lock()
	r.roles = roles
	r.resolved = true
	r.mu.Unlock()

	r.logger.Info("interface registry resolved", "monitor", monitor, "attack", attack, "management", management)

	// Force and record the monitor NIC's mode at startup so
	// RestoreOriginalModes can put it back after a crash or stop, per §8's
	// "monitor -> monitor at startup" post-condition. Unlike the attack
	// NIC, nothing else in the core ever calls EnableMonitorMode on it.
	if err := r.EnableMonitorMode(ctx, monitor); err != nil {
		r.logger.Warn("interface registry: failed to enable monitor mode on the monitor NIC at startup", "nic", monitor, "error", err)
	}
	return nil
}

func (r *Registry) resolveRole(role domain.Role, mac, legacyName string, macToName map[string]string, roles *domain.InterfaceRoleMap) (string, error) {
	if mac != "" {
		if name, ok := macToName[strings.ToLower(mac)]; ok {
			roles.ResolvedBy[role] = "mac"
			return name, nil
		}
	}

	if r.cfg.SingleInterfaceMode && legacyName != "" {
		r.logger.Warn("falling back to legacy name-based interface resolution",
			"role", role, "interface", legacyName,
			"reason", "MAC lookup failed or MAC not configured")
		roles.ResolvedBy[role] = "name-fallback"
		return legacyName, nil
	}

	return "", ports.NewError(ports.KindHostSafety,
		fmt.Sprintf("cannot resolve role %s: MAC lookup failed and single-interface-mode is not enabled", role), nil)
}

// macToNICMap runs `ip link show` and builds a lowercase-MAC -> NIC name
// index.
func (r *Registry) macToNICMap(ctx context.Context) (map[string]string, error) {
	out, err := r.executor.Execute(ctx, "ip", "link", "show")
	if err != nil {
		return nil, err
	}

	result := make(map[string]string)
	scanner := bufio.NewScanner(bytes.NewReader(out))
	var currentIface string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if len(line) > 0 && line[0] >= '0' && line[0] <= '9' {
			fields := strings.Fields(line)
			if len(fields) >= 2 {
				currentIface = strings.TrimSuffix(strings.TrimSuffix(fields[1], ":"), "@NONE")
			}
			continue
		}
		if strings.HasPrefix(line, "link/ether") {
			fields := strings.Fields(line)
			if len(fields) >= 2 && currentIface != "" {
				result[strings.ToLower(fields[1])] = currentIface
			}
		}
	}
	return result, nil
}

func (r *Registry) Monitor() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.roles.Monitor
}

func (r *Registry) Attack() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.roles.Attack
}

func (r *Registry) Management() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.roles.Management
}

// AssertNotManagement is the non-negotiable safety gate: every downstream
// call site that takes a NIC name must call this first.
func (r *Registry) AssertNotManagement(nic string) error {
	r.mu.RLock()
	management := r.roles.Management
	r.mu.RUnlock()

	if nic != "" && nic == management {
		return ports.NewError(ports.KindHostSafety,
			fmt.Sprintf("refusing to operate on management interface %s", nic), nil)
	}
	return nil
}

func (r *Registry) EnableMonitorMode(ctx context.Context, nic string) error {
	if err := r.AssertNotManagement(nic); err != nil {
		return err
	}
	r.rememberOriginalMode(ctx, nic)

	if err := r.run(ctx, "ip", "link", "set", nic, "down"); err != nil {
		return err
	}
	if err := r.run(ctx, "iw", nic, "set", "type", "monitor"); err != nil {
		return err
	}
	return r.run(ctx, "ip", "link", "set", nic, "up")
}

func (r *Registry) DisableMonitorMode(ctx context.Context, nic string) error {
	if err := r.AssertNotManagement(nic); err != nil {
		return err
	}
	if err := r.run(ctx, "ip", "link", "set", nic, "down"); err != nil {
		return err
	}
	if err := r.run(ctx, "iw", nic, "set", "type", "managed"); err != nil {
		return err
	}
	return r.run(ctx, "ip", "link", "set", nic, "up")
}

// RestoreOriginalModes restores every interface this registry touched to
// the mode it had at startup (monitor -> monitor, attack -> managed),
// per §8's crash/stop post-condition.
func (r *Registry) RestoreOriginalModes(ctx context.Context) error {
	r.mu.RLock()
	modes := make(map[string]string, len(r.origModes))
	for k, v := range r.origModes {
		modes[k] = v
	}
	r.mu.RUnlock()

	var lastErr error
	for nic, mode := range modes {
		if err := r.AssertNotManagement(nic); err != nil {
			lastErr = err
			continue
		}
		if mode == "monitor" {
			lastErr = r.EnableMonitorMode(ctx, nic)
		} else {
			lastErr = r.DisableMonitorMode(ctx, nic)
		}
	}
	return lastErr
}

func (r *Registry) rememberOriginalMode(ctx context.Context, nic string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.origModes[nic]; !ok {
		mode := "managed"
		if nic == r.roles.Monitor {
			mode = "monitor"
		}
		r.origModes[nic] = mode
	}
}

func (r *Registry) run(ctx context.Context, name string, args ...string) error {
	out, err := r.executor.Execute(ctx, name, args...)
	if err != nil {
		r.logger.Warn("command failed", "cmd", name, "args", args, "output", string(out), "error", err)
		return ports.NewError(ports.KindToolFailure, fmt.Sprintf("%s %v", name, args), err)
	}
	return nil
}

var _ ports.InterfaceRegistry = (*Registry)(nil)
