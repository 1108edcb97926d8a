package plugins

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jobsdonn/PenDonn/internal/core/domain"
	"github.com/jobsdonn/PenDonn/internal/core/ports"
)

// SMBScanner is the built-in §4.G step-7 plugin grounded on
// original_source/plugins/smb_scanner/smb_scanner.py: it probes every host
// with an SMB port open for a null-session login via smbclient and records
// a Vulnerability row when one succeeds.
type SMBScanner struct {
	desc   Descriptor
	runner ports.ToolRunner
	store  ports.Storage
	logger *slog.Logger
}

// NewSMBScanner builds the SMB scanner plugin from its descriptor. It is
// registered under the "smb_scanner" module key for the orchestrator's
// plugin loader.
func NewSMBScanner(desc Descriptor, runner ports.ToolRunner, store ports.Storage, logger *slog.Logger) *SMBScanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &SMBScanner{desc: desc, runner: runner, store: store, logger: logger}
}

func (s *SMBScanner) Name() string    { return s.desc.Name }
func (s *SMBScanner) Version() string { return s.desc.Version }
func (s *SMBScanner) Enabled() bool   { return s.desc.Enabled }

// Run probes every host with port 445 or 139 open for an SMB null session
// (the Python original's _check_null_session), grounded on the same
// smbclient -L -N invocation.
func (s *SMBScanner) Run(ctx context.Context, scanID uint64, hosts []ports.HostRecord, scanResults map[string]ports.HostRecord) (ports.PluginResult, error) {
	found := 0
	for _, host := range hosts {
		if !hasSMBPort(host) {
			continue
		}
		s.logger.Debug("smb_scanner: probing host", "host", host.IP)
		if s.nullSessionAllowed(ctx, host.IP) {
			s.logger.Warn("smb_scanner: null session allowed", "host", host.IP)
			port := 445
			if _, err := s.store.InsertVulnerability(ctx, domain.Vulnerability{
				ScanID:      scanID,
				Host:        host.IP,
				Port:        &port,
				Service:     "smb",
				VulnType:    "SMB Null Session",
				Severity:    domain.SeverityMedium,
				Description: "SMB allows null session authentication, potentially exposing share information.",
				PluginName:  s.Name(),
			}); err != nil {
				s.logger.Warn("smb_scanner: failed to insert vulnerability", "host", host.IP, "error", err)
				continue
			}
			found++
		}
	}
	return ports.PluginResult{Vulnerabilities: found}, nil
}

func hasSMBPort(host ports.HostRecord) bool {
	for _, p := range host.Ports {
		if p.Port == 445 || p.Port == 139 {
			return true
		}
	}
	return false
}

// nullSessionAllowed mirrors the original's `smbclient -L <host> -N` check:
// a zero exit with no "NT_STATUS_ACCESS_DENIED" means the share listing
// succeeded without credentials.
func (s *SMBScanner) nullSessionAllowed(ctx context.Context, host string) bool {
	result, err := s.runner.Run(ctx, "smbclient", []string{"-L", host, "-N", "-g"}, 10*time.Second, nil)
	if err != nil {
		return false
	}
	return result.ExitCode == 0 && !strings.Contains(result.Stdout, "NT_STATUS_ACCESS_DENIED")
}
