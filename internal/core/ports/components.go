package ports

import (
	"context"

	"github.com/jobsdonn/PenDonn/internal/core/domain"
)

// CaptureEngine owns at most one CaptureSession (§4.D). It is driven by
// the Scan Loop's candidate selection and reports completion back via the
// Evidence Store, never directly to its caller.
type CaptureEngine interface {
	// Start attempts to open a capture session for bssid/ssid on channel.
	// Returns false if a session is already active, enumeration holds the
	// radio, or the BSSID is in cooldown or permanently cracked.
	Start(ctx context.Context, bssid, ssid string, channel int) bool
	Active() bool
	// Abort terminates any in-flight session immediately; used by the
	// Scheduler's enumeration-interrupt callback.
	Abort(ctx context.Context)
}

// ScanLoop is the passive sweep component (§4.E).
type ScanLoop interface {
	Run(ctx context.Context)
	// Abort terminates the in-flight airodump sweep, if any; used by the
	// Scheduler's enumeration-interrupt callback.
	Abort(ctx context.Context)
}

// CrackPool is the bounded worker pool draining pending handshakes (§4.F).
type CrackPool interface {
	Run(ctx context.Context)
	// Enqueue submits a handshake ID for cracking without blocking; an ID
	// that does not fit in the queue is dropped.
	Enqueue(id uint64)
}

// EnumerationPhase runs host discovery, port scanning, and vulnerability
// rules/plugins against a freshly cracked network (§4.G).
type EnumerationPhase interface {
	// Run executes the full phase for the given network/key. Any failure
	// records a partial Scan result; NIC restoration always runs.
	Run(ctx context.Context, network domain.Network, key domain.CrackedKey) error
}

// Plugin is the out-of-tree vulnerability scanner contract (§6).
type Plugin interface {
	Name() string
	Version() string
	Enabled() bool
	Run(ctx context.Context, scanID uint64, hosts []HostRecord, scanResults map[string]HostRecord) (PluginResult, error)
}

// HostRecord is one enumerated host's discovery/port-scan record.
type HostRecord struct {
	IP       string
	Ports    []PortRecord
	OSGuess  string
}

// PortRecord is one open port found by the host port scan.
type PortRecord struct {
	Port    int
	Service string
	Product string
	Version string
}

// PluginResult is what a plugin reports back after Run.
type PluginResult struct {
	Vulnerabilities int
}
