package domain

import "time"

// Severity is the exhaustive risk classification for a Vulnerability row.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Vulnerability is one finding surfaced by the built-in port-rule table or
// a plugin during the enumeration phase.
type Vulnerability struct {
	ID             uint64
	ScanID         uint64
	Host           string // IP or MAC
	Port           *int   // nullable: host-level findings carry no port
	Service        string
	VulnType       string
	Severity       Severity
	Description    string
	PluginName     string
	DiscoveredDate time.Time
}
