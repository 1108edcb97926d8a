package domain

import "time"

// ScanType distinguishes the kind of work a Scan row records. The core
// currently only drives enumeration scans, but the type is kept open for
// the dashboard's read side.
type ScanType string

const (
	ScanTypeEnumeration ScanType = "enumeration"
)

// ScanStatus is the lifecycle of an enumeration Scan.
type ScanStatus string

const (
	ScanStatusRunning   ScanStatus = "running"
	ScanStatusCompleted ScanStatus = "completed"
	ScanStatusFailed    ScanStatus = "failed"
)

// Scan records one enumeration run against a cracked network. `Results` is
// an opaque JSON blob written at completion (or partially, on failure) —
// the core never interprets its shape beyond storing it.
type Scan struct {
	ID                   uint64
	NetworkID            uint64
	SSID                 string
	ScanType             ScanType
	StartTime            time.Time
	EndTime              time.Time
	Status               ScanStatus
	Results              string // opaque JSON
	VulnerabilitiesFound int
}
