package storage

import "time"

// NetworkModel is the GORM model backing domain.Network.
type NetworkModel struct {
	ID             uint64 `gorm:"primaryKey;autoIncrement"`
	BSSID          string `gorm:"uniqueIndex"`
	SSID           string
	Channel        int
	Encryption     string
	SignalStrength int
	FirstSeen      time.Time
	LastSeen       time.Time
	IsWhitelisted  bool
}

// HandshakeModel is the GORM model backing domain.Handshake.
type HandshakeModel struct {
	ID          uint64 `gorm:"primaryKey;autoIncrement"`
	NetworkID   uint64 `gorm:"index"`
	BSSID       string `gorm:"index"`
	SSID        string
	FilePath    string
	CaptureDate time.Time
	Status      string `gorm:"index"`
	Quality     string
}

// CrackedKeyModel is the GORM model backing domain.CrackedKey.
type CrackedKeyModel struct {
	ID               uint64 `gorm:"primaryKey;autoIncrement"`
	HandshakeID      uint64
	SSID             string
	BSSID            string `gorm:"uniqueIndex"`
	Password         string
	Engine           string
	CrackTimeSeconds float64
	CrackedDate      time.Time
}

// ScanModel is the GORM model backing domain.Scan.
type ScanModel struct {
	ID                   uint64 `gorm:"primaryKey;autoIncrement"`
	NetworkID            uint64 `gorm:"index"`
	SSID                 string
	ScanType             string
	StartTime            time.Time
	EndTime              time.Time
	Status               string `gorm:"index"`
	Results              string
	VulnerabilitiesFound int
}

// VulnerabilityModel is the GORM model backing domain.Vulnerability.
type VulnerabilityModel struct {
	ID             uint64 `gorm:"primaryKey;autoIncrement"`
	ScanID         uint64 `gorm:"index"`
	Host           string `gorm:"index"`
	Port           *int
	Service        string
	VulnType       string
	Severity       string
	Description    string
	PluginName     string
	DiscoveredDate time.Time
}
