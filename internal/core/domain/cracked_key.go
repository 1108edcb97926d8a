package domain

import "time"

// CrackEngine identifies which external tool recovered a key.
type CrackEngine string

const (
	CrackEngineJohn       CrackEngine = "john"
	CrackEngineHashcat    CrackEngine = "hashcat"
	CrackEngineAircrackNG CrackEngine = "aircrack-ng"
)

// CrackedKey is the recovered pre-shared key for a Handshake. At most one
// CrackedKey exists per BSSID: the first success suppresses all further
// crack and capture attempts against it.
type CrackedKey struct {
	ID               uint64
	HandshakeID      uint64
	SSID             string
	BSSID            string
	Password         string // non-empty UTF-8
	Engine           CrackEngine
	CrackTimeSeconds float64
	CrackedDate      time.Time
}
