package domain

import "time"

// Encryption classifies an access point's cipher suite as observed in
// beacon/probe privacy bits. A sum type, never passed as a free string
// inside the core.
type Encryption string

const (
	EncryptionOpen     Encryption = "open"
	EncryptionWEP      Encryption = "wep"
	EncryptionWPA      Encryption = "wpa"
	EncryptionWPA2     Encryption = "wpa2"
	EncryptionWPAWPA2  Encryption = "wpa_wpa2"
	EncryptionUnknown  Encryption = "unknown"
)

// Attackable reports whether the crack/capture pipeline may target this
// encryption at all (open and WEP networks carry no four-way handshake).
func (e Encryption) Attackable() bool {
	switch e {
	case EncryptionWPA, EncryptionWPA2, EncryptionWPAWPA2:
		return true
	default:
		return false
	}
}

// Network is an access point keyed by BSSID. Created on first sighting by
// the scan loop; mutated in place on subsequent sightings. The core never
// deletes a Network row.
type Network struct {
	ID             uint64
	BSSID          string // lowercase colon-separated MAC
	SSID           string // may be empty for hidden networks
	Channel        int
	Encryption     Encryption
	SignalStrength int // dBm, negative
	FirstSeen      time.Time
	LastSeen       time.Time
	IsWhitelisted  bool
}
