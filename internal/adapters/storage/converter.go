package storage

import "github.com/jobsdonn/PenDonn/internal/core/domain"

func networkToDomain(m NetworkModel) domain.Network {
	return domain.Network{
		ID:             m.ID,
		BSSID:          m.BSSID,
		SSID:           m.SSID,
		Channel:        m.Channel,
		Encryption:     domain.Encryption(m.Encryption),
		SignalStrength: m.SignalStrength,
		FirstSeen:      m.FirstSeen,
		LastSeen:       m.LastSeen,
		IsWhitelisted:  m.IsWhitelisted,
	}
}

func networkToModel(n domain.Network) NetworkModel {
	return NetworkModel{
		ID:             n.ID,
		BSSID:          n.BSSID,
		SSID:           n.SSID,
		Channel:        n.Channel,
		Encryption:     string(n.Encryption),
		SignalStrength: n.SignalStrength,
		FirstSeen:      n.FirstSeen,
		LastSeen:       n.LastSeen,
		IsWhitelisted:  n.IsWhitelisted,
	}
}

func handshakeToDomain(m HandshakeModel) domain.Handshake {
	return domain.Handshake{
		ID:          m.ID,
		NetworkID:   m.NetworkID,
		BSSID:       m.BSSID,
		SSID:        m.SSID,
		FilePath:    m.FilePath,
		CaptureDate: m.CaptureDate,
		Status:      domain.HandshakeStatus(m.Status),
		Quality:     domain.HandshakeQuality(m.Quality),
	}
}

func handshakeToModel(h domain.Handshake) HandshakeModel {
	return HandshakeModel{
		ID:          h.ID,
		NetworkID:   h.NetworkID,
		BSSID:       h.BSSID,
		SSID:        h.SSID,
		FilePath:    h.FilePath,
		CaptureDate: h.CaptureDate,
		Status:      string(h.Status),
		Quality:     string(h.Quality),
	}
}

func crackedKeyToDomain(m CrackedKeyModel) domain.CrackedKey {
	return domain.CrackedKey{
		ID:               m.ID,
		HandshakeID:      m.HandshakeID,
		SSID:             m.SSID,
		BSSID:            m.BSSID,
		Password:         m.Password,
		Engine:           domain.CrackEngine(m.Engine),
		CrackTimeSeconds: m.CrackTimeSeconds,
		CrackedDate:      m.CrackedDate,
	}
}

func crackedKeyToModel(k domain.CrackedKey) CrackedKeyModel {
	return CrackedKeyModel{
		ID:               k.ID,
		HandshakeID:      k.HandshakeID,
		SSID:             k.SSID,
		BSSID:            k.BSSID,
		Password:         k.Password,
		Engine:           string(k.Engine),
		CrackTimeSeconds: k.CrackTimeSeconds,
		CrackedDate:      k.CrackedDate,
	}
}

func scanToDomain(m ScanModel) domain.Scan {
	return domain.Scan{
		ID:                   m.ID,
		NetworkID:            m.NetworkID,
		SSID:                 m.SSID,
		ScanType:             domain.ScanType(m.ScanType),
		StartTime:            m.StartTime,
		EndTime:              m.EndTime,
		Status:               domain.ScanStatus(m.Status),
		Results:              m.Results,
		VulnerabilitiesFound: m.VulnerabilitiesFound,
	}
}

func scanToModel(s domain.Scan) ScanModel {
	return ScanModel{
		ID:                   s.ID,
		NetworkID:            s.NetworkID,
		SSID:                 s.SSID,
		ScanType:             string(s.ScanType),
		StartTime:            s.StartTime,
		EndTime:              s.EndTime,
		Status:               string(s.Status),
		Results:              s.Results,
		VulnerabilitiesFound: s.VulnerabilitiesFound,
	}
}

func vulnerabilityToDomain(m VulnerabilityModel) domain.Vulnerability {
	return domain.Vulnerability{
		ID:             m.ID,
		ScanID:         m.ScanID,
		Host:           m.Host,
		Port:           m.Port,
		Service:        m.Service,
		VulnType:       m.VulnType,
		Severity:       domain.Severity(m.Severity),
		Description:    m.Description,
		PluginName:     m.PluginName,
		DiscoveredDate: m.DiscoveredDate,
	}
}

func vulnerabilityToModel(v domain.Vulnerability) VulnerabilityModel {
	return VulnerabilityModel{
		ID:             v.ID,
		ScanID:         v.ScanID,
		Host:           v.Host,
		Port:           v.Port,
		Service:        v.Service,
		VulnType:       v.VulnType,
		Severity:       string(v.Severity),
		Description:    v.Description,
		PluginName:     v.PluginName,
		DiscoveredDate: v.DiscoveredDate,
	}
}
