package enumeration

import "github.com/jobsdonn/PenDonn/internal/core/domain"

// portRule is one entry of the built-in port -> vulnerability mapping
// (§4.G step 6). Severities are fixed per rule, not derived from the scan.
type portRule struct {
	service     string
	vulnType    string
	severity    domain.Severity
	description string
}

var builtinPortRules = map[int]portRule{
	21: {
		service:     "FTP",
		vulnType:    "cleartext-service",
		severity:    domain.SeverityMedium,
		description: "FTP exposes credentials and transfers in cleartext",
	},
	23: {
		service:     "Telnet",
		vulnType:    "cleartext-service",
		severity:    domain.SeverityHigh,
		description: "Telnet transmits credentials and session data in cleartext",
	},
	445: {
		service:     "SMB",
		vulnType:    "exposed-file-share",
		severity:    domain.SeverityHigh,
		description: "SMB file sharing service reachable from the LAN",
	},
	3389: {
		service:     "RDP",
		vulnType:    "exposed-remote-desktop",
		severity:    domain.SeverityMedium,
		description: "Remote Desktop Protocol reachable from the LAN",
	},
	5900: {
		service:     "VNC",
		vulnType:    "exposed-remote-desktop",
		severity:    domain.SeverityHigh,
		description: "VNC often runs with weak or no authentication",
	},
	8080: {
		service:     "HTTP-Proxy",
		vulnType:    "exposed-proxy",
		severity:    domain.SeverityLow,
		description: "Alternate HTTP port commonly used by unauthenticated proxies or admin panels",
	},
}

// anonymousFTPRule is emitted in addition to the generic port-21 rule
// when anonymous login succeeds (§4.G step 6).
var anonymousFTPRule = portRule{
	service:     "FTP",
	vulnType:    "anonymous-ftp",
	severity:    domain.SeverityCritical,
	description: "FTP server accepts anonymous login",
}
