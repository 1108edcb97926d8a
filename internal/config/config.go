// Package config loads PenDonn's configuration once at startup from
// environment variables with command-line flag overrides, exactly the
// recognized-option enumeration of the orchestrator's external interface.
package config

import (
	"flag"
	"os"
	"strconv"
	"strings"
)

// Config holds the frozen configuration for one orchestrator run. It is
// populated once by Load and passed explicitly into every constructor;
// nothing in the core consults environment or flags after startup.
type Config struct {
	// Interface Registry (§4.A)
	MonitorMAC    string
	AttackMAC     string
	ManagementMAC string

	MonitorInterface    string
	AttackInterface     string
	ManagementInterface string

	SingleInterfaceMode bool // opt-in to legacy name-based fallback

	ChannelHopInterval int // seconds
	HandshakeTimeout   int // seconds, base timeout before the 1.5x deauth_warning multiplier

	// Whitelist policy (§7)
	WhitelistSSIDs []string

	// Crack Pool (§4.F)
	CrackingEnabled     bool
	CrackingEngines     []string
	WordlistPath        string
	AutoStartCracking   bool
	MaxConcurrentCracks int
	JohnFormat          string
	HashcatMode         int

	// Enumeration Phase (§4.G)
	EnumerationEnabled bool
	AutoScanOnCrack    bool
	NmapTiming         string
	PortScanRange      string
	ScanTimeout        int // seconds

	// Capture tuning knobs (§9 open question: overridable by the harness)
	CooldownSeconds    int
	DeauthBurstSize    int
	DeauthBurstCount   int
	DeauthBurstSpacing int // seconds between bursts

	// Ambient stack
	DBPath         string
	HandshakeDir   string
	ScanResultsDir string
	StatusAddr     string
	GRPCPort       int
	Debug          bool
	MockMode       bool
}

// Load parses command line flags and environment variables to populate
// Config. Flags take precedence over environment variables.
func Load() *Config {
	cfg := &Config{}

	cfg.MonitorMAC = getEnv("PENDONN_WIFI_MONITOR_MAC", "")
	cfg.AttackMAC = getEnv("PENDONN_WIFI_ATTACK_MAC", "")
	cfg.ManagementMAC = getEnv("PENDONN_WIFI_MANAGEMENT_MAC", "")
	cfg.MonitorInterface = getEnv("PENDONN_WIFI_MONITOR_INTERFACE", "")
	cfg.AttackInterface = getEnv("PENDONN_WIFI_ATTACK_INTERFACE", "")
	cfg.ManagementInterface = getEnv("PENDONN_WIFI_MANAGEMENT_INTERFACE", "")
	cfg.SingleInterfaceMode = getEnvBool("PENDONN_WIFI_SINGLE_INTERFACE_MODE", false)
	cfg.ChannelHopInterval = getEnvInt("PENDONN_WIFI_CHANNEL_HOP_INTERVAL", 2)
	cfg.HandshakeTimeout = getEnvInt("PENDONN_WIFI_HANDSHAKE_TIMEOUT", 120)

	cfg.WhitelistSSIDs = parseList(getEnv("PENDONN_WHITELIST_SSIDS", ""))

	cfg.CrackingEnabled = getEnvBool("PENDONN_CRACKING_ENABLED", true)
	cfg.CrackingEngines = parseList(getEnv("PENDONN_CRACKING_ENGINES", "john,hashcat,aircrack-ng"))
	cfg.WordlistPath = getEnv("PENDONN_CRACKING_WORDLIST_PATH", "")
	cfg.AutoStartCracking = getEnvBool("PENDONN_CRACKING_AUTO_START", true)
	cfg.MaxConcurrentCracks = getEnvInt("PENDONN_CRACKING_MAX_CONCURRENT", 2)
	cfg.JohnFormat = getEnv("PENDONN_CRACKING_JOHN_FORMAT", "wpapsk-opencl")
	cfg.HashcatMode = getEnvInt("PENDONN_CRACKING_HASHCAT_MODE", 22000)

	cfg.EnumerationEnabled = getEnvBool("PENDONN_ENUMERATION_ENABLED", true)
	cfg.AutoScanOnCrack = getEnvBool("PENDONN_ENUMERATION_AUTO_SCAN_ON_CRACK", true)
	cfg.NmapTiming = getEnv("PENDONN_ENUMERATION_NMAP_TIMING", "-T4")
	cfg.PortScanRange = getEnv("PENDONN_ENUMERATION_PORT_SCAN_RANGE", "21-23,80,139,443,445,3389,5900,8080")
	cfg.ScanTimeout = getEnvInt("PENDONN_ENUMERATION_SCAN_TIMEOUT", 300)

	cfg.CooldownSeconds = getEnvInt("PENDONN_CAPTURE_COOLDOWN_SECONDS", 300)
	cfg.DeauthBurstSize = getEnvInt("PENDONN_CAPTURE_DEAUTH_BURST_SIZE", 20)
	cfg.DeauthBurstCount = getEnvInt("PENDONN_CAPTURE_DEAUTH_BURST_COUNT", 2)
	cfg.DeauthBurstSpacing = getEnvInt("PENDONN_CAPTURE_DEAUTH_BURST_SPACING", 10)

	cfg.DBPath = getEnv("PENDONN_DB_PATH", "./data/pendonn.db")
	cfg.HandshakeDir = getEnv("PENDONN_HANDSHAKE_DIR", "./handshakes")
	cfg.ScanResultsDir = getEnv("PENDONN_SCAN_RESULTS_DIR", "./scan_results")
	cfg.StatusAddr = getEnv("PENDONN_STATUS_ADDR", ":8090")
	cfg.GRPCPort = getEnvInt("PENDONN_GRPC_PORT", 9090)
	cfg.Debug = getEnvBool("PENDONN_DEBUG", false)
	cfg.MockMode = getEnvBool("PENDONN_MOCK", false)

	flag.StringVar(&cfg.MonitorMAC, "wifi.monitor-mac", cfg.MonitorMAC, "MAC address of the monitor-mode interface")
	flag.StringVar(&cfg.AttackMAC, "wifi.attack-mac", cfg.AttackMAC, "MAC address of the attack interface")
	flag.StringVar(&cfg.ManagementMAC, "wifi.management-mac", cfg.ManagementMAC, "MAC address of the management (SSH) interface; never touched")
	flag.StringVar(&cfg.MonitorInterface, "wifi.monitor-interface", cfg.MonitorInterface, "legacy name-based fallback for the monitor interface")
	flag.StringVar(&cfg.AttackInterface, "wifi.attack-interface", cfg.AttackInterface, "legacy name-based fallback for the attack interface")
	flag.StringVar(&cfg.ManagementInterface, "wifi.management-interface", cfg.ManagementInterface, "legacy name-based fallback for the management interface")
	flag.BoolVar(&cfg.SingleInterfaceMode, "wifi.single-interface-mode", cfg.SingleInterfaceMode, "opt into legacy name-based interface resolution when MAC lookup fails")
	flag.IntVar(&cfg.ChannelHopInterval, "wifi.channel-hop-interval", cfg.ChannelHopInterval, "channel dwell seconds; accepted but not read by the scan loop, which leaves hopping to airodump-ng")
	flag.IntVar(&cfg.HandshakeTimeout, "wifi.handshake-timeout", cfg.HandshakeTimeout, "base handshake capture timeout in seconds")

	whitelistStr := strings.Join(cfg.WhitelistSSIDs, ",")
	flag.StringVar(&whitelistStr, "whitelist.ssids", whitelistStr, "comma-separated list of attackable SSIDs; empty permits all")

	flag.BoolVar(&cfg.CrackingEnabled, "cracking.enabled", cfg.CrackingEnabled, "enable the crack pool")
	enginesStr := strings.Join(cfg.CrackingEngines, ",")
	flag.StringVar(&enginesStr, "cracking.engines", enginesStr, "comma-separated engine order: john,hashcat,aircrack-ng")
	flag.StringVar(&cfg.WordlistPath, "cracking.wordlist-path", cfg.WordlistPath, "path to the dictionary wordlist")
	flag.BoolVar(&cfg.AutoStartCracking, "cracking.auto-start", cfg.AutoStartCracking, "accepted but not read; the crack pool picks up pending handshakes whenever cracking.enabled is set")
	flag.IntVar(&cfg.MaxConcurrentCracks, "cracking.max-concurrent", cfg.MaxConcurrentCracks, "max concurrent crack workers")
	flag.StringVar(&cfg.JohnFormat, "cracking.john-format", cfg.JohnFormat, "john hash format")
	flag.IntVar(&cfg.HashcatMode, "cracking.hashcat-mode", cfg.HashcatMode, "hashcat hash mode (22000 for modern WPA2)")

	flag.BoolVar(&cfg.EnumerationEnabled, "enumeration.enabled", cfg.EnumerationEnabled, "enable the enumeration phase")
	flag.BoolVar(&cfg.AutoScanOnCrack, "enumeration.auto-scan-on-crack", cfg.AutoScanOnCrack, "trigger enumeration automatically when a key is recovered")
	flag.StringVar(&cfg.NmapTiming, "enumeration.nmap-timing", cfg.NmapTiming, "nmap timing template")
	flag.StringVar(&cfg.PortScanRange, "enumeration.port-scan-range", cfg.PortScanRange, "nmap port range")
	flag.IntVar(&cfg.ScanTimeout, "enumeration.scan-timeout", cfg.ScanTimeout, "per-host nmap scan timeout in seconds")

	flag.IntVar(&cfg.CooldownSeconds, "capture.cooldown-seconds", cfg.CooldownSeconds, "per-BSSID cooldown after a capture attempt")
	flag.IntVar(&cfg.DeauthBurstSize, "capture.deauth-burst-size", cfg.DeauthBurstSize, "packets per deauth burst")
	flag.IntVar(&cfg.DeauthBurstCount, "capture.deauth-burst-count", cfg.DeauthBurstCount, "number of deauth bursts per capture")
	flag.IntVar(&cfg.DeauthBurstSpacing, "capture.deauth-burst-spacing", cfg.DeauthBurstSpacing, "seconds between deauth bursts")

	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "path to the SQLite evidence store")
	flag.StringVar(&cfg.HandshakeDir, "handshake-dir", cfg.HandshakeDir, "directory for captured .cap files")
	flag.StringVar(&cfg.ScanResultsDir, "scan-results-dir", cfg.ScanResultsDir, "directory for scan CSVs")
	flag.StringVar(&cfg.StatusAddr, "status-addr", cfg.StatusAddr, "HTTP address for /healthz, /metrics and the status websocket")
	flag.IntVar(&cfg.GRPCPort, "grpc", cfg.GRPCPort, "gRPC health service port")
	flag.BoolVar(&cfg.Debug, "debug", cfg.Debug, "enable verbose debug logging")
	flag.BoolVar(&cfg.MockMode, "mock", cfg.MockMode, "run against a scripted in-memory tool adapter instead of real hardware")

	flag.Parse()

	cfg.WhitelistSSIDs = parseList(whitelistStr)
	cfg.CrackingEngines = parseList(enginesStr)

	return cfg
}

func parseList(s string) []string {
	var out []string
	if s == "" {
		return out
	}
	for _, p := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}
