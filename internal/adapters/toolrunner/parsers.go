package toolrunner

import (
	"bufio"
	"regexp"
	"strconv"
	"strings"

	"github.com/jobsdonn/PenDonn/internal/core/domain"
)

// AirodumpAP is one parsed AP row from an airodump-ng CSV survey.
type AirodumpAP struct {
	BSSID      string
	SSID       string
	Channel    int
	Privacy    string
	Power      int
	Encryption domain.Encryption
}

// AirodumpClient is one parsed client row, associated or not.
type AirodumpClient struct {
	ClientMAC        string
	AssociatedBSSID  string
}

// forbiddenPasswords are sentinel literals a parser must never accept as a
// recovered password (§4.C parser invariant).
var forbiddenPasswords = map[string]bool{
	"password hash": true,
	"cracked":       true,
}

// ParseAirodumpCSV splits an airodump-ng CSV survey into AP rows and
// client rows, separated by a blank line (§4.E step 3); blank lines before
// the first AP row are skipped. MAC addresses are lowercased. A CSV lacking
// a BSSID header row yields zero networks, not an error.
func ParseAirodumpCSV(data string) ([]AirodumpAP, []AirodumpClient) {
	lines := strings.Split(data, "\n")

	var aps []AirodumpAP
	var clients []AirodumpClient
	section := 0 // 0 = looking for AP header, 1 = AP rows, 2 = client rows

	for _, raw := range lines {
		line := strings.TrimRight(raw, "\r")
		trimmed := strings.TrimSpace(line)

		if trimmed == "" {
			if section == 1 && len(aps) > 0 {
				section = 2
			}
			continue
		}

		if strings.HasPrefix(trimmed, "BSSID") {
			section = 1
			continue
		}
		if strings.HasPrefix(trimmed, "Station MAC") {
			section = 2
			continue
		}

		fields := strings.Split(line, ",")
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}

		switch section {
		case 1:
			if len(fields) < 14 {
				continue
			}
			power, _ := strconv.Atoi(fields[8])
			channel, _ := strconv.Atoi(fields[3])
			privacy := fields[5]
			auth := fields[7]
			aps = append(aps, AirodumpAP{
				BSSID:      strings.ToLower(fields[0]),
				Channel:    channel,
				Privacy:    privacy,
				Power:      power,
				SSID:       fields[13],
				Encryption: classifyEncryption(privacy, auth),
			})
		case 2:
			if len(fields) < 6 {
				continue
			}
			assoc := strings.ToLower(fields[5])
			clients = append(clients, AirodumpClient{
				ClientMAC:       strings.ToLower(fields[0]),
				AssociatedBSSID: assoc,
			})
		}
	}

	return aps, clients
}

// classifyEncryption applies §4.E's mapping: OPN -> Open; WPA2 present in
// privacy -> WPA2 (or WPA/WPA2 if WPA also appears in the authentication
// field); WPA only -> WPA; WEP only -> WEP; otherwise Unknown.
func classifyEncryption(privacy, auth string) domain.Encryption {
	upperPrivacy := strings.ToUpper(privacy)
	upperAuth := strings.ToUpper(auth)

	if strings.Contains(upperPrivacy, "OPN") {
		return domain.EncryptionOpen
	}
	hasWPA2 := strings.Contains(upperPrivacy, "WPA2")
	hasWPA := strings.Contains(upperPrivacy, "WPA") && !hasWPA2 || strings.Contains(upperAuth, "WPA")

	switch {
	case hasWPA2 && hasWPA:
		return domain.EncryptionWPAWPA2
	case hasWPA2:
		return domain.EncryptionWPA2
	case strings.Contains(upperPrivacy, "WPA"):
		return domain.EncryptionWPA
	case strings.Contains(upperPrivacy, "WEP"):
		return domain.EncryptionWEP
	default:
		return domain.EncryptionUnknown
	}
}

// DeauthOutcome classifies an aireplay-ng --deauth invocation's result.
type DeauthOutcome string

const (
	DeauthSuccess         DeauthOutcome = "success"
	DeauthBenignBusy      DeauthOutcome = "benign_busy"
	DeauthBSSIDNotVisible DeauthOutcome = "bssid_not_visible"
	DeauthFatal           DeauthOutcome = "fatal"
)

var benignBusyPhrases = []string{
	"operation not permitted",
	"ioctl(siocsiwmode) failed",
}

// ClassifyDeauthOutcome implements the §4.D deauth classification table.
func ClassifyDeauthOutcome(stdout string, runErr error) DeauthOutcome {
	lower := strings.ToLower(stdout)

	for _, phrase := range benignBusyPhrases {
		if strings.Contains(lower, phrase) {
			return DeauthBenignBusy
		}
	}
	if strings.Contains(lower, "no such bssid available") || strings.Contains(lower, "station not found") {
		return DeauthBSSIDNotVisible
	}
	if runErr != nil {
		return DeauthFatal
	}
	return DeauthSuccess
}

// JohnShowResult is one parsed `john --show` line: ssid:password.
type JohnShowResult struct {
	SSID     string
	Password string
}

// ParseJohnShow parses `john --show` output, one "ssid:password" record
// per line.
func ParseJohnShow(stdout string) []JohnShowResult {
	var results []JohnShowResult
	scanner := bufio.NewScanner(strings.NewReader(stdout))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || !strings.Contains(line, ":") {
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		ssid, password := parts[0], parts[1]
		if isAcceptablePassword(password) {
			results = append(results, JohnShowResult{SSID: ssid, Password: password})
		}
	}
	return results
}

// ParseHashcatCrackedFile parses the hashcat -o output file: each line is
// `hash*data:password`.
func ParseHashcatCrackedFile(content string) (password string, ok bool) {
	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		idx := strings.LastIndex(line, ":")
		if idx < 0 || idx == len(line)-1 {
			continue
		}
		candidate := line[idx+1:]
		if isAcceptablePassword(candidate) {
			return candidate, true
		}
	}
	return "", false
}

var aircrackKeyFoundRegex = regexp.MustCompile(`KEY FOUND!\s*\[\s*([^\]]*?)\s*\]`)

// ParseAircrackOutput extracts the password from either the -l output
// file's contents or a "KEY FOUND! [ password ]" stdout line.
func ParseAircrackOutput(lFileContent, stdout string) (password string, ok bool) {
	if trimmed := strings.TrimSpace(lFileContent); isAcceptablePassword(trimmed) {
		return trimmed, true
	}
	if m := aircrackKeyFoundRegex.FindStringSubmatch(stdout); len(m) > 1 {
		if isAcceptablePassword(m[1]) {
			return m[1], true
		}
	}
	return "", false
}

func isAcceptablePassword(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	return !forbiddenPasswords[strings.ToLower(s)]
}

// HCXPcapngHasHandshake reports whether hcxpcapngtool produced a non-empty
// 22000-format artifact, the sole accepted proof of handshake capture
// (§4.D verify — aircrack-ng text matching must never be used as the
// primary verifier).
func HCXPcapngHasHandshake(artifactBytes int64) bool {
	return artifactBytes > 0
}

// Hcx2JohnHasHandshake reports whether hcx2john produced non-empty output.
func Hcx2JohnHasHandshake(stdout string) bool {
	return strings.TrimSpace(stdout) != ""
}
