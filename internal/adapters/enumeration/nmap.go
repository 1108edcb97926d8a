package enumeration

import (
	"bufio"
	"regexp"
	"strconv"
	"strings"

	"github.com/jobsdonn/PenDonn/internal/core/ports"
)

// parsePingScanHosts extracts live IPs from `nmap -sn` output, one
// "Nmap scan report for <ip>" line per live host (§4.G step 4).
var pingScanHostRegex = regexp.MustCompile(`Nmap scan report for (?:\S+ \()?([0-9.]+)\)?`)

func parsePingScanHosts(stdout string) []string {
	var hosts []string
	scanner := bufio.NewScanner(strings.NewReader(stdout))
	for scanner.Scan() {
		if m := pingScanHostRegex.FindStringSubmatch(scanner.Text()); len(m) > 1 {
			hosts = append(hosts, m[1])
		}
	}
	return hosts
}

// portLineRegex matches an nmap -sV port table row, e.g.
// "21/tcp   open  ftp     vsftpd 3.0.3".
var portLineRegex = regexp.MustCompile(`^(\d+)/tcp\s+open\s+(\S+)(?:\s+(.*))?$`)

// osGuessRegex matches nmap's "Running:" / "OS details:" lines; the first
// matching line becomes the host's OS guess.
var osGuessRegex = regexp.MustCompile(`(?:Running|OS details):\s*(.+)`)

// parseHostScan extracts (port, service, product, version) rows and an
// OS guess from one host's `nmap -sV` output (§4.G step 5).
func parseHostScan(stdout string) ports.HostRecord {
	var record ports.HostRecord
	scanner := bufio.NewScanner(strings.NewReader(stdout))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if m := portLineRegex.FindStringSubmatch(line); len(m) > 0 {
			port, _ := strconv.Atoi(m[1])
			product, version := splitProductVersion(m[3])
			record.Ports = append(record.Ports, ports.PortRecord{
				Port:    port,
				Service: m[2],
				Product: product,
				Version: version,
			})
			continue
		}
		if m := osGuessRegex.FindStringSubmatch(line); len(m) > 1 && record.OSGuess == "" {
			record.OSGuess = strings.TrimSpace(m[1])
		}
	}
	return record
}

// splitProductVersion splits nmap's free-form version column
// ("vsftpd 3.0.3", "Samba smbd 4.6.2") into product and version: the
// version starts at the first word after the first that begins with a
// digit. A column with no such word yields an empty version string.
func splitProductVersion(col string) (product, version string) {
	col = strings.TrimSpace(col)
	if col == "" {
		return "", ""
	}
	fields := strings.Fields(col)
	for i := 1; i < len(fields); i++ {
		if fields[i][0] >= '0' && fields[i][0] <= '9' {
			return strings.Join(fields[:i], " "), strings.Join(fields[i:], " ")
		}
	}
	return strings.Join(fields, " "), ""
}
