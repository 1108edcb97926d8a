package enumeration

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const samplePingScan = `Starting Nmap 7.94
Nmap scan report for 192.168.50.1
Host is up (0.0020s latency).
Nmap scan report for router.lan (192.168.50.254)
Host is up (0.0035s latency).
Nmap done: 256 IP addresses (2 hosts up) scanned in 3.21 seconds
`

func TestParsePingScanHosts(t *testing.T) {
	hosts := parsePingScanHosts(samplePingScan)
	assert.Equal(t, []string{"192.168.50.1", "192.168.50.254"}, hosts)
}

func TestParsePingScanHosts_NoHosts(t *testing.T) {
	hosts := parsePingScanHosts("Nmap done: 0 hosts up\n")
	assert.Empty(t, hosts)
}

const sampleHostScan = `Starting Nmap 7.94
Nmap scan report for 192.168.50.77
Host is up (0.0012s latency).
PORT     STATE SERVICE  VERSION
21/tcp   open  ftp      vsftpd 3.0.3
80/tcp   open  http     lighttpd 1.4.55
445/tcp  open  netbios-ssn Samba smbd 4.6.2
Running: Linux 4.X
OS details: Linux 4.15 - 5.6
`

func TestParseHostScan(t *testing.T) {
	record := parseHostScan(sampleHostScan)

	if assert.Len(t, record.Ports, 3) {
		assert.Equal(t, 21, record.Ports[0].Port)
		assert.Equal(t, "ftp", record.Ports[0].Service)
		assert.Equal(t, "vsftpd", record.Ports[0].Product)
		assert.Equal(t, "3.0.3", record.Ports[0].Version)

		assert.Equal(t, 445, record.Ports[2].Port)
		assert.Equal(t, "Samba smbd", record.Ports[2].Product)
		assert.Equal(t, "4.6.2", record.Ports[2].Version)
	}
	assert.Equal(t, "Linux 4.X", record.OSGuess)
}

func TestSplitProductVersion(t *testing.T) {
	product, version := splitProductVersion("vsftpd 3.0.3")
	assert.Equal(t, "vsftpd", product)
	assert.Equal(t, "3.0.3", version)

	product, version = splitProductVersion("dnsmasq")
	assert.Equal(t, "dnsmasq", product)
	assert.Equal(t, "", version)

	product, version = splitProductVersion("")
	assert.Equal(t, "", product)
	assert.Equal(t, "", version)
}
