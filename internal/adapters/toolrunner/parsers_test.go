package toolrunner

import (
	"testing"

	"github.com/jobsdonn/PenDonn/internal/core/domain"
	"github.com/stretchr/testify/assert"
)

const sampleCSV = `BSSID, First time seen, Last time seen, channel, Speed, Privacy, Cipher, Authentication, Power, # beacons, # IV, LAN IP, ID-length, ESSID, Key

aa:bb:cc:dd:ee:01, 2024-01-01 00:00:00, 2024-01-01 00:01:00,  6, 54, WPA2, CCMP, PSK, -45,  10,  0, 0.0.0.0,   7, TestNet,

Station MAC, First time seen, Last time seen, Power, # packets, BSSID, Probed ESSIDs

11:22:33:44:55:66, 2024-01-01 00:00:00, 2024-01-01 00:01:00, -50,  5, aa:bb:cc:dd:ee:01,
22:33:44:55:66:77, 2024-01-01 00:00:00, 2024-01-01 00:01:00, -60,  5, (not associated),
`

func TestParseAirodumpCSV(t *testing.T) {
	aps, clients := ParseAirodumpCSV(sampleCSV)

	if assert.Len(t, aps, 1) {
		assert.Equal(t, "aa:bb:cc:dd:ee:01", aps[0].BSSID)
		assert.Equal(t, "TestNet", aps[0].SSID)
		assert.Equal(t, 6, aps[0].Channel)
		assert.Equal(t, -45, aps[0].Power)
		assert.Equal(t, domain.EncryptionWPA2, aps[0].Encryption)
	}

	assert.Len(t, clients, 2)
	assert.Equal(t, "(not associated)", clients[1].AssociatedBSSID)
}

func TestParseAirodumpCSV_NoHeader(t *testing.T) {
	aps, clients := ParseAirodumpCSV("garbage,data,not,a,real,csv\n")
	assert.Empty(t, aps)
	assert.Empty(t, clients)
}

func TestClassifyEncryption(t *testing.T) {
	cases := []struct {
		privacy, auth string
		want          domain.Encryption
	}{
		{"OPN", "", domain.EncryptionOpen},
		{"WEP", "", domain.EncryptionWEP},
		{"WPA", "PSK", domain.EncryptionWPA},
		{"WPA2", "PSK", domain.EncryptionWPA2},
		{"WPA WPA2", "PSK", domain.EncryptionWPA2},
		{"", "", domain.EncryptionUnknown},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, classifyEncryption(c.privacy, c.auth), "privacy=%q auth=%q", c.privacy, c.auth)
	}
}

func TestClassifyDeauthOutcome(t *testing.T) {
	assert.Equal(t, DeauthSuccess, ClassifyDeauthOutcome("Sending 64 directed DeAuth.", nil))
	assert.Equal(t, DeauthBenignBusy, ClassifyDeauthOutcome("ioctl(SIOCSIWMODE) failed: Operation not permitted", assertErr))
	assert.Equal(t, DeauthBSSIDNotVisible, ClassifyDeauthOutcome("No such BSSID available.", assertErr))
	assert.Equal(t, DeauthFatal, ClassifyDeauthOutcome("unexpected failure", assertErr))
}

var assertErr = assertError("boom")

type assertError string

func (e assertError) Error() string { return string(e) }

func TestParseJohnShow(t *testing.T) {
	out := "TestNet:hunter2\nOther:password hash\n0 password hashes cracked\n"
	results := ParseJohnShow(out)
	if assert.Len(t, results, 1) {
		assert.Equal(t, "TestNet", results[0].SSID)
		assert.Equal(t, "hunter2", results[0].Password)
	}
}

func TestParseHashcatCrackedFile(t *testing.T) {
	pw, ok := ParseHashcatCrackedFile("a1b2c3*00:11:22:33:44:55:TestNet:hunter2\n")
	assert.True(t, ok)
	assert.Equal(t, "hunter2", pw)

	_, ok = ParseHashcatCrackedFile("")
	assert.False(t, ok)
}

func TestParseAircrackOutput(t *testing.T) {
	pw, ok := ParseAircrackOutput("", "KEY FOUND! [ hunter2 ]")
	assert.True(t, ok)
	assert.Equal(t, "hunter2", pw)

	pw, ok = ParseAircrackOutput("hunter2\n", "")
	assert.True(t, ok)
	assert.Equal(t, "hunter2", pw)

	_, ok = ParseAircrackOutput("", "no key found")
	assert.False(t, ok)
}
