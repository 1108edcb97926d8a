package scanner

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/jobsdonn/PenDonn/internal/adapters/storage"
	"github.com/jobsdonn/PenDonn/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const twoAPCSV = `BSSID, First time seen, Last time seen, channel, Speed, Privacy, Cipher, Authentication, Power, # beacons, # IV, LAN IP, ID-length, ESSID, Key

aa:bb:cc:dd:ee:01, 2024-01-01 00:00:00, 2024-01-01 00:01:00,  6, 54, WPA2, CCMP, PSK, -45,  10,  0, 0.0.0.0,   7, TargetNet,
aa:bb:cc:dd:ee:02, 2024-01-01 00:00:00, 2024-01-01 00:01:00, 11, 54, OPN,  ,    ,    -70,  10,  0, 0.0.0.0,   9, OtherOpen,

Station MAC, First time seen, Last time seen, Power, # packets, BSSID, Probed ESSIDs

11:22:33:44:55:66, 2024-01-01 00:00:00, 2024-01-01 00:01:00, -50,  5, aa:bb:cc:dd:ee:01,
`

func newTestStore(t *testing.T) *storage.SQLiteAdapter {
	t.Helper()
	store, err := storage.NewSQLiteAdapter(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// fakeCapture implements CaptureRequester for tests.
type fakeCapture struct {
	active     bool
	started    bool
	bssid      string
	ssid       string
	channel    int
}

func (f *fakeCapture) Active() bool { return f.active }
func (f *fakeCapture) Start(ctx context.Context, bssid, ssid string, channel int) bool {
	f.started = true
	f.bssid, f.ssid, f.channel = bssid, ssid, channel
	return true
}

func TestAttackable_EmptyWhitelistPermitsAll(t *testing.T) {
	l := &Loop{whitelist: map[string]bool{}}
	assert.True(t, l.attackable("AnySSID"))
}

func TestAttackable_NonEmptyWhitelistRestricts(t *testing.T) {
	l := &Loop{whitelist: map[string]bool{"TargetNet": true}}
	assert.True(t, l.attackable("TargetNet"))
	assert.False(t, l.attackable("OtherNet"))
}

func TestProcessCSV_UpsertsNetworksAndNominatesBestCandidate(t *testing.T) {
	store := newTestStore(t)
	cap := &fakeCapture{}
	l := &Loop{
		store:     store,
		capture:   cap,
		whitelist: map[string]bool{}, // permit all
		logger:    discardLogger(),
	}

	l.processCSV(context.Background(), twoAPCSV)

	target, err := store.GetNetwork(context.Background(), "aa:bb:cc:dd:ee:01")
	require.NoError(t, err)
	require.NotNil(t, target)
	assert.Equal(t, "TargetNet", target.SSID)
	assert.True(t, target.IsWhitelisted)

	other, err := store.GetNetwork(context.Background(), "aa:bb:cc:dd:ee:02")
	require.NoError(t, err)
	require.NotNil(t, other)

	// Only the WPA2 network is attackable; the open network must never be
	// nominated for capture even though it was observed and upserted.
	assert.True(t, cap.started)
	assert.Equal(t, "aa:bb:cc:dd:ee:01", cap.bssid)
	assert.Equal(t, 6, cap.channel)
}

func TestProcessCSV_SkipsNominationWhenCaptureAlreadyActive(t *testing.T) {
	store := newTestStore(t)
	cap := &fakeCapture{active: true}
	l := &Loop{
		store:     store,
		capture:   cap,
		whitelist: map[string]bool{},
		logger:    discardLogger(),
	}

	l.processCSV(context.Background(), twoAPCSV)
	assert.False(t, cap.started, "must not start a second capture while one is active")
}

func TestProcessCSV_SkipsNominationWhenNetworkAlreadyCracked(t *testing.T) {
	store := newTestStore(t)
	cap := &fakeCapture{}
	l := &Loop{
		store:     store,
		capture:   cap,
		whitelist: map[string]bool{},
		logger:    discardLogger(),
	}

	ctx := context.Background()
	_, err := store.UpsertNetwork(ctx, domain.Network{BSSID: "aa:bb:cc:dd:ee:01", SSID: "TargetNet", Encryption: domain.EncryptionWPA2})
	require.NoError(t, err)
	_, err = store.InsertHandshake(ctx, domain.Handshake{BSSID: "aa:bb:cc:dd:ee:01", SSID: "TargetNet", FilePath: "/tmp/x.cap"})
	require.NoError(t, err)
	handshakes, err := store.PendingHandshakes(ctx)
	require.NoError(t, err)
	require.Len(t, handshakes, 1)
	_, err = store.InsertCrackedKey(ctx, domain.CrackedKey{HandshakeID: handshakes[0].ID, SSID: "TargetNet", BSSID: "aa:bb:cc:dd:ee:01", Password: "hunter2"})
	require.NoError(t, err)

	l.processCSV(ctx, twoAPCSV)
	assert.False(t, cap.started, "must not re-nominate a network whose key is already recovered")
}
