package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jobsdonn/PenDonn/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteAdapter {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "pendonn_test.db")
	store, err := NewSQLiteAdapter(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestUpsertNetwork_Idempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	n := domain.Network{
		BSSID:          "aa:bb:cc:dd:ee:01",
		SSID:           "TestNet",
		Channel:        6,
		Encryption:     domain.EncryptionWPA2,
		SignalStrength: -45,
	}

	id1, err := store.UpsertNetwork(ctx, n)
	require.NoError(t, err)

	n.SignalStrength = -30
	n.Channel = 11
	id2, err := store.UpsertNetwork(ctx, n)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	got, err := store.GetNetwork(ctx, n.BSSID)
	require.NoError(t, err)
	assert.Equal(t, -30, got.SignalStrength)
	assert.Equal(t, 11, got.Channel)
	assert.False(t, got.FirstSeen.IsZero())

	networks, err := store.ListNetworks(ctx)
	require.NoError(t, err)
	assert.Len(t, networks, 1)
}

func TestHandshakeStatusTransitions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	netID, err := store.UpsertNetwork(ctx, domain.Network{BSSID: "aa:bb:cc:dd:ee:02", SSID: "Net2"})
	require.NoError(t, err)

	hid, err := store.InsertHandshake(ctx, domain.Handshake{
		NetworkID: netID,
		BSSID:     "aa:bb:cc:dd:ee:02",
		SSID:      "Net2",
		FilePath:  "/tmp/whatever.cap",
	})
	require.NoError(t, err)

	h, err := store.GetHandshake(ctx, hid)
	require.NoError(t, err)
	assert.Equal(t, domain.HandshakeStatusPending, h.Status)

	require.NoError(t, store.SetHandshakeStatus(ctx, hid, domain.HandshakeStatusCracking))

	err = store.SetHandshakeStatus(ctx, hid, domain.HandshakeStatusPending)
	assert.Error(t, err, "pending is not reachable from cracking")

	require.NoError(t, store.SetHandshakeStatus(ctx, hid, domain.HandshakeStatusFailed))
}

func TestCrackedKey_OnePerBSSID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	netID, err := store.UpsertNetwork(ctx, domain.Network{BSSID: "aa:bb:cc:dd:ee:03", SSID: "Net3"})
	require.NoError(t, err)
	hid, err := store.InsertHandshake(ctx, domain.Handshake{NetworkID: netID, BSSID: "aa:bb:cc:dd:ee:03", SSID: "Net3", FilePath: "/tmp/a.cap"})
	require.NoError(t, err)
	require.NoError(t, store.SetHandshakeStatus(ctx, hid, domain.HandshakeStatusCracking))

	_, err = store.InsertCrackedKey(ctx, domain.CrackedKey{
		HandshakeID: hid,
		SSID:        "Net3",
		BSSID:       "aa:bb:cc:dd:ee:03",
		Password:    "hunter2",
		Engine:      domain.CrackEngineJohn,
	})
	require.NoError(t, err)

	h, err := store.GetHandshake(ctx, hid)
	require.NoError(t, err)
	assert.Equal(t, domain.HandshakeStatusCracked, h.Status)

	key, err := store.KeyFor(ctx, "aa:bb:cc:dd:ee:03")
	require.NoError(t, err)
	require.NotNil(t, key)
	assert.Equal(t, "hunter2", key.Password)
}

func TestExportImportRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.UpsertNetwork(ctx, domain.Network{BSSID: "aa:bb:cc:dd:ee:04", SSID: "Net4"})
	require.NoError(t, err)

	dump, err := store.Export(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, dump.Statistics.Networks)

	require.NoError(t, store.Reset(ctx, false, false))
	stats, err := store.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Networks)

	require.NoError(t, store.Import(ctx, dump))
	stats, err = store.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, dump.Statistics.Networks, stats.Networks)
}
