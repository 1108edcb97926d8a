package crackpool

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jobsdonn/PenDonn/internal/adapters/storage"
	"github.com/jobsdonn/PenDonn/internal/core/domain"
	"github.com/jobsdonn/PenDonn/internal/core/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner is a scripted ports.ToolRunner keyed by binary name, in the
// style of the registry adapter's fakeExecutor.
type fakeRunner struct {
	responses map[string]ports.ToolResult
	errs      map[string]error
	calls     []string
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{responses: map[string]ports.ToolResult{}, errs: map[string]error{}}
}

func (f *fakeRunner) HealthCheck(name string) error { return f.errs["health:"+name] }

func (f *fakeRunner) Run(ctx context.Context, name string, args []string, timeout time.Duration, stdin []byte) (ports.ToolResult, error) {
	f.calls = append(f.calls, name)
	if r, ok := f.responses[name]; ok {
		return r, f.errs[name]
	}
	return ports.ToolResult{ExitCode: 0}, f.errs[name]
}

func newTestStore(t *testing.T) *storage.SQLiteAdapter {
	t.Helper()
	store, err := storage.NewSQLiteAdapter(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestTryJohn_WritesHashFileAndReportsNoPasswordOnEmptyShow(t *testing.T) {
	runner := newFakeRunner()
	runner.responses["hcx2john"] = ports.ToolResult{ExitCode: 0, Stdout: "TargetNet:$WPAPSK$TargetNet#abc:aa:bb:cc:dd:ee:01:...\n"}
	runner.responses["john"] = ports.ToolResult{ExitCode: 0}

	capFile := filepath.Join(t.TempDir(), "capture.cap")
	require.NoError(t, os.WriteFile(capFile, []byte("x"), 0o644))

	pool := NewPool(DefaultConfig(), runner, newTestStore(t), nil)
	h := &domain.Handshake{FilePath: capFile, SSID: "TargetNet", BSSID: "aa:bb:cc:dd:ee:01"}

	// `john --show` is routed through the same "john" response in this
	// fake, which returns empty stdout, so ParseJohnShow finds nothing and
	// tryJohn reports no password. This still exercises the hcx2john
	// conversion and hash-file write.
	password, ok := pool.tryJohn(context.Background(), h)
	assert.False(t, ok)
	assert.Empty(t, password)

	johnHash := capFile + ".john"
	data, err := os.ReadFile(johnHash)
	require.NoError(t, err)
	assert.Contains(t, string(data), "$WPAPSK$")
}

func TestTryHashcat_ParsesCrackedFile(t *testing.T) {
	dir := t.TempDir()
	capFile := filepath.Join(dir, "capture.cap")
	hashFile := capFile + ".22000"
	crackedFile := hashFile + ".cracked"

	runner := newFakeRunner()
	runner.responses["hcxpcapngtool"] = ports.ToolResult{ExitCode: 0}
	// hcxpcapngtool normally writes hashFile as a side effect; simulate it.
	require.NoError(t, os.WriteFile(hashFile, []byte("hash-line"), 0o644))
	require.NoError(t, os.WriteFile(crackedFile, []byte("hash-line:hunter2\n"), 0o644))

	pool := NewPool(DefaultConfig(), runner, newTestStore(t), nil)
	h := &domain.Handshake{FilePath: capFile, SSID: "TargetNet", BSSID: "aa:bb:cc:dd:ee:01"}

	password, ok := pool.tryHashcat(context.Background(), h)
	require.True(t, ok)
	assert.Equal(t, "hunter2", password)
}

func TestTryAircrack_ParsesKeyFoundLine(t *testing.T) {
	runner := newFakeRunner()
	runner.responses["aircrack-ng"] = ports.ToolResult{ExitCode: 0, Stdout: "KEY FOUND! [ hunter2 ]\n"}

	pool := NewPool(DefaultConfig(), runner, newTestStore(t), nil)
	h := &domain.Handshake{FilePath: filepath.Join(t.TempDir(), "capture.cap"), BSSID: "aa:bb:cc:dd:ee:01"}

	password, ok := pool.tryAircrack(context.Background(), h)
	require.True(t, ok)
	assert.Equal(t, "hunter2", password)
}

func TestWaitForCaptureFile_SucceedsWhenLargeEnough(t *testing.T) {
	pool := NewPool(DefaultConfig(), newFakeRunner(), newTestStore(t), nil)
	path := filepath.Join(t.TempDir(), "capture.cap")
	require.NoError(t, os.WriteFile(path, make([]byte, 2048), 0o644))

	pool.cfg.FileWaitTimeout = 200 * time.Millisecond
	assert.True(t, pool.waitForCaptureFile(context.Background(), path))
}

func TestWaitForCaptureFile_TimesOutWhenMissing(t *testing.T) {
	pool := NewPool(DefaultConfig(), newFakeRunner(), newTestStore(t), nil)
	pool.cfg.FileWaitTimeout = 50 * time.Millisecond
	assert.False(t, pool.waitForCaptureFile(context.Background(), filepath.Join(t.TempDir(), "missing.cap")))
}

func TestProcess_EndToEnd_InsertsCrackedKeyAndFiresCallback(t *testing.T) {
	dir := t.TempDir()
	capFile := filepath.Join(dir, "capture.cap")
	require.NoError(t, os.WriteFile(capFile, make([]byte, 2048), 0o644))

	runner := newFakeRunner()
	runner.responses["aircrack-ng"] = ports.ToolResult{ExitCode: 0, Stdout: "KEY FOUND! [ hunter2 ]\n"}
	runner.errs["health:john"] = assert.AnError
	runner.errs["health:hashcat"] = assert.AnError

	cfg := DefaultConfig()
	cfg.Engines = []string{"john", "hashcat", "aircrack-ng"}
	cfg.FileWaitTimeout = 500 * time.Millisecond

	store := newTestStore(t)
	pool := NewPool(cfg, runner, store, nil)

	var cracked domain.CrackedKey
	done := make(chan struct{})
	pool.OnKeyCracked(func(k domain.CrackedKey) {
		cracked = k
		close(done)
	})

	ctx := context.Background()
	id, err := store.InsertHandshake(ctx, domain.Handshake{
		BSSID: "aa:bb:cc:dd:ee:01", SSID: "TargetNet", FilePath: capFile, Status: domain.HandshakeStatusPending,
	})
	require.NoError(t, err)

	pool.process(ctx, id)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("OnKeyCracked callback never fired")
	}

	assert.Equal(t, "hunter2", cracked.Password)
	assert.Equal(t, domain.CrackEngine("aircrack-ng"), cracked.Engine)

	key, err := store.KeyFor(ctx, "aa:bb:cc:dd:ee:01")
	require.NoError(t, err)
	require.NotNil(t, key)
	assert.Equal(t, "hunter2", key.Password)
}

func TestEngineBinary(t *testing.T) {
	assert.Equal(t, "john", engineBinary("john"))
	assert.Equal(t, "hashcat", engineBinary("hashcat"))
	assert.Equal(t, "aircrack-ng", engineBinary("aircrack-ng"))
	assert.Equal(t, "custom-tool", engineBinary("custom-tool"))
}

func TestEnqueue_DropsWhenQueueFull(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxConcurrentCracks = 1 // queue capacity = 4
	pool := NewPool(cfg, newFakeRunner(), newTestStore(t), nil)

	for i := 0; i < 4; i++ {
		pool.Enqueue(uint64(i))
	}
	// the 5th submission must not block
	done := make(chan struct{})
	go func() {
		pool.Enqueue(999)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Enqueue blocked on a full queue")
	}
}

