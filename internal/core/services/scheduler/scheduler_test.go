package scheduler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTryBeginCapture_MutualExclusion(t *testing.T) {
	s := New(nil)

	assert.True(t, s.TryBeginCapture("aa:bb:cc:dd:ee:01"))
	assert.False(t, s.TryBeginCapture("aa:bb:cc:dd:ee:02"), "only one capture may be active at a time")
	assert.Equal(t, 1, s.ActiveCaptureCount())

	s.EndCapture("aa:bb:cc:dd:ee:01")
	assert.Equal(t, 0, s.ActiveCaptureCount())
	assert.True(t, s.TryBeginCapture("aa:bb:cc:dd:ee:02"))
}

func TestScanAllowed_BlockedByCaptureOrEnumeration(t *testing.T) {
	s := New(nil)
	assert.True(t, s.ScanAllowed())

	s.TryBeginCapture("aa:bb:cc:dd:ee:01")
	assert.False(t, s.ScanAllowed())
	s.EndCapture("aa:bb:cc:dd:ee:01")
	assert.True(t, s.ScanAllowed())

	_ = s.PauseForEnumeration(context.Background())
	assert.False(t, s.ScanAllowed())
	s.ResumeFromEnumeration()
	assert.True(t, s.ScanAllowed())
}

func TestPauseForEnumeration_InterruptsScanAndCapture(t *testing.T) {
	s := New(nil)
	var scanInterrupted, captureInterrupted bool
	s.OnScanInterrupt(func(ctx context.Context) { scanInterrupted = true })
	s.OnCaptureInterrupt(func(ctx context.Context) { captureInterrupted = true })

	s.TryBeginCapture("aa:bb:cc:dd:ee:01")

	require := assert.New(t)
	require.NoError(s.PauseForEnumeration(context.Background()))
	require.True(scanInterrupted)
	require.True(captureInterrupted)
	require.Equal(0, s.ActiveCaptureCount(), "enumeration must clear any active capture")
	require.True(s.EnumerationActive())
}
