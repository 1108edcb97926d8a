package ports

import "context"

// Scheduler owns the mutex-protected shared-resource discipline of §5 and
// §9: at most one capture session, mutual exclusion between capture/scan
// and enumeration, and the two guarded transitions enumeration uses to
// seize and release the radio.
type Scheduler interface {
	// TryBeginCapture reports whether a capture may start: no other
	// capture is active and enumeration is not active. On success it
	// marks a capture active until EndCapture is called.
	TryBeginCapture(bssid string) bool
	EndCapture(bssid string)
	ActiveCaptureCount() int

	// ScanAllowed reports active_captures == 0 && !enumeration_active, the
	// precondition the scan loop polls before spawning its airodump sweep.
	ScanAllowed() bool

	// PauseForEnumeration atomically sets enumeration_active, signals the
	// scan loop to kill its airodump child, and terminates all capture
	// children. Holds its lock for the entirety of the transition,
	// including child-process teardown.
	PauseForEnumeration(ctx context.Context) error
	// ResumeFromEnumeration clears enumeration_active.
	ResumeFromEnumeration()
	EnumerationActive() bool

	// OnScanInterrupt/OnCaptureInterrupt register the callbacks
	// PauseForEnumeration invokes to tear down the scan loop's child and
	// any live capture session, respectively.
	OnScanInterrupt(fn func(ctx context.Context))
	OnCaptureInterrupt(fn func(ctx context.Context))
}
