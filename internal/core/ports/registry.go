package ports

import "context"

// InterfaceRegistry is the §4.A contract: resolve logical roles to
// physical NIC names via stable MAC identity, and gate every downstream
// operation against ever touching the management NIC.
type InterfaceRegistry interface {
	// Resolve enumerates link-layer devices, builds a MAC -> NIC mapping,
	// and emits the current name for each configured role. Returns a hard
	// error if any role fails to resolve and SingleInterfaceMode is not
	// enabled.
	Resolve(ctx context.Context) error

	Monitor() string
	Attack() string
	Management() string

	// AssertNotManagement fails with a KindHostSafety CoreError if nic
	// matches the management role. Every call site that takes a NIC name
	// must call this first.
	AssertNotManagement(nic string) error

	EnableMonitorMode(ctx context.Context, nic string) error
	DisableMonitorMode(ctx context.Context, nic string) error
	RestoreOriginalModes(ctx context.Context) error
}
