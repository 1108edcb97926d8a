package ports

import (
	"context"

	"github.com/jobsdonn/PenDonn/internal/core/domain"
)

// Storage is the Evidence Store contract (§4.B): set-oriented operations
// over the entities of §3, all idempotent or explicitly single-shot. Every
// call is a single transaction; cross-call atomicity is not required.
type Storage interface {
	UpsertNetwork(ctx context.Context, n domain.Network) (uint64, error)
	SetWhitelisted(ctx context.Context, bssid string, whitelisted bool) error
	GetNetwork(ctx context.Context, bssid string) (*domain.Network, error)
	ListNetworks(ctx context.Context) ([]domain.Network, error)

	InsertHandshake(ctx context.Context, h domain.Handshake) (uint64, error)
	PendingHandshakes(ctx context.Context) ([]domain.Handshake, error)
	SetHandshakeStatus(ctx context.Context, id uint64, status domain.HandshakeStatus) error
	GetHandshake(ctx context.Context, id uint64) (*domain.Handshake, error)

	InsertCrackedKey(ctx context.Context, k domain.CrackedKey) (uint64, error)
	KeyFor(ctx context.Context, bssid string) (*domain.CrackedKey, error)

	InsertScan(ctx context.Context, s domain.Scan) (uint64, error)
	UpdateScan(ctx context.Context, id uint64, status domain.ScanStatus, results string, vulnCount int) error
	GetScanForNetwork(ctx context.Context, networkID uint64, scanType domain.ScanType) (*domain.Scan, error)

	InsertVulnerability(ctx context.Context, v domain.Vulnerability) (uint64, error)

	Statistics(ctx context.Context) (Statistics, error)
	Reset(ctx context.Context, keepBackup bool, cleanFiles bool) error

	Export(ctx context.Context) (ExportDump, error)
	Import(ctx context.Context, dump ExportDump) error

	Close() error
}

// Statistics is the aggregate counts driving the §4.H orchestrator
// heartbeat and the dashboard's summary view.
type Statistics struct {
	Networks        int
	Handshakes      int
	CrackedKeys     int
	Scans           int
	Vulnerabilities int
}

// ExportDump is the JSON export shape named in §6.
type ExportDump struct {
	ExportDate       string                 `json:"export_date"`
	Networks         []domain.Network       `json:"networks"`
	Handshakes       []domain.Handshake     `json:"handshakes"`
	CrackedPasswords []domain.CrackedKey    `json:"cracked_passwords"`
	Scans            []domain.Scan          `json:"scans"`
	Vulnerabilities  []domain.Vulnerability `json:"vulnerabilities"`
	Statistics       Statistics             `json:"statistics"`
}
