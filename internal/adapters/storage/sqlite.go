// Package storage implements the Evidence Store (§4.B) with GORM over
// SQLite, following the same WAL/busy-timeout pragmas, manual migration
// fallback, and clause.OnConflict upsert idiom the teacher uses for its
// device store.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jobsdonn/PenDonn/internal/core/domain"
	"github.com/jobsdonn/PenDonn/internal/core/ports"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"
)

// SQLiteAdapter implements ports.Storage using GORM and SQLite.
type SQLiteAdapter struct {
	db   *gorm.DB
	path string
}

// NewSQLiteAdapter opens (creating if needed) the database at path and
// runs migrations.
func NewSQLiteAdapter(path string) (*SQLiteAdapter, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&NetworkModel{}, &HandshakeModel{}, &CrackedKeyModel{}, &ScanModel{}, &VulnerabilityModel{}); err != nil {
		return nil, err
	}

	if err := db.Use(tracing.NewPlugin()); err != nil {
		return nil, err
	}

	// WAL mode allows simultaneous readers and one writer.
	db.Exec("PRAGMA journal_mode=WAL;")
	// Busy timeout prevents "database locked" errors by waiting.
	db.Exec("PRAGMA busy_timeout=5000;")
	db.Exec("PRAGMA synchronous=NORMAL;")

	if !db.Migrator().HasColumn(&NetworkModel{}, "IsWhitelisted") {
		slog.Warn("manually adding missing column", "table", "network_models", "column", "is_whitelisted")
		db.Migrator().AddColumn(&NetworkModel{}, "IsWhitelisted")
	}

	db.Exec("CREATE INDEX IF NOT EXISTS idx_handshakes_status ON handshake_models(status)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_scans_network ON scan_models(network_id)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_vulns_host ON vulnerability_models(host)")

	return &SQLiteAdapter{db: db, path: path}, nil
}

// UpsertNetwork inserts a network on first sighting or updates signal,
// channel, encryption, SSID and last_seen on conflict, preserving
// is_whitelisted and first_seen (§4.B).
func (a *SQLiteAdapter) UpsertNetwork(ctx context.Context, n domain.Network) (uint64, error) {
	model := networkToModel(n)
	if model.FirstSeen.IsZero() {
		model.FirstSeen = time.Now()
	}
	if model.LastSeen.IsZero() {
		model.LastSeen = model.FirstSeen
	}

	err := a.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "bssid"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"ssid", "channel", "encryption", "signal_strength", "last_seen",
		}),
	}).Create(&model).Error
	if err != nil {
		return 0, err
	}

	var stored NetworkModel
	if err := a.db.WithContext(ctx).Where("bssid = ?", n.BSSID).First(&stored).Error; err != nil {
		return 0, err
	}
	return stored.ID, nil
}

func (a *SQLiteAdapter) SetWhitelisted(ctx context.Context, bssid string, whitelisted bool) error {
	return a.db.WithContext(ctx).Model(&NetworkModel{}).Where("bssid = ?", bssid).
		Update("is_whitelisted", whitelisted).Error
}

func (a *SQLiteAdapter) GetNetwork(ctx context.Context, bssid string) (*domain.Network, error) {
	var m NetworkModel
	if err := a.db.WithContext(ctx).Where("bssid = ?", bssid).First(&m).Error; err != nil {
		return nil, err
	}
	n := networkToDomain(m)
	return &n, nil
}

func (a *SQLiteAdapter) ListNetworks(ctx context.Context) ([]domain.Network, error) {
	var models []NetworkModel
	if err := a.db.WithContext(ctx).Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Network, len(models))
	for i, m := range models {
		out[i] = networkToDomain(m)
	}
	return out, nil
}

func (a *SQLiteAdapter) InsertHandshake(ctx context.Context, h domain.Handshake) (uint64, error) {
	h.Status = domain.HandshakeStatusPending
	model := handshakeToModel(h)
	if model.CaptureDate.IsZero() {
		model.CaptureDate = time.Now()
	}
	if err := a.db.WithContext(ctx).Create(&model).Error; err != nil {
		return 0, err
	}
	return model.ID, nil
}

func (a *SQLiteAdapter) PendingHandshakes(ctx context.Context) ([]domain.Handshake, error) {
	var models []HandshakeModel
	if err := a.db.WithContext(ctx).Where("status = ?", string(domain.HandshakeStatusPending)).
		Order("capture_date asc").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Handshake, len(models))
	for i, m := range models {
		out[i] = handshakeToDomain(m)
	}
	return out, nil
}

func (a *SQLiteAdapter) GetHandshake(ctx context.Context, id uint64) (*domain.Handshake, error) {
	var m HandshakeModel
	if err := a.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, err
	}
	h := handshakeToDomain(m)
	return &h, nil
}

// SetHandshakeStatus enforces the pending->cracking->{cracked,failed} DAG;
// any other transition is a StoreConflict (§7).
func (a *SQLiteAdapter) SetHandshakeStatus(ctx context.Context, id uint64, status domain.HandshakeStatus) error {
	return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m HandshakeModel
		if err := tx.First(&m, id).Error; err != nil {
			return err
		}
		current := domain.HandshakeStatus(m.Status)
		if !current.ValidTransition(status) {
			return ports.NewError(ports.KindStoreConflict,
				fmt.Sprintf("illegal handshake transition %s -> %s", current, status), nil)
		}
		return tx.Model(&m).Update("status", string(status)).Error
	})
}

// InsertCrackedKey inserts the key and transitions the referenced
// handshake to cracked in the same transaction (§4.B).
func (a *SQLiteAdapter) InsertCrackedKey(ctx context.Context, k domain.CrackedKey) (uint64, error) {
	model := crackedKeyToModel(k)
	if model.CrackedDate.IsZero() {
		model.CrackedDate = time.Now()
	}

	var newID uint64
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&model).Error; err != nil {
			return err
		}
		newID = model.ID

		var hm HandshakeModel
		if err := tx.First(&hm, k.HandshakeID).Error; err != nil {
			return err
		}
		current := domain.HandshakeStatus(hm.Status)
		if !current.ValidTransition(domain.HandshakeStatusCracked) {
			return ports.NewError(ports.KindStoreConflict,
				fmt.Sprintf("illegal handshake transition %s -> cracked", current), nil)
		}
		return tx.Model(&hm).Update("status", string(domain.HandshakeStatusCracked)).Error
	})
	if err != nil {
		return 0, err
	}
	return newID, nil
}

func (a *SQLiteAdapter) KeyFor(ctx context.Context, bssid string) (*domain.CrackedKey, error) {
	var m CrackedKeyModel
	err := a.db.WithContext(ctx).Where("bssid = ?", bssid).First(&m).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	k := crackedKeyToDomain(m)
	return &k, nil
}

func (a *SQLiteAdapter) InsertScan(ctx context.Context, s domain.Scan) (uint64, error) {
	if s.Status == "" {
		s.Status = domain.ScanStatusRunning
	}
	if s.StartTime.IsZero() {
		s.StartTime = time.Now()
	}
	model := scanToModel(s)
	if err := a.db.WithContext(ctx).Create(&model).Error; err != nil {
		return 0, err
	}
	return model.ID, nil
}

func (a *SQLiteAdapter) UpdateScan(ctx context.Context, id uint64, status domain.ScanStatus, results string, vulnCount int) error {
	updates := map[string]interface{}{
		"status":                string(status),
		"results":               results,
		"vulnerabilities_found": vulnCount,
		"end_time":              time.Now(),
	}
	return a.db.WithContext(ctx).Model(&ScanModel{}).Where("id = ?", id).Updates(updates).Error
}

func (a *SQLiteAdapter) GetScanForNetwork(ctx context.Context, networkID uint64, scanType domain.ScanType) (*domain.Scan, error) {
	var m ScanModel
	err := a.db.WithContext(ctx).Where("network_id = ? AND scan_type = ? AND status IN ?",
		networkID, string(scanType), []string{string(domain.ScanStatusRunning), string(domain.ScanStatusCompleted)}).
		Order("id desc").First(&m).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s := scanToDomain(m)
	return &s, nil
}

func (a *SQLiteAdapter) InsertVulnerability(ctx context.Context, v domain.Vulnerability) (uint64, error) {
	if v.DiscoveredDate.IsZero() {
		v.DiscoveredDate = time.Now()
	}
	model := vulnerabilityToModel(v)
	if err := a.db.WithContext(ctx).Create(&model).Error; err != nil {
		return 0, err
	}
	return model.ID, nil
}

func (a *SQLiteAdapter) Statistics(ctx context.Context) (ports.Statistics, error) {
	var stats ports.Statistics
	db := a.db.WithContext(ctx)

	var networks, handshakes, keys, scans, vulns int64
	if err := db.Model(&NetworkModel{}).Count(&networks).Error; err != nil {
		return stats, err
	}
	if err := db.Model(&HandshakeModel{}).Count(&handshakes).Error; err != nil {
		return stats, err
	}
	if err := db.Model(&CrackedKeyModel{}).Count(&keys).Error; err != nil {
		return stats, err
	}
	if err := db.Model(&ScanModel{}).Count(&scans).Error; err != nil {
		return stats, err
	}
	if err := db.Model(&VulnerabilityModel{}).Count(&vulns).Error; err != nil {
		return stats, err
	}

	stats.Networks = int(networks)
	stats.Handshakes = int(handshakes)
	stats.CrackedKeys = int(keys)
	stats.Scans = int(scans)
	stats.Vulnerabilities = int(vulns)
	return stats, nil
}

// Reset atomically wipes all evidence tables. If keepBackup is set, the
// database file is copied to a timestamped sibling first; if cleanFiles is
// set, capture/scan artifact files are left to the caller to remove (the
// Evidence Store owns no filesystem paths beyond its own db file).
func (a *SQLiteAdapter) Reset(ctx context.Context, keepBackup bool, cleanFiles bool) error {
	if keepBackup {
		backupPath := fmt.Sprintf("%s.backup.%s", a.path, time.Now().UTC().Format("20060102T150405Z"))
		if err := copyFile(a.path, backupPath); err != nil {
			return fmt.Errorf("backing up store: %w", err)
		}
	}

	return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{&VulnerabilityModel{}, &ScanModel{}, &CrackedKeyModel{}, &HandshakeModel{}, &NetworkModel{}} {
			if err := tx.Where("1 = 1").Delete(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}

// Export serializes the entire store into the §6 JSON dump shape.
func (a *SQLiteAdapter) Export(ctx context.Context) (ports.ExportDump, error) {
	var dump ports.ExportDump
	dump.ExportDate = time.Now().UTC().Format(time.RFC3339)

	var err error
	if dump.Networks, err = a.ListNetworks(ctx); err != nil {
		return dump, err
	}

	var handshakeModels []HandshakeModel
	if err := a.db.WithContext(ctx).Find(&handshakeModels).Error; err != nil {
		return dump, err
	}
	for _, m := range handshakeModels {
		dump.Handshakes = append(dump.Handshakes, handshakeToDomain(m))
	}

	var keyModels []CrackedKeyModel
	if err := a.db.WithContext(ctx).Find(&keyModels).Error; err != nil {
		return dump, err
	}
	for _, m := range keyModels {
		dump.CrackedPasswords = append(dump.CrackedPasswords, crackedKeyToDomain(m))
	}

	var scanModels []ScanModel
	if err := a.db.WithContext(ctx).Find(&scanModels).Error; err != nil {
		return dump, err
	}
	for _, m := range scanModels {
		dump.Scans = append(dump.Scans, scanToDomain(m))
	}

	var vulnModels []VulnerabilityModel
	if err := a.db.WithContext(ctx).Find(&vulnModels).Error; err != nil {
		return dump, err
	}
	for _, m := range vulnModels {
		dump.Vulnerabilities = append(dump.Vulnerabilities, vulnerabilityToDomain(m))
	}

	if dump.Statistics, err = a.Statistics(ctx); err != nil {
		return dump, err
	}
	return dump, nil
}

// Import replays an ExportDump's rows back into the store. Used by the
// export/wipe/import round-trip idempotence law of §8.
func (a *SQLiteAdapter) Import(ctx context.Context, dump ports.ExportDump) error {
	return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, n := range dump.Networks {
			m := networkToModel(n)
			if err := tx.Create(&m).Error; err != nil {
				return err
			}
		}
		for _, h := range dump.Handshakes {
			m := handshakeToModel(h)
			if err := tx.Create(&m).Error; err != nil {
				return err
			}
		}
		for _, k := range dump.CrackedPasswords {
			m := crackedKeyToModel(k)
			if err := tx.Create(&m).Error; err != nil {
				return err
			}
		}
		for _, s := range dump.Scans {
			m := scanToModel(s)
			if err := tx.Create(&m).Error; err != nil {
				return err
			}
		}
		for _, v := range dump.Vulnerabilities {
			m := vulnerabilityToModel(v)
			if err := tx.Create(&m).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (a *SQLiteAdapter) Close() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var _ ports.Storage = (*SQLiteAdapter)(nil)
