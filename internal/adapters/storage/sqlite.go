// Package storage persists captured handshakes and scan results in
// SQLite through GORM.
package storage

import (
	"encoding/hex"
	"net"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/chimera-red/chimera/internal/core/domain"
	"github.com/chimera-red/chimera/internal/core/ports"
)

// SQLiteAdapter implements ports.HandshakeStore using GORM and SQLite.
type SQLiteAdapter struct {
	db *gorm.DB
}

// HandshakeModel is the GORM model for captured handshakes. Binary
// fields are stored hex encoded so the rows stay greppable with the
// sqlite3 CLI.
type HandshakeModel struct {
	ID             string `gorm:"primaryKey"`
	BSSID          string `gorm:"index"`
	Station        string `gorm:"index"`
	ANonce         string
	SNonce         string
	MIC            string
	ReplayCounter  string
	KeyDescType    uint8
	KeyDescVersion uint8
	EAPOLFrame     []byte
	Channel        int
	RSSI           int
	CapturedAt     time.Time `gorm:"index"`
}

// ScanResultModel is the GORM model for scan results.
type ScanResultModel struct {
	ID         uint   `gorm:"primaryKey"`
	SSID       string `gorm:"index"`
	BSSID      string `gorm:"index"`
	RSSI       int
	Channel    int
	Encryption string
	SeenAt     time.Time
}

// NewSQLiteAdapter opens the database, wires query tracing and migrates
// the schema.
func NewSQLiteAdapter(path string) (*SQLiteAdapter, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&HandshakeModel{}, &ScanResultModel{}); err != nil {
		return nil, err
	}

	db.Exec("CREATE INDEX IF NOT EXISTS idx_handshakes_pair ON handshake_models(bssid, station)")

	return &SQLiteAdapter{db: db}, nil
}

// SaveHandshake persists one completed handshake.
func (a *SQLiteAdapter) SaveHandshake(hs *domain.Handshake) error {
	model := HandshakeModel{
		ID:             hs.ID,
		BSSID:          hs.BSSID.String(),
		Station:        hs.Station.String(),
		ANonce:         hex.EncodeToString(hs.ANonce[:]),
		SNonce:         hex.EncodeToString(hs.SNonce[:]),
		MIC:            hex.EncodeToString(hs.MIC[:]),
		ReplayCounter:  hex.EncodeToString(hs.ReplayCounter[:]),
		KeyDescType:    hs.KeyDescType,
		KeyDescVersion: hs.KeyDescVersion,
		EAPOLFrame:     append([]byte(nil), hs.EAPOLFrame...),
		Channel:        hs.Channel,
		RSSI:           hs.RSSI,
		CapturedAt:     hs.Timestamp,
	}
	return a.db.Save(&model).Error
}

// ListHandshakes returns all persisted handshakes, newest first.
func (a *SQLiteAdapter) ListHandshakes() ([]domain.Handshake, error) {
	var models []HandshakeModel
	if err := a.db.Order("captured_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}

	out := make([]domain.Handshake, 0, len(models))
	for _, m := range models {
		hs, err := toDomainHandshake(m)
		if err != nil {
			// Skip rows with corrupted hex rather than failing the
			// whole listing.
			continue
		}
		out = append(out, hs)
	}
	return out, nil
}

// SaveScanResults stores a scan snapshot in a single transaction.
func (a *SQLiteAdapter) SaveScanResults(results []domain.ScanResult) error {
	if len(results) == 0 {
		return nil
	}
	now := time.Now()
	models := make([]ScanResultModel, len(results))
	for i, r := range results {
		models[i] = ScanResultModel{
			SSID:       r.SSID,
			BSSID:      r.BSSID,
			RSSI:       r.RSSI,
			Channel:    r.Channel,
			Encryption: r.Encryption,
			SeenAt:     now,
		}
	}
	return a.db.Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(models, 100).Error
	})
}

func toDomainHandshake(m HandshakeModel) (domain.Handshake, error) {
	hs := domain.Handshake{
		ID:             m.ID,
		KeyDescType:    m.KeyDescType,
		KeyDescVersion: m.KeyDescVersion,
		EAPOLFrame:     append([]byte(nil), m.EAPOLFrame...),
		Channel:        m.Channel,
		RSSI:           m.RSSI,
		Timestamp:      m.CapturedAt,
	}

	var err error
	if hs.BSSID, err = net.ParseMAC(m.BSSID); err != nil {
		return hs, err
	}
	if hs.Station, err = net.ParseMAC(m.Station); err != nil {
		return hs, err
	}
	if err = decodeInto(hs.ANonce[:], m.ANonce); err != nil {
		return hs, err
	}
	if err = decodeInto(hs.SNonce[:], m.SNonce); err != nil {
		return hs, err
	}
	if err = decodeInto(hs.MIC[:], m.MIC); err != nil {
		return hs, err
	}
	if err = decodeInto(hs.ReplayCounter[:], m.ReplayCounter); err != nil {
		return hs, err
	}
	return hs, nil
}

func decodeInto(dst []byte, s string) error {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	copy(dst, raw)
	return nil
}

func (a *SQLiteAdapter) Close() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ensure interface compliance
var _ ports.HandshakeStore = (*SQLiteAdapter)(nil)
