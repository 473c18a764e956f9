// Package replaydb archives applied command envelopes in SQLite so matches
// can be re-simulated later.
package replaydb

import (
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/1siamBot/rts-orders/engine/core"
	"github.com/1siamBot/rts-orders/engine/network"
)

// Match is one archived game
type Match struct {
	ID        string `gorm:"primaryKey;size:36"`
	CreatedAt time.Time
	Commands  []CommandRecord `gorm:"foreignKey:MatchID"`
}

// CommandRecord is one applied envelope. Seqno is the application order
// within the match.
type CommandRecord struct {
	ID       uint   `gorm:"primaryKey"`
	MatchID  string `gorm:"size:36;index:idx_match_seqno,priority:1"`
	Seqno    int    `gorm:"index:idx_match_seqno,priority:2"`
	Tick     uint64
	Seq      uint32
	PlayerID int32
	Handler  uint8
	Payload  []byte
}

// Archive is a SQLite-backed command store
type Archive struct {
	db *gorm.DB
}

// Open opens (or creates) an archive at path. An empty path uses a private
// in-memory database.
func Open(path string) (*Archive, error) {
	dsn := path
	if dsn == "" {
		dsn = "file::memory:"
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		CreateBatchSize:        500,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	if path == "" {
		// each pooled connection would otherwise get its own empty memory db
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	if err := db.AutoMigrate(&Match{}, &CommandRecord{}); err != nil {
		return nil, fmt.Errorf("migrate archive: %w", err)
	}
	return &Archive{db: db}, nil
}

// Close releases the database
func (a *Archive) Close() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Begin registers a match and returns a recorder appending to it
func (a *Archive) Begin(match uuid.UUID) (*Recorder, error) {
	m := Match{ID: match.String()}
	if err := a.db.FirstOrCreate(&m, Match{ID: m.ID}).Error; err != nil {
		return nil, fmt.Errorf("begin match %s: %w", match, err)
	}
	var n int64
	if err := a.db.Model(&CommandRecord{}).Where("match_id = ?", m.ID).Count(&n).Error; err != nil {
		return nil, err
	}
	return &Recorder{db: a.db, matchID: m.ID, next: int(n)}, nil
}

// Matches lists archived match ids, oldest first
func (a *Archive) Matches() ([]uuid.UUID, error) {
	var ms []Match
	if err := a.db.Order("created_at, id").Find(&ms).Error; err != nil {
		return nil, err
	}
	out := make([]uuid.UUID, 0, len(ms))
	for _, m := range ms {
		id, err := uuid.Parse(m.ID)
		if err != nil {
			return nil, fmt.Errorf("bad match id %q: %w", m.ID, err)
		}
		out = append(out, id)
	}
	return out, nil
}

// Load returns a match's envelopes in application order
func (a *Archive) Load(match uuid.UUID) ([]network.Envelope, error) {
	var recs []CommandRecord
	err := a.db.Where("match_id = ?", match.String()).Order("seqno").Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("load match %s: %w", match, err)
	}
	out := make([]network.Envelope, len(recs))
	for i, r := range recs {
		out[i] = network.Envelope{
			Tick:     r.Tick,
			Seq:      r.Seq,
			PlayerID: core.PlayerID(r.PlayerID),
			Handler:  network.HandlerID(r.Handler),
			Payload:  r.Payload,
		}
	}
	return out, nil
}

// Recorder appends envelopes to one match
type Recorder struct {
	db      *gorm.DB
	matchID string
	next    int
}

// Record stores an applied envelope
func (r *Recorder) Record(env network.Envelope) error {
	rec := CommandRecord{
		MatchID:  r.matchID,
		Seqno:    r.next,
		Tick:     env.Tick,
		Seq:      env.Seq,
		PlayerID: int32(env.PlayerID),
		Handler:  uint8(env.Handler),
		Payload:  env.Payload,
	}
	if err := r.db.Create(&rec).Error; err != nil {
		return fmt.Errorf("record command: %w", err)
	}
	r.next++
	return nil
}
