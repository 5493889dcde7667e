// Package store persists terminal game records and tournament division
// snapshots to Postgres. All writes are best-effort from the caller's point
// of view; live gameplay never waits on the database.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"wordwire/internal/ipc"
)

type GameRecord struct {
	GameID    string `gorm:"primaryKey"`
	EndReason int32
	Winner    string
	Loser     string
	Tie       bool
	Data      []byte `gorm:"type:jsonb"`
	EndedAt   time.Time
	CreatedAt time.Time
}

type DivisionSnapshot struct {
	TournamentID string `gorm:"primaryKey"`
	Division     string `gorm:"primaryKey"`
	CurrentRound int32
	Data         []byte `gorm:"type:jsonb"`
	UpdatedAt    time.Time
}

// Store implements the game Archiver and tournament SnapshotArchiver
// collaborator interfaces on top of gorm.
type Store struct {
	db  *gorm.DB
	log *zap.Logger
}

func Open(dsn string, log *zap.Logger) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	if err := db.AutoMigrate(&GameRecord{}, &DivisionSnapshot{}); err != nil {
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	return &Store{db: db, log: log.Named("store")}, nil
}

// SaveGame writes one terminal game snapshot, keyed by game id. A replayed
// save overwrites with identical content.
func (s *Store) SaveGame(ctx context.Context, ended ipc.GameEndedEvent) error {
	data, err := json.Marshal(ended)
	if err != nil {
		return fmt.Errorf("encoding game record: %w", err)
	}
	rec := GameRecord{
		GameID:    ended.History.GameID,
		EndReason: int32(ended.EndReason),
		Winner:    ended.Winner,
		Loser:     ended.Loser,
		Tie:       ended.Tie,
		Data:      data,
		EndedAt:   time.UnixMilli(ended.Time),
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&rec).Error
}

// SaveDivision upserts the division's rehydration snapshot.
func (s *Store) SaveDivision(ctx context.Context, snap ipc.TournamentDivisionDataResponse) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding division snapshot: %w", err)
	}
	rec := DivisionSnapshot{
		TournamentID: snap.ID,
		Division:     snap.Division,
		CurrentRound: snap.CurrentRound,
		Data:         data,
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&rec).Error
}

// LoadDivision returns a previously saved snapshot, if any.
func (s *Store) LoadDivision(ctx context.Context, tournamentID, division string) (ipc.TournamentDivisionDataResponse, error) {
	var rec DivisionSnapshot
	err := s.db.WithContext(ctx).
		Where("tournament_id = ? AND division = ?", tournamentID, division).
		First(&rec).Error
	if err != nil {
		return ipc.TournamentDivisionDataResponse{}, err
	}
	var snap ipc.TournamentDivisionDataResponse
	if err := json.Unmarshal(rec.Data, &snap); err != nil {
		return ipc.TournamentDivisionDataResponse{}, fmt.Errorf("decoding division snapshot: %w", err)
	}
	return snap, nil
}
