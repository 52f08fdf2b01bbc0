package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"riftdraft/internal/engine"
	"riftdraft/internal/series"
)

var ErrGameNotArchived = errors.New("game not archived")

// GameRow archives one completed draft, with the full terminal state as JSON
// so a session snapshot round-trips losslessly.
type GameRow struct {
	ID         uint   `gorm:"primaryKey"`
	SessionID  string `gorm:"uniqueIndex;size:64"`
	SeriesID   string `gorm:"index;size:64"`
	GameNumber int
	Winner     string `gorm:"size:8"`
	Forfeited  bool
	State      string `gorm:"type:jsonb"`
	CreatedAt  time.Time
}

type SeriesRow struct {
	ID         uint   `gorm:"primaryKey"`
	SeriesID   string `gorm:"uniqueIndex;size:64"`
	SeriesType string `gorm:"size:8"`
	Fearless   bool
	Tournament string
	BlueTeam   string
	RedTeam    string
	BlueScore  int
	RedScore   int
	Winner     string `gorm:"size:8"`
	Decided    bool
	CreatedAt  time.Time
}

// Archive persists finished games and series to postgres for historical
// display.
type Archive struct {
	db *gorm.DB
}

func NewArchive(databaseURL string) (*Archive, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("store: open postgres: %w", err)
	}
	if err := db.AutoMigrate(&GameRow{}, &SeriesRow{}); err != nil {
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return &Archive{db: db}, nil
}

func (a *Archive) SaveGame(ctx context.Context, seriesID string, rec series.GameRecord, state engine.State) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("store: marshal game state: %w", err)
	}
	row := GameRow{
		SessionID:  rec.SessionID,
		SeriesID:   seriesID,
		GameNumber: rec.GameNumber,
		Winner:     string(rec.Winner),
		Forfeited:  rec.Forfeited,
		State:      string(raw),
	}
	if err := a.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("store: save game %s: %w", rec.SessionID, err)
	}
	return nil
}

func (a *Archive) SaveSeries(ctx context.Context, sr *series.Series, winner engine.Side, decided bool) error {
	row := SeriesRow{
		SeriesID:   sr.ID,
		SeriesType: string(sr.Type),
		Fearless:   sr.Fearless,
		Tournament: sr.Tournament,
		BlueScore:  sr.Score[engine.SideBlue],
		RedScore:   sr.Score[engine.SideRed],
		Winner:     string(winner),
		Decided:    decided,
	}
	if ref, ok := sr.Roster(engine.SideBlue); ok {
		row.BlueTeam = ref.Name
	}
	if ref, ok := sr.Roster(engine.SideRed); ok {
		row.RedTeam = ref.Name
	}
	if err := a.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("store: save series %s: %w", sr.ID, err)
	}
	return nil
}

// LoadGame rehydrates the archived terminal state of a completed draft.
func (a *Archive) LoadGame(ctx context.Context, sessionID string) (engine.State, error) {
	var row GameRow
	err := a.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return engine.State{}, ErrGameNotArchived
	}
	if err != nil {
		return engine.State{}, fmt.Errorf("store: load game %s: %w", sessionID, err)
	}
	var state engine.State
	if err := json.Unmarshal([]byte(row.State), &state); err != nil {
		return engine.State{}, fmt.Errorf("store: decode game %s: %w", sessionID, err)
	}
	return state, nil
}
