package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

var ErrNotFound = errors.New("not found")

const WinPoints = 3

// MatchResult is what the room layer hands over once a match reached game_end.
type MatchResult struct {
	RoomID     string
	GameID     string
	WinnerTeam string
	ScoreA     int
	ScoreB     int
	Hands      int
	Winners    []string
	Losers     []string
	FinishedAt time.Time
}

type MatchRecord struct {
	ID         string `gorm:"primaryKey"`
	GameID     string `gorm:"uniqueIndex;not null"`
	RoomID     string `gorm:"index;not null"`
	WinnerTeam string `gorm:"size:1;not null"`
	ScoreA     int
	ScoreB     int
	Hands      int
	FinishedAt time.Time
}

type Ranking struct {
	UserID    string    `gorm:"primaryKey" json:"userId"`
	Points    int       `gorm:"not null;default:0" json:"points"`
	Wins      int       `gorm:"not null;default:0" json:"wins"`
	Losses    int       `gorm:"not null;default:0" json:"losses"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Store keeps match results and the ranking in Postgres.
type Store struct {
	db  *gorm.DB
	log *zap.Logger
}

func Open(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	s := New(db, log)
	if err := s.Migrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func New(db *gorm.DB, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{db: db, log: log}
}

func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&MatchRecord{}, &Ranking{}); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// RecordMatch stores the result and updates every player's ranking in one transaction.
// A game id that was already recorded is ignored.
func (s *Store) RecordMatch(ctx context.Context, m MatchResult) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec := toRecord(m)
		res := tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "game_id"}}, DoNothing: true}).Create(&rec)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			s.log.Info("match already recorded", zap.String("game_id", m.GameID))
			return nil
		}

		for _, row := range rankingDeltas(m) {
			row.UpdatedAt = m.FinishedAt
			err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "user_id"}},
				DoUpdates: clause.Assignments(map[string]any{
					"points":     gorm.Expr("rankings.points + ?", row.Points),
					"wins":       gorm.Expr("rankings.wins + ?", row.Wins),
					"losses":     gorm.Expr("rankings.losses + ?", row.Losses),
					"updated_at": row.UpdatedAt,
				}),
			}).Create(&row).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("record match %s: %w", m.GameID, err)
	}
	return nil
}

func (s *Store) Top(ctx context.Context, limit int) ([]Ranking, error) {
	var rows []Ranking
	err := s.db.WithContext(ctx).Order("points DESC, wins DESC").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("top rankings: %w", err)
	}
	return rows, nil
}

func (s *Store) RankingOf(ctx context.Context, userID string) (Ranking, error) {
	var row Ranking
	err := s.db.WithContext(ctx).First(&row, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Ranking{}, ErrNotFound
	}
	if err != nil {
		return Ranking{}, fmt.Errorf("ranking of %s: %w", userID, err)
	}
	return row, nil
}

func toRecord(m MatchResult) MatchRecord {
	return MatchRecord{
		ID:         uuid.NewString(),
		GameID:     m.GameID,
		RoomID:     m.RoomID,
		WinnerTeam: m.WinnerTeam,
		ScoreA:     m.ScoreA,
		ScoreB:     m.ScoreB,
		Hands:      m.Hands,
		FinishedAt: m.FinishedAt,
	}
}

// rankingDeltas is the per-player increment a match is worth.
func rankingDeltas(m MatchResult) []Ranking {
	rows := make([]Ranking, 0, len(m.Winners)+len(m.Losers))
	for _, id := range m.Winners {
		rows = append(rows, Ranking{UserID: id, Points: WinPoints, Wins: 1})
	}
	for _, id := range m.Losers {
		rows = append(rows, Ranking{UserID: id, Losses: 1})
	}
	return rows
}
