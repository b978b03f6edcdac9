// Package archive persists finished rounds so past matches survive lobby
// teardown. It is optional: the engine runs fine with a nil Recorder.
package archive

import (
	"context"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Match is one completed round.
type Match struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	LobbyCode string `gorm:"index" json:"lobby"`
	LobbyName string `json:"name"`
	HostName  string `json:"host_name"`
	GuestName string `json:"guest_name"`
	// Winner is "host", "guest", or empty when the round ended on a loss
	// with no winning side.
	Winner    string    `json:"winner,omitempty"`
	HostWord  string    `json:"host_word"`
	GuestWord string    `json:"guest_word"`
	CreatedAt time.Time `json:"created_at"`
}

// Recorder is what the lobby actor needs from persistence.
type Recorder interface {
	Record(ctx context.Context, m Match) error
	Recent(ctx context.Context, limit int) ([]Match, error)
}

type Store struct {
	db *gorm.DB
}

// Open connects to Postgres and migrates the match table.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&Match{}); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Record(ctx context.Context, m Match) error {
	return s.db.WithContext(ctx).Create(&m).Error
}

func (s *Store) Recent(ctx context.Context, limit int) ([]Match, error) {
	var out []Match
	err := s.db.WithContext(ctx).
		Order("created_at desc").
		Limit(limit).
		Find(&out).Error
	return out, err
}
