// Pacote migrations centraliza as versões gormigrate aplicadas na inicialização.
package migrations

import (
	"fmt"
	"time"

	gormigrate "github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"github.com/marcelojr/track-battle/internal/domain"
)

// Retratos do schema na primeira versão; não acompanham mudanças em domain.
type trackV1 struct {
	ID        string    `gorm:"column:id;type:char(26);primaryKey"`
	TrackName string    `gorm:"column:track_name;type:text;not null"`
	UserName  string    `gorm:"column:user_name;type:text;not null;index:idx_tracks_user_week,priority:1"`
	Week      string    `gorm:"column:week;type:char(10);not null;index:idx_tracks_week;index:idx_tracks_user_week,priority:2"`
	Votes     int64     `gorm:"column:votes;not null;default:0"`
	AudioURL  string    `gorm:"column:audio_url;type:text"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (trackV1) TableName() string { return "tracks" }

type voteV1 struct {
	ID        string    `gorm:"column:id;type:char(26);primaryKey"`
	TrackID   string    `gorm:"column:track_id;type:char(26);not null;index:idx_votes_track"`
	UserName  string    `gorm:"column:user_name;type:text;not null;index:idx_votes_user_week,priority:1"`
	Week      string    `gorm:"column:week;type:char(10);not null;index:idx_votes_user_week,priority:2"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (voteV1) TableName() string { return "votes" }

func Run(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("migrations: db nulo")
	}

	// Sem unique em (user_name, week): a regra de um envio/voto por semana é consultiva.
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "202602090001_tracks_votes",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&trackV1{}, &voteV1{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("votes", "tracks")
			},
		},
		{
			ID: "202602160001_tracks_duration",
			Migrate: func(tx *gorm.DB) error {
				if tx.Migrator().HasColumn(&domain.Track{}, "duration_ms") {
					return nil
				}
				return tx.Migrator().AddColumn(&domain.Track{}, "DurationMS")
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropColumn(&domain.Track{}, "duration_ms")
			},
		},
	})

	if err := m.Migrate(); err != nil {
		return fmt.Errorf("migrations: falha ao aplicar: %w", err)
	}

	return nil
}
