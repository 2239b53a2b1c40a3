package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/marcelojr/track-battle/internal/domain"
)

// VoteRepository guarda votos; cada registro é imutável depois de criado.
type VoteRepository struct {
	db *gorm.DB
}

func NewVoteRepository(db *gorm.DB) *VoteRepository {
	return &VoteRepository{db: db}
}

type voteModel struct {
	ID        string    `gorm:"column:id;primaryKey"`
	TrackID   string    `gorm:"column:track_id;index"`
	UserName  string    `gorm:"column:user_name"`
	Week      string    `gorm:"column:week"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (voteModel) TableName() string {
	return "votes"
}

func fromDomainVote(v domain.Vote) voteModel {
	return voteModel{
		ID:        string(v.ID),
		TrackID:   string(v.TrackID),
		UserName:  v.UserName,
		Week:      string(v.Week),
		CreatedAt: v.CreatedAt,
	}
}

func (r *VoteRepository) Create(ctx context.Context, v domain.Vote) error {
	model := fromDomainVote(v)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("gorm votes: inserir: %w", err)
	}
	return nil
}

func (r *VoteRepository) ExistsForUser(ctx context.Context, userName string, week domain.WeekKey) (bool, error) {
	var ids []string
	if err := r.db.WithContext(ctx).
		Model(&voteModel{}).
		Where("user_name = ? AND week = ?", userName, string(week)).
		Limit(1).
		Pluck("id", &ids).Error; err != nil {
		return false, fmt.Errorf("gorm votes: existe voto: %w", err)
	}
	return len(ids) > 0, nil
}

func (r *VoteRepository) CountForTrack(ctx context.Context, id domain.TrackID) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&voteModel{}).
		Where("track_id = ?", string(id)).
		Count(&total).Error; err != nil {
		return 0, fmt.Errorf("gorm votes: contar por faixa: %w", err)
	}
	return total, nil
}

var _ domain.VoteRepository = (*VoteRepository)(nil)
