package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/marcelojr/track-battle/internal/domain"
)

// TrackRepository persiste as faixas da semana e o contador denormalizado de votos.
type TrackRepository struct {
	db *gorm.DB
}

func NewTrackRepository(db *gorm.DB) *TrackRepository {
	return &TrackRepository{db: db}
}

type trackModel struct {
	ID         string    `gorm:"column:id;primaryKey"`
	TrackName  string    `gorm:"column:track_name"`
	UserName   string    `gorm:"column:user_name"`
	Week       string    `gorm:"column:week"`
	Votes      int64     `gorm:"column:votes"`
	AudioURL   string    `gorm:"column:audio_url"`
	DurationMS int64     `gorm:"column:duration_ms"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

func (trackModel) TableName() string {
	return "tracks"
}

func (m trackModel) toDomain() domain.Track {
	return domain.Track{
		ID:         domain.TrackID(m.ID),
		TrackName:  m.TrackName,
		UserName:   m.UserName,
		Week:       domain.WeekKey(m.Week),
		Votes:      m.Votes,
		AudioURL:   m.AudioURL,
		DurationMS: m.DurationMS,
		CreatedAt:  m.CreatedAt,
	}
}

func fromDomainTrack(t domain.Track) trackModel {
	return trackModel{
		ID:         string(t.ID),
		TrackName:  t.TrackName,
		UserName:   t.UserName,
		Week:       string(t.Week),
		Votes:      t.Votes,
		AudioURL:   t.AudioURL,
		DurationMS: t.DurationMS,
		CreatedAt:  t.CreatedAt,
	}
}

func (r *TrackRepository) Create(ctx context.Context, t domain.Track) error {
	model := fromDomainTrack(t)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("gorm tracks: inserir: %w", err)
	}
	return nil
}

func (r *TrackRepository) FindByID(ctx context.Context, id domain.TrackID) (domain.Track, error) {
	var model trackModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", string(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Track{}, domain.ErrNotFound
		}
		return domain.Track{}, fmt.Errorf("gorm tracks: buscar id: %w", err)
	}
	return model.toDomain(), nil
}

// ListForWeek devolve as faixas na ordem do banco; o ranking é responsabilidade de quem chama.
func (r *TrackRepository) ListForWeek(ctx context.Context, week domain.WeekKey) ([]domain.Track, error) {
	var models []trackModel
	if err := r.db.WithContext(ctx).
		Where("week = ?", string(week)).
		Order("votes DESC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("gorm tracks: listar semana: %w", err)
	}

	result := make([]domain.Track, len(models))
	for i, model := range models {
		result[i] = model.toDomain()
	}
	return result, nil
}

func (r *TrackRepository) ExistsForUser(ctx context.Context, userName string, week domain.WeekKey) (bool, error) {
	var ids []string
	if err := r.db.WithContext(ctx).
		Model(&trackModel{}).
		Where("user_name = ? AND week = ?", userName, string(week)).
		Limit(1).
		Pluck("id", &ids).Error; err != nil {
		return false, fmt.Errorf("gorm tracks: existe envio: %w", err)
	}
	return len(ids) > 0, nil
}

// IncrementVotes grava current+1. É leitura-e-escrita do lado do chamador: dois votos
// simultâneos podem gravar o mesmo valor.
func (r *TrackRepository) IncrementVotes(ctx context.Context, id domain.TrackID, current int64) error {
	res := r.db.WithContext(ctx).
		Model(&trackModel{}).
		Where("id = ?", string(id)).
		Update("votes", current+1)
	if res.Error != nil {
		return fmt.Errorf("gorm tracks: atualizar votos: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// AddVote incrementa no próprio banco, sem janela para perda de atualização.
func (r *TrackRepository) AddVote(ctx context.Context, id domain.TrackID) error {
	res := r.db.WithContext(ctx).
		Model(&trackModel{}).
		Where("id = ?", string(id)).
		Update("votes", gorm.Expr("votes + ?", 1))
	if res.Error != nil {
		return fmt.Errorf("gorm tracks: incrementar votos: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// RecountVotes recalcula o contador a partir da tabela de votos e devolve o novo total.
func (r *TrackRepository) RecountVotes(ctx context.Context, id domain.TrackID) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&voteModel{}).Where("track_id = ?", string(id)).Count(&total).Error; err != nil {
			return err
		}
		res := tx.Model(&trackModel{}).Where("id = ?", string(id)).Update("votes", total)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return 0, err
		}
		return 0, fmt.Errorf("gorm tracks: recontar votos: %w", err)
	}
	return total, nil
}

// ListWeeks devolve as semanas anteriores a before que têm faixas, da mais recente para a mais antiga.
func (r *TrackRepository) ListWeeks(ctx context.Context, before domain.WeekKey) ([]domain.WeekKey, error) {
	var weeks []string
	if err := r.db.WithContext(ctx).
		Model(&trackModel{}).
		Distinct("week").
		Where("week < ?", string(before)).
		Order("week DESC").
		Pluck("week", &weeks).Error; err != nil {
		return nil, fmt.Errorf("gorm tracks: listar semanas: %w", err)
	}

	result := make([]domain.WeekKey, len(weeks))
	for i, w := range weeks {
		result[i] = domain.WeekKey(w)
	}
	return result, nil
}

var _ domain.TrackRepository = (*TrackRepository)(nil)
