package repository

import (
	"context"
	"errors"
	"time"

	"GenreFM/model"

	"gorm.io/gorm"
)

// ClassificationRepository stores classification history.
type ClassificationRepository interface {
	Create(ctx context.Context, c *model.Classification) error
	GetByID(ctx context.Context, id string) (*model.Classification, error)
	Recent(ctx context.Context, limit int) ([]*model.Classification, error)
	CountByLabel(ctx context.Context) (map[string]int64, error)
}

// MaxRecent caps the page size of Recent.
const MaxRecent = 200

type gormClassificationRepository struct {
	db *gorm.DB
}

// NewGormClassificationRepository creates a GORM-backed repository.
func NewGormClassificationRepository(db *gorm.DB) ClassificationRepository {
	return &gormClassificationRepository{db: db}
}

// Create inserts c, assigning an id and timestamp when missing.
func (r *gormClassificationRepository) Create(ctx context.Context, c *model.Classification) error {
	if c.ID == "" {
		c.ID = model.NewClassificationID()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	return r.db.WithContext(ctx).Create(c).Error
}

// GetByID returns nil, nil when no row matches.
func (r *gormClassificationRepository) GetByID(ctx context.Context, id string) (*model.Classification, error) {
	var c model.Classification
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// Recent returns the newest records first.
func (r *gormClassificationRepository) Recent(ctx context.Context, limit int) ([]*model.Classification, error) {
	limit = ClampLimit(limit)
	var rows []*model.Classification
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// CountByLabel returns the number of records per label.
func (r *gormClassificationRepository) CountByLabel(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Label string
		Total int64
	}
	err := r.db.WithContext(ctx).
		Model(&model.Classification{}).
		Select("label, COUNT(*) AS total").
		Group("label").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Label] = row.Total
	}
	return out, nil
}

// ClampLimit bounds a requested page size to [1, MaxRecent], defaulting to 20.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return 20
	case limit > MaxRecent:
		return MaxRecent
	default:
		return limit
	}
}
