package repositories

import (
	"context"

	"github.com/maxaizer/autoapply/internal/domain/models"
	"gorm.io/gorm"
)

type Activity struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) *Activity {
	return &Activity{db: db}
}

func (repo *Activity) Append(ctx context.Context, entry models.ActivityLogEntry) error {
	entry.ID = 0
	return repo.db.WithContext(ctx).Create(&entry).Error
}

func (repo *Activity) ListByApplication(ctx context.Context, applicationID string) ([]models.ActivityLogEntry, error) {
	var entries []models.ActivityLogEntry
	err := repo.db.WithContext(ctx).
		Where("application_id = ?", applicationID).
		Order("id").
		Find(&entries).Error
	return entries, err
}
