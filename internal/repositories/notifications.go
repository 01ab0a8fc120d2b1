package repositories

import (
	"context"

	"github.com/maxaizer/autoapply/internal/domain/models"
	"gorm.io/gorm"
)

type Notifications struct {
	db *gorm.DB
}

func NewNotificationsRepository(db *gorm.DB) *Notifications {
	return &Notifications{db: db}
}

func (repo *Notifications) Add(ctx context.Context, record *models.NotificationRecord) error {
	return repo.db.WithContext(ctx).Create(record).Error
}

func (repo *Notifications) ListByUser(ctx context.Context, userID int64, unreadOnly bool) ([]models.NotificationRecord, error) {
	query := repo.db.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("read = ?", false)
	}

	var records []models.NotificationRecord
	if err := query.Order("id DESC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// MarkRead only touches the read flag; notifications are otherwise immutable.
func (repo *Notifications) MarkRead(ctx context.Context, id uint, userID int64) error {
	res := repo.db.WithContext(ctx).
		Model(&models.NotificationRecord{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkActioned flags every notification of an application once the user acted on it.
func (repo *Notifications) MarkActioned(ctx context.Context, applicationID string) error {
	return repo.db.WithContext(ctx).
		Model(&models.NotificationRecord{}).
		Where("application_id = ?", applicationID).
		Update("actioned", true).Error
}
