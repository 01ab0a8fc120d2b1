package repositories

import (
	"context"
	"time"

	"github.com/maxaizer/autoapply/internal/domain/models"
	"gorm.io/gorm"
)

type Applications struct {
	db *gorm.DB
}

func NewApplicationsRepository(db *gorm.DB) *Applications {
	return &Applications{db: db}
}

// Insert stores a new application. A second active application for the same user and job
// is rejected by the database with ErrDuplicate.
func (repo *Applications) Insert(ctx context.Context, app *models.PendingApplication) error {
	err := repo.db.WithContext(ctx).Create(app).Error
	if isDuplicate(err) {
		return ErrDuplicate
	}
	return err
}

func (repo *Applications) GetByID(ctx context.Context, id string) (*models.PendingApplication, error) {
	var app models.PendingApplication
	if err := repo.db.WithContext(ctx).First(&app, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &app, nil
}

// ListByUser returns the user's applications, newest first. An empty status returns all of them.
func (repo *Applications) ListByUser(ctx context.Context, userID int64, status models.ApplicationStatus,
	limit int) ([]models.PendingApplication, error) {

	query := repo.db.WithContext(ctx).Where("user_id = ?", userID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var apps []models.PendingApplication
	if err := query.Order("created_at DESC").Find(&apps).Error; err != nil {
		return nil, err
	}
	return apps, nil
}

// Transition moves an application from one status to another with a conditional update.
// It reports false when the application was not in the expected status.
func (repo *Applications) Transition(ctx context.Context, id string, from, to models.ApplicationStatus,
	updates map[string]any) (bool, error) {

	values := map[string]any{"status": to, "updated_at": time.Now()}
	for k, v := range updates {
		values[k] = v
	}

	res := repo.db.WithContext(ctx).
		Model(&models.PendingApplication{}).
		Where("id = ? AND status = ?", id, from).
		Updates(values)
	if isDuplicate(res.Error) {
		return false, ErrDuplicate
	}
	return res.RowsAffected == 1, res.Error
}

// ClaimAttempt bumps the attempt counter of an approved application if nobody else did since it was read.
// Only the caller that wins the claim may send.
func (repo *Applications) ClaimAttempt(ctx context.Context, id string, seenAttempts int) (bool, error) {
	res := repo.db.WithContext(ctx).
		Model(&models.PendingApplication{}).
		Where("id = ? AND status = ? AND attempts = ?", id, models.StatusApproved, seenAttempts).
		UpdateColumn("attempts", gorm.Expr("attempts + 1"))
	return res.RowsAffected == 1, res.Error
}

func (repo *Applications) ExpiredPendingIDs(ctx context.Context, now time.Time) ([]string, error) {
	var ids []string
	err := repo.db.WithContext(ctx).
		Model(&models.PendingApplication{}).
		Where("status = ? AND expires_at <= ?", models.StatusPendingApproval, now).
		Pluck("id", &ids).Error
	return ids, err
}

func (repo *Applications) CountSubmittedSince(ctx context.Context, userID int64, since time.Time) (int64, error) {
	var count int64
	err := repo.db.WithContext(ctx).
		Model(&models.PendingApplication{}).
		Where("user_id = ? AND status = ? AND submitted_at >= ?", userID, models.StatusSubmitted, since).
		Count(&count).Error
	return count, err
}
