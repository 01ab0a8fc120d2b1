package repositories

import (
	"context"

	"github.com/maxaizer/autoapply/internal/domain/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Criteria struct {
	db *gorm.DB
}

func NewCriteriaRepository(db *gorm.DB) *Criteria {
	return &Criteria{db: db}
}

func (repo *Criteria) Get(ctx context.Context, userID int64) (models.MatchCriteria, error) {
	var criteria models.MatchCriteria
	if err := repo.db.WithContext(ctx).First(&criteria, "user_id = ?", userID).Error; err != nil {
		return models.MatchCriteria{}, notFound(err)
	}
	return criteria, nil
}

func (repo *Criteria) Save(ctx context.Context, criteria models.MatchCriteria) error {
	return repo.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&criteria).Error
}

type Profiles struct {
	db *gorm.DB
}

func NewProfilesRepository(db *gorm.DB) *Profiles {
	return &Profiles{db: db}
}

func (repo *Profiles) Get(ctx context.Context, userID int64) (models.ApplicantProfile, error) {
	var profile models.ApplicantProfile
	if err := repo.db.WithContext(ctx).First(&profile, "user_id = ?", userID).Error; err != nil {
		return models.ApplicantProfile{}, notFound(err)
	}
	return profile, nil
}

func (repo *Profiles) Save(ctx context.Context, profile models.ApplicantProfile) error {
	return repo.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&profile).Error
}
