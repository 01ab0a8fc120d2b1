package repositories

import (
	"context"
	"time"

	"github.com/maxaizer/autoapply/internal/domain/models"
	"gorm.io/gorm"
)

type Scans struct {
	db *gorm.DB
}

func NewScansRepository(db *gorm.DB) *Scans {
	return &Scans{db: db}
}

// Add stores a scan report. Reports are history; each scan gets its own row.
func (repo *Scans) Add(ctx context.Context, report models.ScanReport) error {
	report.ID = 0
	return repo.db.WithContext(ctx).Create(&report).Error
}

// RecentSuccessful returns the latest successful report per URL scanned after since.
func (repo *Scans) RecentSuccessful(ctx context.Context, since time.Time) ([]models.ScanReport, error) {
	var reports []models.ScanReport
	err := repo.db.WithContext(ctx).
		Where("success = ? AND scanned_at >= ?", true, since).
		Order("scanned_at DESC").
		Find(&reports).Error
	if err != nil {
		return nil, err
	}

	latest := make([]models.ScanReport, 0, len(reports))
	seen := map[string]struct{}{}
	for _, r := range reports {
		if _, ok := seen[r.URL]; ok {
			continue
		}
		seen[r.URL] = struct{}{}
		latest = append(latest, r)
	}
	return latest, nil
}

func (repo *Scans) RemoveOlderThan(ctx context.Context, before time.Time) (int64, error) {
	res := repo.db.WithContext(ctx).Delete(&models.ScanReport{}, "scanned_at < ?", before)
	return res.RowsAffected, res.Error
}
