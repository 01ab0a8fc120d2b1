package repositories

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/maxaizer/autoapply/internal/config"
	"github.com/maxaizer/autoapply/internal/domain/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type DbContext struct {
	DB *gorm.DB
}

func NewDbContext(cfg config.DBConfig) (*DbContext, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case config.DriverPostgres:
		dialector = postgres.Open(cfg.ConnectionString)
	case config.DriverSqlite, "":
		dialector = sqlite.Open(cfg.ConnectionString)
	default:
		return nil, fmt.Errorf("unsupported db driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Error),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	if cfg.Driver != config.DriverPostgres {
		// sqlite allows a single writer; concurrent submissions queue on the pool instead of failing
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	return &DbContext{DB: db}, nil
}

func (c *DbContext) Migrate() error {
	entities := []struct {
		name  string
		model any
	}{
		{"PendingApplication", models.PendingApplication{}},
		{"ActivityLogEntry", models.ActivityLogEntry{}},
		{"NotificationRecord", models.NotificationRecord{}},
		{"ScanReport", models.ScanReport{}},
		{"MatchCriteria", models.MatchCriteria{}},
		{"ApplicantProfile", models.ApplicantProfile{}},
	}

	for _, e := range entities {
		if err := c.DB.AutoMigrate(e.model); err != nil {
			return fmt.Errorf("failed to migrate %s entity: %w", e.name, err)
		}
	}

	// at most one active application per user and job
	if err := c.DB.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_pending_applications_active " +
		"ON pending_applications (user_id, job_key) WHERE status IN ('PENDING_APPROVAL', 'APPROVED')").
		Error; err != nil {
		return fmt.Errorf("failed to create active application index: %w", err)
	}

	return nil
}

func (c *DbContext) Close() error {
	db, err := c.DB.DB()
	if err != nil {
		return err
	}

	return db.Close()
}
