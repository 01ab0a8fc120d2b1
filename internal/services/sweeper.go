package services

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

type applicationSweeper interface {
	Sweep(ctx context.Context) (int, error)
}

type ScanReportCleanupRepository interface {
	RemoveOlderThan(ctx context.Context, before time.Time) (int64, error)
}

// Sweeper expires stale pending applications on a schedule and prunes old scan reports daily.
type Sweeper struct {
	applications applicationSweeper
	scans        ScanReportCleanupRepository
	cron         *cron.Cron
	retention    time.Duration
}

func NewSweeper(applications applicationSweeper, scans ScanReportCleanupRepository, schedule string,
	retention time.Duration) (*Sweeper, error) {

	if schedule == "" {
		return nil, errors.New("sweep schedule must not be empty")
	}

	s := &Sweeper{
		applications: applications,
		scans:        scans,
		cron:         cron.New(),
		retention:    retention,
	}

	if _, err := s.cron.AddFunc(schedule, s.sweepApplications); err != nil {
		return nil, errors.Wrapf(err, "invalid sweep schedule %q", schedule)
	}
	if retention > 0 {
		if _, err := s.cron.AddFunc("0 0 * * *", s.cleanOldScanReports); err != nil {
			return nil, err
		}
	}

	s.cron.Start()
	log.Infof("sweeper started, schedule: %s, scan report retention: %v", schedule, retention)
	return s, nil
}

func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Sweeper) sweepApplications() {
	expired, err := s.applications.Sweep(context.Background())
	if err != nil {
		log.Errorf("failed to sweep expired applications: %v", err)
		return
	}
	if expired > 0 {
		log.Infof("expired %d pending applications", expired)
	}
}

func (s *Sweeper) cleanOldScanReports() {
	rowsAffected, err := s.scans.RemoveOlderThan(context.Background(), time.Now().Add(-s.retention))
	if err != nil {
		log.Errorf("failed to clean old scan reports: %v", err)
	} else {
		log.Infof("old scan reports were cleaned at %v, affected rows: %v", time.Now(), rowsAffected)
	}
}
