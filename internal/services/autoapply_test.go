package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/maxaizer/autoapply/internal/config"
	"github.com/maxaizer/autoapply/internal/domain/events"
	"github.com/maxaizer/autoapply/internal/domain/models"
	"github.com/maxaizer/autoapply/internal/lifecycle"
	"github.com/maxaizer/autoapply/internal/outreach"
	"github.com/maxaizer/autoapply/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUser int64 = 7

type stubScanner struct {
	mu      sync.Mutex
	reports map[string]models.ScanReport
	calls   []string
}

func (s *stubScanner) Scan(_ context.Context, rawURL, name string) models.ScanReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, rawURL)
	if rawURL == "https://panic.io" {
		panic("parser exploded")
	}
	if report, ok := s.reports[rawURL]; ok {
		report.ScannedAt = time.Now()
		return report
	}
	return models.FailedScanReport(name, rawURL, time.Now(), "homepage unreachable")
}

type stubSender struct {
	mu   sync.Mutex
	fail bool
	sent []models.OutboundMessage
}

func (s *stubSender) Send(_ context.Context, msg models.OutboundMessage) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return "", errors.New("smtp: connection refused")
	}
	s.sent = append(s.sent, msg)
	return "delivery-1", nil
}

type fixture struct {
	service  *AutoApplyService
	scanner  *stubScanner
	sender   *stubSender
	bus      EventBus.Bus
	db       *repositories.DbContext
	criteria *repositories.CachedCriteria
}

func reportFor(url, company string, jobs []models.JobPostingCandidate) models.ScanReport {
	return models.ScanReport{
		CompanyName: company,
		URL:         url,
		CareersURL:  url + "/careers",
		Jobs:        jobs,
		Contacts: []models.ContactCandidate{
			{Role: models.RoleHR, Email: "hr@" + company + ".io", Confidence: models.ConfidenceContactPage},
		},
		Size:    models.SizeStartup,
		Success: true,
	}
}

func goodJob(company string) models.JobPostingCandidate {
	return models.JobPostingCandidate{
		Title:        "Junior Go Developer",
		Company:      company,
		Location:     "Remote",
		Description:  "Go and SQL services",
		SourceURL:    "https://" + company + ".io/jobs/junior-go",
		IsEntryLevel: true,
		Source:       models.SourceStructural,
	}
}

func weakJob(company string) models.JobPostingCandidate {
	return models.JobPostingCandidate{
		Title:        "Junior Python Developer",
		Company:      company,
		Location:     "Berlin",
		Description:  "Python scripting",
		SourceURL:    "https://" + company + ".io/jobs/junior-python",
		IsEntryLevel: true,
		Source:       models.SourceStructural,
	}
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dbContext, err := repositories.NewDbContext(config.DBConfig{
		Driver:           config.DriverSqlite,
		ConnectionString: filepath.Join(t.TempDir(), "services.db"),
	})
	require.NoError(t, err)
	require.NoError(t, dbContext.Migrate())
	t.Cleanup(func() { _ = dbContext.Close() })

	bus := EventBus.New()
	sender := &stubSender{}
	applications := repositories.NewApplicationsRepository(dbContext.DB)
	manager := lifecycle.NewManager(applications, repositories.NewActivityRepository(dbContext.DB), sender, bus,
		config.LifecycleConfig{ExpiryHorizon: 72 * time.Hour, SubmitMaxAttempts: 1, SubmitTimeout: time.Second})

	criteria := repositories.NewCachedCriteria(repositories.NewCriteriaRepository(dbContext.DB))
	profiles := repositories.NewProfilesRepository(dbContext.DB)
	require.NoError(t, profiles.Save(context.Background(), models.ApplicantProfile{
		UserID: testUser, Name: "Alex Doe", Email: "alex@example.com", Skills: []string{"Go", "SQL"},
	}))
	require.NoError(t, criteria.Save(context.Background(), models.MatchCriteria{
		UserID: testUser, RequiredSkills: []string{"go", "sql"}, MinScore: 0.5, DailyCap: 5,
	}))

	scanner := &stubScanner{reports: map[string]models.ScanReport{}}
	service := NewAutoApplyService(Dependencies{
		Scanner:      scanner,
		Scans:        repositories.NewScansRepository(dbContext.DB),
		Criteria:     criteria,
		Profiles:     profiles,
		Applications: applications,
		Composer:     outreach.NewComposer(nil),
		Lifecycle:    manager,
		Bus:          bus,
	}, Settings{
		Matching:    config.MatchingConfig{MinScore: 0.5, AutoApplyThreshold: 0.75},
		Dispatch:    config.DispatchConfig{MaxBatchSize: 3, ScanConcurrency: 2, SendInterval: time.Millisecond, DefaultDailyCap: 10},
		MatchWindow: 24 * time.Hour,
	})

	return fixture{service: service, scanner: scanner, sender: sender, bus: bus, db: dbContext, criteria: criteria}
}

func Test_RequestScan_ShouldPersistAndPublish(t *testing.T) {
	f := newFixture(t)
	f.scanner.reports["https://acme.io"] = reportFor("https://acme.io", "acme", []models.JobPostingCandidate{goodJob("acme")})

	var published []events.ScanCompleted
	require.NoError(t, f.bus.Subscribe(events.ScanCompletedTopic, func(e events.ScanCompleted) {
		published = append(published, e)
	}))

	report := f.service.RequestScan(context.Background(), "https://acme.io", "acme")
	assert.True(t, report.Success)
	require.Len(t, published, 1)
	assert.Equal(t, "https://acme.io", published[0].Report.URL)

	stored, err := repositories.NewScansRepository(f.db.DB).RecentSuccessful(context.Background(), time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func Test_RequestMatches_ShouldRankJobsFromRecentScans(t *testing.T) {
	f := newFixture(t)
	f.scanner.reports["https://acme.io"] = reportFor("https://acme.io", "acme",
		[]models.JobPostingCandidate{weakJob("acme"), goodJob("acme")})
	f.service.RequestScan(context.Background(), "https://acme.io", "acme")

	matches, err := f.service.RequestMatches(context.Background(), testUser, nil)
	require.NoError(t, err)

	require.Len(t, matches, 2)
	assert.Equal(t, "Junior Go Developer", matches[0].Job.Title)
	assert.GreaterOrEqual(t, matches[0].Score, matches[1].Score)
	assert.NotEmpty(t, matches[0].Reasons)

	strict := models.MatchCriteria{RequiredSkills: []string{"go", "sql"}, MinScore: 0.9}
	matches, err = f.service.RequestMatches(context.Background(), testUser, &strict)
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func Test_CreatePending_WhenNoContent_ShouldDraftFromLatestScan(t *testing.T) {
	f := newFixture(t)
	f.scanner.reports["https://acme.io"] = reportFor("https://acme.io", "acme", []models.JobPostingCandidate{goodJob("acme")})
	f.service.RequestScan(context.Background(), "https://acme.io", "acme")

	matches, err := f.service.RequestMatches(context.Background(), testUser, nil)
	require.NoError(t, err)
	require.NotEmpty(t, matches)

	app, err := f.service.CreatePending(context.Background(), testUser, matches[0], nil)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingApproval, app.Status)
	assert.Equal(t, "hr@acme.io", app.RecipientEmail)
	assert.Equal(t, "alex@example.com", app.ReplyTo)
	assert.NotEmpty(t, app.CoverLetter)

	_, err = f.service.CreatePending(context.Background(), testUser, matches[0], nil)
	assert.ErrorIs(t, err, lifecycle.ErrDuplicateActive)
}

func Test_CreatePending_WhenProfileMissing_ShouldFail(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.CreatePending(context.Background(), 999, models.JobMatch{Score: 0.9}, nil)
	assert.ErrorIs(t, err, ErrProfileMissing)
}

func Test_OneClickApply_WhenScanSucceeds_ShouldSend(t *testing.T) {
	f := newFixture(t)
	f.scanner.reports["https://acme.io"] = reportFor("https://acme.io", "acme", []models.JobPostingCandidate{goodJob("acme")})

	result, err := f.service.OneClickApply(context.Background(), testUser, OneClickRequest{
		URL: "https://acme.io", Name: "acme", JobTitle: "junior go developer", Message: "Happy to relocate.",
	})
	require.NoError(t, err)

	assert.True(t, result.Scan.Success)
	require.NotNil(t, result.Match)
	assert.Equal(t, "Junior Go Developer", result.Match.Job.Title)
	require.NotNil(t, result.Application)
	assert.Equal(t, models.StatusSubmitted, result.Application.Status)
	assert.True(t, result.Sent)
	require.Len(t, f.sender.sent, 1)
	assert.Contains(t, f.sender.sent[0].Body, "P.S. Happy to relocate.")
}

func Test_OneClickApply_WhenTitleNotListed_ShouldApplyToRequestedTitle(t *testing.T) {
	f := newFixture(t)
	f.scanner.reports["https://acme.io"] = reportFor("https://acme.io", "acme", nil)

	result, err := f.service.OneClickApply(context.Background(), testUser, OneClickRequest{
		URL: "https://acme.io", Name: "acme", JobTitle: "Backend Intern (Go)",
	})
	require.NoError(t, err)

	require.NotNil(t, result.Match)
	assert.Equal(t, models.JobSourceManual, result.Match.Job.Source)
	assert.Equal(t, "https://acme.io/careers", result.Match.Job.URL)
	assert.True(t, result.Sent)
}

func Test_OneClickApply_WhenScanFails_ShouldReportWithoutApplication(t *testing.T) {
	f := newFixture(t)

	result, err := f.service.OneClickApply(context.Background(), testUser, OneClickRequest{
		URL: "https://down.io", Name: "down", JobTitle: "Junior Developer",
	})
	require.NoError(t, err)

	assert.False(t, result.Scan.Success)
	assert.Equal(t, "homepage unreachable", result.Error)
	assert.Nil(t, result.Match)
	assert.Nil(t, result.Application)
	assert.False(t, result.Sent)
}

func Test_OneClickApply_WhenSendFails_ShouldReturnFailedApplication(t *testing.T) {
	f := newFixture(t)
	f.sender.fail = true
	f.scanner.reports["https://acme.io"] = reportFor("https://acme.io", "acme", []models.JobPostingCandidate{goodJob("acme")})

	result, err := f.service.OneClickApply(context.Background(), testUser, OneClickRequest{
		URL: "https://acme.io", Name: "acme", JobTitle: "Junior Go Developer",
	})
	require.NoError(t, err)

	assert.False(t, result.Sent)
	require.NotNil(t, result.Application)
	assert.Equal(t, models.StatusFailed, result.Application.Status)
	assert.Contains(t, result.Error, "connection refused")
}

func Test_OneClickApply_WhenDailyCapReached_ShouldLeavePending(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.criteria.Save(context.Background(), models.MatchCriteria{
		UserID: testUser, RequiredSkills: []string{"go"}, MinScore: 0.5, DailyCap: 1,
	}))
	f.scanner.reports["https://acme.io"] = reportFor("https://acme.io", "acme", []models.JobPostingCandidate{goodJob("acme")})
	f.scanner.reports["https://beta.io"] = reportFor("https://beta.io", "beta", []models.JobPostingCandidate{goodJob("beta")})

	first, err := f.service.OneClickApply(context.Background(), testUser, OneClickRequest{URL: "https://acme.io", Name: "acme", JobTitle: "Junior Go Developer"})
	require.NoError(t, err)
	require.True(t, first.Sent)

	second, err := f.service.OneClickApply(context.Background(), testUser, OneClickRequest{URL: "https://beta.io", Name: "beta", JobTitle: "Junior Go Developer"})
	require.NoError(t, err)

	assert.False(t, second.Sent)
	assert.Contains(t, second.Error, ErrDailyCapReached.Error())
	require.NotNil(t, second.Application)
	assert.Equal(t, models.StatusPendingApproval, second.Application.Status)
}

func Test_RequestMatches_WhenPostingsShareTheirPage_ShouldKeepEach(t *testing.T) {
	f := newFixture(t)
	generated := func(title string) models.JobPostingCandidate {
		return models.JobPostingCandidate{
			Title: title, Company: "acme", Location: "Remote", Description: "Go and SQL services",
			SourceURL: "https://acme.io/careers", PageURL: "https://acme.io/careers",
			IsEntryLevel: true, Source: models.SourceGenerativeFallback,
		}
	}
	f.scanner.reports["https://acme.io"] = reportFor("https://acme.io", "acme",
		[]models.JobPostingCandidate{generated("Junior Go Developer"), generated("Graduate SQL Engineer")})
	f.service.RequestScan(context.Background(), "https://acme.io", "acme")

	matches, err := f.service.RequestMatches(context.Background(), testUser, nil)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.NotEqual(t, matches[0].Job.Key, matches[1].Job.Key)

	for _, match := range matches {
		app, err := f.service.CreatePending(context.Background(), testUser, match, nil)
		require.NoError(t, err, match.Job.Title)
		assert.Equal(t, models.StatusPendingApproval, app.Status)
	}
}

func Test_CreatePending_WhenScoreForged_ShouldUseRecomputedScore(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.criteria.Save(context.Background(), models.MatchCriteria{
		UserID: testUser, RequiredSkills: []string{"go", "sql"}, MinScore: 0.5, ExcludedCompanies: []string{"evilcorp"},
	}))
	content := &outreach.Content{
		Recipient:   models.ContactCandidate{Role: models.RoleHR, Email: "hr@evilcorp.io"},
		Subject:     "Junior Go Developer",
		CoverLetter: "Dear evilcorp team,",
	}

	forged := models.JobMatch{Job: models.JobFromCandidate(goodJob("evilcorp")), Score: 0.99, AutoApplyScore: 0.99}
	_, err := f.service.CreatePending(context.Background(), testUser, forged, content)
	assert.ErrorIs(t, err, lifecycle.ErrBelowThreshold)

	inflated := models.JobMatch{Job: models.JobFromCandidate(goodJob("acme")), Score: 0.01}
	app, err := f.service.CreatePending(context.Background(), testUser, inflated, content)
	require.NoError(t, err)
	assert.Greater(t, app.MatchScore, 0.5)
}

func Test_RequestScan_WhenReportCached_ShouldNotStoreItAgain(t *testing.T) {
	f := newFixture(t)
	report := reportFor("https://acme.io", "acme", []models.JobPostingCandidate{goodJob("acme")})
	f.scanner.reports["https://acme.io"] = report
	f.service.RequestScan(context.Background(), "https://acme.io", "acme")

	report.Cached = true
	f.scanner.reports["https://acme.io"] = report
	f.service.RequestScan(context.Background(), "https://acme.io", "acme")

	var stored int64
	require.NoError(t, f.db.DB.Model(&models.ScanReport{}).Count(&stored).Error)
	assert.Equal(t, int64(1), stored)
}
