package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/maxaizer/autoapply/internal/config"
	"github.com/maxaizer/autoapply/internal/domain/events"
	"github.com/maxaizer/autoapply/internal/domain/models"
	"github.com/maxaizer/autoapply/internal/extractor"
	"github.com/maxaizer/autoapply/internal/lifecycle"
	"github.com/maxaizer/autoapply/internal/logger"
	"github.com/maxaizer/autoapply/internal/matching"
	"github.com/maxaizer/autoapply/internal/outreach"
	"github.com/maxaizer/autoapply/internal/repositories"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

var (
	ErrProfileMissing  = errors.New("applicant profile is not set up")
	ErrDailyCapReached = errors.New("daily submission cap reached")
)

type companyScanner interface {
	Scan(ctx context.Context, rawURL, companyName string) models.ScanReport
}

type scanRepository interface {
	Add(ctx context.Context, report models.ScanReport) error
	RecentSuccessful(ctx context.Context, since time.Time) ([]models.ScanReport, error)
}

type criteriaStore interface {
	Get(ctx context.Context, userID int64) (models.MatchCriteria, error)
}

type profileStore interface {
	Get(ctx context.Context, userID int64) (models.ApplicantProfile, error)
}

type submissionCounter interface {
	CountSubmittedSince(ctx context.Context, userID int64, since time.Time) (int64, error)
}

type outreachComposer interface {
	Compose(ctx context.Context, applicant models.ApplicantProfile, job models.Job,
		contacts []models.ContactCandidate, message string) (outreach.Content, error)
}

type applicationLifecycle interface {
	Create(ctx context.Context, req lifecycle.CreateRequest) (*models.PendingApplication, error)
	ApproveAndSubmit(ctx context.Context, id string) (*models.PendingApplication, error)
}

type Dependencies struct {
	Scanner      companyScanner
	Scans        scanRepository
	Criteria     criteriaStore
	Profiles     profileStore
	Applications submissionCounter
	Composer     outreachComposer
	Lifecycle    applicationLifecycle
	Bus          EventBus.Bus
}

type Settings struct {
	Matching    config.MatchingConfig
	Dispatch    config.DispatchConfig
	MatchWindow time.Duration
}

// AutoApplyService runs the scan, match, compose and create pipeline for single requests.
type AutoApplyService struct {
	deps     Dependencies
	settings Settings
	now      func() time.Time
}

func NewAutoApplyService(deps Dependencies, settings Settings) *AutoApplyService {
	return &AutoApplyService{deps: deps, settings: settings, now: time.Now}
}

// RequestScan scans one company and keeps the report as history. The report always comes back,
// failed or not. Reports served from the scanner cache are already in the history.
func (s *AutoApplyService) RequestScan(ctx context.Context, url, name string) models.ScanReport {
	report := s.deps.Scanner.Scan(ctx, url, name)
	if report.Cached {
		return report
	}

	if err := s.deps.Scans.Add(context.WithoutCancel(ctx), report); err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("failed to save scan report for %s: %v", report.URL, err)
	}
	if s.deps.Bus != nil {
		s.deps.Bus.Publish(events.ScanCompletedTopic, events.ScanCompleted{Report: report})
	}
	return report
}

// RequestMatches ranks the jobs of recently scanned companies for the user.
// A nil criteria loads the stored one.
func (s *AutoApplyService) RequestMatches(ctx context.Context, userID int64,
	criteria *models.MatchCriteria) ([]models.JobMatch, error) {

	var c models.MatchCriteria
	if criteria != nil {
		c = s.withDefaults(*criteria)
	} else {
		var err error
		if c, err = s.criteria(ctx, userID); err != nil {
			return nil, err
		}
	}

	reports, err := s.deps.Scans.RecentSuccessful(ctx, s.now().Add(-s.settings.MatchWindow))
	if err != nil {
		return nil, err
	}

	jobs := lo.FlatMap(reports, func(r models.ScanReport, _ int) []models.Job {
		return lo.Map(r.Jobs, func(c models.JobPostingCandidate, _ int) models.Job {
			return models.JobFromCandidate(c)
		})
	})
	jobs = lo.UniqBy(jobs, func(j models.Job) string { return j.Key })

	return matching.Rank(jobs, c), nil
}

// CreatePending opens a pending application for a match. Without content the outreach is drafted
// from the contacts of the company's latest scan.
func (s *AutoApplyService) CreatePending(ctx context.Context, userID int64, match models.JobMatch,
	content *outreach.Content) (*models.PendingApplication, error) {

	criteria, err := s.criteria(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile, err := s.profile(ctx, userID)
	if err != nil {
		return nil, err
	}

	// scores are derived data, the caller's copy is not trusted
	match = matching.Match(match.Job, criteria)

	if content == nil {
		contacts, err := s.contactsFor(ctx, match.Job)
		if err != nil {
			return nil, err
		}
		drafted, err := s.deps.Composer.Compose(ctx, profile, match.Job, contacts, "")
		if err != nil {
			return nil, err
		}
		content = &drafted
	}

	return s.deps.Lifecycle.Create(ctx, lifecycle.CreateRequest{
		UserID:   userID,
		Match:    match,
		Content:  *content,
		MinScore: criteria.MinScore,
		ReplyTo:  profile.Email,
	})
}

type OneClickRequest struct {
	URL      string `json:"url" binding:"required"`
	Name     string `json:"name"`
	JobTitle string `json:"job_title" binding:"required"`
	Message  string `json:"message"`
}

// OneClickResult bundles what happened at each step. Steps after a failure are left empty.
type OneClickResult struct {
	Scan        models.ScanReport          `json:"scan"`
	Match       *models.JobMatch           `json:"match,omitempty"`
	Application *models.PendingApplication `json:"application,omitempty"`
	Sent        bool                       `json:"sent"`
	Error       string                     `json:"error,omitempty"`
}

// OneClickApply scans a company, picks the posting closest to the requested title and applies to it.
// The request itself is the user's approval, so the application is sent right away unless the daily
// cap is used up, in which case it waits in PENDING_APPROVAL.
func (s *AutoApplyService) OneClickApply(ctx context.Context, userID int64, req OneClickRequest) (OneClickResult, error) {

	profile, err := s.profile(ctx, userID)
	if err != nil {
		return OneClickResult{}, err
	}
	criteria, err := s.criteria(ctx, userID)
	if err != nil {
		return OneClickResult{}, err
	}

	result := OneClickResult{Scan: s.RequestScan(ctx, req.URL, req.Name)}
	if !result.Scan.Success {
		result.Error = result.Scan.Error
		return result, nil
	}

	job := pickJob(result.Scan, req.JobTitle)
	match := matching.Match(job, criteria)
	result.Match = &match

	content, err := s.deps.Composer.Compose(ctx, profile, job, result.Scan.Contacts, req.Message)
	if err != nil {
		return s.stepFailed(result, err)
	}

	// the explicit request overrides the user's minimum, exclusions still apply
	app, err := s.deps.Lifecycle.Create(ctx, lifecycle.CreateRequest{
		UserID:  userID,
		Match:   match,
		Content: content,
		ReplyTo: profile.Email,
	})
	if err != nil {
		return s.stepFailed(result, err)
	}
	result.Application = app

	if err = s.checkDailyCap(ctx, userID, criteria.DailyCap); err != nil {
		return s.stepFailed(result, err)
	}

	submitted, err := s.deps.Lifecycle.ApproveAndSubmit(ctx, app.ID)
	if err != nil {
		return s.stepFailed(result, err)
	}
	result.Application = submitted
	result.Sent = submitted.Status == models.StatusSubmitted
	if !result.Sent {
		result.Error = submitted.SubmissionError
	}
	return result, nil
}

// stepFailed turns business-rule rejections into a result error and passes infrastructure errors up.
func (s *AutoApplyService) stepFailed(result OneClickResult, err error) (OneClickResult, error) {
	if isBusinessRule(err) {
		result.Error = err.Error()
		return result, nil
	}
	return result, err
}

func (s *AutoApplyService) checkDailyCap(ctx context.Context, userID int64, dailyCap int) error {
	if dailyCap <= 0 {
		return nil
	}
	sent, err := s.deps.Applications.CountSubmittedSince(ctx, userID, s.now().Add(-24*time.Hour))
	if err != nil {
		return err
	}
	if sent >= int64(dailyCap) {
		return fmt.Errorf("%w: %d of %d", ErrDailyCapReached, sent, dailyCap)
	}
	return nil
}

func (s *AutoApplyService) criteria(ctx context.Context, userID int64) (models.MatchCriteria, error) {
	criteria, err := s.deps.Criteria.Get(ctx, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		criteria, err = models.MatchCriteria{UserID: userID}, nil
	}
	if err != nil {
		return criteria, err
	}
	return s.withDefaults(criteria), nil
}

func (s *AutoApplyService) withDefaults(criteria models.MatchCriteria) models.MatchCriteria {
	if criteria.MinScore == 0 {
		criteria.MinScore = s.settings.Matching.MinScore
	}
	if criteria.DailyCap == 0 {
		criteria.DailyCap = s.settings.Dispatch.DefaultDailyCap
	}
	return criteria
}

func (s *AutoApplyService) profile(ctx context.Context, userID int64) (models.ApplicantProfile, error) {
	profile, err := s.deps.Profiles.Get(ctx, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return profile, fmt.Errorf("%w: user %d", ErrProfileMissing, userID)
	}
	return profile, err
}

func (s *AutoApplyService) contactsFor(ctx context.Context, job models.Job) ([]models.ContactCandidate, error) {
	reports, err := s.deps.Scans.RecentSuccessful(ctx, s.now().Add(-s.settings.MatchWindow))
	if err != nil {
		return nil, err
	}
	for _, r := range reports {
		if strings.EqualFold(r.CompanyName, job.Company) {
			return r.Contacts, nil
		}
	}
	return nil, fmt.Errorf("%w: no recent scan of %s", outreach.ErrNoRecipient, job.Company)
}

// pickJob returns the scanned posting whose title best matches the requested one,
// or a posting built from the request when none does.
func pickJob(report models.ScanReport, title string) models.Job {
	wanted := strings.ToLower(strings.TrimSpace(title))
	for _, candidate := range report.Jobs {
		got := strings.ToLower(candidate.Title)
		if got == wanted || strings.Contains(got, wanted) || strings.Contains(wanted, got) {
			return models.JobFromCandidate(candidate)
		}
	}

	title = strings.TrimSpace(title)
	return models.Job{
		// keyed by company and title, the careers page URL is shared by every posting
		Key:     models.JobKey("", report.CompanyName, title),
		Title:   title,
		Company: report.CompanyName,
		URL:     lo.Ternary(report.CareersURL != "", report.CareersURL, report.URL),
		Source:  models.JobSourceManual,

		IsEntryLevel: extractor.IsEntryLevel(title, ""),
	}
}

func isBusinessRule(err error) bool {
	for _, target := range []error{
		lifecycle.ErrDuplicateActive, lifecycle.ErrBelowThreshold, lifecycle.ErrInvalidTransition,
		lifecycle.ErrModificationRequired, outreach.ErrNoRecipient, ErrDailyCapReached,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
