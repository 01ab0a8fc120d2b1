package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/maxaizer/autoapply/internal/domain/models"
	"github.com/maxaizer/autoapply/internal/matching"
	"github.com/maxaizer/autoapply/internal/metrics"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

var ErrBatchTooLarge = errors.New("batch exceeds the maximum size")

type Company struct {
	URL  string `json:"url" binding:"required"`
	Name string `json:"name"`
}

// CompanyOutcome reports what the batch did for one company.
type CompanyOutcome struct {
	Company       Company                  `json:"company"`
	ScanSuccess   bool                     `json:"scan_success"`
	ScanError     string                   `json:"scan_error,omitempty"`
	JobsFound     int                      `json:"jobs_found"`
	Match         *models.JobMatch         `json:"match,omitempty"`
	ApplicationID string                   `json:"application_id,omitempty"`
	Status        models.ApplicationStatus `json:"status,omitempty"`
	Sent          bool                     `json:"sent"`
	Skipped       string                   `json:"skipped,omitempty"`
	Error         string                   `json:"error,omitempty"`
}

type BatchResult struct {
	Outcomes []CompanyOutcome `json:"outcomes"`
	Sent     int              `json:"sent"`
	Pending  int              `json:"pending"`
	Failed   int              `json:"failed"`
}

// BatchDispatcher scans companies in parallel and then sends outreach one at a time.
type BatchDispatcher struct {
	service *AutoApplyService
	limiter *rate.Limiter
}

func NewBatchDispatcher(service *AutoApplyService) *BatchDispatcher {
	interval := service.settings.Dispatch.SendInterval
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &BatchDispatcher{service: service, limiter: rate.NewLimiter(limit, 1)}
}

func (d *BatchDispatcher) Dispatch(ctx context.Context, userID int64, companies []Company) (BatchResult, error) {

	cfg := d.service.settings.Dispatch
	if len(companies) > cfg.MaxBatchSize {
		return BatchResult{}, fmt.Errorf("%w: %d companies, at most %d", ErrBatchTooLarge, len(companies), cfg.MaxBatchSize)
	}

	profile, err := d.service.profile(ctx, userID)
	if err != nil {
		return BatchResult{}, err
	}
	criteria, err := d.service.criteria(ctx, userID)
	if err != nil {
		return BatchResult{}, err
	}

	reports := d.scanAll(ctx, companies)

	result := BatchResult{Outcomes: make([]CompanyOutcome, len(companies))}
	for i, company := range companies {
		outcome := d.process(ctx, userID, profile, criteria, company, reports[i])
		result.Outcomes[i] = outcome

		switch {
		case outcome.Sent:
			result.Sent++
			metrics.DispatchedCounter.WithLabelValues("sent").Inc()
		case outcome.Status == models.StatusPendingApproval:
			result.Pending++
			metrics.DispatchedCounter.WithLabelValues("pending").Inc()
		case outcome.Error != "" || !outcome.ScanSuccess:
			result.Failed++
			metrics.DispatchedCounter.WithLabelValues("failed").Inc()
		default:
			metrics.DispatchedCounter.WithLabelValues("skipped").Inc()
		}
	}

	log.Infof("batch for user %d done: %d companies, %d sent, %d pending, %d failed",
		userID, len(companies), result.Sent, result.Pending, result.Failed)
	return result, nil
}

// scanAll runs the scans with bounded parallelism. A panicking scan only fails its own company.
func (d *BatchDispatcher) scanAll(ctx context.Context, companies []Company) []models.ScanReport {

	reports := make([]models.ScanReport, len(companies))
	slots := make(chan struct{}, max(d.service.settings.Dispatch.ScanConcurrency, 1))

	var wg sync.WaitGroup
	for i, company := range companies {
		wg.Add(1)
		go func(i int, company Company) {
			defer wg.Done()
			slots <- struct{}{}
			defer func() { <-slots }()

			defer func() {
				if r := recover(); r != nil {
					log.Errorf("scan of %s panicked: %v", company.URL, r)
					reports[i] = models.FailedScanReport(company.Name, company.URL, d.service.now(), fmt.Sprint(r))
				}
			}()
			reports[i] = d.service.RequestScan(ctx, company.URL, company.Name)
		}(i, company)
	}
	wg.Wait()

	return reports
}

func (d *BatchDispatcher) process(ctx context.Context, userID int64, profile models.ApplicantProfile,
	criteria models.MatchCriteria, company Company, report models.ScanReport) CompanyOutcome {

	outcome := CompanyOutcome{
		Company:     company,
		ScanSuccess: report.Success,
		ScanError:   report.Error,
		JobsFound:   len(report.Jobs),
	}
	if !report.Success {
		return outcome
	}

	jobs := make([]models.Job, 0, len(report.Jobs))
	for _, candidate := range report.Jobs {
		jobs = append(jobs, models.JobFromCandidate(candidate))
	}
	matches := matching.Rank(jobs, criteria)
	if len(matches) == 0 {
		outcome.Skipped = "no job passed matching"
		return outcome
	}
	best := matches[0]
	outcome.Match = &best

	content, err := d.service.deps.Composer.Compose(ctx, profile, best.Job, report.Contacts, "")
	if err != nil {
		return d.rejected(outcome, err)
	}

	app, err := d.service.CreatePending(ctx, userID, best, &content)
	if err != nil {
		return d.rejected(outcome, err)
	}
	outcome.ApplicationID = app.ID
	outcome.Status = app.Status

	if !matching.PassesAutoApply(best, criteria.MinScore, d.service.settings.Matching.AutoApplyThreshold) {
		outcome.Skipped = "awaiting approval"
		return outcome
	}
	if err = d.service.checkDailyCap(ctx, userID, criteria.DailyCap); err != nil {
		return d.rejected(outcome, err)
	}

	if err = d.limiter.Wait(ctx); err != nil {
		outcome.Skipped = "batch cancelled before sending"
		return outcome
	}

	submitted, err := d.service.deps.Lifecycle.ApproveAndSubmit(ctx, app.ID)
	if err != nil {
		return d.rejected(outcome, err)
	}
	outcome.Status = submitted.Status
	outcome.Sent = submitted.Status == models.StatusSubmitted
	outcome.Error = submitted.SubmissionError
	return outcome
}

// rejected records a business-rule refusal as a skip and anything else as an error.
func (d *BatchDispatcher) rejected(outcome CompanyOutcome, err error) CompanyOutcome {
	if isBusinessRule(err) {
		outcome.Skipped = err.Error()
	} else {
		outcome.Error = err.Error()
		log.Errorf("batch step for %s failed: %v", outcome.Company.URL, err)
	}
	return outcome
}
