package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/google/uuid"
	"github.com/maxaizer/autoapply/internal/config"
	"github.com/maxaizer/autoapply/internal/domain/events"
	"github.com/maxaizer/autoapply/internal/domain/models"
	"github.com/maxaizer/autoapply/internal/logger"
	"github.com/maxaizer/autoapply/internal/metrics"
	"github.com/maxaizer/autoapply/internal/outreach"
	"github.com/maxaizer/autoapply/internal/repositories"
	log "github.com/sirupsen/logrus"
)

var (
	ErrNotFound             = errors.New("application not found")
	ErrDuplicateActive      = errors.New("an active application for this job already exists")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrModificationRequired = errors.New("modified decision requires a non-empty cover letter")
	ErrBelowThreshold       = errors.New("match score is below the minimum threshold")
)

type applicationRepository interface {
	Insert(ctx context.Context, app *models.PendingApplication) error
	GetByID(ctx context.Context, id string) (*models.PendingApplication, error)
	Transition(ctx context.Context, id string, from, to models.ApplicationStatus, updates map[string]any) (bool, error)
	ClaimAttempt(ctx context.Context, id string, seenAttempts int) (bool, error)
	ExpiredPendingIDs(ctx context.Context, now time.Time) ([]string, error)
}

type activityRepository interface {
	Append(ctx context.Context, entry models.ActivityLogEntry) error
}

type sender interface {
	Send(ctx context.Context, msg models.OutboundMessage) (string, error)
}

// Overrides are the user's edits carried by a modified decision.
type Overrides struct {
	CoverLetter    string `json:"cover_letter"`
	Subject        string `json:"subject"`
	RecipientEmail string `json:"recipient_email" binding:"omitempty,email"`
}

// CreateRequest carries everything needed to open a pending application.
type CreateRequest struct {
	UserID   int64
	Match    models.JobMatch
	Content  outreach.Content
	MinScore float64
	ReplyTo  string
}

type Manager struct {
	applications applicationRepository
	activity     activityRepository
	sender       sender
	bus          EventBus.Bus
	cfg          config.LifecycleConfig
	now          func() time.Time
	submissions  sync.WaitGroup
}

func NewManager(applications applicationRepository, activity activityRepository, sender sender,
	bus EventBus.Bus, cfg config.LifecycleConfig) *Manager {

	return &Manager{
		applications: applications,
		activity:     activity,
		sender:       sender,
		bus:          bus,
		cfg:          cfg,
		now:          time.Now,
	}
}

// Create opens a PENDING_APPROVAL application. The insert itself enforces
// one active application per user and job.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (*models.PendingApplication, error) {

	if req.Match.Score <= 0 || req.Match.Score < req.MinScore {
		return nil, fmt.Errorf("%w: %.3f < %.3f", ErrBelowThreshold, req.Match.Score, req.MinScore)
	}
	if !strings.Contains(req.Content.Recipient.Email, "@") {
		return nil, outreach.ErrNoRecipient
	}

	job := req.Match.Job
	job.EnsureKey()
	now := m.now()

	app := &models.PendingApplication{
		ID:               uuid.NewString(),
		UserID:           req.UserID,
		JobKey:           job.Key,
		JobTitle:         job.Title,
		JobCompany:       job.Company,
		JobURL:           job.URL,
		JobDescription:   job.Description,
		JobSalary:        models.FormatSalary(job.SalaryMin, job.SalaryMax),
		JobLocation:      job.Location,
		MatchScore:       req.Match.Score,
		AutoApplyScore:   req.Match.AutoApplyScore,
		ConfidenceScore:  req.Content.Confidence,
		CoverLetter:      req.Content.CoverLetter,
		Subject:          req.Content.Subject,
		CVCustomizations: req.Content.CVCustomizations,
		RecipientEmail:   req.Content.Recipient.Email,
		RecipientRole:    req.Content.Recipient.Role,
		RecipientGuessed: req.Content.Recipient.IsGuessed(),
		ReplyTo:          req.ReplyTo,
		Status:           models.StatusPendingApproval,
		CreatedAt:        now,
		UpdatedAt:        now,
		ExpiresAt:        now.Add(m.cfg.ExpiryHorizon),
	}

	if err := m.applications.Insert(ctx, app); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, fmt.Errorf("%w: %s at %s", ErrDuplicateActive, job.Title, job.Company)
		}
		return nil, err
	}

	m.record(ctx, app, models.ActivityMatched, fmt.Sprintf("score %.3f, auto-apply %.3f: %s",
		app.MatchScore, app.AutoApplyScore, strings.Join(req.Match.Reasons, "; ")))
	m.record(ctx, app, models.ActivityGenerated, fmt.Sprintf("recipient %s (%s), confidence %.2f",
		app.RecipientEmail, app.RecipientRole, app.ConfidenceScore))
	m.publish(*app, "", models.StatusPendingApproval, models.ActivityGenerated)

	return app, nil
}

// Decide applies the user's decision. Only PENDING_APPROVAL applications accept one.
// Approvals trigger a background submission when configured to.
func (m *Manager) Decide(ctx context.Context, id string, decision models.Decision,
	overrides *Overrides) (*models.PendingApplication, error) {

	app, err := m.decide(ctx, id, decision, overrides)
	if err != nil {
		return nil, err
	}

	if app.Status == models.StatusApproved && m.cfg.SubmitOnApproval {
		m.SubmitAsync(app.ID)
	}
	return app, nil
}

// ApproveAndSubmit approves and sends in the caller's goroutine.
func (m *Manager) ApproveAndSubmit(ctx context.Context, id string) (*models.PendingApplication, error) {
	if _, err := m.decide(ctx, id, models.DecisionApproved, nil); err != nil {
		return nil, err
	}
	return m.Submit(ctx, id)
}

func (m *Manager) decide(ctx context.Context, id string, decision models.Decision,
	overrides *Overrides) (*models.PendingApplication, error) {

	if _, err := models.ParseDecision(string(decision)); err != nil {
		return nil, err
	}
	if decision == models.DecisionModified && (overrides == nil || strings.TrimSpace(overrides.CoverLetter) == "") {
		return nil, ErrModificationRequired
	}

	now := m.now()
	updates := map[string]any{"user_decision": decision, "decided_at": now}
	if decision == models.DecisionModified {
		updates["cover_letter"] = strings.TrimSpace(overrides.CoverLetter)
		if subject := strings.TrimSpace(overrides.Subject); subject != "" {
			updates["subject"] = subject
		}
		if email := strings.TrimSpace(overrides.RecipientEmail); email != "" {
			updates["recipient_email"] = email
			updates["recipient_guessed"] = false
		}
	}

	return m.transition(ctx, id, models.StatusPendingApproval, decision.TargetStatus(), updates, string(decision))
}

// SubmitAsync sends an approved application in the background. Wait blocks until all of them finish.
func (m *Manager) SubmitAsync(id string) {
	m.submissions.Add(1)
	go func() {
		defer m.submissions.Done()

		budget := time.Duration(m.attempts())*(m.cfg.SubmitTimeout+m.cfg.SubmitRetryDelay) + time.Second
		ctx, cancel := context.WithTimeout(context.Background(), budget)
		defer cancel()

		if _, err := m.Submit(ctx, id); err != nil {
			log.WithField("application", id).Errorf("background submission failed: %v", err)
		}
	}()
}

func (m *Manager) Wait() {
	m.submissions.Wait()
}

// Submit sends an APPROVED application. A failed send ends in FAILED with the error kept;
// a second attempt only happens when submit_max_attempts allows it.
func (m *Manager) Submit(ctx context.Context, id string) (*models.PendingApplication, error) {

	app, err := m.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !models.CanTransition(app.Status, models.StatusSubmitted) {
		return nil, fmt.Errorf("%w: cannot submit application in status %s", ErrInvalidTransition, app.Status)
	}

	msg := models.OutboundMessage{
		To:      app.RecipientEmail,
		Subject: app.Subject,
		Body:    app.CoverLetter,
		ReplyTo: app.ReplyTo,
	}

	var sendErr error
	seen := app.Attempts
	for attempt := 1; attempt <= m.attempts(); attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				sendErr = errors.Join(sendErr, ctx.Err())
				return m.fail(ctx, app.ID, sendErr)
			case <-time.After(m.cfg.SubmitRetryDelay):
			}
		}

		claimed, err := m.applications.ClaimAttempt(ctx, app.ID, seen)
		if err != nil {
			return nil, err
		}
		if !claimed {
			return nil, fmt.Errorf("%w: application %s is being submitted elsewhere", ErrInvalidTransition, app.ID)
		}
		seen++

		deliveryID, err := m.send(ctx, msg)
		if err == nil {
			now := m.now()
			return m.transition(ctx, app.ID, models.StatusApproved, models.StatusSubmitted,
				map[string]any{"submitted_at": now, "delivery_id": deliveryID, "submission_error": ""},
				"delivered as "+deliveryID)
		}

		sendErr = err
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeMail).
			WithField("application", app.ID).
			Warnf("send attempt %d/%d failed: %v", attempt, m.attempts(), err)
	}

	return m.fail(ctx, app.ID, sendErr)
}

// Retry re-opens a FAILED submission as a new APPROVED application linked to the failed one and sends it.
func (m *Manager) Retry(ctx context.Context, failedID string) (*models.PendingApplication, error) {

	failed, err := m.get(ctx, failedID)
	if err != nil {
		return nil, err
	}
	if failed.Status != models.StatusFailed {
		return nil, fmt.Errorf("%w: only failed applications can be retried, got %s", ErrInvalidTransition, failed.Status)
	}

	now := m.now()
	retry := *failed
	retry.ID = uuid.NewString()
	retry.Status = models.StatusApproved
	retry.CreatedAt = now
	retry.UpdatedAt = now
	retry.ExpiresAt = now.Add(m.cfg.ExpiryHorizon)
	retry.DecidedAt = &now
	retry.SubmittedAt = nil
	retry.DeliveryID = ""
	retry.SubmissionError = ""
	retry.Attempts = 0
	retry.RetryOf = failed.ID

	if err = m.applications.Insert(ctx, &retry); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, fmt.Errorf("%w: %s at %s", ErrDuplicateActive, retry.JobTitle, retry.JobCompany)
		}
		return nil, err
	}

	m.record(ctx, &retry, models.ActivityApproved, "retry of "+failed.ID)
	m.publish(retry, "", models.StatusApproved, models.ActivityApproved)

	return m.Submit(ctx, retry.ID)
}

// Sweep expires every PENDING_APPROVAL application past its expiry. No decision is recorded.
func (m *Manager) Sweep(ctx context.Context) (int, error) {

	ids, err := m.applications.ExpiredPendingIDs(ctx, m.now())
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, id := range ids {
		_, err := m.transition(ctx, id, models.StatusPendingApproval, models.StatusExpired, nil, "expired without decision")
		switch {
		case err == nil:
			expired++
		case errors.Is(err, ErrInvalidTransition):
			// decided between the select and the update
		default:
			return expired, err
		}
	}

	return expired, nil
}

func (m *Manager) fail(ctx context.Context, id string, sendErr error) (*models.PendingApplication, error) {
	if sendErr == nil {
		sendErr = errors.New("unknown delivery failure")
	}
	// the failure must be recorded even when the caller's context is already done
	ctx = context.WithoutCancel(ctx)
	return m.transition(ctx, id, models.StatusApproved, models.StatusFailed,
		map[string]any{"submission_error": sendErr.Error()}, sendErr.Error())
}

func (m *Manager) send(ctx context.Context, msg models.OutboundMessage) (string, error) {
	if m.cfg.SubmitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.SubmitTimeout)
		defer cancel()
	}
	return m.sender.Send(ctx, msg)
}

func (m *Manager) transition(ctx context.Context, id string, from, to models.ApplicationStatus,
	updates map[string]any, details string) (*models.PendingApplication, error) {

	if !models.CanTransition(from, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}

	ok, err := m.applications.Transition(ctx, id, from, to, updates)
	if err != nil {
		return nil, err
	}

	app, err := m.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: application %s is %s, expected %s", ErrInvalidTransition, id, app.Status, from)
	}

	activity := models.ActivityForStatus(to)
	m.record(ctx, app, activity, details)
	m.publish(*app, from, to, activity)

	return app, nil
}

func (m *Manager) get(ctx context.Context, id string) (*models.PendingApplication, error) {
	app, err := m.applications.GetByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return app, err
}

func (m *Manager) record(ctx context.Context, app *models.PendingApplication, event models.ActivityEvent, details string) {
	err := m.activity.Append(ctx, models.ActivityLogEntry{
		ApplicationID: app.ID,
		UserID:        app.UserID,
		Event:         event,
		Details:       details,
		CreatedAt:     m.now(),
	})
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).
			Errorf("failed to append activity %s for application %s: %v", event, app.ID, err)
	}
}

func (m *Manager) publish(app models.PendingApplication, from, to models.ApplicationStatus, activity models.ActivityEvent) {
	metrics.TransitionsCounter.WithLabelValues(string(to)).Inc()
	if m.bus == nil {
		return
	}
	m.bus.Publish(events.ApplicationTransitionedTopic, events.ApplicationTransitioned{
		Application: app,
		From:        from,
		To:          to,
		Activity:    activity,
	})
}

func (m *Manager) attempts() int {
	return max(m.cfg.SubmitMaxAttempts, 1)
}
