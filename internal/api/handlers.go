package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/maxaizer/autoapply/internal/domain/models"
	"github.com/maxaizer/autoapply/internal/lifecycle"
	"github.com/maxaizer/autoapply/internal/outreach"
	"github.com/maxaizer/autoapply/internal/repositories"
	"github.com/maxaizer/autoapply/internal/services"
	log "github.com/sirupsen/logrus"
)

type pipeline interface {
	RequestScan(ctx context.Context, url, name string) models.ScanReport
	RequestMatches(ctx context.Context, userID int64, criteria *models.MatchCriteria) ([]models.JobMatch, error)
	CreatePending(ctx context.Context, userID int64, match models.JobMatch, content *outreach.Content) (*models.PendingApplication, error)
	OneClickApply(ctx context.Context, userID int64, req services.OneClickRequest) (services.OneClickResult, error)
}

type lifecycleManager interface {
	Decide(ctx context.Context, id string, decision models.Decision, overrides *lifecycle.Overrides) (*models.PendingApplication, error)
	Retry(ctx context.Context, failedID string) (*models.PendingApplication, error)
	Sweep(ctx context.Context) (int, error)
}

type batchDispatcher interface {
	Dispatch(ctx context.Context, userID int64, companies []services.Company) (services.BatchResult, error)
}

type applicationReader interface {
	GetByID(ctx context.Context, id string) (*models.PendingApplication, error)
	ListByUser(ctx context.Context, userID int64, status models.ApplicationStatus, limit int) ([]models.PendingApplication, error)
}

type activityReader interface {
	ListByApplication(ctx context.Context, applicationID string) ([]models.ActivityLogEntry, error)
}

type notificationStore interface {
	ListByUser(ctx context.Context, userID int64, unreadOnly bool) ([]models.NotificationRecord, error)
	MarkRead(ctx context.Context, id uint, userID int64) error
}

type criteriaStore interface {
	Get(ctx context.Context, userID int64) (models.MatchCriteria, error)
	Save(ctx context.Context, criteria models.MatchCriteria) error
}

type profileStore interface {
	Get(ctx context.Context, userID int64) (models.ApplicantProfile, error)
	Save(ctx context.Context, profile models.ApplicantProfile) error
}

type Handlers struct {
	Pipeline      pipeline
	Lifecycle     lifecycleManager
	Dispatcher    batchDispatcher
	Applications  applicationReader
	Activity      activityReader
	Notifications notificationStore
	Criteria      criteriaStore
	Profiles      profileStore
}

var validate = validator.New()

func (h *Handlers) Register(r gin.IRouter) {
	api := r.Group("/api")

	api.POST("/scans", h.requestScan)
	api.POST("/sweep", h.sweep)
	api.GET("/applications/:id", h.getApplication)
	api.POST("/applications/:id/decision", h.decide)
	api.POST("/applications/:id/retry", h.retry)

	users := api.Group("/users/:user")
	users.GET("/profile", h.getProfile)
	users.PUT("/profile", h.saveProfile)
	users.GET("/criteria", h.getCriteria)
	users.PUT("/criteria", h.saveCriteria)
	users.GET("/matches", h.requestMatches)
	users.POST("/matches", h.requestMatchesWithCriteria)
	users.GET("/applications", h.listApplications)
	users.POST("/applications", h.createApplication)
	users.POST("/one-click", h.oneClickApply)
	users.POST("/batch", h.dispatch)
	users.GET("/notifications", h.listNotifications)
	users.POST("/notifications/:id/read", h.markNotificationRead)
}

type scanRequest struct {
	URL  string `json:"url" binding:"required"`
	Name string `json:"name"`
}

func (h *Handlers) requestScan(c *gin.Context) {
	var req scanRequest
	if !bind(c, &req) {
		return
	}
	c.JSON(http.StatusOK, h.Pipeline.RequestScan(c.Request.Context(), req.URL, req.Name))
}

func (h *Handlers) requestMatches(c *gin.Context) {
	userID, ok := userParam(c)
	if !ok {
		return
	}
	matches, err := h.Pipeline.RequestMatches(c.Request.Context(), userID, nil)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"matches": matches})
}

func (h *Handlers) requestMatchesWithCriteria(c *gin.Context) {
	userID, ok := userParam(c)
	if !ok {
		return
	}
	var criteria models.MatchCriteria
	if !bind(c, &criteria) || !validateStruct(c, criteria) {
		return
	}
	matches, err := h.Pipeline.RequestMatches(c.Request.Context(), userID, &criteria)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"matches": matches})
}

type createApplicationRequest struct {
	Match   models.JobMatch   `json:"match" binding:"required"`
	Content *outreach.Content `json:"content"`
}

func (h *Handlers) createApplication(c *gin.Context) {
	userID, ok := userParam(c)
	if !ok {
		return
	}
	var req createApplicationRequest
	if !bind(c, &req) {
		return
	}
	app, err := h.Pipeline.CreatePending(c.Request.Context(), userID, req.Match, req.Content)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, app)
}

func (h *Handlers) listApplications(c *gin.Context) {
	userID, ok := userParam(c)
	if !ok {
		return
	}

	var status models.ApplicationStatus
	if raw := c.Query("status"); raw != "" {
		parsed, err := models.ParseStatus(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		status = parsed
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	apps, err := h.Applications.ListByUser(c.Request.Context(), userID, status, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"applications": apps})
}

func (h *Handlers) getApplication(c *gin.Context) {
	app, err := h.Applications.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	activity, err := h.Activity.ListByApplication(c.Request.Context(), app.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"application": app, "activity": activity})
}

type decisionRequest struct {
	Decision  models.Decision      `json:"decision" binding:"required,oneof=approved rejected modified"`
	Overrides *lifecycle.Overrides `json:"overrides"`
}

func (h *Handlers) decide(c *gin.Context) {
	var req decisionRequest
	if !bind(c, &req) {
		return
	}
	app, err := h.Lifecycle.Decide(c.Request.Context(), c.Param("id"), req.Decision, req.Overrides)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

func (h *Handlers) retry(c *gin.Context) {
	app, err := h.Lifecycle.Retry(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

func (h *Handlers) sweep(c *gin.Context) {
	expired, err := h.Lifecycle.Sweep(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"expired": expired})
}

func (h *Handlers) oneClickApply(c *gin.Context) {
	userID, ok := userParam(c)
	if !ok {
		return
	}
	var req services.OneClickRequest
	if !bind(c, &req) {
		return
	}
	result, err := h.Pipeline.OneClickApply(c.Request.Context(), userID, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type batchRequest struct {
	Companies []services.Company `json:"companies" binding:"required,dive"`
}

func (h *Handlers) dispatch(c *gin.Context) {
	userID, ok := userParam(c)
	if !ok {
		return
	}
	var req batchRequest
	if !bind(c, &req) {
		return
	}
	result, err := h.Dispatcher.Dispatch(c.Request.Context(), userID, req.Companies)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handlers) listNotifications(c *gin.Context) {
	userID, ok := userParam(c)
	if !ok {
		return
	}
	records, err := h.Notifications.ListByUser(c.Request.Context(), userID, c.Query("unread") == "true")
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": records})
}

func (h *Handlers) markNotificationRead(c *gin.Context) {
	userID, ok := userParam(c)
	if !ok {
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification id"})
		return
	}
	if err = h.Notifications.MarkRead(c.Request.Context(), uint(id), userID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) getProfile(c *gin.Context) {
	userID, ok := userParam(c)
	if !ok {
		return
	}
	profile, err := h.Profiles.Get(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *Handlers) saveProfile(c *gin.Context) {
	userID, ok := userParam(c)
	if !ok {
		return
	}
	var profile models.ApplicantProfile
	if !bind(c, &profile) {
		return
	}
	profile.UserID = userID
	if err := h.Profiles.Save(c.Request.Context(), profile); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *Handlers) getCriteria(c *gin.Context) {
	userID, ok := userParam(c)
	if !ok {
		return
	}
	criteria, err := h.Criteria.Get(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, criteria)
}

func (h *Handlers) saveCriteria(c *gin.Context) {
	userID, ok := userParam(c)
	if !ok {
		return
	}
	var criteria models.MatchCriteria
	if !bind(c, &criteria) || !validateStruct(c, criteria) {
		return
	}
	criteria.UserID = userID
	if err := h.Criteria.Save(c.Request.Context(), criteria); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, criteria)
}

func userParam(c *gin.Context) (int64, bool) {
	userID, err := strconv.ParseInt(c.Param("user"), 10, 64)
	if err != nil || userID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return 0, false
	}
	return userID, true
}

func bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

func validateStruct(c *gin.Context, value any) bool {
	if err := validate.Struct(value); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return false
	}
	return true
}

var statusByError = []struct {
	err    error
	status int
}{
	{lifecycle.ErrNotFound, http.StatusNotFound},
	{repositories.ErrNotFound, http.StatusNotFound},
	{services.ErrProfileMissing, http.StatusNotFound},
	{lifecycle.ErrDuplicateActive, http.StatusConflict},
	{lifecycle.ErrInvalidTransition, http.StatusConflict},
	{lifecycle.ErrModificationRequired, http.StatusUnprocessableEntity},
	{lifecycle.ErrBelowThreshold, http.StatusUnprocessableEntity},
	{outreach.ErrNoRecipient, http.StatusUnprocessableEntity},
	{services.ErrBatchTooLarge, http.StatusUnprocessableEntity},
	{services.ErrDailyCapReached, http.StatusUnprocessableEntity},
	{context.DeadlineExceeded, http.StatusGatewayTimeout},
}

func writeError(c *gin.Context, err error) {
	for _, e := range statusByError {
		if errors.Is(err, e.err) {
			c.JSON(e.status, gin.H{"error": err.Error()})
			return
		}
	}
	log.Errorf("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
