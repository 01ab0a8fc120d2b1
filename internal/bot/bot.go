package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/asaskevich/EventBus"
	botApi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/maxaizer/autoapply/internal/domain/events"
	"github.com/maxaizer/autoapply/internal/domain/models"
	"github.com/maxaizer/autoapply/internal/lifecycle"
	"github.com/maxaizer/autoapply/internal/logger"
	"github.com/maxaizer/autoapply/internal/services"
	log "github.com/sirupsen/logrus"
)

type applicationRepository interface {
	ListByUser(ctx context.Context, userID int64, status models.ApplicationStatus, limit int) ([]models.PendingApplication, error)
}

type notificationRepository interface {
	ListByUser(ctx context.Context, userID int64, unreadOnly bool) ([]models.NotificationRecord, error)
	MarkRead(ctx context.Context, id uint, userID int64) error
}

type decider interface {
	Decide(ctx context.Context, id string, decision models.Decision, overrides *lifecycle.Overrides) (*models.PendingApplication, error)
}

type Dependencies struct {
	Applications  applicationRepository
	Notifications notificationRepository
	Lifecycle     decider

	// SubmitOnApproval tells the bot whether approved applications are sent right away.
	SubmitOnApproval bool
}

const (
	listLimit      = 10
	requestTimeout = 30 * time.Second

	// telegram rejects longer messages
	maxMessageRunes = 4096
)

// Bot delivers lifecycle events to users and lets them decide on pending applications.
// A user's Telegram id doubles as their user id and private chat id.
type Bot struct {
	api  apiInterface
	bus  EventBus.Bus
	deps Dependencies
}

func NewBot(token string, bus EventBus.Bus, deps Dependencies) (*Bot, error) {

	api, err := botApi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	log.Infof("Authorized on account %s", api.Self.UserName)

	if err = botApi.SetLogger(log.StandardLogger()); err != nil {
		return nil, err
	}

	return newBot(api, bus, deps)
}

func newBot(api apiInterface, bus EventBus.Bus, deps Dependencies) (*Bot, error) {
	if bus == nil {
		return nil, errors.New("bus is nil")
	}
	if deps.Applications == nil || deps.Notifications == nil || deps.Lifecycle == nil {
		return nil, errors.New("bot dependencies are incomplete")
	}

	b := &Bot{api: api, bus: bus, deps: deps}
	if err := bus.Subscribe(events.ApplicationTransitionedTopic, b.onApplicationTransitioned); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Bot) Run() {
	updateConfig := botApi.NewUpdate(0)
	updateConfig.Timeout = 60

	for update := range b.api.GetUpdatesChan(updateConfig) {
		switch {
		case update.CallbackQuery != nil:
			go b.handleCallback(update.CallbackQuery)
		case update.Message != nil:
			if update.Message.Chat.IsGroup() || update.Message.Chat.IsSuperGroup() {
				continue
			}
			go b.handleMessage(update.Message)
		}
	}
}

func (b *Bot) Stop() {
	b.api.StopReceivingUpdates()
}

func (b *Bot) handleMessage(message *botApi.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	var text string
	switch message.Command() {
	case startCommandName:
		text = "Hi! I will tell you about new applications waiting for your approval.\n\n" +
			"/pending - applications awaiting approval\n" +
			"/approve <id> - approve and send an application\n" +
			"/reject <id> - reject an application\n" +
			"/notifications - unread notifications"
	case pendingCommandName:
		text = b.pendingText(ctx, message.From.ID)
	case approveCommandName:
		text = b.decide(ctx, message.From.ID, message.CommandArguments(), models.DecisionApproved)
	case rejectCommandName:
		text = b.decide(ctx, message.From.ID, message.CommandArguments(), models.DecisionRejected)
	case notificationsCommandName:
		text = b.notificationsText(ctx, message.From.ID)
	case "":
		text = "Send a command, for example /pending."
	default:
		text = "Unknown command!"
	}

	_, _ = sendWithLogError(b.api, botApi.NewMessage(message.Chat.ID, text))
}

func (b *Bot) handleCallback(query *botApi.CallbackQuery) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	command, id, ok := parseCallback(query.Data)
	text := "Unknown action"
	if ok {
		decision := models.DecisionApproved
		if command == rejectCommandName {
			decision = models.DecisionRejected
		}
		text = b.decide(ctx, query.From.ID, id, decision)
	}

	if _, err := b.api.Request(botApi.NewCallback(query.ID, text)); err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeTgApi).Errorf("failed to answer callback: %v", err)
	}
	if query.Message != nil {
		_, _ = sendWithLogError(b.api, botApi.NewMessage(query.Message.Chat.ID, text))
	}
}

func (b *Bot) pendingText(ctx context.Context, userID int64) string {
	apps, err := b.deps.Applications.ListByUser(ctx, userID, models.StatusPendingApproval, listLimit)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("failed to list pending applications: %v", err)
		return "Internal error!"
	}
	if len(apps) == 0 {
		return "No applications are waiting for approval."
	}

	var sb strings.Builder
	sb.WriteString("Awaiting approval:\n")
	for _, app := range apps {
		fmt.Fprintf(&sb, "\n%s  %s at %s, match %.0f%%, expires %s",
			shortID(app.ID), app.JobTitle, app.JobCompany, app.MatchScore*100, app.ExpiresAt.Format("Jan 2 15:04"))
	}
	return sb.String()
}

// decide resolves an id or id prefix among the user's pending applications and applies the decision.
func (b *Bot) decide(ctx context.Context, userID int64, idArg string, decision models.Decision) string {
	idArg = strings.TrimSpace(idArg)
	if len(idArg) < minIDPrefixLength {
		return fmt.Sprintf("Specify the application id, at least %d characters. See /pending.", minIDPrefixLength)
	}

	apps, err := b.deps.Applications.ListByUser(ctx, userID, models.StatusPendingApproval, 0)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("failed to list pending applications: %v", err)
		return "Internal error!"
	}

	var matched []models.PendingApplication
	for _, app := range apps {
		if strings.HasPrefix(app.ID, idArg) {
			matched = append(matched, app)
		}
	}
	switch len(matched) {
	case 0:
		return "No pending application with id " + idArg
	case 1:
	default:
		return "Several applications match " + idArg + ", use a longer id."
	}

	app, err := b.deps.Lifecycle.Decide(ctx, matched[0].ID, decision, nil)
	switch {
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		return "This application can no longer be decided."
	case err != nil:
		log.Errorf("failed to decide application %s: %v", matched[0].ID, err)
		return "Internal error!"
	}

	if app.Status == models.StatusApproved {
		if b.deps.SubmitOnApproval {
			return fmt.Sprintf("Approved: %s at %s. It will be sent to %s.", app.JobTitle, app.JobCompany, app.RecipientEmail)
		}
		return fmt.Sprintf("Approved: %s at %s. It will be sent to %s once submission is triggered.",
			app.JobTitle, app.JobCompany, app.RecipientEmail)
	}
	return fmt.Sprintf("Rejected: %s at %s.", app.JobTitle, app.JobCompany)
}

func (b *Bot) notificationsText(ctx context.Context, userID int64) string {
	records, err := b.deps.Notifications.ListByUser(ctx, userID, true)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("failed to list notifications: %v", err)
		return "Internal error!"
	}
	if len(records) == 0 {
		return "No unread notifications."
	}

	var sb strings.Builder
	for i, record := range records {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(record.Title + "\n" + record.Body)
		if err = b.deps.Notifications.MarkRead(ctx, record.ID, userID); err != nil {
			log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("failed to mark notification read: %v", err)
		}
	}
	return sb.String()
}

func (b *Bot) onApplicationTransitioned(event events.ApplicationTransitioned) {
	record, ok := services.NotificationFor(event)
	if !ok {
		return
	}

	app := event.Application
	msg := botApi.NewMessage(app.UserID, record.Title+"\n"+record.Body+"\nid: "+shortID(app.ID))
	if event.IsCreation() && event.To == models.StatusPendingApproval {
		msg.Text += "\n\n" + app.CoverLetter
		msg.ReplyMarkup = decisionKeyboard(app.ID)
	}
	msg.Text = truncateMessage(msg.Text)

	_, _ = sendWithLogError(b.api, msg)
}

func truncateMessage(text string) string {
	runes := []rune(text)
	if len(runes) <= maxMessageRunes {
		return text
	}
	return string(runes[:maxMessageRunes-1]) + "…"
}
